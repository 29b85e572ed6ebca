// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RegistrationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bloodlink_registrations_created_total",
		Help: "Event registrations created",
	})

	RegistrationsVerified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bloodlink_registrations_verified_total",
		Help: "Event registrations verified at check-in",
	})

	VerifyRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloodlink_registration_verify_rejected_total",
		Help: "Verification attempts that did not verify, by reason",
	}, []string{"reason"})

	BloodRequestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bloodlink_blood_requests_created_total",
		Help: "Blood requests created",
	})

	BloodRequestsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bloodlink_blood_requests_accepted_total",
		Help: "Blood request acceptances recorded",
	})

	EligibilityRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bloodlink_eligibility_rejections_total",
		Help: "Acceptances refused because the donor donated too recently",
	})

	OutboxTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloodlink_outbox_tasks_total",
		Help: "Outbox task executions by kind and result",
	}, []string{"kind", "result"})

	OutboxBacklog = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bloodlink_outbox_backlog",
		Help: "Outbox tasks by status at the last worker pass",
	}, []string{"status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bloodlink_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5},
	}, []string{"method", "route", "status"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request latency labelled by the chi route pattern,
// which keeps label cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
