// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows returned by list endpoints.
const PageSize = 50

// MaxPageSize caps the "limit" query parameter.
const MaxPageSize = 200

// Page is an offset window over a sorted list.
type Page struct {
	Limit int
	Skip  int
}

// Parse reads "limit" and "page" (1-based) from the query string, falling
// back to PageSize and the first page.
func Parse(r *http.Request) Page {
	limit := atoiOr(query.Get(r, "limit"), PageSize)
	if limit < 1 {
		limit = PageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	page := atoiOr(query.Get(r, "page"), 1)
	if page < 1 {
		page = 1
	}
	return Page{Limit: limit, Skip: (page - 1) * limit}
}

// Apply sets limit and skip on a find.
func (p Page) Apply(find *options.FindOptions) *options.FindOptions {
	if p.Limit <= 0 {
		p.Limit = PageSize
	}
	return find.SetLimit(int64(p.Limit)).SetSkip(int64(p.Skip))
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
