// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// IsNotSupported reports whether err means the deployment cannot run
// multi-document transactions (standalone mongod, some emulators).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}
	s := strings.ToLower(err.Error())
	has := func(sub string) bool { return strings.Contains(s, sub) }
	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("illegal operation") && has("transaction"):
		return true
	}
	return false
}

// Run executes fn inside a transaction. When the server cannot run
// transactions fn is executed once without one, so fn must leave the data
// consistent when its writes are applied sequentially.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, fn func(ctx context.Context) error) error {
	if client == nil {
		return fn(ctx)
	}
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		if log != nil {
			log.Debug("transactions unavailable; running without", zap.Error(err))
		}
		return fn(ctx)
	}
	return err
}
