// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	adminstore "github.com/dalemusser/bloodlink/internal/app/store/admins"
	eventregstore "github.com/dalemusser/bloodlink/internal/app/store/eventregs"
	eventstore "github.com/dalemusser/bloodlink/internal/app/store/events"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/indexes"
	"github.com/dalemusser/bloodlink/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the single MongoDB client shared by every handler and
// worker. The connection is verified with a ping before returning.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("bloodlink")
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	if appCfg.MongoMinPoolSize > 0 {
		opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		logger.Error("mongo connect failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		logger.Error("mongo ping failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema attaches collection validators, creates indexes, migrates
// legacy records, and ensures the bootstrap superadmin exists.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase
	if err := validators.EnsureAll(ctx, db); err != nil {
		logger.Error("ensure validators failed", zap.Error(err))
		return err
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	if err := migrate(ctx, db, logger); err != nil {
		return err
	}
	if appCfg.SuperAdminEmail != "" {
		if err := ensureSuperAdmin(ctx, deps, appCfg.SuperAdminEmail, appCfg.SuperAdminPassword, logger); err != nil {
			return err
		}
	}
	return nil
}

// migrate brings records written by older releases up to the current
// shape. Each step is idempotent.
func migrate(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	regs := eventregstore.New(db)
	n, err := regs.BackfillMissingTokens(ctx)
	if err != nil {
		logger.Error("token backfill failed", zap.Error(err))
		return fmt.Errorf("backfill registration tokens: %w", err)
	}
	if n > 0 {
		logger.Info("backfilled registration tokens", zap.Int("count", n))
	}

	events := eventstore.New(db)
	ids, err := events.IDsMissingCount(ctx)
	if err != nil {
		return fmt.Errorf("find events without registered_count: %w", err)
	}
	for _, id := range ids {
		count, err := regs.CountActiveByEvent(ctx, id)
		if err != nil {
			return fmt.Errorf("count registrations for event %s: %w", id.Hex(), err)
		}
		if err := events.SetCountIfMissing(ctx, id, count); err != nil {
			return fmt.Errorf("set registered_count for event %s: %w", id.Hex(), err)
		}
	}
	if len(ids) > 0 {
		logger.Info("seeded event registered counts", zap.Int("events", len(ids)))
	}
	return nil
}

func ensureSuperAdmin(ctx context.Context, deps DBDeps, email, password string, logger *zap.Logger) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("superadmin password: %w", err)
	}
	created, err := adminstore.New(deps.MongoDatabase).EnsureSuperAdmin(ctx, email, "Super Admin", hash)
	if err != nil {
		logger.Error("ensure superadmin failed", zap.Error(err))
		return err
	}
	if created {
		logger.Info("created superadmin", zap.String("email", email))
	}
	return nil
}
