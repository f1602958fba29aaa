// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/stratadmin/internal/app/store/audit"
	userstore "github.com/dalemusser/stratadmin/internal/app/store/users"
	"github.com/dalemusser/stratadmin/internal/app/system/indexes"
	"github.com/dalemusser/stratadmin/internal/app/system/progress"
	"github.com/dalemusser/stratadmin/internal/app/system/timeouts"
	"github.com/dalemusser/stratadmin/internal/app/system/validators"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the MongoDB client and verifies it with a ping.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("stratadmin")
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	if appCfg.MongoMinPoolSize > 0 {
		opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		logger.Error("MongoDB connect failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("connect MongoDB: %w", err)
	}

	pingCtx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), logger, "mongo ping")
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		logger.Error("MongoDB ping failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema creates the collections, validators and indexes, then makes
// sure the configured superadmin exists.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	if err := validators.EnsureAll(ctx, db); err != nil {
		logger.Warn("some validators could not be applied", zap.Error(err))
	}
	if err := indexes.EnsureAll(ctx, db, logger); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	if err := audit.New(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure audit indexes: %w", err)
	}
	if appCfg.ProgressBackend == ProgressMongo {
		if err := progress.NewMongoStore(db).EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure progress indexes: %w", err)
		}
	}

	return ensureSuperAdmin(ctx, deps, appCfg.SuperAdminEmail, logger)
}

// ensureSuperAdmin promotes the user with email to an active superadmin.
// A missing user is created without a password; stratadmin-seed or a
// password reset gives it one. An empty email is a no-op.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	if email == "" {
		return nil
	}
	users := userstore.New(deps.MongoDatabase)

	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		created, err := users.Create(ctx, models.User{
			FullName: "Super Admin",
			Email:    email,
			Role:     models.RoleSuperAdmin,
			Status:   models.StatusActive,
		}, "")
		if err != nil {
			return fmt.Errorf("create superadmin: %w", err)
		}
		logger.Info("superadmin created", zap.String("email", created.Email))
		return nil
	case err != nil:
		return fmt.Errorf("load superadmin: %w", err)
	}

	if u.Role == models.RoleSuperAdmin && u.Status == models.StatusActive {
		return nil
	}
	if err := users.SetRole(ctx, u.ID, models.RoleSuperAdmin); err != nil {
		return fmt.Errorf("promote superadmin: %w", err)
	}
	if err := users.SetStatus(ctx, u.ID, models.StatusActive); err != nil {
		return fmt.Errorf("activate superadmin: %w", err)
	}
	logger.Info("user promoted to superadmin", zap.String("email", u.Email), zap.String("previous_role", u.Role))
	return nil
}
