// internal/app/features/profile/handler.go
package profile

import (
	userstore "github.com/dalemusser/stratadmin/internal/app/store/users"
	"github.com/dalemusser/stratadmin/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the signed-in operator's own profile.
type Handler struct {
	Users *userstore.Store
	Audit *auditlog.Logger
	Log   *zap.Logger
}

// NewHandler constructs a Handler bound to the given Mongo database and logger.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users: userstore.New(db),
		Audit: audit,
		Log:   logger,
	}
}
