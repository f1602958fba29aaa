// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/dalemusser/stratadmin/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Page is the console registry key of the log list.
const Page = "logs"

type Handler struct {
	Events *audit.Store
	Log    *zap.Logger
}

// NewHandler constructs an Audit Log feature handler bound to
// the given Mongo database and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Events: audit.New(db),
		Log:    logger,
	}
}
