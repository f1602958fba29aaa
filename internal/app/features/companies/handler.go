// internal/app/features/companies/handler.go
package companies

import (
	companystore "github.com/dalemusser/stratadmin/internal/app/store/companies"
	"github.com/dalemusser/stratadmin/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	Page            = "companies"
	WizardNamespace = "companyWizard"

	StepProfile  = "profile"
	StepSettings = "settings"
)

// Handler is the feature-level entry point for Companies.
type Handler struct {
	Companies *companystore.Store
	Audit     *auditlog.Logger
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Companies: companystore.New(db), Audit: audit, Log: logger}
}
