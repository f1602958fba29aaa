// internal/app/features/accounts/handler.go
package accounts

import (
	accountstore "github.com/dalemusser/stratadmin/internal/app/store/accounts"
	companystore "github.com/dalemusser/stratadmin/internal/app/store/companies"
	modulestore "github.com/dalemusser/stratadmin/internal/app/store/modules"
	"github.com/dalemusser/stratadmin/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Page is the console registry key of the account list.
const Page = "accounts"

// WizardNamespace prefixes the progress keys of the account wizard.
const WizardNamespace = "accountWizard"

// Steps of the account wizard.
const (
	StepDetails = "details"
	StepAddress = "address"
	StepModules = "modules"
)

// Handler is the feature-level entry point for Accounts.
type Handler struct {
	Accounts  *accountstore.Store
	Companies *companystore.Store
	Modules   *modulestore.Store
	Audit     *auditlog.Logger
	Log       *zap.Logger
}

// NewHandler constructs an Accounts handler bound to a DB and logger.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts:  accountstore.New(db),
		Companies: companystore.New(db),
		Modules:   modulestore.New(db),
		Audit:     audit,
		Log:       logger,
	}
}
