// internal/app/features/auditlog/types.go
package auditlog

import (
	"slices"

	"github.com/dalemusser/stratadmin/internal/app/store/audit"
)

// categoryOption represents a category for the filter dropdown.
type categoryOption struct {
	Value  string   `json:"value"`
	Label  string   `json:"label"`
	Events []string `json:"events"`
}

var authEvents = []string{
	audit.EventLoginSuccess,
	audit.EventLoginFailedCredentials,
	audit.EventLoginFailedUserInactive,
	audit.EventLogout,
	audit.EventPasswordChanged,
}

var adminEvents = []string{
	audit.EventAccountCreated,
	audit.EventAccountUpdated,
	audit.EventCompanyCreated,
	audit.EventCompanyUpdated,
	audit.EventWizardAbandoned,
	audit.EventStatusChanged,
}

func allCategories() []categoryOption {
	return []categoryOption{
		{Value: audit.CategoryAuth, Label: "Authentication", Events: authEvents},
		{Value: audit.CategoryAdmin, Label: "Administration", Events: adminEvents},
	}
}

// eventTypesForCategory returns the event types of category, or every
// event type when category is empty.
func eventTypesForCategory(category string) []string {
	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryAdmin:
		return adminEvents
	case "":
		return slices.Concat(authEvents, adminEvents)
	default:
		return nil
	}
}
