// internal/app/features/accounts/list.go
package accounts

import (
	"fmt"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/listpage"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv"
	accountstore "github.com/dalemusser/stratadmin/internal/app/store/accounts"
	"github.com/dalemusser/stratadmin/internal/app/system/listctl"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Filters of the account list.
var Filters = []listctl.Filter{
	{Name: "status"},
	{Name: "company"},
}

func accountFilter(q listctl.Query) (accountstore.Filter, error) {
	f := accountstore.Filter{Search: q.SearchText, Status: q.Filters["status"]}
	if f.Status != "" && !models.ValidStatus(f.Status) {
		return f, fmt.Errorf("unknown status %q", f.Status)
	}
	id, err := listpage.IDFilter(q, "company")
	if err != nil {
		return f, err
	}
	f.CompanyID = id
	return f, nil
}

// ListPage builds the account list.
func (h *Handler) ListPage(env pageenv.Env) *listpage.Page[models.Account] {
	return &listpage.Page[models.Account]{
		Name:            Page,
		Registry:        env.Registry,
		Source:          listpage.StoreSource(accountFilter, h.Accounts.List, h.Accounts.Count),
		Compare:         listpage.ByObjectID(func(a models.Account) primitive.ObjectID { return a.ID }),
		Filters:         Filters,
		DefaultPageSize: env.DefaultPageSize,
		Flashes:         env.Flashes,
		Log:             h.Log,
	}
}
