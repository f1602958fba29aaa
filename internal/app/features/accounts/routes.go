// internal/app/features/accounts/routes.go
package accounts

import (
	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/setstatus"
	accountstore "github.com/dalemusser/stratadmin/internal/app/store/accounts"
	"github.com/dalemusser/stratadmin/internal/app/system/permissions"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the account list, the creation wizard and the status
// endpoint (typically under "/accounts" from bootstrap).
func Routes(h *Handler, env pageenv.Env) (chi.Router, error) {
	wz, err := h.Wizard(env)
	if err != nil {
		return nil, err
	}
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(env.Create(permissions.Accounts))
		pr.Mount("/new", wz.Routes())
	})

	r.Group(func(pr chi.Router) {
		pr.Use(env.Edit(permissions.Accounts))
		pr.Post("/{id}/status", setstatus.Handler("account", h.Accounts.SetStatus, accountstore.ErrNotFound, h.Audit, h.Log))
	})

	r.Group(func(pr chi.Router) {
		pr.Use(env.View(permissions.Accounts))
		pr.Mount("/", h.ListPage(env).Routes())
	})

	return r, nil
}
