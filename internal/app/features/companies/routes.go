// internal/app/features/companies/routes.go
package companies

import (
	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv"
	"github.com/dalemusser/stratadmin/internal/app/system/permissions"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the company list and creation wizard.
func Routes(h *Handler, env pageenv.Env) (chi.Router, error) {
	wz, err := h.Wizard(env)
	if err != nil {
		return nil, err
	}
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(env.Create(permissions.Companies))
		pr.Mount("/new", wz.Routes())
	})
	r.Group(func(pr chi.Router) {
		pr.Use(env.View(permissions.Companies))
		pr.Mount("/", h.ListPage(env).Routes())
	})
	return r, nil
}
