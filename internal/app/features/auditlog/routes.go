// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv"
	"github.com/dalemusser/stratadmin/internal/app/system/permissions"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit log under the path where this router is mounted
// (typically "/logs" from bootstrap).
func Routes(h *Handler, env pageenv.Env) chi.Router {
	r := chi.NewRouter()
	r.Use(env.View(permissions.Logs))
	r.Get("/options", h.ServeOptions)
	r.Get("/recent", h.ServeRecent)
	r.Mount("/", h.ListPage(env).Routes())
	return r
}
