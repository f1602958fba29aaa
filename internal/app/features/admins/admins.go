// Package admins lists the console's administrators.
package admins

import (
	"github.com/dalemusser/stratadmin/internal/app/features/shared/listpage"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv"
	"github.com/dalemusser/stratadmin/internal/app/features/users"
	userstore "github.com/dalemusser/stratadmin/internal/app/store/users"
	"github.com/dalemusser/stratadmin/internal/app/system/permissions"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const Page = "admins"

var Roles = []string{models.RoleAdmin, models.RoleSuperAdmin}

type Handler struct {
	Users *userstore.Store
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Users: userstore.New(db), Log: logger}
}

func (h *Handler) ListPage(env pageenv.Env) *listpage.Page[models.User] {
	return &listpage.Page[models.User]{
		Name:            Page,
		Registry:        env.Registry,
		Source:          listpage.StoreSource(users.RoleFilter(Roles), h.Users.List, h.Users.Count),
		Compare:         users.ByID,
		Filters:         users.Filters,
		DefaultPageSize: env.DefaultPageSize,
		Flashes:         env.Flashes,
		Log:             h.Log,
	}
}

// Routes mounts the admin list. Only roles with the admins capability see
// it.
func Routes(h *Handler, env pageenv.Env) chi.Router {
	r := chi.NewRouter()
	r.Use(env.View(permissions.Admins))
	r.Mount("/", h.ListPage(env).Routes())
	return r
}
