// Package users serves the console's user list: customer-side users and
// support staff. Console administrators are listed by the admins package.
package users

import (
	"fmt"
	"slices"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/listpage"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/setstatus"
	userstore "github.com/dalemusser/stratadmin/internal/app/store/users"
	"github.com/dalemusser/stratadmin/internal/app/system/auditlog"
	"github.com/dalemusser/stratadmin/internal/app/system/listctl"
	"github.com/dalemusser/stratadmin/internal/app/system/permissions"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const Page = "users"

// Roles shown on the user list.
var Roles = []string{models.RoleUser, models.RoleSupport}

var Filters = []listctl.Filter{
	{Name: "role"},
	{Name: "status"},
}

type Handler struct {
	Users *userstore.Store
	Audit *auditlog.Logger
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Users: userstore.New(db), Audit: audit, Log: logger}
}

// RoleFilter translates a list query into a user filter limited to roles.
func RoleFilter(roles []string) func(listctl.Query) (userstore.Filter, error) {
	return func(q listctl.Query) (userstore.Filter, error) {
		f := userstore.Filter{
			Search: q.SearchText,
			Role:   q.Filters["role"],
			Roles:  roles,
			Status: q.Filters["status"],
		}
		if f.Role != "" && !slices.Contains(roles, f.Role) {
			return f, fmt.Errorf("unknown role %q", f.Role)
		}
		if f.Status != "" && !models.ValidStatus(f.Status) {
			return f, fmt.Errorf("unknown status %q", f.Status)
		}
		return f, nil
	}
}

// ByID orders users by id.
var ByID = listpage.ByObjectID(func(u models.User) primitive.ObjectID { return u.ID })

func (h *Handler) ListPage(env pageenv.Env) *listpage.Page[models.User] {
	return &listpage.Page[models.User]{
		Name:            Page,
		Registry:        env.Registry,
		Source:          listpage.StoreSource(RoleFilter(Roles), h.Users.List, h.Users.Count),
		Compare:         ByID,
		Filters:         Filters,
		DefaultPageSize: env.DefaultPageSize,
		Flashes:         env.Flashes,
		Log:             h.Log,
	}
}

// Routes mounts the user list and the status endpoint.
func Routes(h *Handler, env pageenv.Env) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(env.Edit(permissions.Users))
		pr.Post("/{id}/status", setstatus.Handler("user", h.Users.SetStatus, userstore.ErrNotFound, h.Audit, h.Log))
	})
	r.Group(func(pr chi.Router) {
		pr.Use(env.View(permissions.Users))
		pr.Mount("/", h.ListPage(env).Routes())
	})
	return r
}
