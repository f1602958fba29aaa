// Package modules lists the product modules that can be enabled for an
// account, and lets operators add modules and retire them.
package modules

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/listpage"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/respond"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/setstatus"
	modulestore "github.com/dalemusser/stratadmin/internal/app/store/modules"
	"github.com/dalemusser/stratadmin/internal/app/system/auditlog"
	"github.com/dalemusser/stratadmin/internal/app/system/listctl"
	"github.com/dalemusser/stratadmin/internal/app/system/notify"
	"github.com/dalemusser/stratadmin/internal/app/system/permissions"
	"github.com/dalemusser/stratadmin/internal/app/system/timeouts"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const Page = "modules"

var Filters = []listctl.Filter{{Name: "status"}}

// keyPattern is the shape of a module key: lowercase words joined by
// dashes or underscores.
var keyPattern = regexp.MustCompile(`^[a-z0-9]+([-_][a-z0-9]+)*$`)

type Handler struct {
	Modules *modulestore.Store
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Modules: modulestore.New(db), Audit: audit, Log: logger}
}

func moduleFilter(q listctl.Query) (modulestore.Filter, error) {
	f := modulestore.Filter{Search: q.SearchText, Status: q.Filters["status"]}
	if f.Status != "" && !models.ValidStatus(f.Status) {
		return f, fmt.Errorf("unknown status %q", f.Status)
	}
	return f, nil
}

func (h *Handler) ListPage(env pageenv.Env) *listpage.Page[models.Module] {
	return &listpage.Page[models.Module]{
		Name:            Page,
		Registry:        env.Registry,
		Source:          listpage.StoreSource(moduleFilter, h.Modules.List, h.Modules.Count),
		Compare:         listpage.ByObjectID(func(m models.Module) primitive.ObjectID { return m.ID }),
		Filters:         Filters,
		DefaultPageSize: env.DefaultPageSize,
		Flashes:         env.Flashes,
		Log:             h.Log,
	}
}

type createInput struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleCreate adds an active module.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := respond.Decode(r, &in, func(get func(string) string, _ func(string) []string) {
		in = createInput{Key: get("key"), Name: get("name"), Description: get("description")}
	}); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	in.Key = strings.ToLower(strings.TrimSpace(in.Key))
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case !keyPattern.MatchString(in.Key):
		respond.Error(w, http.StatusUnprocessableEntity, "key must be lowercase letters and digits separated by - or _")
		return
	case in.Name == "":
		respond.Error(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "module create")
	defer cancel()
	m, err := h.Modules.Create(ctx, models.Module{Key: in.Key, Name: in.Name, Description: strings.TrimSpace(in.Description)})
	if err != nil {
		if errors.Is(err, modulestore.ErrDuplicateKey) {
			respond.Error(w, http.StatusConflict, err.Error())
			return
		}
		h.Log.Error("module create failed", zap.String("key", in.Key), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "could not create the module, please try again")
		return
	}
	respond.JSON(w, http.StatusCreated, respond.Envelope{Outcome: notify.OK("Module created"), Data: m})
}

// Routes mounts the module list, creation and the status endpoint.
func Routes(h *Handler, env pageenv.Env) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(env.Create(permissions.Modules))
		pr.Post("/new", h.HandleCreate)
	})
	r.Group(func(pr chi.Router) {
		pr.Use(env.Edit(permissions.Modules))
		pr.Post("/{id}/status", setstatus.Handler("module", h.Modules.SetStatus, modulestore.ErrNotFound, h.Audit, h.Log))
	})
	r.Group(func(pr chi.Router) {
		pr.Use(env.View(permissions.Modules))
		pr.Mount("/", h.ListPage(env).Routes())
	})
	return r
}
