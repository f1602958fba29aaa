// Package feedback lists the messages submitted from client apps.
package feedback

import (
	"fmt"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/listpage"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv"
	feedbackstore "github.com/dalemusser/stratadmin/internal/app/store/feedback"
	"github.com/dalemusser/stratadmin/internal/app/system/listctl"
	"github.com/dalemusser/stratadmin/internal/app/system/permissions"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const Page = "feedback"

var Filters = []listctl.Filter{
	{Name: "device_type"},
	{Name: "start_date"},
	{Name: "end_date"},
}

type Handler struct {
	Feedback *feedbackstore.Store
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Feedback: feedbackstore.New(db), Log: logger}
}

func feedbackFilter(q listctl.Query) (feedbackstore.Filter, error) {
	f := feedbackstore.Filter{Search: q.SearchText, DeviceType: q.Filters["device_type"]}
	if f.DeviceType != "" && !models.ValidDeviceType(f.DeviceType) {
		return f, fmt.Errorf("unknown device type %q", f.DeviceType)
	}
	var err error
	if f.From, err = listpage.DateFilter(q, "start_date"); err != nil {
		return f, err
	}
	if f.To, err = listpage.DateFilter(q, "end_date"); err != nil {
		return f, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, fmt.Errorf("end date is before start date")
	}
	return f, nil
}

func (h *Handler) ListPage(env pageenv.Env) *listpage.Page[models.Feedback] {
	return &listpage.Page[models.Feedback]{
		Name:            Page,
		Registry:        env.Registry,
		Source:          listpage.StoreSource(feedbackFilter, h.Feedback.List, h.Feedback.Count),
		Compare:         listpage.ByObjectID(func(f models.Feedback) primitive.ObjectID { return f.ID }),
		Filters:         Filters,
		DefaultPageSize: env.DefaultPageSize,
		Flashes:         env.Flashes,
		Log:             h.Log,
	}
}

func Routes(h *Handler, env pageenv.Env) chi.Router {
	r := chi.NewRouter()
	r.Use(env.View(permissions.Feedback))
	r.Mount("/", h.ListPage(env).Routes())
	return r
}
