// internal/app/features/auditlog/list.go
package auditlog

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/listpage"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/respond"
	"github.com/dalemusser/stratadmin/internal/app/store/audit"
	"github.com/dalemusser/stratadmin/internal/app/system/limits"
	"github.com/dalemusser/stratadmin/internal/app/system/listctl"
	"github.com/dalemusser/stratadmin/internal/app/system/notify"
	"github.com/dalemusser/stratadmin/internal/app/system/paging"
	"github.com/dalemusser/stratadmin/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var Filters = []listctl.Filter{
	{Name: "category"},
	{Name: "event_type"},
	{Name: "start_date"},
	{Name: "end_date"},
}

func eventFilter(q listctl.Query) (audit.QueryFilter, error) {
	f := audit.QueryFilter{
		Search:    q.SearchText,
		Category:  q.Filters["category"],
		EventType: q.Filters["event_type"],
	}
	valid := eventTypesForCategory(f.Category)
	if valid == nil {
		return f, fmt.Errorf("unknown category %q", f.Category)
	}
	if f.EventType != "" && !slices.Contains(valid, f.EventType) {
		return f, fmt.Errorf("unknown event type %q", f.EventType)
	}
	var err error
	if f.StartTime, err = listpage.DateFilter(q, "start_date"); err != nil {
		return f, err
	}
	if f.EndTime, err = listpage.DateFilter(q, "end_date"); err != nil {
		return f, err
	}
	if f.StartTime != nil && f.EndTime != nil && f.EndTime.Before(*f.StartTime) {
		return f, fmt.Errorf("end date is before start date")
	}
	return f, nil
}

// ListPage builds the log list. Records are newest first on load.
func (h *Handler) ListPage(env pageenv.Env) *listpage.Page[audit.Event] {
	return &listpage.Page[audit.Event]{
		Name:            Page,
		Registry:        env.Registry,
		Source:          listpage.StoreSource(eventFilter, h.Events.Query, h.Events.CountByFilter),
		Compare:         listpage.ByObjectID(func(e audit.Event) primitive.ObjectID { return e.ID }),
		Filters:         Filters,
		DefaultPageSize: env.DefaultPageSize,
		Flashes:         env.Flashes,
		Log:             h.Log,
	}
}

// ServeOptions returns the categories and event types offered by the
// filters.
func (h *Handler) ServeOptions(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, respond.Envelope{
		Outcome: notify.OK(""),
		Data:    map[string]any{"categories": allCategories()},
	})
}

// ServeRecent returns the latest events regardless of the list state.
func (h *Handler) ServeRecent(w http.ResponseWriter, r *http.Request) {
	limit := int64(paging.ParseLimit(r, "limit", 20, limits.MaxRecentEvents))
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "audit recent")
	defer cancel()
	events, err := h.Events.GetRecent(ctx, limit)
	if err != nil {
		h.Log.Error("recent audit events", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "could not load recent events")
		return
	}
	respond.JSON(w, http.StatusOK, respond.Envelope{Outcome: notify.OK(""), Data: events})
}
