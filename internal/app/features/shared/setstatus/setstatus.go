// Package setstatus serves the status change endpoint shared by accounts,
// users and modules.
package setstatus

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/respond"
	"github.com/dalemusser/stratadmin/internal/app/system/auditlog"
	"github.com/dalemusser/stratadmin/internal/app/system/normalize"
	"github.com/dalemusser/stratadmin/internal/app/system/notify"
	"github.com/dalemusser/stratadmin/internal/app/system/timeouts"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Setter updates the status of one record.
type Setter func(ctx context.Context, id primitive.ObjectID, status string) error

// Handler changes the status of the record named by the {id} URL
// parameter. notFound is the store's not-found error.
func Handler(entity string, set Setter, notFound error, audit *auditlog.Logger, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
		if err != nil {
			respond.Error(w, http.StatusNotFound, entity+" not found")
			return
		}
		var body struct {
			Status string `json:"status"`
		}
		if err := respond.Decode(r, &body, func(get func(string) string, _ func(string) []string) {
			body.Status = get("status")
		}); err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		status := normalize.Status(body.Status)
		if !models.ValidStatus(status) {
			respond.Error(w, http.StatusUnprocessableEntity, "unknown status "+body.Status)
			return
		}

		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), log, entity+" status")
		defer cancel()
		if err := set(ctx, id, status); err != nil {
			if errors.Is(err, notFound) {
				respond.Error(w, http.StatusNotFound, entity+" not found")
				return
			}
			log.Error("status change failed", zap.String("entity", entity), zap.String("id", id.Hex()), zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "could not change the status, please try again")
			return
		}
		audit.StatusChanged(ctx, r, entity, id, status)
		respond.JSON(w, http.StatusOK, respond.Envelope{
			Outcome: notify.OK(strings.ToUpper(entity[:1]) + entity[1:] + " is now " + status),
			Data:    map[string]string{"id": id.Hex(), "status": status},
		})
	}
}
