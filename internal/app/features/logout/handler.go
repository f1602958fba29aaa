// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/respond"
	"github.com/dalemusser/stratadmin/internal/app/system/auditlog"
	"github.com/dalemusser/stratadmin/internal/app/system/auth"
	"github.com/dalemusser/stratadmin/internal/app/system/console"
	"github.com/dalemusser/stratadmin/internal/app/system/notify"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Registry   *console.Registry
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, registry *console.Registry, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Registry:   registry,
		AuditLog:   audit,
	}
}

// HandleLogout handles POST /logout. The session cookie is expired and the
// console's list state is dropped.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	// Audit first: the actor comes from the session being closed.
	h.AuditLog.Logout(r.Context(), r)

	consoleID, err := h.SessionMgr.SignOut(w, r)
	if err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	if consoleID != "" && h.Registry != nil {
		n := h.Registry.Forget(consoleID)
		h.Log.Debug("console state dropped", zap.Int("entries", n))
	}
	respond.JSON(w, http.StatusOK, respond.Envelope{Outcome: notify.OK("Signed out")})
}
