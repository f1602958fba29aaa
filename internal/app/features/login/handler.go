// internal/app/features/login/handler.go
package login

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The email the operator signs in with

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/respond"
	userstore "github.com/dalemusser/stratadmin/internal/app/store/users"
	"github.com/dalemusser/stratadmin/internal/app/system/auditlog"
	"github.com/dalemusser/stratadmin/internal/app/system/auth"
	"github.com/dalemusser/stratadmin/internal/app/system/notify"
	"github.com/dalemusser/stratadmin/internal/app/system/permissions"
	"github.com/dalemusser/stratadmin/internal/app/system/ratelimit"
	"github.com/dalemusser/stratadmin/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Policy     *permissions.Policy
	Limiter    *ratelimit.LoginLimiter
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, policy *permissions.Policy, limiter *ratelimit.LoginLimiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      userstore.New(db),
		SessionMgr: sessionMgr,
		Policy:     policy,
		Limiter:    limiter,
		AuditLog:   audit,
		Log:        logger,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Return   string `json:"return"`
}

// sessionView describes the signed-in operator and what the console lets
// them do.
type sessionView struct {
	SignedIn     bool                `json:"signed_in"`
	ID           string              `json:"id,omitempty"`
	Name         string              `json:"name,omitempty"`
	LoginID      string              `json:"login_id,omitempty"`
	Role         string              `json:"role,omitempty"`
	Capabilities map[string][]string `json:"capabilities,omitempty"`
	Redirect     string              `json:"redirect,omitempty"`
}

var (
	modules = []string{
		permissions.Accounts, permissions.Companies, permissions.Users,
		permissions.Admins, permissions.Modules, permissions.Feedback, permissions.Logs,
	}
	actions = []string{permissions.View, permissions.Create, permissions.Edit}
)

func (h *Handler) view(u *auth.SessionUser) sessionView {
	v := sessionView{SignedIn: true, ID: u.ID, Name: u.Name, LoginID: u.LoginID, Role: u.Role}
	gate := h.Policy.For(u.Role)
	v.Capabilities = map[string][]string{}
	for _, m := range modules {
		for _, a := range actions {
			if gate.Allowed(m, a) {
				v.Capabilities[m] = append(v.Capabilities[m], a)
			}
		}
	}
	return v
}

// ServeSession handles GET /login: who is signed in, if anyone.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.JSON(w, http.StatusOK, respond.Envelope{Outcome: notify.OK(""), Data: sessionView{}})
		return
	}
	respond.JSON(w, http.StatusOK, respond.Envelope{Outcome: notify.OK(""), Data: h.view(u)})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := respond.Decode(r, &in, func(get func(string) string, _ func(string) []string) {
		in = credentials{Email: get("email"), Password: r.PostForm.Get("password"), Return: get("return")}
	}); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	loginID := strings.TrimSpace(in.Email)
	if loginID == "" || in.Password == "" {
		respond.Error(w, http.StatusUnprocessableEntity, "Please enter your email and password.")
		return
	}

	if ok, msg := h.Limiter.Check(r, loginID); !ok {
		h.Log.Warn("login rate limited", zap.String("ip", ratelimit.ClientIP(r)))
		respond.Error(w, http.StatusTooManyRequests, msg)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	u, err := h.Users.Authenticate(ctx, loginID, in.Password)
	switch {
	case errors.Is(err, userstore.ErrInvalidCredentials):
		h.AuditLog.LoginFailedCredentials(ctx, r, loginID)
		respond.Error(w, http.StatusUnauthorized, "Invalid email or password.")
		return
	case errors.Is(err, userstore.ErrInactive):
		h.AuditLog.LoginFailedInactive(ctx, r, u.ID, u.FullName, loginID)
		respond.Error(w, http.StatusForbidden, "Your account is not active. Please contact an administrator.")
		return
	case err != nil:
		h.Log.Error("login: authenticate", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "A server error occurred.")
		return
	}

	su, err := h.SessionMgr.SignIn(w, r, auth.SessionUser{
		ID:      u.ID.Hex(),
		Name:    u.FullName,
		LoginID: u.Email,
		Role:    u.Role,
	})
	if err != nil {
		h.Log.Error("login: save session", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "A server error occurred.")
		return
	}
	h.Limiter.ResetEmail(loginID)
	if err := h.Users.TouchLogin(ctx, u.ID); err != nil {
		h.Log.Warn("login: record last login", zap.Error(err))
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.FullName, u.Email)

	v := h.view(su)
	v.Redirect = urlutil.SafeReturn(in.Return, "", "/")
	respond.JSON(w, http.StatusOK, respond.Envelope{Outcome: notify.OK("Signed in"), Data: v})
}
