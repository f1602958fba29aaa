// internal/app/features/profile/profile.go
package profile

import (
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/respond"
	userstore "github.com/dalemusser/stratadmin/internal/app/store/users"
	"github.com/dalemusser/stratadmin/internal/app/system/auth"
	"github.com/dalemusser/stratadmin/internal/app/system/notify"
	"github.com/dalemusser/stratadmin/internal/app/system/timeouts"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type profileView struct {
	ID          string     `json:"id"`
	FullName    string     `json:"full_name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	HasPassword bool       `json:"has_password"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func viewOf(u *models.User) profileView {
	return profileView{
		ID:          u.ID.Hex(),
		FullName:    u.FullName,
		Email:       u.Email,
		Role:        u.Role,
		Status:      u.Status,
		HasPassword: u.PasswordHash != "",
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// current loads the signed-in user, writing the failure response itself
// when that is not possible.
func (h *Handler) current(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		auth.Unauthenticated(w, r)
		return nil, false
	}
	uid, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		auth.Unauthenticated(w, r)
		return nil, false
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "profile load")
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "User not found.")
		return nil, false
	case err != nil:
		h.Log.Error("profile: load user", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "A server error occurred.")
		return nil, false
	}
	return u, true
}

// ServeProfile handles GET /profile.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := h.current(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, respond.Envelope{Outcome: notify.OK(""), Data: viewOf(u)})
}

type passwordChange struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
	Confirm string `json:"confirm_password"`
}

// HandleChangePassword handles POST /profile/password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in passwordChange
	if err := respond.Decode(r, &in, func(_ func(string) string, _ func(string) []string) {
		in = passwordChange{
			Current: r.PostForm.Get("current_password"),
			New:     r.PostForm.Get("new_password"),
			Confirm: r.PostForm.Get("confirm_password"),
		}
	}); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	u, ok := h.current(w, r)
	if !ok {
		return
	}

	// Verify current password
	if !userstore.PasswordMatches(u, in.Current) {
		respond.Error(w, http.StatusUnprocessableEntity, "Current password is incorrect.")
		return
	}
	if in.New != in.Confirm {
		respond.Error(w, http.StatusUnprocessableEntity, "New passwords do not match.")
		return
	}
	if userstore.PasswordMatches(u, in.New) {
		respond.Error(w, http.StatusUnprocessableEntity, "New password cannot be the same as your current password.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "password change")
	defer cancel()
	err := h.Users.SetPassword(ctx, u.ID, in.New)
	switch {
	case errors.Is(err, userstore.ErrPasswordTooShort):
		respond.Error(w, http.StatusUnprocessableEntity, "New password must be at least 8 characters.")
		return
	case err != nil:
		h.Log.Error("profile: update password", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to update password.")
		return
	}

	h.Audit.PasswordChanged(ctx, r)
	respond.JSON(w, http.StatusOK, respond.Envelope{Outcome: notify.OK("Password updated")})
}
