// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/dalemusser/stratadmin/internal/app/store/audit"
	"github.com/dalemusser/stratadmin/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category.
const (
	All = "all" // MongoDB and zap
	DB  = "db"
	Log = "log"
	Off = "off"
)

// Config holds the destination per event category.
type Config struct {
	Auth  string
	Admin string
}

// ValidDestination reports whether s is one of All, DB, Log or Off.
func ValidDestination(s string) bool {
	switch s {
	case All, DB, Log, Off:
		return true
	}
	return false
}

// Logger writes audit events to the audit store and to zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.EntityID != "" {
		fields = append(fields, zap.String("entity", event.EntityType+":"+event.EntityID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records event according to the category's destination. A nil
// Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := All
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == Off {
		return
	}

	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if setting == All || setting == DB {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func requestEvent(r *http.Request, category, eventType string) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	}
}

// actorEvent fills the actor from the signed-in user of r.
func actorEvent(r *http.Request, category, eventType string) audit.Event {
	e := requestEvent(r, category, eventType)
	if u, ok := auth.CurrentUser(r); ok {
		if id, err := primitive.ObjectIDFromHex(u.ID); err == nil {
			e.ActorID = &id
		}
		e.ActorName = u.Name
	}
	return e
}

// --- Authentication Events ---

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, name, email string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginSuccess)
	e.ActorID = &userID
	e.ActorName = name
	e.Details = map[string]string{"login_id": email}
	l.Log(ctx, e)
}

// LoginFailedCredentials covers both unknown emails and wrong passwords.
func (l *Logger) LoginFailedCredentials(ctx context.Context, r *http.Request, email string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailedCredentials)
	e.Success = false
	e.FailureReason = "invalid credentials"
	e.Details = map[string]string{"login_id": email}
	l.Log(ctx, e)
}

func (l *Logger) LoginFailedInactive(ctx context.Context, r *http.Request, userID primitive.ObjectID, name, email string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailedUserInactive)
	e.ActorID = &userID
	e.ActorName = name
	e.Success = false
	e.FailureReason = "user inactive"
	e.Details = map[string]string{"login_id": email}
	l.Log(ctx, e)
}

func (l *Logger) Logout(ctx context.Context, r *http.Request) {
	l.Log(ctx, actorEvent(r, audit.CategoryAuth, audit.EventLogout))
}

func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request) {
	l.Log(ctx, actorEvent(r, audit.CategoryAuth, audit.EventPasswordChanged))
}

// --- Admin Events ---

func (l *Logger) admin(ctx context.Context, r *http.Request, eventType, entityType string, id primitive.ObjectID, details map[string]string) {
	e := actorEvent(r, audit.CategoryAdmin, eventType)
	e.EntityType = entityType
	e.EntityID = id.Hex()
	e.Details = details
	l.Log(ctx, e)
}

func (l *Logger) AccountCreated(ctx context.Context, r *http.Request, id primitive.ObjectID, name string) {
	l.admin(ctx, r, audit.EventAccountCreated, "account", id, map[string]string{"name": name})
}

// AccountUpdated records which wizard step changed the account.
func (l *Logger) AccountUpdated(ctx context.Context, r *http.Request, id primitive.ObjectID, step string) {
	l.admin(ctx, r, audit.EventAccountUpdated, "account", id, map[string]string{"step": step})
}

func (l *Logger) CompanyCreated(ctx context.Context, r *http.Request, id primitive.ObjectID, name string) {
	l.admin(ctx, r, audit.EventCompanyCreated, "company", id, map[string]string{"name": name})
}

func (l *Logger) CompanyUpdated(ctx context.Context, r *http.Request, id primitive.ObjectID, step string) {
	l.admin(ctx, r, audit.EventCompanyUpdated, "company", id, map[string]string{"step": step})
}

// WizardAbandoned records a wizard given up before completion. entityID
// is empty when nothing was created yet.
func (l *Logger) WizardAbandoned(ctx context.Context, r *http.Request, flow, entityID string) {
	e := actorEvent(r, audit.CategoryAdmin, audit.EventWizardAbandoned)
	e.EntityType = flow
	e.EntityID = entityID
	l.Log(ctx, e)
}

// StatusChanged records a status change of any console record.
func (l *Logger) StatusChanged(ctx context.Context, r *http.Request, entityType string, id primitive.ObjectID, status string) {
	l.admin(ctx, r, audit.EventStatusChanged, entityType, id, map[string]string{"status": status})
}
