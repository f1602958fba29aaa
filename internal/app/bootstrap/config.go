// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/system/auditlog"
	"github.com/dalemusser/stratadmin/internal/app/system/paging"
	"github.com/dalemusser/stratadmin/internal/app/system/permissions"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Progress backends.
const (
	ProgressSession = "session"
	ProgressMongo   = "mongo"
)

// appConfigKeys defines the configuration keys for stratadmin.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: STRATADMIN_MONGO_URI, STRATADMIN_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratadmin", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "stratadmin-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "12h", Desc: "Session cookie lifetime"},

	{Name: "default_page_size", Default: paging.DefaultPageSize, Desc: "Initial page size of list pages (10, 25, 50, 75 or 100)"},
	{Name: "permission_policy", Default: "", Desc: "Path to a YAML role/capability policy (blank uses the built-in policy)"},

	// Console state
	{Name: "console_idle_ttl", Default: "30m", Desc: "Evict list controllers idle longer than this"},
	{Name: "console_sweep_spec", Default: "@every 1m", Desc: "Cron spec of the idle controller sweep"},
	{Name: "progress_backend", Default: ProgressSession, Desc: "Wizard progress storage: 'session' or 'mongo'"},

	// Login throttling
	{Name: "login_ip_limit", Default: 20, Desc: "Login attempts allowed per client IP per window"},
	{Name: "login_email_limit", Default: 5, Desc: "Login attempts allowed per email per window"},
	{Name: "login_window", Default: "1m", Desc: "Login throttling window"},

	// Store deadlines
	{Name: "timeout_short", Default: "0s", Desc: "Deadline of single-document store calls (0 keeps the default)"},
	{Name: "timeout_medium", Default: "0s", Desc: "Deadline of list fetches (0 keeps the default)"},
	{Name: "timeout_long", Default: "0s", Desc: "Deadline of wizard steps (0 keeps the default)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: auditlog.All, Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: auditlog.All, Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// SuperAdmin bootstrap
	{Name: "superadmin_email", Default: "", Desc: "Email of a user promoted to superadmin on startup"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, STRATADMIN_* for app) and
// command-line flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "STRATADMIN", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 12*time.Hour),

		DefaultPageSize:  appValues.Int("default_page_size"),
		PermissionPolicy: appValues.String("permission_policy"),

		ConsoleIdleTTL:   appValues.Duration("console_idle_ttl", 30*time.Minute),
		ConsoleSweepSpec: appValues.String("console_sweep_spec"),
		ProgressBackend:  appValues.String("progress_backend"),

		LoginIPLimit:    appValues.Int("login_ip_limit"),
		LoginEmailLimit: appValues.Int("login_email_limit"),
		LoginWindow:     appValues.Duration("login_window", time.Minute),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		SuperAdminEmail: appValues.String("superadmin_email"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Everything that can be checked without a database connection is checked
// here so a bad deploy fails before it connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}
	if !paging.ValidPageSize(appCfg.DefaultPageSize) {
		return fmt.Errorf("default_page_size %d is not one of %v", appCfg.DefaultPageSize, paging.PageSizes)
	}
	switch appCfg.ProgressBackend {
	case ProgressSession, ProgressMongo:
	default:
		return fmt.Errorf("progress_backend must be %q or %q, got %q", ProgressSession, ProgressMongo, appCfg.ProgressBackend)
	}
	if _, err := cron.ParseStandard(appCfg.ConsoleSweepSpec); err != nil {
		return fmt.Errorf("invalid console_sweep_spec %q: %w", appCfg.ConsoleSweepSpec, err)
	}
	if appCfg.ConsoleIdleTTL <= 0 {
		return fmt.Errorf("console_idle_ttl must be positive")
	}
	if appCfg.LoginIPLimit <= 0 || appCfg.LoginEmailLimit <= 0 || appCfg.LoginWindow <= 0 {
		return fmt.Errorf("login_ip_limit, login_email_limit and login_window must be positive")
	}
	for name, dest := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_admin": appCfg.AuditLogAdmin} {
		if !auditlog.ValidDestination(dest) {
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", name, dest)
		}
	}
	if _, err := permissions.LoadPolicy(appCfg.PermissionPolicy); err != nil {
		return err
	}
	return nil
}
