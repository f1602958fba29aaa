// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, logging and CORS; everything the console itself needs lives
// here and is passed to every lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: stratadmin-session)
	SessionDomain string // Cookie domain (blank means current host)
	SessionMaxAge time.Duration

	// List pages
	DefaultPageSize int // Initial page size of every list controller

	// Capabilities
	PermissionPolicy string // Path to a YAML role policy; blank uses the built-in one

	// Console state
	ConsoleIdleTTL   time.Duration // Idle list controllers older than this are evicted
	ConsoleSweepSpec string        // Cron spec of the eviction job
	ProgressBackend  string        // Where wizard progress lives: "session" or "mongo"

	// Login throttling
	LoginIPLimit    int
	LoginEmailLimit int
	LoginWindow     time.Duration

	// Store deadlines (zero keeps the package default)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// SuperAdmin bootstrap
	SuperAdminEmail string
}
