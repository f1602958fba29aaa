// internal/app/system/limits/limits.go
package limits

// Request body size limits for the console API.
const (
	// MaxRequestBody bounds list, wizard and login submissions.
	MaxRequestBody = 1 << 20 // 1 MB

	// MaxRecentEvents caps the audit log "recent" feed.
	MaxRecentEvents = 100
)
