// internal/domain/models/status.go
package models

// Record statuses shared by accounts, companies, users and modules.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending:
		return true
	}
	return false
}

// Device types reported by companies and feedback.
const (
	DeviceIOS     = "ios"
	DeviceAndroid = "android"
	DeviceWeb     = "web"
)

// ValidDeviceType reports whether d is a known device type.
func ValidDeviceType(d string) bool {
	switch d {
	case DeviceIOS, DeviceAndroid, DeviceWeb:
		return true
	}
	return false
}
