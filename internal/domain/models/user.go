// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles. Admins are users with RoleAdmin or RoleSuperAdmin.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleSupport    = "support"
	RoleUser       = "user"
)

// User is a console operator or a customer-side user.
type User struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FullName     string              `bson:"full_name" json:"full_name"`
	FullNameCI   string              `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string              `bson:"email" json:"email"`
	PasswordHash string              `bson:"password_hash,omitempty" json:"-"`
	Role         string              `bson:"role" json:"role"`
	Status       string              `bson:"status" json:"status"`
	AccountID    *primitive.ObjectID `bson:"account_id,omitempty" json:"account_id,omitempty"`
	LastLoginAt  *time.Time          `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user manages the console.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}
