// internal/domain/models/feedback.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Feedback is a message submitted from a client app.
type Feedback struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	AccountID  *primitive.ObjectID `bson:"account_id,omitempty" json:"account_id,omitempty"`
	UserName   string              `bson:"user_name" json:"user_name"`
	UserNameCI string              `bson:"user_name_ci" json:"-"`
	Message    string              `bson:"message" json:"message"`
	DeviceType string              `bson:"device_type" json:"device_type"`
	AppVersion string              `bson:"app_version,omitempty" json:"app_version,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
}
