// internal/domain/models/account.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address is the postal address captured by the second account wizard step.
type Address struct {
	Line1      string `bson:"line1,omitempty" json:"line1,omitempty"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city,omitempty" json:"city,omitempty"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postal_code,omitempty" json:"postal_code,omitempty"`
	Country    string `bson:"country,omitempty" json:"country,omitempty"`
}

// Account is a customer account.
type Account struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string               `bson:"name" json:"name"`
	NameCI    string               `bson:"name_ci" json:"-"`
	Email     string               `bson:"email" json:"email"`
	Phone     string               `bson:"phone,omitempty" json:"phone,omitempty"`
	Status    string               `bson:"status" json:"status"`
	CompanyID *primitive.ObjectID  `bson:"company_id,omitempty" json:"company_id,omitempty"`
	Address   Address              `bson:"address" json:"address"`
	ModuleIDs []primitive.ObjectID `bson:"module_ids,omitempty" json:"module_ids,omitempty"`
	CreatedAt time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at" json:"updated_at"`
}
