package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/stratadmin/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts test documents directly, bypassing store validation.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("insert %s fixture: %v", coll, err)
	}
}

func (f *Fixtures) CreateCompany(ctx context.Context, name, deviceType string) models.Company {
	f.t.Helper()
	now := time.Now().UTC()
	c := models.Company{
		ID:         primitive.NewObjectID(),
		Name:       name,
		NameCI:     text.Fold(name),
		DeviceType: deviceType,
		Status:     models.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "companies", c)
	return c
}

// CreateAccount inserts an account, optionally attached to a company.
func (f *Fixtures) CreateAccount(ctx context.Context, name, email, status string, companyID *primitive.ObjectID) models.Account {
	f.t.Helper()
	now := time.Now().UTC()
	a := models.Account{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Email:     email,
		Status:    status,
		CompanyID: companyID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "accounts", a)
	return a
}

func (f *Fixtures) CreateModule(ctx context.Context, key, name string) models.Module {
	f.t.Helper()
	now := time.Now().UTC()
	m := models.Module{
		ID:        primitive.NewObjectID(),
		Key:       key,
		Name:      name,
		NameCI:    text.Fold(name),
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "modules", m)
	return m
}

// CreateUser inserts a user without a password hash.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   name,
		FullNameCI: text.Fold(name),
		Email:      email,
		Role:       role,
		Status:     models.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "users", u)
	return u
}

func (f *Fixtures) CreateFeedback(ctx context.Context, userName, message, deviceType string, at time.Time) models.Feedback {
	f.t.Helper()
	fb := models.Feedback{
		ID:         primitive.NewObjectID(),
		UserName:   userName,
		UserNameCI: text.Fold(userName),
		Message:    message,
		DeviceType: deviceType,
		CreatedAt:  at,
	}
	f.insert(ctx, "feedback", fb)
	return fb
}
