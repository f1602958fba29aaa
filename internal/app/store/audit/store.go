// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/store/storeutil"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth  = "auth"
	CategoryAdmin = "admin"
)

// Auth event types
const (
	EventLoginSuccess            = "login_success"
	EventLoginFailedCredentials  = "login_failed_credentials"
	EventLoginFailedUserInactive = "login_failed_user_inactive"
	EventLogout                  = "logout"
	EventPasswordChanged         = "password_changed"
)

// Admin event types
const (
	EventAccountCreated  = "account_created"
	EventAccountUpdated  = "account_updated"
	EventCompanyCreated  = "company_created"
	EventCompanyUpdated  = "company_updated"
	EventWizardAbandoned = "wizard_abandoned"
	EventStatusChanged   = "status_changed"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`

	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"event_type"`

	// Who
	ActorID     *primitive.ObjectID `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	ActorName   string              `bson:"actor_name,omitempty" json:"actor_name,omitempty"`
	ActorNameCI string              `bson:"actor_name_ci,omitempty" json:"-"`

	// What
	EntityType string `bson:"entity_type,omitempty" json:"entity_type,omitempty"`
	EntityID   string `bson:"entity_id,omitempty" json:"entity_id,omitempty"`

	IP        string `bson:"ip" json:"ip"`
	UserAgent string `bson:"user_agent,omitempty" json:"user_agent,omitempty"`

	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	Search    string // actor name prefix
	ActorID   *primitive.ObjectID
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
}

func (f QueryFilter) query() bson.M {
	q := bson.M{}
	storeutil.Search(q, f.Search, []string{"actor_name_ci"})
	if f.ActorID != nil {
		q["actor_id"] = f.ActorID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	storeutil.DateRange(q, "timestamp", f.StartTime, f.EndTime)
	return q
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// EnsureIndexes creates necessary indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{
			{Key: "category", Value: 1},
			{Key: "event_type", Value: 1},
			{Key: "timestamp", Value: -1},
		}},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ActorName != "" {
		event.ActorNameCI = text.Fold(event.ActorName)
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query retrieves one page of events matching filter, newest first unless
// p.Desc is false.
func (s *Store) Query(ctx context.Context, filter QueryFilter, p storeutil.Page) ([]Event, error) {
	return storeutil.FindAll[Event](ctx, s.c, filter.query(), storeutil.FindOptions(p, "timestamp"))
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.query())
}

// GetRecent retrieves the most recent audit events.
func (s *Store) GetRecent(ctx context.Context, limit int64) ([]Event, error) {
	return storeutil.FindAll[Event](ctx, s.c, bson.M{},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit))
}
