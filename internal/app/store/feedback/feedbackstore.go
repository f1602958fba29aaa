// internal/app/store/feedback/feedbackstore.go
package feedbackstore

import (
	"context"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/store/storeutil"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("feedback")}
}

// Filter narrows List and Count. From and To bound created_at.
type Filter struct {
	Search     string
	DeviceType string
	From       *time.Time
	To         *time.Time
}

func (f Filter) query() bson.M {
	q := bson.M{}
	storeutil.Search(q, f.Search, []string{"user_name_ci"})
	if f.DeviceType != "" {
		q["device_type"] = f.DeviceType
	}
	storeutil.DateRange(q, "created_at", f.From, f.To)
	return q
}

func (s *Store) Create(ctx context.Context, fb models.Feedback) (models.Feedback, error) {
	fb.ID = primitive.NewObjectID()
	fb.UserNameCI = text.Fold(fb.UserName)
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, fb); err != nil {
		return models.Feedback{}, err
	}
	return fb, nil
}

// List returns one page of feedback ordered by submission time.
func (s *Store) List(ctx context.Context, f Filter, p storeutil.Page) ([]models.Feedback, error) {
	return storeutil.FindAll[models.Feedback](ctx, s.c, f.query(), storeutil.FindOptions(p, "created_at"))
}

func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}
