// internal/app/store/modules/modulestore.go
package modulestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/store/storeutil"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrDuplicateKey = errors.New("a module with this key already exists")
	ErrNotFound     = errors.New("module not found")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("modules")}
}

type Filter struct {
	Search string
	Status string
}

func (f Filter) query() bson.M {
	q := bson.M{}
	storeutil.Search(q, f.Search, []string{"name_ci"}, "key")
	if f.Status != "" {
		q["status"] = f.Status
	}
	return q
}

func (s *Store) Create(ctx context.Context, m models.Module) (models.Module, error) {
	now := time.Now().UTC()
	m.ID = primitive.NewObjectID()
	m.Key = strings.ToLower(strings.TrimSpace(m.Key))
	m.NameCI = text.Fold(m.Name)
	if m.Status == "" {
		m.Status = models.StatusActive
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Module{}, ErrDuplicateKey
		}
		return models.Module{}, err
	}
	return m, nil
}

// GetByIDs loads the modules with the given ids, ignoring unknown ids.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Module, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return storeutil.FindAll[models.Module](ctx, s.c, bson.M{"_id": bson.M{"$in": ids}})
}

// ListActive returns every active module ordered by name.
func (s *Store) ListActive(ctx context.Context) ([]models.Module, error) {
	return storeutil.FindAll[models.Module](ctx, s.c,
		bson.M{"status": models.StatusActive},
		options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
}

func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, f Filter, p storeutil.Page) ([]models.Module, error) {
	return storeutil.FindAll[models.Module](ctx, s.c, f.query(), storeutil.FindOptions(p, "name_ci"))
}

func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}
