// internal/app/store/companies/companystore.go
package companystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/store/storeutil"
	"github.com/dalemusser/stratadmin/internal/app/system/normalize"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrDuplicateCompany = errors.New("a company with this name already exists")
	ErrNotFound         = errors.New("company not found")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("companies")}
}

// Filter narrows List and Count.
type Filter struct {
	Search     string
	Status     string
	DeviceType string
}

func (f Filter) query() bson.M {
	q := bson.M{}
	storeutil.Search(q, f.Search, []string{"name_ci"})
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.DeviceType != "" {
		q["device_type"] = f.DeviceType
	}
	return q
}

func (s *Store) Create(ctx context.Context, c models.Company) (models.Company, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.Name = normalize.Name(c.Name)
	c.NameCI = text.Fold(c.Name)
	if c.Status == "" {
		c.Status = models.StatusPending
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Company{}, ErrDuplicateCompany
		}
		return models.Company{}, err
	}
	return c, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Company, error) {
	var c models.Company
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return models.Company{}, ErrNotFound
	}
	return c, err
}

// UpdateProfile sets name and website.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, website string) error {
	name = normalize.Name(name)
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"website":    website,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateCompany
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSettings sets device type, status and website. Empty values are
// left unchanged.
func (s *Store) UpdateSettings(ctx context.Context, id primitive.ObjectID, deviceType, status, website string) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if deviceType != "" {
		set["device_type"] = deviceType
	}
	if status != "" {
		set["status"] = status
	}
	if website != "" {
		set["website"] = website
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of companies ordered by name.
func (s *Store) List(ctx context.Context, f Filter, p storeutil.Page) ([]models.Company, error) {
	return storeutil.FindAll[models.Company](ctx, s.c, f.query(), storeutil.FindOptions(p, "name_ci"))
}

// Count returns the number of companies matching f.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}
