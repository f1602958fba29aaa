// internal/app/store/accounts/accountstore.go
package accountstore

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
	ErrDuplicateEmail = errors.New("an account with this email already exists")
	ErrNotFound       = errors.New("account not found")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("accounts")}
}

// Filter narrows List and Count. Empty fields do not filter.
type Filter struct {
	Search    string
	Status    string
	CompanyID *primitive.ObjectID
}

func (f Filter) query() bson.M {
	q := bson.M{}
	storeutil.Search(q, f.Search, []string{"name_ci"}, "email")
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.CompanyID != nil {
		q["company_id"] = *f.CompanyID
	}
	return q
}

func (s *Store) Create(ctx context.Context, a models.Account) (models.Account, error) {
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	a.Name = normalize.Name(a.Name)
	a.NameCI = text.Fold(a.Name)
	a.Email = normalize.Email(a.Email)
	if a.Status == "" {
		a.Status = models.StatusPending
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Account{}, ErrDuplicateEmail
		}
		return models.Account{}, err
	}
	return a, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Account, error) {
	var a models.Account
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return models.Account{}, ErrNotFound
	}
	return a, err
}

// UpdateDetails sets name, email and company. A nil companyID removes the
// company link.
func (s *Store) UpdateDetails(ctx context.Context, id primitive.ObjectID, name, email string, companyID *primitive.ObjectID) error {
	name = normalize.Name(name)
	set := bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"email":      normalize.Email(email),
		"updated_at": time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if companyID != nil {
		set["company_id"] = *companyID
	} else {
		update["$unset"] = bson.M{"company_id": ""}
	}
	res, err := s.c.UpdateByID(ctx, id, update)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateContact replaces the address and phone.
func (s *Store) UpdateContact(ctx context.Context, id primitive.ObjectID, addr models.Address, phone string) error {
	return s.set(ctx, id, bson.M{"address": addr, "phone": phone})
}

// SetModules replaces the enabled modules. Accounts with modules become
// active.
func (s *Store) SetModules(ctx context.Context, id primitive.ObjectID, moduleIDs []primitive.ObjectID) error {
	set := bson.M{"module_ids": moduleIDs}
	if len(moduleIDs) > 0 {
		set["status"] = models.StatusActive
	}
	return s.set(ctx, id, set)
}

// SetStatus changes the account status.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	return s.set(ctx, id, bson.M{"status": status})
}

func (s *Store) set(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of accounts ordered by name.
func (s *Store) List(ctx context.Context, f Filter, p storeutil.Page) ([]models.Account, error) {
	return storeutil.FindAll[models.Account](ctx, s.c, f.query(), storeutil.FindOptions(p, "name_ci"))
}

// Count returns the number of accounts matching f.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}
