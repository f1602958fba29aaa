// internal/app/store/users/userstore.go
package userstore

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
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDuplicateEmail     = errors.New("a user with this email already exists")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactive           = errors.New("user is not active")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
)

// MinPasswordLength is enforced by SetPassword and Create.
const MinPasswordLength = 8

type Store struct {
	c    *mongo.Collection
	cost int
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users"), cost: bcrypt.DefaultCost}
}

// WithCost returns a copy of s that hashes with cost. Tests use
// bcrypt.MinCost.
func (s *Store) WithCost(cost int) *Store {
	return &Store{c: s.c, cost: cost}
}

// Filter narrows List and Count. Roles matches any of the listed roles and
// is ignored when Role is set.
type Filter struct {
	Search string
	Role   string
	Roles  []string
	Status string
}

func (f Filter) query() bson.M {
	q := bson.M{}
	storeutil.Search(q, f.Search, []string{"full_name_ci"}, "email")
	switch {
	case f.Role != "":
		q["role"] = f.Role
	case len(f.Roles) > 0:
		q["role"] = bson.M{"$in": f.Roles}
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	return q
}

// Create inserts u. A non-empty password is hashed with bcrypt.
func (s *Store) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	if password != "" {
		hash, err := s.hash(password)
		if err != nil {
			return models.User{}, err
		}
		u.PasswordHash = hash
	}
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	if u.Status == "" {
		u.Status = models.StatusActive
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate checks email and password. Unknown users and wrong
// passwords both report ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !PasswordMatches(u, password) {
		return u, ErrInvalidCredentials
	}
	if u.Status != models.StatusActive {
		return u, ErrInactive
	}
	return u, nil
}

// PasswordMatches reports whether password matches the stored hash of u.
func PasswordMatches(u *models.User, password string) bool {
	return u.PasswordHash != "" && bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// SetPassword replaces the password hash.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	return s.set(ctx, id, bson.M{"password_hash": hash})
}

// TouchLogin records a successful sign-in.
func (s *Store) TouchLogin(ctx context.Context, id primitive.ObjectID) error {
	return s.set(ctx, id, bson.M{"last_login_at": time.Now().UTC()})
}

// SetStatus changes the user status.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	return s.set(ctx, id, bson.M{"status": status})
}

// SetRole changes the user role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	return s.set(ctx, id, bson.M{"role": normalize.Role(role)})
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

func (s *Store) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// List returns one page of users ordered by full name.
func (s *Store) List(ctx context.Context, f Filter, p storeutil.Page) ([]models.User, error) {
	return storeutil.FindAll[models.User](ctx, s.c, f.query(), storeutil.FindOptions(p, "full_name_ci"))
}

// Count returns the number of users matching f.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}
