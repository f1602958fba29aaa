// Package progress provides the durable key/value stores that wizards use
// to resume after a page reload.
//
//   - Session keeps progress in the signed session cookie of the request.
//   - MongoStore keeps progress server-side, scoped by console session id.
//   - Memory is process-local and intended for tests.
package progress

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/system/wizard"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const valuePrefix = "progress:"

// Session stores progress in a gorilla session for the lifetime of one
// request. Construct a new one per request.
type Session struct {
	store sessions.Store
	name  string
	w     http.ResponseWriter
	r     *http.Request
}

// NewSession binds a session-backed store to a request.
func NewSession(store sessions.Store, name string, w http.ResponseWriter, r *http.Request) *Session {
	return &Session{store: store, name: name, w: w, r: r}
}

func (s *Session) session() (*sessions.Session, error) {
	sess, err := s.store.Get(s.r, s.name)
	if err != nil {
		return nil, fmt.Errorf("progress: load session: %w", err)
	}
	return sess, nil
}

// Get implements wizard.ProgressStore.
func (s *Session) Get(_ context.Context, key string) (string, bool, error) {
	sess, err := s.session()
	if err != nil {
		return "", false, err
	}
	v, ok := sess.Values[valuePrefix+key].(string)
	return v, ok, nil
}

// Set implements wizard.ProgressStore.
func (s *Session) Set(_ context.Context, key, value string) error {
	sess, err := s.session()
	if err != nil {
		return err
	}
	sess.Values[valuePrefix+key] = value
	if err := sess.Save(s.r, s.w); err != nil {
		return fmt.Errorf("progress: save session: %w", err)
	}
	return nil
}

// Remove implements wizard.ProgressStore.
func (s *Session) Remove(_ context.Context, key string) error {
	sess, err := s.session()
	if err != nil {
		return err
	}
	if _, ok := sess.Values[valuePrefix+key]; !ok {
		return nil
	}
	delete(sess.Values, valuePrefix+key)
	if err := sess.Save(s.r, s.w); err != nil {
		return fmt.Errorf("progress: save session: %w", err)
	}
	return nil
}

// Retention is how long an untouched MongoStore entry is kept.
const Retention = 7 * 24 * time.Hour

type entry struct {
	Scope     string    `bson:"scope"`
	Key       string    `bson:"key"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps wizard progress in the wizard_progress collection.
type MongoStore struct {
	c *mongo.Collection
}

// NewMongoStore creates a MongoStore.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{c: db.Collection("wizard_progress")}
}

// EnsureIndexes creates the unique (scope, key) index and the TTL index
// that expires abandoned progress.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "scope", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(Retention / time.Second)),
		},
	})
	return err
}

// For returns a ProgressStore scoped to one user.
func (s *MongoStore) For(scope string) wizard.ProgressStore {
	return &mongoScope{c: s.c, scope: scope}
}

type mongoScope struct {
	c     *mongo.Collection
	scope string
}

func (m *mongoScope) Get(ctx context.Context, key string) (string, bool, error) {
	var e entry
	err := m.c.FindOne(ctx, bson.M{"scope": m.scope, "key": key}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("progress: get %q: %w", key, err)
	}
	return e.Value, true, nil
}

func (m *mongoScope) Set(ctx context.Context, key, value string) error {
	_, err := m.c.UpdateOne(ctx,
		bson.M{"scope": m.scope, "key": key},
		bson.M{"$set": bson.M{"value": value, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("progress: set %q: %w", key, err)
	}
	return nil
}

func (m *mongoScope) Remove(ctx context.Context, key string) error {
	if _, err := m.c.DeleteOne(ctx, bson.M{"scope": m.scope, "key": key}); err != nil {
		return fmt.Errorf("progress: remove %q: %w", key, err)
	}
	return nil
}

// Memory is an in-process ProgressStore. When Err is set every call fails
// with it.
type Memory struct {
	mu  sync.Mutex
	m   map[string]string
	Err error
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{m: map[string]string{}}
}

// Get implements wizard.ProgressStore.
func (s *Memory) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", false, s.Err
	}
	v, ok := s.m[key]
	return v, ok, nil
}

// Set implements wizard.ProgressStore.
func (s *Memory) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.m == nil {
		s.m = map[string]string{}
	}
	s.m[key] = value
	return nil
}

// Remove implements wizard.ProgressStore.
func (s *Memory) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.m, key)
	return nil
}

// Len returns the number of stored keys.
func (s *Memory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// SetErr switches failure injection on or off.
func (s *Memory) SetErr(err error) {
	s.mu.Lock()
	s.Err = err
	s.mu.Unlock()
}
