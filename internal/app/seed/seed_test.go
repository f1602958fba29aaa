package seed_test

import (
	"testing"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/seed"
	userstore "github.com/dalemusser/stratadmin/internal/app/store/users"
	"github.com/dalemusser/stratadmin/internal/app/system/indexes"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"github.com/dalemusser/stratadmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newSeeder(t *testing.T) (*seed.Seeder, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	require.NoError(t, indexes.EnsureAll(ctx, db, zap.NewNop()))

	s := seed.New(db, zap.NewNop())
	s.Users = s.Users.WithCost(bcrypt.MinCost)
	return s, testutil.NewFixtures(t, db)
}

func TestSuperAdmin(t *testing.T) {
	s, _ := newSeeder(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := s.SuperAdmin(ctx, "Root", "root@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, u.Role)

	_, err = s.Users.Authenticate(ctx, "root@example.com", "password123")
	require.NoError(t, err)

	// Re-running re-keys the same user.
	again, err := s.SuperAdmin(ctx, "Root", "ROOT@example.com", "newpassword1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	_, err = s.Users.Authenticate(ctx, "root@example.com", "password123")
	assert.ErrorIs(t, err, userstore.ErrInvalidCredentials)
	_, err = s.Users.Authenticate(ctx, "root@example.com", "newpassword1")
	assert.NoError(t, err)
}

func TestSuperAdmin_PromotesExisting(t *testing.T) {
	s, fx := newSeeder(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	existing := fx.CreateUser(ctx, "Sam Support", "sam@example.com", models.RoleSupport)

	u, err := s.SuperAdmin(ctx, "ignored", "sam@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, u.ID)
	assert.Equal(t, models.RoleSuperAdmin, u.Role)
	assert.Equal(t, "Sam Support", u.FullName)
}

func TestDemo(t *testing.T) {
	s, fx := newSeeder(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	opts := seed.DemoOptions{Companies: 3, AccountsPerCompany: 4, Feedback: 10, StaffPassword: "password123", Now: now}

	rep, err := s.Demo(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"modules":   4,
		"users":     2,
		"companies": 3,
		"accounts":  12,
		"feedback":  10,
	}, rep.Created)
	assert.Empty(t, rep.Skipped)

	db := fx.DB()
	inactive, err := db.Collection("accounts").CountDocuments(ctx, bson.M{"status": models.StatusInactive})
	require.NoError(t, err)
	assert.EqualValues(t, 3, inactive)

	withModules, err := db.Collection("accounts").CountDocuments(ctx, bson.M{"module_ids.0": bson.M{"$exists": true}})
	require.NoError(t, err)
	assert.EqualValues(t, 12, withModules)

	oldest := now.Add(-54 * time.Hour)
	n, err := db.Collection("feedback").CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": oldest, "$lte": now}})
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)

	// A second run only adds feedback.
	rep, err = s.Demo(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"feedback": 10}, rep.Created)
	assert.Equal(t, map[string]int{"modules": 4, "users": 2, "companies": 3}, rep.Skipped)
}
