package progress_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/stratadmin/internal/app/system/progress"
	"github.com/dalemusser/stratadmin/internal/app/system/wizard"
	"github.com/dalemusser/stratadmin/internal/testutil"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ wizard.ProgressStore = (*progress.Session)(nil)
	_ wizard.ProgressStore = (*progress.Memory)(nil)
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := progress.NewMemory()

	_, ok, err := m.Get(ctx, "w.step")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "w.step", "2"))
	v, ok, err := m.Get(ctx, "w.step")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	boom := errors.New("boom")
	m.SetErr(boom)
	_, _, err = m.Get(ctx, "w.step")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, m.Remove(ctx, "w.step"), boom)

	m.SetErr(nil)
	require.NoError(t, m.Remove(ctx, "w.step"))
	assert.Equal(t, 0, m.Len())
}

func TestSession_SurvivesReload(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/accounts/new/steps/1", nil)
	s := progress.NewSession(store, "stratadmin", w, r)
	require.NoError(t, s.Set(ctx, "accountWizard.step", "2"))
	require.NoError(t, s.Set(ctx, "accountWizard.entityId", "7"))

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	r2 := httptest.NewRequest(http.MethodGet, "/accounts/new", nil)
	r2.AddCookie(cookies[len(cookies)-1])
	w2 := httptest.NewRecorder()
	s2 := progress.NewSession(store, "stratadmin", w2, r2)

	step, ok, err := s2.Get(ctx, "accountWizard.step")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", step)

	id, ok, err := s2.Get(ctx, "accountWizard.entityId")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "7", id)

	require.NoError(t, s2.Remove(ctx, "accountWizard.step"))
	_, ok, err = s2.Get(ctx, "accountWizard.step")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_DrivesWizard(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	flow, err := wizard.NewRegistry().Define("companyWizard", "1", "2")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	c, err := wizard.New(flow, progress.NewSession(store, "stratadmin", w, r))
	require.NoError(t, err)
	c.ResumeOrStart(ctx)
	c.OnEntityCreated(ctx, "c-1")
	c.Advance(ctx)

	cookies := w.Result().Cookies()
	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(cookies[len(cookies)-1])
	c2, err := wizard.New(flow, progress.NewSession(store, "stratadmin", httptest.NewRecorder(), r2))
	require.NoError(t, err)

	assert.Equal(t, "2", c2.ResumeOrStart(ctx))
}

func TestMongoStore_ScopesAreIsolated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ms := progress.NewMongoStore(db)
	require.NoError(t, ms.EnsureIndexes(ctx))

	a := ms.For("console-a")
	b := ms.For("console-b")

	require.NoError(t, a.Set(ctx, "accountWizard.step", "3"))
	require.NoError(t, a.Set(ctx, "accountWizard.step", "2"))

	v, ok, err := a.Get(ctx, "accountWizard.step")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	_, ok, err = b.Get(ctx, "accountWizard.step")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Remove(ctx, "accountWizard.step"))
	_, ok, err = a.Get(ctx, "accountWizard.step")
	require.NoError(t, err)
	assert.False(t, ok)
}
