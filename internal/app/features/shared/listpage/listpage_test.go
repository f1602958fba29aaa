package listpage_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/listpage"
	"github.com/dalemusser/stratadmin/internal/app/store/storeutil"
	"github.com/dalemusser/stratadmin/internal/app/system/console"
	"github.com/dalemusser/stratadmin/internal/app/system/listctl"
	"github.com/dalemusser/stratadmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type fakeSource struct {
	rows  []row
	calls atomic.Int32
	last  atomic.Value
	down  atomic.Bool
}

func (f *fakeSource) Fetch(_ context.Context, q listctl.Query) (listctl.Result[row], error) {
	f.calls.Add(1)
	f.last.Store(q)
	if f.down.Load() {
		return listctl.Result[row]{}, errors.New("mongo unreachable")
	}
	var match []row
	for _, r := range f.rows {
		if q.SearchText == "" || strings.HasPrefix(r.Name, q.SearchText) {
			match = append(match, r)
		}
	}
	start := (q.Page - 1) * q.PageSize
	end := min(start+q.PageSize, len(match))
	if start > end {
		start = end
	}
	return listctl.Result[row]{Records: match[start:end], TotalRecords: int64(len(match)), Limit: q.PageSize}, nil
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	State   struct {
		Query        listctl.Query `json:"query"`
		Draft        listctl.Draft `json:"draft"`
		TotalRecords int64         `json:"total_records"`
		TotalPages   int           `json:"total_pages"`
		Records      []row         `json:"records"`
	} `json:"state"`
}

func setup(t *testing.T, n int) (http.Handler, *fakeSource, testutil.TestUser) {
	t.Helper()
	src := &fakeSource{}
	for i := 1; i <= n; i++ {
		name := "alpha"
		if i%2 == 0 {
			name = "beta"
		}
		src.rows = append(src.rows, row{ID: i, Name: name})
	}
	p := &listpage.Page[row]{
		Name:            "rows",
		Registry:        console.NewRegistry(time.Hour, nil),
		Source:          src,
		Compare:         listctl.ByKey(func(r row) int { return r.ID }),
		Filters:         []listctl.Filter{{Name: "status"}},
		DefaultPageSize: 25,
	}
	return p.Routes(), src, testutil.AdminUser()
}

func do(t *testing.T, h http.Handler, u testutil.TestUser, method, target string, form url.Values) (int, envelope) {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = testutil.NewFormRequest(method, target, form)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.WithUser(req, u))
	var env envelope
	rec.DecodeJSON(t, &env)
	return rec.Code, env
}

func TestListPage_PagingScenario(t *testing.T) {
	h, src, u := setup(t, 47)

	code, env := do(t, h, u, "GET", "/", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 47, env.State.TotalRecords)
	assert.Equal(t, 2, env.State.TotalPages)
	assert.Len(t, env.State.Records, 25)
	assert.Equal(t, listctl.Descending, env.State.Query.SortOrder)

	code, env = do(t, h, u, "POST", "/page/2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, env.State.Records, 22)
	assert.Equal(t, 2, env.State.Query.Page)

	code, env = do(t, h, u, "POST", "/page/3", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.False(t, env.Success)
	assert.Equal(t, 2, env.State.Query.Page)
	assert.EqualValues(t, 2, src.calls.Load(), "out of range page must not fetch")
}

func TestListPage_InitialFetchFailureIsReported(t *testing.T) {
	h, src, u := setup(t, 30)
	src.down.Store(true)

	code, env := do(t, h, u, "GET", "/", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.False(t, env.Success)
	assert.Equal(t, "mongo unreachable", env.Message)
	assert.Empty(t, env.State.Records)

	code, env = do(t, h, u, "GET", "/", nil)
	assert.Equal(t, http.StatusOK, code, "the failure is reported once")
	assert.True(t, env.Success)

	src.down.Store(false)
	code, env = do(t, h, u, "POST", "/reset", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 30, env.State.TotalRecords)
	assert.Len(t, env.State.Records, 25)
}

func TestListPage_DraftAppliedOnSearch(t *testing.T) {
	h, src, u := setup(t, 10)
	do(t, h, u, "GET", "/", nil)

	_, env := do(t, h, u, "PUT", "/search-text", url.Values{"value": {"  be<b>ta</b> "}})
	assert.Equal(t, "beta", env.State.Draft.SearchText)
	assert.Empty(t, env.State.Query.SearchText)
	assert.EqualValues(t, 1, src.calls.Load(), "editing the draft never fetches")

	_, env = do(t, h, u, "PUT", "/filters/status", url.Values{"value": {"all"}})
	assert.Equal(t, "all", env.State.Draft.Filters["status"])

	code, env := do(t, h, u, "POST", "/search", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 5, env.State.TotalRecords)
	sent := src.last.Load().(listctl.Query)
	assert.Equal(t, "beta", sent.SearchText)
	assert.NotContains(t, sent.Filters, "status", "sentinel filters are omitted")

	code, _ = do(t, h, u, "PUT", "/filters/nope", url.Values{"value": {"x"}})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListPage_SortToggleIsLocal(t *testing.T) {
	h, src, u := setup(t, 5)
	_, env := do(t, h, u, "GET", "/", nil)
	desc := env.State.Records

	_, env = do(t, h, u, "POST", "/sort/toggle", nil)
	assert.Equal(t, listctl.Ascending, env.State.Query.SortOrder)
	assert.Equal(t, 1, env.State.Records[0].ID)

	_, env = do(t, h, u, "POST", "/sort/toggle", nil)
	assert.Equal(t, desc, env.State.Records)
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestListPage_PerConsoleState(t *testing.T) {
	h, _, u := setup(t, 47)
	other := testutil.AdminUser()

	do(t, h, u, "GET", "/", nil)
	do(t, h, u, "POST", "/page/2", nil)

	_, env := do(t, h, other, "GET", "/", nil)
	assert.Equal(t, 1, env.State.Query.Page)

	_, env = do(t, h, u, "GET", "/", nil)
	assert.Equal(t, 2, env.State.Query.Page)

	code, _ := do(t, h, testutil.TestUser{ID: "x", Role: "admin"}, "GET", "/", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestListPage_PageSize(t *testing.T) {
	h, _, u := setup(t, 47)
	do(t, h, u, "GET", "/", nil)
	do(t, h, u, "POST", "/page/2", nil)

	code, env := do(t, h, u, "POST", "/page-size/50", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.State.Query.Page)
	assert.Equal(t, 1, env.State.TotalPages)
	assert.Len(t, env.State.Records, 47)

	code, env = do(t, h, u, "POST", "/page-size/7", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, 50, env.State.Query.PageSize)
}

func TestStoreSource(t *testing.T) {
	type filter struct{ search string }
	var gotPage storeutil.Page
	src := listpage.StoreSource(
		func(q listctl.Query) (filter, error) {
			if q.Filters["bad"] != "" {
				return filter{}, errors.New("bad filter")
			}
			return filter{search: q.SearchText}, nil
		},
		func(_ context.Context, f filter, p storeutil.Page) ([]row, error) {
			gotPage = p
			return []row{{ID: 1, Name: f.search}}, nil
		},
		func(_ context.Context, _ filter) (int64, error) { return 51, nil },
	)

	res, err := src.Fetch(context.Background(), listctl.Query{SearchText: "a", Page: 3, PageSize: 25, SortOrder: listctl.Ascending})
	require.NoError(t, err)
	assert.EqualValues(t, 51, res.TotalRecords)
	assert.Equal(t, 25, res.Limit)
	assert.Equal(t, storeutil.Page{Offset: 50, Limit: 25, Desc: true, Field: "_id"}, gotPage)

	_, err = src.Fetch(context.Background(), listctl.Query{Page: 3, PageSize: 25, SortOrder: listctl.Descending})
	require.NoError(t, err)
	assert.Equal(t, storeutil.Page{Offset: 50, Limit: 25, Desc: true, Field: "_id"}, gotPage,
		"sort order must not change which records a page holds")

	_, err = src.Fetch(context.Background(), listctl.Query{Filters: map[string]string{"bad": "1"}, Page: 1, PageSize: 10})
	assert.Error(t, err)

	failing := listpage.StoreSource(
		func(listctl.Query) (filter, error) { return filter{}, nil },
		func(context.Context, filter, storeutil.Page) ([]row, error) { return nil, nil },
		func(context.Context, filter) (int64, error) { return 0, errors.New("count down") },
	)
	_, err = failing.Fetch(context.Background(), listctl.Query{Page: 1, PageSize: 10})
	assert.EqualError(t, err, "count down")
}
