package listctl_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/system/listctl"
	"github.com/dalemusser/stratadmin/internal/app/system/notify"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type row struct {
	ID   int
	Name string
}

// pagedSource serves one page per request from a fixed data set of n rows
// with ids 1..n, the way the REST backend does.
type pagedSource struct {
	mu      sync.Mutex
	n       int
	calls   int
	queries []listctl.Query
	err     error
}

func (s *pagedSource) Fetch(_ context.Context, q listctl.Query) (listctl.Result[row], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.queries = append(s.queries, q.Clone())
	if s.err != nil {
		return listctl.Result[row]{}, s.err
	}
	start := (q.Page - 1) * q.PageSize
	end := start + q.PageSize
	if end > s.n {
		end = s.n
	}
	var recs []row
	for i := start; i < end; i++ {
		recs = append(recs, row{ID: i + 1})
	}
	return listctl.Result[row]{Records: recs, TotalRecords: int64(s.n), Limit: q.PageSize}, nil
}

func (s *pagedSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *pagedSource) last() listctl.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[len(s.queries)-1]
}

var byID = listctl.ByKey(func(r row) int { return r.ID })

var statusRole = []listctl.Filter{
	{Name: "status"},
	{Name: "role", Sentinel: "none"},
}

func newController(t *testing.T, src listctl.DataSource[row], opts ...func(*listctl.Options[row])) *listctl.Controller[row] {
	t.Helper()
	o := listctl.Options[row]{
		Name:    "test",
		Source:  src,
		Compare: byID,
		Filters: statusRole,
		Log:     zap.NewNop(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	c, err := listctl.New(o)
	require.NoError(t, err)
	return c
}

func ids(rows []row) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestNew_RequiresSourceAndComparator(t *testing.T) {
	_, err := listctl.New(listctl.Options[row]{Compare: byID})
	assert.ErrorIs(t, err, listctl.ErrNoSource)

	_, err = listctl.New(listctl.Options[row]{Source: &pagedSource{}})
	assert.ErrorIs(t, err, listctl.ErrNoComparator)
}

func TestInitialize_DefaultsAndFirstFetch(t *testing.T) {
	src := &pagedSource{n: 30}
	c := newController(t, src)

	out := c.Initialize(context.Background(), 25, map[string]string{"status": "active"})
	require.True(t, out.Success)
	assert.Equal(t, 1, src.callCount())

	q := c.Query()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 25, q.PageSize)
	assert.Equal(t, "", q.SearchText)
	assert.Equal(t, listctl.Descending, q.SortOrder)
	assert.Equal(t, "active", q.Filters["status"])
	assert.Equal(t, "none", q.Filters["role"])

	sent := src.last()
	assert.Equal(t, map[string]string{"status": "active"}, sent.Filters)
}

func TestInitialize_InvalidPageSizeFallsBack(t *testing.T) {
	c := newController(t, &pagedSource{n: 5})
	c.Initialize(context.Background(), 33, nil)
	assert.Equal(t, 10, c.Query().PageSize)
}

func TestSetSearchTextAndFilter_DoNotFetch(t *testing.T) {
	src := &pagedSource{n: 5}
	c := newController(t, src)
	c.Initialize(context.Background(), 10, nil)

	c.SetSearchText("ali")
	c.SetFilter("status", "active")

	assert.Equal(t, 1, src.callCount())
	st := c.Snapshot()
	assert.Equal(t, "ali", st.Draft.SearchText)
	assert.Equal(t, "", st.Query.SearchText, "draft is not applied until Search")
}

func TestSearch_AppliesDraftAndReturnsToFirstPage(t *testing.T) {
	src := &pagedSource{n: 100}
	c := newController(t, src)
	ctx := context.Background()
	c.Initialize(ctx, 10, nil)
	require.True(t, c.GoToPage(ctx, 3).Success)
	require.Equal(t, 3, c.Query().Page)

	c.SetSearchText("  bob ")
	c.SetFilter("status", "deactive")
	out := c.Search(ctx)
	require.True(t, out.Success)

	q := c.Query()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 10, q.PageSize)
	assert.Equal(t, "  bob ", q.SearchText)

	sent := src.last()
	assert.Equal(t, "bob", sent.SearchText)
	assert.Equal(t, 1, sent.Page)
	assert.Equal(t, map[string]string{"status": "deactive"}, sent.Filters)
	assert.False(t, c.Snapshot().SearchPending)
}

func TestSearch_OmitsSentinelFilters(t *testing.T) {
	sentinels := []struct {
		name, value string
	}{
		{"status", "all"},
		{"status", "All"},
		{"status", "ALL"},
		{"status", ""},
		{"role", "none"},
		{"role", "None"},
		{"role", "all"},
	}
	for _, s := range sentinels {
		t.Run(s.name+"="+s.value, func(t *testing.T) {
			src := &pagedSource{n: 3}
			c := newController(t, src)
			ctx := context.Background()
			c.Initialize(ctx, 10, nil)

			c.SetFilter(s.name, s.value)
			c.Search(ctx)

			_, present := src.last().Filters[s.name]
			assert.False(t, present, "sentinel %q for %q must not be sent", s.value, s.name)
		})
	}
}

func TestSearch_FailureKeepsPreviousResult(t *testing.T) {
	src := &pagedSource{n: 40}
	var rec notify.Recorder
	c := newController(t, src, func(o *listctl.Options[row]) { o.Notifier = &rec })
	ctx := context.Background()
	c.Initialize(ctx, 10, nil)
	c.GoToPage(ctx, 2)
	before := c.Snapshot()

	src.err = errors.New("backend unavailable")
	c.SetSearchText("x")
	out := c.Search(ctx)

	assert.False(t, out.Success)
	assert.Equal(t, "backend unavailable", out.Message)
	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, out, last)

	after := c.Snapshot()
	assert.Equal(t, 1, after.Query.Page)
	assert.Equal(t, "", after.Query.SearchText)
	assert.False(t, after.SearchPending)
	assert.Equal(t, before.TotalRecords, after.TotalRecords)
}

func TestReset_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	want := listctl.Query{
		SearchText: "",
		Filters:    map[string]string{"status": "all", "role": "none"},
		Page:       1,
		PageSize:   25,
		SortOrder:  listctl.Descending,
	}

	sequences := map[string]func(c *listctl.Controller[row]){
		"nothing": func(*listctl.Controller[row]) {},
		"search and filters": func(c *listctl.Controller[row]) {
			c.SetSearchText("carol")
			c.SetFilter("status", "active")
			c.SetFilter("role", "3")
			c.Search(ctx)
		},
		"paging and size": func(c *listctl.Controller[row]) {
			c.SetPageSize(ctx, 50)
			c.GoToPage(ctx, 2)
			c.ToggleSortOrder()
		},
		"everything": func(c *listctl.Controller[row]) {
			c.SetPageSize(ctx, 10)
			c.GoToPage(ctx, 7)
			c.SetFilter("device", "ios")
			c.SetSearchText("z")
			c.Search(ctx)
			c.GoToPage(ctx, 2)
		},
	}

	for name, seq := range sequences {
		t.Run(name, func(t *testing.T) {
			c := newController(t, &pagedSource{n: 200})
			c.Initialize(ctx, 25, map[string]string{"status": "active"})
			seq(c)

			out := c.Reset(ctx)
			require.True(t, out.Success)
			if diff := cmp.Diff(want, c.Query()); diff != "" {
				t.Errorf("query after reset mismatch (-want +got):\n%s", diff)
			}
			assert.False(t, c.Snapshot().ResetPending)

			c.Reset(ctx)
			if diff := cmp.Diff(want, c.Query()); diff != "" {
				t.Errorf("second reset mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGoToPage_ConcreteScenario(t *testing.T) {
	src := &pagedSource{n: 47}
	c := newController(t, src)
	ctx := context.Background()
	c.Initialize(ctx, 25, nil)

	require.Equal(t, 2, c.TotalPages())
	require.Len(t, c.DisplayWindow(), 25)

	require.True(t, c.GoToPage(ctx, 2).Success)
	assert.Len(t, c.DisplayWindow(), 22)
	assert.Equal(t, 2, c.Query().Page)

	calls := src.callCount()
	out := c.GoToPage(ctx, 3)
	assert.False(t, out.Success)
	assert.Contains(t, out.Message, listctl.ErrPageOutOfRange.Error())
	assert.Equal(t, 2, c.Query().Page)
	assert.Equal(t, calls, src.callCount(), "out of range page must not fetch")

	c.GoToPage(ctx, 0)
	assert.Equal(t, 2, c.Query().Page)
}

func TestGoToPage_FailureLeavesPage(t *testing.T) {
	src := &pagedSource{n: 47}
	c := newController(t, src)
	ctx := context.Background()
	c.Initialize(ctx, 25, nil)

	src.err = errors.New("timeout")
	out := c.GoToPage(ctx, 2)
	assert.False(t, out.Success)
	assert.Equal(t, 1, c.Query().Page)
	assert.Len(t, c.DisplayWindow(), 25)
}

func TestSetPageSize(t *testing.T) {
	src := &pagedSource{n: 120}
	c := newController(t, src)
	ctx := context.Background()
	c.Initialize(ctx, 10, nil)
	c.SetSearchText("q")
	c.SetFilter("status", "active")
	c.Search(ctx)
	c.GoToPage(ctx, 4)

	require.True(t, c.SetPageSize(ctx, 50).Success)
	q := c.Query()
	assert.Equal(t, 50, q.PageSize)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, "q", q.SearchText)
	assert.Equal(t, "active", q.Filters["status"])
	assert.Equal(t, 3, c.TotalPages())
	assert.Len(t, c.DisplayWindow(), 50)

	calls := src.callCount()
	out := c.SetPageSize(ctx, 33)
	assert.False(t, out.Success)
	assert.Equal(t, calls, src.callCount())
	assert.Equal(t, 50, c.Query().PageSize)
}

func TestSetPageSize_FailureKeepsWindow(t *testing.T) {
	src := &pagedSource{n: 47}
	c := newController(t, src)
	ctx := context.Background()
	c.Initialize(ctx, 25, nil)
	require.True(t, c.GoToPage(ctx, 2).Success)
	before := c.Snapshot()

	src.err = errors.New("mongo unreachable")
	out := c.SetPageSize(ctx, 10)
	assert.False(t, out.Success)

	after := c.Snapshot()
	assert.Equal(t, 25, after.Query.PageSize)
	assert.Equal(t, 2, after.Query.Page)
	assert.Equal(t, ids(before.Records), ids(after.Records))
	assert.Len(t, after.Records, 22)
	assert.Equal(t, before.Range, after.Range)
}

func TestNotifier_CanReadController(t *testing.T) {
	src := &pagedSource{n: 30}
	var c *listctl.Controller[row]
	var seen []int
	c = newController(t, src, func(o *listctl.Options[row]) {
		o.Notifier = notify.Func(func(notify.Outcome) {
			seen = append(seen, c.Snapshot().Query.Page)
		})
	})
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Initialize(ctx, 10, nil)
		c.GoToPage(ctx, 3)
		src.mu.Lock()
		src.err = errors.New("down")
		src.mu.Unlock()
		c.Reset(ctx)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("notifier blocked on the controller lock")
	}
	assert.Equal(t, []int{1, 3, 1}, seen)
}

func TestToggleSortOrder_NoRefetch(t *testing.T) {
	src := &pagedSource{n: 8}
	c := newController(t, src)
	c.Initialize(context.Background(), 10, nil)
	calls := src.callCount()

	original := ids(c.DisplayWindow())
	assert.Equal(t, []int{8, 7, 6, 5, 4, 3, 2, 1}, original)

	assert.Equal(t, listctl.Ascending, c.ToggleSortOrder())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, ids(c.DisplayWindow()))

	assert.Equal(t, listctl.Descending, c.ToggleSortOrder())
	assert.Equal(t, original, ids(c.DisplayWindow()))
	assert.Equal(t, calls, src.callCount())
}

// gatedSource blocks each fetch until released so tests can interleave
// completions.
type gatedSource struct {
	gates chan chan listctl.Result[row]
}

func (g *gatedSource) Fetch(ctx context.Context, _ listctl.Query) (listctl.Result[row], error) {
	ch := make(chan listctl.Result[row])
	g.gates <- ch
	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return listctl.Result[row]{}, ctx.Err()
	}
}

func TestStaleResponsesAreDiscarded(t *testing.T) {
	src := &gatedSource{gates: make(chan chan listctl.Result[row])}
	c := newController(t, src)
	ctx := context.Background()

	go c.Initialize(ctx, 10, nil)
	first := <-src.gates
	first <- listctl.Result[row]{Records: []row{{ID: 1}}, TotalRecords: 30, Limit: 10}

	// Wait for the initial result to land.
	require.Eventually(t, func() bool { return c.TotalPages() == 3 }, timeout, tick)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.GoToPage(ctx, 2) }()
	older := <-src.gates
	go func() { defer wg.Done(); c.Search(ctx) }()
	newer := <-src.gates

	newer <- listctl.Result[row]{Records: []row{{ID: 42}}, TotalRecords: 1, Limit: 10}
	older <- listctl.Result[row]{Records: []row{{ID: 11}, {ID: 12}}, TotalRecords: 30, Limit: 10}
	wg.Wait()

	st := c.Snapshot()
	assert.Equal(t, []int{42}, ids(st.Records))
	assert.Equal(t, 1, st.Query.Page)
	assert.Equal(t, int64(1), st.TotalRecords)
	assert.False(t, st.Loading)
	assert.False(t, st.SearchPending)
}

func TestSnapshot_Range(t *testing.T) {
	c := newController(t, &pagedSource{n: 47})
	ctx := context.Background()
	c.Initialize(ctx, 25, nil)
	c.GoToPage(ctx, 2)

	st := c.Snapshot()
	assert.Equal(t, 26, st.Range.Start)
	assert.Equal(t, 47, st.Range.End)
	assert.Equal(t, int64(47), st.TotalRecords)
	assert.Equal(t, 25, st.Limit)
}
