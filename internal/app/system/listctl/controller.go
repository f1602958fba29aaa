package listctl

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dalemusser/stratadmin/internal/app/system/notify"
	"github.com/dalemusser/stratadmin/internal/app/system/paging"
	"go.uber.org/zap"
)

var (
	// ErrPageOutOfRange is reported by GoToPage for pages outside [1, TotalPages].
	ErrPageOutOfRange = errors.New("page out of range")
	// ErrInvalidPageSize is reported by SetPageSize for sizes outside paging.PageSizes.
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrNoSource is returned by New when Options has no DataSource.
	ErrNoSource = errors.New("listctl: data source is required")
	// ErrNoComparator is returned by New when Options has no Comparator.
	ErrNoComparator = errors.New("listctl: comparator is required")
)

// Options configures a Controller.
type Options[T any] struct {
	// Name identifies the list in logs (e.g. "accounts").
	Name string
	// Source fetches records. Required.
	Source DataSource[T]
	// Compare orders records by id for client-side sorting. Required.
	Compare Comparator[T]
	// Filters declares the filters this list offers.
	Filters []Filter
	// Notifier receives every operation outcome. Optional.
	Notifier notify.Notifier
	// Log receives fetch failures. Optional.
	Log *zap.Logger
}

// Draft holds inputs typed by the user that Search has not applied yet.
type Draft struct {
	SearchText string            `json:"search_text"`
	Filters    map[string]string `json:"filters"`
}

// State is a read-only view of a controller.
type State[T any] struct {
	Query         Query        `json:"query"`
	Draft         Draft        `json:"draft"`
	TotalRecords  int64        `json:"total_records"`
	TotalPages    int          `json:"total_pages"`
	Limit         int          `json:"limit"`
	Loading       bool         `json:"loading"`
	SearchPending bool         `json:"search_pending"`
	ResetPending  bool         `json:"reset_pending"`
	Range         paging.Range `json:"range"`
	Records       []T          `json:"records"`
}

// Controller is the paginated, filterable, sortable list state machine.
//
// Search text and filter edits are local until Search applies them. Every
// fetch is tagged with a generation; a completion from an older generation
// than the latest issued fetch is discarded, so overlapping requests cannot
// overwrite newer state. A Controller is safe for concurrent use.
type Controller[T any] struct {
	name     string
	src      DataSource[T]
	compare  Comparator[T]
	filters  []Filter
	notifier notify.Notifier
	log      *zap.Logger

	mu              sync.Mutex
	defaultPageSize int
	query           Query
	draft           Draft
	result          Result[T]
	gen             uint64
	loading         int
	searching       int
	resetting       int
}

// New constructs a Controller. Call Initialize before use.
func New[T any](opts Options[T]) (*Controller[T], error) {
	if opts.Source == nil {
		return nil, ErrNoSource
	}
	if opts.Compare == nil {
		return nil, ErrNoComparator
	}
	n := opts.Notifier
	if n == nil {
		n = notify.Nop
	}
	l := opts.Log
	if l == nil {
		l = zap.NewNop()
	}
	c := &Controller[T]{
		name:            opts.Name,
		src:             opts.Source,
		compare:         opts.Compare,
		filters:         append([]Filter(nil), opts.Filters...),
		notifier:        n,
		log:             l,
		defaultPageSize: paging.DefaultPageSize,
	}
	c.query = c.blankQuery(nil)
	c.draft = Draft{Filters: cloneFilters(c.query.Filters)}
	return c, nil
}

// Initialize sets the query to its defaults (page 1, empty search,
// initialFilters, descending order) and performs the first fetch.
// An invalid defaultPageSize falls back to paging.DefaultPageSize.
func (c *Controller[T]) Initialize(ctx context.Context, defaultPageSize int, initialFilters map[string]string) notify.Outcome {
	c.mu.Lock()
	if paging.ValidPageSize(defaultPageSize) {
		c.defaultPageSize = defaultPageSize
	}
	c.query = c.blankQuery(initialFilters)
	c.draft = Draft{Filters: cloneFilters(c.query.Filters)}
	c.result = Result[T]{}
	q := c.query.Clone()
	gen := c.issue()
	c.loading++
	c.mu.Unlock()

	res, err := c.fetch(ctx, q)
	return c.finish("initialize", gen, q, err, &c.loading, func(ok bool) {
		if ok {
			c.result = res
		}
	})
}

// SetSearchText updates the draft search text. It never fetches.
func (c *Controller[T]) SetSearchText(text string) {
	c.mu.Lock()
	c.draft.SearchText = text
	c.mu.Unlock()
}

// SetFilter updates one draft filter value. It never fetches.
func (c *Controller[T]) SetFilter(name, value string) {
	c.mu.Lock()
	if c.draft.Filters == nil {
		c.draft.Filters = map[string]string{}
	}
	c.draft.Filters[name] = value
	c.mu.Unlock()
}

// Search applies the draft search text and filters, keeps the chosen page
// size and fetches page 1. The page returns to 1 whether or not the fetch
// succeeds; on failure the previously applied search and filters stay in
// place alongside the previous result.
func (c *Controller[T]) Search(ctx context.Context) notify.Outcome {
	c.mu.Lock()
	q := c.query.Clone()
	q.SearchText = c.draft.SearchText
	q.Filters = cloneFilters(c.draft.Filters)
	q.Page = 1
	gen := c.issue()
	c.searching++
	c.mu.Unlock()

	res, err := c.fetch(ctx, q)
	return c.finish("search", gen, q, err, &c.searching, func(ok bool) {
		c.query.Page = 1
		if ok {
			c.query.SearchText = q.SearchText
			c.query.Filters = q.Filters
			c.result = res
		}
	})
}

// Reset clears search text, returns every filter to its sentinel, restores
// the default page size and sort order and fetches page 1.
func (c *Controller[T]) Reset(ctx context.Context) notify.Outcome {
	c.mu.Lock()
	c.query = c.blankQuery(nil)
	c.draft = Draft{Filters: cloneFilters(c.query.Filters)}
	q := c.query.Clone()
	gen := c.issue()
	c.resetting++
	c.mu.Unlock()

	res, err := c.fetch(ctx, q)
	return c.finish("reset", gen, q, err, &c.resetting, func(ok bool) {
		if ok {
			c.result = res
		}
	})
}

// GoToPage fetches page n with every other query field unchanged. Pages
// outside [1, TotalPages] are a no-op.
func (c *Controller[T]) GoToPage(ctx context.Context, n int) notify.Outcome {
	c.mu.Lock()
	if n < 1 || n > c.totalPages() {
		c.mu.Unlock()
		return c.reject(fmt.Errorf("%w: %d", ErrPageOutOfRange, n))
	}
	q := c.query.Clone()
	q.Page = n
	gen := c.issue()
	c.loading++
	c.mu.Unlock()

	res, err := c.fetch(ctx, q)
	return c.finish("page", gen, q, err, &c.loading, func(ok bool) {
		if ok {
			c.result = res
			c.query.Page = n
		}
	})
}

// SetPageSize fetches page 1 at size n with search and filters preserved.
// The new size and page apply only once the fetch succeeds. Sizes outside
// paging.PageSizes are a no-op.
func (c *Controller[T]) SetPageSize(ctx context.Context, n int) notify.Outcome {
	if !paging.ValidPageSize(n) {
		return c.reject(fmt.Errorf("%w: %d", ErrInvalidPageSize, n))
	}
	c.mu.Lock()
	q := c.query.Clone()
	q.PageSize = n
	q.Page = 1
	gen := c.issue()
	c.loading++
	c.mu.Unlock()

	res, err := c.fetch(ctx, q)
	return c.finish("page_size", gen, q, err, &c.loading, func(ok bool) {
		if ok {
			c.result = res
			c.query.PageSize = n
			c.query.Page = 1
		}
	})
}

// ToggleSortOrder flips the sort order. Records already fetched are
// re-sorted locally; nothing is fetched.
func (c *Controller[T]) ToggleSortOrder() SortOrder {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.SortOrder = c.query.SortOrder.Flip()
	return c.query.SortOrder
}

// DisplayWindow returns the records shown for the current page, sorted by
// the current sort order.
func (c *Controller[T]) DisplayWindow() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window()
}

// TotalPages returns ceil(TotalRecords / Limit) for the last result.
func (c *Controller[T]) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPages()
}

// Query returns a copy of the applied query.
func (c *Controller[T]) Query() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query.Clone()
}

// Snapshot returns the full controller state, including the display window.
func (c *Controller[T]) Snapshot() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	win := c.window()
	return State[T]{
		Query:         c.query.Clone(),
		Draft:         Draft{SearchText: c.draft.SearchText, Filters: cloneFilters(c.draft.Filters)},
		TotalRecords:  c.result.TotalRecords,
		TotalPages:    c.totalPages(),
		Limit:         c.limit(),
		Loading:       c.loading > 0,
		SearchPending: c.searching > 0,
		ResetPending:  c.resetting > 0,
		Range:         paging.ComputeRange(c.query.Page, c.query.PageSize, len(win)),
		Records:       win,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| internals; callers hold c.mu unless noted                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (c *Controller[T]) blankQuery(initial map[string]string) Query {
	filters := make(map[string]string, len(c.filters)+len(initial))
	for _, f := range c.filters {
		filters[f.Name] = f.sentinel()
	}
	for k, v := range initial {
		filters[k] = v
	}
	return Query{
		Filters:   filters,
		Page:      1,
		PageSize:  c.defaultPageSize,
		SortOrder: Descending,
	}
}

func (c *Controller[T]) issue() uint64 {
	c.gen++
	return c.gen
}

// fetch runs without c.mu held.
func (c *Controller[T]) fetch(ctx context.Context, q Query) (Result[T], error) {
	return c.src.Fetch(ctx, Outgoing(q, c.filters))
}

func (c *Controller[T]) limit() int {
	if c.result.Limit > 0 {
		return c.result.Limit
	}
	return c.query.PageSize
}

func (c *Controller[T]) totalPages() int {
	return paging.TotalPages(c.result.TotalRecords, c.limit())
}

func (c *Controller[T]) window() []T {
	sorted := Sorted(c.result.Records, c.compare, c.query.SortOrder)
	return paging.Slice(sorted, c.query.Page, c.query.PageSize)
}

// finish settles a fetch issued as generation gen. It takes c.mu,
// decrements pending and, unless a newer fetch superseded this one, calls
// apply with whether the fetch succeeded. The notifier runs after c.mu is
// released so it may read the controller.
func (c *Controller[T]) finish(op string, gen uint64, q Query, err error, pending *int, apply func(ok bool)) notify.Outcome {
	c.mu.Lock()
	*pending--
	latest := c.gen
	stale := gen != latest
	if !stale {
		apply(err == nil)
	}
	c.mu.Unlock()

	if stale {
		c.log.Debug("stale list response discarded",
			zap.String("list", c.name),
			zap.String("op", op),
			zap.Uint64("generation", gen),
			zap.Uint64("latest", latest))
		return notify.OK("")
	}
	o := notify.OK("")
	if err != nil {
		c.log.Warn("list fetch failed",
			zap.String("list", c.name),
			zap.String("op", op),
			zap.String("query", q.Key()),
			zap.Error(err))
		o = notify.Fail(err.Error())
	}
	c.notifier.Notify(o)
	return o
}

// reject reports an operation refused before any fetch. c.mu must not be held.
func (c *Controller[T]) reject(err error) notify.Outcome {
	o := notify.Fail(err.Error())
	c.notifier.Notify(o)
	return o
}
