// Package listpage mounts a listctl.Controller behind HTTP. One controller
// lives per console session and page in the console.Registry, so search
// text, filters, page and sort survive between requests.
package listpage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/respond"
	"github.com/dalemusser/stratadmin/internal/app/store/storeutil"
	"github.com/dalemusser/stratadmin/internal/app/system/auth"
	"github.com/dalemusser/stratadmin/internal/app/system/console"
	"github.com/dalemusser/stratadmin/internal/app/system/listctl"
	"github.com/dalemusser/stratadmin/internal/app/system/normalize"
	"github.com/dalemusser/stratadmin/internal/app/system/notify"
	"github.com/dalemusser/stratadmin/internal/app/system/paging"
	"github.com/dalemusser/stratadmin/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Page describes one list page.
type Page[T any] struct {
	// Name is the registry page key and the list name in logs.
	Name     string
	Registry *console.Registry
	Source   listctl.DataSource[T]
	Compare  listctl.Comparator[T]
	Filters  []listctl.Filter
	// InitialFilters overrides filter sentinels on first load.
	InitialFilters  map[string]string
	DefaultPageSize int
	// Flashes, when set, returns pending flash outcomes shown with GET /.
	Flashes func(w http.ResponseWriter, r *http.Request) []notify.Outcome
	Log     *zap.Logger
}

// Routes returns the list endpoints. Mount it behind RequireSignedIn and a
// capability check.
func (p *Page[T]) Routes() chi.Router {
	if p.Log == nil {
		p.Log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Get("/", p.serveState)
	r.Put("/search-text", p.putSearchText)
	r.Put("/filters/{name}", p.putFilter)
	r.Post("/search", p.run(func(ctx context.Context, c *listctl.Controller[T], _ *http.Request) notify.Outcome {
		return c.Search(ctx)
	}))
	r.Post("/reset", p.run(func(ctx context.Context, c *listctl.Controller[T], _ *http.Request) notify.Outcome {
		return c.Reset(ctx)
	}))
	r.Post("/page/{n}", p.run(func(ctx context.Context, c *listctl.Controller[T], r *http.Request) notify.Outcome {
		return c.GoToPage(ctx, intParam(r, "n"))
	}))
	r.Post("/page-size/{n}", p.run(func(ctx context.Context, c *listctl.Controller[T], r *http.Request) notify.Outcome {
		return c.SetPageSize(ctx, intParam(r, "n"))
	}))
	r.Post("/sort/toggle", p.run(func(_ context.Context, c *listctl.Controller[T], _ *http.Request) notify.Outcome {
		c.ToggleSortOrder()
		return notify.OK("")
	}))
	return r
}

// entry is what the registry holds for one console and page: the controller
// and the outcome of its first fetch until a GET / has reported it.
type entry[T any] struct {
	c *listctl.Controller[T]

	mu      sync.Mutex
	initial *notify.Outcome
}

func (e *entry[T]) takeInitial() (notify.Outcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initial == nil {
		return notify.Outcome{}, false
	}
	o := *e.initial
	e.initial = nil
	return o, true
}

// controller returns the caller's entry, creating and initializing its
// controller on first use.
func (p *Page[T]) controller(r *http.Request) (*entry[T], error) {
	u, _ := auth.CurrentUser(r)
	consoleID := ""
	if u != nil {
		consoleID = u.ConsoleID
	}
	return console.Get(p.Registry, consoleID, p.Name, func() (*entry[T], error) {
		c, err := listctl.New(listctl.Options[T]{
			Name:     p.Name,
			Source:   p.Source,
			Compare:  p.Compare,
			Filters:  p.Filters,
			Notifier: notify.Zap{Log: p.Log, Source: p.Name},
			Log:      p.Log,
		})
		if err != nil {
			return nil, err
		}
		ctx, cancel := timeouts.WithTimeout(context.WithoutCancel(r.Context()), timeouts.Medium(), p.Log, p.Name+" initial fetch")
		defer cancel()
		o := c.Initialize(ctx, p.DefaultPageSize, p.InitialFilters)
		return &entry[T]{c: c, initial: &o}, nil
	})
}

func (p *Page[T]) withController(w http.ResponseWriter, r *http.Request) (*entry[T], bool) {
	e, err := p.controller(r)
	if err != nil {
		p.Log.Error("list controller unavailable", zap.String("list", p.Name), zap.Error(err))
		if err == console.ErrNoConsole {
			respond.Error(w, http.StatusUnauthorized, "sign in again to continue")
			return nil, false
		}
		respond.Error(w, http.StatusInternalServerError, "list unavailable")
		return nil, false
	}
	return e, true
}

// serveState returns the current state. The first call after the
// controller was created carries the outcome of its initial fetch, so a
// failed first load is reported instead of looking like an empty list.
func (p *Page[T]) serveState(w http.ResponseWriter, r *http.Request) {
	e, ok := p.withController(w, r)
	if !ok {
		return
	}
	o, first := e.takeInitial()
	if !first {
		o = notify.OK("")
	}
	status := http.StatusOK
	if !o.Success {
		status = http.StatusUnprocessableEntity
	}
	env := respond.Envelope{Outcome: o, State: e.c.Snapshot()}
	if p.Flashes != nil {
		if f := p.Flashes(w, r); len(f) > 0 {
			env.Data = map[string]any{"flashes": f}
		}
	}
	respond.JSON(w, status, env)
}

type valueBody struct {
	Value string `json:"value"`
}

func readValue(r *http.Request) (string, error) {
	var b valueBody
	err := respond.Decode(r, &b, func(get func(string) string, _ func(string) []string) {
		b.Value = get("value")
	})
	return normalize.QueryParam(b.Value), err
}

// putSearchText edits the draft search text. Nothing is fetched.
func (p *Page[T]) putSearchText(w http.ResponseWriter, r *http.Request) {
	e, ok := p.withController(w, r)
	if !ok {
		return
	}
	v, err := readValue(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	e.c.SetSearchText(v)
	respond.Outcome(w, notify.OK(""), http.StatusOK, e.c.Snapshot())
}

// putFilter edits one draft filter. Unknown filter names are rejected.
func (p *Page[T]) putFilter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !p.hasFilter(name) {
		respond.Error(w, http.StatusNotFound, "unknown filter "+strconv.Quote(name))
		return
	}
	e, ok := p.withController(w, r)
	if !ok {
		return
	}
	v, err := readValue(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	e.c.SetFilter(name, v)
	respond.Outcome(w, notify.OK(""), http.StatusOK, e.c.Snapshot())
}

func (p *Page[T]) hasFilter(name string) bool {
	for _, f := range p.Filters {
		if f.Name == name {
			return true
		}
	}
	return false
}

type action[T any] func(ctx context.Context, c *listctl.Controller[T], r *http.Request) notify.Outcome

func (p *Page[T]) run(fn action[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := p.withController(w, r)
		if !ok {
			return
		}
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), p.Log, p.Name+" fetch")
		defer cancel()
		o := fn(ctx, e.c, r)
		respond.Outcome(w, o, http.StatusUnprocessableEntity, e.c.Snapshot())
	}
}

func intParam(r *http.Request, name string) int {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0
	}
	return n
}

// StoreSource adapts a store's List and Count to a DataSource. filter
// translates the outgoing query; List and Count run concurrently. Pages are
// always cut newest first by id; the query's sort order only reorders the
// fetched page.
func StoreSource[T, F any](
	filter func(listctl.Query) (F, error),
	list func(context.Context, F, storeutil.Page) ([]T, error),
	count func(context.Context, F) (int64, error),
) listctl.SourceFunc[T] {
	return func(ctx context.Context, q listctl.Query) (listctl.Result[T], error) {
		f, err := filter(q)
		if err != nil {
			return listctl.Result[T]{}, err
		}
		size := q.PageSize
		if size <= 0 {
			size = paging.DefaultPageSize
		}
		page := storeutil.Page{
			Offset: paging.Offset(q.Page, size),
			Limit:  int64(size),
			Desc:   true,
			Field:  "_id",
		}

		var (
			records []T
			total   int64
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			records, err = list(gctx, f, page)
			return err
		})
		g.Go(func() (err error) {
			total, err = count(gctx, f)
			return err
		})
		if err := g.Wait(); err != nil {
			return listctl.Result[T]{}, err
		}
		return listctl.Result[T]{Records: records, TotalRecords: total, Limit: size}, nil
	}
}

// DateLayout is the format of date filters.
const DateLayout = "2006-01-02"

// DateFilter parses the named date filter of q. Missing values yield nil.
func DateFilter(q listctl.Query, name string) (*time.Time, error) {
	v := q.Filters[name]
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, v, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%s: expected YYYY-MM-DD, got %q", name, v)
	}
	return &t, nil
}

// IDFilter parses the named ObjectID filter of q.
func IDFilter(q listctl.Query, name string) (*primitive.ObjectID, error) {
	v := q.Filters[name]
	if v == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(v)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid id %q", name, v)
	}
	return &id, nil
}

// ByObjectID orders records by their ObjectID.
func ByObjectID[T any](id func(T) primitive.ObjectID) listctl.Comparator[T] {
	return func(a, b T) int {
		x, y := id(a), id(b)
		return bytes.Compare(x[:], y[:])
	}
}
