// Package listctl implements the list controller shared by every management
// page: search text, filters, sort order, page and page size, fetched through
// an injected DataSource and shown through a pure page window.
package listctl

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// SortOrder orders records by id.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Flip returns the opposite order.
func (o SortOrder) Flip() SortOrder {
	if o == Ascending {
		return Descending
	}
	return Ascending
}

// AllSentinel is the filter value meaning "no filter" unless a Filter
// declares its own sentinel.
const AllSentinel = "all"

// Query is the complete description of what a list shows.
type Query struct {
	SearchText string            `json:"search_text"`
	Filters    map[string]string `json:"filters"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	SortOrder  SortOrder         `json:"sort_order"`
}

// Clone returns a deep copy of q.
func (q Query) Clone() Query {
	out := q
	out.Filters = cloneFilters(q.Filters)
	return out
}

// Key returns a canonical encoding of q. Two queries describing the same
// request produce the same key regardless of map iteration order.
func (q Query) Key() string {
	v := url.Values{}
	if q.SearchText != "" {
		v.Set("q", q.SearchText)
	}
	for name, val := range q.Filters {
		v.Set("f."+name, val)
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.PageSize))
	v.Set("sort", string(q.SortOrder))
	return v.Encode()
}

// Result is one response from a DataSource. The controller never edits it.
type Result[T any] struct {
	Records      []T   `json:"records"`
	TotalRecords int64 `json:"total_records"`
	// Limit echoes the page size the source actually used.
	Limit int `json:"limit"`
}

// DataSource fetches records for a query. Implementations translate the
// query into a store or REST call specific to the entity.
type DataSource[T any] interface {
	Fetch(ctx context.Context, q Query) (Result[T], error)
}

// SourceFunc adapts a function to DataSource.
type SourceFunc[T any] func(ctx context.Context, q Query) (Result[T], error)

// Fetch calls f(ctx, q).
func (f SourceFunc[T]) Fetch(ctx context.Context, q Query) (Result[T], error) { return f(ctx, q) }

// Filter declares a filter a list page offers and the value that means
// "apply no filter". An empty Sentinel means AllSentinel.
type Filter struct {
	Name     string
	Sentinel string
}

func (f Filter) sentinel() string {
	if f.Sentinel == "" {
		return AllSentinel
	}
	return f.Sentinel
}

// IsSentinel reports whether value means "no filter" for a filter whose
// sentinel is sentinel. The empty string and "all" (any case) always do.
func IsSentinel(value, sentinel string) bool {
	v := strings.TrimSpace(value)
	if v == "" || strings.EqualFold(v, AllSentinel) {
		return true
	}
	return sentinel != "" && strings.EqualFold(v, sentinel)
}

// Outgoing returns the query as sent to a DataSource: search text trimmed
// and every sentinel-valued filter omitted.
func Outgoing(q Query, filters []Filter) Query {
	out := q
	out.SearchText = strings.TrimSpace(q.SearchText)
	out.Filters = make(map[string]string, len(q.Filters))
	sentinels := make(map[string]string, len(filters))
	for _, f := range filters {
		sentinels[f.Name] = f.sentinel()
	}
	for name, val := range q.Filters {
		if IsSentinel(val, sentinels[name]) {
			continue
		}
		out.Filters[name] = strings.TrimSpace(val)
	}
	return out
}

func cloneFilters(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
