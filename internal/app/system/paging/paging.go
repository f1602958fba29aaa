// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultPageSize is the page size used when a list page does not choose one.
const DefaultPageSize = 10

// PageSizes is the fixed set of page sizes offered by every list page.
var PageSizes = []int{10, 25, 50, 75, 100}

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// TotalPages returns ceil(total/limit). A non-positive limit yields 0.
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	l := int64(limit)
	return int((total + l - 1) / l)
}

// Offset returns the number of rows to skip for a 1-based page.
func Offset(page, size int) int64 {
	if page < 1 || size < 1 {
		return 0
	}
	return int64(page-1) * int64(size)
}

// Window computes the [start, end) slice bounds of the rows shown for page
// over n already-fetched rows.
//
// The naive window is [(page-1)*size, min((page-1)*size+size, n)). When that
// window is shorter than size it is clamped to the tail of the rows, so a
// source that returns exactly one page per request still shows its rows and
// a short window never appears while more rows are available. The result
// always satisfies 0 <= start <= end <= n.
func Window(n, page, size int) (start, end int) {
	if n <= 0 || size <= 0 {
		return 0, 0
	}
	if page < 1 {
		page = 1
	}
	start = (page - 1) * size
	if start > n {
		start = n
	}
	end = start + size
	if end > n {
		end = n
	}
	if end-start < size {
		end = n
		start = end - size
		if start < 0 {
			start = 0
		}
	}
	return start, end
}

// Slice returns the rows of page using Window. The returned slice shares
// storage with rows.
func Slice[T any](rows []T, page, size int) []T {
	start, end := Window(len(rows), page, size)
	return rows[start:end]
}

// ParseLimit reads a positive integer query parameter, capped at max.
// Missing or invalid values give def.
func ParseLimit(r *http.Request, param string, def, max int) int {
	n, err := strconv.Atoi(query.Get(r, param))
	if err != nil || n < 1 {
		return def
	}
	return min(n, max)
}

// Range holds computed display range values for a paginated list.
type Range struct {
	Start int // 1-based index of the first row shown (0 if no results)
	End   int // 1-based index of the last row shown (0 if no results)
}

// ComputeRange calculates the "showing X–Y" values for a page of shown rows.
func ComputeRange(page, size, shown int) Range {
	if shown == 0 {
		return Range{}
	}
	start := int(Offset(page, size)) + 1
	return Range{Start: start, End: start + shown - 1}
}
