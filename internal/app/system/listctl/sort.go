package listctl

import (
	"cmp"
	"slices"
)

// Comparator orders two records ascending: negative when a < b, zero when
// equal, positive when a > b.
type Comparator[T any] func(a, b T) int

// ByKey builds a Comparator from a key extractor, typically the record id.
func ByKey[T any, K cmp.Ordered](key func(T) K) Comparator[T] {
	return func(a, b T) int { return cmp.Compare(key(a), key(b)) }
}

// Sorted returns a sorted copy of records. The sort is stable so records
// with equal keys keep their fetched order.
func Sorted[T any](records []T, compare Comparator[T], order SortOrder) []T {
	out := slices.Clone(records)
	if compare == nil {
		return out
	}
	if order == Descending {
		slices.SortStableFunc(out, func(a, b T) int { return compare(b, a) })
		return out
	}
	slices.SortStableFunc(out, compare)
	return out
}
