// Package pipeline provides order-preserving sequence stages that mirror the
// aggregation stages used by the fleet reports: Filter ($match), Unwind,
// LeftJoin ($lookup followed by a preserving $unwind), GroupBy, SortBy and
// Limit. Stages are lazy; GroupBy and SortBy buffer their whole input.
package pipeline

import (
	"iter"
	"slices"
)

// Filter yields the elements for which keep returns true.
func Filter[T any](seq iter.Seq[T], keep func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range seq {
			if keep(v) && !yield(v) {
				return
			}
		}
	}
}

// Map transforms every element.
func Map[T, U any](seq iter.Seq[T], f func(T) U) iter.Seq[U] {
	return func(yield func(U) bool) {
		for v := range seq {
			if !yield(f(v)) {
				return
			}
		}
	}
}

// Unwind yields one combined row per element of elems(v). Elements with an
// empty or nil sequence produce no rows.
func Unwind[T, E, U any](seq iter.Seq[T], elems func(T) []E, combine func(T, E) U) iter.Seq[U] {
	return func(yield func(U) bool) {
		for v := range seq {
			for _, e := range elems(v) {
				if !yield(combine(v, e)) {
					return
				}
			}
		}
	}
}

// LeftJoin yields one row per foreign match of each element. Elements with
// no match are kept and combined with a nil foreign value.
func LeftJoin[T any, K comparable, F, U any](seq iter.Seq[T], key func(T) K, foreign []F, foreignKey func(F) K, combine func(T, *F) U) iter.Seq[U] {
	return func(yield func(U) bool) {
		index := make(map[K][]int, len(foreign))
		for i, f := range foreign {
			k := foreignKey(f)
			index[k] = append(index[k], i)
		}
		for v := range seq {
			matches := index[key(v)]
			if len(matches) == 0 {
				if !yield(combine(v, nil)) {
					return
				}
				continue
			}
			for _, i := range matches {
				if !yield(combine(v, &foreign[i])) {
					return
				}
			}
		}
	}
}

// Group is one partition produced by GroupBy.
type Group[K comparable, A any] struct {
	Key K
	Acc A
}

// GroupBy partitions seq by key and folds each partition with step, starting
// from the zero value of A. Groups come out in first-seen key order.
func GroupBy[T any, K comparable, A any](seq iter.Seq[T], key func(T) K, step func(A, T) A) iter.Seq[Group[K, A]] {
	return func(yield func(Group[K, A]) bool) {
		var order []K
		accs := map[K]A{}
		for v := range seq {
			k := key(v)
			acc, seen := accs[k]
			if !seen {
				order = append(order, k)
			}
			accs[k] = step(acc, v)
		}
		for _, k := range order {
			if !yield(Group[K, A]{Key: k, Acc: accs[k]}) {
				return
			}
		}
	}
}

// SortBy yields the elements of seq ordered by cmp. Equal elements keep
// their input order.
func SortBy[T any](seq iter.Seq[T], cmp func(a, b T) int) iter.Seq[T] {
	return func(yield func(T) bool) {
		items := slices.Collect(seq)
		slices.SortStableFunc(items, cmp)
		for _, v := range items {
			if !yield(v) {
				return
			}
		}
	}
}

// Limit yields at most n elements. A non-positive n yields nothing.
func Limit[T any](seq iter.Seq[T], n int) iter.Seq[T] {
	return func(yield func(T) bool) {
		if n <= 0 {
			return
		}
		count := 0
		for v := range seq {
			if !yield(v) {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	}
}

// Avg accumulates an arithmetic mean.
type Avg struct {
	Sum   float64
	Count int
}

// Add returns the accumulator with x included.
func (a Avg) Add(x float64) Avg {
	return Avg{Sum: a.Sum + x, Count: a.Count + 1}
}

// Value returns the mean, or 0 when nothing was added.
func (a Avg) Value() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.Sum / float64(a.Count)
}
