package hxrt

import (
	"fmt"
	"iter"
	"reflect"
	"slices"
	"strings"
)

// Sequence is an ordered, growable list with reference semantics.
// Assigning a Sequence aliases its storage; Copy produces an independent one.
// The zero value is a null handle.
type Sequence[T any] struct {
	ref Ref[[]T]
}

// NewSequence creates a sequence holding a copy of items
func NewSequence[T any](items ...T) Sequence[T] {
	data := make([]T, len(items))
	copy(data, items)
	return Sequence[T]{ref: NewRef(data)}
}

// IsNull reports whether the handle points at nothing
func (s Sequence[T]) IsNull() bool {
	return s.ref.IsNull()
}

// Identity is the address of the backing storage, 0 for null
func (s Sequence[T]) Identity() uintptr {
	return s.ref.Identity()
}

// Same reports whether both handles alias the same storage
func (s Sequence[T]) Same(other Sequence[T]) bool {
	return s.ref.Same(other.ref)
}

// Len returns the number of elements
func (s Sequence[T]) Len() int {
	n := 0
	s.ref.Read(func(items []T) {
		n = len(items)
	})
	return n
}

// Get returns the element at index, or false when index is out of range
func (s Sequence[T]) Get(index int) (T, bool) {
	var (
		v  T
		ok bool
	)
	s.ref.Read(func(items []T) {
		if index >= 0 && index < len(items) {
			v, ok = items[index], true
		}
	})
	return v, ok
}

// At returns the element at index, raising OutsideBounds when out of range
func (s Sequence[T]) At(index int) T {
	v, ok := s.Get(index)
	if !ok {
		fault(newError(OutsideBounds, "index %d out of range for length %d", index, s.Len()))
	}
	return v
}

// Set replaces the element at index, raising OutsideBounds when out of range
func (s Sequence[T]) Set(index int, value T) {
	length := -1
	s.ref.Write(func(items *[]T) {
		if index < 0 || index >= len(*items) {
			length = len(*items)
			return
		}
		(*items)[index] = value
	})
	if length >= 0 {
		fault(newError(OutsideBounds, "index %d out of range for length %d", index, length))
	}
}

// Push appends value and returns the new length
func (s Sequence[T]) Push(value T) int {
	n := 0
	s.ref.Write(func(items *[]T) {
		*items = append(*items, value)
		n = len(*items)
	})
	return n
}

// Pop removes and returns the last element
func (s Sequence[T]) Pop() (T, bool) {
	var (
		v  T
		ok bool
	)
	s.ref.Write(func(items *[]T) {
		n := len(*items)
		if n == 0 {
			return
		}
		v, ok = (*items)[n-1], true
		var zero T
		(*items)[n-1] = zero
		*items = (*items)[:n-1]
	})
	return v, ok
}

// Shift removes and returns the first element
func (s Sequence[T]) Shift() (T, bool) {
	var (
		v  T
		ok bool
	)
	s.ref.Write(func(items *[]T) {
		if len(*items) == 0 {
			return
		}
		v, ok = (*items)[0], true
		*items = slices.Delete(*items, 0, 1)
	})
	return v, ok
}

// Unshift prepends value
func (s Sequence[T]) Unshift(value T) {
	s.ref.Write(func(items *[]T) {
		*items = slices.Insert(*items, 0, value)
	})
}

// Insert places value at pos. A negative pos counts from the end; the result
// is clamped to [0, length].
func (s Sequence[T]) Insert(pos int, value T) {
	s.ref.Write(func(items *[]T) {
		at := wrapClamp(pos, len(*items))
		*items = slices.Insert(*items, at, value)
	})
}

// Splice removes up to count elements starting at pos and returns them.
// A negative pos counts from the end; a negative count removes nothing.
func (s Sequence[T]) Splice(pos, count int) Sequence[T] {
	var removed []T
	s.ref.Write(func(items *[]T) {
		total := len(*items)
		start := wrapClamp(pos, total)
		end := start + min(max(count, 0), total-start)
		removed = slices.Clone((*items)[start:end])
		*items = slices.Delete(*items, start, end)
	})
	return Sequence[T]{ref: NewRef(removed)}
}

// Slice returns a copy of the elements in [pos, end). Both bounds count from
// the end when negative and are clamped to [0, length].
func (s Sequence[T]) Slice(pos, end int) Sequence[T] {
	var out []T
	s.ref.Read(func(items []T) {
		n := len(items)
		start := wrapClamp(pos, n)
		stop := wrapClamp(end, n)
		if stop < start {
			stop = start
		}
		out = slices.Clone(items[start:stop])
	})
	if out == nil {
		out = []T{}
	}
	return Sequence[T]{ref: NewRef(out)}
}

// SliceFrom is Slice with end defaulting to the length
func (s Sequence[T]) SliceFrom(pos int) Sequence[T] {
	return s.Slice(pos, s.Len())
}

// Resize grows with zero values or truncates to n (negative n means 0)
func (s Sequence[T]) Resize(n int) {
	n = max(n, 0)
	s.ref.Write(func(items *[]T) {
		if n <= len(*items) {
			clear((*items)[n:])
			*items = (*items)[:n]
			return
		}
		*items = append(*items, make([]T, n-len(*items))...)
	})
}

// Contains reports whether an element equal to value is present
func (s Sequence[T]) Contains(value T) bool {
	return s.IndexOf(value) >= 0
}

// Remove deletes the first element equal to value
func (s Sequence[T]) Remove(value T) bool {
	return s.removeMatch(func(item T) bool { return valuesEqual(item, value) })
}

// IndexOf returns the first index of value, or -1
func (s Sequence[T]) IndexOf(value T) int {
	return s.IndexOfFrom(value, 0)
}

// IndexOfFrom scans forward from fromIndex. A negative fromIndex counts from
// the end, so -1 inspects only the last element.
func (s Sequence[T]) IndexOfFrom(value T, fromIndex int) int {
	return s.scanForward(fromIndex, func(item T) bool { return valuesEqual(item, value) })
}

// LastIndexOf returns the last index of value, or -1
func (s Sequence[T]) LastIndexOf(value T) int {
	return s.scanBackward(nil, func(item T) bool { return valuesEqual(item, value) })
}

// LastIndexOfFrom scans backward starting at fromIndex
func (s Sequence[T]) LastIndexOfFrom(value T, fromIndex int) int {
	return s.scanBackward(&fromIndex, func(item T) bool { return valuesEqual(item, value) })
}

// ContainsRef is Contains using reference identity
func (s Sequence[T]) ContainsRef(value T) bool {
	return s.IndexOfRef(value) >= 0
}

// RemoveRef deletes the first element with the same identity as value
func (s Sequence[T]) RemoveRef(value T) bool {
	return s.removeMatch(func(item T) bool { return sameReference(item, value) })
}

// IndexOfRef is IndexOf using reference identity
func (s Sequence[T]) IndexOfRef(value T) int {
	return s.IndexOfRefFrom(value, 0)
}

// IndexOfRefFrom is IndexOfFrom using reference identity
func (s Sequence[T]) IndexOfRefFrom(value T, fromIndex int) int {
	return s.scanForward(fromIndex, func(item T) bool { return sameReference(item, value) })
}

// LastIndexOfRef is LastIndexOf using reference identity
func (s Sequence[T]) LastIndexOfRef(value T) int {
	return s.scanBackward(nil, func(item T) bool { return sameReference(item, value) })
}

// LastIndexOfRefFrom is LastIndexOfFrom using reference identity
func (s Sequence[T]) LastIndexOfRefFrom(value T, fromIndex int) int {
	return s.scanBackward(&fromIndex, func(item T) bool { return sameReference(item, value) })
}

// Sort orders the elements with a stable sort. cmp returns negative, zero or
// positive. It runs under the write lock and must not touch this sequence.
func (s Sequence[T]) Sort(cmp func(a, b T) int) {
	s.ref.Write(func(items *[]T) {
		slices.SortStableFunc(*items, cmp)
	})
}

// Concat returns a new sequence with the elements of s followed by other
func (s Sequence[T]) Concat(other Sequence[T]) Sequence[T] {
	tail := other.Items()
	head := s.Items()
	return Sequence[T]{ref: NewRef(append(head, tail...))}
}

// Reverse reverses the elements in place
func (s Sequence[T]) Reverse() {
	s.ref.Write(func(items *[]T) {
		slices.Reverse(*items)
	})
}

// Join renders each element with its display text and joins them with sep
func (s Sequence[T]) Join(sep string) string {
	parts := make([]string, 0, s.Len())
	for _, item := range s.Items() {
		parts = append(parts, Box(item).String())
	}
	return strings.Join(parts, sep)
}

// Copy returns an independent sequence with the same elements
func (s Sequence[T]) Copy() Sequence[T] {
	return Sequence[T]{ref: NewRef(s.Items())}
}

// Items returns a snapshot of the elements
func (s Sequence[T]) Items() []T {
	var out []T
	s.ref.Read(func(items []T) {
		out = make([]T, len(items))
		copy(out, items)
	})
	return out
}

// All iterates over a snapshot taken when iteration starts
func (s Sequence[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, item := range s.Items() {
			if !yield(i, item) {
				return
			}
		}
	}
}

// Filter returns a new sequence with the elements for which keep is true
func (s Sequence[T]) Filter(keep func(T) bool) Sequence[T] {
	out := make([]T, 0)
	for _, item := range s.Items() {
		if keep(item) {
			out = append(out, item)
		}
	}
	return Sequence[T]{ref: NewRef(out)}
}

// Iterator returns a cursor over a snapshot of the current elements
func (s Sequence[T]) Iterator() *Iterator[T] {
	return &Iterator[T]{items: s.Items()}
}

// String renders the sequence as [e1,e2,...]
func (s Sequence[T]) String() string {
	if s.IsNull() {
		return "null"
	}
	return "[" + s.Join(",") + "]"
}

func (s Sequence[T]) displayItems() []interface{} {
	items := s.Items()
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func (s Sequence[T]) dynamicAt(index int) (Dynamic, bool) {
	v, ok := s.Get(index)
	if !ok {
		return Null(), false
	}
	return Box(v), true
}

func (s Sequence[T]) removeMatch(match func(T) bool) bool {
	removed := false
	s.ref.Write(func(items *[]T) {
		if i := slices.IndexFunc(*items, match); i >= 0 {
			*items = slices.Delete(*items, i, i+1)
			removed = true
		}
	})
	return removed
}

func (s Sequence[T]) scanForward(fromIndex int, match func(T) bool) int {
	found := -1
	s.ref.Read(func(items []T) {
		n := len(items)
		for i := wrapClamp(fromIndex, n); i < n; i++ {
			if match(items[i]) {
				found = i
				return
			}
		}
	})
	return found
}

// scanBackward starts at fromIndex, or the last element when fromIndex is nil
func (s Sequence[T]) scanBackward(fromIndex *int, match func(T) bool) int {
	found := -1
	s.ref.Read(func(items []T) {
		n := len(items)
		if n == 0 {
			return
		}
		start := n - 1
		if fromIndex != nil {
			start = *fromIndex
			if start < 0 {
				start += n
			}
			start = min(max(start, 0), n-1)
		}
		for i := start; i >= 0; i-- {
			if match(items[i]) {
				found = i
				return
			}
		}
	})
	return found
}

// MapSequence returns a new sequence holding fn applied to every element
func MapSequence[T, U any](s Sequence[T], fn func(T) U) Sequence[U] {
	items := s.Items()
	out := make([]U, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return Sequence[U]{ref: NewRef(out)}
}

// Iterator walks a snapshot of a sequence
type Iterator[T any] struct {
	items []T
	pos   int
}

// HasNext reports whether Next would return an element
func (it *Iterator[T]) HasNext() bool {
	return it.pos < len(it.items)
}

// Next returns the next element, raising OutsideBounds when exhausted
func (it *Iterator[T]) Next() T {
	if !it.HasNext() {
		fault(newError(OutsideBounds, "iterator exhausted after %d elements", len(it.items)))
	}
	v := it.items[it.pos]
	it.pos++
	return v
}

// wrapClamp adds n once to a negative index, then clamps to [0, n]
func wrapClamp(index, n int) int {
	if index < 0 {
		index += n
	}
	return min(max(index, 0), n)
}

// valuesEqual is element equality for sequences: primitives by value,
// reference handles by identity, other comparable values with ==
func valuesEqual(a, b interface{}) bool {
	if da, ok := a.(Dynamic); ok {
		return Equal(da, Box(b))
	}
	if pa, ok := primitiveOf(a); ok {
		pb, ok := primitiveOf(b)
		return ok && pa.equal(pb)
	}
	if _, ok := a.(Identifiable); ok {
		return sameReference(a, b)
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == nil || tb == nil {
		return ta == tb
	}
	if ta != tb || !ta.Comparable() {
		return false
	}
	return comparableEqual(a, b)
}

// comparableEqual is a == b, false when a struct or array holds an
// interface whose dynamic value cannot be compared
func comparableEqual(a, b interface{}) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// sameReference compares by allocation identity. Two null handles match.
func sameReference(a, b interface{}) bool {
	ia, ib := identityOf(a), identityOf(b)
	if ia == 0 || ib == 0 {
		return ia == ib && isNilValue(a) && isNilValue(b)
	}
	return ia == ib
}

// GoString keeps %#v output readable for test failures
func (s Sequence[T]) GoString() string {
	if s.IsNull() {
		return "Sequence(null)"
	}
	return fmt.Sprintf("Sequence%v", s.Items())
}
