package hxrt

import (
	"fmt"
	"sync"
	"unsafe"
	"weak"
)

// Cell holds one value behind a reader/writer lock.
// Many readers or one writer may hold it at a time; there is no upgrade path
// from a read to a write, so a Write inside a Read on the same cell deadlocks.
type Cell[T any] struct {
	mu    sync.RWMutex
	value T
	// self is only set for cells allocated through NewRef
	self weak.Pointer[Cell[T]]
}

// NewCell creates a standalone cell. SelfRef is not available on it.
func NewCell[T any](value T) *Cell[T] {
	return &Cell[T]{value: value}
}

// Read runs fn with the value while holding the shared lock
func (c *Cell[T]) Read(fn func(v T)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.value)
}

// Write runs fn with a pointer to the value while holding the exclusive lock
func (c *Cell[T]) Write(fn func(v *T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.value)
}

// SelfRef returns a new owning handle to the allocation that holds this cell.
// Raises NullAccess for cells that were not allocated through NewRef.
func (c *Cell[T]) SelfRef() Ref[T] {
	if c == nil {
		fault(newError(NullAccess, "self reference on nil cell"))
	}
	p := c.self.Value()
	if p == nil {
		fault(newError(NullAccess, "self reference on standalone cell"))
	}
	return Ref[T]{cell: p}
}

// Ref is a nullable handle to a Cell. The zero value is null.
// Copying a Ref aliases the same cell.
type Ref[T any] struct {
	cell *Cell[T]
}

// Identifiable is implemented by reference-like values whose equality is
// allocation identity rather than content
type Identifiable interface {
	Identity() uintptr
}

// NewRef allocates a cell holding value and returns the first handle to it
func NewRef[T any](value T) Ref[T] {
	c := &Cell[T]{value: value}
	c.self = weak.Make(c)
	return Ref[T]{cell: c}
}

// NullRef returns a null handle
func NullRef[T any]() Ref[T] {
	return Ref[T]{}
}

// IsNull reports whether the handle points at nothing
func (r Ref[T]) IsNull() bool {
	return r.cell == nil
}

// Cell returns the underlying cell, raising NullAccess on a null handle
func (r Ref[T]) Cell() *Cell[T] {
	if r.cell == nil {
		fault(newError(NullAccess, "dereference of null %s", r.typeName()))
	}
	return r.cell
}

// Read runs fn under the shared lock
func (r Ref[T]) Read(fn func(v T)) {
	r.Cell().Read(fn)
}

// Write runs fn under the exclusive lock
func (r Ref[T]) Write(fn func(v *T)) {
	r.Cell().Write(fn)
}

// Get returns a copy of the current value
func (r Ref[T]) Get() T {
	c := r.Cell()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set replaces the value
func (r Ref[T]) Set(value T) {
	c := r.Cell()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
}

// Update replaces the value with fn(old) atomically with respect to other writers
func (r Ref[T]) Update(fn func(v T) T) {
	c := r.Cell()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = fn(c.value)
}

// SelfRef is a shorthand for r.Cell().SelfRef()
func (r Ref[T]) SelfRef() Ref[T] {
	return r.Cell().SelfRef()
}

// Identity is the cell address, or 0 for a null handle
func (r Ref[T]) Identity() uintptr {
	return uintptr(unsafe.Pointer(r.cell))
}

// Same reports whether both handles alias the same cell. Two nulls are the same.
func (r Ref[T]) Same(other Ref[T]) bool {
	return r.cell == other.cell
}

func (r Ref[T]) typeName() string {
	var zero T
	return fmt.Sprintf("Ref[%T]", zero)
}

// SameIdentity compares two reference-like values of possibly different types
func SameIdentity(a, b Identifiable) bool {
	return a.Identity() == b.Identity()
}

// IdentityKey renders an identity as lower-case hex with no prefix, for use as
// a map key when objects are indexed by reference
func IdentityKey(v Identifiable) string {
	return fmt.Sprintf("%x", v.Identity())
}
