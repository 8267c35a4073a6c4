package hxrt

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefAliasing(t *testing.T) {
	a := NewRef(10)
	b := a

	b.Set(11)
	assert.Equal(t, 11, a.Get())

	a.Write(func(v *int) { *v += 4 })
	assert.Equal(t, 15, b.Get())
	assert.True(t, a.Same(b))
	assert.Equal(t, a.Identity(), b.Identity())
}

func TestRefDistinctAllocations(t *testing.T) {
	a := NewRef("x")
	b := NewRef("x")
	assert.False(t, a.Same(b))
	assert.NotEqual(t, a.Identity(), b.Identity())
	assert.False(t, SameIdentity(a, b))
	assert.True(t, SameIdentity(a, a))
}

func TestNullRef(t *testing.T) {
	var zero Ref[int]
	assert.True(t, zero.IsNull())
	assert.True(t, NullRef[int]().IsNull())
	assert.Equal(t, uintptr(0), zero.Identity())
	assert.True(t, zero.Same(NullRef[int]()))

	assert.Equal(t, NullAccess, faultKind(t, func() { zero.Get() }))
	assert.Equal(t, NullAccess, faultKind(t, func() { zero.Set(1) }))
	assert.Equal(t, NullAccess, faultKind(t, func() { zero.Read(func(int) {}) }))
	assert.Equal(t, NullAccess, faultKind(t, func() { zero.Write(func(*int) {}) }))
	assert.Equal(t, NullAccess, faultKind(t, func() { zero.Cell() }))
}

type node struct {
	name string
	self Ref[node]
}

func TestSelfRef(t *testing.T) {
	r := NewRef(node{name: "root"})
	r.Write(func(n *node) {
		n.self = r.Cell().SelfRef()
	})

	self := r.Get().self
	require.False(t, self.IsNull())
	assert.True(t, self.Same(r))

	self.Update(func(n node) node {
		n.name = "renamed"
		return n
	})
	assert.Equal(t, "renamed", r.Get().name)
}

func TestSelfRefOnStandaloneCell(t *testing.T) {
	c := NewCell(3)
	assert.Equal(t, NullAccess, faultKind(t, func() { c.SelfRef() }))

	var nilCell *Cell[int]
	assert.Equal(t, NullAccess, faultKind(t, func() { nilCell.SelfRef() }))
}

func TestCellConcurrentWriters(t *testing.T) {
	r := NewRef(0)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Update(func(v int) int { return v + 1 })
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1600, r.Get())
}

func TestCellReadersShareLock(t *testing.T) {
	r := NewRef([]int{1, 2, 3})
	done := make(chan struct{})
	r.Read(func(outer []int) {
		// A second reader gets in while the first still holds the lock
		go func() {
			r.Read(func(inner []int) {
				assert.Equal(t, outer, inner)
			})
			close(done)
		}()
		<-done
	})
}

func TestIdentityKey(t *testing.T) {
	r := NewRef(1)
	key := IdentityKey(r)
	assert.NotEmpty(t, key)
	assert.NotContains(t, key, "0x")
	assert.Equal(t, key, IdentityKey(r))
	assert.Equal(t, "0", IdentityKey(NullRef[int]()))
}
