package hxrt

import (
	"context"
	"sync"
)

// Mutex is a reentrant mutex owned by a runtime thread. The owner may acquire
// it again; it is free once every acquisition has been released.
// Which blocked thread gets it next is unspecified. Every method raises
// DomainError when ctx is not bound to a runtime thread.
type Mutex struct {
	mu      sync.Mutex
	owner   *Thread
	depth   int
	waiters waitQueue
}

// NewMutex creates an unowned mutex
func NewMutex() *Mutex {
	return &Mutex{}
}

// Acquire takes the mutex for the calling thread, blocking while another
// thread owns it
func (m *Mutex) Acquire(ctx context.Context) {
	t := ownerFrom(ctx, "Mutex.Acquire")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waiters.waitUntil(&m.mu, func() bool { return m.owner == nil || m.owner == t }, 0, false)
	m.owner = t
	m.depth++
}

// TryAcquire is Acquire without blocking
func (m *Mutex) TryAcquire(ctx context.Context) bool {
	t := ownerFrom(ctx, "Mutex.TryAcquire")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != nil && m.owner != t {
		return false
	}
	m.owner = t
	m.depth++
	return true
}

// Release undoes one acquisition. Raises MutexOwnershipViolation when the
// calling thread does not own the mutex.
func (m *Mutex) Release(ctx context.Context) {
	t := ownerFrom(ctx, "Mutex.Release")
	m.mu.Lock()
	if m.owner != t {
		m.mu.Unlock()
		Throw(ctx, newError(MutexOwnershipViolation, "Mutex.Release called by non-owner thread %d", t.id))
	}
	m.depth--
	if m.depth == 0 {
		m.owner = nil
		m.waiters.notifyOne()
	}
	m.mu.Unlock()
}

// Depth returns the owner's acquisition count, 0 when unowned
func (m *Mutex) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depth
}

// Owner returns the owning thread id and whether the mutex is held
func (m *Mutex) Owner() (ThreadID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner == nil {
		return 0, false
	}
	return m.owner.id, true
}
