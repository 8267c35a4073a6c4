package hxrt

import (
	"context"
	"sync"
	"time"
)

// Condition pairs a non-reentrant internal mutex with a generation counter.
// Wait releases the mutex, sleeps until Signal or Broadcast moves the
// generation on, and takes the mutex back before returning. Like Mutex it
// needs a runtime thread context.
type Condition struct {
	mu          sync.Mutex
	owner       *Thread
	generation  uint64
	lockWaiters waitQueue
	condWaiters waitQueue
}

// NewCondition creates a condition with its mutex free
func NewCondition() *Condition {
	return &Condition{}
}

// Acquire takes the internal mutex. Acquiring it again from the owning
// thread succeeds without counting, so one Release frees it.
func (c *Condition) Acquire(ctx context.Context) {
	t := ownerFrom(ctx, "Condition.Acquire")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lockWaiters.waitUntil(&c.mu, c.freeFor(t), 0, false)
	c.owner = t
}

// TryAcquire is Acquire without blocking
func (c *Condition) TryAcquire(ctx context.Context) bool {
	t := ownerFrom(ctx, "Condition.TryAcquire")
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.freeFor(t)() {
		return false
	}
	c.owner = t
	return true
}

// Release frees the internal mutex. Raises MutexOwnershipViolation when the
// calling thread does not hold it.
func (c *Condition) Release(ctx context.Context) {
	t := ownerFrom(ctx, "Condition.Release")
	c.mu.Lock()
	if c.owner != t {
		c.mu.Unlock()
		Throw(ctx, newError(MutexOwnershipViolation, "Condition.Release called by non-owner thread %d", t.id))
	}
	c.owner = nil
	c.lockWaiters.notifyOne()
	c.mu.Unlock()
}

// Wait blocks until the next Signal or Broadcast. The caller must hold the
// internal mutex, else MutexOwnershipViolation is raised.
func (c *Condition) Wait(ctx context.Context) {
	c.wait(ctx, 0, false)
}

// WaitTimeout is Wait bounded by d. It reports whether a signal arrived; the
// mutex is held again on return either way.
func (c *Condition) WaitTimeout(ctx context.Context, d time.Duration) bool {
	return c.wait(ctx, d, true)
}

func (c *Condition) wait(ctx context.Context, timeout time.Duration, bounded bool) bool {
	t := ownerFrom(ctx, "Condition.Wait")
	c.mu.Lock()
	if c.owner != t {
		c.mu.Unlock()
		Throw(ctx, newError(MutexOwnershipViolation, "Condition.Wait called without holding the mutex (thread %d)", t.id))
	}
	defer c.mu.Unlock()

	gen := c.generation
	c.owner = nil
	c.lockWaiters.notifyOne()

	signalled := c.condWaiters.waitUntil(&c.mu, func() bool { return c.generation != gen }, timeout, bounded)

	c.lockWaiters.waitUntil(&c.mu, c.freeFor(t), 0, false)
	c.owner = t
	return signalled
}

// Signal wakes one waiter
func (c *Condition) Signal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.condWaiters.notifyOne()
}

// Broadcast wakes every waiter
func (c *Condition) Broadcast() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.condWaiters.notifyAll()
}

func (c *Condition) freeFor(t *Thread) func() bool {
	return func() bool { return c.owner == nil || c.owner == t }
}
