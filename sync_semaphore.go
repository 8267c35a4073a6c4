package hxrt

import (
	"time"
)

// Semaphore is a counting semaphore
type Semaphore struct {
	p permits
}

// NewSemaphore creates a semaphore with n permits. Negative n means zero.
func NewSemaphore(n int) *Semaphore {
	s := &Semaphore{}
	s.p.count = max(n, 0)
	return s
}

// Acquire blocks until a permit is available and takes it
func (s *Semaphore) Acquire() {
	s.p.take(0, false)
}

// TryAcquire takes a permit, waiting up to timeout for one. A non-positive
// timeout fails at once when no permit is free.
func (s *Semaphore) TryAcquire(timeout time.Duration) bool {
	return s.p.take(timeout, true)
}

// Release returns a permit and wakes one waiter
func (s *Semaphore) Release() {
	s.p.give()
}

// Available returns the number of free permits
func (s *Semaphore) Available() int {
	return s.p.available()
}
