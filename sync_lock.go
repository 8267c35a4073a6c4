package hxrt

import (
	"sync"
	"time"
)

// permits is a counting gate shared by Lock and Semaphore
type permits struct {
	mu      sync.Mutex
	count   int
	waiters waitQueue
}

func (p *permits) take(timeout time.Duration, bounded bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.waiters.waitUntil(&p.mu, func() bool { return p.count > 0 }, timeout, bounded) {
		return false
	}
	p.count--
	return true
}

func (p *permits) give() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	p.waiters.notifyOne()
}

func (p *permits) available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Lock is a counting signal that starts empty: Wait consumes one Release.
// It is not reentrant; a thread that waits on a Lock it must release itself
// deadlocks.
type Lock struct {
	p permits
}

// NewLock creates a lock with no releases banked
func NewLock() *Lock {
	return &Lock{}
}

// Wait blocks until a release is available and consumes it
func (l *Lock) Wait() {
	l.p.take(0, false)
}

// WaitTimeout is Wait bounded by d. A non-positive d only succeeds when a
// release is already available.
func (l *Lock) WaitTimeout(d time.Duration) bool {
	return l.p.take(d, true)
}

// Release banks one release and wakes one waiter
func (l *Lock) Release() {
	l.p.give()
}

// Available returns the number of banked releases
func (l *Lock) Available() int {
	return l.p.available()
}
