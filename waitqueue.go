package hxrt

import (
	"container/list"
	"sync"
	"time"
)

// waitQueue is a condition variable whose waits can be bounded by a timeout.
// All methods must be called with the owning mutex held.
type waitQueue struct {
	waiters list.List // of chan struct{}
}

// wait releases mu, sleeps until notified or the timeout elapses (when
// bounded), then reacquires mu. Reports whether it was notified.
func (q *waitQueue) wait(mu *sync.Mutex, timeout time.Duration, bounded bool) bool {
	if bounded && timeout <= 0 {
		return false
	}

	ch := make(chan struct{}, 1)
	el := q.waiters.PushBack(ch)
	mu.Unlock()

	notified := true
	if bounded {
		timer := time.NewTimer(timeout)
		select {
		case <-ch:
		case <-timer.C:
			notified = false
		}
		timer.Stop()
	} else {
		<-ch
	}

	mu.Lock()
	if !notified {
		// A notify may have raced the timer
		select {
		case <-ch:
			notified = true
		default:
			q.waiters.Remove(el)
		}
	}
	return notified
}

// waitUntil waits until ready returns true. With bounded set it gives up once
// timeout has elapsed and returns the final value of ready.
func (q *waitQueue) waitUntil(mu *sync.Mutex, ready func() bool, timeout time.Duration, bounded bool) bool {
	if !bounded {
		for !ready() {
			q.wait(mu, 0, false)
		}
		return true
	}

	deadline := time.Now().Add(timeout)
	for !ready() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		q.wait(mu, remaining, true)
	}
	return true
}

func (q *waitQueue) notifyOne() {
	if el := q.waiters.Front(); el != nil {
		q.waiters.Remove(el)
		el.Value.(chan struct{}) <- struct{}{}
	}
}

func (q *waitQueue) notifyAll() {
	for el := q.waiters.Front(); el != nil; el = q.waiters.Front() {
		q.waiters.Remove(el)
		el.Value.(chan struct{}) <- struct{}{}
	}
}

func (q *waitQueue) len() int {
	return q.waiters.Len()
}
