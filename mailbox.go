package hxrt

import (
	"sync"
	"time"
)

// mailbox is a thread's FIFO message queue
type mailbox struct {
	mu       sync.Mutex
	messages []Dynamic
	waiters  waitQueue
	closed   bool
}

func newMailbox() *mailbox {
	return &mailbox{}
}

// push appends a message, wakes one receiver and returns the new depth.
// It reports false once the mailbox is closed.
func (m *mailbox) push(msg Dynamic) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, false
	}
	m.messages = append(m.messages, msg)
	m.waiters.notifyOne()
	return len(m.messages), true
}

// pop takes the oldest message. When block is false it returns at once;
// otherwise it waits, up to timeout when bounded.
func (m *mailbox) pop(block bool, timeout time.Duration, bounded bool) (Dynamic, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.messages) == 0 {
		if !block {
			return Null(), false
		}
		ready := func() bool { return len(m.messages) > 0 || m.closed }
		if !m.waiters.waitUntil(&m.mu, ready, timeout, bounded) || len(m.messages) == 0 {
			return Null(), false
		}
	}

	msg := m.messages[0]
	m.messages[0] = Dynamic{}
	m.messages = m.messages[1:]
	return msg, true
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// close refuses further messages, discards the queued ones and returns how
// many there were
func (m *mailbox) close() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	n := len(m.messages)
	m.messages = nil
	m.waiters.notifyAll()
	return n
}
