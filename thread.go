package hxrt

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ThreadID identifies a runtime thread. 0 is the initial thread.
type ThreadID int64

// MainThreadID is the id of the permanent initial thread
const MainThreadID ThreadID = 0

// Job is the body of a spawned thread. ctx identifies the thread to the
// exception channel, mailbox and sync primitives.
type Job func(ctx context.Context)

// Thread is the per-thread record: mailbox, event loop and exception slot
type Thread struct {
	id         ThreadID
	rt         *Runtime
	traceID    string
	started    time.Time
	logger     *Logger
	mailbox    *mailbox
	loop       *EventLoop
	slot       exceptionSlot
	catchDepth atomic.Int32
}

// ThreadInfo is a point-in-time view of a thread for inspection
type ThreadInfo struct {
	ID          ThreadID  `json:"id"`
	TraceID     string    `json:"trace_id"`
	Started     time.Time `json:"started"`
	Mailbox     int       `json:"mailbox"`
	Events      int       `json:"events"`
	CatchDepth  int       `json:"catch_depth"`
	ExceptionID uint64    `json:"exception_id,omitempty"`
}

func newThread(rt *Runtime, id ThreadID) *Thread {
	t := &Thread{
		id:      id,
		rt:      rt,
		traceID: uuid.NewString(),
		started: time.Now(),
		mailbox: newMailbox(),
	}
	t.logger = rt.logger.WithThread(id, t.traceID)
	t.loop = newEventLoop(t)
	return t
}

// ID returns the thread id
func (t *Thread) ID() ThreadID {
	return t.id
}

// TraceID returns the uuid attached to this thread's log lines
func (t *Thread) TraceID() string {
	return t.traceID
}

// Runtime returns the runtime that owns the thread
func (t *Thread) Runtime() *Runtime {
	return t.rt
}

// EventLoop returns the thread's event loop
func (t *Thread) EventLoop() *EventLoop {
	return t.loop
}

// CatchDepth is the number of CatchAll frames open on this thread
func (t *Thread) CatchDepth() int {
	return int(t.catchDepth.Load())
}

// Logger returns the thread-tagged logger
func (t *Thread) Logger() *Logger {
	return t.logger
}

// Info snapshots the thread for inspection
func (t *Thread) Info() ThreadInfo {
	return ThreadInfo{
		ID:          t.id,
		TraceID:     t.traceID,
		Started:     t.started,
		Mailbox:     t.mailbox.len(),
		Events:      t.loop.pending(),
		CatchDepth:  t.CatchDepth(),
		ExceptionID: t.slot.activeID(),
	}
}

type threadKey struct{}

// WithThread returns a context that identifies t as the calling thread
func WithThread(ctx context.Context, t *Thread) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, threadKey{}, t)
}

// Current returns the thread identified by ctx. Code that is not running on
// a spawned thread is the initial thread of the default runtime.
func Current(ctx context.Context) *Thread {
	return threadFrom(ctx)
}

func threadFrom(ctx context.Context) *Thread {
	if t, ok := boundThread(ctx); ok {
		return t
	}
	return Default().main
}

// boundThread returns the thread ctx was bound to by the runtime, if any
func boundThread(ctx context.Context) (*Thread, bool) {
	if ctx == nil {
		return nil, false
	}
	t, ok := ctx.Value(threadKey{}).(*Thread)
	return t, ok && t != nil
}

// ownerFrom is the owning thread for Mutex and Condition. Goroutines the
// runtime did not bind cannot be told apart, so they may not own a lock.
func ownerFrom(ctx context.Context, op string) *Thread {
	t, ok := boundThread(ctx)
	if !ok {
		fault(NewDomainError("%s needs a runtime thread context", op))
	}
	return t
}

// recoverUncaught is deferred at the top of every spawned thread. Exceptions
// and faults end the thread; any other panic is a host fault and keeps going.
func (t *Thread) recoverUncaught() {
	r := recover()
	if r == nil {
		return
	}
	switch sig := r.(type) {
	case *Signal:
		payload, ok := sig.payload, sig.carried
		if !ok {
			payload, ok = t.slot.take(sig.ID)
		}
		if !ok {
			panic(r)
		}
		t.logger.DebugCat(CatThread, "Thread %d ended by uncaught exception #%d: %s", t.id, sig.ID, payload)
	case *Error:
		if t.rt.config.ReportUncaught {
			t.logger.ErrorCat(CatThread, "thread %d ended by uncaught fault: %s", t.id, sig)
		}
	default:
		panic(r)
	}
}
