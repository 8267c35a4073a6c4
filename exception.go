package hxrt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// nextExceptionID is shared by every runtime so ids never repeat in a process
var nextExceptionID atomic.Uint64

// Signal is the value carried by the panic that Throw starts. On a runtime
// thread it holds only the exception id and the payload stays in the thread's
// slot. A throw from a goroutine with no thread context carries its payload.
type Signal struct {
	ID uint64

	payload Dynamic
	carried bool
}

func (s *Signal) Error() string {
	if s.carried {
		return fmt.Sprintf("uncaught exception #%d: %s", s.ID, s.payload)
	}
	return fmt.Sprintf("uncaught exception #%d", s.ID)
}

// exceptionSlot holds the in-flight exception of one thread
type exceptionSlot struct {
	mu      sync.Mutex
	active  bool
	id      uint64
	payload Dynamic
}

func (s *exceptionSlot) store(id uint64, payload Dynamic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	s.id = id
	s.payload = payload
}

// take claims the payload if id is the active one
func (s *exceptionSlot) take(id uint64) (Dynamic, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.id != id {
		return Null(), false
	}
	payload := s.payload
	s.active = false
	s.id = 0
	s.payload = Null()
	return payload, true
}

func (s *exceptionSlot) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.id = 0
	s.payload = Null()
}

// activeID returns the in-flight id, 0 when idle
func (s *exceptionSlot) activeID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return 0
	}
	return s.id
}

// Throw raises value on the calling thread. It never returns.
func Throw(ctx context.Context, value interface{}) {
	id := nextExceptionID.Add(1)
	payload := Box(value)
	t, bound := boundThread(ctx)
	if !bound {
		rt := Default()
		rt.metrics.recordThrow()
		rt.logger.DebugCat(CatException, "Threw exception #%d (%s) without a thread context", id, payload.TypeName())
		panic(&Signal{ID: id, payload: payload, carried: true})
	}
	t.slot.store(id, payload)
	t.rt.metrics.recordThrow()

	if t.CatchDepth() == 0 && t.rt.config.ReportUncaught {
		t.logger.ErrorCat(CatException, "exception #%d raised outside any catch: %s", id, payload)
	} else {
		t.logger.DebugCat(CatException, "Threw exception #%d (%s)", id, payload.TypeName())
	}
	panic(&Signal{ID: id})
}

// Rethrow raises value again under a fresh id, for a catch that decided not
// to handle it
func Rethrow(ctx context.Context, value interface{}) {
	Throw(ctx, value)
}

// Result is the outcome of CatchAll: either the function's value or the
// recovered exception payload
type Result[R any] struct {
	value  R
	err    Dynamic
	id     uint64
	failed bool
}

// Value returns the function's result (zero value on failure)
func (r Result[R]) Value() R {
	return r.value
}

// Err returns the recovered payload, Null on success
func (r Result[R]) Err() Dynamic {
	return r.err
}

// IsSuccess reports whether the function returned normally
func (r Result[R]) IsSuccess() bool {
	return !r.failed
}

// ID is the id of the recovered exception; 0 on success and for faults
// raised without a thread context
func (r Result[R]) ID() uint64 {
	return r.id
}

// AsError converts the outcome to a Go error: nil on success, the payload
// itself when it is an error, otherwise a DomainError with its display text
func (r Result[R]) AsError() error {
	if !r.failed {
		return nil
	}
	if err, ok := As[error](r.err); ok {
		return err
	}
	return NewDomainError("%s", r.err)
}

// CatchAll runs fn and recovers any exception thrown on the calling thread
// while it runs. Panics that belong to another throw, or that are not
// exceptions at all, keep propagating. Only a runtime thread context counts
// towards CatchDepth.
func CatchAll[R any](ctx context.Context, fn func() R) (res Result[R]) {
	t, bound := boundThread(ctx)
	if bound {
		t.catchDepth.Add(1)
		defer t.catchDepth.Add(-1)
	} else {
		t = Default().main
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch sig := r.(type) {
		case *Signal:
			payload, ok := sig.payload, sig.carried
			if !ok && bound {
				payload, ok = t.slot.take(sig.ID)
			}
			if !ok {
				panic(r)
			}
			t.rt.metrics.recordCatch("throw")
			t.logger.DebugCat(CatException, "Caught exception #%d", sig.ID)
			res = Result[R]{err: payload, id: sig.ID, failed: true}
		case *Error:
			t.rt.metrics.recordCatch("fault")
			t.logger.DebugCat(CatException, "Caught fault: %s", sig)
			res = Result[R]{err: Box(sig), failed: true}
		default:
			panic(r)
		}
	}()

	return Result[R]{value: fn()}
}

// Try is CatchAll for functions without a result
func Try(ctx context.Context, fn func()) Result[struct{}] {
	return CatchAll(ctx, func() struct{} {
		fn()
		return struct{}{}
	})
}

// Catch runs fn and hands exceptions whose payload is a T to handler.
// Any other payload is rethrown unchanged for an outer catch.
func Catch[T, R any](ctx context.Context, fn func() R, handler func(T) R) R {
	res := CatchAll(ctx, fn)
	if res.IsSuccess() {
		return res.Value()
	}
	v, original, ok := Downcast[T](res.Err())
	if !ok {
		Rethrow(ctx, original)
	}
	return handler(v)
}
