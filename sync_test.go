package hxrt

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockWaitTimeout(t *testing.T) {
	l := NewLock()

	began := time.Now()
	assert.False(t, l.WaitTimeout(0), "non-positive timeout fails at once")
	assert.False(t, l.WaitTimeout(-time.Second))
	assert.Less(t, time.Since(began), 50*time.Millisecond)

	go func() {
		time.Sleep(10 * time.Millisecond)
		l.Release()
	}()
	assert.True(t, l.WaitTimeout(2*time.Second))
	assert.Equal(t, 0, l.Available())

	l.Release()
	l.Release()
	assert.Equal(t, 2, l.Available())
	l.Wait()
	assert.True(t, l.WaitTimeout(0))
	assert.False(t, l.WaitTimeout(10*time.Millisecond))
}

func TestSemaphore(t *testing.T) {
	s := NewSemaphore(2)
	assert.True(t, s.TryAcquire(0))
	s.Acquire()
	assert.False(t, s.TryAcquire(0))
	assert.False(t, s.TryAcquire(10*time.Millisecond))

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Release()
	}()
	assert.True(t, s.TryAcquire(2*time.Second))
	assert.Equal(t, 0, s.Available())

	assert.Equal(t, 0, NewSemaphore(-3).Available())
}

func TestSemaphoreBoundsConcurrency(t *testing.T) {
	rt, _ := newTestRuntime(t)
	s := NewSemaphore(2)
	var active, peak atomic.Int32

	for i := 0; i < 8; i++ {
		rt.Spawn(func(ctx context.Context) {
			s.Acquire()
			defer s.Release()
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
		})
	}
	rt.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestMutexReentrancy(t *testing.T) {
	_, ctx := newTestRuntime(t)
	m := NewMutex()

	m.Acquire(ctx)
	m.Acquire(ctx)
	assert.Equal(t, 2, m.Depth())
	owner, held := m.Owner()
	assert.True(t, held)
	assert.Equal(t, MainThreadID, owner)

	m.Release(ctx)
	m.Release(ctx)
	assert.Equal(t, 0, m.Depth())
	_, held = m.Owner()
	assert.False(t, held)

	res := Try(ctx, func() { m.Release(ctx) })
	require.False(t, res.IsSuccess())
	assert.True(t, errors.Is(res.AsError(), ErrMutexOwnershipViolation))
}

func TestMutexExcludesOtherThreads(t *testing.T) {
	rt, ctx := newTestRuntime(t)
	mainID := rt.ThreadID(ctx)
	m := NewMutex()
	m.Acquire(ctx)

	rt.Spawn(func(ctx context.Context) {
		rt.Send(ctx, mainID, m.TryAcquire(ctx))
		res := Try(ctx, func() { m.Release(ctx) })
		rt.Send(ctx, mainID, res.AsError())
		m.Acquire(ctx)
		rt.Send(ctx, mainID, "acquired")
		m.Release(ctx)
	})

	assert.Equal(t, "false", receiveWithin(t, rt, ctx, 2*time.Second).String())
	err := MustDowncast[error](receiveWithin(t, rt, ctx, 2*time.Second))
	assert.True(t, errors.Is(err, ErrMutexOwnershipViolation))

	_, ok := rt.ReceiveTimeout(ctx, 20*time.Millisecond)
	assert.False(t, ok, "worker must block while main owns the mutex")

	m.Release(ctx)
	assert.Equal(t, "acquired", receiveWithin(t, rt, ctx, 2*time.Second).String())
	rt.Wait()
	assert.Equal(t, 0, m.Depth())
}

func TestConditionSignal(t *testing.T) {
	rt, ctx := newTestRuntime(t)
	mainID := rt.ThreadID(ctx)
	c := NewCondition()
	ready := NewRef(false)

	rt.Spawn(func(ctx context.Context) {
		c.Acquire(ctx)
		for !ready.Get() {
			rt.Send(ctx, mainID, "waiting")
			c.Wait(ctx)
		}
		c.Release(ctx)
		rt.Send(ctx, mainID, "woke")
	})

	require.Equal(t, "waiting", receiveWithin(t, rt, ctx, 2*time.Second).String())
	c.Acquire(ctx)
	ready.Set(true)
	c.Signal()
	c.Release(ctx)

	assert.Equal(t, "woke", receiveWithin(t, rt, ctx, 2*time.Second).String())
}

func TestConditionBroadcast(t *testing.T) {
	rt, ctx := newTestRuntime(t)
	mainID := rt.ThreadID(ctx)
	c := NewCondition()
	const waiters = 3

	for i := 0; i < waiters; i++ {
		rt.Spawn(func(ctx context.Context) {
			c.Acquire(ctx)
			rt.Send(ctx, mainID, "waiting")
			c.Wait(ctx)
			c.Release(ctx)
			rt.Send(ctx, mainID, "woke")
		})
	}
	for i := 0; i < waiters; i++ {
		require.Equal(t, "waiting", receiveWithin(t, rt, ctx, 2*time.Second).String())
	}

	// Every waiter released the mutex inside Wait, so main can take it
	c.Acquire(ctx)
	c.Broadcast()
	c.Release(ctx)

	for i := 0; i < waiters; i++ {
		assert.Equal(t, "woke", receiveWithin(t, rt, ctx, 2*time.Second).String())
	}
}

func TestConditionOwnership(t *testing.T) {
	rt, ctx := newTestRuntime(t)
	c := NewCondition()

	res := Try(ctx, func() { c.Wait(ctx) })
	assert.True(t, errors.Is(res.AsError(), ErrMutexOwnershipViolation))
	res = Try(ctx, func() { c.Release(ctx) })
	assert.True(t, errors.Is(res.AsError(), ErrMutexOwnershipViolation))

	assert.True(t, c.TryAcquire(ctx))
	assert.True(t, c.TryAcquire(ctx), "owner may acquire again")

	result := make(chan bool, 1)
	rt.Spawn(func(ctx context.Context) {
		result <- c.TryAcquire(ctx)
	})
	assert.False(t, <-result)

	// Not counted: a single release frees it
	c.Release(ctx)
	rt.Spawn(func(ctx context.Context) {
		ok := c.TryAcquire(ctx)
		if ok {
			c.Release(ctx)
		}
		result <- ok
	})
	assert.True(t, <-result)
}

func TestConditionWaitTimeout(t *testing.T) {
	_, ctx := newTestRuntime(t)
	c := NewCondition()
	c.Acquire(ctx)

	assert.False(t, c.WaitTimeout(ctx, 10*time.Millisecond))
	// Mutex is held again after a timed-out wait
	c.Release(ctx)
}

func TestMutexNeedsThreadContext(t *testing.T) {
	m := NewMutex()
	c := NewCondition()
	bare := context.Background()

	assert.Equal(t, DomainError, faultKind(t, func() { m.Acquire(bare) }))
	assert.Equal(t, DomainError, faultKind(t, func() { m.TryAcquire(bare) }))
	assert.Equal(t, DomainError, faultKind(t, func() { m.Release(bare) }))
	assert.Equal(t, DomainError, faultKind(t, func() { c.Acquire(bare) }))
	assert.Equal(t, DomainError, faultKind(t, func() { c.Wait(bare) }))
	_, held := m.Owner()
	assert.False(t, held)

	// A bound holder still excludes everyone else
	_, ctx := newTestRuntime(t)
	m.Acquire(ctx)
	res := Try(bare, func() { m.TryAcquire(bare) })
	require.False(t, res.IsSuccess())
	assert.ErrorIs(t, res.AsError(), ErrDomain)
	assert.Equal(t, 1, m.Depth())
	m.Release(ctx)
}
