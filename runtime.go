package hxrt

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Runtime is the thread registry. It owns the thread table, the logger and
// the metrics; the initial thread (id 0) is registered for its whole life.
type Runtime struct {
	config  *Config
	logger  *Logger
	metrics *Metrics

	mu      sync.RWMutex
	threads map[ThreadID]*Thread
	nextID  ThreadID
	closed  bool
	main    *Thread
	running sync.WaitGroup
}

var (
	defaultOnce    sync.Once
	defaultRuntime *Runtime
)

// Default returns the process-wide runtime, creating it on first use
func Default() *Runtime {
	defaultOnce.Do(func() {
		defaultRuntime = New(DefaultConfig())
	})
	return defaultRuntime
}

// New creates a runtime with its own thread table. A nil config means defaults.
func New(config *Config) *Runtime {
	if config == nil {
		config = DefaultConfig()
	}
	return NewWithLogger(config, newLoggerFromConfig(config))
}

// NewWithLogger is New with a caller-supplied logger; the config's logging
// fields are ignored
func NewWithLogger(config *Config, logger *Logger) *Runtime {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = newLoggerFromConfig(config)
	}
	r := &Runtime{
		config:  config,
		logger:  logger,
		metrics: NewMetrics(),
		threads: make(map[ThreadID]*Thread),
		nextID:  MainThreadID + 1,
	}
	r.main = newThread(r, MainThreadID)
	r.threads[MainThreadID] = r.main
	return r
}

// Config returns the runtime configuration
func (r *Runtime) Config() *Config {
	return r.config
}

// Logger returns the runtime logger
func (r *Runtime) Logger() *Logger {
	return r.logger
}

// Metrics returns the runtime collectors
func (r *Runtime) Metrics() *Metrics {
	return r.metrics
}

// Main returns the initial thread
func (r *Runtime) Main() *Thread {
	return r.main
}

// MainContext returns a context bound to the initial thread
func (r *Runtime) MainContext() context.Context {
	return WithThread(context.Background(), r.main)
}

// Current returns the thread ctx identifies if it belongs to this runtime,
// otherwise the initial thread
func (r *Runtime) Current(ctx context.Context) *Thread {
	if ctx != nil {
		if t, ok := ctx.Value(threadKey{}).(*Thread); ok && t != nil && t.rt == r {
			return t
		}
	}
	return r.main
}

// ThreadID returns the id of the calling thread
func (r *Runtime) ThreadID(ctx context.Context) ThreadID {
	return r.Current(ctx).id
}

// Thread looks up a live thread
func (r *Runtime) Thread(id ThreadID) (*Thread, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.threads[id]
	return t, ok
}

// Threads snapshots every live thread, ordered by id
func (r *Runtime) Threads() []ThreadInfo {
	r.mu.RLock()
	threads := make([]*Thread, 0, len(r.threads))
	for _, t := range r.threads {
		threads = append(threads, t)
	}
	r.mu.RUnlock()

	infos := make([]ThreadInfo, 0, len(threads))
	for _, t := range threads {
		infos = append(infos, t.Info())
	}
	slices.SortFunc(infos, func(a, b ThreadInfo) int {
		return int(a.ID - b.ID)
	})
	return infos
}

// ThreadCount returns the number of live threads, the initial thread included
func (r *Runtime) ThreadCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.threads)
}

// Spawn starts job on a new thread and returns its id. The thread is
// registered before job starts, so messages sent right after Spawn returns
// are never lost.
func (r *Runtime) Spawn(job Job) ThreadID {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		fault(NewDomainError("spawn on closed runtime"))
	}
	id := r.nextID
	r.nextID++
	t := newThread(r, id)
	r.threads[id] = t
	r.running.Add(1)
	r.mu.Unlock()

	r.metrics.recordSpawn()
	r.logger.DebugCat(CatThread, "Registered thread %d", id)

	go r.run(t, job)
	return id
}

// SpawnWithEventLoop is Spawn followed by running the thread's event loop
// until it has nothing left to do
func (r *Runtime) SpawnWithEventLoop(job Job) ThreadID {
	return r.Spawn(func(ctx context.Context) {
		job(ctx)
		Current(ctx).EventLoop().Loop()
	})
}

func (r *Runtime) run(t *Thread, job Job) {
	defer r.running.Done()
	defer r.deregister(t)
	defer t.recoverUncaught()
	job(WithThread(context.Background(), t))
}

func (r *Runtime) deregister(t *Thread) {
	r.mu.Lock()
	delete(r.threads, t.id)
	r.mu.Unlock()

	t.slot.clear()
	t.loop.close()
	dropped := t.mailbox.close()
	r.metrics.recordExit(time.Since(t.started), dropped)
	if dropped > 0 {
		t.logger.WarnCat(CatMessage, "thread %d exited with %d unread messages", t.id, dropped)
	}
	r.logger.DebugCat(CatThread, "Unregistered thread %d", t.id)
}

// Send queues value on a thread's mailbox. Raises ThreadNotAlive when the
// thread has exited or never existed.
func (r *Runtime) Send(ctx context.Context, id ThreadID, value interface{}) {
	t, ok := r.Thread(id)
	if !ok {
		Throw(ctx, newError(ThreadNotAlive, "thread %d is not alive", id))
	}
	depth, ok := t.mailbox.push(Box(value))
	if !ok {
		Throw(ctx, newError(ThreadNotAlive, "thread %d is not alive", id))
	}
	r.metrics.recordSend()
	r.logger.TraceCat(CatMessage, "Sent message to thread %d (depth %d)", id, depth)
	if warn := r.config.MailboxWarnDepth; warn > 0 && depth == warn {
		r.logger.WarnCat(CatMessage, "mailbox of thread %d reached %d messages", id, depth)
	}
}

// Receive takes the next message for the calling thread. Without blocking it
// returns false when the mailbox is empty.
func (r *Runtime) Receive(ctx context.Context, blocking bool) (Dynamic, bool) {
	msg, ok := r.Current(ctx).mailbox.pop(blocking, 0, false)
	if ok {
		r.metrics.recordReceive()
	}
	return msg, ok
}

// ReceiveTimeout waits up to d for a message
func (r *Runtime) ReceiveTimeout(ctx context.Context, d time.Duration) (Dynamic, bool) {
	msg, ok := r.Current(ctx).mailbox.pop(true, d, true)
	if ok {
		r.metrics.recordReceive()
	}
	return msg, ok
}

// EventLoop returns the event loop of a live thread, raising ThreadNotAlive
// otherwise
func (r *Runtime) EventLoop(ctx context.Context, id ThreadID) *EventLoop {
	t, ok := r.Thread(id)
	if !ok {
		Throw(ctx, newError(ThreadNotAlive, "thread %d is not alive", id))
	}
	return t.loop
}

// Wait blocks until every spawned thread has exited
func (r *Runtime) Wait() {
	r.running.Wait()
}

// Close stops new spawns and waits for running threads until ctx is done
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.DebugCat(CatThread, "Runtime closed")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("runtime close: %d threads still running: %w", r.ThreadCount()-1, ctx.Err())
	}
}
