package hxrt

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

// MinRepeatInterval is the smallest interval Repeat accepts; shorter ones are
// raised to it so a repeating event cannot be permanently due
const MinRepeatInterval = time.Millisecond

// Callback is an event loop callback
type Callback func()

// EventID identifies a repeating event
type EventID uint64

// NextKind says when the event loop next has work
type NextKind int

const (
	NextNow     NextKind = iota // Something ran; call Progress again
	NextAt                      // The earliest repeating event fires at Next.At
	NextAnyTime                 // Promised work may arrive at any time
	NextNever                   // Nothing is scheduled or promised
)

func (k NextKind) String() string {
	switch k {
	case NextNow:
		return "now"
	case NextAt:
		return "at"
	case NextAnyTime:
		return "any-time"
	case NextNever:
		return "never"
	default:
		return "unknown"
	}
}

// Next is the result of Progress
type Next struct {
	Kind NextKind
	At   time.Time
}

func (n Next) String() string {
	if n.Kind == NextAt {
		return fmt.Sprintf("at(%s)", n.At.Format(time.RFC3339Nano))
	}
	return n.Kind.String()
}

type repeatingEvent struct {
	id        EventID
	next      time.Time
	interval  time.Duration
	callback  Callback
	cancelled bool
}

// EventLoop is a thread's cooperative scheduler for one-shot and repeating
// callbacks. Any thread may schedule work on it; callbacks run on whichever
// thread calls Progress or Loop, normally the owner.
type EventLoop struct {
	thread *Thread

	mu        sync.Mutex
	oneShot   []Callback
	promised  int
	repeating []*repeatingEvent // sorted by next
	firing    []*repeatingEvent // events being run by Progress
	nextID    EventID
	closed    bool
	waiters   waitQueue
}

func newEventLoop(t *Thread) *EventLoop {
	return &EventLoop{thread: t}
}

// lock takes the loop mutex, raising ThreadNotAlive once the owner has exited
func (l *EventLoop) lock() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		fault(newError(ThreadNotAlive, "event loop of thread %d is closed", l.thread.id))
	}
}

// RunOnce queues cb to run on the next Progress
func (l *EventLoop) RunOnce(cb Callback) {
	l.lock()
	defer l.mu.Unlock()
	l.oneShot = append(l.oneShot, cb)
	l.waiters.notifyAll()
}

// RunPromised queues cb and settles one earlier Promise
func (l *EventLoop) RunPromised(cb Callback) {
	l.lock()
	defer l.mu.Unlock()
	l.oneShot = append(l.oneShot, cb)
	l.promised--
	l.waiters.notifyAll()
}

// Promise announces that a callback will be queued later
func (l *EventLoop) Promise() {
	l.lock()
	defer l.mu.Unlock()
	l.promised++
}

// ResolvePromise withdraws a Promise without queueing anything
func (l *EventLoop) ResolvePromise() {
	l.lock()
	defer l.mu.Unlock()
	l.promised--
	l.waiters.notifyAll()
}

// Repeat runs cb every interval, first at now+interval. Intervals below
// MinRepeatInterval are raised to it.
func (l *EventLoop) Repeat(cb Callback, interval time.Duration) EventID {
	if interval < MinRepeatInterval {
		interval = MinRepeatInterval
	}
	l.lock()
	defer l.mu.Unlock()
	l.nextID++
	ev := &repeatingEvent{
		id:       l.nextID,
		next:     time.Now().Add(interval),
		interval: interval,
		callback: cb,
	}
	l.insertLocked(ev)
	l.waiters.notifyAll()
	l.thread.logger.DebugCat(CatEvent, "Scheduled repeating event %d every %s", ev.id, interval)
	return ev.id
}

// Cancel removes a repeating event, reporting whether it was scheduled.
// Cancelling from inside the event's own callback stops it being rescheduled.
func (l *EventLoop) Cancel(id EventID) bool {
	l.lock()
	defer l.mu.Unlock()
	for i, ev := range l.repeating {
		if ev.id == id {
			l.repeating = slices.Delete(l.repeating, i, i+1)
			l.waiters.notifyAll()
			return true
		}
	}
	for _, ev := range l.firing {
		if ev.id == id && !ev.cancelled {
			ev.cancelled = true
			return true
		}
	}
	return false
}

// insertLocked keeps repeating sorted; equal times go after existing entries
func (l *EventLoop) insertLocked(ev *repeatingEvent) {
	i := sort.Search(len(l.repeating), func(i int) bool {
		return l.repeating[i].next.After(ev.next)
	})
	l.repeating = slices.Insert(l.repeating, i, ev)
}

// Progress runs every due repeating event and every queued one-shot callback
// and reports when there will next be work
func (l *EventLoop) Progress() Next {
	now := time.Now()

	l.lock()
	n := 0
	for n < len(l.repeating) && !l.repeating[n].next.After(now) {
		n++
	}
	due := slices.Clone(l.repeating[:n])
	l.repeating = slices.Delete(l.repeating, 0, n)
	l.firing = due
	shots := l.oneShot
	l.oneShot = nil
	l.mu.Unlock()

	ran := l.runRepeating(due) + l.runOneShots(shots)
	if ran > 0 {
		return Next{Kind: NextNow}
	}

	l.lock()
	defer l.mu.Unlock()
	switch {
	case len(l.repeating) > 0:
		return Next{Kind: NextAt, At: l.repeating[0].next}
	case l.promised > 0:
		return Next{Kind: NextAnyTime}
	default:
		return Next{Kind: NextNever}
	}
}

func (l *EventLoop) runRepeating(due []*repeatingEvent) int {
	if len(due) == 0 {
		return 0
	}
	defer func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.firing = nil
		if l.closed {
			return
		}
		for _, ev := range due {
			if ev.cancelled {
				continue
			}
			ev.next = ev.next.Add(ev.interval)
			l.insertLocked(ev)
		}
	}()

	ran := 0
	for _, ev := range due {
		l.mu.Lock()
		skip := ev.cancelled
		l.mu.Unlock()
		if skip {
			continue
		}
		ran++
		l.thread.rt.metrics.recordCallback("repeat")
		ev.callback()
	}
	return ran
}

func (l *EventLoop) runOneShots(shots []Callback) int {
	i := 0
	defer func() {
		// A callback panicked: keep the ones that did not get to run
		if i < len(shots) {
			l.mu.Lock()
			l.oneShot = append(slices.Clone(shots[i:]), l.oneShot...)
			l.mu.Unlock()
		}
	}()
	for i < len(shots) {
		cb := shots[i]
		i++
		l.thread.rt.metrics.recordCallback("once")
		cb()
	}
	return len(shots)
}

// Wait blocks until work is due. It returns false at once when nothing is
// scheduled or promised.
func (l *EventLoop) Wait() bool {
	return l.wait(0, false)
}

// WaitTimeout is Wait bounded by d
func (l *EventLoop) WaitTimeout(d time.Duration) bool {
	return l.wait(d, true)
}

func (l *EventLoop) wait(timeout time.Duration, bounded bool) bool {
	l.lock()
	defer l.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for {
		if l.closed || !l.hasPendingLocked() {
			return false
		}
		now := time.Now()
		if l.hasDueLocked(now) {
			return true
		}

		sleep, limited := time.Duration(0), false
		if bounded {
			sleep, limited = deadline.Sub(now), true
			if sleep <= 0 {
				return false
			}
		}
		if len(l.repeating) > 0 {
			if untilNext := l.repeating[0].next.Sub(now); !limited || untilNext < sleep {
				sleep, limited = untilNext, true
			}
		}
		l.waiters.wait(&l.mu, sleep, limited)
	}
}

func (l *EventLoop) hasPendingLocked() bool {
	return len(l.oneShot) > 0 || len(l.repeating) > 0 || l.promised > 0
}

func (l *EventLoop) hasDueLocked(now time.Time) bool {
	return len(l.oneShot) > 0 || (len(l.repeating) > 0 && !l.repeating[0].next.After(now))
}

// Loop runs Progress until nothing is scheduled or promised, sleeping
// between repeating events and while promised work is outstanding
func (l *EventLoop) Loop() {
	for {
		next := l.Progress()
		switch next.Kind {
		case NextNow:
			continue
		case NextNever:
			return
		case NextAt:
			if d := time.Until(next.At); d > 0 {
				l.WaitTimeout(d)
			}
		case NextAnyTime:
			l.Wait()
		}
	}
}

// pending counts scheduled callbacks for inspection
func (l *EventLoop) pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.oneShot) + len(l.repeating)
}

// close drops all scheduled work; later operations raise ThreadNotAlive
func (l *EventLoop) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.oneShot = nil
	l.repeating = nil
	l.promised = 0
	l.waiters.notifyAll()
}
