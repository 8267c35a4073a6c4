package hxrt

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of one runtime. Each runtime owns its registry
// so several runtimes (and tests) can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	threadsSpawned   prometheus.Counter
	threadsLive      prometheus.Gauge
	threadDuration   prometheus.Histogram
	messagesSent     prometheus.Counter
	mailboxDepth     prometheus.Gauge
	exceptionsThrown prometheus.Counter
	exceptionsCaught *prometheus.CounterVec
	eventCallbacks   *prometheus.CounterVec
}

// NewMetrics creates and registers the runtime collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		threadsSpawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hxrt",
			Subsystem: "thread",
			Name:      "spawned_total",
			Help:      "Threads started by the runtime.",
		}),
		threadsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hxrt",
			Subsystem: "thread",
			Name:      "live",
			Help:      "Spawned threads that have not exited.",
		}),
		threadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hxrt",
			Subsystem: "thread",
			Name:      "duration_seconds",
			Help:      "Lifetime of spawned threads in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hxrt",
			Subsystem: "mailbox",
			Name:      "messages_sent_total",
			Help:      "Messages delivered to thread mailboxes.",
		}),
		mailboxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hxrt",
			Subsystem: "mailbox",
			Name:      "queued_messages",
			Help:      "Messages waiting in all mailboxes.",
		}),
		exceptionsThrown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hxrt",
			Subsystem: "exception",
			Name:      "thrown_total",
			Help:      "Exceptions thrown through the exception channel.",
		}),
		exceptionsCaught: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hxrt",
			Subsystem: "exception",
			Name:      "caught_total",
			Help:      "Exceptions recovered, by origin.",
		}, []string{"origin"}),
		eventCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hxrt",
			Subsystem: "event",
			Name:      "callbacks_total",
			Help:      "Event loop callbacks run, by kind.",
		}, []string{"kind"}),
	}
	m.Registry.MustRegister(
		m.threadsSpawned, m.threadsLive, m.threadDuration,
		m.messagesSent, m.mailboxDepth,
		m.exceptionsThrown, m.exceptionsCaught,
		m.eventCallbacks,
	)
	return m
}

func (m *Metrics) recordSpawn() {
	m.threadsSpawned.Inc()
	m.threadsLive.Inc()
}

func (m *Metrics) recordExit(lifetime time.Duration, dropped int) {
	m.threadsLive.Dec()
	m.threadDuration.Observe(lifetime.Seconds())
	m.mailboxDepth.Sub(float64(dropped))
}

func (m *Metrics) recordSend() {
	m.messagesSent.Inc()
	m.mailboxDepth.Inc()
}

func (m *Metrics) recordReceive() {
	m.mailboxDepth.Dec()
}

func (m *Metrics) recordThrow() {
	m.exceptionsThrown.Inc()
}

// recordCatch counts a recovery; origin is "throw" or "fault"
func (m *Metrics) recordCatch(origin string) {
	m.exceptionsCaught.WithLabelValues(origin).Inc()
}

// recordCallback counts a callback run; kind is "once" or "repeat"
func (m *Metrics) recordCallback(kind string) {
	m.eventCallbacks.WithLabelValues(kind).Inc()
}
