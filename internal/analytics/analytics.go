// Package analytics records screen sessions and message traffic as
// Prometheus metrics.
package analytics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRegistry returns a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Tracker brackets screen resume/pause as analytics sessions.
type Tracker struct {
	sessions *prometheus.CounterVec   // labels: screen
	active   *prometheus.GaugeVec     // labels: screen
	duration *prometheus.HistogramVec // labels: screen

	mu      sync.Mutex
	started map[string][]time.Time
	now     func() time.Time
	lg      *zap.Logger
}

func NewTracker(reg prometheus.Registerer, lg *zap.Logger) *Tracker {
	t := &Tracker{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imkit_screen_sessions_total",
			Help: "Screen sessions started (resume).",
		}, []string{"screen"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "imkit_screen_sessions_active",
			Help: "Screens currently resumed.",
		}, []string{"screen"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imkit_screen_session_seconds",
			Help:    "Time between resume and pause.",
			Buckets: []float64{0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"screen"}),
		started: make(map[string][]time.Time),
		now:     time.Now,
		lg:      lg.Named("analytics"),
	}
	reg.MustRegister(t.sessions, t.active, t.duration)
	return t
}

// OnResume begins a session for screen.
func (t *Tracker) OnResume(screen string) {
	t.mu.Lock()
	t.started[screen] = append(t.started[screen], t.now())
	t.mu.Unlock()

	t.sessions.WithLabelValues(screen).Inc()
	t.active.WithLabelValues(screen).Inc()
	t.lg.Debug("session begin", zap.String("screen", screen))
}

// OnPause ends the most recent session for screen. A pause without a
// matching resume is logged and ignored.
func (t *Tracker) OnPause(screen string) {
	t.mu.Lock()
	stack := t.started[screen]
	if len(stack) == 0 {
		t.mu.Unlock()
		t.lg.Warn("session end without begin", zap.String("screen", screen))
		return
	}
	began := stack[len(stack)-1]
	t.started[screen] = stack[:len(stack)-1]
	t.mu.Unlock()

	elapsed := t.now().Sub(began)
	t.active.WithLabelValues(screen).Dec()
	t.duration.WithLabelValues(screen).Observe(elapsed.Seconds())
	t.lg.Debug("session end", zap.String("screen", screen), zap.Duration("elapsed", elapsed))
}

// AppMetrics counts traffic through the event adapter.
type AppMetrics struct {
	Messages         *prometheus.CounterVec // labels: direction=received|sent, kind
	Broadcasts       prometheus.Counter
	ConnectionStatus *prometheus.CounterVec // labels: status
}

func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imkit_messages_total",
			Help: "Messages seen by the event adapter.",
		}, []string{"direction", "kind"}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imkit_broadcasts_total",
			Help: "Unread-count broadcasts sent.",
		}),
		ConnectionStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imkit_connection_status_total",
			Help: "Connection status transitions.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.Messages, m.Broadcasts, m.ConnectionStatus)
	return m
}
