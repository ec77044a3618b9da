// Package metrics exports the robot's activity as prometheus metrics. A Metrics value is an
// observer for channels, actors, the RPC client, the interpreter and the subsystems' safety
// timers.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/message"
	"go.viam.com/rhsrobot/rpc"
	"go.viam.com/rhsrobot/script"
)

const namespace = "rhsrobot"

// Metrics holds every collector and the registry they are registered with.
type Metrics struct {
	registry *prometheus.Registry

	MessagesSent     *prometheus.CounterVec
	ReceiveTimeouts  *prometheus.CounterVec
	Ticks            *prometheus.CounterVec
	HandlerPanics    *prometheus.CounterVec
	Calls            *prometheus.CounterVec
	CallDuration     *prometheus.HistogramVec
	ScriptLines      *prometheus.CounterVec
	InterpreterState prometheus.Gauge
	SafetyTrips      *prometheus.CounterVec
}

// New returns metrics registered with a fresh registry, along with the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "channel", Name: "messages_sent_total",
			Help: "Messages enqueued per channel.",
		}, []string{"channel"}),
		ReceiveTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "channel", Name: "receive_timeouts_total",
			Help: "Receives that timed out per channel.",
		}, []string{"channel"}),
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "actor", Name: "ticks_total",
			Help: "Supervisor loop iterations per actor.",
		}, []string{"actor"}),
		HandlerPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "actor", Name: "handler_panics_total",
			Help: "Recovered handler panics per actor.",
		}, []string{"actor"}),
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "rpc", Name: "calls_total",
			Help: "Synchronous call outcomes per target channel.",
		}, []string{"target", "outcome"}),
		CallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "rpc", Name: "call_duration_seconds",
			Help:    "Time from request to reply or timeout.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"target"}),
		ScriptLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "script", Name: "lines_total",
			Help: "Executed script lines per outcome.",
		}, []string{"status"}),
		InterpreterState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "script", Name: "state",
			Help: "Interpreter state (0=idle, 1=loading, 2=running, 3=paused, 4=finished).",
		}),
		SafetyTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "subsystem", Name: "safety_trips_total",
			Help: "Times a safety timer forced a subsystem to neutral.",
		}, []string{"subsystem"}),
	}
	m.registry.MustRegister(
		m.MessagesSent, m.ReceiveTimeouts, m.Ticks, m.HandlerPanics, m.Calls, m.CallDuration,
		m.ScriptLines, m.InterpreterState, m.SafetyTrips,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry every collector is registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MessageSent counts a message enqueued on ch.
func (m *Metrics) MessageSent(ch string) {
	m.MessagesSent.WithLabelValues(ch).Inc()
}

// ReceiveTimedOut counts a receive on ch that timed out.
func (m *Metrics) ReceiveTimedOut(ch string) {
	m.ReceiveTimeouts.WithLabelValues(ch).Inc()
}

// Ticked counts a supervisor iteration.
func (m *Metrics) Ticked(actor string, _ message.Command) {
	m.Ticks.WithLabelValues(actor).Inc()
}

// HandlerPanicked counts a recovered panic.
func (m *Metrics) HandlerPanicked(actor string) {
	m.HandlerPanics.WithLabelValues(actor).Inc()
}

// CallFinished records a synchronous call. Stale replies are counted but carry no duration.
func (m *Metrics) CallFinished(target string, outcome rpc.Outcome, elapsed time.Duration) {
	m.Calls.WithLabelValues(target, string(outcome)).Inc()
	if outcome != rpc.OutcomeStale {
		m.CallDuration.WithLabelValues(target).Observe(elapsed.Seconds())
	}
}

// StateChanged sets the interpreter state gauge.
func (m *Metrics) StateChanged(state script.State) {
	m.InterpreterState.Set(float64(state))
}

// LineFinished counts a script line by status.
func (m *Metrics) LineFinished(status string) {
	m.ScriptLines.WithLabelValues(status).Inc()
}

// SafetyTripped counts a safety timer trip.
func (m *Metrics) SafetyTripped(subsystem string) {
	m.SafetyTrips.WithLabelValues(subsystem).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("serving metrics", "address", addr)
		errCh <- server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return errors.Wrap(err, "metrics server")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
