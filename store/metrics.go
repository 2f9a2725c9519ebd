package store

import (
	"context"
	"errors"
	"time"

	"github.com/brettbedarf/zkfs"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for store calls and session churn.
// All methods are nil-safe: calls on a nil *Metrics are no-ops.
type Metrics struct {
	// OpsTotal counts store calls, labeled by operation and result.
	// Result values: "ok", "not_found", "unavailable", "invalid", "denied", "error".
	OpsTotal *prometheus.CounterVec

	// OpDuration observes store call latency in seconds by operation.
	OpDuration *prometheus.HistogramVec

	// ReconnectsTotal counts sessions replaced by the keeper.
	ReconnectsTotal prometheus.Counter
}

// NewMetrics creates and registers store metrics with the given Prometheus
// registerer. If reg is nil, metrics are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zkfs",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of backing store calls",
		}, []string{"op", "result"}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "zkfs",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Latency of backing store calls",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"op"}),
		ReconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zkfs",
			Subsystem: "store",
			Name:      "reconnects_total",
			Help:      "Total number of store sessions replaced after being lost",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.OpsTotal, m.OpDuration, m.ReconnectsTotal} {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	}
	return m
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.OpsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	m.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) recordReconnect() {
	if m == nil {
		return
	}
	m.ReconnectsTotal.Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, zkfs.ErrNotFound):
		return "not_found"
	case errors.Is(err, zkfs.ErrBackingStoreUnavailable):
		return "unavailable"
	case errors.Is(err, zkfs.ErrInvalidOperation):
		return "invalid"
	case errors.Is(err, zkfs.ErrPermissionDenied):
		return "denied"
	default:
		return "error"
	}
}

// instrumentedStore records every call of the wrapped store in Metrics
type instrumentedStore struct {
	next    zkfs.Store
	metrics *Metrics
}

// Instrument wraps s so every call is counted and timed. A nil m returns s.
func Instrument(s zkfs.Store, m *Metrics) zkfs.Store {
	if m == nil {
		return s
	}
	return &instrumentedStore{next: s, metrics: m}
}

func (s *instrumentedStore) Exists(ctx context.Context, p string) (ok bool, err error) {
	defer func(start time.Time) { s.metrics.observe("exists", start, err) }(time.Now())
	return s.next.Exists(ctx, p)
}

func (s *instrumentedStore) Stat(ctx context.Context, p string) (st *zkfs.NodeStat, err error) {
	defer func(start time.Time) { s.metrics.observe("stat", start, err) }(time.Now())
	return s.next.Stat(ctx, p)
}

func (s *instrumentedStore) Children(ctx context.Context, p string) (names []string, err error) {
	defer func(start time.Time) { s.metrics.observe("children", start, err) }(time.Now())
	return s.next.Children(ctx, p)
}

func (s *instrumentedStore) Get(ctx context.Context, p string) (data []byte, err error) {
	defer func(start time.Time) { s.metrics.observe("get", start, err) }(time.Now())
	return s.next.Get(ctx, p)
}

func (s *instrumentedStore) Set(ctx context.Context, p string, data []byte) (err error) {
	defer func(start time.Time) { s.metrics.observe("set", start, err) }(time.Now())
	return s.next.Set(ctx, p, data)
}

func (s *instrumentedStore) CreatePath(ctx context.Context, p string) (err error) {
	defer func(start time.Time) { s.metrics.observe("create", start, err) }(time.Now())
	return s.next.CreatePath(ctx, p)
}

func (s *instrumentedStore) Delete(ctx context.Context, p string) (err error) {
	defer func(start time.Time) { s.metrics.observe("delete", start, err) }(time.Now())
	return s.next.Delete(ctx, p)
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
