package webrtcdirect

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordian-engine/webrtcdirect/werr"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the prometheus collectors for a [Transport].
type Metrics struct {
	attempts prometheus.Counter
	failures *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates the transport collectors
// and registers them with reg, if reg is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webrtcdirect_dial_attempts_total",
			Help: "total number of outbound dial attempts",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webrtcdirect_dial_failures_total",
			Help: "total number of failed dial attempts, by error kind and last state reached",
		}, []string{"kind", "state"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "webrtcdirect_dial_duration_seconds",
			Help:    "time from dial start to an upgraded connection",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{m.attempts, m.failures, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register dial metrics: %w", err)
		}
	}

	return m, nil
}

// failureKind is the failures label for err.
func failureKind(err error) string {
	var (
		iae  werr.InappropriateAddressError
		uhae werr.UnsupportedHashAlgorithmError
		iva  werr.InvalidArgumentError
		dce  werr.DataChannelError
	)

	switch {
	case errors.As(err, &iae):
		return "inappropriate_address"
	case errors.As(err, &uhae):
		return "unsupported_hash_algorithm"
	case errors.As(err, &iva):
		return "invalid_argument"
	case errors.As(err, &dce):
		return "data_channel"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	default:
		return "other"
	}
}
