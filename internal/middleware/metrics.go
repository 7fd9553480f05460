package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
)

// RPCMetrics groups Prometheus collectors for Connect procedures.
type RPCMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewRPCMetrics registers and returns the RPC collectors. A nil registerer
// means prometheus.DefaultRegisterer.
func NewRPCMetrics(namespace string, reg prometheus.Registerer) *RPCMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &RPCMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Total number of RPCs handled, by procedure and result code.",
		}, []string{"procedure", "code"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_ms",
			Help:      "RPC latency distribution in milliseconds.",
			Buckets:   []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"procedure"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rpc_in_flight",
			Help:      "Current number of in-flight RPCs.",
		}),
	}
	m.Requests = register(reg, m.Requests)
	m.Duration = register(reg, m.Duration)
	m.InFlight = register(reg, m.InFlight)
	return m
}

// register returns the already-registered collector when an identical one
// exists, so building the metrics twice against one registry is harmless.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
	return c
}

// Interceptor records request counts, latency and in-flight RPCs.
func (m *RPCMetrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			procedure := req.Spec().Procedure
			m.InFlight.Inc()
			start := time.Now()

			resp, err := next(ctx, req)

			m.InFlight.Dec()
			m.Duration.WithLabelValues(procedure).Observe(float64(time.Since(start)) / float64(time.Millisecond))
			m.Requests.WithLabelValues(procedure, codeOf(err)).Inc()
			return resp, err
		}
	}
}

func codeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return connect.CodeOf(err).String()
}
