// Package prom counts rediscache.Hooks events with Prometheus collectors.
package prom

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/rediscache"
)

// Hooks implements rediscache.Hooks. Every method is an atomic counter
// increment, so it is safe to use without the async wrapper.
type Hooks struct {
	connects        *prometheus.CounterVec
	connectFailures *prometheus.CounterVec
	brokenConns     *prometheus.CounterVec
	refreshFailures prometheus.Counter
	decodeFailures  prometheus.Counter
	disposed        prometheus.Counter
}

var _ rediscache.Hooks = (*Hooks)(nil)

// New registers the collectors on reg under namespace (e.g. "app" gives
// app_rediscache_connects_total). A nil reg uses prometheus.DefaultRegisterer.
func New(namespace string, reg prometheus.Registerer) (*Hooks, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	const subsystem = "rediscache"

	h := &Hooks{
		connects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "connects_total",
				Help:      "Successful dials that answered PING",
			},
			[]string{"db", "reconnect"},
		),

		connectFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "connect_failures_total",
				Help:      "Dials or initial PINGs that failed",
			},
			[]string{"db"},
		),

		brokenConns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "connections_broken_total",
				Help:      "Connections dropped after a transport failure, by operation",
			},
			[]string{"op"},
		),

		refreshFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sliding_refresh_failures_total",
				Help:      "Reads whose sliding TTL refresh did not reach Redis",
			},
		),

		decodeFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "decode_failures_total",
				Help:      "Stored values that could not be decoded",
			},
		),

		disposed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "disposed_total",
				Help:      "Cache instances closed",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		h.connects,
		h.connectFailures,
		h.brokenConns,
		h.refreshFailures,
		h.decodeFailures,
		h.disposed,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) Connected(db int, reconnect bool) {
	h.connects.WithLabelValues(strconv.Itoa(db), strconv.FormatBool(reconnect)).Inc()
}

func (h *Hooks) ConnectFailed(db int, _ error) {
	h.connectFailures.WithLabelValues(strconv.Itoa(db)).Inc()
}

func (h *Hooks) ConnectionBroken(op string, _ error) { h.brokenConns.WithLabelValues(op).Inc() }
func (h *Hooks) SlidingRefreshFailed(string, error)  { h.refreshFailures.Inc() }
func (h *Hooks) DecodeFailed(string, error)          { h.decodeFailures.Inc() }
func (h *Hooks) Disposed(int)                        { h.disposed.Inc() }
