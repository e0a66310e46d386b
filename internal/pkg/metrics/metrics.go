/*
Package metrics exposes Prometheus metrics for the ephemeral store and the WebSocket gateway.

Store sizes are read on every scrape through a custom collector; gateway events are
plain counters updated by the chat hub.
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aequiternus/rtcs.io-storage/internal/app/store"
)

// Namespace prefixes every metric name.
const Namespace = "rtcs"

// StatsSource provides point-in-time store statistics.
type StatsSource interface {
	Stats() store.Stats
}

// StoreCollector turns store statistics into Prometheus samples at scrape time.
type StoreCollector struct {
	src StatsSource

	users            *prometheus.Desc
	guests           *prometheus.Desc
	connectedUsers   *prometheus.Desc
	sockets          *prometheus.Desc
	rooms            *prometheus.Desc
	logs             *prometheus.Desc
	messages         *prometheus.Desc
	tokens           *prometheus.Desc
	pendingEvictions *prometheus.Desc
	evictedRooms     *prometheus.Desc
	expiredTokens    *prometheus.Desc
}

var _ prometheus.Collector = (*StoreCollector)(nil)

func storeDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(Namespace, "store", name), help, nil, nil)
}

// NewStoreCollector creates a collector reading from src.
func NewStoreCollector(src StatsSource) *StoreCollector {
	return &StoreCollector{
		src:              src,
		users:            storeDesc("users", "Number of user records."),
		guests:           storeDesc("guests", "Number of guest user records."),
		connectedUsers:   storeDesc("connected_users", "Number of users with at least one socket."),
		sockets:          storeDesc("sockets", "Number of registered sockets."),
		rooms:            storeDesc("rooms", "Number of rooms with at least one member."),
		logs:             storeDesc("logs", "Number of rooms with a message history."),
		messages:         storeDesc("messages", "Number of retained history messages."),
		tokens:           storeDesc("tokens", "Number of unreleased tokens."),
		pendingEvictions: storeDesc("pending_evictions", "Number of idle rooms awaiting eviction."),
		evictedRooms:     storeDesc("evicted_rooms_total", "Rooms whose history was evicted after idling."),
		expiredTokens:    storeDesc("expired_tokens_total", "Tokens that expired without being released."),
	}
}

// Describe implements prometheus.Collector.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.users
	ch <- c.guests
	ch <- c.connectedUsers
	ch <- c.sockets
	ch <- c.rooms
	ch <- c.logs
	ch <- c.messages
	ch <- c.tokens
	ch <- c.pendingEvictions
	ch <- c.evictedRooms
	ch <- c.expiredTokens
}

// Collect implements prometheus.Collector.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()

	gauge := func(d *prometheus.Desc, v int) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}

	gauge(c.users, st.Users)
	gauge(c.guests, st.Guests)
	gauge(c.connectedUsers, st.ConnectedUsers)
	gauge(c.sockets, st.Sockets)
	gauge(c.rooms, st.Rooms)
	gauge(c.logs, st.Logs)
	gauge(c.messages, st.Messages)
	gauge(c.tokens, st.Tokens)
	gauge(c.pendingEvictions, st.PendingEvictions)
	counter(c.evictedRooms, st.EvictedRooms)
	counter(c.expiredTokens, st.ExpiredTokens)
}

// Gateway holds the counters updated by the WebSocket gateway.
type Gateway struct {
	Connections prometheus.Counter
	Frames      *prometheus.CounterVec
	Decisions   *prometheus.CounterVec
}

// NewGateway creates the gateway counters without registering them.
func NewGateway() *Gateway {
	return &Gateway{
		Connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "gateway",
			Name:      "connections_total",
			Help:      "Accepted WebSocket connections.",
		}),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "gateway",
			Name:      "frames_total",
			Help:      "Inbound WebSocket frames by message type.",
		}, []string{"type"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "gateway",
			Name:      "gate_decisions_total",
			Help:      "Gate hook outcomes by hook and decision.",
		}, []string{"hook", "decision"}),
	}
}

// Registry bundles a dedicated Prometheus registry with the application collectors.
type Registry struct {
	reg     *prometheus.Registry
	Gateway *Gateway
}

// NewRegistry registers the store collector, the gateway counters and the
// Go runtime collectors on a fresh registry.
func NewRegistry(src StatsSource) (*Registry, error) {
	reg := prometheus.NewRegistry()
	gw := NewGateway()

	for _, c := range []prometheus.Collector{
		NewStoreCollector(src),
		gw.Connections,
		gw.Frames,
		gw.Decisions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &Registry{reg: reg, Gateway: gw}, nil
}

// Gatherer returns the underlying registry for inspection.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
