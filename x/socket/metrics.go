package socket

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relayedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupsync_socket_relayed_total",
		Help: "Total number of events fanned out by the hub",
	}, []string{"topic"})

	deliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "groupsync_socket_delivered_total",
		Help: "Total number of messages enqueued to connections",
	})

	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "groupsync_socket_dropped_total",
		Help: "Total number of messages dropped on queue overflow",
	})

	rejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "groupsync_socket_rate_limited_total",
		Help: "Total number of inbound events rejected by the rate limiter",
	})
)

var (
	socketConnections   prometheus.Gauge
	socketSubscriptions *prometheus.GaugeVec
	registerGauges      sync.Once
)

func registerSocketGauges() {
	socketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "groupsync_socket_connections",
			Help: "Number of live connections",
		},
	)
	prometheus.MustRegister(socketConnections)

	socketSubscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "groupsync_socket_subscriptions",
			Help: "Number of connections subscribed per topic",
		},
		[]string{"topic"},
	)
	prometheus.MustRegister(socketSubscriptions)
}

func (s *service) UpdateMetrics() {

	s.mu.RLock()
	connections := len(s.conns)
	perTopic := make(map[string]int)
	for _, set := range s.subs {
		for t := range set {
			perTopic[t]++
		}
	}
	s.mu.RUnlock()

	registerGauges.Do(registerSocketGauges)

	socketConnections.Set(float64(connections))

	socketSubscriptions.Reset()
	for t, n := range perTopic {
		socketSubscriptions.WithLabelValues(t).Set(float64(n))
	}
}
