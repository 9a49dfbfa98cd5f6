package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconnectTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "groupsync_realtime_reconnect_total",
		Help: "Total number of reconnect attempts by live clients",
	})

	handlerErrorTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "groupsync_realtime_handler_error_total",
		Help: "Total number of failed handler invocations",
	})
)
