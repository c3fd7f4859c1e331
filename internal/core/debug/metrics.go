package debug

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otgate_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"result"})

	ConnectionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "otgate_connections_active",
		Help: "Connected clients per server.",
	}, []string{"server"})

	DispatcherQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "otgate_dispatcher_queue_depth",
		Help: "Tasks waiting to run on the dispatcher.",
	})

	MapDescriptionBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "otgate_map_description_bytes",
		Help:    "Size of full map descriptions sent to clients.",
		Buckets: prometheus.ExponentialBuckets(64, 2, 10),
	})
)
