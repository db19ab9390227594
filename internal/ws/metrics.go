package ws

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConnectedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connected_clients",
			Help: "Currently connected websocket clients",
		},
	)
	EventsPersisted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_persisted_total",
			Help: "Events accepted and written to the store",
		},
		[]string{"kind"},
	)
	BackpressureDrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_backpressure_disconnects_total",
			Help: "Connections closed because their send queue overflowed",
		},
	)
	RPCErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_rpc_errors_total",
			Help: "RPCs acked with an error, by code",
		},
		[]string{"code"},
	)
)

func init() {
	prometheus.MustRegister(ConnectedClients)
	prometheus.MustRegister(EventsPersisted)
	prometheus.MustRegister(BackpressureDrops)
	prometheus.MustRegister(RPCErrors)
}
