package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stream_relay_active_websocket_connections",
		Help: "Number of active WebSocket connections",
	})

	WebSocketConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stream_relay_websocket_connections_total",
		Help: "Total number of WebSocket connections",
	})

	WebSocketDisconnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stream_relay_websocket_disconnections_total",
		Help: "Total number of WebSocket disconnections",
	})

	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stream_relay_active_rooms",
		Help: "Number of rooms currently registered",
	})

	RoomsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stream_relay_rooms_created_total",
		Help: "Total number of rooms created",
	})

	RoomsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stream_relay_rooms_evicted_total",
		Help: "Total number of idle rooms evicted",
	})

	ActiveTransports = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stream_relay_active_transports",
		Help: "Number of active media transports",
	}, []string{"role"}) // "producer" | "consumer"

	TransportsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_relay_transports_created_total",
		Help: "Total number of media transports created",
	}, []string{"role"})

	TransportFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_relay_transport_failures_total",
		Help: "Total number of transport operation failures",
	}, []string{"reason"})

	ActiveProducers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stream_relay_active_producers",
		Help: "Number of active producers",
	})

	ProducersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stream_relay_producers_created_total",
		Help: "Total number of producers created",
	})

	ActiveConsumers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stream_relay_active_consumers",
		Help: "Number of active consumers",
	})

	ConsumersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stream_relay_consumers_created_total",
		Help: "Total number of consumers created",
	})

	SignalingMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_relay_signaling_messages_total",
		Help: "Total signaling messages",
	}, []string{"event", "direction"}) // direction: "in" | "out"

	RelayPacketsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_relay_rtp_packets_total",
		Help: "Total RTP packets relayed",
	}, []string{"direction"}) // "received" | "forwarded"

	RelayBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_relay_rtp_bytes_total",
		Help: "Total RTP bytes relayed",
	}, []string{"direction"})

	PLIRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stream_relay_pli_requests_total",
		Help: "Total PLI requests relayed to producers",
	})

	NACKRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stream_relay_nack_requests_total",
		Help: "Total NACK requests seen from consumers",
	})

	DTLSStateChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_relay_dtls_state_changes_total",
		Help: "DTLS transport state changes",
	}, []string{"state"})

	StreamsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stream_relay_streams_started_total",
		Help: "Total stream records created",
	})

	StreamsEndedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stream_relay_streams_ended_total",
		Help: "Total stream records ended",
	})

	ConfigReloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stream_relay_config_reloads_total",
		Help: "Number of configuration reloads",
	})

	StartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stream_relay_start_time_seconds",
		Help: "Server start time in Unix seconds",
	})
)
