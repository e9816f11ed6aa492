// Package metrics exposes steerd's Prometheus counters and gauges
// (component J), grounded in ap.watchd's registration and
// promhttp.Handler pattern.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AdmissionsAccepted and AdmissionsBlocked count pipeline decisions
	// (component C), labeled by event type.
	AdmissionsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steerd_admissions_accepted_total",
			Help: "Number of probe/auth/assoc events admitted.",
		},
		[]string{"event"})
	AdmissionsBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steerd_admissions_blocked_total",
			Help: "Number of probe/auth/assoc events blocked.",
		},
		[]string{"event"})

	// KicksIssued counts forced disassociations (component E), labeled
	// by trigger reason.
	KicksIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steerd_kicks_issued_total",
			Help: "Number of clients kicked, by reason.",
		},
		[]string{"reason"})

	// PeerPacketsSent/Received/Dropped count gossip traffic (component
	// G).
	PeerPacketsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "steerd_peer_packets_sent_total",
			Help: "Number of gossip packets sent.",
		})
	PeerPacketsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "steerd_peer_packets_received_total",
			Help: "Number of gossip packets received.",
		})
	PeerPacketsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "steerd_peer_packets_dropped_total",
			Help: "Number of malformed gossip packets dropped.",
		})

	// BeaconRequestsSent/ReportsIngested count the hearing map's traffic
	// (component F).
	BeaconRequestsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "steerd_beacon_requests_sent_total",
			Help: "Number of 802.11k beacon requests sent.",
		})
	BeaconReportsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "steerd_beacon_reports_ingested_total",
			Help: "Number of 802.11k beacon reports ingested.",
		})

	// KnownStations, KnownLocalNodes, KnownRemoteNodes reflect current
	// entity-model size (component B).
	KnownStations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "steerd_known_stations",
			Help: "Number of stations currently tracked.",
		})
	KnownLocalNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "steerd_known_local_nodes",
			Help: "Number of local nodes currently registered.",
		})
	KnownRemoteNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "steerd_known_remote_nodes",
			Help: "Number of remote nodes currently tracked.",
		})

	// NodeLoad reports each local node's most recent load sample,
	// labeled by node name.
	NodeLoad = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "steerd_node_load",
			Help: "Most recent channel-busy load percentage, by node.",
		},
		[]string{"node"})
)

// Register adds every steerd metric to the default Prometheus registry.
// Safe to call once at startup.
func Register() {
	prometheus.MustRegister(
		AdmissionsAccepted, AdmissionsBlocked, KicksIssued,
		PeerPacketsSent, PeerPacketsReceived, PeerPacketsDropped,
		BeaconRequestsSent, BeaconReportsIngested,
		KnownStations, KnownLocalNodes, KnownRemoteNodes, NodeLoad,
	)
}

// Serve starts the /metrics HTTP endpoint on addr. It runs in its own
// goroutine per component J and K: it only ever reads counters the core
// loop updates, so it shares no mutable state with it.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go http.ListenAndServe(addr, mux)
}
