// Package apdaemon defines the boundary between the controller and the
// per-radio AP daemon it steers (component L). The wire transport this
// boundary rides on is out of scope; what's specified here is the Go
// shape of the collaboration, grounded in the request/event split
// ap.wifid's hostapd control connection already makes.
package apdaemon

import "steerd/internal/model"

// ClientEntry is one row returned by GetClients: a station currently
// associated to one local radio, with enough data to seed or refresh a
// StationInfo.
type ClientEntry struct {
	MAC       model.MAC
	Signal    model.Signal
	RxBytes   uint64
	TxBytes   uint64
}

// EventKind distinguishes the four asynchronous events a radio reports.
type EventKind int

const (
	EventProbeReq EventKind = iota
	EventAuthReq
	EventAssocReq
	EventBeaconReport
)

// Event is one asynchronous notification from a radio: a probe/auth/assoc
// request (admission pipeline input, component C) or an 802.11k beacon
// report (hearing map input, component F).
type Event struct {
	Kind EventKind
	Node string // local node name the event arrived on
	MAC  model.MAC
	Freq int // carrier frequency, for probe/auth/assoc events

	// Signal carries the probe/auth/assoc RSSI; ignored for beacon
	// reports, which carry their own RCPI in Report.
	Signal model.Signal

	// Report is populated only for EventBeaconReport.
	Report *BeaconReportEvent
}

// BeaconReportEvent is the parsed payload of an 802.11k beacon report
// frame, relayed verbatim from the radio.
type BeaconReportEvent struct {
	BSSID     model.MAC
	OpClass   int
	Channel   int
	RCPI      int
	RSNI      int
	Duration  int
	StartTime uint32
}

// Client is the controller's view of one AP daemon instance managing
// some number of local radios. A single Client multiplexes every radio
// the daemon owns; Node identifies which one a call or event concerns.
type Client interface {
	// GetClients enumerates the stations currently associated to node.
	GetClients(node string) ([]ClientEntry, error)

	// SetNeighborReport pushes this controller's merged 802.11k neighbor
	// report (RRM_NR) down to node, so the radio can answer clients'
	// own neighbor-report queries.
	SetNeighborReport(node string, rrmNR []byte) error

	// GetOwnNeighborReport retrieves node's self-reported neighbor
	// report entry, published into the gossip dump (component G).
	GetOwnNeighborReport(node string) ([]byte, error)

	// NotifyResponse tells the radio to emit an 802.11v BSS Transition
	// Management request steering mac toward one of neighbors, expiring
	// after kickDelayMsec.
	NotifyResponse(node string, mac model.MAC, kickDelayMsec uint32, neighbors []model.MAC) error

	// EnableBSSManagement toggles 802.11k/v management frames for mac.
	EnableBSSManagement(node string, mac model.MAC, enable bool) error

	// RequestBeacon asks the radio to issue an 802.11k beacon request to
	// mac on the given channel/op-class, using the given measurement
	// mode (passive/active/table, per §4F).
	RequestBeacon(node string, mac model.MAC, channel, opClass, mode int) error

	// NotifyDisassocImminent sends an 802.11v disassociation-imminent
	// notice to mac, kickDelayMsec before the controller intends to
	// force it off.
	NotifyDisassocImminent(node string, mac model.MAC, kickDelayMsec uint32) error

	// DeleteClient forcibly deauthenticates mac from node with the given
	// 802.11 reason code.
	DeleteClient(node string, mac model.MAC, reasonCode uint32) error

	// Events returns the channel the client delivers asynchronous
	// per-radio events on. Closed when the underlying connection is
	// torn down.
	Events() <-chan Event
}
