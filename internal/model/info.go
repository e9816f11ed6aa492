package model

import "steerd/internal/timeout"

// Signal is a dBm reading, or NoSignal when the AP daemon didn't supply
// one.
type Signal int32

// NoSignal is the sentinel value used by the reference protocol's 8-bit
// signal field when no measurement is available.
const NoSignal Signal = 0xFF

// EventType distinguishes the four events the local-node controller
// forwards into the station event pipeline and beacon ingestion.
type EventType int

const (
	EventProbe EventType = iota
	EventAuth
	EventAssoc
	EventBeacon
	numEventTypes
)

// ConnState is a StationInfo's association state. ConnectedStale is a
// transient marker used only during FetchClients reconciliation (component
// D) to mean "was connected, not yet seen this pass"; per the design notes
// it must never be visible outside that reconciliation step.
type ConnState int

const (
	Disconnected ConnState = iota
	Connected
	ConnectedStale
)

// EventStats tracks admission counters for one event type on one
// StationInfo (component C).
type EventStats struct {
	Requests      uint64
	BlockedCur    uint32
	BlockedTotal  uint64
	BlockedLastTime timeout.Clock
}

// RoamState is the per-SI roam/load-kick state machine position (component
// E).
type RoamState int

const (
	RoamIdle RoamState = iota
	RoamScan
	RoamScanDone
	RoamWaitKick
	RoamNotifyKick
	RoamKick
)

// byteSample is one slot of the two-slot rx/tx active-byte window used by
// the load-kick policy to estimate a client's recent bit rate.
type byteSample struct {
	rx, tx uint64
	at     timeout.Clock
}

// StationInfo (SI) is the per-(station,node) record: the thing that's
// "connected to an AP", as opposed to the STA which only identifies the
// client across all the APs it has ever touched.
type StationInfo struct {
	STA  *Station
	Node Node

	Signal    Signal
	Created   timeout.Clock
	Seen      timeout.Clock
	Connected ConnState

	stats [numEventTypes]EventStats

	RoamState    RoamState
	RoamTries    int
	RoamKick     timeout.Clock
	RoamScanDone timeout.Clock
	RoamLastScan timeout.Clock // when the last Scan-state beacon request fired
	KickCount    int
	ScanBand     bool // which band the current scan round is probing

	Beacons map[MAC]*BeaconReport // keyed by reported BSSID

	samples      [2]byteSample
	sampleCursor int

	BeaconFailCount int

	Timeout    *timeout.Entry
	BeaconReq  *timeout.Entry
}

func newStationInfo(sta *Station, node Node, now timeout.Clock) *StationInfo {
	return &StationInfo{
		STA:     sta,
		Node:    node,
		Signal:  NoSignal,
		Created: now,
		Seen:    now,
		Beacons: make(map[MAC]*BeaconReport),
	}
}

// Stats returns the admission counters for the given event type.
func (si *StationInfo) Stats(t EventType) *EventStats {
	return &si.stats[t]
}

// EnsureTimeout returns si's destruction timer, lazily creating it on first
// use so callers never have to special-case "not yet armed".
func (si *StationInfo) EnsureTimeout(cb func()) *timeout.Entry {
	if si.Timeout == nil {
		si.Timeout = timeout.NewEntry(cb)
	}
	return si.Timeout
}

// PushByteSample records a new rx/tx sample into the two-slot active-byte
// window, sliding the window every kick_client_active_sec seconds as
// described for FetchClients in component D.
func (si *StationInfo) PushByteSample(rx, tx uint64, now timeout.Clock, intervalMsec uint32) {
	cur := &si.samples[si.sampleCursor]
	if cur.at == 0 || uint32(now-cur.at) >= intervalMsec {
		si.sampleCursor = (si.sampleCursor + 1) % 2
		cur = &si.samples[si.sampleCursor]
		*cur = byteSample{rx: rx, tx: tx, at: now}
		return
	}
	cur.rx, cur.tx = rx, tx
}

// ActiveKbps estimates the recent bit rate from the two-slot window:
// bytes delta between the two samples over the time between them, in
// kilobits per second. Returns 0 if the window isn't yet full.
func (si *StationInfo) ActiveKbps(now timeout.Clock) float64 {
	older := &si.samples[(si.sampleCursor+1)%2]
	newer := &si.samples[si.sampleCursor]
	if older.at == 0 || newer.at == 0 || newer.at == older.at {
		return 0
	}
	deltaBytes := float64((newer.rx + newer.tx) - (older.rx + older.tx))
	deltaSec := float64(uint32(newer.at-older.at)) / 1000.0
	if deltaSec <= 0 {
		return 0
	}
	return (deltaBytes * 8 / 1000) / deltaSec
}
