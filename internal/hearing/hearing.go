// Package hearing implements the hearing map (component F): scheduling
// beacon requests to connected clients, ingesting the resulting reports,
// and maintaining a TTL-bounded per-station table of which APs it can
// hear.
package hearing

import (
	"math"

	"steerd/internal/config"
	"steerd/internal/model"
	"steerd/internal/timeout"
	"steerd/internal/wifi"
)

// Requester is implemented by whatever talks to the AP daemon; mirrors
// policy.Actions' RequestBeacon but kept separate since the hearing map
// owns request scheduling independently of roam-triggered scans.
type Requester interface {
	RequestBeacon(si *model.StationInfo, channel, opClass, mode int)
}

// Map drives beacon request scheduling and report ingestion for one
// controller.
type Map struct {
	cfg       *config.Config
	tables    *model.Tables
	requester Requester
}

// New returns a hearing map bound to the given configuration and entity
// model.
func New(cfg *config.Config, tables *model.Tables, requester Requester) *Map {
	return &Map{cfg: cfg, tables: tables, requester: requester}
}

// dynamicIntervalMsec implements the beacon_request_frequency +
// beacon_request_signal_modifier*(s/(1+|s|)) formula from §4F.
func (m *Map) dynamicIntervalMsec(si *model.StationInfo) uint32 {
	s := float64(si.Signal) + 60
	adj := s / (1 + math.Abs(s))
	interval := float64(m.cfg.BeaconRequestFrequency) + float64(m.cfg.BeaconRequestSignalModifier)*adj
	if interval < 0 {
		interval = 0
	}
	return uint32(interval)
}

// nextFreq cycles through the known local nodes' operating frequencies,
// choosing the next one distinct from cur so that beacon requests sweep
// across bands over time.
func (m *Map) nextFreq(cur int) int {
	freqs := make([]int, 0)
	seen := make(map[int]bool)
	for _, n := range m.tables.LocalNodes() {
		if !seen[n.FreqMHz] {
			seen[n.FreqMHz] = true
			freqs = append(freqs, n.FreqMHz)
		}
	}
	if len(freqs) == 0 {
		return cur
	}
	for i, f := range freqs {
		if f == cur {
			return freqs[(i+1)%len(freqs)]
		}
	}
	return freqs[0]
}

// mode implements the failure-escalation schedule from §4F: 2.4 GHz
// escalates 1 -> 0 -> 2 on increasing failure counts, 5 GHz escalates
// 0 -> 2.
func mode(band string, fails int) int {
	if band == wifi.LoBand {
		switch {
		case fails < 3:
			return 1
		case fails < 7:
			return 0
		default:
			return 2
		}
	}
	if fails < 5 {
		return 0
	}
	return 2
}

// Schedule re-arms si's beacon request timer and, when it fires, issues the
// request and reschedules, per the dynamic-interval and band-sweep rules
// in §4F.
func (m *Map) Schedule(si *model.StationInfo, q *timeout.Queue) {
	var fire func()
	fire = func() {
		freq := m.nextFreq(si.Node.Info().FreqMHz)
		channel := wifi.ChannelFromFreq(freq)
		opClass := wifi.OpClassFromChannel(channel)
		md := mode(wifi.Band(freq), si.BeaconFailCount)

		m.requester.RequestBeacon(si, channel, opClass, md)

		entry := si.BeaconReq
		q.Set(entry, m.dynamicIntervalMsec(si))
	}

	si.BeaconReq = timeout.NewEntry(fire)
	q.Set(si.BeaconReq, m.dynamicIntervalMsec(si))
}

// beaconEvent is the parsed content of a beacon-report event, per the
// {bssid, addr, op-class, channel, rcpi, rsni, duration, start-time} fields
// listed in §4F.
type beaconEvent struct {
	BSSID     model.MAC
	Addr      model.MAC
	OpClass   int
	Channel   int
	RCPI      int
	RSNI      int
	Duration  int
	StartTime uint32
}

// bssidKnown reports whether bssid matches some known local or remote
// node's BSSID, the verification step required before ingesting a report.
func (m *Map) bssidKnown(bssid model.MAC) bool {
	for _, n := range m.tables.LocalNodes() {
		if n.BSSID == bssid {
			return true
		}
	}
	for _, n := range m.tables.RemoteNodes() {
		if n.BSSID == bssid {
			return true
		}
	}
	return false
}

// IngestReport is the exported entry point for whatever decodes the raw
// AP-daemon beacon-report event (component L's collaborator); it builds
// the internal event shape and delegates to Ingest.
func (m *Map) IngestReport(node model.Node, addr, bssid model.MAC, opClass, channel, rcpi, rsni, duration int, startTime uint32, q *timeout.Queue) bool {
	return m.Ingest(node, beaconEvent{
		BSSID: bssid, Addr: addr, OpClass: opClass, Channel: channel,
		RCPI: rcpi, RSNI: rsni, Duration: duration, StartTime: startTime,
	}, q)
}

// Ingest processes a beacon-report event: resolves the reporting SI by
// address and node, verifies the reported BSSID is known, and upserts the
// report, halving the failure counter on success (§4F).
func (m *Map) Ingest(node model.Node, ev beaconEvent, q *timeout.Queue) bool {
	if !m.bssidKnown(ev.BSSID) {
		return false
	}

	sta, ok := m.tables.Station(ev.Addr)
	if !ok {
		return false
	}
	si, ok := sta.Info(node.Info().Name)
	if !ok {
		return false
	}

	si.Beacons[ev.BSSID] = &model.BeaconReport{
		BSSID:      ev.BSSID,
		OpClass:    ev.OpClass,
		Channel:    ev.Channel,
		RCPI:       ev.RCPI,
		RSNI:       ev.RSNI,
		Duration:   ev.Duration,
		StartTime:  ev.StartTime,
		ReceivedAt: q.Now(),
	}
	si.BeaconFailCount /= 2

	return true
}

// Reports returns si's beacon reports that have not exceeded
// beacon_report_invalid_timeout, dropping (and forgetting) stale ones in
// the process, as specified for lookup in §4F.
func (m *Map) Reports(si *model.StationInfo, now timeout.Clock) map[model.MAC]*model.BeaconReport {
	for bssid, r := range si.Beacons {
		if r.Expired(now, m.cfg.BeaconReportInvalidTimeout) {
			delete(si.Beacons, bssid)
		}
	}
	return si.Beacons
}
