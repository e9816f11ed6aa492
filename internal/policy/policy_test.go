package policy

import (
	"testing"

	"steerd/internal/config"
	"steerd/internal/model"
	"steerd/internal/timeout"
)

type deleteCall struct {
	reasonCode uint32
	kind       string
}

type recordingActions struct {
	beacons   []int
	notifies  int
	deletes   []deleteCall
}

func (r *recordingActions) RequestBeacon(si *model.StationInfo, mode int) {
	r.beacons = append(r.beacons, mode)
}

func (r *recordingActions) NotifyDisassocImminent(si *model.StationInfo, kickDelayMsec uint32, neighbors []model.Node) {
	r.notifies++
}

func (r *recordingActions) DeleteClient(si *model.StationInfo, reasonCode uint32, kind string) {
	r.deletes = append(r.deletes, deleteCall{reasonCode, kind})
}

func TestAdmitDeniesDuringInitialConnectGrace(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	cfg.InitialConnectDelay = 5000

	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	tables.AddLocalNode(node)
	si, _ := tables.GetOrCreateInfo(model.MAC(1), node, q.Now())
	si.Seen = q.Now()

	p := New(cfg, tables, &recordingActions{})
	if p.Admit(si, model.EventProbe) {
		t.Fatal("expected Admit to deny within the initial-connect grace period")
	}

	q.Advance(5001)
	si.Seen = q.Now()
	if !p.Admit(si, model.EventProbe) {
		t.Fatal("expected Admit to allow once the grace period elapses")
	}
}

func TestAdmitDeniesBelowMinSNR(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	cfg.MinSNR = -70

	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	tables.AddLocalNode(node)
	si, _ := tables.GetOrCreateInfo(model.MAC(1), node, q.Now())
	si.Seen = q.Now()
	si.Signal = -80

	p := New(cfg, tables, &recordingActions{})
	if p.Admit(si, model.EventProbe) {
		t.Fatal("expected Admit to deny a signal below min_snr")
	}

	si.Signal = model.NoSignal
	if !p.Admit(si, model.EventProbe) {
		t.Fatal("expected Admit to ignore the NO_SIGNAL sentinel rather than treat it as a weak signal")
	}
}

// TestBestCandidateBandSteeringWin covers the 5 GHz band-steering scenario:
// a client heard at -60 on a 2.4 GHz node and -62 on a same-SSID 5 GHz node
// should prefer the 5 GHz node once the band-steering bonus is applied.
func TestBestCandidateBandSteeringWin(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	cfg.BandSteeringThreshold = 5
	cfg.SignalDiffThreshold = 0
	cfg.MinConnectSNR = -100
	cfg.SeenPolicyTimeout = 30000

	node24 := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	node24.FreqMHz = 2412
	node5 := model.NewLocalNode("hostapd.wlan1", "wlan1", 2)
	node5.FreqMHz = 5180
	tables.AddLocalNode(node24)
	tables.AddLocalNode(node5)

	now := q.Now()
	current, _ := tables.GetOrCreateInfo(model.MAC(1), node24, now)
	current.Signal = -60
	current.Seen = now

	candidate, _ := tables.GetOrCreateInfo(model.MAC(1), node5, now)
	candidate.Signal = -62
	candidate.Seen = now

	p := New(cfg, tables, &recordingActions{})
	best := p.BestCandidate(current, now)
	if best != candidate {
		t.Fatalf("BestCandidate = %v, want the 5GHz candidate (delta -62-(-60)+5 = +3 > 0)", best)
	}
}

// TestEvaluateLoadKickIssuesDeleteClientWithReasonFive covers the load-kick
// scenario: a heavily loaded node with one active, over-threshold client
// gets that client force-kicked with the configured reason code.
func TestEvaluateLoadKickIssuesDeleteClientWithReasonFive(t *testing.T) {
	q := timeout.NewQueue(1)
	tables := model.NewTables(q)
	cfg := config.Default()
	cfg.LoadKickEnabled = true
	cfg.LoadKickThreshold = 50
	cfg.LoadKickMinClients = 1
	cfg.KickClientActiveKbits = 1
	cfg.LoadKickReasonCode = 5

	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	node.Load = 80
	node.NAssoc = 1
	tables.AddLocalNode(node)

	si, _ := tables.GetOrCreateInfo(model.MAC(1), node, q.Now())
	si.Connected = model.Connected
	si.PushByteSample(0, 0, q.Now(), cfg.KickClientActiveSec*1000)
	q.Advance(30001)
	si.PushByteSample(1000000, 0, q.Now(), cfg.KickClientActiveSec*1000)

	actions := &recordingActions{}
	p := New(cfg, tables, actions)
	p.EvaluateLoadKick(node, q)

	if len(actions.deletes) != 1 {
		t.Fatalf("DeleteClient calls = %d, want 1", len(actions.deletes))
	}
	if actions.deletes[0].reasonCode != 5 || actions.deletes[0].kind != "load" {
		t.Fatalf("got %+v, want reasonCode=5 kind=load", actions.deletes[0])
	}
	if si.Connected != model.Disconnected {
		t.Fatalf("Connected = %v, want Disconnected after the kick", si.Connected)
	}
}

// TestRoamScanPacesBeaconsByInterval covers §4E's "every roam_scan_interval"
// requirement: the Scan state must not issue a beacon request on every poll
// tick, only once the interval has elapsed since the last one.
func TestRoamScanPacesBeaconsByInterval(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	cfg.RoamScanInterval = 10000
	cfg.RoamScanTries = 3

	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	tables.AddLocalNode(node)
	si, _ := tables.GetOrCreateInfo(model.MAC(1), node, q.Now())
	si.Connected = model.Connected
	si.RoamState = model.RoamScan
	si.Signal = -80

	actions := &recordingActions{}
	p := New(cfg, tables, actions)

	p.Evaluate(si, q)
	if len(actions.beacons) != 1 {
		t.Fatalf("beacons after first tick = %d, want 1 (first scan fires immediately)", len(actions.beacons))
	}

	q.Advance(1000)
	p.Evaluate(si, q)
	if len(actions.beacons) != 1 {
		t.Fatalf("beacons after 1s = %d, want still 1 (roam_scan_interval is 10s)", len(actions.beacons))
	}

	q.Advance(11001)
	p.Evaluate(si, q)
	if len(actions.beacons) != 2 {
		t.Fatalf("beacons after roam_scan_interval elapsed = %d, want 2", len(actions.beacons))
	}
}

// TestRoamScanAbortsWhenSignalRecovers covers the roam_scan_snr threshold:
// a signal that climbs back above it mid-scan cancels the scan instead of
// running it to completion.
func TestRoamScanAbortsWhenSignalRecovers(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	cfg.RoamScanSNR = -65

	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	tables.AddLocalNode(node)
	si, _ := tables.GetOrCreateInfo(model.MAC(1), node, q.Now())
	si.Connected = model.Connected
	si.RoamState = model.RoamScan
	si.Signal = -60 // already above roam_scan_snr

	actions := &recordingActions{}
	p := New(cfg, tables, actions)
	p.Evaluate(si, q)

	if len(actions.beacons) != 0 {
		t.Fatalf("beacons = %d, want 0 (scan should abort, not fire)", len(actions.beacons))
	}
	if si.RoamState != model.RoamIdle {
		t.Fatalf("RoamState = %v, want RoamIdle after abort", si.RoamState)
	}
}
