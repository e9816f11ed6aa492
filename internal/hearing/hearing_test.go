package hearing

import (
	"testing"

	"steerd/internal/config"
	"steerd/internal/model"
	"steerd/internal/timeout"
)

type beaconCall struct {
	channel, opClass, mode int
}

type recordingRequester struct {
	calls []beaconCall
}

func (r *recordingRequester) RequestBeacon(si *model.StationInfo, channel, opClass, mode int) {
	r.calls = append(r.calls, beaconCall{channel, opClass, mode})
}

// TestScheduleFiresBeaconRequestAtDynamicInterval covers the beacon-request
// scenario: a connected client at signal -60 gets an 802.11k request on
// channel 1 (2412 MHz), op-class 81, after the dynamic interval, which
// collapses to beacon_request_frequency exactly when signal+60 == 0.
func TestScheduleFiresBeaconRequestAtDynamicInterval(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()

	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	node.FreqMHz = 2412
	tables.AddLocalNode(node)

	si, _ := tables.GetOrCreateInfo(model.MAC(1), node, q.Now())
	si.Signal = -60

	req := &recordingRequester{}
	m := New(cfg, tables, req)
	m.Schedule(si, q)

	q.Advance(timeout.Clock(cfg.BeaconRequestFrequency - 1))
	if len(req.calls) != 0 {
		t.Fatalf("beacon request fired early: %v", req.calls)
	}

	q.Advance(timeout.Clock(cfg.BeaconRequestFrequency))
	if len(req.calls) != 1 {
		t.Fatalf("calls = %v, want exactly 1", req.calls)
	}

	got := req.calls[0]
	if got.channel != 1 || got.opClass != 81 || got.mode != 1 {
		t.Fatalf("got %+v, want channel=1 opclass=81 mode=1", got)
	}
}

func TestModeEscalatesOnConsecutiveFailures(t *testing.T) {
	cases := []struct {
		band  string
		fails int
		want  int
	}{
		{"2.4GHz", 0, 1},
		{"2.4GHz", 2, 1},
		{"2.4GHz", 3, 0},
		{"2.4GHz", 6, 0},
		{"2.4GHz", 7, 2},
		{"5GHz", 0, 0},
		{"5GHz", 4, 0},
		{"5GHz", 5, 2},
	}
	for _, c := range cases {
		if got := mode(c.band, c.fails); got != c.want {
			t.Errorf("mode(%q, %d) = %d, want %d", c.band, c.fails, got, c.want)
		}
	}
}

func TestIngestRejectsUnknownBSSID(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	node.BSSID = model.MAC(0xAA)
	tables.AddLocalNode(node)

	tables.GetOrCreateInfo(model.MAC(1), node, q.Now())

	m := New(cfg, tables, &recordingRequester{})
	ok := m.Ingest(node, beaconEvent{BSSID: model.MAC(0xBB), Addr: model.MAC(1)}, q)
	if ok {
		t.Fatal("expected Ingest to reject a report from an unknown BSSID")
	}
}

func TestIngestUpsertsReportAndHalvesFailCount(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	node.BSSID = model.MAC(0xAA)
	tables.AddLocalNode(node)

	si, _ := tables.GetOrCreateInfo(model.MAC(1), node, q.Now())
	si.BeaconFailCount = 5

	m := New(cfg, tables, &recordingRequester{})
	ok := m.Ingest(node, beaconEvent{
		BSSID: node.BSSID, Addr: model.MAC(1), OpClass: 81, Channel: 1,
		RCPI: 10, RSNI: 20, Duration: 30, StartTime: 40,
	}, q)
	if !ok {
		t.Fatal("expected Ingest to accept a report from a known BSSID")
	}
	if si.BeaconFailCount != 2 {
		t.Fatalf("BeaconFailCount = %d, want 2 (halved from 5)", si.BeaconFailCount)
	}
	report, ok := si.Beacons[node.BSSID]
	if !ok {
		t.Fatal("expected a beacon report keyed by BSSID")
	}
	if report.Channel != 1 || report.OpClass != 81 {
		t.Fatalf("got %+v, want channel=1 opclass=81", report)
	}
}

func TestReportsDropsExpiredEntries(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	cfg.BeaconReportInvalidTimeout = 5 // seconds

	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	node.BSSID = model.MAC(0xAA)
	tables.AddLocalNode(node)
	si, _ := tables.GetOrCreateInfo(model.MAC(1), node, q.Now())

	m := New(cfg, tables, &recordingRequester{})
	m.Ingest(node, beaconEvent{BSSID: node.BSSID, Addr: model.MAC(1)}, q)

	q.Advance(timeout.Clock(10_000)) // 10s, past the 5s invalid timeout
	reports := m.Reports(si, q.Now())
	if len(reports) != 0 {
		t.Fatalf("Reports = %v, want the stale entry dropped", reports)
	}
}
