package pipeline

import (
	"testing"

	"steerd/internal/config"
	"steerd/internal/model"
	"steerd/internal/timeout"
)

type alwaysAdmit struct{}

func (alwaysAdmit) Admit(*model.StationInfo, model.EventType) bool { return true }

type alwaysReject struct{}

func (alwaysReject) Admit(*model.StationInfo, model.EventType) bool { return false }

func TestFreshSIBlockWindowNoSpuriousReset(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)

	admitted := Ingest(tables, q, cfg, node, 1, model.EventProbe, 2412, -72, false, alwaysReject{}, nil)
	if admitted {
		t.Fatal("expected rejection")
	}

	sta, _ := tables.Station(1)
	si, _ := sta.Info(node.Name)
	if si.Stats(model.EventProbe).BlockedCur != 1 {
		t.Fatalf("blocked_cur = %d, want 1", si.Stats(model.EventProbe).BlockedCur)
	}
}

func TestStaleSignalIgnoredWhenConnected(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)

	Ingest(tables, q, cfg, node, 1, model.EventAssoc, 2412, -50, false, alwaysAdmit{}, nil)

	sta, _ := tables.Station(1)
	si, _ := sta.Info(node.Name)
	si.Connected = model.Connected

	Ingest(tables, q, cfg, node, 1, model.EventProbe, 2412, -90, false, alwaysAdmit{}, nil)
	if si.Signal != -50 {
		t.Fatalf("signal = %v, want -50 (stale probe should be ignored)", si.Signal)
	}
}

func TestNewStationTriggersOnCreatedOnce(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)

	calls := 0
	onCreated := func(*model.StationInfo) { calls++ }

	Ingest(tables, q, cfg, node, 1, model.EventProbe, 2412, -60, false, alwaysAdmit{}, onCreated)
	Ingest(tables, q, cfg, node, 1, model.EventProbe, 2412, -60, false, alwaysAdmit{}, onCreated)

	if calls != 1 {
		t.Fatalf("onCreated called %d times, want 1", calls)
	}
}
