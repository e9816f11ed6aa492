package localnode

import (
	"testing"

	"steerd/internal/apdaemon"
	"steerd/internal/config"
	"steerd/internal/model"
	"steerd/internal/timeout"
)

type alwaysAdmit struct{}

func (alwaysAdmit) Admit(*model.StationInfo, model.EventType) bool { return true }

func TestPollCycleAdvancesThroughAllFourStates(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	sim := apdaemon.NewSim()
	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)

	c := New(cfg, tables, sim, alwaysAdmit{})

	wantStates := []model.PollState{
		model.PollFetchClients,
		model.PollPublishNeighbors,
		model.PollFetchOwnNeighbor,
		model.PollIdle,
	}
	for i, want := range wantStates {
		if err := c.Poll(node, q); err != nil {
			t.Fatalf("Poll step %d: %v", i, err)
		}
		if node.PollState != want {
			t.Fatalf("step %d: PollState = %v, want %v", i, node.PollState, want)
		}
	}
}

func TestFetchClientsCreatesAndReconcilesStations(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	sim := apdaemon.NewSim()
	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)

	var created int
	c := New(cfg, tables, sim, alwaysAdmit{})
	c.OnNewStation = func(*model.StationInfo) { created++ }

	sim.SetClients(node.Name, []apdaemon.ClientEntry{{MAC: 1, Signal: -55}})
	node.PollState = model.PollFetchClients
	if err := c.Poll(node, q); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	sta, ok := tables.Station(1)
	if !ok {
		t.Fatal("expected station 1 to exist after fetchClients")
	}
	si, ok := sta.Info(node.Name)
	if !ok || si.Connected != model.Connected {
		t.Fatalf("station 1 on %s: Connected = %v, want Connected", node.Name, si.Connected)
	}
	if created != 1 {
		t.Fatalf("OnNewStation called %d times, want 1", created)
	}

	// Second fetch with no clients present demotes the station instead of
	// destroying it outright.
	sim.SetClients(node.Name, nil)
	node.PollState = model.PollFetchClients
	if err := c.Poll(node, q); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if si.Connected != model.Disconnected {
		t.Fatalf("Connected = %v, want Disconnected after station dropped off the fixture", si.Connected)
	}
}

func TestHandleEventRoutesProbeThroughPipeline(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	sim := apdaemon.NewSim()
	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	tables.AddLocalNode(node)

	c := New(cfg, tables, sim, alwaysAdmit{})
	c.HandleEvent(node, apdaemon.Event{Kind: apdaemon.EventProbeReq, MAC: model.MAC(42), Freq: 2412, Signal: -60}, q, nil)

	sta, ok := tables.Station(42)
	if !ok {
		t.Fatal("expected probe event to create station 42")
	}
	if _, ok := sta.Info(node.Name); !ok {
		t.Fatal("expected a StationInfo on the probing node")
	}
}

func TestHandleEventBeaconReportInvokesCallback(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	sim := apdaemon.NewSim()
	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)

	c := New(cfg, tables, sim, alwaysAdmit{})

	var got *apdaemon.Event
	ev := apdaemon.Event{Kind: apdaemon.EventBeaconReport, MAC: model.MAC(1)}
	c.HandleEvent(node, ev, q, func(raw apdaemon.Event) { got = &raw })

	if got == nil || got.MAC != model.MAC(1) {
		t.Fatal("expected onBeacon to be invoked with the beacon-report event")
	}
}
