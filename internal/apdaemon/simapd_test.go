package apdaemon

import (
	"testing"

	"steerd/internal/model"
)

func TestSimGetClientsReturnsSeededFixture(t *testing.T) {
	s := NewSim()
	s.SetClients("node0", []ClientEntry{{MAC: 1, Signal: -60}})

	got, err := s.GetClients("node0")
	if err != nil {
		t.Fatalf("GetClients: %v", err)
	}
	if len(got) != 1 || got[0].MAC != 1 {
		t.Fatalf("GetClients = %+v, want one entry with MAC 1", got)
	}
}

func TestSimGetClientsReturnsCopyNotAlias(t *testing.T) {
	s := NewSim()
	s.SetClients("node0", []ClientEntry{{MAC: 1}})

	got, _ := s.GetClients("node0")
	got[0].MAC = 99

	again, _ := s.GetClients("node0")
	if again[0].MAC != 1 {
		t.Fatalf("mutating the returned slice affected the fixture: got %v", again[0].MAC)
	}
}

func TestSimRecordsCallsInOrder(t *testing.T) {
	s := NewSim()
	s.DeleteClient("node0", model.MAC(1), 5)
	s.NotifyDisassocImminent("node0", model.MAC(1), 100)

	if len(s.Calls) != 2 {
		t.Fatalf("Calls = %v, want 2 entries", s.Calls)
	}
}

func TestSimInjectDeliversOnEventsChannel(t *testing.T) {
	s := NewSim()
	s.Inject(Event{Kind: EventProbeReq, Node: "node0", MAC: model.MAC(7)})

	select {
	case ev := <-s.Events():
		if ev.Kind != EventProbeReq || ev.MAC != model.MAC(7) {
			t.Fatalf("got %+v, want probe event for MAC 7", ev)
		}
	default:
		t.Fatal("expected an event to be immediately available")
	}
}
