package controller

import (
	"testing"

	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"steerd/internal/apdaemon"
	"steerd/internal/metrics"
	"steerd/internal/model"
	"steerd/internal/timeout"
)

func newTestSI(node *model.LocalNode) *model.StationInfo {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	si, _ := tables.GetOrCreateInfo(model.MAC(1), node, q.Now())
	return si
}

func TestActionsAdapterRequestBeaconUsesWildcardChannel(t *testing.T) {
	sim := apdaemon.NewSim()
	a := actionsAdapter{client: sim, log: zap.NewNop().Sugar()}
	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	si := newTestSI(node)

	a.RequestBeacon(si, 1)

	if len(sim.Calls) != 1 {
		t.Fatalf("Calls = %v, want 1", sim.Calls)
	}
	want := "RequestBeacon(hostapd.wlan0, 00:00:00:00:00:01, ch=255, opclass=0, mode=1)"
	if sim.Calls[0] != want {
		t.Fatalf("got %q, want %q", sim.Calls[0], want)
	}
}

func TestActionsAdapterNotifyDisassocImminentCallsBothMethods(t *testing.T) {
	sim := apdaemon.NewSim()
	a := actionsAdapter{client: sim, log: zap.NewNop().Sugar()}
	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	si := newTestSI(node)

	neighborNode := model.NewLocalNode("hostapd.wlan1", "wlan1", 2)
	neighborNode.BSSID = model.MAC(2)

	a.NotifyDisassocImminent(si, 500, []model.Node{neighborNode})

	if len(sim.Calls) != 2 {
		t.Fatalf("Calls = %v, want 2 (NotifyResponse + NotifyDisassocImminent)", sim.Calls)
	}
}

func TestActionsAdapterDeleteClientIncrementsKickMetric(t *testing.T) {
	sim := apdaemon.NewSim()
	a := actionsAdapter{client: sim, log: zap.NewNop().Sugar()}
	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	si := newTestSI(node)

	before := testutil.ToFloat64(metrics.KicksIssued.WithLabelValues("roam"))
	a.DeleteClient(si, 5, "roam")
	after := testutil.ToFloat64(metrics.KicksIssued.WithLabelValues("roam"))

	if after != before+1 {
		t.Fatalf("kicks_issued{reason=roam} = %v, want %v", after, before+1)
	}
}

func TestActionsAdapterDeleteClientLabelsLoadKicksSeparately(t *testing.T) {
	sim := apdaemon.NewSim()
	a := actionsAdapter{client: sim, log: zap.NewNop().Sugar()}
	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	si := newTestSI(node)

	before := testutil.ToFloat64(metrics.KicksIssued.WithLabelValues("load"))
	a.DeleteClient(si, 5, "load")
	after := testutil.ToFloat64(metrics.KicksIssued.WithLabelValues("load"))

	if after != before+1 {
		t.Fatalf("kicks_issued{reason=load} = %v, want %v", after, before+1)
	}
}

func TestRequesterAdapterForwardsExactChannel(t *testing.T) {
	sim := apdaemon.NewSim()
	r := requesterAdapter{client: sim, log: zap.NewNop().Sugar()}
	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	si := newTestSI(node)

	r.RequestBeacon(si, 36, 115, 0)

	want := "RequestBeacon(hostapd.wlan0, 00:00:00:00:00:01, ch=36, opclass=115, mode=0)"
	if len(sim.Calls) != 1 || sim.Calls[0] != want {
		t.Fatalf("got %v, want [%q]", sim.Calls, want)
	}
}

func TestNilClientAdaptersAreNoOps(t *testing.T) {
	a := actionsAdapter{client: nil, log: zap.NewNop().Sugar()}
	node := model.NewLocalNode("hostapd.wlan0", "wlan0", 1)
	si := newTestSI(node)

	// None of these should panic with a nil client.
	a.RequestBeacon(si, 0)
	a.NotifyDisassocImminent(si, 0, nil)
	a.DeleteClient(si, 0, "roam")
}
