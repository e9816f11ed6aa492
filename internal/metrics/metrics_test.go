package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterOnceDoesNotPanic(t *testing.T) {
	Register()
}

func TestCountersAccumulate(t *testing.T) {
	before := testutil.ToFloat64(PeerPacketsSent)
	PeerPacketsSent.Inc()
	after := testutil.ToFloat64(PeerPacketsSent)

	if after != before+1 {
		t.Fatalf("PeerPacketsSent = %v, want %v", after, before+1)
	}
}

func TestLabeledCountersAreIndependentPerLabel(t *testing.T) {
	AdmissionsAccepted.WithLabelValues("probe").Inc()
	AdmissionsAccepted.WithLabelValues("assoc").Add(2)

	if got := testutil.ToFloat64(AdmissionsAccepted.WithLabelValues("probe")); got < 1 {
		t.Fatalf("probe counter = %v, want >= 1", got)
	}
	if got := testutil.ToFloat64(AdmissionsAccepted.WithLabelValues("assoc")); got < 2 {
		t.Fatalf("assoc counter = %v, want >= 2", got)
	}
}

func TestGaugeSetReflectsLastValue(t *testing.T) {
	KnownStations.Set(4)
	if got := testutil.ToFloat64(KnownStations); got != 4 {
		t.Fatalf("KnownStations = %v, want 4", got)
	}
	KnownStations.Set(1)
	if got := testutil.ToFloat64(KnownStations); got != 1 {
		t.Fatalf("KnownStations = %v, want 1", got)
	}
}
