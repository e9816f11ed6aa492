package apdaemon

import (
	"fmt"
	"sync"

	"steerd/internal/model"
)

// Sim is an in-memory Client used by tests and the simulation harness
// described in §8's end-to-end scenarios: it records every call made to
// it and lets the caller inject events synchronously, so test bodies can
// drive the controller without any real radio or transport.
type Sim struct {
	mu sync.Mutex

	clients map[string][]ClientEntry

	events chan Event

	NeighborReports map[string][]byte // last SetNeighborReport per node
	OwnReports      map[string][]byte // GetOwnNeighborReport fixtures

	// Calls records every mutating call made, in order, for assertions
	// like "exactly one DeleteClient was issued".
	Calls []string
}

// NewSim returns an empty simulated AP daemon. Events delivered via
// Inject are buffered up to 64 before Inject blocks.
func NewSim() *Sim {
	return &Sim{
		clients:         make(map[string][]ClientEntry),
		events:          make(chan Event, 64),
		NeighborReports: make(map[string][]byte),
		OwnReports:      make(map[string][]byte),
	}
}

// SetClients seeds the fixture GetClients(node) will return.
func (s *Sim) SetClients(node string, entries []ClientEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[node] = entries
}

// Inject delivers ev on the event channel, as a real Client would when
// the radio reports it.
func (s *Sim) Inject(ev Event) {
	s.events <- ev
}

func (s *Sim) record(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, fmt.Sprintf(format, args...))
}

func (s *Sim) GetClients(node string) ([]ClientEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ClientEntry(nil), s.clients[node]...), nil
}

func (s *Sim) SetNeighborReport(node string, rrmNR []byte) error {
	s.mu.Lock()
	s.NeighborReports[node] = rrmNR
	s.mu.Unlock()
	s.record("SetNeighborReport(%s, %d bytes)", node, len(rrmNR))
	return nil
}

func (s *Sim) GetOwnNeighborReport(node string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.OwnReports[node], nil
}

func (s *Sim) NotifyResponse(node string, mac model.MAC, kickDelayMsec uint32, neighbors []model.MAC) error {
	s.record("NotifyResponse(%s, %s, %d, %d neighbors)", node, mac, kickDelayMsec, len(neighbors))
	return nil
}

func (s *Sim) EnableBSSManagement(node string, mac model.MAC, enable bool) error {
	s.record("EnableBSSManagement(%s, %s, %v)", node, mac, enable)
	return nil
}

func (s *Sim) RequestBeacon(node string, mac model.MAC, channel, opClass, mode int) error {
	s.record("RequestBeacon(%s, %s, ch=%d, opclass=%d, mode=%d)", node, mac, channel, opClass, mode)
	return nil
}

func (s *Sim) NotifyDisassocImminent(node string, mac model.MAC, kickDelayMsec uint32) error {
	s.record("NotifyDisassocImminent(%s, %s, %d)", node, mac, kickDelayMsec)
	return nil
}

func (s *Sim) DeleteClient(node string, mac model.MAC, reasonCode uint32) error {
	s.record("DeleteClient(%s, %s, reason=%d)", node, mac, reasonCode)
	return nil
}

func (s *Sim) Events() <-chan Event {
	return s.events
}
