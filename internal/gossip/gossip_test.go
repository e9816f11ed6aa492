package gossip

import (
	"testing"

	"steerd/internal/config"
	"steerd/internal/model"
	"steerd/internal/timeout"
)

func TestReceiveBuildsRemoteNode(t *testing.T) {
	q := timeout.NewQueue(1000)
	tables := model.NewTables(q)
	cfg := config.Default()
	g := New(cfg, tables, nil)

	pkt := &Packet{
		ID:  42,
		Seq: 1,
		Nodes: []Node{
			{
				Name:     "ap2",
				SSID:     "net",
				Freq:     5180,
				NAssoc:   1,
				Stations: []Station{{Addr: 0x0102030405, Connected: 1, Signal: -55, Seen: 500, Timeout: 120000}},
			},
		},
	}

	if err := g.Receive(Encode(pkt), "fe80::2", q); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	nodes := tables.RemoteNodes()
	if len(nodes) != 1 || nodes[0].Name != "ap2" || nodes[0].FreqMHz != 5180 {
		t.Fatalf("unexpected remote nodes: %+v", nodes)
	}

	sta, ok := tables.Station(0x0102030405)
	if !ok {
		t.Fatal("station not created")
	}
	si, ok := sta.Info("ap2")
	if !ok {
		t.Fatal("SI not created")
	}
	if si.Signal != -55 {
		t.Fatalf("signal = %v, want -55", si.Signal)
	}
	if si.Seen != q.Now()-500 {
		t.Fatalf("seen = %v, want %v", si.Seen, q.Now()-500)
	}
}

func TestSelfEchoDropped(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	g := New(cfg, tables, nil)

	pkt := &Packet{ID: g.ID(), Seq: 1, Nodes: []Node{{Name: "self"}}}
	if err := g.Receive(Encode(pkt), "fe80::1", q); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	if len(tables.RemoteNodes()) != 0 {
		t.Fatal("self-echo packet should not create a remote node")
	}
}

func TestTickEmptyControllerProducesEmptyDump(t *testing.T) {
	q := timeout.NewQueue(0)
	tables := model.NewTables(q)
	cfg := config.Default()
	g := New(cfg, tables, nil)

	if err := g.Tick(q); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	pkt := g.buildPacket(q.Now())
	if pkt.Seq != 2 { // Tick already incremented seq once
		t.Fatalf("seq = %d, want 2", pkt.Seq)
	}
	if len(pkt.Nodes) != 0 {
		t.Fatalf("expected no nodes, got %d", len(pkt.Nodes))
	}
}
