package gossip

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	pkt := &Packet{
		ID:  42,
		Seq: 1,
		Nodes: []Node{
			{
				Name:       "ap2",
				SSID:       "net",
				MAC:        0x0011223344,
				Freq:       5180,
				Noise:      -95,
				Load:       10,
				NAssoc:     1,
				MaxAssoc:   32,
				RRMNr:      []byte{1, 2, 3},
				ScriptData: []byte("hello"),
				Stations: []Station{
					{Addr: 0xAABBCCDDEEFF, Connected: 1, Signal: -55, Seen: 500, Timeout: 120000},
				},
			},
		},
	}

	raw := Encode(pkt)
	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.ID != pkt.ID || got.Seq != pkt.Seq {
		t.Fatalf("ID/Seq mismatch: got %+v", got)
	}
	if len(got.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(got.Nodes))
	}
	n := got.Nodes[0]
	if n.Name != "ap2" || n.SSID != "net" || n.Freq != 5180 || n.NAssoc != 1 {
		t.Fatalf("node scalar mismatch: %+v", n)
	}
	if !bytes.Equal(n.RRMNr, []byte{1, 2, 3}) {
		t.Fatalf("RRM_NR not preserved byte for byte: %v", n.RRMNr)
	}
	if string(n.ScriptData) != "hello" {
		t.Fatalf("SCRIPT_DATA not preserved: %v", n.ScriptData)
	}
	if len(n.Stations) != 1 || n.Stations[0].Signal != -55 || n.Stations[0].Seen != 500 {
		t.Fatalf("station mismatch: %+v", n.Stations)
	}
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	pkt := &Packet{ID: 1, Seq: 1}
	raw := Encode(pkt)
	raw = append(raw, 0xFF) // trailer that invalidates the framed length

	if _, err := Decode(raw); err == nil {
		t.Fatal("expected length-mismatch error")
	}
}

func TestEmptyPacket(t *testing.T) {
	pkt := &Packet{ID: 7, Seq: 1}
	got, err := Decode(Encode(pkt))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Nodes) != 0 {
		t.Fatalf("expected no nodes, got %d", len(got.Nodes))
	}
}
