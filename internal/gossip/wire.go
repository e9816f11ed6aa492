// Package gossip implements the peer gossip protocol (component G): a
// binary blob-framed UDP multicast sync of local node state and client
// snapshots, with TTL reaping of peers that stop refreshing.
//
// The wire encoding is a hand-rolled, positionally-tagged binary layout in
// the style of remote.c's blob_put/blob_nest nesting and of the pack's own
// davidcoles-cue/bgp message assembly: every field is written and read in a
// fixed order, with explicit length prefixes for variable-length data.
// There is no library in the example pack that does this particular
// nested-blob framing, so it is built directly on encoding/binary (see
// DESIGN.md).
package gossip

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"steerd/internal/model"
)

// MaxPacketSize is the buffer limit from §6: 64 KiB per datagram.
const MaxPacketSize = 64 * 1024

// Station is the wire form of one STATION entry.
type Station struct {
	Addr      model.MAC
	Connected uint8
	Signal    int32
	Seen      uint32
	Timeout   uint32
}

// Node is the wire form of one NODE entry.
type Node struct {
	Name       string
	SSID       string
	MAC        model.MAC
	Freq       uint32
	Noise      int32
	Load       uint32
	NAssoc     uint32
	MaxAssoc   uint32
	RRMNr      []byte
	ScriptData []byte
	Stations   []Station
}

// Packet is the wire form of a full gossip datagram.
type Packet struct {
	ID    uint32
	Seq   uint32
	Nodes []Node
}

func putString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.BigEndian, uint16(len(s)))
	buf.WriteString(s)
}

func putBytes(buf *bytes.Buffer, b []byte) {
	binary.Write(buf, binary.BigEndian, uint16(len(b)))
	buf.Write(b)
}

func putMAC(buf *bytes.Buffer, m model.MAC) {
	var b [6]byte
	binary.BigEndian.PutUint16(b[0:2], uint16(m>>32))
	binary.BigEndian.PutUint32(b[2:6], uint32(m))
	buf.Write(b[:])
}

// Encode serializes pkt into the wire format described in §4G/§6, prefixed
// with its own total length so a receiver can verify the framed length
// matches the datagram it actually got.
func Encode(pkt *Packet) []byte {
	body := &bytes.Buffer{}
	binary.Write(body, binary.BigEndian, pkt.ID)
	binary.Write(body, binary.BigEndian, pkt.Seq)
	binary.Write(body, binary.BigEndian, uint32(len(pkt.Nodes)))

	for _, n := range pkt.Nodes {
		putString(body, n.Name)
		putString(body, n.SSID)
		putMAC(body, n.MAC)
		binary.Write(body, binary.BigEndian, n.Freq)
		binary.Write(body, binary.BigEndian, n.Noise)
		binary.Write(body, binary.BigEndian, n.Load)
		binary.Write(body, binary.BigEndian, n.NAssoc)
		binary.Write(body, binary.BigEndian, n.MaxAssoc)
		putBytes(body, n.RRMNr)
		putBytes(body, n.ScriptData)

		binary.Write(body, binary.BigEndian, uint32(len(n.Stations)))
		for _, s := range n.Stations {
			putMAC(body, s.Addr)
			binary.Write(body, binary.BigEndian, s.Connected)
			binary.Write(body, binary.BigEndian, s.Signal)
			binary.Write(body, binary.BigEndian, s.Seen)
			binary.Write(body, binary.BigEndian, s.Timeout)
		}
	}

	out := &bytes.Buffer{}
	binary.Write(out, binary.BigEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func getString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}

func getBytes(r *bytes.Reader) ([]byte, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func getMAC(r *bytes.Reader) (model.MAC, error) {
	var b [6]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	hi := uint64(binary.BigEndian.Uint16(b[0:2]))
	lo := uint64(binary.BigEndian.Uint32(b[2:6]))
	return model.MAC((hi << 32) | lo), nil
}

// Decode parses a received datagram, verifying its framed length header
// matches the actual number of bytes received before trusting the rest of
// the packet. A length mismatch or any short read is a "peer malformed"
// error (§7): the caller should log at debug and drop the packet without
// disturbing any state.
func Decode(raw []byte) (*Packet, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("gossip: packet too short for length header")
	}
	frameLen := binary.BigEndian.Uint32(raw[0:4])
	body := raw[4:]
	if uint32(len(body)) != frameLen {
		return nil, fmt.Errorf("gossip: framed length %d does not match body length %d", frameLen, len(body))
	}

	r := bytes.NewReader(body)
	pkt := &Packet{}

	if err := binary.Read(r, binary.BigEndian, &pkt.ID); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &pkt.Seq); err != nil {
		return nil, err
	}
	var nodeCount uint32
	if err := binary.Read(r, binary.BigEndian, &nodeCount); err != nil {
		return nil, err
	}

	pkt.Nodes = make([]Node, 0, nodeCount)
	for i := uint32(0); i < nodeCount; i++ {
		var n Node
		var err error
		if n.Name, err = getString(r); err != nil {
			return nil, err
		}
		if n.SSID, err = getString(r); err != nil {
			return nil, err
		}
		if n.MAC, err = getMAC(r); err != nil {
			return nil, err
		}
		if err = binary.Read(r, binary.BigEndian, &n.Freq); err != nil {
			return nil, err
		}
		if err = binary.Read(r, binary.BigEndian, &n.Noise); err != nil {
			return nil, err
		}
		if err = binary.Read(r, binary.BigEndian, &n.Load); err != nil {
			return nil, err
		}
		if err = binary.Read(r, binary.BigEndian, &n.NAssoc); err != nil {
			return nil, err
		}
		if err = binary.Read(r, binary.BigEndian, &n.MaxAssoc); err != nil {
			return nil, err
		}
		if n.RRMNr, err = getBytes(r); err != nil {
			return nil, err
		}
		if n.ScriptData, err = getBytes(r); err != nil {
			return nil, err
		}

		var staCount uint32
		if err = binary.Read(r, binary.BigEndian, &staCount); err != nil {
			return nil, err
		}
		n.Stations = make([]Station, 0, staCount)
		for j := uint32(0); j < staCount; j++ {
			var s Station
			if s.Addr, err = getMAC(r); err != nil {
				return nil, err
			}
			if err = binary.Read(r, binary.BigEndian, &s.Connected); err != nil {
				return nil, err
			}
			if err = binary.Read(r, binary.BigEndian, &s.Signal); err != nil {
				return nil, err
			}
			if err = binary.Read(r, binary.BigEndian, &s.Seen); err != nil {
				return nil, err
			}
			if err = binary.Read(r, binary.BigEndian, &s.Timeout); err != nil {
				return nil, err
			}
			n.Stations = append(n.Stations, s)
		}

		pkt.Nodes = append(pkt.Nodes, n)
	}

	return pkt, nil
}
