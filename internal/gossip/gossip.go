package gossip

import (
	"crypto/rand"
	"encoding/binary"

	"steerd/internal/config"
	"steerd/internal/model"
	"steerd/internal/timeout"
)

// localID draws 32 random bits once at startup from the OS randomness
// source, per §4G; there is no handshake, versioning, or authentication.
func localID() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable on any real
		// target; the reference source treats the analogous
		// /dev/urandom failure as fatal too.
		panic("gossip: failed to read local id: " + err.Error())
	}
	return binary.BigEndian.Uint32(b[:])
}

// Gossip owns the producer/consumer side of component G: serializing this
// controller's view of its local nodes, multicasting it, and folding
// received peer packets back into the shared entity model.
type Gossip struct {
	cfg    *config.Config
	tables *model.Tables
	transports []Transport

	id  uint32
	seq uint32
}

// New returns a Gossip instance with a freshly drawn local id.
func New(cfg *config.Config, tables *model.Tables, transports []Transport) *Gossip {
	return &Gossip{cfg: cfg, tables: tables, transports: transports, id: localID()}
}

// ID returns this instance's local id, used by peers to recognize and drop
// their own echoes.
func (g *Gossip) ID() uint32 {
	return g.id
}

// buildPacket serializes every local node and its SIs, a full dump, per
// the producer description in §4G.
func (g *Gossip) buildPacket(now timeout.Clock) *Packet {
	g.seq++
	pkt := &Packet{ID: g.id, Seq: g.seq}

	for _, n := range g.tables.LocalNodes() {
		wn := Node{
			Name:       n.Name,
			SSID:       n.SSID,
			MAC:        n.BSSID,
			Freq:       uint32(n.FreqMHz),
			Noise:      int32(n.NoiseDBm),
			Load:       uint32(n.Load),
			NAssoc:     uint32(n.NAssoc),
			MaxAssoc:   uint32(n.MaxAssoc),
			RRMNr:      n.RRMNr,
			ScriptData: n.ScriptData,
		}
		for _, si := range n.Infos() {
			wn.Stations = append(wn.Stations, Station{
				Addr:      si.STA.MAC,
				Connected: uint8(si.Connected),
				Signal:    int32(si.Signal),
				Seen:      uint32(now - si.Seen),
				Timeout:   timeoutMsec(si, now),
			})
		}
		pkt.Nodes = append(pkt.Nodes, wn)
	}

	return pkt
}

func timeoutMsec(si *model.StationInfo, now timeout.Clock) uint32 {
	if si.Timeout == nil || !si.Timeout.Armed() {
		return 0
	}
	return uint32(si.Timeout.Deadline() - now)
}

// Tick runs one producer cycle (every remote_update_interval ms): sends a
// full dump on every transport, then ages and reaps remote nodes that
// haven't been refreshed within remote_node_timeout/remote_update_interval
// ticks.
func (g *Gossip) Tick(q *timeout.Queue) error {
	if g.cfg.RemoteDisabled {
		return nil
	}

	pkt := g.buildPacket(q.Now())
	raw := Encode(pkt)

	var firstErr error
	for _, t := range g.transports {
		if err := t.Send(raw); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	maxTicks := 1
	if g.cfg.RemoteUpdateInterval > 0 {
		maxTicks = int(g.cfg.RemoteNodeTimeout / g.cfg.RemoteUpdateInterval)
	}
	g.tables.TickRemoteFreshness(maxTicks)

	return firstErr
}

// Receive processes one datagram received from peerAddr, per the consumer
// description in §4G. Any error is a "peer malformed" condition (§7): the
// caller should log at debug and drop without disturbing state, which this
// function guarantees by validating before mutating anything.
func (g *Gossip) Receive(raw []byte, peerAddr string, q *timeout.Queue) error {
	pkt, err := Decode(raw)
	if err != nil {
		return err
	}
	if pkt.ID == g.id {
		// self-echo, silent drop per §7
		return nil
	}

	now := q.Now()
	for _, wn := range pkt.Nodes {
		rn := g.tables.GetOrCreateRemoteNode(pkt.ID, peerAddr, wn.Name)
		rn.FreshnessTicks = 0
		rn.SSID = wn.SSID
		rn.BSSID = wn.MAC
		rn.FreqMHz = int(wn.Freq)
		rn.NoiseDBm = int(wn.Noise)
		rn.Load = int(wn.Load)
		rn.NAssoc = int(wn.NAssoc)
		rn.MaxAssoc = int(wn.MaxAssoc)
		rn.RRMNr = wn.RRMNr
		rn.ScriptData = wn.ScriptData

		for _, ws := range wn.Stations {
			si, _ := g.tables.GetOrCreateInfo(ws.Addr, rn, now)
			si.Connected = model.ConnState(ws.Connected)
			si.Signal = model.Signal(ws.Signal)
			si.Seen = now - timeout.Clock(ws.Seen)

			if si.Connected != model.Connected {
				entry := si.EnsureTimeout(func() { g.tables.DestroySI(si) })
				q.Set(entry, ws.Timeout)
			}
		}
	}

	return nil
}
