package model

import (
	"fmt"

	"steerd/internal/timeout"
)

// remoteKey buckets remote nodes by (peer id, name): per-id bucketing
// tolerates two different peers publishing a node with the same name.
type remoteKey struct {
	peerID uint32
	name   string
}

// Tables is the single top-level owner of every entity in the controller,
// matching the design notes' requirement that the local-nodes tree,
// remote-nodes tree, and stations tree be lifecycle-owned by one value
// rather than live as process-wide globals.
type Tables struct {
	stations    map[MAC]*Station
	localNodes  map[string]*LocalNode
	remoteNodes map[remoteKey]*RemoteNode

	timeouts *timeout.Queue

	// OnDestroySI, if set, is called just before a StationInfo is
	// removed from both its station's and its node's tables, giving the
	// roam policy (component E) and hearing map (component F) a chance
	// to cancel any AP-daemon requests and scheduling state that
	// reference it. Destruction itself is not undone if this returns;
	// it exists purely for cleanup.
	OnDestroySI func(*StationInfo)
}

// NewTables returns an empty entity model bound to the given timeout queue,
// which it uses to cancel an SI's armed timers when the SI is destroyed.
func NewTables(q *timeout.Queue) *Tables {
	return &Tables{
		stations:    make(map[MAC]*Station),
		localNodes:  make(map[string]*LocalNode),
		remoteNodes: make(map[remoteKey]*RemoteNode),
		timeouts:    q,
	}
}

// Station returns the station with the given MAC, if known.
func (t *Tables) Station(mac MAC) (*Station, bool) {
	s, ok := t.stations[mac]
	return s, ok
}

// Stations returns every known station.
func (t *Tables) Stations() []*Station {
	out := make([]*Station, 0, len(t.stations))
	for _, s := range t.stations {
		out = append(out, s)
	}
	return out
}

func (t *Tables) getOrCreateStation(mac MAC) *Station {
	if s, ok := t.stations[mac]; ok {
		return s
	}
	s := newStation(mac)
	t.stations[mac] = s
	return s
}

// AddLocalNode registers a local node, as happens when the AP daemon
// publishes a matching "hostapd.*" object (component D).
func (t *Tables) AddLocalNode(n *LocalNode) {
	t.localNodes[n.Name] = n
}

// LocalNode returns the local node with the given name, if known.
func (t *Tables) LocalNode(name string) (*LocalNode, bool) {
	n, ok := t.localNodes[name]
	return n, ok
}

// LocalNodes returns every known local node.
func (t *Tables) LocalNodes() []*LocalNode {
	out := make([]*LocalNode, 0, len(t.localNodes))
	for _, n := range t.localNodes {
		out = append(out, n)
	}
	return out
}

// RemoveLocalNode destroys a local node and cascades to all of its SIs.
func (t *Tables) RemoveLocalNode(name string) {
	n, ok := t.localNodes[name]
	if !ok {
		return
	}
	t.destroyNodeInfos(&n.NodeInfo)
	delete(t.localNodes, name)
}

// GetOrCreateRemoteNode finds or creates the remote node bucketed under
// (peerID, name), as used by the gossip consumer (component G).
func (t *Tables) GetOrCreateRemoteNode(peerID uint32, peerAddr, name string) *RemoteNode {
	key := remoteKey{peerID, name}
	if n, ok := t.remoteNodes[key]; ok {
		return n
	}
	n := NewRemoteNode(name, peerAddr, peerID)
	t.remoteNodes[key] = n
	return n
}

// RemoteNodes returns every known remote node.
func (t *Tables) RemoteNodes() []*RemoteNode {
	out := make([]*RemoteNode, 0, len(t.remoteNodes))
	for _, n := range t.remoteNodes {
		out = append(out, n)
	}
	return out
}

// TickRemoteFreshness increments every remote node's freshness counter (at
// a producer tick) and reaps any node that has gone too many ticks without
// being refreshed, cascading the destruction to its SIs. maxTicks is
// remote_node_timeout / remote_update_interval.
func (t *Tables) TickRemoteFreshness(maxTicks int) {
	for key, n := range t.remoteNodes {
		n.FreshnessTicks++
		if n.FreshnessTicks > maxTicks {
			t.destroyNodeInfos(&n.NodeInfo)
			delete(t.remoteNodes, key)
		}
	}
}

// GetOrCreateInfo finds or creates the StationInfo for (mac, node),
// creating the Station too if this is its first observation (component
// C step 1-2).
func (t *Tables) GetOrCreateInfo(mac MAC, node Node, now timeout.Clock) (si *StationInfo, created bool) {
	sta := t.getOrCreateStation(mac)
	if existing, ok := sta.infos[node.Info().Name]; ok {
		return existing, false
	}

	si = newStationInfo(sta, node, now)
	sta.infos[node.Info().Name] = si
	node.Info().infos[mac] = si
	return si, true
}

// DestroySI removes an SI from both its station's and its node's tables,
// cascading to destroy the station if it has no SIs left.
func (t *Tables) DestroySI(si *StationInfo) {
	if t.OnDestroySI != nil {
		t.OnDestroySI(si)
	}
	if si.Timeout != nil {
		t.timeouts.Cancel(si.Timeout)
	}
	if si.BeaconReq != nil {
		t.timeouts.Cancel(si.BeaconReq)
	}

	delete(si.STA.infos, si.Node.Info().Name)
	delete(si.Node.Info().infos, si.STA.MAC)

	if len(si.STA.infos) == 0 {
		delete(t.stations, si.STA.MAC)
	}
}

func (t *Tables) destroyNodeInfos(n *NodeInfo) {
	for _, si := range n.Infos() {
		t.DestroySI(si)
	}
}

// NodeString is used in log lines identifying a node regardless of variant.
func NodeString(n Node) string {
	kind := "remote"
	if n.IsLocal() {
		kind = "local"
	}
	return fmt.Sprintf("%s:%s", kind, n.Info().Name)
}
