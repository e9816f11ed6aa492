package model

import "steerd/internal/timeout"

// PollState is the local-node controller's poll cycle position (component
// D): Idle -> FetchClients -> PublishNeighbors -> FetchOwnNeighbor -> Idle.
type PollState int

const (
	PollIdle PollState = iota
	PollFetchClients
	PollPublishNeighbors
	PollFetchOwnNeighbor
)

// NodeInfo holds the attributes common to both local and remote nodes.
type NodeInfo struct {
	Name string

	SSID      string
	FreqMHz   int
	NoiseDBm  int
	Load      int // 0-255 channel-busy percentage
	NAssoc    int
	MaxAssoc  int
	BSSID     MAC
	RRMNr     []byte // opaque neighbor-report blob, array of 3-tuples
	ScriptData []byte

	// infos is keyed by the Station's MAC, the Node's half of the
	// SI-in-two-lists membership.
	infos map[MAC]*StationInfo
}

func newNodeInfo(name string) NodeInfo {
	return NodeInfo{
		Name:  name,
		infos: make(map[MAC]*StationInfo),
	}
}

// Infos returns every StationInfo attached to this node.
func (n *NodeInfo) Infos() []*StationInfo {
	out := make([]*StationInfo, 0, len(n.infos))
	for _, si := range n.infos {
		out = append(out, si)
	}
	return out
}

// Band returns which band this node's operating frequency falls in.
func (n *NodeInfo) Band() string {
	if n.FreqMHz < 4000 {
		return "2.4GHz"
	}
	return "5GHz"
}

// Node is the capability every node, local or remote, exposes to the
// roaming policy and hearing map; it lets those components treat a
// candidate AP uniformly regardless of variant.
type Node interface {
	Info() *NodeInfo
	IsLocal() bool
}

// LocalNode is a node attached to the AP daemon this controller instance
// manages. It is registered when the AP daemon publishes a "hostapd.*"
// object (component D) and drives its own poll state machine.
type LocalNode struct {
	NodeInfo

	Iface     string
	IfIndex   int
	ObjectID  string // AP-daemon's bus object id for this radio
	PollState PollState

	// LoadEWMA holds a smoothed load value. Nothing in this module updates
	// it; the load-kick policy (component E) compares the latest Load
	// sample instead.
	LoadEWMA float64

	UpdateTimer *timeout.Entry
}

func NewLocalNode(name, iface string, ifIndex int) *LocalNode {
	return &LocalNode{
		NodeInfo: newNodeInfo(name),
		Iface:    iface,
		IfIndex:  ifIndex,
	}
}

func (n *LocalNode) Info() *NodeInfo { return &n.NodeInfo }
func (n *LocalNode) IsLocal() bool   { return true }

// RemoteNode is a node learned from a peer's gossip packet (component G).
// It is reaped if not refreshed within remote_node_timeout /
// remote_update_interval sync ticks.
type RemoteNode struct {
	NodeInfo

	PeerAddr string // sender address the packet arrived from
	PeerID   uint32 // sender's local_id, for (id,name) bucketing

	// FreshnessTicks counts producer ticks since the last receipt; reset
	// to 0 on receipt, incremented on every local producer tick.
	FreshnessTicks int
}

func NewRemoteNode(name, peerAddr string, peerID uint32) *RemoteNode {
	return &RemoteNode{
		NodeInfo: newNodeInfo(name),
		PeerAddr: peerAddr,
		PeerID:   peerID,
	}
}

func (n *RemoteNode) Info() *NodeInfo { return &n.NodeInfo }
func (n *RemoteNode) IsLocal() bool   { return false }
