// Package localnode drives the per-radio poll state machine (component D):
// fetching a radio's current clients, reconciling them against the entity
// model, publishing a merged neighbor report, and pulling back the
// radio's own. Grounded in ap.wifid's per-interface control loop, but
// rewritten around the apdaemon.Client boundary instead of a direct
// hostapd control socket.
package localnode

import (
	"steerd/internal/apdaemon"
	"steerd/internal/config"
	"steerd/internal/model"
	"steerd/internal/pipeline"
	"steerd/internal/timeout"
)

// Controller drives one local node's poll cycle and client reconciliation.
type Controller struct {
	cfg    *config.Config
	tables *model.Tables
	client apdaemon.Client
	admitter pipeline.Admitter

	// OnNewStation, if set, is called whenever Poll creates a SI for a
	// station not previously known on this node.
	OnNewStation func(*model.StationInfo)
}

// New returns a poll-cycle controller for the given node's client.
func New(cfg *config.Config, tables *model.Tables, client apdaemon.Client, admitter pipeline.Admitter) *Controller {
	return &Controller{cfg: cfg, tables: tables, client: client, admitter: admitter}
}

// Poll advances node through one full cycle: FetchClients,
// PublishNeighbors, FetchOwnNeighbor, returning to Idle. Each call
// performs exactly one state's work and advances node.PollState, so the
// caller's event loop can interleave poll cycles across many local nodes
// without any one of them blocking the others for long.
func (c *Controller) Poll(node *model.LocalNode, q *timeout.Queue) error {
	switch node.PollState {
	case model.PollIdle:
		node.PollState = model.PollFetchClients
		return nil

	case model.PollFetchClients:
		if err := c.fetchClients(node, q); err != nil {
			return err
		}
		node.PollState = model.PollPublishNeighbors
		return nil

	case model.PollPublishNeighbors:
		if err := c.publishNeighbors(node); err != nil {
			return err
		}
		node.PollState = model.PollFetchOwnNeighbor
		return nil

	case model.PollFetchOwnNeighbor:
		if err := c.fetchOwnNeighbor(node); err != nil {
			return err
		}
		node.PollState = model.PollIdle
		return nil
	}

	node.PollState = model.PollIdle
	return nil
}

// fetchClients pulls the radio's current association list and reconciles
// it against the entity model: every SI already marked Connected on this
// node is first flagged ConnectedStale, then reconfirmed (or demoted to
// Disconnected) as the fresh list is walked, per the design notes'
// "never visible outside this step" rule for ConnectedStale.
func (c *Controller) fetchClients(node *model.LocalNode, q *timeout.Queue) error {
	entries, err := c.client.GetClients(node.Name)
	if err != nil {
		return err
	}

	for _, si := range node.Infos() {
		if si.Connected == model.Connected {
			si.Connected = model.ConnectedStale
		}
	}

	now := q.Now()
	for _, e := range entries {
		si, created := c.tables.GetOrCreateInfo(e.MAC, node, now)
		si.Connected = model.Connected
		if si.Timeout != nil {
			q.Cancel(si.Timeout)
		}
		si.Signal = e.Signal
		si.Seen = now
		si.PushByteSample(e.RxBytes, e.TxBytes, now, c.cfg.KickClientActiveSec*1000)

		if created && c.OnNewStation != nil {
			c.OnNewStation(si)
		}
	}

	for _, si := range node.Infos() {
		if si.Connected == model.ConnectedStale {
			si := si
			si.Connected = model.Disconnected
			entry := si.EnsureTimeout(func() { c.tables.DestroySI(si) })
			q.Set(entry, c.cfg.LocalStaTimeout)
		}
	}

	return nil
}

// publishNeighbors merges every same-SSID node's 802.11k neighbor-report
// blob (local and remote) and pushes the result down to node, so clients
// already associated can query it directly.
func (c *Controller) publishNeighbors(node *model.LocalNode) error {
	var merged []byte
	for _, n := range c.tables.LocalNodes() {
		if n.Name == node.Name || n.SSID != node.SSID {
			continue
		}
		merged = append(merged, n.RRMNr...)
	}
	for _, n := range c.tables.RemoteNodes() {
		if n.SSID != node.SSID {
			continue
		}
		merged = append(merged, n.RRMNr...)
	}

	return c.client.SetNeighborReport(node.Name, merged)
}

// fetchOwnNeighbor retrieves node's self-reported neighbor-report entry,
// which gets folded into this controller's own gossip dump (component G).
func (c *Controller) fetchOwnNeighbor(node *model.LocalNode) error {
	rrmNR, err := c.client.GetOwnNeighborReport(node.Name)
	if err != nil {
		return err
	}
	node.RRMNr = rrmNR
	return nil
}

// HandleEvent feeds one asynchronous apdaemon event into the admission
// pipeline (probe/auth/assoc) or the caller-supplied beacon ingestion
// function (beacon report), matching component D's description of how
// FetchClients-independent events reach the rest of the controller. It
// returns the pipeline's admit/block decision for probe/auth/assoc events,
// and false for a beacon report (which never carries an admission outcome).
func (c *Controller) HandleEvent(node *model.LocalNode, ev apdaemon.Event, q *timeout.Queue, onBeacon func(apdaemon.Event)) bool {
	switch ev.Kind {
	case apdaemon.EventProbeReq:
		return pipeline.Ingest(c.tables, q, c.cfg, node, ev.MAC, model.EventProbe, ev.Freq, ev.Signal, false, c.admitter, c.OnNewStation)
	case apdaemon.EventAuthReq:
		return pipeline.Ingest(c.tables, q, c.cfg, node, ev.MAC, model.EventAuth, ev.Freq, ev.Signal, false, c.admitter, c.OnNewStation)
	case apdaemon.EventAssocReq:
		return pipeline.Ingest(c.tables, q, c.cfg, node, ev.MAC, model.EventAssoc, ev.Freq, ev.Signal, false, c.admitter, c.OnNewStation)
	case apdaemon.EventBeaconReport:
		if onBeacon != nil {
			onBeacon(ev)
		}
	}
	return false
}
