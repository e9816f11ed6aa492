// Package controller wires every component into the single cooperative
// event loop described in the concurrency model (§5): one goroutine owns
// the entity model, timeout queue, policy, and hearing map outright;
// metrics and the bus connections run on their own goroutines but only
// ever hand work to the core loop through channels, preserving
// single-writer semantics without requiring the whole process to be
// single-threaded.
package controller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"steerd/internal/apdaemon"
	"steerd/internal/config"
	"steerd/internal/gossip"
	"steerd/internal/hearing"
	"steerd/internal/localnode"
	"steerd/internal/metrics"
	"steerd/internal/mgmt"
	"steerd/internal/model"
	"steerd/internal/pipeline"
	"steerd/internal/policy"
	"steerd/internal/timeout"
	"steerd/internal/zaperr"
)

// Controller owns every piece of mutable state the roaming logic touches
// and runs the event loop that serializes access to it.
type Controller struct {
	log *zap.SugaredLogger

	cfg   *config.Config
	store *config.Store

	tables  *model.Tables
	queue   *timeout.Queue
	policy  *policy.Policy
	hearing *hearing.Map
	gossip  *gossip.Gossip
	poller  *localnode.Controller
	mgmt    *mgmt.Surface

	client     apdaemon.Client
	transports []gossip.Transport

	start time.Time

	peerRx chan peerDatagram
	cfgCh  chan config.Config
}

type peerDatagram struct {
	raw  []byte
	addr string
}

// New assembles a Controller. transports may be empty (gossip disabled
// entirely by omission, distinct from cfg.RemoteDisabled which still
// opens sockets but withholds traffic).
func New(log *zap.SugaredLogger, store *config.Store, client apdaemon.Client, transports []gossip.Transport) *Controller {
	cfg := store.Get()
	cfgCopy := cfg

	q := timeout.NewQueue(0)
	tables := model.NewTables(q)

	c := &Controller{
		log:        log,
		cfg:        &cfgCopy,
		store:      store,
		tables:     tables,
		queue:      q,
		client:     client,
		transports: transports,
		start:      time.Now(),
		peerRx:     make(chan peerDatagram, 64),
		cfgCh:      make(chan config.Config, 4),
	}

	c.policy = policy.New(c.cfg, tables, actionsAdapter{client: client, log: log})
	c.hearing = hearing.New(c.cfg, tables, requesterAdapter{client: client, log: log})
	c.gossip = gossip.New(c.cfg, tables, transports)
	c.poller = localnode.New(c.cfg, tables, client, c.policy)
	c.mgmt = mgmt.New(tables, store)

	// Newly observed stations get 802.11k/v management frames enabled up
	// front, so the roam scans and BSS-transition requests §4E later
	// issues against them actually take effect on the radio.
	c.poller.OnNewStation = func(si *model.StationInfo) {
		if client == nil {
			return
		}
		if err := client.EnableBSSManagement(si.Node.Info().Name, si.STA.MAC, true); err != nil {
			c.log.Warnw("enable bss management failed",
				zap.Object("error", zaperr.Errorw("enable bss management failed", "sta", si.STA.MAC, "err", err)))
		}
	}

	tables.OnDestroySI = func(si *model.StationInfo) {
		if si.BeaconReq != nil {
			q.Cancel(si.BeaconReq)
		}
	}

	store.Watch(func(updated *config.Config) {
		for {
			select {
			case c.cfgCh <- *updated:
				return
			default:
				// the loop hasn't drained the pending updates yet;
				// drop the oldest one so the newest value still gets
				// through.
				select {
				case <-c.cfgCh:
				default:
				}
			}
		}
	})

	return c
}

// now converts wall-clock elapsed time since Controller creation into the
// timeout package's wrap-safe millisecond clock.
func (c *Controller) now() timeout.Clock {
	return timeout.Clock(uint32(time.Since(c.start).Milliseconds()))
}

// Mgmt returns the management surface, for the admin CLI/bus handlers to
// bind to.
func (c *Controller) Mgmt() *mgmt.Surface { return c.mgmt }

// AddLocalNode registers a local node and arms its recurring poll timer.
func (c *Controller) AddLocalNode(n *model.LocalNode) {
	c.tables.AddLocalNode(n)

	var entry *timeout.Entry
	tick := func() {
		if err := c.poller.Poll(n, c.queue); err != nil {
			c.log.Warnw("poll failed",
				zap.Object("error", zaperr.Errorw("poll failed", "node", n.Name, "err", err)))
		}
		metrics.NodeLoad.WithLabelValues(n.Name).Set(float64(n.Load))
		if n.PollState == model.PollIdle {
			for _, si := range n.Infos() {
				c.policy.Evaluate(si, c.queue)
			}
			c.policy.EvaluateLoadKick(n, c.queue)
		}
		c.queue.Set(entry, c.cfg.LocalStaUpdate)
	}
	entry = timeout.NewEntry(tick)
	n.UpdateTimer = entry
	c.queue.Set(entry, c.cfg.LocalStaUpdate)
}

// Run starts the gossip receive pump (one goroutine per transport) and
// then blocks in the core event loop until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	for _, t := range c.transports {
		go c.recvLoop(ctx, t)
	}

	var gossipTick *timeout.Entry
	armGossipTick := func() {
		if err := c.gossip.Tick(c.queue); err != nil {
			c.log.Warnw("gossip tick failed",
				zap.Object("error", zaperr.Errorw("gossip tick failed", "err", err)))
		} else if !c.cfg.RemoteDisabled {
			metrics.PeerPacketsSent.Add(float64(len(c.transports)))
		}
		metrics.KnownStations.Set(float64(len(c.tables.Stations())))
		metrics.KnownLocalNodes.Set(float64(len(c.tables.LocalNodes())))
		metrics.KnownRemoteNodes.Set(float64(len(c.tables.RemoteNodes())))
		c.queue.Set(gossipTick, c.cfg.RemoteUpdateInterval)
	}
	gossipTick = timeout.NewEntry(armGossipTick)
	c.queue.Set(gossipTick, c.cfg.RemoteUpdateInterval)

	var events <-chan apdaemon.Event
	if c.client != nil {
		events = c.client.Events()
	}

	timer := time.NewTimer(time.Millisecond)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case newCfg := <-c.cfgCh:
			*c.cfg = newCfg

		case d := <-c.peerRx:
			if err := c.gossip.Receive(d.raw, d.addr, c.queue); err != nil {
				c.log.Debugw("dropping malformed peer packet",
					zap.Object("error", zaperr.Errorw("dropping malformed peer packet", "peer", d.addr, "err", err)))
				metrics.PeerPacketsDropped.Inc()
			} else {
				metrics.PeerPacketsReceived.Inc()
			}

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.handleEvent(ev)

		case <-timer.C:
		}

		now := c.now()
		c.queue.Advance(now)

		if head, ok := c.queue.HeadDeadline(); ok {
			d := time.Duration(int32(head-now)) * time.Millisecond
			if d < time.Millisecond {
				d = time.Millisecond
			}
			timer.Reset(d)
		} else {
			timer.Reset(100 * time.Millisecond)
		}
	}
}

func (c *Controller) handleEvent(ev apdaemon.Event) {
	node, ok := c.tables.LocalNode(ev.Node)
	if !ok {
		return
	}

	admitted := c.poller.HandleEvent(node, ev, c.queue, func(raw apdaemon.Event) {
		if raw.Report == nil {
			return
		}
		r := raw.Report
		ok := c.hearing.IngestReport(node, raw.MAC, r.BSSID, r.OpClass, r.Channel, r.RCPI, r.RSNI, r.Duration, r.StartTime, c.queue)
		if ok {
			metrics.BeaconReportsIngested.Inc()
		}
	})

	var label string
	switch ev.Kind {
	case apdaemon.EventProbeReq:
		label = "probe"
	case apdaemon.EventAuthReq:
		label = "auth"
	case apdaemon.EventAssocReq:
		label = "assoc"
	}
	if label == "" {
		return
	}
	if admitted {
		metrics.AdmissionsAccepted.WithLabelValues(label).Inc()
	} else {
		metrics.AdmissionsBlocked.WithLabelValues(label).Inc()
	}
}

func (c *Controller) recvLoop(ctx context.Context, t gossip.Transport) {
	buf := make([]byte, gossip.MaxPacketSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, iface, err := t.Recv(buf)
		if err != nil {
			c.log.Warnw("transport recv failed",
				zap.Object("error", zaperr.Errorw("transport recv failed", "iface", iface, "err", err)))
			continue
		}

		raw := make([]byte, n)
		copy(raw, buf[:n])

		select {
		case c.peerRx <- peerDatagram{raw: raw, addr: iface}:
		case <-ctx.Done():
			return
		}
	}
}

// actionsAdapter implements policy.Actions in terms of an apdaemon.Client.
type actionsAdapter struct {
	client apdaemon.Client
	log    *zap.SugaredLogger
}

func (a actionsAdapter) RequestBeacon(si *model.StationInfo, mode int) {
	if a.client == nil {
		return
	}
	// Roam-triggered scans sweep every channel rather than probing one
	// AP, so they use the 802.11k wildcard channel/op-class.
	const wildcardChannel = 255
	if err := a.client.RequestBeacon(si.Node.Info().Name, si.STA.MAC, wildcardChannel, 0, mode); err != nil {
		a.log.Warnw("roam scan beacon request failed",
			zap.Object("error", zaperr.Errorw("roam scan beacon request failed", "sta", si.STA.MAC, "err", err)))
		return
	}
	metrics.BeaconRequestsSent.Inc()
}

func (a actionsAdapter) NotifyDisassocImminent(si *model.StationInfo, kickDelayMsec uint32, neighbors []model.Node) {
	if a.client == nil {
		return
	}
	node := si.Node.Info().Name
	macs := make([]model.MAC, 0, len(neighbors))
	for _, n := range neighbors {
		macs = append(macs, n.Info().BSSID)
	}
	if err := a.client.NotifyResponse(node, si.STA.MAC, kickDelayMsec, macs); err != nil {
		a.log.Warnw("bss transition request failed",
			zap.Object("error", zaperr.Errorw("bss transition request failed", "sta", si.STA.MAC, "err", err)))
	}
	if err := a.client.NotifyDisassocImminent(node, si.STA.MAC, kickDelayMsec); err != nil {
		a.log.Warnw("disassoc-imminent notice failed",
			zap.Object("error", zaperr.Errorw("disassoc-imminent notice failed", "sta", si.STA.MAC, "err", err)))
	}
}

func (a actionsAdapter) DeleteClient(si *model.StationInfo, reasonCode uint32, kind string) {
	if a.client == nil {
		return
	}
	if err := a.client.DeleteClient(si.Node.Info().Name, si.STA.MAC, reasonCode); err != nil {
		a.log.Warnw("delete client failed",
			zap.Object("error", zaperr.Errorw("delete client failed", "sta", si.STA.MAC, "kind", kind, "err", err)))
		return
	}
	metrics.KicksIssued.WithLabelValues(kind).Inc()
}

// requesterAdapter implements hearing.Requester in terms of an
// apdaemon.Client.
type requesterAdapter struct {
	client apdaemon.Client
	log    *zap.SugaredLogger
}

func (r requesterAdapter) RequestBeacon(si *model.StationInfo, channel, opClass, mode int) {
	if r.client == nil {
		return
	}
	if err := r.client.RequestBeacon(si.Node.Info().Name, si.STA.MAC, channel, opClass, mode); err != nil {
		r.log.Warnw("beacon request failed",
			zap.Object("error", zaperr.Errorw("beacon request failed", "sta", si.STA.MAC, "err", err)))
		return
	}
	metrics.BeaconRequestsSent.Inc()
}

// Ingest is exported for the bus-driven configuration RPC
// surface's benefit, letting it feed synthetic events through the same
// path real apdaemon events take.
func (c *Controller) Ingest(nodeName string, mac model.MAC, evt model.EventType, freqMHz int, signal model.Signal) bool {
	node, ok := c.tables.LocalNode(nodeName)
	if !ok {
		return false
	}
	return pipeline.Ingest(c.tables, c.queue, c.cfg, node, mac, evt, freqMHz, signal, false, c.policy, nil)
}
