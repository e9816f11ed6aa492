// Package policy implements the roam/load-kick policy (component E): the
// per-SI state machine that picks a better target AP for a client and
// drives the BSS-transition / disassociation actions, plus the
// independent load-kick check run each poll.
package policy

import (
	"steerd/internal/config"
	"steerd/internal/model"
	"steerd/internal/timeout"
)

// Actions is implemented by whatever talks to the AP daemon on the
// policy's behalf (component L); it lets this package stay free of any
// particular RPC transport.
type Actions interface {
	RequestBeacon(si *model.StationInfo, mode int)
	NotifyDisassocImminent(si *model.StationInfo, kickDelayMsec uint32, neighbors []model.Node)
	DeleteClient(si *model.StationInfo, reasonCode uint32, kind string)
}

// Policy evaluates admission and roam/load-kick decisions against one
// configuration and entity model.
type Policy struct {
	cfg     *config.Config
	tables  *model.Tables
	actions Actions
}

// New returns a Policy bound to the given configuration, entity model, and
// action sink.
func New(cfg *config.Config, tables *model.Tables, actions Actions) *Policy {
	return &Policy{cfg: cfg, tables: tables, actions: actions}
}

// Admit implements pipeline.Admitter: the initial-connect grace period and
// the min_snr admission floor (§4E/§6) are the only rules assigned to this
// step; all other roaming logic runs independently off the poll cycle via
// Evaluate.
func (p *Policy) Admit(si *model.StationInfo, evt model.EventType) bool {
	now := nowOf(si)
	if uint32(now-si.Created) < p.cfg.InitialConnectDelay {
		return false
	}
	if si.Signal != model.NoSignal && int32(si.Signal) < p.cfg.MinSNR {
		return false
	}
	return true
}

// nowOf recovers "now" from the SI's own Seen stamp, since StationInfo
// doesn't carry a back-reference to the queue. Admit is always called
// immediately after the pipeline sets Seen=now, so this is exact.
func nowOf(si *model.StationInfo) timeout.Clock {
	return si.Seen
}

// candidateScore computes the effective signal delta of candidate versus
// current, per the bulleted rules in §4E. ok is false if the candidate is
// disqualified outright (stale, or below min_connect_snr).
func candidateScore(current, candidate *model.StationInfo, cfg *config.Config, now timeout.Clock) (delta int32, ok bool) {
	if uint32(now-candidate.Seen) > cfg.SeenPolicyTimeout {
		return 0, false
	}
	if int32(candidate.Signal) < cfg.MinConnectSNR {
		return 0, false
	}

	delta = int32(candidate.Signal) - int32(current.Signal)

	curBand := current.Node.Info().Band()
	candBand := candidate.Node.Info().Band()
	if curBand == "5GHz" && candBand == "2.4GHz" {
		delta -= cfg.BandSteeringThreshold
	} else if curBand == "2.4GHz" && candBand == "5GHz" {
		delta += cfg.BandSteeringThreshold
	}

	if candidate.Node.Info().Load > current.Node.Info().Load+int(cfg.LoadBalancingThreshold) {
		delta -= cfg.LoadBalancingThreshold
	}

	return delta, true
}

// BestCandidate returns the winning candidate SI for current, if any, per
// §4E's "candidate wins iff resulting delta > signal_diff_threshold" rule.
// It considers every other SI belonging to the same station.
func (p *Policy) BestCandidate(current *model.StationInfo, now timeout.Clock) *model.StationInfo {
	var best *model.StationInfo
	var bestDelta int32

	for _, si := range current.STA.Infos() {
		if si == current {
			continue
		}
		delta, ok := candidateScore(current, si, p.cfg, now)
		if !ok || delta <= p.cfg.SignalDiffThreshold {
			continue
		}
		if best == nil || delta > bestDelta {
			best, bestDelta = si, delta
		}
	}
	return best
}

// Evaluate advances the roam state machine for one connected SI by one
// poll tick (called after client reconciliation in the local-node
// controller's poll cycle, per §4D).
func (p *Policy) Evaluate(si *model.StationInfo, q *timeout.Queue) {
	now := q.Now()
	if si.Connected != model.Connected {
		return
	}

	switch si.RoamState {
	case model.RoamIdle:
		if int32(si.Signal) < p.cfg.RoamTriggerSNR &&
			uint32(now-si.RoamScanDone) >= p.cfg.RoamTriggerInterval {
			si.RoamState = model.RoamScan
			si.RoamTries = 0
		}

	case model.RoamScan:
		// Abort back to Idle if the signal has recovered past the scan
		// threshold mid-scan; don't chase a client that no longer needs
		// to roam.
		if si.Signal != model.NoSignal && int32(si.Signal) >= p.cfg.RoamScanSNR {
			si.RoamState = model.RoamIdle
			return
		}
		// Pace beacon requests by roam_scan_interval rather than every
		// poll tick; the first request of a scan fires immediately.
		if si.RoamTries > 0 && uint32(now-si.RoamLastScan) < p.cfg.RoamScanInterval {
			return
		}
		si.RoamLastScan = now
		si.RoamTries++
		si.ScanBand = !si.ScanBand
		mode := 1
		if si.ScanBand {
			mode = 0
		}
		p.actions.RequestBeacon(si, mode)

		if uint32(si.RoamTries) >= p.cfg.RoamScanTries {
			si.RoamState = model.RoamScanDone
		}

	case model.RoamScanDone:
		si.RoamScanDone = now
		if best := p.BestCandidate(si, now); best != nil {
			si.RoamState = model.RoamWaitKick
			p.kickToward(si, best, q)
		} else {
			si.RoamState = model.RoamIdle
		}

	case model.RoamWaitKick:
		si.RoamState = model.RoamNotifyKick
		p.actions.NotifyDisassocImminent(si, p.cfg.RoamKickDelay, p.sameSSIDNeighbors(si))

	case model.RoamNotifyKick:
		if uint32(now-si.RoamKick) >= p.cfg.RoamKickDelay {
			si.RoamState = model.RoamKick
			p.actions.DeleteClient(si, p.cfg.LoadKickReasonCode, "roam")
			si.Connected = model.Disconnected
			si.KickCount++
			si.RoamState = model.RoamIdle
		}

	case model.RoamKick:
		si.RoamState = model.RoamIdle
	}
}

func (p *Policy) kickToward(si, target *model.StationInfo, q *timeout.Queue) {
	si.RoamKick = q.Now()
}

func (p *Policy) sameSSIDNeighbors(si *model.StationInfo) []model.Node {
	ssid := si.Node.Info().SSID
	var out []model.Node
	for _, n := range p.tables.LocalNodes() {
		if n.SSID == ssid && n.Name != si.Node.Info().Name {
			out = append(out, n)
		}
	}
	for _, n := range p.tables.RemoteNodes() {
		if n.SSID == ssid {
			out = append(out, n)
		}
	}
	return out
}

// EvaluateLoadKick implements the independent load-kick check from §4E: on
// a heavily loaded node with enough clients, every connected SI whose recent
// bit-rate exceeds kick_client_active_kbits is kicked, except an SI that is
// mid-roam (not RoamIdle) and finished a roam scan less than load_kick_delay
// ms ago.
func (p *Policy) EvaluateLoadKick(node *model.LocalNode, q *timeout.Queue) {
	if !p.cfg.LoadKickEnabled {
		return
	}
	if node.Load < int(p.cfg.LoadKickThreshold) {
		return
	}
	if node.NAssoc < int(p.cfg.LoadKickMinClients) {
		return
	}

	now := q.Now()
	for _, si := range node.Infos() {
		if si.Connected != model.Connected {
			continue
		}
		if uint32(now-si.RoamScanDone) < p.cfg.LoadKickDelay && si.RoamState != model.RoamIdle {
			continue
		}
		if si.ActiveKbps(now) <= float64(p.cfg.KickClientActiveKbits) {
			continue
		}

		p.actions.DeleteClient(si, p.cfg.LoadKickReasonCode, "load")
		si.Connected = model.Disconnected
		si.KickCount++
	}
}
