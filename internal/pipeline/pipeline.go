// Package pipeline implements the station event pipeline (component C):
// the admission check run for every probe/auth/assoc/beacon event, updating
// per-event counters and block windows before asking the roam/load-kick
// policy whether to accept the request.
package pipeline

import (
	"steerd/internal/config"
	"steerd/internal/model"
	"steerd/internal/timeout"
)

// Admitter is implemented by the roam/load-kick policy (component E); the
// pipeline asks it whether a given event should be admitted.
type Admitter interface {
	Admit(si *model.StationInfo, evt model.EventType) bool
}

// Ingest runs one event through the pipeline described in §4C and returns
// whether it was admitted. onCreated, if non-nil, is invoked with the SI
// when this call created it; Ingest itself triggers no gossip broadcast.
func Ingest(
	tables *model.Tables,
	q *timeout.Queue,
	cfg *config.Config,
	node model.Node,
	mac model.MAC,
	evt model.EventType,
	freqMHz int,
	signal model.Signal,
	avg bool,
	admitter Admitter,
	onCreated func(*model.StationInfo),
) bool {
	now := q.Now()

	si, created := tables.GetOrCreateInfo(mac, node, now)
	si.STA.ObserveBand(freqMHz)

	updateSignal(si, signal, avg)
	si.Seen = now
	if si.Connected != model.Connected {
		entry := si.EnsureTimeout(func() { tables.DestroySI(si) })
		q.Set(entry, cfg.LocalStaTimeout)
	}

	stats := si.Stats(evt)
	stats.Requests++

	// Wrap-safe block-window reset: diff is blocked_last_time - now as an
	// unsigned subtraction, so a blocked_last_time earlier than now wraps
	// to a huge diff and resets the window, while one at or up to
	// sta_block_timeout ahead of now leaves it alone. A fresh SI
	// with both fields zero yields diff=0, which must NOT reset the
	// window (§8 boundary behavior).
	diff := uint32(stats.BlockedLastTime - now)
	if diff > cfg.StaBlockTimeout {
		stats.BlockedCur = 0
	}

	admitted := admitter.Admit(si, evt)
	if admitted {
		stats.BlockedCur = 0
	} else {
		stats.BlockedCur++
		stats.BlockedTotal++
		stats.BlockedLastTime = now
	}

	if created && onCreated != nil {
		onCreated(si)
	}

	return admitted
}

// updateSignal implements step 3 of §4C: a stale signal report on an
// already-connected SI is ignored unless the report is an explicit average.
func updateSignal(si *model.StationInfo, signal model.Signal, avg bool) {
	if si.Connected == model.Connected && signal != model.NoSignal && !avg {
		return
	}
	si.Signal = signal
}
