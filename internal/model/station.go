// Package model implements the entity model (component B): stations,
// per-(station,node) info, local and remote node records, and the
// hearing-map beacon reports attached to a StationInfo.
//
// The reference source represents these as AVL-tree nodes and intrusive
// doubly linked lists threaded through container_of upcasts. This package
// instead uses one table per entity kind, owned by the Tables value, with
// membership expressed as ordinary Go maps and destruction driven by
// explicit cascade calls rather than address arithmetic.
package model

import "steerd/internal/netutil"

// MAC is a station's 48-bit hardware address, packed into a uint64 so it
// can be used directly as a map key.
type MAC uint64

// String renders the MAC in the usual colon-separated hex form.
func (m MAC) String() string {
	return netutil.Uint64ToMAC(uint64(m)).String()
}

// Station is a client identified by its MAC address. It exists for as long
// as it has at least one StationInfo; see Tables.DestroySI.
type Station struct {
	MAC MAC

	Seen2GHz bool
	Seen5GHz bool

	// infos is keyed by the Node's name, giving this station's half of
	// the SI-in-two-lists membership described in the data model.
	infos map[string]*StationInfo
}

func newStation(mac MAC) *Station {
	return &Station{
		MAC:   mac,
		infos: make(map[string]*StationInfo),
	}
}

// Infos returns every StationInfo for this station, across all nodes.
func (s *Station) Infos() []*StationInfo {
	out := make([]*StationInfo, 0, len(s.infos))
	for _, si := range s.infos {
		out = append(out, si)
	}
	return out
}

// Info returns the StationInfo for this station at the given node, if any.
func (s *Station) Info(nodeName string) (*StationInfo, bool) {
	si, ok := s.infos[nodeName]
	return si, ok
}

// ObserveBand updates the band-seen flags per the 4000 MHz split used
// throughout the component design.
func (s *Station) ObserveBand(freqMHz int) {
	if freqMHz < 4000 {
		s.Seen2GHz = true
	} else {
		s.Seen5GHz = true
	}
}
