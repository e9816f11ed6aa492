// Package mgmt implements the management surface (component H): read/write
// access to configuration and observable state, exposed to both the
// AP-management bus and the steerctl admin CLI over the same transport.
package mgmt

import (
	"fmt"

	"steerd/internal/config"
	"steerd/internal/model"
)

// ClientInfo is one row of get_clients: a station's state on one node.
type ClientInfo struct {
	MAC       string
	Node      string
	Connected bool
	Signal    int32
}

// ClientDetail adds the per-event-type statistics to ClientInfo, returned
// by get_client_info.
type ClientDetail struct {
	ClientInfo
	Requests     [4]uint64
	BlockedCur   [4]uint32
	BlockedTotal [4]uint64
}

// NodeInfo is one row of local_info/remote_info.
type NodeInfo struct {
	Name     string
	SSID     string
	FreqMHz  int
	Load     int
	NAssoc   int
	MaxAssoc int
	Local    bool
}

// Surface implements the operations listed in §4H/§6's "Management object".
type Surface struct {
	tables *model.Tables
	store  *config.Store
}

// New returns a management surface bound to the given entity model and
// configuration store.
func New(tables *model.Tables, store *config.Store) *Surface {
	return &Surface{tables: tables, store: store}
}

// GetClients enumerates every known station's per-node state.
func (s *Surface) GetClients() []ClientInfo {
	var out []ClientInfo
	for _, sta := range s.tables.Stations() {
		for _, si := range sta.Infos() {
			out = append(out, ClientInfo{
				MAC:       sta.MAC.String(),
				Node:      si.Node.Info().Name,
				Connected: si.Connected == model.Connected,
				Signal:    int32(si.Signal),
			})
		}
	}
	return out
}

// GetClientInfo returns full detail for one station across all its nodes.
func (s *Surface) GetClientInfo(mac model.MAC) ([]ClientDetail, error) {
	sta, ok := s.tables.Station(mac)
	if !ok {
		return nil, fmt.Errorf("mgmt: unknown station %s", mac)
	}

	var out []ClientDetail
	for _, si := range sta.Infos() {
		d := ClientDetail{
			ClientInfo: ClientInfo{
				MAC:       sta.MAC.String(),
				Node:      si.Node.Info().Name,
				Connected: si.Connected == model.Connected,
				Signal:    int32(si.Signal),
			},
		}
		for t := model.EventProbe; t <= model.EventBeacon; t++ {
			stats := si.Stats(t)
			d.Requests[t] = stats.Requests
			d.BlockedCur[t] = stats.BlockedCur
			d.BlockedTotal[t] = stats.BlockedTotal
		}
		out = append(out, d)
	}
	return out, nil
}

// LocalInfo enumerates local nodes.
func (s *Surface) LocalInfo() []NodeInfo {
	var out []NodeInfo
	for _, n := range s.tables.LocalNodes() {
		out = append(out, nodeInfoOf(n, true))
	}
	return out
}

// RemoteInfo enumerates remote nodes.
func (s *Surface) RemoteInfo() []NodeInfo {
	var out []NodeInfo
	for _, n := range s.tables.RemoteNodes() {
		out = append(out, nodeInfoOf(n, false))
	}
	return out
}

func nodeInfoOf(n model.Node, local bool) NodeInfo {
	info := n.Info()
	return NodeInfo{
		Name: info.Name, SSID: info.SSID, FreqMHz: info.FreqMHz,
		Load: info.Load, NAssoc: info.NAssoc, MaxAssoc: info.MaxAssoc,
		Local: local,
	}
}

// GetConfig returns a copy of the live configuration.
func (s *Surface) GetConfig() config.Config {
	return s.store.Get()
}

// SetConfig performs a full-replace write: cfg becomes the live
// configuration verbatim, field for field. There is no defaulting step,
// since a flat Config has no way to distinguish a field the caller left
// at its zero value from one it omitted; callers that want to change only
// some fields should call UpdateConfig instead. set_config(get_config())
// is still a no-op on observable state, since get_config always returns a
// fully populated Config.
func (s *Surface) SetConfig(cfg config.Config) {
	s.store.Set(cfg)
}

// UpdateConfig applies a delta mutation without disturbing unspecified
// fields. Unknown fields (fields the caller didn't know to set in mutate)
// are, by construction of this API, simply left untouched rather than
// rejected, matching the "configuration unknown field: ignored" rule in §7.
func (s *Surface) UpdateConfig(mutate func(*config.Config)) {
	s.store.Update(mutate)
}
