// Package config holds the controller's flat configuration struct
// (component H's data) and the get/set/update operations exposed on the
// management surface.
//
// This is deliberately not a property-tree RPC client reaching into a
// shared multi-daemon configuration store: that's a separate, external
// collaborator. What's kept is the shape of that kind of API -- a
// mutex-guarded struct with Get/Set plus change notification -- applied to
// a flat field list instead of a distributed property tree.
package config

import "sync"

// Config is the full set of settable fields from §6. Durations are
// expressed in milliseconds except where the field name says otherwise.
type Config struct {
	Syslog     bool
	DebugLevel uint32

	StaBlockTimeout   uint32
	LocalStaTimeout   uint32
	LocalStaUpdate    uint32
	MaxRetryBand      uint32
	SeenPolicyTimeout uint32

	BandSteeringThreshold int32
	LoadBalancingThreshold int32

	RemoteUpdateInterval uint32
	RemoteNodeTimeout    uint32
	RemoteDisabled       bool

	MinSNR              int32
	MinConnectSNR       int32
	SignalDiffThreshold int32

	RoamScanSNR      int32
	RoamScanTries    uint32
	RoamScanInterval uint32

	RoamTriggerSNR      int32
	RoamTriggerInterval uint32
	RoamKickDelay       uint32

	InitialConnectDelay uint32

	LoadKickEnabled     bool
	LoadKickThreshold   uint32
	LoadKickDelay       uint32
	LoadKickMinClients  uint32
	LoadKickReasonCode  uint32

	KickClientActiveSec   uint32
	KickClientActiveKbits uint32

	BeaconReportInvalidTimeout uint32 // seconds
	BeaconRequestFrequency     uint32
	BeaconRequestSignalModifier int32

	Interfaces  []string
	NodeUpScript string
}

// Default returns the configuration with every field set to the default
// value enumerated in §6.
func Default() *Config {
	return &Config{
		Syslog:            false,
		DebugLevel:        0, // FATAL
		StaBlockTimeout:   30000,
		LocalStaTimeout:   120000,
		LocalStaUpdate:    1000,
		MaxRetryBand:      5,
		SeenPolicyTimeout: 30000,

		BandSteeringThreshold:  5,
		LoadBalancingThreshold: 5,

		RemoteUpdateInterval: 1000,
		RemoteNodeTimeout:    120000,
		RemoteDisabled:       false,

		MinSNR:              0,
		MinConnectSNR:       0,
		SignalDiffThreshold: 0,

		RoamScanSNR:      0,
		RoamScanTries:    3,
		RoamScanInterval: 10000,

		RoamTriggerSNR:      0,
		RoamTriggerInterval: 60000,
		RoamKickDelay:       100,

		InitialConnectDelay: 0,

		LoadKickEnabled:    false,
		LoadKickThreshold:  75,
		LoadKickDelay:      10000,
		LoadKickMinClients: 10,
		LoadKickReasonCode: 5,

		KickClientActiveSec:   30,
		KickClientActiveKbits: 50000,

		BeaconReportInvalidTimeout:  200,
		BeaconRequestFrequency:      30000,
		BeaconRequestSignalModifier: 20000,
	}
}

// Store guards a live Config with a mutex and notifies registered watchers
// on change, the way apcfg dispatches to registered change handlers.
type Store struct {
	mu  sync.RWMutex
	cfg Config

	watchers []func(*Config)
}

// NewStore returns a Store initialized to the default configuration.
func NewStore() *Store {
	return &Store{cfg: *Default()}
}

// Get returns a copy of the current configuration, safe to read without
// holding any lock.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Watch registers a callback invoked, with the new configuration, every
// time Set or Update changes it, simplified to a single global callback
// list since this store has no property-path namespace to filter on.
func (s *Store) Watch(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

func (s *Store) notify() {
	cp := s.cfg
	for _, w := range s.watchers {
		w(&cp)
	}
}

// Set performs a full-replace configuration write (set_config from §4H):
// partial becomes the live configuration verbatim. A flat Config can't
// distinguish "caller left this at its zero value" from "caller omitted
// this field", so there is no separate defaulting step here; a caller
// wanting to reset to defaults should pass *Default() explicitly, and one
// wanting to change only a few fields should use Update instead.
func (s *Store) Set(partial Config) {
	s.mu.Lock()
	s.cfg = partial
	s.mu.Unlock()
	s.notify()
}

// Update applies a delta to specific fields via a mutator function,
// leaving every other field untouched (update_config from §4H).
func (s *Store) Update(mutate func(*Config)) {
	s.mu.Lock()
	mutate(&s.cfg)
	s.mu.Unlock()
	s.notify()
}
