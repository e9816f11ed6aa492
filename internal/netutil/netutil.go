// Package netutil holds small MAC/IP encoding helpers shared by the entity
// model (component B) and the management server (component H), so that a
// station's 48-bit MAC identity has one canonical uint64 representation
// usable as a map key and one canonical 6-byte net.HardwareAddr form. The
// peer-gossip wire codec (component G) packs MACs with its own helpers.
package netutil

import (
	"encoding/binary"
	"net"
)

// MACToUint64 packs a 6-byte hardware address into the low 48 bits of a
// uint64, suitable for use as a map key for the station table.
func MACToUint64(a net.HardwareAddr) uint64 {
	b := make([]byte, 8)
	copy(b[2:], a)
	return binary.BigEndian.Uint64(b)
}

// Uint64ToMAC is the inverse of MACToUint64.
func Uint64ToMAC(v uint64) net.HardwareAddr {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return net.HardwareAddr(b[2:])
}

// ParseMACToUint64 parses a MAC address string and packs it. A string that
// doesn't parse yields 0 together with net.ParseMAC's error, so callers can
// tell a malformed address from the zero address.
func ParseMACToUint64(mac string) (uint64, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return 0, err
	}
	return MACToUint64(hw), nil
}
