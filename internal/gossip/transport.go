package gossip

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"steerd/internal/basedef"
)

// Transport sends and receives raw gossip datagrams on one address family.
// Per the design notes, both IPv4 broadcast and IPv6 link-local multicast
// are supported simultaneously through this interface rather than a
// build-time choice, each carrying the receive interface's index in its
// control message the way IP_PKTINFO does in the reference source.
type Transport interface {
	// Send transmits raw on every joined interface.
	Send(raw []byte) error
	// Recv blocks until a datagram arrives, returning its bytes and the
	// name of the interface it arrived on.
	Recv(buf []byte) (n int, iface string, err error)
	Close() error
}

// v6Transport multicasts to ff02::2 on each configured interface using an
// IPv6 UDP PacketConn.
type v6Transport struct {
	conn  *ipv6.PacketConn
	udp   net.PacketConn
	ifs   []*net.Interface
	group *net.UDPAddr
}

// NewIPv6Transport joins the gossip multicast group on every named
// interface.
func NewIPv6Transport(ifaceNames []string) (Transport, error) {
	udp, err := net.ListenPacket("udp6", fmt.Sprintf("[::]:%d", basedef.GossipPort))
	if err != nil {
		return nil, err
	}
	pc := ipv6.NewPacketConn(udp)

	group := &net.UDPAddr{IP: net.ParseIP(basedef.GossipGroupV6), Port: basedef.GossipPort}

	var ifs []*net.Interface
	for _, name := range ifaceNames {
		ifi, err := net.InterfaceByName(name)
		if err != nil {
			udp.Close()
			return nil, fmt.Errorf("gossip: interface %s: %w", name, err)
		}
		if err := pc.JoinGroup(ifi, group); err != nil {
			udp.Close()
			return nil, fmt.Errorf("gossip: join %s on %s: %w", basedef.GossipGroupV6, name, err)
		}
		ifs = append(ifs, ifi)
	}
	if err := pc.SetControlMessage(ipv6.FlagInterface, true); err != nil {
		udp.Close()
		return nil, err
	}

	return &v6Transport{conn: pc, udp: udp, ifs: ifs, group: group}, nil
}

func (t *v6Transport) Send(raw []byte) error {
	for _, ifi := range t.ifs {
		cm := &ipv6.ControlMessage{IfIndex: ifi.Index}
		if _, err := t.conn.WriteTo(raw, cm, t.group); err != nil {
			return fmt.Errorf("gossip: send on %s: %w", ifi.Name, err)
		}
	}
	return nil
}

func (t *v6Transport) Recv(buf []byte) (int, string, error) {
	n, cm, _, err := t.conn.ReadFrom(buf)
	if err != nil {
		return 0, "", err
	}
	name := ""
	if cm != nil {
		if ifi, err := net.InterfaceByIndex(cm.IfIndex); err == nil {
			name = ifi.Name
		}
	}
	return n, name, nil
}

func (t *v6Transport) Close() error {
	return t.udp.Close()
}

// v4Transport broadcasts to each interface's subnet using an IPv4 UDP
// PacketConn, for deployments without IPv6 multicast support.
type v4Transport struct {
	conn *ipv4.PacketConn
	udp  net.PacketConn
	ifs  []*net.Interface
}

// NewIPv4Transport listens for broadcast gossip datagrams on every named
// interface.
func NewIPv4Transport(ifaceNames []string) (Transport, error) {
	udp, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", basedef.GossipPort))
	if err != nil {
		return nil, err
	}
	pc := ipv4.NewPacketConn(udp)
	if err := pc.SetControlMessage(ipv4.FlagInterface, true); err != nil {
		udp.Close()
		return nil, err
	}

	var ifs []*net.Interface
	for _, name := range ifaceNames {
		ifi, err := net.InterfaceByName(name)
		if err != nil {
			udp.Close()
			return nil, fmt.Errorf("gossip: interface %s: %w", name, err)
		}
		ifs = append(ifs, ifi)
	}

	return &v4Transport{conn: pc, udp: udp, ifs: ifs}, nil
}

func broadcastAddr(ifi *net.Interface) (*net.UDPAddr, error) {
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.To4() == nil {
			continue
		}
		bcast := make(net.IP, 4)
		ip4 := ipnet.IP.To4()
		for i := range bcast {
			bcast[i] = ip4[i] | ^ipnet.Mask[i]
		}
		return &net.UDPAddr{IP: bcast, Port: basedef.GossipPort}, nil
	}
	return nil, fmt.Errorf("gossip: no IPv4 address on %s", ifi.Name)
}

func (t *v4Transport) Send(raw []byte) error {
	for _, ifi := range t.ifs {
		dst, err := broadcastAddr(ifi)
		if err != nil {
			return err
		}
		cm := &ipv4.ControlMessage{IfIndex: ifi.Index}
		if _, err := t.conn.WriteTo(raw, cm, dst); err != nil {
			return fmt.Errorf("gossip: send on %s: %w", ifi.Name, err)
		}
	}
	return nil
}

func (t *v4Transport) Recv(buf []byte) (int, string, error) {
	n, cm, _, err := t.conn.ReadFrom(buf)
	if err != nil {
		return 0, "", err
	}
	name := ""
	if cm != nil {
		if ifi, err := net.InterfaceByIndex(cm.IfIndex); err == nil {
			name = ifi.Name
		}
	}
	return n, name, nil
}

func (t *v4Transport) Close() error {
	return t.udp.Close()
}
