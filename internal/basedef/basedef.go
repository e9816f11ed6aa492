// Package basedef holds the constant ports, topics, and URLs shared between
// steerd and steerctl, the way base_def does for the appliance's daemons.
package basedef

const (
	// LocalZmqURL is the transport prefix used for the local broker and
	// mcp sockets.
	LocalZmqURL = "tcp://127.0.0.1"

	BrokerZmqPubPort = "3131"
	BrokerZmqSubPort = "3132"
	MCPZmqRepPort    = "3139"

	// ApdaemonReqPort/ApdaemonSubPort are the AP daemon's own control and
	// event endpoints (component L), distinct from the supervisor/broker
	// ports above.
	ApdaemonReqPort = "3140"
	ApdaemonSubPort = "3141"

	// MgmtZmqRepPort is steerd's own management surface (component H),
	// the endpoint steerctl talks to.
	MgmtZmqRepPort = "3142"

	LocalZmqSendTimeout = 5 // seconds
	LocalZmqRecvTimeout = 5 // seconds

	// TopicConfig is the broker topic used to announce a configuration
	// change applied through the out-of-scope configuration RPC surface.
	TopicConfig = "sys.config"
	// TopicPing is used for the broker's own liveness check.
	TopicPing = "sys.ping"

	// SteerdPrometheusPort is the default -metrics-addr port.
	SteerdPrometheusPort = "3205"

	// GossipPort is the peer-gossip UDP port (component G).
	GossipPort = 16720

	// GossipGroupV6 is the IPv6 link-local multicast group peers listen
	// on.
	GossipGroupV6 = "ff02::2"
)
