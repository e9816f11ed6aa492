package apdaemon

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	zmq "github.com/pebbe/zmq4"

	"steerd/internal/model"
)

// wire request/response shapes for the REQ/REP control channel, and the
// event envelope for the SUB channel the AP daemon publishes on. JSON
// stands in for the bus's protobuf envelope, as elsewhere in this
// collaborator.
type wireRequest struct {
	Method string          `json:"method"`
	Node   string          `json:"node"`
	Args   json.RawMessage `json:"args,omitempty"`
}

type wireResponse struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

type wireEvent struct {
	Kind   string               `json:"kind"`
	Node   string               `json:"node"`
	MAC    string               `json:"mac"`
	Freq   int                  `json:"freq,omitempty"`
	Signal int32                `json:"signal,omitempty"`
	Report *wireBeaconReport    `json:"report,omitempty"`
}

type wireBeaconReport struct {
	BSSID     string `json:"bssid"`
	OpClass   int    `json:"op_class"`
	Channel   int    `json:"channel"`
	RCPI      int    `json:"rcpi"`
	RSNI      int    `json:"rsni"`
	Duration  int    `json:"duration"`
	StartTime uint32 `json:"start_time"`
}

// ZMQClient is the real-transport apdaemon.Client: a REQ socket for
// synchronous calls and a SUB socket for asynchronous per-radio events,
// the same split mcp and broker use for their respective halves of the
// bus protocol.
type ZMQClient struct {
	mu  sync.Mutex
	req *zmq.Socket
	sub *zmq.Socket

	events chan Event
	done   chan struct{}
}

// DialZMQ connects to an AP daemon's control (REQ/REP) and event (PUB/SUB)
// endpoints.
func DialZMQ(reqAddr, subAddr string) (*ZMQClient, error) {
	req, err := zmq.NewSocket(zmq.REQ)
	if err != nil {
		return nil, fmt.Errorf("apdaemon: new req socket: %w", err)
	}
	if err := req.SetSndtimeo(5 * time.Second); err != nil {
		return nil, err
	}
	if err := req.SetRcvtimeo(5 * time.Second); err != nil {
		return nil, err
	}
	if err := req.Connect(reqAddr); err != nil {
		return nil, fmt.Errorf("apdaemon: connect req %s: %w", reqAddr, err)
	}

	sub, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		return nil, fmt.Errorf("apdaemon: new sub socket: %w", err)
	}
	if err := sub.Connect(subAddr); err != nil {
		return nil, fmt.Errorf("apdaemon: connect sub %s: %w", subAddr, err)
	}
	sub.SetSubscribe("")

	c := &ZMQClient{
		req:    req,
		sub:    sub,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
	go c.listen()
	return c, nil
}

func (c *ZMQClient) call(method, node string, args interface{}, result interface{}) error {
	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("apdaemon: marshal args: %w", err)
		}
		raw = b
	}

	data, err := json.Marshal(wireRequest{Method: method, Node: node, Args: raw})
	if err != nil {
		return fmt.Errorf("apdaemon: marshal request: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.req.SendBytes(data, 0); err != nil {
		return fmt.Errorf("apdaemon: send %s: %w", method, err)
	}
	reply, err := c.req.RecvBytes(0)
	if err != nil {
		return fmt.Errorf("apdaemon: recv %s: %w", method, err)
	}

	var resp wireResponse
	if err := json.Unmarshal(reply, &resp); err != nil {
		return fmt.Errorf("apdaemon: unmarshal %s response: %w", method, err)
	}
	if !resp.OK {
		return fmt.Errorf("apdaemon: %s: %s", method, resp.Error)
	}
	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("apdaemon: unmarshal %s result: %w", method, err)
		}
	}
	return nil
}

func (c *ZMQClient) GetClients(node string) ([]ClientEntry, error) {
	var wire []struct {
		MAC     string `json:"mac"`
		Signal  int32  `json:"signal"`
		RxBytes uint64 `json:"rx_bytes"`
		TxBytes uint64 `json:"tx_bytes"`
	}
	if err := c.call("get_clients", node, nil, &wire); err != nil {
		return nil, err
	}

	out := make([]ClientEntry, 0, len(wire))
	for _, w := range wire {
		mac, err := parseMAC(w.MAC)
		if err != nil {
			continue
		}
		out = append(out, ClientEntry{MAC: mac, Signal: model.Signal(w.Signal), RxBytes: w.RxBytes, TxBytes: w.TxBytes})
	}
	return out, nil
}

func (c *ZMQClient) SetNeighborReport(node string, rrmNR []byte) error {
	return c.call("set_neighbor_report", node, map[string][]byte{"rrm_nr": rrmNR}, nil)
}

func (c *ZMQClient) GetOwnNeighborReport(node string) ([]byte, error) {
	var result struct {
		RRMNr []byte `json:"rrm_nr"`
	}
	if err := c.call("get_own_neighbor_report", node, nil, &result); err != nil {
		return nil, err
	}
	return result.RRMNr, nil
}

func (c *ZMQClient) NotifyResponse(node string, mac model.MAC, kickDelayMsec uint32, neighbors []model.MAC) error {
	strs := make([]string, len(neighbors))
	for i, n := range neighbors {
		strs[i] = n.String()
	}
	return c.call("notify_response", node, map[string]interface{}{
		"mac": mac.String(), "kick_delay_msec": kickDelayMsec, "neighbors": strs,
	}, nil)
}

func (c *ZMQClient) EnableBSSManagement(node string, mac model.MAC, enable bool) error {
	return c.call("enable_bss_management", node, map[string]interface{}{
		"mac": mac.String(), "enable": enable,
	}, nil)
}

func (c *ZMQClient) RequestBeacon(node string, mac model.MAC, channel, opClass, mode int) error {
	return c.call("request_beacon", node, map[string]interface{}{
		"mac": mac.String(), "channel": channel, "op_class": opClass, "mode": mode,
	}, nil)
}

func (c *ZMQClient) NotifyDisassocImminent(node string, mac model.MAC, kickDelayMsec uint32) error {
	return c.call("notify_disassoc_imminent", node, map[string]interface{}{
		"mac": mac.String(), "kick_delay_msec": kickDelayMsec,
	}, nil)
}

func (c *ZMQClient) DeleteClient(node string, mac model.MAC, reasonCode uint32) error {
	return c.call("delete_client", node, map[string]interface{}{
		"mac": mac.String(), "reason_code": reasonCode,
	}, nil)
}

func (c *ZMQClient) Events() <-chan Event {
	return c.events
}

func (c *ZMQClient) listen() {
	defer close(c.events)
	for {
		raw, err := c.sub.RecvBytes(0)
		if err != nil {
			select {
			case <-c.done:
				return
			default:
				continue
			}
		}

		var we wireEvent
		if err := json.Unmarshal(raw, &we); err != nil {
			continue
		}
		mac, err := parseMAC(we.MAC)
		if err != nil {
			continue
		}

		ev := Event{Node: we.Node, MAC: mac, Freq: we.Freq, Signal: model.Signal(we.Signal)}
		switch we.Kind {
		case "probe":
			ev.Kind = EventProbeReq
		case "auth":
			ev.Kind = EventAuthReq
		case "assoc":
			ev.Kind = EventAssocReq
		case "beacon_report":
			ev.Kind = EventBeaconReport
			if we.Report != nil {
				bssid, _ := parseMAC(we.Report.BSSID)
				ev.Report = &BeaconReportEvent{
					BSSID: bssid, OpClass: we.Report.OpClass, Channel: we.Report.Channel,
					RCPI: we.Report.RCPI, RSNI: we.Report.RSNI, Duration: we.Report.Duration,
					StartTime: we.Report.StartTime,
				}
			}
		default:
			continue
		}

		c.events <- ev
	}
}

// Close tears down both sockets and stops the event listener.
func (c *ZMQClient) Close() error {
	close(c.done)
	c.sub.Close()
	return c.req.Close()
}

func parseMAC(s string) (model.MAC, error) {
	var a, b, cc, d, e, f int
	if n, _ := fmt.Sscanf(s, "%02x:%02x:%02x:%02x:%02x:%02x", &a, &b, &cc, &d, &e, &f); n != 6 {
		return 0, fmt.Errorf("apdaemon: malformed mac %q", s)
	}
	v := uint64(a)<<40 | uint64(b)<<32 | uint64(cc)<<24 | uint64(d)<<16 | uint64(e)<<8 | uint64(f)
	return model.MAC(v), nil
}
