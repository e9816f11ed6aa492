// Package mcp adapts the supervisor's state-reporting REQ/REP connection
// (component K) for steerd. It carries JSON requests/responses instead
// of the supervisor's protobuf envelope.
package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	zmq "github.com/pebbe/zmq4"

	"steerd/internal/basedef"
)

// Daemon lifecycle states, matching the supervisor's vocabulary.
const (
	Offline = iota
	Starting
	Initing
	Online
	Stopping
	Inactive
	Broken
)

// States names every lifecycle state for logging.
var States = map[int]string{
	Offline:  "offline",
	Starting: "starting",
	Initing:  "initializing",
	Online:   "online",
	Stopping: "stopping",
	Inactive: "inactive",
	Broken:   "broken",
}

type operation string

const (
	opGet operation = "get"
	opSet operation = "set"
	opDo  operation = "do"
)

type request struct {
	Op      operation `json:"op"`
	Sender  string    `json:"sender"`
	Daemon  string    `json:"daemon"`
	Command string    `json:"command,omitempty"`
	State   int       `json:"state,omitempty"`
}

type response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	State int    `json:"state,omitempty"`
}

// MCP is steerd's handle onto the supervisor: it reports its own lifecycle
// transitions and can query the state of other daemons.
type MCP struct {
	mu     sync.Mutex
	socket *zmq.Socket
	sender string
	daemon string
}

// New connects to the supervisor and reports Initing for name immediately.
func New(name string) (*MCP, error) {
	sock, err := zmq.NewSocket(zmq.REQ)
	if err != nil {
		return nil, fmt.Errorf("mcp: new socket: %w", err)
	}
	if err := sock.SetSndtimeo(time.Duration(basedef.LocalZmqSendTimeout) * time.Second); err != nil {
		return nil, fmt.Errorf("mcp: send timeout: %w", err)
	}
	if err := sock.SetRcvtimeo(time.Duration(basedef.LocalZmqRecvTimeout) * time.Second); err != nil {
		return nil, fmt.Errorf("mcp: recv timeout: %w", err)
	}

	addr := basedef.LocalZmqURL + ":" + basedef.MCPZmqRepPort
	if err := sock.Connect(addr); err != nil {
		return nil, fmt.Errorf("mcp: connect %s: %w", addr, err)
	}

	m := &MCP{
		socket: sock,
		sender: fmt.Sprintf("%s(%d)", name, os.Getpid()),
		daemon: name,
	}
	if err := m.SetState(Initing); err != nil {
		return m, err
	}
	return m, nil
}

func (m *MCP) call(req request) (response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return response{}, fmt.Errorf("mcp: marshal request: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.socket.SendBytes(data, 0); err != nil {
		return response{}, fmt.Errorf("mcp: send: %w", err)
	}
	raw, err := m.socket.RecvBytes(0)
	if err != nil {
		return response{}, fmt.Errorf("mcp: recv: %w", err)
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return response{}, fmt.Errorf("mcp: unmarshal response: %w", err)
	}
	if !resp.OK {
		return resp, fmt.Errorf("mcp: %s", resp.Error)
	}
	return resp, nil
}

// GetState queries the supervisor for daemon's current state.
func (m *MCP) GetState(daemon string) (int, error) {
	resp, err := m.call(request{Op: opGet, Sender: m.sender, Daemon: daemon})
	return resp.State, err
}

// SetState reports this daemon's own state to the supervisor.
func (m *MCP) SetState(state int) error {
	if _, ok := States[state]; !ok {
		return fmt.Errorf("mcp: invalid state %d", state)
	}
	_, err := m.call(request{Op: opSet, Sender: m.sender, Daemon: m.daemon, State: state})
	return err
}

// Do asks the supervisor to invoke command on daemon.
func (m *MCP) Do(daemon, command string) error {
	_, err := m.call(request{Op: opDo, Sender: m.sender, Daemon: daemon, Command: command})
	return err
}

// Close releases the underlying socket.
func (m *MCP) Close() error {
	return m.socket.Close()
}
