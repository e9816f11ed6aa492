package mgmt

import (
	"encoding/json"
	"fmt"
	"time"

	zmq "github.com/pebbe/zmq4"

	"steerd/internal/basedef"
	"steerd/internal/config"
)

// Client is steerctl's handle onto a running steerd's management surface.
type Client struct {
	socket *zmq.Socket
}

// Dial connects to a steerd management surface at addr (a "tcp://host:port"
// endpoint, typically basedef.LocalZmqURL+":"+basedef.MgmtZmqRepPort).
func Dial(addr string) (*Client, error) {
	sock, err := zmq.NewSocket(zmq.REQ)
	if err != nil {
		return nil, fmt.Errorf("mgmt: new socket: %w", err)
	}
	if err := sock.SetSndtimeo(time.Duration(basedef.LocalZmqSendTimeout) * time.Second); err != nil {
		return nil, fmt.Errorf("mgmt: send timeout: %w", err)
	}
	if err := sock.SetRcvtimeo(time.Duration(basedef.LocalZmqRecvTimeout) * time.Second); err != nil {
		return nil, fmt.Errorf("mgmt: recv timeout: %w", err)
	}
	if err := sock.Connect(addr); err != nil {
		return nil, fmt.Errorf("mgmt: connect %s: %w", addr, err)
	}
	return &Client{socket: sock}, nil
}

func (c *Client) call(req request) (response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return response{}, fmt.Errorf("mgmt: marshal request: %w", err)
	}
	if _, err := c.socket.SendBytes(data, 0); err != nil {
		return response{}, fmt.Errorf("mgmt: send: %w", err)
	}
	raw, err := c.socket.RecvBytes(0)
	if err != nil {
		return response{}, fmt.Errorf("mgmt: recv: %w", err)
	}
	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return response{}, fmt.Errorf("mgmt: unmarshal response: %w", err)
	}
	if !resp.OK {
		return resp, fmt.Errorf("mgmt: %s", resp.Error)
	}
	return resp, nil
}

// GetClients mirrors Surface.GetClients over the wire.
func (c *Client) GetClients() ([]ClientInfo, error) {
	resp, err := c.call(request{Op: "get_clients"})
	return resp.Clients, err
}

// GetClientInfo mirrors Surface.GetClientInfo over the wire.
func (c *Client) GetClientInfo(mac string) ([]ClientDetail, error) {
	resp, err := c.call(request{Op: "get_client_info", MAC: mac})
	return resp.Detail, err
}

// LocalInfo mirrors Surface.LocalInfo over the wire.
func (c *Client) LocalInfo() ([]NodeInfo, error) {
	resp, err := c.call(request{Op: "local_info"})
	return resp.Nodes, err
}

// RemoteInfo mirrors Surface.RemoteInfo over the wire.
func (c *Client) RemoteInfo() ([]NodeInfo, error) {
	resp, err := c.call(request{Op: "remote_info"})
	return resp.Nodes, err
}

// GetConfig mirrors Surface.GetConfig over the wire.
func (c *Client) GetConfig() (config.Config, error) {
	resp, err := c.call(request{Op: "get_config"})
	if resp.Config == nil {
		return config.Config{}, err
	}
	return *resp.Config, err
}

// SetConfig mirrors Surface.SetConfig over the wire.
func (c *Client) SetConfig(cfg config.Config) error {
	_, err := c.call(request{Op: "set_config", Config: &cfg})
	return err
}

// UpdateConfig mirrors Surface.UpdateConfig over the wire, applying a
// delta expressed as field-name/string-value pairs (e.g. from repeated
// steerctl "key=value" flags).
func (c *Client) UpdateConfig(fields map[string]string) error {
	_, err := c.call(request{Op: "update_config", Fields: fields})
	return err
}

// Close releases the underlying socket.
func (c *Client) Close() error {
	return c.socket.Close()
}
