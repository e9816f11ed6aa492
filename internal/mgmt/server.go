// server.go exposes a Surface over a REQ/REP socket, the same JSON-over-zmq4
// shape as mcp and apdaemon, so steerctl can reach a running steerd without
// any shared-memory access.
package mgmt

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"go.uber.org/zap"

	zmq "github.com/pebbe/zmq4"

	"steerd/internal/basedef"
	"steerd/internal/config"
	"steerd/internal/model"
	"steerd/internal/netutil"
	"steerd/internal/zaperr"
)

type request struct {
	Op     string            `json:"op"`
	MAC    string            `json:"mac,omitempty"`
	Config *config.Config    `json:"config,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

type response struct {
	OK      bool           `json:"ok"`
	Error   string         `json:"error,omitempty"`
	Clients []ClientInfo   `json:"clients,omitempty"`
	Detail  []ClientDetail `json:"detail,omitempty"`
	Nodes   []NodeInfo     `json:"nodes,omitempty"`
	Config  *config.Config `json:"config,omitempty"`
}

// Server binds a Surface to a REP socket.
type Server struct {
	surface *Surface
	socket  *zmq.Socket
	log     *zap.SugaredLogger
	done    chan struct{}
}

// Serve starts listening at the management port and answers requests until
// Close is called. It runs its own goroutine, consistent with how broker
// and mcp keep socket I/O off the core event loop.
func Serve(surface *Surface, log *zap.SugaredLogger) (*Server, error) {
	sock, err := zmq.NewSocket(zmq.REP)
	if err != nil {
		return nil, fmt.Errorf("mgmt: new socket: %w", err)
	}
	addr := basedef.LocalZmqURL + ":" + basedef.MgmtZmqRepPort
	if err := sock.Bind(addr); err != nil {
		return nil, fmt.Errorf("mgmt: bind %s: %w", addr, err)
	}

	s := &Server{surface: surface, socket: sock, log: log, done: make(chan struct{})}
	go s.listen()
	return s, nil
}

func (s *Server) listen() {
	for {
		raw, err := s.socket.RecvBytes(0)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.log.Debugw("management socket recv failed",
					zap.Object("error", zaperr.Errorw("management socket recv failed", "err", err)))
				continue
			}
		}

		var req request
		resp := response{OK: true}
		if err := json.Unmarshal(raw, &req); err != nil {
			s.log.Debugw("malformed management request",
				zap.Object("error", zaperr.Errorw("malformed management request", "err", err)))
			resp = response{OK: false, Error: err.Error()}
		} else {
			resp = s.handle(req)
		}

		out, err := json.Marshal(resp)
		if err != nil {
			out, _ = json.Marshal(response{OK: false, Error: err.Error()})
		}
		if _, err := s.socket.SendBytes(out, 0); err != nil {
			s.log.Warnw("management socket send failed",
				zap.Object("error", zaperr.Errorw("management socket send failed", "err", err)))
		}
	}
}

func (s *Server) handle(req request) response {
	switch req.Op {
	case "get_clients":
		return response{OK: true, Clients: s.surface.GetClients()}

	case "get_client_info":
		mac, err := netutil.ParseMACToUint64(req.MAC)
		if err != nil {
			return response{OK: false, Error: err.Error()}
		}
		detail, err := s.surface.GetClientInfo(model.MAC(mac))
		if err != nil {
			return response{OK: false, Error: err.Error()}
		}
		return response{OK: true, Detail: detail}

	case "local_info":
		return response{OK: true, Nodes: s.surface.LocalInfo()}

	case "remote_info":
		return response{OK: true, Nodes: s.surface.RemoteInfo()}

	case "get_config":
		cfg := s.surface.GetConfig()
		return response{OK: true, Config: &cfg}

	case "set_config":
		if req.Config == nil {
			return response{OK: false, Error: "mgmt: set_config requires a config body"}
		}
		s.surface.SetConfig(*req.Config)
		return response{OK: true}

	case "update_config":
		s.surface.UpdateConfig(func(cfg *config.Config) {
			applyFields(cfg, req.Fields)
		})
		return response{OK: true}

	default:
		return response{OK: false, Error: fmt.Sprintf("mgmt: unknown op %q", req.Op)}
	}
}

// applyFields sets named Config fields from string values by reflection,
// matching the wire representation steerctl's "key=value" flags produce.
// Unrecognized keys are silently ignored, per the "unknown field: ignored"
// rule the management surface already documents for UpdateConfig.
func applyFields(cfg *config.Config, fields map[string]string) {
	v := reflect.ValueOf(cfg).Elem()
	for name, raw := range fields {
		f := v.FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, name) })
		if !f.IsValid() || !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.Bool:
			if b, err := strconv.ParseBool(raw); err == nil {
				f.SetBool(b)
			}
		case reflect.Uint32, reflect.Uint, reflect.Uint64:
			if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
				f.SetUint(n)
			}
		case reflect.Int32, reflect.Int, reflect.Int64:
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				f.SetInt(n)
			}
		case reflect.String:
			f.SetString(raw)
		case reflect.Slice:
			if f.Type().Elem().Kind() == reflect.String {
				f.Set(reflect.ValueOf(strings.Split(raw, ",")))
			}
		}
	}
}

// Close unbinds the socket and stops the listener.
func (s *Server) Close() error {
	close(s.done)
	return s.socket.Close()
}
