package tunnel

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

const (
	proxyConnectTimeout = 10 * time.Second
	proxyReadTimeout    = 30 * time.Second
)

// proxyRequest is one line of the host-side SSH proxy wire protocol
// (spec.md §6): a JSON object on one line over TCP. roundTrip opens a new
// connection for each request and closes it after reading the reply line.
type proxyRequest struct {
	Action   string         `json:"action"`
	Config   map[string]any `json:"config,omitempty"`
	LocalPort int           `json:"local_port,omitempty"`
	TunnelID string         `json:"tunnel_id,omitempty"`
}

type proxyResponse struct {
	Success   bool   `json:"success"`
	TunnelID  string `json:"tunnel_id,omitempty"`
	LocalPort int    `json:"local_port,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// proxyClient speaks the host-side SSH proxy's line-oriented JSON protocol.
// Used when the process runs in a container that must not source-IP the SSH
// handshake itself (spec.md §4.6); the proxy is a client only here, the
// proxy service itself is the out-of-scope host-side helper.
type proxyClient struct {
	addr string
}

func newProxyClient(addr string) *proxyClient {
	return &proxyClient{addr: addr}
}

func (p *proxyClient) roundTrip(ctx context.Context, req proxyRequest) (proxyResponse, error) {
	dialer := net.Dialer{Timeout: proxyConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return proxyResponse{}, fmt.Errorf("tunnel: connecting to ssh proxy %s: %w", p.addr, err)
	}
	defer conn.Close()

	line, err := json.Marshal(req)
	if err != nil {
		return proxyResponse{}, fmt.Errorf("tunnel: encoding ssh proxy request: %w", err)
	}
	line = append(line, '\n')
	if _, err := conn.Write(line); err != nil {
		return proxyResponse{}, fmt.Errorf("tunnel: writing ssh proxy request: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(proxyReadTimeout))
	reply, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return proxyResponse{}, fmt.Errorf("tunnel: reading ssh proxy response: %w", err)
	}

	var resp proxyResponse
	if err := json.Unmarshal(reply, &resp); err != nil {
		return proxyResponse{}, fmt.Errorf("tunnel: decoding ssh proxy response: %w", err)
	}
	if !resp.Success && resp.Error == "" {
		resp.Error = "unknown action"
	}
	return resp, nil
}

func (p *proxyClient) createTunnel(ctx context.Context, spec proxySpec, localPort int, tunnelID string) (proxyResponse, error) {
	return p.roundTrip(ctx, proxyRequest{Action: "create_tunnel", Config: spec.toConfig(), LocalPort: localPort, TunnelID: tunnelID})
}

func (p *proxyClient) closeTunnel(ctx context.Context, tunnelID string) (proxyResponse, error) {
	return p.roundTrip(ctx, proxyRequest{Action: "close_tunnel", TunnelID: tunnelID})
}

func (p *proxyClient) testConnection(ctx context.Context, spec proxySpec) (proxyResponse, error) {
	return p.roundTrip(ctx, proxyRequest{Action: "test_connection", Config: spec.toConfig()})
}

// proxySpec is the subset of core.TunnelSpec the wire protocol needs,
// deliberately excluding credential material: the proxy process runs
// outside this module's secret store and receives only the parameters the
// system ssh binary itself takes on its command line.
type proxySpec struct {
	SSHHost        string
	SSHPort        int
	SSHUser        string
	RemoteBindHost string
	RemoteBindPort int
}

func (s proxySpec) toConfig() map[string]any {
	return map[string]any{
		"ssh_host":         s.SSHHost,
		"ssh_port":         s.SSHPort,
		"ssh_user":         s.SSHUser,
		"remote_bind_host": s.RemoteBindHost,
		"remote_bind_port": s.RemoteBindPort,
	}
}

// createViaProxy delegates tunnel establishment to the host-side proxy
// instead of opening an in-process SSH session. Only the local port is
// recorded on the tunnel; the loopback host is not substituted with the
// proxy's hostname, and callers connect to 127.0.0.1 on that port.
func (m *Manager) createViaProxy(ctx context.Context, t *Tunnel) error {
	client := newProxyClient(m.proxyAddr)
	spec := proxySpec{
		SSHHost:        t.Spec.SSHHost,
		SSHPort:        t.Spec.SSHPort,
		SSHUser:        t.Spec.SSHUser,
		RemoteBindHost: t.Spec.RemoteBindHost,
		RemoteBindPort: t.Spec.RemoteBindPort,
	}

	localPort := t.Spec.LocalBindPort
	if localPort == 0 {
		var err error
		localPort, err = findFreePort(firstCandidatePort)
		if err != nil {
			return err
		}
	}

	resp, err := client.createTunnel(ctx, spec, localPort, t.ID)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("tunnel: ssh proxy refused tunnel: %s", resp.Error)
	}

	t.mu.Lock()
	t.localPort = localPort
	t.mu.Unlock()
	return nil
}
