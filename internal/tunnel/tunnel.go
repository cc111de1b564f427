// Package tunnel implements the SSH tunnel manager (spec.md §4.6): on-demand
// local-port forwarders to a bastion host, reused across comparisons by
// their reuse key, with periodic health checking and lifecycle metrics.
// Grounded on the original SSHTunnelManager (ssh_tunnel_manager.py),
// translated from asyncssh's event-loop model to golang.org/x/crypto/ssh's
// synchronous client plus goroutine-per-connection forwarding.
package tunnel

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"schemasync/internal/core"
	"schemasync/internal/secret"
)

// State is a tunnel's position in its lifecycle state machine
// (spec.md §4.6: DISCONNECTED → CONNECTING → CONNECTED → (FAILED | TIMEOUT)).
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
	StateFailed       State = "FAILED"
	StateTimeout      State = "TIMEOUT"
)

const (
	firstCandidatePort = 10000
	portScanRange      = 1000
	healthProbeTimeout = 5 * time.Second
	maintenancePeriod  = 60 * time.Second
	staleAfter         = 30 * time.Minute
)

// Tunnel is a local TCP listener forwarding to a remote host:port through an
// SSH session. Its fields are mutated under mu; callers only ever observe a
// Tunnel through the Manager's snapshot methods.
type Tunnel struct {
	mu sync.RWMutex

	ID       string
	Spec     *core.TunnelSpec
	ReuseKey string

	state     State
	localPort int
	listener  net.Listener
	client    *ssh.Client

	connectedAt         time.Time
	lastActivity        time.Time
	connectionLatencyMs float64
	connectionsCount    int
	bytesTransferred    int64
	errorCount          int
	reconnectAttempts   int
	lastError           string
}

// Info is a read-only snapshot of a Tunnel for external consumption.
type Info struct {
	ID                  string
	ReuseKey            string
	State               State
	LocalPort           int
	ConnectedAt         time.Time
	LastActivity        time.Time
	ConnectionLatencyMs float64
	ConnectionsCount    int
	BytesTransferred    int64
	ErrorCount          int
	ReconnectAttempts   int
	LastError           string
}

func (t *Tunnel) snapshot() Info {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Info{
		ID:                  t.ID,
		ReuseKey:            t.ReuseKey,
		State:               t.state,
		LocalPort:           t.localPort,
		ConnectedAt:         t.connectedAt,
		LastActivity:        t.lastActivity,
		ConnectionLatencyMs: t.connectionLatencyMs,
		ConnectionsCount:    t.connectionsCount,
		BytesTransferred:    t.bytesTransferred,
		ErrorCount:          t.errorCount,
		ReconnectAttempts:   t.reconnectAttempts,
		LastError:           t.lastError,
	}
}

func (t *Tunnel) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *Tunnel) isHealthy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state == StateConnected
}

// Manager owns every active Tunnel. It is a plain struct, not a singleton
// (spec.md §9): the orchestrator constructs one and injects it, so tests can
// supply a fake instead of reaching for package-level state.
type Manager struct {
	mu      sync.RWMutex
	tunnels map[string]*Tunnel

	store     *secret.Store
	log       *zap.Logger
	proxyAddr string // non-empty routes CreateTunnel through the host-side proxy

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewManager builds a tunnel manager. proxyAddr, when non-empty, is the
// host:port of a line-oriented SSH proxy service (spec.md §4.6, §6); an
// empty string means tunnels are opened in-process via golang.org/x/crypto/ssh.
func NewManager(store *secret.Store, log *zap.Logger, proxyAddr string) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		tunnels:   make(map[string]*Tunnel),
		store:     store,
		log:       log,
		proxyAddr: proxyAddr,
	}
}

// CreateTunnel establishes a new tunnel for spec. On testMode, the tunnel is
// never registered and is closed before returning (spec.md §4.6).
func (m *Manager) CreateTunnel(ctx context.Context, spec *core.TunnelSpec, testMode bool, timeout time.Duration) (Info, error) {
	id := uuid.NewString()
	t := &Tunnel{ID: id, Spec: spec, ReuseKey: spec.ReuseKey(), state: StateConnecting}
	start := time.Now()

	if !testMode {
		m.mu.Lock()
		m.tunnels[id] = t
		m.mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var err error
	if m.proxyAddr != "" {
		err = m.createViaProxy(ctx, t)
	} else {
		err = m.createDirect(ctx, t)
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			t.setState(StateTimeout)
			t.mu.Lock()
			t.lastError = "connection timeout"
			t.mu.Unlock()
			m.log.Error("ssh_tunnel_timeout", zap.String("tunnel_id", id), zap.Error(err))
		} else {
			t.setState(StateFailed)
			t.mu.Lock()
			t.lastError = err.Error()
			t.errorCount++
			t.mu.Unlock()
			m.log.Error("ssh_tunnel_failed", zap.String("tunnel_id", id), zap.Error(err))
		}
		if !testMode {
			m.mu.Lock()
			delete(m.tunnels, id)
			m.mu.Unlock()
		}
		return t.snapshot(), fmt.Errorf("tunnel: create %s: %w", id, err)
	}

	now := time.Now()
	t.mu.Lock()
	t.state = StateConnected
	t.connectedAt = now
	t.lastActivity = now
	t.connectionLatencyMs = float64(now.Sub(start).Microseconds()) / 1000.0
	t.mu.Unlock()

	m.log.Info("ssh_tunnel_established", zap.String("tunnel_id", id), zap.Int("local_port", t.localPort))

	if testMode {
		_ = m.closeTunnelLocked(t)
	}
	return t.snapshot(), nil
}

// GetOrCreateForSchemaDiscovery returns a CONNECTED tunnel whose reuse key
// matches spec, creating one if none exists (spec.md §4.6).
func (m *Manager) GetOrCreateForSchemaDiscovery(ctx context.Context, spec *core.TunnelSpec, timeout time.Duration) (Info, error) {
	key := spec.ReuseKey()
	m.mu.RLock()
	for _, t := range m.tunnels {
		if t.ReuseKey == key && t.isHealthy() {
			info := t.snapshot()
			m.mu.RUnlock()
			return info, nil
		}
	}
	m.mu.RUnlock()
	return m.CreateTunnel(ctx, spec, false, timeout)
}

// CloseTunnel idempotently tears a tunnel down.
func (m *Manager) CloseTunnel(id string) error {
	m.mu.Lock()
	t, ok := m.tunnels[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.tunnels, id)
	m.mu.Unlock()

	err := m.closeTunnelLocked(t)
	m.log.Info("ssh_tunnel_closed", zap.String("tunnel_id", id))
	return err
}

func (m *Manager) closeTunnelLocked(t *Tunnel) error {
	t.mu.Lock()
	listener := t.listener
	client := t.client
	id := t.ID
	t.listener = nil
	t.client = nil
	t.state = StateDisconnected
	t.mu.Unlock()

	var firstErr error
	if listener != nil {
		if err := listener.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if client != nil {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if listener == nil && client == nil && m.proxyAddr != "" {
		if _, err := newProxyClient(m.proxyAddr).closeTunnel(context.Background(), id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ReconnectTunnel closes and recreates a tunnel in place, preserving its
// logical id and bumping ReconnectAttempts.
func (m *Manager) ReconnectTunnel(ctx context.Context, id string, timeout time.Duration) error {
	m.mu.RLock()
	t, ok := m.tunnels[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("tunnel: %s not found", id)
	}
	if t.isHealthy() {
		return nil
	}

	_ = m.closeTunnelLocked(t)

	start := time.Now()
	err := m.createDirect(ctx, t)
	t.mu.Lock()
	t.reconnectAttempts++
	if err != nil {
		t.state = StateFailed
		t.lastError = fmt.Sprintf("reconnection failed: %v", err)
		t.mu.Unlock()
		m.log.Error("ssh_tunnel_reconnect_failed", zap.String("tunnel_id", id), zap.Error(err))
		return fmt.Errorf("tunnel: reconnect %s: %w", id, err)
	}
	now := time.Now()
	t.state = StateConnected
	t.connectedAt = now
	t.lastActivity = now
	t.connectionLatencyMs = float64(now.Sub(start).Microseconds()) / 1000.0
	t.lastError = ""
	t.mu.Unlock()

	m.log.Info("ssh_tunnel_reconnected", zap.String("tunnel_id", id))
	return nil
}

// ListActiveTunnels returns a snapshot of every tracked tunnel.
func (m *Manager) ListActiveTunnels() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]Info, 0, len(m.tunnels))
	for _, t := range m.tunnels {
		infos = append(infos, t.snapshot())
	}
	return infos
}

// GetTunnelInfo returns a single tunnel's snapshot.
func (m *Manager) GetTunnelInfo(id string) (Info, bool) {
	m.mu.RLock()
	t, ok := m.tunnels[id]
	m.mu.RUnlock()
	if !ok {
		return Info{}, false
	}
	return t.snapshot(), true
}

// GetTunnelMetrics returns the detailed metrics view spec.md §4.6 names
// (connections_count, bytes_transferred, last_activity, reconnect_attempts,
// among others), keyed the way the original's get_tunnel_metrics returns a
// plain dict.
func (m *Manager) GetTunnelMetrics(id string) (map[string]any, bool) {
	info, ok := m.GetTunnelInfo(id)
	if !ok {
		return nil, false
	}
	metrics := map[string]any{
		"tunnel_id":             info.ID,
		"status":                string(info.State),
		"local_port":            info.LocalPort,
		"connected_at":          info.ConnectedAt,
		"last_activity":         info.LastActivity,
		"connection_latency_ms": info.ConnectionLatencyMs,
		"connections_count":     info.ConnectionsCount,
		"bytes_transferred":     info.BytesTransferred,
		"error_count":           info.ErrorCount,
		"reconnect_attempts":    info.ReconnectAttempts,
		"last_error":            info.LastError,
		"is_healthy":            info.State == StateConnected,
	}
	if !info.ConnectedAt.IsZero() {
		metrics["uptime_seconds"] = time.Since(info.ConnectedAt).Seconds()
	}
	return metrics, true
}

// StartMaintenance runs the periodic 60s maintenance loop (spec.md §4.6)
// until ctx is cancelled or Shutdown is called. Safe to call once per
// Manager.
func (m *Manager) StartMaintenance(ctx context.Context) {
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(maintenancePeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-ticker.C:
				m.runMaintenancePass()
			}
		}
	}()
}

func (m *Manager) runMaintenancePass() {
	m.mu.RLock()
	tunnels := make([]*Tunnel, 0, len(m.tunnels))
	for _, t := range m.tunnels {
		tunnels = append(tunnels, t)
	}
	m.mu.RUnlock()

	var stale []string
	for _, t := range tunnels {
		t.mu.RLock()
		id, state, port, lastActivity := t.ID, t.state, t.localPort, t.lastActivity
		t.mu.RUnlock()

		if state == StateConnected {
			if !probeLoopback(port, healthProbeTimeout) {
				t.mu.Lock()
				t.state = StateFailed
				t.errorCount++
				t.lastError = "health check failed"
				t.mu.Unlock()
				m.log.Warn("ssh_tunnel_health_check_failed", zap.String("tunnel_id", id))
				continue
			}
			t.mu.Lock()
			t.lastActivity = time.Now()
			t.mu.Unlock()
			continue
		}

		if state == StateFailed || time.Since(lastActivity) > staleAfter {
			stale = append(stale, id)
		}
	}

	for _, id := range stale {
		m.log.Info("ssh_tunnel_cleanup_stale", zap.String("tunnel_id", id))
		_ = m.CloseTunnel(id)
	}
}

func probeLoopback(port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Shutdown stops the maintenance loop and closes every active tunnel.
func (m *Manager) Shutdown() {
	if m.stop != nil {
		close(m.stop)
		m.wg.Wait()
	}
	m.mu.RLock()
	ids := make([]string, 0, len(m.tunnels))
	for id := range m.tunnels {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		_ = m.CloseTunnel(id)
	}
	m.log.Info("ssh_tunnel_manager_shutdown")
}

func findFreePort(start int) (int, error) {
	for port := start; port < start+portScanRange; port++ {
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		l, err := net.Listen("tcp", addr)
		if err != nil {
			continue
		}
		_ = l.Close()
		return port, nil
	}
	return 0, fmt.Errorf("tunnel: no available local port in range [%d, %d)", start, start+portScanRange)
}
