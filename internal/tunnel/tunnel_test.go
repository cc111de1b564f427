package tunnel

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemasync/internal/core"
)

func injectTunnel(m *Manager, t *Tunnel) {
	m.mu.Lock()
	m.tunnels[t.ID] = t
	m.mu.Unlock()
}

func TestFindFreePortReturnsUsablePort(t *testing.T) {
	port, err := findFreePort(firstCandidatePort)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, port, firstCandidatePort)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
}

func TestGetOrCreateForSchemaDiscoveryReusesHealthyTunnel(t *testing.T) {
	m := NewManager(nil, nil, "")
	spec := &core.TunnelSpec{SSHHost: "bastion", SSHPort: 22, RemoteBindHost: "db", RemoteBindPort: 3306}

	existing := &Tunnel{ID: "existing", Spec: spec, ReuseKey: spec.ReuseKey(), state: StateConnected, localPort: 10200}
	injectTunnel(m, existing)

	info, err := m.GetOrCreateForSchemaDiscovery(context.Background(), spec, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "existing", info.ID)
}

func TestListActiveTunnelsReturnsSnapshots(t *testing.T) {
	m := NewManager(nil, nil, "")
	spec := &core.TunnelSpec{SSHHost: "bastion", SSHPort: 22}
	injectTunnel(m, &Tunnel{ID: "a", Spec: spec, ReuseKey: "k1", state: StateConnected})
	injectTunnel(m, &Tunnel{ID: "b", Spec: spec, ReuseKey: "k2", state: StateFailed})

	infos := m.ListActiveTunnels()
	assert.Len(t, infos, 2)
}

func TestGetTunnelInfoMissing(t *testing.T) {
	m := NewManager(nil, nil, "")
	_, ok := m.GetTunnelInfo("nope")
	assert.False(t, ok)
}

func TestGetTunnelMetricsIncludesUptimeWhenConnected(t *testing.T) {
	m := NewManager(nil, nil, "")
	spec := &core.TunnelSpec{}
	tun := &Tunnel{ID: "m1", Spec: spec, state: StateConnected, connectedAt: time.Now().Add(-time.Minute), localPort: 10300}
	injectTunnel(m, tun)

	metrics, ok := m.GetTunnelMetrics("m1")
	require.True(t, ok)
	assert.Equal(t, "CONNECTED", metrics["status"])
	assert.Contains(t, metrics, "uptime_seconds")
	assert.Equal(t, true, metrics["is_healthy"])
}

func TestCloseTunnelIdempotent(t *testing.T) {
	m := NewManager(nil, nil, "")
	tun := &Tunnel{ID: "c1", Spec: &core.TunnelSpec{}, state: StateConnected}
	injectTunnel(m, tun)

	require.NoError(t, m.CloseTunnel("c1"))
	require.NoError(t, m.CloseTunnel("c1"))

	_, ok := m.GetTunnelInfo("c1")
	assert.False(t, ok)
}

func TestRunMaintenancePassMarksUnreachableTunnelFailed(t *testing.T) {
	m := NewManager(nil, nil, "")
	tun := &Tunnel{ID: "u1", Spec: &core.TunnelSpec{}, state: StateConnected, localPort: 1, lastActivity: time.Now()}
	injectTunnel(m, tun)

	m.runMaintenancePass()

	info, ok := m.GetTunnelInfo("u1")
	require.True(t, ok)
	assert.Equal(t, StateFailed, info.State)
}

func TestRunMaintenancePassDropsStaleTunnel(t *testing.T) {
	m := NewManager(nil, nil, "")
	tun := &Tunnel{ID: "s1", Spec: &core.TunnelSpec{}, state: StateFailed, lastActivity: time.Now().Add(-time.Hour)}
	injectTunnel(m, tun)

	m.runMaintenancePass()

	_, ok := m.GetTunnelInfo("s1")
	assert.False(t, ok)
}

func TestShutdownClosesAllTunnels(t *testing.T) {
	m := NewManager(nil, nil, "")
	injectTunnel(m, &Tunnel{ID: "x1", Spec: &core.TunnelSpec{}, state: StateConnected})
	injectTunnel(m, &Tunnel{ID: "x2", Spec: &core.TunnelSpec{}, state: StateConnected})

	m.Shutdown()

	assert.Empty(t, m.ListActiveTunnels())
}
