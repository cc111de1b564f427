package conn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"schemasync/internal/core"
)

// sql.Open("mysql", dsn) never dials the network, so newConnection with
// tunneled=false is safe to exercise without a live MySQL server.
func newTestConnection(t *testing.T, tunneled, schemaDiscovery bool) *Connection {
	t.Helper()
	ep := &core.Endpoint{Host: "127.0.0.1", Port: 3306, User: "root", Database: "appdb"}
	c, err := newConnection(ep, "appdb", tunneled, schemaDiscovery, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewConnectionDirectAppliesDirectSizing(t *testing.T) {
	c := newTestConnection(t, false, false)
	assert.Equal(t, DirectSizing.MaxOpen, c.db.Stats().MaxOpenConnections)
}

func TestDefaultTimeoutByModeAndTag(t *testing.T) {
	assert.Equal(t, 30*time.Second, newTestConnection(t, false, false).defaultTimeout())
	assert.Equal(t, 120*time.Second, newTestConnection(t, true, false).defaultTimeout())
	assert.Equal(t, 600*time.Second, newTestConnection(t, true, true).defaultTimeout())
}

func TestIsStaleReflectsLastActivity(t *testing.T) {
	c := newTestConnection(t, false, false)
	assert.False(t, c.IsStale(time.Hour))

	c.mu.Lock()
	c.lastActivity = time.Now().Add(-2 * time.Hour)
	c.mu.Unlock()
	assert.True(t, c.IsStale(time.Hour))
}

func TestTouchUpdatesLastActivity(t *testing.T) {
	c := newTestConnection(t, false, false)
	c.mu.Lock()
	c.lastActivity = time.Now().Add(-time.Hour)
	c.mu.Unlock()

	c.touch()
	assert.False(t, c.IsStale(time.Minute))
}

func TestDisposeIdleDoesNotPanic(t *testing.T) {
	c := newTestConnection(t, true, false)
	assert.NotPanics(t, c.disposeIdle)
}

func TestCloseIsIdempotentFriendly(t *testing.T) {
	c := newTestConnection(t, false, false)
	require.NoError(t, c.Close())
}
