// Package conn implements the connection layer (spec.md §4.5): a
// process-wide pool keyed by (endpoint, database) handing out Connections
// with tunnel-aware sizing and hierarchical query retry. Grounded on the
// teacher's internal/apply's direct database/sql usage (sql.Open("mysql",
// dsn)) for the driver wiring, and on
// _examples/steveyegge-beads/internal/storage/dolt/store.go's
// cenkalti/backoff/v4 retry idiom (isRetryableError/withRetry) for the
// retry policy shape.
package conn

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"schemasync/internal/core"
)

// Sizing holds the pool tuning knobs spec.md §4.5 splits into a tunneled and
// a direct profile.
type Sizing struct {
	MaxOpen     int
	MaxIdle     int
	PoolTimeout time.Duration
	Recycle     time.Duration
}

// TunneledSizing is used whenever the endpoint resolves to a loopback or
// named tunnel host: pool_size=1, no overflow, 300s timeout, 1800s recycle.
var TunneledSizing = Sizing{MaxOpen: 1, MaxIdle: 1, PoolTimeout: 300 * time.Second, Recycle: 1800 * time.Second}

// DirectSizing is the configured default for a directly reachable endpoint:
// size 20, overflow 10 (MaxIdle models "size", MaxOpen "size+overflow"),
// timeout 30s, recycle 3600s.
var DirectSizing = Sizing{MaxOpen: 30, MaxIdle: 20, PoolTimeout: 30 * time.Second, Recycle: 3600 * time.Second}

// Pool owns every Connection keyed by (endpoint ID, database). It is a
// plain struct (per spec.md §9, no package-level singleton); the
// orchestrator constructs one and injects it.
type Pool struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	log         *zap.Logger
}

// NewPool builds an empty connection pool.
func NewPool(log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{connections: make(map[string]*Connection), log: log}
}

func poolKey(endpoint *core.Endpoint, database string) string {
	if database == "" {
		database = endpoint.Database
	}
	return fmt.Sprintf("%s|%s", endpoint.ID(), database)
}

// Get returns the Connection for (endpoint, database), lazily constructing
// its underlying *sql.DB on first use. tunneled controls which Sizing
// profile applies; schemaDiscovery tags the connection for the longer
// per-query timeout spec.md §4.5 grants schema-discovery traffic.
func (p *Pool) Get(endpoint *core.Endpoint, database string, tunneled, schemaDiscovery bool) (*Connection, error) {
	key := poolKey(endpoint, database)

	p.mu.RLock()
	c, ok := p.connections[key]
	p.mu.RUnlock()
	if ok {
		return c, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.connections[key]; ok {
		return c, nil
	}

	c, err := newConnection(endpoint, database, tunneled, schemaDiscovery, p.log)
	if err != nil {
		return nil, err
	}
	p.connections[key] = c
	return c, nil
}

// Remove disposes of and forgets the connection for (endpoint, database),
// forcing the next Get to build a fresh one.
func (p *Pool) Remove(endpoint *core.Endpoint, database string) {
	key := poolKey(endpoint, database)
	p.mu.Lock()
	c, ok := p.connections[key]
	p.mu.Unlock()
	if !ok {
		return
	}
	_ = c.Close()
	p.mu.Lock()
	delete(p.connections, key)
	p.mu.Unlock()
}

// CloseAll disposes of every pooled connection.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, c := range p.connections {
		_ = c.Close()
		delete(p.connections, key)
	}
}

func buildDSN(endpoint *core.Endpoint, database string) string {
	if database == "" {
		database = endpoint.Database
	}
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", endpoint.Host, endpoint.Port)
	cfg.User = endpoint.User
	cfg.Passwd = endpoint.Password
	cfg.DBName = database
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}
