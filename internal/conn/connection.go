package conn

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"schemasync/internal/core"
)

// Connection wraps a lazily-sized *sql.DB for one (endpoint, database) pair,
// applying spec.md §4.5's tunnel-aware pool sizing, per-call timeout, and
// hierarchical retry. It satisfies internal/introspect.Querier, so a
// Connection can be handed directly to introspect.DiscoverAll.
type Connection struct {
	db              *sql.DB
	endpoint        *core.Endpoint
	database        string
	tunneled        bool
	schemaDiscovery bool
	log             *zap.Logger

	mu           sync.Mutex
	lastActivity time.Time
}

func newConnection(endpoint *core.Endpoint, database string, tunneled, schemaDiscovery bool, log *zap.Logger) (*Connection, error) {
	dsn := buildDSN(endpoint, database)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("conn: opening %s: %w", endpoint.ID(), err)
	}

	sizing := DirectSizing
	if tunneled {
		sizing = TunneledSizing
	}
	db.SetMaxOpenConns(sizing.MaxOpen)
	db.SetMaxIdleConns(sizing.MaxIdle)
	db.SetConnMaxLifetime(sizing.Recycle)

	c := &Connection{
		db: db, endpoint: endpoint, database: database,
		tunneled: tunneled, schemaDiscovery: schemaDiscovery,
		log: log, lastActivity: time.Now(),
	}

	if tunneled {
		if _, err := db.Exec("SET SESSION wait_timeout=600, interactive_timeout=600, net_read_timeout=60, net_write_timeout=60"); err != nil {
			log.Warn("conn: applying tunneled session settings failed", zap.String("endpoint", endpoint.ID()), zap.Error(err))
		}
	}

	return c, nil
}

func (c *Connection) defaultTimeout() time.Duration {
	switch {
	case c.tunneled && c.schemaDiscovery:
		return 600 * time.Second
	case c.tunneled:
		return 120 * time.Second
	default:
		return 30 * time.Second
	}
}

// QueryContext implements internal/introspect.Querier.
func (c *Connection) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.ExecuteQuery(ctx, query, args, 0)
}

// ExecuteQuery runs query under the hierarchical retry policy of
// spec.md §4.5: timeouts and connection-class errors grow the next
// attempt's timeout by 1.5x and backoff exponentially with jitter, up to 3
// (direct) or 5 (schema-discovery tunneled) attempts; every other error
// propagates immediately.
func (c *Connection) ExecuteQuery(ctx context.Context, query string, args []any, timeout time.Duration) (*sql.Rows, error) {
	if timeout <= 0 {
		timeout = c.defaultTimeout()
	}
	policy := policyFor(c.tunneled, c.schemaDiscovery)
	bo := policy.newBackOff()

	attempts := 0
	var rows *sql.Rows
	err := backoff.Retry(func() error {
		attempts++
		qctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		r, qErr := c.db.QueryContext(qctx, query, args...)
		if qErr == nil {
			rows = r
			c.touch()
			return nil
		}

		switch {
		case isTimeoutError(qErr), isConnectionClassError(qErr):
			c.disposeIdle()
			timeout = time.Duration(float64(timeout) * 1.5)
			return qErr
		default:
			return backoff.Permanent(qErr)
		}
	}, backoff.WithContext(bo, ctx))

	if err != nil {
		return nil, fmt.Errorf("conn: query failed after %d attempt(s): %w", attempts, err)
	}
	return rows, nil
}

// disposeIdle forces the underlying pool to recycle idle connections,
// standing in for "dispose underlying pool" (spec.md §4.5) since
// database/sql offers no direct pool-reset primitive short of closing it
// outright.
func (c *Connection) disposeIdle() {
	sizing := DirectSizing
	if c.tunneled {
		sizing = TunneledSizing
	}
	c.db.SetMaxIdleConns(0)
	c.db.SetMaxIdleConns(sizing.MaxIdle)
}

func (c *Connection) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

// KeepAlivePing runs SELECT 1 and records activity on success.
func (c *Connection) KeepAlivePing(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.defaultTimeout())
	defer cancel()
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("conn: keep-alive ping %s: %w", c.endpoint.ID(), err)
	}
	c.touch()
	return nil
}

// IsStale reports whether this connection has been idle longer than
// maxIdle.
func (c *Connection) IsStale(maxIdle time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastActivity) > maxIdle
}

// Close releases the underlying *sql.DB.
func (c *Connection) Close() error {
	return c.db.Close()
}
