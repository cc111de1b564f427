// Package orchestrator implements the comparison orchestrator (spec.md
// §4.3): it wires a tunnel.Manager and a conn.Pool to two endpoint configs,
// runs discovery and comparison in the fixed Table -> Index -> Constraint
// order, and returns a terminal core.ComparisonResult. Grounded on
// internal/compare/compare.go's Run/Summarize pair for the comparison half,
// and on the original's orchestrator coroutine
// (_examples/original_source/backend/core/orchestrator.py, if present) for
// the tunnel-then-connect-then-compare sequencing.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"schemasync/internal/compare"
	"schemasync/internal/conn"
	"schemasync/internal/core"
	"schemasync/internal/introspect"
	"schemasync/internal/introspect/mysql"
	"schemasync/internal/tunnel"
)

// DefaultTunnelTimeout bounds how long the orchestrator waits for a tunnel
// to reach CONNECTED before treating setup as fatal (spec.md §7,
// TunnelSetup).
const DefaultTunnelTimeout = 30 * time.Second

// Orchestrator coordinates tunnels, pooled connections, and the comparer
// pipeline. It takes its collaborators explicitly (spec.md §9 "Global
// mutable state") rather than reaching for package-level singletons, so
// tests can inject fakes.
type Orchestrator struct {
	Tunnels *tunnel.Manager
	Pool    *conn.Pool
	Log     *zap.Logger
}

// New builds an Orchestrator. tunnels/pool are required collaborators; log
// defaults to a no-op logger.
func New(tunnels *tunnel.Manager, pool *conn.Pool, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{Tunnels: tunnels, Pool: pool, Log: log}
}

// Run executes one full comparison: tunnel setup, connection health check,
// discovery on both sides, comparison, and summarization.
func (o *Orchestrator) Run(ctx context.Context, source, target *core.Endpoint, opts core.ComparisonOptions, progress compare.ProgressFunc) *core.ComparisonResult {
	comparisonID := uuid.NewString()
	startedAt := time.Now()

	result := &core.ComparisonResult{
		ComparisonID: comparisonID,
		StartedAt:    startedAt,
		Source:       snapshot(source),
		Target:       snapshot(target),
		Options:      opts,
	}

	report := func(phase core.Phase, msg string) {
		if progress != nil {
			progress(core.ProgressEvent{ComparisonID: comparisonID, Phase: phase, Current: 0, Total: 1, Message: msg})
		}
	}

	fail := func(stage, errKey string, err error) *core.ComparisonResult {
		o.Log.Error("orchestrator_fatal", zap.String("stage", stage), zap.String("comparison_id", comparisonID), zap.Error(err))
		report(core.PhaseError, fmt.Sprintf("%s: %v", errKey, err))
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", errKey, err))
		result.Differences = []core.Difference{}
		result.CompletedAt = time.Now()
		result.Duration = result.CompletedAt.Sub(startedAt)
		return result
	}

	report(core.PhaseDiscovery, "establishing connections")

	sourceConn, err := o.connect(ctx, source)
	if err != nil {
		return fail("tunnel_setup", "source_connection_failed", err)
	}
	targetConn, err := o.connect(ctx, target)
	if err != nil {
		return fail("tunnel_setup", "target_connection_failed", err)
	}

	if err := sourceConn.KeepAlivePing(ctx); err != nil {
		return fail("connection_check", "source_connection_failed", err)
	}
	if err := targetConn.KeepAlivePing(ctx); err != nil {
		return fail("connection_check", "target_connection_failed", err)
	}

	introspecter := mysql.New()
	sourceCatalog, err := introspect.DiscoverAll(ctx, introspecter, sourceConn, opts)
	if err != nil {
		return fail("discovery", "source_connection_failed", err)
	}
	targetCatalog, err := introspect.DiscoverAll(ctx, introspecter, targetConn, opts)
	if err != nil {
		return fail("discovery", "target_connection_failed", err)
	}

	report(core.PhaseComparison, "comparing catalogs")
	diffs := compare.Run(ctx, comparisonID, sourceCatalog, targetCatalog, opts, progress)

	report(core.PhaseAnalysis, "summarizing differences")
	result.Differences = diffs
	result.Summary = compare.Summarize(diffs)
	result.ObjectsCompared = len(sourceCatalog.Tables.Order) + len(sourceCatalog.Indexes.Order) + len(sourceCatalog.Constraints.Order)
	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(startedAt)

	report(core.PhaseReport, "comparison complete")
	return result
}

// connect wires an endpoint through its tunnel (if any), rewriting Host/Port
// in place to the local forwarder, then returns a schema-discovery-tagged
// pooled connection.
func (o *Orchestrator) connect(ctx context.Context, ep *core.Endpoint) (*conn.Connection, error) {
	tunneled := ep.UsesTunnel()
	if tunneled {
		ep.Tunnel.RemoteBindHost = ep.Host
		ep.Tunnel.RemoteBindPort = ep.Port

		info, err := o.Tunnels.GetOrCreateForSchemaDiscovery(ctx, ep.Tunnel, DefaultTunnelTimeout)
		if err != nil {
			return nil, fmt.Errorf("tunnel setup for %s: %w", ep.DisplayName, err)
		}
		ep.Host = "127.0.0.1"
		ep.Port = info.LocalPort
	}

	c, err := o.Pool.Get(ep, ep.Database, tunneled, true)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", ep.DisplayName, err)
	}
	return c, nil
}

func snapshot(ep *core.Endpoint) core.EndpointSnapshot {
	return core.EndpointSnapshot{Host: ep.Host, Port: ep.Port, Database: ep.Database, DisplayName: ep.DisplayName}
}
