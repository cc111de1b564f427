package conn

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// connectionClassMarkers lists the substrings spec.md §4.5 names verbatim
// for "connection-class" errors eligible for the same retry strategy as
// timeouts, grounded on the teacher corpus's isRetryableError
// (_examples/steveyegge-beads/internal/storage/dolt/store.go) string-match
// idiom for classifying transient MySQL driver errors.
var connectionClassMarkers = []string{
	"lost connection",
	"gone away",
	"broken pipe",
	"connection reset",
	"connection refused",
	"host unreachable",
}

func isConnectionClassError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, marker := range connectionClassMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "i/o timeout")
}

// retryPolicy configures the hierarchical retry spec.md §4.5 describes:
// timeouts and connection-class errors share a backoff/attempt-count
// strategy; every other error propagates on first occurrence.
type retryPolicy struct {
	maxAttempts int
	maxInterval time.Duration
}

func policyFor(tunneled, schemaDiscovery bool) retryPolicy {
	switch {
	case tunneled && schemaDiscovery:
		return retryPolicy{maxAttempts: 5, maxInterval: 30 * time.Second}
	case tunneled:
		return retryPolicy{maxAttempts: 5, maxInterval: 30 * time.Second}
	default:
		return retryPolicy{maxAttempts: 3, maxInterval: 0}
	}
}

func (p retryPolicy) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	if p.maxInterval > 0 {
		bo.MaxInterval = p.maxInterval
	}
	bo.MaxElapsedTime = 0 // bounded by maxAttempts, not elapsed time
	return backoff.WithMaxRetries(bo, uint64(p.maxAttempts-1))
}
