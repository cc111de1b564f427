package conn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsConnectionClassErrorMatchesKnownMarkers(t *testing.T) {
	assert.True(t, isConnectionClassError(errors.New("Error 2013: Lost connection to MySQL server during query")))
	assert.True(t, isConnectionClassError(errors.New("MySQL server has gone away")))
	assert.True(t, isConnectionClassError(errors.New("write: broken pipe")))
	assert.True(t, isConnectionClassError(errors.New("read: connection reset by peer")))
	assert.True(t, isConnectionClassError(errors.New("dial tcp: connection refused")))
	assert.True(t, isConnectionClassError(errors.New("dial tcp: host unreachable")))
	assert.False(t, isConnectionClassError(errors.New("syntax error near SELECT")))
	assert.False(t, isConnectionClassError(nil))
}

func TestIsTimeoutErrorMatchesDeadlineAndIOTimeout(t *testing.T) {
	assert.True(t, isTimeoutError(context.DeadlineExceeded))
	assert.True(t, isTimeoutError(errors.New("read tcp 127.0.0.1:3306: i/o timeout")))
	assert.False(t, isTimeoutError(errors.New("duplicate entry")))
	assert.False(t, isTimeoutError(nil))
}

func TestPolicyForDirectIsThreeAttemptsNoIntervalCap(t *testing.T) {
	p := policyFor(false, false)
	assert.Equal(t, 3, p.maxAttempts)
	assert.Equal(t, time.Duration(0), p.maxInterval)
}

func TestPolicyForTunneledIsFiveAttemptsCappedAt30s(t *testing.T) {
	for _, schemaDiscovery := range []bool{true, false} {
		p := policyFor(true, schemaDiscovery)
		assert.Equal(t, 5, p.maxAttempts)
		assert.Equal(t, 30*time.Second, p.maxInterval)
	}
}

func TestNewBackOffRespectsMaxInterval(t *testing.T) {
	p := retryPolicy{maxAttempts: 5, maxInterval: 30 * time.Second}
	bo := p.newBackOff()
	assert.NotNil(t, bo)
}
