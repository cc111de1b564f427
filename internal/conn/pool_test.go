package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"schemasync/internal/core"
)

func TestPoolKeyFallsBackToEndpointDatabase(t *testing.T) {
	ep := &core.Endpoint{Host: "db.internal", Port: 3306, User: "svc", Database: "appdb"}
	assert.Equal(t, poolKey(ep, ""), poolKey(ep, "appdb"))
}

func TestPoolKeyDistinguishesDatabase(t *testing.T) {
	ep := &core.Endpoint{Host: "db.internal", Port: 3306, User: "svc", Database: "appdb"}
	assert.NotEqual(t, poolKey(ep, "appdb"), poolKey(ep, "otherdb"))
}

func TestBuildDSNIncludesHostPortUserAndCharset(t *testing.T) {
	ep := &core.Endpoint{Host: "127.0.0.1", Port: 13306, User: "root", Password: "secret", Database: "schemasync_test"}
	dsn := buildDSN(ep, "")
	assert.Contains(t, dsn, "root:secret@tcp(127.0.0.1:13306)/schemasync_test")
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.Contains(t, dsn, "parseTime=true")
}

func TestBuildDSNUsesOverrideDatabase(t *testing.T) {
	ep := &core.Endpoint{Host: "127.0.0.1", Port: 3306, User: "root", Database: "appdb"}
	dsn := buildDSN(ep, "information_schema")
	assert.Contains(t, dsn, "/information_schema")
}

func TestSizingProfilesMatchConfiguredDefaults(t *testing.T) {
	assert.Equal(t, 1, TunneledSizing.MaxOpen)
	assert.Equal(t, 1, TunneledSizing.MaxIdle)
	assert.Equal(t, 30, DirectSizing.MaxOpen)
	assert.Equal(t, 20, DirectSizing.MaxIdle)
}

func TestNewPoolDefaultsToNopLogger(t *testing.T) {
	p := NewPool(nil)
	assert.NotNil(t, p.log)
	assert.Equal(t, zap.NewNop(), p.log)
}

func TestPoolRemoveOfUnknownKeyIsNoop(t *testing.T) {
	p := NewPool(nil)
	ep := &core.Endpoint{Host: "127.0.0.1", Port: 3306, User: "root", Database: "appdb"}
	p.Remove(ep, "appdb")
}

func TestPoolCloseAllOnEmptyPoolIsNoop(t *testing.T) {
	p := NewPool(nil)
	p.CloseAll()
	assert.Empty(t, p.connections)
}
