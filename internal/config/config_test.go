package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadInvalidTOMLReturnsError(t *testing.T) {
	path := writeProfile(t, "not valid [[[ toml")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEndpointsWithoutTunnel(t *testing.T) {
	path := writeProfile(t, `
[source]
host = "db1.internal"
port = 3306
user = "reader"
password = "secret"
database = "shop"
display_name = "source"

[target]
host = "db2.internal"
port = 3306
user = "reader"
password = "secret"
database = "shop"
display_name = "target"
`)
	profile, err := Load(path)
	require.NoError(t, err)

	source, target := profile.Endpoints()
	assert.Equal(t, "db1.internal", source.Host)
	assert.Equal(t, 3306, source.Port)
	assert.Equal(t, "shop", source.Database)
	assert.Nil(t, source.Tunnel)
	assert.Equal(t, "db2.internal", target.Host)
}

func TestEndpointsWithTunnel(t *testing.T) {
	path := writeProfile(t, `
[source]
host = "127.0.0.1"
port = 3306
user = "reader"
database = "shop"

[source.tunnel]
ssh_host = "bastion.internal"
ssh_port = 22
ssh_user = "ops"
auth = "password"
password = "tunnel-secret"

[target]
host = "127.0.0.1"
port = 3306
user = "reader"
database = "shop"
`)
	profile, err := Load(path)
	require.NoError(t, err)

	source, _ := profile.Endpoints()
	require.NotNil(t, source.Tunnel)
	assert.True(t, source.UsesTunnel())
	assert.Equal(t, "bastion.internal", source.Tunnel.SSHHost)
	assert.Equal(t, "tunnel-secret", source.Tunnel.Password)
}

func TestComparisonOptionsDefaultsWhenUnset(t *testing.T) {
	path := writeProfile(t, `
[source]
host = "a"
[target]
host = "b"
`)
	profile, err := Load(path)
	require.NoError(t, err)

	opts := profile.ComparisonOptions()
	assert.True(t, opts.CompareTables)
	assert.True(t, opts.CompareColumns)
	assert.True(t, opts.CompareIndexes)
	assert.True(t, opts.CompareConstraints)
	assert.True(t, opts.CaseSensitive)
}

func TestComparisonOptionsOverridesAndFilters(t *testing.T) {
	path := writeProfile(t, `
[source]
host = "a"
[target]
host = "b"

[options]
compare_constraints = false
case_sensitive = false
included_schemas = ["shop"]
excluded_tables = ["audit_log"]
ignore_auto_increment = true
`)
	profile, err := Load(path)
	require.NoError(t, err)

	opts := profile.ComparisonOptions()
	assert.False(t, opts.CompareConstraints)
	assert.False(t, opts.CaseSensitive)
	assert.True(t, opts.CompareTables)
	assert.Equal(t, []string{"shop"}, opts.IncludedSchemas)
	assert.Equal(t, []string{"audit_log"}, opts.ExcludedTables)
	assert.True(t, opts.IgnoreAutoIncrement)
}
