// Package config loads a comparison profile (an endpoint pair plus
// comparison options) from a TOML file, grounded on internal/parser/toml's
// use of github.com/BurntSushi/toml for schema-file parsing, adapted here
// to the CLI's connection-profile shape rather than a schema definition.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"schemasync/internal/core"
)

// Profile is the top-level shape of a .toml comparison profile.
type Profile struct {
	Source  endpointConfig `toml:"source"`
	Target  endpointConfig `toml:"target"`
	Options optionsConfig  `toml:"options"`
}

type endpointConfig struct {
	Host        string       `toml:"host"`
	Port        int          `toml:"port"`
	User        string       `toml:"user"`
	Password    string       `toml:"password"`
	Database    string       `toml:"database"`
	DisplayName string       `toml:"display_name"`
	Tunnel      *tunnelConfig `toml:"tunnel"`
}

type tunnelConfig struct {
	SSHHost         string `toml:"ssh_host"`
	SSHPort         int    `toml:"ssh_port"`
	SSHUser         string `toml:"ssh_user"`
	Auth            string `toml:"auth"`
	Password        string `toml:"password"`
	PrivateKey      string `toml:"private_key"`
	KeyIsPath       bool   `toml:"key_is_path"`
	Passphrase      string `toml:"passphrase"`
	LocalBindPort   int    `toml:"local_bind_port"`
	ConnectTimeoutS int    `toml:"connect_timeout_seconds"`
	KeepaliveS      int    `toml:"keepalive_seconds"`
	Compression     bool   `toml:"compression"`
	StrictHostKey   bool   `toml:"strict_host_key"`
	KnownHostsPath  string `toml:"known_hosts_path"`
}

type optionsConfig struct {
	CompareTables       *bool    `toml:"compare_tables"`
	CompareColumns      *bool    `toml:"compare_columns"`
	CompareIndexes      *bool    `toml:"compare_indexes"`
	CompareConstraints  *bool    `toml:"compare_constraints"`
	IncludedSchemas     []string `toml:"included_schemas"`
	ExcludedSchemas     []string `toml:"excluded_schemas"`
	IncludedTables      []string `toml:"included_tables"`
	ExcludedTables      []string `toml:"excluded_tables"`
	IgnoreAutoIncrement bool     `toml:"ignore_auto_increment"`
	IgnoreComments      bool     `toml:"ignore_comments"`
	IgnoreCharset       bool     `toml:"ignore_charset"`
	IgnoreCollation     bool     `toml:"ignore_collation"`
	CaseSensitive       *bool    `toml:"case_sensitive"`
}

// Load reads and decodes a profile file at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var p Profile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &p, nil
}

// Endpoints builds the source/target core.Endpoint pair this profile
// describes.
func (p *Profile) Endpoints() (source, target *core.Endpoint) {
	return p.Source.toEndpoint(), p.Target.toEndpoint()
}

func (e endpointConfig) toEndpoint() *core.Endpoint {
	ep := &core.Endpoint{
		Host: e.Host, Port: e.Port, User: e.User, Password: e.Password,
		Database: e.Database, DisplayName: e.DisplayName,
	}
	if e.Tunnel != nil {
		ep.Tunnel = e.Tunnel.toTunnelSpec()
	}
	return ep
}

func (c tunnelConfig) toTunnelSpec() *core.TunnelSpec {
	return &core.TunnelSpec{
		SSHHost: c.SSHHost, SSHPort: c.SSHPort, SSHUser: c.SSHUser,
		Auth: core.AuthMethod(c.Auth), Password: c.Password,
		PrivateKey: c.PrivateKey, KeyIsPath: c.KeyIsPath, Passphrase: c.Passphrase,
		LocalBindPort: c.LocalBindPort, ConnectTimeoutS: c.ConnectTimeoutS, KeepaliveS: c.KeepaliveS,
		Compression: c.Compression, StrictHostKey: c.StrictHostKey, KnownHostsPath: c.KnownHostsPath,
	}
}

// ComparisonOptions builds a core.ComparisonOptions from the profile,
// defaulting unset boolean pointers per core.DefaultComparisonOptions.
func (p *Profile) ComparisonOptions() core.ComparisonOptions {
	opts := core.DefaultComparisonOptions()
	o := p.Options
	if o.CompareTables != nil {
		opts.CompareTables = *o.CompareTables
	}
	if o.CompareColumns != nil {
		opts.CompareColumns = *o.CompareColumns
	}
	if o.CompareIndexes != nil {
		opts.CompareIndexes = *o.CompareIndexes
	}
	if o.CompareConstraints != nil {
		opts.CompareConstraints = *o.CompareConstraints
	}
	if o.CaseSensitive != nil {
		opts.CaseSensitive = *o.CaseSensitive
	}
	opts.IncludedSchemas = o.IncludedSchemas
	opts.ExcludedSchemas = o.ExcludedSchemas
	opts.IncludedTables = o.IncludedTables
	opts.ExcludedTables = o.ExcludedTables
	opts.IgnoreAutoIncrement = o.IgnoreAutoIncrement
	opts.IgnoreComments = o.IgnoreComments
	opts.IgnoreCharset = o.IgnoreCharset
	opts.IgnoreCollation = o.IgnoreCollation
	return opts
}
