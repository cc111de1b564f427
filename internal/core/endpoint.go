// Package core holds the data model shared by every component of schemasync:
// endpoint configuration, canonical catalog objects, differences, and the
// comparison/sync-script results produced from them.
package core

import "fmt"

// AuthMethod identifies how an SSH tunnel authenticates to its bastion host.
type AuthMethod string

const (
	AuthPassword   AuthMethod = "password"
	AuthPrivateKey AuthMethod = "private_key"
	AuthAgent      AuthMethod = "agent"
)

// Classification tags a credential field for the secret store (§4.7).
type Classification string

const (
	ClassInternal     Classification = "INTERNAL"
	ClassConfidential Classification = "CONFIDENTIAL"
	ClassRestricted   Classification = "RESTRICTED"
)

// TunnelSpec describes an SSH tunnel an Endpoint may be reached through.
//
// RemoteBindHost/RemoteBindPort are placeholders at rest; the orchestrator
// overwrites them with the real database host/port for each comparison
// (spec.md §4.3) before asking the tunnel manager for a tunnel.
type TunnelSpec struct {
	SSHHost  string
	SSHPort  int
	SSHUser  string
	Auth     AuthMethod
	Password string // CONFIDENTIAL, encrypted at rest via secret store
	// PrivateKey is either PEM content or a filesystem path; KeyIsPath
	// disambiguates. RESTRICTED, encrypted at rest via secret store.
	PrivateKey       string
	KeyIsPath        bool
	Passphrase       string // RESTRICTED
	RemoteBindHost   string
	RemoteBindPort   int
	LocalBindPort    int // 0 means "pick a free port"
	ConnectTimeoutS  int
	KeepaliveS       int
	Compression      bool
	StrictHostKey    bool
	KnownHostsPath   string
}

// ReuseKey is the stable 4-tuple identifying tunnels eligible for sharing
// (spec.md §4.6/§6).
func (t *TunnelSpec) ReuseKey() string {
	return fmt.Sprintf("%s:%d:%s:%d", t.SSHHost, t.SSHPort, t.RemoteBindHost, t.RemoteBindPort)
}

// Endpoint is one side of a comparison: host/credentials plus an optional
// tunnel spec. Host/Port are rewritten in place by the orchestrator to point
// at a local tunnel forwarder when SSH is in use.
type Endpoint struct {
	Host        string
	Port        int
	User        string
	Password    string // CONFIDENTIAL
	Database    string // optional default database
	DisplayName string
	Tunnel      *TunnelSpec
}

// ID returns a stable identity for pool/tunnel keying purposes. It
// deliberately excludes Password.
func (e *Endpoint) ID() string {
	return fmt.Sprintf("%s@%s:%d/%s", e.User, e.Host, e.Port, e.Database)
}

// UsesTunnel reports whether this endpoint must be reached through SSH.
func (e *Endpoint) UsesTunnel() bool {
	return e.Tunnel != nil
}

// ComparisonOptions configures which object kinds are compared and how.
type ComparisonOptions struct {
	CompareTables      bool
	CompareColumns     bool
	CompareIndexes     bool
	CompareConstraints bool

	IncludedSchemas []string
	ExcludedSchemas []string
	IncludedTables  []string
	ExcludedTables  []string

	IgnoreAutoIncrement bool
	IgnoreComments      bool
	IgnoreCharset       bool
	IgnoreCollation     bool
	CaseSensitive       bool
}

// DefaultComparisonOptions returns the options used when a caller supplies
// none: every object kind enabled, no filters, case-sensitive matching
// (MySQL identifiers are case-sensitive on most platforms' table_name
// storage but not collation; case_sensitive here governs key comparison
// only, per spec.md §4.2.2).
func DefaultComparisonOptions() ComparisonOptions {
	return ComparisonOptions{
		CompareTables:      true,
		CompareColumns:     true,
		CompareIndexes:     true,
		CompareConstraints: true,
		CaseSensitive:      true,
	}
}

// SystemSchemas lists the schemas excluded from every introspection query
// (spec.md §6, literal list).
var SystemSchemas = []string{
	"information_schema",
	"performance_schema",
	"mysql",
	"sys",
	"percona_schema",
}

// IsSystemSchema reports whether name is one of the excluded system schemas.
func IsSystemSchema(name string) bool {
	for _, s := range SystemSchemas {
		if s == name {
			return true
		}
	}
	return false
}
