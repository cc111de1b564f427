package mysql

import (
	"context"
	"database/sql"
	"strings"
)

// ServerFlavor identifies which MySQL-protocol server a connection is
// talking to. schemasync treats all three identically for introspection
// purposes — detection exists for diagnostics and error messages only.
type ServerFlavor string

const (
	FlavorMySQL   ServerFlavor = "mysql"
	FlavorMariaDB ServerFlavor = "mariadb"
	FlavorTiDB    ServerFlavor = "tidb"
)

// DetectFlavor inspects version_comment/VERSION() to identify the server.
func DetectFlavor(ctx context.Context, db *sql.DB) (ServerFlavor, string, error) {
	var varName, comment string
	if err := db.QueryRowContext(ctx, "SHOW VARIABLES LIKE 'version_comment'").Scan(&varName, &comment); err != nil {
		return "", "", err
	}

	version := serverVersion(ctx, db)
	switch lower := strings.ToLower(comment); {
	case strings.Contains(lower, "mariadb"):
		return FlavorMariaDB, version, nil
	case strings.Contains(lower, "tidb"):
		return FlavorTiDB, version, nil
	default:
		return FlavorMySQL, version, nil
	}
}

func serverVersion(ctx context.Context, db *sql.DB) string {
	var version string
	_ = db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version)
	if idx := strings.Index(version, "-"); idx > 0 {
		version = version[:idx]
	}
	return version
}
