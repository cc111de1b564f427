package mysql

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"schemasync/internal/core"
	"schemasync/internal/introspect"
)

func setupMySQL(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("testdb"),
		tcmysql.WithUsername("root"),
		tcmysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err)

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `
		CREATE TABLE departments (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100) NOT NULL UNIQUE
		) ENGINE=InnoDB
	`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `
		CREATE TABLE employees (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			dept_id INT,
			INDEX idx_dept (dept_id),
			CONSTRAINT fk_dept FOREIGN KEY (dept_id) REFERENCES departments(id)
		) ENGINE=InnoDB
	`)
	require.NoError(t, err)

	return db
}

func TestDiscoverAllIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupMySQL(t)
	ctx := context.Background()
	opts := core.DefaultComparisonOptions()

	catalog, err := introspect.DiscoverAll(ctx, New(), db, opts)
	require.NoError(t, err)

	t.Run("discovers both tables with their columns", func(t *testing.T) {
		assert.Len(t, catalog.Tables.Order, 2)

		var employees *core.Table
		for _, key := range catalog.Tables.Order {
			table, _ := catalog.Tables.Get(key)
			if table.Name == "employees" {
				employees = table
			}
		}
		require.NotNil(t, employees)
		assert.Len(t, employees.Columns, 3)
	})

	t.Run("discovers the secondary index, excluding PRIMARY", func(t *testing.T) {
		var names []string
		for _, key := range catalog.Indexes.Order {
			idx, _ := catalog.Indexes.Get(key)
			names = append(names, idx.Name)
			assert.NotEqual(t, "PRIMARY", idx.Name)
		}
		assert.Contains(t, names, "idx_dept")
	})

	t.Run("discovers the primary key and foreign key constraints", func(t *testing.T) {
		var kinds []core.ConstraintKind
		for _, key := range catalog.Constraints.Order {
			c, _ := catalog.Constraints.Get(key)
			kinds = append(kinds, c.Kind)
		}
		assert.Contains(t, kinds, core.ConstraintPrimaryKey)
		assert.Contains(t, kinds, core.ConstraintForeignKey)
	})
}

func TestDiscoverAllIntegrationRespectsExcludedTables(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupMySQL(t)
	ctx := context.Background()
	opts := core.DefaultComparisonOptions()
	opts.ExcludedTables = []string{"employees"}

	catalog, err := introspect.DiscoverAll(ctx, New(), db, opts)
	require.NoError(t, err)

	for _, key := range catalog.Tables.Order {
		table, _ := catalog.Tables.Get(key)
		assert.NotEqual(t, "employees", table.Name)
	}
}
