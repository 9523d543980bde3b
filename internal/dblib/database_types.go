package dblib

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedDatabase is returned for database types without a driver or dialect.
var ErrUnsupportedDatabase = errors.New("unsupported database type")

type DatabaseType int

const (
	SQLite DatabaseType = iota
	PostgreSQL
	MySQL
	DuckDB
	Clickhouse
	Snowflake
	Cockroach
	BigQuery
	Redshift
)

type databaseFeature struct {
	name                  string
	driverName            string // database/sql driver, empty if none is linked in
	returning             bool
	positionalPlaceholder bool
	defaultValuesInsert   bool // INSERT INTO t DEFAULT VALUES
}

var databaseFeatures = map[DatabaseType]databaseFeature{
	SQLite: {
		name:                  "sqlite",
		driverName:            "sqlite3",
		returning:             true,
		positionalPlaceholder: false,
		defaultValuesInsert:   true,
	},
	PostgreSQL: {
		name:                  "postgres",
		driverName:            "postgres",
		returning:             true,
		positionalPlaceholder: true,
		defaultValuesInsert:   true,
	},
	MySQL: {
		name:                  "mysql",
		driverName:            "mysql",
		returning:             false,
		positionalPlaceholder: false,
		defaultValuesInsert:   false,
	},
	DuckDB: {
		name:                  "duckdb",
		returning:             true,
		positionalPlaceholder: false,
		defaultValuesInsert:   true,
	},
	Clickhouse: {
		name:                  "clickhouse",
		returning:             false,
		positionalPlaceholder: false,
	},
}

func (t DatabaseType) String() string {
	if f, ok := databaseFeatures[t]; ok {
		return f.name
	}
	return fmt.Sprintf("DatabaseType(%d)", int(t))
}

// DriverName returns the database/sql driver name registered for t.
func (t DatabaseType) DriverName() (string, error) {
	f, ok := databaseFeatures[t]
	if !ok || f.driverName == "" {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedDatabase, t)
	}
	return f.driverName, nil
}

// SupportsReturning reports whether INSERT ... RETURNING is available.
func (t DatabaseType) SupportsReturning() bool {
	return databaseFeatures[t].returning
}

// ParseDatabaseType maps a config or flag value ("postgres", "pg", "sqlite3", ...) to a DatabaseType.
func ParseDatabaseType(s string) (DatabaseType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pg":
		return PostgreSQL, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "duckdb":
		return DuckDB, nil
	case "clickhouse":
		return Clickhouse, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDatabase, s)
	}
}

// placeholder returns the parameter marker for position pos (1-indexed).
func placeholder(dbType DatabaseType, pos int) string {
	if databaseFeatures[dbType].positionalPlaceholder {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

// TableIdentifier names a table, optionally qualified by a schema.
type TableIdentifier struct {
	Schema string
	Name   string
}

// ParseTableIdentifier splits "schema.table" on the first dot.
func ParseTableIdentifier(s string) TableIdentifier {
	if schema, name, ok := strings.Cut(s, "."); ok {
		return TableIdentifier{Schema: schema, Name: name}
	}
	return TableIdentifier{Name: s}
}

func (t TableIdentifier) IsZero() bool { return t.Name == "" }

func (t TableIdentifier) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Quoted renders the identifier for dbType, quoting each part independently.
func (t TableIdentifier) Quoted(dbType DatabaseType) string {
	if t.Schema == "" {
		return quoteIdent(dbType, t.Name)
	}
	return quoteIdent(dbType, t.Schema) + "." + quoteIdent(dbType, t.Name)
}
