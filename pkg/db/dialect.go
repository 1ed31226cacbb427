package db

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the SQL syntax differences between supported engines
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DialectFor returns the dialect for a database type
func DialectFor(dbType string) (Dialect, error) {
	switch strings.ToLower(dbType) {
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// Placeholder returns the bind marker for the n-th (1-based) argument
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// QuoteIdent quotes a single identifier
func (d Dialect) QuoteIdent(name string) string {
	if d == MySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifiedTable quotes a schema-qualified table name.
// SQLite has no schemas in the catalog sense, so the schema is dropped.
func (d Dialect) QualifiedTable(schema, table string) string {
	if schema == "" || d == SQLite {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
}

// SupportsReturning reports whether mutations can return affected rows
func (d Dialect) SupportsReturning() bool {
	return d == Postgres || d == SQLite
}

// CaseInsensitiveLike returns the operator used for ilike filters
func (d Dialect) CaseInsensitiveLike() string {
	if d == Postgres {
		return "ILIKE"
	}
	return "LIKE"
}

// DefaultSchema is the schema assumed when a catalog entry leaves it empty
func (d Dialect) DefaultSchema() string {
	switch d {
	case Postgres:
		return "public"
	case SQLite:
		return "main"
	default:
		return ""
	}
}
