package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/pkg/db"
)

// columnStrategy provides the dialect-specific column introspection query
type columnStrategy interface {
	columnsQuery(schema, table string) (string, []interface{})
}

// newColumnStrategy creates the appropriate strategy for the given dialect
func newColumnStrategy(dialect db.Dialect) columnStrategy {
	switch dialect {
	case db.Postgres:
		return postgresStrategy{}
	case db.MySQL:
		return mysqlStrategy{}
	default:
		return sqliteStrategy{}
	}
}

type postgresStrategy struct{}

func (postgresStrategy) columnsQuery(schema, table string) (string, []interface{}) {
	if schema == "" {
		schema = "public"
	}
	return `
		SELECT c.column_name, c.data_type, c.is_nullable = 'YES', c.column_default,
		EXISTS (
			SELECT 1 FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
				AND tc.table_name = kcu.table_name
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = c.table_schema
				AND tc.table_name = c.table_name
				AND kcu.column_name = c.column_name
		)
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`, []interface{}{schema, table}
}

type mysqlStrategy struct{}

func (mysqlStrategy) columnsQuery(schema, table string) (string, []interface{}) {
	return `
		SELECT column_name, data_type, is_nullable = 'YES', column_default, column_key = 'PRI'
		FROM information_schema.columns
		WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE()) AND table_name = ?
		ORDER BY ordinal_position
	`, []interface{}{schema, table}
}

type sqliteStrategy struct{}

func (sqliteStrategy) columnsQuery(_, table string) (string, []interface{}) {
	return `SELECT name, type, "notnull" = 0, dflt_value, pk > 0 FROM pragma_table_info(?) ORDER BY cid`,
		[]interface{}{table}
}

// SchemaRepository introspects columns through the datastore's own catalog
type SchemaRepository struct {
	db       db.Database
	strategy columnStrategy
}

// NewSchemaRepository creates a schema repository for the connection's dialect
func NewSchemaRepository(database db.Database) *SchemaRepository {
	return &SchemaRepository{
		db:       database,
		strategy: newColumnStrategy(database.Dialect()),
	}
}

// Columns returns the live column list of a table
func (r *SchemaRepository) Columns(ctx context.Context, schema, table string) ([]entities.ColumnDescriptor, error) {
	query, args := r.strategy.columnsQuery(schema, table)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect %s: %w", table, err)
	}
	defer rows.Close()

	var columns []entities.ColumnDescriptor
	for rows.Next() {
		var (
			col      entities.ColumnDescriptor
			dataType sql.NullString
			def      sql.NullString
		)
		if err := rows.Scan(&col.Name, &dataType, &col.Nullable, &def, &col.IsPrimaryKey); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		col.DataType = strings.ToLower(dataType.String)
		if def.Valid {
			value := def.String
			col.Default = &value
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to introspect %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: table %s", db.ErrNotFound, table)
	}
	return columns, nil
}
