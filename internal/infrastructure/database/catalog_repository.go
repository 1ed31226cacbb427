package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/logger"
	"github.com/FreePeak/db-copilot/pkg/db"
)

// DefaultCatalogTable holds the capability catalog
const DefaultCatalogTable = "ai_data_sources"

// CatalogRepository reads data source descriptors from the catalog table
type CatalogRepository struct {
	db     db.Database
	table  string
	schema string
}

// NewCatalogRepository creates a catalog repository
func NewCatalogRepository(database db.Database, table string) *CatalogRepository {
	if table == "" {
		table = DefaultCatalogTable
	}
	return &CatalogRepository{db: database, table: table}
}

// WithDefaultSchema sets the schema used for entries that name none.
// An empty schema falls back to the dialect default.
func (r *CatalogRepository) WithDefaultSchema(schema string) *CatalogRepository {
	r.schema = schema
	return r
}

// ListDataSources reads the whole catalog. It is never cached.
func (r *CatalogRepository) ListDataSources(ctx context.Context) (entities.Catalog, error) {
	query := fmt.Sprintf(`SELECT id, schema_name, table_name, display_name, description,
		access_level, is_enabled, allowed_columns, excluded_columns, max_rows_per_query
		FROM %s ORDER BY table_name`, r.db.Dialect().QuoteIdent(r.table))

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	defer rows.Close()

	defaultSchema := r.schema
	if defaultSchema == "" {
		defaultSchema = r.db.Dialect().DefaultSchema()
	}
	var catalog entities.Catalog
	for rows.Next() {
		var (
			d                     entities.DataSourceDescriptor
			schema, display, desc sql.NullString
			access                string
			allowed, excluded     sql.NullString
			maxRows               sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &schema, &d.Table, &display, &desc, &access, &d.IsEnabled, &allowed, &excluded, &maxRows); err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		d.Schema = schema.String
		if d.Schema == "" {
			d.Schema = defaultSchema
		}
		d.DisplayName = display.String
		d.Description = desc.String
		d.AccessLevel = entities.ParseAccessLevel(access)
		d.AllowedColumns = decodeColumnList(allowed)
		d.ExcludedColumns = decodeColumnList(excluded)
		d.MaxRowsPerQuery = int(maxRows.Int64)
		catalog = append(catalog, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	catalog, dropped := catalog.Unambiguous()
	for _, table := range dropped {
		logger.Warn("Catalog lists table %s in more than one schema, none of them is exposed", table)
	}
	return catalog, nil
}
