package repositories

import (
	"context"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

// CatalogRepository reads the administrator-maintained capability catalog
type CatalogRepository interface {
	// ListDataSources returns every catalog entry, enabled or not
	ListDataSources(ctx context.Context) (entities.Catalog, error)
}

// SchemaRepository introspects live table structure
type SchemaRepository interface {
	// Columns returns the columns of a table in ordinal order
	Columns(ctx context.Context, schema, table string) ([]entities.ColumnDescriptor, error)
}
