package repositories

import (
	"context"

	"github.com/FreePeak/db-copilot/pkg/querybuilder"
)

// MutationResult is the outcome of an insert, update or delete
type MutationResult struct {
	RowsAffected int64
	Rows         []map[string]interface{}
}

// DataRepository executes built statements against the datastore
type DataRepository interface {
	// Query runs a statement that returns rows
	Query(ctx context.Context, stmt querybuilder.Statement) ([]map[string]interface{}, error)

	// Mutate runs a single mutating statement
	Mutate(ctx context.Context, stmt querybuilder.Statement) (MutationResult, error)
}
