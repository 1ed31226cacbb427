package database

import (
	"context"
	"fmt"

	"github.com/FreePeak/db-copilot/internal/domain/repositories"
	"github.com/FreePeak/db-copilot/internal/logger"
	"github.com/FreePeak/db-copilot/pkg/db"
	"github.com/FreePeak/db-copilot/pkg/querybuilder"
)

// DataRepository runs built statements as single datastore calls
type DataRepository struct {
	db db.Database
}

// NewDataRepository creates a data repository
func NewDataRepository(database db.Database) *DataRepository {
	return &DataRepository{db: database}
}

// Query runs a row-returning statement
func (r *DataRepository) Query(ctx context.Context, stmt querybuilder.Statement) ([]map[string]interface{}, error) {
	logger.Debug("Executing query: %s", stmt.SQL)
	rows, err := r.db.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	results, err := rowsToMaps(rows)
	if err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}
	return results, nil
}

// Mutate runs one insert, update or delete statement
func (r *DataRepository) Mutate(ctx context.Context, stmt querybuilder.Statement) (repositories.MutationResult, error) {
	logger.Debug("Executing statement: %s", stmt.SQL)
	if stmt.ReturnsRows {
		rows, err := r.Query(ctx, stmt)
		if err != nil {
			return repositories.MutationResult{}, err
		}
		return repositories.MutationResult{RowsAffected: int64(len(rows)), Rows: rows}, nil
	}

	result, err := r.db.Exec(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return repositories.MutationResult{}, fmt.Errorf("statement error: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return repositories.MutationResult{}, fmt.Errorf("error reading affected rows: %w", err)
	}
	return repositories.MutationResult{RowsAffected: affected}, nil
}
