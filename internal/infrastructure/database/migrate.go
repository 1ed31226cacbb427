package database

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/FreePeak/db-copilot/internal/logger"
	"github.com/FreePeak/db-copilot/pkg/db"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const statementSeparator = "-- +statement"

// Migrate installs the catalog, audit, account and theme tables together with
// the triggers that keep the audit log append-only and create profiles.
func Migrate(ctx context.Context, database db.Database, catalogTable, auditTable string) error {
	if catalogTable == "" {
		catalogTable = DefaultCatalogTable
	}
	if auditTable == "" {
		auditTable = DefaultAuditTable
	}

	script, err := migrationFiles.ReadFile(fmt.Sprintf("migrations/%s.sql", database.Dialect()))
	if err != nil {
		return fmt.Errorf("%w: no schema for %s", db.ErrNotImplemented, database.Dialect())
	}

	replacer := strings.NewReplacer("{{catalog_table}}", catalogTable, "{{audit_table}}", auditTable)
	statements := strings.Split(replacer.Replace(string(script)), statementSeparator)
	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := database.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d failed: %w", i+1, err)
		}
	}
	logger.Info("Schema migrated for %s (catalog %s, audit %s)", database.Dialect(), catalogTable, auditTable)
	return nil
}
