package repositories

import (
	"context"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

// AuditRepository is the append-only audit sink. It has no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, record entities.AuditRecord) error
	List(ctx context.Context, filter entities.AuditFilter) ([]entities.AuditRecord, error)
}
