package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/pkg/db"
)

// DefaultAuditTable holds the audit log
const DefaultAuditTable = "ai_audit_log"

const defaultAuditListLimit = 50

// sqliteTimeLayout keeps a fixed fraction width so text order matches time order
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// AuditRepository appends audit records. It deliberately exposes no update or delete.
type AuditRepository struct {
	db    db.Database
	table string
	now   func() time.Time
}

// NewAuditRepository creates an audit repository
func NewAuditRepository(database db.Database, table string) *AuditRepository {
	if table == "" {
		table = DefaultAuditTable
	}
	return &AuditRepository{db: database, table: table, now: time.Now}
}

// Append writes one record. A missing ID or timestamp is filled in.
func (r *AuditRepository) Append(ctx context.Context, record entities.AuditRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now().UTC()
	}
	args, err := json.Marshal(record.Arguments)
	if err != nil {
		return fmt.Errorf("failed to encode audit arguments: %w", err)
	}

	d := r.db.Dialect()
	placeholders := make([]string, 12)
	for i := range placeholders {
		placeholders[i] = d.Placeholder(i + 1)
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, operation, actor_id, session_id, arguments, outcome,
		success, error_kind, message, dry_run, row_count, created_at) VALUES (%s)`,
		d.QuoteIdent(r.table), strings.Join(placeholders, ", "))

	_, err = r.db.Exec(ctx, query,
		record.ID, record.Operation, record.ActorID, record.SessionID, string(args), string(record.Outcome),
		record.Success, string(record.ErrorKind), record.Message, record.DryRun, record.RowCount,
		timeArg(d, record.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// List returns the newest records matching the filter
func (r *AuditRepository) List(ctx context.Context, filter entities.AuditFilter) ([]entities.AuditRecord, error) {
	d := r.db.Dialect()
	var (
		where []string
		args  []interface{}
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = %s", column, d.Placeholder(len(args))))
	}
	add("actor_id", filter.ActorID)
	add("session_id", filter.SessionID)
	add("operation", filter.Operation)

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditListLimit
	}

	var query strings.Builder
	query.WriteString(fmt.Sprintf(`SELECT id, operation, actor_id, session_id, arguments, outcome,
		success, error_kind, message, dry_run, row_count, created_at FROM %s`, d.QuoteIdent(r.table)))
	if len(where) > 0 {
		query.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	query.WriteString(fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit))

	rows, err := r.db.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	var records []entities.AuditRecord
	for rows.Next() {
		var (
			rec                                    entities.AuditRecord
			session, arguments, errorKind, message sql.NullString
			outcome                                string
			createdAt                              interface{}
		)
		if err := rows.Scan(&rec.ID, &rec.Operation, &rec.ActorID, &session, &arguments, &outcome,
			&rec.Success, &errorKind, &message, &rec.DryRun, &rec.RowCount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		rec.SessionID = session.String
		rec.Outcome = entities.Outcome(outcome)
		rec.ErrorKind = entities.ErrorKind(errorKind.String)
		rec.Message = message.String
		rec.CreatedAt = parseTime(createdAt)
		if arguments.Valid && arguments.String != "" {
			if err := json.Unmarshal([]byte(arguments.String), &rec.Arguments); err != nil {
				return nil, fmt.Errorf("failed to decode audit arguments: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	return records, nil
}

// timeArg binds timestamps as sortable text on sqlite and natively elsewhere
func timeArg(d db.Dialect, t time.Time) interface{} {
	if d == db.SQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t
}
