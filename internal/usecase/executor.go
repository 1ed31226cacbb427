package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/domain/repositories"
	"github.com/FreePeak/db-copilot/internal/logger"
	"github.com/FreePeak/db-copilot/internal/metrics"
	"github.com/FreePeak/db-copilot/internal/usecase/special"
	"github.com/FreePeak/db-copilot/pkg/querybuilder"
)

const privilegedVerbLabel = "privileged"

var redactedArguments = []string{"password", "secret", "token", "api_key"}

// OperationExecutor runs validated operations live or as a dry run and
// writes exactly one audit record per invocation.
type OperationExecutor struct {
	catalog   repositories.CatalogRepository
	schemas   repositories.SchemaRepository
	data      repositories.DataRepository
	audit     repositories.AuditRepository
	special   *special.Registry
	validator *PermissionValidator
	builder   *querybuilder.Builder
	now       func() time.Time
}

// NewOperationExecutor creates an executor
func NewOperationExecutor(
	catalog repositories.CatalogRepository,
	schemas repositories.SchemaRepository,
	data repositories.DataRepository,
	audit repositories.AuditRepository,
	registry *special.Registry,
	builder *querybuilder.Builder,
) *OperationExecutor {
	return &OperationExecutor{
		catalog:   catalog,
		schemas:   schemas,
		data:      data,
		audit:     audit,
		special:   registry,
		validator: NewPermissionValidator(),
		builder:   builder,
		now:       time.Now,
	}
}

// WithReservedTables keeps the named tables, typically the catalog and
// audit tables, out of reach of synthesized operations in addition to the
// system tables
func (e *OperationExecutor) WithReservedTables(tables ...string) *OperationExecutor {
	e.validator = NewPermissionValidator(tables...)
	return e
}

// Execute runs one operation request. It never returns an error: failures
// are reported in the result, which always reflects the audit write.
func (e *OperationExecutor) Execute(ctx context.Context, turn entities.TurnContext, req entities.OperationRequest) entities.ExecutionResult {
	start := e.now()

	var (
		result entities.ExecutionResult
		verb   string
	)
	if op, ok := e.special.Lookup(req.Name); ok {
		verb = privilegedVerbLabel
		result = e.executeSpecial(ctx, turn, op, req)
	} else {
		verb = "unknown"
		if v, _, parsed := entities.ParseOperationName(req.Name); parsed {
			verb = string(v)
		}
		result = e.executeData(ctx, turn, req)
	}
	result.Operation = req.Name
	result.DryRun = turn.DryRun

	record := e.auditRecord(turn, req, result)
	result.AuditID = record.ID
	if err := e.audit.Append(ctx, record); err != nil {
		logger.Error("Failed to write audit record for %s: %v", req.Name, err)
		metrics.AuditWriteFailuresTotal.Inc()
		result.AuditError = err.Error()
	}

	metrics.OperationsTotal.WithLabelValues(verb, string(record.Outcome)).Inc()
	metrics.OperationLatency.WithLabelValues(verb).Observe(e.now().Sub(start).Seconds())
	return result
}

func (e *OperationExecutor) executeSpecial(ctx context.Context, turn entities.TurnContext, op special.Operation, req entities.OperationRequest) entities.ExecutionResult {
	desc := op.Descriptor()
	args := req.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}
	if rejection := e.validator.ValidateSpecial(desc, args); rejection != nil {
		return entities.Failed(req.Name, rejection, turn.DryRun)
	}

	data, err := op.Execute(ctx, special.Call{Turn: turn, Args: args})
	if err != nil {
		logger.Warn("Privileged operation %s failed: %v", req.Name, err)
		return entities.Failed(req.Name, entities.AsOperationError(err, entities.KindOf(err)), turn.DryRun)
	}
	return entities.ExecutionResult{Success: true, Data: data}
}

func (e *OperationExecutor) executeData(ctx context.Context, turn entities.TurnContext, req entities.OperationRequest) entities.ExecutionResult {
	catalog, err := e.catalog.ListDataSources(ctx)
	if err != nil {
		logger.Error("Failed to load catalog: %v", err)
		return entities.Failed(req.Name, entities.NewOperationError(entities.KindExecutionFailure,
			fmt.Errorf("catalog unavailable: %w", err)), turn.DryRun)
	}

	verdict := e.validator.Validate(req, catalog)
	if !verdict.Allowed() {
		logger.Info("Rejected %s: %s", req.Name, verdict.Err.Message)
		return entities.Failed(req.Name, verdict.Err, turn.DryRun)
	}
	if verdict.Verb == entities.VerbInsert {
		columns, err := e.schemas.Columns(ctx, verdict.Source.Schema, verdict.Source.Table)
		if err != nil {
			return entities.Failed(req.Name, entities.NewOperationError(entities.KindExecutionFailure,
				fmt.Errorf("failed to describe %s: %w", verdict.Source.Table, err)), turn.DryRun)
		}
		if rejection := e.validator.ValidateInsert(verdict, columns); rejection != nil {
			logger.Info("Rejected %s: %s", req.Name, rejection.Message)
			return entities.Failed(req.Name, rejection, turn.DryRun)
		}
	}

	stmt, err := e.build(ctx, verdict)
	if err != nil {
		kind := entities.KindValidationRejection
		if !errors.Is(err, querybuilder.ErrInvalidComponents) && entities.KindOf(err) != entities.KindValidationRejection {
			kind = entities.KindExecutionFailure
		}
		return entities.Failed(req.Name, entities.AsOperationError(err, kind), turn.DryRun)
	}

	if turn.DryRun && verdict.Verb != entities.VerbQuery {
		return entities.ExecutionResult{Success: true, Statement: stmt.Preview}
	}

	source := verdict.Source
	if verdict.Verb == entities.VerbQuery {
		rows, err := e.data.Query(ctx, stmt)
		if err != nil {
			return entities.Failed(req.Name, entities.NewOperationError(entities.KindExecutionFailure, err), turn.DryRun)
		}
		rows = stripRows(source, rows)
		result := entities.ExecutionResult{Success: true, Data: rows, RowCount: int64(len(rows))}
		if turn.DryRun {
			result.Statement = stmt.Preview
		}
		return result
	}

	mutation, err := e.data.Mutate(ctx, stmt)
	if err != nil {
		return entities.Failed(req.Name, entities.NewOperationError(entities.KindExecutionFailure, err), turn.DryRun)
	}
	result := entities.ExecutionResult{Success: true, RowCount: mutation.RowsAffected}
	if mutation.Rows != nil {
		result.Data = stripRows(source, mutation.Rows)
	}
	return result
}

// build turns a validated request into a statement. Excluded columns are
// stripped again here so exclusion holds for callers that skip the schema.
func (e *OperationExecutor) build(ctx context.Context, verdict Verdict) (querybuilder.Statement, error) {
	source := verdict.Source
	args := verdict.Args

	where, err := conditions(args.Filters)
	if err != nil {
		return querybuilder.Statement{}, err
	}

	switch verdict.Verb {
	case entities.VerbQuery:
		columns := exposedColumns(source, args.Select)
		if len(columns) == 0 {
			columns, err = e.exposedTableColumns(ctx, source)
			if err != nil {
				return querybuilder.Statement{}, err
			}
		}
		limit := args.Limit
		if limit <= 0 || limit > source.RowLimit() {
			limit = source.RowLimit()
		}
		order := make([]querybuilder.OrderBy, 0, len(args.Order))
		for _, o := range args.Order {
			order = append(order, querybuilder.OrderBy{Column: o.Column, Direction: o.Direction})
		}
		return e.builder.Select(querybuilder.QueryComponents{
			Schema:  source.Schema,
			Table:   source.Table,
			Select:  columns,
			Where:   where,
			OrderBy: order,
			Limit:   limit,
		})
	case entities.VerbInsert:
		return e.builder.Insert(querybuilder.InsertComponents{
			Schema:    source.Schema,
			Table:     source.Table,
			Values:    exposedData(source, args.Data),
			Returning: true,
		})
	case entities.VerbUpdate:
		return e.builder.Update(querybuilder.UpdateComponents{
			Schema:    source.Schema,
			Table:     source.Table,
			Set:       exposedData(source, args.Data),
			Where:     where,
			Returning: true,
		})
	case entities.VerbDelete:
		return e.builder.Delete(querybuilder.DeleteComponents{
			Schema:    source.Schema,
			Table:     source.Table,
			Where:     where,
			Returning: true,
		})
	default:
		return querybuilder.Statement{}, entities.Rejection(entities.ErrUnknownOperation, "verb %s", verdict.Verb)
	}
}

// exposedTableColumns resolves the projection when none was requested
func (e *OperationExecutor) exposedTableColumns(ctx context.Context, source entities.DataSourceDescriptor) ([]string, error) {
	if len(source.AllowedColumns) > 0 {
		return exposedColumns(source, source.AllowedColumns), nil
	}
	described, err := e.schemas.Columns(ctx, source.Schema, source.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", source.Table, err)
	}
	names := make([]string, 0, len(described))
	for _, c := range described {
		names = append(names, c.Name)
	}
	columns := exposedColumns(source, names)
	if len(columns) == 0 {
		return nil, entities.Rejection(entities.ErrColumnNotExposed, "%s has no permitted columns", source.Table)
	}
	return columns, nil
}

func conditions(filters []entities.Condition) ([]querybuilder.Condition, error) {
	out := make([]querybuilder.Condition, 0, len(filters))
	for _, f := range filters {
		op, ok := querybuilder.NormalizeOperator(f.Operator)
		if !ok {
			return nil, entities.Rejection(entities.ErrUnknownOperator, "%q", f.Operator)
		}
		value := f.Value
		if op == querybuilder.OpIn || op == querybuilder.OpNotIn {
			if s, isString := value.(string); isString {
				var list []interface{}
				for _, part := range strings.Split(s, ",") {
					if part = strings.TrimSpace(part); part != "" {
						list = append(list, part)
					}
				}
				value = list
			}
		}
		out = append(out, querybuilder.Condition{Column: f.Column, Operator: op, Value: value})
	}
	return out, nil
}

// stripRows removes non-exposed columns from returned rows
func stripRows(source entities.DataSourceDescriptor, rows []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		out = append(out, exposedData(source, row))
	}
	return out
}

func (e *OperationExecutor) auditRecord(turn entities.TurnContext, req entities.OperationRequest, result entities.ExecutionResult) entities.AuditRecord {
	record := entities.AuditRecord{
		ID:        uuid.NewString(),
		Operation: req.Name,
		ActorID:   turn.ActorID,
		SessionID: turn.SessionID,
		Arguments: redact(req.Arguments),
		Success:   result.Success,
		DryRun:    turn.DryRun,
		RowCount:  result.RowCount,
		CreatedAt: e.now().UTC(),
	}
	switch {
	case result.Success && turn.DryRun:
		record.Outcome = entities.OutcomeDryRun
	case result.Success:
		record.Outcome = entities.OutcomeSucceeded
	case result.Error != nil && result.Error.Kind == entities.KindValidationRejection,
		result.Error != nil && result.Error.Kind == entities.KindAuthorizationFailure:
		record.Outcome = entities.OutcomeRejected
	default:
		record.Outcome = entities.OutcomeFailed
	}
	if result.Error != nil {
		record.ErrorKind = result.Error.Kind
		record.Message = result.Error.Message
	}
	return record
}

// redact masks credential-like arguments before they reach the audit log
func redact(args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		out[k] = v
		for _, name := range redactedArguments {
			if strings.EqualFold(k, name) {
				out[k] = "[redacted]"
				break
			}
		}
	}
	return out
}
