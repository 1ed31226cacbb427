package usecase

import (
	"fmt"
	"strings"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/pkg/querybuilder"
)

// Verdict is the outcome of validating one operation request
type Verdict struct {
	Verb   entities.Verb
	Source entities.DataSourceDescriptor
	Args   entities.Arguments
	Err    *entities.OperationError
}

// Allowed reports whether the request passed validation
func (v Verdict) Allowed() bool {
	return v.Err == nil
}

// PermissionValidator checks requests against the catalog passed to it.
// Its only state is the fixed set of reserved tables, so the same request
// and catalog always yield the same verdict.
type PermissionValidator struct {
	reserved entities.ReservedTables
}

// NewPermissionValidator creates a validator. The system tables and any
// extra tables named here are never reachable through synthesized operations.
func NewPermissionValidator(reservedTables ...string) *PermissionValidator {
	return &PermissionValidator{reserved: entities.NewReservedTables(reservedTables...)}
}

// Validate checks a synthesized CRUD request
func (pv *PermissionValidator) Validate(req entities.OperationRequest, catalog entities.Catalog) Verdict {
	verb, table, ok := entities.ParseOperationName(req.Name)
	if !ok {
		return reject(entities.ErrUnknownOperation, "%s", req.Name)
	}
	if pv.reserved.Hidden(table) {
		return reject(entities.ErrUnknownOperation, "%s: no enabled data source %q", req.Name, table)
	}

	source, ok := catalog.Restrict(pv.reserved).Lookup(table)
	if !ok || !source.Exposed() {
		return reject(entities.ErrUnknownOperation, "%s: no enabled data source %q", req.Name, table)
	}
	verdict := Verdict{Verb: verb, Source: source}

	if !source.AccessLevel.Allows(verb) {
		verdict.Err = entities.Rejection(entities.ErrOperationNotAllowed, "%s: %s has %s access", req.Name, table, accessLabel(source.AccessLevel))
		return verdict
	}

	args, err := parseArguments(req.Arguments)
	if err != nil {
		verdict.Err = entities.NewOperationError(entities.KindValidationRejection, err)
		return verdict
	}
	verdict.Args = args

	if verb == entities.VerbDelete && !args.Confirm {
		verdict.Err = entities.Rejection(entities.ErrConfirmRequired, "%s requires confirm=true", req.Name)
		return verdict
	}
	if (verb == entities.VerbUpdate || verb == entities.VerbDelete) && len(args.Filters) == 0 {
		verdict.Err = entities.Rejection(entities.ErrEmptyFilters, "%s requires at least one filter", req.Name)
		return verdict
	}
	if verb == entities.VerbInsert || verb == entities.VerbUpdate {
		if len(exposedData(source, args.Data)) == 0 {
			verdict.Err = entities.Rejection(entities.ErrEmptyData, "%s requires data with at least one permitted column", req.Name)
			return verdict
		}
	}

	for _, f := range args.Filters {
		if !source.ColumnExposed(f.Column) {
			verdict.Err = entities.Rejection(entities.ErrColumnNotExposed, "filter on %s", f.Column)
			return verdict
		}
		op, ok := querybuilder.NormalizeOperator(f.Operator)
		if !ok {
			verdict.Err = entities.Rejection(entities.ErrUnknownOperator, "%q on %s", f.Operator, f.Column)
			return verdict
		}
		if querybuilder.TakesValue(op) && f.Value == nil {
			verdict.Err = entities.Rejection(entities.ErrInvalidArgument, "filter on %s requires a value", f.Column)
			return verdict
		}
	}
	for _, o := range args.Order {
		if !source.ColumnExposed(o.Column) {
			verdict.Err = entities.Rejection(entities.ErrColumnNotExposed, "order by %s", o.Column)
			return verdict
		}
		if d := strings.ToLower(o.Direction); d != "" && d != "asc" && d != "desc" {
			verdict.Err = entities.Rejection(entities.ErrInvalidArgument, "order direction %q", o.Direction)
			return verdict
		}
	}
	return verdict
}

// ValidateInsert checks that an insert supplies every permitted column the
// datastore requires. Columns hidden from the model are not demanded.
func (pv *PermissionValidator) ValidateInsert(verdict Verdict, columns []entities.ColumnDescriptor) *entities.OperationError {
	var missing []string
	for _, c := range columns {
		if !c.RequiredForInsert() || !verdict.Source.ColumnExposed(c.Name) {
			continue
		}
		if !hasValue(verdict.Args.Data, c.Name) {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		return entities.Rejection(entities.ErrMissingArgument, "insert into %s requires %s", verdict.Source.Table, strings.Join(missing, ", "))
	}
	return nil
}

func hasValue(data map[string]interface{}, column string) bool {
	for k, v := range data {
		if strings.EqualFold(k, column) && v != nil {
			return true
		}
	}
	return false
}

// ValidateSpecial applies the generic checks every privileged operation shares
func (pv *PermissionValidator) ValidateSpecial(desc entities.OperationDescriptor, args map[string]interface{}) *entities.OperationError {
	for _, name := range desc.RequiredParameters() {
		v, ok := args[name]
		if !ok || v == nil {
			return entities.Rejection(entities.ErrMissingArgument, "%s requires %s", desc.Name, name)
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			return entities.Rejection(entities.ErrMissingArgument, "%s requires %s", desc.Name, name)
		}
	}
	if desc.Destructive {
		if confirm, _ := args["confirm"].(bool); !confirm {
			return entities.Rejection(entities.ErrConfirmRequired, "%s requires confirm=true", desc.Name)
		}
	}
	return nil
}

func reject(sentinel error, format string, args ...interface{}) Verdict {
	return Verdict{Err: entities.Rejection(sentinel, format, args...)}
}

func accessLabel(level entities.AccessLevel) string {
	switch level {
	case entities.AccessRead:
		return "read-only"
	case entities.AccessReadWrite:
		return "read-write"
	default:
		return fmt.Sprintf("%q", string(level))
	}
}

// exposedData keeps only permitted columns of a data payload
func exposedData(source entities.DataSourceDescriptor, data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if source.ColumnExposed(k) {
			out[k] = v
		}
	}
	return out
}

// exposedColumns keeps only permitted column names
func exposedColumns(source entities.DataSourceDescriptor, columns []string) []string {
	var out []string
	for _, c := range columns {
		if source.ColumnExposed(c) {
			out = append(out, c)
		}
	}
	return out
}
