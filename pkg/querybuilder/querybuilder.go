package querybuilder

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/FreePeak/db-copilot/pkg/db"
)

// ErrInvalidComponents is returned for components that cannot form a statement
var ErrInvalidComponents = errors.New("invalid query components")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Condition represents a WHERE condition. Conditions are joined with AND.
type Condition struct {
	Column   string      `json:"column"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// OrderBy represents an ORDER BY clause
type OrderBy struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

// QueryComponents represents the components of a SELECT
type QueryComponents struct {
	Schema  string
	Table   string
	Select  []string
	Where   []Condition
	OrderBy []OrderBy
	Limit   int
}

// InsertComponents represents a single-row INSERT
type InsertComponents struct {
	Schema    string
	Table     string
	Values    map[string]interface{}
	Returning bool
}

// UpdateComponents represents an UPDATE
type UpdateComponents struct {
	Schema    string
	Table     string
	Set       map[string]interface{}
	Where     []Condition
	Returning bool
}

// DeleteComponents represents a DELETE
type DeleteComponents struct {
	Schema    string
	Table     string
	Where     []Condition
	Returning bool
}

// Statement is a built, parameterized SQL statement
type Statement struct {
	SQL  string
	Args []interface{}
	// Preview is the same statement with literals inlined, for display only.
	Preview     string
	ReturnsRows bool
}

// Builder builds statements for one SQL dialect
type Builder struct {
	dialect db.Dialect
}

// New creates a builder for the dialect
func New(dialect db.Dialect) *Builder {
	return &Builder{dialect: dialect}
}

// Dialect returns the builder's dialect
func (b *Builder) Dialect() db.Dialect {
	return b.dialect
}

// writer accumulates the parameterized and the preview text side by side
type writer struct {
	dialect db.Dialect
	sql     strings.Builder
	preview strings.Builder
	args    []interface{}
}

func (w *writer) raw(s string) {
	w.sql.WriteString(s)
	w.preview.WriteString(s)
}

func (w *writer) bind(v interface{}) error {
	bound, err := bindValue(v)
	if err != nil {
		return err
	}
	w.args = append(w.args, bound)
	w.sql.WriteString(w.dialect.Placeholder(len(w.args)))
	w.preview.WriteString(Literal(bound))
	return nil
}

func (w *writer) statement(returnsRows bool) Statement {
	return Statement{
		SQL:         w.sql.String(),
		Args:        w.args,
		Preview:     w.preview.String(),
		ReturnsRows: returnsRows,
	}
}

// Select builds a SELECT statement
func (b *Builder) Select(c QueryComponents) (Statement, error) {
	if err := validateTable(c.Schema, c.Table); err != nil {
		return Statement{}, err
	}
	w := &writer{dialect: b.dialect}

	w.raw("SELECT ")
	if len(c.Select) == 0 {
		w.raw("*")
	} else {
		cols := make([]string, 0, len(c.Select))
		for _, col := range c.Select {
			if err := validateIdentifier(col); err != nil {
				return Statement{}, err
			}
			cols = append(cols, b.dialect.QuoteIdent(col))
		}
		w.raw(strings.Join(cols, ", "))
	}

	w.raw(" FROM ")
	w.raw(b.dialect.QualifiedTable(c.Schema, c.Table))

	if err := b.where(w, c.Where); err != nil {
		return Statement{}, err
	}

	if len(c.OrderBy) > 0 {
		orders := make([]string, 0, len(c.OrderBy))
		for _, order := range c.OrderBy {
			if err := validateIdentifier(order.Column); err != nil {
				return Statement{}, err
			}
			dir, err := normalizeDirection(order.Direction)
			if err != nil {
				return Statement{}, err
			}
			orders = append(orders, b.dialect.QuoteIdent(order.Column)+" "+dir)
		}
		w.raw(" ORDER BY ")
		w.raw(strings.Join(orders, ", "))
	}

	if c.Limit > 0 {
		w.raw(" LIMIT " + strconv.Itoa(c.Limit))
	}

	return w.statement(true), nil
}

// Insert builds an INSERT statement for one row
func (b *Builder) Insert(c InsertComponents) (Statement, error) {
	if err := validateTable(c.Schema, c.Table); err != nil {
		return Statement{}, err
	}
	if len(c.Values) == 0 {
		return Statement{}, fmt.Errorf("%w: insert requires at least one value", ErrInvalidComponents)
	}
	w := &writer{dialect: b.dialect}

	keys := sortedKeys(c.Values)
	cols := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := validateIdentifier(k); err != nil {
			return Statement{}, err
		}
		cols = append(cols, b.dialect.QuoteIdent(k))
	}

	w.raw("INSERT INTO ")
	w.raw(b.dialect.QualifiedTable(c.Schema, c.Table))
	w.raw(" (" + strings.Join(cols, ", ") + ") VALUES (")
	for i, k := range keys {
		if i > 0 {
			w.raw(", ")
		}
		if err := w.bind(c.Values[k]); err != nil {
			return Statement{}, err
		}
	}
	w.raw(")")

	returning := b.returning(w, c.Returning)
	return w.statement(returning), nil
}

// Update builds an UPDATE statement. At least one condition is mandatory.
func (b *Builder) Update(c UpdateComponents) (Statement, error) {
	if err := validateTable(c.Schema, c.Table); err != nil {
		return Statement{}, err
	}
	if len(c.Set) == 0 {
		return Statement{}, fmt.Errorf("%w: update requires at least one value", ErrInvalidComponents)
	}
	if len(c.Where) == 0 {
		return Statement{}, fmt.Errorf("%w: update requires a WHERE condition", ErrInvalidComponents)
	}
	w := &writer{dialect: b.dialect}

	w.raw("UPDATE ")
	w.raw(b.dialect.QualifiedTable(c.Schema, c.Table))
	w.raw(" SET ")
	for i, k := range sortedKeys(c.Set) {
		if err := validateIdentifier(k); err != nil {
			return Statement{}, err
		}
		if i > 0 {
			w.raw(", ")
		}
		w.raw(b.dialect.QuoteIdent(k) + " = ")
		if err := w.bind(c.Set[k]); err != nil {
			return Statement{}, err
		}
	}

	if err := b.where(w, c.Where); err != nil {
		return Statement{}, err
	}

	returning := b.returning(w, c.Returning)
	return w.statement(returning), nil
}

// Delete builds a DELETE statement. At least one condition is mandatory.
func (b *Builder) Delete(c DeleteComponents) (Statement, error) {
	if err := validateTable(c.Schema, c.Table); err != nil {
		return Statement{}, err
	}
	if len(c.Where) == 0 {
		return Statement{}, fmt.Errorf("%w: delete requires a WHERE condition", ErrInvalidComponents)
	}
	w := &writer{dialect: b.dialect}

	w.raw("DELETE FROM ")
	w.raw(b.dialect.QualifiedTable(c.Schema, c.Table))

	if err := b.where(w, c.Where); err != nil {
		return Statement{}, err
	}

	returning := b.returning(w, c.Returning)
	return w.statement(returning), nil
}

func (b *Builder) returning(w *writer, requested bool) bool {
	if !requested || !b.dialect.SupportsReturning() {
		return false
	}
	w.raw(" RETURNING *")
	return true
}

func (b *Builder) where(w *writer, conditions []Condition) error {
	if len(conditions) == 0 {
		return nil
	}
	w.raw(" WHERE ")
	for i, cond := range conditions {
		if i > 0 {
			w.raw(" AND ")
		}
		if err := b.condition(w, cond); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) condition(w *writer, cond Condition) error {
	if err := validateIdentifier(cond.Column); err != nil {
		return err
	}
	op, ok := NormalizeOperator(cond.Operator)
	if !ok {
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidComponents, cond.Operator)
	}
	col := b.dialect.QuoteIdent(cond.Column)

	switch op {
	case OpIsNull:
		w.raw(col + " IS NULL")
		return nil
	case OpNotNull:
		w.raw(col + " IS NOT NULL")
		return nil
	case OpIn, OpNotIn:
		values, ok := cond.Value.([]interface{})
		if !ok {
			if s, isStrings := cond.Value.([]string); isStrings {
				for _, v := range s {
					values = append(values, v)
				}
				ok = true
			}
		}
		if !ok || len(values) == 0 {
			return fmt.Errorf("%w: %s on %s requires a non-empty list", ErrInvalidComponents, op, cond.Column)
		}
		if op == OpIn {
			w.raw(col + " IN (")
		} else {
			w.raw(col + " NOT IN (")
		}
		for i, v := range values {
			if i > 0 {
				w.raw(", ")
			}
			if err := w.bind(v); err != nil {
				return err
			}
		}
		w.raw(")")
		return nil
	case OpILike:
		w.raw(col + " " + b.dialect.CaseInsensitiveLike() + " ")
	default:
		w.raw(col + " " + sqlOperators[op] + " ")
	}
	if cond.Value == nil {
		return fmt.Errorf("%w: %s on %s requires a value", ErrInvalidComponents, op, cond.Column)
	}
	return w.bind(cond.Value)
}

func validateTable(schema, table string) error {
	if err := validateIdentifier(table); err != nil {
		return err
	}
	if schema != "" {
		return validateIdentifier(schema)
	}
	return nil
}

func validateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: invalid identifier %q", ErrInvalidComponents, name)
	}
	return nil
}

func normalizeDirection(dir string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(dir)) {
	case "", "ASC":
		return "ASC", nil
	case "DESC":
		return "DESC", nil
	default:
		return "", fmt.Errorf("%w: ORDER BY direction must be ASC or DESC", ErrInvalidComponents)
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// bindValue converts structured values to their JSON text for json columns
func bindValue(v interface{}) (interface{}, error) {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidComponents, err)
		}
		return string(data), nil
	default:
		return v, nil
	}
}

// Literal renders a value as an SQL literal for previews
func Literal(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case time.Time:
		return "'" + val.Format(time.RFC3339) + "'"
	case []byte:
		return "'" + strings.ReplaceAll(string(val), "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprintf("%v", val), "'", "''") + "'"
	}
}
