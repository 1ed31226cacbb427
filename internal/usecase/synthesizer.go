package usecase

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/domain/repositories"
	"github.com/FreePeak/db-copilot/internal/logger"
	"github.com/FreePeak/db-copilot/pkg/querybuilder"
)

const defaultIntrospectionConcurrency = 4

// ReservedNames tells the synthesizer which operation names belong to privileged operations
type ReservedNames interface {
	IsReserved(name string) bool
}

// ToolSynthesizer derives CRUD operation descriptors from the catalog and live schemas
type ToolSynthesizer struct {
	schemas     repositories.SchemaRepository
	reserved    ReservedNames
	tables      entities.ReservedTables
	concurrency int
}

// NewToolSynthesizer creates a synthesizer
func NewToolSynthesizer(schemas repositories.SchemaRepository, reserved ReservedNames) *ToolSynthesizer {
	return &ToolSynthesizer{
		schemas:     schemas,
		reserved:    reserved,
		tables:      entities.NewReservedTables(),
		concurrency: defaultIntrospectionConcurrency,
	}
}

// WithReservedTables skips the named tables in addition to the system tables
func (s *ToolSynthesizer) WithReservedTables(tables ...string) *ToolSynthesizer {
	s.tables = entities.NewReservedTables(tables...)
	return s
}

// Synthesize builds the operations for every exposed catalog entry.
// A table whose introspection fails is logged and skipped.
func (s *ToolSynthesizer) Synthesize(ctx context.Context, catalog entities.Catalog) []entities.OperationDescriptor {
	catalog = catalog.Restrict(s.tables)
	perSource := make([][]entities.OperationDescriptor, len(catalog))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, source := range catalog {
		if !source.Exposed() {
			continue
		}
		g.Go(func() error {
			columns, err := s.schemas.Columns(ctx, source.Schema, source.Table)
			if err != nil {
				logger.Warn("Skipping data source %s: %v", source.Table, err)
				return nil
			}
			perSource[i] = s.describe(source, columns)
			return nil
		})
	}
	_ = g.Wait()

	var descriptors []entities.OperationDescriptor
	for _, ops := range perSource {
		descriptors = append(descriptors, ops...)
	}
	return descriptors
}

func (s *ToolSynthesizer) describe(source entities.DataSourceDescriptor, columns []entities.ColumnDescriptor) []entities.OperationDescriptor {
	var exposed []entities.ColumnDescriptor
	for _, c := range columns {
		if source.ColumnExposed(c.Name) {
			exposed = append(exposed, c)
		}
	}
	if len(exposed) == 0 {
		logger.Warn("Skipping data source %s: no permitted columns", source.Table)
		return nil
	}

	var ops []entities.OperationDescriptor
	for _, verb := range entities.Verbs {
		if !source.AccessLevel.Allows(verb) {
			continue
		}
		name := entities.OperationName(verb, source.Table)
		if s.reserved != nil && s.reserved.IsReserved(name) {
			logger.Warn("Operation %s collides with a privileged operation and is not published", name)
			continue
		}
		desc := entities.OperationDescriptor{
			Name:        name,
			Kind:        entities.KindData,
			Verb:        verb,
			Schema:      source.Schema,
			Table:       source.Table,
			Description: describeOperation(verb, source),
			Scope:       entities.ScopeData,
			Destructive: verb == entities.VerbDelete,
		}
		switch verb {
		case entities.VerbQuery:
			desc.Parameters = queryParameters(source, exposed)
		case entities.VerbInsert:
			desc.Parameters = []entities.Parameter{dataParameter(exposed, true)}
		case entities.VerbUpdate:
			desc.Parameters = []entities.Parameter{filtersParameter(exposed, true), dataParameter(exposed, false)}
		case entities.VerbDelete:
			desc.Parameters = []entities.Parameter{
				filtersParameter(exposed, true),
				{Name: "confirm", Type: entities.ParamBoolean, Required: true, Description: "Must be true to delete the matching rows"},
			}
		}
		ops = append(ops, desc)
	}
	return ops
}

func describeOperation(verb entities.Verb, source entities.DataSourceDescriptor) string {
	label := source.Table
	if source.DisplayName != "" && source.DisplayName != source.Table {
		label = fmt.Sprintf("%s (%s)", source.DisplayName, source.Table)
	}
	var b strings.Builder
	switch verb {
	case entities.VerbQuery:
		fmt.Fprintf(&b, "Read rows from %s. Returns at most %d rows.", label, source.RowLimit())
	case entities.VerbInsert:
		fmt.Fprintf(&b, "Create one row in %s.", label)
	case entities.VerbUpdate:
		fmt.Fprintf(&b, "Update rows in %s that match the filters.", label)
	case entities.VerbDelete:
		fmt.Fprintf(&b, "Delete rows from %s that match the filters. Requires confirm=true.", label)
	}
	if source.Description != "" {
		b.WriteString(" ")
		b.WriteString(source.Description)
	}
	return b.String()
}

func columnNames(columns []entities.ColumnDescriptor) []string {
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		names = append(names, c.Name)
	}
	return names
}

func filtersParameter(columns []entities.ColumnDescriptor, required bool) entities.Parameter {
	return entities.Parameter{
		Name:        "filters",
		Type:        entities.ParamArray,
		Required:    required,
		Description: "Conditions combined with AND",
		Items: &entities.Parameter{
			Type: entities.ParamObject,
			Properties: []entities.Parameter{
				{Name: "column", Type: entities.ParamString, Required: true, Enum: columnNames(columns)},
				{Name: "operator", Type: entities.ParamString, Required: true, Enum: querybuilder.Operators},
				{Name: "value", Type: entities.ParamString, Description: "Comparison value; comma separated for in and not_in; omit for is_null and not_null"},
			},
		},
	}
}

func queryParameters(source entities.DataSourceDescriptor, columns []entities.ColumnDescriptor) []entities.Parameter {
	names := columnNames(columns)
	maxRows := float64(source.RowLimit())
	minRows := float64(1)
	return []entities.Parameter{
		filtersParameter(columns, false),
		{
			Name:        "select",
			Type:        entities.ParamArray,
			Description: "Columns to return; all permitted columns when omitted",
			Items:       &entities.Parameter{Type: entities.ParamString, Enum: names},
		},
		{
			Name:        "order",
			Type:        entities.ParamObject,
			Description: "Sort order",
			Properties: []entities.Parameter{
				{Name: "column", Type: entities.ParamString, Required: true, Enum: names},
				{Name: "direction", Type: entities.ParamString, Enum: []string{"asc", "desc"}},
			},
		},
		{
			Name:        "limit",
			Type:        entities.ParamInteger,
			Description: fmt.Sprintf("Maximum rows to return (at most %d)", source.RowLimit()),
			Minimum:     &minRows,
			Maximum:     &maxRows,
		},
	}
}

func dataParameter(columns []entities.ColumnDescriptor, forInsert bool) entities.Parameter {
	var props []entities.Parameter
	for _, c := range columns {
		if c.IsAutoGenerated() {
			continue
		}
		props = append(props, entities.Parameter{
			Name:        c.Name,
			Type:        paramTypeFor(c.DataType),
			Description: c.DataType,
			Required:    forInsert && c.RequiredForInsert(),
		})
	}
	desc := "Column values to set"
	if forInsert {
		desc = "Column values of the new row"
	}
	return entities.Parameter{
		Name:        "data",
		Type:        entities.ParamObject,
		Required:    true,
		Description: desc,
		Properties:  props,
	}
}

// paramTypeFor maps an SQL column type to a parameter type
func paramTypeFor(dataType string) entities.ParamType {
	t := strings.ToLower(dataType)
	switch {
	case strings.HasSuffix(t, "[]") || t == "array":
		return entities.ParamArray
	case strings.Contains(t, "bool") || t == "bit" || t == "tinyint(1)":
		return entities.ParamBoolean
	case strings.Contains(t, "int") || t == "serial" || t == "bigserial":
		return entities.ParamInteger
	case strings.Contains(t, "numeric") || strings.Contains(t, "decimal") ||
		strings.Contains(t, "real") || strings.Contains(t, "double") || strings.Contains(t, "float"):
		return entities.ParamNumber
	case strings.Contains(t, "json"):
		return entities.ParamObject
	default:
		return entities.ParamString
	}
}
