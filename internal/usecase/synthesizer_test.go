package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

type reservedSet map[string]bool

func (r reservedSet) IsReserved(name string) bool { return r[name] }

func byName(ops []entities.OperationDescriptor) map[string]entities.OperationDescriptor {
	out := make(map[string]entities.OperationDescriptor, len(ops))
	for _, op := range ops {
		out[op.Name] = op
	}
	return out
}

func TestSynthesizeByAccessLevel(t *testing.T) {
	schemas := new(MockSchemaRepository)
	schemas.On("Columns", mock.Anything, "main", mock.Anything).Return(tasksColumns, nil)

	ops := NewToolSynthesizer(schemas, nil).Synthesize(context.Background(), testCatalog)
	names := byName(ops)

	for _, name := range []string{"query_tasks", "insert_tasks", "update_tasks", "delete_tasks", "query_themes", "query_notes", "insert_notes", "update_notes"} {
		assert.Contains(t, names, name)
	}
	for _, name := range []string{"insert_themes", "update_themes", "delete_themes", "delete_notes", "query_accounts", "query_archive"} {
		assert.NotContains(t, names, name)
	}
	assert.Len(t, ops, 8)

	// catalog order is kept
	assert.Equal(t, "query_tasks", ops[0].Name)
	schemas.AssertNotCalled(t, "Columns", mock.Anything, "main", "accounts")
	schemas.AssertNotCalled(t, "Columns", mock.Anything, "main", "archive")
}

func TestSynthesizeExcludesColumns(t *testing.T) {
	schemas := new(MockSchemaRepository)
	schemas.On("Columns", mock.Anything, "main", "tasks").Return(tasksColumns, nil)
	catalog := entities.Catalog{testCatalog[0]}

	ops := byName(NewToolSynthesizer(schemas, nil).Synthesize(context.Background(), catalog))

	query := ops["query_tasks"]
	sel, ok := query.Parameter("select")
	require.True(t, ok)
	assert.NotContains(t, sel.Items.Enum, "secret")
	assert.Contains(t, sel.Items.Enum, "title")

	limit, ok := query.Parameter("limit")
	require.True(t, ok)
	assert.Equal(t, float64(10), *limit.Maximum)

	insert := ops["insert_tasks"]
	data, ok := insert.Parameter("data")
	require.True(t, ok)
	props := map[string]entities.Parameter{}
	for _, p := range data.Properties {
		props[p.Name] = p
	}
	assert.NotContains(t, props, "secret")
	assert.NotContains(t, props, "id")
	assert.NotContains(t, props, "created_at")
	assert.True(t, props["title"].Required)
	assert.False(t, props["status"].Required)
	assert.False(t, props["notes"].Required)

	update := ops["update_tasks"]
	assert.Equal(t, []string{"filters", "data"}, update.RequiredParameters())
	updateData, _ := update.Parameter("data")
	for _, p := range updateData.Properties {
		assert.False(t, p.Required)
	}

	del := ops["delete_tasks"]
	assert.True(t, del.Destructive)
	assert.Equal(t, []string{"filters", "confirm"}, del.RequiredParameters())
}

func TestSynthesizeSkipsFailedIntrospection(t *testing.T) {
	schemas := new(MockSchemaRepository)
	schemas.On("Columns", mock.Anything, "main", "tasks").Return(nil, errors.New("permission denied"))
	schemas.On("Columns", mock.Anything, "main", "themes").Return([]entities.ColumnDescriptor{{Name: "name", DataType: "text"}}, nil)
	schemas.On("Columns", mock.Anything, "main", "notes").Return([]entities.ColumnDescriptor{{Name: "body", DataType: "text"}}, nil)

	ops := byName(NewToolSynthesizer(schemas, nil).Synthesize(context.Background(), testCatalog))
	assert.NotContains(t, ops, "query_tasks")
	assert.Contains(t, ops, "query_themes")
	assert.Contains(t, ops, "insert_notes")
}

func TestSynthesizeSkipsReservedNames(t *testing.T) {
	schemas := new(MockSchemaRepository)
	schemas.On("Columns", mock.Anything, "main", "tasks").Return(tasksColumns, nil)

	reserved := reservedSet{"delete_tasks": true}
	ops := byName(NewToolSynthesizer(schemas, reserved).Synthesize(context.Background(), entities.Catalog{testCatalog[0]}))
	assert.NotContains(t, ops, "delete_tasks")
	assert.Contains(t, ops, "query_tasks")
}

func TestSynthesizeSkipsReservedTables(t *testing.T) {
	schemas := new(MockSchemaRepository)
	schemas.On("Columns", mock.Anything, "main", mock.Anything).Return(tasksColumns, nil)
	catalog := entities.Catalog{
		{Table: "accounts", Schema: "main", AccessLevel: entities.AccessFull, IsEnabled: true},
		{Table: "account_invitations", Schema: "main", AccessLevel: entities.AccessRead, IsEnabled: true},
		{Table: "ai_audit_log", Schema: "main", AccessLevel: entities.AccessFull, IsEnabled: true},
		{Table: "themes", Schema: "main", AccessLevel: entities.AccessFull, IsEnabled: true},
	}

	ops := NewToolSynthesizer(schemas, nil).WithReservedTables("ai_audit_log").Synthesize(context.Background(), catalog)

	require.Len(t, ops, 1)
	assert.Equal(t, "query_themes", ops[0].Name)
	schemas.AssertNotCalled(t, "Columns", mock.Anything, "main", "accounts")
	schemas.AssertNotCalled(t, "Columns", mock.Anything, "main", "ai_audit_log")
}

func TestParamTypeFor(t *testing.T) {
	tests := map[string]entities.ParamType{
		"integer":          entities.ParamInteger,
		"bigint":           entities.ParamInteger,
		"boolean":          entities.ParamBoolean,
		"tinyint(1)":       entities.ParamBoolean,
		"numeric(10,2)":    entities.ParamNumber,
		"double precision": entities.ParamNumber,
		"jsonb":            entities.ParamObject,
		"text[]":           entities.ParamArray,
		"timestamp":        entities.ParamString,
		"varchar(255)":     entities.ParamString,
	}
	for dataType, expected := range tests {
		assert.Equal(t, expected, paramTypeFor(dataType), dataType)
	}
}
