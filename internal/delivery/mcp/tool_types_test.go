package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

func findParam(t *testing.T, spec ToolSpec, name string) ParamSpec {
	t.Helper()
	for _, p := range spec.Params {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("parameter %s not found", name)
	return ParamSpec{}
}

func TestSpecForQueryOperation(t *testing.T) {
	spec := SpecFor("query_tasks", taskOperations()[0])

	assert.Equal(t, "query_tasks", spec.Name)
	assert.Equal(t, "Read rows from Tasks.", spec.Description)

	filters := findParam(t, spec, "filters")
	assert.Equal(t, entities.ParamArray, filters.Kind)
	require.NotNil(t, filters.Items)
	assert.Equal(t, "object", filters.Items["type"])
	props, ok := filters.Items["properties"].(map[string]interface{})
	require.True(t, ok)
	column := props["column"].(map[string]interface{})
	assert.Equal(t, []string{"id", "title"}, column["enum"])
	assert.ElementsMatch(t, []string{"column", "operator"}, filters.Items["required"])

	limit := findParam(t, spec, "limit")
	assert.Equal(t, entities.ParamNumber, limit.Kind)
	assert.Contains(t, limit.Description, "At most 10")

	dryRun := findParam(t, spec, dryRunParam)
	assert.Equal(t, entities.ParamBoolean, dryRun.Kind)
	assert.False(t, dryRun.Required)
}

func TestSpecForObjectParameterTravelsAsText(t *testing.T) {
	spec := SpecFor("insert_tasks", taskOperations()[1])

	data := findParam(t, spec, "data")
	assert.Equal(t, entities.ParamString, data.Kind)
	assert.True(t, data.Required)
	assert.Equal(t, "Column values. (JSON object)", data.Description)
}

func TestSpecForPrivilegedOperation(t *testing.T) {
	spec := SpecFor("admin_delete_account", taskOperations()[2])

	assert.Contains(t, spec.Description, "Requires an administrator.")
	assert.Contains(t, spec.Description, "confirm=true")
	assert.True(t, findParam(t, spec, "confirm").Required)
}

func TestItemsSchemaDefaultsToString(t *testing.T) {
	assert.Equal(t, map[string]interface{}{"type": "string"}, itemsSchema(nil))
}

func TestBuildTool(t *testing.T) {
	for _, op := range taskOperations() {
		tool := BuildTool(SpecFor(op.Name, op))
		assert.NotNil(t, tool, op.Name)
	}
}
