package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/usecase/special"
)

func newTestToolset(t *testing.T, catalog *MockCatalogRepository) *Toolset {
	t.Helper()
	schemas := new(MockSchemaRepository)
	schemas.On("Columns", mock.Anything, mock.Anything, mock.Anything).Return(tasksColumns, nil)

	actions := special.NewUIActionRegistry([]entities.UIAction{{ID: "open_settings", Action: "navigate", Target: "/settings"}})
	registry, err := special.NewRegistry(
		special.NewDeleteAccountOperation(nil),
		special.NewSearchUIActionsOperation(actions),
		special.NewExecuteUIActionOperation(actions, special.NewClientDispatcher()),
	)
	require.NoError(t, err)
	return NewToolset(catalog, schemas, registry)
}

func names(ops []entities.OperationDescriptor) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.Name)
	}
	return out
}

func TestToolsetListScopes(t *testing.T) {
	catalog := new(MockCatalogRepository)
	catalog.On("ListDataSources", mock.Anything).Return(entities.Catalog{testCatalog[1]}, nil)
	toolset := newTestToolset(t, catalog)

	all, err := toolset.List(context.Background(), entities.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"query_themes", special.OpDeleteAccount, special.OpSearchUIActions, special.OpExecuteUIAction}, names(all))

	data, err := toolset.List(context.Background(), entities.ScopeData)
	require.NoError(t, err)
	assert.Equal(t, []string{"query_themes", special.OpDeleteAccount}, names(data))

	ui, err := toolset.List(context.Background(), entities.ScopeUI)
	require.NoError(t, err)
	assert.Equal(t, []string{special.OpSearchUIActions, special.OpExecuteUIAction}, names(ui))

	// the ui scope never reads the catalog
	catalog.AssertNumberOfCalls(t, "ListDataSources", 2)
}

func TestToolsetReadsCatalogEveryCall(t *testing.T) {
	catalog := new(MockCatalogRepository)
	catalog.On("ListDataSources", mock.Anything).Return(entities.Catalog{testCatalog[1]}, nil).Once()
	catalog.On("ListDataSources", mock.Anything).Return(entities.Catalog{}, nil).Once()
	toolset := newTestToolset(t, catalog)

	first, err := toolset.List(context.Background(), entities.ScopeData)
	require.NoError(t, err)
	assert.Contains(t, names(first), "query_themes")

	second, err := toolset.List(context.Background(), entities.ScopeData)
	require.NoError(t, err)
	assert.NotContains(t, names(second), "query_themes")
}

func TestToolsetCatalogError(t *testing.T) {
	catalog := new(MockCatalogRepository)
	catalog.On("ListDataSources", mock.Anything).Return(nil, errors.New("down"))
	toolset := newTestToolset(t, catalog)

	_, err := toolset.List(context.Background(), entities.ScopeData)
	assert.Error(t, err)

	op, found, err := toolset.Find(context.Background(), special.OpExecuteUIAction)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, entities.ScopeUI, op.Scope)
}
