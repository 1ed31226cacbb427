package special

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

func TestRegistry(t *testing.T) {
	accounts := new(MockAccountRepository)
	themes := new(MockThemeRepository)
	actions := testUIActions()

	r, err := NewRegistry(
		NewCreateAccountOperation(accounts),
		NewDeleteAccountOperation(accounts),
		NewSearchUIActionsOperation(actions),
		NewExecuteUIActionOperation(actions, NewClientDispatcher()),
		NewPreviewThemeOperation(themes),
		NewResetThemePreviewOperation(themes),
		NewSaveThemeAsNewOperation(themes, accounts),
	)
	require.NoError(t, err)

	assert.True(t, r.IsReserved(OpCreateAccount))
	assert.False(t, r.IsReserved("query_users"))

	op, ok := r.Lookup(OpDeleteAccount)
	require.True(t, ok)
	assert.True(t, op.Descriptor().Destructive)

	assert.Len(t, r.Descriptors(entities.ScopeAll), 7)
	assert.Len(t, r.Descriptors(entities.ScopeData), 2)

	ui := r.Descriptors(entities.ScopeUI)
	require.Len(t, ui, 5)
	assert.Equal(t, OpSearchUIActions, ui[0].Name)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	accounts := new(MockAccountRepository)
	_, err := NewRegistry(NewCreateAccountOperation(accounts), NewCreateAccountOperation(accounts))
	assert.Error(t, err)
}

type crudNamedOperation struct{ ResetThemePreviewOperation }

func (crudNamedOperation) Descriptor() entities.OperationDescriptor {
	return entities.OperationDescriptor{Name: "delete_accounts"}
}

func TestRegistryRejectsCRUDNames(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	assert.Error(t, r.Register(&crudNamedOperation{}))
}
