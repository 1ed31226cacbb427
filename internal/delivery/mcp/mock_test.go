package mcp

import (
	"context"
	"errors"
	"sync"

	"github.com/FreePeak/cortex/pkg/server"
	"github.com/FreePeak/cortex/pkg/types"
	"github.com/stretchr/testify/mock"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

// MockOperationLister is a mock implementation of OperationLister
type MockOperationLister struct {
	mock.Mock
}

// List mocks the List method
func (m *MockOperationLister) List(ctx context.Context, scope entities.ToolScope) ([]entities.OperationDescriptor, error) {
	args := m.Called(ctx, scope)
	ops, _ := args.Get(0).([]entities.OperationDescriptor)
	return ops, args.Error(1)
}

// MockOperationRunner is a mock implementation of OperationRunner
type MockOperationRunner struct {
	mock.Mock
}

// Execute mocks the Execute method
func (m *MockOperationRunner) Execute(ctx context.Context, turn entities.TurnContext, req entities.OperationRequest) entities.ExecutionResult {
	args := m.Called(ctx, turn, req)
	return args.Get(0).(entities.ExecutionResult)
}

// fakeToolServer records handlers by registration order
type fakeToolServer struct {
	mu       sync.Mutex
	handlers []ToolHandler
	failOn   int
}

func (f *fakeToolServer) AddTool(_ context.Context, _ *types.Tool, handler ToolHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn > 0 && len(f.handlers)+1 == f.failOn {
		f.failOn = 0
		return errors.New("duplicate tool")
	}
	f.handlers = append(f.handlers, handler)
	return nil
}

func (f *fakeToolServer) call(t interface{ Helper() }, index int, params map[string]interface{}) (interface{}, error) {
	t.Helper()
	f.mu.Lock()
	handler := f.handlers[index]
	f.mu.Unlock()
	return handler(context.Background(), server.ToolCallRequest{Parameters: params})
}

func floatPtr(f float64) *float64 {
	return &f
}

func taskOperations() []entities.OperationDescriptor {
	return []entities.OperationDescriptor{
		{
			Name:        "query_tasks",
			Kind:        entities.KindData,
			Verb:        entities.VerbQuery,
			Table:       "tasks",
			Description: "Read rows from Tasks.",
			Scope:       entities.ScopeData,
			Parameters: []entities.Parameter{
				{
					Name: "filters",
					Type: entities.ParamArray,
					Items: &entities.Parameter{
						Type: entities.ParamObject,
						Properties: []entities.Parameter{
							{Name: "column", Type: entities.ParamString, Enum: []string{"id", "title"}, Required: true},
							{Name: "operator", Type: entities.ParamString, Required: true},
							{Name: "value", Type: entities.ParamString},
						},
					},
				},
				{Name: "limit", Type: entities.ParamInteger, Maximum: floatPtr(10)},
			},
		},
		{
			Name:        "insert_tasks",
			Kind:        entities.KindData,
			Verb:        entities.VerbInsert,
			Table:       "tasks",
			Description: "Insert a row into Tasks.",
			Scope:       entities.ScopeData,
			Parameters: []entities.Parameter{
				{Name: "data", Type: entities.ParamObject, Description: "Column values.", Required: true},
			},
		},
		{
			Name:        "admin_delete_account",
			Kind:        entities.KindPrivileged,
			Description: "Delete an account.",
			Scope:       entities.ScopeData,
			AdminOnly:   true,
			Destructive: true,
			Parameters: []entities.Parameter{
				{Name: "account_id", Type: entities.ParamString, Required: true},
				{Name: "confirm", Type: entities.ParamBoolean, Required: true},
			},
		},
	}
}
