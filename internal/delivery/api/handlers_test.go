package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/llm"
	"github.com/FreePeak/db-copilot/internal/session"
	"github.com/FreePeak/db-copilot/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockTurnHandler struct {
	mock.Mock
}

func (m *MockTurnHandler) Handle(ctx context.Context, req usecase.TurnRequest) (usecase.TurnResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(usecase.TurnResponse), args.Error(1)
}

func (m *MockTurnHandler) Route(ctx context.Context, messages []entities.Message) entities.RouterDecision {
	args := m.Called(ctx, messages)
	return args.Get(0).(entities.RouterDecision)
}

type MockOperationLister struct {
	mock.Mock
}

func (m *MockOperationLister) List(ctx context.Context, scope entities.ToolScope) ([]entities.OperationDescriptor, error) {
	args := m.Called(ctx, scope)
	ops, _ := args.Get(0).([]entities.OperationDescriptor)
	return ops, args.Error(1)
}

type MockOperationRunner struct {
	mock.Mock
}

func (m *MockOperationRunner) Execute(ctx context.Context, turn entities.TurnContext, req entities.OperationRequest) entities.ExecutionResult {
	args := m.Called(ctx, turn, req)
	return args.Get(0).(entities.ExecutionResult)
}

type MockAuditReader struct {
	mock.Mock
}

func (m *MockAuditReader) List(ctx context.Context, filter entities.AuditFilter) ([]entities.AuditRecord, error) {
	args := m.Called(ctx, filter)
	records, _ := args.Get(0).([]entities.AuditRecord)
	return records, args.Error(1)
}

type MockAccountFinder struct {
	mock.Mock
}

func (m *MockAccountFinder) FindByID(ctx context.Context, id string) (entities.Account, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(entities.Account), args.Error(1)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

type testAPI struct {
	router *gin.Engine
	turns  *MockTurnHandler
	ops    *MockOperationLister
	runner   *MockOperationRunner
	audit    *MockAuditReader
	accounts *MockAccountFinder
}

func newTestAPI(dryRunDefault bool, health Pinger) *testAPI {
	a := &testAPI{
		turns:    new(MockTurnHandler),
		ops:      new(MockOperationLister),
		runner:   new(MockOperationRunner),
		audit:    new(MockAuditReader),
		accounts: new(MockAccountFinder),
	}
	a.accounts.On("FindByID", mock.Anything, "admin-1").Return(entities.Account{ID: "admin-1", Role: entities.RoleAdmin}, nil).Maybe()
	a.accounts.On("FindByID", mock.Anything, "user-1").Return(entities.Account{ID: "user-1", Role: entities.RoleMember}, nil).Maybe()
	a.router = NewRouter(NewHandlers(a.turns, a.ops, a.runner, a.audit, health, dryRunDefault).WithAccounts(a.accounts))
	return a
}

func (a *testAPI) do(method, path, actor string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(HeaderActorID, actor)
		req.Header.Set(HeaderSessionID, "session-1")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestHandleTurn(t *testing.T) {
	a := newTestAPI(false, nil)
	messages := []entities.Message{{Role: entities.RoleUser, Content: "Zeige alle offenen Tasks"}}
	a.turns.On("Handle", mock.Anything, mock.MatchedBy(func(req usecase.TurnRequest) bool {
		return req.Turn.ActorID == "user-1" && req.Turn.SessionID == "session-1" &&
			req.Turn.DryRun && req.CurrentRoute == "/tasks" && len(req.Messages) == 1
	})).Return(usecase.TurnResponse{
		Text:     "Es gibt 3 offene Tasks.",
		Decision: entities.DecisionFor(entities.IntentDBQuery),
	}, nil)

	w := a.do(http.MethodPost, "/v1/turns", "user-1", map[string]interface{}{
		"messages":      messages,
		"current_route": "/tasks",
		"dry_run":       true,
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp usecase.TurnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Es gibt 3 offene Tasks.", resp.Text)
	assert.Equal(t, entities.IntentDBQuery, resp.Decision.Intent)
	a.turns.AssertExpectations(t)
}

func TestHandleTurnRequiresActor(t *testing.T) {
	a := newTestAPI(false, nil)

	w := a.do(http.MethodPost, "/v1/turns", "", map[string]interface{}{
		"messages": []entities.Message{{Role: entities.RoleUser, Content: "hi"}},
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	a.turns.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestHandleTurnRejectsEmptyTranscript(t *testing.T) {
	a := newTestAPI(false, nil)

	w := a.do(http.MethodPost, "/v1/turns", "user-1", map[string]interface{}{"messages": []entities.Message{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleTurnErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no model", llm.ErrNoModel, http.StatusServiceUnavailable},
		{"transport", entities.NewOperationError(entities.KindTransportFailure, errors.New("deadline exceeded")), http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(false, nil)
			a.turns.On("Handle", mock.Anything, mock.Anything).Return(usecase.TurnResponse{}, tt.err)

			w := a.do(http.MethodPost, "/v1/turns", "user-1", map[string]interface{}{
				"messages": []entities.Message{{Role: entities.RoleUser, Content: "hi"}},
			})
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestHandleRoute(t *testing.T) {
	a := newTestAPI(false, nil)
	decision := entities.DecisionFor(entities.IntentVision)
	decision.Reason = "stage1:visual"
	a.turns.On("Route", mock.Anything, mock.Anything).Return(decision)

	w := a.do(http.MethodPost, "/v1/route", "", map[string]interface{}{
		"messages": []entities.Message{{Role: entities.RoleUser, Content: "Siehst du den Fehler?"}},
	})

	require.Equal(t, http.StatusOK, w.Code)
	var got entities.RouterDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, entities.IntentVision, got.Intent)
	assert.True(t, got.NeedsScreenshot)
	assert.False(t, got.NeedsTools)
}

func TestHandleListOperations(t *testing.T) {
	a := newTestAPI(false, nil)
	a.ops.On("List", mock.Anything, entities.ScopeUI).Return([]entities.OperationDescriptor{
		{Name: "search_ui_actions", Scope: entities.ScopeUI},
		{Name: "execute_ui_action", Scope: entities.ScopeUI},
	}, nil)

	w := a.do(http.MethodGet, "/v1/operations?scope=ui", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Operations []entities.OperationDescriptor `json:"operations"`
		Count      int                            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "search_ui_actions", body.Operations[0].Name)
}

func TestHandleListOperationsErrors(t *testing.T) {
	a := newTestAPI(false, nil)
	a.ops.On("List", mock.Anything, entities.ScopeAll).Return(nil, errors.New("catalog table missing"))

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/operations?scope=everything", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, a.do(http.MethodGet, "/v1/operations", "", nil).Code)
}

func TestHandleExecuteOperation(t *testing.T) {
	a := newTestAPI(true, nil)
	a.runner.On("Execute", mock.Anything,
		entities.TurnContext{ActorID: "user-1", SessionID: "session-1", DryRun: false},
		entities.OperationRequest{Name: "query_tasks", Arguments: map[string]interface{}{"limit": float64(2)}},
	).Return(entities.ExecutionResult{Operation: "query_tasks", Success: true, RowCount: 2})

	w := a.do(http.MethodPost, "/v1/operations/query_tasks?dry_run=false", "user-1", map[string]interface{}{"limit": 2})

	require.Equal(t, http.StatusOK, w.Code)
	var result entities.ExecutionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, int64(2), result.RowCount)
	a.runner.AssertExpectations(t)
}

func TestHandleExecuteOperationUsesDryRunDefault(t *testing.T) {
	a := newTestAPI(true, nil)
	a.runner.On("Execute", mock.Anything, mock.MatchedBy(func(turn entities.TurnContext) bool {
		return turn.DryRun
	}), mock.Anything).Return(entities.ExecutionResult{Operation: "delete_tasks", Success: true, DryRun: true})

	w := a.do(http.MethodPost, "/v1/operations/delete_tasks", "user-1", map[string]interface{}{
		"filters": []map[string]interface{}{{"column": "id", "operator": "eq", "value": 1}},
		"confirm": true,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	a.runner.AssertExpectations(t)
}

func TestHandleExecuteOperationFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    *entities.OperationError
		status int
	}{
		{"rejected", entities.Rejection(entities.ErrOperationNotAllowed, "themes is read-only"), http.StatusUnprocessableEntity},
		{"unauthorized", entities.NewOperationError(entities.KindAuthorizationFailure, entities.ErrNotAdmin), http.StatusForbidden},
		{"failed", entities.NewOperationError(entities.KindExecutionFailure, errors.New("deadlock")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(false, nil)
			a.runner.On("Execute", mock.Anything, mock.Anything, mock.Anything).
				Return(entities.Failed("insert_themes", tt.err, false))

			w := a.do(http.MethodPost, "/v1/operations/insert_themes", "user-1", map[string]interface{}{})
			assert.Equal(t, tt.status, w.Code)

			var result entities.ExecutionResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			require.NotNil(t, result.Error)
			assert.Equal(t, tt.err.Kind, result.Error.Kind)
		})
	}
}

func TestHandleExecuteOperationBadDryRun(t *testing.T) {
	a := newTestAPI(false, nil)

	w := a.do(http.MethodPost, "/v1/operations/query_tasks?dry_run=maybe", "user-1", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	a.runner.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleListAudit(t *testing.T) {
	a := newTestAPI(false, nil)
	a.audit.On("List", mock.Anything, entities.AuditFilter{ActorID: "user-1", Operation: "delete_tasks", Limit: 5}).
		Return([]entities.AuditRecord{{ID: "a1", Operation: "delete_tasks", ActorID: "user-1", Outcome: entities.OutcomeDryRun}}, nil)

	w := a.do(http.MethodGet, "/v1/audit?actor_id=user-1&operation=delete_tasks&limit=5", "admin-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"dry_run"`)
	a.audit.AssertExpectations(t)
}

func TestHandleListAuditRequiresActor(t *testing.T) {
	a := newTestAPI(false, nil)

	w := a.do(http.MethodGet, "/v1/audit?actor_id=user-1", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_ACTOR")
	a.audit.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestHandleListAuditOtherActorForbidden(t *testing.T) {
	a := newTestAPI(false, nil)

	w := a.do(http.MethodGet, "/v1/audit?actor_id=admin-1", "user-1", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")
	a.audit.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestHandleListAuditScopesNonAdminToSelf(t *testing.T) {
	a := newTestAPI(false, nil)
	a.accounts.On("FindByID", mock.Anything, "ghost").Return(entities.Account{}, entities.ErrAccountNotFound)
	a.audit.On("List", mock.Anything, entities.AuditFilter{ActorID: "user-1", Limit: defaultAuditLimit}).Return(nil, nil)
	a.audit.On("List", mock.Anything, entities.AuditFilter{ActorID: "ghost", Limit: defaultAuditLimit}).Return(nil, nil)

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/audit", "user-1", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/audit", "ghost", nil).Code)
	a.audit.AssertExpectations(t)
}

func TestHandleListAuditAccountLookupFails(t *testing.T) {
	a := newTestAPI(false, nil)
	a.accounts.On("FindByID", mock.Anything, "user-2").Return(entities.Account{}, errors.New("connection refused"))

	w := a.do(http.MethodGet, "/v1/audit", "user-2", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	a.audit.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestHandleListAuditDefaultLimit(t *testing.T) {
	a := newTestAPI(false, nil)
	a.audit.On("List", mock.Anything, entities.AuditFilter{Limit: defaultAuditLimit}).Return(nil, fmt.Errorf("no such table"))

	w := a.do(http.MethodGet, "/v1/audit?limit=-3", "admin-1", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	a.audit.AssertExpectations(t)
}

func TestHealthAndMetrics(t *testing.T) {
	healthy := newTestAPI(false, pingFunc(func(context.Context) error { return nil }))
	assert.Equal(t, http.StatusOK, healthy.do(http.MethodGet, "/healthz", "", nil).Code)

	down := newTestAPI(false, pingFunc(func(context.Context) error { return errors.New("connection refused") }))
	assert.Equal(t, http.StatusServiceUnavailable, down.do(http.MethodGet, "/healthz", "", nil).Code)

	metrics := healthy.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "go_goroutines")
}

func TestSessionsAreBoundToActor(t *testing.T) {
	a := newTestAPI(false, nil)
	sessions := session.NewManager(nil)
	handlers := NewHandlers(a.turns, a.ops, a.runner, a.audit, nil, false).WithSessions(sessions)
	a.router = NewRouter(handlers)
	a.runner.On("Execute", mock.Anything, mock.Anything, mock.Anything).
		Return(entities.ExecutionResult{Operation: "query_tasks", Success: true})

	w := a.do(http.MethodPost, "/v1/operations/query_tasks", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "session-1", w.Header().Get(HeaderSessionID))

	w = a.do(http.MethodPost, "/v1/operations/query_tasks", "user-2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	a.runner.AssertNumberOfCalls(t, "Execute", 1)

	s, err := sessions.GetSession("session-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.ActorID)
}

func TestNewSessionIDIsIssued(t *testing.T) {
	a := newTestAPI(false, nil)
	a.runner.On("Execute", mock.Anything, mock.MatchedBy(func(turn entities.TurnContext) bool {
		return turn.SessionID != ""
	}), mock.Anything).Return(entities.ExecutionResult{Operation: "query_tasks", Success: true})

	req := httptest.NewRequest(http.MethodPost, "/v1/operations/query_tasks", nil)
	req.Header.Set(HeaderActorID, "user-1")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderSessionID))
}
