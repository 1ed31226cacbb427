package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/llm"
	"github.com/FreePeak/db-copilot/internal/logger"
	"github.com/FreePeak/db-copilot/internal/metrics"
)

// DefaultModelTimeout bounds each model call of a turn
const DefaultModelTimeout = 30 * time.Second

const baseSystemPrompt = `You are the assistant of a business web application.
Answer in the language of the user. Use the provided functions to read or change data and to
operate the interface. Never invent data. Before deleting anything, describe what will be
deleted and only call a delete function with confirm=true after the user explicitly agreed.`

// TurnRouter picks the strategy of a turn
type TurnRouter interface {
	Route(ctx context.Context, messages []entities.Message) entities.RouterDecision
}

// OperationLister publishes the operations of a scope
type OperationLister interface {
	List(ctx context.Context, scope entities.ToolScope) ([]entities.OperationDescriptor, error)
}

// OperationRunner executes one operation request
type OperationRunner interface {
	Execute(ctx context.Context, turn entities.TurnContext, req entities.OperationRequest) entities.ExecutionResult
}

// TurnRequest is one conversational turn from the chat transport
type TurnRequest struct {
	Turn           entities.TurnContext `json:"turn"`
	Messages       []entities.Message   `json:"messages"`
	CurrentRoute   string               `json:"current_route,omitempty"`
	Screenshot     []byte               `json:"screenshot,omitempty"`
	ScreenshotMIME string               `json:"screenshot_mime,omitempty"`
}

// ClientActionSource hands out UI actions queued for a session
type ClientActionSource interface {
	Drain(sessionID string) []entities.UIActionResult
}

// TurnResponse is the outcome of a turn
type TurnResponse struct {
	Text            string                    `json:"text"`
	Decision        entities.RouterDecision   `json:"decision"`
	NeedsScreenshot bool                      `json:"needs_screenshot"`
	ToolResults     []entities.ToolResult     `json:"tool_results,omitempty"`
	States          []entities.TurnState      `json:"states"`
	ClientActions   []entities.UIActionResult `json:"client_actions,omitempty"`
}

// TurnConfig tunes turn handling
type TurnConfig struct {
	Tiers        llm.Tiers
	ModelTimeout time.Duration
}

// TurnUseCase runs a turn: route, publish tools, loop over model calls
// and operations within the step budget, and return.
type TurnUseCase struct {
	router   TurnRouter
	toolset  OperationLister
	executor OperationRunner
	model    llm.Model
	actions  ClientActionSource
	cfg      TurnConfig
}

// NewTurnUseCase creates the turn use case. model may be nil, in which
// case only routing works.
func NewTurnUseCase(router TurnRouter, toolset OperationLister, executor OperationRunner, model llm.Model, cfg TurnConfig) *TurnUseCase {
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = DefaultModelTimeout
	}
	return &TurnUseCase{router: router, toolset: toolset, executor: executor, model: model, cfg: cfg}
}

// WithClientActions attaches the queue of dispatched UI actions
func (uc *TurnUseCase) WithClientActions(src ClientActionSource) *TurnUseCase {
	uc.actions = src
	return uc
}

// Route only classifies the turn
func (uc *TurnUseCase) Route(ctx context.Context, messages []entities.Message) entities.RouterDecision {
	return uc.router.Route(ctx, messages)
}

// Handle runs a full turn
func (uc *TurnUseCase) Handle(ctx context.Context, req TurnRequest) (TurnResponse, error) {
	decision := uc.router.Route(ctx, req.Messages)
	resp := TurnResponse{Decision: decision, States: []entities.TurnState{entities.StateRouted}}

	if decision.NeedsScreenshot && len(req.Screenshot) == 0 {
		resp.NeedsScreenshot = true
		resp.States = append(resp.States, entities.StateReturned)
		return resp, nil
	}
	if uc.model == nil {
		return resp, llm.ErrNoModel
	}

	var err error
	if decision.NeedsTools {
		err = uc.toolLoop(ctx, req, &resp)
	} else {
		err = uc.answer(ctx, req, &resp)
	}
	if err != nil {
		return resp, err
	}

	if uc.actions != nil {
		resp.ClientActions = uc.actions.Drain(req.Turn.SessionID)
	}
	resp.States = append(resp.States, entities.StateReturned)
	metrics.TurnsTotal.WithLabelValues(string(decision.Tier)).Inc()
	return resp, nil
}

func (uc *TurnUseCase) answer(ctx context.Context, req TurnRequest, resp *TurnResponse) error {
	genReq := llm.GenerateRequest{
		Model:    uc.cfg.Tiers.For(resp.Decision.Tier),
		System:   uc.systemPrompt(req),
		Messages: req.Messages,
	}
	if resp.Decision.NeedsScreenshot {
		genReq.Screenshot = req.Screenshot
		genReq.ScreenshotMIME = req.ScreenshotMIME
	}
	out, err := uc.generate(ctx, genReq)
	if err != nil {
		return err
	}
	resp.Text = out.Text
	return nil
}

func (uc *TurnUseCase) toolLoop(ctx context.Context, req TurnRequest, resp *TurnResponse) error {
	ops, err := uc.toolset.List(ctx, resp.Decision.ToolScope)
	if err != nil {
		return entities.NewOperationError(entities.KindTransportFailure, err)
	}
	resp.States = append(resp.States, entities.StateToolsPublished)

	transcript := append([]entities.Message(nil), req.Messages...)
	budget := resp.Decision.StepBudget
	if budget < 1 {
		budget = 1
	}

	for step := 0; step < budget; step++ {
		genReq := llm.GenerateRequest{
			Model:    uc.cfg.Tiers.For(resp.Decision.Tier),
			System:   uc.systemPrompt(req),
			Messages: transcript,
		}
		// the last step may only answer in text
		if step < budget-1 {
			genReq.Tools = ops
		}
		out, err := uc.generate(ctx, genReq)
		if err != nil {
			return err
		}
		if len(out.ToolCalls) == 0 || genReq.Tools == nil {
			resp.Text = out.Text
			return nil
		}

		transcript = append(transcript, entities.Message{Role: entities.RoleAssistant, Content: out.Text, ToolCalls: out.ToolCalls})
		for _, call := range out.ToolCalls {
			result := uc.runOperation(ctx, req.Turn, call, resp)
			toolResult := entities.ToolResult{CallID: call.ID, Name: call.Name, Result: result}
			resp.ToolResults = append(resp.ToolResults, toolResult)
			transcript = append(transcript, entities.Message{Role: entities.RoleTool, ToolResult: &toolResult})
		}
	}
	return nil
}

func (uc *TurnUseCase) runOperation(ctx context.Context, turn entities.TurnContext, call entities.ToolCall, resp *TurnResponse) entities.ExecutionResult {
	resp.States = append(resp.States, entities.StateOperationSelected)
	logger.Info("Model selected operation %s (session %s)", call.Name, turn.SessionID)

	result := uc.executor.Execute(ctx, turn, entities.OperationRequest{Name: call.Name, Arguments: call.Arguments})
	switch {
	case result.Error != nil && (result.Error.Kind == entities.KindValidationRejection || result.Error.Kind == entities.KindAuthorizationFailure):
		resp.States = append(resp.States, entities.StateRejected)
	case result.Success:
		resp.States = append(resp.States, entities.StateValidated, entities.StateExecuted)
	default:
		resp.States = append(resp.States, entities.StateValidated, entities.StateExecutionFailed)
	}
	resp.States = append(resp.States, entities.StateAudited)
	if result.AuditError != "" {
		logger.Warn("Operation %s returned without a persisted audit record: %s", call.Name, result.AuditError)
	}
	return result
}

func (uc *TurnUseCase) generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.ModelTimeout)
	defer cancel()

	out, err := uc.model.Generate(ctx, req)
	if err != nil {
		return llm.GenerateResponse{}, entities.NewOperationError(entities.KindTransportFailure, err)
	}
	return out, nil
}

func (uc *TurnUseCase) systemPrompt(req TurnRequest) string {
	var b strings.Builder
	b.WriteString(baseSystemPrompt)
	if req.CurrentRoute != "" {
		fmt.Fprintf(&b, "\nThe user is currently on the page %s.", req.CurrentRoute)
	}
	if req.Turn.DryRun {
		b.WriteString("\nThis is a dry run: changes are previewed, not applied. Say so when reporting results.")
	}
	return b.String()
}
