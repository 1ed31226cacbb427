package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/FreePeak/cortex/pkg/server"
	"github.com/FreePeak/cortex/pkg/types"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/logger"
)

// listOperationsTool is published next to the catalog operations
const listOperationsTool = "list_operations"

// ToolHandler handles a single MCP tool call
type ToolHandler func(ctx context.Context, request server.ToolCallRequest) (interface{}, error)

// ToolServer is the part of the MCP server the registry needs
type ToolServer interface {
	AddTool(ctx context.Context, tool *types.Tool, handler ToolHandler) error
}

// OperationLister lists the published operation set
type OperationLister interface {
	List(ctx context.Context, scope entities.ToolScope) ([]entities.OperationDescriptor, error)
}

// OperationRunner executes one operation request
type OperationRunner interface {
	Execute(ctx context.Context, turn entities.TurnContext, req entities.OperationRequest) entities.ExecutionResult
}

// RegistryConfig identifies MCP callers. MCP carries no end-user identity,
// so every call runs as the configured actor.
type RegistryConfig struct {
	ActorID       string
	SessionID     string
	DryRunDefault bool
	// Prefix is prepended to every published tool name
	Prefix string
}

// ToolRegistry publishes operations as MCP tools
type ToolRegistry struct {
	server   ToolServer
	lister   OperationLister
	executor OperationRunner
	cfg      RegistryConfig

	mu         sync.Mutex
	registered []string
}

// NewToolRegistry creates a new tool registry
func NewToolRegistry(srv ToolServer, lister OperationLister, executor OperationRunner, cfg RegistryConfig) *ToolRegistry {
	return &ToolRegistry{
		server:   srv,
		lister:   lister,
		executor: executor,
		cfg:      cfg,
	}
}

// RegisterAllTools publishes the current operation set. MCP clients see a
// snapshot taken here; every call is still validated against the live catalog.
func (tr *ToolRegistry) RegisterAllTools(ctx context.Context) error {
	ops, err := tr.lister.List(ctx, entities.ScopeAll)
	if err != nil {
		return fmt.Errorf("failed to list operations: %w", err)
	}
	logger.Info("Found %d operations for tool registration", len(ops))

	registrationErrors := 0
	for _, op := range ops {
		if err := tr.registerOperation(ctx, op); err != nil {
			logger.Error("Error registering tool %s: %v", op.Name, err)
			registrationErrors++
			continue
		}
		logger.Debug("Registered tool %s", tr.toolName(op.Name))
	}

	if err := tr.registerCommonTools(ctx); err != nil {
		logger.Error("Error registering %s: %v", listOperationsTool, err)
		registrationErrors++
	}

	if registrationErrors > 0 {
		return fmt.Errorf("errors occurred while registering %d tools", registrationErrors)
	}
	return nil
}

// Registered returns the published tool names in registration order
func (tr *ToolRegistry) Registered() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.registered...)
}

func (tr *ToolRegistry) registerOperation(ctx context.Context, op entities.OperationDescriptor) error {
	name := tr.toolName(op.Name)
	tool := BuildTool(SpecFor(name, op))
	return tr.addTool(ctx, name, tool, func(ctx context.Context, request server.ToolCallRequest) (interface{}, error) {
		return FormatResponse(tr.HandleCall(ctx, op.Name, request.Parameters), nil)
	})
}

// HandleCall runs one operation on behalf of the configured actor
func (tr *ToolRegistry) HandleCall(ctx context.Context, operation string, params map[string]interface{}) entities.ExecutionResult {
	dryRun := tr.cfg.DryRunDefault
	args := make(map[string]interface{}, len(params))
	for k, v := range params {
		if k == dryRunParam {
			if b, ok := v.(bool); ok {
				dryRun = b
			}
			continue
		}
		args[k] = v
	}

	turn := entities.TurnContext{
		ActorID:   tr.cfg.ActorID,
		SessionID: tr.cfg.SessionID,
		DryRun:    dryRun,
	}
	result := tr.executor.Execute(ctx, turn, entities.OperationRequest{Name: operation, Arguments: args})
	if !result.Success && result.Error != nil {
		logger.Warn("MCP call %s failed: %s", operation, result.Error.Message)
	}
	return result
}

// registerCommonTools registers tools that are not tied to a catalog entry
func (tr *ToolRegistry) registerCommonTools(ctx context.Context) error {
	name := tr.toolName(listOperationsTool)
	tool := BuildTool(ToolSpec{
		Name:        name,
		Description: "List the operations currently available, optionally narrowed to a scope",
		Params: []ParamSpec{{
			Name:        "scope",
			Kind:        entities.ParamString,
			Description: "One of: all, data, ui.",
		}},
	})
	return tr.addTool(ctx, name, tool, func(ctx context.Context, request server.ToolCallRequest) (interface{}, error) {
		scope := entities.ScopeAll
		if s, ok := request.Parameters["scope"].(string); ok && s != "" {
			scope = entities.ToolScope(strings.ToLower(s))
		}
		ops, err := tr.lister.List(ctx, scope)
		if err != nil {
			return nil, err
		}
		return FormatResponse(ops, nil)
	})
}

func (tr *ToolRegistry) addTool(ctx context.Context, name string, tool *types.Tool, handler ToolHandler) error {
	if err := tr.server.AddTool(ctx, tool, handler); err != nil {
		return err
	}
	tr.mu.Lock()
	tr.registered = append(tr.registered, name)
	tr.mu.Unlock()
	return nil
}

func (tr *ToolRegistry) toolName(operation string) string {
	return tr.cfg.Prefix + operation
}
