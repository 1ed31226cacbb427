package mcp

import (
	"context"

	"github.com/FreePeak/cortex/pkg/server"
	"github.com/FreePeak/cortex/pkg/types"

	"github.com/FreePeak/db-copilot/internal/logger"
)

// ServerWrapper adapts server.MCPServer to ToolServer
type ServerWrapper struct {
	mcpServer *server.MCPServer
}

// NewServerWrapper creates a new ServerWrapper
func NewServerWrapper(mcpServer *server.MCPServer) *ServerWrapper {
	return &ServerWrapper{
		mcpServer: mcpServer,
	}
}

// AddTool adds a tool to the server
func (sw *ServerWrapper) AddTool(ctx context.Context, tool *types.Tool, handler ToolHandler) error {
	if tool == nil {
		logger.Warn("Refusing to register a nil tool")
		return nil
	}
	logger.Debug("Adding tool: %s", tool.Name)

	return sw.mcpServer.AddTool(ctx, tool, func(ctx context.Context, request server.ToolCallRequest) (interface{}, error) {
		return handler(ctx, request)
	})
}
