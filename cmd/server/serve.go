package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FreePeak/cortex/pkg/server"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/FreePeak/db-copilot/internal/delivery/api"
	"github.com/FreePeak/db-copilot/internal/delivery/mcp"
	"github.com/FreePeak/db-copilot/internal/logger"
	"github.com/FreePeak/db-copilot/internal/session"
	"github.com/FreePeak/db-copilot/internal/usecase/special"
)

const (
	shutdownTimeout = 5 * time.Second
	sessionSweep    = 5 * time.Minute
	sessionMaxIdle  = 30 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP tools and the HTTP turn API",
	Long: `Serve publishes the catalog-approved operations as MCP tools over the
configured transport (stdio or sse) and serves the HTTP turn API. With
transport "http" only the HTTP API is served, on the server port.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	apiPort := cfg.APIPort
	if cfg.TransportMode == "http" {
		apiPort = cfg.ServerPort
	} else {
		mcpServer := newMCPServer(ctx, a)
		g.Go(func() error { return serveMCP(gctx, mcpServer, cfg.TransportMode, cfg.ServerPort) })
	}

	if cfg.UIActionsFile != "" {
		g.Go(func() error {
			if err := special.WatchUIActions(gctx, cfg.UIActionsFile, a.uiActions); err != nil {
				logger.Warn("UI actions will not be reloaded: %v", err)
			}
			return nil
		})
	}

	if apiPort > 0 {
		if cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		// idle sessions take their undelivered UI actions with them
		sessions := session.NewManager(func(id string) { a.dispatcher.Drain(id) })
		g.Go(func() error {
			sessions.Run(gctx, sessionSweep, sessionMaxIdle)
			return nil
		})

		handlers := api.NewHandlers(a.turns, a.toolset, a.executor, a.audit, a.database, cfg.DryRunDefault).
			WithSessions(sessions).
			WithAccounts(a.accounts)
		g.Go(func() error { return serveAPI(gctx, api.NewRouter(handlers), apiPort) })
	}

	err = g.Wait()
	logger.Info("Server stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newMCPServer creates the cortex server and publishes the operation set
func newMCPServer(ctx context.Context, a *app) *server.MCPServer {
	mcpServer := server.NewMCPServer(serverName, serverVersion, log.New(logger.Writer(), "", 0))

	if a.cfg.MCP.ActorID == "" {
		logger.Warn("MCP_ACTOR_ID is not set, privileged MCP calls will be refused")
	}
	registry := mcp.NewToolRegistry(mcp.NewServerWrapper(mcpServer), a.toolset, a.executor, mcp.RegistryConfig{
		ActorID:       a.cfg.MCP.ActorID,
		SessionID:     "mcp-" + uuid.NewString(),
		DryRunDefault: a.cfg.DryRunDefault,
		Prefix:        a.cfg.MCP.ToolPrefix,
	})
	if err := registry.RegisterAllTools(ctx); err != nil {
		// a partially registered tool set still serves the rest
		logger.Warn("Tool registration incomplete: %v", err)
	}
	logger.Info("Published %d MCP tools", len(registry.Registered()))
	return mcpServer
}

func serveMCP(ctx context.Context, mcpServer *server.MCPServer, mode string, port int) error {
	if mode == "stdio" {
		logger.Info("Serving MCP over stdio")
		errCh := make(chan error, 1)
		go func() { errCh <- mcpServer.ServeStdio() }()
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	mcpServer.SetAddress(fmt.Sprintf(":%d", port))
	logger.Info("Serving MCP over SSE on :%d", port)
	errCh := make(chan error, 1)
	go func() { errCh <- mcpServer.ServeHTTP() }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mcpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("MCP server shutdown error: %v", err)
		}
		return ctx.Err()
	}
}

func serveAPI(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down HTTP API...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP API shutdown error: %v", err)
		}
		return ctx.Err()
	}
}
