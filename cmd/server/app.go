package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/FreePeak/db-copilot/internal/config"
	"github.com/FreePeak/db-copilot/internal/infrastructure/database"
	"github.com/FreePeak/db-copilot/internal/llm"
	"github.com/FreePeak/db-copilot/internal/logger"
	"github.com/FreePeak/db-copilot/internal/router"
	"github.com/FreePeak/db-copilot/internal/usecase"
	"github.com/FreePeak/db-copilot/internal/usecase/special"
	"github.com/FreePeak/db-copilot/pkg/db"
	"github.com/FreePeak/db-copilot/pkg/querybuilder"
)

// app holds the wired components shared by every command
type app struct {
	cfg        *config.Config
	database   db.Database
	audit      *database.AuditRepository
	accounts   *database.AccountRepository
	toolset    *usecase.Toolset
	executor   *usecase.OperationExecutor
	turns      *usecase.TurnUseCase
	dispatcher *special.ClientDispatcher
	uiActions  *special.UIActionRegistry
}

// newApp connects to the datastore and wires the copilot
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	conn, err := db.NewDatabase(cfg.DBConfig.Database())
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(); err != nil {
		return nil, err
	}

	a, err := wire(ctx, cfg, conn)
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("Error closing database: %v", closeErr)
		}
		return nil, err
	}
	return a, nil
}

func wire(ctx context.Context, cfg *config.Config, conn db.Database) (*app, error) {
	if err := database.Migrate(ctx, conn, cfg.DBConfig.CatalogTable, cfg.DBConfig.AuditTable); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	catalog := database.NewCatalogRepository(conn, cfg.DBConfig.CatalogTable).WithDefaultSchema(cfg.DBConfig.Schema)
	schemas := database.NewSchemaRepository(conn)
	data := database.NewDataRepository(conn)
	audit := database.NewAuditRepository(conn, cfg.DBConfig.AuditTable)
	accounts := database.NewAccountRepository(conn)
	themes := database.NewThemeRepository(conn)

	uiActions, err := special.LoadUIActions(cfg.UIActionsFile)
	if err != nil {
		return nil, err
	}
	dispatcher := special.NewClientDispatcher()
	registry, err := special.NewRegistry(
		special.NewCreateAccountOperation(accounts),
		special.NewDeleteAccountOperation(accounts),
		special.NewSearchUIActionsOperation(uiActions),
		special.NewExecuteUIActionOperation(uiActions, dispatcher),
		special.NewPreviewThemeOperation(themes),
		special.NewResetThemePreviewOperation(themes),
		special.NewSaveThemeAsNewOperation(themes, accounts),
	)
	if err != nil {
		return nil, err
	}

	reserved := []string{cfg.DBConfig.CatalogTable, cfg.DBConfig.AuditTable}
	toolset := usecase.NewToolset(catalog, schemas, registry).WithReservedTables(reserved...)
	executor := usecase.NewOperationExecutor(catalog, schemas, data, audit, registry, querybuilder.New(conn.Dialect())).
		WithReservedTables(reserved...)

	model, err := newModel(ctx, cfg.Model)
	if err != nil {
		return nil, err
	}

	keywords, err := router.LoadKeywords(cfg.KeywordsFile)
	if err != nil {
		return nil, err
	}
	var classifier router.Classifier
	if model != nil {
		classifier = router.NewModelClassifier(model, cfg.Model.Classifier, cfg.Router.Window)
	}
	turnRouter := router.New(router.NewHeuristic(keywords), classifier, catalog, router.Config{
		Stage2Enabled:        cfg.Router.Stage2Enabled,
		ClassifierTimeout:    cfg.Router.ClassifierTimeout,
		FailClosedOnMutation: cfg.Router.FailClosedOnMutation,
	})

	turns := usecase.NewTurnUseCase(turnRouter, toolset, executor, model, usecase.TurnConfig{
		Tiers:        cfg.Model.Tiers(),
		ModelTimeout: cfg.Model.Timeout,
	}).WithClientActions(dispatcher)

	return &app{
		cfg:        cfg,
		database:   conn,
		audit:      audit,
		accounts:   accounts,
		toolset:    toolset,
		executor:   executor,
		turns:      turns,
		dispatcher: dispatcher,
		uiActions:  uiActions,
	}, nil
}

// newModel returns nil without an API key; routing then runs on the
// heuristic alone and turns needing a model fail with llm.ErrNoModel.
func newModel(ctx context.Context, cfg config.ModelConfig) (llm.Model, error) {
	model, err := llm.NewGemini(ctx, cfg.APIKey)
	if errors.Is(err, llm.ErrNoModel) {
		logger.Warn("GEMINI_API_KEY is not set, model calls are disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model, nil
}

func (a *app) close() {
	if err := a.database.Close(); err != nil {
		logger.Warn("Error closing database: %v", err)
	}
}
