package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/domain/repositories"
	"github.com/FreePeak/db-copilot/internal/llm"
	"github.com/FreePeak/db-copilot/internal/logger"
	"github.com/FreePeak/db-copilot/internal/session"
	"github.com/FreePeak/db-copilot/internal/usecase"
	"github.com/FreePeak/db-copilot/internal/usecase/special"
)

// Identity headers. Authentication happens in front of this API; the
// gateway forwards the authenticated account id.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderSessionID = "X-Session-ID"
)

const defaultAuditLimit = 50

// TurnHandler runs conversational turns
type TurnHandler interface {
	Handle(ctx context.Context, req usecase.TurnRequest) (usecase.TurnResponse, error)
	Route(ctx context.Context, messages []entities.Message) entities.RouterDecision
}

// OperationLister lists the published operation set
type OperationLister interface {
	List(ctx context.Context, scope entities.ToolScope) ([]entities.OperationDescriptor, error)
}

// OperationRunner executes one operation request
type OperationRunner interface {
	Execute(ctx context.Context, turn entities.TurnContext, req entities.OperationRequest) entities.ExecutionResult
}

// AuditReader reads the audit log
type AuditReader interface {
	List(ctx context.Context, filter entities.AuditFilter) ([]entities.AuditRecord, error)
}

// Pinger reports datastore health
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// TurnBody is the request body of POST /v1/turns
type TurnBody struct {
	Messages       []entities.Message `json:"messages" binding:"required,min=1"`
	CurrentRoute   string             `json:"current_route"`
	Screenshot     []byte             `json:"screenshot"`
	ScreenshotMIME string             `json:"screenshot_mime"`
	DryRun         *bool              `json:"dry_run"`
}

// RouteBody is the request body of POST /v1/route
type RouteBody struct {
	Messages []entities.Message `json:"messages" binding:"required,min=1"`
}

// Handlers serves the copilot HTTP API
type Handlers struct {
	turns         TurnHandler
	operations    OperationLister
	executor      OperationRunner
	audit         AuditReader
	health        Pinger
	sessions      *session.Manager
	accounts      repositories.AccountFinder
	dryRunDefault bool
}

// NewHandlers creates the API handlers
func NewHandlers(turns TurnHandler, operations OperationLister, executor OperationRunner, audit AuditReader, health Pinger, dryRunDefault bool) *Handlers {
	return &Handlers{
		turns:         turns,
		operations:    operations,
		executor:      executor,
		audit:         audit,
		health:        health,
		dryRunDefault: dryRunDefault,
	}
}

// WithSessions binds every session id to the actor that first used it
func (h *Handlers) WithSessions(sessions *session.Manager) *Handlers {
	h.sessions = sessions
	return h
}

// WithAccounts lets administrators read every actor's audit records.
// Without it each caller sees only their own.
func (h *Handlers) WithAccounts(accounts repositories.AccountFinder) *Handlers {
	h.accounts = accounts
	return h
}

// HandleTurn handles POST /v1/turns
func (h *Handlers) HandleTurn(c *gin.Context) {
	turn, ok := h.turnContext(c, nil)
	if !ok {
		return
	}
	var body TurnBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if body.DryRun != nil {
		turn.DryRun = *body.DryRun
	}

	resp, err := h.turns.Handle(c.Request.Context(), usecase.TurnRequest{
		Turn:           turn,
		Messages:       body.Messages,
		CurrentRoute:   body.CurrentRoute,
		Screenshot:     body.Screenshot,
		ScreenshotMIME: body.ScreenshotMIME,
	})
	if err != nil {
		logger.Error("Turn for session %s failed: %v", turn.SessionID, err)
		status, code := statusFor(err)
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleRoute handles POST /v1/route
func (h *Handlers) HandleRoute(c *gin.Context) {
	var body RouteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, h.turns.Route(c.Request.Context(), body.Messages))
}

// HandleListOperations handles GET /v1/operations?scope=
func (h *Handlers) HandleListOperations(c *gin.Context) {
	scope := entities.ToolScope(strings.ToLower(c.DefaultQuery("scope", string(entities.ScopeAll))))
	switch scope {
	case entities.ScopeAll, entities.ScopeData, entities.ScopeUI:
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "scope must be one of all, data, ui", Code: "INVALID_SCOPE"})
		return
	}

	ops, err := h.operations.List(c.Request.Context(), scope)
	if err != nil {
		logger.Error("Listing operations failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "CATALOG_UNAVAILABLE"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"operations": ops, "count": len(ops)})
}

// HandleExecuteOperation handles POST /v1/operations/:name?dry_run=
func (h *Handlers) HandleExecuteOperation(c *gin.Context) {
	var dryRun *bool
	if raw := c.Query("dry_run"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "dry_run must be a boolean", Code: "INVALID_PARAMETER"})
			return
		}
		dryRun = &b
	}
	turn, ok := h.turnContext(c, dryRun)
	if !ok {
		return
	}

	args := map[string]interface{}{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&args); err != nil {
			badRequest(c, err)
			return
		}
	}

	result := h.executor.Execute(c.Request.Context(), turn, entities.OperationRequest{
		Name:      c.Param("name"),
		Arguments: args,
	})
	status := http.StatusOK
	if !result.Success && result.Error != nil {
		status, _ = statusFor(result.Error)
	}
	c.JSON(status, result)
}

// HandleListAudit handles GET /v1/audit. Administrators may filter by any
// actor; everyone else reads their own records only.
func (h *Handlers) HandleListAudit(c *gin.Context) {
	actor := strings.TrimSpace(c.GetHeader(HeaderActorID))
	if actor == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: HeaderActorID + " header is required", Code: "MISSING_ACTOR"})
		return
	}

	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	filter := entities.AuditFilter{
		ActorID:   c.Query("actor_id"),
		SessionID: c.Query("session_id"),
		Operation: c.Query("operation"),
		Limit:     limit,
	}

	admin, err := h.isAdmin(c.Request.Context(), actor)
	if err != nil {
		logger.Error("Authorizing audit access for %s failed: %v", actor, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "AUDIT_UNAVAILABLE"})
		return
	}
	if !admin {
		if filter.ActorID != "" && filter.ActorID != actor {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "only administrators may read other actors' audit records", Code: "FORBIDDEN"})
			return
		}
		filter.ActorID = actor
	}

	records, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		logger.Error("Listing audit records failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "AUDIT_UNAVAILABLE"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

func (h *Handlers) isAdmin(ctx context.Context, actor string) (bool, error) {
	if h.accounts == nil {
		return false, nil
	}
	_, err := special.RequireAdmin(ctx, h.accounts, actor)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, entities.ErrNotAdmin):
		return false, nil
	default:
		return false, err
	}
}

// HandleHealth handles GET /healthz
func (h *Handlers) HandleHealth(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// turnContext reads the caller identity. A missing session id starts a
// new session.
func (h *Handlers) turnContext(c *gin.Context, dryRun *bool) (entities.TurnContext, bool) {
	actor := strings.TrimSpace(c.GetHeader(HeaderActorID))
	if actor == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: HeaderActorID + " header is required", Code: "MISSING_ACTOR"})
		return entities.TurnContext{}, false
	}
	sessionID := strings.TrimSpace(c.GetHeader(HeaderSessionID))
	if h.sessions != nil {
		s, err := h.sessions.Touch(sessionID, actor)
		if err != nil {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: "SESSION_FORBIDDEN"})
			return entities.TurnContext{}, false
		}
		sessionID = s.ID
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	c.Header(HeaderSessionID, sessionID)

	turn := entities.TurnContext{ActorID: actor, SessionID: sessionID, DryRun: h.dryRunDefault}
	if dryRun != nil {
		turn.DryRun = *dryRun
	}
	return turn, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
}

// statusFor maps an error kind to an HTTP status and code
func statusFor(err error) (int, string) {
	if errors.Is(err, llm.ErrNoModel) {
		return http.StatusServiceUnavailable, "NO_MODEL"
	}
	switch entities.KindOf(err) {
	case entities.KindValidationRejection:
		return http.StatusUnprocessableEntity, "VALIDATION_REJECTED"
	case entities.KindAuthorizationFailure:
		return http.StatusForbidden, "FORBIDDEN"
	case entities.KindTransportFailure:
		return http.StatusBadGateway, "MODEL_UNAVAILABLE"
	case entities.KindClassificationFailure:
		return http.StatusBadGateway, "CLASSIFICATION_FAILED"
	default:
		return http.StatusInternalServerError, "EXECUTION_FAILED"
	}
}
