package special

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/logger"
)

// UI-action operation names
const (
	OpSearchUIActions = "search_ui_actions"
	OpExecuteUIAction = "execute_ui_action"
)

const defaultUIActionMatches = 5

// Match weights
const (
	keywordWeight     = 3
	descriptionWeight = 2
	idWeight          = 1
)

//go:embed ui_actions.yaml
var defaultUIActions []byte

// UIActionRegistry is the flat list of actions exposed by the host surface
type UIActionRegistry struct {
	mu      sync.RWMutex
	actions []entities.UIAction
	byID    map[string]int
}

// LoadUIActions builds the registry from the embedded defaults, merged by
// id with the entries of an optional override file.
func LoadUIActions(path string) (*UIActionRegistry, error) {
	actions, err := readUIActions(path)
	if err != nil {
		return nil, err
	}
	r := NewUIActionRegistry(actions)
	if path != "" {
		logger.Info("Loaded %d UI actions from defaults and %s", len(r.actions), path)
	}
	return r, nil
}

// Reload re-reads the override file and swaps the registry contents. On
// error the current actions stay in place.
func (r *UIActionRegistry) Reload(path string) error {
	actions, err := readUIActions(path)
	if err != nil {
		return err
	}
	fresh := NewUIActionRegistry(actions)

	r.mu.Lock()
	r.actions, r.byID = fresh.actions, fresh.byID
	r.mu.Unlock()
	return nil
}

func readUIActions(path string) ([]entities.UIAction, error) {
	var actions []entities.UIAction
	if err := yaml.Unmarshal(defaultUIActions, &actions); err != nil {
		return nil, fmt.Errorf("failed to parse embedded ui actions: %w", err)
	}
	if path == "" {
		return actions, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ui actions file: %w", err)
	}
	var overrides []entities.UIAction
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse ui actions file %s: %w", path, err)
	}
	return append(actions, overrides...), nil
}

// NewUIActionRegistry creates a registry from a list of actions. Later
// entries replace earlier ones with the same id.
func NewUIActionRegistry(actions []entities.UIAction) *UIActionRegistry {
	r := &UIActionRegistry{byID: make(map[string]int)}
	for _, a := range actions {
		r.put(a)
	}
	return r
}

func (r *UIActionRegistry) put(a entities.UIAction) {
	if a.ID == "" {
		return
	}
	if idx, ok := r.byID[a.ID]; ok {
		r.actions[idx] = a
		return
	}
	r.byID[a.ID] = len(r.actions)
	r.actions = append(r.actions, a)
}

// All returns every action in registry order
func (r *UIActionRegistry) All() []entities.UIAction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entities.UIAction, len(r.actions))
	copy(out, r.actions)
	return out
}

// Get returns an action by id
func (r *UIActionRegistry) Get(id string) (entities.UIAction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[id]
	if !ok {
		return entities.UIAction{}, false
	}
	return r.actions[idx], true
}

// ScoredAction is a search hit
type ScoredAction struct {
	entities.UIAction
	Score int `json:"score"`
}

// Search scores every action against the query and returns the best
// matches. Each keyword found in the query scores 3, a description
// containing the query 2 and an id containing the query 1.
func (r *UIActionRegistry) Search(query string, limit int) []ScoredAction {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = defaultUIActionMatches
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var hits []ScoredAction
	for _, a := range r.actions {
		score := 0
		for _, kw := range a.Keywords {
			kw = strings.ToLower(kw)
			if kw != "" && (strings.Contains(q, kw) || strings.Contains(kw, q)) {
				score += keywordWeight
			}
		}
		if strings.Contains(strings.ToLower(a.Description), q) {
			score += descriptionWeight
		}
		if strings.Contains(strings.ToLower(a.ID), strings.ReplaceAll(q, " ", "_")) {
			score += idWeight
		}
		if score > 0 {
			hits = append(hits, ScoredAction{UIAction: a, Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// UIActionExecutor carries out a UI action on the host surface
type UIActionExecutor interface {
	Execute(ctx context.Context, sessionID string, action entities.UIAction) (entities.UIActionResult, error)
}

// ClientDispatcher queues UI actions per session for the client to apply
// when it receives the turn response.
type ClientDispatcher struct {
	mu      sync.Mutex
	pending map[string][]entities.UIActionResult
}

// NewClientDispatcher creates an empty dispatcher
func NewClientDispatcher() *ClientDispatcher {
	return &ClientDispatcher{pending: make(map[string][]entities.UIActionResult)}
}

// Execute queues the action for the session
func (d *ClientDispatcher) Execute(_ context.Context, sessionID string, action entities.UIAction) (entities.UIActionResult, error) {
	result := entities.UIActionResult{
		Success: true,
		Message: fmt.Sprintf("%s %s", action.Action, action.Target),
		Action:  action.Action,
		Target:  action.Target,
	}
	d.mu.Lock()
	d.pending[sessionID] = append(d.pending[sessionID], result)
	d.mu.Unlock()
	return result, nil
}

// Drain returns and clears the queued actions of a session
func (d *ClientDispatcher) Drain(sessionID string) []entities.UIActionResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.pending[sessionID]
	delete(d.pending, sessionID)
	return out
}

// SearchUIActionsOperation looks up UI actions by free text
type SearchUIActionsOperation struct {
	registry *UIActionRegistry
}

// NewSearchUIActionsOperation creates the search operation
func NewSearchUIActionsOperation(registry *UIActionRegistry) *SearchUIActionsOperation {
	return &SearchUIActionsOperation{registry: registry}
}

// Descriptor describes the operation
func (o *SearchUIActionsOperation) Descriptor() entities.OperationDescriptor {
	return entities.OperationDescriptor{
		Name:        OpSearchUIActions,
		Kind:        entities.KindPrivileged,
		Description: "Search the available UI actions (navigation, panels, layout) by free text.",
		Scope:       entities.ScopeUI,
		Parameters: []entities.Parameter{
			{Name: "query", Type: entities.ParamString, Required: true, Description: "What the user wants to do or open"},
			{Name: "limit", Type: entities.ParamInteger, Description: "Maximum number of matches (default 5)"},
		},
	}
}

// Execute runs the search. It has no side effects, so dry-run changes nothing.
func (o *SearchUIActionsOperation) Execute(_ context.Context, call Call) (interface{}, error) {
	limit := 0
	switch v := call.Args["limit"].(type) {
	case float64:
		limit = int(v)
	case int:
		limit = v
	}
	hits := o.registry.Search(stringArg(call.Args, "query"), limit)
	return map[string]interface{}{"matches": hits, "count": len(hits)}, nil
}

// ExecuteUIActionOperation runs one registry entry by id
type ExecuteUIActionOperation struct {
	registry *UIActionRegistry
	executor UIActionExecutor
}

// NewExecuteUIActionOperation creates the execute operation
func NewExecuteUIActionOperation(registry *UIActionRegistry, executor UIActionExecutor) *ExecuteUIActionOperation {
	return &ExecuteUIActionOperation{registry: registry, executor: executor}
}

// Descriptor describes the operation
func (o *ExecuteUIActionOperation) Descriptor() entities.OperationDescriptor {
	return entities.OperationDescriptor{
		Name:        OpExecuteUIAction,
		Kind:        entities.KindPrivileged,
		Description: "Execute a UI action by the id returned from search_ui_actions.",
		Scope:       entities.ScopeUI,
		Parameters: []entities.Parameter{
			{Name: "action_id", Type: entities.ParamString, Required: true, Description: "ID of the UI action"},
		},
	}
}

// Execute dispatches the action to the host surface
func (o *ExecuteUIActionOperation) Execute(ctx context.Context, call Call) (interface{}, error) {
	id := stringArg(call.Args, "action_id")
	action, ok := o.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrUnknownUIAction, id)
	}
	if call.Turn.DryRun {
		return entities.UIActionResult{
			Success: true,
			Message: "dry run: action not dispatched",
			Action:  action.Action,
			Target:  action.Target,
		}, nil
	}
	return o.executor.Execute(ctx, call.Turn.SessionID, action)
}
