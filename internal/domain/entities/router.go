package entities

// Intent is the classification label of a turn
type Intent string

const (
	IntentUIAction Intent = "UI_ACTION"
	IntentDBQuery  Intent = "DB_QUERY"
	IntentVision   Intent = "VISION"
	IntentChat     Intent = "CHAT"
)

// ParseIntent matches a label exactly, returning false for anything else
func ParseIntent(s string) (Intent, bool) {
	switch Intent(s) {
	case IntentUIAction, IntentDBQuery, IntentVision, IntentChat:
		return Intent(s), true
	default:
		return "", false
	}
}

// Tier is the model tier serving a turn
type Tier string

const (
	TierChat   Tier = "chat"
	TierVision Tier = "vision"
	TierTools  Tier = "tools"
)

// Stage1Rule names the heuristic rule that matched
type Stage1Rule string

const (
	RuleVisual     Stage1Rule = "visual"
	RuleNavigation Stage1Rule = "navigation"
	RuleDatastore  Stage1Rule = "datastore"
	RuleEntityVerb Stage1Rule = "entity_verb"
	RuleNone       Stage1Rule = "none"
)

// Stage1Result is the deterministic heuristic outcome
type Stage1Result struct {
	Intent  Intent     `json:"intent"`
	Rule    Stage1Rule `json:"rule"`
	Matched string     `json:"matched,omitempty"`
	// MutationLeaning is set when the utterance carries a mutating verb.
	MutationLeaning bool `json:"mutation_leaning"`
}

// Decided reports whether a heuristic rule fired
func (r Stage1Result) Decided() bool {
	return r.Rule != RuleNone && r.Rule != ""
}

// Stage2Outcome enumerates how the classifier call ended
type Stage2Outcome string

const (
	Stage2OK          Stage2Outcome = "ok"
	Stage2Error       Stage2Outcome = "error"
	Stage2Timeout     Stage2Outcome = "timeout"
	Stage2Unparseable Stage2Outcome = "unparseable"
	Stage2Skipped     Stage2Outcome = "skipped"
	Stage2Disabled    Stage2Outcome = "disabled"
)

// Stage2Result is the classifier outcome
type Stage2Result struct {
	Outcome Stage2Outcome `json:"outcome"`
	Intent  Intent        `json:"intent,omitempty"`
	Raw     string        `json:"raw,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// RouterDecision is the per-turn strategy selected by the router
type RouterDecision struct {
	Intent          Intent        `json:"intent"`
	NeedsTools      bool          `json:"needs_tools"`
	NeedsScreenshot bool          `json:"needs_screenshot"`
	Tier            Tier          `json:"tier"`
	StepBudget      int           `json:"step_budget"`
	ToolScope       ToolScope     `json:"tool_scope,omitempty"`
	Reason          string        `json:"reason"`
	Stage1          Stage1Result  `json:"stage1"`
	Stage2          *Stage2Result `json:"stage2,omitempty"`
}

// DecisionFor maps an intent onto execution parameters
func DecisionFor(intent Intent) RouterDecision {
	switch intent {
	case IntentVision:
		return RouterDecision{Intent: intent, NeedsScreenshot: true, Tier: TierVision, StepBudget: 1}
	case IntentUIAction:
		return RouterDecision{Intent: intent, NeedsTools: true, Tier: TierTools, StepBudget: 3, ToolScope: ScopeUI}
	case IntentDBQuery:
		return RouterDecision{Intent: intent, NeedsTools: true, Tier: TierTools, StepBudget: 5, ToolScope: ScopeData}
	default:
		return RouterDecision{Intent: IntentChat, Tier: TierChat, StepBudget: 1}
	}
}
