package entities

// TurnContext is the only state carried through a single turn
type TurnContext struct {
	ActorID   string `json:"actor_id"`
	SessionID string `json:"session_id"`
	DryRun    bool   `json:"dry_run"`
}

// TurnState marks progress of an operation through a turn
type TurnState string

const (
	StateRouted            TurnState = "routed"
	StateToolsPublished    TurnState = "tools_published"
	StateOperationSelected TurnState = "operation_selected"
	StateValidated         TurnState = "validated"
	StateRejected          TurnState = "rejected"
	StateExecuted          TurnState = "executed"
	StateExecutionFailed   TurnState = "execution_failed"
	StateAudited           TurnState = "audited"
	StateReturned          TurnState = "returned"
)
