package entities

// Role identifies the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model request to invoke an operation
type ToolCall struct {
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolResult carries an operation outcome back to the model
type ToolResult struct {
	CallID string          `json:"call_id,omitempty"`
	Name   string          `json:"name"`
	Result ExecutionResult `json:"result"`
}

// Message is one entry of the conversation transcript
type Message struct {
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// LastUserMessage returns the most recent user utterance
func LastUserMessage(messages []Message) (Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i], true
		}
	}
	return Message{}, false
}
