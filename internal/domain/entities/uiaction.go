package entities

// UIAction is one entry of the UI-action registry
type UIAction struct {
	ID          string   `json:"id" yaml:"id"`
	Action      string   `json:"action" yaml:"action"`
	Target      string   `json:"target" yaml:"target"`
	Description string   `json:"description" yaml:"description"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
	Category    string   `json:"category" yaml:"category"`
}

// UIActionResult is returned by the UI-action executor
type UIActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Action  string `json:"action"`
	Target  string `json:"target"`
}
