package entities

// ExecutionResult is the outcome of one operation invocation
type ExecutionResult struct {
	Operation  string          `json:"operation"`
	Success    bool            `json:"success"`
	Data       interface{}     `json:"data,omitempty"`
	RowCount   int64           `json:"row_count"`
	DryRun     bool            `json:"dry_run"`
	Statement  string          `json:"statement,omitempty"`
	Error      *OperationError `json:"error,omitempty"`
	AuditID    string          `json:"audit_id,omitempty"`
	AuditError string          `json:"audit_error,omitempty"`
}

// Failed builds an unsuccessful result
func Failed(operation string, err *OperationError, dryRun bool) ExecutionResult {
	return ExecutionResult{
		Operation: operation,
		Success:   false,
		DryRun:    dryRun,
		Error:     err,
	}
}
