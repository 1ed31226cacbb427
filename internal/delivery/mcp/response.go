package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

// TextContent represents a text content item in a response
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Response is a standardized response format for MCP tools
type Response struct {
	Content  []TextContent          `json:"content"`
	IsError  bool                   `json:"isError,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewResponse creates a new empty Response
func NewResponse() *Response {
	return &Response{
		Content: make([]TextContent, 0),
	}
}

// WithText adds a text content item to the response
func (r *Response) WithText(text string) *Response {
	r.Content = append(r.Content, TextContent{
		Type: "text",
		Text: text,
	})
	return r
}

// WithMetadata adds metadata to the response
func (r *Response) WithMetadata(key string, value interface{}) *Response {
	if r.Metadata == nil {
		r.Metadata = make(map[string]interface{})
	}
	r.Metadata[key] = value
	return r
}

// FromString creates a response from a string
func FromString(text string) *Response {
	return NewResponse().WithText(text)
}

// FromResult renders an execution result. Rejections and failures are
// tool-level errors: the caller sees them as content, not as a protocol error.
func FromResult(result entities.ExecutionResult) *Response {
	resp := NewResponse().
		WithMetadata("operation", result.Operation).
		WithMetadata("dry_run", result.DryRun)
	if result.AuditID != "" {
		resp.WithMetadata("audit_id", result.AuditID)
	}

	if !result.Success {
		resp.IsError = true
		if result.Error != nil {
			resp.WithMetadata("error_kind", string(result.Error.Kind))
			return resp.WithText(result.Error.Message)
		}
		return resp.WithText("operation failed")
	}

	resp.WithMetadata("row_count", result.RowCount)
	if result.Statement != "" {
		resp.WithMetadata("statement", result.Statement)
	}
	if result.Data == nil {
		return resp.WithText(fmt.Sprintf("%s succeeded", result.Operation))
	}
	return resp.WithText(toJSON(result.Data))
}

// FormatResponse converts any response type to a properly formatted MCP response
func FormatResponse(response interface{}, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}

	switch r := response.(type) {
	case nil:
		return NewResponse(), nil
	case *Response:
		return r, nil
	case entities.ExecutionResult:
		return FromResult(r), nil
	case string:
		if r == "" || r == "[]" {
			return NewResponse(), nil
		}
		return FromString(r), nil
	default:
		return FromString(toJSON(r)), nil
	}
}

func toJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
