// Package llm is the model invocation boundary. Callers depend on Model;
// the Gemini client is one implementation of it.
package llm

import (
	"context"
	"errors"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

// ErrNoModel is returned when no model is configured for a tier
var ErrNoModel = errors.New("no model configured")

// GenerateRequest is one model call
type GenerateRequest struct {
	Model       string
	System      string
	Messages    []entities.Message
	Tools       []entities.OperationDescriptor
	Temperature *float32
	// Screenshot is attached to the last user message when set
	Screenshot     []byte
	ScreenshotMIME string
}

// GenerateResponse is the model's answer: text, tool calls or both
type GenerateResponse struct {
	Text      string
	ToolCalls []entities.ToolCall
}

// Model generates a response for a request
type Model interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// Tiers maps each model tier to a model name
type Tiers struct {
	Chat       string
	Vision     string
	Tools      string
	Classifier string
}

// For returns the model name for a tier
func (t Tiers) For(tier entities.Tier) string {
	switch tier {
	case entities.TierVision:
		return t.Vision
	case entities.TierTools:
		return t.Tools
	default:
		return t.Chat
	}
}

// Temperature returns a pointer for GenerateRequest.Temperature
func Temperature(t float32) *float32 {
	return &t
}
