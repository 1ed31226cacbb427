package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/logger"
)

const defaultScreenshotMIME = "image/png"

// Gemini calls Google's Gemini models through the genai SDK
type Gemini struct {
	client *genai.Client
}

// NewGemini creates a Gemini-backed model
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is empty", ErrNoModel)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client}, nil
}

// Generate sends one request and returns its text and function calls
func (g *Gemini) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	if req.Model == "" {
		return GenerateResponse{}, ErrNoModel
	}
	contents, err := toContents(req)
	if err != nil {
		return GenerateResponse{}, err
	}

	config := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: FunctionDeclarations(req.Tools)}}
	}

	logger.Debug("Calling model %s with %d contents and %d tools", req.Model, len(contents), len(req.Tools))
	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("model %s: %w", req.Model, err)
	}

	out := GenerateResponse{Text: resp.Text()}
	for _, call := range resp.FunctionCalls() {
		id := call.ID
		if id == "" {
			id = uuid.NewString()
		}
		out.ToolCalls = append(out.ToolCalls, entities.ToolCall{ID: id, Name: call.Name, Arguments: call.Args})
	}
	return out, nil
}

// toContents converts the transcript into genai contents. Tool results
// travel as function responses in a user turn.
func toContents(req GenerateRequest) ([]*genai.Content, error) {
	lastUser := -1
	for i, m := range req.Messages {
		if m.Role == entities.RoleUser {
			lastUser = i
		}
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for i, m := range req.Messages {
		switch m.Role {
		case entities.RoleUser:
			parts := []*genai.Part{genai.NewPartFromText(m.Content)}
			if i == lastUser && len(req.Screenshot) > 0 {
				mime := req.ScreenshotMIME
				if mime == "" {
					mime = defaultScreenshotMIME
				}
				parts = append(parts, genai.NewPartFromBytes(req.Screenshot, mime))
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		case entities.RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, call := range m.ToolCalls {
				parts = append(parts, genai.NewPartFromFunctionCall(call.Name, call.Arguments))
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case entities.RoleTool:
			if m.ToolResult == nil {
				continue
			}
			response, err := resultMap(m.ToolResult.Result)
			if err != nil {
				return nil, err
			}
			part := genai.NewPartFromFunctionResponse(m.ToolResult.Name, response)
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	return contents, nil
}

func resultMap(result entities.ExecutionResult) (map[string]any, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return out, nil
}
