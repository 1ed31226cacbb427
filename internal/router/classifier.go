package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/llm"
)

// ErrUnparseable is returned when the classifier answers with anything
// other than exactly one known label.
var ErrUnparseable = errors.New("unparseable classifier output")

// DefaultWindow is the number of trailing messages sent to the classifier
const DefaultWindow = 6

const classifierSystemPrompt = `You route messages of a business application assistant.
Read the conversation and answer with exactly one label and nothing else:
UI_ACTION - the user wants to navigate, open a page or panel, or change the interface. This includes short confirmations such as "yes please" after the assistant offered navigation.
DB_QUERY - the user wants to read, create, change or delete application data.
VISION - the user refers to something visible on their screen.
CHAT - anything else.`

// Classifier is the optional second stage
type Classifier interface {
	// Classify returns a label for the conversation and the raw model answer
	Classify(ctx context.Context, messages []entities.Message) (entities.Intent, string, error)
}

// ModelClassifier asks a fast model for a single label at temperature 0
type ModelClassifier struct {
	model     llm.Model
	modelName string
	window    int
}

// NewModelClassifier creates a classifier over a model
func NewModelClassifier(model llm.Model, modelName string, window int) *ModelClassifier {
	if window <= 0 {
		window = DefaultWindow
	}
	return &ModelClassifier{model: model, modelName: modelName, window: window}
}

// Classify formats the trailing window into a prompt and parses the label
func (c *ModelClassifier) Classify(ctx context.Context, messages []entities.Message) (entities.Intent, string, error) {
	prompt := formatWindow(messages, c.window)
	resp, err := c.model.Generate(ctx, llm.GenerateRequest{
		Model:       c.modelName,
		System:      classifierSystemPrompt,
		Messages:    []entities.Message{{Role: entities.RoleUser, Content: prompt}},
		Temperature: llm.Temperature(0),
	})
	if err != nil {
		return entities.IntentChat, "", err
	}
	intent, ok := parseLabel(resp.Text)
	if !ok {
		return entities.IntentChat, resp.Text, fmt.Errorf("%w: %q", ErrUnparseable, resp.Text)
	}
	return intent, resp.Text, nil
}

// formatWindow renders the last n user and assistant messages as a transcript
func formatWindow(messages []entities.Message, n int) string {
	var turns []entities.Message
	for _, m := range messages {
		if (m.Role == entities.RoleUser || m.Role == entities.RoleAssistant) && strings.TrimSpace(m.Content) != "" {
			turns = append(turns, m)
		}
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}

	var b strings.Builder
	b.WriteString("Conversation:\n")
	for _, m := range turns {
		speaker := "User"
		if m.Role == entities.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, strings.TrimSpace(m.Content))
	}
	b.WriteString("\nLabel:")
	return b.String()
}

// parseLabel accepts exactly one label, ignoring case, surrounding
// whitespace, quotes and a trailing period.
func parseLabel(text string) (entities.Intent, bool) {
	label := strings.Trim(strings.TrimSpace(text), "`\"'*. ")
	return entities.ParseIntent(strings.ToUpper(label))
}
