package special

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/domain/repositories"
)

// Theme staging operation names
const (
	OpPreviewTheme      = "preview_theme"
	OpResetThemePreview = "reset_theme_preview"
	OpSaveThemeAsNew    = "save_theme_as_new"
)

// ThemePreview is the payload the client renders. Staged tokens live
// only in the response and are never persisted.
type ThemePreview struct {
	Baseline entities.Theme    `json:"baseline"`
	Staged   map[string]string `json:"staged"`
	Preview  entities.Theme    `json:"preview"`
}

var tokensParameter = entities.Parameter{
	Name:        "tokens",
	Type:        entities.ParamObject,
	Required:    true,
	Description: "Design tokens to change, e.g. {\"color.primary\": \"#0055ff\"}",
}

// PreviewThemeOperation stages token changes over the saved baseline
type PreviewThemeOperation struct {
	themes repositories.ThemeRepository
}

// NewPreviewThemeOperation creates the preview operation
func NewPreviewThemeOperation(themes repositories.ThemeRepository) *PreviewThemeOperation {
	return &PreviewThemeOperation{themes: themes}
}

// Descriptor describes the operation
func (o *PreviewThemeOperation) Descriptor() entities.OperationDescriptor {
	return entities.OperationDescriptor{
		Name:        OpPreviewTheme,
		Kind:        entities.KindPrivileged,
		Description: "Preview design token changes in the client without saving them.",
		Scope:       entities.ScopeUI,
		Parameters:  []entities.Parameter{tokensParameter},
	}
}

// Execute merges the staged tokens over the baseline
func (o *PreviewThemeOperation) Execute(ctx context.Context, call Call) (interface{}, error) {
	tokens, err := tokensArg(call.Args)
	if err != nil {
		return nil, err
	}
	baseline, err := o.themes.Active(ctx)
	if err != nil {
		return nil, err
	}
	return ThemePreview{Baseline: baseline, Staged: tokens, Preview: baseline.Merge(tokens)}, nil
}

// ResetThemePreviewOperation discards staged tokens
type ResetThemePreviewOperation struct {
	themes repositories.ThemeRepository
}

// NewResetThemePreviewOperation creates the reset operation
func NewResetThemePreviewOperation(themes repositories.ThemeRepository) *ResetThemePreviewOperation {
	return &ResetThemePreviewOperation{themes: themes}
}

// Descriptor describes the operation
func (o *ResetThemePreviewOperation) Descriptor() entities.OperationDescriptor {
	return entities.OperationDescriptor{
		Name:        OpResetThemePreview,
		Kind:        entities.KindPrivileged,
		Description: "Discard previewed design token changes and show the saved theme again.",
		Scope:       entities.ScopeUI,
		Parameters:  []entities.Parameter{},
	}
}

// Execute returns the saved baseline with nothing staged
func (o *ResetThemePreviewOperation) Execute(ctx context.Context, _ Call) (interface{}, error) {
	baseline, err := o.themes.Active(ctx)
	if err != nil {
		return nil, err
	}
	return ThemePreview{Baseline: baseline, Staged: map[string]string{}, Preview: baseline}, nil
}

// SaveThemeAsNewOperation persists baseline plus staged tokens under a new name
type SaveThemeAsNewOperation struct {
	themes   repositories.ThemeRepository
	accounts repositories.AccountRepository
}

// NewSaveThemeAsNewOperation creates the save operation
func NewSaveThemeAsNewOperation(themes repositories.ThemeRepository, accounts repositories.AccountRepository) *SaveThemeAsNewOperation {
	return &SaveThemeAsNewOperation{themes: themes, accounts: accounts}
}

// Descriptor describes the operation
func (o *SaveThemeAsNewOperation) Descriptor() entities.OperationDescriptor {
	return entities.OperationDescriptor{
		Name:        OpSaveThemeAsNew,
		Kind:        entities.KindPrivileged,
		Description: "Save the previewed design tokens as a new theme (administrators only). Never overwrites an existing theme.",
		Scope:       entities.ScopeUI,
		AdminOnly:   true,
		Parameters: []entities.Parameter{
			{Name: "name", Type: entities.ParamString, Required: true, Description: "Name of the new theme"},
			tokensParameter,
		},
	}
}

// Execute stores the merged theme
func (o *SaveThemeAsNewOperation) Execute(ctx context.Context, call Call) (interface{}, error) {
	if _, err := RequireAdmin(ctx, o.accounts, call.Turn.ActorID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(stringArg(call.Args, "name"))
	if name == "" {
		return nil, fmt.Errorf("%w: name", entities.ErrMissingArgument)
	}
	tokens, err := tokensArg(call.Args)
	if err != nil {
		return nil, err
	}

	exists, err := o.themes.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrThemeExists, name)
	}

	baseline, err := o.themes.Active(ctx)
	if err != nil {
		return nil, err
	}
	theme := baseline.Merge(tokens)
	theme.Name = name

	if call.Turn.DryRun {
		return map[string]interface{}{"would_save": theme}, nil
	}
	if err := o.themes.Create(ctx, theme); err != nil {
		return nil, err
	}
	return map[string]interface{}{"saved": theme.Name, "theme": theme}, nil
}

// tokensArg accepts an object or its JSON text and stringifies values
func tokensArg(args map[string]interface{}) (map[string]string, error) {
	raw := args["tokens"]
	if text, ok := raw.(string); ok {
		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(text), &decoded); err != nil {
			return nil, fmt.Errorf("%w: tokens must be an object", entities.ErrInvalidArgument)
		}
		raw = decoded
	}
	obj, ok := raw.(map[string]interface{})
	if !ok || len(obj) == 0 {
		return nil, fmt.Errorf("%w: tokens", entities.ErrMissingArgument)
	}
	tokens := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			tokens[k] = val
		case nil:
			return nil, fmt.Errorf("%w: token %s has no value", entities.ErrInvalidArgument, k)
		default:
			tokens[k] = fmt.Sprint(val)
		}
	}
	return tokens, nil
}
