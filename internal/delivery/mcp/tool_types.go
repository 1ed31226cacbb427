package mcp

import (
	"fmt"
	"strings"

	"github.com/FreePeak/cortex/pkg/tools"
	"github.com/FreePeak/cortex/pkg/types"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

// dryRunParam is added to every published tool. It is stripped before the
// arguments reach the executor.
const dryRunParam = "dry_run"

// ToolSpec is the transport-neutral shape of one MCP tool
type ToolSpec struct {
	Name        string
	Description string
	Params      []ParamSpec
}

// ParamSpec describes one tool parameter as cortex understands it
type ParamSpec struct {
	Name        string
	Kind        entities.ParamType
	Description string
	Required    bool
	Items       map[string]interface{}
}

// SpecFor converts an operation descriptor into a tool spec. Object
// parameters travel as JSON text since cortex has no object builder.
func SpecFor(name string, desc entities.OperationDescriptor) ToolSpec {
	spec := ToolSpec{
		Name:        name,
		Description: toolDescription(desc),
	}
	for _, p := range desc.Parameters {
		spec.Params = append(spec.Params, paramSpec(p))
	}
	spec.Params = append(spec.Params, ParamSpec{
		Name:        dryRunParam,
		Kind:        entities.ParamBoolean,
		Description: "Validate and preview the operation without changing any data",
	})
	return spec
}

func toolDescription(desc entities.OperationDescriptor) string {
	var b strings.Builder
	b.WriteString(desc.Description)
	if desc.AdminOnly {
		b.WriteString(" Requires an administrator.")
	}
	if desc.Destructive {
		b.WriteString(" Destructive: pass confirm=true.")
	}
	return b.String()
}

func paramSpec(p entities.Parameter) ParamSpec {
	spec := ParamSpec{
		Name:        p.Name,
		Kind:        p.Type,
		Description: paramDescription(p),
		Required:    p.Required,
	}
	switch p.Type {
	case entities.ParamObject:
		spec.Kind = entities.ParamString
		spec.Description = strings.TrimSpace(spec.Description + " (JSON object)")
	case entities.ParamInteger:
		spec.Kind = entities.ParamNumber
	case entities.ParamArray:
		spec.Items = itemsSchema(p.Items)
	}
	return spec
}

func paramDescription(p entities.Parameter) string {
	desc := p.Description
	if len(p.Enum) > 0 {
		desc = strings.TrimSpace(fmt.Sprintf("%s One of: %s.", desc, strings.Join(p.Enum, ", ")))
	}
	if p.Maximum != nil {
		desc = strings.TrimSpace(fmt.Sprintf("%s At most %g.", desc, *p.Maximum))
	}
	return desc
}

// itemsSchema renders array items as a JSON schema fragment
func itemsSchema(p *entities.Parameter) map[string]interface{} {
	if p == nil {
		return map[string]interface{}{"type": "string"}
	}
	schema := map[string]interface{}{"type": string(p.Type)}
	if p.Description != "" {
		schema["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		schema["enum"] = p.Enum
	}
	switch p.Type {
	case entities.ParamArray:
		schema["items"] = itemsSchema(p.Items)
	case entities.ParamObject:
		props := make(map[string]interface{}, len(p.Properties))
		var required []string
		for i := range p.Properties {
			prop := p.Properties[i]
			props[prop.Name] = itemsSchema(&prop)
			if prop.Required {
				required = append(required, prop.Name)
			}
		}
		schema["properties"] = props
		if len(required) > 0 {
			schema["required"] = required
		}
	}
	return schema
}

// BuildTool turns a tool spec into a cortex tool
func BuildTool(spec ToolSpec) *types.Tool {
	opts := optionList(tools.WithDescription(spec.Description))
	for _, p := range spec.Params {
		propOpts := optionList(tools.Description(p.Description))
		if p.Required {
			propOpts = append(propOpts, tools.Required())
		}
		switch p.Kind {
		case entities.ParamNumber:
			opts = append(opts, tools.WithNumber(p.Name, propOpts...))
		case entities.ParamBoolean:
			opts = append(opts, tools.WithBoolean(p.Name, propOpts...))
		case entities.ParamArray:
			propOpts = append(propOpts, tools.Items(p.Items))
			opts = append(opts, tools.WithArray(p.Name, propOpts...))
		default:
			opts = append(opts, tools.WithString(p.Name, propOpts...))
		}
	}
	return tools.NewTool(spec.Name, opts...)
}

// optionList starts a typed option slice from its first element
func optionList[T any](first T) []T {
	return []T{first}
}
