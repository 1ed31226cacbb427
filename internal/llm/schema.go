package llm

import (
	"google.golang.org/genai"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

// FunctionDeclarations converts operation descriptors into function declarations
func FunctionDeclarations(ops []entities.OperationDescriptor) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(ops))
	for _, op := range ops {
		params := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(op.Parameters)),
		}
		for _, p := range op.Parameters {
			params.Properties[p.Name] = ParameterSchema(p)
			if p.Required {
				params.Required = append(params.Required, p.Name)
			}
		}
		decl := &genai.FunctionDeclaration{Name: op.Name, Description: op.Description}
		if len(params.Properties) > 0 {
			decl.Parameters = params
		}
		decls = append(decls, decl)
	}
	return decls
}

// ParameterSchema converts one parameter. Objects without declared
// properties are sent as JSON text since the API needs named properties.
func ParameterSchema(p entities.Parameter) *genai.Schema {
	s := &genai.Schema{
		Description: p.Description,
		Enum:        p.Enum,
		Minimum:     p.Minimum,
		Maximum:     p.Maximum,
	}
	switch p.Type {
	case entities.ParamInteger:
		s.Type = genai.TypeInteger
	case entities.ParamNumber:
		s.Type = genai.TypeNumber
	case entities.ParamBoolean:
		s.Type = genai.TypeBoolean
	case entities.ParamArray:
		s.Type = genai.TypeArray
		if p.Items != nil {
			s.Items = ParameterSchema(*p.Items)
		} else {
			s.Items = &genai.Schema{Type: genai.TypeString}
		}
	case entities.ParamObject:
		if len(p.Properties) == 0 {
			s.Type = genai.TypeString
			s.Description = appendNote(p.Description, "JSON object")
			break
		}
		s.Type = genai.TypeObject
		s.Properties = make(map[string]*genai.Schema, len(p.Properties))
		for _, prop := range p.Properties {
			s.Properties[prop.Name] = ParameterSchema(prop)
			if prop.Required {
				s.Required = append(s.Required, prop.Name)
			}
		}
	default:
		s.Type = genai.TypeString
	}
	return s
}

func appendNote(description, note string) string {
	if description == "" {
		return note
	}
	return description + " (" + note + ")"
}
