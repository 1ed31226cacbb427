package entities

import "strings"

// ParamType is the JSON type of an operation parameter
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
	ParamObject  ParamType = "object"
)

// Parameter describes one argument of an operation
type Parameter struct {
	Name        string      `json:"name"`
	Type        ParamType   `json:"type"`
	Description string      `json:"description,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
	Minimum     *float64    `json:"minimum,omitempty"`
	Maximum     *float64    `json:"maximum,omitempty"`
	Items       *Parameter  `json:"items,omitempty"`
	Properties  []Parameter `json:"properties,omitempty"`
}

// OperationKind distinguishes synthesized CRUD operations from privileged ones
type OperationKind string

const (
	KindData       OperationKind = "data"
	KindPrivileged OperationKind = "privileged"
)

// ToolScope narrows the published operation set for a turn
type ToolScope string

const (
	ScopeAll  ToolScope = "all"
	ScopeData ToolScope = "data"
	ScopeUI   ToolScope = "ui"
)

// OperationDescriptor is the typed, model-facing definition of an operation
type OperationDescriptor struct {
	Name        string        `json:"name"`
	Kind        OperationKind `json:"kind"`
	Verb        Verb          `json:"verb,omitempty"`
	Schema      string        `json:"schema,omitempty"`
	Table       string        `json:"table,omitempty"`
	Description string        `json:"description"`
	Parameters  []Parameter   `json:"parameters"`
	Scope       ToolScope     `json:"scope"`
	AdminOnly   bool          `json:"admin_only,omitempty"`
	Destructive bool          `json:"destructive,omitempty"`
}

// Parameter returns the named parameter
func (d OperationDescriptor) Parameter(name string) (Parameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// RequiredParameters lists the names of required parameters
func (d OperationDescriptor) RequiredParameters() []string {
	var names []string
	for _, p := range d.Parameters {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// OperationRequest is a model-issued invocation
type OperationRequest struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// OperationName builds the synthesized name for a verb and table
func OperationName(v Verb, table string) string {
	return string(v) + "_" + table
}

// ParseOperationName splits a synthesized name at the first underscore
// into its verb and table. Table names may themselves contain underscores.
func ParseOperationName(name string) (Verb, string, bool) {
	idx := strings.Index(name, "_")
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	verb, err := ParseVerb(name[:idx])
	if err != nil {
		return "", "", false
	}
	return verb, name[idx+1:], true
}

// Condition is a single filter predicate
type Condition struct {
	Column   string      `json:"column"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value,omitempty"`
}

// OrderBy is a single ordering clause
type OrderBy struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

// Arguments is the typed form of an operation's argument map
type Arguments struct {
	Filters []Condition
	Select  []string
	Order   []OrderBy
	Limit   int
	Data    map[string]interface{}
	Confirm bool
}
