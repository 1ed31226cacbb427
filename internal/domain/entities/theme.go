package entities

// Theme is a named set of design tokens
type Theme struct {
	Name   string            `json:"name"`
	Tokens map[string]string `json:"tokens"`
}

// Merge returns a copy of the theme with overrides applied
func (t Theme) Merge(overrides map[string]string) Theme {
	tokens := make(map[string]string, len(t.Tokens)+len(overrides))
	for k, v := range t.Tokens {
		tokens[k] = v
	}
	for k, v := range overrides {
		tokens[k] = v
	}
	return Theme{Name: t.Name, Tokens: tokens}
}
