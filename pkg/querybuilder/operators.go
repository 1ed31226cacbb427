package querybuilder

import "strings"

// Canonical filter operator names
const (
	OpEq      = "eq"
	OpNeq     = "neq"
	OpGt      = "gt"
	OpGte     = "gte"
	OpLt      = "lt"
	OpLte     = "lte"
	OpLike    = "like"
	OpILike   = "ilike"
	OpIn      = "in"
	OpNotIn   = "not_in"
	OpIsNull  = "is_null"
	OpNotNull = "not_null"
)

// Operators lists the canonical operator names
var Operators = []string{OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpLike, OpILike, OpIn, OpNotIn, OpIsNull, OpNotNull}

var sqlOperators = map[string]string{
	OpEq:   "=",
	OpNeq:  "<>",
	OpGt:   ">",
	OpGte:  ">=",
	OpLt:   "<",
	OpLte:  "<=",
	OpLike: "LIKE",
}

var operatorAliases = map[string]string{
	"=":           OpEq,
	"==":          OpEq,
	"!=":          OpNeq,
	"<>":          OpNeq,
	"ne":          OpNeq,
	">":           OpGt,
	">=":          OpGte,
	"<":           OpLt,
	"<=":          OpLte,
	"not in":      OpNotIn,
	"is null":     OpIsNull,
	"is not null": OpNotNull,
	"is_not_null": OpNotNull,
	"null":        OpIsNull,
}

// NormalizeOperator maps an operator or one of its symbolic aliases to its canonical name
func NormalizeOperator(op string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(op))
	if key == "" {
		return OpEq, true
	}
	if alias, ok := operatorAliases[key]; ok {
		return alias, true
	}
	for _, known := range Operators {
		if key == known {
			return known, true
		}
	}
	return "", false
}

// TakesValue reports whether the operator compares against a value
func TakesValue(op string) bool {
	return op != OpIsNull && op != OpNotNull
}
