package entities

import (
	"fmt"
	"strings"
)

// AccessLevel is the administrator-assigned permission tier of a data source
type AccessLevel string

const (
	AccessNone      AccessLevel = "none"
	AccessRead      AccessLevel = "read"
	AccessReadWrite AccessLevel = "read_write"
	AccessFull      AccessLevel = "full"
)

// Verb is the CRUD action encoded in a synthesized operation name
type Verb string

const (
	VerbQuery  Verb = "query"
	VerbInsert Verb = "insert"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

// Verbs lists the CRUD verbs in synthesis order
var Verbs = []Verb{VerbQuery, VerbInsert, VerbUpdate, VerbDelete}

// ParseAccessLevel parses a stored access level, treating unknown values as none
func ParseAccessLevel(s string) AccessLevel {
	switch AccessLevel(strings.ToLower(strings.TrimSpace(s))) {
	case AccessRead:
		return AccessRead
	case AccessReadWrite:
		return AccessReadWrite
	case AccessFull:
		return AccessFull
	default:
		return AccessNone
	}
}

// Allows reports whether the access level permits the verb
func (a AccessLevel) Allows(v Verb) bool {
	switch a {
	case AccessRead:
		return v == VerbQuery
	case AccessReadWrite:
		return v == VerbQuery || v == VerbInsert || v == VerbUpdate
	case AccessFull:
		return v == VerbQuery || v == VerbInsert || v == VerbUpdate || v == VerbDelete
	default:
		return false
	}
}

// ParseVerb converts a string to a Verb
func ParseVerb(s string) (Verb, error) {
	switch Verb(s) {
	case VerbQuery, VerbInsert, VerbUpdate, VerbDelete:
		return Verb(s), nil
	default:
		return "", fmt.Errorf("unknown verb %q", s)
	}
}

// IsMutation reports whether the verb changes data
func (v Verb) IsMutation() bool {
	return v == VerbInsert || v == VerbUpdate || v == VerbDelete
}
