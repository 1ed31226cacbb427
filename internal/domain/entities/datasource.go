package entities

import "strings"

// DataSourceDescriptor is one administrator-configured catalog entry
type DataSourceDescriptor struct {
	ID              string      `json:"id"`
	Schema          string      `json:"schema"`
	Table           string      `json:"table"`
	DisplayName     string      `json:"display_name"`
	Description     string      `json:"description"`
	AccessLevel     AccessLevel `json:"access_level"`
	IsEnabled       bool        `json:"is_enabled"`
	AllowedColumns  []string    `json:"allowed_columns,omitempty"`
	ExcludedColumns []string    `json:"excluded_columns,omitempty"`
	MaxRowsPerQuery int         `json:"max_rows_per_query"`
}

// DefaultMaxRows applies when a catalog entry leaves max_rows_per_query unset
const DefaultMaxRows = 100

// Exposed reports whether the data source may appear in the operation set
func (d DataSourceDescriptor) Exposed() bool {
	return d.IsEnabled && d.AccessLevel != AccessNone && d.AccessLevel != ""
}

// ColumnExposed reports whether a column is visible to the model.
// The exclusion list always wins; a non-empty allow list acts as a whitelist.
func (d DataSourceDescriptor) ColumnExposed(name string) bool {
	for _, c := range d.ExcludedColumns {
		if strings.EqualFold(c, name) {
			return false
		}
	}
	if len(d.AllowedColumns) == 0 {
		return true
	}
	for _, c := range d.AllowedColumns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// RowLimit returns the effective per-query row cap
func (d DataSourceDescriptor) RowLimit() int {
	if d.MaxRowsPerQuery <= 0 {
		return DefaultMaxRows
	}
	return d.MaxRowsPerQuery
}

// Catalog is a snapshot of the capability catalog read for a single request
type Catalog []DataSourceDescriptor

// Lookup finds the enabled entry for a table name
func (c Catalog) Lookup(table string) (DataSourceDescriptor, bool) {
	for _, d := range c {
		if d.Table == table && d.IsEnabled {
			return d, true
		}
	}
	return DataSourceDescriptor{}, false
}

// Unambiguous drops every enabled entry whose table name is shared with
// another enabled entry, since operation names carry the table only.
// It returns the kept entries and the dropped table names.
func (c Catalog) Unambiguous() (Catalog, []string) {
	counts := make(map[string]int, len(c))
	for _, d := range c {
		if d.IsEnabled {
			counts[strings.ToLower(d.Table)]++
		}
	}
	var (
		kept    Catalog
		dropped []string
	)
	seen := make(map[string]bool)
	for _, d := range c {
		key := strings.ToLower(d.Table)
		if d.IsEnabled && counts[key] > 1 {
			if !seen[key] {
				seen[key] = true
				dropped = append(dropped, d.Table)
			}
			continue
		}
		kept = append(kept, d)
	}
	return kept, dropped
}

// EntityNames returns table and display names of every exposed data source
func (c Catalog) EntityNames() []string {
	var names []string
	for _, d := range c {
		if !d.Exposed() {
			continue
		}
		names = append(names, d.Table)
		if d.DisplayName != "" && !strings.EqualFold(d.DisplayName, d.Table) {
			names = append(names, d.DisplayName)
		}
	}
	return names
}

// ColumnDescriptor is the introspected shape of one column
type ColumnDescriptor struct {
	Name         string  `json:"name"`
	DataType     string  `json:"data_type"`
	Nullable     bool    `json:"nullable"`
	Default      *string `json:"default,omitempty"`
	IsPrimaryKey bool    `json:"is_primary_key"`
}

var autoGeneratedColumns = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// IsAutoGenerated reports whether the datastore fills the column itself
func (c ColumnDescriptor) IsAutoGenerated() bool {
	return c.IsPrimaryKey || autoGeneratedColumns[strings.ToLower(c.Name)]
}

// RequiredForInsert reports whether an insert must supply the column
func (c ColumnDescriptor) RequiredForInsert() bool {
	return !c.Nullable && c.Default == nil && !c.IsAutoGenerated()
}

// SystemTables back the privileged account operations. Synthesized
// operations never reach them, whatever the catalog says.
var SystemTables = []string{"accounts", "profiles", "account_invitations"}

// ReadOnlyTables are written only by privileged operations. The catalog may
// expose them for queries at most.
var ReadOnlyTables = []string{"themes"}

// TableSet is a case-insensitive set of table names
type TableSet map[string]struct{}

// NewTableSet creates a set from table names; empty names are ignored
func NewTableSet(tables ...string) TableSet {
	s := make(TableSet, len(tables))
	for _, t := range tables {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			s[t] = struct{}{}
		}
	}
	return s
}

// Contains reports whether the table is in the set
func (s TableSet) Contains(table string) bool {
	_, ok := s[strings.ToLower(table)]
	return ok
}

// ReservedTables is the part of the datastore the generic path must not
// touch regardless of catalog content
type ReservedTables struct {
	hidden   TableSet
	readOnly TableSet
}

// NewReservedTables hides the system tables plus any extra names, such as
// the configured catalog and audit tables, and caps the read-only tables
func NewReservedTables(extra ...string) ReservedTables {
	return ReservedTables{
		hidden:   NewTableSet(append(append([]string{}, SystemTables...), extra...)...),
		readOnly: NewTableSet(ReadOnlyTables...),
	}
}

// Hidden reports whether no synthesized operation may reach the table
func (r ReservedTables) Hidden(table string) bool {
	return r.hidden.Contains(table)
}

// Restrict drops hidden tables from the catalog and caps read-only tables
// at read access
func (c Catalog) Restrict(reserved ReservedTables) Catalog {
	out := make(Catalog, 0, len(c))
	for _, d := range c {
		if reserved.Hidden(d.Table) {
			continue
		}
		if reserved.readOnly.Contains(d.Table) && d.AccessLevel != AccessNone && d.AccessLevel != "" {
			d.AccessLevel = AccessRead
		}
		out = append(out, d)
	}
	return out
}
