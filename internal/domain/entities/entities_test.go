package entities

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessLevelAllows(t *testing.T) {
	tests := []struct {
		level   AccessLevel
		allowed []Verb
	}{
		{AccessNone, nil},
		{AccessRead, []Verb{VerbQuery}},
		{AccessReadWrite, []Verb{VerbQuery, VerbInsert, VerbUpdate}},
		{AccessFull, []Verb{VerbQuery, VerbInsert, VerbUpdate, VerbDelete}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			for _, v := range Verbs {
				assert.Equal(t, contains(tt.allowed, v), tt.level.Allows(v), "verb %s", v)
			}
		})
	}
}

func contains(verbs []Verb, v Verb) bool {
	for _, x := range verbs {
		if x == v {
			return true
		}
	}
	return false
}

func TestParseAccessLevel(t *testing.T) {
	assert.Equal(t, AccessRead, ParseAccessLevel("read"))
	assert.Equal(t, AccessReadWrite, ParseAccessLevel(" READ_WRITE "))
	assert.Equal(t, AccessFull, ParseAccessLevel("full"))
	assert.Equal(t, AccessNone, ParseAccessLevel("admin"))
	assert.Equal(t, AccessNone, ParseAccessLevel(""))
}

func TestParseOperationName(t *testing.T) {
	verb, table, ok := ParseOperationName("query_tasks")
	require.True(t, ok)
	assert.Equal(t, VerbQuery, verb)
	assert.Equal(t, "tasks", table)

	verb, table, ok = ParseOperationName("delete_team_members")
	require.True(t, ok)
	assert.Equal(t, VerbDelete, verb)
	assert.Equal(t, "team_members", table)

	for _, name := range []string{"", "query", "query_", "_tasks", "drop_tasks", "admin_create_account"} {
		_, _, ok = ParseOperationName(name)
		assert.False(t, ok, name)
	}
}

func TestColumnExposed(t *testing.T) {
	d := DataSourceDescriptor{ExcludedColumns: []string{"password_hash"}}
	assert.True(t, d.ColumnExposed("email"))
	assert.False(t, d.ColumnExposed("password_hash"))

	d.AllowedColumns = []string{"email", "password_hash"}
	assert.True(t, d.ColumnExposed("email"))
	assert.False(t, d.ColumnExposed("name"))
	assert.False(t, d.ColumnExposed("password_hash"), "exclusion wins over allow list")
}

func TestDataSourceExposed(t *testing.T) {
	assert.True(t, DataSourceDescriptor{IsEnabled: true, AccessLevel: AccessRead}.Exposed())
	assert.False(t, DataSourceDescriptor{IsEnabled: false, AccessLevel: AccessFull}.Exposed())
	assert.False(t, DataSourceDescriptor{IsEnabled: true, AccessLevel: AccessNone}.Exposed())
}

func TestCatalogLookupAndEntities(t *testing.T) {
	catalog := Catalog{
		{Table: "tasks", DisplayName: "Aufgaben", IsEnabled: true, AccessLevel: AccessFull},
		{Table: "secrets", IsEnabled: true, AccessLevel: AccessNone},
		{Table: "drafts", IsEnabled: false, AccessLevel: AccessRead},
	}

	_, ok := catalog.Lookup("tasks")
	assert.True(t, ok)
	_, ok = catalog.Lookup("drafts")
	assert.False(t, ok)
	assert.Equal(t, []string{"tasks", "Aufgaben"}, catalog.EntityNames())
}

func TestCatalogUnambiguous(t *testing.T) {
	catalog := Catalog{
		{Schema: "public", Table: "users", IsEnabled: true, AccessLevel: AccessRead},
		{Schema: "crm", Table: "Users", IsEnabled: true, AccessLevel: AccessFull},
		{Schema: "public", Table: "tasks", IsEnabled: true, AccessLevel: AccessRead},
		{Schema: "archive", Table: "tasks", IsEnabled: false, AccessLevel: AccessFull},
	}

	kept, dropped := catalog.Unambiguous()
	assert.Equal(t, []string{"users"}, dropped)
	require.Len(t, kept, 2)
	_, ok := kept.Lookup("users")
	assert.False(t, ok)
	source, ok := kept.Lookup("tasks")
	require.True(t, ok)
	assert.Equal(t, "public", source.Schema)
}

func TestCatalogRestrict(t *testing.T) {
	catalog := Catalog{
		{Table: "tasks", IsEnabled: true, AccessLevel: AccessFull},
		{Table: "Accounts", IsEnabled: true, AccessLevel: AccessFull},
		{Table: "profiles", IsEnabled: true, AccessLevel: AccessRead},
		{Table: "ai_audit_log", IsEnabled: true, AccessLevel: AccessRead},
		{Table: "themes", IsEnabled: true, AccessLevel: AccessFull},
		{Table: "drafts", IsEnabled: true, AccessLevel: AccessNone},
	}

	restricted := catalog.Restrict(NewReservedTables("ai_data_sources", "", "ai_audit_log"))

	require.Len(t, restricted, 3)
	for _, table := range []string{"accounts", "profiles", "ai_audit_log"} {
		_, ok := restricted.Lookup(table)
		assert.False(t, ok, table)
	}
	themes, ok := restricted.Lookup("themes")
	require.True(t, ok)
	assert.Equal(t, AccessRead, themes.AccessLevel)
	tasks, _ := restricted.Lookup("tasks")
	assert.Equal(t, AccessFull, tasks.AccessLevel)
	drafts, _ := restricted.Lookup("drafts")
	assert.Equal(t, AccessNone, drafts.AccessLevel)

	// the input catalog is left untouched
	assert.Equal(t, AccessFull, catalog[4].AccessLevel)
}

func TestReservedTablesHidden(t *testing.T) {
	reserved := NewReservedTables("ai_data_sources")
	assert.True(t, reserved.Hidden("ACCOUNT_INVITATIONS"))
	assert.True(t, reserved.Hidden("ai_data_sources"))
	assert.False(t, reserved.Hidden("themes"))
	assert.False(t, reserved.Hidden("tasks"))
	assert.False(t, ReservedTables{}.Hidden("accounts"))
}

func TestColumnRequiredForInsert(t *testing.T) {
	def := "now()"
	assert.True(t, ColumnDescriptor{Name: "title"}.RequiredForInsert())
	assert.False(t, ColumnDescriptor{Name: "title", Nullable: true}.RequiredForInsert())
	assert.False(t, ColumnDescriptor{Name: "status", Default: &def}.RequiredForInsert())
	assert.False(t, ColumnDescriptor{Name: "created_at"}.RequiredForInsert())
	assert.False(t, ColumnDescriptor{Name: "uuid", IsPrimaryKey: true}.RequiredForInsert())
}

func TestDecisionFor(t *testing.T) {
	vision := DecisionFor(IntentVision)
	assert.True(t, vision.NeedsScreenshot)
	assert.False(t, vision.NeedsTools)
	assert.Equal(t, TierVision, vision.Tier)

	ui := DecisionFor(IntentUIAction)
	assert.True(t, ui.NeedsTools)
	assert.Equal(t, 3, ui.StepBudget)
	assert.Equal(t, ScopeUI, ui.ToolScope)

	db := DecisionFor(IntentDBQuery)
	assert.Equal(t, 5, db.StepBudget)
	assert.Equal(t, ScopeData, db.ToolScope)

	chat := DecisionFor("whatever")
	assert.Equal(t, IntentChat, chat.Intent)
	assert.Equal(t, TierChat, chat.Tier)
}

func TestOperationErrorWrapping(t *testing.T) {
	err := Rejection(ErrConfirmRequired, "delete_%s", "tasks")
	assert.True(t, errors.Is(err, ErrConfirmRequired))
	assert.Equal(t, KindValidationRejection, err.Kind)
	assert.Contains(t, err.Error(), "delete_tasks")

	wrapped := AsOperationError(errors.New("db down"), KindExecutionFailure)
	assert.Equal(t, KindExecutionFailure, wrapped.Kind)
	assert.Same(t, err, AsOperationError(err, KindExecutionFailure))
	assert.Nil(t, AsOperationError(nil, KindExecutionFailure))
}

func TestThemeMerge(t *testing.T) {
	base := Theme{Name: "default", Tokens: map[string]string{"primary": "#000", "radius": "4px"}}
	merged := base.Merge(map[string]string{"primary": "#fff"})
	assert.Equal(t, "#fff", merged.Tokens["primary"])
	assert.Equal(t, "4px", merged.Tokens["radius"])
	assert.Equal(t, "#000", base.Tokens["primary"])
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindAuthorizationFailure, KindOf(ErrNotAdmin))
	assert.Equal(t, KindAuthorizationFailure, KindOf(fmt.Errorf("wrapped: %w", ErrSelfDeletion)))
	assert.Equal(t, KindValidationRejection, KindOf(ErrThemeExists))
	assert.Equal(t, KindExecutionFailure, KindOf(errors.New("disk full")))
	assert.Equal(t, KindTransportFailure, KindOf(NewOperationError(KindTransportFailure, errors.New("eof"))))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}
