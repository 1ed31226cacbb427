package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

// MockSchemaRepository is a mock implementation of the schema repository
type MockSchemaRepository struct {
	mock.Mock
}

// Columns mocks the Columns method
func (m *MockSchemaRepository) Columns(ctx context.Context, schema, table string) ([]entities.ColumnDescriptor, error) {
	args := m.Called(ctx, schema, table)
	columns, _ := args.Get(0).([]entities.ColumnDescriptor)
	return columns, args.Error(1)
}

// MockCatalogRepository is a mock implementation of the catalog repository
type MockCatalogRepository struct {
	mock.Mock
}

// ListDataSources mocks the ListDataSources method
func (m *MockCatalogRepository) ListDataSources(ctx context.Context) (entities.Catalog, error) {
	args := m.Called(ctx)
	catalog, _ := args.Get(0).(entities.Catalog)
	return catalog, args.Error(1)
}

// MockAuditRepository is a mock implementation of the audit repository
type MockAuditRepository struct {
	mock.Mock
}

// Append mocks the Append method
func (m *MockAuditRepository) Append(ctx context.Context, record entities.AuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// List mocks the List method
func (m *MockAuditRepository) List(ctx context.Context, filter entities.AuditFilter) ([]entities.AuditRecord, error) {
	args := m.Called(ctx, filter)
	records, _ := args.Get(0).([]entities.AuditRecord)
	return records, args.Error(1)
}

func strPtr(s string) *string { return &s }

var tasksColumns = []entities.ColumnDescriptor{
	{Name: "id", DataType: "integer", IsPrimaryKey: true},
	{Name: "title", DataType: "text"},
	{Name: "status", DataType: "text", Default: strPtr("'open'")},
	{Name: "notes", DataType: "text", Nullable: true},
	{Name: "secret", DataType: "text", Nullable: true},
	{Name: "created_at", DataType: "timestamp", Default: strPtr("CURRENT_TIMESTAMP")},
}

var testCatalog = entities.Catalog{
	{Table: "tasks", Schema: "main", AccessLevel: entities.AccessFull, IsEnabled: true, ExcludedColumns: []string{"secret"}, MaxRowsPerQuery: 10},
	{Table: "themes", Schema: "main", AccessLevel: entities.AccessRead, IsEnabled: true},
	{Table: "notes", Schema: "main", AccessLevel: entities.AccessReadWrite, IsEnabled: true},
	{Table: "accounts", Schema: "main", AccessLevel: entities.AccessNone, IsEnabled: true},
	{Table: "archive", Schema: "main", AccessLevel: entities.AccessFull, IsEnabled: false},
}
