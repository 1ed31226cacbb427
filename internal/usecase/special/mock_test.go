package special

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

// MockAccountRepository is a mock implementation of the account repository
type MockAccountRepository struct {
	mock.Mock
}

// FindByID mocks the FindByID method
func (m *MockAccountRepository) FindByID(ctx context.Context, id string) (entities.Account, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(entities.Account), args.Error(1)
}

// Create mocks the Create method
func (m *MockAccountRepository) Create(ctx context.Context, account entities.NewAccount) (entities.Account, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(entities.Account), args.Error(1)
}

// Delete mocks the Delete method
func (m *MockAccountRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// CreateInvitation mocks the CreateInvitation method
func (m *MockAccountRepository) CreateInvitation(ctx context.Context, account entities.Account) (entities.Invitation, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(entities.Invitation), args.Error(1)
}

// MockThemeRepository is a mock implementation of the theme repository
type MockThemeRepository struct {
	mock.Mock
}

// Active mocks the Active method
func (m *MockThemeRepository) Active(ctx context.Context) (entities.Theme, error) {
	args := m.Called(ctx)
	return args.Get(0).(entities.Theme), args.Error(1)
}

// Exists mocks the Exists method
func (m *MockThemeRepository) Exists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

// Create mocks the Create method
func (m *MockThemeRepository) Create(ctx context.Context, theme entities.Theme) error {
	args := m.Called(ctx, theme)
	return args.Error(0)
}

var (
	adminAccount  = entities.Account{ID: "admin-1", Email: "admin@example.com", Role: entities.RoleAdmin}
	memberAccount = entities.Account{ID: "member-1", Email: "member@example.com", Role: entities.RoleMember}
)
