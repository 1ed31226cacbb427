package repositories

import (
	"context"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

// AccountFinder loads accounts for authorization checks
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (entities.Account, error)
}

// AccountRepository manages user accounts through the privileged path.
// Profiles are created and removed by the datastore itself.
type AccountRepository interface {
	AccountFinder
	Create(ctx context.Context, account entities.NewAccount) (entities.Account, error)
	Delete(ctx context.Context, id string) error
	CreateInvitation(ctx context.Context, account entities.Account) (entities.Invitation, error)
}

// ThemeRepository stores named design-token themes
type ThemeRepository interface {
	// Active returns the currently saved baseline theme
	Active(ctx context.Context) (entities.Theme, error)
	Exists(ctx context.Context, name string) (bool, error)
	// Create stores a new theme and fails if the name is taken
	Create(ctx context.Context, theme entities.Theme) error
}
