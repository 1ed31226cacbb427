package special

import (
	"context"
	"errors"
	"fmt"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/domain/repositories"
)

// RequireAdmin re-reads the actor's role from the datastore on every call.
// It fails with entities.ErrNotAdmin for anonymous, unknown and non-admin actors.
func RequireAdmin(ctx context.Context, accounts repositories.AccountFinder, actorID string) (entities.Account, error) {
	if actorID == "" {
		return entities.Account{}, fmt.Errorf("%w: anonymous actor", entities.ErrNotAdmin)
	}
	actor, err := accounts.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, entities.ErrAccountNotFound) {
			return entities.Account{}, fmt.Errorf("%w: unknown actor %s", entities.ErrNotAdmin, actorID)
		}
		return entities.Account{}, fmt.Errorf("failed to load actor: %w", err)
	}
	if !actor.IsAdmin() {
		return entities.Account{}, fmt.Errorf("%w: %s", entities.ErrNotAdmin, actorID)
	}
	return actor, nil
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func boolArg(args map[string]interface{}, key string) bool {
	b, _ := args[key].(bool)
	return b
}
