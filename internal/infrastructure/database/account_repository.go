package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/pkg/db"
)

// AccountRepository manages rows in the accounts table.
// Profiles are maintained by triggers installed with the schema.
type AccountRepository struct {
	db  db.Database
	now func() time.Time
}

// NewAccountRepository creates an account repository
func NewAccountRepository(database db.Database) *AccountRepository {
	return &AccountRepository{db: database, now: time.Now}
}

func (r *AccountRepository) ph(n int) string {
	return r.db.Dialect().Placeholder(n)
}

// FindByID loads an account, returning entities.ErrAccountNotFound when absent
func (r *AccountRepository) FindByID(ctx context.Context, id string) (entities.Account, error) {
	query := fmt.Sprintf(`SELECT id, email, display_name, role, created_at FROM accounts WHERE id = %s`, r.ph(1))
	row := r.db.QueryRow(ctx, query, id)
	if row == nil {
		return entities.Account{}, db.ErrNoDatabase
	}

	var (
		account   entities.Account
		display   sql.NullString
		role      string
		createdAt interface{}
	)
	if err := row.Scan(&account.ID, &account.Email, &display, &role, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Account{}, fmt.Errorf("%w: %s", entities.ErrAccountNotFound, id)
		}
		return entities.Account{}, fmt.Errorf("failed to load account: %w", err)
	}
	account.DisplayName = display.String
	account.Role = entities.AccountRole(role)
	account.CreatedAt = parseTime(createdAt)
	return account, nil
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, input entities.NewAccount) (entities.Account, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var exists int
	check := fmt.Sprintf(`SELECT COUNT(*) FROM accounts WHERE email = %s`, r.ph(1))
	row := r.db.QueryRow(ctx, check, email)
	if row == nil {
		return entities.Account{}, db.ErrNoDatabase
	}
	if err := row.Scan(&exists); err != nil {
		return entities.Account{}, fmt.Errorf("failed to check account email: %w", err)
	}
	if exists > 0 {
		return entities.Account{}, fmt.Errorf("%w: %s", db.ErrAlreadyExists, email)
	}

	role := input.Role
	if role == "" {
		role = entities.RoleMember
	}
	account := entities.Account{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: input.DisplayName,
		Role:        role,
		CreatedAt:   r.now().UTC(),
	}

	insert := fmt.Sprintf(`INSERT INTO accounts (id, email, password_hash, display_name, role, created_at)
		VALUES (%s, %s, %s, %s, %s, %s)`, r.ph(1), r.ph(2), r.ph(3), r.ph(4), r.ph(5), r.ph(6))
	if _, err := r.db.Exec(ctx, insert, account.ID, account.Email, input.PasswordHash,
		account.DisplayName, string(account.Role), timeArg(r.db.Dialect(), account.CreatedAt)); err != nil {
		return entities.Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// Delete removes an account; dependent rows go with it via cascades
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM accounts WHERE id = %s`, r.ph(1))
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", entities.ErrAccountNotFound, id)
	}
	return nil
}

// CreateInvitation records a pending invitation for the account
func (r *AccountRepository) CreateInvitation(ctx context.Context, account entities.Account) (entities.Invitation, error) {
	invitation := entities.Invitation{
		Token:     uuid.NewString(),
		AccountID: account.ID,
		Email:     account.Email,
		CreatedAt: r.now().UTC(),
	}
	query := fmt.Sprintf(`INSERT INTO account_invitations (token, account_id, email, created_at) VALUES (%s, %s, %s, %s)`,
		r.ph(1), r.ph(2), r.ph(3), r.ph(4))
	if _, err := r.db.Exec(ctx, query, invitation.Token, invitation.AccountID, invitation.Email,
		timeArg(r.db.Dialect(), invitation.CreatedAt)); err != nil {
		return entities.Invitation{}, fmt.Errorf("failed to create invitation: %w", err)
	}
	return invitation, nil
}
