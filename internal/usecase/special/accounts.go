package special

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/domain/repositories"
	"github.com/FreePeak/db-copilot/internal/logger"
)

// Privileged account operation names
const (
	OpCreateAccount = "admin_create_account"
	OpDeleteAccount = "admin_delete_account"
)

const minPasswordLength = 8

// CreateAccountOperation provisions a new account. The matching profile
// row is created by the datastore when the account is inserted.
type CreateAccountOperation struct {
	accounts repositories.AccountRepository
	validate *validator.Validate
}

// NewCreateAccountOperation creates the account provisioning operation
func NewCreateAccountOperation(accounts repositories.AccountRepository) *CreateAccountOperation {
	return &CreateAccountOperation{accounts: accounts, validate: validator.New()}
}

// Descriptor describes the operation
func (o *CreateAccountOperation) Descriptor() entities.OperationDescriptor {
	return entities.OperationDescriptor{
		Name:        OpCreateAccount,
		Kind:        entities.KindPrivileged,
		Description: "Create a user account (administrators only). Optionally sends an invitation.",
		Scope:       entities.ScopeData,
		AdminOnly:   true,
		Parameters: []entities.Parameter{
			{Name: "email", Type: entities.ParamString, Required: true, Description: "Email address of the new account"},
			{Name: "password", Type: entities.ParamString, Description: "Initial password; omit to rely on the invitation"},
			{Name: "display_name", Type: entities.ParamString, Description: "Name shown in the application"},
			{Name: "role", Type: entities.ParamString, Enum: []string{string(entities.RoleMember), string(entities.RoleAdmin)}},
			{Name: "send_invite", Type: entities.ParamBoolean, Description: "Send an invitation to the new account"},
		},
	}
}

// Execute creates the account after checking the actor is an administrator
func (o *CreateAccountOperation) Execute(ctx context.Context, call Call) (interface{}, error) {
	if _, err := RequireAdmin(ctx, o.accounts, call.Turn.ActorID); err != nil {
		return nil, err
	}

	email := strings.TrimSpace(stringArg(call.Args, "email"))
	if err := o.validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: email %q is not valid", entities.ErrInvalidArgument, email)
	}
	role := entities.AccountRole(stringArg(call.Args, "role"))
	if role == "" {
		role = entities.RoleMember
	}
	if role != entities.RoleMember && role != entities.RoleAdmin {
		return nil, fmt.Errorf("%w: role %q", entities.ErrInvalidArgument, role)
	}
	password := stringArg(call.Args, "password")
	if password != "" && len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must have at least %d characters", entities.ErrInvalidArgument, minPasswordLength)
	}
	sendInvite := boolArg(call.Args, "send_invite") || password == ""

	if call.Turn.DryRun {
		return map[string]interface{}{
			"would_create": email,
			"role":         role,
			"send_invite":  sendInvite,
		}, nil
	}

	var hash string
	if password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		hash = string(hashed)
	}

	account, err := o.accounts.Create(ctx, entities.NewAccount{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  stringArg(call.Args, "display_name"),
		Role:         role,
	})
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"account_id":      account.ID,
		"email":           account.Email,
		"role":            account.Role,
		"invitation_sent": false,
	}
	if sendInvite {
		if _, err := o.accounts.CreateInvitation(ctx, account); err != nil {
			logger.Warn("Account %s created but invitation failed: %v", account.ID, err)
		} else {
			result["invitation_sent"] = true
		}
	}
	return result, nil
}

// DeleteAccountOperation removes an account; its profile is removed by cascade
type DeleteAccountOperation struct {
	accounts repositories.AccountRepository
}

// NewDeleteAccountOperation creates the account removal operation
func NewDeleteAccountOperation(accounts repositories.AccountRepository) *DeleteAccountOperation {
	return &DeleteAccountOperation{accounts: accounts}
}

// Descriptor describes the operation
func (o *DeleteAccountOperation) Descriptor() entities.OperationDescriptor {
	return entities.OperationDescriptor{
		Name:        OpDeleteAccount,
		Kind:        entities.KindPrivileged,
		Description: "Delete a user account and its profile (administrators only). Requires confirm=true.",
		Scope:       entities.ScopeData,
		AdminOnly:   true,
		Destructive: true,
		Parameters: []entities.Parameter{
			{Name: "account_id", Type: entities.ParamString, Required: true, Description: "ID of the account to delete"},
			{Name: "confirm", Type: entities.ParamBoolean, Required: true, Description: "Must be true"},
		},
	}
}

// Execute deletes the account. Deleting one's own account is always refused.
func (o *DeleteAccountOperation) Execute(ctx context.Context, call Call) (interface{}, error) {
	target := strings.TrimSpace(stringArg(call.Args, "account_id"))
	if target != "" && target == call.Turn.ActorID {
		return nil, entities.ErrSelfDeletion
	}
	if _, err := RequireAdmin(ctx, o.accounts, call.Turn.ActorID); err != nil {
		return nil, err
	}
	if !boolArg(call.Args, "confirm") {
		return nil, entities.ErrConfirmRequired
	}

	account, err := o.accounts.FindByID(ctx, target)
	if err != nil {
		return nil, err
	}
	if call.Turn.DryRun {
		return map[string]interface{}{"would_delete": account.ID, "email": account.Email}, nil
	}
	if err := o.accounts.Delete(ctx, account.ID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"deleted": account.ID, "email": account.Email}, nil
}
