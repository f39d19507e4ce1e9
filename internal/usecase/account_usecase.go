package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finpost/ledger/internal/domain"
)

// AccountUseCase is the account registry: it resolves logical account
// references to durable records, creating them on first use.
type AccountUseCase struct {
	accountRepo AccountRepository
	idGen       IDGenerator
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(accountRepo AccountRepository, idGen IDGenerator) *AccountUseCase {
	return &AccountUseCase{
		accountRepo: accountRepo,
		idGen:       idGen,
	}
}

// ResolveAccountInput carries the natural key plus creation-seed attributes.
type ResolveAccountInput struct {
	Name     string
	Currency string
	Type     domain.AccountType
	Nature   domain.AccountNature
	Metadata map[string]any
}

// Resolve returns the account for (name, currency), creating it with zero
// balance and active status when absent. Existing accounts are returned
// unchanged; the supplied attributes only seed creation.
func (uc *AccountUseCase) Resolve(ctx context.Context, input ResolveAccountInput) (*domain.Account, error) {
	if err := domain.ValidateAccountName(input.Name); err != nil {
		return nil, err
	}

	if err := domain.ValidateCurrency(input.Currency); err != nil {
		return nil, err
	}

	if err := domain.ValidateMetadata(input.Metadata); err != nil {
		return nil, err
	}

	nature := input.Nature
	if nature == "" {
		nature = domain.NatureFor(input.Type)
	}

	now := time.Now().UTC()

	candidate := &domain.Account{
		ID:        uc.idGen.Generate(),
		Name:      input.Name,
		Type:      input.Type,
		Nature:    nature,
		Currency:  input.Currency,
		Status:    domain.AccountStatusActive,
		Balance:   decimal.Zero,
		Metadata:  input.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return uc.accountRepo.FindOrCreate(ctx, candidate)
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	return uc.accountRepo.List(ctx, input.Limit, input.Offset)
}

// UpdateAccountInput carries mutable account attributes. Balance and
// currency are never updated through this path.
type UpdateAccountInput struct {
	ID       string
	Name     *string
	Status   *domain.AccountStatus
	Metadata map[string]any
}

// UpdateAccount updates display attributes and status of an account.
func (uc *AccountUseCase) UpdateAccount(ctx context.Context, input UpdateAccountInput) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if err := domain.ValidateAccountName(*input.Name); err != nil {
			return nil, err
		}

		account.Name = *input.Name
	}

	if input.Status != nil {
		account.Status = *input.Status
	}

	if input.Metadata != nil {
		if err := domain.ValidateMetadata(input.Metadata); err != nil {
			return nil, err
		}

		account.Metadata = input.Metadata
	}

	account.UpdatedAt = time.Now().UTC()

	if err := uc.accountRepo.Update(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// DeactivateAccount marks an account inactive. Accounts are never deleted.
func (uc *AccountUseCase) DeactivateAccount(ctx context.Context, id string) (*domain.Account, error) {
	status := domain.AccountStatusInactive

	return uc.UpdateAccount(ctx, UpdateAccountInput{ID: id, Status: &status})
}
