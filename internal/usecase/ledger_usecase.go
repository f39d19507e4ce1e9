package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finpost/ledger/internal/domain"
)

var (
	// ErrInconsistentLedger is returned when the ledger is not balanced.
	ErrInconsistentLedger = errors.New("ledger is inconsistent: debits do not equal credits")
)

// LedgerUseCase handles ledger-wide consistency operations.
type LedgerUseCase struct {
	accountRepo AccountRepository
	ledgerRepo  LedgerRepository
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(accountRepo AccountRepository, ledgerRepo LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
	}
}

// CheckConsistency verifies that total debit amounts equal total credit
// amounts across the whole ledger, within the balance tolerance.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (bool, error) {
	debits, credits, err := uc.ledgerRepo.TotalsByType(ctx)
	if err != nil {
		return false, err
	}

	if !domain.WithinTolerance(debits, credits) {
		return false, ErrInconsistentLedger
	}

	return true, nil
}

// ReconciliationResult compares an account's stored balance against the
// replay of its entries.
type ReconciliationResult struct {
	AccountID         string
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	Difference        decimal.Decimal
	IsReconciled      bool
	CheckedAt         time.Time
}

// ReconcileAccount replays the full entry history of an account as signed
// contributions and compares the sum with the stored running balance.
func (uc *LedgerUseCase) ReconcileAccount(ctx context.Context, accountID string) (*ReconciliationResult, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	calculated, err := uc.ledgerRepo.SumSignedEntries(ctx, accountID)
	if err != nil {
		return nil, err
	}

	diff := account.Balance.Sub(calculated)

	return &ReconciliationResult{
		AccountID:         accountID,
		RecordedBalance:   account.Balance,
		CalculatedBalance: calculated,
		Difference:        diff,
		IsReconciled:      diff.IsZero(),
		CheckedAt:         time.Now().UTC(),
	}, nil
}
