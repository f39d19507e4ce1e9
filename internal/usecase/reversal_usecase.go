package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/finpost/ledger/internal/domain"
	"github.com/finpost/ledger/internal/infrastructure/metrics"
)

// ReversalUseCase produces the inverse of a committed entry group without
// losing audit history: originals are flagged, never rewritten.
type ReversalUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	entryRepo   EntryRepository
	rates       RateProvider
	idGen       IDGenerator
	retrier     Retrier
	metrics     *metrics.Metrics
}

// NewReversalUseCase creates a new ReversalUseCase. The metrics argument may
// be nil.
func NewReversalUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	rates RateProvider,
	idGen IDGenerator,
	retrier Retrier,
	m *metrics.Metrics,
) *ReversalUseCase {
	return &ReversalUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		rates:       rates,
		idGen:       idGen,
		retrier:     retrier,
		metrics:     m,
	}
}

// ReverseInput identifies the group to reverse.
type ReverseInput struct {
	EntryGroupID string
	Reason       string
}

// ReverseResult is the committed inverse group.
type ReverseResult struct {
	EntryGroupID string
	Entries      []*domain.Entry
}

// Reverse builds and commits the inverse of an entry group. Every original
// entry is marked reversed atomically with the inverse group; two concurrent
// reversals of the same group cannot both succeed.
func (uc *ReversalUseCase) Reverse(ctx context.Context, input ReverseInput) (*ReverseResult, error) {
	originals, err := uc.entryRepo.GetByGroup(ctx, input.EntryGroupID)
	if err != nil {
		return nil, err
	}

	if len(originals) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEntryGroupNotFound, input.EntryGroupID)
	}

	for _, e := range originals {
		if e.IsReversed {
			return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyReversed, input.EntryGroupID)
		}
	}

	rates := uc.rates.Current()

	var result *ReverseResult

	err = uc.retrier.Retry(ctx, func() error {
		var commitErr error
		result, commitErr = uc.commitReversal(ctx, input, originals, rates)

		return commitErr
	})
	if err != nil {
		uc.countReversalError(err)
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ReversalsCreated.Inc()
		uc.metrics.EntriesCreated.Add(float64(len(result.Entries)))
	}

	return result, nil
}

func (uc *ReversalUseCase) countReversalError(err error) {
	if uc.metrics == nil {
		return
	}

	uc.metrics.ReversalErrors.WithLabelValues(errorLabel(err)).Inc()
}

func (uc *ReversalUseCase) commitReversal(
	ctx context.Context,
	input ReverseInput,
	originals []*domain.Entry,
	rates *domain.RateTable,
) (*ReverseResult, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	now := time.Now().UTC()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// The conditional update is the idempotency guard: if another reversal
	// already flipped any entry of this group, fewer rows are affected and
	// the whole transaction rolls back.
	affected, err := uc.entryRepo.MarkGroupReversed(ctx, tx, input.EntryGroupID, now)
	if err != nil {
		return nil, err
	}

	if affected != int64(len(originals)) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyReversed, input.EntryGroupID)
	}

	accounts, err := uc.lockAccounts(ctx, tx, originals)
	if err != nil {
		return nil, err
	}

	groupID := uc.idGen.Generate()
	entries := make([]*domain.Entry, 0, len(originals))

	for _, orig := range originals {
		acct := accounts[orig.AccountID]

		amount := orig.Amount
		meta := map[string]any{
			"reversal_reason": input.Reason,
			"original_group":  orig.EntryGroupID,
		}

		// Tolerate the account's currency having been edited since the
		// original posting: convert at the current snapshot and record the
		// rate used.
		if acct.Currency != orig.Currency {
			rate, rateErr := rates.Rate(orig.Currency, acct.Currency)
			if rateErr != nil {
				return nil, rateErr
			}

			amount = amount.Mul(rate)
			meta["exchange_rate"] = rate.String()
			meta["original_currency"] = orig.Currency
		}

		entry := &domain.Entry{
			ID:              uc.idGen.Generate(),
			EntryGroupID:    groupID,
			TransactionID:   orig.TransactionID,
			EventID:         orig.EventID,
			AccountID:       orig.AccountID,
			Type:            orig.Type.Opposite(),
			Amount:          amount,
			Currency:        acct.Currency,
			Description:     fmt.Sprintf("reversal of %s", orig.ID),
			Metadata:        meta,
			IsReversal:      true,
			OriginalEntryID: orig.ID,
			CreatedAt:       now,
		}

		entries = append(entries, entry)
	}

	// A reversal inherits balance by construction (flipping every type in a
	// balanced set keeps it balanced), but the gate runs regardless.
	if !domain.GroupBalances(entries) {
		debits, credits := domain.GroupTotals(entries)

		return nil, fmt.Errorf("%w: debits %s, credits %s", domain.ErrImbalance, debits, credits)
	}

	for _, entry := range entries {
		if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
			return nil, err
		}

		acct := accounts[entry.AccountID]

		delta := acct.SignedAmount(entry.Type, entry.Amount)
		if err := uc.accountRepo.AddToBalance(ctx, tx, acct.ID, delta, now); err != nil {
			return nil, err
		}

		acct.Balance = acct.Balance.Add(delta)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &ReverseResult{EntryGroupID: groupID, Entries: entries}, nil
}

func (uc *ReversalUseCase) lockAccounts(
	ctx context.Context,
	tx Transaction,
	originals []*domain.Entry,
) (map[string]*domain.Account, error) {
	seen := make(map[string]bool)

	var ids []string

	for _, e := range originals {
		if !seen[e.AccountID] {
			seen[e.AccountID] = true
			ids = append(ids, e.AccountID)
		}
	}

	sort.Strings(ids)

	locked, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	if len(locked) != len(ids) {
		return nil, domain.ErrAccountNotFound
	}

	byID := make(map[string]*domain.Account, len(locked))
	for _, a := range locked {
		byID[a.ID] = a
	}

	return byID, nil
}
