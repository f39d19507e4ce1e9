package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/finpost/ledger/internal/domain"
	"github.com/finpost/ledger/internal/infrastructure/metrics"
)

// PostingUseCase turns business events into balanced entry groups and
// commits them atomically: event record, entries, and balance updates all
// land in one transaction or not at all.
type PostingUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	entryRepo   EntryRepository
	eventRepo   EventRepository
	rates       RateProvider
	idGen       IDGenerator
	retrier     Retrier
	metrics     *metrics.Metrics
}

// NewPostingUseCase creates a new PostingUseCase. The metrics argument may
// be nil.
func NewPostingUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	eventRepo EventRepository,
	rates RateProvider,
	idGen IDGenerator,
	retrier Retrier,
	m *metrics.Metrics,
) *PostingUseCase {
	return &PostingUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		eventRepo:   eventRepo,
		rates:       rates,
		idGen:       idGen,
		retrier:     retrier,
		metrics:     m,
	}
}

// PostEventInput represents an inbound business event.
type PostEventInput struct {
	EventType domain.EventType
	Payload   json.RawMessage
}

// PostEventResult is the committed outcome of a posting.
type PostEventResult struct {
	Event        *domain.Event
	EntryGroupID string
	Entries      []*domain.Entry
}

// PostEvent validates the event, runs its posting rule against the current
// rate snapshot, checks the proposed group balances, and commits it. All
// validation and the balance gate happen before anything is written.
func (uc *PostingUseCase) PostEvent(ctx context.Context, input PostEventInput) (*PostEventResult, error) {
	start := time.Now()

	payload, err := domain.ParseEventPayload(input.EventType, input.Payload)
	if err != nil {
		uc.countPostingError(err)
		return nil, err
	}

	// Pin one consistent snapshot for the whole evaluation.
	rates := uc.rates.Current()

	prop, err := buildProposal(payload, rates)
	if err != nil {
		uc.countPostingError(err)
		return nil, err
	}

	if err := checkBalanced(prop.entries); err != nil {
		uc.countPostingError(err)
		return nil, err
	}

	event := &domain.Event{
		ID:        uuid.NewString(),
		Type:      input.EventType,
		Payload:   input.Payload,
		CreatedAt: time.Now().UTC(),
	}

	groupID := uc.idGen.Generate()
	transactionID := payloadTransactionID(payload)

	var entries []*domain.Entry

	err = uc.retrier.Retry(ctx, func() error {
		var commitErr error
		entries, commitErr = uc.commitGroup(ctx, event, groupID, transactionID, prop)

		return commitErr
	})
	if err != nil {
		uc.countPostingError(err)
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EventsPosted.WithLabelValues(string(input.EventType)).Inc()
		uc.metrics.EntriesCreated.Add(float64(len(entries)))
		uc.metrics.PostingDuration.Observe(time.Since(start).Seconds())

		debits, _ := domain.GroupTotals(entries)
		amount, _ := debits.Float64()
		uc.metrics.PostingAmount.Observe(amount)
	}

	return &PostEventResult{
		Event:        event,
		EntryGroupID: groupID,
		Entries:      entries,
	}, nil
}

func (uc *PostingUseCase) countPostingError(err error) {
	if uc.metrics == nil {
		return
	}

	uc.metrics.PostingErrors.WithLabelValues(errorLabel(err)).Inc()
}

// errorLabel buckets an error into a low-cardinality metric label.
func errorLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownEventType):
		return "unknown_event_type"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrRefundExceedsOriginal):
		return "refund_exceeds_original"
	case errors.Is(err, domain.ErrExchangeRateUnavailable):
		return "rate_unavailable"
	case errors.Is(err, domain.ErrImbalance):
		return "imbalance"
	case errors.Is(err, domain.ErrAlreadyReversed):
		return "already_reversed"
	case errors.Is(err, domain.ErrEntryGroupNotFound):
		return "group_not_found"
	default:
		return "internal"
	}
}

// commitGroup persists the event and the proposed entries and applies the
// balance deltas, all within one transaction.
func (uc *PostingUseCase) commitGroup(
	ctx context.Context,
	event *domain.Event,
	groupID, transactionID string,
	prop proposal,
) ([]*domain.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	now := time.Now().UTC()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	criteria := make([]AccountCriteria, 0, len(prop.entries)+len(prop.guards))
	for _, e := range prop.entries {
		criteria = append(criteria, e.Account)
	}
	for _, g := range prop.guards {
		criteria = append(criteria, g.Account)
	}

	accounts, err := uc.resolveAndLock(ctx, tx, criteria, now)
	if err != nil {
		return nil, err
	}

	// Guards run under the row locks so the balance cannot move between the
	// check and the apply.
	for _, g := range prop.guards {
		acct := accounts[g.Account.Key()]
		if acct.Balance.LessThan(g.Minimum) {
			return nil, fmt.Errorf("%w: %s balance %s is below %s",
				domain.ErrInsufficientFunds, acct.Name, acct.Balance, g.Minimum)
		}
	}

	if err := uc.eventRepo.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	entries := make([]*domain.Entry, 0, len(prop.entries))

	for _, pe := range prop.entries {
		acct := accounts[pe.Account.Key()]

		if acct.Currency != pe.Currency {
			return nil, fmt.Errorf("%w: account %s holds %s, entry is %s",
				domain.ErrCurrencyMismatch, acct.ID, acct.Currency, pe.Currency)
		}

		entry := &domain.Entry{
			ID:            uc.idGen.Generate(),
			EntryGroupID:  groupID,
			TransactionID: transactionID,
			EventID:       event.ID,
			AccountID:     acct.ID,
			Type:          pe.Type,
			Amount:        pe.Amount,
			Currency:      pe.Currency,
			Description:   pe.Description,
			Metadata:      pe.Metadata,
			CreatedAt:     now,
		}

		if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
			return nil, err
		}

		delta := acct.SignedAmount(pe.Type, pe.Amount)
		if err := uc.accountRepo.AddToBalance(ctx, tx, acct.ID, delta, now); err != nil {
			return nil, err
		}

		acct.Balance = acct.Balance.Add(delta)
		entries = append(entries, entry)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return entries, nil
}

// resolveAndLock finds or creates every referenced account inside the
// transaction, then acquires row locks in sorted id order (deadlock
// prevention). Returns accounts keyed by criteria natural key.
func (uc *PostingUseCase) resolveAndLock(
	ctx context.Context,
	tx Transaction,
	criteria []AccountCriteria,
	now time.Time,
) (map[string]*domain.Account, error) {
	resolved := make(map[string]*domain.Account)

	var ids []string

	for _, c := range criteria {
		if _, ok := resolved[c.Key()]; ok {
			continue
		}

		candidate := &domain.Account{
			ID:        uc.idGen.Generate(),
			Name:      c.Name,
			Type:      c.Type,
			Nature:    c.Nature,
			Currency:  c.Currency,
			Status:    domain.AccountStatusActive,
			Metadata:  c.Metadata,
			CreatedAt: now,
			UpdatedAt: now,
		}

		acct, err := uc.accountRepo.FindOrCreateTx(ctx, tx, candidate)
		if err != nil {
			return nil, err
		}

		// The candidate id survives only when the insert won.
		if uc.metrics != nil && acct.ID == candidate.ID {
			uc.metrics.AccountsCreated.Inc()
		}

		resolved[c.Key()] = acct
		ids = append(ids, acct.ID)
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

	for key, acct := range resolved {
		resolved[key] = byID[acct.ID]
	}

	return resolved, nil
}

func payloadTransactionID(payload domain.EventPayload) string {
	switch p := payload.(type) {
	case *domain.PaymentCapturedPayload:
		return p.TransactionID
	case *domain.PaymentRefundedPayload:
		return p.TransactionID
	case *domain.PaymentPartiallyRefundedPayload:
		return p.TransactionID
	case *domain.ProcessorFeeChargedPayload:
		return p.TransactionID
	default:
		return ""
	}
}
