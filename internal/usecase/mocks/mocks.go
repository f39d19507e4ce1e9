package mocks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finpost/ledger/internal/domain"
	"github.com/finpost/ledger/internal/usecase"
)

// MockAccountRepository is an in-memory mock of usecase.AccountRepository.
// Set a Func field to override a method; otherwise the map-backed default
// behavior applies.
type MockAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account // by id
	byKey    map[string]string          // (name, currency) -> id

	FindOrCreateFunc      func(ctx context.Context, account *domain.Account) (*domain.Account, error)
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Account, error)
	GetByIDsForUpdateFunc func(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error)
	AddToBalanceFunc      func(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, updatedAt time.Time) error
	UpdateFunc            func(ctx context.Context, account *domain.Account) error
	ListFunc              func(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
		byKey:    make(map[string]string),
	}
}

func key(name, currency string) string {
	return name + "\x00" + currency
}

// Seed installs an account directly, bypassing the find-or-create path.
func (m *MockAccountRepository) Seed(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *account
	m.accounts[cp.ID] = &cp
	m.byKey[key(cp.Name, cp.Currency)] = cp.ID
}

func (m *MockAccountRepository) FindOrCreate(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if m.FindOrCreateFunc != nil {
		return m.FindOrCreateFunc(ctx, account)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byKey[key(account.Name, account.Currency)]; ok {
		cp := *m.accounts[id]
		return &cp, nil
	}

	cp := *account
	m.accounts[cp.ID] = &cp
	m.byKey[key(cp.Name, cp.Currency)] = cp.ID

	out := cp

	return &out, nil
}

func (m *MockAccountRepository) FindOrCreateTx(ctx context.Context, _ usecase.Transaction, account *domain.Account) (*domain.Account, error) {
	return m.FindOrCreate(ctx, account)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if acc, ok := m.accounts[id]; ok {
		cp := *acc
		return &cp, nil
	}

	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByNameAndCurrency(ctx context.Context, name, currency string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byKey[key(name, currency)]; ok {
		cp := *m.accounts[id]
		return &cp, nil
	}

	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	if m.GetByIDsForUpdateFunc != nil {
		return m.GetByIDsForUpdateFunc(ctx, tx, ids)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		if acc, ok := m.accounts[id]; ok {
			cp := *acc
			accounts = append(accounts, &cp)
		}
	}

	return accounts, nil
}

func (m *MockAccountRepository) AddToBalance(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, updatedAt time.Time) error {
	if m.AddToBalanceFunc != nil {
		return m.AddToBalanceFunc(ctx, tx, id, delta, updatedAt)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}

	acc.Balance = acc.Balance.Add(delta)
	acc.UpdatedAt = updatedAt

	return nil
}

func (m *MockAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, account)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.accounts[account.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}

	delete(m.byKey, key(stored.Name, stored.Currency))

	cp := *account
	cp.Balance = stored.Balance // balance never updated through this path
	m.accounts[cp.ID] = &cp
	m.byKey[key(cp.Name, cp.Currency)] = cp.ID

	return nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var accounts []*domain.Account
	for _, acc := range m.accounts {
		cp := *acc
		accounts = append(accounts, &cp)
	}

	if offset > len(accounts) {
		return nil, nil
	}

	accounts = accounts[offset:]
	if limit < len(accounts) {
		accounts = accounts[:limit]
	}

	return accounts, nil
}

// MockEntryRepository is an in-memory mock of usecase.EntryRepository.
type MockEntryRepository struct {
	mu      sync.Mutex
	entries []*domain.Entry

	CreateFunc            func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
	GetByGroupFunc        func(ctx context.Context, groupID string) ([]*domain.Entry, error)
	MarkGroupReversedFunc func(ctx context.Context, tx usecase.Transaction, groupID string, at time.Time) (int64, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{}
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *entry
	m.entries = append(m.entries, &cp)

	return nil
}

func (m *MockEntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}

	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) GetByGroup(ctx context.Context, groupID string) ([]*domain.Entry, error) {
	if m.GetByGroupFunc != nil {
		return m.GetByGroupFunc(ctx, groupID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Entry
	for _, e := range m.entries {
		if e.EntryGroupID == groupID {
			cp := *e
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (m *MockEntryRepository) List(ctx context.Context, filter usecase.EntryFilter) ([]*domain.Entry, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*domain.Entry

	for _, e := range m.entries {
		if filter.AccountID != "" && e.AccountID != filter.AccountID {
			continue
		}
		if filter.TransactionID != "" && e.TransactionID != filter.TransactionID {
			continue
		}
		if filter.EventID != "" && e.EventID != filter.EventID {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.StartDate != nil && e.CreatedAt.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && e.CreatedAt.After(*filter.EndDate) {
			continue
		}
		if filter.IsReversal != nil && e.IsReversal != *filter.IsReversal {
			continue
		}

		cp := *e
		matched = append(matched, &cp)
	}

	total := int64(len(matched))

	start := (filter.Page - 1) * filter.PageSize
	if start > len(matched) {
		start = len(matched)
	}

	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	return matched[start:end], total, nil
}

func (m *MockEntryRepository) MarkGroupReversed(ctx context.Context, tx usecase.Transaction, groupID string, at time.Time) (int64, error) {
	if m.MarkGroupReversedFunc != nil {
		return m.MarkGroupReversedFunc(ctx, tx, groupID, at)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var affected int64
	for _, e := range m.entries {
		if e.EntryGroupID == groupID && !e.IsReversed {
			e.IsReversed = true
			affected++
		}
	}

	return affected, nil
}

// All returns a snapshot of every stored entry.
func (m *MockEntryRepository) All() []*domain.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		cp := *e
		out = append(out, &cp)
	}

	return out
}

// MockEventRepository is an in-memory mock of usecase.EventRepository.
type MockEventRepository struct {
	mu     sync.Mutex
	events map[string]*domain.Event

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.Event) error
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{events: make(map[string]*domain.Event)}
}

func (m *MockEventRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.Event) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *event
	m.events[cp.ID] = &cp

	return nil
}

func (m *MockEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.events[id]; ok {
		cp := *e
		return &cp, nil
	}

	return nil, domain.ErrEventNotFound
}

// MockTransaction is a no-op usecase.Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (t *MockTransaction) Commit(ctx context.Context) error {
	if t.CommitFunc != nil {
		return t.CommitFunc(ctx)
	}

	return nil
}

func (t *MockTransaction) Rollback(ctx context.Context) error {
	if t.RollbackFunc != nil {
		return t.RollbackFunc(ctx)
	}

	return nil
}

// MockTxManager hands out no-op transactions.
type MockTxManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

func (m *MockTxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}

	return &MockTransaction{}, nil
}

// MockIDGenerator generates sequential IDs.
type MockIDGenerator struct {
	counter atomic.Int64

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}

	return fmt.Sprintf("id-%06d", m.counter.Add(1))
}

// PassthroughRetrier runs the operation exactly once.
type PassthroughRetrier struct{}

func (PassthroughRetrier) Retry(ctx context.Context, operation func() error) error {
	return operation()
}
