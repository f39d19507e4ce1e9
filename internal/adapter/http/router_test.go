package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/finpost/ledger/internal/adapter/http/handler"
	apimiddleware "github.com/finpost/ledger/internal/adapter/http/middleware"
	"github.com/finpost/ledger/internal/domain"
	"github.com/finpost/ledger/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"event_type":"payment.captured","payload":{}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if !store.checkCalled {
		t.Fatalf("expected idempotency store to be used")
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/events",
		"GET /api/v1/entries/",
		"GET /api/v1/entries/{id}",
		"GET /api/v1/entry-groups/{id}",
		"POST /api/v1/entry-groups/{id}/reverse",
		"POST /api/v1/accounts/",
		"GET /api/v1/accounts/",
		"GET /api/v1/accounts/{id}",
		"PATCH /api/v1/accounts/{id}",
		"DELETE /api/v1/accounts/{id}",
		"GET /api/v1/accounts/{id}/entries",
		"GET /api/v1/accounts/{id}/reconciliation",
		"GET /api/v1/ledger/consistency",
		"GET /api/v1/config/rates/",
		"PUT /api/v1/config/rates/",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	accountHandler := handler.NewAccountHandler(&stubAccountService{})
	eventHandler := handler.NewEventHandler(&stubPostingService{})
	entryHandler := handler.NewEntryHandler(usecase.NewEntryUseCase(&stubEntryRepository{}))
	ledgerHandler := handler.NewLedgerHandler(&stubReversalService{}, &stubLedgerService{})

	store, err := usecase.NewRateTableStore(domain.DefaultRateTable())
	if err != nil {
		panic(err)
	}
	configHandler := handler.NewConfigHandler(store)

	cfg := RouterConfig{
		HealthHandler:  &handler.HealthHandler{},
		AccountHandler: accountHandler,
		EventHandler:   eventHandler,
		EntryHandler:   entryHandler,
		LedgerHandler:  ledgerHandler,
		ConfigHandler:  configHandler,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubAccountService struct{}

func (stubAccountService) Resolve(ctx context.Context, input usecase.ResolveAccountInput) (*domain.Account, error) {
	return &domain.Account{ID: "acc"}, nil
}

func (stubAccountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return &domain.Account{ID: id}, nil
}

func (stubAccountService) ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error) {
	return []*domain.Account{}, nil
}

func (stubAccountService) UpdateAccount(ctx context.Context, input usecase.UpdateAccountInput) (*domain.Account, error) {
	return &domain.Account{ID: input.ID}, nil
}

func (stubAccountService) DeactivateAccount(ctx context.Context, id string) (*domain.Account, error) {
	return &domain.Account{ID: id, Status: domain.AccountStatusInactive}, nil
}

type stubPostingService struct{}

func (stubPostingService) PostEvent(ctx context.Context, input usecase.PostEventInput) (*usecase.PostEventResult, error) {
	return &usecase.PostEventResult{
		Event:        &domain.Event{ID: "evt"},
		EntryGroupID: "grp",
	}, nil
}

type stubReversalService struct{}

func (stubReversalService) Reverse(ctx context.Context, input usecase.ReverseInput) (*usecase.ReverseResult, error) {
	return &usecase.ReverseResult{EntryGroupID: "grp"}, nil
}

type stubLedgerService struct{}

func (stubLedgerService) CheckConsistency(ctx context.Context) (bool, error) {
	return true, nil
}

func (stubLedgerService) ReconcileAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error) {
	return &usecase.ReconciliationResult{AccountID: accountID, IsReconciled: true}, nil
}

type stubEntryRepository struct{}

func (stubEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	return nil
}

func (stubEntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	return &domain.Entry{ID: id, Amount: decimal.Zero}, nil
}

func (stubEntryRepository) GetByGroup(ctx context.Context, groupID string) ([]*domain.Entry, error) {
	return []*domain.Entry{}, nil
}

func (stubEntryRepository) List(ctx context.Context, filter usecase.EntryFilter) ([]*domain.Entry, int64, error) {
	return []*domain.Entry{}, 0, nil
}

func (stubEntryRepository) MarkGroupReversed(ctx context.Context, tx usecase.Transaction, groupID string, at time.Time) (int64, error) {
	return 0, nil
}

type stubIdempotencyStore struct {
	checkCalled bool
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkCalled = true
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return nil
}
