package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	adaptershttp "github.com/finpost/ledger/internal/adapter/http"
	"github.com/finpost/ledger/internal/adapter/http/handler"
	"github.com/finpost/ledger/internal/adapter/repository/postgres"
	redisrepo "github.com/finpost/ledger/internal/adapter/repository/redis"
	"github.com/finpost/ledger/internal/domain"
	infraredis "github.com/finpost/ledger/internal/infrastructure/redis"
	"github.com/finpost/ledger/internal/usecase"
	"github.com/finpost/ledger/tests/testutil"
)

// testStack wires the full HTTP stack against live Postgres and Redis.
type testStack struct {
	DB     *testutil.TestDB
	Router http.Handler
	Rates  *usecase.RateTableStore
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	t.Cleanup(testDB.Cleanup)
	testDB.TruncateAll(ctx)

	pool := testDB.Pool

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}
	redisClient, err := infraredis.NewClient(ctx, redisURL)
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	t.Cleanup(func() { _ = redisClient.Close() })

	rates, err := usecase.NewRateTableStore(testRateTable())
	if err != nil {
		t.Fatalf("failed to build rate table store: %v", err)
	}

	txManager := postgres.NewTxManager(pool)
	accountRepo := postgres.NewAccountRepository(pool)
	entryRepo := postgres.NewEntryRepository(pool)
	eventRepo := postgres.NewEventRepository(pool)
	ledgerRepo := postgres.NewLedgerRepository(pool)
	idGen := postgres.NewULIDGenerator()
	retrier := postgres.NewRetrier(zerolog.Nop())

	postingUC := usecase.NewPostingUseCase(txManager, accountRepo, entryRepo, eventRepo, rates, idGen, retrier, nil)
	reversalUC := usecase.NewReversalUseCase(txManager, accountRepo, entryRepo, rates, idGen, retrier, nil)
	accountUC := usecase.NewAccountUseCase(accountRepo, idGen)
	entryUC := usecase.NewEntryUseCase(entryRepo)
	ledgerUC := usecase.NewLedgerUseCase(accountRepo, ledgerRepo)

	router := adaptershttp.NewRouter(adaptershttp.RouterConfig{
		AccountHandler:   handler.NewAccountHandler(accountUC),
		EventHandler:     handler.NewEventHandler(postingUC),
		EntryHandler:     handler.NewEntryHandler(entryUC),
		LedgerHandler:    handler.NewLedgerHandler(reversalUC, ledgerUC),
		ConfigHandler:    handler.NewConfigHandler(rates),
		HealthHandler:    handler.NewHealthHandler(pool, redisClient),
		IdempotencyStore: redisrepo.NewIdempotencyStore(redisClient),
	})

	return &testStack{
		DB:     testDB,
		Router: router,
		Rates:  rates,
	}
}

// testRateTable returns a multi-currency snapshot with an EUR to USD fx fee
// and a configured processor expense percentage.
func testRateTable() *domain.RateTable {
	table := domain.DefaultRateTable()
	table.Rates["EUR"] = decimal.RequireFromString("0.5")
	table.Rates["GBP"] = decimal.RequireFromString("0.8")
	table.FXFees = map[string]map[string]decimal.Decimal{
		"EUR": {"USD": decimal.RequireFromString("0.01")},
	}
	table.TransactionFeePercentage = decimal.RequireFromString("0.029")
	table.TransactionFeeFixed = map[string]decimal.Decimal{
		"USD": decimal.RequireFromString("0.30"),
	}
	table.PaymentProcessing.ExpensePercentage = decimal.RequireFromString("0.003")

	return table
}

// postJSON issues a JSON POST against the stack's router.
func (s *testStack) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.Router.ServeHTTP(w, r)

	return w
}

// get issues a GET against the stack's router.
func (s *testStack) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()

	s.Router.ServeHTTP(w, r)

	return w
}

// postEvent posts a business event and decodes the committed result.
func (s *testStack) postEvent(t *testing.T, eventType string, payload any) postEventBody {
	t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	w := s.postJSON(t, "/api/v1/events", map[string]any{
		"event_type": eventType,
		"payload":    json.RawMessage(raw),
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	var resp postEventBody
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse posting response: %v", err)
	}

	return resp
}

type entryBody struct {
	ID           string `json:"id"`
	EntryGroupID string `json:"entry_group_id"`
	AccountID    string `json:"account_id"`
	Type         string `json:"type"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	IsReversal   bool   `json:"is_reversal"`
	IsReversed   bool   `json:"is_reversed"`
}

type postEventBody struct {
	EventID      string      `json:"event_id"`
	EventType    string      `json:"event_type"`
	EntryGroupID string      `json:"entry_group_id"`
	Entries      []entryBody `json:"entries"`
}

// groupTotals sums debit and credit amounts in a response group.
func groupTotals(t *testing.T, entries []entryBody) (debits, credits decimal.Decimal) {
	t.Helper()

	debits, credits = decimal.Zero, decimal.Zero
	for _, e := range entries {
		amount, err := decimal.NewFromString(e.Amount)
		if err != nil {
			t.Fatalf("failed to parse entry amount %q: %v", e.Amount, err)
		}

		switch e.Type {
		case "debit":
			debits = debits.Add(amount)
		case "credit":
			credits = credits.Add(amount)
		default:
			t.Fatalf("unexpected entry type %q", e.Type)
		}
	}

	return debits, credits
}
