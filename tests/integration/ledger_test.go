package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/finpost/ledger/internal/adapter/http/dto"
)

func TestLedgerConsistency(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	stack := newTestStack(t)
	stack.DB.TruncateAll(ctx)

	stack.postEvent(t, "payment.captured", map[string]any{
		"amount":          "250",
		"currency":        "USD",
		"merchant_id":     "m-1",
		"transaction_fee": "5",
	})
	stack.postEvent(t, "payment.refunded", map[string]any{
		"amount":      "50",
		"currency":    "USD",
		"merchant_id": "m-1",
	})

	w := stack.get(t, "/api/v1/ledger/consistency")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp dto.ConsistencyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if !resp.Consistent {
		t.Error("expected ledger to be consistent")
	}
}

func TestAccountReconciliation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	stack := newTestStack(t)
	stack.DB.TruncateAll(ctx)

	posted := stack.postEvent(t, "payment.captured", map[string]any{
		"amount":          "100",
		"currency":        "USD",
		"merchant_id":     "m-1",
		"transaction_fee": "2.9",
	})

	for _, e := range posted.Entries {
		w := stack.get(t, "/api/v1/accounts/"+e.AccountID+"/reconciliation")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}

		var resp dto.ReconciliationResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if !resp.Reconciled {
			t.Errorf("account %s failed to reconcile: recorded %s, calculated %s",
				e.AccountID, resp.RecordedBalance, resp.CalculatedBalance)
		}
	}
}

func TestEntryListing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	stack := newTestStack(t)
	stack.DB.TruncateAll(ctx)

	posted := stack.postEvent(t, "payment.captured", map[string]any{
		"amount":          "100",
		"currency":        "USD",
		"merchant_id":     "m-1",
		"transaction_fee": "2.9",
		"transaction_id":  "txn-42",
	})

	t.Run("filter by transaction", func(t *testing.T) {
		w := stack.get(t, "/api/v1/entries?transaction_id=txn-42")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}

		var resp dto.ListEntriesResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if len(resp.Entries) != 3 {
			t.Errorf("expected 3 entries, got %d", len(resp.Entries))
		}
	})

	t.Run("filter by type", func(t *testing.T) {
		w := stack.get(t, "/api/v1/entries?type=debit")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}

		var resp dto.ListEntriesResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if len(resp.Entries) != 1 {
			t.Fatalf("expected 1 debit entry, got %d", len(resp.Entries))
		}
		if resp.Entries[0].Type != "debit" {
			t.Errorf("expected debit entry, got %q", resp.Entries[0].Type)
		}
	})

	t.Run("list account entries", func(t *testing.T) {
		cashID := ""
		for _, e := range posted.Entries {
			if e.Type == "debit" {
				cashID = e.AccountID
			}
		}
		if cashID == "" {
			t.Fatal("no debit entry in posted group")
		}

		w := stack.get(t, "/api/v1/accounts/" + cashID + "/entries")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}

		var resp dto.ListEntriesResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if len(resp.Entries) != 1 {
			t.Errorf("expected 1 entry for cash account, got %d", len(resp.Entries))
		}
	})

	t.Run("get single entry", func(t *testing.T) {
		w := stack.get(t, "/api/v1/entries/"+posted.Entries[0].ID)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}

		var resp dto.EntryResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.ID != posted.Entries[0].ID {
			t.Errorf("expected entry %s, got %s", posted.Entries[0].ID, resp.ID)
		}
	})
}

func TestRateTableUpdate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	stack := newTestStack(t)
	stack.DB.TruncateAll(ctx)

	// Replace the live table with one where EUR trades at 0.25.
	table := testRateTable()
	table.Rates["EUR"] = decimal.RequireFromString("0.25")

	raw, err := json.Marshal(table)
	if err != nil {
		t.Fatalf("failed to marshal rate table: %v", err)
	}

	r := httptest.NewRequest(http.MethodPut, "/api/v1/config/rates", bytes.NewReader(raw))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	// 100 EUR at the new rate settles as 400 USD, minus the 1% fx fee.
	stack.postEvent(t, "payment.captured", map[string]any{
		"amount":              "100",
		"currency":            "EUR",
		"merchant_id":         "m-1",
		"transaction_fee":     "0",
		"settlement_currency": "USD",
	})

	cash := stack.DB.AccountBalanceByName(ctx, "Cash", "USD")
	if !cash.Equal(decimal.RequireFromString("400")) {
		t.Errorf("expected cash balance 400, got %s", cash)
	}

	payable := stack.DB.AccountBalanceByName(ctx, "Merchant Payable - m-1", "USD")
	if !payable.Equal(decimal.RequireFromString("396")) {
		t.Errorf("expected payable balance 396, got %s", payable)
	}
}
