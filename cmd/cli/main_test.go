package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read stdout: %v", err)
	}
	return buf.String()
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	out := captureOutput(t, func() {
		printJSON(struct {
			A int `json:"a"`
		}{A: 1})
	})

	expected := "{\n  \"a\": 1\n}\n"
	if out != expected {
		t.Fatalf("unexpected json output:\n%s", out)
	}
}

func TestDoRequestStatusMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"already reversed"}`))
	}))
	defer server.Close()

	baseURL = server.URL
	timeout = time.Second

	err := doRequest(http.MethodPost, "/api/v1/entry-groups/g-1/reverse", []byte(`{}`), http.StatusCreated)
	if err == nil {
		t.Fatalf("expected error for 409 response")
	}

	if !strings.Contains(err.Error(), "409") || !strings.Contains(err.Error(), "already reversed") {
		t.Fatalf("expected status and body in error, got %v", err)
	}
}

func TestDoRequestPrettyPrints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ledger/consistency" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"consistent":true}`))
	}))
	defer server.Close()

	baseURL = server.URL
	timeout = time.Second

	out := captureOutput(t, func() {
		if err := doRequest(http.MethodGet, "/api/v1/ledger/consistency", nil, http.StatusOK); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	if !strings.Contains(out, "\"consistent\": true") {
		t.Fatalf("expected indented output, got %q", out)
	}
}

func TestFeesQuoteUsesLiveRateTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"base_currency": "USD",
			"rates": {"USD": "1"},
			"accounts": {},
			"fx_fees": {},
			"transaction_fee_percentage": "0.029",
			"transaction_fee_fixed": {"USD": "0.30"}
		}`))
	}))
	defer server.Close()

	out := captureOutput(t, func() {
		root := newRootCmd()
		root.SetArgs([]string{"fees", "quote", "--amount", "100", "--currency", "USD", "--url", server.URL})
		if err := root.Execute(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	if !strings.Contains(out, `"fee": "3.2"`) {
		t.Fatalf("expected fee 3.2 in output, got %q", out)
	}
}
