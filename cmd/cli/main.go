package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/finpost/ledger/internal/domain"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ledger-cli",
		Short: "Posting engine CLI tool",
		Long:  `A command line interface for interacting with the posting engine API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newEntriesCmd())
	rootCmd.AddCommand(newGroupsCmd())
	rootCmd.AddCommand(newAccountsCmd())
	rootCmd.AddCommand(newRatesCmd())
	rootCmd.AddCommand(newFeesCmd())
	rootCmd.AddCommand(newLedgerCmd())

	return rootCmd
}

func newEventsCmd() *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Business event operations",
	}

	var eventType, payload, payloadFile string

	postCmd := &cobra.Command{
		Use:   "post",
		Short: "Post a business event",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := []byte(payload)
			if payloadFile != "" {
				data, err := os.ReadFile(payloadFile)
				if err != nil {
					return fmt.Errorf("read payload file: %w", err)
				}
				raw = data
			}

			body, err := json.Marshal(map[string]any{
				"event_type": eventType,
				"payload":    json.RawMessage(raw),
			})
			if err != nil {
				return err
			}

			return doRequest(http.MethodPost, "/api/v1/events", body, http.StatusCreated)
		},
	}
	postCmd.Flags().StringVar(&eventType, "type", "", "Event type (e.g. payment.captured)")
	postCmd.Flags().StringVar(&payload, "payload", "{}", "Event payload as inline JSON")
	postCmd.Flags().StringVar(&payloadFile, "payload-file", "", "Read the event payload from a JSON file")
	_ = postCmd.MarkFlagRequired("type")

	eventsCmd.AddCommand(postCmd)

	return eventsCmd
}

func newEntriesCmd() *cobra.Command {
	entriesCmd := &cobra.Command{
		Use:   "entries",
		Short: "Ledger entry operations",
	}

	var accountID, entryType string
	var page, pageSize int

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/entries/?page=%d&page_size=%d", page, pageSize)
			if accountID != "" {
				path += "&account_id=" + accountID
			}
			if entryType != "" {
				path += "&type=" + entryType
			}

			return doRequest(http.MethodGet, path, nil, http.StatusOK)
		},
	}
	listCmd.Flags().StringVar(&accountID, "account", "", "Filter by account ID")
	listCmd.Flags().StringVar(&entryType, "type", "", "Filter by entry type (debit or credit)")
	listCmd.Flags().IntVar(&page, "page", 1, "Page number")
	listCmd.Flags().IntVar(&pageSize, "page-size", 50, "Page size")

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Get a ledger entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/entries/"+args[0], nil, http.StatusOK)
		},
	}

	entriesCmd.AddCommand(listCmd, getCmd)

	return entriesCmd
}

func newGroupsCmd() *cobra.Command {
	groupsCmd := &cobra.Command{
		Use:   "groups",
		Short: "Entry group operations",
	}

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Get an entry group with its totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/entry-groups/"+args[0], nil, http.StatusOK)
		},
	}

	var reason string
	reverseCmd := &cobra.Command{
		Use:   "reverse [id]",
		Short: "Reverse an entry group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := json.Marshal(map[string]string{"reason": reason})
			if err != nil {
				return err
			}

			return doRequest(http.MethodPost, "/api/v1/entry-groups/"+args[0]+"/reverse", body, http.StatusCreated)
		},
	}
	reverseCmd.Flags().StringVar(&reason, "reason", "", "Reason recorded on the inverse entries")

	groupsCmd.AddCommand(getCmd, reverseCmd)

	return groupsCmd
}

func newAccountsCmd() *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Account operations",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/accounts/", nil, http.StatusOK)
		},
	}

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Get an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/accounts/"+args[0], nil, http.StatusOK)
		},
	}

	reconcileCmd := &cobra.Command{
		Use:   "reconcile [id]",
		Short: "Compare an account's balance against its entry replay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/accounts/"+args[0]+"/reconciliation", nil, http.StatusOK)
		},
	}

	accountsCmd.AddCommand(listCmd, getCmd, reconcileCmd)

	return accountsCmd
}

func newRatesCmd() *cobra.Command {
	ratesCmd := &cobra.Command{
		Use:   "rates",
		Short: "Rate table operations",
	}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show the live rate table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/config/rates/", nil, http.StatusOK)
		},
	}

	var file string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the live rate table from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read rate table: %w", err)
			}

			return doRequest(http.MethodPut, "/api/v1/config/rates/", body, http.StatusOK)
		},
	}
	setCmd.Flags().StringVar(&file, "file", "", "Path to the rate table JSON file")
	_ = setCmd.MarkFlagRequired("file")

	ratesCmd.AddCommand(getCmd, setCmd)

	return ratesCmd
}

func newFeesCmd() *cobra.Command {
	feesCmd := &cobra.Command{
		Use:   "fees",
		Short: "Fee calculations",
	}

	var amount, currency string

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote the transaction fee for an amount using the live rate table",
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}

			table, err := fetchRateTable()
			if err != nil {
				return err
			}

			fee := table.TransactionFee(amt, currency)
			printJSON(map[string]string{
				"amount":   amt.String(),
				"currency": currency,
				"fee":      fee.String(),
			})

			return nil
		},
	}
	quoteCmd.Flags().StringVar(&amount, "amount", "", "Amount to quote")
	quoteCmd.Flags().StringVar(&currency, "currency", "USD", "Currency of the amount")
	_ = quoteCmd.MarkFlagRequired("amount")

	feesCmd.AddCommand(quoteCmd)

	return feesCmd
}

func newLedgerCmd() *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger-wide operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check that total debits equal total credits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/ledger/consistency", nil, http.StatusOK)
		},
	}

	ledgerCmd.AddCommand(consistencyCmd)

	return ledgerCmd
}

// doRequest performs an API call and pretty-prints the JSON response. A
// response outside the expected status is reported as an error with the
// body attached.
func doRequest(method, path string, body []byte, expected int) error {
	client := &http.Client{Timeout: timeout}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != expected {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, respBody, "", "  "); err != nil {
		fmt.Println(string(respBody))
		return nil
	}

	fmt.Println(pretty.String())
	return nil
}

func fetchRateTable() (*domain.RateTable, error) {
	client := &http.Client{Timeout: timeout}

	resp, err := client.Get(baseURL + "/api/v1/config/rates/")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var table domain.RateTable
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		return nil, fmt.Errorf("parse rate table: %w", err)
	}

	return &table, nil
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}

	fmt.Println(string(data))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max-3] + "..."
}
