package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is posted to the external ledger service. IdempotencyKey is
// the posting id, so a retried post never books the same amount twice.
type LedgerEntry struct {
	IdempotencyKey  string          `json:"idempotency_key"`
	Kind            string          `json:"kind"` // DOCUMENT_REVENUE | WORK_ORDER_COMMITMENT
	ReferenceNumber string          `json:"reference_number"`
	TenderID        string          `json:"tender_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// LedgerEntryResult is returned by the ledger service once the entry is booked.
type LedgerEntryResult struct {
	EntryID string `json:"entry_id"`
	Status  string `json:"status"`
}

// LedgerClient creates journal entries in the accounting collaborator.
// Posting mechanics (accounts, periods) belong to that service.
type LedgerClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewLedgerClient(baseURL string) *LedgerClient {
	return &LedgerClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateEntry sends a POST /entries and returns the booked entry id.
// 409 means the idempotency key was already booked and counts as success.
func (c *LedgerClient) CreateEntry(ctx context.Context, entry LedgerEntry) (*LedgerEntryResult, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("ledger: marshal entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/entries", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ledger: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", entry.IdempotencyKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger: service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusConflict:
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ledger: service returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var result LedgerEntryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ledger: decode response: %w", err)
	}
	return &result, nil
}
