package worker

// ledger_worker.go
// Posts DOCUMENT_REVENUE and WORK_ORDER_COMMITMENT outbox rows to the
// ledger service. Three attempts with backoff; what still fails stays
// pending for the retry cron.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nakl/internal/infra"
	"nakl/internal/model"
	"nakl/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	ledgerAttempts    = 3
	MaxPostingRetries = 8
)

// LedgerWorker processes jobs from QueueLedger.
type LedgerWorker struct {
	postings repository.LedgerPostingRepository
	client   *infra.LedgerClient
	cb       *infra.CircuitBreaker
}

func NewLedgerWorker(postings repository.LedgerPostingRepository, client *infra.LedgerClient, cb *infra.CircuitBreaker) *LedgerWorker {
	return &LedgerWorker{postings: postings, client: client, cb: cb}
}

// Process loads the posting and sends it to the ledger. Posting failures
// are recorded on the row and are not returned; only a malformed payload
// is buried.
func (w *LedgerWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload LedgerJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("ledger_worker: invalid payload: %w", err)
	}
	id, err := uuid.Parse(payload.PostingID)
	if err != nil {
		return fmt.Errorf("ledger_worker: invalid posting_id %q", payload.PostingID)
	}

	posting, err := w.postings.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("ledger_worker: load posting %s: %w", id, err)
	}
	if posting.Status != model.PostingPending {
		return nil
	}

	postErr := withRetry(ctx, ledgerAttempts, func(attempt int) error {
		err := postThroughBreaker(ctx, w.cb, w.client, posting)
		if err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("posting_id", payload.PostingID).
				Msg("ledger_worker: attempt failed")
		}
		return err
	})
	if postErr != nil {
		recordFailure(ctx, w.postings, posting, postErr)
		return nil
	}
	if err := w.postings.Update(ctx, posting); err != nil {
		log.Error().Err(err).Str("posting_id", payload.PostingID).Msg("ledger_worker: failed to save posted entry")
		return nil
	}
	log.Info().
		Str("posting_id", payload.PostingID).
		Str("reference", posting.ReferenceNumber).
		Msg("ledger_worker: entry posted")
	return nil
}

// postThroughBreaker sends one entry and, on success, marks the posting as
// posted in memory. The caller persists it.
func postThroughBreaker(ctx context.Context, cb *infra.CircuitBreaker, client *infra.LedgerClient, p *model.LedgerPosting) error {
	entry := infra.LedgerEntry{
		IdempotencyKey:  p.ID.String(),
		Kind:            p.Kind,
		ReferenceNumber: p.ReferenceNumber,
		TenderID:        p.TenderID.String(),
		Amount:          p.Amount,
		Currency:        p.Currency,
		Description:     p.Description,
		OccurredAt:      p.CreatedAt,
	}
	var result *infra.LedgerEntryResult
	err := cb.Execute(func() error {
		r, err := client.CreateEntry(ctx, entry)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	p.Status = model.PostingPosted
	p.PostedAt = &now
	p.NextRetryAt = nil
	p.LastError = nil
	if result != nil && result.EntryID != "" {
		entryID := result.EntryID
		p.ExternalEntryID = &entryID
	}
	return nil
}

// recordFailure bumps the retry counter and schedules the next attempt.
// Past MaxPostingRetries the posting is marked failed; the caller decides
// whether to bury it.
func recordFailure(ctx context.Context, repo repository.LedgerPostingRepository, p *model.LedgerPosting, cause error) bool {
	p.RetryCount++
	msg := cause.Error()
	p.LastError = &msg
	exhausted := p.RetryCount >= MaxPostingRetries
	if exhausted {
		p.Status = model.PostingFailed
		p.NextRetryAt = nil
	} else {
		next := time.Now().UTC().Add(computeRetryBackoff(p.RetryCount))
		p.NextRetryAt = &next
	}
	if err := repo.Update(ctx, p); err != nil {
		log.Error().Err(err).Str("posting_id", p.ID.String()).Msg("ledger: failed to record posting failure")
	}
	return exhausted
}

// computeRetryBackoff: 1m, 2m, 4m ... capped at 1h.
func computeRetryBackoff(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	if retryCount > 7 {
		return time.Hour
	}
	d := time.Duration(1<<uint(retryCount-1)) * time.Minute
	if d > time.Hour {
		return time.Hour
	}
	return d
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * retryUnit
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			if errors.Is(err, infra.ErrCircuitOpen) {
				return err
			}
			continue
		}
		return nil
	}
	return lastErr
}

// retryUnit is the base backoff step; tests shrink it.
var retryUnit = time.Second
