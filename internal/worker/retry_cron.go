package worker

// retry_cron.go
// Background goroutine that periodically re-drives ledger postings stuck in
// status='pending' with a next_retry_at in the past. Uses the Circuit
// Breaker to avoid hammering a downed ledger service.

import (
	"context"
	"fmt"
	"time"

	"nakl/internal/infra"
	"nakl/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	Postings     repository.LedgerPostingRepository
	LedgerClient *infra.LedgerClient
	CB           *infra.CircuitBreaker
	RDB          *redis.Client
	Interval     time.Duration
}

// StartRetryCron launches a background goroutine that ticks every 30s,
// queries due postings, and re-attempts them through the CB.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = retryTickInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg, time.Now().UTC())
			}
		}
	}()
}

// processRetries runs one tick and returns how many postings were booked.
func processRetries(ctx context.Context, cfg RetryCronConfig, now time.Time) int {
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return 0
	}

	postings, err := cfg.Postings.FindDue(ctx, now, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query due postings")
		return 0
	}
	if len(postings) == 0 {
		return 0
	}

	log.Info().Int("count", len(postings)).Msg("retry_cron: processing pending postings")

	posted := 0
	for i := range postings {
		p := &postings[i]

		// The breaker may have tripped mid-batch
		if cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return posted
		}

		if err := postThroughBreaker(ctx, cfg.CB, cfg.LedgerClient, p); err != nil {
			if recordFailure(ctx, cfg.Postings, p, err) {
				log.Error().
					Str("posting_id", p.ID.String()).
					Str("reference", p.ReferenceNumber).
					Int("retries", p.RetryCount).
					Msg("retry_cron: max retries exceeded, posting failed")
				bury(ctx, cfg.RDB, deadPosting(p,
					fmt.Errorf("max retries (%d) exceeded: %w", MaxPostingRetries, err), now))
			} else {
				log.Warn().
					Str("posting_id", p.ID.String()).
					Int("retry_count", p.RetryCount).
					Time("next_retry_at", *p.NextRetryAt).
					Msg("retry_cron: ledger retry failed, scheduled next attempt")
			}
			continue
		}

		if err := cfg.Postings.Update(ctx, p); err != nil {
			log.Error().Err(err).Str("posting_id", p.ID.String()).Msg("retry_cron: failed to save posted entry")
			continue
		}
		posted++
		log.Info().
			Str("posting_id", p.ID.String()).
			Int("total_retries", p.RetryCount).
			Msg("retry_cron: entry posted after retry")
	}
	return posted
}
