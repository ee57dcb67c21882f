package worker

// dlq.go: dead ledger postings and award letter emails.
// One Redis list per job queue (dead:{queue}). Each entry names the posting or
// letter it was about, so an operator can act on it without decoding payloads.

import (
	"context"
	"encoding/json"
	"time"

	"nakl/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const deadPrefix = "dead:"

// DeadJob is a ledger posting or letter email the workers gave up on.
// Payload is kept only when it could not be decoded into a reference.
type DeadJob struct {
	Queue     string          `json:"queue"`
	Type      string          `json:"type"`
	PostingID string          `json:"posting_id,omitempty"`
	Reference string          `json:"reference,omitempty"`
	LetterID  string          `json:"award_letter_id,omitempty"`
	Recipient string          `json:"recipient,omitempty"`
	Cause     string          `json:"cause"`
	Attempts  int             `json:"attempts"`
	FailedAt  time.Time       `json:"failed_at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Ref is the posting or award letter ID the job was about.
func (d DeadJob) Ref() string {
	if d.PostingID != "" {
		return d.PostingID
	}
	return d.LetterID
}

// deadJobFor decodes a failed job's payload into the row it points at.
func deadJobFor(queue string, job Job, cause error, attempts int, at time.Time) DeadJob {
	d := DeadJob{
		Queue:    queue,
		Type:     job.Type,
		Cause:    cause.Error(),
		Attempts: attempts,
		FailedAt: at.UTC(),
	}
	switch job.Type {
	case JobLedger:
		var p LedgerJobPayload
		if json.Unmarshal(job.Payload, &p) == nil {
			d.PostingID = p.PostingID
		}
	case JobEmail:
		var p EmailJobPayload
		if json.Unmarshal(job.Payload, &p) == nil {
			d.LetterID = p.AwardLetterID
			d.Recipient = p.To
		}
	}
	if d.Ref() == "" {
		d.Payload = job.Payload
	}
	return d
}

// deadPosting is the entry for a posting that ran out of retries.
func deadPosting(p *model.LedgerPosting, cause error, at time.Time) DeadJob {
	return DeadJob{
		Queue:     QueueLedger,
		Type:      JobLedger,
		PostingID: p.ID.String(),
		Reference: p.ReferenceNumber,
		Cause:     cause.Error(),
		Attempts:  p.RetryCount,
		FailedAt:  at.UTC(),
	}
}

// bury records a dead job. Without Redis the entry is only logged.
func bury(ctx context.Context, rdb *redis.Client, d DeadJob) {
	data, err := json.Marshal(d)
	if err != nil {
		log.Error().Err(err).Str("queue", d.Queue).Msg("dead: failed to marshal entry")
		return
	}

	key := deadPrefix + d.Queue
	if rdb == nil {
		log.Error().Str("key", key).RawJSON("entry", data).Msg("dead: no redis, entry dropped")
		return
	}
	if err := rdb.LPush(ctx, key, data).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Str("ref", d.Ref()).Msg("dead: failed to push entry")
		return
	}

	log.Warn().
		Str("queue", d.Queue).
		Str("type", d.Type).
		Str("ref", d.Ref()).
		Str("cause", d.Cause).
		Int("attempts", d.Attempts).
		Msg("dead: job buried")
}

// DeadCount returns how many jobs of a queue were buried.
func DeadCount(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	if rdb == nil {
		return 0, nil
	}
	return rdb.LLen(ctx, deadPrefix+queue).Result()
}

