package service

import (
	"context"
	"errors"
	"time"

	"nakl/internal/apierror"
	"nakl/internal/model"
	"nakl/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// EventPublisher receives tender lifecycle events after commit.
// *infra.NATSPublisher implements it; a nil publisher drops events.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// Lifecycle event names, published as "tenders.<name>".
const (
	EventTenderCreated       = "created"
	EventTenderStatusChanged = "status_changed"
	EventDocumentsPurchased  = "documents_purchased"
	EventBidSubmitted        = "bid_submitted"
	EventTenderAwarded       = "awarded"
	EventWorkOrderCreated    = "work_order_created"
	EventAwardLetterChanged  = "award_letter_changed"
	EventAssignmentCreated   = "assignment_created"
)

// ── Number allocation ────────────────────────────────────────────────────────

const defaultAllocationAttempts = 3

// Allocator hands out business numbers and re-runs whole operations that
// lost a race against a concurrent writer.
type Allocator struct {
	seq         repository.SequenceRepository
	maxAttempts int
}

func NewAllocator(seq repository.SequenceRepository, maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = defaultAllocationAttempts
	}
	return &Allocator{seq: seq, maxAttempts: maxAttempts}
}

// Next commits the counter increment in its own short transaction, so the
// counter row is never locked across the caller's write.
func (a *Allocator) Next(ctx context.Context, series model.Series) (string, error) {
	number, err := a.seq.Next(ctx, nil, series)
	if err != nil {
		if repository.IsConflict(err) {
			return "", apierror.Wrap(apierror.KindAllocationConflict, err, "could not allocate "+string(series)+" number")
		}
		return "", err
	}
	return number, nil
}

// Retry runs op until it succeeds, fails with a non-conflict error, or the
// attempts are used up. Conflicts past the last attempt surface as
// AllocationConflict.
func (a *Allocator) Retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		err = fn()
		if err == nil || !isRetryable(err) {
			return err
		}
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("allocation conflict, retrying")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	if apierror.Is(err, apierror.KindAllocationConflict) {
		return err
	}
	return apierror.Wrap(apierror.KindAllocationConflict, err, op+": concurrent update, please retry")
}

func isRetryable(err error) bool {
	if apierror.Is(err, apierror.KindAllocationConflict) {
		return true
	}
	var domain *apierror.Error
	if errors.As(err, &domain) {
		return false
	}
	return repository.IsConflict(err)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// notFound maps gorm's not-found sentinel to a NotFound domain error and
// passes every other error through.
func notFound(err error, what string) error {
	if repository.IsNotFound(err) {
		return apierror.NotFound(what)
	}
	return err
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierror.Errorf(apierror.KindValidation, "%s must be a valid uuid", field)
	}
	return id, nil
}

func utcNow() time.Time { return time.Now().UTC() }

// postingGrace delays the retry cron's first look at a new posting so the
// queue worker gets to it first.
const postingGrace = 2 * time.Minute

func newLedgerPosting(kind string, refID uuid.UUID, refNumber string, tenderID uuid.UUID, amount decimal.Decimal, currency, description string) *model.LedgerPosting {
	due := utcNow().Add(postingGrace)
	return &model.LedgerPosting{
		Kind:            kind,
		ReferenceID:     refID,
		ReferenceNumber: refNumber,
		TenderID:        tenderID,
		Amount:          amount,
		Currency:        currency,
		Description:     description,
		Status:          model.PostingPending,
		NextRetryAt:     &due,
	}
}
