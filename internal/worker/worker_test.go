package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nakl/internal/infra"
	"nakl/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Stub repository ──────────────────────────────────────────────────────────

type stubPostingRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.LedgerPosting
}

func newStubPostingRepo(ps ...model.LedgerPosting) *stubPostingRepo {
	r := &stubPostingRepo{rows: map[uuid.UUID]model.LedgerPosting{}}
	for _, p := range ps {
		r.rows[p.ID] = p
	}
	return r
}

func (r *stubPostingRepo) Create(_ context.Context, _ *gorm.DB, p *model.LedgerPosting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.ID] = *p
	return nil
}

func (r *stubPostingRepo) FindByID(_ context.Context, id uuid.UUID) (*model.LedgerPosting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *stubPostingRepo) Update(_ context.Context, p *model.LedgerPosting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.ID] = *p
	return nil
}

func (r *stubPostingRepo) FindDue(_ context.Context, now time.Time, limit int) ([]model.LedgerPosting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.LedgerPosting
	for _, p := range r.rows {
		if p.Status == model.PostingPending && p.NextRetryAt != nil && !p.NextRetryAt.After(now) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *stubPostingRepo) get(id uuid.UUID) model.LedgerPosting {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

func newPosting(nextRetry *time.Time) model.LedgerPosting {
	return model.LedgerPosting{
		ID:              uuid.New(),
		Kind:            model.PostingDocumentRevenue,
		ReferenceID:     uuid.New(),
		ReferenceNumber: "DOC-000001",
		TenderID:        uuid.New(),
		Amount:          decimal.NewFromInt(500),
		Currency:        "SAR",
		Description:     "Tender documents TND-000001",
		Status:          model.PostingPending,
		NextRetryAt:     nextRetry,
		CreatedAt:       time.Now().UTC(),
	}
}

func ledgerServer(t *testing.T, status int, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/entries", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		w.WriteHeader(status)
		if status < 300 || status == http.StatusConflict {
			_ = json.NewEncoder(w).Encode(infra.LedgerEntryResult{EntryID: "JE-1", Status: "booked"})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func payloadFor(t *testing.T, id uuid.UUID) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(LedgerJobPayload{PostingID: id.String()})
	require.NoError(t, err)
	return raw
}

func init() { retryUnit = time.Millisecond }

// ── Ledger worker ────────────────────────────────────────────────────────────

func TestLedgerWorker_PostsPendingEntry(t *testing.T) {
	var calls int32
	srv := ledgerServer(t, http.StatusCreated, &calls)
	p := newPosting(nil)
	repo := newStubPostingRepo(p)
	w := NewLedgerWorker(repo, infra.NewLedgerClient(srv.URL), infra.NewCircuitBreaker(infra.DefaultCBConfig()))

	require.NoError(t, w.Process(context.Background(), payloadFor(t, p.ID)))

	got := repo.get(p.ID)
	assert.Equal(t, model.PostingPosted, got.Status)
	require.NotNil(t, got.ExternalEntryID)
	assert.Equal(t, "JE-1", *got.ExternalEntryID)
	assert.NotNil(t, got.PostedAt)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestLedgerWorker_ConflictCountsAsPosted(t *testing.T) {
	var calls int32
	srv := ledgerServer(t, http.StatusConflict, &calls)
	p := newPosting(nil)
	repo := newStubPostingRepo(p)
	w := NewLedgerWorker(repo, infra.NewLedgerClient(srv.URL), infra.NewCircuitBreaker(infra.DefaultCBConfig()))

	require.NoError(t, w.Process(context.Background(), payloadFor(t, p.ID)))
	assert.Equal(t, model.PostingPosted, repo.get(p.ID).Status)
}

func TestLedgerWorker_FailureSchedulesRetry(t *testing.T) {
	var calls int32
	srv := ledgerServer(t, http.StatusInternalServerError, &calls)
	p := newPosting(nil)
	repo := newStubPostingRepo(p)
	w := NewLedgerWorker(repo, infra.NewLedgerClient(srv.URL), infra.NewCircuitBreaker(infra.DefaultCBConfig()))

	require.NoError(t, w.Process(context.Background(), payloadFor(t, p.ID)))

	got := repo.get(p.ID)
	assert.Equal(t, model.PostingPending, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	require.NotNil(t, got.NextRetryAt)
	assert.True(t, got.NextRetryAt.After(time.Now().UTC()))
	require.NotNil(t, got.LastError)
	assert.EqualValues(t, ledgerAttempts, atomic.LoadInt32(&calls))
}

func TestLedgerWorker_SkipsAlreadyPosted(t *testing.T) {
	var calls int32
	srv := ledgerServer(t, http.StatusCreated, &calls)
	p := newPosting(nil)
	p.Status = model.PostingPosted
	repo := newStubPostingRepo(p)
	w := NewLedgerWorker(repo, infra.NewLedgerClient(srv.URL), infra.NewCircuitBreaker(infra.DefaultCBConfig()))

	require.NoError(t, w.Process(context.Background(), payloadFor(t, p.ID)))
	assert.EqualValues(t, 0, atomic.LoadInt32(&calls))
}

func TestLedgerWorker_InvalidPayload(t *testing.T) {
	w := NewLedgerWorker(newStubPostingRepo(), infra.NewLedgerClient("http://unused"), infra.NewCircuitBreaker(infra.DefaultCBConfig()))
	assert.Error(t, w.Process(context.Background(), json.RawMessage(`{"posting_id":"nope"}`)))
	assert.Error(t, w.Process(context.Background(), json.RawMessage(`not json`)))
}

// ── Retry cron ───────────────────────────────────────────────────────────────

func TestProcessRetries_PostsDueOnly(t *testing.T) {
	var calls int32
	srv := ledgerServer(t, http.StatusCreated, &calls)
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	due := newPosting(&past)
	notYet := newPosting(&future)
	repo := newStubPostingRepo(due, notYet)

	cfg := RetryCronConfig{
		Postings:     repo,
		LedgerClient: infra.NewLedgerClient(srv.URL),
		CB:           infra.NewCircuitBreaker(infra.DefaultCBConfig()),
	}
	posted := processRetries(context.Background(), cfg, now)

	assert.Equal(t, 1, posted)
	assert.Equal(t, model.PostingPosted, repo.get(due.ID).Status)
	assert.Equal(t, model.PostingPending, repo.get(notYet.ID).Status)
}

func TestProcessRetries_MarksFailedAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := ledgerServer(t, http.StatusBadGateway, &calls)
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	p := newPosting(&past)
	p.RetryCount = MaxPostingRetries - 1
	repo := newStubPostingRepo(p)

	cfg := RetryCronConfig{
		Postings:     repo,
		LedgerClient: infra.NewLedgerClient(srv.URL),
		CB:           infra.NewCircuitBreaker(infra.DefaultCBConfig()),
	}
	assert.Equal(t, 0, processRetries(context.Background(), cfg, now))

	got := repo.get(p.ID)
	assert.Equal(t, model.PostingFailed, got.Status)
	assert.Nil(t, got.NextRetryAt)
}

func TestProcessRetries_SkipsWhenBreakerOpen(t *testing.T) {
	var calls int32
	srv := ledgerServer(t, http.StatusCreated, &calls)
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	p := newPosting(&past)
	repo := newStubPostingRepo(p)

	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, OpenTimeout: time.Hour})
	_ = cb.Execute(func() error { return assert.AnError })
	require.Equal(t, infra.CBOpen, cb.State())

	cfg := RetryCronConfig{Postings: repo, LedgerClient: infra.NewLedgerClient(srv.URL), CB: cb}
	assert.Equal(t, 0, processRetries(context.Background(), cfg, now))
	assert.EqualValues(t, 0, atomic.LoadInt32(&calls))
	assert.Equal(t, model.PostingPending, repo.get(p.ID).Status)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func TestComputeRetryBackoff(t *testing.T) {
	assert.Equal(t, time.Minute, computeRetryBackoff(1))
	assert.Equal(t, 2*time.Minute, computeRetryBackoff(2))
	assert.Equal(t, 4*time.Minute, computeRetryBackoff(3))
	assert.Equal(t, time.Hour, computeRetryBackoff(20))
}

func TestWithRetry_StopsOnSuccess(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 3, func(int) error {
		attempts++
		if attempts < 2 {
			return assert.AnError
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWithRetry_StopsOnOpenBreaker(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 3, func(int) error {
		attempts++
		return infra.ErrCircuitOpen
	})
	assert.ErrorIs(t, err, infra.ErrCircuitOpen)
	assert.Equal(t, 1, attempts)
}

func TestDispatcher_NilIsNoop(t *testing.T) {
	var d *Dispatcher
	assert.NoError(t, d.EnqueueLedger(context.Background(), uuid.New()))
	assert.NoError(t, NewDispatcher(nil).EnqueueEmail(context.Background(), EmailJobPayload{To: "a@b.c"}))
}

// ── Dead jobs ────────────────────────────────────────────────────────────────

func TestDeadJobFor_NamesThePostingOrLetter(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.FixedZone("AST", 3*3600))
	postingID := uuid.New().String()
	letterID := uuid.New().String()

	ledger, _ := json.Marshal(LedgerJobPayload{PostingID: postingID})
	d := deadJobFor(QueueLedger, Job{Type: JobLedger, Payload: ledger}, errors.New("ledger down"), 1, at)
	assert.Equal(t, postingID, d.Ref())
	assert.Equal(t, QueueLedger, d.Queue)
	assert.Equal(t, "ledger down", d.Cause)
	assert.Equal(t, time.UTC, d.FailedAt.Location())
	assert.Nil(t, d.Payload, "decoded jobs drop the raw payload")

	email, _ := json.Marshal(EmailJobPayload{AwardLetterID: letterID, To: "vendor@example.com"})
	d = deadJobFor(QueueEmail, Job{Type: JobEmail, Payload: email}, errors.New("smtp refused"), 1, at)
	assert.Equal(t, letterID, d.LetterID)
	assert.Equal(t, letterID, d.Ref())
	assert.Equal(t, "vendor@example.com", d.Recipient)
	assert.Empty(t, d.PostingID)
}

func TestDeadJobFor_KeepsUndecodablePayload(t *testing.T) {
	raw := json.RawMessage(`"not an object"`)
	d := deadJobFor(QueueEmail, Job{Type: JobEmail, Payload: raw}, errors.New("bad payload"), 1, time.Now())
	assert.Empty(t, d.Ref())
	assert.JSONEq(t, string(raw), string(d.Payload))
}

func TestDeadPosting_CarriesReferenceAndRetries(t *testing.T) {
	p := newPosting(nil)
	p.RetryCount = MaxPostingRetries
	d := deadPosting(&p, errors.New("max retries exceeded"), time.Now())

	assert.Equal(t, JobLedger, d.Type)
	assert.Equal(t, p.ID.String(), d.PostingID)
	assert.Equal(t, "DOC-000001", d.Reference)
	assert.Equal(t, MaxPostingRetries, d.Attempts)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"reference":"DOC-000001"`)
	assert.NotContains(t, string(data), "award_letter_id")
}

func TestBury_WithoutRedis(t *testing.T) {
	assert.NotPanics(t, func() {
		bury(context.Background(), nil, deadPosting(&model.LedgerPosting{ID: uuid.New()}, errors.New("x"), time.Now()))
	})
	n, err := DeadCount(context.Background(), nil, QueueLedger)
	require.NoError(t, err)
	assert.Zero(t, n)
}
