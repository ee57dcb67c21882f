//go:build integration

package router

// End-to-end run of the award pipeline against real Postgres and Redis.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"context"
	"net/http"
	"testing"
	"time"

	"nakl/internal/config"
	"nakl/internal/infra"
	"nakl/internal/middleware"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupContainers(t *testing.T) *apiEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("nakl_test"),
		tcPostgres.WithUsername("nakl"),
		tcPostgres.WithPassword("nakl"),
		testcontainers.WithWaitStrategy(
			tcPostgres.BasicWaitStrategies()...,
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                   "test",
		DBDriver:              "postgres",
		DatabaseURL:           pgURL,
		RedisURL:              rdURL,
		JWTSecret:             testSecret,
		DefaultCurrency:       "SAR",
		PDFStoragePath:        t.TempDir(),
		ReportCacheTTLSeconds: 30,
	}

	require.NoError(t, infra.MigrateUp(cfg.DatabaseURL))
	db, err := infra.NewDatabase(cfg.DBDriver, cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	return &apiEnv{engine: New(cfg, Deps{DB: db, Redis: rdb})}
}

func TestE2E_AwardPipeline(t *testing.T) {
	env := setupContainers(t)
	tender := env.createTender(t)
	base := "/api/tenders/" + tender.ID
	env.transition(t, tender.ID, "PUBLISHED")
	env.transition(t, tender.ID, "SUBMISSION_OPEN")

	// 1. Two vendors buy documents and bid
	bidIDs := make([]string, 0, 2)
	for _, amount := range []string{"90000", "97000"} {
		vendor := uuid.NewString()
		w := env.do(t, http.MethodPost, base+"/purchase-documents", middleware.RoleFinance,
			map[string]any{"vendor_id": vendor, "amount": "500", "payment_method": "BANK_TRANSFER"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = env.do(t, http.MethodPost, base+"/submit-bid", middleware.RoleProcurement,
			map[string]any{"vendor_id": vendor, "total_amount": amount})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var bid struct {
			ID string `json:"id"`
		}
		data(t, w, &bid)
		bidIDs = append(bidIDs, bid.ID)
	}

	// 2. Evaluate and award the cheaper bid
	env.transition(t, tender.ID, "UNDER_EVALUATION")
	w := env.do(t, http.MethodPost, base+"/award", middleware.RoleProcurement, map[string]any{"bid_id": bidIDs[0]})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, base+"/award", middleware.RoleProcurement, map[string]any{"bid_id": bidIDs[1]})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 3. Award letter: create, issue, accept
	w = env.do(t, http.MethodPost, "/api/award-letters", middleware.RoleProcurement,
		map[string]any{"tender_id": tender.ID, "bid_id": bidIDs[0], "validity_days": 30})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var letter struct {
		ID           string `json:"id"`
		LetterNumber string `json:"letter_number"`
		Status       string `json:"status"`
	}
	data(t, w, &letter)
	assert.Equal(t, "AWD-000001", letter.LetterNumber)

	for _, step := range []string{"issue", "accept"} {
		w = env.do(t, http.MethodPost, "/api/award-letters/"+letter.ID+"/"+step, middleware.RoleProcurement, nil)
		require.Equal(t, http.StatusOK, w.Code, step+": "+w.Body.String())
	}
	data(t, w, &letter)
	assert.Equal(t, "ACCEPTED", letter.Status)

	w = env.do(t, http.MethodGet, "/api/award-letters/"+letter.ID+"/pdf", middleware.RoleEvaluator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	// 4. Assignment with the default schedule, then pay the first installment
	w = env.do(t, http.MethodPost, "/api/assignments", middleware.RoleProcurement, map[string]any{
		"award_letter_id": letter.ID,
		"customer_id":     uuid.NewString(),
		"start_date":      time.Now().UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var asg struct {
		ID               string  `json:"id"`
		AssignmentNumber string  `json:"assignment_number"`
		WorkOrderID      *string `json:"work_order_id"`
		PaymentSchedule  []struct {
			Status string `json:"status"`
		} `json:"payment_schedule"`
	}
	data(t, w, &asg)
	assert.Equal(t, "ASG-000001", asg.AssignmentNumber)
	require.NotNil(t, asg.WorkOrderID)
	require.NotEmpty(t, asg.PaymentSchedule)

	w = env.do(t, http.MethodPost, "/api/assignments/"+asg.ID+"/payments/1/paid", middleware.RoleFinance, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data(t, w, &asg)
	assert.Equal(t, "PAID", asg.PaymentSchedule[0].Status)

	// 5. Tender is now in progress; reports see the pipeline and cache it
	w = env.do(t, http.MethodGet, base, middleware.RoleEvaluator, nil)
	data(t, w, &tender)
	assert.Equal(t, "WORK_IN_PROGRESS", tender.Status)

	for i := 0; i < 2; i++ {
		w = env.do(t, http.MethodGet, "/api/tenders/reports/financial-summary", middleware.RoleFinance, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var fin struct {
			TendersAwarded  int    `json:"tenders_awarded"`
			DocumentRevenue string `json:"document_revenue"`
			Savings         string `json:"savings"`
		}
		data(t, w, &fin)
		assert.Equal(t, 1, fin.TendersAwarded)
		assert.Equal(t, "1000", fin.DocumentRevenue)
		assert.Equal(t, "10000", fin.Savings)
	}

	w = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Contains(t, w.Body.String(), `"redis":"connected"`)
}

func TestE2E_ConcurrentAwardsHaveOneWinner(t *testing.T) {
	env := setupContainers(t)
	tender := env.createTender(t)
	base := "/api/tenders/" + tender.ID
	env.transition(t, tender.ID, "PUBLISHED")
	env.transition(t, tender.ID, "SUBMISSION_OPEN")

	var bidIDs []string
	for i := 0; i < 4; i++ {
		vendor := uuid.NewString()
		w := env.do(t, http.MethodPost, base+"/purchase-documents", middleware.RoleFinance,
			map[string]any{"vendor_id": vendor, "amount": "500", "payment_method": "CASH"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		w = env.do(t, http.MethodPost, base+"/submit-bid", middleware.RoleProcurement,
			map[string]any{"vendor_id": vendor, "total_amount": "95000"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var bid struct {
			ID string `json:"id"`
		}
		data(t, w, &bid)
		bidIDs = append(bidIDs, bid.ID)
	}
	env.transition(t, tender.ID, "UNDER_EVALUATION")

	codes := make(chan int, len(bidIDs))
	for _, id := range bidIDs {
		go func(id string) {
			codes <- env.do(t, http.MethodPost, base+"/award", middleware.RoleProcurement, map[string]any{"bid_id": id}).Code
		}(id)
	}
	ok := 0
	for range bidIDs {
		if <-codes == http.StatusOK {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
}
