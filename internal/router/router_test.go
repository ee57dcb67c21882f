package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nakl/internal/config"
	"nakl/internal/middleware"
	"nakl/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

type apiEnv struct {
	engine *gin.Engine
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Env:             "test",
		JWTSecret:       testSecret,
		DefaultCurrency: "SAR",
		PDFStoragePath:  t.TempDir(),
	}
	return &apiEnv{engine: New(cfg, Deps{DB: testutil.NewDB(t)})}
}

func token(t *testing.T, role string) string {
	t.Helper()
	claims := middleware.JWTClaims{
		UserID: uuid.NewString(),
		Email:  role + "@nakl.test",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (e *apiEnv) do(t *testing.T, method, path, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, role))
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// data decodes the {"data": ...} envelope.
func data(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

type errorBody struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), w.Body.String())
	return e
}

func tenderBody() map[string]any {
	return map[string]any{
		"title":           "Road resurfacing, district 4",
		"estimated_value": "100000",
		"document_price":  "500",
		"items": []map[string]any{
			{"item_number": 1, "description": "Asphalt", "unit": "t", "quantity": "200", "estimated_unit_price": "400"},
		},
		"milestones": []map[string]any{
			{"milestone_number": 1, "title": "Mobilisation", "percentage": "30"},
			{"milestone_number": 2, "title": "Handover", "percentage": "70"},
		},
	}
}

type tenderJSON struct {
	ID           string `json:"id"`
	TenderNumber string `json:"tender_number"`
	Status       string `json:"status"`
	Currency     string `json:"currency"`
}

func (e *apiEnv) createTender(t *testing.T) tenderJSON {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/tenders", middleware.RoleProcurement, tenderBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tender tenderJSON
	data(t, w, &tender)
	return tender
}

func (e *apiEnv) transition(t *testing.T, id, status string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/tenders/"+id+"/transition", middleware.RoleProcurement, map[string]string{"status": status})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t)
	w := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "disabled", body["redis"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestAuthAndRoles(t *testing.T) {
	env := newAPIEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/tenders", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/api/tenders", middleware.RoleFinance, tenderBody()).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/tenders", "auditor", nil).Code)
	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/tenders", middleware.RoleAdmin, tenderBody()).Code)
}

func TestCreateAndListTenders(t *testing.T) {
	env := newAPIEnv(t)
	first := env.createTender(t)
	env.createTender(t)

	assert.Equal(t, "TND-000001", first.TenderNumber)
	assert.Equal(t, "DRAFT", first.Status)
	assert.Equal(t, "SAR", first.Currency)

	w := env.do(t, http.MethodGet, "/api/tenders?limit=1&sort_by=tender_number&sort_order=asc", middleware.RoleEvaluator, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page struct {
		Data       []tenderJSON `json:"data"`
		Pagination struct {
			Page       int   `json:"page"`
			Limit      int   `json:"limit"`
			Total      int64 `json:"total"`
			TotalPages int   `json:"total_pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, first.ID, page.Data[0].ID)
	assert.EqualValues(t, 2, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
}

func TestErrorEnvelopes(t *testing.T) {
	env := newAPIEnv(t)

	t.Run("validation lists fields", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/tenders", middleware.RoleProcurement, map[string]any{"title": "x", "type": "SECRET"})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		e := decodeError(t, w)
		assert.Equal(t, "VALIDATION", e.Kind)
		assert.Contains(t, e.Fields, "Title")
		assert.Contains(t, e.Fields, "Type")
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/tenders", bytes.NewBufferString("{"))
		req.Header.Set("Authorization", "Bearer "+token(t, middleware.RoleProcurement))
		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad path id", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/tenders/nope", middleware.RoleProcurement, nil).Code)
	})

	t.Run("not found carries kind", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/tenders/"+uuid.NewString(), middleware.RoleProcurement, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", decodeError(t, w).Kind)
	})

	t.Run("skipped transition is a conflict", func(t *testing.T) {
		tender := env.createTender(t)
		w := env.do(t, http.MethodPost, "/api/tenders/"+tender.ID+"/transition", middleware.RoleProcurement, map[string]string{"status": "AWARDED"})
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "INVALID_TRANSITION", decodeError(t, w).Kind)
	})
}

func TestPurchaseGatesBidding(t *testing.T) {
	env := newAPIEnv(t)
	tender := env.createTender(t)
	env.transition(t, tender.ID, "PUBLISHED")
	env.transition(t, tender.ID, "SUBMISSION_OPEN")

	vendor := uuid.NewString()
	base := "/api/tenders/" + tender.ID

	bid := map[string]any{"vendor_id": vendor, "total_amount": "95000"}
	w := env.do(t, http.MethodPost, base+"/submit-bid", middleware.RoleProcurement, bid)
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	assert.Equal(t, "DOCUMENTS_NOT_PURCHASED", decodeError(t, w).Kind)

	w = env.do(t, http.MethodPost, base+"/purchase-documents", middleware.RoleFinance,
		map[string]any{"vendor_id": vendor, "amount": "499", "payment_method": "CASH"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "PRICE_MISMATCH", decodeError(t, w).Kind)

	w = env.do(t, http.MethodPost, base+"/purchase-documents", middleware.RoleFinance,
		map[string]any{"vendor_id": vendor, "amount": "500", "payment_method": "CASH"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, base+"/access?vendor_id="+vendor, middleware.RoleEvaluator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var access struct {
		HasAccess bool `json:"has_access"`
	}
	data(t, w, &access)
	assert.True(t, access.HasAccess)

	w = env.do(t, http.MethodPost, base+"/submit-bid", middleware.RoleProcurement, bid)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		BidNumber string `json:"bid_number"`
		Status    string `json:"status"`
	}
	data(t, w, &created)
	assert.Equal(t, "BID-000001", created.BidNumber)
	assert.Equal(t, "SUBMITTED", created.Status)

	// the referenced tender can no longer be deleted
	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodDelete, base, middleware.RoleAdmin, nil).Code)
}

func TestReportRoutesAreNotTenderIDs(t *testing.T) {
	env := newAPIEnv(t)
	env.createTender(t)

	for _, path := range []string{
		"/api/tenders/reports/summary",
		"/api/tenders/reports/bid-analysis",
		"/api/tenders/reports/vendor-performance",
		"/api/tenders/reports/milestone-progress",
		"/api/tenders/reports/financial-summary",
		"/api/tenders/stats",
	} {
		w := env.do(t, http.MethodGet, path, middleware.RoleFinance, nil)
		assert.Equal(t, http.StatusOK, w.Code, path+": "+w.Body.String())
	}

	w := env.do(t, http.MethodGet, "/api/tenders/reports/summary?start_date=15-02-2026", middleware.RoleFinance, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
