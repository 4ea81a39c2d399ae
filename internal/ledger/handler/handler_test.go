package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocktrackerst/stock-tracker/internal/auth"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/ledgertest"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/usecase"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/watch"
	"github.com/stocktrackerst/stock-tracker/pkg/logger"
)

const tenant = "tenant-1"

func newTestRouter(t *testing.T) (*gin.Engine, *ledgertest.FakeRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := ledgertest.NewFakeRepository()
	hub := watch.NewHub(repo, logger.NewNop())
	uc := usecase.NewLedgerUseCase(repo, hub, logger.NewNop())
	h := NewLedgerHandler(uc, hub, logger.NewNop())

	r := gin.New()
	h.RegisterRoutes(r, func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		auth.SetTenantID(c, tenant)
	})
	return r, repo
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMovementRequiresAuth(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/movements/order", strings.NewReader(`{"model":"M1","quantity":1}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrderEndToEnd(t *testing.T) {
	r, repo := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/movements/order",
		`{"model":"M1","category":"Pumps","quantity":10,"supplier":"Acme","billNo":"B-7"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Balance struct {
			Model     string `json:"model"`
			Category  string `json:"category"`
			Ordered   int64  `json:"ordered"`
			Available int64  `json:"available"`
		} `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "M1", resp.Balance.Model)
	assert.Equal(t, "Pumps", resp.Balance.Category)
	assert.Equal(t, int64(10), resp.Balance.Ordered)
	assert.Equal(t, int64(0), resp.Balance.Available)

	bal, err := repo.GetBalance(context.Background(), tenant, "M1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), bal.Ordered)
}

func TestDispatchLinkedToBooking(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/movements/receive", `{"model":"M1","quantity":10}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodPost, "/v1/movements/book", `{"model":"M1","quantity":4,"status":"Hold","bookingId":"BK-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodPost, "/v1/movements/dispatch", `{"model":"M1","quantity":4,"linkedBookingId":"BK-1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Balance struct {
			Booked     int64 `json:"booked"`
			Dispatched int64 `json:"dispatched"`
			Available  int64 `json:"available"`
		} `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(0), resp.Balance.Booked)
	assert.Equal(t, int64(4), resp.Balance.Dispatched)
	assert.Equal(t, int64(6), resp.Balance.Available)
}

func TestInvalidQuantityRejectedWith400(t *testing.T) {
	r, repo := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/movements/receive", `{"model":"M1","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/movements/receive", `{"model":"","quantity":5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	bals, err := repo.ListBalances(context.Background(), tenant)
	require.NoError(t, err)
	assert.Empty(t, bals)
}

func TestMalformedBodyRejectedWith400(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/movements/order", `{"quantity":"ten"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListBalancesSortedByModel(t *testing.T) {
	r, _ := newTestRouter(t)

	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/v1/movements/order", `{"model":"Zeta","quantity":1}`).Code)
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/v1/movements/order", `{"model":"Alpha","quantity":2}`).Code)

	w := doJSON(t, r, http.MethodGet, "/v1/balances", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Balances []struct {
			Model string `json:"model"`
		} `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Balances, 2)
	assert.Equal(t, "Alpha", resp.Balances[0].Model)
	assert.Equal(t, "Zeta", resp.Balances[1].Model)
}

func TestGetBalanceUnknownModelReadsAsZero(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/v1/balances/M9", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Balance struct {
			Model     string `json:"model"`
			Ordered   int64  `json:"ordered"`
			Available int64  `json:"available"`
		} `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "M9", resp.Balance.Model)
	assert.Equal(t, int64(0), resp.Balance.Ordered)
	assert.Equal(t, int64(0), resp.Balance.Available)
}

func TestListMovementsRequiresKnownType(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/v1/movements?type=refund", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/v1/movements", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListMovementsReturnsAppendedEvents(t *testing.T) {
	r, _ := newTestRouter(t)

	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/v1/movements/order",
		`{"model":"M1","quantity":3,"supplier":"Acme"}`).Code)

	w := doJSON(t, r, http.MethodGet, "/v1/movements?type=order&model=M1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Movements []struct {
			Model    string `json:"model"`
			Quantity int64  `json:"quantity"`
			Supplier string `json:"supplier"`
		} `json:"movements"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "M1", resp.Movements[0].Model)
	assert.Equal(t, int64(3), resp.Movements[0].Quantity)
	assert.Equal(t, "Acme", resp.Movements[0].Supplier)
}
