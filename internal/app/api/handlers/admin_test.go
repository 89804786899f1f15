package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/carepulse/payments/internal/app/service/transaction"
	"github.com/carepulse/payments/internal/models"
	"github.com/carepulse/payments/pkg/types"
)

type scanStore struct {
	*stubStore
	scanFn   func(ctx context.Context, req *transaction.ScanRequest) (*transaction.ScanResponse, error)
	lastScan *transaction.ScanRequest
}

func (s *scanStore) Scan(ctx context.Context, req *transaction.ScanRequest) (*transaction.ScanResponse, error) {
	s.lastScan = req
	return s.scanFn(ctx, req)
}

func TestApiListTransactions(t *testing.T) {
	store := &scanStore{stubStore: newStubStore(), scanFn: func(_ context.Context, _ *transaction.ScanRequest) (*transaction.ScanResponse, error) {
		return &transaction.ScanResponse{
			Items: []*models.Transaction{
				{ID: "id-1", MerchantTransactionID: "TXN_1", UserID: "user-1", PlanID: "plan-pro", Amount: 999, BillingCycle: types.BillingCycleMonthly, Status: types.TransactionStatusSuccess},
			},
			Total: 42,
		}, nil
	}}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/admin/list_transactions", ApiListTransactions(store))

	body, _ := json.Marshal(ListTransactionsRequest{Size: 10, SortBy: "created_at", SortOrder: "desc"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/list_transactions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 10, store.lastScan.Size)
	require.Equal(t, "created_at", store.lastScan.SortBy)

	var resp struct {
		Code int                      `json:"code"`
		Data ListTransactionsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, int64(42), resp.Data.Total)
	require.Len(t, resp.Data.Items, 1)
	require.Equal(t, "TXN_1", resp.Data.Items[0].MerchantTransactionID)
	require.Equal(t, types.TransactionStatusSuccess, resp.Data.Items[0].Status)
}

func TestApiListTransactions_BadBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/admin/list_transactions", ApiListTransactions(newStubStore()))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/list_transactions", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotZero(t, resp.Code)
}
