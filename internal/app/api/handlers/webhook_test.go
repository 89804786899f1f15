package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carepulse/payments/internal/app/service/reconciliation"
	"github.com/carepulse/payments/internal/app/service/transaction"
	"github.com/carepulse/payments/internal/models"
	"github.com/carepulse/payments/internal/platform/phonepe"
	"github.com/carepulse/payments/pkg/types"
)

func webhookRouter(rec *stubReconciler, logs *stubRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/payment/webhook", ApiPaymentWebhook(testConfig(), rec, logs, zap.NewNop().Sugar()))
	return r
}

func webhookBody(t *testing.T, mtid, state, code string) []byte {
	t.Helper()
	var payload phonepe.WebhookPayload
	payload.Success = true
	payload.Code = code
	payload.Data.MerchantID = "M1"
	payload.Data.MerchantTransactionID = mtid
	payload.Data.State = state
	payload.Data.ResponseCode = code
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return b
}

// signWebhook builds a valid X-VERIFY header the way the provider would.
func signWebhook(mtid string) string {
	cfg := testConfig()
	digest := phonepe.Sign(nil, phonepe.StatusPath(cfg.PhonePe.MerchantID, mtid), cfg.PhonePe.SaltKey)
	return phonepe.Header(digest, cfg.PhonePe.SaltIndex)
}

func postWebhook(r *gin.Engine, body []byte, verify string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if verify != "" {
		req.Header.Set("X-VERIFY", verify)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestApiPaymentWebhook_Success(t *testing.T) {
	rec := &stubReconciler{}
	logs := &stubRecorder{}
	r := webhookRouter(rec, logs)

	body := webhookBody(t, "TXN_1", phonepe.StateCompleted, phonepe.CodePaymentSuccess)
	w := postWebhook(r, body, signWebhook("TXN_1"))

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"SUCCESS"}`, w.Body.String())

	require.Len(t, rec.applied, 1)
	require.Equal(t, types.ReconciliationSourceWebhook, rec.applied[0].Source)
	require.Equal(t, phonepe.StateCompleted, rec.applied[0].State)

	// delivery is logged on receipt and again after handling
	require.Len(t, logs.saved, 2)
	require.Equal(t, models.WebhookLogStatusReceived, logs.saved[0].Status)
	require.Equal(t, models.WebhookLogStatusHandled, logs.saved[1].Status)
}

func TestApiPaymentWebhook_FailedPayment(t *testing.T) {
	rec := &stubReconciler{applyFn: func(_ context.Context, _ *reconciliation.Observation) (*reconciliation.Outcome, error) {
		return &reconciliation.Outcome{Status: types.TransactionStatusFailed}, nil
	}}
	r := webhookRouter(rec, &stubRecorder{})

	body := webhookBody(t, "TXN_1", phonepe.StateFailed, phonepe.CodePaymentError)
	w := postWebhook(r, body, signWebhook("TXN_1"))

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"PAYMENT_FAILED"}`, w.Body.String())
}

func TestApiPaymentWebhook_InvalidPayload(t *testing.T) {
	rec := &stubReconciler{}
	logs := &stubRecorder{}
	r := webhookRouter(rec, logs)

	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("not-json")},
		{"missing transaction id", []byte(`{"success":true,"data":{}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postWebhook(r, tt.body, signWebhook("TXN_1"))
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.JSONEq(t, `{"status":"INVALID_PAYLOAD"}`, w.Body.String())
		})
	}
	require.Empty(t, rec.applied)
	require.Empty(t, logs.saved)
}

func TestApiPaymentWebhook_BadSignature(t *testing.T) {
	rec := &stubReconciler{}
	logs := &stubRecorder{}
	r := webhookRouter(rec, logs)

	body := webhookBody(t, "TXN_1", phonepe.StateCompleted, phonepe.CodePaymentSuccess)

	tests := []struct {
		name   string
		verify string
	}{
		{"missing header", ""},
		{"malformed header", "deadbeef"},
		{"wrong digest", phonepe.Header("0000", "1")},
		{"signed for another transaction", signWebhook("TXN_other")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postWebhook(r, body, tt.verify)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			require.JSONEq(t, `{"status":"UNAUTHORIZED"}`, w.Body.String())
		})
	}
	require.Empty(t, rec.applied)
	require.Empty(t, logs.saved)
}

func TestApiPaymentWebhook_UnknownTransaction(t *testing.T) {
	rec := &stubReconciler{applyFn: func(_ context.Context, obs *reconciliation.Observation) (*reconciliation.Outcome, error) {
		return nil, fmt.Errorf("%w: %s", transaction.ErrTransactionNotFound, obs.MerchantTransactionID)
	}}
	logs := &stubRecorder{}
	r := webhookRouter(rec, logs)

	body := webhookBody(t, "TXN_ghost", phonepe.StateCompleted, phonepe.CodePaymentSuccess)
	w := postWebhook(r, body, signWebhook("TXN_ghost"))

	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"status":"TRANSACTION_NOT_FOUND"}`, w.Body.String())

	// the failed handling is still logged
	require.Len(t, logs.saved, 2)
	require.Equal(t, models.WebhookLogStatusHandleFailed, logs.saved[1].Status)
}

func TestApiPaymentWebhook_RedeliveryIsIdempotent(t *testing.T) {
	applies := 0
	rec := &stubReconciler{applyFn: func(_ context.Context, _ *reconciliation.Observation) (*reconciliation.Outcome, error) {
		applies++
		// subsequent deliveries observe the already-settled row
		return &reconciliation.Outcome{Status: types.TransactionStatusSuccess, Transitioned: applies == 1}, nil
	}}
	r := webhookRouter(rec, &stubRecorder{})

	body := webhookBody(t, "TXN_1", phonepe.StateCompleted, phonepe.CodePaymentSuccess)
	for i := 0; i < 3; i++ {
		w := postWebhook(r, body, signWebhook("TXN_1"))
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"status":"SUCCESS"}`, w.Body.String())
	}
	require.Equal(t, 3, applies)
}
