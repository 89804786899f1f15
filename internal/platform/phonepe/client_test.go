package phonepe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/carepulse/payments/pkg/config"
)

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) *Client {
	t.Helper()
	cfg := &cfgpkg.Config{}
	cfg.PhonePe = cfgpkg.PhonePeConfig{
		BaseURL:     baseURL,
		MerchantID:  "M1",
		SaltKey:     "salt-key",
		SaltIndex:   "1",
		Timeout:     timeout,
		RedirectURL: "https://app.example.com/api/v1/payment/callback",
		CallbackURL: "https://app.example.com/api/v1/payment/webhook",
	}
	return NewClient(cfg, zap.NewNop().Sugar())
}

func TestInitiate_SignsAndExtractsRedirectURL(t *testing.T) {
	var gotVerify string
	var gotPayload payRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, payPath, r.URL.Path)
		gotVerify = r.Header.Get("X-VERIFY")

		var env payRequestEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		raw, err := base64.StdEncoding.DecodeString(env.Request)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &gotPayload))

		// header digest must match a recomputation over the decoded payload
		require.Equal(t, Header(Sign(raw, payPath, "salt-key"), "1"), gotVerify)

		_, _ = w.Write([]byte(`{"success":true,"code":"PAYMENT_INITIATED","data":{"merchantId":"M1","merchantTransactionId":"TXN_1","instrumentResponse":{"type":"PAY_PAGE","redirectInfo":{"url":"https://pay.example.com/redirect/xyz","method":"GET"}}}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 5*time.Second)
	res, err := c.Initiate(context.Background(), &InitiateRequest{
		MerchantTransactionID: "TXN_1",
		UserID:                "user-1",
		Amount:                999,
		PlanName:              "Pro",
	})
	require.NoError(t, err)
	require.Equal(t, "https://pay.example.com/redirect/xyz", res.RedirectURL)

	require.Equal(t, "M1", gotPayload.MerchantID)
	require.Equal(t, "TXN_1", gotPayload.MerchantTransactionID)
	require.Equal(t, int64(999), gotPayload.Amount)
	require.Equal(t, "REDIRECT", gotPayload.RedirectMode)
	require.Equal(t, "PAY_PAGE", gotPayload.PaymentInstrument.Type)
	require.Contains(t, gotPayload.RedirectURL, "merchantTransactionId=TXN_1")
	require.Equal(t, "https://app.example.com/api/v1/payment/webhook", gotPayload.CallbackURL)
}

func TestInitiate_MissingRedirectURLIsBadGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"code":"PAYMENT_INITIATED","data":{"merchantId":"M1"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 5*time.Second)
	_, err := c.Initiate(context.Background(), &InitiateRequest{MerchantTransactionID: "TXN_1", UserID: "u", Amount: 1})
	require.ErrorIs(t, err, ErrBadGatewayResponse)
}

func TestInitiate_Non2xxIsBadGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 5*time.Second)
	_, err := c.Initiate(context.Background(), &InitiateRequest{MerchantTransactionID: "TXN_1", UserID: "u", Amount: 1})
	require.ErrorIs(t, err, ErrBadGatewayResponse)
}

func TestCheckStatus_ParsesProviderState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/pg/v1/status/M1/TXN_1", r.URL.Path)
		require.Equal(t, "M1", r.Header.Get("X-MERCHANT-ID"))
		require.Equal(t, Header(Sign(nil, "/pg/v1/status/M1/TXN_1", "salt-key"), "1"), r.Header.Get("X-VERIFY"))

		_, _ = w.Write([]byte(`{"success":true,"code":"PAYMENT_SUCCESS","data":{"merchantTransactionId":"TXN_1","state":"COMPLETED","responseCode":"SUCCESS","amount":999}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 5*time.Second)
	status, err := c.CheckStatus(context.Background(), "TXN_1")
	require.NoError(t, err)
	require.Equal(t, "COMPLETED", status.State)
	require.Equal(t, "SUCCESS", status.Code)
	require.Equal(t, "TXN_1", status.MerchantTransactionID)
	require.NotEmpty(t, status.Raw)
}

func TestCheckStatus_MissingStateFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"code":"PAYMENT_SUCCESS","data":{}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 5*time.Second)
	_, err := c.CheckStatus(context.Background(), "TXN_1")
	require.ErrorIs(t, err, ErrBadGatewayResponse)
}

func TestCheckStatus_TimeoutIsDistinctFromFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 50*time.Millisecond)
	_, err := c.CheckStatus(context.Background(), "TXN_1")
	require.ErrorIs(t, err, ErrGatewayTimeout)
	require.NotErrorIs(t, err, ErrBadGatewayResponse)
}
