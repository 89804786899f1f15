package phonepe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/carepulse/payments/pkg/config"
	"github.com/carepulse/payments/pkg/logctx"
)

const payPath = "/pg/v1/pay"

var (
	// ErrBadGatewayResponse marks a provider response that violates the
	// documented contract (unparsable body, missing redirect URL).
	ErrBadGatewayResponse = errors.New("phonepe: malformed gateway response")
	// ErrGatewayTimeout marks a timed-out provider call. Timeout is not
	// failure: the payment may have succeeded, so callers must not mark the
	// transaction failed on this error alone.
	ErrGatewayTimeout = errors.New("phonepe: gateway timeout")
)

// Client talks to the PhonePe payment gateway. Initiation calls are never
// retried here: replaying a pay request risks double-charging. Status checks
// are idempotent and safe to retry.
type Client struct {
	baseURL     string
	merchantID  string
	saltKey     string
	saltIndex   string
	redirectURL string
	callbackURL string
	httpClient  *http.Client
	log         *zap.SugaredLogger
}

func NewClient(cfg *cfgpkg.Config, log *zap.SugaredLogger) *Client {
	timeout := cfg.PhonePe.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     cfg.PhonePe.BaseURL,
		merchantID:  cfg.PhonePe.MerchantID,
		saltKey:     cfg.PhonePe.SaltKey,
		saltIndex:   cfg.PhonePe.SaltIndex,
		redirectURL: cfg.PhonePe.RedirectURL,
		callbackURL: cfg.PhonePe.CallbackURL,
		httpClient:  &http.Client{Timeout: timeout},
		log:         log,
	}
}

func (c *Client) MerchantID() string { return c.merchantID }

type InitiateRequest struct {
	MerchantTransactionID string
	UserID                string
	Amount                int64
	PlanName              string
}

type InitiateResult struct {
	RedirectURL string
}

// Initiate builds, signs and submits the pay request, returning the hosted
// payment page URL the user should be redirected to.
func (c *Client) Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error) {
	payload := &payRequest{
		MerchantID:            c.merchantID,
		MerchantTransactionID: req.MerchantTransactionID,
		MerchantUserID:        req.UserID,
		Amount:                req.Amount,
		RedirectURL:           c.redirectTarget(req.MerchantTransactionID),
		RedirectMode:          "REDIRECT",
		CallbackURL:           c.callbackURL,
		PaymentInstrument:     paymentInstrument{Type: "PAY_PAGE"},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pay payload: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(raw)
	body, err := json.Marshal(&payRequestEnvelope{Request: encoded})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pay envelope: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+payPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build pay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", Header(Sign(raw, payPath, c.saltKey), c.saltIndex))

	var out InitiateResponse
	if err := c.do(ctx, httpReq, &out); err != nil {
		return nil, err
	}
	if !out.Success || out.redirectURL() == "" {
		logctx.FromCtx(ctx, c.log).Errorw("phonepe_initiate_bad_response",
			"code", out.Code, "message", out.Message,
			"merchant_transaction_id", req.MerchantTransactionID)
		return nil, fmt.Errorf("%w: code=%s", ErrBadGatewayResponse, out.Code)
	}
	return &InitiateResult{RedirectURL: out.redirectURL()}, nil
}

// CheckStatus queries the provider's authoritative view of a payment.
func (c *Client) CheckStatus(ctx context.Context, merchantTransactionID string) (*ProviderStatus, error) {
	path := StatusPath(c.merchantID, merchantTransactionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", Header(Sign(nil, path, c.saltKey), c.saltIndex))
	httpReq.Header.Set("X-MERCHANT-ID", c.merchantID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.wrapTransportErr(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status=%d", ErrBadGatewayResponse, resp.StatusCode)
	}

	var out StatusResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadGatewayResponse, err)
	}
	if out.Data.State == "" {
		return nil, fmt.Errorf("%w: missing state", ErrBadGatewayResponse)
	}
	return &ProviderStatus{
		MerchantTransactionID: merchantTransactionID,
		Code:                  out.Data.ResponseCode,
		State:                 out.Data.State,
		Raw:                   raw,
	}, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.wrapTransportErr(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status=%d", ErrBadGatewayResponse, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadGatewayResponse, err)
	}
	return nil
}

func (c *Client) wrapTransportErr(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
	}
	return fmt.Errorf("gateway request failed: %w", err)
}

func (c *Client) redirectTarget(merchantTransactionID string) string {
	u, err := url.Parse(c.redirectURL)
	if err != nil {
		return c.redirectURL
	}
	q := u.Query()
	q.Set("merchantTransactionId", merchantTransactionID)
	u.RawQuery = q.Encode()
	return u.String()
}
