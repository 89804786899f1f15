package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/carepulse/payments/internal/app/service/reconciliation"
	"github.com/carepulse/payments/internal/app/service/transaction"
	"github.com/carepulse/payments/internal/platform/phonepe"
	cfgpkg "github.com/carepulse/payments/pkg/config"
	"github.com/carepulse/payments/pkg/logctx"
	"github.com/carepulse/payments/pkg/types"
)

// Failure reason codes carried on the failure redirect.
const (
	reasonInvalidRequest      = "INVALID_REQUEST"
	reasonTransactionNotFound = "TRANSACTION_NOT_FOUND"
	reasonPending             = "PENDING"
	reasonGatewayError        = "GATEWAY_ERROR"
	reasonPaymentFailed       = "PAYMENT_FAILED"
)

// @Summary      Payment Redirect Callback
// @Description  Browser return target after the hosted payment page. Always responds with a redirect to the success or failure page, never JSON.
// @Tags         Payment
// @Param        merchantTransactionId query string true "Merchant transaction id"
// @Success      302
// @Router       /api/v1/payment/callback [get]
func ApiPaymentCallback(cfg *cfgpkg.Config, txns transaction.Store, gw PaymentGateway, rec reconciliation.Reconciler, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantTxnID := c.Query("merchantTransactionId")
		if merchantTxnID == "" {
			redirectFailure(c, cfg, reasonInvalidRequest)
			return
		}

		ctx := c.Request.Context()
		if _, err := txns.GetByMerchantTransactionID(ctx, merchantTxnID); err != nil {
			// Fail closed: an id we never issued is not reconciled and the
			// provider is not contacted.
			logctx.FromGin(c, log).Warnw("callback_unknown_transaction",
				"merchant_transaction_id", merchantTxnID)
			redirectFailure(c, cfg, reasonTransactionNotFound)
			return
		}

		// Query params arrive from the user's browser and are never trusted
		// for financial state; the provider's status API is authoritative.
		status, err := gw.CheckStatus(ctx, merchantTxnID)
		if err != nil {
			if errors.Is(err, phonepe.ErrGatewayTimeout) {
				// A timed-out status check proves nothing: the payment may
				// have succeeded. Leave the row pending for the webhook or a
				// later re-check and tell the user to wait.
				logctx.FromGin(c, log).Warnw("callback_status_timeout",
					"merchant_transaction_id", merchantTxnID)
				redirectFailure(c, cfg, reasonPending)
				return
			}
			logctx.FromGin(c, log).Errorw("callback_status_error",
				"merchant_transaction_id", merchantTxnID, "error", err.Error())
			redirectFailure(c, cfg, reasonGatewayError)
			return
		}

		outcome, err := rec.Apply(ctx, &reconciliation.Observation{
			MerchantTransactionID: merchantTxnID,
			Code:                  status.Code,
			State:                 status.State,
			Source:                types.ReconciliationSourceCallback,
			Raw:                   status.Raw,
		})
		if err != nil {
			logctx.FromGin(c, log).Errorw("callback_reconcile_error",
				"merchant_transaction_id", merchantTxnID, "error", err.Error())
			redirectFailure(c, cfg, reasonGatewayError)
			return
		}

		switch outcome.Status {
		case types.TransactionStatusSuccess:
			redirectSuccess(c, cfg, merchantTxnID)
		case types.TransactionStatusFailed:
			reason := status.Code
			if reason == "" {
				reason = reasonPaymentFailed
			}
			redirectFailure(c, cfg, reason)
		default:
			redirectFailure(c, cfg, reasonPending)
		}
	}
}

func redirectSuccess(c *gin.Context, cfg *cfgpkg.Config, merchantTxnID string) {
	c.Redirect(http.StatusFound, withQuery(cfg.Pages.PaymentSuccessURL, "txnId", merchantTxnID))
}

func redirectFailure(c *gin.Context, cfg *cfgpkg.Config, reason string) {
	c.Redirect(http.StatusFound, withQuery(cfg.Pages.PaymentFailureURL, "reason", reason))
}

func withQuery(base, key, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
