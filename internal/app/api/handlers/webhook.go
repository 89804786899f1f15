package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/carepulse/payments/internal/app/service/reconciliation"
	"github.com/carepulse/payments/internal/app/service/transaction"
	"github.com/carepulse/payments/internal/models"
	"github.com/carepulse/payments/internal/platform/phonepe"
	cfgpkg "github.com/carepulse/payments/pkg/config"
	"github.com/carepulse/payments/pkg/logctx"
	"github.com/carepulse/payments/pkg/types"
)

// WebhookRecorder persists webhook delivery logs. The concrete implementation
// is the webhook_log service; it must never block or fail the response.
type WebhookRecorder interface {
	Save(ctx context.Context, row *models.WebhookLog)
}

type WebhookResponse struct {
	Status string `json:"status"`
}

const (
	webhookStatusSuccess       = "SUCCESS"
	webhookStatusPaymentFailed = "PAYMENT_FAILED"
	webhookStatusPending       = "PENDING"
	webhookStatusInvalid       = "INVALID_PAYLOAD"
	webhookStatusNotFound      = "TRANSACTION_NOT_FOUND"
	webhookStatusUnauthorized  = "UNAUTHORIZED"
	webhookStatusError         = "ERROR"
)

// @Summary      Payment Webhook
// @Description  Server-to-server notification from the provider. Idempotent under redelivery; the X-VERIFY signature is checked before the payload is trusted.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        X-VERIFY header string true "Provider checksum header"
// @Param        payload body phonepe.WebhookPayload true "Provider notification"
// @Success      200  {object}  WebhookResponse
// @Failure      400  {object}  WebhookResponse
// @Failure      401  {object}  WebhookResponse
// @Failure      404  {object}  WebhookResponse
// @Router       /api/v1/payment/webhook [post]
func ApiPaymentWebhook(cfg *cfgpkg.Config, rec reconciliation.Reconciler, logs WebhookRecorder, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, WebhookResponse{Status: webhookStatusInvalid})
			return
		}

		var payload phonepe.WebhookPayload
		if err := json.Unmarshal(raw, &payload); err != nil || payload.Data.MerchantTransactionID == "" {
			logctx.FromGin(c, log).Warnw("webhook_invalid_payload")
			c.JSON(http.StatusBadRequest, WebhookResponse{Status: webhookStatusInvalid})
			return
		}
		merchantTxnID := payload.Data.MerchantTransactionID

		if err := phonepe.VerifyStatusHeader(c.GetHeader("X-VERIFY"), cfg.PhonePe.MerchantID, merchantTxnID, cfg.PhonePe.SaltKey); err != nil {
			// An unauthentic notification is rejected outright, never
			// processed "just in case".
			logctx.FromGin(c, log).Warnw("webhook_bad_signature",
				"merchant_transaction_id", merchantTxnID)
			c.JSON(http.StatusUnauthorized, WebhookResponse{Status: webhookStatusUnauthorized})
			return
		}

		traceID := c.GetString("traceID")
		logs.Save(c.Request.Context(), &models.WebhookLog{
			TraceID:               traceID,
			MerchantTransactionID: merchantTxnID,
			Data:                  datatypes.JSON(raw),
			Status:                models.WebhookLogStatusReceived,
		})

		outcome, err := rec.Apply(c.Request.Context(), &reconciliation.Observation{
			MerchantTransactionID: merchantTxnID,
			Code:                  payload.Data.ResponseCode,
			State:                 payload.Data.State,
			Source:                types.ReconciliationSourceWebhook,
			Raw:                   raw,
		})

		resp, httpStatus := webhookResult(outcome, err)
		logs.Save(c.Request.Context(), &models.WebhookLog{
			TraceID:               traceID,
			MerchantTransactionID: merchantTxnID,
			Data:                  datatypes.JSON(raw),
			Result:                resultJSON(resp, err),
			Status: func() models.WebhookLogStatus {
				if err != nil {
					return models.WebhookLogStatusHandleFailed
				}
				return models.WebhookLogStatusHandled
			}(),
		})

		if err != nil {
			logctx.FromGin(c, log).Errorw("webhook_handle_error",
				"merchant_transaction_id", merchantTxnID, "error", err.Error())
		}
		c.JSON(httpStatus, resp)
	}
}

func webhookResult(outcome *reconciliation.Outcome, err error) (WebhookResponse, int) {
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound) {
			return WebhookResponse{Status: webhookStatusNotFound}, http.StatusNotFound
		}
		return WebhookResponse{Status: webhookStatusError}, http.StatusInternalServerError
	}
	switch outcome.Status {
	case types.TransactionStatusSuccess:
		return WebhookResponse{Status: webhookStatusSuccess}, http.StatusOK
	case types.TransactionStatusFailed:
		return WebhookResponse{Status: webhookStatusPaymentFailed}, http.StatusOK
	default:
		return WebhookResponse{Status: webhookStatusPending}, http.StatusOK
	}
}

func resultJSON(resp WebhookResponse, err error) *datatypes.JSON {
	m := map[string]any{"status": resp.Status}
	if err != nil {
		m["error"] = err.Error()
	}
	b, _ := json.Marshal(m)
	j := datatypes.JSON(b)
	return &j
}
