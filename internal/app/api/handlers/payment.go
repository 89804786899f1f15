package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/carepulse/payments/internal/app/service/plan"
	"github.com/carepulse/payments/internal/app/service/transaction"
	"github.com/carepulse/payments/internal/platform/phonepe"
	"github.com/carepulse/payments/pkg/logctx"
	"github.com/carepulse/payments/pkg/tool"
	"github.com/carepulse/payments/pkg/types"
)

// PaymentGateway is the provider surface the payment handlers need. The
// concrete implementation is the PhonePe client.
type PaymentGateway interface {
	Initiate(ctx context.Context, req *phonepe.InitiateRequest) (*phonepe.InitiateResult, error)
	CheckStatus(ctx context.Context, merchantTransactionID string) (*phonepe.ProviderStatus, error)
}

type InitiatePaymentRequest struct {
	PlanName     string             `json:"planName" binding:"required"`
	BillingCycle types.BillingCycle `json:"billingCycle" binding:"required"`
}

type InitiatePaymentResponse struct {
	Success               bool   `json:"success"`
	PaymentURL            string `json:"paymentUrl"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	Amount                int64  `json:"amount"`
	Plan                  string `json:"plan"`
}

type ContactSalesResponse struct {
	RedirectToContact bool `json:"redirectToContact"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// @Summary      Initiate Payment
// @Description  Creates a pending transaction for the selected plan and returns the provider's hosted payment page URL.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Purchasing user id (set by the fronting gateway)"
// @Param        request body InitiatePaymentRequest true "Plan selection"
// @Success      200  {object}  InitiatePaymentResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Router       /api/v1/payment/initiate [post]
func ApiInitiatePayment(plans plan.Catalog, txns transaction.Store, gw PaymentGateway, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InitiatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		if !req.BillingCycle.Valid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "billingCycle must be monthly or yearly"})
			return
		}
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing X-User-ID header"})
			return
		}

		ctx := c.Request.Context()
		p, err := plans.GetByName(ctx, req.PlanName)
		if err != nil {
			if errors.Is(err, plan.ErrPlanNotFound) {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "plan not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
		if p.ContactSales {
			// Enterprise tiers are sold offline; nothing is created and the
			// provider is never contacted.
			c.JSON(http.StatusOK, ContactSalesResponse{RedirectToContact: true})
			return
		}

		amount := p.PriceFor(req.BillingCycle)
		merchantTxnID := tool.GenerateMerchantTransactionID()

		// The local row must exist before the provider is contacted, so the
		// provider can never reference a transaction we do not know.
		txn, err := txns.Create(ctx, userID, p.ID, merchantTxnID, amount, req.BillingCycle)
		if err != nil {
			if errors.Is(err, transaction.ErrDuplicateTransaction) {
				c.JSON(http.StatusConflict, ErrorResponse{Error: "transaction already submitted, poll status instead"})
				return
			}
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}

		res, err := gw.Initiate(ctx, &phonepe.InitiateRequest{
			MerchantTransactionID: merchantTxnID,
			UserID:                userID,
			Amount:                amount,
			PlanName:              p.Name,
		})
		if err != nil {
			// Initiation is never retried: a replayed pay request risks a
			// double charge. Mark the attempt failed and surface the error.
			if _, _, uerr := txns.UpdateStatus(ctx, merchantTxnID, types.TransactionStatusFailed, nil); uerr != nil {
				logctx.FromGin(c, log).Errorw("initiate_mark_failed_error",
					"merchant_transaction_id", merchantTxnID, "error", uerr.Error())
			}
			if errors.Is(err, phonepe.ErrBadGatewayResponse) {
				c.JSON(http.StatusBadGateway, ErrorResponse{Error: "payment gateway returned an invalid response"})
				return
			}
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to initiate payment"})
			return
		}

		logctx.FromGin(c, log).Infow("payment_initiated",
			"merchant_transaction_id", merchantTxnID, "plan", p.Name,
			"amount", amount, "user_id", userID)

		c.JSON(http.StatusOK, InitiatePaymentResponse{
			Success:               true,
			PaymentURL:            res.RedirectURL,
			MerchantTransactionID: txn.MerchantTransactionID,
			Amount:                amount,
			Plan:                  p.Name,
		})
	}
}

type PaymentStatusResponse struct {
	MerchantTransactionID string                  `json:"merchantTransactionId"`
	Status                types.TransactionStatus `json:"status"`
	Amount                int64                   `json:"amount"`
	PlanID                string                  `json:"planId"`
	BillingCycle          types.BillingCycle      `json:"billingCycle"`
}

// @Summary      Payment Status
// @Description  Returns the local view of a payment attempt. Clients poll this after a conflict or a timed-out redirect.
// @Tags         Payment
// @Produce      json
// @Param        merchantTransactionId path string true "Merchant transaction id"
// @Success      200  {object}  PaymentStatusResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/payment/status/{merchantTransactionId} [get]
func ApiPaymentStatus(txns transaction.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		txn, err := txns.GetByMerchantTransactionID(c.Request.Context(), c.Param("merchantTransactionId"))
		if err != nil {
			if errors.Is(err, transaction.ErrTransactionNotFound) {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "transaction not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, PaymentStatusResponse{
			MerchantTransactionID: txn.MerchantTransactionID,
			Status:                txn.Status,
			Amount:                txn.Amount,
			PlanID:                txn.PlanID,
			BillingCycle:          txn.BillingCycle,
		})
	}
}
