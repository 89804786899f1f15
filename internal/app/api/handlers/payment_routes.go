package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/carepulse/payments/internal/app/service/plan"
	"github.com/carepulse/payments/internal/app/service/reconciliation"
	"github.com/carepulse/payments/internal/app/service/transaction"
	cfgpkg "github.com/carepulse/payments/pkg/config"
)

// RegisterPaymentRoutes mounts the payment lifecycle endpoints: initiation,
// the two reconciliation entry points, and the client-facing status poll.
func RegisterPaymentRoutes(
	r gin.IRouter,
	cfg *cfgpkg.Config,
	plans plan.Catalog,
	txns transaction.Store,
	gw PaymentGateway,
	rec reconciliation.Reconciler,
	logs WebhookRecorder,
	log *zap.SugaredLogger,
) {
	r.POST("/initiate", ApiInitiatePayment(plans, txns, gw, log))
	r.GET("/callback", ApiPaymentCallback(cfg, txns, gw, rec, log))
	r.POST("/webhook", ApiPaymentWebhook(cfg, rec, logs, log))
	r.GET("/status/:merchantTransactionId", ApiPaymentStatus(txns))
}
