package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/carepulse/payments/internal/app/api/server"
	"github.com/carepulse/payments/internal/app/service/plan"
	"github.com/carepulse/payments/internal/app/service/reconciliation"
	"github.com/carepulse/payments/internal/app/service/statistics"
	"github.com/carepulse/payments/internal/app/service/subscription"
	"github.com/carepulse/payments/internal/app/service/transaction"
	webhooklog "github.com/carepulse/payments/internal/app/service/webhook_log"
	"github.com/carepulse/payments/internal/platform/db"
	"github.com/carepulse/payments/internal/platform/phonepe"
	"github.com/carepulse/payments/pkg/config"
	"github.com/carepulse/payments/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	phonepe.Module,
	plan.Module,
	transaction.Module,
	subscription.Module,
	reconciliation.Module,
	webhooklog.Module,
	statistics.Module,
)
