package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/carepulse/payments/internal/app/service/subscription"
	"github.com/carepulse/payments/internal/app/service/transaction"
	"github.com/carepulse/payments/internal/models"
	"github.com/carepulse/payments/pkg/logctx"
	"github.com/carepulse/payments/pkg/types"
)

var outcomeCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "payment_reconciliation_outcomes_total",
	Help: "Reconciliation outcomes partitioned by notification source and settled status.",
}, []string{"source", "status"})

// Observation is one provider-reported view of a payment, delivered by either
// the webhook or the redirect callback.
type Observation struct {
	MerchantTransactionID string
	Code                  string
	State                 string
	Source                types.ReconciliationSource
	Raw                   json.RawMessage
}

// Outcome is the settled local state after applying an observation.
type Outcome struct {
	Transaction *models.Transaction
	// Status is the transaction status after the observation was applied. It
	// reflects the stored row, which on a conflicting late observation is the
	// earlier writer's status, not the observation's.
	Status types.TransactionStatus
	// Transitioned is true when this observation performed the pending →
	// terminal write (as opposed to replaying or losing to an earlier one).
	Transitioned bool
}

// Reconciler applies provider observations to the transaction state machine.
// Both notification paths funnel through it, so arrival order and duplication
// do not matter: the first terminal write wins, replays are no-ops, and the
// subscription for a success is activated exactly once.
type Reconciler interface {
	Apply(ctx context.Context, obs *Observation) (*Outcome, error)
}

type Service struct {
	txns transaction.Store
	subs subscription.Activator
	log  *zap.SugaredLogger
}

func NewService(txns transaction.Store, subs subscription.Activator, log *zap.SugaredLogger) Reconciler {
	return &Service{txns: txns, subs: subs, log: log}
}

func (s *Service) Apply(ctx context.Context, obs *Observation) (*Outcome, error) {
	if obs == nil || obs.MerchantTransactionID == "" {
		return nil, fmt.Errorf("observation missing merchant transaction id")
	}
	log := logctx.FromCtx(ctx, s.log)

	desired, terminal := terminalStatusFor(obs.State, obs.Code)
	if !terminal {
		// Provider still reports pending: leave the row untouched. A later
		// webhook or status re-check is the authoritative signal.
		txn, err := s.txns.GetByMerchantTransactionID(ctx, obs.MerchantTransactionID)
		if err != nil {
			return nil, err
		}
		log.Infow("reconcile_observation_pending",
			"merchant_transaction_id", obs.MerchantTransactionID,
			"source", obs.Source, "state", obs.State)
		return &Outcome{Transaction: txn, Status: txn.Status}, nil
	}

	txn, transitioned, err := s.txns.UpdateStatus(ctx, obs.MerchantTransactionID, desired, datatypes.JSON(obs.Raw))
	if err != nil {
		if !errors.Is(err, transaction.ErrStatusConflict) {
			return nil, err
		}
		// An earlier terminal write disagrees with this observation. The
		// stored status stands; record the conflict and carry on with it.
		log.Warnw("reconcile_terminal_conflict",
			"merchant_transaction_id", obs.MerchantTransactionID,
			"source", obs.Source, "stored", txn.Status, "observed", desired)
	}

	if txn.Status == types.TransactionStatusSuccess {
		if _, err := s.subs.Activate(ctx, txn.UserID, txn.PlanID, txn.ID, txn.BillingCycle); err != nil {
			return nil, fmt.Errorf("failed to activate subscription: %w", err)
		}
	}

	outcomeCounter.WithLabelValues(string(obs.Source), string(txn.Status)).Inc()
	log.Infow("reconcile_applied",
		"merchant_transaction_id", obs.MerchantTransactionID,
		"source", obs.Source, "status", txn.Status, "transitioned", transitioned)

	return &Outcome{Transaction: txn, Status: txn.Status, Transitioned: transitioned}, nil
}

// terminalStatusFor maps a provider lifecycle state (with the response code as
// a fallback) to the local terminal status. A false second return means the
// observation is not terminal and nothing should be written.
func terminalStatusFor(state, code string) (types.TransactionStatus, bool) {
	switch state {
	case "COMPLETED":
		return types.TransactionStatusSuccess, true
	case "FAILED", "EXPIRED", "DECLINED":
		return types.TransactionStatusFailed, true
	case "PENDING":
		return types.TransactionStatusPending, false
	}
	switch code {
	case "SUCCESS", "PAYMENT_SUCCESS":
		return types.TransactionStatusSuccess, true
	case "PAYMENT_ERROR":
		return types.TransactionStatusFailed, true
	}
	return types.TransactionStatusPending, false
}
