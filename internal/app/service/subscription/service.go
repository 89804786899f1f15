package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carepulse/payments/internal/models"
	"github.com/carepulse/payments/pkg/logctx"
	"github.com/carepulse/payments/pkg/tool"
	"github.com/carepulse/payments/pkg/types"
)

// Activator grants the entitlement for a successful transaction, at most once
// per transaction id.
type Activator interface {
	Activate(ctx context.Context, userID, planID, transactionID string, cycle types.BillingCycle) (*models.Subscription, error)
	ExistsForTransaction(ctx context.Context, transactionID string) (bool, error)
	GetActiveForUser(ctx context.Context, userID string) (*models.Subscription, error)
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	now func() time.Time
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) Activator {
	return &Service{db: db, log: log, now: time.Now}
}

// Activate creates the subscription for a transaction. The webhook and the
// redirect callback can both reach this concurrently for the same
// transaction; the existence check alone is a race window, so the real guard
// is the unique index on transaction_id. An insert that loses the race is
// treated as "already activated" and returns the winner's row.
func (s *Service) Activate(ctx context.Context, userID, planID, transactionID string, cycle types.BillingCycle) (*models.Subscription, error) {
	if existing, err := s.getByTransaction(ctx, transactionID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	start := s.now()
	sub := &models.Subscription{
		ID:            tool.GenerateUUIDV7(),
		UserID:        userID,
		PlanID:        planID,
		TransactionID: transactionID,
		BillingCycle:  cycle,
		StartDate:     start,
		EndDate:       periodEnd(start, cycle),
		Status:        types.SubscriptionStatusActive,
	}
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		if isUniqueViolation(err) {
			logctx.FromCtx(ctx, s.log).Infow("subscription_already_activated",
				"transaction_id", transactionID)
			existing, lookupErr := s.getByTransaction(ctx, transactionID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return sub, nil
}

func (s *Service) ExistsForTransaction(ctx context.Context, transactionID string) (bool, error) {
	existing, err := s.getByTransaction(ctx, transactionID)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

func (s *Service) GetActiveForUser(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND end_date > ?", userID, types.SubscriptionStatusActive, s.now()).
		Order("end_date desc").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load active subscription: %w", err)
	}
	return &sub, nil
}

func (s *Service) getByTransaction(ctx context.Context, transactionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
