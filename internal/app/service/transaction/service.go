package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/carepulse/payments/internal/models"
	"github.com/carepulse/payments/pkg/logctx"
	"github.com/carepulse/payments/pkg/tool"
	"github.com/carepulse/payments/pkg/types"
)

// Store is the single mutation path for transaction state. All status writes
// go through UpdateStatus; nothing else may touch the status column.
type Store interface {
	Create(ctx context.Context, userID, planID, merchantTransactionID string, amount int64, cycle types.BillingCycle) (*models.Transaction, error)
	// UpdateStatus returns the stored row and whether this call performed the
	// pending → terminal transition (false on an idempotent replay).
	UpdateStatus(ctx context.Context, merchantTransactionID string, status types.TransactionStatus, details datatypes.JSON) (*models.Transaction, bool, error)
	GetByMerchantTransactionID(ctx context.Context, merchantTransactionID string) (*models.Transaction, error)
	Scan(ctx context.Context, req *ScanRequest) (*ScanResponse, error)
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) Store {
	return &Service{db: db, log: log}
}

// Create inserts a pending transaction. The unique index on
// merchant_transaction_id rejects double submission of the same purchase
// attempt; that surfaces as ErrDuplicateTransaction.
func (s *Service) Create(ctx context.Context, userID, planID, merchantTransactionID string, amount int64, cycle types.BillingCycle) (*models.Transaction, error) {
	txn := &models.Transaction{
		ID:                    tool.GenerateUUIDV7(),
		MerchantTransactionID: merchantTransactionID,
		UserID:                userID,
		PlanID:                planID,
		Amount:                amount,
		BillingCycle:          cycle,
		Status:                types.TransactionStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTransaction, merchantTransactionID)
		}
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return txn, nil
}

// UpdateStatus transitions a pending transaction to a terminal status and
// attaches the raw provider payload. The write is conditional on the current
// status still being pending, which makes the first terminal writer win:
//   - replaying the same terminal status is a no-op returning the stored row;
//   - a later conflicting terminal status returns ErrStatusConflict and the
//     stored row, and never flips the status.
func (s *Service) UpdateStatus(ctx context.Context, merchantTransactionID string, status types.TransactionStatus, details datatypes.JSON) (*models.Transaction, bool, error) {
	if !status.Terminal() {
		return nil, false, fmt.Errorf("non-terminal status %q is not a valid transition target", status)
	}

	updates := map[string]any{"status": status}
	if len(details) > 0 {
		updates["payment_details"] = details
	}
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("merchant_transaction_id = ? AND status = ?", merchantTransactionID, types.TransactionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to update transaction status: %w", res.Error)
	}

	txn, err := s.GetByMerchantTransactionID(ctx, merchantTransactionID)
	if err != nil {
		return nil, false, err
	}

	if res.RowsAffected == 0 && txn.Status != status {
		logctx.FromCtx(ctx, s.log).Warnw("transaction_status_conflict",
			"merchant_transaction_id", merchantTransactionID,
			"stored", txn.Status, "observed", status)
		return txn, false, fmt.Errorf("%w: stored=%s observed=%s", ErrStatusConflict, txn.Status, status)
	}
	return txn, res.RowsAffected > 0, nil
}

func (s *Service) GetByMerchantTransactionID(ctx context.Context, merchantTransactionID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.WithContext(ctx).
		Where("merchant_transaction_id = ?", merchantTransactionID).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, merchantTransactionID)
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return &txn, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Scan request/response for the admin listing.
type ScanRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanResponse struct {
	Items []*models.Transaction `json:"items"`
	Total int64                 `json:"total"`
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// Scan implements paginated admin listing with filters.
func (s *Service) Scan(ctx context.Context, req *ScanRequest) (*ScanResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Transaction{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	var rows []*models.Transaction

	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return &ScanResponse{Items: rows, Total: total}, nil
}
