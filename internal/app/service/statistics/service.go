package statistics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carepulse/payments/internal/models"
	"github.com/carepulse/payments/pkg/types"
)

// PaymentStatisticRequest selects the reporting window. Zero times mean
// unbounded on that side.
type PaymentStatisticRequest struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// DailyStatistic is one day of transaction volume for one status. Gmv is the
// sum of amounts in minor units; only successful transactions count as
// realized revenue, the failed/pending rows are conversion signals.
type DailyStatistic struct {
	Day    time.Time               `json:"day"`
	Status types.TransactionStatus `json:"status"`
	Count  int64                   `json:"count"`
	Gmv    int64                   `json:"gmv"`
}

type PaymentStatisticResponse struct {
	Items []*DailyStatistic `json:"items"`
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// GetPaymentStatistic aggregates daily transaction counts and GMV by status.
func (s *Service) GetPaymentStatistic(ctx context.Context, req *PaymentStatisticRequest) (*PaymentStatisticResponse, error) {
	if req == nil {
		req = &PaymentStatisticRequest{}
	}

	q := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("date_trunc('day', created_at) AS day, status, count(*) AS count, coalesce(sum(amount), 0) AS gmv").
		Group("day, status").
		Order("day asc")
	if !req.From.IsZero() {
		q = q.Where("created_at >= ?", req.From)
	}
	if !req.To.IsZero() {
		q = q.Where("created_at < ?", req.To)
	}

	var rows []*DailyStatistic
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate payment statistics: %w", err)
	}
	return &PaymentStatisticResponse{Items: rows}, nil
}

// Module exposes the statistics service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
