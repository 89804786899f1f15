package plan

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carepulse/payments/internal/models"
)

// ErrPlanNotFound reports a lookup for a plan name not in the catalog.
var ErrPlanNotFound = errors.New("plan not found")

// Catalog reads the plan table seeded at startup.
type Catalog interface {
	GetByName(ctx context.Context, name string) (*models.Plan, error)
	List(ctx context.Context) ([]*models.Plan, error)
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) Catalog {
	return &Service{db: db, log: log}
}

func (s *Service) GetByName(ctx context.Context, name string) (*models.Plan, error) {
	var p models.Plan
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, name)
		}
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	return &p, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Plan, error) {
	var plans []*models.Plan
	if err := s.db.WithContext(ctx).Order("monthly_price asc").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}
