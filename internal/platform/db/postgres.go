package db

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/carepulse/payments/internal/models"
	cfgpkg "github.com/carepulse/payments/pkg/config"
	gormzap "github.com/carepulse/payments/pkg/gormlog"
	"github.com/carepulse/payments/pkg/tool"
)

func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{Logger: gormzap.New(l)})
	if err != nil {
		l.Errorf("failed to connect database: %v", err)
		return nil, err
	}
	l.Infow("connected to postgres via DSN")
	return db, nil
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(AutoMigrate),
	fx.Invoke(SeedPlans),
	fx.Invoke(registerDBClose),
)

// AutoMigrate runs GORM migrations on startup
func AutoMigrate(l *zap.SugaredLogger, db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Plan{},
		&models.Transaction{},
		&models.Subscription{},
		&models.WebhookLog{},
	); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	l.Infow("automigrate completed")
	return nil
}

// SeedPlans loads the configured plan catalog into an empty plans table.
// Existing rows are left alone so production price edits survive restarts.
func SeedPlans(l *zap.SugaredLogger, db *gorm.DB, cfg *cfgpkg.Config) error {
	if len(cfg.Plans) == 0 {
		return nil
	}
	var count int64
	if err := db.Model(&models.Plan{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	rows := make([]*models.Plan, 0, len(cfg.Plans))
	for _, seed := range cfg.Plans {
		rows = append(rows, &models.Plan{
			ID:           tool.GenerateUUIDV7(),
			Name:         seed.Name,
			MonthlyPrice: seed.MonthlyPrice,
			YearlyPrice:  seed.YearlyPrice,
			ContactSales: seed.ContactSales,
		})
	}
	if err := db.Create(rows).Error; err != nil {
		l.Errorf("plan seed failed: %v", err)
		return err
	}
	l.Infow("seeded plan catalog", "plans", len(rows))
	return nil
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing postgres connection pool")
			return sqlDB.Close()
		},
	})
}
