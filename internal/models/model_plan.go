package models

import (
	"time"

	"github.com/carepulse/payments/pkg/types"
)

// Plan is a product tier. Prices are in minor currency units (paise).
// ContactSales plans (Enterprise) are not purchasable online.
type Plan struct {
	ID           string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Name         string    `gorm:"column:name;type:varchar(64);not null;uniqueIndex:unique_plan_name" json:"name"`
	MonthlyPrice int64     `gorm:"column:monthly_price;type:bigint;not null" json:"monthly_price"`
	YearlyPrice  int64     `gorm:"column:yearly_price;type:bigint;not null" json:"yearly_price"`
	ContactSales bool      `gorm:"column:contact_sales;not null;default:false" json:"contact_sales"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Plan) TableName() string {
	return "plans"
}

func (p *Plan) PriceFor(cycle types.BillingCycle) int64 {
	if cycle == types.BillingCycleYearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}
