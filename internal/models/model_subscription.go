package models

import (
	"time"

	"github.com/carepulse/payments/pkg/types"
)

// Subscription is the entitlement created by the first successful
// reconciliation of a transaction. The unique index on transaction_id is the
// guard that keeps the webhook and the redirect callback from activating
// twice: the second insert fails and is treated as "already activated".
type Subscription struct {
	ID            string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID        string                   `gorm:"column:user_id;type:varchar(64);not null;index:idx_sub_user_id" json:"user_id"`
	PlanID        string                   `gorm:"column:plan_id;type:varchar(64);not null" json:"plan_id"`
	TransactionID string                   `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex:unique_sub_transaction_id" json:"transaction_id"`
	BillingCycle  types.BillingCycle       `gorm:"column:billing_cycle;type:varchar(16);not null" json:"billing_cycle"`
	StartDate     time.Time                `gorm:"column:start_date;not null" json:"start_date"`
	EndDate       time.Time                `gorm:"column:end_date;not null" json:"end_date"`
	Status        types.SubscriptionStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func (s *Subscription) Valid() bool {
	return s != nil &&
		s.Status == types.SubscriptionStatusActive &&
		s.EndDate.After(time.Now())
}
