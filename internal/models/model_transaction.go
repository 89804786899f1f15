package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/carepulse/payments/pkg/types"
)

// Transaction is one payment attempt against the provider. The merchant
// transaction id is the client-generated idempotency key and the external
// correlation id; it is written exactly once, before the provider is contacted.
type Transaction struct {
	ID                    string                  `gorm:"column:id;primary_key;type:uuid" json:"id"`
	MerchantTransactionID string                  `gorm:"column:merchant_transaction_id;type:varchar(64);not null;uniqueIndex:unique_merchant_transaction_id" json:"merchant_transaction_id"`
	UserID                string                  `gorm:"column:user_id;type:varchar(64);not null;index:idx_txn_user_id" json:"user_id"`
	PlanID                string                  `gorm:"column:plan_id;type:varchar(64);not null" json:"plan_id"`
	// Amount is in minor currency units (paise) and immutable after creation.
	Amount       int64                   `gorm:"column:amount;type:bigint;not null" json:"amount"`
	BillingCycle types.BillingCycle      `gorm:"column:billing_cycle;type:varchar(16);not null" json:"billing_cycle"`
	Status       types.TransactionStatus `gorm:"column:status;type:varchar(16);not null;index:idx_txn_status" json:"status"`
	// PaymentDetails is the raw provider payload attached at status-update
	// time, kept for audit.
	PaymentDetails datatypes.JSON `gorm:"column:payment_details;type:jsonb;default:'{}'" json:"payment_details"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) Terminal() bool {
	return t != nil && t.Status.Terminal()
}
