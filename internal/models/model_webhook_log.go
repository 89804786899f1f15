package models

import (
	"time"

	"gorm.io/datatypes"
)

type WebhookLogStatus string

const (
	WebhookLogStatusReceived     WebhookLogStatus = "received"
	WebhookLogStatusHandled      WebhookLogStatus = "handled"
	WebhookLogStatusHandleFailed WebhookLogStatus = "handle_failed"
)

// WebhookLog records every provider notification delivery, before and after
// handling. Providers redeliver webhooks; the log keeps the raw payload and
// the handling result of each delivery for audit.
type WebhookLog struct {
	ID                    string           `gorm:"column:id;type:uuid;primary_key" json:"id"`
	TraceID               string           `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	MerchantTransactionID string           `gorm:"column:merchant_transaction_id;type:varchar(64);index:idx_webhook_log_mtid" json:"merchant_transaction_id"`
	Data                  datatypes.JSON   `gorm:"column:data;type:jsonb" json:"data"`
	Result                *datatypes.JSON  `gorm:"column:result;type:jsonb" json:"result"`
	Status                WebhookLogStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

func (WebhookLog) TableName() string { return "webhook_log" }
