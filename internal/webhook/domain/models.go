package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	subscriberdomain "github.com/coursegate/coursegate/internal/subscriber/domain"
	"gorm.io/datatypes"
)

// WebhookEvent is the audit row recorded for every accepted delivery.
type WebhookEvent struct {
	ID              snowflake.ID                 `gorm:"primaryKey" json:"id"`
	Provider        subscriberdomain.Provider    `gorm:"type:text;not null;index:webhook_events_provider_idx" json:"provider"`
	EventName       string                       `gorm:"type:text" json:"event_name,omitempty"`
	ProviderEventID string                       `gorm:"type:text" json:"provider_event_id,omitempty"`
	SubscriberID    snowflake.ID                 `json:"subscriber_id"`
	Payload         datatypes.JSON               `gorm:"not null" json:"payload"`
	ReceivedAt      time.Time                    `gorm:"not null;index:webhook_events_provider_idx" json:"received_at"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }
