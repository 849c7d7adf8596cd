package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// WebhookSubscription is a registered HTTP subscriber for lifecycle events.
type WebhookSubscription struct {
	ID     string         `gorm:"type:uuid;primary_key" json:"id"`
	URL    string         `gorm:"not null" json:"url"`
	Events pq.StringArray `gorm:"type:text[];not null" json:"events"`
	Secret string         `gorm:"not null" json:"-"`

	IsActive   bool       `gorm:"default:true" json:"isActive"`
	RetryCount int        `gorm:"default:0" json:"retryCount"`
	MaxRetries int        `gorm:"default:5" json:"maxRetries"`

	LastSuccessAt     *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt     *time.Time `json:"lastFailureAt,omitempty"`
	LastFailureReason *string    `json:"lastFailureReason,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (w *WebhookSubscription) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}

func (WebhookSubscription) TableName() string {
	return "webhook_subscriptions"
}

// Subscribes reports whether the subscription wants the given event.
func (w *WebhookSubscription) Subscribes(eventType string) bool {
	if !w.IsActive {
		return false
	}
	for _, e := range w.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// HealthStatus is the derived health of a subscription (spec.md §4.6).
type HealthStatus string

const (
	HealthDisabled HealthStatus = "disabled"
	HealthRetrying HealthStatus = "retrying"
	HealthWarning  HealthStatus = "warning"
	HealthInactive HealthStatus = "inactive"
	HealthHealthy  HealthStatus = "healthy"
)

// Health derives the subscription's status as of now.
func (w *WebhookSubscription) Health(now time.Time) HealthStatus {
	if !w.IsActive {
		return HealthDisabled
	}
	if w.RetryCount > 0 {
		return HealthRetrying
	}
	if w.LastFailureAt != nil && now.Sub(*w.LastFailureAt) < 24*time.Hour {
		return HealthWarning
	}
	if w.LastSuccessAt == nil || now.Sub(*w.LastSuccessAt) >= 24*time.Hour {
		return HealthInactive
	}
	return HealthHealthy
}

// WebhookDelivery is an audit-only record of a single delivery attempt.
// It is never replayed from — spec.md's open questions explicitly forbid
// inferring a replay contract; this journal exists purely so operators
// can observe delivery history. The retry sweep does not read it.
type WebhookDelivery struct {
	ID             string  `gorm:"type:uuid;primary_key" json:"id"`
	SubscriptionID string  `gorm:"type:uuid;index;not null" json:"subscriptionId"`
	EventType      string  `gorm:"not null" json:"eventType"`
	EventID        string  `gorm:"type:uuid;not null" json:"eventId"`
	Attempt        int     `gorm:"not null" json:"attempt"`
	ResponseStatus *int    `json:"responseStatus,omitempty"`
	Error          *string `json:"error,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (d *WebhookDelivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}
