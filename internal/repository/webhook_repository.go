package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/slotwise/reservation-engine/internal/models"
)

// WebhookRepository persists subscriptions and their delivery journal.
type WebhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) Create(ctx context.Context, sub *models.WebhookSubscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("error creating webhook subscription: %w", err)
	}
	return nil
}

func (r *WebhookRepository) GetByID(ctx context.Context, id string) (*models.WebhookSubscription, error) {
	var sub models.WebhookSubscription
	if err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching webhook subscription %s: %w", id, err)
	}
	return &sub, nil
}

func (r *WebhookRepository) List(ctx context.Context) ([]models.WebhookSubscription, error) {
	var subs []models.WebhookSubscription
	if err := r.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("error listing webhook subscriptions: %w", err)
	}
	return subs, nil
}

// ListActiveForEvent returns every active subscription subscribed to
// eventType (spec.md §4.6 subscription selection).
func (r *WebhookRepository) ListActiveForEvent(ctx context.Context, eventType string) ([]models.WebhookSubscription, error) {
	var subs []models.WebhookSubscription
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND ? = ANY(events)", true, eventType).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("error listing subscriptions for event %s: %w", eventType, err)
	}
	return subs, nil
}

func (r *WebhookRepository) Update(ctx context.Context, sub *models.WebhookSubscription) error {
	if err := r.db.WithContext(ctx).Save(sub).Error; err != nil {
		return fmt.Errorf("error updating webhook subscription %s: %w", sub.ID, err)
	}
	return nil
}

func (r *WebhookRepository) RecordDelivery(ctx context.Context, delivery *models.WebhookDelivery) error {
	if err := r.db.WithContext(ctx).Create(delivery).Error; err != nil {
		return fmt.Errorf("error recording webhook delivery: %w", err)
	}
	return nil
}
