// Package dispatcher implements the Outbound Event Dispatcher of
// spec.md §4.6: selecting subscriptions for an event, signing and
// POSTing the envelope, and retrying with exponential backoff on
// failure — fully decoupled from the Reservation Engine's own
// transaction, which has already committed by the time any of this runs.
package dispatcher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/slotwise/reservation-engine/internal/config"
	"github.com/slotwise/reservation-engine/internal/models"
	"github.com/slotwise/reservation-engine/internal/repository"
	"github.com/slotwise/reservation-engine/pkg/logger"
	"github.com/slotwise/reservation-engine/pkg/webhook"
)

// userAgent identifies this dispatcher to subscriber endpoints, per
// spec.md §4.6's required outbound header set.
const userAgent = "reservation-engine/1.0"

// Dispatcher delivers outbound events to registered subscriptions.
type Dispatcher struct {
	webhooks      *repository.WebhookRepository
	httpClient    *http.Client
	defaultSecret string
	maxRetryDelay time.Duration
	logger        *logger.Logger
}

func New(webhooks *repository.WebhookRepository, cfg config.Webhook, log *logger.Logger) *Dispatcher {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxDelay := cfg.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = 60 * time.Second
	}
	return &Dispatcher{
		webhooks:      webhooks,
		httpClient:    &http.Client{Timeout: timeout},
		defaultSecret: cfg.DefaultSecret,
		maxRetryDelay: maxDelay,
		logger:        log,
	}
}

// Dispatch handles one lifecycle event: it looks up every active
// subscription for eventType and attempts delivery to each,
// independently of the others' outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType string, eventID string, data interface{}) error {
	subs, err := d.webhooks.ListActiveForEvent(ctx, eventType)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions for %s: %w", eventType, err)
	}

	for i := range subs {
		d.attempt(ctx, &subs[i], eventType, eventID, data)
	}
	return nil
}

// attempt performs a single delivery attempt and records its outcome,
// advancing the subscription's retry bookkeeping. A failure here never
// propagates — each subscription's outcome is independent and the next
// attempt is left to the retry sweep.
func (d *Dispatcher) attempt(ctx context.Context, sub *models.WebhookSubscription, eventType, eventID string, data interface{}) {
	secret := sub.Secret
	if secret == "" {
		secret = d.defaultSecret
	}

	now := time.Now()
	body, signature, err := webhook.Sign(secret, eventType, data, now)
	if err != nil {
		d.logger.Error("failed to sign webhook envelope", "subscriptionId", sub.ID, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		d.recordFailure(ctx, sub, eventType, eventID, sub.RetryCount+1, nil, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature)
	req.Header.Set("X-Timestamp", strconv.FormatInt(now.Unix(), 10))
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.httpClient.Do(req)
	attempt := sub.RetryCount + 1

	if err != nil {
		d.recordFailure(ctx, sub, eventType, eventID, attempt, nil, err)
		return
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	if status >= 200 && status < 300 {
		d.recordSuccess(ctx, sub, eventType, eventID, attempt, status)
		return
	}

	d.recordFailure(ctx, sub, eventType, eventID, attempt, &status, fmt.Errorf("subscriber returned status %d", status))
}

func (d *Dispatcher) recordSuccess(ctx context.Context, sub *models.WebhookSubscription, eventType, eventID string, attempt, status int) {
	now := time.Now()
	sub.LastSuccessAt = &now
	sub.RetryCount = 0
	sub.LastFailureReason = nil
	if err := d.webhooks.Update(ctx, sub); err != nil {
		d.logger.Error("failed to update subscription after successful delivery", "subscriptionId", sub.ID, "error", err)
	}

	status200 := status
	_ = d.webhooks.RecordDelivery(ctx, &models.WebhookDelivery{
		SubscriptionID: sub.ID,
		EventType:      eventType,
		EventID:        eventID,
		Attempt:        attempt,
		ResponseStatus: &status200,
	})
}

func (d *Dispatcher) recordFailure(ctx context.Context, sub *models.WebhookSubscription, eventType, eventID string, attempt int, status *int, cause error) {
	now := time.Now()
	sub.LastFailureAt = &now
	reason := cause.Error()
	sub.LastFailureReason = &reason
	sub.RetryCount = attempt
	if sub.RetryCount >= sub.MaxRetries {
		sub.IsActive = false
		d.logger.Error("webhook subscription exhausted retries and was disabled", "subscriptionId", sub.ID)
	}
	if err := d.webhooks.Update(ctx, sub); err != nil {
		d.logger.Error("failed to update subscription after failed delivery", "subscriptionId", sub.ID, "error", err)
	}

	_ = d.webhooks.RecordDelivery(ctx, &models.WebhookDelivery{
		SubscriptionID: sub.ID,
		EventType:      eventType,
		EventID:        eventID,
		Attempt:        attempt,
		ResponseStatus: status,
		Error:          &reason,
	})

	d.logger.Warn("webhook delivery failed", "subscriptionId", sub.ID, "eventType", eventType, "attempt", attempt, "error", cause)
}

// NextRetryDelay implements spec.md §4.6's exponential backoff:
// min(2^retryCount seconds, maxRetryDelay).
func (d *Dispatcher) NextRetryDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	delay := time.Duration(1) << uint(retryCount) * time.Second
	if delay > d.maxRetryDelay || delay <= 0 {
		return d.maxRetryDelay
	}
	return delay
}

// Sweep retries every subscription whose backoff window has elapsed
// since its last failure. Intended to run on the scheduler's cron tick.
func (d *Dispatcher) Sweep(ctx context.Context, lastEventByType map[string]PendingEvent) error {
	subs, err := d.webhooks.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions for retry sweep: %w", err)
	}

	now := time.Now()
	for i := range subs {
		sub := &subs[i]
		if !sub.IsActive || sub.RetryCount == 0 || sub.LastFailureAt == nil {
			continue
		}
		if now.Sub(*sub.LastFailureAt) < d.NextRetryDelay(sub.RetryCount-1) {
			continue
		}
		for _, ev := range sub.Events {
			pending, ok := lastEventByType[ev]
			if !ok {
				continue
			}
			d.attempt(ctx, sub, ev, pending.EventID, pending.Data)
		}
	}
	return nil
}

// PendingEvent is the last payload seen for a given event type, kept by
// the subscriber layer so Sweep has something to redeliver; the journal
// in WebhookDelivery is audit-only and is never read back for replay.
type PendingEvent struct {
	EventID string
	Data    interface{}
}
