package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"github.com/slotwise/reservation-engine/internal/middleware"
	"github.com/slotwise/reservation-engine/internal/models"
	"github.com/slotwise/reservation-engine/internal/repository"
	"github.com/slotwise/reservation-engine/pkg/logger"
)

// WebhookHandler exposes CRUD for outbound event subscriptions and
// their derived health (spec.md §4.6).
type WebhookHandler struct {
	webhooks *repository.WebhookRepository
	logger   *logger.Logger
}

func NewWebhookHandler(webhooks *repository.WebhookRepository, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, logger: log}
}

type createWebhookRequest struct {
	URL    string   `json:"url" binding:"required,url"`
	Events []string `json:"events" binding:"required,min=1"`
	Secret string   `json:"secret" binding:"required"`
}

// Create handles POST /webhooks.
func (h *WebhookHandler) Create(c *gin.Context) {
	var req createWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, http.StatusBadRequest, middleware.CodeValidation, err.Error())
		return
	}

	sub := &models.WebhookSubscription{
		URL:        req.URL,
		Events:     pq.StringArray(req.Events),
		Secret:     req.Secret,
		IsActive:   true,
		MaxRetries: 5,
	}
	if err := h.webhooks.Create(c.Request.Context(), sub); err != nil {
		respondDomainError(c, err)
		return
	}
	middleware.RespondOK(c, http.StatusCreated, withHealth(sub))
}

// List handles GET /webhooks.
func (h *WebhookHandler) List(c *gin.Context) {
	subs, err := h.webhooks.List(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	out := make([]interface{}, 0, len(subs))
	for i := range subs {
		out = append(out, withHealth(&subs[i]))
	}
	middleware.RespondOK(c, http.StatusOK, out)
}

// Get handles GET /webhooks/:webhookId.
func (h *WebhookHandler) Get(c *gin.Context) {
	sub, err := h.webhooks.GetByID(c.Request.Context(), c.Param("webhookId"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if sub == nil {
		middleware.RespondError(c, http.StatusNotFound, middleware.CodeNotFound, "webhook subscription not found")
		return
	}
	middleware.RespondOK(c, http.StatusOK, withHealth(sub))
}

type updateWebhookRequest struct {
	URL      *string  `json:"url"`
	Events   []string `json:"events"`
	Secret   *string  `json:"secret"`
	IsActive *bool    `json:"isActive"`
}

// Update handles PATCH /webhooks/:webhookId.
func (h *WebhookHandler) Update(c *gin.Context) {
	var req updateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, http.StatusBadRequest, middleware.CodeValidation, err.Error())
		return
	}

	sub, err := h.webhooks.GetByID(c.Request.Context(), c.Param("webhookId"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if sub == nil {
		middleware.RespondError(c, http.StatusNotFound, middleware.CodeNotFound, "webhook subscription not found")
		return
	}

	if req.URL != nil {
		sub.URL = *req.URL
	}
	if req.Events != nil {
		sub.Events = pq.StringArray(req.Events)
	}
	if req.Secret != nil {
		sub.Secret = *req.Secret
	}
	if req.IsActive != nil {
		sub.IsActive = *req.IsActive
		if sub.IsActive {
			sub.RetryCount = 0
		}
	}

	if err := h.webhooks.Update(c.Request.Context(), sub); err != nil {
		respondDomainError(c, err)
		return
	}
	middleware.RespondOK(c, http.StatusOK, withHealth(sub))
}

// Delete handles DELETE /webhooks/:webhookId by deactivating the
// subscription rather than hard-deleting its delivery journal.
func (h *WebhookHandler) Delete(c *gin.Context) {
	sub, err := h.webhooks.GetByID(c.Request.Context(), c.Param("webhookId"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if sub == nil {
		middleware.RespondError(c, http.StatusNotFound, middleware.CodeNotFound, "webhook subscription not found")
		return
	}
	sub.IsActive = false
	if err := h.webhooks.Update(c.Request.Context(), sub); err != nil {
		respondDomainError(c, err)
		return
	}
	middleware.RespondOK(c, http.StatusOK, withHealth(sub))
}

// webhookWithHealth augments a subscription with its derived health
// status for the wire response; Health is computed, not stored.
type webhookWithHealth struct {
	*models.WebhookSubscription
	Health models.HealthStatus `json:"health"`
}

func withHealth(sub *models.WebhookSubscription) webhookWithHealth {
	return webhookWithHealth{WebhookSubscription: sub, Health: sub.Health(time.Now())}
}
