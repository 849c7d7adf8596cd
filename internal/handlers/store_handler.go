package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/reservation-engine/internal/middleware"
	"github.com/slotwise/reservation-engine/internal/registry"
	"github.com/slotwise/reservation-engine/internal/repository"
	"github.com/slotwise/reservation-engine/pkg/logger"
)

// StoreHandler exposes the store reads and the quota patch endpoint the
// engine needs; store provisioning itself is out of scope (spec.md's
// Non-goals exclude generic store/treatment CRUD transport).
type StoreHandler struct {
	stores *repository.StoreRepository
	logger *logger.Logger
}

func NewStoreHandler(stores *repository.StoreRepository, log *logger.Logger) *StoreHandler {
	return &StoreHandler{stores: stores, logger: log}
}

// Get handles GET /stores/:storeId.
func (h *StoreHandler) Get(c *gin.Context) {
	store, err := h.stores.GetByID(c.Request.Context(), c.Param("storeId"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if store == nil {
		middleware.RespondError(c, http.StatusNotFound, middleware.CodeNotFound, "store not found")
		return
	}
	middleware.RespondOK(c, http.StatusOK, store)
}

// PatchQuota handles PATCH /stores/:storeId/quota. A maxDailyBookings or
// maxConcurrentBookings key present with a JSON null value clears it; an
// absent key leaves it untouched — see spec.md §6's shallow-merge
// contract. A null bufferTimeMinutes is ignored and leaves the value
// unchanged. We decode into a map first so we can distinguish "absent"
// from "present but null".
func (h *StoreHandler) PatchQuota(c *gin.Context) {
	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		middleware.RespondError(c, http.StatusBadRequest, middleware.CodeValidation, err.Error())
		return
	}

	store, err := h.stores.GetByID(c.Request.Context(), c.Param("storeId"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if store == nil {
		middleware.RespondError(c, http.StatusNotFound, middleware.CodeNotFound, "store not found")
		return
	}

	patch := registry.QuotaPatch{}
	if v, present := raw["maxDailyBookings"]; present {
		if v == nil {
			patch.ClearMaxDailyBookings = true
		} else if f, ok := v.(float64); ok {
			n := int(f)
			patch.MaxDailyBookings = &n
		}
	}
	if v, present := raw["maxConcurrentBookings"]; present {
		if v == nil {
			patch.ClearMaxConcurrentBookings = true
		} else if f, ok := v.(float64); ok {
			n := int(f)
			patch.MaxConcurrentBookings = &n
		}
	}
	if v, present := raw["bufferTimeMinutes"]; present {
		if f, ok := v.(float64); ok {
			n := int(f)
			patch.BufferTimeMinutes = &n
		}
	}

	registry.ApplyQuotaPatch(store, patch)

	if err := h.stores.Update(c.Request.Context(), store); err != nil {
		respondDomainError(c, err)
		return
	}
	middleware.RespondOK(c, http.StatusOK, store)
}
