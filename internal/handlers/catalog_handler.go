package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/reservation-engine/internal/catalog"
	"github.com/slotwise/reservation-engine/internal/middleware"
	"github.com/slotwise/reservation-engine/internal/repository"
	"github.com/slotwise/reservation-engine/pkg/logger"
)

// CatalogHandler exposes read-only treatment/staff lookups that sit
// beside catalog CRUD (itself out of scope — spec.md's Non-goals
// exclude generic treatment CRUD transport).
type CatalogHandler struct {
	catalog *repository.CatalogRepository
	logger  *logger.Logger
}

func NewCatalogHandler(catalogRepo *repository.CatalogRepository, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalogRepo, logger: log}
}

// EligibleStaff handles GET /treatments/:treatmentId/eligible-staff,
// sharing the skill-ranking logic the admission engine itself uses so
// the two never drift (internal/catalog.CanBePerformedBy).
func (h *CatalogHandler) EligibleStaff(c *gin.Context) {
	treatment, err := h.catalog.GetTreatment(c.Request.Context(), c.Param("treatmentId"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if treatment == nil {
		middleware.RespondError(c, http.StatusNotFound, middleware.CodeNotFound, "treatment not found")
		return
	}

	staff, err := h.catalog.ListEligibleStaff(c.Request.Context(), treatment.StoreID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	eligible := make([]interface{}, 0, len(staff))
	for i := range staff {
		if catalog.CanBePerformedBy(treatment, &staff[i]) {
			eligible = append(eligible, staff[i])
		}
	}

	middleware.RespondOK(c, http.StatusOK, eligible)
}
