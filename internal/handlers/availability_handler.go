package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/reservation-engine/internal/catalog"
	"github.com/slotwise/reservation-engine/internal/middleware"
	"github.com/slotwise/reservation-engine/internal/models"
	"github.com/slotwise/reservation-engine/internal/repository"
	"github.com/slotwise/reservation-engine/internal/timeslot"
	"github.com/slotwise/reservation-engine/pkg/logger"
)

// AvailabilityHandler exposes free-slot lookups, cached per
// (store, treatment, date).
type AvailabilityHandler struct {
	index   *timeslot.Index
	stores  *repository.StoreRepository
	catalog *repository.CatalogRepository
	cache   *repository.CacheRepository
	logger  *logger.Logger
}

func NewAvailabilityHandler(index *timeslot.Index, stores *repository.StoreRepository, catalogRepo *repository.CatalogRepository, cache *repository.CacheRepository, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{index: index, stores: stores, catalog: catalogRepo, cache: cache, logger: log}
}

// availabilitySlot augments a timeslot with its remaining capacity and,
// when the lookup is scoped to a treatment, the ids of staff eligible
// to perform it — so callers don't need a second round-trip to
// GET /treatments/:id/eligible-staff (spec.md §6).
type availabilitySlot struct {
	*models.Timeslot
	RemainingCapacity int      `json:"remainingCapacity"`
	EligibleStaffIDs  []string `json:"eligibleStaffIds,omitempty"`
}

func (h *AvailabilityHandler) annotate(ctx *gin.Context, slots []models.Timeslot, treatmentID string) (interface{}, error) {
	var eligibleStaffIDs []string
	if treatmentID != "" {
		treatment, err := h.catalog.GetTreatment(ctx.Request.Context(), treatmentID)
		if err != nil {
			return nil, err
		}
		if treatment != nil {
			staff, err := h.catalog.ListEligibleStaff(ctx.Request.Context(), treatment.StoreID)
			if err != nil {
				return nil, err
			}
			for i := range staff {
				if catalog.CanBePerformedBy(treatment, &staff[i]) {
					eligibleStaffIDs = append(eligibleStaffIDs, staff[i].ID)
				}
			}
		}
	}

	out := make([]availabilitySlot, len(slots))
	for i := range slots {
		out[i] = availabilitySlot{
			Timeslot:          &slots[i],
			RemainingCapacity: slots[i].MaxCapacity - slots[i].CurrentBookings,
			EligibleStaffIDs:  restrictToSlot(eligibleStaffIDs, []string(slots[i].AllowedStaffIDs)),
		}
	}
	return out, nil
}

// restrictToSlot narrows eligible to a slot's AllowedStaffIDs whitelist,
// an empty whitelist meaning "any eligible staff may take this slot".
func restrictToSlot(eligible []string, allowed []string) []string {
	if len(allowed) == 0 {
		return eligible
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = struct{}{}
	}
	var out []string
	for _, id := range eligible {
		if _, ok := allowedSet[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// List handles GET /stores/:storeId/availability?date=YYYY-MM-DD&treatmentId=.
func (h *AvailabilityHandler) List(c *gin.Context) {
	storeID := c.Param("storeId")
	dateStr := c.Query("date")
	treatmentID := c.Query("treatmentId")

	if dateStr == "" {
		middleware.RespondError(c, http.StatusBadRequest, middleware.CodeValidation, "date query parameter is required (YYYY-MM-DD)")
		return
	}
	localDate, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		middleware.RespondError(c, http.StatusBadRequest, middleware.CodeValidation, "invalid date, expected YYYY-MM-DD")
		return
	}

	store, err := h.stores.GetByID(c.Request.Context(), storeID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if store == nil {
		middleware.RespondError(c, http.StatusNotFound, middleware.CodeNotFound, "store not found")
		return
	}

	cacheKey := repository.AvailabilityKey(storeID, treatmentID, dateStr)
	if h.cache != nil {
		var hit interface{}
		found, err := h.cache.Get(c.Request.Context(), cacheKey, &hit)
		if err == nil && found {
			middleware.RespondOK(c, http.StatusOK, hit)
			return
		}
	}

	var rawSlots []models.Timeslot
	if treatmentID != "" {
		rawSlots, err = h.index.FindForTreatment(c.Request.Context(), store, treatmentID, localDate)
	} else {
		rawSlots, err = h.index.FindAvailableForDate(c.Request.Context(), store, localDate)
	}
	if err != nil {
		respondDomainError(c, err)
		return
	}

	slots, err := h.annotate(c, rawSlots, treatmentID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if h.cache != nil {
		_ = h.cache.Set(c.Request.Context(), cacheKey, slots, time.Minute)
	}

	middleware.RespondOK(c, http.StatusOK, slots)
}

type generateSlotsRequest struct {
	Date                string `json:"date" binding:"required"`
	SlotDurationMinutes int    `json:"slotDurationMinutes"`
	MaxCapacity         int    `json:"maxCapacity"`
}

// Generate handles POST /stores/:storeId/timeslots/generate.
func (h *AvailabilityHandler) Generate(c *gin.Context) {
	var req generateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, http.StatusBadRequest, middleware.CodeValidation, err.Error())
		return
	}
	localDate, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		middleware.RespondError(c, http.StatusBadRequest, middleware.CodeValidation, "invalid date, expected YYYY-MM-DD")
		return
	}

	slots, err := h.index.GenerateDailySlots(c.Request.Context(), timeslot.GenerateParams{
		StoreID:             c.Param("storeId"),
		LocalDate:           localDate,
		SlotDurationMinutes: req.SlotDurationMinutes,
		MaxCapacity:         req.MaxCapacity,
	})
	if err != nil {
		if err == timeslot.ErrBookingsExist {
			middleware.RespondError(c, http.StatusConflict, middleware.CodeConflict, "cannot regenerate timeslots that still have bookings")
			return
		}
		respondDomainError(c, err)
		return
	}

	if h.cache != nil {
		_ = h.cache.InvalidateStore(c.Request.Context(), c.Param("storeId"))
	}

	middleware.RespondOK(c, http.StatusOK, slots)
}
