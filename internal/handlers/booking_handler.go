package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/reservation-engine/internal/middleware"
	"github.com/slotwise/reservation-engine/internal/repository"
	"github.com/slotwise/reservation-engine/internal/reservation"
	"github.com/slotwise/reservation-engine/pkg/logger"
)

// BookingHandler exposes the Reservation Engine's admission and
// lifecycle operations over HTTP.
type BookingHandler struct {
	engine   *reservation.Engine
	bookings *repository.BookingRepository
	logger   *logger.Logger
}

func NewBookingHandler(engine *reservation.Engine, bookings *repository.BookingRepository, log *logger.Logger) *BookingHandler {
	return &BookingHandler{engine: engine, bookings: bookings, logger: log}
}

type createBookingRequest struct {
	StoreID     string    `json:"storeId" binding:"required"`
	TreatmentID string    `json:"treatmentId" binding:"required"`
	StaffID     string    `json:"staffId"`
	StartTime   time.Time `json:"bookingDateTime" binding:"required"`
	Notes       string    `json:"notes"`
}

// Create handles POST /bookings.
func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, http.StatusBadRequest, middleware.CodeValidation, err.Error())
		return
	}

	customerID := c.GetString(middleware.ContextKeyUserID)
	booking, err := h.engine.Admit(c.Request.Context(), reservation.AdmitRequest{
		StoreID:     req.StoreID,
		CustomerID:  customerID,
		TreatmentID: req.TreatmentID,
		StaffID:     req.StaffID,
		StartTime:   req.StartTime,
		Notes:       req.Notes,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	middleware.RespondOK(c, http.StatusCreated, booking)
}

// Get handles GET /bookings/:bookingId.
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.bookings.GetByID(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if booking == nil {
		middleware.RespondError(c, http.StatusNotFound, middleware.CodeNotFound, "booking not found")
		return
	}
	middleware.RespondOK(c, http.StatusOK, booking)
}

// ListForCustomer handles GET /customers/:customerId/bookings.
func (h *BookingHandler) ListForCustomer(c *gin.Context) {
	page, pageSize := pagination(c)
	bookings, total, err := h.bookings.ListByCustomer(c.Request.Context(), c.Param("customerId"), pageSize, (page-1)*pageSize)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	middleware.RespondList(c, bookings, middleware.NewMeta(page, pageSize, total))
}

// ListForStore handles GET /stores/:storeId/bookings.
func (h *BookingHandler) ListForStore(c *gin.Context) {
	page, pageSize := pagination(c)
	bookings, total, err := h.bookings.ListByStore(c.Request.Context(), c.Param("storeId"), pageSize, (page-1)*pageSize)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	middleware.RespondList(c, bookings, middleware.NewMeta(page, pageSize, total))
}

type rescheduleRequest struct {
	StartTime *time.Time `json:"bookingDateTime"`
	StaffID   *string    `json:"staffId"`
}

// Reschedule handles PATCH /bookings/:bookingId.
func (h *BookingHandler) Reschedule(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, http.StatusBadRequest, middleware.CodeValidation, err.Error())
		return
	}

	booking, err := h.engine.Reschedule(c.Request.Context(), reservation.RescheduleRequest{
		BookingID: c.Param("bookingId"),
		StartTime: req.StartTime,
		StaffID:   req.StaffID,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	middleware.RespondOK(c, http.StatusOK, booking)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /bookings/:bookingId/cancel.
func (h *BookingHandler) Cancel(c *gin.Context) {
	var req cancelRequest
	_ = c.ShouldBindJSON(&req)

	booking, err := h.engine.Cancel(c.Request.Context(), c.Param("bookingId"), req.Reason)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	middleware.RespondOK(c, http.StatusOK, booking)
}

// Confirm handles POST /bookings/:bookingId/confirm.
func (h *BookingHandler) Confirm(c *gin.Context) {
	booking, err := h.engine.Confirm(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	middleware.RespondOK(c, http.StatusOK, booking)
}

// Start handles POST /bookings/:bookingId/start.
func (h *BookingHandler) Start(c *gin.Context) {
	booking, err := h.engine.Start(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	middleware.RespondOK(c, http.StatusOK, booking)
}

// Complete handles POST /bookings/:bookingId/complete.
func (h *BookingHandler) Complete(c *gin.Context) {
	booking, err := h.engine.Complete(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	middleware.RespondOK(c, http.StatusOK, booking)
}

// MarkNoShow handles POST /bookings/:bookingId/no-show.
func (h *BookingHandler) MarkNoShow(c *gin.Context) {
	booking, err := h.engine.MarkNoShow(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	middleware.RespondOK(c, http.StatusOK, booking)
}

// pagination reads page/pageSize query params with the defaults and
// bounds the external interface contract specifies.
func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
