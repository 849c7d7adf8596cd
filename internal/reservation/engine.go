// Package reservation implements the Reservation Engine of spec.md §4.5:
// the five-check admission algorithm and the booking lifecycle state
// machine. Admission, rescheduling and cancellation run under a
// per-store advisory lock so concurrent writes against the same store
// serialize; the other status transitions take no store lock.
package reservation

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/slotwise/reservation-engine/internal/catalog"
	"github.com/slotwise/reservation-engine/internal/models"
	"github.com/slotwise/reservation-engine/internal/registry"
	"github.com/slotwise/reservation-engine/internal/repository"
	"github.com/slotwise/reservation-engine/pkg/events"
	"github.com/slotwise/reservation-engine/pkg/logger"
)

// Engine drives admission and lifecycle transitions for bookings.
type Engine struct {
	db *gorm.DB

	stores    *repository.StoreRepository
	catalog   *repository.CatalogRepository
	timeslots *repository.TimeslotRepository
	bookings  *repository.BookingRepository
	publisher *events.Publisher
	logger    *logger.Logger
}

func New(
	db *gorm.DB,
	stores *repository.StoreRepository,
	catalogRepo *repository.CatalogRepository,
	timeslots *repository.TimeslotRepository,
	bookings *repository.BookingRepository,
	publisher *events.Publisher,
	log *logger.Logger,
) *Engine {
	return &Engine{
		db:        db,
		stores:    stores,
		catalog:   catalogRepo,
		timeslots: timeslots,
		bookings:  bookings,
		publisher: publisher,
		logger:    log,
	}
}

// AdmitRequest is the input to Admit.
type AdmitRequest struct {
	StoreID     string
	CustomerID  string
	TreatmentID string
	StaffID     string // optional
	StartTime   time.Time
	Notes       string
}

// Admit runs the five ordered admission checks from spec.md §4.5 inside a
// single transaction guarded by the store's advisory lock, and on success
// inserts the booking and publishes booking.created. Admission stops at
// the first failing check, per spec.md §7's propagation rule.
func (e *Engine) Admit(ctx context.Context, req AdmitRequest) (*models.Booking, error) {
	var booking *models.Booking

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.Lock(ctx, tx, req.StoreID); err != nil {
			return err
		}

		store, err := e.stores.GetByIDForUpdate(ctx, tx, req.StoreID)
		if err != nil {
			return err
		}
		if store == nil {
			return newError(CodeTreatmentNotFound, "store %s not found", req.StoreID)
		}

		treatment, err := e.catalog.GetTreatmentForUpdate(ctx, tx, req.TreatmentID)
		if err != nil {
			return err
		}
		if treatment == nil || treatment.StoreID != req.StoreID || !treatment.IsActive {
			return newError(CodeTreatmentNotFound, "treatment %s not found in store %s", req.TreatmentID, req.StoreID)
		}

		endTime := req.StartTime.Add(time.Duration(treatment.Duration) * time.Minute)

		if err := e.checkAdvanceWindow(store, req.StartTime); err != nil {
			return err
		}

		open, err := registry.IsOpenOnDate(store, req.StartTime)
		if err != nil {
			return err
		}
		if !open {
			return newError(CodeStoreClosed, "store %s is closed on %s", req.StoreID, req.StartTime.Format("2006-01-02"))
		}

		var staff *models.User
		if req.StaffID != "" {
			staff, err = e.loadEligibleStaff(tx, req.StoreID, req.StaffID, treatment)
			if err != nil {
				return err
			}
		}

		// Check 1: timeslot capacity gate.
		slots, err := e.timeslots.FindCoveringForUpdate(ctx, tx, req.StoreID, req.TreatmentID, req.StartTime, endTime)
		if err != nil {
			return err
		}
		if len(slots) == 0 {
			return newError(CodeNoTimeslot, "no open timeslot covers %s-%s for treatment %s", req.StartTime, endTime, req.TreatmentID)
		}
		slot := slots[0] // earliest start, per FindCoveringForUpdate's ordering

		// Check 2: treatment concurrency.
		treatmentCount, err := e.bookings.CountOverlappingForTreatment(ctx, tx, req.TreatmentID, req.StartTime, endTime, "")
		if err != nil {
			return err
		}
		if int(treatmentCount) >= treatment.MaxConcurrentBookings {
			return newError(CodeTreatmentCapacity, "treatment %s already has %d concurrent bookings in this window", req.TreatmentID, treatmentCount)
		}

		// Check 3: staff conflict.
		if staff != nil {
			staffCount, err := e.bookings.CountOverlappingForStaff(ctx, tx, staff.ID, req.StartTime, endTime, "")
			if err != nil {
				return err
			}
			if staffCount > 0 {
				return newError(CodeStaffConflict, "staff %s is already booked in this window", staff.ID)
			}
		}

		// Check 4: resource conflict, one check per required resource.
		for _, resourceID := range treatment.RequiredResources {
			resource, err := e.catalog.GetResourceForUpdate(ctx, tx, resourceID)
			if err != nil {
				return err
			}
			if resource == nil || !resource.IsActive {
				return newError(CodeResourceCapacity, "required resource %s is unavailable", resourceID)
			}
			resourceCount, err := e.bookings.CountOverlappingForResource(ctx, tx, resourceID, req.StartTime, endTime, "")
			if err != nil {
				return err
			}
			if int(resourceCount) >= resource.Capacity {
				return newError(CodeResourceCapacity, "resource %s is at capacity in this window", resourceID)
			}
		}

		// Check 5: store quotas.
		if err := e.checkStoreQuotas(ctx, tx, store, req.StartTime, endTime, ""); err != nil {
			return err
		}

		status := models.BookingStatusConfirmed
		if store.RequireApproval {
			status = models.BookingStatusPending
		}

		b := &models.Booking{
			CustomerID:      req.CustomerID,
			StoreID:         req.StoreID,
			TreatmentID:     req.TreatmentID,
			BookingDateTime: req.StartTime,
			Duration:        treatment.Duration,
			Status:          status,
			PriceAmount:     treatment.PriceAmount,
			PriceCurrency:   treatment.PriceCurrency,
		}
		if req.StaffID != "" {
			b.StaffID = &req.StaffID
		}
		if req.Notes != "" {
			b.Notes = &req.Notes
		}

		if err := e.bookings.Create(ctx, tx, b); err != nil {
			return err
		}
		if err := e.timeslots.Increment(ctx, tx, slot.ID); err != nil {
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(events.BookingCreatedEvent, booking)
	return booking, nil
}

// checkAdvanceWindow enforces the start time being in the future and
// within the store's booking horizon.
func (e *Engine) checkAdvanceWindow(store *models.Store, start time.Time) error {
	now := time.Now()
	if start.Before(now) {
		return newError(CodeTooFarInAdvance, "booking start %s is in the past", start)
	}
	horizon := now.Add(time.Duration(store.MaxAdvanceBookingDays) * 24 * time.Hour)
	if start.After(horizon) {
		return newError(CodeTooFarInAdvance, "booking start %s exceeds the %d-day advance window", start, store.MaxAdvanceBookingDays)
	}
	return nil
}

// loadEligibleStaff fetches and validates a requested staff member:
// must exist, belong to the store, be active staff, and be eligible for
// the treatment's required skill level.
func (e *Engine) loadEligibleStaff(tx *gorm.DB, storeID, staffID string, treatment *models.Treatment) (*models.User, error) {
	var staff models.User
	if err := tx.First(&staff, "id = ?", staffID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, newError(CodeInvalidStaff, "staff %s not found", staffID)
		}
		return nil, fmt.Errorf("error fetching staff %s: %w", staffID, err)
	}
	if staff.StoreID == nil || *staff.StoreID != storeID || staff.Role != models.RoleStaff || !staff.IsActive {
		return nil, newError(CodeInvalidStaff, "staff %s is not active staff of store %s", staffID, storeID)
	}
	if !catalog.CanBePerformedBy(treatment, &staff) {
		return nil, newError(CodeInvalidStaff, "staff %s does not meet the required skill level for treatment %s", staffID, treatment.ID)
	}
	return &staff, nil
}

// checkStoreQuotas implements the store-wide half of admission check 5:
// daily booking cap (local calendar date) and concurrent booking cap
// (overlapping window), each only enforced when configured.
func (e *Engine) checkStoreQuotas(ctx context.Context, tx *gorm.DB, store *models.Store, start, end time.Time, excludeBookingID string) error {
	if store.MaxDailyBookings != nil {
		loc, err := registry.LoadZone(store)
		if err != nil {
			return err
		}
		local := start.In(loc)
		dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).UTC()
		dayEnd := dayStart.AddDate(0, 0, 1)

		count, err := e.bookings.CountForStoreOnLocalDate(ctx, tx, store.ID, dayStart, dayEnd, excludeBookingID)
		if err != nil {
			return err
		}
		if int(count) >= *store.MaxDailyBookings {
			return newError(CodeDailyLimit, "store %s has reached its daily booking limit of %d", store.ID, *store.MaxDailyBookings)
		}
	}

	if store.MaxConcurrentBookings != nil {
		count, err := e.bookings.CountOverlappingForStore(ctx, tx, store.ID, start, end, excludeBookingID)
		if err != nil {
			return err
		}
		if int(count) >= *store.MaxConcurrentBookings {
			return newError(CodeStoreCapacity, "store %s has reached its concurrent booking limit of %d", store.ID, *store.MaxConcurrentBookings)
		}
	}

	return nil
}

func (e *Engine) publish(subject string, booking *models.Booking) {
	if err := e.publisher.Publish(subject, booking); err != nil {
		e.logger.Error("failed to publish booking event", "subject", subject, "bookingId", booking.ID, "error", err)
	}
}

// isModifiable implements spec.md §4.4: a booking's fields other than
// status/notes/cancellationReason may only change while pending or
// confirmed and still in the future.
func isModifiable(b *models.Booking, now time.Time) bool {
	switch b.Status {
	case models.BookingStatusPending, models.BookingStatusConfirmed:
		return b.BookingDateTime.After(now)
	default:
		return false
	}
}

// isCancellable implements spec.md §4.4/§8: cancellable until the store's
// cancellation deadline, inclusive at the exact boundary.
func isCancellable(b *models.Booking, cancellationDeadlineHours int, now time.Time) bool {
	if b.Status.IsTerminal() {
		return false
	}
	deadline := now.Add(time.Duration(cancellationDeadlineHours) * time.Hour)
	return !b.BookingDateTime.Before(deadline)
}

// RescheduleRequest carries the fields Reschedule may change; a nil
// pointer leaves the field unchanged.
type RescheduleRequest struct {
	BookingID string
	StartTime *time.Time
	StaffID   *string // empty string clears staffId
}

// Reschedule moves a booking's time and/or staff assignment, re-running
// the admission checks against the new window (excluding the booking's
// own row from every conflict count) under the same store lock.
func (e *Engine) Reschedule(ctx context.Context, req RescheduleRequest) (*models.Booking, error) {
	var booking *models.Booking

	err := e.db.Transaction(func(tx *gorm.DB) error {
		b, err := e.bookings.GetByIDForUpdate(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return newError(CodeNotModifiable, "booking %s not found", req.BookingID)
		}

		if err := repository.Lock(ctx, tx, b.StoreID); err != nil {
			return err
		}

		now := time.Now()
		if !isModifiable(b, now) {
			return newError(CodeNotModifiable, "booking %s is not modifiable in status %s", b.ID, b.Status)
		}

		store, err := e.stores.GetByIDForUpdate(ctx, tx, b.StoreID)
		if err != nil {
			return err
		}
		if store == nil {
			return newError(CodeTreatmentNotFound, "store %s not found", b.StoreID)
		}

		treatment, err := e.catalog.GetTreatmentForUpdate(ctx, tx, b.TreatmentID)
		if err != nil {
			return err
		}
		if treatment == nil {
			return newError(CodeTreatmentNotFound, "treatment %s not found", b.TreatmentID)
		}

		newStart := b.BookingDateTime
		if req.StartTime != nil {
			newStart = *req.StartTime
		}
		newEnd := newStart.Add(time.Duration(treatment.Duration) * time.Minute)

		newStaffID := ""
		if b.StaffID != nil {
			newStaffID = *b.StaffID
		}
		if req.StaffID != nil {
			newStaffID = *req.StaffID
		}

		if err := e.checkAdvanceWindow(store, newStart); err != nil {
			return err
		}
		open, err := registry.IsOpenOnDate(store, newStart)
		if err != nil {
			return err
		}
		if !open {
			return newError(CodeStoreClosed, "store %s is closed on %s", store.ID, newStart.Format("2006-01-02"))
		}

		var staff *models.User
		if newStaffID != "" {
			staff, err = e.loadEligibleStaff(tx, store.ID, newStaffID, treatment)
			if err != nil {
				return err
			}
		}

		slots, err := e.timeslots.FindCoveringForUpdate(ctx, tx, store.ID, treatment.ID, newStart, newEnd)
		if err != nil {
			return err
		}
		if len(slots) == 0 {
			return newError(CodeNoTimeslot, "no open timeslot covers the rescheduled window for treatment %s", treatment.ID)
		}
		newSlot := slots[0]

		treatmentCount, err := e.bookings.CountOverlappingForTreatment(ctx, tx, treatment.ID, newStart, newEnd, b.ID)
		if err != nil {
			return err
		}
		if int(treatmentCount) >= treatment.MaxConcurrentBookings {
			return newError(CodeTreatmentCapacity, "treatment %s already has %d concurrent bookings in this window", treatment.ID, treatmentCount)
		}

		if staff != nil {
			staffCount, err := e.bookings.CountOverlappingForStaff(ctx, tx, staff.ID, newStart, newEnd, b.ID)
			if err != nil {
				return err
			}
			if staffCount > 0 {
				return newError(CodeStaffConflict, "staff %s is already booked in this window", staff.ID)
			}
		}

		for _, resourceID := range treatment.RequiredResources {
			resource, err := e.catalog.GetResourceForUpdate(ctx, tx, resourceID)
			if err != nil {
				return err
			}
			if resource == nil || !resource.IsActive {
				return newError(CodeResourceCapacity, "required resource %s is unavailable", resourceID)
			}
			resourceCount, err := e.bookings.CountOverlappingForResource(ctx, tx, resourceID, newStart, newEnd, b.ID)
			if err != nil {
				return err
			}
			if int(resourceCount) >= resource.Capacity {
				return newError(CodeResourceCapacity, "resource %s is at capacity in this window", resourceID)
			}
		}

		if err := e.checkStoreQuotas(ctx, tx, store, newStart, newEnd, b.ID); err != nil {
			return err
		}

		oldSlots, err := e.timeslots.FindCoveringForUpdate(ctx, tx, store.ID, treatment.ID, b.BookingDateTime, b.EndTime())
		if err != nil {
			return err
		}

		b.BookingDateTime = newStart
		if newStaffID == "" {
			b.StaffID = nil
		} else {
			b.StaffID = &newStaffID
		}
		if err := e.bookings.Update(ctx, tx, b); err != nil {
			return err
		}

		if err := e.timeslots.Increment(ctx, tx, newSlot.ID); err != nil {
			return err
		}
		for _, old := range oldSlots {
			if old.ID == newSlot.ID {
				continue
			}
			if err := e.timeslots.Decrement(ctx, tx, old.ID); err != nil {
				return err
			}
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(events.BookingUpdatedEvent, booking)
	return booking, nil
}

// Cancel transitions a booking to cancelled, decrementing its timeslot
// counter. Idempotent: cancelling an already-cancelled booking is a
// no-op returning the current row rather than an error, so a retried
// cancel request can't double-decrement.
func (e *Engine) Cancel(ctx context.Context, bookingID, reason string) (*models.Booking, error) {
	var booking *models.Booking
	alreadyCancelled := false

	err := e.db.Transaction(func(tx *gorm.DB) error {
		b, err := e.bookings.GetByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return newError(CodeNotCancellable, "booking %s not found", bookingID)
		}

		if b.Status == models.BookingStatusCancelled {
			booking = b
			alreadyCancelled = true
			return nil
		}

		if err := repository.Lock(ctx, tx, b.StoreID); err != nil {
			return err
		}

		store, err := e.stores.GetByID(ctx, b.StoreID)
		if err != nil {
			return err
		}
		if store == nil {
			return newError(CodeTreatmentNotFound, "store %s not found", b.StoreID)
		}

		now := time.Now()
		if !isCancellable(b, store.CancellationDeadlineHours, now) {
			return newError(CodeNotCancellable, "booking %s is not cancellable within %d hours of its start", b.ID, store.CancellationDeadlineHours)
		}

		// The covering slot may be full, so it is looked up without the
		// remaining-capacity filter FindCoveringForUpdate applies.
		var slots []models.Timeslot
		if err := tx.WithContext(ctx).
			Where("store_id = ? AND is_active = ? AND start_time <= ? AND end_time >= ?", b.StoreID, true, b.BookingDateTime, b.EndTime()).
			Order("start_time").
			Find(&slots).Error; err != nil {
			return fmt.Errorf("failed to find covering timeslots: %w", err)
		}

		b.Status = models.BookingStatusCancelled
		b.CancelledAt = &now
		if reason != "" {
			b.CancellationReason = &reason
		}
		if err := e.bookings.Update(ctx, tx, b); err != nil {
			return err
		}

		for _, s := range slots {
			if err := e.timeslots.Decrement(ctx, tx, s.ID); err != nil {
				return err
			}
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !alreadyCancelled {
		e.publish(events.BookingCancelledEvent, booking)
	}
	return booking, nil
}

// transition applies a single state-machine edge guarded by the allowed
// predecessor set from spec.md §4.4.
func (e *Engine) transition(ctx context.Context, bookingID string, allowedFrom []models.BookingStatus, to models.BookingStatus, guard func(*models.Booking, time.Time) error) (*models.Booking, error) {
	var booking *models.Booking

	err := e.db.Transaction(func(tx *gorm.DB) error {
		b, err := e.bookings.GetByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return newError(CodeInvalidStatus, "booking %s not found", bookingID)
		}

		allowed := false
		for _, s := range allowedFrom {
			if b.Status == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return newError(CodeInvalidStatus, "booking %s cannot transition from %s to %s", b.ID, b.Status, to)
		}

		now := time.Now()
		if guard != nil {
			if err := guard(b, now); err != nil {
				return err
			}
		}

		b.Status = to
		switch to {
		case models.BookingStatusCompleted:
			b.CompletedAt = &now
		}
		if err := e.bookings.Update(ctx, tx, b); err != nil {
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	subject := events.BookingUpdatedEvent
	if to == models.BookingStatusCompleted {
		subject = events.BookingCompletedEvent
	}
	e.publish(subject, booking)
	return booking, nil
}

// Confirm moves a pending booking to confirmed (the admin-approval path
// when the store's requireApproval flag put it in pending).
func (e *Engine) Confirm(ctx context.Context, bookingID string) (*models.Booking, error) {
	return e.transition(ctx, bookingID, []models.BookingStatus{models.BookingStatusPending}, models.BookingStatusConfirmed, nil)
}

// Start moves a confirmed booking to in_progress.
func (e *Engine) Start(ctx context.Context, bookingID string) (*models.Booking, error) {
	return e.transition(ctx, bookingID, []models.BookingStatus{models.BookingStatusConfirmed}, models.BookingStatusInProgress, nil)
}

// Complete moves an in_progress booking to completed.
func (e *Engine) Complete(ctx context.Context, bookingID string) (*models.Booking, error) {
	return e.transition(ctx, bookingID, []models.BookingStatus{models.BookingStatusInProgress}, models.BookingStatusCompleted, nil)
}

// MarkNoShow moves a pending or confirmed booking to no_show; only
// valid after the booking's start time has passed.
func (e *Engine) MarkNoShow(ctx context.Context, bookingID string) (*models.Booking, error) {
	return e.transition(ctx, bookingID,
		[]models.BookingStatus{models.BookingStatusPending, models.BookingStatusConfirmed},
		models.BookingStatusNoShow,
		func(b *models.Booking, now time.Time) error {
			if !b.BookingDateTime.Before(now) {
				return newError(CodeInvalidStatus, "booking %s cannot be marked no_show before its start time", b.ID)
			}
			return nil
		},
	)
}
