// Package timeslot implements the Timeslot Index of spec.md §4.3:
// generating timeslots from operating hours, looking them up, and
// mutating their counters inside the admission transaction.
package timeslot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slotwise/reservation-engine/internal/models"
	"github.com/slotwise/reservation-engine/internal/registry"
	"github.com/slotwise/reservation-engine/internal/repository"
)

// ErrBookingsExist is returned when regeneration would remove timeslots
// that still carry bookings.
var ErrBookingsExist = fmt.Errorf("cannot regenerate timeslots that still have bookings")

// Index drives timeslot generation and lookup.
type Index struct {
	db        *gorm.DB
	timeslots *repository.TimeslotRepository
	stores    *repository.StoreRepository
}

func New(db *gorm.DB, timeslots *repository.TimeslotRepository, stores *repository.StoreRepository) *Index {
	return &Index{db: db, timeslots: timeslots, stores: stores}
}

// GenerateParams configures a single-day generation run.
type GenerateParams struct {
	StoreID             string
	LocalDate           time.Time
	SlotDurationMinutes int
	MaxCapacity         int
}

// GenerateDailySlots implements spec.md §4.3's generation algorithm: load
// the store, compute its operating window for localDate in its own
// zone, walk it in Δ-minute increments discarding a final partial slot,
// and replace the day's existing slots — failing the whole operation if
// any removed slot still carries a booking.
func (idx *Index) GenerateDailySlots(ctx context.Context, p GenerateParams) ([]models.Timeslot, error) {
	if p.SlotDurationMinutes <= 0 {
		p.SlotDurationMinutes = 60
	}
	if p.MaxCapacity <= 0 {
		p.MaxCapacity = 1
	}

	store, err := idx.stores.GetByID(ctx, p.StoreID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("store %s not found", p.StoreID)
	}

	loc, err := registry.LoadZone(store)
	if err != nil {
		return nil, err
	}

	sched, err := registry.OperatingHoursForDate(store, p.LocalDate)
	if err != nil {
		return nil, err
	}
	if sched == nil {
		// Closed: no writes, empty result (spec.md §4.3 step 1, §8 round-trip).
		return nil, nil
	}

	open, err := parseLocalClock(p.LocalDate, loc, sched.Open)
	if err != nil {
		return nil, err
	}
	closeT, err := parseLocalClock(p.LocalDate, loc, sched.Close)
	if err != nil {
		return nil, err
	}

	delta := time.Duration(p.SlotDurationMinutes) * time.Minute
	var fresh []models.Timeslot
	for _, iv := range walkSlots(open, closeT, delta) {
		fresh = append(fresh, models.Timeslot{
			ID:              uuid.New().String(),
			StoreID:         p.StoreID,
			StartTime:       iv.start.UTC(),
			EndTime:         iv.end.UTC(),
			MaxCapacity:     p.MaxCapacity,
			CurrentBookings: 0,
			IsActive:        true,
		})
	}

	dayStart := time.Date(p.LocalDate.Year(), p.LocalDate.Month(), p.LocalDate.Day(), 0, 0, 0, 0, loc).UTC()
	dayEnd := dayStart.AddDate(0, 0, 1)

	err = idx.db.Transaction(func(tx *gorm.DB) error {
		existing, err := idx.timeslots.ExistingWithBookings(ctx, tx, p.StoreID, dayStart, dayEnd)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrBookingsExist
		}
		return idx.timeslots.ReplaceForRange(ctx, tx, p.StoreID, dayStart, dayEnd, fresh)
	})
	if err != nil {
		return nil, err
	}

	return fresh, nil
}

// interval is a half-open [start,end) slot boundary pair, local to the
// store's zone until the caller converts to UTC for storage.
type interval struct {
	start, end time.Time
}

// walkSlots emits the contiguous sequence of Δ-sized half-open
// intervals from open to close, discarding a final slot that would
// extend past close (spec.md §4.3 step 2). Operates purely on the two
// instants, so it is naturally DST-correct: a spring-forward or
// fall-back day simply changes how many deltas fit between open and
// close.
func walkSlots(open, close time.Time, delta time.Duration) []interval {
	var out []interval
	for start := open; !start.Add(delta).After(close); start = start.Add(delta) {
		out = append(out, interval{start: start, end: start.Add(delta)})
	}
	return out
}

// parseLocalClock builds a time.Time for date's day at the given HH:MM
// wall clock, in loc.
func parseLocalClock(date time.Time, loc *time.Location, hhmm string) (time.Time, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &hh, &mm); err != nil {
		return time.Time{}, fmt.Errorf("invalid HH:MM clock value %q: %w", hhmm, err)
	}
	local := date.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), hh, mm, 0, 0, loc), nil
}

// FindAvailableForDate returns active timeslots with remaining capacity
// for storeID on localDate, in the store's own zone.
func (idx *Index) FindAvailableForDate(ctx context.Context, store *models.Store, localDate time.Time) ([]models.Timeslot, error) {
	loc, err := registry.LoadZone(store)
	if err != nil {
		return nil, err
	}
	dayStart := time.Date(localDate.Year(), localDate.Month(), localDate.Day(), 0, 0, 0, 0, loc).UTC()
	dayEnd := dayStart.AddDate(0, 0, 1)
	return idx.timeslots.FindAvailableForDate(ctx, store.ID, dayStart, dayEnd)
}

// FindForTreatment is FindAvailableForDate additionally filtered by the
// slot's treatment whitelist.
func (idx *Index) FindForTreatment(ctx context.Context, store *models.Store, treatmentID string, localDate time.Time) ([]models.Timeslot, error) {
	loc, err := registry.LoadZone(store)
	if err != nil {
		return nil, err
	}
	dayStart := time.Date(localDate.Year(), localDate.Month(), localDate.Day(), 0, 0, 0, 0, loc).UTC()
	dayEnd := dayStart.AddDate(0, 0, 1)
	return idx.timeslots.FindForTreatment(ctx, store.ID, treatmentID, dayStart, dayEnd)
}
