package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/slotwise/reservation-engine/internal/models"
)

// TimeslotRepository persists Timeslot rows and their counters.
type TimeslotRepository struct {
	db *gorm.DB
}

func NewTimeslotRepository(db *gorm.DB) *TimeslotRepository {
	return &TimeslotRepository{db: db}
}

// ReplaceForRange deletes existing timeslots for storeID whose StartTime
// falls in [dayStart, dayEnd) and inserts fresh ones, all within tx. The
// caller must have already verified none of the removed slots carry
// bookings (spec.md §4.3 step 3) — this method only performs the writes.
func (r *TimeslotRepository) ReplaceForRange(ctx context.Context, tx *gorm.DB, storeID string, dayStart, dayEnd time.Time, fresh []models.Timeslot) error {
	if err := tx.WithContext(ctx).
		Where("store_id = ? AND start_time >= ? AND start_time < ?", storeID, dayStart, dayEnd).
		Delete(&models.Timeslot{}).Error; err != nil {
		return fmt.Errorf("failed to delete existing timeslots: %w", err)
	}

	if len(fresh) == 0 {
		return nil
	}

	if err := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return fmt.Errorf("failed to insert timeslots: %w", err)
	}
	return nil
}

// PurgePast deletes timeslots whose StartTime is before cutoff and which
// carry no bookings, across all stores. Run nightly by the background
// scheduler to keep the timeslot table from growing unbounded; slots
// that still hold bookings are left alone so booking history stays
// intact.
func (r *TimeslotRepository) PurgePast(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("start_time < ? AND current_bookings = 0", cutoff).
		Delete(&models.Timeslot{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge past timeslots: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ExistingWithBookings returns the timeslots in [dayStart, dayEnd) for
// storeID that still carry at least one booking — used to decide
// whether a regeneration must be refused.
func (r *TimeslotRepository) ExistingWithBookings(ctx context.Context, tx *gorm.DB, storeID string, dayStart, dayEnd time.Time) ([]models.Timeslot, error) {
	var slots []models.Timeslot
	err := tx.WithContext(ctx).
		Where("store_id = ? AND start_time >= ? AND start_time < ? AND current_bookings > 0", storeID, dayStart, dayEnd).
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check existing timeslot bookings: %w", err)
	}
	return slots, nil
}

// FindAvailableForDate returns active timeslots with remaining capacity
// whose StartTime falls in [dayStart, dayEnd), ordered by start.
func (r *TimeslotRepository) FindAvailableForDate(ctx context.Context, storeID string, dayStart, dayEnd time.Time) ([]models.Timeslot, error) {
	var slots []models.Timeslot
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND start_time >= ? AND start_time < ? AND is_active = ? AND current_bookings < max_capacity",
			storeID, dayStart, dayEnd, true).
		Order("start_time").
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find available timeslots: %w", err)
	}
	return slots, nil
}

// FindForTreatment additionally requires that the slot's treatment
// whitelist is empty or contains treatmentID; filtering the rest
// in Go keeps the Postgres array predicate simple and testable without
// a live database.
func (r *TimeslotRepository) FindForTreatment(ctx context.Context, storeID, treatmentID string, dayStart, dayEnd time.Time) ([]models.Timeslot, error) {
	slots, err := r.FindAvailableForDate(ctx, storeID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	out := slots[:0]
	for _, s := range slots {
		if s.AllowsTreatment(treatmentID) {
			out = append(out, s)
		}
	}
	return out, nil
}

// FindCoveringForUpdate finds the active timeslot(s) for storeID that
// fully cover [start,end) and can admit treatmentID, locking the rows
// inside tx so the counter read-then-write is race-free. Ordered by
// StartTime so the caller can deterministically pick the earliest.
func (r *TimeslotRepository) FindCoveringForUpdate(ctx context.Context, tx *gorm.DB, storeID, treatmentID string, start, end time.Time) ([]models.Timeslot, error) {
	var slots []models.Timeslot
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("store_id = ? AND is_active = ? AND start_time <= ? AND end_time >= ? AND current_bookings < max_capacity",
			storeID, true, start, end).
		Order("start_time").
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find covering timeslots: %w", err)
	}

	out := slots[:0]
	for _, s := range slots {
		if s.AllowsTreatment(treatmentID) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Increment bumps a timeslot's booking counter inside tx.
func (r *TimeslotRepository) Increment(ctx context.Context, tx *gorm.DB, slotID string) error {
	result := tx.WithContext(ctx).Model(&models.Timeslot{}).
		Where("id = ? AND current_bookings < max_capacity", slotID).
		UpdateColumn("current_bookings", gorm.Expr("current_bookings + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment timeslot %s: %w", slotID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("timeslot %s at capacity, cannot increment", slotID)
	}
	return nil
}

// Decrement drops a timeslot's booking counter inside tx, clamped at
// zero so double-cancellation stays idempotent.
func (r *TimeslotRepository) Decrement(ctx context.Context, tx *gorm.DB, slotID string) error {
	result := tx.WithContext(ctx).Model(&models.Timeslot{}).
		Where("id = ? AND current_bookings > 0", slotID).
		UpdateColumn("current_bookings", gorm.Expr("current_bookings - 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to decrement timeslot %s: %w", slotID, result.Error)
	}
	return nil
}
