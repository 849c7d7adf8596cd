package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/slotwise/reservation-engine/internal/models"
)

// BookingRepository persists Booking rows and runs the conflict-counting
// queries the admission algorithm's five checks depend on. Each "count
// overlapping X" method implements the half-open overlap predicate from
// spec.md §4.5: a < d AND c < b.
type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// nonTerminalStatuses are the statuses that count toward every quota.
var nonTerminalStatuses = []models.BookingStatus{
	models.BookingStatusPending,
	models.BookingStatusConfirmed,
	models.BookingStatusInProgress,
}

func (r *BookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	if err := tx.WithContext(ctx).Create(booking).Error; err != nil {
		return fmt.Errorf("error creating booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching booking %s: %w", id, err)
	}
	return &b, nil
}

// GetByIDForUpdate reads a booking row with a lock inside tx, used by
// modification/cancellation paths.
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error) {
	var b models.Booking
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching booking %s: %w", id, err)
	}
	return &b, nil
}

func (r *BookingRepository) Update(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	if err := tx.WithContext(ctx).Save(booking).Error; err != nil {
		return fmt.Errorf("error updating booking %s: %w", booking.ID, err)
	}
	return nil
}

// overlapWhere applies the half-open interval overlap predicate
// start < end AND otherStart < proposedEnd AND proposedStart < otherEnd,
// excluding excludeBookingID when set (used by modification checks).
func overlapWhere(tx *gorm.DB, proposedStart, proposedEnd time.Time, excludeBookingID string) *gorm.DB {
	// Columns are qualified with the bookings table because the resource
	// check joins treatments, which also has id and duration columns.
	q := tx.Where("bookings.status IN ?", nonTerminalStatuses).
		Where("bookings.booking_date_time < ?", proposedEnd).
		Where("bookings.booking_date_time + (bookings.duration * interval '1 minute') > ?", proposedStart)
	if excludeBookingID != "" {
		q = q.Where("bookings.id <> ?", excludeBookingID)
	}
	return q
}

// CountOverlappingForTreatment counts non-terminal bookings for
// treatmentID overlapping [start,end) — admission check 2.
func (r *BookingRepository) CountOverlappingForTreatment(ctx context.Context, tx *gorm.DB, treatmentID string, start, end time.Time, excludeBookingID string) (int64, error) {
	var count int64
	q := overlapWhere(tx.WithContext(ctx).Model(&models.Booking{}).Where("treatment_id = ?", treatmentID), start, end, excludeBookingID)
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count treatment overlap: %w", err)
	}
	return count, nil
}

// CountOverlappingForStaff counts non-terminal bookings for staffID
// overlapping [start,end) — admission check 3.
func (r *BookingRepository) CountOverlappingForStaff(ctx context.Context, tx *gorm.DB, staffID string, start, end time.Time, excludeBookingID string) (int64, error) {
	var count int64
	q := overlapWhere(tx.WithContext(ctx).Model(&models.Booking{}).Where("staff_id = ?", staffID), start, end, excludeBookingID)
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count staff overlap: %w", err)
	}
	return count, nil
}

// CountOverlappingForResource counts non-terminal bookings whose
// treatment requires resourceID and whose interval overlaps [start,end)
// — admission check 4.
func (r *BookingRepository) CountOverlappingForResource(ctx context.Context, tx *gorm.DB, resourceID string, start, end time.Time, excludeBookingID string) (int64, error) {
	var count int64
	q := overlapWhere(
		tx.WithContext(ctx).Model(&models.Booking{}).
			Joins("JOIN treatments ON treatments.id = bookings.treatment_id").
			Where("? = ANY(treatments.required_resources)", resourceID),
		start, end, excludeBookingID,
	)
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count resource overlap: %w", err)
	}
	return count, nil
}

// CountOverlappingForStore counts non-terminal bookings for storeID
// overlapping [start,end) — the store.maxConcurrentBookings half of
// admission check 5.
func (r *BookingRepository) CountOverlappingForStore(ctx context.Context, tx *gorm.DB, storeID string, start, end time.Time, excludeBookingID string) (int64, error) {
	var count int64
	q := overlapWhere(tx.WithContext(ctx).Model(&models.Booking{}).Where("store_id = ?", storeID), start, end, excludeBookingID)
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count store overlap: %w", err)
	}
	return count, nil
}

// CountForStoreOnLocalDate counts non-terminal bookings for storeID on
// the local calendar date [dayStart,dayEnd) — the store.maxDailyBookings
// half of admission check 5.
func (r *BookingRepository) CountForStoreOnLocalDate(ctx context.Context, tx *gorm.DB, storeID string, dayStart, dayEnd time.Time, excludeBookingID string) (int64, error) {
	var count int64
	q := tx.WithContext(ctx).Model(&models.Booking{}).
		Where("store_id = ?", storeID).
		Where("status IN ?", nonTerminalStatuses).
		Where("booking_date_time >= ? AND booking_date_time < ?", dayStart, dayEnd)
	if excludeBookingID != "" {
		q = q.Where("id <> ?", excludeBookingID)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count daily bookings: %w", err)
	}
	return count, nil
}

func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]models.Booking, int64, error) {
	var bookings []models.Booking
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Booking{}).Where("customer_id = ?", customerID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting customer bookings: %w", err)
	}

	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("booking_date_time desc").
		Limit(limit).
		Offset(offset).
		Find(&bookings).Error; err != nil {
		return nil, 0, fmt.Errorf("error fetching customer bookings: %w", err)
	}
	return bookings, total, nil
}

func (r *BookingRepository) ListByStore(ctx context.Context, storeID string, limit, offset int) ([]models.Booking, int64, error) {
	var bookings []models.Booking
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Booking{}).Where("store_id = ?", storeID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting store bookings: %w", err)
	}

	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("booking_date_time desc").
		Limit(limit).
		Offset(offset).
		Find(&bookings).Error; err != nil {
		return nil, 0, fmt.Errorf("error fetching store bookings: %w", err)
	}
	return bookings, total, nil
}
