// Package catalog implements the treatment/resource invariants of
// spec.md §4.2: resource ownership validation, soft-delete guards, and
// staff eligibility.
package catalog

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/slotwise/reservation-engine/internal/models"
)

// ErrResourceNotInStore is returned when a treatment names a resource
// belonging to a different store than the treatment itself.
var ErrResourceNotInStore = fmt.Errorf("required resource does not belong to the treatment's store")

// ErrTreatmentHasOpenBookings is returned when deactivating a treatment
// that still has future pending/confirmed bookings.
var ErrTreatmentHasOpenBookings = fmt.Errorf("treatment has pending or confirmed future bookings")

// ValidateRequiredResources checks that every resource id in
// requiredResourceIDs exists and belongs to storeID.
func ValidateRequiredResources(ctx context.Context, db *gorm.DB, storeID string, requiredResourceIDs []string) error {
	if len(requiredResourceIDs) == 0 {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).
		Model(&models.Resource{}).
		Where("id IN ? AND store_id = ?", requiredResourceIDs, storeID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to validate required resources: %w", err)
	}

	if int(count) != len(uniqueStrings(requiredResourceIDs)) {
		return ErrResourceNotInStore
	}
	return nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// CanBePerformedBy reports whether a staff member's skill level is
// sufficient for a treatment's required level. "any" matches every
// level; otherwise the staff's level must rank at or above the
// required one (junior<senior<expert), with staff missing a level
// defaulting to junior.
func CanBePerformedBy(treatment *models.Treatment, staff *models.User) bool {
	if treatment.RequiredStaffLevel == models.StaffLevelAny {
		return true
	}
	required := models.SkillLevel(treatment.RequiredStaffLevel)
	return staff.EffectiveSkillLevel().AtLeast(required)
}

// GuardTreatmentDeactivation returns ErrTreatmentHasOpenBookings if any
// pending/confirmed future booking still references the treatment.
func GuardTreatmentDeactivation(ctx context.Context, db *gorm.DB, treatmentID string, now time.Time) error {
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("treatment_id = ? AND status IN ? AND booking_date_time >= ?",
			treatmentID,
			[]models.BookingStatus{models.BookingStatusPending, models.BookingStatusConfirmed},
			now,
		).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check open bookings: %w", err)
	}
	if count > 0 {
		return ErrTreatmentHasOpenBookings
	}
	return nil
}
