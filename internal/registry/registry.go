// Package registry holds the Store Registry's pure policy functions: no
// I/O beyond reads already supplied by the caller. Every timezone
// computation goes through the IANA zone database via time.LoadLocation
// so DST transitions are handled correctly.
package registry

import (
	"fmt"
	"time"

	"github.com/slotwise/reservation-engine/internal/models"
)

// LoadZone resolves a store's IANA timezone. Call sites should treat a
// failure here as a validation error. StoreRepository.Create does not
// check the zone, so an unresolvable one surfaces here.
func LoadZone(store *models.Store) (*time.Location, error) {
	loc, err := time.LoadLocation(store.Timezone)
	if err != nil {
		return nil, fmt.Errorf("store %s has unresolvable timezone %q: %w", store.ID, store.Timezone, err)
	}
	return loc, nil
}

// DayOfWeekIn computes the weekday of instant t as observed in loc,
// which is the only correct way to derive "today" for a store — naive
// UTC weekday arithmetic breaks near midnight in zones offset from UTC.
func DayOfWeekIn(t time.Time, loc *time.Location) time.Weekday {
	return t.In(loc).Weekday()
}

// OperatingHoursForDate returns the store's local open/close pair for
// localDate, or nil if the store is closed that day.
func OperatingHoursForDate(store *models.Store, localDate time.Time) (*models.DaySchedule, error) {
	loc, err := LoadZone(store)
	if err != nil {
		return nil, err
	}
	day := DayOfWeekIn(localDate, loc)
	sched, ok := store.OperatingHours[day]
	if !ok || sched.Closed {
		return nil, nil
	}
	return &sched, nil
}

// IsOpenOnDate reports whether the store has any operating hours on
// localDate.
func IsOpenOnDate(store *models.Store, localDate time.Time) (bool, error) {
	sched, err := OperatingHoursForDate(store, localDate)
	if err != nil {
		return false, err
	}
	return sched != nil, nil
}

// IsOpenNow reports whether the store is within its operating window at
// the current instant, evaluated in the store's own zone.
func IsOpenNow(store *models.Store, now time.Time) (bool, error) {
	loc, err := LoadZone(store)
	if err != nil {
		return false, err
	}
	local := now.In(loc)
	sched, err := OperatingHoursForDate(store, local)
	if err != nil {
		return false, err
	}
	if sched == nil {
		return false, nil
	}

	open, err := parseLocalClock(local, sched.Open)
	if err != nil {
		return false, err
	}
	closeT, err := parseLocalClock(local, sched.Close)
	if err != nil {
		return false, err
	}

	return !local.Before(open) && !local.After(closeT), nil
}

// parseLocalClock combines an "HH:MM" wall-clock string with the date
// portion of ref, in ref's own location.
func parseLocalClock(ref time.Time, hhmm string) (time.Time, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &hh, &mm); err != nil {
		return time.Time{}, fmt.Errorf("invalid HH:MM clock value %q: %w", hhmm, err)
	}
	return time.Date(ref.Year(), ref.Month(), ref.Day(), hh, mm, 0, 0, ref.Location()), nil
}

// QuotaPatch is the shallow-merge PATCH payload for a store's quota
// settings (spec.md §6). A nil pointer field means "absent, leave
// unchanged"; Clear fields name keys to explicitly null out.
type QuotaPatch struct {
	MaxDailyBookings      *int
	ClearMaxDailyBookings bool

	MaxConcurrentBookings      *int
	ClearMaxConcurrentBookings bool

	BufferTimeMinutes *int
}

// ApplyQuotaPatch performs the shallow merge described in spec.md §6:
// absent keys preserve prior values, an explicit clear nulls the key.
func ApplyQuotaPatch(store *models.Store, patch QuotaPatch) {
	switch {
	case patch.ClearMaxDailyBookings:
		store.MaxDailyBookings = nil
	case patch.MaxDailyBookings != nil:
		store.MaxDailyBookings = patch.MaxDailyBookings
	}

	switch {
	case patch.ClearMaxConcurrentBookings:
		store.MaxConcurrentBookings = nil
	case patch.MaxConcurrentBookings != nil:
		store.MaxConcurrentBookings = patch.MaxConcurrentBookings
	}

	if patch.BufferTimeMinutes != nil {
		store.BufferTimeMinutes = *patch.BufferTimeMinutes
	}
}
