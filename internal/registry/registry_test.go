package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/reservation-engine/internal/models"
)

func mustLocation(t *testing.T, name string) *time.Location {
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func newWeekdayStore(t *testing.T) *models.Store {
	return &models.Store{
		ID:       "store-1",
		Timezone: "America/New_York",
		OperatingHours: models.OperatingHours{
			time.Monday:    {Open: "09:00", Close: "17:00"},
			time.Tuesday:   {Closed: true},
			time.Wednesday: {Open: "09:00", Close: "17:00"},
		},
	}
}

func TestIsOpenOnDate_ClosedDay(t *testing.T) {
	store := newWeekdayStore(t)
	loc := mustLocation(t, store.Timezone)

	tuesday := time.Date(2026, 8, 4, 12, 0, 0, 0, loc)
	open, err := IsOpenOnDate(store, tuesday)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestIsOpenOnDate_AbsentDay(t *testing.T) {
	store := newWeekdayStore(t)
	loc := mustLocation(t, store.Timezone)

	thursday := time.Date(2026, 8, 6, 12, 0, 0, 0, loc)
	open, err := IsOpenOnDate(store, thursday)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestOperatingHoursForDate_OpenDay(t *testing.T) {
	store := newWeekdayStore(t)
	loc := mustLocation(t, store.Timezone)

	monday := time.Date(2026, 8, 3, 0, 0, 0, 0, loc)
	sched, err := OperatingHoursForDate(store, monday)
	require.NoError(t, err)
	require.NotNil(t, sched)
	assert.Equal(t, "09:00", sched.Open)
	assert.Equal(t, "17:00", sched.Close)
}

func TestIsOpenNow_WithinWindow(t *testing.T) {
	store := newWeekdayStore(t)
	loc := mustLocation(t, store.Timezone)

	monday10am := time.Date(2026, 8, 3, 10, 0, 0, 0, loc)
	open, err := IsOpenNow(store, monday10am)
	require.NoError(t, err)
	assert.True(t, open)

	mondayMidnight := time.Date(2026, 8, 3, 23, 30, 0, 0, loc)
	open, err = IsOpenNow(store, mondayMidnight)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestDayOfWeekIn_CrossesZoneBoundary(t *testing.T) {
	// 23:30 in Los Angeles (UTC-7 in August) is already the next calendar
	// day in UTC.
	losAngeles := mustLocation(t, "America/Los_Angeles")
	instant := time.Date(2026, 8, 3, 23, 30, 0, 0, losAngeles) // Monday local

	assert.Equal(t, time.Monday, DayOfWeekIn(instant, losAngeles))
	assert.Equal(t, time.Tuesday, DayOfWeekIn(instant, time.UTC))
}

func TestApplyQuotaPatch_ShallowMerge(t *testing.T) {
	ten := 10
	store := &models.Store{BufferTimeMinutes: 15}
	store.MaxDailyBookings = &ten

	twenty := 20
	ApplyQuotaPatch(store, QuotaPatch{MaxConcurrentBookings: &twenty})

	require.NotNil(t, store.MaxDailyBookings)
	assert.Equal(t, 10, *store.MaxDailyBookings) // absent key preserved
	require.NotNil(t, store.MaxConcurrentBookings)
	assert.Equal(t, 20, *store.MaxConcurrentBookings)
}

func TestApplyQuotaPatch_ExplicitClear(t *testing.T) {
	ten := 10
	store := &models.Store{MaxDailyBookings: &ten}

	ApplyQuotaPatch(store, QuotaPatch{ClearMaxDailyBookings: true})

	assert.Nil(t, store.MaxDailyBookings)
}
