package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkSlots_WholeHoursNoRemainder(t *testing.T) {
	loc := time.UTC
	open := time.Date(2026, 3, 2, 9, 0, 0, 0, loc)
	close := time.Date(2026, 3, 2, 17, 0, 0, 0, loc)

	slots := walkSlots(open, close, time.Hour)

	require.Len(t, slots, 8)
	assert.Equal(t, open, slots[0].start)
	assert.Equal(t, open.Add(time.Hour), slots[0].end)
	assert.Equal(t, close, slots[len(slots)-1].end)
}

func TestWalkSlots_DiscardsFinalPartialSlot(t *testing.T) {
	loc := time.UTC
	open := time.Date(2026, 3, 2, 9, 0, 0, 0, loc)
	close := time.Date(2026, 3, 2, 17, 30, 0, 0, loc) // 8.5 hours

	slots := walkSlots(open, close, time.Hour)

	require.Len(t, slots, 8) // the trailing 30 minutes don't form a full slot
}

func TestWalkSlots_WindowShorterThanSlotYieldsNone(t *testing.T) {
	loc := time.UTC
	open := time.Date(2026, 3, 2, 9, 0, 0, 0, loc)
	close := time.Date(2026, 3, 2, 9, 30, 0, 0, loc)

	slots := walkSlots(open, close, time.Hour)
	assert.Empty(t, slots)
}

func TestWalkSlots_SpringForwardDaytimeWindowKeepsSlotCount(t *testing.T) {
	// America/New_York springs forward on 2026-03-08: 2:00am -> 3:00am,
	// so the local day has only 23 hours between 00:00 and 24:00.
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	open := time.Date(2026, 3, 8, 9, 0, 0, 0, loc)
	close := time.Date(2026, 3, 8, 17, 0, 0, 0, loc)

	normalDaySlots := walkSlots(
		time.Date(2026, 3, 7, 9, 0, 0, 0, loc),
		time.Date(2026, 3, 7, 17, 0, 0, 0, loc),
		time.Hour,
	)
	dstDaySlots := walkSlots(open, close, time.Hour)

	// The operating window itself is defined in wall-clock terms
	// (09:00-17:00 local), so its wall-clock span is unaffected by the
	// transition; this asserts the walk is well-defined across it and
	// produces the same count when the window doesn't straddle 2am.
	assert.Equal(t, len(normalDaySlots), len(dstDaySlots))
}

func TestWalkSlots_WindowStraddlingSpringForwardLosesAnHour(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// A window expressed as absolute instants spanning the 2am jump loses
	// the skipped wall-clock hour; walking by elapsed duration reflects
	// that the transition shortens the instant-space between the two
	// local clock readings.
	open := time.Date(2026, 3, 8, 1, 0, 0, 0, loc)
	close := time.Date(2026, 3, 8, 4, 0, 0, 0, loc)

	slots := walkSlots(open, close, time.Hour)
	// Wall clock reads 1am..4am (3 hours) but only 2 real hours elapse
	// because 2:00-3:00 is skipped.
	assert.Len(t, slots, 2)
}
