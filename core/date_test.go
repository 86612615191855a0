package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/workforce-core/core"
)

func TestDay_TruncatesToMidnightUTC(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 03:30 IST on March 10 is still March 9 in UTC
	at := time.Date(2025, time.March, 10, 3, 30, 0, 0, loc)
	day := core.Day(at)

	assert.Equal(t, time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC), day)
}

func TestDaysInclusive(t *testing.T) {
	mar1 := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	mar3 := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 3, core.DaysInclusive(mar1, mar3), "Mar 1..3 is 3 days")
	assert.Equal(t, 1, core.DaysInclusive(mar1, mar1), "single day counts as 1")
}

func TestWeekOfMonth_BucketsByDayOfMonth(t *testing.T) {
	cases := []struct {
		day  int
		want int
	}{
		{1, 1}, {7, 1},
		{8, 2}, {14, 2},
		{15, 3}, {21, 3},
		{22, 4}, {28, 4},
		{29, 5}, {31, 5},
	}
	for _, tc := range cases {
		date := time.Date(2025, time.March, tc.day, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, tc.want, core.WeekOfMonth(date), "day %d", tc.day)
	}
}

func TestRangesOverlap_InclusiveBounds(t *testing.T) {
	d := func(day int) time.Time {
		return time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC)
	}

	assert.True(t, core.RangesOverlap(d(1), d(5), d(5), d(10)), "shared boundary day overlaps")
	assert.True(t, core.RangesOverlap(d(3), d(4), d(1), d(10)), "contained range overlaps")
	assert.False(t, core.RangesOverlap(d(1), d(4), d(5), d(10)), "adjacent ranges do not overlap")
}

func TestParseDate_RejectsMalformed(t *testing.T) {
	_, err := core.ParseDate("03/10/2025")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)

	got, err := core.ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), got)
}
