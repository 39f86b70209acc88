package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidDate(t *testing.T) {
	valid := []string{"2025-01-10", "2024-02-29", "1999-12-31"}
	for _, s := range valid {
		assert.True(t, ValidDate(s), s)
	}
	invalid := []string{
		"", "2025-1-10", "2025/01/10", "2025-13-01",
		"2025-00-10", "2025-02-30", "2023-02-29", "2025-04-31",
		"25-01-10x", "2025-01-1",
	}
	for _, s := range invalid {
		assert.False(t, ValidDate(s), s)
	}
}

func TestParseDate(t *testing.T) {
	y, m, d, err := ParseDate("2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, 2025, y)
	assert.Equal(t, 1, m)
	assert.Equal(t, 10, d)

	_, _, _, err = ParseDate("garbage")
	assert.ErrorIs(t, err, ErrBadDate)
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("07:30")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 30, m)

	h, m, err = ParseClock("7:05")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 5, m)

	_, _, err = ParseClock("24:00")
	assert.Error(t, err)
	_, _, err = ParseClock("nope")
	assert.Error(t, err)
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "07:05", FormatTime(7, 5))
	assert.Equal(t, "2025-01-10", FormatDate(2025, 1, 10))
	ts := time.Date(2025, time.January, 10, 7, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-01-10", DateOf(ts))
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, DaysInMonth(2025, 1))
	assert.Equal(t, 28, DaysInMonth(2025, 2))
	assert.Equal(t, 29, DaysInMonth(2024, 2))
	assert.Equal(t, 28, DaysInMonth(1900, 2))
	assert.Equal(t, 29, DaysInMonth(2000, 2))
	assert.Equal(t, 30, DaysInMonth(2025, 4))
}

func TestClampDayMonthWraps(t *testing.T) {
	day, month := 32, 1
	ClampDayMonth(&day, &month, 2025)
	assert.Equal(t, 1, day)

	day, month = 0, 3
	ClampDayMonth(&day, &month, 2025)
	assert.Equal(t, 31, day)

	day, month = 10, 13
	ClampDayMonth(&day, &month, 2025)
	assert.Equal(t, 1, month)

	day, month = 10, 0
	ClampDayMonth(&day, &month, 2025)
	assert.Equal(t, 12, month)

	// Day beyond the new month's length wraps too.
	day, month = 30, 2
	ClampDayMonth(&day, &month, 2025)
	assert.Equal(t, 1, day)
}

func TestClampClockWraps(t *testing.T) {
	h, m := 24, -1
	ClampClock(&h, &m)
	assert.Equal(t, 0, h)
	assert.Equal(t, 59, m)

	h, m = -1, 60
	ClampClock(&h, &m)
	assert.Equal(t, 23, h)
	assert.Equal(t, 0, m)
}
