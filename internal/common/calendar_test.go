package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create a time easily
func mustTime(t *testing.T, layout, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(layout, value)
	if err != nil {
		t.Fatalf("failed to parse time %q: %v", value, err)
	}
	return parsed
}

func TestIsWorkingDay(t *testing.T) {
	tests := []struct {
		name        string
		date        string
		holidays    []string
		wantWorking bool
	}{
		{"monday", "2025-01-06", nil, true},
		{"friday", "2025-01-10", nil, true},
		{"saturday", "2025-01-11", nil, false},
		{"sunday", "2025-01-12", nil, false},
		{"holiday on monday", "2025-01-06", []string{"2025-01-06"}, false},
		{"holiday on different day", "2025-01-07", []string{"2025-01-06"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal, err := NewTradingCalendar(tt.holidays)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWorking, cal.IsWorkingDay(mustTime(t, "2006-01-02", tt.date)))
		})
	}
}

func TestPreviousWorkingDay(t *testing.T) {
	cal, err := NewTradingCalendar([]string{"2025-01-03"})
	require.NoError(t, err)

	// Tuesday -> Monday
	day, ok := cal.PreviousWorkingDay(mustTime(t, "2006-01-02", "2025-01-07"), 5)
	require.True(t, ok)
	assert.Equal(t, "2025-01-06", day.Format("2006-01-02"))

	// Monday -> skips weekend and the Friday holiday -> Thursday
	day, ok = cal.PreviousWorkingDay(mustTime(t, "2006-01-02", "2025-01-06"), 5)
	require.True(t, ok)
	assert.Equal(t, "2025-01-02", day.Format("2006-01-02"))

	// Too short a search window
	_, ok = cal.PreviousWorkingDay(mustTime(t, "2006-01-02", "2025-01-06"), 2)
	assert.False(t, ok)
}

func TestNewTradingCalendar_InvalidHoliday(t *testing.T) {
	_, err := NewTradingCalendar([]string{"2025/01/01"})
	assert.Error(t, err)
}

func TestResolveTargetDate(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	// 2024-03-05 20:00 UTC is already 2024-03-06 in Seoul
	now := time.Date(2024, 3, 5, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-06", ResolveTargetDate(now, seoul, "today").Format("2006-01-02"))
	assert.Equal(t, "2024-03-05", ResolveTargetDate(now, seoul, "yesterday").Format("2006-01-02"))
	assert.Equal(t, "2024-03-05", ResolveTargetDate(now, nil, "today").Format("2006-01-02"))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-03-05 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("20240305")
	assert.Error(t, err)
}
