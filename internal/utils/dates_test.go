package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddDays(t *testing.T) {
	start := time.Date(2023, 1, 1, 10, 30, 0, 0, time.UTC)
	due := AddDays(start, 14)
	assert.Equal(t, time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC), due)

	// crosses a month boundary
	assert.Equal(t,
		time.Date(2023, 2, 4, 10, 30, 0, 0, time.UTC),
		AddDays(time.Date(2023, 1, 21, 10, 30, 0, 0, time.UTC), 14))
}

func TestDaysBetween(t *testing.T) {
	testCases := []struct {
		name    string
		later   time.Time
		earlier time.Time
		days    int
	}{
		{
			name:    "same day ignores hours",
			later:   time.Date(2023, 1, 15, 23, 59, 0, 0, time.UTC),
			earlier: time.Date(2023, 1, 15, 0, 1, 0, 0, time.UTC),
			days:    0,
		},
		{
			name:    "one minute past midnight is a full day",
			later:   time.Date(2023, 1, 16, 0, 1, 0, 0, time.UTC),
			earlier: time.Date(2023, 1, 15, 23, 59, 0, 0, time.UTC),
			days:    1,
		},
		{
			name:    "three days late",
			later:   time.Date(2023, 1, 18, 9, 0, 0, 0, time.UTC),
			earlier: time.Date(2023, 1, 15, 17, 0, 0, 0, time.UTC),
			days:    3,
		},
		{
			name:    "negative when later precedes earlier",
			later:   time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC),
			earlier: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			days:    -5,
		},
		{
			name:    "non-UTC input truncates on the UTC boundary",
			later:   time.Date(2023, 1, 16, 1, 0, 0, 0, time.FixedZone("CET", 3600)),
			earlier: time.Date(2023, 1, 15, 12, 0, 0, 0, time.UTC),
			days:    1,
		},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.days, DaysBetween(tt.later, tt.earlier))
		})
	}
}
