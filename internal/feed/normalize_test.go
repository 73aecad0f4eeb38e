package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Guizzs26/suya-queue/internal/models"
)

func TestNormalizeSpice(t *testing.T) {
	cases := map[string]models.SpiceLevel{
		"No Pepper": models.SpiceNone,
		"no-pepper": models.SpiceNone,
		"none":      models.SpiceNone,
		"Normal":    models.SpiceNormal,
		"":          models.SpiceNormal,
		"medium":    models.SpiceNormal,
		"Extra":     models.SpiceExtra,
		"EXTRA hot": models.SpiceExtra,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSpice(in), "input %q", in)
	}
}

func TestNormalizePortion(t *testing.T) {
	assert.Equal(t, models.PortionKids, NormalizePortion("Kids"))
	assert.Equal(t, models.PortionKids, NormalizePortion("Child size"))
	assert.Equal(t, models.PortionRegular, NormalizePortion("Regular"))
	assert.Equal(t, models.PortionRegular, NormalizePortion(""))
}

func TestParseTimestamp(t *testing.T) {
	loc := time.UTC
	mdy := TimestampFormat{Location: loc}

	got, ok := ParseTimestamp("12/15/2025 21:41:07", mdy)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 12, 15, 21, 41, 7, 0, loc), got)

	got, ok = ParseTimestamp("2025-12-15T21:41:07+01:00", mdy)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 12, 15, 20, 41, 7, 0, time.UTC), got.UTC())

	_, ok = ParseTimestamp("yesterday", mdy)
	assert.False(t, ok)
	_, ok = ParseTimestamp("", mdy)
	assert.False(t, ok)
}

func TestParseTimestamp_DayFirst(t *testing.T) {
	dmy := TimestampFormat{Location: time.UTC, Order: DateDMY}

	tests := []struct {
		raw  string
		want time.Time
	}{
		{"15/12/2025 21:41:00", time.Date(2025, 12, 15, 21, 41, 0, 0, time.UTC)},
		{"05/12/2025 21:41:00", time.Date(2025, 12, 5, 21, 41, 0, 0, time.UTC)},
		{"5/12/2025 21:41", time.Date(2025, 12, 5, 21, 41, 0, 0, time.UTC)},
		{"15.12.2025 21:41:00", time.Date(2025, 12, 15, 21, 41, 0, 0, time.UTC)},
		{"2025-12-05 21:41:00", time.Date(2025, 12, 5, 21, 41, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.raw, dmy)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	// Month-first never reads a day past 12 as a month
	_, ok := ParseTimestamp("15/12/2025 21:41:00", TimestampFormat{Location: time.UTC})
	assert.False(t, ok)
}

func TestParseDateOrder(t *testing.T) {
	for in, want := range map[string]DateOrder{"": DateMDY, "mdy": DateMDY, " DMY ": DateDMY} {
		got, err := ParseDateOrder(in)
		assert.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, err := ParseDateOrder("YMD")
	assert.ErrorIs(t, err, models.ErrValidation)
}
