package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateTime(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)

	tests := []struct {
		in       string
		want     time.Time
		dateOnly bool
		wantErr  bool
	}{
		{in: "2025-03-08", want: time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), dateOnly: true},
		{in: "2025-03-08T19:30", want: time.Date(2025, 3, 8, 19, 30, 0, 0, time.UTC)},
		{in: "2025-03-08T19:30:15", want: time.Date(2025, 3, 8, 19, 30, 15, 0, time.UTC)},
		{in: "2025-03-08 19:30", want: time.Date(2025, 3, 8, 19, 30, 0, 0, time.UTC)},
		{in: "2025-03-08T16:30:00Z", want: time.Date(2025, 3, 8, 19, 30, 0, 0, time.UTC)},
		{in: "2025-03-08T21:30:00+05:00", want: time.Date(2025, 3, 8, 19, 30, 0, 0, time.UTC)},
		{in: "  2025-03-08  ", want: time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), dateOnly: true},
		{in: "08.03.2025", wantErr: true},
		{in: "", wantErr: true},
		{in: "2025-13-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, dateOnly, err := ParseDateTime(tt.in, moscow)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, tt.dateOnly, dateOnly)
		})
	}
}

// within mirrors the half-open range check the reservation query runs.
func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func TestSlotPolicyDay(t *testing.T) {
	var p SlotPolicy
	noon := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 3, 8, 20, 0, 0, 0, time.UTC)
	nextDay := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)

	from, to := p.Span(noon, false)
	assert.Equal(t, time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, nextDay, to)

	assert.True(t, within(evening, from, to), "same calendar day conflicts")
	assert.False(t, within(nextDay, from, to))
	assert.Equal(t, "day", p.String())
}

func TestSlotPolicyWindow(t *testing.T) {
	p := SlotPolicy{Window: 3 * time.Hour}
	noon := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)

	from, to := p.Span(noon, false)
	assert.True(t, within(noon.Add(2*time.Hour), from, to))
	assert.True(t, within(noon.Add(-2*time.Hour), from, to))
	assert.False(t, within(noon.Add(3*time.Hour), from, to))
	assert.False(t, within(noon.Add(-3*time.Hour), from, to))
	assert.False(t, within(noon.Add(8*time.Hour), from, to), "12:00 and 20:00 may share a table")

	from, to = p.Span(noon, true)
	assert.Equal(t, Day(noon), from, "date-only queries span the day")
	assert.Equal(t, Day(noon).AddDate(0, 0, 1), to)
}

func TestNewPeriod(t *testing.T) {
	a := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	b := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	p, err := NewPeriod(a, b)
	require.NoError(t, err)
	assert.Equal(t, Day(a), p.From)

	_, err = NewPeriod(b, a)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSlotPolicyAffectedDays(t *testing.T) {
	late := time.Date(2025, 3, 8, 22, 30, 0, 0, time.UTC)

	assert.Equal(t, []time.Time{Day(late)}, SlotPolicy{}.AffectedDays(late))

	days := SlotPolicy{Window: 3 * time.Hour}.AffectedDays(late)
	assert.Equal(t, []time.Time{Day(late), Day(late).AddDate(0, 0, 1)}, days)
}
