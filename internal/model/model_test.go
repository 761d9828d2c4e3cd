package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to SlotStatus
		want     bool
	}{
		{SlotStatusAvailable, SlotStatusBooked, true},
		{SlotStatusAvailable, SlotStatusCancelled, true},
		{SlotStatusAvailable, SlotStatusCompleted, false},
		{SlotStatusBooked, SlotStatusAvailable, true},
		{SlotStatusBooked, SlotStatusCompleted, true},
		{SlotStatusBooked, SlotStatusCancelled, true},
		{SlotStatusCompleted, SlotStatusBooked, false},
		{SlotStatusCompleted, SlotStatusAvailable, false},
		{SlotStatusCancelled, SlotStatusAvailable, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, SlotStatusCompleted.Terminal())
	assert.True(t, SlotStatusCancelled.Terminal())
	assert.False(t, SlotStatusBooked.Terminal())
	assert.False(t, SlotStatus("archived").Valid())
}

func TestTimeSlotOverlaps(t *testing.T) {
	base := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	slot := &TimeSlot{StartTime: base, EndTime: base.Add(time.Hour)}

	assert.True(t, slot.Overlaps(base.Add(30*time.Minute), base.Add(90*time.Minute)))
	assert.True(t, slot.Overlaps(base.Add(-time.Hour), base.Add(2*time.Hour)))
	assert.False(t, slot.Overlaps(base.Add(time.Hour), base.Add(2*time.Hour)))
	assert.False(t, slot.Overlaps(base.Add(-time.Hour), base))

	assert.False(t, slot.Elapsed(base.Add(59*time.Minute)))
	assert.True(t, slot.Elapsed(base.Add(time.Hour)))
}

func TestSlotFilterMatch(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	past := &TimeSlot{StartTime: now.Add(-2 * time.Hour), EndTime: now.Add(-time.Hour), Status: SlotStatusCompleted}
	current := &TimeSlot{StartTime: now.Add(-30 * time.Minute), EndTime: now.Add(30 * time.Minute), Status: SlotStatusBooked}
	future := &TimeSlot{StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour), Status: SlotStatusAvailable}

	upcoming := SlotFilter{Window: SlotWindowUpcoming, Now: now}
	completed := SlotFilter{Window: SlotWindowCompleted, Now: now}
	available := SlotStatusAvailable
	onlyAvailable := SlotFilter{Status: &available, Window: SlotWindowAll, Now: now}

	assert.False(t, upcoming.Match(past))
	assert.False(t, upcoming.Match(current))
	assert.True(t, upcoming.Match(future))

	assert.True(t, completed.Match(past))
	assert.False(t, completed.Match(current))
	assert.False(t, completed.Match(future))

	assert.False(t, onlyAvailable.Match(past))
	assert.True(t, onlyAvailable.Match(future))
}

func TestParseSlotWindow(t *testing.T) {
	w, ok := ParseSlotWindow("")
	assert.True(t, ok)
	assert.Equal(t, SlotWindowAll, w)

	w, ok = ParseSlotWindow("upcoming")
	assert.True(t, ok)
	assert.Equal(t, SlotWindowUpcoming, w)

	_, ok = ParseSlotWindow("yesterday")
	assert.False(t, ok)
}

func TestNextOccurrences(t *testing.T) {
	tmpl := &AvailabilityTemplate{Weekday: int(time.Tuesday), StartHour: 18, StartMinute: 30, DurationMinutes: 90}

	// понедельник 19:00
	from := time.Date(2030, time.March, 4, 19, 0, 0, 0, time.UTC)
	got := tmpl.NextOccurrences(from, from.AddDate(0, 0, 14))

	assert.Equal(t, []time.Time{
		time.Date(2030, time.March, 5, 18, 30, 0, 0, time.UTC),
		time.Date(2030, time.March, 12, 18, 30, 0, 0, time.UTC),
	}, got)
	assert.Equal(t, 90*time.Minute, tmpl.Duration())

	// начало в тот же день, но раньше from, пропускается
	from = time.Date(2030, time.March, 5, 19, 0, 0, 0, time.UTC)
	got = tmpl.NextOccurrences(from, from.AddDate(0, 0, 6))
	assert.Empty(t, got)
}

func TestRatingSummaryAdd(t *testing.T) {
	var s RatingSummary
	for _, r := range []int{5, 3, 4, 0, 6} {
		s.Add(r)
	}

	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 4.0, s.Average, 1e-9)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 1, 4: 1, 5: 1}, s.Histogram)
}

func TestNewRatingSummary_KeysByRating(t *testing.T) {
	s := NewRatingSummary(7)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, s.Histogram)

	s.Add(1)
	s.Add(5)
	assert.Equal(t, 1, s.Histogram[1])
	assert.Equal(t, 1, s.Histogram[5])
	assert.NotContains(t, s.Histogram, 0)
	assert.InDelta(t, 3.0, s.Average, 1e-9)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"histogram":{"1":1,"2":0,"3":0,"4":0,"5":1}`)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("tutor")
	assert.NoError(t, err)
	assert.Equal(t, RoleTutor, r)

	_, err = ParseRole("teacher")
	assert.Error(t, err)
}
