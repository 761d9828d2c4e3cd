package render

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekStart(t *testing.T) {
	monday := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Time
	}{
		{"monday midnight", monday},
		{"wednesday afternoon", time.Date(2030, 3, 6, 15, 30, 0, 0, time.UTC)},
		{"sunday night", time.Date(2030, 3, 10, 23, 59, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, monday, WeekStart(tt.in))
		})
	}
}

func TestHoursFor(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2030, 3, 5, h, m, 0, 0, time.UTC) }

	assert.Equal(t, hourRange{start: 8, end: 20}, hoursFor(nil, time.UTC))

	slots := []*model.TimeSlot{
		{StartTime: at(9, 0), EndTime: at(10, 0)},
		{StartTime: at(14, 0), EndTime: at(15, 30)},
	}
	assert.Equal(t, hourRange{start: 8, end: 17}, hoursFor(slots, time.UTC))

	early := []*model.TimeSlot{{StartTime: at(0, 0), EndTime: at(1, 0)}}
	assert.Equal(t, 0, hoursFor(early, time.UTC).start)
}

func TestWeekImage(t *testing.T) {
	weekStart := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)
	slots := []*model.TimeSlot{
		{StartTime: weekStart.Add(9 * time.Hour), EndTime: weekStart.Add(10 * time.Hour), Status: model.SlotStatusAvailable},
		{StartTime: weekStart.Add(33 * time.Hour), EndTime: weekStart.Add(34 * time.Hour), Status: model.SlotStatusBooked},
		// следующая неделя не рисуется
		{StartTime: weekStart.AddDate(0, 0, 7), EndTime: weekStart.AddDate(0, 0, 7).Add(time.Hour), Status: model.SlotStatusAvailable},
	}

	data, err := WeekImage(weekStart.Add(50*time.Hour), weekStart.Add(34*time.Hour), slots)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, imageWidth, img.Bounds().Dx())
	assert.Equal(t, imageHeight, img.Bounds().Dy())
}

func TestDayIndex(t *testing.T) {
	weekStart := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

	idx, ok := dayIndex(weekStart, weekStart.Add(2*24*time.Hour+time.Hour))
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	_, ok = dayIndex(weekStart, weekStart.Add(-time.Minute))
	assert.False(t, ok)
	_, ok = dayIndex(weekStart, weekStart.AddDate(0, 0, 7))
	assert.False(t, ok)
}
