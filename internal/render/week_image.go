package render

import (
	"bytes"
	"fmt"
	"image/color"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Размеры и отступы
const (
	imageWidth       = 1400
	imageHeight      = 900
	headerHeight     = 100
	leftLabelsWidth  = 80
	legendWidth      = 140
	dayPaddingX      = 8
	minSlotHeight    = 8.0
	slotBorderRadius = 6.0
	shadowOffset     = 3.0
	daysInWeek       = 7
	hourPadding      = 1
)

var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 125}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{220, 220, 220, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}
	slotShadowColor  = color.RGBA{0, 0, 0, 20}
	slotTextColor    = color.RGBA{20, 24, 28, 230}
)

// slotColors цвет заливки по статусу
var slotColors = map[model.SlotStatus]color.RGBA{
	model.SlotStatusAvailable: {133, 193, 85, 220},
	model.SlotStatusBooked:    {255, 182, 193, 255},
	model.SlotStatusCompleted: {120, 160, 220, 220},
	model.SlotStatusCancelled: {158, 158, 158, 200},
}

var legend = []model.SlotStatus{
	model.SlotStatusAvailable,
	model.SlotStatusBooked,
	model.SlotStatusCompleted,
	model.SlotStatusCancelled,
}

type hourRange struct {
	start int
	end   int
}

func (h hourRange) total() int { return h.end - h.start + 1 }

// WeekStart полночь понедельника недели, в которую попадает t, в зоне t
func WeekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// WeekImage рисует PNG календарь недели, начинающейся в weekStart.
// Слоты вне недели пропускаются, now подсвечивает текущий день и время.
func WeekImage(weekStart, now time.Time, slots []*model.TimeSlot) ([]byte, error) {
	weekStart = WeekStart(weekStart)
	loc := weekStart.Location()
	now = now.In(loc)

	byDay := make(map[int][]*model.TimeSlot)
	var inWeek []*model.TimeSlot
	for _, slot := range slots {
		idx, ok := dayIndex(weekStart, slot.StartTime.In(loc))
		if !ok {
			continue
		}
		byDay[idx] = append(byDay[idx], slot)
		inWeek = append(inWeek, slot)
	}

	hours := hoursFor(inWeek, loc)
	today, hasToday := dayIndex(weekStart, now)

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(bgColor)
	dc.Clear()

	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / daysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total())

	drawHeader(dc, weekStart)
	drawHourLabels(dc, hours, cellHeight)

	for i := 0; i < daysInWeek; i++ {
		x := float64(leftLabelsWidth + i*dayWidth)
		drawDay(dc, weekStart.AddDate(0, 0, i), x, i, dayWidth, dayHeight, hasToday && i == today)
		drawHourLines(dc, x, dayWidth, hours, cellHeight)
		for _, slot := range byDay[i] {
			drawSlot(dc, slot, loc, x, dayWidth, hours, cellHeight)
		}
	}

	if hasToday {
		drawNowLine(dc, now, hours, cellHeight, dayWidth)
	}
	drawLegend(dc, dayWidth)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode week image: %w", err)
	}
	return buf.Bytes(), nil
}

func dayIndex(weekStart, t time.Time) (int, bool) {
	if t.Before(weekStart) || !t.Before(weekStart.AddDate(0, 0, daysInWeek)) {
		return 0, false
	}
	return (int(t.Weekday()) + 6) % 7, true
}

// hoursFor диапазон часов, покрывающий все слоты, с небольшим запасом
func hoursFor(slots []*model.TimeSlot, loc *time.Location) hourRange {
	if len(slots) == 0 {
		return hourRange{start: 8, end: 20}
	}

	minHour, maxHour := 23, 0
	for _, slot := range slots {
		start, end := slot.StartTime.In(loc), slot.EndTime.In(loc)
		endHour := end.Hour()
		if end.Minute() > 0 {
			endHour++
		}
		// слот через полночь рисуем до конца суток
		if end.Day() != start.Day() {
			endHour = 23
		}
		minHour = min(minHour, start.Hour())
		maxHour = max(maxHour, endHour)
	}

	return hourRange{
		start: max(0, minHour-hourPadding),
		end:   min(23, maxHour+hourPadding),
	}
}

func drawHeader(dc *gg.Context, weekStart time.Time) {
	weekEnd := weekStart.AddDate(0, 0, daysInWeek-1)
	title := fmt.Sprintf("Week of %s - %s", weekStart.Format("Jan 2"), weekEnd.Format("Jan 2, 2006"))

	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, float64(leftLabelsWidth), float64(headerHeight)/4, 0, 0.5)
}

func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	dc.SetColor(hourLabelColor)
	for i := 0; i < hours.total(); i++ {
		y := float64(headerHeight) + float64(i)*cellHeight
		dc.DrawStringAnchored(fmt.Sprintf("%02d:00", hours.start+i), float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func drawDay(dc *gg.Context, date time.Time, x float64, idx, dayWidth, dayHeight int, today bool) {
	switch {
	case today:
		dc.SetColor(todayBgColor)
	case idx%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, headerHeight, float64(dayWidth), float64(dayHeight))
	dc.Fill()

	dc.SetColor(textColor)
	center := x + float64(dayWidth)/2
	dc.DrawStringAnchored(date.Format("Mon"), center, float64(headerHeight)-40, 0.5, 0.5)
	dc.DrawStringAnchored(date.Format("02.01"), center, float64(headerHeight)-20, 0.5, 0.5)
}

func drawHourLines(dc *gg.Context, x float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)
	for i := 0; i <= hours.total(); i++ {
		y := float64(headerHeight) + float64(i)*cellHeight
		dc.DrawLine(x, y, x+float64(dayWidth), y)
		dc.Stroke()
	}
}

func drawSlot(dc *gg.Context, slot *model.TimeSlot, loc *time.Location, x float64, dayWidth int, hours hourRange, cellHeight float64) {
	start, end := slot.StartTime.In(loc), slot.EndTime.In(loc)
	startHour := float64(start.Hour()) + float64(start.Minute())/60
	endHour := float64(end.Hour()) + float64(end.Minute())/60
	if end.Day() != start.Day() {
		endHour = float64(hours.end + 1)
	}

	y := float64(headerHeight) + (startHour-float64(hours.start))*cellHeight
	height := max((endHour-startHour)*cellHeight, minSlotHeight)
	width := float64(dayWidth) - 2*dayPaddingX
	left := x + dayPaddingX

	fill, ok := slotColors[slot.Status]
	if !ok {
		fill = color.RGBA{220, 220, 220, 200}
	}

	dc.SetColor(slotShadowColor)
	dc.DrawRoundedRectangle(left+shadowOffset, y+2+shadowOffset, width, height-4, slotBorderRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(left, y+2, width, height-4, slotBorderRadius)
	dc.Fill()

	dc.SetColor(darken(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(left, y+2, width, height-4, slotBorderRadius)
	dc.Stroke()

	dc.SetColor(slotTextColor)
	dc.DrawStringAnchored(start.Format("15:04")+"-"+end.Format("15:04"), left+8, y+16, 0, 0)
}

func darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func drawNowLine(dc *gg.Context, now time.Time, hours hourRange, cellHeight float64, dayWidth int) {
	hour := float64(now.Hour()) + float64(now.Minute())/60
	if hour < float64(hours.start) || hour > float64(hours.end+1) {
		return
	}

	y := float64(headerHeight) + (hour-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2)
	dc.DrawLine(leftLabelsWidth, y, float64(leftLabelsWidth+daysInWeek*dayWidth), y)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, dayWidth int) {
	const boxW, boxH = 20.0, 14.0

	x := float64(leftLabelsWidth+daysInWeek*dayWidth) + 10
	y := float64(imageHeight) - 130

	for _, status := range legend {
		dc.SetColor(slotColors[status])
		dc.DrawRoundedRectangle(x, y, boxW, boxH, 3)
		dc.Fill()

		dc.SetColor(textColor)
		dc.DrawStringAnchored(string(status), x+boxW+8, y+boxH/2, 0, 0.5)
		y += boxH + 14
	}
}
