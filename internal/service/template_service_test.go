package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateGroupInput_Validate(t *testing.T) {
	valid := service.TemplateGroupInput{
		Weekdays:        []int{1},
		Times:           []service.TimeOfDay{{Hour: 10}},
		DurationMinutes: 60,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*service.TemplateGroupInput)
	}{
		{"no weekdays", func(in *service.TemplateGroupInput) { in.Weekdays = nil }},
		{"weekday out of range", func(in *service.TemplateGroupInput) { in.Weekdays = []int{7} }},
		{"no times", func(in *service.TemplateGroupInput) { in.Times = nil }},
		{"bad hour", func(in *service.TemplateGroupInput) { in.Times = []service.TimeOfDay{{Hour: 24}} }},
		{"bad minute", func(in *service.TemplateGroupInput) { in.Times = []service.TimeOfDay{{Hour: 1, Minute: 60}} }},
		{"zero duration", func(in *service.TemplateGroupInput) { in.DurationMinutes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			assert.Error(t, in.Validate())
		})
	}
}

func countSlots(t *testing.T, e *env, tutorID int64) int {
	t.Helper()
	n := 0
	for _, err := range e.availability.ListSlots(context.Background(), tutorID, nil, model.SlotWindowAll) {
		require.NoError(t, err)
		n++
	}
	return n
}

func TestTemplateGroupLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)
	other := e.tutor(t)

	in := service.TemplateGroupInput{
		Weekdays:        []int{int(time.Monday), int(time.Wednesday)},
		Times:           []service.TimeOfDay{{Hour: 10}, {Hour: 14}},
		DurationMinutes: 60,
	}
	groupID, created, err := e.templates.CreateGroup(ctx, tutor.ID, in)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, groupID)
	require.Len(t, created, 4)
	for _, tmpl := range created {
		assert.Equal(t, groupID, tmpl.GroupID)
		assert.True(t, tmpl.IsActive)
	}

	// две недели вперёд: 2 дня * 2 времени * 2 недели
	assert.Equal(t, 8, countSlots(t, e, tutor.ID))

	// повторная генерация не создаёт дублей
	n, err := e.templates.GenerateSlots(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	e.clock.Advance(7 * 24 * time.Hour)
	n, err = e.templates.GenerateSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	err = e.templates.DeactivateGroup(ctx, other.ID, groupID)
	assert.ErrorIs(t, err, apperror.ErrTemplateNotFound)

	require.NoError(t, e.templates.DeactivateGroup(ctx, tutor.ID, groupID))
	e.clock.Advance(7 * 24 * time.Hour)
	n, err = e.templates.GenerateSlots(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	templates, err := e.templates.ListTemplates(ctx, tutor.ID)
	require.NoError(t, err)
	require.Len(t, templates, 4)
	assert.False(t, templates[0].IsActive)

	require.NoError(t, e.templates.DeleteGroup(ctx, tutor.ID, groupID))
	err = e.templates.DeleteGroup(ctx, tutor.ID, groupID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	templates, err = e.templates.ListTemplates(ctx, tutor.ID)
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestTemplateGeneration_SkipsOverlaps(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)

	// ручной слот в понедельник 10:30, совпадающий с шаблоном 10:00-11:00
	start := time.Date(2030, time.March, 4, 10, 30, 0, 0, time.UTC)
	_, err := e.availability.CreateSlot(ctx, tutor.ID, start, start.Add(time.Hour))
	require.NoError(t, err)

	_, _, err = e.templates.CreateGroup(ctx, tutor.ID, service.TemplateGroupInput{
		Weekdays:        []int{int(time.Monday)},
		Times:           []service.TimeOfDay{{Hour: 10}},
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	// ручной + следующий понедельник
	assert.Equal(t, 2, countSlots(t, e, tutor.ID))
}

func TestTemplateGeneration_KeepsCancelledAndDeleted(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)

	// ручной слот на третий понедельник, отменён заранее
	third := time.Date(2030, time.March, 18, 10, 0, 0, 0, time.UTC)
	manual, err := e.availability.CreateSlot(ctx, tutor.ID, third, third.Add(time.Hour))
	require.NoError(t, err)
	_, err = e.availability.CancelSlot(ctx, tutor.ID, manual.ID)
	require.NoError(t, err)

	_, _, err = e.templates.CreateGroup(ctx, tutor.ID, service.TemplateGroupInput{
		Weekdays:        []int{int(time.Monday)},
		Times:           []service.TimeOfDay{{Hour: 10}},
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	available := model.SlotStatusAvailable
	var generated []*model.TimeSlot
	for slot, err := range e.availability.ListSlots(ctx, tutor.ID, &available, model.SlotWindowAll) {
		require.NoError(t, err)
		generated = append(generated, slot)
	}
	require.Len(t, generated, 2)

	_, err = e.availability.CancelSlot(ctx, tutor.ID, generated[0].ID)
	require.NoError(t, err)
	require.NoError(t, e.availability.DeleteSlot(ctx, tutor.ID, generated[1].ID))

	n, err := e.templates.GenerateSlots(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// окно сдвинулось на третий понедельник, там лежит отменённый ручной слот
	e.clock.Advance(7 * 24 * time.Hour)
	n, err = e.templates.GenerateSlots(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	for slot, err := range e.availability.ListSlots(ctx, tutor.ID, nil, model.SlotWindowAll) {
		require.NoError(t, err)
		assert.Equal(t, model.SlotStatusCancelled, slot.Status, slot.StartTime)
	}
	assert.Equal(t, 2, countSlots(t, e, tutor.ID))

	// следующий понедельник ещё не генерировался
	e.clock.Advance(7 * 24 * time.Hour)
	n, err = e.templates.GenerateSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreateGroup_Errors(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	student := e.student(t)

	_, _, err := e.templates.CreateGroup(ctx, student.ID, service.TemplateGroupInput{
		Weekdays:        []int{1},
		Times:           []service.TimeOfDay{{Hour: 10}},
		DurationMinutes: 60,
	})
	assert.ErrorIs(t, err, apperror.ErrTutorNotFound)

	_, _, err = e.templates.CreateGroup(ctx, student.ID, service.TemplateGroupInput{})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
