package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"validation", ErrInvalidRating, ErrValidation},
		{"not found", ErrSlotNotFound, ErrNotFound},
		{"authorization", ErrNotSlotOwner, ErrAuthorization},
		{"conflict", ErrSlotNotAvailable, ErrConflict},
		{"authentication", ErrTokenRevoked, ErrAuthentication},
		{"wrapped", fmt.Errorf("book slot: %w", ErrSlotNotAvailable), ErrConflict},
		{"formatted", Conflict("slot %d taken", 7), ErrConflict},
		{"internal", errors.New("connection reset"), nil},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestSpecificErrorsStayDistinct(t *testing.T) {
	err := fmt.Errorf("delete slot: %w", ErrSlotNotFound)

	assert.ErrorIs(t, err, ErrSlotNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, "delete slot: slot not found", err.Error())
}

func TestInvalidInput(t *testing.T) {
	assert.NoError(t, InvalidInput(nil))

	cause := errors.New("email: must contain @")
	err := InvalidInput(cause)

	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause.Error(), err.Error())
}
