package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeLinker struct {
	code   string
	chatID int64
	err    error
}

func (f *fakeLinker) LinkTelegram(_ context.Context, code string, chatID int64) (*model.User, error) {
	f.code, f.chatID = code, chatID
	if f.err != nil {
		return nil, f.err
	}
	return &model.User{ID: 7, FirstName: "Ann", LastName: "Lee", Role: model.RoleStudent}, nil
}

func TestStartReply(t *testing.T) {
	ctx := context.Background()

	t.Run("links with code", func(t *testing.T) {
		linker := &fakeLinker{}
		c := NewBotController(nil, linker, zap.NewNop())

		reply := c.startReply(ctx, 555, "/start ABC123")
		assert.Equal(t, "ABC123", linker.code)
		assert.EqualValues(t, 555, linker.chatID)
		assert.Contains(t, reply, "Ann Lee")
	})

	t.Run("no code shows help", func(t *testing.T) {
		linker := &fakeLinker{}
		c := NewBotController(nil, linker, zap.NewNop())

		assert.Equal(t, helpText, c.startReply(ctx, 555, "/start"))
		assert.Empty(t, linker.code)
	})

	t.Run("expired code", func(t *testing.T) {
		c := NewBotController(nil, &fakeLinker{err: apperror.Validation("link code is invalid or expired")}, zap.NewNop())
		assert.Contains(t, c.startReply(ctx, 1, "/start OLD"), "expired")
	})

	t.Run("internal error", func(t *testing.T) {
		c := NewBotController(nil, &fakeLinker{err: errors.New("db down")}, zap.NewNop())
		assert.Contains(t, c.startReply(ctx, 1, "/start CODE"), "try again")
	})
}
