package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"go.uber.org/zap"
)

// Notification сообщение пользователю
type Notification struct {
	UserID int64
	Text   string
}

// Sender доставляет текст в чат
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// UserLookup находит пользователя, чтобы узнать его chat id
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// Dispatcher пул воркеров, рассылающих уведомления асинхронно
type Dispatcher struct {
	size   int
	jobs   chan Notification
	users  UserLookup
	sender Sender
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewDispatcher создаёт пул; буфер очереди равен queueSize
func NewDispatcher(size, queueSize int, users UserLookup, sender Sender, logger *zap.Logger) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	return &Dispatcher{
		size:   size,
		jobs:   make(chan Notification, queueSize),
		users:  users,
		sender: sender,
		logger: logger,
	}
}

// Start запускает воркеры, они завершаются при отмене ctx
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.size; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Wait ждёт завершения всех воркеров
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("Notification worker started", zap.Int("worker", id))

	for {
		select {
		case n := <-d.jobs:
			if err := d.deliver(ctx, n); err != nil {
				d.logger.Warn("Failed to deliver notification",
					zap.Int64("user_id", n.UserID),
					zap.Error(err),
				)
			}
		case <-ctx.Done():
			d.logger.Debug("Notification worker stopped", zap.Int("worker", id))
			return
		}
	}
}

// Notify ставит уведомление в очередь; при переполненной очереди сообщение отбрасывается
func (d *Dispatcher) Notify(_ context.Context, userID int64, text string) {
	select {
	case d.jobs <- Notification{UserID: userID, Text: text}:
	default:
		d.logger.Warn("Notification queue is full, dropping message", zap.Int64("user_id", userID))
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) error {
	user, err := d.users.GetByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil || user.TelegramChatID == nil {
		return nil
	}

	if err := d.sender.Send(ctx, *user.TelegramChatID, n.Text); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// Nop уведомитель, который ничего не делает
type Nop struct{}

func (Nop) Notify(context.Context, int64, string) {}
