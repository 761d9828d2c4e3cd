package service

import (
	"context"
	"time"
)

// Notifier асинхронно уведомляет пользователя; ошибки доставки не возвращаются вызывающему
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, int64, string) {}

// Option общие настройки сервисов
type Option func(*options)

type options struct {
	now      func() time.Time
	notifier Notifier
}

// WithClock подменяет текущее время
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithNotifier задаёт канал уведомлений
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, notifier: nopNotifier{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

const timeLayout = "02.01.2006 15:04 MST"
