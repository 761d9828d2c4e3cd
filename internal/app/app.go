package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/auth"
	"github.com/Freeeeeet/tutor_market/internal/config"
	"github.com/Freeeeeet/tutor_market/internal/controller/rest"
	"github.com/Freeeeeet/tutor_market/internal/controller/telegram"
	"github.com/Freeeeeet/tutor_market/internal/notify"
	"github.com/Freeeeeet/tutor_market/internal/repository"
	"github.com/Freeeeeet/tutor_market/internal/repository/memstore"
	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App собранное приложение: хранилище, сервисы, HTTP сервер и фоновые задачи
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	store repository.Store

	services   rest.Services
	dispatcher *notify.Dispatcher
	bot        *telegram.BotController
	scheduler  *Scheduler
	server     *http.Server
}

// Store хранилище, умеющее отвечать на /health
type Store interface {
	repository.Store
	rest.Pinger
}

// OpenStore подключается к PostgreSQL и применяет миграции, либо создаёт хранилище в памяти
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, inMemory bool) (Store, *pgxpool.Pool, error) {
	if inMemory {
		logger.Warn("Using in-memory store, data will be lost on exit")
		return memstore.New(), nil, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Connected to database")

	migrator, err := NewMigrator(pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return repository.NewPgStore(pool), pool, nil
}

// New собирает зависимости; ничего не запускает
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, inMemory bool) (*App, error) {
	store, pool, err := OpenStore(ctx, cfg, logger, inMemory)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger, pool: pool, store: store}

	revocations, err := a.revocationList(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.services.Users = service.NewUserService(store,
		auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		auth.NewHasher(cfg.Auth.BcryptCost), revocations, logger)
	if a.redis != nil {
		a.services.Users.WithLinkCodes(auth.NewRedisLinkCodes(a.redis))
	}

	var sender notify.Sender = logSender{logger: logger}
	if cfg.Telegram.Token != "" {
		b, err := notify.NewBot(cfg.Telegram.Token)
		if err != nil {
			a.Close()
			return nil, err
		}
		sender = notify.NewTelegramSender(b)
		a.bot = telegram.NewBotController(b, a.services.Users, logger.Named("telegram"))
	} else {
		logger.Info("Telegram token not set, notifications are only logged")
	}

	a.dispatcher = notify.NewDispatcher(cfg.Notify.Workers, cfg.Notify.QueueSize, store.Users(), sender, logger.Named("notify"))
	notifier := service.WithNotifier(a.dispatcher)

	a.services.Availability = service.NewAvailabilityService(store, logger, notifier)
	a.services.Bookings = service.NewBookingService(store, logger, notifier)
	a.services.Reviews = service.NewReviewService(store, logger, notifier)
	a.services.Catalog = service.NewCatalogService(store, logger)
	a.services.Templates = service.NewTemplateService(store, logger, cfg.Scheduler.WeeksAhead, cfg.Location())

	if cfg.Admin.Email != "" {
		if err := a.services.Users.SeedAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			a.Close()
			return nil, err
		}
	}

	jobs := []Job{
		{
			Name:     "complete_elapsed",
			Interval: cfg.Scheduler.SweepInterval,
			Run: func(ctx context.Context) error {
				_, err := a.services.Bookings.CompleteElapsed(ctx)
				return err
			},
		},
		{
			Name:     "generate_slots",
			Interval: cfg.Scheduler.GenerationInterval,
			Run: func(ctx context.Context) error {
				_, err := a.services.Templates.GenerateSlots(ctx)
				return err
			},
		},
	}
	if list, ok := revocations.(*auth.StoreRevocationList); ok {
		jobs = append(jobs, Job{
			Name:     "purge_revoked_tokens",
			Interval: time.Hour,
			Run: func(ctx context.Context) error {
				_, err := list.Purge(ctx)
				return err
			},
		})
	}
	a.scheduler = NewScheduler(logger.Named("scheduler"), jobs...)

	handler := rest.NewHandler(a.services, store, logger.Named("http"))
	router, err := rest.NewRouter(handler, rest.RouterConfig{
		AllowOrigins:    cfg.HTTP.AllowOrigins,
		RateLimitPerSec: cfg.HTTP.RateLimitPerSec,
		RateLimitBurst:  cfg.HTTP.RateLimitBurst,
		CacheTTL:        cfg.HTTP.CacheTTL,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.server = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// revocationList Redis при наличии адреса, иначе таблица в основном хранилище; клиент Redis остаётся в a.redis
func (a *App) revocationList(ctx context.Context) (auth.RevocationList, error) {
	if a.cfg.Redis.Addr == "" {
		return auth.NewStoreRevocationList(a.store.Revocations()), nil
	}

	client, err := auth.NewRedisClient(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	a.redis = client
	a.logger.Info("Token revocations and telegram link codes stored in redis", zap.String("addr", a.cfg.Redis.Addr))
	return auth.NewRedisRevocationList(client), nil
}

// Services сервисы приложения, для команд CLI
func (a *App) Services() rest.Services {
	return a.services
}

// Run запускает фоновые задачи, бота и HTTP сервер; возвращается после отмены ctx
func (a *App) Run(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	a.dispatcher.Start(ctx)
	a.scheduler.Start(ctx)

	if a.bot != nil {
		if err := a.bot.RegisterHandlers(ctx); err != nil {
			a.logger.Warn("Bot commands were not registered", zap.Error(err))
		}
		go a.bot.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received, stopping services")
	case err := <-errCh:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	stop()
	a.scheduler.Stop()
	a.dispatcher.Wait()

	a.logger.Info("Server gracefully stopped")
	return runErr
}

// Close освобождает соединения с базой и redis
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// logSender пишет уведомления в лог, когда бот не настроен
type logSender struct {
	logger *zap.Logger
}

func (s logSender) Send(_ context.Context, chatID int64, text string) error {
	s.logger.Debug("Notification", zap.Int64("chat_id", chatID), zap.String("text", text))
	return nil
}
