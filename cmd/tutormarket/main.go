package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/tutor_market/internal/app"
	"github.com/Freeeeeet/tutor_market/internal/config"
	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:    "tutormarket",
		Usage:   "Tutoring marketplace booking backend",
		Version: version,
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			sweepCommand(),
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup загружает конфигурацию и создаёт логгер
func setup(requireDB bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(requireDB); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Environment),
		zap.Strings("sources", cfg.Sources),
	)
	return cfg, logger, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API, background jobs and the Telegram bot",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "in-memory",
				Usage: "keep all data in memory instead of PostgreSQL",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			inMemory := cmd.Bool("in-memory")

			cfg, logger, err := setup(!inMemory)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := app.New(ctx, cfg, logger, inMemory)
			if err != nil {
				logger.Error("Failed to initialize application", zap.Error(err))
				return err
			}
			defer a.Close()

			return a.Run(ctx)
		},
	}
}

func migrateCommand() *cli.Command {
	withMigrator := func(fn func(ctx context.Context, mg *app.Migrator, logger *zap.Logger) error) cli.ActionFunc {
		return func(ctx context.Context, _ *cli.Command) error {
			cfg, logger, err := setup(true)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			pool, err := pgxpool.New(ctx, cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			mg, err := app.NewMigrator(pool, logger)
			if err != nil {
				return err
			}
			defer mg.Close()

			return fn(ctx, mg, logger)
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "manage the database schema",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: withMigrator(func(ctx context.Context, mg *app.Migrator, _ *zap.Logger) error {
					return mg.Run(ctx)
				}),
			},
			{
				Name:  "down",
				Usage: "roll back the latest migration",
				Action: withMigrator(func(ctx context.Context, mg *app.Migrator, logger *zap.Logger) error {
					if err := mg.Down(ctx); err != nil {
						return err
					}
					v, err := mg.Version(ctx)
					if err != nil {
						return err
					}
					logger.Info("Migration rolled back", zap.Int64("version", v))
					return nil
				}),
			},
			{
				Name:  "version",
				Usage: "print the current schema version",
				Action: withMigrator(func(ctx context.Context, mg *app.Migrator, _ *zap.Logger) error {
					v, err := mg.Version(ctx)
					if err != nil {
						return err
					}
					fmt.Println(v)
					return nil
				}),
			},
		},
	}
}

// sweepCommand однократно выполняет фоновые задачи, например из cron
func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "complete elapsed sessions and generate slots from templates once",
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, logger, err := setup(true)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			store, pool, err := app.OpenStore(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer pool.Close()

			completed, err := service.NewBookingService(store, logger).CompleteElapsed(ctx)
			if err != nil {
				return err
			}
			generated, err := service.NewTemplateService(store, logger, cfg.Scheduler.WeeksAhead, cfg.Location()).GenerateSlots(ctx)
			if err != nil {
				return err
			}

			logger.Info("Sweep finished",
				zap.Int64("completed_sessions", completed),
				zap.Int("generated_slots", generated),
			)
			return nil
		},
	}
}
