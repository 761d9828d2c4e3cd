package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job фоновая задача планировщика
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler периодически запускает фоновые задачи
type Scheduler struct {
	jobs     []Job
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(logger *zap.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs:     jobs,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает каждую задачу в своей горутине
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Int("jobs", len(s.jobs)))

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(ctx, job)
	}
}

// Stop останавливает задачи и ждёт завершения текущих запусков
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	defer s.wg.Done()

	// Первый запуск сразу при старте
	s.runOnce(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, job)
		case <-s.stopChan:
			s.logger.Info("Background job stopped", zap.String("job", job.Name))
			return
		case <-ctx.Done():
			s.logger.Info("Background job cancelled", zap.String("job", job.Name))
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("Background job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	s.logger.Debug("Background job finished",
		zap.String("job", job.Name),
		zap.Duration("took", time.Since(start)),
	)
}
