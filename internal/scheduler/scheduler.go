package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"equipment-compliance/internal/services"
	"equipment-compliance/pkg/config"
	apperrors "equipment-compliance/pkg/errors"
)

type job struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

// Scheduler периодически запускает рассылки напоминаний и пересчёт статусов.
// Повторный запуск рассылки в тот же день безопасен: журнал не даст
// отправить уведомление дважды.
type Scheduler struct {
	jobs    []job
	timeout time.Duration
	logger  *zap.Logger
}

func New(
	cfg config.SchedulerConfig,
	reminders services.ReminderServiceInterface,
	compliance services.ComplianceServiceInterface,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		jobs: []job{
			{
				name:     "maintenance_reminders",
				interval: cfg.MaintenanceInterval,
				run: func(ctx context.Context) error {
					_, err := reminders.TriggerMaintenanceReminders(ctx)
					return err
				},
			},
			{
				name:     "expiration_alerts",
				interval: cfg.ExpirationInterval,
				run: func(ctx context.Context) error {
					_, err := reminders.TriggerExpirationAlerts(ctx)
					return err
				},
			},
			{
				name:     "compliance_refresh",
				interval: cfg.ComplianceRefreshEvery,
				run: func(ctx context.Context) error {
					_, err := compliance.RefreshComplianceStatuses(ctx)
					return err
				},
			},
		},
		timeout: cfg.RunTimeout,
		logger:  logger,
	}
}

// Run блокируется до отмены ctx. Каждая задача выполняется сразу при старте,
// затем по своему интервалу. Ошибка одного запуска не останавливает задачу.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, j := range s.jobs {
		if j.interval <= 0 {
			s.logger.Warn("Задача отключена: интервал не задан", zap.String("job", j.name))
			continue
		}
		g.Go(func() error {
			s.loop(ctx, j)
			return nil
		})
	}
	s.logger.Info("Планировщик запущен", zap.Int("jobs", len(s.jobs)))
	err := g.Wait()
	s.logger.Info("Планировщик остановлен")
	return err
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx, j)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j job) {
	if ctx.Err() != nil {
		return
	}
	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := j.run(runCtx)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrRunInProgress):
		s.logger.Info("Задача уже выполняется на другом экземпляре", zap.String("job", j.name))
	case errors.Is(err, context.Canceled):
		s.logger.Info("Задача прервана остановкой сервиса", zap.String("job", j.name))
	default:
		s.logger.Error("Ошибка фоновой задачи", zap.String("job", j.name), zap.Error(err))
	}
}
