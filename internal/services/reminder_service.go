package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"equipment-compliance/internal/dto"
	"equipment-compliance/internal/entities"
	"equipment-compliance/internal/repositories"
	"equipment-compliance/pkg/config"
	"equipment-compliance/pkg/constants"
	apperrors "equipment-compliance/pkg/errors"
	"equipment-compliance/pkg/metrics"
	"equipment-compliance/pkg/utils"
)

type ReminderServiceInterface interface {
	TriggerMaintenanceReminders(ctx context.Context) (*dto.DispatchReport, error)
	TriggerExpirationAlerts(ctx context.Context) (*dto.DispatchReport, error)
}

type ReminderService struct {
	equipmentRepo repositories.EquipmentRepositoryInterface
	reminderRepo  repositories.ReminderRepositoryInterface
	locker        RunLockerInterface
	sender        NotificationSenderInterface
	cfg           config.ReminderConfig
	metrics       *metrics.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

func NewReminderService(
	equipmentRepo repositories.EquipmentRepositoryInterface,
	reminderRepo repositories.ReminderRepositoryInterface,
	locker RunLockerInterface,
	sender NotificationSenderInterface,
	cfg config.ReminderConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) ReminderServiceInterface {
	return &ReminderService{
		equipmentRepo: equipmentRepo,
		reminderRepo:  reminderRepo,
		locker:        locker,
		sender:        sender,
		cfg:           cfg,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

// reminderJob - всё, чем рассылка одного типа отличается от другой.
type reminderJob struct {
	kind          constants.ReminderKind
	lookaheadDays int
	template      string
}

// PeriodKey - ключ периода для журнала напоминаний: плановая дата элемента.
// Пока дата не меняется, повторные запуски не шлют повторно; новая дата
// (после обслуживания или продления) - новое напоминание.
func PeriodKey(dueDate time.Time) string {
	return utils.FormatDate(dueDate)
}

func (s *ReminderService) TriggerMaintenanceReminders(ctx context.Context) (*dto.DispatchReport, error) {
	return s.run(ctx, reminderJob{
		kind:          constants.ReminderMaintenanceDue,
		lookaheadDays: s.cfg.MaintenanceLookaheadDays,
		template:      constants.TemplateMaintenanceDue,
	})
}

func (s *ReminderService) TriggerExpirationAlerts(ctx context.Context) (*dto.DispatchReport, error) {
	return s.run(ctx, reminderJob{
		kind:          constants.ReminderExpiration,
		lookaheadDays: s.cfg.ExpirationLookaheadDays,
		template:      constants.TemplateExpiration,
	})
}

func (s *ReminderService) run(ctx context.Context, job reminderJob) (*dto.DispatchReport, error) {
	startedAt := s.now().UTC()
	today := utils.DateOnly(startedAt)
	runID := uuid.New().String()
	kind := job.kind.String()

	logger := s.logger.With(zap.String("kind", kind), zap.String("runID", runID))

	release, err := s.locker.Acquire(ctx, job.kind, today, runID)
	if err != nil {
		if errors.Is(err, apperrors.ErrRunInProgress) {
			s.metrics.IncRunRefused(kind)
			logger.Info("Рассылка уже выполняется, запуск пропущен")
		}
		return nil, err
	}
	defer release()

	windowEnd := utils.AddDays(today, job.lookaheadDays)
	candidates, err := s.equipmentRepo.FindReminderCandidates(ctx, job.kind, today, windowEnd)
	if err != nil {
		logger.Error("Не удалось получить кандидатов на напоминание", zap.Error(err))
		return nil, fmt.Errorf("поиск кандидатов %s: %w", kind, err)
	}

	report := &dto.DispatchReport{
		RunID:     runID,
		Kind:      kind,
		Today:     utils.FormatDate(today),
		Failures:  []dto.DispatchFailure{},
		StartedAt: startedAt,
	}

	logger.Info("Запуск рассылки",
		zap.Int("candidates", len(candidates)),
		zap.String("windowFrom", report.Today),
		zap.String("windowTo", utils.FormatDate(windowEnd)),
	)

	for _, candidate := range candidates {
		// Остановка между элементами ничего не ломает: необработанные
		// элементы не имеют записи в журнале и попадут в следующий запуск.
		if ctx.Err() != nil {
			report.Cancelled = true
			logger.Warn("Рассылка прервана", zap.Error(ctx.Err()))
			break
		}

		report.Attempted++
		outcome, failure := s.processCandidate(ctx, logger, job, candidate, today)
		s.metrics.IncReminderItem(kind, outcome)

		switch outcome {
		case metrics.OutcomeSucceeded:
			report.Succeeded++
		case metrics.OutcomeSkipped:
			report.Skipped++
		case metrics.OutcomeFailed:
			report.Failed++
			report.Failures = append(report.Failures, *failure)
		}
	}

	report.FinishedAt = s.now().UTC()
	s.metrics.ObserveReminderRun(kind, report.FinishedAt.Sub(startedAt))

	logger.Info("Рассылка завершена",
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Bool("cancelled", report.Cancelled),
	)
	return report, nil
}

// processCandidate: сначала запись в журнал (уникальный индекс решает, кто
// отправляет), потом отправка. Если ни один канал не доставил, запись
// удаляется, чтобы элемент повторился.
func (s *ReminderService) processCandidate(
	ctx context.Context,
	logger *zap.Logger,
	job reminderJob,
	candidate entities.ReminderCandidate,
	today time.Time,
) (string, *dto.DispatchFailure) {
	failure := func(reason string, retryable bool) (string, *dto.DispatchFailure) {
		return metrics.OutcomeFailed, &dto.DispatchFailure{
			EntityID:     candidate.EquipmentID,
			SerialNumber: candidate.SerialNumber,
			Reason:       reason,
			Retryable:    retryable,
		}
	}

	record := entities.ReminderRecord{
		ID:           uuid.New(),
		EntityType:   constants.EntityEquipment,
		EntityID:     candidate.EquipmentID,
		Kind:         job.kind,
		PeriodKey:    PeriodKey(candidate.DueDate),
		DispatchedAt: s.now().UTC(),
	}

	inserted, err := s.reminderRepo.TryInsert(ctx, record)
	if err != nil {
		logger.Error("Ошибка записи в журнал напоминаний", zap.Uint64("equipmentID", candidate.EquipmentID), zap.Error(err))
		return failure(fmt.Sprintf("журнал напоминаний: %v", err), true)
	}
	if !inserted {
		logger.Debug("Напоминание уже отправлено", zap.Uint64("equipmentID", candidate.EquipmentID), zap.String("period", record.PeriodKey))
		return metrics.OutcomeSkipped, nil
	}

	vendor := candidate.Vendor
	recipient := Recipient{
		Name:           vendor.Name,
		Email:          vendor.Email,
		UserID:         vendor.UserID,
		TelegramChatID: vendor.TelegramChatID,
		Role:           constants.RoleVendor,
	}
	data := TemplateData{
		RecipientName: vendor.Name,
		SerialNumber:  candidate.SerialNumber,
		EquipmentType: candidate.EquipmentTypeName,
		DueDate:       utils.FormatDate(candidate.DueDate),
		DaysLeft:      int(utils.DateOnly(candidate.DueDate).Sub(today).Hours() / 24),
	}

	sendErr := s.sender.Send(ctx, recipient, job.template, data)
	if sendErr == nil {
		return metrics.OutcomeSucceeded, nil
	}

	var dispatchErr *DispatchError
	if errors.As(sendErr, &dispatchErr) && dispatchErr.Partial() {
		logger.Warn("Напоминание доставлено не по всем каналам",
			zap.Uint64("equipmentID", candidate.EquipmentID),
			zap.Error(sendErr),
		)
		return failure(sendErr.Error(), false)
	}

	logger.Warn("Напоминание не доставлено, запись журнала снимается",
		zap.Uint64("equipmentID", candidate.EquipmentID),
		zap.Error(sendErr),
	)
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.reminderRepo.Release(releaseCtx, record.ID); err != nil {
		logger.Error("Не удалось снять запись журнала, повтор будет только в следующем периоде",
			zap.String("recordID", record.ID.String()),
			zap.Error(err),
		)
		return failure(sendErr.Error(), false)
	}
	return failure(sendErr.Error(), true)
}
