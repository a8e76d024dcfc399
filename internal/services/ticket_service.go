package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"equipment-compliance/internal/dto"
	"equipment-compliance/internal/entities"
	"equipment-compliance/internal/events"
	"equipment-compliance/internal/repositories"
	"equipment-compliance/pkg/constants"
	apperrors "equipment-compliance/pkg/errors"
	"equipment-compliance/pkg/eventbus"
	"equipment-compliance/pkg/metrics"
	"equipment-compliance/pkg/utils"
)

// EventPublisher - то, что нужно сервисам от шины событий.
type EventPublisher interface {
	Publish(ctx context.Context, event eventbus.Event)
}

type TicketServiceInterface interface {
	CreateTicket(ctx context.Context, payload dto.CreateTicketDTO) (*dto.TicketDTO, error)
	FindTicket(ctx context.Context, id uint64) (*dto.TicketDTO, error)
	ResolveTicket(ctx context.Context, id uint64, payload dto.ResolveTicketDTO) (*dto.TicketDTO, error)
	CloseTicket(ctx context.Context, id uint64) (*dto.TicketDTO, error)
}

type TicketService struct {
	txManager     repositories.TxManagerInterface
	ticketRepo    repositories.TicketRepositoryInterface
	equipmentRepo repositories.EquipmentRepositoryInterface
	bus           EventPublisher
	metrics       *metrics.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

func NewTicketService(
	txManager repositories.TxManagerInterface,
	ticketRepo repositories.TicketRepositoryInterface,
	equipmentRepo repositories.EquipmentRepositoryInterface,
	bus EventPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) TicketServiceInterface {
	return &TicketService{
		txManager:     txManager,
		ticketRepo:    ticketRepo,
		equipmentRepo: equipmentRepo,
		bus:           bus,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *TicketService) CreateTicket(ctx context.Context, payload dto.CreateTicketDTO) (*dto.TicketDTO, error) {
	ticket := entities.Ticket{
		SupportType:      payload.SupportType,
		Priority:         payload.Priority,
		IssueDescription: strings.TrimSpace(payload.IssueDescription),
		EquipmentID:      payload.EquipmentID,
		VendorID:         payload.VendorID,
		ClientID:         payload.ClientID,
	}
	if ticket.Priority == "" {
		ticket.Priority = constants.PriorityMedium
	}

	scheduled, err := parseOptionalDate("scheduled_date", payload.ScheduledDate)
	if err != nil {
		return nil, err
	}
	ticket.ScheduledDate = scheduled

	if ticket.SupportType == constants.SupportTypeMaintenance {
		if ticket.EquipmentID == nil {
			return nil, apperrors.NewValidationError("equipment_id", "заявка на обслуживание должна ссылаться на оборудование")
		}
	}
	if ticket.EquipmentID != nil {
		equipment, err := s.equipmentRepo.FindEquipment(ctx, *ticket.EquipmentID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NewValidationError("equipment_id", "оборудование %d не найдено", *ticket.EquipmentID)
			}
			return nil, err
		}
		// Исполнитель по умолчанию - поставщик оборудования.
		if ticket.VendorID == nil {
			ticket.VendorID = utils.ToPtr(equipment.VendorID)
		}
	}

	id, err := s.ticketRepo.CreateTicket(ctx, ticket)
	if err != nil {
		if apperrors.IsValidation(err) {
			return nil, err
		}
		s.logger.Error("Ошибка при создании заявки", zap.Error(err))
		return nil, fmt.Errorf("создание заявки: %w", err)
	}

	created, err := s.ticketRepo.FindTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Заявка создана", zap.Uint64("ticketID", id), zap.String("supportType", created.SupportType))
	s.bus.Publish(ctx, events.TicketCreatedEvent{Ticket: *created})

	result := toTicketDTO(created)
	return &result, nil
}

func (s *TicketService) FindTicket(ctx context.Context, id uint64) (*dto.TicketDTO, error) {
	ticket, err := s.ticketRepo.FindTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toTicketDTO(ticket)
	return &result, nil
}

// ResolveTicket переводит заявку open -> resolved. Для заявки на обслуживание
// с оборудованием в той же транзакции сдвигается график и пересчитывается статус.
func (s *TicketService) ResolveTicket(ctx context.Context, id uint64, payload dto.ResolveTicketDTO) (*dto.TicketDTO, error) {
	now := s.now().UTC()
	today := utils.DateOnly(now)

	var resolved *entities.Ticket
	var equipment *entities.Equipment

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		ticket, err := s.ticketRepo.FindForUpdateInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !constants.CanTransition(ticket.Status, constants.TicketStatusResolved) {
			return apperrors.NewInvalidStateTransition(id, ticket.Status, constants.TicketStatusResolved)
		}

		resolution, err := validateResolution(payload)
		if err != nil {
			return err
		}
		customLast, err := parseOptionalDate("custom_maintenance_date", payload.CustomMaintenanceDate)
		if err != nil {
			return err
		}
		customNext, err := parseOptionalDate("custom_next_maintenance_date", payload.CustomNextMaintenanceDate)
		if err != nil {
			return err
		}

		if err := s.ticketRepo.MarkResolvedInTx(ctx, tx, id, resolution, payload.ActualHours, now); err != nil {
			return err
		}

		if ticket.SupportType == constants.SupportTypeMaintenance && ticket.EquipmentID != nil {
			equipment, err = s.applyMaintenance(ctx, tx, *ticket.EquipmentID, customLast, customNext, today)
			if err != nil {
				return err
			}
		}

		ticket.Status = constants.TicketStatusResolved
		ticket.ResolutionDescription = &resolution
		ticket.CalculatedHours = utils.ToPtr(payload.ActualHours)
		ticket.ResolvedAt = &now
		resolved = ticket
		return nil
	})
	if err != nil {
		if !apperrors.IsValidation(err) && !apperrors.IsInvalidStateTransition(err) && !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Error("Ошибка при решении заявки", zap.Uint64("ticketID", id), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.IncTicketTransition(constants.TicketStatusResolved)
	s.logger.Info("Заявка решена", zap.Uint64("ticketID", id), zap.Bool("scheduleUpdated", equipment != nil))
	s.bus.Publish(ctx, events.TicketResolvedEvent{Ticket: *resolved, Equipment: equipment})

	result := toTicketDTO(resolved)
	if equipment != nil {
		compliance := toEquipmentComplianceDTO(equipment, equipment.ComplianceStatus, today)
		result.Equipment = &compliance
	}
	return &result, nil
}

// applyMaintenance: явные даты важнее интервала типа оборудования.
func (s *TicketService) applyMaintenance(ctx context.Context, tx pgx.Tx, equipmentID uint64, customLast, customNext *time.Time, today time.Time) (*entities.Equipment, error) {
	equipment, err := s.equipmentRepo.FindForUpdateInTx(ctx, tx, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("оборудование %d заявки: %w", equipmentID, err)
	}

	last := today
	if customLast != nil {
		last = *customLast
	}

	var next time.Time
	if customNext != nil {
		next = *customNext
	} else {
		if equipment.EquipmentType == nil || equipment.EquipmentType.MaintenanceIntervalDays <= 0 {
			return nil, apperrors.NewValidationError("equipment_type", "у типа оборудования %d не задан интервал обслуживания", equipment.EquipmentTypeID)
		}
		next = NextMaintenanceDate(last, equipment.EquipmentType.MaintenanceIntervalDays)
	}
	if next.Before(last) {
		return nil, apperrors.NewValidationError("custom_next_maintenance_date",
			"дата следующего обслуживания %s раньше даты обслуживания %s", utils.FormatDate(next), utils.FormatDate(last))
	}

	equipment.LastMaintenanceDate = &last
	equipment.NextMaintenanceDate = &next
	equipment.ComplianceStatus = EquipmentComplianceStatus(equipment, today)

	if err := s.equipmentRepo.UpdateScheduleInTx(ctx, tx, equipment); err != nil {
		return nil, fmt.Errorf("обновление графика оборудования %d: %w", equipmentID, err)
	}
	return equipment, nil
}

func (s *TicketService) CloseTicket(ctx context.Context, id uint64) (*dto.TicketDTO, error) {
	now := s.now().UTC()

	var closed *entities.Ticket
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		ticket, err := s.ticketRepo.FindForUpdateInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !constants.CanTransition(ticket.Status, constants.TicketStatusClosed) {
			return apperrors.NewInvalidStateTransition(id, ticket.Status, constants.TicketStatusClosed)
		}
		if err := s.ticketRepo.MarkClosedInTx(ctx, tx, id, now); err != nil {
			return err
		}
		ticket.Status = constants.TicketStatusClosed
		ticket.ClosedAt = &now
		closed = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTicketTransition(constants.TicketStatusClosed)
	s.logger.Info("Заявка закрыта", zap.Uint64("ticketID", id))
	s.bus.Publish(ctx, events.TicketClosedEvent{Ticket: *closed})

	result := toTicketDTO(closed)
	return &result, nil
}

// validateResolution повторяет правила DTO: сервис может вызываться не только из HTTP.
func validateResolution(payload dto.ResolveTicketDTO) (string, error) {
	resolution := strings.TrimSpace(payload.ResolutionDescription)
	length := utf8.RuneCountInString(resolution)
	if length < constants.ResolutionDescriptionMinLen || length > constants.ResolutionDescriptionMaxLen {
		return "", apperrors.NewValidationError("resolution_description",
			"длина описания решения должна быть от %d до %d символов, получено %d",
			constants.ResolutionDescriptionMinLen, constants.ResolutionDescriptionMaxLen, length)
	}

	hours := payload.ActualHours
	if math.IsNaN(hours) || hours <= 0 || hours > constants.MaxResolutionHours {
		return "", apperrors.NewValidationError("actual_hours",
			"фактические часы должны быть в диапазоне (0, %g]", constants.MaxResolutionHours)
	}
	return resolution, nil
}

func parseOptionalDate(field string, value null.String) (*time.Time, error) {
	if !value.Valid || strings.TrimSpace(value.String) == "" {
		return nil, nil
	}
	parsed, err := utils.ParseDate(strings.TrimSpace(value.String))
	if err != nil {
		return nil, apperrors.NewValidationError(field, "ожидается дата в формате %s", utils.DateLayout)
	}
	return &parsed, nil
}

func toTicketDTO(t *entities.Ticket) dto.TicketDTO {
	return dto.TicketDTO{
		ID:                    t.ID,
		Status:                t.Status,
		SupportType:           t.SupportType,
		Priority:              t.Priority,
		IssueDescription:      t.IssueDescription,
		ResolutionDescription: t.ResolutionDescription,
		EquipmentID:           t.EquipmentID,
		VendorID:              t.VendorID,
		ClientID:              t.ClientID,
		ScheduledDate:         utils.FormatDatePtr(t.ScheduledDate),
		ResolvedAt:            utils.FormatTimestampPtr(t.ResolvedAt),
		ClosedAt:              utils.FormatTimestampPtr(t.ClosedAt),
		CalculatedHours:       t.CalculatedHours,
		CreatedAt:             utils.SafeDeref(utils.FormatTimestampPtr(t.CreatedAt)),
		UpdatedAt:             utils.SafeDeref(utils.FormatTimestampPtr(t.UpdatedAt)),
	}
}

func toEquipmentComplianceDTO(e *entities.Equipment, status constants.ComplianceStatus, today time.Time) dto.EquipmentComplianceDTO {
	return dto.EquipmentComplianceDTO{
		ID:                  e.ID,
		SerialNumber:        e.SerialNumber,
		EquipmentTypeID:     e.EquipmentTypeID,
		LastMaintenanceDate: utils.FormatDatePtr(e.LastMaintenanceDate),
		NextMaintenanceDate: utils.FormatDatePtr(e.NextMaintenanceDate),
		ExpirationDate:      utils.FormatDatePtr(e.ExpirationDate),
		ComplianceStatus:    status.String(),
		EvaluatedOn:         utils.FormatDate(today),
	}
}
