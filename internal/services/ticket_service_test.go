package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"equipment-compliance/internal/dto"
	"equipment-compliance/internal/entities"
	"equipment-compliance/internal/events"
	"equipment-compliance/pkg/constants"
	apperrors "equipment-compliance/pkg/errors"
	"equipment-compliance/pkg/utils"
)

type TicketServiceTestSuite struct {
	suite.Suite
	store     *memStore
	publisher *fakePublisher
	tx        *fakeTxManager
	service   *TicketService
}

const (
	pumpID      uint64 = 10
	pumpVendor  uint64 = 3
	pumpSerial         = "PUMP-0001"
	pumpTypeDay        = 90
)

func (s *TicketServiceTestSuite) SetupTest() {
	s.store = newMemStore()
	s.publisher = &fakePublisher{}
	s.tx = &fakeTxManager{store: s.store}

	s.store.equipment[pumpID] = entities.Equipment{
		ID:                  pumpID,
		SerialNumber:        pumpSerial,
		VendorID:            pumpVendor,
		EquipmentTypeID:     1,
		LastMaintenanceDate: datePtr("2024-01-10"),
		NextMaintenanceDate: datePtr("2024-04-09"),
		ExpirationDate:      datePtr("2030-01-01"),
		ComplianceStatus:    constants.ComplianceOverdue,
		EquipmentType:       &entities.EquipmentType{ID: 1, Name: "Насос", MaintenanceIntervalDays: pumpTypeDay},
	}

	s.service = &TicketService{
		txManager:     s.tx,
		ticketRepo:    &fakeTicketRepo{store: s.store},
		equipmentRepo: &fakeEquipmentRepo{store: s.store},
		bus:           s.publisher,
		logger:        zap.NewNop(),
		now:           fixedNow("2024-06-15T10:30:00Z"),
	}
}

func (s *TicketServiceTestSuite) openTicket(supportType string, equipmentID *uint64) uint64 {
	id, err := s.service.ticketRepo.CreateTicket(context.Background(), entities.Ticket{
		SupportType:      supportType,
		Priority:         constants.PriorityHigh,
		IssueDescription: "Не запускается",
		EquipmentID:      equipmentID,
	})
	s.Require().NoError(err)
	return id
}

func validResolve() dto.ResolveTicketDTO {
	return dto.ResolveTicketDTO{
		ResolutionDescription: "Заменён фильтр и проведена калибровка",
		ActualHours:           2.5,
	}
}

func (s *TicketServiceTestSuite) TestResolve_MaintenanceUsesTodayAndInterval() {
	id := s.openTicket(constants.SupportTypeMaintenance, utils.ToPtr(pumpID))

	result, err := s.service.ResolveTicket(context.Background(), id, validResolve())
	s.Require().NoError(err)

	ticket := s.store.ticket(id)
	s.Equal(constants.TicketStatusResolved, ticket.Status)
	s.Require().NotNil(ticket.ResolvedAt)
	s.Equal("2024-06-15T10:30:00Z", ticket.ResolvedAt.Format("2006-01-02T15:04:05Z07:00"))
	s.Equal(2.5, *ticket.CalculatedHours)

	equipment := s.store.equipmentByID(pumpID)
	s.Equal(date("2024-06-15"), *equipment.LastMaintenanceDate)
	s.Equal(date("2024-09-13"), *equipment.NextMaintenanceDate)
	s.Equal(constants.ComplianceCompliant, equipment.ComplianceStatus)
	s.Equal(date("2030-01-01"), *equipment.ExpirationDate)

	s.Require().NotNil(result.Equipment)
	s.Equal("compliant", result.Equipment.ComplianceStatus)
	s.Equal([]string{events.TicketResolved}, s.publisher.names())
}

func (s *TicketServiceTestSuite) TestResolve_OverdueQuarterlyPumpBackInCompliance() {
	e := s.store.equipment[pumpID]
	e.LastMaintenanceDate = datePtr("2025-01-01")
	e.NextMaintenanceDate = datePtr("2025-04-01")
	e.ComplianceStatus = constants.ComplianceOverdue
	s.store.equipment[pumpID] = e
	s.service.now = fixedNow("2025-04-15T14:00:00Z")
	id := s.openTicket(constants.SupportTypeMaintenance, utils.ToPtr(pumpID))

	_, err := s.service.ResolveTicket(context.Background(), id, validResolve())
	s.Require().NoError(err)

	ticket := s.store.ticket(id)
	s.Require().NotNil(ticket.CalculatedHours)
	s.Equal(2.5, *ticket.CalculatedHours)

	equipment := s.store.equipmentByID(pumpID)
	s.Equal(date("2025-04-15"), *equipment.LastMaintenanceDate)
	s.Equal(date("2025-07-14"), *equipment.NextMaintenanceDate)
	s.Equal(constants.ComplianceCompliant, equipment.ComplianceStatus)
}

func (s *TicketServiceTestSuite) TestResolve_OverridesTakePrecedence() {
	id := s.openTicket(constants.SupportTypeMaintenance, utils.ToPtr(pumpID))
	payload := validResolve()
	payload.CustomMaintenanceDate = null.StringFrom("2024-06-01")
	payload.CustomNextMaintenanceDate = null.StringFrom("2024-07-01")

	_, err := s.service.ResolveTicket(context.Background(), id, payload)
	s.Require().NoError(err)

	equipment := s.store.equipmentByID(pumpID)
	s.Equal(date("2024-06-01"), *equipment.LastMaintenanceDate)
	s.Equal(date("2024-07-01"), *equipment.NextMaintenanceDate)
}

func (s *TicketServiceTestSuite) TestResolve_CustomLastOnlyDrivesInterval() {
	id := s.openTicket(constants.SupportTypeMaintenance, utils.ToPtr(pumpID))
	payload := validResolve()
	payload.CustomMaintenanceDate = null.StringFrom("2024-01-01")

	_, err := s.service.ResolveTicket(context.Background(), id, payload)
	s.Require().NoError(err)

	equipment := s.store.equipmentByID(pumpID)
	s.Equal(date("2024-03-31"), *equipment.NextMaintenanceDate)
	// Следующая дата уже в прошлом - статус пересчитан сразу.
	s.Equal(constants.ComplianceOverdue, equipment.ComplianceStatus)
}

func (s *TicketServiceTestSuite) TestResolve_ExpiredEquipmentStaysExpired() {
	e := s.store.equipment[pumpID]
	e.ExpirationDate = datePtr("2024-06-01")
	s.store.equipment[pumpID] = e
	id := s.openTicket(constants.SupportTypeMaintenance, utils.ToPtr(pumpID))

	_, err := s.service.ResolveTicket(context.Background(), id, validResolve())
	s.Require().NoError(err)

	s.Equal(constants.ComplianceExpired, s.store.equipmentByID(pumpID).ComplianceStatus)
}

func (s *TicketServiceTestSuite) TestResolve_NonMaintenanceLeavesScheduleAlone() {
	before := s.store.equipmentByID(pumpID)
	id := s.openTicket(constants.SupportTypeSystem, utils.ToPtr(pumpID))

	result, err := s.service.ResolveTicket(context.Background(), id, validResolve())
	s.Require().NoError(err)

	s.Nil(result.Equipment)
	after := s.store.equipmentByID(pumpID)
	s.Equal(before.LastMaintenanceDate, after.LastMaintenanceDate)
	s.Equal(before.NextMaintenanceDate, after.NextMaintenanceDate)
	s.Equal(before.ComplianceStatus, after.ComplianceStatus)
}

func (s *TicketServiceTestSuite) TestResolve_OnlyFromOpen() {
	id := s.openTicket(constants.SupportTypeUser, nil)

	_, err := s.service.ResolveTicket(context.Background(), id, validResolve())
	s.Require().NoError(err)
	firstResolvedAt := *s.store.ticket(id).ResolvedAt

	s.service.now = fixedNow("2024-06-16T08:00:00Z")
	_, err = s.service.ResolveTicket(context.Background(), id, validResolve())
	s.True(apperrors.IsInvalidStateTransition(err))
	s.Equal(firstResolvedAt, *s.store.ticket(id).ResolvedAt)

	_, err = s.service.CloseTicket(context.Background(), id)
	s.Require().NoError(err)

	_, err = s.service.ResolveTicket(context.Background(), id, validResolve())
	s.True(apperrors.IsInvalidStateTransition(err))
	s.Equal(constants.TicketStatusClosed, s.store.ticket(id).Status)
}

func (s *TicketServiceTestSuite) TestResolve_ValidationBoundaries() {
	cases := []struct {
		name        string
		description string
		hours       float64
		wantErr     bool
	}{
		{"описание 9 символов", strings.Repeat("а", 9), 1, true},
		{"описание 10 символов", strings.Repeat("а", 10), 1, false},
		{"описание 1000 символов", strings.Repeat("я", 1000), 1, false},
		{"описание 1001 символ", strings.Repeat("я", 1001), 1, true},
		{"пробелы не считаются", "   " + strings.Repeat("а", 9) + "   ", 1, true},
		{"ноль часов", strings.Repeat("а", 20), 0, true},
		{"отрицательные часы", strings.Repeat("а", 20), -1, true},
		{"ровно 100 часов", strings.Repeat("а", 20), 100, false},
		{"больше 100 часов", strings.Repeat("а", 20), 100.01, true},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			id := s.openTicket(constants.SupportTypeUser, nil)
			_, err := s.service.ResolveTicket(context.Background(), id, dto.ResolveTicketDTO{
				ResolutionDescription: tc.description,
				ActualHours:           tc.hours,
			})
			if tc.wantErr {
				s.True(apperrors.IsValidation(err), "ожидалась ValidationError, получено %v", err)
				s.Equal(constants.TicketStatusOpen, s.store.ticket(id).Status)
			} else {
				s.NoError(err)
			}
		})
	}
}

func (s *TicketServiceTestSuite) TestResolve_NextBeforeLastRollsBackEverything() {
	id := s.openTicket(constants.SupportTypeMaintenance, utils.ToPtr(pumpID))
	before := s.store.equipmentByID(pumpID)
	payload := validResolve()
	payload.CustomMaintenanceDate = null.StringFrom("2024-06-10")
	payload.CustomNextMaintenanceDate = null.StringFrom("2024-06-01")

	_, err := s.service.ResolveTicket(context.Background(), id, payload)

	s.True(apperrors.IsValidation(err))
	ticket := s.store.ticket(id)
	s.Equal(constants.TicketStatusOpen, ticket.Status)
	s.Nil(ticket.ResolvedAt)
	s.Equal(before.NextMaintenanceDate, s.store.equipmentByID(pumpID).NextMaintenanceDate)
	s.Empty(s.publisher.names())
}

func (s *TicketServiceTestSuite) TestResolve_EquipmentWriteFailureKeepsTicketOpen() {
	id := s.openTicket(constants.SupportTypeMaintenance, utils.ToPtr(pumpID))
	s.store.failUpdateSchedule = errors.New("connection reset")

	_, err := s.service.ResolveTicket(context.Background(), id, validResolve())

	s.Require().Error(err)
	s.Equal(constants.TicketStatusOpen, s.store.ticket(id).Status)
	s.Empty(s.publisher.names())
}

func (s *TicketServiceTestSuite) TestResolve_BadOverrideDate() {
	id := s.openTicket(constants.SupportTypeMaintenance, utils.ToPtr(pumpID))
	payload := validResolve()
	payload.CustomMaintenanceDate = null.StringFrom("15.06.2024")

	_, err := s.service.ResolveTicket(context.Background(), id, payload)

	var validationErr *apperrors.ValidationError
	s.Require().True(errors.As(err, &validationErr))
	s.Equal("custom_maintenance_date", validationErr.Field)
}

func (s *TicketServiceTestSuite) TestResolve_MissingTicket() {
	_, err := s.service.ResolveTicket(context.Background(), 999, validResolve())
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *TicketServiceTestSuite) TestClose_OnlyFromResolved() {
	id := s.openTicket(constants.SupportTypeUser, nil)

	_, err := s.service.CloseTicket(context.Background(), id)
	s.True(apperrors.IsInvalidStateTransition(err))
	s.Nil(s.store.ticket(id).ClosedAt)

	_, err = s.service.ResolveTicket(context.Background(), id, validResolve())
	s.Require().NoError(err)

	result, err := s.service.CloseTicket(context.Background(), id)
	s.Require().NoError(err)
	s.Equal(constants.TicketStatusClosed, result.Status)
	s.NotNil(s.store.ticket(id).ClosedAt)

	_, err = s.service.CloseTicket(context.Background(), id)
	s.True(apperrors.IsInvalidStateTransition(err))

	s.Equal([]string{events.TicketResolved, events.TicketClosed}, s.publisher.names())
}

func (s *TicketServiceTestSuite) TestClose_DoesNotTouchSchedule() {
	id := s.openTicket(constants.SupportTypeMaintenance, utils.ToPtr(pumpID))
	_, err := s.service.ResolveTicket(context.Background(), id, validResolve())
	s.Require().NoError(err)
	afterResolve := s.store.equipmentByID(pumpID)

	s.service.now = fixedNow("2024-08-01T09:00:00Z")
	_, err = s.service.CloseTicket(context.Background(), id)
	s.Require().NoError(err)

	s.Equal(afterResolve, s.store.equipmentByID(pumpID))
}

func (s *TicketServiceTestSuite) TestCreate_MaintenanceNeedsEquipment() {
	_, err := s.service.CreateTicket(context.Background(), dto.CreateTicketDTO{
		SupportType:      constants.SupportTypeMaintenance,
		IssueDescription: "Плановое ТО",
	})
	s.True(apperrors.IsValidation(err))

	_, err = s.service.CreateTicket(context.Background(), dto.CreateTicketDTO{
		SupportType:      constants.SupportTypeMaintenance,
		IssueDescription: "Плановое ТО",
		EquipmentID:      utils.ToPtr(uint64(404)),
	})
	s.True(apperrors.IsValidation(err))
}

func (s *TicketServiceTestSuite) TestCreate_StartsOpenWithEquipmentVendor() {
	result, err := s.service.CreateTicket(context.Background(), dto.CreateTicketDTO{
		SupportType:      constants.SupportTypeMaintenance,
		IssueDescription: "Плановое ТО",
		EquipmentID:      utils.ToPtr(pumpID),
		ScheduledDate:    null.StringFrom("2024-06-20"),
	})
	s.Require().NoError(err)

	s.Equal(constants.TicketStatusOpen, result.Status)
	s.Equal(constants.PriorityMedium, result.Priority)
	s.Require().NotNil(result.VendorID)
	s.Equal(pumpVendor, *result.VendorID)
	s.Equal("2024-06-20", *result.ScheduledDate)
	s.Equal([]string{events.TicketCreated}, s.publisher.names())
}

func (s *TicketServiceTestSuite) TestCreate_UnknownVendorIsValidationError() {
	s.service.ticketRepo = &fakeTicketRepo{
		store:     s.store,
		createErr: apperrors.NewValidationError("vendor_id", "связанная запись не найдена"),
	}

	_, err := s.service.CreateTicket(context.Background(), dto.CreateTicketDTO{
		SupportType:      constants.SupportTypeUser,
		IssueDescription: "Не печатает отчёт",
		VendorID:         utils.ToPtr(uint64(404)),
	})

	var validationErr *apperrors.ValidationError
	s.Require().True(errors.As(err, &validationErr))
	s.Equal("vendor_id", validationErr.Field)
	s.Equal(400, utils.ToHttpError(err).Code)
	s.Empty(s.publisher.names())
}

func TestTicketServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TicketServiceTestSuite))
}
