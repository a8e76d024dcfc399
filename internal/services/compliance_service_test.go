package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"equipment-compliance/internal/dto"
	"equipment-compliance/internal/entities"
	"equipment-compliance/pkg/constants"
	apperrors "equipment-compliance/pkg/errors"
	"equipment-compliance/pkg/metrics"
	"equipment-compliance/pkg/utils"
)

func TestGetEquipmentCompliance_ComputedLive(t *testing.T) {
	store := newMemStore()
	// Кеш говорит compliant, но дата обслуживания уже прошла.
	store.equipment[1] = entities.Equipment{
		ID: 1, SerialNumber: "SN-1", EquipmentTypeID: 2,
		NextMaintenanceDate: datePtr("2024-06-10"),
		ComplianceStatus:    constants.ComplianceCompliant,
	}
	service := &ComplianceService{
		equipmentRepo: &fakeEquipmentRepo{store: store},
		logger:        zap.NewNop(),
		now:           fixedNow("2024-06-15T12:00:00Z"),
	}

	result, err := service.GetEquipmentCompliance(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "overdue", result.ComplianceStatus)
	assert.Equal(t, "2024-06-15", result.EvaluatedOn)
	assert.Equal(t, "2024-06-10", *result.NextMaintenanceDate)
	assert.Nil(t, result.ExpirationDate)

	_, err = service.GetEquipmentCompliance(context.Background(), 2)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRefreshComplianceStatuses_RewritesOnlyStale(t *testing.T) {
	store := newMemStore()
	total := complianceRefreshBatch*2 + 5
	for i := 1; i <= total; i++ {
		e := entities.Equipment{
			ID:               uint64(i),
			SerialNumber:     fmt.Sprintf("SN-%d", i),
			ComplianceStatus: constants.ComplianceCompliant,
		}
		if i%10 == 0 {
			e.ExpirationDate = datePtr("2024-06-01")
		}
		store.equipment[e.ID] = e
	}
	m := metrics.New(prometheus.NewRegistry())
	service := &ComplianceService{
		equipmentRepo: &fakeEquipmentRepo{store: store},
		metrics:       m,
		logger:        zap.NewNop(),
		now:           fixedNow("2024-06-15T00:00:00Z"),
	}

	report, err := service.RefreshComplianceStatuses(context.Background())
	require.NoError(t, err)

	assert.Equal(t, total, report.Scanned)
	assert.Equal(t, total/10, report.Changed)
	assert.Equal(t, constants.ComplianceExpired, store.equipmentByID(10).ComplianceStatus)
	assert.Equal(t, constants.ComplianceCompliant, store.equipmentByID(11).ComplianceStatus)
	assert.Equal(t, float64(total/10), testutil.ToFloat64(m.ComplianceChanged))

	again, err := service.RefreshComplianceStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again.Changed)
}

func TestRefreshComplianceStatuses_StopsOnCancel(t *testing.T) {
	store := newMemStore()
	store.equipment[1] = entities.Equipment{ID: 1, ExpirationDate: datePtr("2020-01-01")}
	service := &ComplianceService{
		equipmentRepo: &fakeEquipmentRepo{store: store},
		logger:        zap.NewNop(),
		now:           fixedNow("2024-06-15T00:00:00Z"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := service.RefreshComplianceStatuses(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, constants.ComplianceStatus(""), store.equipmentByID(1).ComplianceStatus)
}

// interleavingEquipmentRepo выполняет hook сразу после чтения пачки графиков,
// до того как пересчёт начнёт писать статусы.
type interleavingEquipmentRepo struct {
	*fakeEquipmentRepo
	afterList func()
}

func (r *interleavingEquipmentRepo) ListSchedules(ctx context.Context, afterID uint64, limit uint64) ([]entities.Equipment, error) {
	list, err := r.fakeEquipmentRepo.ListSchedules(ctx, afterID, limit)
	if r.afterList != nil {
		hook := r.afterList
		r.afterList = nil
		hook()
	}
	return list, err
}

func TestRefreshComplianceStatuses_KeepsStatusWrittenByConcurrentResolve(t *testing.T) {
	store := newMemStore()
	// Кеш устарел: дата обслуживания прошла, а статус ещё compliant.
	store.equipment[1] = entities.Equipment{
		ID:                  1,
		SerialNumber:        "SN-1",
		VendorID:            3,
		EquipmentTypeID:     1,
		NextMaintenanceDate: datePtr("2024-04-09"),
		ComplianceStatus:    constants.ComplianceCompliant,
		EquipmentType:       &entities.EquipmentType{ID: 1, Name: "Насос", MaintenanceIntervalDays: 90},
	}
	now := fixedNow("2024-06-15T10:30:00Z")
	equipmentRepo := &fakeEquipmentRepo{store: store}
	tickets := &TicketService{
		txManager:     &fakeTxManager{store: store},
		ticketRepo:    &fakeTicketRepo{store: store},
		equipmentRepo: equipmentRepo,
		bus:           &fakePublisher{},
		logger:        zap.NewNop(),
		now:           now,
	}
	ticketID, err := tickets.ticketRepo.CreateTicket(context.Background(), entities.Ticket{
		SupportType:      constants.SupportTypeMaintenance,
		IssueDescription: "Плановое ТО",
		EquipmentID:      utils.ToPtr(uint64(1)),
	})
	require.NoError(t, err)

	repo := &interleavingEquipmentRepo{fakeEquipmentRepo: equipmentRepo}
	repo.afterList = func() {
		_, err := tickets.ResolveTicket(context.Background(), ticketID, dto.ResolveTicketDTO{
			ResolutionDescription: "Заменён фильтр и проведена калибровка",
			ActualHours:           2.5,
		})
		require.NoError(t, err)
	}
	service := &ComplianceService{equipmentRepo: repo, logger: zap.NewNop(), now: now}

	report, err := service.RefreshComplianceStatuses(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 0, report.Changed)
	assert.Equal(t, 1, report.Skipped)

	equipment := store.equipmentByID(1)
	assert.Equal(t, date("2024-09-13"), *equipment.NextMaintenanceDate)
	assert.Equal(t, constants.ComplianceCompliant, equipment.ComplianceStatus)
	assert.Equal(t, EquipmentComplianceStatus(&equipment, date("2024-06-15")), equipment.ComplianceStatus)
}
