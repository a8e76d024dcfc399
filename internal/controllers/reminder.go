package controllers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"equipment-compliance/internal/dto"
	"equipment-compliance/internal/services"
	"equipment-compliance/pkg/utils"
)

// ReminderController - ручной запуск рассылок администратором.
type ReminderController struct {
	reminderService   services.ReminderServiceInterface
	complianceService services.ComplianceServiceInterface
	logger            *zap.Logger
}

func NewReminderController(
	reminderService services.ReminderServiceInterface,
	complianceService services.ComplianceServiceInterface,
	logger *zap.Logger,
) *ReminderController {
	return &ReminderController{
		reminderService:   reminderService,
		complianceService: complianceService,
		logger:            logger,
	}
}

func (c *ReminderController) TriggerMaintenanceReminders(ctx echo.Context) error {
	return c.trigger(ctx, "maintenance", c.reminderService.TriggerMaintenanceReminders)
}

func (c *ReminderController) TriggerExpirationAlerts(ctx echo.Context) error {
	return c.trigger(ctx, "expiration", c.reminderService.TriggerExpirationAlerts)
}

func (c *ReminderController) trigger(ctx echo.Context, kind string, run func(context.Context) (*dto.DispatchReport, error)) error {
	report, err := run(ctx.Request().Context())
	if err != nil {
		c.logger.Warn("Ручной запуск рассылки не выполнен", zap.String("kind", kind), zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, report, "Рассылка выполнена", http.StatusOK)
}

func (c *ReminderController) RefreshCompliance(ctx echo.Context) error {
	report, err := c.complianceService.RefreshComplianceStatuses(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, report, "Статусы соответствия пересчитаны", http.StatusOK)
}
