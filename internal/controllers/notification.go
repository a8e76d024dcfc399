package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"equipment-compliance/internal/dto"
	"equipment-compliance/internal/services"
	"equipment-compliance/pkg/constants"
	"equipment-compliance/pkg/utils"
)

type NotificationController struct {
	logger *zap.Logger
}

func NewNotificationController(logger *zap.Logger) *NotificationController {
	return &NotificationController{logger: logger}
}

// GetRoute: GET /notifications/route?category=... - путь перехода для роли
// текущего пользователя.
func (c *NotificationController) GetRoute(ctx echo.Context) error {
	role, err := utils.GetUserRoleFromCtx(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	category := constants.NotificationCategory(ctx.QueryParam("category"))
	res := dto.NotificationRouteDTO{
		Category: string(category),
		Role:     string(role),
		Path:     services.RouteNotification(category, role),
	}
	return utils.SuccessResponse(ctx, res, "Маршрут уведомления", http.StatusOK)
}
