package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"equipment-compliance/internal/services"
	"equipment-compliance/pkg/utils"
)

type DeletionController struct {
	deletionService services.DeletionServiceInterface
	logger          *zap.Logger
}

func NewDeletionController(deletionService services.DeletionServiceInterface, logger *zap.Logger) *DeletionController {
	return &DeletionController{
		deletionService: deletionService,
		logger:          logger,
	}
}

// CheckDeletion: GET /deletion/:entity/:id - отчёт о зависимых записях.
func (c *DeletionController) CheckDeletion(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	reqCtx, cancel := utils.ContextWithTimeout(ctx, requestTimeout)
	defer cancel()

	report, err := c.deletionService.CheckDeletion(reqCtx, ctx.Param("entity"), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, report, "Проверка удаления выполнена", http.StatusOK)
}

// Delete: DELETE /deletion/:entity/:id. При наличии зависимостей - 409 с отчётом.
func (c *DeletionController) Delete(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	entity := ctx.Param("entity")
	reqCtx, cancel := utils.ContextWithTimeout(ctx, requestTimeout)
	defer cancel()

	if err := c.deletionService.Delete(reqCtx, entity, id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Запись удалена", http.StatusOK)
}
