package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"equipment-compliance/internal/services"
	apperrors "equipment-compliance/pkg/errors"
	"equipment-compliance/pkg/utils"
)

type EquipmentController struct {
	complianceService services.ComplianceServiceInterface
	importService     services.ScheduleImportServiceInterface
	logger            *zap.Logger
}

func NewEquipmentController(
	complianceService services.ComplianceServiceInterface,
	importService services.ScheduleImportServiceInterface,
	logger *zap.Logger,
) *EquipmentController {
	return &EquipmentController{
		complianceService: complianceService,
		importService:     importService,
		logger:            logger,
	}
}

func (c *EquipmentController) GetCompliance(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	reqCtx, cancel := utils.ContextWithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := c.complianceService.GetEquipmentCompliance(reqCtx, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Статус соответствия получен", http.StatusOK)
}

// ImportSchedules принимает .xlsx в поле "file". Ошибки отдельных строк
// возвращаются в теле ответа, импорт остальных строк не прерывается.
func (c *EquipmentController) ImportSchedules(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Файл не передан", err, map[string]interface{}{"field": "file"}),
			c.logger,
		)
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.logger.Error("ImportSchedules: не удалось открыть файл", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	defer file.Close()

	if err := utils.ValidateFile(fileHeader, file, utils.ScheduleImportUpload); err != nil {
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, err.Error(), err, map[string]interface{}{"field": "file"}),
			c.logger,
		)
	}

	res, err := c.importService.ImportSchedules(ctx.Request().Context(), file)
	if err != nil {
		c.logger.Warn("ImportSchedules: импорт не выполнен", zap.String("file", fileHeader.Filename), zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	c.logger.Info("ImportSchedules: импорт завершён",
		zap.String("file", fileHeader.Filename),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
	)
	return utils.SuccessResponse(ctx, res, "Импорт графиков завершён", http.StatusOK)
}
