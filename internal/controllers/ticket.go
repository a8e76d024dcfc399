package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"equipment-compliance/internal/dto"
	"equipment-compliance/internal/services"
	"equipment-compliance/pkg/utils"
)

type TicketController struct {
	ticketService services.TicketServiceInterface
	logger        *zap.Logger
}

func NewTicketController(ticketService services.TicketServiceInterface, logger *zap.Logger) *TicketController {
	return &TicketController{
		ticketService: ticketService,
		logger:        logger,
	}
}

func (c *TicketController) CreateTicket(ctx echo.Context) error {
	var payload dto.CreateTicketDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Warn("CreateTicket: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx, badBody(err), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	reqCtx, cancel := utils.ContextWithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := c.ticketService.CreateTicket(reqCtx, payload)
	if err != nil {
		c.logger.Warn("CreateTicket: заявка не создана", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Заявка успешно создана", http.StatusCreated)
}

func (c *TicketController) FindTicket(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	reqCtx, cancel := utils.ContextWithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := c.ticketService.FindTicket(reqCtx, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Заявка найдена", http.StatusOK)
}

func (c *TicketController) ResolveTicket(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.ResolveTicketDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Warn("ResolveTicket: ошибка привязки данных", zap.Uint64("ticketID", id), zap.Error(err))
		return utils.ErrorResponse(ctx, badBody(err), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	reqCtx, cancel := utils.ContextWithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := c.ticketService.ResolveTicket(reqCtx, id, payload)
	if err != nil {
		c.logger.Warn("ResolveTicket: заявка не решена", zap.Uint64("ticketID", id), zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Заявка решена", http.StatusOK)
}

func (c *TicketController) CloseTicket(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	reqCtx, cancel := utils.ContextWithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := c.ticketService.CloseTicket(reqCtx, id)
	if err != nil {
		c.logger.Warn("CloseTicket: заявка не закрыта", zap.Uint64("ticketID", id), zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Заявка закрыта", http.StatusOK)
}
