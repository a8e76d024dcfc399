package utils

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type HttpResponse struct {
	Status  bool                   `json:"status"`
	Body    interface{}            `json:"body,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	Message string                 `json:"message"`
}

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int) error {
	return ctx.JSON(code, &HttpResponse{
		Status:  true,
		Body:    body,
		Message: message,
	})
}

// ErrorResponse пишет ошибку клиенту. 5xx логируются с исходной причиной,
// клиенту уходит только пользовательское сообщение.
func ErrorResponse(ctx echo.Context, err error, logger *zap.Logger) error {
	httpErr := ToHttpError(err)
	if httpErr.Code >= 500 && logger != nil {
		logger.Error("Ошибка обработки запроса",
			zap.String("method", ctx.Request().Method),
			zap.String("uri", ctx.Request().RequestURI),
			zap.Error(err),
		)
	}

	return ctx.JSON(httpErr.Code, &HttpResponse{
		Status:  false,
		Details: httpErr.Details,
		Message: httpErr.Message,
	})
}
