package utils

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

// ContextWithTimeout ограничивает время обработки запроса. cancel обязателен.
func ContextWithTimeout(ctx echo.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request().Context(), timeout)
}
