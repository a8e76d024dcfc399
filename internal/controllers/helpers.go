package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "equipment-compliance/pkg/errors"
)

// requestTimeout - лимит на обычный запрос. Рассылки и импорт идут без него.
const requestTimeout = 10 * time.Second

// parseIDParam читает положительный числовой параметр пути.
func parseIDParam(ctx echo.Context, name string) (uint64, error) {
	raw := ctx.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewHttpError(
			http.StatusBadRequest,
			"Неверный формат ID",
			err,
			map[string]interface{}{"param": raw},
		)
	}
	return id, nil
}

func badBody(err error) error {
	return apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil)
}
