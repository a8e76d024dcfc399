package utils

import (
	"errors"
	"net/http"

	apperrors "equipment-compliance/pkg/errors"
)

// ToHttpError сопоставляет доменные ошибки с HTTP-кодами и деталями для клиента.
// Уже готовый *apperrors.HttpError возвращается как есть.
func ToHttpError(err error) *apperrors.HttpError {
	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		return apperrors.NewHttpError(http.StatusBadRequest, validationErr.Error(), err,
			map[string]interface{}{"field": validationErr.Field})
	}

	var transitionErr *apperrors.InvalidStateTransitionError
	if errors.As(err, &transitionErr) {
		return apperrors.NewHttpError(http.StatusConflict, transitionErr.Error(), err,
			map[string]interface{}{"from": transitionErr.From, "to": transitionErr.To})
	}

	var constraintErr *apperrors.ConstraintViolationError
	if errors.As(err, &constraintErr) {
		return apperrors.NewHttpError(http.StatusConflict, constraintErr.Error(), err,
			map[string]interface{}{"report": constraintErr.Report})
	}

	var dispatchErr *apperrors.ExternalDispatchFailure
	if errors.As(err, &dispatchErr) {
		return apperrors.NewHttpError(http.StatusBadGateway, "Не удалось отправить уведомление", err,
			map[string]interface{}{"channel": dispatchErr.Channel})
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return apperrors.NewHttpError(http.StatusNotFound, "Запись не найдена", err, nil)
	case errors.Is(err, apperrors.ErrRunInProgress):
		return apperrors.NewHttpError(http.StatusConflict, apperrors.ErrRunInProgress.Error(), err, nil)
	case errors.Is(err, apperrors.ErrBadRequest):
		return apperrors.NewHttpError(http.StatusBadRequest, "Неверный запрос", err, nil)
	case errors.Is(err, apperrors.ErrForbidden):
		return apperrors.NewHttpError(http.StatusForbidden, "Доступ запрещён", err, nil)
	case errors.Is(err, apperrors.ErrEmptyAuthHeader),
		errors.Is(err, apperrors.ErrInvalidAuthHeader),
		errors.Is(err, apperrors.ErrInvalidToken),
		errors.Is(err, apperrors.ErrTokenExpired),
		errors.Is(err, apperrors.ErrTokenIsNotAccess),
		errors.Is(err, apperrors.ErrUnauthorized):
		return apperrors.NewHttpError(http.StatusUnauthorized, err.Error(), err, nil)
	}

	return apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil)
}
