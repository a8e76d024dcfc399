package errors

import (
	"errors"
	"fmt"
)

var (
	// JWT и токены
	ErrInvalidSigningMethod = fmt.Errorf("неверный метод подписи токена")
	ErrInvalidToken         = fmt.Errorf("недопустимый токен")
	ErrTokenExpired         = fmt.Errorf("срок действия токена истёк")
	ErrTokenIsNotAccess     = fmt.Errorf("токен не является access-токеном")

	// Авторизация
	ErrEmptyAuthHeader   = fmt.Errorf("заголовок авторизации отсутствует")
	ErrInvalidAuthHeader = fmt.Errorf("неверный формат заголовка авторизации")
	ErrUnauthorized      = fmt.Errorf("неавторизован")
	ErrForbidden         = fmt.Errorf("доступ запрещён")

	// Общие
	ErrNotFound   = fmt.Errorf("запись не найдена")
	ErrBadRequest = fmt.Errorf("неверный запрос")

	// Рассылка напоминаний
	ErrRunInProgress = fmt.Errorf("рассылка этого типа уже выполняется")
)

// ValidationError - входные данные вне допустимого диапазона.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidStateTransitionError - операция над заявкой из неверного статуса.
type InvalidStateTransitionError struct {
	TicketID uint64
	From     string
	To       string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("недопустимый переход статуса заявки %d: %s -> %s", e.TicketID, e.From, e.To)
}

func NewInvalidStateTransition(ticketID uint64, from, to string) error {
	return &InvalidStateTransitionError{TicketID: ticketID, From: from, To: to}
}

// ConstraintViolationError несёт свежий отчёт о зависимостях, заблокировавших удаление.
// Report хранится как interface{}, чтобы пакет ошибок не зависел от dto.
type ConstraintViolationError struct {
	EntityType string
	EntityID   uint64
	Report     interface{}
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("удаление %s %d невозможно: есть зависимые записи", e.EntityType, e.EntityID)
}

func NewConstraintViolation(entityType string, entityID uint64, report interface{}) error {
	return &ConstraintViolationError{EntityType: entityType, EntityID: entityID, Report: report}
}

// ExternalDispatchFailure - не удалось отправить одно уведомление по одному каналу.
type ExternalDispatchFailure struct {
	Channel string
	Err     error
}

func (e *ExternalDispatchFailure) Error() string {
	return fmt.Sprintf("канал %s: %v", e.Channel, e.Err)
}

func (e *ExternalDispatchFailure) Unwrap() error { return e.Err }

func NewExternalDispatchFailure(channel string, err error) error {
	return &ExternalDispatchFailure{Channel: channel, Err: err}
}

// HttpError - ошибка транспортного уровня с кодом ответа и деталями для клиента.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details map[string]interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, details map[string]interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Details: details}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsInvalidStateTransition(err error) bool {
	var v *InvalidStateTransitionError
	return errors.As(err, &v)
}

func IsConstraintViolation(err error) bool {
	var v *ConstraintViolationError
	return errors.As(err, &v)
}
