package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"equipment-compliance/internal/entities"
	"equipment-compliance/internal/repositories"
	"equipment-compliance/pkg/constants"
	apperrors "equipment-compliance/pkg/errors"
	"equipment-compliance/pkg/telegram"
	"equipment-compliance/pkg/websocket"
)

// Recipient - адресат уведомления. Канал, для которого нет адреса, пропускается.
type Recipient struct {
	Name           string
	Email          string
	UserID         *uint64
	TelegramChatID *int64
	Role           constants.Role
}

// TemplateData - подстановки для шаблонов напоминаний.
type TemplateData struct {
	RecipientName string
	SerialNumber  string
	EquipmentType string
	DueDate       string
	DaysLeft      int
	Link          string
}

// NotificationSenderInterface - отправка одного уведомления по шаблону.
// Ошибка относится только к этому уведомлению.
type NotificationSenderInterface interface {
	Send(ctx context.Context, recipient Recipient, templateKind string, data TemplateData) error
}

// ---------------------------------------------------------------
// Шаблоны
// ---------------------------------------------------------------

type messageTemplate struct {
	category constants.NotificationCategory
	subject  *template.Template
	body     *template.Template
}

var messageTemplates = map[string]messageTemplate{
	constants.TemplateMaintenanceDue: {
		category: constants.CategoryMaintenanceDue,
		subject:  template.Must(template.New("maintenance_subject").Parse(`Плановое обслуживание {{.SerialNumber}} до {{.DueDate}}`)),
		body: template.Must(template.New("maintenance_body").Parse(
			`{{.RecipientName}}, оборудование {{.EquipmentType}} (S/N {{.SerialNumber}}) требует обслуживания ` +
				`{{if eq .DaysLeft 0}}сегодня{{else}}через {{.DaysLeft}} дн.{{end}} ({{.DueDate}}).`)),
	},
	constants.TemplateExpiration: {
		category: constants.CategoryExpiration,
		subject:  template.Must(template.New("expiration_subject").Parse(`Истекает срок эксплуатации {{.SerialNumber}}`)),
		body: template.Must(template.New("expiration_body").Parse(
			`{{.RecipientName}}, срок эксплуатации оборудования {{.EquipmentType}} (S/N {{.SerialNumber}}) ` +
				`истекает {{if eq .DaysLeft 0}}сегодня{{else}}через {{.DaysLeft}} дн.{{end}} ({{.DueDate}}).`)),
	},
}

// RenderTemplate возвращает тему, текст и категорию уведомления.
func RenderTemplate(templateKind string, data TemplateData) (subject, body string, category constants.NotificationCategory, err error) {
	tmpl, ok := messageTemplates[templateKind]
	if !ok {
		return "", "", "", fmt.Errorf("неизвестный шаблон уведомления '%s'", templateKind)
	}

	var buf bytes.Buffer
	if err := tmpl.subject.Execute(&buf, data); err != nil {
		return "", "", "", err
	}
	subject = buf.String()

	buf.Reset()
	if err := tmpl.body.Execute(&buf, data); err != nil {
		return "", "", "", err
	}
	return subject, buf.String(), tmpl.category, nil
}

// ---------------------------------------------------------------
// Email
// ---------------------------------------------------------------

// mockEmailSender пишет письмо в лог вместо отправки. Почтовый транспорт
// подключается отдельно.
type mockEmailSender struct {
	from   string
	logger *zap.Logger
}

func NewMockEmailSender(from string, logger *zap.Logger) NotificationSenderInterface {
	return &mockEmailSender{from: from, logger: logger}
}

func (s *mockEmailSender) Send(ctx context.Context, recipient Recipient, templateKind string, data TemplateData) error {
	if recipient.Email == "" {
		return errChannelNotApplicable
	}
	subject, body, _, err := RenderTemplate(templateKind, data)
	if err != nil {
		return err
	}
	s.logger.Info("!!! ИМИТАЦИЯ ОТПРАВКИ EMAIL !!!",
		zap.String("от", s.from),
		zap.String("кому", recipient.Email),
		zap.String("тема", subject),
		zap.String("текст", body),
	)
	return nil
}

// ---------------------------------------------------------------
// In-app
// ---------------------------------------------------------------

// InAppNotifierInterface - уведомление в колокольчике: запись в БД и push по WebSocket.
type InAppNotifierInterface interface {
	Notify(ctx context.Context, userID uint64, role constants.Role, category constants.NotificationCategory, message string) error
}

type InAppNotifier struct {
	notificationRepo repositories.NotificationRepositoryInterface
	ws               WebSocketNotificationServiceInterface
	logger           *zap.Logger
	now              func() time.Time
}

func NewInAppNotifier(
	notificationRepo repositories.NotificationRepositoryInterface,
	ws WebSocketNotificationServiceInterface,
	logger *zap.Logger,
) *InAppNotifier {
	return &InAppNotifier{
		notificationRepo: notificationRepo,
		ws:               ws,
		logger:           logger,
		now:              time.Now,
	}
}

// Notify сохраняет уведомление со ссылкой из таблицы маршрутов и отправляет его
// в открытые вкладки пользователя. Сбой push не считается ошибкой: уведомление
// уже лежит в БД и будет показано при следующей загрузке.
func (n *InAppNotifier) Notify(ctx context.Context, userID uint64, role constants.Role, category constants.NotificationCategory, message string) error {
	notification := entities.Notification{
		UserID:    userID,
		Category:  string(category),
		Message:   message,
		Link:      RouteNotification(category, role),
		CreatedAt: n.now().UTC(),
	}

	id, err := n.notificationRepo.CreateNotification(ctx, notification)
	if err != nil {
		return fmt.Errorf("сохранение уведомления: %w", err)
	}

	payload := websocket.NotificationPayload{
		NotificationID: id,
		Category:       notification.Category,
		Message:        notification.Message,
		Link:           notification.Link,
		CreatedAt:      notification.CreatedAt,
	}
	if err := n.ws.SendNotification(userID, payload, websocket.MessageTypeNotification); err != nil {
		n.logger.Warn("Не удалось отправить WebSocket-уведомление", zap.Uint64("userID", userID), zap.Error(err))
	}
	return nil
}

// Send - канал напоминаний поверх Notify.
func (n *InAppNotifier) Send(ctx context.Context, recipient Recipient, templateKind string, data TemplateData) error {
	if recipient.UserID == nil {
		return errChannelNotApplicable
	}
	_, body, category, err := RenderTemplate(templateKind, data)
	if err != nil {
		return err
	}
	return n.Notify(ctx, *recipient.UserID, recipient.Role, category, body)
}

// ---------------------------------------------------------------
// Telegram
// ---------------------------------------------------------------

type telegramSender struct {
	client telegram.ServiceInterface
}

func NewTelegramSender(client telegram.ServiceInterface) NotificationSenderInterface {
	return &telegramSender{client: client}
}

func (s *telegramSender) Send(ctx context.Context, recipient Recipient, templateKind string, data TemplateData) error {
	if recipient.TelegramChatID == nil || !s.client.Enabled() {
		return errChannelNotApplicable
	}
	subject, body, _, err := RenderTemplate(templateKind, data)
	if err != nil {
		return err
	}
	return s.client.SendMessage(ctx, *recipient.TelegramChatID, subject+"\n\n"+body)
}

// ---------------------------------------------------------------
// Все каналы сразу
// ---------------------------------------------------------------

// errChannelNotApplicable - у получателя нет адреса для этого канала.
var errChannelNotApplicable = errors.New("канал не применим к получателю")

// DispatchError - итог отправки по нескольким каналам, когда хотя бы один упал.
// Delivered > 0 означает, что получатель уже что-то получил.
type DispatchError struct {
	Delivered int
	Failures  []error
}

func (e *DispatchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return strings.Join(parts, "; ")
}

func (e *DispatchError) Unwrap() []error { return e.Failures }

// Partial - часть каналов доставила уведомление.
func (e *DispatchError) Partial() bool { return e.Delivered > 0 }

type Channel struct {
	Name   string
	Sender NotificationSenderInterface
}

type MultiChannelSender struct {
	channels []Channel
	logger   *zap.Logger
}

func NewMultiChannelSender(logger *zap.Logger, channels ...Channel) NotificationSenderInterface {
	return &MultiChannelSender{channels: channels, logger: logger}
}

// Send отправляет по всем каналам и не останавливается на первой ошибке.
// Ошибки каналов собираются как ExternalDispatchFailure в *DispatchError.
func (m *MultiChannelSender) Send(ctx context.Context, recipient Recipient, templateKind string, data TemplateData) error {
	var failures []error
	delivered := 0
	applicable := 0

	for _, ch := range m.channels {
		err := ch.Sender.Send(ctx, recipient, templateKind, data)
		switch {
		case errors.Is(err, errChannelNotApplicable):
			continue
		case err != nil:
			applicable++
			m.logger.Warn("Канал не доставил уведомление",
				zap.String("channel", ch.Name),
				zap.String("template", templateKind),
				zap.Error(err),
			)
			failures = append(failures, apperrors.NewExternalDispatchFailure(ch.Name, err))
		default:
			applicable++
			delivered++
		}
	}

	if applicable == 0 {
		return apperrors.NewExternalDispatchFailure("all", errors.New("у получателя нет ни одного канала связи"))
	}
	if len(failures) > 0 {
		return &DispatchError{Delivered: delivered, Failures: failures}
	}
	return nil
}
