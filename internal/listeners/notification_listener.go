package listeners

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"equipment-compliance/internal/entities"
	"equipment-compliance/internal/events"
	"equipment-compliance/internal/repositories"
	"equipment-compliance/internal/services"
	"equipment-compliance/pkg/config"
	"equipment-compliance/pkg/constants"
	"equipment-compliance/pkg/eventbus"
	"equipment-compliance/pkg/telegram"
)

// recipient - пользователь, которому уходит уведомление о заявке.
type recipient struct {
	userID         uint64
	role           constants.Role
	telegramChatID *int64
}

// NotificationListener рассылает уведомления участникам заявки
// (поставщику и клиенту) после её создания, решения и закрытия.
type NotificationListener struct {
	notifier    services.InAppNotifierInterface
	telegram    telegram.ServiceInterface
	partyRepo   repositories.PartyRepositoryInterface
	frontendCfg config.FrontendConfig
	logger      *zap.Logger
}

func NewNotificationListener(
	notifier services.InAppNotifierInterface,
	telegramService telegram.ServiceInterface,
	partyRepo repositories.PartyRepositoryInterface,
	frontendCfg config.FrontendConfig,
	logger *zap.Logger,
) *NotificationListener {
	return &NotificationListener{
		notifier:    notifier,
		telegram:    telegramService,
		partyRepo:   partyRepo,
		frontendCfg: frontendCfg,
		logger:      logger,
	}
}

func (l *NotificationListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.TicketCreated, l.handleTicketEvent)
	bus.Subscribe(events.TicketResolved, l.handleTicketEvent)
	bus.Subscribe(events.TicketClosed, l.handleTicketEvent)
	l.logger.Info("NotificationListener подписан на события заявок")
}

func (l *NotificationListener) handleTicketEvent(ctx context.Context, event eventbus.Event) error {
	var (
		ticket   entities.Ticket
		category constants.NotificationCategory
		message  string
	)

	switch e := event.(type) {
	case events.TicketCreatedEvent:
		ticket = e.Ticket
		category = constants.CategoryTicketCreated
		message = fmt.Sprintf("Создана заявка №%d: %s", ticket.ID, ticket.IssueDescription)
	case events.TicketResolvedEvent:
		ticket = e.Ticket
		category = constants.CategoryTicketResolved
		message = fmt.Sprintf("Заявка №%d решена", ticket.ID)
		if e.Equipment != nil && e.Equipment.NextMaintenanceDate != nil {
			message += fmt.Sprintf(", следующее обслуживание %s", e.Equipment.NextMaintenanceDate.Format("02.01.2006"))
		}
	case events.TicketClosedEvent:
		ticket = e.Ticket
		category = constants.CategoryTicketClosed
		message = fmt.Sprintf("Заявка №%d закрыта", ticket.ID)
	default:
		return nil
	}

	recipients, err := l.determineRecipients(ctx, ticket)
	if err != nil {
		return fmt.Errorf("получатели заявки %d: %w", ticket.ID, err)
	}

	var sendErrs []error
	for _, r := range recipients {
		if err := l.notifier.Notify(ctx, r.userID, r.role, category, message); err != nil {
			l.logger.Error("Не удалось сохранить уведомление о заявке",
				zap.Uint64("ticketID", ticket.ID),
				zap.Uint64("userID", r.userID),
				zap.Error(err),
			)
			sendErrs = append(sendErrs, err)
		}
		l.sendTelegram(ctx, r, category, ticket.ID, message)
	}
	return errors.Join(sendErrs...)
}

// determineRecipients - поставщик и клиент заявки, у которых есть учётная запись.
// Неактивные участники уведомлений не получают.
func (l *NotificationListener) determineRecipients(ctx context.Context, ticket entities.Ticket) ([]recipient, error) {
	var result []recipient

	if ticket.VendorID != nil {
		vendor, err := l.partyRepo.FindVendor(ctx, *ticket.VendorID)
		if err != nil {
			return nil, err
		}
		if vendor.IsActive && vendor.UserID != nil {
			result = append(result, recipient{userID: *vendor.UserID, role: constants.RoleVendor, telegramChatID: vendor.TelegramChatID})
		}
	}

	if ticket.ClientID != nil {
		client, err := l.partyRepo.FindClient(ctx, *ticket.ClientID)
		if err != nil {
			return nil, err
		}
		if client.IsActive && client.UserID != nil {
			result = append(result, recipient{userID: *client.UserID, role: constants.RoleClient})
		}
	}
	return result, nil
}

// Внутри (...) в MarkdownV2 экранируются только ')' и '\'.
var linkEscaper = strings.NewReplacer(`\`, `\\`, `)`, `\)`)

func (l *NotificationListener) sendTelegram(ctx context.Context, r recipient, category constants.NotificationCategory, ticketID uint64, message string) {
	if r.telegramChatID == nil || l.telegram == nil || !l.telegram.Enabled() {
		return
	}

	escape := telegram.EscapeTextForMarkdownV2
	link := l.frontendCfg.BaseURL + services.RouteNotification(category, r.role)
	text := fmt.Sprintf("*%s*\n\n[Открыть](%s)", escape(message), linkEscaper.Replace(link))

	if err := l.telegram.SendMessageEx(ctx, *r.telegramChatID, text, telegram.WithMarkdownV2(), telegram.WithoutPreview()); err != nil {
		l.logger.Warn("Не удалось отправить уведомление в Telegram",
			zap.Uint64("ticketID", ticketID),
			zap.Int64("chatID", *r.telegramChatID),
			zap.Error(err),
		)
	}
}
