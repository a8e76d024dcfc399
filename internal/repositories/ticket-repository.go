package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"equipment-compliance/internal/entities"
	"equipment-compliance/pkg/constants"
	apperrors "equipment-compliance/pkg/errors"
)

const ticketTable = "tickets"

var ticketSelectColumns = []string{
	"t.id", "t.status", "t.support_type", "t.priority", "t.issue_description",
	"t.resolution_description", "t.equipment_id", "t.vendor_id", "t.client_id",
	"t.scheduled_date", "t.resolved_at", "t.closed_at", "t.calculated_hours",
	"t.created_at", "t.updated_at",
}

type TicketRepositoryInterface interface {
	CreateTicket(ctx context.Context, ticket entities.Ticket) (uint64, error)
	FindTicket(ctx context.Context, id uint64) (*entities.Ticket, error)
	FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Ticket, error)
	MarkResolvedInTx(ctx context.Context, tx pgx.Tx, id uint64, resolution string, hours float64, resolvedAt time.Time) error
	MarkClosedInTx(ctx context.Context, tx pgx.Tx, id uint64, closedAt time.Time) error
}

type TicketRepository struct {
	storage DBPool
	logger  *zap.Logger
}

func NewTicketRepository(storage DBPool, logger *zap.Logger) TicketRepositoryInterface {
	return &TicketRepository{storage: storage, logger: logger}
}

func scanTicket(row pgx.Row) (*entities.Ticket, error) {
	var t entities.Ticket
	err := row.Scan(
		&t.ID, &t.Status, &t.SupportType, &t.Priority, &t.IssueDescription,
		&t.ResolutionDescription, &t.EquipmentID, &t.VendorID, &t.ClientID,
		&t.ScheduledDate, &t.ResolvedAt, &t.ClosedAt, &t.CalculatedHours,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования ticket: %w", err)
	}
	return &t, nil
}

func (r *TicketRepository) findOne(ctx context.Context, querier Querier, id uint64, forUpdate bool) (*entities.Ticket, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	builder := psql.Select(ticketSelectColumns...).
		From(ticketTable + " AS t").
		Where(sq.Eq{"t.id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	return scanTicket(querier.QueryRow(ctx, query, args...))
}

func (r *TicketRepository) FindTicket(ctx context.Context, id uint64) (*entities.Ticket, error) {
	return r.findOne(ctx, r.storage, id, false)
}

func (r *TicketRepository) FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Ticket, error) {
	return r.findOne(ctx, pick(r.storage, tx), id, true)
}

// CreateTicket всегда создаёт заявку в статусе open.
func (r *TicketRepository) CreateTicket(ctx context.Context, ticket entities.Ticket) (uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Insert(ticketTable).
		Columns("status", "support_type", "priority", "issue_description",
			"equipment_id", "vendor_id", "client_id", "scheduled_date").
		Values(constants.TicketStatusOpen, ticket.SupportType, ticket.Priority, ticket.IssueDescription,
			ticket.EquipmentID, ticket.VendorID, ticket.ClientID, ticket.ScheduledDate).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, err
	}

	var newID uint64
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&newID); err != nil {
		return 0, mapTicketReferenceError(err)
	}
	return newID, nil
}

// Внешние ключи заявки -> поле запроса, на которое ссылается ошибка.
var ticketReferenceFields = map[string]string{
	"tickets_equipment_id_fkey": "equipment_id",
	"tickets_vendor_id_fkey":    "vendor_id",
	"tickets_client_id_fkey":    "client_id",
}

// mapTicketReferenceError превращает нарушение внешнего ключа в ValidationError:
// ссылка на несуществующего поставщика или клиента - ошибка запроса, а не сервера.
func mapTicketReferenceError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23503" { // foreign_key_violation
		return err
	}
	field, ok := ticketReferenceFields[pgErr.ConstraintName]
	if !ok {
		field = "ticket"
	}
	return apperrors.NewValidationError(field, "связанная запись не найдена")
}

// MarkResolvedInTx - переход open -> resolved. Условие по статусу в WHERE
// гарантирует, что resolved_at выставляется ровно один раз.
func (r *TicketRepository) MarkResolvedInTx(ctx context.Context, tx pgx.Tx, id uint64, resolution string, hours float64, resolvedAt time.Time) error {
	query := `
		UPDATE tickets
		SET status = $1, resolution_description = $2, calculated_hours = $3,
		    resolved_at = $4, updated_at = NOW()
		WHERE id = $5 AND status = $6
	`
	result, err := pick(r.storage, tx).Exec(ctx, query,
		constants.TicketStatusResolved, resolution, hours, resolvedAt, id, constants.TicketStatusOpen)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewInvalidStateTransition(id, "not "+constants.TicketStatusOpen, constants.TicketStatusResolved)
	}
	return nil
}

// MarkClosedInTx - переход resolved -> closed.
func (r *TicketRepository) MarkClosedInTx(ctx context.Context, tx pgx.Tx, id uint64, closedAt time.Time) error {
	query := `
		UPDATE tickets
		SET status = $1, closed_at = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`
	result, err := pick(r.storage, tx).Exec(ctx, query,
		constants.TicketStatusClosed, closedAt, id, constants.TicketStatusResolved)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewInvalidStateTransition(id, "not "+constants.TicketStatusResolved, constants.TicketStatusClosed)
	}
	return nil
}
