package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier - общий знаменатель pgxpool.Pool и pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DBPool - пул, умеющий открывать транзакции. Реализуется *pgxpool.Pool
// и pgxmock.PgxPoolIface в тестах.
type DBPool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// pick возвращает транзакцию, если она есть, иначе пул.
func pick(pool DBPool, tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return pool
}
