// Package postgres provides PostgreSQL implementations of repositories.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPoolInterface - подмножество pgxpool.Pool, которое нужно репозиториям.
type PgxPoolInterface interface {
	QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, query string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

const (
	errBeginTx  = "failed to begin transaction"
	errCommitTx = "failed to commit transaction"

	pgCodeInvalidText      = "22P02"
	pgCodeForeignKeyFailed = "23503"
)

// runInTx выполняет fn в транзакции. Ошибка fn откатывает транзакцию.
func runInTx(ctx context.Context, pool PgxPoolInterface, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", errBeginTx, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // после коммита no-op

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", errCommitTx, err)
	}
	return nil
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isMissing сообщает, что строки нет: пустой результат или id не является UUID.
func isMissing(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || pgErrorCode(err) == pgCodeInvalidText
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
