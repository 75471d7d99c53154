// Package pgutil - общие помощники postgres-репозиториев
package pgutil

import (
	"errors"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// IsUniqueViolation - нарушение уникального индекса
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Getter - достает из контекста транзакцию, открытую trm.Manager
var Getter = trmpgx.DefaultCtxGetter
