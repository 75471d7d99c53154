package ledger_repo

import (
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository"
	"colorgame_backend/internal/repository/pgutil"
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	usersTable = "users"
	colID      = "id"
	colBalance = "balance"
)

// Баланс меняется только вместе с записью в журнал. Если ref уже есть в журнале,
// обновление не выполняется. Гонка двух одинаковых ref упирается в первичный ключ журнала
const (
	debitSQL = `
WITH u AS (
	UPDATE users SET balance = balance - $3
	WHERE id = $2 AND balance >= $3
		AND NOT EXISTS (SELECT 1 FROM ledger_entries WHERE ref = $1)
	RETURNING id
), j AS (
	INSERT INTO ledger_entries (ref, user_id, amount)
	SELECT $1, $2, -$3::numeric FROM u
	RETURNING ref
)
SELECT count(*) FROM j`

	creditSQL = `
WITH u AS (
	UPDATE users SET balance = balance + $3
	WHERE id = $2
		AND NOT EXISTS (SELECT 1 FROM ledger_entries WHERE ref = $1)
	RETURNING id
), j AS (
	INSERT INTO ledger_entries (ref, user_id, amount)
	SELECT $1, $2, $3::numeric FROM u
	RETURNING ref
)
SELECT count(*) FROM j`

	lookupSQL = `
SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE ref = $1),
       EXISTS (SELECT 1 FROM users WHERE id = $2)`
)

var errNonPositiveAmount = errors.New("amount must be positive")

type repo struct {
	dbc *pgxpool.Pool
}

func NewLedgerRepository(dbc *pgxpool.Pool) repository.LedgerRepository {
	return &repo{
		dbc: dbc,
	}
}

// Debit - списание с кошелька.
// model.ErrInsufficientFunds, если денег не хватает. Повтор с тем же ref - no-op
func (r *repo) Debit(ctx context.Context, userID int64, amount decimal.Decimal, ref string) error {
	if !amount.IsPositive() {
		return errNonPositiveAmount
	}
	return r.apply(ctx, debitSQL, userID, amount, ref, model.ErrInsufficientFunds)
}

// Credit - зачисление на кошелек. Повтор с тем же ref - no-op
func (r *repo) Credit(ctx context.Context, userID int64, amount decimal.Decimal, ref string) error {
	if !amount.IsPositive() {
		return errNonPositiveAmount
	}
	return r.apply(ctx, creditSQL, userID, amount, ref, nil)
}

func (r *repo) apply(ctx context.Context, stmt string, userID int64, amount decimal.Decimal, ref string, rejected error) error {
	conn := pgutil.Getter.DefaultTrOrDB(ctx, r.dbc)

	var applied int
	err := conn.QueryRow(ctx, stmt, ref, userID, amount).Scan(&applied)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			// тот же ref успела записать параллельная операция, повтор увидит его в журнале
			return fmt.Errorf("ledger ref %s: concurrent write: %w", ref, err)
		}
		return err
	}
	if applied > 0 {
		return nil
	}

	var journaled, userExists bool
	err = conn.QueryRow(ctx, lookupSQL, ref, userID).Scan(&journaled, &userExists)
	if err != nil {
		return err
	}
	switch {
	case journaled:
		return nil
	case !userExists:
		return model.ErrNotFound
	case rejected != nil:
		return rejected
	default:
		return model.ErrNotFound
	}
}

// GetBalance - баланс пользователя
func (r *repo) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	query := sq.Select(colBalance).
		From(usersTable).
		Where(sq.Eq{colID: userID}).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err = pgutil.Getter.DefaultTrOrDB(ctx, r.dbc).QueryRow(ctx, sqlStr, args...).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, model.ErrNotFound
		}
		return decimal.Zero, err
	}

	return balance, nil
}
