package bet_repo

import (
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository"
	"colorgame_backend/internal/repository/pgutil"
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	table        = "bets"
	colID        = "id"
	colRoundID   = "round_id"
	colUserID    = "user_id"
	colStake     = "stake"
	colSelection = "selection"
	colPlacedAt  = "placed_at"
	colStatus    = "status"
	colPayout    = "payout"

	roundsTable    = "rounds"
	roundColID     = "id"
	roundColStatus = "status"
	roundColCloses = "closes_at"
)

type repo struct {
	dbc *pgxpool.Pool
}

func NewBetRepository(dbc *pgxpool.Pool) repository.BetRepository {
	return &repo{
		dbc: dbc,
	}
}

// InsertBet - проверяет окно приема ставок и вставляет ставку.
// Строка раунда блокируется FOR SHARE до конца транзакции, поэтому закрытие
// раунда не может пройти между проверкой и вставкой
func (r *repo) InsertBet(ctx context.Context, bet *model.Bet, margin time.Duration) error {
	conn := pgutil.Getter.DefaultTrOrDB(ctx, r.dbc)

	check := sq.Select(roundColStatus, roundColCloses).
		From(roundsTable).
		Where(sq.Eq{roundColID: bet.RoundID}).
		Suffix("FOR SHARE").
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := check.ToSql()
	if err != nil {
		return err
	}

	var (
		round  = model.Round{ID: bet.RoundID}
		status string
	)
	err = conn.QueryRow(ctx, sqlStr, args...).Scan(&status, &round.ClosesAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrRoundNotOpen
		}
		return err
	}
	round.Status = model.RoundStatus(status)
	if err = round.AcceptsBetsAt(bet.PlacedAt, margin); err != nil {
		return err
	}

	if bet.Status == "" {
		bet.Status = model.BetPending
	}
	insert := sq.Insert(table).
		Columns(colRoundID, colUserID, colStake, colSelection, colPlacedAt, colStatus, colPayout).
		Values(bet.RoundID, bet.UserID, bet.Stake, string(bet.Selection), bet.PlacedAt, string(bet.Status), bet.Payout).
		Suffix("RETURNING " + colID).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err = insert.ToSql()
	if err != nil {
		return err
	}

	return conn.QueryRow(ctx, sqlStr, args...).Scan(&bet.ID)
}

// ListBetsForRound - все ставки раунда в порядке приема
func (r *repo) ListBetsForRound(ctx context.Context, roundID int64) ([]model.Bet, error) {
	query := sq.Select(colID, colRoundID, colUserID, colStake, colSelection, colPlacedAt, colStatus, colPayout).
		From(table).
		Where(sq.Eq{colRoundID: roundID}).
		OrderBy(colID + " ASC").
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := pgutil.Getter.DefaultTrOrDB(ctx, r.dbc).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []model.Bet
	for rows.Next() {
		var (
			b         model.Bet
			selection string
			status    string
		)
		err = rows.Scan(&b.ID, &b.RoundID, &b.UserID, &b.Stake, &selection, &b.PlacedAt, &status, &b.Payout)
		if err != nil {
			return nil, err
		}
		b.Selection = model.Selection(selection)
		b.Status = model.BetStatus(status)
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// MarkBetSettled - pending -> won/lost. false, если ставка уже рассчитана
func (r *repo) MarkBetSettled(ctx context.Context, betID int64, status model.BetStatus, payout decimal.Decimal) (bool, error) {
	query := sq.Update(table).
		Set(colStatus, string(status)).
		Set(colPayout, payout).
		Where(sq.Eq{colID: betID, colStatus: string(model.BetPending)}).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	tag, err := pgutil.Getter.DefaultTrOrDB(ctx, r.dbc).Exec(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SummaryForRound - сумма ставок по каждому выбору
func (r *repo) SummaryForRound(ctx context.Context, roundID int64) (map[model.Selection]decimal.Decimal, error) {
	query := sq.Select(colSelection, "SUM("+colStake+")").
		From(table).
		Where(sq.Eq{colRoundID: roundID}).
		GroupBy(colSelection).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := pgutil.Getter.DefaultTrOrDB(ctx, r.dbc).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[model.Selection]decimal.Decimal)
	for rows.Next() {
		var (
			selection string
			sum       decimal.Decimal
		)
		if err = rows.Scan(&selection, &sum); err != nil {
			return nil, err
		}
		totals[model.Selection(selection)] = sum
	}
	return totals, rows.Err()
}
