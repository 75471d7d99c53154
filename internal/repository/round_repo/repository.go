package round_repo

import (
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository"
	"colorgame_backend/internal/repository/pgutil"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	table        = "rounds"
	colID        = "id"
	colOpenedAt  = "opened_at"
	colClosesAt  = "closes_at"
	colStatus    = "status"
	colOutcome   = "outcome"
	colForced    = "forced"
	colSettledAt = "settled_at"
)

var columns = []string{colID, colOpenedAt, colClosesAt, colStatus, colOutcome, colForced, colSettledAt}

type repo struct {
	dbc *pgxpool.Pool
}

func NewRoundRepository(dbc *pgxpool.Pool) repository.RoundRepository {
	return &repo{
		dbc: dbc,
	}
}

func scanRound(row pgx.Row) (*model.Round, error) {
	var (
		round     model.Round
		status    string
		outcome   sql.NullInt32
		settledAt sql.NullTime
	)
	err := row.Scan(&round.ID, &round.OpenedAt, &round.ClosesAt, &status, &outcome, &round.Forced, &settledAt)
	if err != nil {
		return nil, err
	}
	round.Status = model.RoundStatus(status)
	if outcome.Valid {
		o := model.Outcome(outcome.Int32)
		round.Outcome = &o
	}
	if settledAt.Valid {
		t := settledAt.Time
		round.SettledAt = &t
	}
	return &round, nil
}

// CreateRound - вставка нового раунда.
// model.ErrRoundExists, если ID занят или уже есть открытый раунд
func (r *repo) CreateRound(ctx context.Context, round *model.Round) error {
	query := sq.Insert(table).
		Columns(colID, colOpenedAt, colClosesAt, colStatus, colForced).
		Values(round.ID, round.OpenedAt, round.ClosesAt, string(round.Status), round.Forced).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = pgutil.Getter.DefaultTrOrDB(ctx, r.dbc).Exec(ctx, sqlStr, args...)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return model.ErrRoundExists
		}
		return err
	}
	return nil
}

func (r *repo) getOne(ctx context.Context, where sq.Sqlizer) (*model.Round, error) {
	query := sq.Select(columns...).
		From(table).
		Where(where).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	round, err := scanRound(pgutil.Getter.DefaultTrOrDB(ctx, r.dbc).QueryRow(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return round, nil
}

func (r *repo) GetRound(ctx context.Context, id int64) (*model.Round, error) {
	return r.getOne(ctx, sq.Eq{colID: id})
}

// GetOpenRound - единственный раунд в статусе open
func (r *repo) GetOpenRound(ctx context.Context) (*model.Round, error) {
	return r.getOne(ctx, sq.Eq{colStatus: string(model.RoundOpen)})
}

func (r *repo) LastRoundID(ctx context.Context) (int64, error) {
	query := sq.Select("COALESCE(MAX(" + colID + "), 0)").
		From(table).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var id int64
	err = pgutil.Getter.DefaultTrOrDB(ctx, r.dbc).QueryRow(ctx, sqlStr, args...).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SetOutcome - фиксирует исход раунда в settling. false, если исход уже записан
func (r *repo) SetOutcome(ctx context.Context, id int64, outcome model.Outcome, forced bool) (bool, error) {
	query := sq.Update(table).
		Set(colOutcome, int(outcome)).
		Set(colForced, forced).
		Where(sq.Eq{colID: id, colStatus: string(model.RoundSettling)}).
		Where(sq.Eq{colOutcome: nil}).
		PlaceholderFormat(sq.Dollar)

	return r.execCAS(ctx, query)
}

// TransitionStatus - переход статуса через compare-and-set по from
func (r *repo) TransitionStatus(ctx context.Context, id int64, from, to model.RoundStatus, at time.Time) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("%w: round transition %s -> %s", model.ErrInvariantViolation, from, to)
	}

	query := sq.Update(table).
		Set(colStatus, string(to)).
		Where(sq.Eq{colID: id, colStatus: string(from)}).
		PlaceholderFormat(sq.Dollar)
	if to == model.RoundSettled {
		query = query.Set(colSettledAt, at).Where(sq.NotEq{colOutcome: nil})
	}

	return r.execCAS(ctx, query)
}

func (r *repo) execCAS(ctx context.Context, query sq.UpdateBuilder) (bool, error) {
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

func (r *repo) list(ctx context.Context, query sq.SelectBuilder) ([]model.Round, error) {
	sqlStr, args, err := query.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := pgutil.Getter.DefaultTrOrDB(ctx, r.dbc).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []model.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *round)
	}
	return res, rows.Err()
}

func (r *repo) ListRoundsByStatus(ctx context.Context, status model.RoundStatus) ([]model.Round, error) {
	return r.list(ctx, sq.Select(columns...).
		From(table).
		Where(sq.Eq{colStatus: string(status)}).
		OrderBy(colID+" ASC"))
}

// ListSettledRounds - история, последние раунды первыми
func (r *repo) ListSettledRounds(ctx context.Context, limit int) ([]model.Round, error) {
	query := sq.Select(columns...).
		From(table).
		Where(sq.Eq{colStatus: string(model.RoundSettled)}).
		OrderBy(colID + " DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	return r.list(ctx, query)
}
