package user_repo

import (
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository"
	"colorgame_backend/internal/repository/pgutil"
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	table         = "users"
	colID         = "id"
	colReferredBy = "referred_by"
)

type repo struct {
	dbc *pgxpool.Pool
}

func NewReferralRepository(dbc *pgxpool.Pool) repository.ReferralRepository {
	return &repo{
		dbc: dbc,
	}
}

// GetReferrer - кто пригласил пользователя.
// false, если пригласившего нет. model.ErrNotFound, если нет самого пользователя
func (r *repo) GetReferrer(ctx context.Context, userID int64) (int64, bool, error) {
	query := sq.Select(colReferredBy).
		From(table).
		Where(sq.Eq{colID: userID}).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, false, err
	}

	var referredBy sql.NullInt64
	err = pgutil.Getter.DefaultTrOrDB(ctx, r.dbc).QueryRow(ctx, sqlStr, args...).Scan(&referredBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, model.ErrNotFound
		}
		return 0, false, err
	}

	return referredBy.Int64, referredBy.Valid, nil
}
