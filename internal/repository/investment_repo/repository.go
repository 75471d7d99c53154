package investment_repo

import (
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository"
	"colorgame_backend/internal/repository/pgutil"
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	table          = "investments"
	colID          = "id"
	colUserID      = "user_id"
	colDailyIncome = "daily_income"
	colDaysLeft    = "days_left"
	colStatus      = "status"
	colLastPaidOn  = "last_paid_on"
)

type repo struct {
	dbc *pgxpool.Pool
}

func NewInvestmentRepository(dbc *pgxpool.Pool) repository.InvestmentRepository {
	return &repo{
		dbc: dbc,
	}
}

// dueFor - активный план, за day еще не выплачено
func dueFor(day time.Time) sq.Sqlizer {
	return sq.And{
		sq.Eq{colStatus: string(model.InvestmentActive)},
		sq.Gt{colDaysLeft: 0},
		sq.Or{
			sq.Eq{colLastPaidOn: nil},
			sq.Lt{colLastPaidOn: day.Format(time.DateOnly)},
		},
	}
}

// ListDueInvestments - планы, по которым нужно выплатить доход за day
func (r *repo) ListDueInvestments(ctx context.Context, day time.Time) ([]model.Investment, error) {
	query := sq.Select(colID, colUserID, colDailyIncome, colDaysLeft, colStatus, colLastPaidOn).
		From(table).
		Where(dueFor(day)).
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

	var res []model.Investment
	for rows.Next() {
		var (
			inv      model.Investment
			status   string
			lastPaid sql.NullTime
		)
		err = rows.Scan(&inv.ID, &inv.UserID, &inv.DailyIncome, &inv.DaysLeft, &status, &lastPaid)
		if err != nil {
			return nil, err
		}
		inv.Status = model.InvestmentStatus(status)
		if lastPaid.Valid {
			t := lastPaid.Time
			inv.LastPaidOn = &t
		}
		res = append(res, inv)
	}
	return res, rows.Err()
}

// MarkInvestmentPaid - отмечает выплату за day и уменьшает срок плана.
// На последнем дне план переходит в completed
func (r *repo) MarkInvestmentPaid(ctx context.Context, id int64, day time.Time) (bool, error) {
	query := sq.Update(table).
		Set(colLastPaidOn, day.Format(time.DateOnly)).
		Set(colDaysLeft, sq.Expr(colDaysLeft+" - 1")).
		Set(colStatus, sq.Expr("CASE WHEN "+colDaysLeft+" = 1 THEN ? ELSE "+colStatus+" END",
			string(model.InvestmentCompleted))).
		Where(sq.Eq{colID: id}).
		Where(dueFor(day)).
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
