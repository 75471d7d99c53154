package commission_repo

import (
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository"
	"colorgame_backend/internal/repository/pgutil"
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	table          = "commission_events"
	colSource      = "source_event_id"
	colBeneficiary = "beneficiary_user_id"
	colOrigin      = "origin_user_id"
	colLevel       = "level"
	colAmount      = "amount"
	colStatus      = "status"
	colAppliedAt   = "applied_at"
	colAttempts    = "attempts"
	colLastError   = "last_error"

	pendingTable = "pending_cascades"
	colCreatedAt = "created_at"
)

var columns = []string{colSource, colBeneficiary, colOrigin, colLevel, colAmount, colStatus, colAppliedAt, colAttempts, colLastError}

type repo struct {
	dbc *pgxpool.Pool
}

func NewCommissionRepository(dbc *pgxpool.Pool) repository.CommissionRepository {
	return &repo{
		dbc: dbc,
	}
}

// InsertCommission - запись начисления. false, если для (source, beneficiary) запись уже есть
func (r *repo) InsertCommission(ctx context.Context, ev *model.CommissionEvent) (bool, error) {
	query := sq.Insert(table).
		Columns(columns...).
		Values(ev.SourceEventID, ev.BeneficiaryUserID, ev.OriginUserID, ev.Level, ev.Amount,
			string(ev.Status), ev.AppliedAt, max(ev.Attempts, 1), ev.LastError).
		Suffix("ON CONFLICT (" + colSource + ", " + colBeneficiary + ") DO NOTHING").
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

// UpsertFailedCommission - сохраняет неудачное начисление.
// Повторная неудача увеличивает attempts, уже начисленное событие не меняется
func (r *repo) UpsertFailedCommission(ctx context.Context, ev *model.CommissionEvent) error {
	query := sq.Insert(table).
		Columns(columns...).
		Values(ev.SourceEventID, ev.BeneficiaryUserID, ev.OriginUserID, ev.Level, ev.Amount,
			string(model.CommissionFailed), nil, 1, ev.LastError).
		Suffix("ON CONFLICT ("+colSource+", "+colBeneficiary+") DO UPDATE SET "+
			colAttempts+" = "+table+"."+colAttempts+" + 1, "+
			colLastError+" = EXCLUDED."+colLastError+
			" WHERE "+table+"."+colStatus+" = ?", string(model.CommissionFailed)).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = pgutil.Getter.DefaultTrOrDB(ctx, r.dbc).Exec(ctx, sqlStr, args...)
	return err
}

func (r *repo) list(ctx context.Context, query sq.SelectBuilder) ([]model.CommissionEvent, error) {
	sqlStr, args, err := query.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := pgutil.Getter.DefaultTrOrDB(ctx, r.dbc).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []model.CommissionEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}

func scanEvent(row pgx.Row) (model.CommissionEvent, error) {
	var (
		ev        model.CommissionEvent
		status    string
		appliedAt sql.NullTime
	)
	err := row.Scan(&ev.SourceEventID, &ev.BeneficiaryUserID, &ev.OriginUserID, &ev.Level, &ev.Amount,
		&status, &appliedAt, &ev.Attempts, &ev.LastError)
	if err != nil {
		return ev, err
	}
	ev.Status = model.CommissionStatus(status)
	if appliedAt.Valid {
		t := appliedAt.Time
		ev.AppliedAt = &t
	}
	return ev, nil
}

// ListFailedCommissions - очередь на повторное начисление
func (r *repo) ListFailedCommissions(ctx context.Context, limit int) ([]model.CommissionEvent, error) {
	query := sq.Select(columns...).
		From(table).
		Where(sq.Eq{colStatus: string(model.CommissionFailed)}).
		OrderBy(colSource+" ASC", colLevel+" ASC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	return r.list(ctx, query)
}

// MarkCommissionApplied - failed -> applied. false, если событие уже начислено
func (r *repo) MarkCommissionApplied(ctx context.Context, sourceEventID string, beneficiaryID int64, at time.Time) (bool, error) {
	query := sq.Update(table).
		Set(colStatus, string(model.CommissionApplied)).
		Set(colAppliedAt, at).
		Set(colLastError, "").
		Where(sq.Eq{
			colSource:      sourceEventID,
			colBeneficiary: beneficiaryID,
			colStatus:      string(model.CommissionFailed),
		}).
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

func (r *repo) ListCommissionsBySource(ctx context.Context, sourceEventID string) ([]model.CommissionEvent, error) {
	return r.list(ctx, sq.Select(columns...).
		From(table).
		Where(sq.Eq{colSource: sourceEventID}).
		OrderBy(colLevel+" ASC"))
}

// InsertPendingCascade - событие прибыли, по которому каскад еще не пройден
func (r *repo) InsertPendingCascade(ctx context.Context, ev *model.ProfitEvent) error {
	query := sq.Insert(pendingTable).
		Columns(colSource, colOrigin, colAmount).
		Values(ev.SourceEventID, ev.OriginUserID, ev.Amount).
		Suffix("ON CONFLICT (" + colSource + ") DO NOTHING").
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = pgutil.Getter.DefaultTrOrDB(ctx, r.dbc).Exec(ctx, sqlStr, args...)
	return err
}

func (r *repo) ListPendingCascades(ctx context.Context, limit int) ([]model.ProfitEvent, error) {
	query := sq.Select(colSource, colOrigin, colAmount).
		From(pendingTable).
		OrderBy(colCreatedAt+" ASC", colSource+" ASC").
		PlaceholderFormat(sq.Dollar)
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := pgutil.Getter.DefaultTrOrDB(ctx, r.dbc).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []model.ProfitEvent
	for rows.Next() {
		var ev model.ProfitEvent
		if err = rows.Scan(&ev.SourceEventID, &ev.OriginUserID, &ev.Amount); err != nil {
			return nil, err
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}

func (r *repo) DeletePendingCascade(ctx context.Context, sourceEventID string) error {
	query := sq.Delete(pendingTable).
		Where(sq.Eq{colSource: sourceEventID}).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = pgutil.Getter.DefaultTrOrDB(ctx, r.dbc).Exec(ctx, sqlStr, args...)
	return err
}
