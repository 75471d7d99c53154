package commission

import (
	"colorgame_backend/internal/model"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// RetryFailed - дорасчитывает прерванные каскады и повторяет начисления в статусе failed.
// Возвращает число начисленных, ошибки по отдельным событиям объединены
func (s *serv) RetryFailed(ctx context.Context) (int, error) {
	resumed, errs := s.resumePending(ctx)

	failed, err := s.commissions.ListFailedCommissions(ctx, retryBatch)
	if err != nil {
		return resumed, errors.Join(append(errs, err)...)
	}

	credited := resumed
	for i := range failed {
		cev := failed[i]

		err = s.txManager.Do(ctx, func(txCtx context.Context) error {
			ok, err := s.commissions.MarkCommissionApplied(txCtx, cev.SourceEventID, cev.BeneficiaryUserID, s.now())
			if err != nil {
				return err
			}
			if !ok {
				// уже начислено параллельным повтором
				return errAlreadyApplied
			}
			if err = s.ledger.Credit(txCtx, cev.BeneficiaryUserID, cev.Amount, cev.LedgerRef()); err != nil {
				return fmt.Errorf("%w: %w", model.ErrCommissionCreditFailed, err)
			}
			return nil
		})
		switch {
		case errors.Is(err, errAlreadyApplied):
			continue
		case err != nil:
			cev.LastError = err.Error()
			if recErr := s.commissions.UpsertFailedCommission(ctx, &cev); recErr != nil {
				s.log.Error("failed to update failed commission", zap.String("source_event_id", cev.SourceEventID), zap.Error(recErr))
			}
			s.log.Warn("commission retry failed",
				zap.String("source_event_id", cev.SourceEventID),
				zap.Int64("user_id", cev.BeneficiaryUserID),
				zap.Int("attempts", cev.Attempts+1),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}

		credited++
		s.metrics.CommissionCredits.WithLabelValues("retried").Inc()
		s.log.Info("commission retried",
			zap.String("source_event_id", cev.SourceEventID),
			zap.Int64("user_id", cev.BeneficiaryUserID),
			zap.Int("level", cev.Level),
		)
	}

	return credited, errors.Join(errs...)
}

// resumePending - повторный обход каскадов, прерванных ошибкой хранилища
func (s *serv) resumePending(ctx context.Context) (int, []error) {
	pending, err := s.commissions.ListPendingCascades(ctx, retryBatch)
	if err != nil {
		return 0, []error{err}
	}

	var (
		credited int
		errs     []error
	)
	for _, ev := range pending {
		report, err := s.Distribute(ctx, ev)
		if err != nil {
			s.log.Warn("pending cascade not resumed",
				zap.String("source_event_id", ev.SourceEventID),
				zap.Int64("user_id", ev.OriginUserID),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		credited += len(report.Credited)
		s.log.Info("pending cascade resumed",
			zap.String("source_event_id", ev.SourceEventID),
			zap.Int("credited", len(report.Credited)),
		)
	}
	return credited, errs
}

var errAlreadyApplied = errors.New("commission already applied")
