package commission

import (
	"colorgame_backend/internal/events"
	"colorgame_backend/internal/model"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Enqueue - отметка ожидающего каскада, снимается после успешного Distribute
func (s *serv) Enqueue(ctx context.Context, ev model.ProfitEvent) error {
	if !ev.Amount.IsPositive() {
		return nil
	}
	return s.commissions.InsertPendingCascade(ctx, &ev)
}

// Distribute - реферальные начисления за одно событие прибыли.
// Обход идет от пригласившего OriginUserID вверх, не глубже MaxLevels уровней.
// Повторный пользователь в цепочке останавливает обход (цикл в данных).
// Каждый уровень начисляется в своей транзакции. Неудачный уровень сохраняется
// как failed и повторяется в RetryFailed, обход при этом продолжается.
// Если обход прерван ошибкой, отметка из Enqueue остается и каскад дорасчитывается в RetryFailed
func (s *serv) Distribute(ctx context.Context, ev model.ProfitEvent) (*model.CascadeReport, error) {
	report, err := s.walk(ctx, ev)
	if err != nil {
		return report, err
	}

	if err = s.commissions.DeletePendingCascade(ctx, ev.SourceEventID); err != nil {
		// каскад пройден, повторный обход ничего не начислит
		s.log.Warn("failed to clear pending cascade",
			zap.String("source_event_id", ev.SourceEventID),
			zap.Error(err),
		)
	}
	return report, nil
}

func (s *serv) walk(ctx context.Context, ev model.ProfitEvent) (*model.CascadeReport, error) {
	report := &model.CascadeReport{SourceEventID: ev.SourceEventID, Stop: model.StopChainEnd}
	if !ev.Amount.IsPositive() {
		return report, nil
	}

	rates := s.cfg.Rates()
	maxLevels := min(s.cfg.MaxLevels(), len(rates))

	visited := map[int64]struct{}{ev.OriginUserID: {}}
	current := ev.OriginUserID

	for level := 1; ; level++ {
		if level > maxLevels {
			report.Stop = model.StopDepthBound
			break
		}

		referrer, ok, err := s.referrals.GetReferrer(ctx, current)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				// пользователь из цепочки удален, дальше идти некуда
				s.log.Warn("referral chain references unknown user",
					zap.String("source_event_id", ev.SourceEventID),
					zap.Int64("user_id", current),
				)
				break
			}
			return report, fmt.Errorf("%w: referrer of user %d: %w", model.ErrSettlementTransient, current, err)
		}
		if !ok {
			break
		}

		if _, seen := visited[referrer]; seen {
			s.log.Error("referral cycle detected, cascade stopped",
				zap.Error(model.ErrInvariantViolation),
				zap.String("source_event_id", ev.SourceEventID),
				zap.Int64("user_id", current),
				zap.Int64("referrer_id", referrer),
				zap.Int("level", level),
			)
			report.Stop = model.StopCycle
			break
		}
		visited[referrer] = struct{}{}
		current = referrer

		amount := ev.Amount.Mul(rates[level-1]).Round(amountPlaces)
		if !amount.IsPositive() {
			continue
		}

		cev := model.CommissionEvent{
			SourceEventID:     ev.SourceEventID,
			BeneficiaryUserID: referrer,
			OriginUserID:      ev.OriginUserID,
			Level:             level,
			Amount:            amount,
			Status:            model.CommissionApplied,
			Attempts:          1,
		}

		applied, err := s.applyLevel(ctx, &cev)
		if err != nil {
			if recErr := s.recordFailure(ctx, &cev, err); recErr != nil {
				return report, fmt.Errorf("%w: record failed commission %s: %w", model.ErrSettlementTransient, cev.LedgerRef(), recErr)
			}
			report.Failed = append(report.Failed, cev)
			continue
		}
		if !applied {
			report.Skipped++
			continue
		}

		s.metrics.CommissionCredits.WithLabelValues(string(model.CommissionApplied)).Inc()
		report.Credited = append(report.Credited, cev)
	}

	return report, nil
}

// applyLevel - запись события и зачисление одной транзакцией.
// false, если событие уже есть (начислено ранее или ждет повтора)
func (s *serv) applyLevel(ctx context.Context, cev *model.CommissionEvent) (bool, error) {
	now := s.now()
	cev.AppliedAt = &now

	var inserted bool
	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		var err error
		inserted, err = s.commissions.InsertCommission(txCtx, cev)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		if err = s.ledger.Credit(txCtx, cev.BeneficiaryUserID, cev.Amount, cev.LedgerRef()); err != nil {
			return fmt.Errorf("%w: %w", model.ErrCommissionCreditFailed, err)
		}
		return nil
	})
	if err != nil {
		cev.AppliedAt = nil
		return false, err
	}
	return inserted, nil
}

// recordFailure - сохраняет неудачный уровень для повторной попытки
func (s *serv) recordFailure(ctx context.Context, cev *model.CommissionEvent, cause error) error {
	cev.Status = model.CommissionFailed
	cev.AppliedAt = nil
	cev.LastError = cause.Error()

	s.log.Warn("commission credit failed, queued for retry",
		zap.String("source_event_id", cev.SourceEventID),
		zap.Int64("user_id", cev.BeneficiaryUserID),
		zap.Int("level", cev.Level),
		zap.String("amount", cev.Amount.String()),
		zap.Error(cause),
	)

	if err := s.commissions.UpsertFailedCommission(ctx, cev); err != nil {
		s.log.Error("failed to record failed commission",
			zap.String("source_event_id", cev.SourceEventID),
			zap.Int64("user_id", cev.BeneficiaryUserID),
			zap.Error(err),
		)
		return err
	}

	s.metrics.CommissionCredits.WithLabelValues(string(model.CommissionFailed)).Inc()
	if err := s.publisher.PublishCommissionFailed(ctx, events.NewCommissionFailed(cev)); err != nil {
		s.log.Warn("failed to publish commission_failed event",
			zap.String("source_event_id", cev.SourceEventID),
			zap.Error(err),
		)
	}
	return nil
}
