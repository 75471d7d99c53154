package yield

import (
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository"
	"colorgame_backend/internal/service"
	"context"
	"time"

	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type serv struct {
	investments repository.InvestmentRepository
	ledger      repository.LedgerRepository
	commission  service.CommissionService
	txManager   trm.Manager
	log         *zap.Logger
}

func NewYieldService(
	investments repository.InvestmentRepository,
	ledger repository.LedgerRepository,
	commission service.CommissionService,
	txManager trm.Manager,
	log *zap.Logger,
) service.YieldService {
	return &serv{
		investments: investments,
		ledger:      ledger,
		commission:  commission,
		txManager:   txManager,
		log:         log,
	}
}

// DistributeDaily - начисляет дневной доход по активным инвестициям за day.
// Каждая инвестиция платится не больше одного раза в день, ошибка по одной
// не останавливает остальные. Каждая выплата - источник реферальных:
// каскад отмечается как ожидающий в транзакции выплаты, и если он прервется,
// его дорасчитает CommissionService.RetryFailed
func (s *serv) DistributeDaily(ctx context.Context, day time.Time) (*model.YieldReport, error) {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	due, err := s.investments.ListDueInvestments(ctx, day)
	if err != nil {
		return nil, err
	}

	report := &model.YieldReport{Day: day, Total: decimal.Zero}
	for _, inv := range due {
		paid, err := s.payDay(ctx, &inv, day)
		if err != nil {
			report.Failed++
			s.log.Warn("daily yield not paid",
				zap.Int64("investment_id", inv.ID),
				zap.Int64("user_id", inv.UserID),
				zap.Error(err),
			)
			continue
		}
		if !paid {
			continue
		}
		report.Processed++
		report.Total = report.Total.Add(inv.DailyIncome)

		if !inv.DailyIncome.IsPositive() {
			continue
		}
		if _, err = s.commission.Distribute(ctx, profitEvent(&inv, day)); err != nil {
			s.log.Warn("yield commission cascade interrupted, left pending",
				zap.Int64("investment_id", inv.ID),
				zap.Int64("user_id", inv.UserID),
				zap.Error(err),
			)
		}
	}

	s.log.Info("daily yield distributed",
		zap.String("day", day.Format(time.DateOnly)),
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
		zap.String("total", report.Total.String()),
	)
	return report, nil
}

// payDay - день плана, зачисление дохода и отметка каскада одной транзакцией.
// false если день уже оплачен
func (s *serv) payDay(ctx context.Context, inv *model.Investment, day time.Time) (bool, error) {
	var paid bool
	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		var err error
		paid, err = s.investments.MarkInvestmentPaid(txCtx, inv.ID, day)
		if err != nil || !paid || !inv.DailyIncome.IsPositive() {
			return err
		}
		if err = s.ledger.Credit(txCtx, inv.UserID, inv.DailyIncome, inv.YieldRef(day)); err != nil {
			return err
		}
		return s.commission.Enqueue(txCtx, profitEvent(inv, day))
	})
	return paid, err
}

func profitEvent(inv *model.Investment, day time.Time) model.ProfitEvent {
	return model.ProfitEvent{
		SourceEventID: inv.YieldRef(day),
		OriginUserID:  inv.UserID,
		Amount:        inv.DailyIncome,
	}
}
