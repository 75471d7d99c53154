package converter

import (
	"colorgame_backend/internal/api/dto/admin"
	"colorgame_backend/internal/model"
	"time"

	"github.com/shopspring/decimal"
)

func ToSettlementResponse(r *model.SettlementReport) admin.SettlementResponse {
	return admin.SettlementResponse{
		RoundID:        r.RoundID,
		Outcome:        int(r.Outcome),
		Forced:         r.Forced,
		Bets:           r.Bets,
		Won:            r.Won,
		Lost:           r.Lost,
		Stake:          r.Stake,
		Payout:         r.Payout,
		Failures:       r.Failures,
		AlreadySettled: r.AlreadySettled,
	}
}

func ToBetSummaryResponse(s *model.RoundSummary) admin.BetSummaryResponse {
	totals := make(map[string]decimal.Decimal, len(s.Totals))
	for sel, amount := range s.Totals {
		totals[string(sel)] = amount
	}
	return admin.BetSummaryResponse{RoundID: s.RoundID, Totals: totals}
}

func ToDailyYieldResponse(r *model.YieldReport) admin.DailyYieldResponse {
	return admin.DailyYieldResponse{
		Day:       r.Day.Format(time.DateOnly),
		Processed: r.Processed,
		Failed:    r.Failed,
		Total:     r.Total,
	}
}
