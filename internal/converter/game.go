package converter

import (
	"colorgame_backend/internal/api/dto/game"
	"colorgame_backend/internal/model"
)

func ToPlaceBet(userID int64, req game.PlaceBetRequest) model.PlaceBet {
	return model.PlaceBet{
		UserID:    userID,
		Stake:     req.Stake,
		Selection: model.Selection(req.Selection),
	}
}

func ToBetResponse(bet *model.Bet) game.BetResponse {
	return game.BetResponse{
		ID:        bet.ID,
		RoundID:   bet.RoundID,
		Selection: string(bet.Selection),
		Stake:     bet.Stake,
		Status:    string(bet.Status),
		PlacedAt:  bet.PlacedAt,
	}
}

func ToRoundResponse(view *model.RoundView) game.RoundResponse {
	return game.RoundResponse{
		RoundID:  view.Round.ID,
		Status:   string(view.Round.Status),
		OpenedAt: view.Round.OpenedAt,
		ClosesAt: view.Round.ClosesAt,
		TimeLeft: int64(view.TimeLeft.Seconds()),
		CanBet:   view.CanBet,
	}
}

func ToHistoryResponse(rounds []model.Round) game.HistoryResponse {
	items := make([]game.HistoryItem, 0, len(rounds))
	for _, r := range rounds {
		o, ok := r.WinningOutcome()
		if !ok {
			continue
		}
		items = append(items, game.HistoryItem{
			RoundID:   r.ID,
			Outcome:   int(o),
			SettledAt: r.SettledAt,
		})
	}
	return game.HistoryResponse{Rounds: items}
}
