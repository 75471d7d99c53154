package bet

import (
	"colorgame_backend/internal/config"
	"colorgame_backend/internal/metrics"
	"colorgame_backend/internal/repository"
	"colorgame_backend/internal/service"
	"time"

	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type Deps struct {
	RoundCfg  config.RoundConfig
	Calc      service.PayoutCalculator
	Rounds    repository.RoundRepository
	Bets      repository.BetRepository
	Ledger    repository.LedgerRepository
	TxManager trm.Manager
	Metrics   *metrics.Metrics
	Log       *zap.Logger
	Now       func() time.Time
}

type serv struct {
	roundCfg  config.RoundConfig
	calc      service.PayoutCalculator
	rounds    repository.RoundRepository
	bets      repository.BetRepository
	ledger    repository.LedgerRepository
	txManager trm.Manager
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

func NewBetService(d Deps) service.BetService {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &serv{
		roundCfg:  d.RoundCfg,
		calc:      d.Calc,
		rounds:    d.Rounds,
		bets:      d.Bets,
		ledger:    d.Ledger,
		txManager: d.TxManager,
		metrics:   d.Metrics,
		log:       d.Log,
		now:       d.Now,
	}
}
