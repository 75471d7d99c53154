package settlement

import (
	"colorgame_backend/internal/config"
	"colorgame_backend/internal/events"
	"colorgame_backend/internal/metrics"
	"colorgame_backend/internal/repository"
	"colorgame_backend/internal/service"
	"strconv"
	"sync"
	"time"

	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"go.uber.org/zap"
)

type Deps struct {
	RoundCfg   config.RoundConfig
	Calc       service.PayoutCalculator
	Selector   service.OutcomeSelector
	Commission service.CommissionService
	Rounds     repository.RoundRepository
	Bets       repository.BetRepository
	Ledger     repository.LedgerRepository
	Lock       repository.SettlementLock
	TxManager  trm.Manager
	Publisher  events.Publisher
	Metrics    *metrics.Metrics
	Log        *zap.Logger
	Now        func() time.Time
}

type serv struct {
	roundCfg   config.RoundConfig
	calc       service.PayoutCalculator
	selector   service.OutcomeSelector
	commission service.CommissionService
	rounds     repository.RoundRepository
	bets       repository.BetRepository
	ledger     repository.LedgerRepository
	lock       repository.SettlementLock
	txManager  trm.Manager
	publisher  events.Publisher
	metrics    *metrics.Metrics
	log        *zap.Logger
	now        func() time.Time

	// раунды, которые рассчитываются в этом процессе
	mu       sync.Mutex
	inflight map[int64]struct{}
}

func NewSettlementService(d Deps) service.SettlementService {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Publisher == nil {
		d.Publisher = events.Noop{}
	}
	return &serv{
		roundCfg:   d.RoundCfg,
		calc:       d.Calc,
		selector:   d.Selector,
		commission: d.Commission,
		rounds:     d.Rounds,
		bets:       d.Bets,
		ledger:     d.Ledger,
		lock:       d.Lock,
		txManager:  d.TxManager,
		publisher:  d.Publisher,
		metrics:    d.Metrics,
		log:        d.Log,
		now:        d.Now,
		inflight:   make(map[int64]struct{}),
	}
}

func lockKey(roundID int64) string {
	return "settlement:round:" + strconv.FormatInt(roundID, 10)
}

// enter - не больше одного расчета раунда внутри процесса
func (s *serv) enter(roundID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[roundID]; busy {
		return false
	}
	s.inflight[roundID] = struct{}{}
	return true
}

func (s *serv) leave(roundID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, roundID)
}
