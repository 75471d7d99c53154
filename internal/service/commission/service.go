package commission

import (
	"colorgame_backend/internal/config"
	"colorgame_backend/internal/events"
	"colorgame_backend/internal/metrics"
	"colorgame_backend/internal/repository"
	"colorgame_backend/internal/service"
	"time"

	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"go.uber.org/zap"
)

const (
	// Начисления округляются до копеек
	amountPlaces = 2
	// Сколько неудачных начислений повторяем за один тик
	retryBatch = 100
)

type Deps struct {
	Cfg         config.CommissionConfig
	Referrals   repository.ReferralRepository
	Commissions repository.CommissionRepository
	Ledger      repository.LedgerRepository
	TxManager   trm.Manager
	Publisher   events.Publisher
	Metrics     *metrics.Metrics
	Log         *zap.Logger
	Now         func() time.Time
}

type serv struct {
	cfg         config.CommissionConfig
	referrals   repository.ReferralRepository
	commissions repository.CommissionRepository
	ledger      repository.LedgerRepository
	txManager   trm.Manager
	publisher   events.Publisher
	metrics     *metrics.Metrics
	log         *zap.Logger
	now         func() time.Time
}

func NewCommissionService(d Deps) service.CommissionService {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Publisher == nil {
		d.Publisher = events.Noop{}
	}
	return &serv{
		cfg:         d.Cfg,
		referrals:   d.Referrals,
		commissions: d.Commissions,
		ledger:      d.Ledger,
		txManager:   d.TxManager,
		publisher:   d.Publisher,
		metrics:     d.Metrics,
		log:         d.Log,
		now:         d.Now,
	}
}
