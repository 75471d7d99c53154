package app

import (
	adminAPI "colorgame_backend/internal/api/admin"
	gameAPI "colorgame_backend/internal/api/game"
	"colorgame_backend/internal/config"
	"colorgame_backend/internal/config/env"
	"colorgame_backend/internal/events"
	"colorgame_backend/internal/logger"
	"colorgame_backend/internal/metrics"
	"colorgame_backend/internal/middleware"
	"colorgame_backend/internal/repository"
	"colorgame_backend/internal/repository/bet_repo"
	"colorgame_backend/internal/repository/commission_repo"
	"colorgame_backend/internal/repository/investment_repo"
	"colorgame_backend/internal/repository/ledger_repo"
	"colorgame_backend/internal/repository/lock_repo"
	"colorgame_backend/internal/repository/memory"
	"colorgame_backend/internal/repository/override_repo"
	"colorgame_backend/internal/repository/round_repo"
	"colorgame_backend/internal/repository/user_repo"
	"colorgame_backend/internal/service"
	"colorgame_backend/internal/service/bet"
	"colorgame_backend/internal/service/commission"
	"colorgame_backend/internal/service/outcome"
	"colorgame_backend/internal/service/payout"
	"colorgame_backend/internal/service/scheduler"
	"colorgame_backend/internal/service/settlement"
	"colorgame_backend/internal/service/yield"
	"context"
	"net/http"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const configPath = "config.yaml"

type ServiceProvider struct {
	// Logging and metrics
	logCfg   config.LogConfig
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	//TXManager
	txManager trm.Manager

	// Storage
	storageCfg config.StorageConfig
	pgConfig   config.PGConfig
	dbClient   *pgxpool.Pool
	memStore   *memory.Store

	// Redis: override оператора и блокировка расчета
	redisCfg    config.RedisConfig
	redisClient *redis.Client
	redisOff    bool

	// Kafka: события раундов
	kafkaCfg    config.KafkaConfig
	kafkaWriter *kafka.Writer
	publisher   events.Publisher

	// Game configs
	gameCfg       config.GameConfig
	roundCfg      config.RoundConfig
	commissionCfg config.CommissionConfig
	jwtCfg        config.JWTConfig

	// Repositories
	ledgerRepo     repository.LedgerRepository
	roundRepo      repository.RoundRepository
	betRepo        repository.BetRepository
	referralRepo   repository.ReferralRepository
	commissionRepo repository.CommissionRepository
	investmentRepo repository.InvestmentRepository
	overrideRepo   repository.OverrideRepository
	settlementLock repository.SettlementLock

	// Services
	payoutCalc     service.PayoutCalculator
	selector       service.OutcomeSelector
	commissionServ service.CommissionService
	betServ        service.BetService
	settlementServ service.SettlementService
	scheduler      service.RoundScheduler
	yieldServ      service.YieldService

	// Handlers
	gameHand  *gameAPI.Handler
	adminHand *adminAPI.Handler

	// Router and HTTP config
	httpCfg config.HTTPConfig
	router  chi.Router
}

func newServiceProvider() *ServiceProvider {
	return &ServiceProvider{}
}

func (sp *ServiceProvider) LogCfg() config.LogConfig {
	if sp.logCfg == nil {
		sp.logCfg = env.NewLogConfig()
	}
	return sp.logCfg
}

func (sp *ServiceProvider) Logger() *zap.Logger {
	if sp.log == nil {
		l, err := logger.New(sp.LogCfg().ServiceName(), sp.LogCfg().Env())
		if err != nil {
			panic("failed to build logger: " + err.Error())
		}
		sp.log = l
	}
	return sp.log
}

func (sp *ServiceProvider) Registry() *prometheus.Registry {
	if sp.registry == nil {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		sp.registry = reg
	}
	return sp.registry
}

func (sp *ServiceProvider) Metrics() *metrics.Metrics {
	if sp.metrics == nil {
		sp.metrics = metrics.New(sp.Registry())
	}
	return sp.metrics
}

func (sp *ServiceProvider) StorageCfg() config.StorageConfig {
	if sp.storageCfg == nil {
		cfg, err := env.NewStorageConfig()
		if err != nil {
			panic("failed to get storage config: " + err.Error())
		}
		sp.storageCfg = cfg
	}
	return sp.storageCfg
}

func (sp *ServiceProvider) inMemory() bool {
	return sp.StorageCfg().Driver() == "memory"
}

func (sp *ServiceProvider) PgConfig() config.PGConfig {
	if sp.pgConfig == nil {
		cfg, err := env.NewPGConfig()
		if err != nil {
			panic("failed to get database config: " + err.Error())
		}
		sp.pgConfig = cfg
	}
	return sp.pgConfig
}

func (sp *ServiceProvider) DBClient(ctx context.Context) *pgxpool.Pool {
	if sp.dbClient == nil {
		dbc, err := pgxpool.New(ctx, sp.PgConfig().DSN())
		if err != nil {
			panic("failed to create db pool: " + err.Error())
		}
		err = dbc.Ping(ctx)
		if err != nil {
			panic("failed to ping db: " + err.Error())
		}
		sp.dbClient = dbc
	}
	return sp.dbClient
}

// MemStore - хранилище в памяти: STORAGE_DRIVER=memory, а также override и
// блокировка расчета, если Redis не настроен
func (sp *ServiceProvider) MemStore() *memory.Store {
	if sp.memStore == nil {
		sp.memStore = memory.NewStore()
	}
	return sp.memStore
}

func (sp *ServiceProvider) TXManager(ctx context.Context) trm.Manager {
	if sp.txManager == nil {
		if sp.inMemory() {
			sp.txManager = sp.MemStore().TxManager()
			return sp.txManager
		}

		m, err := manager.New(trmpgx.NewDefaultFactory(sp.DBClient(ctx)))
		if err != nil {
			panic("failed to create tx manager: " + err.Error())
		}
		sp.txManager = m
	}

	return sp.txManager
}

// RedisClient - nil, если REDIS_ADDR не задан
func (sp *ServiceProvider) RedisClient(ctx context.Context) *redis.Client {
	if sp.redisClient == nil && !sp.redisOff {
		cfg, err := env.NewRedisConfig()
		if err != nil {
			sp.Logger().Warn("redis is not configured, overrides and settlement lock stay in process", zap.Error(err))
			sp.redisOff = true
			return nil
		}
		sp.redisCfg = cfg

		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Address(),
			Password: cfg.Password(),
			DB:       cfg.DB(),
		})
		if err = rdb.Ping(ctx).Err(); err != nil {
			panic("failed to ping redis: " + err.Error())
		}
		sp.redisClient = rdb
	}
	return sp.redisClient
}

func (sp *ServiceProvider) Publisher() events.Publisher {
	if sp.publisher == nil {
		cfg, err := env.NewKafkaConfig()
		if err != nil {
			sp.Logger().Warn("kafka is not configured, round events are not published", zap.Error(err))
			sp.publisher = events.Noop{}
			return sp.publisher
		}
		sp.kafkaCfg = cfg
		sp.kafkaWriter = events.NewWriter(cfg.Brokers(), cfg.RoundsTopic())
		sp.publisher = events.NewKafkaPublisher(sp.kafkaWriter, sp.Logger())
	}
	return sp.publisher
}

func (sp *ServiceProvider) GameCfg() config.GameConfig {
	if sp.gameCfg == nil {
		cfg, err := env.NewGameConfigFromYAML(configPath)
		if err != nil {
			panic("failed to get game config: " + err.Error())
		}
		sp.gameCfg = cfg
	}
	return sp.gameCfg
}

func (sp *ServiceProvider) RoundCfg() config.RoundConfig {
	if sp.roundCfg == nil {
		cfg, err := env.NewRoundConfigFromYAML(configPath)
		if err != nil {
			panic("failed to get round config: " + err.Error())
		}
		sp.roundCfg = cfg
	}
	return sp.roundCfg
}

func (sp *ServiceProvider) CommissionCfg() config.CommissionConfig {
	if sp.commissionCfg == nil {
		cfg, err := env.NewCommissionConfigFromYAML(configPath)
		if err != nil {
			panic("failed to get commission config: " + err.Error())
		}
		sp.commissionCfg = cfg
	}
	return sp.commissionCfg
}

func (sp *ServiceProvider) JWTCfg() config.JWTConfig {
	if sp.jwtCfg == nil {
		cfg, err := env.NewJWTConfig()
		if err != nil {
			panic("failed to get jwt config: " + err.Error())
		}
		sp.jwtCfg = cfg
	}
	return sp.jwtCfg
}

func (sp *ServiceProvider) LedgerRepository(ctx context.Context) repository.LedgerRepository {
	if sp.ledgerRepo == nil {
		if sp.inMemory() {
			sp.ledgerRepo = sp.MemStore()
		} else {
			sp.ledgerRepo = ledger_repo.NewLedgerRepository(sp.DBClient(ctx))
		}
	}
	return sp.ledgerRepo
}

func (sp *ServiceProvider) RoundRepository(ctx context.Context) repository.RoundRepository {
	if sp.roundRepo == nil {
		if sp.inMemory() {
			sp.roundRepo = sp.MemStore()
		} else {
			sp.roundRepo = round_repo.NewRoundRepository(sp.DBClient(ctx))
		}
	}
	return sp.roundRepo
}

func (sp *ServiceProvider) BetRepository(ctx context.Context) repository.BetRepository {
	if sp.betRepo == nil {
		if sp.inMemory() {
			sp.betRepo = sp.MemStore()
		} else {
			sp.betRepo = bet_repo.NewBetRepository(sp.DBClient(ctx))
		}
	}
	return sp.betRepo
}

func (sp *ServiceProvider) ReferralRepository(ctx context.Context) repository.ReferralRepository {
	if sp.referralRepo == nil {
		if sp.inMemory() {
			sp.referralRepo = sp.MemStore()
		} else {
			sp.referralRepo = user_repo.NewReferralRepository(sp.DBClient(ctx))
		}
	}
	return sp.referralRepo
}

func (sp *ServiceProvider) CommissionRepository(ctx context.Context) repository.CommissionRepository {
	if sp.commissionRepo == nil {
		if sp.inMemory() {
			sp.commissionRepo = sp.MemStore()
		} else {
			sp.commissionRepo = commission_repo.NewCommissionRepository(sp.DBClient(ctx))
		}
	}
	return sp.commissionRepo
}

func (sp *ServiceProvider) InvestmentRepository(ctx context.Context) repository.InvestmentRepository {
	if sp.investmentRepo == nil {
		if sp.inMemory() {
			sp.investmentRepo = sp.MemStore()
		} else {
			sp.investmentRepo = investment_repo.NewInvestmentRepository(sp.DBClient(ctx))
		}
	}
	return sp.investmentRepo
}

func (sp *ServiceProvider) OverrideRepository(ctx context.Context) repository.OverrideRepository {
	if sp.overrideRepo == nil {
		if rdb := sp.RedisClient(ctx); rdb != nil {
			sp.overrideRepo = override_repo.NewOverrideRepository(rdb)
		} else {
			sp.overrideRepo = sp.MemStore()
		}
	}
	return sp.overrideRepo
}

func (sp *ServiceProvider) SettlementLock(ctx context.Context) repository.SettlementLock {
	if sp.settlementLock == nil {
		if rdb := sp.RedisClient(ctx); rdb != nil {
			sp.settlementLock = lock_repo.NewSettlementLock(rdb)
		} else {
			sp.settlementLock = sp.MemStore()
		}
	}
	return sp.settlementLock
}

func (sp *ServiceProvider) PayoutCalculator() service.PayoutCalculator {
	if sp.payoutCalc == nil {
		sp.payoutCalc = payout.NewPayoutCalculator(sp.GameCfg())
	}
	return sp.payoutCalc
}

func (sp *ServiceProvider) OutcomeSelector(ctx context.Context) service.OutcomeSelector {
	if sp.selector == nil {
		sp.selector = outcome.NewOutcomeSelector(
			sp.PayoutCalculator(),
			sp.RoundRepository(ctx),
			sp.OverrideRepository(ctx),
			sp.Logger(),
		)
	}
	return sp.selector
}

func (sp *ServiceProvider) CommissionService(ctx context.Context) service.CommissionService {
	if sp.commissionServ == nil {
		sp.commissionServ = commission.NewCommissionService(commission.Deps{
			Cfg:         sp.CommissionCfg(),
			Referrals:   sp.ReferralRepository(ctx),
			Commissions: sp.CommissionRepository(ctx),
			Ledger:      sp.LedgerRepository(ctx),
			TxManager:   sp.TXManager(ctx),
			Publisher:   sp.Publisher(),
			Metrics:     sp.Metrics(),
			Log:         sp.Logger(),
		})
	}
	return sp.commissionServ
}

func (sp *ServiceProvider) BetService(ctx context.Context) service.BetService {
	if sp.betServ == nil {
		sp.betServ = bet.NewBetService(bet.Deps{
			RoundCfg:  sp.RoundCfg(),
			Calc:      sp.PayoutCalculator(),
			Rounds:    sp.RoundRepository(ctx),
			Bets:      sp.BetRepository(ctx),
			Ledger:    sp.LedgerRepository(ctx),
			TxManager: sp.TXManager(ctx),
			Metrics:   sp.Metrics(),
			Log:       sp.Logger(),
		})
	}
	return sp.betServ
}

func (sp *ServiceProvider) SettlementService(ctx context.Context) service.SettlementService {
	if sp.settlementServ == nil {
		sp.settlementServ = settlement.NewSettlementService(settlement.Deps{
			RoundCfg:   sp.RoundCfg(),
			Calc:       sp.PayoutCalculator(),
			Selector:   sp.OutcomeSelector(ctx),
			Commission: sp.CommissionService(ctx),
			Rounds:     sp.RoundRepository(ctx),
			Bets:       sp.BetRepository(ctx),
			Ledger:     sp.LedgerRepository(ctx),
			Lock:       sp.SettlementLock(ctx),
			TxManager:  sp.TXManager(ctx),
			Publisher:  sp.Publisher(),
			Metrics:    sp.Metrics(),
			Log:        sp.Logger(),
		})
	}
	return sp.settlementServ
}

func (sp *ServiceProvider) RoundScheduler(ctx context.Context) service.RoundScheduler {
	if sp.scheduler == nil {
		sp.scheduler = scheduler.NewRoundScheduler(scheduler.Deps{
			RoundCfg:   sp.RoundCfg(),
			Rounds:     sp.RoundRepository(ctx),
			Settlement: sp.SettlementService(ctx),
			Commission: sp.CommissionService(ctx),
			Log:        sp.Logger(),
		})
	}
	return sp.scheduler
}

func (sp *ServiceProvider) YieldService(ctx context.Context) service.YieldService {
	if sp.yieldServ == nil {
		sp.yieldServ = yield.NewYieldService(
			sp.InvestmentRepository(ctx),
			sp.LedgerRepository(ctx),
			sp.CommissionService(ctx),
			sp.TXManager(ctx),
			sp.Logger(),
		)
	}
	return sp.yieldServ
}

func (sp *ServiceProvider) GameHandler(ctx context.Context) *gameAPI.Handler {
	if sp.gameHand == nil {
		sp.gameHand = gameAPI.NewHandler(gameAPI.HandlerDeps{
			Serv: sp.BetService(ctx),
			Log:  sp.Logger(),
		})
	}
	return sp.gameHand
}

func (sp *ServiceProvider) AdminHandler(ctx context.Context) *adminAPI.Handler {
	if sp.adminHand == nil {
		sp.adminHand = adminAPI.NewHandler(adminAPI.HandlerDeps{
			Selector:   sp.OutcomeSelector(ctx),
			Scheduler:  sp.RoundScheduler(ctx),
			Bets:       sp.BetService(ctx),
			Yield:      sp.YieldService(ctx),
			Commission: sp.CommissionService(ctx),
			Log:        sp.Logger(),
		})
	}
	return sp.adminHand
}

func (sp *ServiceProvider) HTTPCfg() config.HTTPConfig {
	if sp.httpCfg == nil {
		cfg, err := env.NewHTTPConfig()
		if err != nil {
			panic("failed to get http config: " + err.Error())
		}
		sp.httpCfg = cfg
	}

	return sp.httpCfg
}

func (sp *ServiceProvider) Router(ctx context.Context) chi.Router {
	if sp.router == nil {
		r := chi.NewRouter()

		r.Use(chimw.RequestID)
		r.Use(chimw.Recoverer)
		r.Use(middleware.Logging(sp.Logger()))

		// CORS middleware
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Operator-Key"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           60 * 15,
		}))

		r.Handle("/metrics", promhttp.HandlerFor(sp.Registry(), promhttp.HandlerOpts{}))
		r.Get("/healthz", sp.healthz)

		// Game endpoints
		gameHandler := sp.GameHandler(ctx)
		r.Route("/game", func(rr chi.Router) {
			rr.Use(middleware.Auth(sp.JWTCfg().AccessTokenSecretKey()))
			rr.Post("/bets", gameHandler.PlaceBet)
			rr.Get("/round", gameHandler.CurrentRound)
			rr.Get("/history", gameHandler.History)
		})

		// Operator endpoints
		adminHandler := sp.AdminHandler(ctx)
		r.Route("/admin", func(rr chi.Router) {
			rr.Use(middleware.RequireAdmin(sp.JWTCfg().AccessTokenSecretKey(), sp.JWTCfg().OperatorKeyHash()))
			rr.Post("/rounds/{id}/force", adminHandler.ForceOutcome)
			rr.Post("/rounds/{id}/settle", adminHandler.Settle)
			rr.Get("/rounds/current/bets", adminHandler.CurrentBets)
			rr.Post("/yield/daily", adminHandler.DailyYield)
			rr.Post("/commissions/retry", adminHandler.RetryCommissions)
		})

		sp.router = r
	}

	return sp.router
}

func (sp *ServiceProvider) healthz(w http.ResponseWriter, r *http.Request) {
	if sp.dbClient != nil {
		if err := sp.dbClient.Ping(r.Context()); err != nil {
			http.Error(w, "pg", http.StatusServiceUnavailable)
			return
		}
	}
	if sp.redisClient != nil {
		if err := sp.redisClient.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "redis", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Close - закрывает внешние подключения
func (sp *ServiceProvider) Close() {
	if sp.kafkaWriter != nil {
		if err := sp.kafkaWriter.Close(); err != nil {
			sp.Logger().Warn("failed to close kafka writer", zap.Error(err))
		}
	}
	if sp.redisClient != nil {
		if err := sp.redisClient.Close(); err != nil {
			sp.Logger().Warn("failed to close redis client", zap.Error(err))
		}
	}
	if sp.dbClient != nil {
		sp.dbClient.Close()
	}
}
