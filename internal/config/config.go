package config

import (
	"colorgame_backend/internal/model"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func Load(path string) error {
	err := godotenv.Load(path)
	if err != nil {
		return err
	}
	return nil
}

// GameConfig - таблица выплат и пространство исходов
type GameConfig interface {
	Outcomes() []model.Outcome
	NumberMultiplier() decimal.Decimal
	NeutralRefundMultiplier() decimal.Decimal
	Categories() []model.Category
	MinStake() decimal.Decimal
}

// RoundConfig - тайминги цикла раундов
type RoundConfig interface {
	RoundDuration() time.Duration
	BetLockMargin() time.Duration
	RetryInterval() time.Duration
	LockTTL() time.Duration
}

// CommissionConfig - проценты по уровням реферальной цепочки
type CommissionConfig interface {
	Rates() []decimal.Decimal
	MaxLevels() int
}

type HTTPConfig interface {
	Address() string
}

type PGConfig interface {
	DSN() string
}

type StorageConfig interface {
	// Driver - "postgres" или "memory"
	Driver() string
}

type RedisConfig interface {
	Address() string
	Password() string
	DB() int
}

type KafkaConfig interface {
	Brokers() []string
	RoundsTopic() string
}

type LogConfig interface {
	ServiceName() string
	Env() string
}

type JWTConfig interface {
	AccessTokenSecretKey() []byte
	// OperatorKeyHash - bcrypt хеш ключа оператора, пустой - вход по ключу выключен
	OperatorKeyHash() []byte
}
