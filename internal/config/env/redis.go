package env

import (
	"colorgame_backend/internal/config"
	"errors"
	"fmt"
	"os"
	"strconv"
)

const (
	redisAddrEnvName     = "REDIS_ADDR"
	redisPasswordEnvName = "REDIS_PASSWORD"
	redisDBEnvName       = "REDIS_DB"
)

type redisConfig struct {
	address  string
	password string
	db       int
}

func NewRedisConfig() (config.RedisConfig, error) {
	addr := os.Getenv(redisAddrEnvName)
	if len(addr) == 0 {
		return nil, errors.New("redis address not found")
	}

	db := 0
	if v := os.Getenv(redisDBEnvName); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db: %w", err)
		}
		db = parsed
	}

	return &redisConfig{
		address:  addr,
		password: os.Getenv(redisPasswordEnvName),
		db:       db,
	}, nil
}

func (cfg *redisConfig) Address() string {
	return cfg.address
}

func (cfg *redisConfig) Password() string {
	return cfg.password
}

func (cfg *redisConfig) DB() int {
	return cfg.db
}
