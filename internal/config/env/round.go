package env

import (
	"colorgame_backend/internal/config"
	"errors"
	"time"
)

const (
	defaultRoundDuration = 60 * time.Second
	defaultBetLockMargin = 5 * time.Second
	defaultRetryInterval = 5 * time.Second
	defaultLockTTL       = 30 * time.Second
)

type roundSection struct {
	Duration      time.Duration `yaml:"duration"`
	BetLockMargin time.Duration `yaml:"bet_lock_margin"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
}

type roundConfig struct {
	duration      time.Duration
	betLockMargin time.Duration
	retryInterval time.Duration
	lockTTL       time.Duration
}

// NewRoundConfigFromYAML - читает секцию round из config.yaml, пустые поля заполняются дефолтами
func NewRoundConfigFromYAML(path string) (config.RoundConfig, error) {
	file, err := readYAML(path)
	if err != nil {
		return nil, err
	}
	return newRoundConfig(file.Round)
}

func newRoundConfig(sec roundSection) (config.RoundConfig, error) {
	cfg := &roundConfig{
		duration:      sec.Duration,
		betLockMargin: sec.BetLockMargin,
		retryInterval: sec.RetryInterval,
		lockTTL:       sec.LockTTL,
	}
	if cfg.duration == 0 {
		cfg.duration = defaultRoundDuration
	}
	if cfg.betLockMargin == 0 {
		cfg.betLockMargin = defaultBetLockMargin
	}
	if cfg.retryInterval == 0 {
		cfg.retryInterval = defaultRetryInterval
	}
	if cfg.lockTTL == 0 {
		cfg.lockTTL = defaultLockTTL
	}

	if cfg.duration < 0 || cfg.betLockMargin < 0 || cfg.retryInterval < 0 || cfg.lockTTL < 0 {
		return nil, errors.New("round: durations must not be negative")
	}
	if cfg.betLockMargin >= cfg.duration {
		return nil, errors.New("round: bet_lock_margin must be shorter than duration")
	}
	return cfg, nil
}

func (r *roundConfig) RoundDuration() time.Duration {
	return r.duration
}

func (r *roundConfig) BetLockMargin() time.Duration {
	return r.betLockMargin
}

func (r *roundConfig) RetryInterval() time.Duration {
	return r.retryInterval
}

func (r *roundConfig) LockTTL() time.Duration {
	return r.lockTTL
}
