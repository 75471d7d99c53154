package env

import (
	"colorgame_backend/internal/config"
	"errors"
	"os"
)

const (
	dsnName           = "PG_DSN"
	storageDriverName = "STORAGE_DRIVER"
)

type pgConfig struct {
	dsn string
}

func NewPGConfig() (config.PGConfig, error) {
	dsn := os.Getenv(dsnName)
	if len(dsn) == 0 {
		return nil, errors.New("pg dsn not found")
	}

	return &pgConfig{
		dsn: dsn,
	}, nil
}

func (cfg *pgConfig) DSN() string {
	return cfg.dsn
}

type storageConfig struct {
	driver string
}

// NewStorageConfig - по умолчанию postgres, memory нужен для локального запуска без БД
func NewStorageConfig() (config.StorageConfig, error) {
	driver := os.Getenv(storageDriverName)
	switch driver {
	case "":
		driver = "postgres"
	case "postgres", "memory":
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
	return &storageConfig{driver: driver}, nil
}

func (cfg *storageConfig) Driver() string {
	return cfg.driver
}
