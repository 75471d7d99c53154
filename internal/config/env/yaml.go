package env

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig - структура config.yaml
type fileConfig struct {
	Game       gameSection       `yaml:"game"`
	Round      roundSection      `yaml:"round"`
	Commission commissionSection `yaml:"commission"`
}

// readYAML - читает и разбирает config.yaml
func readYAML(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}
