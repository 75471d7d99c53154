package env

import (
	"colorgame_backend/internal/config"
	"errors"
	"os"
	"strings"
)

const (
	kafkaBrokersEnvName     = "KAFKA_BROKERS"
	kafkaRoundsTopicEnvName = "KAFKA_TOPIC_ROUNDS"
	defaultRoundsTopic      = "color_game_rounds"
)

type kafkaConfig struct {
	brokers     []string
	roundsTopic string
}

func NewKafkaConfig() (config.KafkaConfig, error) {
	raw := os.Getenv(kafkaBrokersEnvName)
	if len(raw) == 0 {
		return nil, errors.New("kafka brokers not found")
	}

	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	topic := os.Getenv(kafkaRoundsTopicEnvName)
	if topic == "" {
		topic = defaultRoundsTopic
	}

	return &kafkaConfig{brokers: brokers, roundsTopic: topic}, nil
}

func (cfg *kafkaConfig) Brokers() []string {
	return cfg.brokers
}

func (cfg *kafkaConfig) RoundsTopic() string {
	return cfg.roundsTopic
}
