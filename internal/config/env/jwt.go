package env

import (
	"colorgame_backend/internal/config"
	"fmt"
	"os"
)

const (
	accessTokenKeyEnvName  = "ACCESS_TOKEN"
	operatorKeyHashEnvName = "OPERATOR_KEY_HASH"
)

type jwtConfig struct {
	accessTokenSecretKey string
	operatorKeyHash      string
}

func NewJWTConfig() (config.JWTConfig, error) {
	accessToken := os.Getenv(accessTokenKeyEnvName)
	if len(accessToken) == 0 {
		return nil, fmt.Errorf("access token secret key not found")
	}

	return &jwtConfig{
		accessTokenSecretKey: accessToken,
		operatorKeyHash:      os.Getenv(operatorKeyHashEnvName),
	}, nil
}

func (j *jwtConfig) AccessTokenSecretKey() []byte {
	return []byte(j.accessTokenSecretKey)
}

func (j *jwtConfig) OperatorKeyHash() []byte {
	return []byte(j.operatorKeyHash)
}
