package model

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserClaims - claims access токена. ID пользователя лежит в RegisteredClaims.ID
type UserClaims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"is_admin,omitempty"`
}
