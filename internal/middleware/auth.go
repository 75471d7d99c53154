package middleware

import (
	"colorgame_backend/pkg/resp"
	"colorgame_backend/pkg/token"
	"context"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const operatorKeyHeader = "X-Operator-Key"

type ctxKey int

const (
	userIDKey ctxKey = iota
	adminKey
)

// UserIDFromContext - id пользователя, положенный Auth
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

func isAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(adminKey).(bool)
	return admin
}

// Auth - проверка access токена из заголовка Authorization: Bearer <token>
func Auth(secretKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, ok := authenticate(r, secretKey)
			if !ok {
				resp.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin - оператор: токен с is_admin или ключ в X-Operator-Key (сверяется с bcrypt хешем)
func RequireAdmin(secretKey, operatorKeyHash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get(operatorKeyHeader); key != "" {
				if len(operatorKeyHash) > 0 && bcrypt.CompareHashAndPassword(operatorKeyHash, []byte(key)) == nil {
					next.ServeHTTP(w, r)
					return
				}
				resp.WriteError(w, http.StatusUnauthorized, "invalid operator key")
				return
			}

			ctx, ok := authenticate(r, secretKey)
			if !ok {
				resp.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !isAdmin(ctx) {
				resp.WriteError(w, http.StatusForbidden, "operator access required")
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, secretKey []byte) (context.Context, bool) {
	raw, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || raw == "" {
		return nil, false
	}

	claims, err := token.VerifyToken(raw, secretKey)
	if err != nil {
		return nil, false
	}
	userID, err := token.UserID(claims)
	if err != nil {
		return nil, false
	}

	ctx := context.WithValue(r.Context(), userIDKey, userID)
	ctx = context.WithValue(ctx, adminKey, claims.IsAdmin)
	return ctx, true
}
