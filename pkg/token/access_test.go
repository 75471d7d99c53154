package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestAccessToken(t *testing.T) {
	tok, err := GenerateAccessToken(42, true, secret, time.Minute)
	require.NoError(t, err)

	claims, err := VerifyToken(tok, secret)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)

	id, err := UserID(claims)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestVerifyToken_Rejects(t *testing.T) {
	expired, err := GenerateAccessToken(1, false, secret, -time.Minute)
	require.NoError(t, err)
	_, err = VerifyToken(expired, secret)
	assert.Error(t, err)

	tok, err := GenerateAccessToken(1, false, secret, time.Minute)
	require.NoError(t, err)
	_, err = VerifyToken(tok, []byte("other-secret"))
	assert.Error(t, err)

	_, err = VerifyToken("not-a-token", secret)
	assert.Error(t, err)
}
