package game

import (
	"colorgame_backend/internal/metrics"
	"colorgame_backend/internal/middleware"
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository/memory"
	"colorgame_backend/internal/service/bet"
	"colorgame_backend/internal/service/payout"
	"colorgame_backend/internal/testutil"
	"colorgame_backend/pkg/token"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var secret = []byte("test-secret")

const player int64 = 7

func newRouter(t *testing.T, closesIn time.Duration) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	now := time.Now()
	require.NoError(t, store.CreateRound(context.Background(), &model.Round{
		ID:       1,
		OpenedAt: now,
		ClosesAt: now.Add(closesIn),
		Status:   model.RoundOpen,
	}))
	store.AddUser(player, decimal.NewFromInt(100))

	h := NewHandler(HandlerDeps{
		Serv: bet.NewBetService(bet.Deps{
			RoundCfg:  testutil.NewRoundConfig(),
			Calc:      payout.NewPayoutCalculator(testutil.NewGameConfig()),
			Rounds:    store,
			Bets:      store,
			Ledger:    store,
			TxManager: store.TxManager(),
			Metrics:   metrics.New(prometheus.NewRegistry()),
			Log:       zap.NewNop(),
		}),
		Log: zap.NewNop(),
	})

	r := chi.NewRouter()
	r.Use(middleware.Auth(secret))
	r.Post("/game/bets", h.PlaceBet)
	r.Get("/game/round", h.CurrentRound)
	r.Get("/game/history", h.History)
	return r, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	tok, err := token.GenerateAccessToken(player, false, secret, time.Minute)
	require.NoError(t, err)

	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestPlaceBet(t *testing.T) {
	h, store := newRouter(t, time.Minute)

	w := do(t, h, http.MethodPost, "/game/bets", `{"stake":"25.50","selection":"Violet"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		ID        int64  `json:"id"`
		RoundID   int64  `json:"round_id"`
		Selection string `json:"selection"`
		Stake     string `json:"stake"`
		Status    string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.RoundID)
	assert.Equal(t, "violet", body.Selection)
	assert.Equal(t, "25.5", body.Stake)
	assert.Equal(t, "pending", body.Status)

	balance, err := store.GetBalance(context.Background(), player)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("74.50").Equal(balance))
}

func TestPlaceBet_Errors(t *testing.T) {
	tests := []struct {
		name     string
		closesIn time.Duration
		body     string
		want     int
	}{
		{"insufficient funds", time.Minute, `{"stake":"150","selection":"red"}`, http.StatusPaymentRequired},
		{"unknown selection", time.Minute, `{"stake":"10","selection":"blue"}`, http.StatusBadRequest},
		{"below minimum", time.Minute, `{"stake":"5","selection":"red"}`, http.StatusBadRequest},
		{"malformed body", time.Minute, `{"stake":`, http.StatusBadRequest},
		{"window closed", 3 * time.Second, `{"stake":"10","selection":"red"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newRouter(t, tt.closesIn)
			w := do(t, h, http.MethodPost, "/game/bets", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestCurrentRound(t *testing.T) {
	h, _ := newRouter(t, time.Minute)

	w := do(t, h, http.MethodGet, "/game/round", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		RoundID  int64 `json:"round_id"`
		TimeLeft int64 `json:"time_left"`
		CanBet   bool  `json:"can_bet"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.RoundID)
	assert.InDelta(t, 60, body.TimeLeft, 1)
	assert.True(t, body.CanBet)
}

func TestHistory(t *testing.T) {
	h, _ := newRouter(t, time.Minute)

	w := do(t, h, http.MethodGet, "/game/history?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rounds":[]}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/game/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
