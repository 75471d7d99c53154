package events

import (
	"colorgame_backend/internal/model"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type flakyWriter struct {
	failures int
	calls    int
	written  []kafka.Message
}

func (w *flakyWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.calls++
	if w.calls <= w.failures {
		return errors.New("broker not available")
	}
	w.written = append(w.written, msgs...)
	return nil
}

func newTestPublisher(w messageWriter) *KafkaPublisher {
	p := NewKafkaPublisher(w, zap.NewNop())
	p.interval = time.Millisecond
	p.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestPublishRoundSettled_RetriesUntilWritten(t *testing.T) {
	w := &flakyWriter{failures: 2}
	p := newTestPublisher(w)

	report := &model.SettlementReport{
		RoundID: 42,
		Outcome: 3,
		Bets:    2,
		Won:     1,
		Stake:   decimal.NewFromInt(300),
		Payout:  decimal.RequireFromString("396"),
	}
	err := p.PublishRoundSettled(context.Background(), NewRoundSettled(report, p.now()))
	require.NoError(t, err)

	assert.Equal(t, 3, w.calls)
	require.Len(t, w.written, 1)
	assert.Equal(t, "42", string(w.written[0].Key))

	var env struct {
		ID      string       `json:"id"`
		Type    string       `json:"type"`
		Payload RoundSettled `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(w.written[0].Value, &env))
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, TypeRoundSettled, env.Type)
	assert.Equal(t, int64(42), env.Payload.RoundID)
	assert.Equal(t, 3, env.Payload.Outcome)
	assert.True(t, decimal.RequireFromString("396").Equal(env.Payload.Payout))
}

func TestPublishCommissionFailed_GivesUp(t *testing.T) {
	w := &flakyWriter{failures: 100}
	p := newTestPublisher(w)

	err := p.PublishCommissionFailed(context.Background(), CommissionFailed{
		SourceEventID:     "bet:7",
		BeneficiaryUserID: 2,
		Level:             1,
		Amount:            decimal.NewFromInt(30),
		Error:             "ledger down",
	})
	require.Error(t, err)
	assert.Equal(t, publishMaxRetries+1, w.calls)
	assert.Empty(t, w.written)
}
