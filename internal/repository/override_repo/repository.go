package override_repo

import (
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPattern = "round:%d:forced_outcome"

	// overrideTTL - оператор задает исход для текущего раунда, дольше он не нужен
	overrideTTL = 24 * time.Hour
)

type repo struct {
	rdb *redis.Client
}

func NewOverrideRepository(rdb *redis.Client) repository.OverrideRepository {
	return &repo{
		rdb: rdb,
	}
}

func key(roundID int64) string {
	return fmt.Sprintf(keyPattern, roundID)
}

// GetForcedOutcome - исход, заданный оператором для раунда. false, если не задан
func (r *repo) GetForcedOutcome(ctx context.Context, roundID int64) (model.Outcome, bool, error) {
	val, err := r.rdb.Get(ctx, key(roundID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("forced outcome for round %d: %w", roundID, err)
	}
	return model.Outcome(n), true, nil
}

func (r *repo) SetForcedOutcome(ctx context.Context, roundID int64, outcome model.Outcome) error {
	return r.rdb.Set(ctx, key(roundID), outcome.String(), overrideTTL).Err()
}

func (r *repo) ClearForcedOutcome(ctx context.Context, roundID int64) error {
	return r.rdb.Del(ctx, key(roundID)).Err()
}
