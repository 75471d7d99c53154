package lock_repo

import (
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lock:"

// снимаем блокировку, только если она все еще наша
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// продлеваем, только если блокировка все еще наша
var extendScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('PEXPIRE', KEYS[1], ARGV[2])
	end
	return 0
`)

type repo struct {
	rdb *redis.Client
}

func NewSettlementLock(rdb *redis.Client) repository.SettlementLock {
	return &repo{
		rdb: rdb,
	}
}

// Acquire - SET NX PX с уникальным токеном.
// model.ErrSettlementInProgress, если ключ занят другим процессом.
// Пока блокировка не снята, аренда продлевается каждые ttl/3
func (r *repo) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()

	ok, err := r.rdb.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrSettlementInProgress
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(keyPrefix+key, token, ttl, stop, done)

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-done

			// отдельный контекст: снять блокировку нужно даже после отмены ctx
			releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, r.rdb, []string{keyPrefix + key}, token).Err()
		})
	}
	return release, nil
}

// keepAlive - продление аренды до release. Выходит, если ключ уже занят другим токеном
func (r *repo) keepAlive(key, token string, ttl time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := max(ttl/3, time.Millisecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			n, err := extendScript.Run(ctx, r.rdb, []string{key}, token, ttl.Milliseconds()).Int()
			cancel()
			if err == nil && n == 0 {
				return
			}
		}
	}
}
