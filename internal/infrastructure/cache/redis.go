package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	"github.com/johnquangdev/meeting-pipeline/pkg/config"
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Both scripts only touch the key while it still holds our token
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisLocker is the lock arena shared by every process pointed at the same Redis
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewRedisLocker creates a Redis-backed lock arena
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		prefix: "pipeline:lock:",
		logger: logger,
	}
}

var _ repositories.ExecutionLocker = (*RedisLocker)(nil)

func (rl *RedisLocker) key(meetingID uuid.UUID) string {
	return rl.prefix + meetingID.String()
}

// TryLock sets the lease key with NX; an existing key means another run holds it
func (rl *RedisLocker) TryLock(ctx context.Context, meetingID uuid.UUID) (repositories.Lease, error) {
	token := uuid.NewString()
	ok, err := rl.client.SetNX(ctx, rl.key(meetingID), token, rl.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire meeting lock: %w", err)
	}
	if !ok {
		return nil, entities.ErrPipelineBusy
	}

	l := &redisLease{
		locker:    rl,
		meetingID: meetingID,
		token:     token,
		stop:      make(chan struct{}),
	}
	go l.keepAlive(rl.ttl / 3)
	return l, nil
}

type redisLease struct {
	locker    *RedisLocker
	meetingID uuid.UUID
	token     string
	once      sync.Once
	stop      chan struct{}
}

func (l *redisLease) MeetingID() uuid.UUID { return l.meetingID }

// Release deletes the key if we still own it
func (l *redisLease) Release(ctx context.Context) error {
	var err error
	l.once.Do(func() {
		close(l.stop)
		err = releaseScript.Run(ctx, l.locker.client, []string{l.locker.key(l.meetingID)}, l.token).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to release meeting lock: %w", err)
	}
	return nil
}

func (l *redisLease) keepAlive(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), every)
			n, err := extendScript.Run(ctx, l.locker.client,
				[]string{l.locker.key(l.meetingID)}, l.token, l.locker.ttl.Milliseconds()).Int()
			cancel()

			if err != nil {
				if l.locker.logger != nil {
					l.locker.logger.Warn("⚠️ Failed to extend meeting lock",
						zap.String("meeting_id", l.meetingID.String()),
						zap.Error(err),
					)
				}
				continue
			}
			if n == 0 {
				if l.locker.logger != nil {
					l.locker.logger.Error("❌ Meeting lock lost",
						zap.String("meeting_id", l.meetingID.String()),
					)
				}
				return
			}
		}
	}
}
