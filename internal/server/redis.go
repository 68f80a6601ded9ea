package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CESMikef/cadastral-automation/pkg/errors"
)

// redisKeyPrefix namespaces job keys so a shared Redis instance can host
// other applications.
const redisKeyPrefix = "cadastral:job:"

// RedisStore keeps jobs in Redis so multiple server instances can share
// them. Finished jobs expire via Redis TTL; Cleanup is a no-op.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisStore connects to Redis at addr and verifies the connection.
// A non-positive retention falls back to DefaultRetention.
func NewRedisStore(ctx context.Context, addr string, retention time.Duration) (*RedisStore, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client, retention: retention}, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, job *Job) error {
	return s.set(ctx, job)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

// Update applies fn under an optimistic transaction (WATCH) so concurrent
// progress writes and cancellation flags don't clobber each other.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*Job)) (*Job, error) {
	var updated *Job
	key := s.key(id)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return errors.New(errors.ErrCodeJobNotFound, "job %q not found", id)
		}
		if err != nil {
			return err
		}
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			return err
		}
		fn(&job)
		updated = &job

		out, err := json.Marshal(&job)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl(&job))
			return nil
		})
		return err
	}

	// Retry a few times on write conflicts.
	for i := 0; i < 5; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("update job %s: too many conflicts", id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// Cleanup is a no-op; Redis expires finished jobs via TTL.
func (s *RedisStore) Cleanup(context.Context) error {
	return nil
}

func (s *RedisStore) set(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	if err := s.client.Set(ctx, s.key(job.ID), data, s.ttl(job)).Err(); err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return nil
}

// ttl returns the key expiration for a job: finished jobs live for the
// retention period, unfinished jobs for a generous multiple of it so an
// instance crash cannot leak keys forever.
func (s *RedisStore) ttl(job *Job) time.Duration {
	if job.Status.Terminal() {
		return s.retention
	}
	return 24 * s.retention
}

var _ Store = (*RedisStore)(nil)
