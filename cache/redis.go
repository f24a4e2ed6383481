package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// Redis implements Cache on a Redis connection. GETDEL gives Take its
// atomicity; SET XX gives SetIfExists its no-resurrection guarantee.
type Redis struct {
	client *redis.Client
}

var _ Cache = (*Redis)(nil)

// NewRedis dials Redis with the given options.
func NewRedis(opts *redis.Options) *Redis {
	return &Redis{client: redis.NewClient(opts)}
}

// NewRedisFromClient wraps an existing client. The caller keeps
// ownership of the client lifecycle when using this constructor.
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "redis get failed")
	}
	return val, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "redis set failed")
	}
	return nil
}

func (r *Redis) SetIfExists(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetXX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "redis set xx failed")
	}
	return ok, nil
}

func (r *Redis) Take(ctx context.Context, key string) (string, error) {
	val, err := r.client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "redis getdel failed")
	}
	return val, nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "redis del failed")
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "redis ping failed")
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
