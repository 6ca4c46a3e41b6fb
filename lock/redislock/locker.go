// Package redislock provides a lock.Locker backed by Redis so that several
// engine processes sharing one store serialize work on the same offering.
package redislock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/recur/lock"
)

// Compile-time interface check.
var _ lock.Locker = (*Locker)(nil)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker holds keys with SET NX PX and releases them only if the stored
// token still matches.
type Locker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger *slog.Logger
}

// Option configures a Locker.
type Option func(*Locker)

// WithTTL sets how long a held key survives without release. It must
// exceed the longest CancelOffering or ChargeAll run.
func WithTTL(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithRetryInterval sets the pause between acquisition attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locker) { l.logger = logger }
}

// New creates a Redis locker. Keys are stored as "<prefix>:<key>".
func New(client redis.UniversalClient, prefix string, opts ...Option) *Locker {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = "recur:lock"
	}

	l := &Locker{
		client: client,
		prefix: trimmed,
		ttl:    time.Minute,
		retry:  25 * time.Millisecond,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the Redis key used for key.
func (l *Locker) Key(key string) string {
	return l.prefix + ":" + key
}

// Lock implements lock.Locker.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	redisKey := l.Key(key)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock/redis: acquire %s: %w", redisKey, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return func() {
		// Release with a fresh context so a canceled caller still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.logger.Warn("redis lock release failed", "key", redisKey, "error", err)
		}
	}, nil
}

func newToken() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("lock/redis: token: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
