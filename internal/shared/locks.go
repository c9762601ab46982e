package shared

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockLost reports that a held run lock expired or was taken by another run.
var ErrLockLost = errors.New("run lock lost")

// JobLockKey builds redis keys for the exclusive run lock of a job.
func JobLockKey(job string) string {
	return fmt.Sprintf("shelfwatch:job:%s:lock", job)
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// JobLocker guarantees a single running instance per job name.
type JobLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewJobLocker constructs a locker. A nil client disables locking.
func NewJobLocker(client *redis.Client, ttl time.Duration) *JobLocker {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &JobLocker{client: client, ttl: ttl}
}

// Lock is a held run lock. A nil Lock is a no-op, which is what callers get
// when locking is disabled or redis is unreachable.
type Lock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// Acquire takes the lock for job. It returns ErrJobLocked when another holder
// exists. On redis failures the error is returned together with a nil lock so
// callers may choose to continue unlocked.
func (l *JobLocker) Acquire(ctx context.Context, job string) (*Lock, error) {
	if l == nil || l.client == nil {
		return nil, nil
	}
	key := JobLockKey(job)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("shared: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrJobLocked
	}
	return &Lock{client: l.client, key: key, token: token, ttl: l.ttl}, nil
}

// TTL is the expiry set on every acquire and extend.
func (l *Lock) TTL() time.Duration {
	if l == nil {
		return 0
	}
	return l.ttl
}

// Extend resets the expiry to the full TTL if the lock is still ours.
func (l *Lock) Extend(ctx context.Context) error {
	if l == nil {
		return nil
	}
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, strconv.FormatInt(l.ttl.Milliseconds(), 10)).Int()
	if err != nil {
		return fmt.Errorf("shared: extend lock %s: %w", l.key, err)
	}
	if n == 0 {
		return fmt.Errorf("shared: extend lock %s: %w", l.key, ErrLockLost)
	}
	return nil
}

// Release gives the lock up. A lock already taken over by another holder is
// left alone.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("shared: release lock %s: %w", l.key, err)
	}
	return nil
}

// Keep extends the lock every interval until the returned stop is called.
// A zero interval means a third of the TTL. Extend failures are passed to
// onErr; after ErrLockLost the refresh stops. stop waits for the refresher to
// exit.
func (l *Lock) Keep(ctx context.Context, interval time.Duration, onErr func(error)) (stop func()) {
	if l == nil {
		return func() {}
	}
	if interval <= 0 {
		interval = l.ttl / 3
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			err := l.Extend(ctx)
			if err == nil || ctx.Err() != nil {
				continue
			}
			if onErr != nil {
				onErr(err)
			}
			if errors.Is(err, ErrLockLost) {
				return
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
