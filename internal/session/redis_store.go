package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/src-portal/internal/model"
)

// RedisStore keeps sessions in Redis.  Each session is a JSON value at
// <prefix>:sess:<token> whose TTL is the idle timeout, capped by the time
// left before the absolute max age.  <prefix>:user:<id> holds the user's
// single active token.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	opts   Options
	now    func() time.Time
}

// NewRedisStore returns a store using rdb.  An empty prefix defaults to
// "src".
func NewRedisStore(rdb *redis.Client, prefix string, opts Options) *RedisStore {
	if prefix == "" {
		prefix = "src"
	}
	return &RedisStore{
		rdb:    rdb,
		prefix: prefix,
		opts:   opts.withDefaults(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *RedisStore) sessKey(tok string) string { return r.prefix + ":sess:" + tok }
func (r *RedisStore) userKey(id uint64) string {
	return r.prefix + ":user:" + strconv.FormatUint(id, 10)
}

// ttl returns how long s may stay in Redis from now.
func (r *RedisStore) ttl(s *model.Session, now time.Time) time.Duration {
	left := r.opts.MaxAge - now.Sub(s.CreatedAt)
	if left < r.opts.IdleTimeout {
		return left
	}
	return r.opts.IdleTimeout
}

func (r *RedisStore) Create(ctx context.Context, userID uint64, flags model.SessionFlags) (string, error) {
	tok, err := newToken()
	if err != nil {
		return "", err
	}
	now := r.now()
	s := &model.Session{
		Token:               tok,
		UserID:              userID,
		CreatedAt:           now,
		LastSeenAt:          now,
		ForcePasswordChange: flags.ForcePasswordChange,
		PasswordExpired:     flags.PasswordExpired,
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	old, err := r.rdb.Get(ctx, r.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("session: lookup previous: %w", err)
	}
	pipe := r.rdb.TxPipeline()
	if old != "" {
		pipe.Del(ctx, r.sessKey(old))
	}
	pipe.Set(ctx, r.sessKey(tok), payload, r.ttl(s, now))
	pipe.Set(ctx, r.userKey(userID), tok, r.opts.MaxAge)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("session: create: %w", err)
	}
	return tok, nil
}

func (r *RedisStore) load(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	raw, err := r.rdb.Get(ctx, r.sessKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: get: %w", err)
	}
	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		// A corrupt entry is unusable; drop it and report not logged in.
		_ = r.rdb.Del(ctx, r.sessKey(token)).Err()
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *RedisStore) save(ctx context.Context, s *model.Session, now time.Time) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.sessKey(s.Token), payload, r.ttl(s, now)).Err(); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, token string) (*model.Session, error) {
	s, err := r.load(ctx, token)
	if err != nil {
		return nil, err
	}
	now := r.now()
	if r.opts.expired(s, now) {
		_ = r.Destroy(ctx, token)
		return nil, ErrNotFound
	}
	s.LastSeenAt = now
	if err := r.save(ctx, s, now); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *RedisStore) Update(ctx context.Context, s *model.Session) error {
	cur, err := r.load(ctx, s.Token)
	if err != nil {
		return err
	}
	if cur.UserID != s.UserID {
		return ErrNotFound
	}
	cur.ForcePasswordChange = s.ForcePasswordChange
	cur.PasswordExpired = s.PasswordExpired
	return r.save(ctx, cur, r.now())
}

func (r *RedisStore) Destroy(ctx context.Context, token string) error {
	s, err := r.load(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := r.rdb.Del(ctx, r.sessKey(token)).Err(); err != nil {
		return fmt.Errorf("session: destroy: %w", err)
	}
	// Only clear the index if it still points at this token.
	if cur, err := r.rdb.Get(ctx, r.userKey(s.UserID)).Result(); err == nil && cur == token {
		_ = r.rdb.Del(ctx, r.userKey(s.UserID)).Err()
	}
	return nil
}

func (r *RedisStore) DestroyAllForUser(ctx context.Context, userID uint64) error {
	tok, err := r.rdb.Get(ctx, r.userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: lookup user: %w", err)
	}
	if err := r.rdb.Del(ctx, r.sessKey(tok), r.userKey(userID)).Err(); err != nil {
		return fmt.Errorf("session: destroy user: %w", err)
	}
	return nil
}
