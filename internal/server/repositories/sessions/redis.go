package sessions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "artfeed"

// ErrRedisUnavailable wraps transport failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisRepository keeps each session in a hash under artfeed:session:<token>
// with a TTL equal to its validity, and indexes tokens per user in the set
// artfeed:user_sessions:<user id>. The set lives as long as the longest
// session in it, and tokens of expired sessions are pruned on Create.
type RedisRepository struct {
	redis redis.UniversalClient
}

func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{redis: client}
}

func (r *RedisRepository) key(token string) string {
	return redisKeyPrefix + ":session:" + token
}

func (r *RedisRepository) userKey(userID string) string {
	return redisKeyPrefix + ":user_sessions:" + userID
}

func (r *RedisRepository) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	now := time.Now()
	sessionKey := r.key(token)
	userKey := r.userKey(userID)

	if err := r.pruneIndex(ctx, userKey); err != nil {
		return err
	}
	// Negative for a missing or persistent set, so validity wins.
	indexTTL, err := r.redis.TTL(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey,
			"user_id", userID,
			"created_at", now.UnixNano(),
			"expires_at", now.Add(validity).UnixNano(),
		)
		pipe.Expire(ctx, sessionKey, validity)
		pipe.SAdd(ctx, userKey, token)
		pipe.Expire(ctx, userKey, max(validity, indexTTL))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// pruneIndex drops tokens whose session hash has already expired.
func (r *RedisRepository) pruneIndex(ctx context.Context, userKey string) error {
	tokens, err := r.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(tokens) == 0 {
		return nil
	}

	exists := make([]*redis.IntCmd, len(tokens))
	if _, err := r.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, t := range tokens {
			exists[i] = pipe.Exists(ctx, r.key(t))
		}
		return nil
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var stale []any
	for i, cmd := range exists {
		if cmd.Val() == 0 {
			stale = append(stale, tokens[i])
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := r.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (r *RedisRepository) Find(ctx context.Context, token string) (*models.Session, error) {
	fields, err := r.redis.HGetAll(ctx, r.key(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}

	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", token, err)
	}
	expires, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", token, err)
	}

	return &models.Session{
		Token:     token,
		UserID:    fields["user_id"],
		CreatedAt: time.Unix(0, created),
		ExpiresAt: time.Unix(0, expires),
	}, nil
}

// Delete is idempotent; the user index entry is removed when the session
// is still readable.
func (r *RedisRepository) Delete(ctx context.Context, token string) error {
	key := r.key(token)

	userID, err := r.redis.HGet(ctx, key, "user_id").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if userID != "" {
			pipe.SRem(ctx, r.userKey(userID), token)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteByUser is not atomic: a session created between reading the index
// and deleting it survives until it expires or the next call.
func (r *RedisRepository) DeleteByUser(ctx context.Context, userID string) error {
	userKey := r.userKey(userID)

	tokens, err := r.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, r.key(t))
	}
	keys = append(keys, userKey)

	if err := r.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
