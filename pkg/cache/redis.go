// backend/pkg/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"reads-backend/internal/models"
)

const tokenLeaderboardKey = "leaderboard:tokens"

// ErrMiss is returned when a key is not cached.
var ErrMiss = errors.New("cache miss")

type TokenScore struct {
	UserID uuid.UUID
	Tokens int64
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr, password string, ttl time.Duration) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return NewRedisCacheFromClient(client, ttl)
}

func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func questionsKey(lessonID uuid.UUID) string {
	return fmt.Sprintf("lesson:%s:questions", lessonID)
}

func (c *RedisCache) SetLessonQuestions(ctx context.Context, lessonID uuid.UUID, questions []models.QuizQuestion) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, questionsKey(lessonID), data, c.ttl).Err()
}

func (c *RedisCache) GetLessonQuestions(ctx context.Context, lessonID uuid.UUID) ([]models.QuizQuestion, error) {
	data, err := c.client.Get(ctx, questionsKey(lessonID)).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var questions []models.QuizQuestion
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (c *RedisCache) InvalidateLessonQuestions(ctx context.Context, lessonID uuid.UUID) error {
	return c.client.Del(ctx, questionsKey(lessonID)).Err()
}

// incrIfExists only bumps a score when the sorted set is already there.
// A missing set means the board was never built or was evicted, and a
// lone delta would turn into a wrong total.
var incrIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('ZINCRBY', KEYS[1], ARGV[1], ARGV[2])
end
return false
`)

// IncrementTokens adds tokens to a user's leaderboard score. It is a no-op
// while the leaderboard is absent; the next read rebuilds it from the ledger.
func (c *RedisCache) IncrementTokens(ctx context.Context, userID uuid.UUID, tokens int64) error {
	if tokens <= 0 {
		return nil
	}
	err := incrIfExists.Run(ctx, c.client, []string{tokenLeaderboardKey}, tokens, userID.String()).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}

// SetTokenLeaderboard replaces the whole leaderboard in one pipeline. The
// set expires after the cache TTL so any drift is rebuilt away.
func (c *RedisCache) SetTokenLeaderboard(ctx context.Context, scores []TokenScore) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, tokenLeaderboardKey)
	for _, s := range scores {
		pipe.ZAdd(ctx, tokenLeaderboardKey, &redis.Z{
			Score:  float64(s.Tokens),
			Member: s.UserID.String(),
		})
	}
	pipe.Expire(ctx, tokenLeaderboardKey, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) TopTokenEarners(ctx context.Context, limit int64) ([]TokenScore, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, tokenLeaderboardKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]TokenScore, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		userID, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		entries = append(entries, TokenScore{UserID: userID, Tokens: int64(z.Score)})
	}
	return entries, nil
}
