package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"reads-backend/internal/models"
)

func testCache(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis integration tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	c := NewRedisCacheFromClient(client, time.Minute)
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = c.Close()
	})
	return c
}

func TestLessonQuestionsRoundTrip(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	lessonID := uuid.New()

	if _, err := c.GetLessonQuestions(ctx, lessonID); err != ErrMiss {
		t.Fatalf("expected ErrMiss, got %v", err)
	}

	q := models.NewQuizQuestion(lessonID, "2+2?", []models.Option{{Key: "A", Text: "3"}, {Key: "B", Text: "4"}}, "B")
	q.ID = uuid.New()
	if err := c.SetLessonQuestions(ctx, lessonID, []models.QuizQuestion{q}); err != nil {
		t.Fatalf("SetLessonQuestions: %v", err)
	}

	got, err := c.GetLessonQuestions(ctx, lessonID)
	if err != nil {
		t.Fatalf("GetLessonQuestions: %v", err)
	}
	if len(got) != 1 || got[0].ID != q.ID || got[0].CorrectOption != "B" || len(got[0].OptionList()) != 2 {
		t.Fatalf("unexpected cached questions: %+v", got)
	}

	if err := c.InvalidateLessonQuestions(ctx, lessonID); err != nil {
		t.Fatalf("InvalidateLessonQuestions: %v", err)
	}
	if _, err := c.GetLessonQuestions(ctx, lessonID); err != ErrMiss {
		t.Fatalf("expected ErrMiss after invalidation, got %v", err)
	}
}

func TestTokenLeaderboard(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	if err := c.SetTokenLeaderboard(ctx, []TokenScore{{UserID: alice, Tokens: 4}}); err != nil {
		t.Fatalf("SetTokenLeaderboard: %v", err)
	}
	if err := c.IncrementTokens(ctx, bob, 6); err != nil {
		t.Fatalf("IncrementTokens: %v", err)
	}
	if err := c.IncrementTokens(ctx, alice, 0); err != nil {
		t.Fatalf("IncrementTokens zero: %v", err)
	}

	top, err := c.TopTokenEarners(ctx, 10)
	if err != nil {
		t.Fatalf("TopTokenEarners: %v", err)
	}
	if len(top) != 2 || top[0].UserID != bob || top[0].Tokens != 6 || top[1].Tokens != 4 {
		t.Fatalf("unexpected leaderboard: %+v", top)
	}
}

func TestIncrementTokensSkipsMissingLeaderboard(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	bob := uuid.New()

	if err := c.IncrementTokens(ctx, bob, 2); err != nil {
		t.Fatalf("IncrementTokens: %v", err)
	}
	n, err := c.client.Exists(ctx, tokenLeaderboardKey).Result()
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if n != 0 {
		t.Fatalf("increment created a partial leaderboard")
	}

	if err := c.SetTokenLeaderboard(ctx, []TokenScore{{UserID: bob, Tokens: 4}}); err != nil {
		t.Fatalf("SetTokenLeaderboard: %v", err)
	}
	ttl, err := c.client.TTL(ctx, tokenLeaderboardKey).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("leaderboard ttl %v want within a minute", ttl)
	}
}
