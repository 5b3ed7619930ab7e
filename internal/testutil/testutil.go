package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"reads-backend/internal/models"
	"reads-backend/pkg/logger"
)

var dbSeq atomic.Int64

// DB opens a private in-memory SQLite database with every model migrated.
// A single connection keeps the memory database alive and serialises
// transactions the way a row lock would.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared&_foreign_keys=1", dbSeq.Add(1))
	return open(tb, dsn, 1)
}

// FileDB opens a SQLite database file with conns connections, so
// transactions really overlap and contend on locks. Writers wait up to
// the busy timeout for each other.
func FileDB(tb testing.TB, conns int) *gorm.DB {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "test.db")
	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_busy_timeout=5000", path)
	return open(tb, dsn, conns)
}

func open(tb testing.TB, dsn string, conns int) *gorm.DB {
	tb.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(conns)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	l, err := logger.New("test")
	if err != nil {
		tb.Fatalf("failed to init logger: %v", err)
	}
	return l
}

// SeedUser creates a user together with its zero-balance wallet.
func SeedUser(tb testing.TB, ctx context.Context, db *gorm.DB, email string) *models.User {
	tb.Helper()
	u := &models.User{
		ID:           uuid.New(),
		Name:         "Ada",
		Email:        email,
		PasswordHash: "pw",
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	if err := db.WithContext(ctx).Create(&models.Wallet{UserID: u.ID}).Error; err != nil {
		tb.Fatalf("seed wallet: %v", err)
	}
	return u
}

func SeedLesson(tb testing.TB, ctx context.Context, db *gorm.DB, category string, order int) *models.Lesson {
	tb.Helper()
	l := &models.Lesson{
		ID:         uuid.New(),
		Category:   category,
		Title:      fmt.Sprintf("%s lesson %d", category, order),
		Content:    "content",
		OrderIndex: order,
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

// SeedQuestions creates one A-D question per entry of correct, in order.
func SeedQuestions(tb testing.TB, ctx context.Context, db *gorm.DB, lessonID uuid.UUID, correct ...string) []models.QuizQuestion {
	tb.Helper()
	opts := []models.Option{
		{Key: "A", Text: "first"},
		{Key: "B", Text: "second"},
		{Key: "C", Text: "third"},
		{Key: "D", Text: "fourth"},
	}
	out := make([]models.QuizQuestion, 0, len(correct))
	for i, key := range correct {
		q := models.NewQuizQuestion(lessonID, fmt.Sprintf("question %d", i+1), opts, key)
		q.ID = uuid.New()
		q.Position = i
		if err := db.WithContext(ctx).Create(&q).Error; err != nil {
			tb.Fatalf("seed question: %v", err)
		}
		out = append(out, q)
	}
	return out
}

func WalletBalance(tb testing.TB, db *gorm.DB, userID uuid.UUID) int64 {
	tb.Helper()
	var w models.Wallet
	if err := db.First(&w, "user_id = ?", userID).Error; err != nil {
		tb.Fatalf("load wallet: %v", err)
	}
	return w.TokenBalance
}

func Count(tb testing.TB, db *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	tb.Helper()
	var n int64
	if err := db.Model(model).Where(where, args...).Count(&n).Error; err != nil {
		tb.Fatalf("count: %v", err)
	}
	return n
}
