package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"reads-backend/internal/config"
	"reads-backend/internal/lesson"
	"reads-backend/internal/models"
	"reads-backend/internal/quiz"
	"reads-backend/pkg/cache"
	"reads-backend/pkg/database"
	"reads-backend/pkg/logger"
)

func main() {
	file := flag.String("file", "seed/lessons.yaml", "YAML lesson catalog to load")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLog, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer appLog.Sync()

	f, err := os.Open(*file)
	if err != nil {
		appLog.Fatal("Failed to open catalog", "file", *file, "error", err)
	}
	catalog, err := lesson.ParseCatalog(f)
	f.Close()
	if err != nil {
		appLog.Fatal("Invalid catalog", "file", *file, "error", err)
	}

	db, err := database.NewPostgresDB(&database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		appLog.Fatal("Failed to connect to database", "error", err)
	}
	if err := database.Migrate(db, models.All()...); err != nil {
		appLog.Fatal("Failed to migrate database", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	quizRepo := quiz.NewRepository(db, appLog)
	var questionCache quiz.QuestionCache
	redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL)
	if err := redisCache.Ping(ctx); err != nil {
		appLog.Warn("Redis unavailable, cached questions may be stale until they expire", "error", err)
	} else {
		questionCache = redisCache
	}
	defer redisCache.Close()

	bank := quiz.NewQuestionBank(quizRepo, questionCache, appLog)
	seeder := lesson.NewSeeder(db, lesson.NewRepository(db, appLog), quizRepo, bank, appLog)

	n, err := seeder.Apply(ctx, catalog)
	if err != nil {
		appLog.Fatal("Failed to apply catalog", "error", err)
	}
	appLog.Info("Catalog loaded", "file", *file, "lessons", n)
}
