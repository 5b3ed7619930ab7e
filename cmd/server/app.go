package main

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"gorm.io/gorm"

	"reads-backend/internal/apierr"
	"reads-backend/internal/auth"
	"reads-backend/internal/config"
	"reads-backend/internal/lesson"
	"reads-backend/internal/quiz"
	"reads-backend/internal/wallet"
	"reads-backend/pkg/cache"
	"reads-backend/pkg/logger"
	"reads-backend/pkg/websocket"
)

type app struct {
	cfg *config.Config
	db  *gorm.DB
	log *logger.Logger
	hub *websocket.Hub

	authService   *auth.Service
	walletService *wallet.Service

	authHandler   *auth.Handler
	lessonHandler *lesson.Handler
	quizHandler   *quiz.Handler
	walletHandler *wallet.Handler
}

// newApp wires repositories, services and handlers. rc may be nil, in which
// case questions and the leaderboard are read from the database only.
func newApp(cfg *config.Config, db *gorm.DB, rc *cache.RedisCache, log *logger.Logger) *app {
	var (
		questionCache quiz.QuestionCache
		leaderboard   wallet.LeaderboardCache
		sink          quiz.LeaderboardSink
	)
	if rc != nil {
		questionCache = rc
		leaderboard = rc
		sink = rc
	}

	// Repositories
	authRepo := auth.NewRepository(db, log)
	lessonRepo := lesson.NewRepository(db, log)
	quizRepo := quiz.NewRepository(db, log)
	rewardRepo := wallet.NewRewardRepository(db, log)
	ledger := wallet.NewLedger(db, log)

	// Services
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(db, authRepo, ledger, tokens, log)
	hub := websocket.NewHub(authService, cfg.CORSOrigins, log)
	bank := quiz.NewQuestionBank(quizRepo, questionCache, log)
	quizService := quiz.NewService(db, quizRepo, bank, rewardRepo, ledger, log,
		quiz.WithLeaderboard(sink),
		quiz.WithNotifier(hub),
	)
	lessonService := lesson.NewService(lessonRepo, quizRepo, log)
	walletService := wallet.NewService(ledger, rewardRepo, authRepo, leaderboard, log)

	return &app{
		cfg:           cfg,
		db:            db,
		log:           log,
		hub:           hub,
		authService:   authService,
		walletService: walletService,
		authHandler:   auth.NewHandler(authService),
		lessonHandler: lesson.NewHandler(lessonService),
		quizHandler:   quiz.NewHandler(quizService),
		walletHandler: wallet.NewHandler(walletService),
	}
}

func (a *app) run(ctx context.Context) {
	go a.hub.Run(ctx)
	if err := a.walletService.WarmLeaderboard(ctx); err != nil {
		a.log.Warn("leaderboard warm-up failed", "error", err)
	}
}

func (a *app) router() http.Handler {
	router := mux.NewRouter()

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   a.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	router.HandleFunc("/healthz", a.health).Methods("GET")
	router.HandleFunc("/ws", a.hub.HandleWebSocket)

	// Auth routes - no JWT required
	router.HandleFunc("/api/auth/signup", a.authHandler.Signup).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/auth/login", a.authHandler.Login).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/lessons/categories", a.lessonHandler.Categories).Methods("GET")
	router.HandleFunc("/api/lessons/category/{category}", a.lessonHandler.ByCategory).Methods("GET")
	router.HandleFunc("/api/leaderboard", a.walletHandler.Leaderboard).Methods("GET")

	// JWT required
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(auth.JWTMiddleware(a.authService))

	apiRouter.HandleFunc("/user/profile", a.authHandler.Profile).Methods("GET")
	apiRouter.HandleFunc("/user/stats", a.lessonHandler.Stats).Methods("GET")
	apiRouter.HandleFunc("/wallet/balance", a.walletHandler.Balance).Methods("GET")
	apiRouter.HandleFunc("/lesson/{id}", a.lessonHandler.Detail).Methods("GET")
	apiRouter.HandleFunc("/lesson/{id}/complete", a.lessonHandler.Complete).Methods("POST", "OPTIONS")
	apiRouter.HandleFunc("/quiz/start/{lessonID}", a.quizHandler.StartQuiz).Methods("GET")
	apiRouter.HandleFunc("/quiz/submit", a.quizHandler.SubmitQuiz).Methods("POST", "OPTIONS")
	apiRouter.HandleFunc("/rewards/history", a.walletHandler.History).Methods("GET")
	apiRouter.HandleFunc("/rewards/summary", a.walletHandler.Summary).Methods("GET")

	return corsMiddleware.Handler(router)
}

func (a *app) health(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		a.log.Error("health check failed", "error", err)
		apierr.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
