// backend/internal/quiz/service.go
package quiz

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reads-backend/internal/apierr"
	"reads-backend/internal/models"
	"reads-backend/pkg/dbctx"
	"reads-backend/pkg/logger"
)

const defaultSettleTimeout = 10 * time.Second

type Ledger interface {
	Credit(dbc dbctx.Context, userID uuid.UUID, amount int64) (int64, error)
}

type RewardRecorder interface {
	Append(dbc dbctx.Context, reward *models.Reward) error
}

// LeaderboardSink and Notifier are told about committed settlements only.
type LeaderboardSink interface {
	IncrementTokens(ctx context.Context, userID uuid.UUID, tokens int64) error
}

type Notifier interface {
	SendMessageToUser(userID uuid.UUID, messageType string, data interface{})
}

type Service struct {
	db            *gorm.DB
	repo          *Repository
	bank          *QuestionBank
	rewards       RewardRecorder
	ledger        Ledger
	policy        RewardPolicy
	board         LeaderboardSink
	notifier      Notifier
	settleTimeout time.Duration
	log           *logger.Logger
}

type Option func(*Service)

func WithPolicy(p RewardPolicy) Option {
	return func(s *Service) { s.policy = p }
}

func WithLeaderboard(board LeaderboardSink) Option {
	return func(s *Service) { s.board = board }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithSettleTimeout(d time.Duration) Option {
	return func(s *Service) { s.settleTimeout = d }
}

func NewService(db *gorm.DB, repo *Repository, bank *QuestionBank, rewards RewardRecorder, ledger Ledger, baseLog *logger.Logger, opts ...Option) *Service {
	s := &Service{
		db:            db,
		repo:          repo,
		bank:          bank,
		rewards:       rewards,
		ledger:        ledger,
		policy:        DefaultPolicy,
		settleTimeout: defaultSettleTimeout,
		log:           baseLog.With("service", "QuizService"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartQuiz returns the lesson's questions without their answer keys.
func (s *Service) StartQuiz(ctx context.Context, lessonID uuid.UUID) ([]models.QuestionDTO, error) {
	if lessonID == uuid.Nil {
		return nil, apierr.Validation("lesson_id is required")
	}
	questions, err := s.bank.QuestionsFor(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	out := make([]models.QuestionDTO, 0, len(questions))
	for _, q := range questions {
		out = append(out, q.ToDTO())
	}
	return out, nil
}

// Settle grades a submission and records the result, the reward and the
// wallet credit in one transaction. Nothing is written when it fails.
func (s *Service) Settle(ctx context.Context, userID uuid.UUID, req models.QuizSubmitRequest) (models.QuizResultResponse, error) {
	if err := validateSubmission(userID, req); err != nil {
		return models.QuizResultResponse{}, err
	}

	// The unit must finish or roll back as a whole even if the caller goes away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.settleTimeout)
	defer cancel()

	questions, err := s.bank.QuestionsFor(ctx, req.LessonID)
	if err != nil {
		return models.QuizResultResponse{}, err
	}

	tally := Grade(questions, AnswerMap(req.Answers))
	tokens := s.policy.Tokens(tally.Correct)
	result := &models.QuizResult{
		UserID:       userID,
		LessonID:     req.LessonID,
		Score:        tally.Score(),
		CorrectCount: tally.Correct,
		WrongCount:   tally.Wrong,
	}

	var balance int64
	err = dbctx.Transaction(ctx, s.db, func(dbc dbctx.Context) error {
		if err := s.repo.CreateResult(dbc, result); err != nil {
			return err
		}
		if tokens > 0 {
			reward := &models.Reward{
				UserID:       userID,
				LessonID:     req.LessonID,
				QuizResultID: result.ID,
				TokensEarned: tokens,
			}
			if err := s.rewards.Append(dbc, reward); err != nil {
				return err
			}
		}
		var err error
		balance, err = s.ledger.Credit(dbc, userID, tokens)
		return err
	})
	if err != nil {
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) {
			s.log.Warn("settlement rejected", "user_id", userID, "lesson_id", req.LessonID, "error", err)
			return models.QuizResultResponse{}, err
		}
		s.log.Error("settlement rolled back", "user_id", userID, "lesson_id", req.LessonID, "error", err)
		return models.QuizResultResponse{}, apierr.Persistence(err)
	}

	s.log.Info("quiz settled",
		"user_id", userID,
		"lesson_id", req.LessonID,
		"score", result.Score,
		"tokens", tokens,
		"balance", balance,
	)
	s.afterCommit(ctx, userID, req.LessonID, tokens, balance)

	return models.QuizResultResponse{
		Score:         result.Score,
		Correct:       tally.Correct,
		Wrong:         tally.Wrong,
		TokensAwarded: tokens,
	}, nil
}

func (s *Service) afterCommit(ctx context.Context, userID, lessonID uuid.UUID, tokens, balance int64) {
	if s.board != nil && tokens > 0 {
		if err := s.board.IncrementTokens(ctx, userID, tokens); err != nil {
			s.log.Warn("leaderboard update failed", "user_id", userID, "error", err)
		}
	}
	if s.notifier != nil {
		s.notifier.SendMessageToUser(userID, "wallet_update", models.WalletUpdate{
			TokenBalance:  balance,
			TokensAwarded: tokens,
			LessonID:      lessonID,
		})
	}
}

func validateSubmission(userID uuid.UUID, req models.QuizSubmitRequest) error {
	if userID == uuid.Nil {
		return apierr.Unauthorized("unauthorized")
	}
	if req.LessonID == uuid.Nil {
		return apierr.Validation("lesson_id is required")
	}
	for _, a := range req.Answers {
		if a.QuestionID == uuid.Nil {
			return apierr.Validation("every answer needs a question_id")
		}
	}
	return nil
}
