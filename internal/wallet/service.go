package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"reads-backend/internal/apierr"
	"reads-backend/internal/models"
	"reads-backend/pkg/cache"
	"reads-backend/pkg/dbctx"
	"reads-backend/pkg/logger"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

type LeaderboardCache interface {
	TopTokenEarners(ctx context.Context, limit int64) ([]cache.TokenScore, error)
	SetTokenLeaderboard(ctx context.Context, scores []cache.TokenScore) error
}

type UserDirectory interface {
	GetUsersByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]models.User, error)
}

type Service struct {
	ledger  *Ledger
	rewards *RewardRepository
	users   UserDirectory
	board   LeaderboardCache
	log     *logger.Logger
}

// NewService wires the read side of the wallet. board may be nil, in which
// case the leaderboard is always computed from the rewards table.
func NewService(ledger *Ledger, rewards *RewardRepository, users UserDirectory, board LeaderboardCache, baseLog *logger.Logger) *Service {
	return &Service{
		ledger:  ledger,
		rewards: rewards,
		users:   users,
		board:   board,
		log:     baseLog.With("service", "WalletService"),
	}
}

func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (models.WalletBalance, error) {
	balance, err := s.ledger.Balance(dbctx.New(ctx), userID)
	if err != nil {
		return models.WalletBalance{}, wrapStorage(err)
	}
	return models.WalletBalance{TokenBalance: balance}, nil
}

func (s *Service) RewardHistory(ctx context.Context, userID uuid.UUID) ([]models.RewardHistoryEntry, error) {
	rewards, err := s.rewards.History(dbctx.New(ctx), userID)
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	out := make([]models.RewardHistoryEntry, 0, len(rewards))
	for _, r := range rewards {
		out = append(out, models.RewardHistoryEntry{
			ID:           r.ID,
			LessonID:     r.LessonID,
			TokensEarned: r.TokensEarned,
			CreatedAt:    r.CreatedAt,
		})
	}
	return out, nil
}

func (s *Service) RewardSummary(ctx context.Context, userID uuid.UUID) (models.RewardSummary, error) {
	total, err := s.rewards.TotalEarned(dbctx.New(ctx), userID)
	if err != nil {
		return models.RewardSummary{}, apierr.Persistence(err)
	}
	return models.RewardSummary{TotalEarned: total}, nil
}

// Leaderboard reads the Redis sorted set first and rebuilds it from the
// rewards table when it is empty or unreachable.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}

	var scores []cache.TokenScore
	if s.board != nil {
		cached, err := s.board.TopTokenEarners(ctx, int64(limit))
		if err != nil {
			s.log.Warn("leaderboard cache read failed", "error", err)
		} else {
			scores = cached
		}
	}

	if len(scores) == 0 {
		rebuilt, err := s.rebuildLeaderboard(ctx)
		if err != nil {
			return nil, err
		}
		if len(rebuilt) > limit {
			rebuilt = rebuilt[:limit]
		}
		scores = rebuilt
	}

	return s.withNames(ctx, scores)
}

// WarmLeaderboard reseeds the cached leaderboard from the rewards table so
// increments made after startup land on complete totals.
func (s *Service) WarmLeaderboard(ctx context.Context) error {
	if s.board == nil {
		return nil
	}
	_, err := s.rebuildLeaderboard(ctx)
	return err
}

func (s *Service) rebuildLeaderboard(ctx context.Context) ([]cache.TokenScore, error) {
	totals, err := s.rewards.TopEarners(dbctx.New(ctx), 0)
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	scores := make([]cache.TokenScore, 0, len(totals))
	for _, t := range totals {
		scores = append(scores, cache.TokenScore{UserID: t.UserID, Tokens: t.Total})
	}
	if s.board != nil && len(scores) > 0 {
		if err := s.board.SetTokenLeaderboard(ctx, scores); err != nil {
			s.log.Warn("leaderboard cache rebuild failed", "error", err)
		}
	}
	return scores, nil
}

func (s *Service) withNames(ctx context.Context, scores []cache.TokenScore) ([]models.LeaderboardEntry, error) {
	ids := make([]uuid.UUID, 0, len(scores))
	for _, sc := range scores {
		ids = append(ids, sc.UserID)
	}
	users, err := s.users.GetUsersByIDs(dbctx.New(ctx), ids)
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	entries := make([]models.LeaderboardEntry, 0, len(scores))
	for i, sc := range scores {
		entries = append(entries, models.LeaderboardEntry{
			UserID: sc.UserID,
			Name:   names[sc.UserID],
			Tokens: sc.Tokens,
			Rank:   int64(i) + 1,
		})
	}
	return entries, nil
}

func wrapStorage(err error) error {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return err
	}
	return apierr.Persistence(err)
}
