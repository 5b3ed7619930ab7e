package quiz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"reads-backend/internal/apierr"
	"reads-backend/internal/models"
	"reads-backend/internal/testutil"
	"reads-backend/internal/wallet"
	"reads-backend/pkg/cache"
	"reads-backend/pkg/dbctx"
)

type recordingBoard struct {
	mu    sync.Mutex
	added map[uuid.UUID]int64
}

func (b *recordingBoard) IncrementTokens(_ context.Context, userID uuid.UUID, tokens int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.added == nil {
		b.added = make(map[uuid.UUID]int64)
	}
	b.added[userID] += tokens
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []models.WalletUpdate
}

func (n *recordingNotifier) SendMessageToUser(_ uuid.UUID, messageType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if messageType == "wallet_update" {
		n.messages = append(n.messages, data.(models.WalletUpdate))
	}
}

type failingRewards struct{}

func (failingRewards) Append(dbctx.Context, *models.Reward) error {
	return errors.New("disk full")
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	board    *recordingBoard
	notifier *recordingNotifier
}

func newFixture(t *testing.T, rewards RewardRecorder, opts ...Option) fixture {
	t.Helper()
	return newFixtureOn(t, testutil.DB(t), rewards, opts...)
}

func newFixtureOn(t *testing.T, db *gorm.DB, rewards RewardRecorder, opts ...Option) fixture {
	t.Helper()
	log := testutil.Logger(t)
	repo := NewRepository(db, log)
	if rewards == nil {
		rewards = wallet.NewRewardRepository(db, log)
	}
	board := &recordingBoard{}
	notifier := &recordingNotifier{}
	opts = append([]Option{
		WithLeaderboard(board),
		WithNotifier(notifier),
		WithSettleTimeout(5 * time.Second),
	}, opts...)
	svc := NewService(db, repo, NewQuestionBank(repo, nil, log), rewards, wallet.NewLedger(db, log), log, opts...)
	return fixture{db: db, svc: svc, board: board, notifier: notifier}
}

func submission(lessonID uuid.UUID, qs []models.QuizQuestion, selected ...string) models.QuizSubmitRequest {
	req := models.QuizSubmitRequest{LessonID: lessonID}
	for i, key := range selected {
		req.Answers = append(req.Answers, models.AnswerSubmission{QuestionID: qs[i].ID, Selected: key})
	}
	return req
}

func TestSettleScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := testutil.SeedUser(t, ctx, f.db, "ada@example.com")
	lesson := testutil.SeedLesson(t, ctx, f.db, "Basics", 1)
	qs := testutil.SeedQuestions(t, ctx, f.db, lesson.ID, "A", "B", "C", "D")

	got, err := f.svc.Settle(ctx, user.ID, submission(lesson.ID, qs, "A", "B", "X", "D"))
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	want := models.QuizResultResponse{Score: 75, Correct: 3, Wrong: 1, TokensAwarded: 6}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}

	if bal := testutil.WalletBalance(t, f.db, user.ID); bal != 6 {
		t.Fatalf("balance %d want 6", bal)
	}

	var result models.QuizResult
	if err := f.db.First(&result, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("load result: %v", err)
	}
	if result.Score != 75 || result.CorrectCount != 3 || result.WrongCount != 1 {
		t.Fatalf("stored result %+v", result)
	}

	var reward models.Reward
	if err := f.db.First(&reward, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("load reward: %v", err)
	}
	if reward.TokensEarned != 6 || reward.QuizResultID != result.ID || reward.LessonID != lesson.ID {
		t.Fatalf("stored reward %+v", reward)
	}

	if f.board.added[user.ID] != 6 {
		t.Fatalf("leaderboard increment %d want 6", f.board.added[user.ID])
	}
	if len(f.notifier.messages) != 1 {
		t.Fatalf("notifications %d want 1", len(f.notifier.messages))
	}
	if msg := f.notifier.messages[0]; msg.TokenBalance != 6 || msg.TokensAwarded != 6 || msg.LessonID != lesson.ID {
		t.Fatalf("notification %+v", msg)
	}
}

func TestSettleUsesConfiguredPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, WithPolicy(FlatRate{PerCorrect: 5}))
	user := testutil.SeedUser(t, ctx, f.db, "rate@example.com")
	lesson := testutil.SeedLesson(t, ctx, f.db, "Basics", 1)
	qs := testutil.SeedQuestions(t, ctx, f.db, lesson.ID, "A", "B", "C", "D")

	got, err := f.svc.Settle(ctx, user.ID, submission(lesson.ID, qs, "A", "B", "C", "X"))
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if got.Correct != 3 || got.TokensAwarded != 15 {
		t.Fatalf("got %+v want 3 correct and 15 tokens", got)
	}
	if bal := testutil.WalletBalance(t, f.db, user.ID); bal != 15 {
		t.Fatalf("balance %d want 15", bal)
	}
	if n := testutil.Count(t, f.db, &models.Reward{}, "user_id = ? AND tokens_earned = ?", user.ID, 15); n != 1 {
		t.Fatalf("rewards with 15 tokens %d want 1", n)
	}
	if f.board.added[user.ID] != 15 {
		t.Fatalf("leaderboard increment %d want 15", f.board.added[user.ID])
	}
}

func TestSettleZeroCorrectWritesNoReward(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := testutil.SeedUser(t, ctx, f.db, "zero@example.com")
	lesson := testutil.SeedLesson(t, ctx, f.db, "Basics", 1)
	qs := testutil.SeedQuestions(t, ctx, f.db, lesson.ID, "A", "B")

	got, err := f.svc.Settle(ctx, user.ID, submission(lesson.ID, qs, "D", "D"))
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if got.Score != 0 || got.Wrong != 2 || got.TokensAwarded != 0 {
		t.Fatalf("unexpected response %+v", got)
	}
	if n := testutil.Count(t, f.db, &models.QuizResult{}, "user_id = ?", user.ID); n != 1 {
		t.Fatalf("results %d want 1", n)
	}
	if n := testutil.Count(t, f.db, &models.Reward{}, "user_id = ?", user.ID); n != 0 {
		t.Fatalf("rewards %d want 0", n)
	}
	if bal := testutil.WalletBalance(t, f.db, user.ID); bal != 0 {
		t.Fatalf("balance %d want 0", bal)
	}
	if _, ok := f.board.added[user.ID]; ok {
		t.Fatalf("leaderboard touched for zero tokens")
	}
}

func TestSettleOmittedAndForeignAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := testutil.SeedUser(t, ctx, f.db, "omit@example.com")
	lesson := testutil.SeedLesson(t, ctx, f.db, "Basics", 1)
	qs := testutil.SeedQuestions(t, ctx, f.db, lesson.ID, "A", "B", "C", "D", "A")

	req := submission(lesson.ID, qs, "A", "B", "C")
	req.Answers = append(req.Answers, models.AnswerSubmission{QuestionID: uuid.New(), Selected: "D"})

	got, err := f.svc.Settle(ctx, user.ID, req)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	want := models.QuizResultResponse{Score: 60, Correct: 3, Wrong: 2, TokensAwarded: 6}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestSettleLessonWithoutQuestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := testutil.SeedUser(t, ctx, f.db, "empty@example.com")
	lesson := testutil.SeedLesson(t, ctx, f.db, "Basics", 1)

	if _, err := f.svc.StartQuiz(ctx, lesson.ID); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("StartQuiz: want NotFound, got %v", err)
	}
	if _, err := f.svc.Settle(ctx, user.ID, models.QuizSubmitRequest{LessonID: lesson.ID}); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("Settle: want NotFound, got %v", err)
	}
	if n := testutil.Count(t, f.db, &models.QuizResult{}, "user_id = ?", user.ID); n != 0 {
		t.Fatalf("results %d want 0", n)
	}
}

func TestSettleValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := testutil.SeedUser(t, ctx, f.db, "v@example.com")

	if _, err := f.svc.Settle(ctx, user.ID, models.QuizSubmitRequest{}); !errors.Is(err, apierr.ErrValidation) {
		t.Fatalf("missing lesson id: got %v", err)
	}
	req := models.QuizSubmitRequest{
		LessonID: uuid.New(),
		Answers:  []models.AnswerSubmission{{Selected: "A"}},
	}
	if _, err := f.svc.Settle(ctx, user.ID, req); !errors.Is(err, apierr.ErrValidation) {
		t.Fatalf("missing question id: got %v", err)
	}
}

func TestStartQuizHidesAnswerKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	lesson := testutil.SeedLesson(t, ctx, f.db, "Basics", 1)
	qs := testutil.SeedQuestions(t, ctx, f.db, lesson.ID, "C", "A")

	got, err := f.svc.StartQuiz(ctx, lesson.ID)
	if err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}
	if len(got) != 2 || got[0].ID != qs[0].ID || got[1].ID != qs[1].ID {
		t.Fatalf("unexpected questions %+v", got)
	}
	if len(got[0].Options) != 4 {
		t.Fatalf("options %d want 4", len(got[0].Options))
	}
}

func TestResubmissionAwardsAgain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := testutil.SeedUser(t, ctx, f.db, "again@example.com")
	lesson := testutil.SeedLesson(t, ctx, f.db, "Basics", 1)
	qs := testutil.SeedQuestions(t, ctx, f.db, lesson.ID, "A", "B")

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Settle(ctx, user.ID, submission(lesson.ID, qs, "A", "B")); err != nil {
			t.Fatalf("Settle #%d: %v", i+1, err)
		}
	}
	if n := testutil.Count(t, f.db, &models.QuizResult{}, "user_id = ?", user.ID); n != 2 {
		t.Fatalf("results %d want 2", n)
	}
	if n := testutil.Count(t, f.db, &models.Reward{}, "user_id = ?", user.ID); n != 2 {
		t.Fatalf("rewards %d want 2", n)
	}
	if bal := testutil.WalletBalance(t, f.db, user.ID); bal != 8 {
		t.Fatalf("balance %d want 8", bal)
	}
}

func TestConcurrentSettlementsDoNotLoseCredits(t *testing.T) {
	ctx := context.Background()
	f := newFixtureOn(t, testutil.FileDB(t, 4), nil)
	user := testutil.SeedUser(t, ctx, f.db, "race@example.com")
	lesson := testutil.SeedLesson(t, ctx, f.db, "Basics", 1)
	qs := testutil.SeedQuestions(t, ctx, f.db, lesson.ID, "A", "B", "C")

	const submissions = 8
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < submissions; i++ {
		g.Go(func() error {
			_, err := f.svc.Settle(gctx, user.ID, submission(lesson.ID, qs, "A", "B", "C"))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if bal := testutil.WalletBalance(t, f.db, user.ID); bal != submissions*6 {
		t.Fatalf("balance %d want %d", bal, submissions*6)
	}
	if n := testutil.Count(t, f.db, &models.QuizResult{}, "user_id = ?", user.ID); n != submissions {
		t.Fatalf("results %d want %d", n, submissions)
	}
}

func TestSettleRollsBackOnPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, failingRewards{})
	user := testutil.SeedUser(t, ctx, f.db, "fail@example.com")
	lesson := testutil.SeedLesson(t, ctx, f.db, "Basics", 1)
	qs := testutil.SeedQuestions(t, ctx, f.db, lesson.ID, "A")

	_, err := f.svc.Settle(ctx, user.ID, submission(lesson.ID, qs, "A"))
	if !errors.Is(err, apierr.ErrPersistence) {
		t.Fatalf("want persistence error, got %v", err)
	}
	if apierr.Message(err) != "internal error" {
		t.Fatalf("cause leaked to caller: %q", apierr.Message(err))
	}
	if n := testutil.Count(t, f.db, &models.QuizResult{}, "user_id = ?", user.ID); n != 0 {
		t.Fatalf("results %d want 0 after rollback", n)
	}
	if bal := testutil.WalletBalance(t, f.db, user.ID); bal != 0 {
		t.Fatalf("balance %d want 0", bal)
	}
	if len(f.notifier.messages) != 0 {
		t.Fatalf("notified about a rolled back settlement")
	}
}

func TestSettleWithoutWalletRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := &models.User{Name: "NoWallet", Email: "nowallet@example.com", PasswordHash: "pw"}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	lesson := testutil.SeedLesson(t, ctx, f.db, "Basics", 1)
	qs := testutil.SeedQuestions(t, ctx, f.db, lesson.ID, "A")

	_, err := f.svc.Settle(ctx, user.ID, submission(lesson.ID, qs, "A"))
	if !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("want NotFound, got %v", err)
	}
	if n := testutil.Count(t, f.db, &models.QuizResult{}, "user_id = ?", user.ID); n != 0 {
		t.Fatalf("results %d want 0", n)
	}
	if n := testutil.Count(t, f.db, &models.Reward{}, "user_id = ?", user.ID); n != 0 {
		t.Fatalf("rewards %d want 0", n)
	}
}

func TestSettleSurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t, nil)
	user := testutil.SeedUser(t, context.Background(), f.db, "gone@example.com")
	lesson := testutil.SeedLesson(t, context.Background(), f.db, "Basics", 1)
	qs := testutil.SeedQuestions(t, context.Background(), f.db, lesson.ID, "A")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.svc.Settle(ctx, user.ID, submission(lesson.ID, qs, "A")); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if bal := testutil.WalletBalance(t, f.db, user.ID); bal != 2 {
		t.Fatalf("balance %d want 2", bal)
	}
}

type memoryCache struct {
	mu      sync.Mutex
	data    map[uuid.UUID][]models.QuizQuestion
	gets    int
	readErr error
}

func (m *memoryCache) GetLessonQuestions(_ context.Context, id uuid.UUID) ([]models.QuizQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.readErr != nil {
		return nil, m.readErr
	}
	qs, ok := m.data[id]
	if !ok {
		return nil, cache.ErrMiss
	}
	return qs, nil
}

func (m *memoryCache) SetLessonQuestions(_ context.Context, id uuid.UUID, qs []models.QuizQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[uuid.UUID][]models.QuizQuestion)
	}
	m.data[id] = qs
	return nil
}

func (m *memoryCache) InvalidateLessonQuestions(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func TestQuestionBankReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := NewRepository(db, log)
	mc := &memoryCache{}
	bank := NewQuestionBank(repo, mc, log)

	lesson := testutil.SeedLesson(t, ctx, db, "Basics", 1)
	testutil.SeedQuestions(t, ctx, db, lesson.ID, "A", "B")

	if _, err := bank.QuestionsFor(ctx, lesson.ID); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if len(mc.data[lesson.ID]) != 2 {
		t.Fatalf("cache not populated")
	}

	// served from cache even after the rows are gone
	if err := db.Where("lesson_id = ?", lesson.ID).Delete(&models.QuizQuestion{}).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}
	qs, err := bank.QuestionsFor(ctx, lesson.ID)
	if err != nil || len(qs) != 2 {
		t.Fatalf("cached load: %d questions, err %v", len(qs), err)
	}

	bank.Invalidate(ctx, lesson.ID)
	if _, err := bank.QuestionsFor(ctx, lesson.ID); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("after invalidate: want NotFound, got %v", err)
	}
}

func TestQuestionBankFallsBackWhenCacheFails(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := NewRepository(db, log)
	bank := NewQuestionBank(repo, &memoryCache{readErr: errors.New("connection refused")}, log)

	lesson := testutil.SeedLesson(t, ctx, db, "Basics", 1)
	testutil.SeedQuestions(t, ctx, db, lesson.ID, "A")

	qs, err := bank.QuestionsFor(ctx, lesson.ID)
	if err != nil || len(qs) != 1 {
		t.Fatalf("fallback load: %d questions, err %v", len(qs), err)
	}
}
