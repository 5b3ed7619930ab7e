package lesson

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"reads-backend/internal/models"
	"reads-backend/pkg/dbctx"
	"reads-backend/pkg/logger"
)

type Catalog struct {
	Lessons []CatalogLesson `yaml:"lessons"`
}

type CatalogLesson struct {
	Category   string            `yaml:"category"`
	Title      string            `yaml:"title"`
	Content    string            `yaml:"content"`
	VideoURL   string            `yaml:"video_url"`
	OrderIndex int               `yaml:"order_index"`
	Questions  []CatalogQuestion `yaml:"questions"`
}

type CatalogQuestion struct {
	Question      string          `yaml:"question"`
	Options       []models.Option `yaml:"options"`
	CorrectOption string          `yaml:"correct_option"`
}

// ParseCatalog decodes a YAML catalog and checks every question against the
// QuizQuestion invariants before anything is written.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for i, l := range c.Lessons {
		if strings.TrimSpace(l.Category) == "" || strings.TrimSpace(l.Title) == "" {
			return nil, fmt.Errorf("lesson %d: category and title are required", i)
		}
		for j, q := range l.Questions {
			qq := models.NewQuizQuestion(uuid.Nil, q.Question, q.Options, q.CorrectOption)
			if err := qq.Validate(); err != nil {
				return nil, fmt.Errorf("lesson %q question %d: %w", l.Title, j+1, err)
			}
		}
	}
	return &c, nil
}

type QuestionStore interface {
	DeleteQuestionsByLesson(dbc dbctx.Context, lessonID uuid.UUID) error
	CreateQuestion(dbc dbctx.Context, question *models.QuizQuestion) error
}

type QuestionInvalidator interface {
	Invalidate(ctx context.Context, lessonID uuid.UUID)
}

type Seeder struct {
	db          *gorm.DB
	lessons     *Repository
	questions   QuestionStore
	invalidator QuestionInvalidator
	log         *logger.Logger
}

// NewSeeder builds a catalog loader. invalidator may be nil.
func NewSeeder(db *gorm.DB, lessons *Repository, questions QuestionStore, invalidator QuestionInvalidator, baseLog *logger.Logger) *Seeder {
	return &Seeder{
		db:          db,
		lessons:     lessons,
		questions:   questions,
		invalidator: invalidator,
		log:         baseLog.With("service", "CatalogSeeder"),
	}
}

// Apply upserts each lesson by (category, title) and replaces its question
// set. The whole catalog is one transaction.
func (s *Seeder) Apply(ctx context.Context, c *Catalog) (int, error) {
	var touched []uuid.UUID
	err := dbctx.Transaction(ctx, s.db, func(dbc dbctx.Context) error {
		for _, cl := range c.Lessons {
			l, err := s.lessons.FindLesson(dbc, cl.Category, cl.Title)
			if err != nil {
				return err
			}
			isNew := l == nil
			if isNew {
				l = &models.Lesson{Category: cl.Category, Title: cl.Title}
			}
			l.Content = cl.Content
			l.OrderIndex = cl.OrderIndex
			l.VideoURL = nil
			if cl.VideoURL != "" {
				url := cl.VideoURL
				l.VideoURL = &url
			}
			save := s.lessons.SaveLesson
			if isNew {
				save = s.lessons.CreateLesson
			}
			if err := save(dbc, l); err != nil {
				return fmt.Errorf("save lesson %q: %w", cl.Title, err)
			}

			if err := s.questions.DeleteQuestionsByLesson(dbc, l.ID); err != nil {
				return err
			}
			for i, cq := range cl.Questions {
				q := models.NewQuizQuestion(l.ID, cq.Question, cq.Options, cq.CorrectOption)
				q.Position = i
				if err := s.questions.CreateQuestion(dbc, &q); err != nil {
					return fmt.Errorf("save question %d of %q: %w", i+1, cl.Title, err)
				}
			}
			touched = append(touched, l.ID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.invalidator != nil {
		for _, id := range touched {
			s.invalidator.Invalidate(ctx, id)
		}
	}
	s.log.Info("catalog applied", "lessons", len(touched))
	return len(touched), nil
}
