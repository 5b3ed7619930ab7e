// backend/internal/auth/service.go
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"reads-backend/internal/apierr"
	"reads-backend/internal/models"
	"reads-backend/pkg/dbctx"
	"reads-backend/pkg/logger"
)

const minPasswordLength = 6

// WalletOpener creates the zero-balance wallet every user owns.
type WalletOpener interface {
	Open(dbc dbctx.Context, userID uuid.UUID) error
}

type Service struct {
	db      *gorm.DB
	repo    *Repository
	wallets WalletOpener
	tokens  *TokenIssuer
	log     *logger.Logger
}

func NewService(db *gorm.DB, repo *Repository, wallets WalletOpener, tokens *TokenIssuer, baseLog *logger.Logger) *Service {
	return &Service{
		db:      db,
		repo:    repo,
		wallets: wallets,
		tokens:  tokens,
		log:     baseLog.With("service", "AuthService"),
	}
}

// Signup creates the user and its wallet in one transaction and returns an access token.
func (s *Service) Signup(ctx context.Context, req models.SignupRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" {
		return "", apierr.Validation("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apierr.Validation("a valid email is required")
	}
	if len(req.Password) < minPasswordLength {
		return "", apierr.Validation("password must be at least 6 characters")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	err = dbctx.Transaction(ctx, s.db, func(dbc dbctx.Context) error {
		existing, err := s.repo.GetUserByEmail(dbc, email)
		if err != nil {
			return apierr.Persistence(err)
		}
		if existing != nil {
			return apierr.Conflict("email already registered")
		}
		if err := s.repo.CreateUser(dbc, user); err != nil {
			// a concurrent signup can win the unique index after the lookup
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apierr.Conflict("email already registered")
			}
			return apierr.Persistence(err)
		}
		if err := s.wallets.Open(dbc, user.ID); err != nil {
			return apierr.Persistence(err)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("signup failed", "email", email, "error", err)
		return "", err
	}

	s.log.Info("user signed up", "user_id", user.ID)
	return s.tokens.Issue(user.ID)
}

func (s *Service) Login(ctx context.Context, req models.LoginRequest) (string, error) {
	user, err := s.repo.GetUserByEmail(dbctx.New(ctx), normalizeEmail(req.Email))
	if err != nil {
		return "", apierr.Persistence(err)
	}
	if user == nil {
		return "", apierr.Forbidden("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", apierr.Forbidden("invalid credentials")
	}
	return s.tokens.Issue(user.ID)
}

// Authenticate resolves a bearer token to an existing user id.
func (s *Service) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return uuid.Nil, apierr.Unauthorized("could not validate credentials")
	}
	user, err := s.repo.GetUserByID(dbctx.New(ctx), userID)
	if err != nil {
		return uuid.Nil, apierr.Persistence(err)
	}
	if user == nil {
		return uuid.Nil, apierr.Unauthorized("could not validate credentials")
	}
	return user.ID, nil
}

func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetUserByID(dbctx.New(ctx), userID)
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	if user == nil {
		return nil, apierr.NotFound("user not found")
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
