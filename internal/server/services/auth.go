// Package services contains server-side business logic. This file implements
// AuthService, which handles signup, login, session refresh and email
// confirmation on top of the user directory and the token service.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/addressbook/internal/common"
	"github.com/dmitrijs2005/addressbook/internal/dbx"
	"github.com/dmitrijs2005/addressbook/internal/logging"
	"github.com/dmitrijs2005/addressbook/internal/server/auth"
	"github.com/dmitrijs2005/addressbook/internal/server/models"
	"github.com/dmitrijs2005/addressbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/addressbook/internal/timex"
)

const confirmPath = "api/auth/confirmed_email/"

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

// ConfirmationStatus is the non-error outcome of the confirmation flows.
type ConfirmationStatus int

const (
	EmailConfirmed ConfirmationStatus = iota + 1
	AlreadyConfirmed
	ConfirmationSent
)

func (s ConfirmationStatus) Message() string {
	switch s {
	case EmailConfirmed:
		return "Email confirmed"
	case AlreadyConfirmed:
		return "Your email is already confirmed"
	case ConfirmationSent:
		return "Check your email for confirmation."
	default:
		return ""
	}
}

type SignupInput struct {
	UserName string
	Email    string
	Password string
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// ConfirmationSender delivers confirmation links. Implementations must not
// block the caller for long.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, mail models.ConfirmationMail) error
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	hasher      PasswordHasher
	mailer      ConfirmationSender
	log         logging.Logger
	clock       func() time.Time
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService,
	hasher PasswordHasher, mailer ConfirmationSender, log logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		hasher:      hasher,
		mailer:      mailer,
		log:         log.With("module", "auth"),
		clock:       timex.UTCNow,
	}
}

// Signup registers an unconfirmed user and sends a confirmation link built
// from baseURL, which must end with a slash.
func (s *AuthService) Signup(ctx context.Context, in SignupInput, baseURL string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByEmail(ctx, in.Email)
	if err == nil {
		return nil, common.ErrAlreadyExists
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	avatar := auth.GravatarURL(in.Email)
	user, err := repo.Create(ctx, &models.User{
		UserName: in.UserName,
		Email:    in.Email,
		Password: hash,
		Avatar:   &avatar,
	})
	if err != nil {
		// lost a race with a concurrent signup
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user created", "user_id", user.ID)
	s.sendConfirmation(ctx, user, baseURL)
	return user, nil
}

// Login checks credentials and starts a new session. The new refresh token
// replaces whatever was stored before.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}
	if !user.Confirmed {
		return nil, common.ErrNotConfirmed
	}
	if !s.hasher.Verify(password, user.Password) {
		return nil, common.ErrBadCredential
	}

	pair, err := s.issuePair(user.Email)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}
	return pair, nil
}

// RefreshSession rotates the refresh token. Presenting anything but the
// currently stored token revokes the session.
func (s *AuthService) RefreshSession(ctx context.Context, refreshToken string) (*TokenPair, error) {
	email, err := s.tokens.DecodeRefreshToken(refreshToken, s.clock())
	if err != nil {
		return nil, err
	}

	var pair *TokenPair
	revoked := false

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByEmailForUpdate(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidSession
			}
			return fmt.Errorf("error looking up user: %w", err)
		}

		if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
			// commit the revocation, report the failure after the tx
			revoked = true
			return repo.UpdateRefreshToken(ctx, user.ID, nil)
		}

		pair, err = s.issuePair(user.Email)
		if err != nil {
			return err
		}
		return repo.UpdateRefreshToken(ctx, user.ID, &pair.RefreshToken)
	})
	if err != nil {
		return nil, err
	}
	if revoked {
		s.log.Warn(ctx, "refresh token reuse, session revoked", "email", email)
		return nil, common.ErrInvalidSession
	}
	return pair, nil
}

func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (ConfirmationStatus, error) {
	email, err := s.tokens.DecodeConfirmationToken(token, s.clock())
	if err != nil {
		return 0, common.ErrInvalidToken
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, common.ErrVerification
		}
		return 0, fmt.Errorf("error looking up user: %w", err)
	}
	if user.Confirmed {
		return AlreadyConfirmed, nil
	}

	if err := repo.ConfirmEmail(ctx, email); err != nil {
		return 0, fmt.Errorf("error confirming email: %w", err)
	}
	return EmailConfirmed, nil
}

// RequestConfirmation re-sends the confirmation link for an unconfirmed user.
func (s *AuthService) RequestConfirmation(ctx context.Context, email, baseURL string) (ConfirmationStatus, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("error looking up user: %w", err)
	}
	if user.Confirmed {
		return AlreadyConfirmed, nil
	}

	s.sendConfirmation(ctx, user, baseURL)
	return ConfirmationSent, nil
}

// CurrentUser resolves the owner of an access token. Every failure is
// reported as common.ErrorUnauthenticated.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	email, err := s.tokens.AuthenticateAccessToken(accessToken, s.clock())
	if err != nil {
		return nil, common.ErrorUnauthenticated
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Error(ctx, "current user lookup failed", "error", err)
		}
		return nil, common.ErrorUnauthenticated
	}
	return user, nil
}

func (s *AuthService) issuePair(email string) (*TokenPair, error) {
	now := s.clock()

	access, err := s.tokens.IssueAccessToken(email, now, 0)
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(email, now, 0)
	if err != nil {
		return nil, fmt.Errorf("error issuing refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// sendConfirmation never fails the calling operation; delivery problems are
// logged.
func (s *AuthService) sendConfirmation(ctx context.Context, user *models.User, baseURL string) {
	token, err := s.tokens.IssueConfirmationToken(user.Email, s.clock())
	if err != nil {
		s.log.Error(ctx, "issue confirmation token", "error", err)
		return
	}

	mail := models.ConfirmationMail{
		To:       user.Email,
		UserName: user.UserName,
		Link:     baseURL + confirmPath + token,
	}
	if err := s.mailer.SendConfirmation(ctx, mail); err != nil {
		s.log.Warn(ctx, "confirmation mail not queued", "email", user.Email, "error", err)
	}
}
