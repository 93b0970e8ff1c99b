// Package api exposes the address book over HTTP using fiber.
package api

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/addressbook/internal/logging"
	"github.com/dmitrijs2005/addressbook/internal/server/avatars"
	"github.com/dmitrijs2005/addressbook/internal/server/models"
	"github.com/dmitrijs2005/addressbook/internal/server/services"
)

const defaultShutdownTimeout = 10 * time.Second

type AuthService interface {
	Signup(ctx context.Context, in services.SignupInput, baseURL string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshSession(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	ConfirmEmail(ctx context.Context, token string) (services.ConfirmationStatus, error)
	RequestConfirmation(ctx context.Context, email, baseURL string) (services.ConfirmationStatus, error)
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

type ContactService interface {
	List(ctx context.Context, userID int64) ([]models.Contact, error)
	Get(ctx context.Context, userID, contactID int64) (*models.Contact, error)
	Create(ctx context.Context, userID int64, in models.Contact) (*models.Contact, error)
	Update(ctx context.Context, userID, contactID int64, in models.Contact) (*models.Contact, error)
	Delete(ctx context.Context, userID, contactID int64) (*models.Contact, error)
	Search(ctx context.Context, userID int64, query string) ([]models.Contact, error)
	UpcomingBirthdays(ctx context.Context, userID int64) ([]models.Contact, error)
}

type UserService interface {
	UpdateAvatar(ctx context.Context, user *models.User, image io.Reader) (*models.User, error)
}

// Options holds the transport settings of the HTTP server.
type Options struct {
	Address         string
	RateLimitMax    int
	RateLimitWindow time.Duration
	// LimiterStorage keeps rate-limit counters; nil means process memory.
	LimiterStorage  fiber.Storage
	ShutdownTimeout time.Duration
}

type Server struct {
	opts     Options
	logger   logging.Logger
	auth     AuthService
	contacts ContactService
	users    UserService
	validate *validator.Validate
	app      *fiber.App
}

func NewServer(opts Options, l logging.Logger, as AuthService, cs ContactService, us UserService) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		opts:     opts,
		logger:   l.With("module", "http_server"),
		auth:     as,
		contacts: cs,
		users:    us,
		validate: newValidator(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "addressbook",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
		// multipart overhead on top of the largest accepted image
		BodyLimit: avatars.MaxUploadBytes + 1<<20,
	})
	s.routes()

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down within ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {

	stopped := make(chan error, 1)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		// ctx is already done here
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		stopped <- s.app.ShutdownWithContext(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Address)

	if err := s.app.Listen(s.opts.Address); err != nil {
		return err
	}

	// Listen returns nil only once shutdown has begun
	if err := <-stopped; err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn(ctx, "HTTP server shutdown timed out")
			return nil
		}
		return err
	}

	return nil
}
