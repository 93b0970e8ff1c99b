// Package server initializes and runs the address book server.
// It opens the database and applies migrations, wires the services to the
// HTTP API, runs the confirmation mail worker and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gofiber/fiber/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/addressbook/internal/logging"
	"github.com/dmitrijs2005/addressbook/internal/server/api"
	"github.com/dmitrijs2005/addressbook/internal/server/auth"
	"github.com/dmitrijs2005/addressbook/internal/server/avatars"
	"github.com/dmitrijs2005/addressbook/internal/server/config"
	"github.com/dmitrijs2005/addressbook/internal/server/notify"
	"github.com/dmitrijs2005/addressbook/internal/server/ratelimit"
	"github.com/dmitrijs2005/addressbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/addressbook/internal/server/services"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	queue   *notify.Queue
	server  *api.Server
	closers []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	if err := db.PingContext(ctx); err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.close(ctx)
		return nil, err
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:     []byte(c.SecretKey),
		Algorithm:  c.Algorithm,
		AccessTTL:  c.AccessTokenValidityDuration,
		RefreshTTL: c.RefreshTokenValidityDuration,
	})
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	var deliverer notify.Deliverer
	if c.SendGridAPIKey == "" {
		logger.Warn(ctx, "SendGrid API key not set, confirmation mails are only logged")
		deliverer = notify.NewLogMailer(logger)
	} else {
		deliverer = notify.NewSendGridMailer(c.SendGridAPIKey, c.MailFrom, c.MailFromName, logger)
	}
	app.queue = notify.NewQueue(notify.DefaultQueueSize, deliverer, logger)

	var limiterStorage fiber.Storage
	if c.RedisURL != "" {
		client, err := ratelimit.NewRedisClient(c.RedisURL)
		if err != nil {
			app.close(ctx)
			return nil, err
		}
		storage := ratelimit.NewRedisStorage(client)
		app.closers = append(app.closers, storage)
		limiterStorage = storage
	}

	store, err := avatars.NewS3Store(ctx, avatars.S3Config{
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
		PublicURL:    c.S3PublicURL,
	})
	if err != nil {
		app.close(ctx)
		return nil, err
	}
	// uploads fail until storage is reachable, the rest of the API still works
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Warn(ctx, "avatar bucket not ready", "bucket", c.S3Bucket, "error", err)
	}

	authService := services.NewAuthService(db, rm, tokens, auth.NewHasher(), app.queue, logger)
	contactService := services.NewContactService(db, rm)
	userService := services.NewUserService(db, rm, store)

	app.server = api.NewServer(api.Options{
		Address:         c.EndpointAddrHTTP,
		RateLimitMax:    c.RateLimitMax,
		RateLimitWindow: c.RateLimitWindow,
		LimiterStorage:  limiterStorage,
		ShutdownTimeout: c.ShutdownTimeout,
	}, logger, authService, contactService, userService)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a shutdown signal arrives or the HTTP server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	serveWithQueue(ctx, app.queue, func(ctx context.Context) {
		app.startHTTPServer(ctx, cancelFunc)
	})

	app.close(ctx)
	app.logger.Info(ctx, "App stopped")
}

// serveWithQueue runs serve and the mail worker together. The worker is
// stopped only after serve returns, so mails enqueued by requests still in
// flight during the HTTP drain are delivered.
func serveWithQueue(ctx context.Context, q *notify.Queue, serve func(context.Context)) {
	queueCtx, stopQueue := context.WithCancel(context.WithoutCancel(ctx))
	defer stopQueue()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Run(queueCtx)
	}()

	serve(ctx)
	stopQueue()
	wg.Wait()
}

func (app *App) close(ctx context.Context) {
	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			app.logger.Warn(ctx, "close error", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(ctx, "db close error", "error", err)
		}
	}
}
