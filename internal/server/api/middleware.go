package api

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrijs2005/addressbook/internal/common"
	"github.com/dmitrijs2005/addressbook/internal/server/models"
)

const (
	userKey       = "user"
	requestIDKey  = "request_id"
	requestHeader = "X-Request-ID"
)

var (
	httpRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addressbook_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "addressbook_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)
)

// statusOf returns the status the error handler will write for err.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var e *fiber.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return fiber.StatusInternalServerError
}

// requestLogger tags the request with an ID and logs one line when it is done.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	id := c.Get(requestHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals(requestIDKey, id)
	c.Set(requestHeader, id)

	start := time.Now()
	err := c.Next()

	s.logger.Info(c.UserContext(), "request",
		"request_id", id,
		"method", c.Method(),
		"path", c.Path(),
		"status", statusOf(c, err),
		"duration", time.Since(start),
	)
	return err
}

// metrics labels by route pattern so path parameters do not explode the
// label set.
func metrics(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	path := c.Route().Path
	status := strconv.Itoa(statusOf(c, err))

	httpRequestTotal.WithLabelValues(c.Method(), path, status).Inc()
	httpRequestDuration.WithLabelValues(c.Method(), path, status).Observe(time.Since(start).Seconds())

	return err
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *fiber.Ctx) (string, bool) {
	scheme, token, ok := strings.Cut(c.Get(common.AuthorizationHeaderName), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// requireUser resolves the access token owner and stores it in Locals.
func (s *Server) requireUser(c *fiber.Ctx) error {
	token, ok := bearerToken(c)
	if !ok {
		return unauthenticated()
	}

	user, err := s.auth.CurrentUser(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthenticated) {
			return unauthenticated()
		}
		return err
	}

	c.Locals(userKey, user)
	return c.Next()
}

func currentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(userKey).(*models.User)
	return u
}
