package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/addressbook/internal/common"
	"github.com/dmitrijs2005/addressbook/internal/dbx"
	"github.com/dmitrijs2005/addressbook/internal/server/avatars"
)

const (
	detailCredentials = "Could not validate credentials"
	detailInternal    = "internal error"
)

// errorRule maps a matching service error to a response.
type errorRule struct {
	match  func(error) bool
	status int
	detail string
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

var (
	signupErrors = []errorRule{
		{is(common.ErrAlreadyExists), fiber.StatusConflict, "Account already exists"},
	}

	loginErrors = []errorRule{
		{is(common.ErrorNotFound), fiber.StatusUnauthorized, "Invalid email"},
		{is(common.ErrNotConfirmed), fiber.StatusUnauthorized, "Email not confirmed"},
		{is(common.ErrBadCredential), fiber.StatusUnauthorized, "Invalid password"},
	}

	refreshErrors = []errorRule{
		{is(common.ErrInvalidToken), fiber.StatusUnauthorized, detailCredentials},
		{is(common.ErrInvalidScope), fiber.StatusUnauthorized, "Invalid scope for token"},
		{is(common.ErrInvalidSession), fiber.StatusUnauthorized, "Invalid refresh token"},
	}

	confirmErrors = []errorRule{
		{is(common.ErrInvalidToken), fiber.StatusUnprocessableEntity, "Invalid token for email verification"},
		{is(common.ErrVerification), fiber.StatusBadRequest, "Verification error"},
	}

	requestEmailErrors = []errorRule{
		{is(common.ErrorNotFound), fiber.StatusNotFound, "User not found"},
	}

	contactErrors = []errorRule{
		{dbx.IsUniqueViolation, fiber.StatusConflict, "Contact already exists"},
	}

	avatarErrors = []errorRule{
		{is(avatars.ErrInvalidImage), fiber.StatusUnprocessableEntity, "Invalid image"},
	}
)

// translate returns the fiber error of the first matching rule, or err itself.
func translate(err error, rules []errorRule) error {
	for _, r := range rules {
		if r.match(err) {
			return fiber.NewError(r.status, r.detail)
		}
	}
	return err
}

func unauthenticated() error {
	return fiber.NewError(fiber.StatusUnauthorized, detailCredentials)
}

func notFound(detail string) error {
	return fiber.NewError(fiber.StatusNotFound, detail)
}

func unprocessable(detail string) error {
	return fiber.NewError(fiber.StatusUnprocessableEntity, detail)
}

// validationError flattens validator output into one readable detail.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return unprocessable(err.Error())
	}

	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return unprocessable(strings.Join(parts, "; "))
}

// errorHandler renders every error as {"detail": "..."}. Errors that are not
// *fiber.Error are logged and hidden behind a 500.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	detail := detailInternal

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		detail = fe.Message
	} else {
		s.logger.Error(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
	}

	if code == fiber.StatusUnauthorized && detail == detailCredentials {
		c.Set(fiber.HeaderWWWAuthenticate, common.BearerScheme)
	}

	return c.Status(code).JSON(fiber.Map{"detail": detail})
}
