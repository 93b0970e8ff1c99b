package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/addressbook/internal/server/services"
)

const signupDetail = "User successfully created. Check your email for confirmation."

// bind parses the request body into dst and validates it.
func (s *Server) bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return unprocessable("Cannot parse request body")
	}
	if err := s.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// baseURL is the externally visible root of this server, ending in a slash.
func baseURL(c *fiber.Ctx) string {
	return c.BaseURL() + "/"
}

func (s *Server) signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	user, err := s.auth.Signup(c.UserContext(), services.SignupInput{
		UserName: req.UserName,
		Email:    req.Email,
		Password: req.Password,
	}, baseURL(c))
	if err != nil {
		return translate(err, signupErrors)
	}

	s.logger.Info(c.UserContext(), "Registered", "username", user.UserName)
	return c.Status(fiber.StatusCreated).JSON(signupResponse{
		User:   newUserResponse(user),
		Detail: signupDetail,
	})
}

func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	pair, err := s.auth.Login(c.UserContext(), req.UserName, req.Password)
	if err != nil {
		return translate(err, loginErrors)
	}
	return c.JSON(newTokenResponse(pair))
}

func (s *Server) refreshToken(c *fiber.Ctx) error {
	token, ok := bearerToken(c)
	if !ok {
		return unauthenticated()
	}

	pair, err := s.auth.RefreshSession(c.UserContext(), token)
	if err != nil {
		return translate(err, refreshErrors)
	}
	return c.JSON(newTokenResponse(pair))
}

func (s *Server) confirmedEmail(c *fiber.Ctx) error {
	status, err := s.auth.ConfirmEmail(c.UserContext(), c.Params("token"))
	if err != nil {
		return translate(err, confirmErrors)
	}
	return c.JSON(messageResponse{Message: status.Message()})
}

func (s *Server) requestEmail(c *fiber.Ctx) error {
	var req requestEmailRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	status, err := s.auth.RequestConfirmation(c.UserContext(), req.Email, baseURL(c))
	if err != nil {
		return translate(err, requestEmailErrors)
	}
	return c.JSON(messageResponse{Message: status.Message()})
}
