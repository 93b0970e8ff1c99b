package api

import (
	"github.com/gofiber/fiber/v2"
)

const avatarField = "file"

func (s *Server) me(c *fiber.Ctx) error {
	return c.JSON(newUserResponse(currentUser(c)))
}

func (s *Server) updateAvatar(c *fiber.Ctx) error {
	fh, err := c.FormFile(avatarField)
	if err != nil {
		return unprocessable("file is required")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	user, err := s.users.UpdateAvatar(c.UserContext(), currentUser(c), f)
	if err != nil {
		return translate(err, avatarErrors)
	}

	s.logger.Info(c.UserContext(), "avatar updated", "user_id", user.ID)
	return c.JSON(newUserResponse(user))
}
