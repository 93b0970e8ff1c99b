package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	detailContactNotFound = "Contact not found"
	detailNothingFound    = "Nothing found"
)

func contactID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("contact_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, unprocessable("contact_id must be a positive integer")
	}
	return id, nil
}

func (s *Server) listContacts(c *fiber.Ctx) error {
	cs, err := s.contacts.List(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(newContactList(cs))
}

func (s *Server) getContact(c *fiber.Ctx) error {
	id, err := contactID(c)
	if err != nil {
		return err
	}

	contact, err := s.contacts.Get(c.UserContext(), currentUser(c).ID, id)
	if err != nil {
		return err
	}
	if contact == nil {
		return notFound(detailContactNotFound)
	}
	return c.JSON(newContactResponse(contact))
}

func (s *Server) createContact(c *fiber.Ctx) error {
	var req contactRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	if _, err := s.contacts.Create(c.UserContext(), currentUser(c).ID, req.toModel()); err != nil {
		return translate(err, contactErrors)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"detail": "Contact successfully created"})
}

func (s *Server) updateContact(c *fiber.Ctx) error {
	id, err := contactID(c)
	if err != nil {
		return err
	}
	var req contactRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	contact, err := s.contacts.Update(c.UserContext(), currentUser(c).ID, id, req.toModel())
	if err != nil {
		return translate(err, contactErrors)
	}
	if contact == nil {
		return notFound(detailContactNotFound)
	}
	return c.JSON(newContactResponse(contact))
}

func (s *Server) deleteContact(c *fiber.Ctx) error {
	id, err := contactID(c)
	if err != nil {
		return err
	}

	contact, err := s.contacts.Delete(c.UserContext(), currentUser(c).ID, id)
	if err != nil {
		return err
	}
	if contact == nil {
		return notFound(detailContactNotFound)
	}
	return c.JSON(fiber.Map{"detail": "Contact successfully deleted"})
}

func (s *Server) searchContacts(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return unprocessable("query is required")
	}

	cs, err := s.contacts.Search(c.UserContext(), currentUser(c).ID, query)
	if err != nil {
		return err
	}
	if len(cs) == 0 {
		return notFound(detailNothingFound)
	}
	return c.JSON(newContactList(cs))
}

func (s *Server) upcomingBirthdays(c *fiber.Ctx) error {
	cs, err := s.contacts.UpcomingBirthdays(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(newContactList(cs))
}
