package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/addressbook/internal/server/ratelimit"
)

func (s *Server) routes() {
	app := s.app

	app.Use(s.requestLogger)
	app.Use(metrics)
	app.Use(cors.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(messageResponse{Message: "Hello World"})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/signup", s.signup)
	authRoutes.Post("/login", s.login)
	authRoutes.Get("/refresh_token", s.refreshToken)
	authRoutes.Get("/confirmed_email/:token", s.confirmedEmail)
	authRoutes.Post("/request_email", s.requestEmail)

	contactRoutes := api.Group("/contacts", s.requireUser)
	contactRoutes.Get("/get_all", s.listContacts)
	contactRoutes.Get("/get/:contact_id", s.getContact)
	contactRoutes.Post("/create",
		ratelimit.Middleware(s.opts.RateLimitMax, s.opts.RateLimitWindow, s.opts.LimiterStorage),
		s.createContact)
	contactRoutes.Put("/update/:contact_id", s.updateContact)
	contactRoutes.Delete("/delete/:contact_id", s.deleteContact)
	contactRoutes.Get("/search", s.searchContacts)
	contactRoutes.Get("/search_birthdays", s.upcomingBirthdays)

	userRoutes := api.Group("/users", s.requireUser)
	userRoutes.Get("/me/", s.me)
	userRoutes.Patch("/avatar", s.updateAvatar)
}
