package routes

import (
	"github.com/gofiber/fiber/v2"

	"stream-analytics-service/internal/controller"
)

// Register attaches all HTTP routes to the Fiber app.
func Register(app *fiber.App, eventController controller.EventController) {
	app.Post("/events", eventController.CreateEvent)

	analytics := app.Group("/analytics")
	analytics.Post("/tips", eventController.GetTotalTips)
	analytics.Post("/chatters", eventController.GetTopChatters)
	analytics.Post("/tippers", eventController.GetTopTippers)
	analytics.Post("/search", eventController.Search)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
