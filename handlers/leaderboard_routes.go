package handlers

import (
	"time"

	"lore-governance-system/middleware"
	"lore-governance-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupLeaderboardRoutes wires the ranking snapshot and community stats
// endpoints.
func SetupLeaderboardRoutes(app *fiber.App, leaderboard *services.LeaderboardService) {
	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		entries, err := leaderboard.Top(c.QueryInt("limit"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"entries": entries, "count": len(entries)})
	})

	app.Get("/community/stats", func(c *fiber.Ctx) error {
		stats, err := leaderboard.Stats(time.Now())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(stats)
	})

	secured := app.Group("/s", middleware.UserContext())

	secured.Get("/leaderboard/me", func(c *fiber.Ctx) error {
		entry, err := leaderboard.EntryFor(middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(entry)
	})
}
