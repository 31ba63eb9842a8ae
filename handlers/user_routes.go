package handlers

import (
	"lore-governance-system/middleware"
	"lore-governance-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupUserRoutes wires the community-profile endpoints: profile with derived
// tier, ledger history, login bonus, and the notification feed.
func SetupUserRoutes(
	app *fiber.App,
	users *services.UserService,
	ledger *services.LedgerService,
	workflow *services.WorkflowService,
	notifications *services.NotificationService,
) {
	secured := app.Group("/s", middleware.UserContext())

	secured.Get("/me", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		user, err := users.EnsureUser(userID, c.Get("X-User-Name"))
		if err != nil {
			return fail(c, err)
		}
		badges, err := users.Badges(userID)
		if err != nil {
			return fail(c, err)
		}

		tier := services.TierFor(user.Reputation)
		return c.JSON(fiber.Map{
			"user":          user,
			"tier":          tier.String(),
			"voting_weight": services.VotingWeight(tier),
			"badges":        badges,
		})
	})

	secured.Get("/me/transactions", func(c *fiber.Ctx) error {
		txs, err := ledger.Transactions(middleware.UserID(c), c.QueryInt("limit"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"transactions": txs, "count": len(txs)})
	})

	secured.Post("/me/login-bonus", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		if _, err := users.EnsureUser(userID, c.Get("X-User-Name")); err != nil {
			return fail(c, err)
		}
		credited, err := workflow.RecordDailyLogin(userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"credited": credited})
	})

	secured.Get("/me/notifications", func(c *fiber.Ctx) error {
		list, err := notifications.ListForUser(middleware.UserID(c), c.QueryInt("limit"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"notifications": list, "count": len(list)})
	})

	secured.Post("/me/notifications/read", func(c *fiber.Ctx) error {
		if err := notifications.MarkAllRead(middleware.UserID(c)); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	secured.Get("/me/notifications/stream", notifications.StreamSSE)
}
