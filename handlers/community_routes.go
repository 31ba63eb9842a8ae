package handlers

import (
	"errors"

	"lore-governance-system/middleware"
	"lore-governance-system/models"
	"lore-governance-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupCommunityRoutes wires the proposal lifecycle endpoints. Read routes
// are public (behind gateway auth); everything that mutates requires the
// gateway user context.
func SetupCommunityRoutes(
	app *fiber.App,
	workflow *services.WorkflowService,
	users *services.UserService,
) {
	app.Get("/proposals", func(c *fiber.Ctx) error {
		status := models.ProposalStatus(c.Query("status"))
		proposals, err := workflow.ListProposals(status, c.QueryInt("limit"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"proposals": proposals, "count": len(proposals)})
	})

	app.Get("/proposals/:id", func(c *fiber.Ctx) error {
		proposal, votes, tally, err := workflow.GetProposal(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"proposal": proposal,
			"votes":    votes,
			"tally":    tally,
		})
	})

	secured := app.Group("/s", middleware.UserContext())

	secured.Post("/proposals", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		if _, err := users.EnsureUser(userID, c.Get("X-User-Name")); err != nil {
			return fail(c, err)
		}

		var req services.SubmitRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		proposal, err := workflow.Submit(userID, req)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(proposal)
	})

	secured.Post("/proposals/:id/votes", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		if _, err := users.EnsureUser(userID, c.Get("X-User-Name")); err != nil {
			return fail(c, err)
		}

		var body struct {
			Decision models.VoteDecision `json:"decision"`
			Comment  string              `json:"comment"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		switch body.Decision {
		case models.VoteApprove, models.VoteReject, models.VoteAbstain:
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "decision must be approve, reject or abstain",
			})
		}

		vote, err := workflow.CastVote(c.Params("id"), userID, body.Decision, body.Comment)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(vote)
	})

	secured.Post("/proposals/:id/helpful", func(c *fiber.Ctx) error {
		if err := workflow.MarkEditHelpful(c.Params("id"), middleware.UserID(c)); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	secured.Post("/proposals/:id/reference", func(c *fiber.Ctx) error {
		if err := workflow.MarkEditReferenced(c.Params("id"), middleware.UserID(c)); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	secured.Post("/disputes", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		if _, err := users.EnsureUser(userID, c.Get("X-User-Name")); err != nil {
			return fail(c, err)
		}

		var body struct {
			ContentID     string                  `json:"content_id"`
			AgainstUserID string                  `json:"against_user_id"`
			Summary       string                  `json:"summary"`
			Changes       []models.ProposalChange `json:"changes"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		proposal, err := workflow.InitiateDispute(userID, body.ContentID, body.AgainstUserID, body.Summary, body.Changes)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(proposal)
	})

	secured.Post("/proposals/:id/perks", func(c *fiber.Ctx) error {
		var body struct {
			Perk string `json:"perk"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := workflow.PurchasePerk(middleware.UserID(c), body.Perk, c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "ok", "perk": body.Perk})
	})

	admin := secured.Group("/admin", requireRole("admin"))

	admin.Post("/proposals/:id/resolve", func(c *fiber.Ctx) error {
		err := workflow.Resolve(c.Params("id"))
		if err != nil && !errors.Is(err, services.ErrAlreadyResolved) {
			return fail(c, err)
		}
		proposal, _, tally, err := workflow.GetProposal(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"proposal": proposal, "tally": tally})
	})

	admin.Post("/proposals/:id/archive", func(c *fiber.Ctx) error {
		if err := workflow.AdminArchive(c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "archived"})
	})
}

func requireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !middleware.HasRole(c, role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "insufficient role",
			})
		}
		return c.Next()
	}
}
