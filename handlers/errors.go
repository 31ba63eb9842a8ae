package handlers

import (
	"errors"

	"lore-governance-system/services"

	"github.com/gofiber/fiber/v2"
)

// fail maps service errors onto HTTP responses. Validation errors carry the
// full list of violated rules so the client can show them all at once.
func fail(c *fiber.Ctx, err error) error {
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "proposal failed validation",
			"rules": vErr.Rules,
		})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrProposalNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrDuplicateVote),
		errors.Is(err, services.ErrAlreadyResolved),
		errors.Is(err, services.ErrVotingClosed),
		errors.Is(err, services.ErrContentLocked),
		errors.Is(err, services.ErrSelfVote),
		errors.Is(err, services.ErrSelfAction):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrInsufficientReputation),
		errors.Is(err, services.ErrTierFeature),
		errors.Is(err, services.ErrNotProposer):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrInsufficientBalance):
		status = fiber.StatusPaymentRequired
	case errors.Is(err, services.ErrUnknownPerk):
		status = fiber.StatusBadRequest
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
