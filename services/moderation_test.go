package services

import (
	"strings"
	"testing"

	"lore-governance-system/config"
	"lore-governance-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSubmission(t *testing.T) {
	cfg := config.DefaultCommunityConfig()
	svc := NewModerationService(&cfg.Moderation)

	valid := []models.ProposalChange{
		{Field: "description", NewValue: "A thorough rewrite of the region's founding history."},
	}

	t.Run("valid submission passes", func(t *testing.T) {
		assert.NoError(t, svc.ValidateSubmission(models.ProposalTypeLocation, "Fix the founding year", valid))
	})

	t.Run("empty change list", func(t *testing.T) {
		err := svc.ValidateSubmission(models.ProposalTypeLocation, "Fix", nil)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("all violations reported together", func(t *testing.T) {
		changes := []models.ProposalChange{
			{Field: "title", NewValue: strings.Repeat("x", 201)},
			{Field: "description", NewValue: "too short"},
		}
		err := svc.ValidateSubmission(models.ProposalTypeLocation, "Buy now, great deals!", changes)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Len(t, vErr.Rules, 3)
	})

	t.Run("spam patterns", func(t *testing.T) {
		changes := []models.ProposalChange{
			{Field: "description", NewValue: "Visit our casino for the best lore in the realm!!"},
		}
		err := svc.ValidateSubmission(models.ProposalTypeLocation, "Innocent summary", changes)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("note length bounds apply to notes only", func(t *testing.T) {
		short := []models.ProposalChange{{Field: "content", NewValue: "short note"}}

		err := svc.ValidateSubmission(models.ProposalTypeNote, "Add a note", short)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)

		// The same change on a location edit is not a note body.
		assert.NoError(t, svc.ValidateSubmission(models.ProposalTypeLocation, "Edit content", short))
	})
}
