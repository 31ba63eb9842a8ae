package services

import (
	"fmt"

	"lore-governance-system/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BadgeService evaluates the static catalog's unlock conditions against a
// user's stats snapshot. Awarding is idempotent: a badge already held is
// never re-awarded, backed by the unique (user, badge) index.
type BadgeService struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewBadgeService(db *gorm.DB, notifier Notifier) *BadgeService {
	return &BadgeService{DB: db, Notifier: notifier}
}

// SeedCatalog upserts the badge catalog into the DB (idempotent).
func (s *BadgeService) SeedCatalog() error {
	catalog := make([]models.BadgeType, len(models.BadgeCatalog))
	copy(catalog, models.BadgeCatalog)
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&catalog).Error
}

// Evaluate checks every catalog entry the user does not hold yet against the
// stats snapshot and awards the newly unlocked ones. Called after every
// reputation-affecting event.
func (s *BadgeService) Evaluate(user *models.CommunityUser) ([]models.BadgeType, error) {
	var held []string
	if err := s.DB.Model(&models.UserBadge{}).
		Where("user_id = ?", user.ID).
		Pluck("badge_code", &held).Error; err != nil {
		return nil, err
	}
	heldSet := make(map[string]bool, len(held))
	for _, code := range held {
		heldSet[code] = true
	}

	var awarded []models.BadgeType
	for _, entry := range models.BadgeCatalog {
		if heldSet[entry.Code] {
			continue
		}
		if !meetsThreshold(user, entry.Threshold) {
			continue
		}

		userBadge := models.UserBadge{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			BadgeCode: entry.Code,
		}
		if err := s.DB.Create(&userBadge).Error; err != nil {
			// A concurrent evaluation may have just awarded it; the unique
			// index keeps the at-most-once invariant either way.
			log.WithFields(log.Fields{"user": user.ID, "badge": entry.Code}).
				WithError(err).Warn("badge award skipped")
			continue
		}
		awarded = append(awarded, entry)

		if s.Notifier != nil {
			msg := fmt.Sprintf("%s %s — %s", entry.Icon, entry.Name, entry.Description)
			s.Notifier.Notify(user.ID, EventBadgeReceived, msg, nil)
			if entry.Rarity == models.RarityLegendary {
				s.Notifier.Notify(user.ID, EventAchievementUnlocked, msg, nil)
			}
		}
		log.WithFields(log.Fields{"user": user.ID, "badge": entry.Code}).Info("badge awarded")
	}
	return awarded, nil
}

func meetsThreshold(user *models.CommunityUser, req map[string]int64) bool {
	for key, required := range req {
		switch key {
		case "approved_edits":
			if user.ApprovedEdits < required {
				return false
			}
		case "helpful_votes":
			if user.HelpfulVotesReceived < required {
				return false
			}
		case "location_edits":
			if user.LocationEdits < required {
				return false
			}
		case "character_edits":
			if user.CharacterEdits < required {
				return false
			}
		case "votes_cast":
			if user.TotalVotes < required {
				return false
			}
		case "continents":
			if int64(len(user.ContinentsEdited)) < required {
				return false
			}
		case "dispute_wins":
			if user.DisputeWins < required {
				return false
			}
		case "large_edits":
			if user.LargeEditsApproved < required {
				return false
			}
		case "speed_approvals":
			if user.SpeedApprovals < required {
				return false
			}
		case "tier":
			if int64(TierFor(user.Reputation)) < required {
				return false
			}
		default:
			return false
		}
	}
	return true
}
