package services

import (
	"fmt"
	"time"

	"lore-governance-system/config"
	"lore-governance-system/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Tier is a reputation band. It determines feature access and voting weight
// and is always derived from the reputation score, never stored.
type Tier int

const (
	TierApprentice Tier = iota
	TierEditor
	TierExpert
	TierArchivist
	TierKeeper
)

// tierThresholds: minimum reputation per tier, ascending.
// Apprentice 0–100, Editor 101–300, Expert 301–600, Archivist 601–850, Keeper 851+.
var tierThresholds = []int{0, 101, 301, 601, 851}

var tierNames = []string{"Apprentice", "Editor", "Expert", "Archivist", "Keeper"}

// tierWeights: voting weight multiplier per tier.
var tierWeights = []int{1, 1, 2, 3, 5}

// tierFeatures: feature grants per tier (each tier includes everything below it).
var tierFeatures = map[Tier][]string{
	TierApprentice: {"submit_proposals"},
	TierEditor:     {"vote", "comment_on_proposals"},
	TierExpert:     {"review_role"},
	TierArchivist:  {"initiate_dispute_vote", "manage_community"},
	TierKeeper:     {"governance_proposals", "system_settings"},
}

// TierFor returns the highest tier whose minimum reputation is <= reputation.
func TierFor(reputation int) Tier {
	for t := len(tierThresholds) - 1; t >= 0; t-- {
		if reputation >= tierThresholds[t] {
			return Tier(t)
		}
	}
	return TierApprentice
}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return "Apprentice"
	}
	return tierNames[t]
}

// VotingWeight returns the tier's voting weight multiplier.
func VotingWeight(t Tier) int {
	if t < 0 || int(t) >= len(tierWeights) {
		return 1
	}
	return tierWeights[t]
}

// MaxVotingWeight is the Keeper weight — the upper bound any future vote can
// contribute, used by the early-decision check.
func MaxVotingWeight() int {
	return tierWeights[len(tierWeights)-1]
}

// TierAllows reports whether the tier (or any tier below it) grants feature.
func TierAllows(t Tier, feature string) bool {
	for lvl := TierApprentice; lvl <= t; lvl++ {
		for _, f := range tierFeatures[lvl] {
			if f == feature {
				return true
			}
		}
	}
	return false
}

// MinReputationFor returns the reputation floor of a tier.
func MinReputationFor(t Tier) int {
	if t < 0 || int(t) >= len(tierThresholds) {
		return 0
	}
	return tierThresholds[t]
}

// ReputationService applies reputation deltas and derives tier changes.
type ReputationService struct {
	DB       *gorm.DB
	Cfg      *config.CommunityConfig
	Locks    *EntityLocks
	Notifier Notifier
}

func NewReputationService(db *gorm.DB, cfg *config.CommunityConfig, locks *EntityLocks, notifier Notifier) *ReputationService {
	return &ReputationService{DB: db, Cfg: cfg, Locks: locks, Notifier: notifier}
}

// ApplyDelta adds delta to the user's reputation, clamped at the configured
// floor, and reports the (derived) tier transition. A tier upgrade emits a
// tier_upgraded event.
func (s *ReputationService) ApplyDelta(userID string, delta int, reason string) (*models.CommunityUser, error) {
	unlock := s.Locks.Users.Lock(userID)
	defer unlock()

	var user models.CommunityUser
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrUserNotFound
			}
			return err
		}

		oldTier := TierFor(user.Reputation)

		user.Reputation += delta
		if user.Reputation < s.Cfg.Reputation.Floor {
			user.Reputation = s.Cfg.Reputation.Floor
		}
		user.LastActiveAt = time.Now()

		if err := tx.Save(&user).Error; err != nil {
			return err
		}

		newTier := TierFor(user.Reputation)
		if newTier > oldTier && s.Notifier != nil {
			s.Notifier.Notify(user.ID, EventTierUpgraded,
				fmt.Sprintf("You are now %s (reputation %d)", newTier, user.Reputation), nil)
		}

		log.WithFields(log.Fields{
			"user":       userID,
			"delta":      delta,
			"reputation": user.Reputation,
			"tier":       newTier.String(),
			"reason":     reason,
		}).Debug("reputation updated")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
