package models

import (
	"time"

	"github.com/gosimple/slug"
)

type BadgeRarity string

const (
	RarityCommon    BadgeRarity = "common"
	RarityRare      BadgeRarity = "rare"
	RarityEpic      BadgeRarity = "epic"
	RarityLegendary BadgeRarity = "legendary"
)

// BadgeType is a static catalog entry. The catalog below is seeded into the
// DB at startup; unlock thresholds are evaluated against a user's stats
// snapshot by the badge engine.
type BadgeType struct {
	Code        string           `gorm:"primaryKey" json:"code"`
	Name        string           `gorm:"not null" json:"name"`
	Description string           `json:"description"`
	Icon        string           `json:"icon"`
	Rarity      BadgeRarity      `gorm:"type:varchar(16);default:'common'" json:"rarity"`
	Threshold   map[string]int64 `gorm:"serializer:json" json:"threshold"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"-"`
}

// UserBadge is an awarded instance. The unique index guarantees a badge is
// held at most once.
type UserBadge struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"uniqueIndex:idx_user_badges_user_code;not null" json:"user_id"`
	BadgeCode string    `gorm:"uniqueIndex:idx_user_badges_user_code;not null" json:"badge_code"`
	AwardedAt time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}

func badge(name, description, icon string, rarity BadgeRarity, threshold map[string]int64) BadgeType {
	return BadgeType{
		Code:        slug.Make(name),
		Name:        name,
		Description: description,
		Icon:        icon,
		Rarity:      rarity,
		Threshold:   threshold,
	}
}

// BadgeCatalog lists every unlockable badge. Threshold keys map onto stats
// snapshot fields; "tier" compares against the derived tier index.
var BadgeCatalog = []BadgeType{
	badge("Newcomer", "Complete your first edit proposal", "🌱", RarityCommon,
		map[string]int64{"approved_edits": 1}),
	badge("Accurate Editor", `Get 5+ "helpful" votes on your edits`, "🎯", RarityRare,
		map[string]int64{"helpful_votes": 5}),
	badge("Geography Master", "Edit 10+ locations", "📍", RarityEpic,
		map[string]int64{"location_edits": 10}),
	badge("Character Collector", "Edit 20+ characters", "👥", RarityRare,
		map[string]int64{"character_edits": 20}),
	badge("Governance Participant", "Vote in 50+ proposals", "🏆", RarityRare,
		map[string]int64{"votes_cast": 50}),
	badge("Speed Runner", "Get an edit approved within 24 hours", "⚡", RarityCommon,
		map[string]int64{"speed_approvals": 1}),
	badge("Complete Editor", "Make a comprehensive edit with 5+ fields", "🎨", RarityEpic,
		map[string]int64{"large_edits": 1}),
	badge("Global Explorer", "Edit locations across 5+ continents", "🌍", RarityEpic,
		map[string]int64{"continents": 5}),
	badge("Legendary Contributor", "Reach Archivist or Keeper tier", "💎", RarityLegendary,
		map[string]int64{"tier": 3}),
	badge("Dispute Master", "Win 10+ dispute votes", "⚔️", RarityEpic,
		map[string]int64{"dispute_wins": 10}),
	badge("Community Leader", "Become a review moderator", "👑", RarityLegendary,
		map[string]int64{"tier": 2}),
}
