package models

import "time"

// LeaderboardEntry is one row of the most recent ranking snapshot. The
// snapshot is replaced wholesale on every batch recomputation; it is
// read-only with respect to users and proposals.
type LeaderboardEntry struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"-"`
	Rank     int    `gorm:"index" json:"rank"`
	UserID   string `gorm:"index;not null" json:"user_id"`
	Username string `json:"username"`

	Score      float64 `json:"score"`
	Percentile float64 `json:"percentile"` // top X%, lower is better
	RankTier   string  `json:"rank_tier"`  // Legendary / Epic / Rare / Uncommon / Common

	Reputation    int     `json:"reputation"`
	ApprovedEdits int64   `json:"approved_edits"`
	HelpfulVotes  int64   `json:"helpful_votes"`
	BadgeCount    int64   `json:"badge_count"`
	TokenBalance  float64 `json:"token_balance"`

	ComputedAt time.Time `gorm:"index" json:"computed_at"`
}
