package models

import (
	"time"

	"gorm.io/gorm"
)

// CommunityUser is the local community profile of a lore contributor.
// Identity lives in the profile service; this table owns reputation, stats
// and the QP token bookkeeping. The tier is NOT stored here — it is always
// derived from Reputation (services.TierFor) so the two can never drift.
type CommunityUser struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"index;not null" json:"username"`

	// Reputation. Clamped at a configurable floor (0), no ceiling — Keeper
	// tier users keep accumulating past the top band.
	Reputation int `gorm:"default:0" json:"reputation"`

	// Contribution statistics consumed by the badge engine and leaderboard.
	TotalEdits           int64 `gorm:"default:0" json:"total_edits"`
	ApprovedEdits        int64 `gorm:"default:0" json:"approved_edits"`
	TotalVotes           int64 `gorm:"default:0" json:"total_votes"`
	HelpfulVotesReceived int64 `gorm:"default:0" json:"helpful_votes_received"`

	LocationEdits      int64    `gorm:"default:0" json:"location_edits"`
	CharacterEdits     int64    `gorm:"default:0" json:"character_edits"`
	NoteEdits          int64    `gorm:"default:0" json:"note_edits"`
	ContinentsEdited   []string `gorm:"serializer:json" json:"continents_edited,omitempty"`
	DisputeWins        int64    `gorm:"default:0" json:"dispute_wins"`
	LargeEditsApproved int64    `gorm:"default:0" json:"large_edits_approved"`
	SpeedApprovals     int64    `gorm:"default:0" json:"speed_approvals"` // approved within 24h of submission

	// QP token bookkeeping. TokenBalance is a materialized running total;
	// it is always derivable by replaying token_transactions.
	TokenBalance        float64 `gorm:"default:0" json:"token_balance"`
	TokenEarnedToday    float64 `gorm:"default:0" json:"token_earned_today"`
	TokenEarnDate       string  `json:"-"` // YYYY-MM-DD the daily counter belongs to
	TokenEarnedLifetime float64 `gorm:"default:0" json:"token_earned_lifetime"`
	TokenSpentLifetime  float64 `gorm:"default:0" json:"token_spent_lifetime"`

	// Daily login streak for the login bonus.
	LoginStreakDays int    `gorm:"default:0" json:"login_streak_days"`
	LastLoginDate   string `json:"-"`

	LastActiveAt time.Time `json:"last_active_at"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// HasContinent reports whether the user already edited a location on the
// given continent.
func (u *CommunityUser) HasContinent(continent string) bool {
	for _, c := range u.ContinentsEdited {
		if c == continent {
			return true
		}
	}
	return false
}
