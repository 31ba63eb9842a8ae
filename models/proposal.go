package models

import (
	"time"
)

type ProposalType string

const (
	ProposalTypeLocation  ProposalType = "location"
	ProposalTypeCharacter ProposalType = "character"
	ProposalTypeNote      ProposalType = "note"
	ProposalTypeDispute   ProposalType = "dispute"
)

type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusApproved ProposalStatus = "approved"
	ProposalStatusRejected ProposalStatus = "rejected"
	ProposalStatusArchived ProposalStatus = "archived"
)

// ProposalChange is one field-level edit inside a proposal.
type ProposalChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// Proposal is a pending content edit awaiting community approval.
//
// MinVoters, ApprovalThreshold and MinReputation are snapshotted from config
// at creation time and never mutated afterward — tuning the config must not
// retroactively alter in-flight proposals.
type Proposal struct {
	ID        string       `gorm:"primaryKey;type:uuid" json:"id"`
	Type      ProposalType `gorm:"type:varchar(16);index;not null" json:"type"`
	ContentID string       `gorm:"index;not null" json:"content_id"`
	// Continent of the edited location, when known. Feeds the explorer badges.
	Continent string `json:"continent,omitempty"`

	ProposedBy string           `gorm:"index;not null" json:"proposed_by"`
	Summary    string           `json:"summary"`
	Changes    []ProposalChange `gorm:"serializer:json" json:"changes"`

	Status ProposalStatus `gorm:"type:varchar(16);index;default:'pending'" json:"status"`

	// Voting parameters, snapshotted at creation.
	MinVoters         int     `json:"min_voters"`
	ApprovalThreshold float64 `json:"approval_threshold"`
	MinReputation     int     `json:"min_reputation"`
	Expedited         bool    `gorm:"default:false" json:"expedited"`

	// Resolved is the write-once guard: flipped atomically together with the
	// status transition, so consequences apply exactly once no matter how
	// many callers race to resolve.
	Resolved   bool       `gorm:"default:false" json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	Exported   bool       `gorm:"default:false" json:"-"` // archive pushed to R2

	// Perk flags (QP shop).
	Locked   bool `gorm:"default:false" json:"locked"`
	Promoted bool `gorm:"default:false" json:"promoted"`

	EndsAt time.Time `gorm:"index" json:"ends_at"`

	Timestamps
}

type VoteDecision string

const (
	VoteApprove VoteDecision = "approve"
	VoteReject  VoteDecision = "reject"
	VoteAbstain VoteDecision = "abstain"
)

// Vote is one user's immutable vote on a proposal. Weight is captured from
// the voter's tier at cast time — a later tier change never rewrites a tally.
// The unique index backs the one-vote-per-(proposal,user) invariant.
type Vote struct {
	ID         string       `gorm:"primaryKey;type:uuid" json:"id"`
	ProposalID string       `gorm:"uniqueIndex:idx_votes_proposal_voter;not null" json:"proposal_id"`
	VoterID    string       `gorm:"uniqueIndex:idx_votes_proposal_voter;not null" json:"voter_id"`
	Decision   VoteDecision `gorm:"type:varchar(8);not null" json:"decision"`
	Weight     int          `gorm:"not null" json:"weight"`
	Comment    string       `json:"comment,omitempty"`
	CastAt     time.Time    `json:"cast_at"`
}
