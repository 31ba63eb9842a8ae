package config

import "regexp"

// CommunityConfig bundles every tunable game-balance parameter of the
// governance engine. It is built once at startup and passed to the services
// by value reference — the engines never mutate it, and proposals snapshot
// the voting parameters at creation time so later tuning is not retroactive.
type CommunityConfig struct {
	Voting      VotingConfig
	Reputation  ReputationConfig
	Tokens      TokenConfig
	Leaderboard LeaderboardConfig
	Moderation  ModerationConfig
}

// VotingConfig controls proposal lifecycles and quorum resolution.
type VotingConfig struct {
	MinVoters         int
	ApprovalThreshold float64
	MinReputation     int

	VotingPeriodDays    int
	ExpeditedPeriodDays int
	// ExpeditedMinVoters lets deployments shrink the quorum for paid expedited
	// proposals. Defaults to the normal quorum.
	ExpeditedMinVoters int

	DisputePeriodDays        int
	DisputeApprovalThreshold float64

	// AutoReject rejects proposals whose voting period ends without quorum.
	AutoReject           bool
	AutoArchiveAfterDays int
}

// ReputationConfig lists reputation gains and penalties per event.
type ReputationConfig struct {
	FirstEditApproved int
	EditApproved      int
	LargeEditApproved int
	LargeEditChanges  int // change count at which an edit counts as "large"
	EditMarkedHelpful int
	VoteParticipation int
	CorrectVote       int
	EditReferenced    int

	EditRejected     int // negative
	ProposalSpam     int // negative
	ContentViolation int // negative

	Floor int // reputation never drops below this
}

// TokenConfig controls the QP token economy.
type TokenConfig struct {
	InitialBalance float64

	RewardFirstEdit         float64
	RewardEditApproved      float64
	RewardLargeEditApproved float64
	RewardEditHelpful       float64
	RewardVoteParticipation float64
	RewardCorrectVote       float64
	RewardEditReferenced    float64
	RewardDailyLogin        float64
	DailyMaxLoginReward     float64

	DailyMaxEarn float64

	CostExpediteProposal float64
	CostPromotionBadge   float64
	CostViewEditNotes    float64
	CostLockProposal     float64

	TotalSupply float64
	BurnRate    float64
}

// RankTier is a percentile band of the leaderboard.
type RankTier struct {
	Name       string
	TopPercent float64
}

// LeaderboardConfig controls the batch ranking recomputation.
type LeaderboardConfig struct {
	WeightReputation    float64
	WeightApprovedEdits float64
	WeightHelpfulVotes  float64
	WeightBadges        float64
	WeightTokens        float64

	DecayRate       float64
	DecayPeriodDays int

	Tiers []RankTier
}

// ModerationConfig holds the content constraints applied at submit time.
type ModerationConfig struct {
	MinDescriptionLength int
	MinNoteLength        int
	MaxTitleLength       int
	MaxDescriptionLength int
	MaxNoteLength        int

	SpamPatterns []*regexp.Regexp
}

// DefaultCommunityConfig returns the production balance values.
func DefaultCommunityConfig() *CommunityConfig {
	return &CommunityConfig{
		Voting: VotingConfig{
			MinVoters:                3,
			ApprovalThreshold:        0.5,
			MinReputation:            50,
			VotingPeriodDays:         7,
			ExpeditedPeriodDays:      3,
			ExpeditedMinVoters:       3,
			DisputePeriodDays:        5,
			DisputeApprovalThreshold: 0.6,
			AutoReject:               true,
			AutoArchiveAfterDays:     90,
		},
		Reputation: ReputationConfig{
			FirstEditApproved: 20,
			EditApproved:      10,
			LargeEditApproved: 50,
			LargeEditChanges:  5,
			EditMarkedHelpful: 5,
			VoteParticipation: 2,
			CorrectVote:       5,
			EditReferenced:    15,
			EditRejected:      -3,
			ProposalSpam:      -10,
			ContentViolation:  -50,
			Floor:             0,
		},
		Tokens: TokenConfig{
			InitialBalance:          20,
			RewardFirstEdit:         10,
			RewardEditApproved:      5,
			RewardLargeEditApproved: 25,
			RewardEditHelpful:       3,
			RewardVoteParticipation: 0.5,
			RewardCorrectVote:       2,
			RewardEditReferenced:    5,
			RewardDailyLogin:        1,
			DailyMaxLoginReward:     5,
			DailyMaxEarn:            50,
			CostExpediteProposal:    10,
			CostPromotionBadge:      50,
			CostViewEditNotes:       5,
			CostLockProposal:        20,
			TotalSupply:             1_000_000,
			BurnRate:                0.01,
		},
		Leaderboard: LeaderboardConfig{
			WeightReputation:    1,
			WeightApprovedEdits: 10,
			WeightHelpfulVotes:  5,
			WeightBadges:        20,
			WeightTokens:        0.01,
			DecayRate:           0.001,
			DecayPeriodDays:     7,
			Tiers: []RankTier{
				{Name: "Legendary", TopPercent: 0.1},
				{Name: "Epic", TopPercent: 1},
				{Name: "Rare", TopPercent: 5},
				{Name: "Uncommon", TopPercent: 25},
			},
		},
		Moderation: ModerationConfig{
			MinDescriptionLength: 20,
			MinNoteLength:        50,
			MaxTitleLength:       200,
			MaxDescriptionLength: 5000,
			MaxNoteLength:        10000,
			SpamPatterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)viagra|cialis|casino`),
				regexp.MustCompile(`(?i)click here|buy now`),
			},
		},
	}
}
