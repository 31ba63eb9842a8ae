package services

import (
	"time"

	"lore-governance-system/config"
	"lore-governance-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VotingService records votes and computes weighted tallies. One vote per
// (proposal, voter), immutable once cast, weight snapshotted from the
// voter's tier at cast time.
type VotingService struct {
	DB    *gorm.DB
	Cfg   *config.CommunityConfig
	Locks *EntityLocks
}

func NewVotingService(db *gorm.DB, cfg *config.CommunityConfig, locks *EntityLocks) *VotingService {
	return &VotingService{DB: db, Cfg: cfg, Locks: locks}
}

// Tally is the weighted vote summary of a proposal.
type Tally struct {
	VotesCast     int     `json:"votes_cast"`
	ApproveWeight int     `json:"approve_weight"`
	RejectWeight  int     `json:"reject_weight"`
	Abstentions   int     `json:"abstentions"`
	QuorumMet     bool    `json:"quorum_met"`
	// ApprovalFraction is approve weight over approve+reject weight.
	// Abstentions count toward quorum but not toward the fraction.
	ApprovalFraction float64 `json:"approval_fraction"`
	EligibleVoters   int64   `json:"eligible_voters"`
	// RemainingVoters counts eligible users who have not voted yet. Past
	// voters whose reputation later dropped below the bar are already out of
	// EligibleVoters, so this is queried directly rather than derived by
	// subtracting VotesCast.
	RemainingVoters int64 `json:"remaining_voters"`
}

// CastVote appends an immutable vote to the proposal under its per-proposal
// critical section. The proposer cannot vote on their own proposal.
func (s *VotingService) CastVote(proposalID, voterID string, decision models.VoteDecision, comment string) (*models.Proposal, *models.Vote, error) {
	unlock := s.Locks.Proposals.Lock(proposalID)
	defer unlock()

	var proposal models.Proposal
	var vote models.Vote

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", proposalID).First(&proposal).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrProposalNotFound
			}
			return err
		}
		if proposal.Status != models.ProposalStatusPending || proposal.Resolved {
			return ErrVotingClosed
		}
		if proposal.ProposedBy == voterID {
			return ErrSelfVote
		}

		var voter models.CommunityUser
		if err := tx.Where("id = ?", voterID).First(&voter).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrUserNotFound
			}
			return err
		}

		tier := TierFor(voter.Reputation)
		if voter.Reputation < proposal.MinReputation || !TierAllows(tier, "vote") {
			return ErrInsufficientReputation
		}

		var existing int64
		if err := tx.Model(&models.Vote{}).
			Where("proposal_id = ? AND voter_id = ?", proposalID, voterID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateVote
		}

		vote = models.Vote{
			ID:         uuid.NewString(),
			ProposalID: proposalID,
			VoterID:    voterID,
			Decision:   decision,
			Weight:     VotingWeight(tier),
			Comment:    comment,
			CastAt:     time.Now(),
		}
		if err := tx.Create(&vote).Error; err != nil {
			return err
		}

		voter.TotalVotes++
		voter.LastActiveAt = time.Now()
		return tx.Save(&voter).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &proposal, &vote, nil
}

// Votes returns every vote cast on a proposal.
func (s *VotingService) Votes(proposalID string) ([]models.Vote, error) {
	var votes []models.Vote
	err := s.DB.Where("proposal_id = ?", proposalID).
		Order("cast_at ASC").
		Find(&votes).Error
	return votes, err
}

// ComputeTally builds the weighted tally of a proposal.
func (s *VotingService) ComputeTally(proposal *models.Proposal) (*Tally, error) {
	votes, err := s.Votes(proposal.ID)
	if err != nil {
		return nil, err
	}

	t := &Tally{VotesCast: len(votes)}
	for _, v := range votes {
		switch v.Decision {
		case models.VoteApprove:
			t.ApproveWeight += v.Weight
		case models.VoteReject:
			t.RejectWeight += v.Weight
		case models.VoteAbstain:
			t.Abstentions++
		}
	}

	t.QuorumMet = t.VotesCast >= proposal.MinVoters
	if denom := t.ApproveWeight + t.RejectWeight; denom > 0 {
		t.ApprovalFraction = float64(t.ApproveWeight) / float64(denom)
	}

	t.EligibleVoters, err = s.eligibleVoters(proposal, false)
	if err != nil {
		return nil, err
	}
	t.RemainingVoters, err = s.eligibleVoters(proposal, true)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// eligibleVoters counts the users currently able to vote on the proposal:
// at or above the snapshotted minimum reputation and in a voting tier,
// excluding the proposer. With excludeVoted it counts only those who have
// not cast a vote yet, which feeds the early-decision check.
func (s *VotingService) eligibleVoters(proposal *models.Proposal, excludeVoted bool) (int64, error) {
	minRep := proposal.MinReputation
	if floor := MinReputationFor(TierEditor); minRep < floor {
		minRep = floor
	}
	q := s.DB.Model(&models.CommunityUser{}).
		Where("reputation >= ? AND id <> ?", minRep, proposal.ProposedBy)
	if excludeVoted {
		q = q.Where("id NOT IN (?)", s.DB.Model(&models.Vote{}).
			Select("voter_id").
			Where("proposal_id = ?", proposal.ID))
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

// Outcome decides the proposal's resolution, or returns an empty status when
// voting must continue.
//
// Before the deadline a proposal concludes early once the result is
// mathematically settled: approval as soon as quorum is met and the fraction
// reaches the threshold (a fraction exactly equal to the threshold counts as
// approval), rejection once even every remaining eligible voter approving at
// the maximum weight could not lift the fraction back to the threshold.
func (s *VotingService) Outcome(proposal *models.Proposal, t *Tally, now time.Time) models.ProposalStatus {
	if t.QuorumMet && t.ApprovalFraction >= proposal.ApprovalThreshold {
		return models.ProposalStatusApproved
	}

	if t.QuorumMet {
		bestApprove := t.ApproveWeight + int(t.RemainingVoters)*MaxVotingWeight()
		if denom := bestApprove + t.RejectWeight; denom > 0 {
			if float64(bestApprove)/float64(denom) < proposal.ApprovalThreshold {
				return models.ProposalStatusRejected
			}
		}
	}

	if !now.Before(proposal.EndsAt) {
		if !t.QuorumMet {
			if s.Cfg.Voting.AutoReject {
				return models.ProposalStatusRejected
			}
			return ""
		}
		if t.ApprovalFraction >= proposal.ApprovalThreshold {
			return models.ProposalStatusApproved
		}
		return models.ProposalStatusRejected
	}

	return ""
}
