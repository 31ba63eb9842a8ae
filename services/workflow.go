package services

import (
	"errors"
	"time"

	"lore-governance-system/config"
	"lore-governance-system/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WorkflowService owns the proposal lifecycle state machine
// (pending → approved/rejected → archived) and the orchestration that, on
// resolution, applies reputation, token and badge consequences.
//
// Resolution is guarded by a write-once flag checked-and-set atomically with
// the status transition, so a vote-triggered resolution and the deadline
// sweep racing on the same proposal apply consequences exactly once.
type WorkflowService struct {
	DB         *gorm.DB
	Cfg        *config.CommunityConfig
	Locks      *EntityLocks
	Voting     *VotingService
	Ledger     *LedgerService
	Reputation *ReputationService
	Badges     *BadgeService
	Users      *UserService
	Moderation *ModerationService
	Notifier   Notifier
}

func NewWorkflowService(
	db *gorm.DB,
	cfg *config.CommunityConfig,
	locks *EntityLocks,
	voting *VotingService,
	ledger *LedgerService,
	reputation *ReputationService,
	badges *BadgeService,
	users *UserService,
	moderation *ModerationService,
	notifier Notifier,
) *WorkflowService {
	return &WorkflowService{
		DB:         db,
		Cfg:        cfg,
		Locks:      locks,
		Voting:     voting,
		Ledger:     ledger,
		Reputation: reputation,
		Badges:     badges,
		Users:      users,
		Moderation: moderation,
		Notifier:   notifier,
	}
}

// SubmitRequest is the payload of a new edit proposal.
type SubmitRequest struct {
	Type      models.ProposalType     `json:"type"`
	ContentID string                  `json:"content_id"`
	Continent string                  `json:"continent,omitempty"`
	Summary   string                  `json:"summary"`
	Changes   []models.ProposalChange `json:"changes"`
	Expedite  bool                    `json:"expedite"`
}

// Submit validates and creates a pending proposal with the voting parameters
// snapshotted from the current config. Validation failures never charge
// tokens; the expedite fee is debited only after the submission is valid.
func (s *WorkflowService) Submit(proposerID string, req SubmitRequest) (*models.Proposal, error) {
	proposer, err := s.Users.GetUser(proposerID)
	if err != nil {
		return nil, err
	}
	if !TierAllows(TierFor(proposer.Reputation), "submit_proposals") {
		return nil, ErrTierFeature
	}

	if err := s.Moderation.ValidateSubmission(req.Type, req.Summary, req.Changes); err != nil {
		return nil, err
	}

	var locked int64
	if err := s.DB.Model(&models.Proposal{}).
		Where("content_id = ? AND locked = ? AND status <> ?",
			req.ContentID, true, models.ProposalStatusArchived).
		Count(&locked).Error; err != nil {
		return nil, err
	}
	if locked > 0 {
		return nil, ErrContentLocked
	}

	now := time.Now()
	proposalID := uuid.NewString()

	// Snapshot voting parameters; config changes never touch in-flight
	// proposals.
	minVoters := s.Cfg.Voting.MinVoters
	threshold := s.Cfg.Voting.ApprovalThreshold
	periodDays := s.Cfg.Voting.VotingPeriodDays
	if req.Type == models.ProposalTypeDispute {
		threshold = s.Cfg.Voting.DisputeApprovalThreshold
		periodDays = s.Cfg.Voting.DisputePeriodDays
	}
	if req.Expedite {
		periodDays = s.Cfg.Voting.ExpeditedPeriodDays
		minVoters = s.Cfg.Voting.ExpeditedMinVoters
	}

	proposal := models.Proposal{
		ID:                proposalID,
		Type:              req.Type,
		ContentID:         req.ContentID,
		Continent:         req.Continent,
		ProposedBy:        proposerID,
		Summary:           req.Summary,
		Changes:           req.Changes,
		Status:            models.ProposalStatusPending,
		MinVoters:         minVoters,
		ApprovalThreshold: threshold,
		MinReputation:     s.Cfg.Voting.MinReputation,
		Expedited:         req.Expedite,
		EndsAt:            now.Add(time.Duration(periodDays) * 24 * time.Hour),
	}

	// The expedite fee, the proposal row and the proposer stats commit or
	// roll back together: a failed submission never leaves a charge behind.
	unlock := s.Locks.Users.Lock(proposerID)
	defer unlock()

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if req.Expedite {
			if err := s.Ledger.debit(tx, proposerID, s.Cfg.Tokens.CostExpediteProposal,
				"expedite_proposal", &proposalID); err != nil {
				return err
			}
		}
		if err := tx.Create(&proposal).Error; err != nil {
			return err
		}
		return tx.Model(&models.CommunityUser{}).
			Where("id = ?", proposerID).
			Updates(map[string]interface{}{
				"total_edits":    gorm.Expr("total_edits + 1"),
				"last_active_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"proposal": proposal.ID,
		"type":     proposal.Type,
		"by":       proposerID,
		"ends_at":  proposal.EndsAt,
	}).Info("proposal submitted")
	return &proposal, nil
}

// CastVote records a vote, rewards participation, and runs the early
// resolution check so a proposal concludes as soon as its outcome is
// mathematically decided.
func (s *WorkflowService) CastVote(proposalID, voterID string, decision models.VoteDecision, comment string) (*models.Vote, error) {
	proposal, vote, err := s.Voting.CastVote(proposalID, voterID, decision, comment)
	if err != nil {
		return nil, err
	}

	if _, err := s.Reputation.ApplyDelta(voterID, s.Cfg.Reputation.VoteParticipation, "vote_participation"); err != nil {
		log.WithError(err).Warnf("participation reputation failed for voter %s", voterID)
	}
	if _, clipped, err := s.Ledger.Credit(voterID, models.TransactionEarn,
		s.Cfg.Tokens.RewardVoteParticipation, "vote_participation", &proposalID); err != nil {
		log.WithError(err).Warnf("participation reward failed for voter %s", voterID)
	} else if clipped > 0 {
		log.WithFields(log.Fields{"voter": voterID, "clipped": clipped}).Info("participation reward clipped")
	}
	s.evaluateBadges(voterID)

	if s.Notifier != nil {
		s.Notifier.Notify(proposal.ProposedBy, EventVoteReceived,
			"Your proposal received a new vote", &proposalID)
	}

	if err := s.Resolve(proposalID); err != nil && !errors.Is(err, ErrAlreadyResolved) {
		log.WithError(err).Warnf("post-vote resolution check failed for proposal %s", proposalID)
	}
	return vote, nil
}

// Resolve runs the resolution check for a proposal and, when the outcome is
// decided (by tally or by deadline), transitions it exactly once and applies
// all consequences. A proposal that is already resolved returns
// ErrAlreadyResolved, which callers treat as a harmless no-op signal.
func (s *WorkflowService) Resolve(proposalID string) error {
	unlock := s.Locks.Proposals.Lock(proposalID)
	defer unlock()

	var proposal models.Proposal
	if err := s.DB.Where("id = ?", proposalID).First(&proposal).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrProposalNotFound
		}
		return err
	}
	if proposal.Resolved {
		return ErrAlreadyResolved
	}

	tally, err := s.Voting.ComputeTally(&proposal)
	if err != nil {
		return err
	}

	outcome := s.Voting.Outcome(&proposal, tally, time.Now())
	if outcome == "" {
		return nil // voting continues
	}
	return s.resolveAs(&proposal, outcome)
}

// resolveAs performs the atomic check-and-set on the write-once resolved
// flag together with the status transition, then applies consequences. Only
// the caller whose update actually flips the flag applies them.
func (s *WorkflowService) resolveAs(proposal *models.Proposal, outcome models.ProposalStatus) error {
	now := time.Now()
	res := s.DB.Model(&models.Proposal{}).
		Where("id = ? AND resolved = ?", proposal.ID, false).
		Updates(map[string]interface{}{
			"resolved":    true,
			"status":      outcome,
			"resolved_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyResolved
	}

	proposal.Resolved = true
	proposal.Status = outcome
	proposal.ResolvedAt = &now

	log.WithFields(log.Fields{
		"proposal": proposal.ID,
		"outcome":  outcome,
	}).Info("proposal resolved")

	s.applyConsequences(proposal, outcome, now)
	return nil
}

// applyConsequences applies the reputation/token/badge effects of a
// resolution. Each affected user is its own unit of work: a failure updating
// one user is logged and never blocks or rolls back the others.
func (s *WorkflowService) applyConsequences(proposal *models.Proposal, outcome models.ProposalStatus, now time.Time) {
	switch outcome {
	case models.ProposalStatusApproved:
		s.rewardProposer(proposal, now)
	case models.ProposalStatusRejected:
		if _, err := s.Reputation.ApplyDelta(proposal.ProposedBy,
			s.Cfg.Reputation.EditRejected, "edit_rejected"); err != nil {
			log.WithError(err).Warnf("rejection penalty failed for proposer %s", proposal.ProposedBy)
		}
		if s.Notifier != nil {
			s.Notifier.Notify(proposal.ProposedBy, EventProposalRejected,
				"Your proposal was rejected by community vote", &proposal.ID)
		}
	}

	s.rewardCorrectVoters(proposal, outcome)
}

func (s *WorkflowService) rewardProposer(proposal *models.Proposal, now time.Time) {
	proposer, err := s.Users.GetUser(proposal.ProposedBy)
	if err != nil {
		log.WithError(err).Warnf("cannot load proposer %s for approval rewards", proposal.ProposedBy)
		return
	}

	firstApproval := proposer.ApprovedEdits == 0
	largeEdit := len(proposal.Changes) >= s.Cfg.Reputation.LargeEditChanges

	repGain := s.Cfg.Reputation.EditApproved
	tokenGain := s.Cfg.Tokens.RewardEditApproved
	reason := "edit_approved"
	switch {
	case firstApproval:
		repGain = s.Cfg.Reputation.FirstEditApproved
		tokenGain = s.Cfg.Tokens.RewardFirstEdit
		reason = "first_edit_approved"
	case largeEdit:
		repGain = s.Cfg.Reputation.LargeEditApproved
		tokenGain = s.Cfg.Tokens.RewardLargeEditApproved
		reason = "large_edit_approved"
	}

	if err := s.updateApprovalStats(proposal, largeEdit, now); err != nil {
		log.WithError(err).Warnf("approval stats update failed for proposer %s", proposal.ProposedBy)
	}
	if _, err := s.Reputation.ApplyDelta(proposal.ProposedBy, repGain, reason); err != nil {
		log.WithError(err).Warnf("approval reputation failed for proposer %s", proposal.ProposedBy)
	}
	if _, clipped, err := s.Ledger.Credit(proposal.ProposedBy, models.TransactionEarn,
		tokenGain, reason, &proposal.ID); err != nil {
		log.WithError(err).Warnf("approval reward failed for proposer %s", proposal.ProposedBy)
	} else if clipped > 0 {
		log.WithFields(log.Fields{"user": proposal.ProposedBy, "clipped": clipped}).
			Info("approval reward clipped by daily cap")
	}
	s.evaluateBadges(proposal.ProposedBy)

	if s.Notifier != nil {
		s.Notifier.Notify(proposal.ProposedBy, EventProposalApproved,
			"Your proposal was approved by community vote", &proposal.ID)
	}
}

// updateApprovalStats increments the proposer's contribution counters under
// the per-user critical section.
func (s *WorkflowService) updateApprovalStats(proposal *models.Proposal, largeEdit bool, now time.Time) error {
	unlock := s.Locks.Users.Lock(proposal.ProposedBy)
	defer unlock()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.CommunityUser
		if err := tx.Where("id = ?", proposal.ProposedBy).First(&user).Error; err != nil {
			return err
		}

		user.ApprovedEdits++
		switch proposal.Type {
		case models.ProposalTypeLocation:
			user.LocationEdits++
			if proposal.Continent != "" && !user.HasContinent(proposal.Continent) {
				user.ContinentsEdited = append(user.ContinentsEdited, proposal.Continent)
			}
		case models.ProposalTypeCharacter:
			user.CharacterEdits++
		case models.ProposalTypeNote:
			user.NoteEdits++
		case models.ProposalTypeDispute:
			user.DisputeWins++
		}
		if largeEdit {
			user.LargeEditsApproved++
		}
		if now.Sub(proposal.CreatedAt) < 24*time.Hour {
			user.SpeedApprovals++
		}
		user.LastActiveAt = now
		return tx.Save(&user).Error
	})
}

// rewardCorrectVoters pays the correct-vote bonus to every voter whose
// decision matched the final outcome. This runs as a second pass after the
// outcome is known; abstentions are never rewarded here.
func (s *WorkflowService) rewardCorrectVoters(proposal *models.Proposal, outcome models.ProposalStatus) {
	votes, err := s.Voting.Votes(proposal.ID)
	if err != nil {
		log.WithError(err).Warnf("cannot load votes for correct-voter rewards on %s", proposal.ID)
		return
	}

	var winning models.VoteDecision
	switch outcome {
	case models.ProposalStatusApproved:
		winning = models.VoteApprove
	case models.ProposalStatusRejected:
		winning = models.VoteReject
	default:
		return
	}

	for _, v := range votes {
		if v.Decision != winning {
			continue
		}
		if _, err := s.Reputation.ApplyDelta(v.VoterID, s.Cfg.Reputation.CorrectVote, "correct_vote"); err != nil {
			log.WithError(err).Warnf("correct-vote reputation failed for voter %s", v.VoterID)
		}
		if _, clipped, err := s.Ledger.Credit(v.VoterID, models.TransactionEarn,
			s.Cfg.Tokens.RewardCorrectVote, "correct_vote", &proposal.ID); err != nil {
			log.WithError(err).Warnf("correct-vote reward failed for voter %s", v.VoterID)
		} else if clipped > 0 {
			log.WithFields(log.Fields{"voter": v.VoterID, "clipped": clipped}).
				Info("correct-vote reward clipped by daily cap")
		}
		s.evaluateBadges(v.VoterID)
	}
}

func (s *WorkflowService) evaluateBadges(userID string) {
	user, err := s.Users.GetUser(userID)
	if err != nil {
		log.WithError(err).Warnf("badge evaluation skipped for %s", userID)
		return
	}
	if _, err := s.Badges.Evaluate(user); err != nil {
		log.WithError(err).Warnf("badge evaluation failed for %s", userID)
	}
}

// ResolveDue resolves every pending proposal whose voting period has ended.
// Invoked by the scheduler sweep; races with vote-triggered resolution are
// harmless thanks to the write-once guard.
func (s *WorkflowService) ResolveDue(now time.Time) int {
	var ids []string
	if err := s.DB.Model(&models.Proposal{}).
		Where("status = ? AND resolved = ? AND ends_at <= ?",
			models.ProposalStatusPending, false, now).
		Pluck("id", &ids).Error; err != nil {
		log.WithError(err).Error("deadline sweep query failed")
		return 0
	}

	resolved := 0
	for _, id := range ids {
		if err := s.Resolve(id); err != nil {
			if !errors.Is(err, ErrAlreadyResolved) {
				log.WithError(err).Warnf("deadline resolution failed for proposal %s", id)
			}
			continue
		}
		resolved++
	}
	return resolved
}

// ArchiveExpired moves approved/rejected proposals to archived once the
// retention window has passed. Returns the number of proposals archived.
func (s *WorkflowService) ArchiveExpired(now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -s.Cfg.Voting.AutoArchiveAfterDays)
	res := s.DB.Model(&models.Proposal{}).
		Where("status IN ? AND resolved_at <= ?",
			[]models.ProposalStatus{models.ProposalStatusApproved, models.ProposalStatusRejected},
			cutoff).
		Updates(map[string]interface{}{
			"status":      models.ProposalStatusArchived,
			"archived_at": now,
		})
	return res.RowsAffected, res.Error
}

// AdminArchive is the administrative direct-archival path for withdrawn or
// invalidated proposals: pending → archived, bypassing approved/rejected.
// It shares the write-once guard so it cannot race a normal resolution.
func (s *WorkflowService) AdminArchive(proposalID string) error {
	unlock := s.Locks.Proposals.Lock(proposalID)
	defer unlock()

	now := time.Now()
	res := s.DB.Model(&models.Proposal{}).
		Where("id = ? AND status = ? AND resolved = ?",
			proposalID, models.ProposalStatusPending, false).
		Updates(map[string]interface{}{
			"resolved":    true,
			"status":      models.ProposalStatusArchived,
			"resolved_at": now,
			"archived_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyResolved
	}
	return nil
}

// InitiateDispute opens a dispute vote against existing content. Archivist
// tier and above only; dispute proposals run on the dispute voting period
// and threshold. When the disputed edit's author is known they are notified.
func (s *WorkflowService) InitiateDispute(initiatorID, contentID, againstUserID, summary string, changes []models.ProposalChange) (*models.Proposal, error) {
	initiator, err := s.Users.GetUser(initiatorID)
	if err != nil {
		return nil, err
	}
	if !TierAllows(TierFor(initiator.Reputation), "initiate_dispute_vote") {
		return nil, ErrTierFeature
	}

	proposal, err := s.Submit(initiatorID, SubmitRequest{
		Type:      models.ProposalTypeDispute,
		ContentID: contentID,
		Summary:   summary,
		Changes:   changes,
	})
	if err != nil {
		return nil, err
	}

	if againstUserID != "" && s.Notifier != nil {
		s.Notifier.Notify(againstUserID, EventDisputeInitiated,
			"A dispute vote was opened against one of your edits", &proposal.ID)
	}
	return proposal, nil
}

// MarkEditHelpful credits the author of an approved edit with a helpful mark.
func (s *WorkflowService) MarkEditHelpful(proposalID, byUserID string) error {
	proposal, err := s.getProposal(proposalID)
	if err != nil {
		return err
	}
	if proposal.Status != models.ProposalStatusApproved {
		return ErrVotingClosed
	}
	if proposal.ProposedBy == byUserID {
		return ErrSelfAction
	}

	unlock := s.Locks.Users.Lock(proposal.ProposedBy)
	err = s.DB.Model(&models.CommunityUser{}).
		Where("id = ?", proposal.ProposedBy).
		Update("helpful_votes_received", gorm.Expr("helpful_votes_received + 1")).Error
	unlock()
	if err != nil {
		return err
	}

	if _, err := s.Reputation.ApplyDelta(proposal.ProposedBy,
		s.Cfg.Reputation.EditMarkedHelpful, "edit_marked_helpful"); err != nil {
		return err
	}
	if _, _, err := s.Ledger.Credit(proposal.ProposedBy, models.TransactionEarn,
		s.Cfg.Tokens.RewardEditHelpful, "edit_marked_helpful", &proposal.ID); err != nil {
		return err
	}
	s.evaluateBadges(proposal.ProposedBy)
	return nil
}

// MarkEditReferenced rewards the author of an approved edit when another
// contribution builds on it.
func (s *WorkflowService) MarkEditReferenced(proposalID, byUserID string) error {
	proposal, err := s.getProposal(proposalID)
	if err != nil {
		return err
	}
	if proposal.Status != models.ProposalStatusApproved {
		return ErrVotingClosed
	}
	if proposal.ProposedBy == byUserID {
		return ErrSelfAction
	}

	if _, err := s.Reputation.ApplyDelta(proposal.ProposedBy,
		s.Cfg.Reputation.EditReferenced, "edit_referenced"); err != nil {
		return err
	}
	if _, _, err := s.Ledger.Credit(proposal.ProposedBy, models.TransactionEarn,
		s.Cfg.Tokens.RewardEditReferenced, "edit_referenced", &proposal.ID); err != nil {
		return err
	}
	s.evaluateBadges(proposal.ProposedBy)

	if s.Notifier != nil {
		s.Notifier.Notify(proposal.ProposedBy, EventEditReferenced,
			"Another contributor built on one of your edits", &proposal.ID)
	}
	return nil
}

// RecordDailyLogin grants the daily login bonus: 1 QP per consecutive login
// day, capped at the configured maximum. Returns the QP credited (0 when the
// bonus was already claimed today).
func (s *WorkflowService) RecordDailyLogin(userID string) (float64, error) {
	today := time.Now().Format("2006-01-02")
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	unlock := s.Locks.Users.Lock(userID)
	defer unlock()

	// Streak update and bonus credit share one transaction: a failed credit
	// must not consume the day's claim.
	var credited float64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.CommunityUser
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrUserNotFound
			}
			return err
		}
		if user.LastLoginDate == today {
			return nil // already claimed
		}

		if user.LastLoginDate == yesterday {
			user.LoginStreakDays++
		} else {
			user.LoginStreakDays = 1
		}
		user.LastLoginDate = today
		user.LastActiveAt = time.Now()

		reward := float64(user.LoginStreakDays) * s.Cfg.Tokens.RewardDailyLogin
		if reward > s.Cfg.Tokens.DailyMaxLoginReward {
			reward = s.Cfg.Tokens.DailyMaxLoginReward
		}
		if err := tx.Save(&user).Error; err != nil {
			return err
		}

		var err error
		credited, _, err = s.Ledger.credit(tx, userID, models.TransactionBonus, reward, "daily_login", nil)
		return err
	})
	if err != nil {
		return 0, err
	}
	return credited, nil
}

// Purchasable perks (QP shop).
const (
	PerkExpediteProposal = "expedite_proposal"
	PerkPromotionBadge   = "promotion_badge"
	PerkViewEditNotes    = "view_edit_notes"
	PerkLockProposal     = "lock_proposal"
)

// PurchasePerk debits the perk's QP cost and applies its effect. The debit
// validates the balance first, so an unaffordable perk changes nothing.
func (s *WorkflowService) PurchasePerk(userID, perk, proposalID string) error {
	var cost float64
	switch perk {
	case PerkExpediteProposal:
		cost = s.Cfg.Tokens.CostExpediteProposal
	case PerkPromotionBadge:
		cost = s.Cfg.Tokens.CostPromotionBadge
	case PerkViewEditNotes:
		cost = s.Cfg.Tokens.CostViewEditNotes
	case PerkLockProposal:
		cost = s.Cfg.Tokens.CostLockProposal
	default:
		return ErrUnknownPerk
	}

	proposal, err := s.getProposal(proposalID)
	if err != nil {
		return err
	}
	if (perk == PerkExpediteProposal || perk == PerkLockProposal || perk == PerkPromotionBadge) &&
		proposal.ProposedBy != userID {
		return ErrNotProposer
	}
	if perk == PerkExpediteProposal && proposal.Status != models.ProposalStatusPending {
		return ErrVotingClosed
	}

	if err := s.Ledger.Debit(userID, cost, perk, &proposalID); err != nil {
		return err
	}

	unlock := s.Locks.Proposals.Lock(proposalID)
	defer unlock()

	switch perk {
	case PerkExpediteProposal:
		newEnd := proposal.CreatedAt.Add(time.Duration(s.Cfg.Voting.ExpeditedPeriodDays) * 24 * time.Hour)
		if newEnd.Before(time.Now()) {
			newEnd = time.Now()
		}
		return s.DB.Model(&models.Proposal{}).
			Where("id = ? AND status = ?", proposalID, models.ProposalStatusPending).
			Updates(map[string]interface{}{"ends_at": newEnd, "expedited": true}).Error
	case PerkPromotionBadge:
		return s.DB.Model(&models.Proposal{}).
			Where("id = ?", proposalID).
			Update("promoted", true).Error
	case PerkLockProposal:
		return s.DB.Model(&models.Proposal{}).
			Where("id = ?", proposalID).
			Update("locked", true).Error
	}
	return nil // view_edit_notes has no state effect; the handler returns the notes
}

// GetProposal loads a proposal together with its votes and current tally.
func (s *WorkflowService) GetProposal(proposalID string) (*models.Proposal, []models.Vote, *Tally, error) {
	proposal, err := s.getProposal(proposalID)
	if err != nil {
		return nil, nil, nil, err
	}
	votes, err := s.Voting.Votes(proposalID)
	if err != nil {
		return nil, nil, nil, err
	}
	tally, err := s.Voting.ComputeTally(proposal)
	if err != nil {
		return nil, nil, nil, err
	}
	return proposal, votes, tally, nil
}

// ListProposals returns proposals filtered by status (all when empty),
// newest first.
func (s *WorkflowService) ListProposals(status models.ProposalStatus, limit int) ([]models.Proposal, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.DB.Order("created_at DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Proposal
	err := q.Find(&out).Error
	return out, err
}

func (s *WorkflowService) getProposal(proposalID string) (*models.Proposal, error) {
	var proposal models.Proposal
	if err := s.DB.Where("id = ?", proposalID).First(&proposal).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProposalNotFound
		}
		return nil, err
	}
	return &proposal, nil
}
