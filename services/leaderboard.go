package services

import (
	"math"
	"sort"
	"time"

	"lore-governance-system/config"
	"lore-governance-system/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LeaderboardService recomputes the ranking snapshot in batch. Scores are a
// weighted blend of reputation, approved edits, helpful marks, badges and
// token balance, decayed for inactivity, then ranked and bucketed into
// percentile tiers. The snapshot table is replaced wholesale inside one
// transaction so readers never see a half-built ranking.
type LeaderboardService struct {
	DB  *gorm.DB
	Cfg *config.CommunityConfig
}

func NewLeaderboardService(db *gorm.DB, cfg *config.CommunityConfig) *LeaderboardService {
	return &LeaderboardService{DB: db, Cfg: cfg}
}

// Recompute rebuilds the leaderboard snapshot from the current user stats.
// Returns the number of ranked users.
func (s *LeaderboardService) Recompute(now time.Time) (int, error) {
	var users []models.CommunityUser
	if err := s.DB.Find(&users).Error; err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, nil
	}

	badgeCounts, err := s.badgeCounts()
	if err != nil {
		return 0, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		badges := badgeCounts[u.ID]
		entries = append(entries, models.LeaderboardEntry{
			ID:            uuid.NewString(),
			UserID:        u.ID,
			Username:      u.Username,
			Score:         s.score(&u, badges, now),
			Reputation:    u.Reputation,
			ApprovedEdits: u.ApprovedEdits,
			HelpfulVotes:  u.HelpfulVotesReceived,
			BadgeCount:    badges,
			TokenBalance:  u.TokenBalance,
			ComputedAt:    now,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID // stable order on ties
	})

	total := float64(len(entries))
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Percentile = float64(i+1) / total * 100
		entries[i].RankTier = s.tierFor(entries[i].Percentile)
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.LeaderboardEntry{}).Error; err != nil {
			return err
		}
		return tx.CreateInBatches(entries, 200).Error
	})
	if err != nil {
		return 0, err
	}

	log.WithField("ranked", len(entries)).Info("leaderboard recomputed")
	return len(entries), nil
}

// score blends the weighted stats, then applies the inactivity decay: the
// score shrinks by the decay rate for every full decay period since the
// user's last activity.
func (s *LeaderboardService) score(u *models.CommunityUser, badges int64, now time.Time) float64 {
	w := s.Cfg.Leaderboard
	raw := float64(u.Reputation)*w.WeightReputation +
		float64(u.ApprovedEdits)*w.WeightApprovedEdits +
		float64(u.HelpfulVotesReceived)*w.WeightHelpfulVotes +
		float64(badges)*w.WeightBadges +
		u.TokenBalance*w.WeightTokens

	if u.LastActiveAt.IsZero() || w.DecayPeriodDays <= 0 {
		return raw
	}
	inactiveDays := now.Sub(u.LastActiveAt).Hours() / 24
	periods := math.Floor(inactiveDays / float64(w.DecayPeriodDays))
	if periods <= 0 {
		return raw
	}
	return raw * math.Pow(1-w.DecayRate, periods)
}

func (s *LeaderboardService) tierFor(percentile float64) string {
	for _, tier := range s.Cfg.Leaderboard.Tiers {
		if percentile <= tier.TopPercent {
			return tier.Name
		}
	}
	return "Common"
}

func (s *LeaderboardService) badgeCounts() (map[string]int64, error) {
	type row struct {
		UserID string
		N      int64
	}
	var rows []row
	if err := s.DB.Model(&models.UserBadge{}).
		Select("user_id, COUNT(*) AS n").
		Group("user_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.UserID] = r.N
	}
	return counts, nil
}

// Top returns the first n entries of the current snapshot.
func (s *LeaderboardService) Top(n int) ([]models.LeaderboardEntry, error) {
	if n <= 0 || n > 500 {
		n = 100
	}
	var entries []models.LeaderboardEntry
	err := s.DB.Order("rank ASC").Limit(n).Find(&entries).Error
	return entries, err
}

// EntryFor returns a single user's snapshot row, or ErrUserNotFound when the
// user was not part of the last recomputation.
func (s *LeaderboardService) EntryFor(userID string) (*models.LeaderboardEntry, error) {
	var entry models.LeaderboardEntry
	if err := s.DB.Where("user_id = ?", userID).First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// CommunityStats is the public health dashboard of the governance engine.
type CommunityStats struct {
	TotalUsers        int64   `json:"total_users"`
	ActiveUsers7d     int64   `json:"active_users_7d"`
	TotalProposals    int64   `json:"total_proposals"`
	PendingProposals  int64   `json:"pending_proposals"`
	ApprovedProposals int64   `json:"approved_proposals"`
	RejectedProposals int64   `json:"rejected_proposals"`
	ApprovalRate      float64 `json:"approval_rate"`
	TotalVotes        int64   `json:"total_votes"`
	BadgesAwarded     int64   `json:"badges_awarded"`
	TokensIssued      float64 `json:"tokens_issued"`
	TokensBurned      float64 `json:"tokens_burned"`
	TokenSupply       float64 `json:"token_supply"`
}

// Stats aggregates the community-wide counters.
func (s *LeaderboardService) Stats(now time.Time) (*CommunityStats, error) {
	stats := &CommunityStats{}

	if err := s.DB.Model(&models.CommunityUser{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.CommunityUser{}).
		Where("last_active_at >= ?", now.AddDate(0, 0, -7)).
		Count(&stats.ActiveUsers7d).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.Proposal{}).Count(&stats.TotalProposals).Error; err != nil {
		return nil, err
	}
	statusCounts := map[models.ProposalStatus]*int64{
		models.ProposalStatusPending:  &stats.PendingProposals,
		models.ProposalStatusApproved: &stats.ApprovedProposals,
		models.ProposalStatusRejected: &stats.RejectedProposals,
	}
	for status, dst := range statusCounts {
		if err := s.DB.Model(&models.Proposal{}).
			Where("status = ?", status).Count(dst).Error; err != nil {
			return nil, err
		}
	}
	if resolved := stats.ApprovedProposals + stats.RejectedProposals; resolved > 0 {
		stats.ApprovalRate = float64(stats.ApprovedProposals) / float64(resolved)
	}
	if err := s.DB.Model(&models.Vote{}).Count(&stats.TotalVotes).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.UserBadge{}).Count(&stats.BadgesAwarded).Error; err != nil {
		return nil, err
	}

	var supply models.TokenSupply
	if err := s.DB.Where("id = ?", 1).First(&supply).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	} else {
		stats.TokensIssued = supply.Issued
		stats.TokensBurned = supply.Burned
		stats.TokenSupply = supply.TotalSupply
	}
	return stats, nil
}
