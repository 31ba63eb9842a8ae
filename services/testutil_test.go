package services

import (
	"sync"
	"testing"
	"time"

	"lore-governance-system/config"
	"lore-governance-system/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.CommunityUser{},
		&models.Proposal{},
		&models.Vote{},
		&models.TokenTransaction{},
		&models.TokenSupply{},
		&models.BadgeType{},
		&models.UserBadge{},
		&models.LeaderboardEntry{},
		&models.Notification{},
	))
	return db
}

// recordingNotifier captures events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	UserID  string
	Event   string
	Message string
}

func (r *recordingNotifier) Notify(userID, event, message string, _ *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{UserID: userID, Event: event, Message: message})
}

func (r *recordingNotifier) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

// engine bundles every service wired against one test DB.
type engine struct {
	DB          *gorm.DB
	Cfg         *config.CommunityConfig
	Notifier    *recordingNotifier
	Users       *UserService
	Ledger      *LedgerService
	Reputation  *ReputationService
	Badges      *BadgeService
	Voting      *VotingService
	Workflow    *WorkflowService
	Leaderboard *LeaderboardService
}

func newTestEngine(t *testing.T) *engine {
	t.Helper()
	db := newTestDB(t)
	cfg := config.DefaultCommunityConfig()
	locks := NewEntityLocks()
	notifier := &recordingNotifier{}

	users := NewUserService(db, cfg, locks)
	ledger := NewLedgerService(db, cfg, locks)
	reputation := NewReputationService(db, cfg, locks, notifier)
	badges := NewBadgeService(db, notifier)
	moderation := NewModerationService(&cfg.Moderation)
	voting := NewVotingService(db, cfg, locks)
	leaderboard := NewLeaderboardService(db, cfg)
	workflow := NewWorkflowService(db, cfg, locks,
		voting, ledger, reputation, badges, users, moderation, notifier)

	require.NoError(t, ledger.EnsureSupply())
	require.NoError(t, badges.SeedCatalog())

	return &engine{
		DB:          db,
		Cfg:         cfg,
		Notifier:    notifier,
		Users:       users,
		Ledger:      ledger,
		Reputation:  reputation,
		Badges:      badges,
		Voting:      voting,
		Workflow:    workflow,
		Leaderboard: leaderboard,
	}
}

func (e *engine) createUser(t *testing.T, id string, reputation int) *models.CommunityUser {
	t.Helper()
	user := &models.CommunityUser{
		ID:           id,
		Username:     id,
		Reputation:   reputation,
		LastActiveAt: time.Now(),
	}
	require.NoError(t, e.DB.Create(user).Error)
	return user
}

func (e *engine) reload(t *testing.T, id string) *models.CommunityUser {
	t.Helper()
	var user models.CommunityUser
	require.NoError(t, e.DB.Where("id = ?", id).First(&user).Error)
	return &user
}

func validChanges() []models.ProposalChange {
	return []models.ProposalChange{
		{Field: "description", OldValue: "old", NewValue: "A thorough rewrite of the region's founding history."},
	}
}
