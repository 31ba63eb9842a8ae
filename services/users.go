package services

import (
	"time"

	"lore-governance-system/config"
	"lore-governance-system/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UserService manages the local community profiles. Identity itself lives in
// the profile service; rows here are created lazily on first community
// action with the initial QP allocation.
type UserService struct {
	DB    *gorm.DB
	Cfg   *config.CommunityConfig
	Locks *EntityLocks
}

func NewUserService(db *gorm.DB, cfg *config.CommunityConfig, locks *EntityLocks) *UserService {
	return &UserService{DB: db, Cfg: cfg, Locks: locks}
}

// EnsureUser returns the community profile for userID, creating it with the
// initial token allocation if missing (idempotent). The welcome grant is
// recorded in the ledger but deliberately bypasses the daily earn cap.
func (s *UserService) EnsureUser(userID, username string) (*models.CommunityUser, error) {
	var user models.CommunityUser
	err := s.DB.Where("id = ?", userID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	unlock := s.Locks.Users.Lock(userID)
	defer unlock()

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// Re-check under the lock: another request may have created it.
		if err := tx.Where("id = ?", userID).First(&user).Error; err == nil {
			return nil
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		user = models.CommunityUser{
			ID:                  userID,
			Username:            username,
			TokenBalance:        s.Cfg.Tokens.InitialBalance,
			TokenEarnedLifetime: s.Cfg.Tokens.InitialBalance,
			LastActiveAt:        time.Now(),
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		grant := models.TokenTransaction{
			ID:     uuid.NewString(),
			UserID: userID,
			Type:   models.TransactionBonus,
			Amount: s.Cfg.Tokens.InitialBalance,
			Reason: "welcome_grant",
		}
		if err := tx.Create(&grant).Error; err != nil {
			return err
		}

		return tx.Model(&models.TokenSupply{}).
			Where("id = ?", 1).
			Update("issued", gorm.Expr("issued + ?", s.Cfg.Tokens.InitialBalance)).Error
	})
	if err != nil {
		return nil, err
	}

	log.WithField("user", userID).Info("community profile created")
	return &user, nil
}

// GetUser loads a community profile.
func (s *UserService) GetUser(userID string) (*models.CommunityUser, error) {
	var user models.CommunityUser
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Badges returns the badges held by a user joined with their catalog entries.
func (s *UserService) Badges(userID string) ([]models.BadgeType, error) {
	var codes []string
	if err := s.DB.Model(&models.UserBadge{}).
		Where("user_id = ?", userID).
		Pluck("badge_code", &codes).Error; err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return nil, nil
	}
	var badges []models.BadgeType
	err := s.DB.Where("code IN ?", codes).Find(&badges).Error
	return badges, err
}
