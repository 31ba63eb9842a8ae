package services

import (
	"time"

	"lore-governance-system/config"
	"lore-governance-system/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LedgerService owns the QP token ledger: an append-only transaction log
// plus a materialized balance per user, both updated in one DB transaction.
// Credits are clipped against the daily earn cap; debits burn a fraction of
// the spent amount out of total supply.
type LedgerService struct {
	DB    *gorm.DB
	Cfg   *config.CommunityConfig
	Locks *EntityLocks
}

func NewLedgerService(db *gorm.DB, cfg *config.CommunityConfig, locks *EntityLocks) *LedgerService {
	return &LedgerService{DB: db, Cfg: cfg, Locks: locks}
}

// EnsureSupply creates the supply bookkeeping row if missing (idempotent).
func (s *LedgerService) EnsureSupply() error {
	var supply models.TokenSupply
	err := s.DB.Where("id = ?", 1).First(&supply).Error
	if err == gorm.ErrRecordNotFound {
		supply = models.TokenSupply{ID: 1, TotalSupply: s.Cfg.Tokens.TotalSupply}
		return s.DB.Create(&supply).Error
	}
	return err
}

// Supply returns the current supply bookkeeping.
func (s *LedgerService) Supply() (*models.TokenSupply, error) {
	var supply models.TokenSupply
	if err := s.DB.Where("id = ?", 1).First(&supply).Error; err != nil {
		return nil, err
	}
	return &supply, nil
}

// Credit adds amount QP to the user, clipped at the remaining daily earn
// allowance. Returns the amount actually credited and the clipped remainder;
// the clip is reported to the caller for audit logging, never silently
// dropped. txType should be earn or bonus.
func (s *LedgerService) Credit(userID string, txType models.TransactionType, amount float64, reason string, relatedProposalID *string) (credited, clipped float64, err error) {
	if amount <= 0 {
		return 0, 0, nil
	}

	unlock := s.Locks.Users.Lock(userID)
	defer unlock()

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		credited, clipped, err = s.credit(tx, userID, txType, amount, reason, relatedProposalID)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	return credited, clipped, nil
}

// credit is the transaction-scoped body of Credit. Callers must hold the
// user's lock and pass the enclosing transaction, so a credit can commit or
// roll back atomically with the caller's own writes.
func (s *LedgerService) credit(tx *gorm.DB, userID string, txType models.TransactionType, amount float64, reason string, relatedProposalID *string) (credited, clipped float64, err error) {
	var user models.CommunityUser
	if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, 0, ErrUserNotFound
		}
		return 0, 0, err
	}

	today := time.Now().Format("2006-01-02")
	if user.TokenEarnDate != today {
		user.TokenEarnDate = today
		user.TokenEarnedToday = 0
	}

	allowance := s.Cfg.Tokens.DailyMaxEarn - user.TokenEarnedToday
	if allowance < 0 {
		allowance = 0
	}
	credited = amount
	if credited > allowance {
		credited = allowance
	}
	clipped = amount - credited
	if credited == 0 {
		return 0, clipped, nil
	}

	user.TokenBalance += credited
	user.TokenEarnedToday += credited
	user.TokenEarnedLifetime += credited
	if err := tx.Save(&user).Error; err != nil {
		return 0, 0, err
	}

	entry := models.TokenTransaction{
		ID:                uuid.NewString(),
		UserID:            userID,
		Type:              txType,
		Amount:            credited,
		Reason:            reason,
		RelatedProposalID: relatedProposalID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, 0, err
	}

	if err := tx.Model(&models.TokenSupply{}).
		Where("id = ?", 1).
		Update("issued", gorm.Expr("issued + ?", credited)).Error; err != nil {
		return 0, 0, err
	}

	if clipped > 0 {
		log.WithFields(log.Fields{
			"user":    userID,
			"clipped": clipped,
			"reason":  reason,
		}).Info("QP credit clipped by daily cap")
	}
	return credited, clipped, nil
}

// Debit removes amount QP from the user. Fails with ErrInsufficientBalance
// when amount exceeds the balance — no overdraft, ever. A burnRate fraction
// of the spent amount is removed from total supply as an accounting side
// effect; the user only ever pays the face amount.
func (s *LedgerService) Debit(userID string, amount float64, reason string, relatedProposalID *string) error {
	if amount <= 0 {
		return nil
	}

	unlock := s.Locks.Users.Lock(userID)
	defer unlock()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.debit(tx, userID, amount, reason, relatedProposalID)
	})
}

// debit is the transaction-scoped body of Debit. Callers must hold the
// user's lock and pass the enclosing transaction, so the charge rolls back
// together with the caller's writes when any of them fails.
func (s *LedgerService) debit(tx *gorm.DB, userID string, amount float64, reason string, relatedProposalID *string) error {
	var user models.CommunityUser
	if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrUserNotFound
		}
		return err
	}

	if amount > user.TokenBalance {
		return ErrInsufficientBalance
	}

	user.TokenBalance -= amount
	user.TokenSpentLifetime += amount
	if err := tx.Save(&user).Error; err != nil {
		return err
	}

	entry := models.TokenTransaction{
		ID:                uuid.NewString(),
		UserID:            userID,
		Type:              models.TransactionSpend,
		Amount:            amount,
		Reason:            reason,
		RelatedProposalID: relatedProposalID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}

	burn := amount * s.Cfg.Tokens.BurnRate
	return tx.Model(&models.TokenSupply{}).
		Where("id = ?", 1).
		Updates(map[string]interface{}{
			"burned":       gorm.Expr("burned + ?", burn),
			"total_supply": gorm.Expr("total_supply - ?", burn),
		}).Error
}

// Transactions returns the newest ledger entries for a user.
func (s *LedgerService) Transactions(userID string, limit int) ([]models.TokenTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []models.TokenTransaction
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
