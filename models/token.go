package models

import "time"

type TransactionType string

const (
	TransactionEarn    TransactionType = "earn"
	TransactionSpend   TransactionType = "spend"
	TransactionBonus   TransactionType = "bonus"
	TransactionPenalty TransactionType = "penalty"
)

// TokenTransaction is one immutable entry of the QP ledger. The user's
// balance is a materialized running total updated in the same transaction
// that appends the row.
type TokenTransaction struct {
	ID                string          `gorm:"primaryKey;type:uuid" json:"id"`
	UserID            string          `gorm:"index;not null" json:"user_id"`
	Type              TransactionType `gorm:"type:varchar(8);not null" json:"type"`
	Amount            float64         `gorm:"not null" json:"amount"`
	Reason            string          `gorm:"not null" json:"reason"`
	RelatedProposalID *string         `json:"related_proposal_id,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

// TokenSupply is the single-row supply bookkeeping: QP issued into
// circulation and QP permanently burned on spends. The burn is an accounting
// side effect only — it never touches a user balance.
type TokenSupply struct {
	ID          int     `gorm:"primaryKey" json:"-"`
	TotalSupply float64 `json:"total_supply"`
	Issued      float64 `gorm:"default:0" json:"issued"`
	Burned      float64 `gorm:"default:0" json:"burned"`
}
