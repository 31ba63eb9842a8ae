package models

import "time"

// Notification is an in-app notification row produced by the engine's typed
// events. Delivery beyond the in-app feed (email etc.) belongs to the
// notification collaborator, not this service.
type Notification struct {
	ID                string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID            string    `gorm:"index;not null" json:"user_id"`
	Event             string    `gorm:"index;not null" json:"event"`
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	RelatedProposalID *string   `json:"related_proposal_id,omitempty"`
	Read              bool      `gorm:"default:false" json:"read"`
	CreatedAt         time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
