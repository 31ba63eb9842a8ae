package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lore-governance-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// Typed events emitted by the governance engine. Channel fan-out beyond the
// in-app feed is the notification collaborator's responsibility.
const (
	EventProposalApproved    = "proposal_approved"
	EventProposalRejected    = "proposal_rejected"
	EventVoteReceived        = "vote_received"
	EventEditReferenced      = "edit_referenced"
	EventTierUpgraded        = "tier_upgraded"
	EventAchievementUnlocked = "achievement_unlocked"
	EventBadgeReceived       = "badge_received"
	EventDisputeInitiated    = "dispute_initiated"
)

// Notifier receives the engine's typed events. The DB-backed implementation
// below writes in-app notification rows; tests plug in a recorder.
type Notifier interface {
	Notify(userID, event, message string, relatedProposalID *string)
}

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

var titleCaser = cases.Title(language.English)

// Notify stores an in-app notification. Failures are logged, never bubbled —
// a lost notification must not fail the operation that produced it.
func (s *NotificationService) Notify(userID, event, message string, relatedProposalID *string) {
	n := models.Notification{
		ID:                uuid.NewString(),
		UserID:            userID,
		Event:             event,
		Title:             titleCaser.String(strings.ReplaceAll(event, "_", " ")),
		Message:           message,
		RelatedProposalID: relatedProposalID,
	}
	if err := s.DB.Create(&n).Error; err != nil {
		log.WithFields(log.Fields{"user": userID, "event": event}).
			WithError(err).Warn("failed to store notification")
	}
}

// ListForUser returns the newest notifications for a user.
func (s *NotificationService) ListForUser(userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var out []models.Notification
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkAllRead flags every unread notification of the user as read.
func (s *NotificationService) MarkAllRead(userID string) error {
	return s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
}

// StreamSSE streams new notifications for the authenticated user as
// server-sent events, polling the table on a short ticker.
func (s *NotificationService) StreamSSE(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastCreatedAt time.Time
		var latest models.Notification
		if err := s.DB.
			Where("user_id = ?", userID).
			Order("created_at DESC").
			First(&latest).Error; err == nil {
			lastCreatedAt = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.WithError(err).Warnf("SSE init error for user %s", userID)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var fresh []models.Notification
				err := s.DB.
					Where("user_id = ? AND created_at > ?", userID, lastCreatedAt).
					Order("created_at ASC").
					Find(&fresh).Error
				if err != nil {
					log.WithError(err).Warnf("SSE query error for user %s", userID)
					continue
				}
				if len(fresh) == 0 {
					continue
				}
				lastCreatedAt = fresh[len(fresh)-1].CreatedAt

				for _, n := range fresh {
					payload, _ := json.Marshal(n)
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Event, payload)
				}
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}
