package services

import (
	"fmt"

	"lore-governance-system/config"
	"lore-governance-system/models"
)

// ModerationService applies the content constraints (length bounds and spam
// patterns) to proposal submissions. A violation is reported as a
// ValidationError listing every offending rule; nothing is partially applied.
type ModerationService struct {
	Cfg *config.ModerationConfig
}

func NewModerationService(cfg *config.ModerationConfig) *ModerationService {
	return &ModerationService{Cfg: cfg}
}

// ValidateSubmission checks the summary and every change of a proposal
// against the moderation rules.
func (s *ModerationService) ValidateSubmission(pType models.ProposalType, summary string, changes []models.ProposalChange) error {
	var rules []string

	if len(changes) == 0 {
		rules = append(rules, "proposal must contain at least one change")
	}

	if s.isSpam(summary) {
		rules = append(rules, "summary matches a prohibited content pattern")
	}

	for _, ch := range changes {
		if ch.Field == "" {
			rules = append(rules, "change is missing a field name")
			continue
		}
		if s.isSpam(ch.NewValue) {
			rules = append(rules, fmt.Sprintf("field %q matches a prohibited content pattern", ch.Field))
		}

		switch ch.Field {
		case "title", "name":
			if len(ch.NewValue) > s.Cfg.MaxTitleLength {
				rules = append(rules, fmt.Sprintf("field %q exceeds %d characters", ch.Field, s.Cfg.MaxTitleLength))
			}
		case "description":
			if len(ch.NewValue) < s.Cfg.MinDescriptionLength {
				rules = append(rules, fmt.Sprintf("description shorter than %d characters", s.Cfg.MinDescriptionLength))
			}
			if len(ch.NewValue) > s.Cfg.MaxDescriptionLength {
				rules = append(rules, fmt.Sprintf("description exceeds %d characters", s.Cfg.MaxDescriptionLength))
			}
		case "content":
			if pType == models.ProposalTypeNote {
				if len(ch.NewValue) < s.Cfg.MinNoteLength {
					rules = append(rules, fmt.Sprintf("note shorter than %d characters", s.Cfg.MinNoteLength))
				}
				if len(ch.NewValue) > s.Cfg.MaxNoteLength {
					rules = append(rules, fmt.Sprintf("note exceeds %d characters", s.Cfg.MaxNoteLength))
				}
			}
		}
	}

	if len(rules) > 0 {
		return &ValidationError{Rules: rules}
	}
	return nil
}

func (s *ModerationService) isSpam(text string) bool {
	for _, p := range s.Cfg.SpamPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
