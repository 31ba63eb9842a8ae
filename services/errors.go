// services/errors.go defines the error taxonomy of the governance engine.
// Every error here is local and caller-visible: nothing in this package is
// fatal to the enclosing process, and a failed call leaves no partially
// applied state.
package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUserNotFound — no community profile for the given user id
	ErrUserNotFound = errors.New("community user not found")
	// ErrProposalNotFound — unknown proposal id
	ErrProposalNotFound = errors.New("proposal not found")
	// ErrDuplicateVote — the voter already has a vote on this proposal
	ErrDuplicateVote = errors.New("user has already voted on this proposal")
	// ErrSelfVote — proposers cannot vote on their own proposals
	ErrSelfVote = errors.New("cannot vote on your own proposal")
	// ErrInsufficientReputation — voter below the proposal's snapshotted
	// minimum, or the voter's tier lacks the vote feature
	ErrInsufficientReputation = errors.New("insufficient reputation to vote")
	// ErrInsufficientBalance — QP spend larger than the current balance
	ErrInsufficientBalance = errors.New("insufficient token balance")
	// ErrVotingClosed — the proposal is no longer pending
	ErrVotingClosed = errors.New("voting is closed for this proposal")
	// ErrAlreadyResolved — duplicate resolution trigger. A no-op signal,
	// not a failure: deadline sweeps and vote-driven resolution may race.
	ErrAlreadyResolved = errors.New("proposal already resolved")
	// ErrContentLocked — a locked proposal blocks further edits of the content
	ErrContentLocked = errors.New("content is locked against further proposals")
	// ErrTierFeature — the user's tier does not grant the requested feature
	ErrTierFeature = errors.New("tier does not grant this feature")
	// ErrUnknownPerk — not a purchasable perk
	ErrUnknownPerk = errors.New("unknown perk")
	// ErrSelfAction — helpful/reference marks cannot target one's own edit
	ErrSelfAction = errors.New("cannot perform this action on your own contribution")
	// ErrNotProposer — perk applies only to the buyer's own proposal
	ErrNotProposer = errors.New("only the proposer can purchase this perk")
)

// ValidationError reports every moderation rule a submission violates.
// It is reported to the caller and never retried automatically.
type ValidationError struct {
	Rules []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("proposal failed validation: %s", strings.Join(e.Rules, "; "))
}
