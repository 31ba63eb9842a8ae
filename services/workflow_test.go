package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"lore-governance-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSubmit(t *testing.T) {
	t.Run("snapshots voting parameters", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "alice", 0)

		p, err := e.Workflow.Submit("alice", SubmitRequest{
			Type:      models.ProposalTypeLocation,
			ContentID: "loc-1",
			Continent: "Ardeth",
			Summary:   "Correct the founding year",
			Changes:   validChanges(),
		})
		require.NoError(t, err)
		assert.Equal(t, models.ProposalStatusPending, p.Status)
		assert.Equal(t, e.Cfg.Voting.MinVoters, p.MinVoters)
		assert.Equal(t, e.Cfg.Voting.ApprovalThreshold, p.ApprovalThreshold)
		assert.WithinDuration(t,
			time.Now().Add(time.Duration(e.Cfg.Voting.VotingPeriodDays)*24*time.Hour),
			p.EndsAt, time.Minute)
		assert.Equal(t, int64(1), e.reload(t, "alice").TotalEdits)
	})

	t.Run("dispute proposals use the dispute parameters", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "alice", 700) // Archivist

		p, err := e.Workflow.InitiateDispute("alice", "loc-1", "bob", "This edit is wrong", validChanges())
		require.NoError(t, err)
		assert.Equal(t, models.ProposalTypeDispute, p.Type)
		assert.Equal(t, e.Cfg.Voting.DisputeApprovalThreshold, p.ApprovalThreshold)
		assert.WithinDuration(t,
			time.Now().Add(time.Duration(e.Cfg.Voting.DisputePeriodDays)*24*time.Hour),
			p.EndsAt, time.Minute)
		assert.Equal(t, 1, e.Notifier.count(EventDisputeInitiated))
	})

	t.Run("dispute requires archivist tier", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "alice", 400) // Expert only

		_, err := e.Workflow.InitiateDispute("alice", "loc-1", "", "Wrong", validChanges())
		assert.ErrorIs(t, err, ErrTierFeature)
	})

	t.Run("validation failure charges nothing", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "alice", 0)
		_, _, err := e.Ledger.Credit("alice", models.TransactionEarn, 20, "seed", nil)
		require.NoError(t, err)

		_, err = e.Workflow.Submit("alice", SubmitRequest{
			Type:      models.ProposalTypeLocation,
			ContentID: "loc-1",
			Summary:   "spam",
			Changes:   nil, // no changes: invalid
			Expedite:  true,
		})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, 20.0, e.reload(t, "alice").TokenBalance)
	})

	t.Run("expedite debits the fee and shortens the window", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "alice", 0)
		_, _, err := e.Ledger.Credit("alice", models.TransactionEarn, 20, "seed", nil)
		require.NoError(t, err)

		p, err := e.Workflow.Submit("alice", SubmitRequest{
			Type:      models.ProposalTypeLocation,
			ContentID: "loc-1",
			Summary:   "Correct the founding year",
			Changes:   validChanges(),
			Expedite:  true,
		})
		require.NoError(t, err)
		assert.True(t, p.Expedited)
		assert.WithinDuration(t,
			time.Now().Add(time.Duration(e.Cfg.Voting.ExpeditedPeriodDays)*24*time.Hour),
			p.EndsAt, time.Minute)
		assert.Equal(t, 10.0, e.reload(t, "alice").TokenBalance)
	})

	t.Run("expedite without balance fails before creating anything", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "alice", 0)

		_, err := e.Workflow.Submit("alice", SubmitRequest{
			Type:      models.ProposalTypeLocation,
			ContentID: "loc-1",
			Summary:   "Correct the founding year",
			Changes:   validChanges(),
			Expedite:  true,
		})
		assert.ErrorIs(t, err, ErrInsufficientBalance)

		var count int64
		require.NoError(t, e.DB.Model(&models.Proposal{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("failed creation rolls the expedite fee back", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "alice", 0)
		_, _, err := e.Ledger.Credit("alice", models.TransactionEarn, 20, "seed", nil)
		require.NoError(t, err)

		require.NoError(t, e.DB.Callback().Create().Before("gorm:create").
			Register("fail_proposal_insert", func(db *gorm.DB) {
				if db.Statement.Table == "proposals" {
					db.AddError(errors.New("insert failed"))
				}
			}))
		defer e.DB.Callback().Create().Remove("fail_proposal_insert")

		_, err = e.Workflow.Submit("alice", SubmitRequest{
			Type:      models.ProposalTypeLocation,
			ContentID: "loc-1",
			Summary:   "Correct the founding year",
			Changes:   validChanges(),
			Expedite:  true,
		})
		require.Error(t, err)

		// The fee and the proposal share one transaction: no proposal, no
		// charge, no orphaned spend row.
		assert.Equal(t, 20.0, e.reload(t, "alice").TokenBalance)
		var spends int64
		require.NoError(t, e.DB.Model(&models.TokenTransaction{}).
			Where("user_id = ? AND reason = ?", "alice", "expedite_proposal").
			Count(&spends).Error)
		assert.Zero(t, spends)
	})

	t.Run("locked content rejects new proposals", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "alice", 0)
		e.createUser(t, "bob", 0)

		p, err := e.Workflow.Submit("alice", SubmitRequest{
			Type:      models.ProposalTypeLocation,
			ContentID: "loc-1",
			Summary:   "Correct the founding year",
			Changes:   validChanges(),
		})
		require.NoError(t, err)
		require.NoError(t, e.DB.Model(p).Update("locked", true).Error)

		_, err = e.Workflow.Submit("bob", SubmitRequest{
			Type:      models.ProposalTypeLocation,
			ContentID: "loc-1",
			Summary:   "Competing rewrite",
			Changes:   validChanges(),
		})
		assert.ErrorIs(t, err, ErrContentLocked)
	})
}

func TestResolutionLifecycle(t *testing.T) {
	submit := func(t *testing.T, e *engine) *models.Proposal {
		t.Helper()
		p, err := e.Workflow.Submit("proposer", SubmitRequest{
			Type:      models.ProposalTypeLocation,
			ContentID: "loc-1",
			Continent: "Ardeth",
			Summary:   "Correct the founding year",
			Changes:   validChanges(),
		})
		require.NoError(t, err)
		return p
	}

	t.Run("approval rewards proposer and correct voters", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "proposer", 0)
		e.createUser(t, "v1", 150)
		e.createUser(t, "v2", 150)
		e.createUser(t, "v3", 150)
		p := submit(t, e)

		for _, v := range []struct {
			id string
			d  models.VoteDecision
		}{
			{"v1", models.VoteApprove},
			{"v2", models.VoteApprove},
			{"v3", models.VoteReject},
		} {
			_, err := e.Workflow.CastVote(p.ID, v.id, v.d, "")
			require.NoError(t, err)
		}

		var resolved models.Proposal
		require.NoError(t, e.DB.Where("id = ?", p.ID).First(&resolved).Error)
		assert.Equal(t, models.ProposalStatusApproved, resolved.Status)
		assert.True(t, resolved.Resolved)
		require.NotNil(t, resolved.ResolvedAt)

		proposer := e.reload(t, "proposer")
		// First approval path: +20 reputation, +10 QP, stats and speed counter.
		assert.Equal(t, 20, proposer.Reputation)
		assert.Equal(t, 10.0, proposer.TokenBalance)
		assert.Equal(t, int64(1), proposer.ApprovedEdits)
		assert.Equal(t, int64(1), proposer.LocationEdits)
		assert.Equal(t, []string{"Ardeth"}, proposer.ContinentsEdited)
		assert.Equal(t, int64(1), proposer.SpeedApprovals)

		// Correct voters: +2 participation +5 correct = 7; 0.5 + 2 = 2.5 QP.
		v1 := e.reload(t, "v1")
		assert.Equal(t, 157, v1.Reputation)
		assert.Equal(t, 2.5, v1.TokenBalance)

		// The dissenting voter only gets participation rewards.
		v3 := e.reload(t, "v3")
		assert.Equal(t, 152, v3.Reputation)
		assert.Equal(t, 0.5, v3.TokenBalance)

		assert.Equal(t, 1, e.Notifier.count(EventProposalApproved))
	})

	t.Run("rejection penalizes the proposer", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "proposer", 10)
		e.createUser(t, "v1", 150)
		e.createUser(t, "v2", 150)
		e.createUser(t, "v3", 150)
		p := submit(t, e)

		for _, v := range []string{"v1", "v2", "v3"} {
			_, err := e.Workflow.CastVote(p.ID, v, models.VoteReject, "")
			require.NoError(t, err)
		}

		var resolved models.Proposal
		require.NoError(t, e.DB.Where("id = ?", p.ID).First(&resolved).Error)
		assert.Equal(t, models.ProposalStatusRejected, resolved.Status)

		assert.Equal(t, 7, e.reload(t, "proposer").Reputation) // 10 - 3
		assert.Equal(t, 1, e.Notifier.count(EventProposalRejected))
	})

	t.Run("concurrent resolution applies consequences exactly once", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "proposer", 0)
		e.createUser(t, "v1", 150)
		e.createUser(t, "v2", 150)
		e.createUser(t, "v3", 150)
		p := submit(t, e)

		// Cast votes without triggering resolution.
		for _, v := range []string{"v1", "v2", "v3"} {
			_, _, err := e.Voting.CastVote(p.ID, v, models.VoteApprove, "")
			require.NoError(t, err)
		}

		var wg sync.WaitGroup
		errs := make([]error, 4)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = e.Workflow.Resolve(p.ID)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				require.ErrorIs(t, err, ErrAlreadyResolved)
			}
		}
		assert.Equal(t, 1, succeeded)

		var rewards int64
		require.NoError(t, e.DB.Model(&models.TokenTransaction{}).
			Where("user_id = ? AND reason = ?", "proposer", "first_edit_approved").
			Count(&rewards).Error)
		assert.Equal(t, int64(1), rewards)
		assert.Equal(t, 20, e.reload(t, "proposer").Reputation)
	})

	t.Run("deadline sweep resolves due proposals", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "proposer", 0)
		e.createUser(t, "v1", 150)
		e.createUser(t, "v2", 150)
		e.createUser(t, "v3", 150)
		p := submit(t, e)
		_, _, err := e.Voting.CastVote(p.ID, "v1", models.VoteApprove, "")
		require.NoError(t, err)

		// One vote, quorum never reached; past the deadline the sweep
		// auto-rejects.
		n := e.Workflow.ResolveDue(time.Now())
		assert.Equal(t, 0, n)

		require.NoError(t, e.DB.Model(p).Update("ends_at", time.Now().Add(-time.Minute)).Error)
		n = e.Workflow.ResolveDue(time.Now())
		assert.Equal(t, 1, n)

		var resolved models.Proposal
		require.NoError(t, e.DB.Where("id = ?", p.ID).First(&resolved).Error)
		assert.Equal(t, models.ProposalStatusRejected, resolved.Status)
	})

	t.Run("admin archive bypasses resolution", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "proposer", 0)
		p := submit(t, e)

		require.NoError(t, e.Workflow.AdminArchive(p.ID))
		assert.ErrorIs(t, e.Workflow.AdminArchive(p.ID), ErrAlreadyResolved)

		var archived models.Proposal
		require.NoError(t, e.DB.Where("id = ?", p.ID).First(&archived).Error)
		assert.Equal(t, models.ProposalStatusArchived, archived.Status)
		assert.Zero(t, e.reload(t, "proposer").Reputation)
	})

	t.Run("retention archival", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "proposer", 0)
		p := submit(t, e)

		old := time.Now().AddDate(0, 0, -100)
		require.NoError(t, e.DB.Model(p).Updates(map[string]interface{}{
			"status": models.ProposalStatusApproved, "resolved": true, "resolved_at": old,
		}).Error)

		n, err := e.Workflow.ArchiveExpired(time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestCommunityActions(t *testing.T) {
	approvedProposal := func(t *testing.T, e *engine) *models.Proposal {
		t.Helper()
		p, err := e.Workflow.Submit("author", SubmitRequest{
			Type:      models.ProposalTypeLocation,
			ContentID: "loc-1",
			Summary:   "Correct the founding year",
			Changes:   validChanges(),
		})
		require.NoError(t, err)
		require.NoError(t, e.DB.Model(p).Updates(map[string]interface{}{
			"status": models.ProposalStatusApproved, "resolved": true,
		}).Error)
		return p
	}

	t.Run("helpful mark rewards the author", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "author", 0)
		e.createUser(t, "reader", 0)
		p := approvedProposal(t, e)

		require.NoError(t, e.Workflow.MarkEditHelpful(p.ID, "reader"))

		author := e.reload(t, "author")
		assert.Equal(t, int64(1), author.HelpfulVotesReceived)
		assert.Equal(t, 5, author.Reputation)
		assert.Equal(t, 3.0, author.TokenBalance)
	})

	t.Run("helpful mark rejects self and pending", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "author", 0)
		p := approvedProposal(t, e)

		assert.ErrorIs(t, e.Workflow.MarkEditHelpful(p.ID, "author"), ErrSelfAction)

		require.NoError(t, e.DB.Model(p).Update("status", models.ProposalStatusPending).Error)
		assert.ErrorIs(t, e.Workflow.MarkEditHelpful(p.ID, "reader"), ErrVotingClosed)
	})

	t.Run("reference mark", func(t *testing.T) {
		e := newTestEngine(t)
		e.createUser(t, "author", 0)
		e.createUser(t, "reader", 0)
		p := approvedProposal(t, e)

		require.NoError(t, e.Workflow.MarkEditReferenced(p.ID, "reader"))
		author := e.reload(t, "author")
		assert.Equal(t, 15, author.Reputation)
		assert.Equal(t, 5.0, author.TokenBalance)
		assert.Equal(t, 1, e.Notifier.count(EventEditReferenced))
	})
}

func TestRecordDailyLogin(t *testing.T) {
	e := newTestEngine(t)
	e.createUser(t, "alice", 0)

	t.Run("first login starts a streak", func(t *testing.T) {
		credited, err := e.Workflow.RecordDailyLogin("alice")
		require.NoError(t, err)
		assert.Equal(t, 1.0, credited)
		assert.Equal(t, 1, e.reload(t, "alice").LoginStreakDays)
	})

	t.Run("second claim today is a no-op", func(t *testing.T) {
		credited, err := e.Workflow.RecordDailyLogin("alice")
		require.NoError(t, err)
		assert.Zero(t, credited)
	})

	t.Run("failed credit does not consume the day's claim", func(t *testing.T) {
		e2 := newTestEngine(t)
		e2.createUser(t, "bob", 0)

		require.NoError(t, e2.DB.Callback().Create().Before("gorm:create").
			Register("fail_ledger_insert", func(db *gorm.DB) {
				if db.Statement.Table == "token_transactions" {
					db.AddError(errors.New("insert failed"))
				}
			}))

		_, err := e2.Workflow.RecordDailyLogin("bob")
		require.Error(t, err)

		bob := e2.reload(t, "bob")
		assert.Empty(t, bob.LastLoginDate)
		assert.Zero(t, bob.LoginStreakDays)

		// Once the ledger recovers the same day is still claimable.
		require.NoError(t, e2.DB.Callback().Create().Remove("fail_ledger_insert"))
		credited, err := e2.Workflow.RecordDailyLogin("bob")
		require.NoError(t, err)
		assert.Equal(t, 1.0, credited)
	})

	t.Run("streak continues from yesterday and is capped", func(t *testing.T) {
		yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
		require.NoError(t, e.DB.Model(&models.CommunityUser{}).
			Where("id = ?", "alice").
			Updates(map[string]interface{}{
				"last_login_date":   yesterday,
				"login_streak_days": 9,
			}).Error)

		credited, err := e.Workflow.RecordDailyLogin("alice")
		require.NoError(t, err)
		assert.Equal(t, e.Cfg.Tokens.DailyMaxLoginReward, credited)
		assert.Equal(t, 10, e.reload(t, "alice").LoginStreakDays)
	})
}

func TestPurchasePerk(t *testing.T) {
	setup := func(t *testing.T) (*engine, *models.Proposal) {
		e := newTestEngine(t)
		e.createUser(t, "alice", 0)
		_, _, err := e.Ledger.Credit("alice", models.TransactionEarn, 50, "seed", nil)
		require.NoError(t, err)

		p, err := e.Workflow.Submit("alice", SubmitRequest{
			Type:      models.ProposalTypeLocation,
			ContentID: "loc-1",
			Summary:   "Correct the founding year",
			Changes:   validChanges(),
		})
		require.NoError(t, err)
		return e, p
	}

	t.Run("lock proposal", func(t *testing.T) {
		e, p := setup(t)
		require.NoError(t, e.Workflow.PurchasePerk("alice", PerkLockProposal, p.ID))

		var locked models.Proposal
		require.NoError(t, e.DB.Where("id = ?", p.ID).First(&locked).Error)
		assert.True(t, locked.Locked)
		assert.Equal(t, 30.0, e.reload(t, "alice").TokenBalance)
	})

	t.Run("expedite shortens the window", func(t *testing.T) {
		e, p := setup(t)
		require.NoError(t, e.Workflow.PurchasePerk("alice", PerkExpediteProposal, p.ID))

		var expedited models.Proposal
		require.NoError(t, e.DB.Where("id = ?", p.ID).First(&expedited).Error)
		assert.True(t, expedited.Expedited)
		assert.True(t, expedited.EndsAt.Before(p.EndsAt))
	})

	t.Run("only the proposer may buy proposal perks", func(t *testing.T) {
		e, p := setup(t)
		e.createUser(t, "mallory", 0)
		_, _, err := e.Ledger.Credit("mallory", models.TransactionEarn, 50, "seed", nil)
		require.NoError(t, err)

		assert.ErrorIs(t, e.Workflow.PurchasePerk("mallory", PerkLockProposal, p.ID), ErrNotProposer)
	})

	t.Run("unknown perk", func(t *testing.T) {
		e, p := setup(t)
		err := e.Workflow.PurchasePerk("alice", "instant_approval", p.ID)
		assert.ErrorIs(t, err, ErrUnknownPerk)
	})
}

func TestCastVoteViaWorkflowRejectsDuplicates(t *testing.T) {
	e := newTestEngine(t)
	e.createUser(t, "proposer", 0)
	e.createUser(t, "editor", 150)
	p, err := e.Workflow.Submit("proposer", SubmitRequest{
		Type:      models.ProposalTypeLocation,
		ContentID: "loc-1",
		Summary:   "Correct the founding year",
		Changes:   validChanges(),
	})
	require.NoError(t, err)

	_, err = e.Workflow.CastVote(p.ID, "editor", models.VoteApprove, "")
	require.NoError(t, err)
	_, err = e.Workflow.CastVote(p.ID, "editor", models.VoteApprove, "")
	require.True(t, errors.Is(err, ErrDuplicateVote))
}
