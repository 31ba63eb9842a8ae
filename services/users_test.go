package services

import (
	"testing"

	"lore-governance-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureUser(t *testing.T) {
	t.Run("creates with the welcome grant", func(t *testing.T) {
		e := newTestEngine(t)

		user, err := e.Users.EnsureUser("alice", "alice")
		require.NoError(t, err)
		assert.Equal(t, e.Cfg.Tokens.InitialBalance, user.TokenBalance)

		txs, err := e.Ledger.Transactions("alice", 0)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, "welcome_grant", txs[0].Reason)
		assert.Equal(t, models.TransactionBonus, txs[0].Type)

		supply, err := e.Ledger.Supply()
		require.NoError(t, err)
		assert.Equal(t, e.Cfg.Tokens.InitialBalance, supply.Issued)
	})

	t.Run("is idempotent", func(t *testing.T) {
		e := newTestEngine(t)

		first, err := e.Users.EnsureUser("alice", "alice")
		require.NoError(t, err)
		second, err := e.Users.EnsureUser("alice", "renamed")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "alice", second.Username)

		txs, err := e.Ledger.Transactions("alice", 0)
		require.NoError(t, err)
		assert.Len(t, txs, 1) // one grant, ever
	})

	t.Run("welcome grant ignores the daily cap", func(t *testing.T) {
		e := newTestEngine(t)

		user, err := e.Users.EnsureUser("alice", "alice")
		require.NoError(t, err)
		assert.Zero(t, user.TokenEarnedToday)
	})
}
