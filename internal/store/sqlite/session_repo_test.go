package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatengine/internal/store/sqlite"
)

func userOnline(t *testing.T, db *sql.DB, userID int64) bool {
	t.Helper()
	var online bool
	require.NoError(t, db.QueryRow(`SELECT is_online FROM users WHERE id = ?`, userID).Scan(&online))
	return online
}

func TestSessionTransitions(t *testing.T) {
	db := openTestDB(t)
	repo := sqlite.NewSessionRepo(db)
	ctx := context.Background()

	seedUser(t, db, 1, "alice")

	t.Run("FirstConnectionGoesOnline", func(t *testing.T) {
		wentOnline, err := repo.Connect(ctx, "conn-a", 1)
		require.NoError(t, err)
		assert.True(t, wentOnline)
		assert.True(t, userOnline(t, db, 1))
	})

	t.Run("SecondDeviceStaysOnline", func(t *testing.T) {
		wentOnline, err := repo.Connect(ctx, "conn-b", 1)
		require.NoError(t, err)
		assert.False(t, wentOnline)
	})

	t.Run("DuplicateConnectIsIgnored", func(t *testing.T) {
		wentOnline, err := repo.Connect(ctx, "conn-a", 1)
		require.NoError(t, err)
		assert.False(t, wentOnline)
	})

	t.Run("FirstDisconnectKeepsOnline", func(t *testing.T) {
		wentOffline, err := repo.Disconnect(ctx, "conn-a", 1)
		require.NoError(t, err)
		assert.False(t, wentOffline)
		assert.True(t, userOnline(t, db, 1))
	})

	t.Run("LastDisconnectGoesOffline", func(t *testing.T) {
		wentOffline, err := repo.Disconnect(ctx, "conn-b", 1)
		require.NoError(t, err)
		assert.True(t, wentOffline)
		assert.False(t, userOnline(t, db, 1))
	})

	t.Run("DisconnectUnknownConnIsNoop", func(t *testing.T) {
		wentOffline, err := repo.Disconnect(ctx, "conn-x", 1)
		require.NoError(t, err)
		assert.False(t, wentOffline)
	})
}

func TestSessionResetAndConnIDs(t *testing.T) {
	db := openTestDB(t)
	repo := sqlite.NewSessionRepo(db)
	ctx := context.Background()

	seedUser(t, db, 1, "alice")
	seedUser(t, db, 2, "bob")

	_, err := repo.Connect(ctx, "conn-a", 1)
	require.NoError(t, err)
	_, err = repo.Connect(ctx, "conn-b", 1)
	require.NoError(t, err)
	_, err = repo.Connect(ctx, "conn-c", 2)
	require.NoError(t, err)

	ids, err := repo.ConnIDsForUsers(ctx, []int64{1})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"conn-a", "conn-b"}, ids)

	ids, err = repo.ConnIDsForUsers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, repo.Reset(ctx))
	ids, err = repo.ConnIDsForUsers(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Empty(t, ids)
}
