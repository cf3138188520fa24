package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/accountd-io/accountd/internal/database"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunMigrations(db, "sqlite"))
	return db
}

func testUser(username, email string) *User {
	return &User{
		Email:          email,
		Username:       username,
		DisplayName:    username,
		IsActive:       true,
		HashedPassword: "$2a$04$fakehashfakehashfakehash",
	}
}

func TestUserCreateAndGet(t *testing.T) {
	users := NewUserStore(newTestDB(t), "sqlite")
	ctx := context.Background()

	user := testUser("alice", "alice@example.com")
	require.NoError(t, users.Create(ctx, user))
	require.NotZero(t, user.ID)

	byID, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
	assert.Equal(t, "alice@example.com", byID.Email)
	assert.True(t, byID.IsActive)

	byName, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byEmail, err := users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestUserNotFound(t *testing.T) {
	users := NewUserStore(newTestDB(t), "sqlite")
	ctx := context.Background()

	_, err := users.GetByID(ctx, 42)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = users.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, users.Delete(ctx, 42), ErrUserNotFound)
}

func TestUserUniqueConstraints(t *testing.T) {
	users := NewUserStore(newTestDB(t), "sqlite")
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, testUser("alice", "alice@example.com")))

	err := users.Create(ctx, testUser("alice", "other@example.com"))
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	err = users.Create(ctx, testUser("alice2", "alice@example.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestUserEmptyEmailIsNotUnique(t *testing.T) {
	users := NewUserStore(newTestDB(t), "sqlite")
	ctx := context.Background()

	// Absent emails are stored as NULL, so two of them never conflict.
	require.NoError(t, users.Create(ctx, testUser("one", "")))
	require.NoError(t, users.Create(ctx, testUser("two", "")))

	user, err := users.GetByUsername(ctx, "one")
	require.NoError(t, err)
	assert.Empty(t, user.Email)
}

func TestUserUpdate(t *testing.T) {
	users := NewUserStore(newTestDB(t), "sqlite")
	ctx := context.Background()

	user := testUser("alice", "alice@example.com")
	require.NoError(t, users.Create(ctx, user))

	user.DisplayName = "Alice A."
	user.IsActive = false
	require.NoError(t, users.Update(ctx, user))

	got, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", got.DisplayName)
	assert.False(t, got.IsActive)
}

func TestUserList(t *testing.T) {
	users := NewUserStore(newTestDB(t), "sqlite")
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		require.NoError(t, users.Create(ctx, testUser(name, name+"@example.com")))
	}

	page, err := users.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "bob", page[0].Username)
	assert.Equal(t, "carol", page[1].Username)
}

func TestSessionLifecycle(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db, "sqlite")
	sessions := NewSessionStore(db, "sqlite")
	ctx := context.Background()

	user := testUser("alice", "")
	require.NoError(t, users.Create(ctx, user))

	now := time.Now()
	session, err := sessions.Create(ctx, user.ID, now, now.Add(time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)

	got, err := sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)
	assert.WithinDuration(t, now, got.CreatedAt, time.Second)

	require.NoError(t, sessions.Delete(ctx, session.ID))
	_, err = sessions.GetByID(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, sessions.Delete(ctx, session.ID), ErrSessionNotFound)
}

func TestSessionListOrderedByCreation(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db, "sqlite")
	sessions := NewSessionStore(db, "sqlite")
	ctx := context.Background()

	user := testUser("alice", "")
	require.NoError(t, users.Create(ctx, user))

	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	// Insert out of order; the listing must still come back oldest first.
	for _, offset := range []time.Duration{2 * time.Minute, 0, time.Minute} {
		_, err := sessions.Create(ctx, user.ID, base.Add(offset), base.Add(offset+time.Hour))
		require.NoError(t, err)
	}

	listed, err := sessions.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.True(t, listed[0].CreatedAt.Before(listed[1].CreatedAt))
	assert.True(t, listed[1].CreatedAt.Before(listed[2].CreatedAt))
}

func TestSessionDeleteByUser(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db, "sqlite")
	sessions := NewSessionStore(db, "sqlite")
	ctx := context.Background()

	alice := testUser("alice", "")
	bob := testUser("bob", "")
	require.NoError(t, users.Create(ctx, alice))
	require.NoError(t, users.Create(ctx, bob))

	now := time.Now()
	for i := 0; i < 3; i++ {
		_, err := sessions.Create(ctx, alice.ID, now, now.Add(time.Hour))
		require.NoError(t, err)
	}
	keep, err := sessions.Create(ctx, bob.ID, now, now.Add(time.Hour))
	require.NoError(t, err)

	deleted, err := sessions.DeleteByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	remaining, err := sessions.ListByUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, keep.ID, remaining[0].ID)
}

func TestSessionDeleteOlderThan(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db, "sqlite")
	sessions := NewSessionStore(db, "sqlite")
	ctx := context.Background()

	user := testUser("alice", "")
	require.NoError(t, users.Create(ctx, user))

	now := time.Now()
	_, err := sessions.Create(ctx, user.ID, now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)
	fresh, err := sessions.Create(ctx, user.ID, now, now.Add(time.Hour))
	require.NoError(t, err)

	deleted, err := sessions.DeleteOlderThan(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := sessions.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, fresh.ID, remaining[0].ID)
}
