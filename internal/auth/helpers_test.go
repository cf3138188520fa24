package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/accountd-io/accountd/internal/database"
	"github.com/accountd-io/accountd/internal/store"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

const (
	testBcryptCost = 4 // minimum cost keeps the suite fast
	testSessionTTL = time.Hour
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

func newTestStores(t *testing.T) (store.UserStore, store.SessionStore) {
	t.Helper()
	db := newTestDB(t)
	return store.NewUserStore(db, "sqlite"), store.NewSessionStore(db, "sqlite")
}

func createTestUser(t *testing.T, users store.UserStore, username, email string) *store.User {
	t.Helper()

	hasher := NewPasswordHasher(testBcryptCost)
	hashed, err := hasher.Hash("longpassword1")
	require.NoError(t, err)

	user := &store.User{
		Email:          email,
		Username:       username,
		DisplayName:    username,
		IsActive:       true,
		HashedPassword: hashed,
	}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func sessionIDs(sessions []*store.Session) []string {
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	return ids
}

var testEpoch = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
