package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/accountd-io/accountd/internal/store"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccountService(t *testing.T) (*AccountService, store.UserStore, store.SessionStore) {
	t.Helper()
	users, sessions := newTestStores(t)
	svc := NewAccountService(users, sessions, NewPasswordHasher(testBcryptCost))
	return svc, users, sessions
}

func TestRegister(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, NewUser{
		Email:    "bob@x.com",
		Username: "bob",
		Password: "longpassword1",
	})
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "bob", user.Username)
	assert.Equal(t, "bob@x.com", user.Email)
	assert.Equal(t, "bob", user.DisplayName, "display name defaults to username")
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "longpassword1", user.HashedPassword)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, NewUser{Username: "bob", Email: "bob@x.com", Password: "longpassword1"})
	require.NoError(t, err)

	// Same username, every other field different.
	_, err = svc.Register(ctx, NewUser{Username: "bob", Email: "other@x.com", Password: "differentpass2"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "username", conflict.Field)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, NewUser{Username: "bob", Email: "bob@x.com", Password: "longpassword1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, NewUser{Username: "robert", Email: "bob@x.com", Password: "differentpass2"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "email", conflict.Field)
}

func TestRegisterWithoutEmail(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()

	// Email is optional; two users without one must not collide.
	first, err := svc.Register(ctx, NewUser{Username: "noemail1", Password: "longpassword1"})
	require.NoError(t, err)
	assert.Empty(t, first.Email)

	_, err = svc.Register(ctx, NewUser{Username: "noemail2", Password: "longpassword1"})
	require.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()

	cases := []struct {
		name      string
		candidate NewUser
	}{
		{"short username", NewUser{Username: "ab", Password: "longpassword1"}},
		{"bad username chars", NewUser{Username: "bad name!", Password: "longpassword1"}},
		{"bad email", NewUser{Username: "valid_user", Email: "not-an-email", Password: "longpassword1"}},
		{"short password", NewUser{Username: "valid_user", Password: "short"}},
		{"short display name", NewUser{Username: "valid_user", DisplayName: "ab", Password: "longpassword1"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.candidate)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestVerifyCredentials(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, NewUser{Username: "bob", Email: "bob@x.com", Password: "longpassword1"})
	require.NoError(t, err)

	user, err := svc.VerifyCredentials(ctx, "bob", "longpassword1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	// Wrong password and unknown user both present as the same class.
	_, err = svc.VerifyCredentials(ctx, "bob", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.VerifyCredentials(ctx, "nobody", "longpassword1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateEmailTaken(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, NewUser{Username: "alice", Email: "alice@x.com", Password: "longpassword1"})
	require.NoError(t, err)
	bob, err := svc.Register(ctx, NewUser{Username: "bob", Email: "bob@x.com", Password: "longpassword1"})
	require.NoError(t, err)

	taken := "alice@x.com"
	_, err = svc.Update(ctx, bob.ID, Patch{Email: &taken})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "email", conflict.Field)

	// Writing back the user's own email is not a conflict.
	own := "bob@x.com"
	updated, err := svc.Update(ctx, bob.ID, Patch{Email: &own})
	require.NoError(t, err)
	assert.Equal(t, "bob@x.com", updated.Email)
}

func TestUpdatePartialMerge(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()

	bob, err := svc.Register(ctx, NewUser{Username: "bob", Email: "bob@x.com", Password: "longpassword1"})
	require.NoError(t, err)

	display := "Bob the Builder"
	updated, err := svc.Update(ctx, bob.ID, Patch{DisplayName: &display})
	require.NoError(t, err)

	assert.Equal(t, "Bob the Builder", updated.DisplayName)
	assert.Equal(t, "bob", updated.Username, "untouched fields survive the patch")
	assert.Equal(t, "bob@x.com", updated.Email)
	assert.True(t, updated.IsActive)
	assert.Equal(t, bob.HashedPassword, updated.HashedPassword)
}

func TestUpdatePasswordRehash(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()

	bob, err := svc.Register(ctx, NewUser{Username: "bob", Password: "longpassword1"})
	require.NoError(t, err)

	newPassword := "evenlongerpassword2"
	updated, err := svc.Update(ctx, bob.ID, Patch{Password: &newPassword})
	require.NoError(t, err)
	assert.NotEqual(t, bob.HashedPassword, updated.HashedPassword)

	_, err = svc.VerifyCredentials(ctx, "bob", "evenlongerpassword2")
	require.NoError(t, err)
	_, err = svc.VerifyCredentials(ctx, "bob", "longpassword1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpdateDeactivate(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()

	bob, err := svc.Register(ctx, NewUser{Username: "bob", Password: "longpassword1"})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(ctx, bob.ID, Patch{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestUpdateUnknownUser(t *testing.T) {
	svc, _, _ := newTestAccountService(t)

	display := "Ghost"
	_, err := svc.Update(context.Background(), 9999, Patch{DisplayName: &display})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteCascadesSessions(t *testing.T) {
	svc, _, sessions := newTestAccountService(t)
	ctx := context.Background()

	bob, err := svc.Register(ctx, NewUser{Username: "bob", Password: "longpassword1"})
	require.NoError(t, err)

	mgr := NewSessionManager(sessions, testSessionTTL, 5)
	for i := 0; i < 2; i++ {
		_, err := mgr.Login(ctx, bob)
		require.NoError(t, err)
	}

	deleted, err := svc.Delete(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, deleted.ID)

	remaining, err := sessions.ListByUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining, "deleting an account removes its sessions")

	_, err = svc.GetByID(ctx, bob.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegisterManyRandomUsers(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		user, err := svc.Register(ctx, NewUser{
			Email:    fmt.Sprintf("user%d@%s", i, gofakeit.DomainName()),
			Username: fmt.Sprintf("user_%d_%s", i, gofakeit.LetterN(6)),
			Password: gofakeit.Password(true, true, true, false, false, 12),
		})
		require.NoError(t, err)
		assert.NotZero(t, user.ID)
	}
}
