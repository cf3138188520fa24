package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/accountd-io/accountd/internal/store"
)

// RequestIdentity carries the raw credentials extracted from an inbound
// request, assembled once at the transport boundary and handed to the
// resolver. Either field may be empty.
type RequestIdentity struct {
	SessionID string
	Token     string
}

// IdentityResolver turns session cookies and bearer tokens into users, and
// reconciles the two when an endpoint demands both.
type IdentityResolver struct {
	users    store.UserStore
	sessions store.SessionStore
	codec    *TokenCodec
}

// NewIdentityResolver creates an IdentityResolver.
func NewIdentityResolver(users store.UserStore, sessions store.SessionStore, codec *TokenCodec) *IdentityResolver {
	return &IdentityResolver{
		users:    users,
		sessions: sessions,
		codec:    codec,
	}
}

// ResolveSession returns the user owning the session named by the cookie
// value.
func (r *IdentityResolver) ResolveSession(ctx context.Context, sessionID string) (*store.User, error) {
	if sessionID == "" {
		return nil, ErrUnauthenticated
	}

	session, err := r.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("resolving session: %w", err)
	}

	user, err := r.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Session outlived its user; treat as an auth failure.
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("resolving session owner: %w", err)
	}
	return user, nil
}

// ResolveToken returns the user named by a bearer token's subject.
func (r *IdentityResolver) ResolveToken(ctx context.Context, token string) (*store.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	subject, err := r.codec.Resolve(token)
	if err != nil {
		return nil, err
	}

	user, err := r.users.GetByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: token subject %q: %w", ErrUnauthorized, subject, ErrUserNotFound)
		}
		return nil, fmt.Errorf("resolving token subject: %w", err)
	}
	return user, nil
}

// CrossValidate resolves both the session and the token and requires them to
// name the same user. Destructive endpoints use this to defend against a
// forged token replayed against someone else's live session, or vice versa.
func (r *IdentityResolver) CrossValidate(ctx context.Context, ident RequestIdentity) (*store.User, error) {
	sessionUser, err := r.ResolveSession(ctx, ident.SessionID)
	if err != nil {
		return nil, err
	}

	tokenUser, err := r.ResolveToken(ctx, ident.Token)
	if err != nil {
		return nil, err
	}

	if sessionUser.ID != tokenUser.ID {
		return nil, fmt.Errorf("session user %d, token user %d: %w",
			sessionUser.ID, tokenUser.ID, ErrIdentityMismatch)
	}
	return sessionUser, nil
}
