package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/accountd-io/accountd/internal/auth"
	"github.com/accountd-io/accountd/internal/store"
)

type contextKey string

const userContextKey contextKey = "user"

// SessionCookieName is the cookie carrying the session identifier.
const SessionCookieName = "session_id"

// identityFromRequest assembles the request's raw credentials once, so the
// resolver never touches transport details itself.
func identityFromRequest(r *http.Request) auth.RequestIdentity {
	var ident auth.RequestIdentity

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		ident.SessionID = cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
		ident.Token = parts[1]
	}

	return ident
}

// RequireSession admits only requests carrying a live session cookie and
// stores the resolved user in the request context.
func (api *Api) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := identityFromRequest(r)

		user, err := api.resolver.ResolveSession(r.Context(), ident.SessionID)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCrossValidated admits only requests whose session cookie and bearer
// token resolve to the same user. Destructive endpoints sit behind this.
func (api *Api) RequireCrossValidated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := identityFromRequest(r)

		user, err := api.resolver.CrossValidate(r.Context(), ident)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userFromContext retrieves the resolved user placed by the auth middleware.
func userFromContext(ctx context.Context) (*store.User, bool) {
	user, ok := ctx.Value(userContextKey).(*store.User)
	return user, ok
}
