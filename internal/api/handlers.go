package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/accountd-io/accountd/internal/auth"
	"github.com/accountd-io/accountd/internal/store"
	"github.com/go-chi/chi/v5"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError translates core error kinds into protocol responses. The
// ErrUnauthorized check runs first: credential failures keep distinct
// internal causes but must present a uniform 401 body, so the precise cause
// only goes to the log.
func writeError(w http.ResponseWriter, err error) {
	var conflict *auth.ConflictError

	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		log.Printf("Authorization failure: %v", err)
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Not Authorized"})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: conflict.Error()})
	case errors.Is(err, auth.ErrValidation),
		errors.Is(err, auth.ErrNoActiveSession),
		errors.Is(err, auth.ErrInactiveUser):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "User not found"})
	default:
		log.Printf("Internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
	}
}

// CreateUserHandler handles user registration
func (api *Api) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var candidate auth.NewUser
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	user, err := api.accounts.Register(r.Context(), candidate)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// CurrentUserHandler returns the user resolved from the session cookie
func (api *Api) CurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetUserHandler returns a user by id
func (api *Api) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid user id"})
		return
	}

	user, err := api.accounts.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ListUsersHandler returns a paginated list of users
func (api *Api) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, err := api.accounts.List(r.Context(), skip, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []*store.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// UpdateUserHandler applies a partial update to the cross-validated caller
func (api *Api) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthenticated)
		return
	}

	var patch auth.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	updated, err := api.accounts.Update(r.Context(), user.ID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteUserHandler removes the cross-validated caller's account
func (api *Api) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthenticated)
		return
	}

	deleted, err := api.accounts.Delete(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

// AuthTokenHandler verifies form credentials and returns a bearer token
func (api *Api) AuthTokenHandler(w http.ResponseWriter, r *http.Request) {
	username, password, err := credentialsFromForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	user, err := api.accounts.VerifyCredentials(r.Context(), username, password)
	if err != nil {
		writeError(w, err)
		return
	}
	if !user.IsActive {
		writeError(w, auth.ErrInactiveUser)
		return
	}

	token, err := api.codec.Issue(user.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// LoginHandler verifies form credentials and opens a server-side session
func (api *Api) LoginHandler(w http.ResponseWriter, r *http.Request) {
	username, password, err := credentialsFromForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	user, err := api.accounts.VerifyCredentials(r.Context(), username, password)
	if err != nil {
		writeError(w, err)
		return
	}
	if !user.IsActive {
		writeError(w, auth.ErrUnauthenticated)
		return
	}

	session, err := api.sessions.Login(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   api.Config.Auth.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Expires:  session.ExpiresAt,
	})
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged in successfully"})
}

// LogoutHandler ends every session the caller holds and expires the cookie
func (api *Api) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthenticated)
		return
	}

	if err := api.sessions.Logout(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   api.Config.Auth.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

func credentialsFromForm(r *http.Request) (username, password string, err error) {
	if err := r.ParseForm(); err != nil {
		return "", "", errors.New("invalid form data")
	}
	username = r.PostFormValue("username")
	password = r.PostFormValue("password")
	if username == "" || password == "" {
		return "", "", errors.New("username and password are required")
	}
	return username, password, nil
}
