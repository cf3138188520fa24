package api

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/accountd-io/accountd/internal/auth"
	"github.com/accountd-io/accountd/internal/config"
	"github.com/accountd-io/accountd/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Api struct {
	Config   config.Config
	Router   *chi.Mux
	accounts *auth.AccountService
	sessions *auth.SessionManager
	resolver *auth.IdentityResolver
	codec    *auth.TokenCodec
}

func NewApi(cfg config.Config, db *sql.DB) (*Api, error) {
	users := store.NewUserStore(db, cfg.Database.Type)
	sessionStore := store.NewSessionStore(db, cfg.Database.Type)

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	codec := auth.NewTokenCodec(cfg.Auth.SecretKey, cfg.TokenTTL())

	api := &Api{
		Config:   cfg,
		Router:   chi.NewRouter(),
		accounts: auth.NewAccountService(users, sessionStore, hasher),
		sessions: auth.NewSessionManager(sessionStore, cfg.SessionTTL(), cfg.Auth.MaxSessionsPerUser),
		resolver: auth.NewIdentityResolver(users, sessionStore, codec),
		codec:    codec,
	}

	api.setupRoutes()
	return api, nil
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://*.local:*", "http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Heartbeat("/heartbeat"))

	r.Route("/User", func(r chi.Router) {
		r.Post("/", api.CreateUserHandler)
		r.Get("/", api.ListUsersHandler)
		r.With(api.RequireSession).Get("/me", api.CurrentUserHandler)
		r.With(api.RequireCrossValidated).Put("/me", api.UpdateUserHandler)
		r.With(api.RequireCrossValidated).Delete("/me", api.DeleteUserHandler)
		r.Get("/{userID}", api.GetUserHandler)
	})

	r.Route("/session", func(r chi.Router) {
		r.Post("/auth", api.AuthTokenHandler)
		r.Post("/login", api.LoginHandler)
		r.With(api.RequireSession).Post("/logout", api.LogoutHandler)
	})
}

func (api *Api) Serve() {
	// Sweep out aged sessions periodically. Nothing on the request path
	// depends on this; it only keeps the table from growing without bound.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			deleted, err := api.sessions.PurgeOlderThan(context.Background(), api.Config.SessionTTL())
			if err != nil {
				log.Printf("Error purging aged sessions: %v", err)
			} else if deleted > 0 {
				log.Printf("Purged %d aged sessions", deleted)
			}
			<-ticker.C
		}
	}()

	log.Printf("Starting API server on 0.0.0.0:%d", api.Config.APIPort)
	log.Fatal(http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort), api.Router))
}
