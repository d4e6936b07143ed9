// Package app carga la configuración y arma las dependencias del servidor.
package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"photogram/internal/auth"
	"photogram/internal/db"
	httpx "photogram/internal/http"
	"photogram/internal/media"
	"photogram/internal/repository"
	"photogram/internal/social"
)

type App struct {
	Cfg    *Config
	DB     *gorm.DB
	Server *httpx.Server
}

// New abre la base, migra y conecta servicios y handlers.
func New(cfg *Config) (*App, error) {
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		_ = db.Close(gdb)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionLifetime)
	if err != nil {
		_ = db.Close(gdb)
		return nil, err
	}
	var verifier auth.IdentityVerifier
	if cfg.Auth.Federated.Enabled() {
		v, err := auth.NewOIDCVerifier(cfg.Auth.Federated, nil)
		if err != nil {
			_ = db.Close(gdb)
			return nil, err
		}
		verifier = v
	} else {
		log.Warn().Msg("federated login disabled: FIREBASE_PROJECT_ID not set")
	}

	store, err := media.New(cfg.Media)
	if err != nil {
		_ = db.Close(gdb)
		return nil, err
	}
	uploads := httpx.Uploads{MaxBytes: cfg.Media.MaxUploadBytes}
	if cfg.Media.Provider == media.ProviderLocal {
		uploads.Dir = cfg.Media.Local.Dir
		uploads.Path = cfg.Media.Local.PublicURL
	}

	repos := repository.New(gdb)
	authSvc := auth.NewService(repos.Users, tokens, verifier)
	socialSvc := social.NewService(repos, store)

	log.Info().
		Str("environment", cfg.Environment).
		Str("database", cfg.Database.Driver).
		Str("media", cfg.Media.Provider).
		Msg("app initialized")

	return &App{
		Cfg:    cfg,
		DB:     gdb,
		Server: httpx.NewServer(gdb, cfg.Server, authSvc, socialSvc, uploads),
	}, nil
}

// HTTPServer envuelve el router en un *http.Server con timeouts.
func (a *App) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              a.Cfg.Server.Addr,
		Handler:           a.Server,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (a *App) Close() error { return db.Close(a.DB) }

func Must(err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}
