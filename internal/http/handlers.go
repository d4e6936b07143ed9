// Package httpx expone los servicios de auth y social como API REST JSON.
package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"photogram/internal/auth"
	"photogram/internal/db"
	"photogram/internal/social"
	"photogram/internal/util"
)

type Config struct {
	Addr            string          `koanf:"addr"`
	BasePath        string          `koanf:"base_path"`
	ClientURL       string          `koanf:"client_url"`
	SecureCookies   bool            `koanf:"secure_cookies"`
	RequestTimeout  time.Duration   `koanf:"request_timeout"`
	ShutdownTimeout time.Duration   `koanf:"shutdown_timeout"`
	RateLimit       RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Requests     int           `koanf:"requests"`
	AuthRequests int           `koanf:"auth_requests"`
	Window       time.Duration `koanf:"window"`
}

// Uploads describe cómo se reciben y, si el store es local, cómo se sirven las imágenes.
type Uploads struct {
	MaxBytes int64
	Dir      string // vacío si las imágenes viven fuera (Cloudinary, S3)
	Path     string
}

type Server struct {
	DB      *gorm.DB
	Cfg     Config
	Auth    *auth.Service
	Social  *social.Service
	Mux     chi.Router
	uploads Uploads
}

func NewServer(gdb *gorm.DB, cfg Config, authSvc *auth.Service, socialSvc *social.Service, up Uploads) *Server {
	if cfg.BasePath == "" {
		cfg.BasePath = "/api"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	s := &Server{DB: gdb, Cfg: cfg, Auth: authSvc, Social: socialSvc, uploads: up}
	s.Mux = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.Mux.ServeHTTP(w, r) }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(WithRequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(WithAccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.cors())

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	if s.uploads.Dir != "" {
		prefix := strings.TrimRight(s.uploads.Path, "/")
		if prefix == "" {
			prefix = "/uploads"
		}
		fs := http.FileServer(http.Dir(s.uploads.Dir))
		r.Handle(prefix+"/*", http.StripPrefix(prefix, fs))
	}

	r.Route(s.Cfg.BasePath, func(r chi.Router) {
		r.Use(WithMetrics)
		r.Use(chimiddleware.Timeout(s.Cfg.RequestTimeout))
		r.Use(s.rateLimit(s.Cfg.RateLimit.Requests))
		r.Use(s.withSession)

		r.Route("/auth", func(r chi.Router) {
			r.Use(s.rateLimit(s.Cfg.RateLimit.AuthRequests))
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/google", s.handleGoogle)
			r.Post("/logout", s.handleLogout)
			r.With(s.requireAuth).Get("/me", s.handleMe)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(s.rateLimit(s.Cfg.RateLimit.AuthRequests)).Put("/reactivate", s.handleReactivate)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Put("/deactivate", s.handleDeactivate)
				r.Get("/search", s.handleSearch)
				r.Put("/profile", s.handleUpdateProfile)
				r.Get("/{username}", s.handleProfile)
				r.Post("/{id}/follow", s.handleFollow)
				r.Delete("/{id}/follow", s.handleUnfollow)
				r.Get("/{id}/followers", s.handleFollowers)
				r.Get("/{id}/following", s.handleFollowing)
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreatePost)
			r.Get("/feed", s.handleFeed)
			r.Get("/{id}", s.handleGetPost)
			r.Delete("/{id}", s.handleDeletePost)
			r.Post("/{id}/like", s.handleLike)
			r.Delete("/{id}/like", s.handleUnlike)
			r.Post("/{id}/comments", s.handleAddComment)
			r.Get("/{id}/comments", s.handleComments)
			r.Delete("/{id}/comments/{commentId}", s.handleDeleteComment)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			util.RenderMessage(w, r, http.StatusNotFound, "Route not found")
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := db.Ping(ctx, s.DB); err != nil {
		util.Render(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	util.Render(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------------
// helpers

func viewerID(r *http.Request) string {
	id, _ := auth.UserIDFrom(r.Context())
	return id
}

func (s *Server) page(r *http.Request) (social.PageRequest, error) {
	q := r.URL.Query()
	return social.ParsePage(q.Get("page"), q.Get("limit"))
}
