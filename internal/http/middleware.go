package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"photogram/internal/apperr"
	"photogram/internal/auth"
	"photogram/internal/logging"
	"photogram/internal/metrics"
	"photogram/internal/util"
)

const RequestIDHeader = "X-Request-ID"

type ctxKeyAuthErr struct{}

// withSession resuelve la credencial, si la hay. Un fallo no corta la request:
// queda en el contexto y requireAuth decide.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cred := auth.CredentialFromRequest(r)
		if cred == nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.Auth.Authenticate(r.Context(), cred)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindAccountDeactivated {
				s.clearSessionCookies(w)
			}
			logging.Ctx(r.Context()).Debug().Err(err).Msg("session rejected")
			r = r.WithContext(context.WithValue(r.Context(), ctxKeyAuthErr{}, err))
		} else {
			r = r.WithContext(auth.WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.UserIDFrom(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		err, _ := r.Context().Value(ctxKeyAuthErr{}).(error)
		if err == nil {
			err = apperr.Unauthenticated("Not authenticated")
		}
		s.fail(w, r, err)
	})
}

func (s *Server) cors() func(http.Handler) http.Handler {
	origins := []string{"http://localhost:5173"}
	if s.Cfg.ClientURL != "" {
		origins = []string{s.Cfg.ClientURL}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// rateLimit limita por IP; sin límite configurado no hace nada.
func (s *Server) rateLimit(requests int) func(http.Handler) http.Handler {
	if !s.Cfg.RateLimit.Enabled || requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := s.Cfg.RateLimit.Window
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			util.RenderMessage(w, r, http.StatusTooManyRequests, "Too many requests, please try again later")
		}),
	)
}

// ----------------------------
// request id
// ----------------------------

func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = logging.NewRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// ----------------------------
// access log
// ----------------------------

type statusRW struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusRW) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRW) Write(b []byte) (int, error) {
	if !w.wrote {
		w.status = http.StatusOK
		w.wrote = true
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRW) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// WithAccessLog envuelve un handler y loguea método, ruta, status y duración
func WithAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusRW{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		lvl := zerolog.InfoLevel
		if sw.status >= http.StatusInternalServerError {
			lvl = zerolog.WarnLevel
		}
		logging.Ctx(r.Context()).WithLevel(lvl).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// WithMetrics registra la request en Prometheus con el patrón de ruta de chi,
// no con la URL, para no disparar la cardinalidad.
func WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		sw := &statusRW{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		metrics.RecordRequest(r.Method, route, sw.status, time.Since(start))
	})
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
