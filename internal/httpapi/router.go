// Package httpapi отдаёт HTTP JSON API магазина поверх менеджера сессий.
package httpapi

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/session"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const (
	apiPrefix      = "/api/v1"
	requestTimeout = 30 * time.Second
	maxBodySize    = 64 * 1024

	// HeaderUserID идентифицирует покупателя. Настоящей аутентификации нет.
	HeaderUserID = "X-User-ID"
	// HeaderAdminKey открывает административные маршруты.
	HeaderAdminKey = "X-Admin-Key"
)

// Config задаёт зависимости API.
type Config struct {
	Sessions *session.Manager
	Catalog  *catalog.Provider
	AdminKey string
	Logger   *log.Entry
}

type api struct {
	sessions *session.Manager
	catalog  *catalog.Provider
	adminKey string
	logger   *log.Entry
}

type sessionKey struct{}

// NewRouter строит chi-роутер со всеми маршрутами /api/v1.
func NewRouter(cfg Config) chi.Router {
	if cfg.Logger == nil {
		cfg.Logger = log.New().WithField("component", "http")
	}
	a := &api{
		sessions: cfg.Sessions,
		catalog:  cfg.Catalog,
		adminKey: cfg.AdminKey,
		logger:   cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(req.Context(), w, newError("route_not_found", fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(req.Context(), w, newError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Route(apiPrefix, func(v1 chi.Router) {
		v1.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, version.Current())
		})
		v1.Route("/catalog", a.catalogRoutes)

		v1.Group(func(user chi.Router) {
			user.Use(a.requireSession)
			user.Route("/cart", a.cartRoutes)
			user.Route("/orders", a.orderRoutes)
			user.Route("/me", a.profileRoutes)
		})

		v1.Route("/admin", func(admin chi.Router) {
			admin.Use(a.requireAdmin)
			a.adminRoutes(admin)
		})
	})

	return r
}

func (a *api) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.WithFields(log.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		}).Debug("http request")
	})
}

// requireSession открывает сессию пользователя из заголовка X-User-ID.
func (a *api) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		s, err := a.sessions.Open(r.Context(), userID)
		if err != nil {
			writeDomainError(r.Context(), w, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *api) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderAdminKey)
		if a.adminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(a.adminKey)) != 1 {
			writeError(r.Context(), w, newError("admin_forbidden", "admin access restricted", http.StatusForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFrom(r *http.Request) *session.Session {
	s, _ := r.Context().Value(sessionKey{}).(*session.Session)
	return s
}
