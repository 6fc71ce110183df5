package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"coinshelter/internal/auth"
	"coinshelter/internal/cache"
	"coinshelter/internal/shell"
	appweb "coinshelter/web"
)

type Server struct {
	http.Server
	templates   *template.Template
	shell       *shell.Shell
	provider    *auth.Provider
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// Derived views are cached per view state and purged on mutation.
	statsCache   *cache.LRUCache[statsResponse]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, sh *shell.Shell, provider *auth.Provider, limits RateLimits) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		shell:        sh,
		provider:     provider,
		rateLimiter:  newRateLimiter(limits),
		metrics:      &securityMetrics{},
		statsCache:   cache.NewLRUCache[statsResponse](100, 5*time.Minute), // Max 100 entries, 5min TTL
		cacheManager: cache.NewManager(nil),
	}

	s.cacheManager.Register(s.statsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// A session change swaps the working list to a different owner, so
	// every cached view is stale, not just the mutated ones.
	if provider != nil {
		provider.Subscribe(func(*auth.Session) { s.invalidateViews() })
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /{$}", s.secure(s.handleIndex))

	mux.HandleFunc("POST /api/auth/register", s.secure(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.secure(s.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", s.secure(s.requireSession(s.handleLogout)))

	mux.HandleFunc("GET /api/coins", s.secure(s.handleListCoins))
	mux.HandleFunc("GET /api/coins/{id}", s.secure(s.handleGetCoin))
	mux.HandleFunc("POST /api/coins", s.secure(s.requireSession(s.handleCreateCoin)))
	mux.HandleFunc("PUT /api/coins/{id}", s.secure(s.requireSession(s.handleUpdateCoin)))
	mux.HandleFunc("DELETE /api/coins/{id}", s.secure(s.requireSession(s.handleDeleteCoin)))

	mux.HandleFunc("GET /api/stats", s.secure(s.handleStats))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// secure adds security headers, rate limiting, and request logging.
func (s *Server) secure(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r, s.metrics)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutating methods only, reads stay cheap.
		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// requireSession rejects requests without a valid bearer token for the
// active session. Guests can read the catalog, never mutate it.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.provider.Current()
		if session == nil {
			writeError(w, http.StatusUnauthorized, auth.ErrNotAuthenticated)
			return
		}

		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, auth.ErrNotAuthenticated)
			return
		}
		userID, err := s.provider.UserIDFromToken(token)
		if err != nil || userID != session.UserID {
			writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken)
			return
		}

		next(w, r)
	}
}

type requestIDKey struct{}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateViews drops every cached derived view after a mutation.
func (s *Server) invalidateViews() {
	s.statsCache.Purge()
}
