// Package api serves the catalog and favorites as a JSON API for a browser front end.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/vadimtrunov/marquee/internal/core"
)

// shutdownTimeout is the maximum time to wait for the HTTP server to shut down.
const shutdownTimeout = 5 * time.Second

// Options configures the server.
type Options struct {
	Port           int      // 0 picks a free port
	AllowedOrigins []string // empty allows any origin
	RateLimit      float64  // requests per second per client IP; 0 disables limiting
	RateBurst      int
	// TrustProxyHeaders keys rate limiting by X-Forwarded-For/X-Real-IP.
	// Enable only behind a reverse proxy that sets them.
	TrustProxyHeaders bool
}

// Server is the JSON API HTTP server.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	limiter    *ipRateLimiter
	mu         sync.RWMutex
	ready      chan struct{}
	started    atomic.Bool
	logger     *slog.Logger
}

var _ core.Frontend = (*Server)(nil)

// NewServer creates an API server over the catalog pipeline and favorites store.
func NewServer(
	opts Options,
	loader core.CatalogLoader,
	trailers core.TrailerResolver,
	favs core.FavoritesStore,
	logger *slog.Logger,
) *Server {
	if loader == nil || trailers == nil || favs == nil {
		panic("api.NewServer: loader, trailers and favorites must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		ready:  make(chan struct{}),
		logger: logger,
	}
	if opts.RateLimit > 0 {
		s.limiter = newIPRateLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1), opts.TrustProxyHeaders)
	}

	h := &handlers{loader: loader, trailers: trailers, favorites: favs, logger: logger}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.routes(h, opts.AllowedOrigins),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// routes builds the router with its middleware chain.
func (s *Server) routes(h *handlers, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware(s.logger), accessLogMiddleware)
	if s.limiter != nil {
		r.Use(s.limiter.middleware)
	}

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	movies := r.PathPrefix("/api/movies").Subrouter()
	movies.HandleFunc("/popular", h.popular).Methods(http.MethodGet)
	movies.HandleFunc("/search", h.search).Methods(http.MethodGet)
	movies.HandleFunc("/{id}/trailer", h.trailer).Methods(http.MethodGet)

	favs := r.PathPrefix("/api/favorites").Subrouter()
	favs.HandleFunc("", h.listFavorites).Methods(http.MethodGet)
	favs.HandleFunc("/{id}", h.addFavorite).Methods(http.MethodPut)
	favs.HandleFunc("/{id}", h.removeFavorite).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	return c.Handler(r)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Name returns the frontend name.
func (s *Server) Name() string { return "api" }

// Ready returns a channel that is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listener address once the server has started.
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Start begins serving requests. It blocks until the server stops or an
// error occurs. The server shuts down gracefully when ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("api server already started")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		s.started.Store(false)
		return fmt.Errorf("api server listen: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("api server started", slog.String("addr", ln.Addr().String()))

	if s.limiter != nil {
		go s.limiter.cleanup(ctx)
	}

	serveDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-serveDone:
			return
		}
		s.logger.Info("api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		//nolint:contextcheck // parent ctx is canceled; we need a fresh context for graceful shutdown
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("api server shutdown error", slog.String("error", err.Error()))
		}
	}()

	err = s.httpServer.Serve(ln)
	close(serveDone)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}
