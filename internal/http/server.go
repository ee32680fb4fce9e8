// Package http wires the inbound API surface: routing, request parsing,
// upstream calls and JSON serialization.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Shawarmaa/BiggerNumbers/internal/cache"
	"github.com/Shawarmaa/BiggerNumbers/internal/core"
	applog "github.com/Shawarmaa/BiggerNumbers/internal/log"
)

// Upstream is the capability surface the handlers need from the data
// provider. The concrete implementation lives in internal/plaid; tests
// substitute fakes.
type Upstream interface {
	CreateLinkToken(ctx context.Context, clientUserID string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (string, error)
	GetTransactions(ctx context.Context, accessToken string, start, end core.Date) ([]core.Transaction, error)
}

// Options configures a Server.
type Options struct {
	// LookbackDays bounds the upstream fetch window. Zero means 30.
	LookbackDays int

	// CacheTTL enables the transaction-window cache when positive. Zero
	// keeps every request a fresh upstream fetch.
	CacheTTL  time.Duration
	CacheSize int

	AllowedOrigins []string

	Logger *applog.Logger

	// Now supplies the reference time; tests pin it. Nil means time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server
	upstream     Upstream
	logger       *applog.Logger
	lookbackDays int
	now          func() time.Time

	// txnCache is nil when caching is disabled.
	txnCache         *cache.LRUCache[[]core.Transaction]
	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, upstream Upstream, opts Options) *Server {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 30
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: r,
		},
		upstream:         upstream,
		logger:           opts.Logger.WithComponent(applog.ComponentHTTP),
		lookbackDays:     opts.LookbackDays,
		now:              opts.Now,
		stopCacheCleanup: make(chan struct{}),
	}
	if opts.CacheTTL > 0 {
		size := opts.CacheSize
		if size <= 0 {
			size = 128
		}
		s.txnCache = cache.NewLRUCache[[]core.Transaction](size, opts.CacheTTL)
		go s.startCacheCleanup(opts.CacheTTL)
	}

	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(s.requestLogger)

	r.Get("/", s.handleRoot)
	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)
	r.Post("/create_link_token", s.handleCreateLinkToken)
	r.Post("/exchange_public_token", s.handleExchangePublicToken)
	r.Get("/spending/{access_token}", s.handleSpending)

	return s
}

// startCacheCleanup periodically drops expired windows so tokens that stop
// being queried do not linger until eviction.
func (s *Server) startCacheCleanup(ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.txnCache.CleanExpired(); cleaned > 0 {
				s.logger.Debug("cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and the cache cleanup routine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
