// Package http provides the JSON API server.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"induswealth/internal/cache"
	"induswealth/internal/core"
	"induswealth/internal/middleware/auth"
	"induswealth/internal/middleware/ratelimit"
	"induswealth/internal/middleware/trace"
	"induswealth/internal/services"
	"induswealth/internal/storage"

	"github.com/shopspring/decimal"
)

// Store is the persistence surface the API handlers need.
type Store interface {
	ListLiabilities(ctx context.Context, userID int64) ([]core.AggregatedLiability, error)
	ListCustomDebts(ctx context.Context, userID int64) ([]core.CustomDebt, error)
	CreateCustomDebt(ctx context.Context, userID int64, d core.CustomDebt) error
	UpdateCustomDebt(ctx context.Context, userID int64, d core.CustomDebt) error
	DeleteCustomDebt(ctx context.Context, userID int64, id string) error
	APROverrides(ctx context.Context, userID int64) (map[string]decimal.Decimal, error)
	SetAPROverride(ctx context.Context, userID int64, accountID string, apr decimal.Decimal) error
	MonthlySpending(ctx context.Context, userID int64, year, month int) (storage.SpendingSummary, error)
	ListBankItems(ctx context.Context, userID int64) ([]storage.BankItem, error)
	CreateBankItem(ctx context.Context, userID int64, accessToken, institution string) (storage.BankItem, error)
}

// SyncPublisher enqueues liability refresh requests for the worker.
type SyncPublisher interface {
	PublishLiabilitySync(ctx context.Context, userID, itemID int64) error
}

// Deps bundles the collaborators the server needs.
type Deps struct {
	Store      Store
	Auth       *services.AuthService
	AuthMW     *auth.Middleware
	Comparator *services.StrategyComparator
	Insights   *services.InsightService
	Publisher  SyncPublisher

	RateLimitPerMinute int
}

type Server struct {
	http.Server

	store      Store
	authSvc    *services.AuthService
	comparator *services.StrategyComparator
	insights   *services.InsightService
	publisher  SyncPublisher

	limiter *ratelimit.Limiter

	// spending summaries are cheap to recompute but hit per app screen;
	// short TTL keeps them fresh after a sync.
	spendingCache *cache.LRUCache[storage.SpendingSummary]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:            deps.Store,
		authSvc:          deps.Auth,
		comparator:       deps.Comparator,
		insights:         deps.Insights,
		publisher:        deps.Publisher,
		limiter:          ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		spendingCache:    cache.NewLRUCache[storage.SpendingSummary](200, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	traceMW := trace.NewMiddleware(extractClientIP)
	limitMW := s.limiter.Middleware(extractClientIP)

	public := func(h http.HandlerFunc) http.Handler {
		return traceMW.Middleware(limitMW(h))
	}
	protected := func(h http.HandlerFunc) http.Handler {
		return traceMW.Middleware(limitMW(deps.AuthMW.Middleware(h)))
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.Handle("POST /api/register", public(s.handleRegister))
	mux.Handle("POST /api/login", public(s.handleLogin))

	mux.Handle("GET /api/debts", protected(s.handleListDebts))
	mux.Handle("GET /api/debts/payoff", protected(s.handlePayoffComparison))
	mux.Handle("POST /api/debts/custom", protected(s.handleCreateCustomDebt))
	mux.Handle("PUT /api/debts/custom/{id}", protected(s.handleUpdateCustomDebt))
	mux.Handle("DELETE /api/debts/custom/{id}", protected(s.handleDeleteCustomDebt))
	// Kept off the /api/debts/{...} prefix: a wildcard segment there would
	// conflict with the custom-debt routes above.
	mux.Handle("PUT /api/apr-overrides/{account_id}", protected(s.handleSetAPROverride))

	mux.Handle("GET /api/analytics/spending", protected(s.handleSpendingSummary))
	mux.Handle("GET /api/insights/debt", protected(s.handleDebtInsight))

	mux.Handle("GET /api/items", protected(s.handleListBankItems))
	mux.Handle("POST /api/items", protected(s.handleLinkBankItem))
	mux.Handle("POST /api/sync", protected(s.handleTriggerSync))

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.spendingCache.CleanExpired()
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// extractClientIP resolves the client IP, considering proxies.
func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
