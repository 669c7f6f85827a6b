// Package http exposes the bill splitting service as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"quicksplit/internal/cache"
	"quicksplit/internal/middleware/ratelimit"
	"quicksplit/internal/middleware/security"
	"quicksplit/internal/middleware/trace"
	"quicksplit/internal/services"
)

type Server struct {
	http.Server
	svc *services.BillService

	limiter  *ratelimit.Limiter
	detector *security.Detector
	headers  *security.HeadersMiddleware
	tracer   *trace.Middleware

	// Computed summaries and export texts per bill, invalidated on any
	// mutation of the bill.
	summaryCache *cache.LRUCache[summaryResponse]
	exportCache  *cache.LRUCache[string]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.BillService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:          svc,
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:     security.NewDetector(),
		summaryCache: cache.NewLRUCache[summaryResponse](200, 5*time.Minute),
		exportCache:  cache.NewLRUCache[string](200, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}
	s.headers = security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.exportCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.Handle("POST /bills", s.wrap(s.handleCreateBill))
	mux.Handle("GET /bills", s.wrap(s.handleListBills))
	mux.Handle("GET /bills/current", s.wrap(s.handleCurrentBill))
	mux.Handle("PUT /bills/current", s.wrap(s.handleSetCurrentBill))
	mux.Handle("GET /bills/{id}", s.wrap(s.handleGetBill))
	mux.Handle("DELETE /bills/{id}", s.wrap(s.handleDeleteBill))

	mux.Handle("POST /bills/{id}/items", s.wrap(s.handleAddItem))
	mux.Handle("PUT /bills/{id}/items/{index}", s.wrap(s.handleUpdateItem))
	mux.Handle("DELETE /bills/{id}/items/{index}", s.wrap(s.handleRemoveItem))

	mux.Handle("PUT /bills/{id}/taxes", s.wrap(s.handleSetTaxes))
	mux.Handle("POST /bills/{id}/taxes", s.wrap(s.handleAddTax))
	mux.Handle("PUT /bills/{id}/taxes/{taxId}", s.wrap(s.handleUpdateTax))
	mux.Handle("DELETE /bills/{id}/taxes/{taxId}", s.wrap(s.handleRemoveTax))

	mux.Handle("POST /bills/{id}/participants", s.wrap(s.handleAddParticipant))
	mux.Handle("DELETE /bills/{id}/participants/{participantId}", s.wrap(s.handleRemoveParticipant))
	mux.Handle("PUT /bills/{id}/participants/{participantId}/items/{index}", s.wrap(s.handleSetSelection))
	mux.Handle("PATCH /bills/{id}/participants/{participantId}/items/{index}", s.wrap(s.handleSetPercentage))

	mux.Handle("GET /bills/{id}/summary", s.wrap(s.handleSummary))
	mux.Handle("GET /bills/{id}/export", s.wrap(s.handleExport))

	mux.Handle("POST /receipts", s.wrap(s.handleCreateReceipt))
	mux.Handle("GET /receipts/{id}", s.wrap(s.handleGetReceipt))

	return s
}

// wrap applies the shared middleware chain: tracing, security headers,
// suspicious-request rejection and per-IP rate limiting on writes.
func (s *Server) wrap(h http.HandlerFunc) http.Handler {
	guarded := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			writeError(w, r, http.StatusBadRequest, "invalid request")
			return
		}
		if r.Method != http.MethodGet && !s.limiter.Allow(s.detector.ExtractClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		h(w, r)
	})

	return s.tracer.Middleware(s.headers.Middleware(guarded))
}

func (s *Server) invalidateBill(id string) {
	s.summaryCache.Delete(id)
	s.exportCache.Delete(id)
}

// Shutdown stops background cleanup goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
