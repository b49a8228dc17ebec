package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/linggen/linggen-editor/internal/bridge"
	"github.com/linggen/linggen-editor/internal/metrics"
)

// ---------------------------------------------------------------------------
// Server
// ---------------------------------------------------------------------------

// Server is the local HTTP surface for graph views. Each open view is
// served as a page that talks to its panel over a websocket, with a POST
// fallback for UI events.
type Server struct {
	sse      *SSEBroadcaster
	metrics  *metrics.Registry
	mux      *http.ServeMux
	server   *http.Server
	listener net.Listener
	upgrader websocket.Upgrader

	eventLimiter *rate.Limiter

	viewsMu sync.RWMutex
	views   map[string]*bridge.Panel
}

// NewServer creates a server publishing notifications through sse. m may
// be nil.
func NewServer(sse *SSEBroadcaster, m *metrics.Registry) *Server {
	if sse == nil {
		sse = NewSSEBroadcaster()
	}
	s := &Server{
		sse:     sse,
		metrics: m,
		mux:     http.NewServeMux(),
		views:   make(map[string]*bridge.Panel),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     sameHostOrigin,
		},
	}

	// Fallback UI events: 200 events/sec, burst 400, shared by all views.
	s.eventLimiter = rate.NewLimiter(rate.Limit(200), 400)

	return s
}

// RegisterRoutes wires up every endpoint.
func (s *Server) RegisterRoutes() {
	// -- Views ------------------------------------------------------------
	s.mux.HandleFunc("GET /api/views", s.handleListViews)
	s.mux.HandleFunc("GET /views/{id}", s.handleViewPage)
	s.mux.HandleFunc("GET /views/{id}/ws", s.handleViewSocket)
	s.mux.HandleFunc("GET /views/{id}/state", s.handleViewState)
	s.mux.HandleFunc("POST /views/{id}/events",
		s.withRateLimit(s.eventLimiter, s.handleViewEvent))

	// -- SSE notification stream -----------------------------------------
	s.mux.HandleFunc("GET /api/events", s.handleSSE)

	// -- Metrics ----------------------------------------------------------
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// -- Health check -----------------------------------------------------
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the fully-wrapped http.Handler (middleware chain + mux).
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = recoveryMiddleware(h)
	h = s.loggingMiddleware(h)
	h = corsMiddleware(h)
	return h
}

// Start listens on addr (use "127.0.0.1:0" for an ephemeral port) and
// serves in the background. It returns the base URL.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("api: listen %s: %w", addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("view server error", "error", err)
		}
	}()
	slog.Info("view server listening", "addr", ln.Addr().String())
	return s.URL(), nil
}

// URL returns the base URL, or "" before Start.
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String()
}

// ViewURL returns the page URL of a view.
func (s *Server) ViewURL(id string) string {
	return s.URL() + "/views/" + id
}

// Shutdown closes every view and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.viewsMu.Lock()
	panels := make([]*bridge.Panel, 0, len(s.views))
	for id, p := range s.views {
		panels = append(panels, p)
		delete(s.views, id)
	}
	s.viewsMu.Unlock()
	for _, p := range panels {
		p.Close()
	}

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// ---------------------------------------------------------------------------
// View registry
// ---------------------------------------------------------------------------

// AddView makes a panel reachable under /views/{id}.
func (s *Server) AddView(p *bridge.Panel) {
	s.viewsMu.Lock()
	s.views[p.ID()] = p
	s.viewsMu.Unlock()
	s.sse.Publish(EventViewOpened, map[string]string{"id": p.ID(), "title": p.Title()})
}

// RemoveView unregisters a panel. It does not close it.
func (s *Server) RemoveView(id string) {
	s.viewsMu.Lock()
	_, ok := s.views[id]
	delete(s.views, id)
	s.viewsMu.Unlock()
	if ok {
		s.sse.Publish(EventViewClosed, map[string]string{"id": id})
	}
}

// View looks up a registered panel.
func (s *Server) View(id string) (*bridge.Panel, bool) {
	s.viewsMu.RLock()
	defer s.viewsMu.RUnlock()
	p, ok := s.views[id]
	return p, ok
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.viewsMu.RLock()
	n := len(s.views)
	s.viewsMu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "linggen-editor",
		"views":   n,
	})
}

// ---------------------------------------------------------------------------
// JSON response helpers
// ---------------------------------------------------------------------------

// writeJSON writes an arbitrary value as JSON with the given HTTP status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a standardised JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  code,
	})
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// sameHostOrigin accepts websocket upgrades from pages served by this
// server (or from tools that send no Origin).
func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://") == r.Host
}

// corsMiddleware allows requests from any localhost origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseRecorder captures the status code written by downstream handlers.
// It also implements http.Flusher so SSE streaming works through the
// logging middleware, and http.Hijacker for websocket upgrades.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rr *responseRecorder) WriteHeader(code int) {
	rr.statusCode = code
	rr.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher by delegating to the underlying writer.
func (rr *responseRecorder) Flush() {
	if f, ok := rr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rr *responseRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}

// Hijack implements http.Hijacker so the websocket upgrader can take over
// the connection.
func (rr *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("api: response writer does not support hijacking")
	}
	rr.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// loggingMiddleware logs method, path, duration and status code, and
// records them in the request metrics.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, strconv.Itoa(rec.statusCode), elapsed)
		}
		slog.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"duration_ms", elapsed.Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// recoveryMiddleware catches panics and returns a 500 response.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()
				slog.Error("panic recovered",
					"error", err,
					"stack", string(stack),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprintf(w, `{"error":"internal server error"}`)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withRateLimit wraps a handler with a token-bucket rate limiter.
// Returns 429 when the limiter is exhausted.
func (s *Server) withRateLimit(limiter *rate.Limiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.Header().Set("X-RateLimit-Remaining",
				fmt.Sprintf("%d", int(limiter.Tokens())))
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":"rate limit exceeded","retry_after_ms":1000}`)
			slog.Warn("rate limit exceeded",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			return
		}
		next(w, r)
	}
}
