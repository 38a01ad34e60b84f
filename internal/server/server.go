// Package server is the local dev server. It lets the site preview trigger a
// sync and pushes content changes to open browsers.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vonshlovens/notion-sync/internal/watcher"
)

// Runner runs one sync, writing progress lines to out
type Runner func(ctx context.Context, out io.Writer) error

// keepAlive is the interval of SSE comment pings
const keepAlive = 15 * time.Second

// Event is pushed to SSE clients
type Event struct {
	Name string
	Data any
}

// SyncResult is the data of the "sync" event sent when a refresh ends
type SyncResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Server serves the refresh and event endpoints
type Server struct {
	run     Runner
	changes <-chan watcher.Change
	busy    atomic.Bool

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// New creates a server. changes may be nil when no watcher runs.
func New(run Runner, changes <-chan watcher.Change) *Server {
	return &Server{
		run:     run,
		changes: changes,
		subs:    make(map[chan Event]struct{}),
	}
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/refresh", s.handleRefresh)
		r.Get("/events", s.handleEvents)
	})
	return r
}

// Relay forwards watcher changes to SSE clients until ctx is done or the
// changes channel closes.
func (s *Server) Relay(ctx context.Context) {
	if s.changes == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-s.changes:
			if !ok {
				return
			}
			s.Publish(Event{Name: "change", Data: c})
		}
	}
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.Relay(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("dev server listening", "addr", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Publish sends an event to every subscriber. Slow subscribers miss events
// rather than block the publisher.
func (s *Server) Publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("dropping event for slow subscriber", "event", ev.Name)
		}
	}
}

func (s *Server) subscribe() chan Event {
	ch := make(chan Event, 32)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan Event) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "refreshing": s.busy.Load()})
}

// handleRefresh runs a sync and streams its progress lines as they are
// written. Only one refresh runs at a time.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.busy.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a refresh is already running"})
		return
	}
	defer s.busy.Store(false)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	out := &flushWriter{w: w, rc: http.NewResponseController(w)}
	err := s.run(r.Context(), out)

	result := SyncResult{OK: err == nil}
	if err != nil {
		result.Error = err.Error()
		slog.Error("refresh failed", "error", err)
		fmt.Fprintf(out, "error: %v\n", err)
	} else {
		fmt.Fprintln(out, "done")
	}
	s.Publish(Event{Name: "sync", Data: result})
}

// handleEvents is a server-sent event stream of content changes and
// finished refreshes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	if _, err := io.WriteString(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		slog.Warn("event stream cannot flush", "error", err)
		return
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		case ev := <-ch:
			data, err := json.Marshal(ev.Data)
			if err != nil {
				slog.Warn("failed to encode event", "event", ev.Name, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// flushWriter flushes after every write so each progress line reaches the
// client as soon as it is printed
type flushWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	if err := f.rc.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}
