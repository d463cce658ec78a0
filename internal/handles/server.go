package handles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/models"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 5 * time.Second
)

// Server makes handle locators dereferenceable.
type Server struct {
	manager *Manager
	logger  logging.Logger
	router  *mux.Router
	handler http.Handler
}

func NewServer(m *Manager, logger logging.Logger) *Server {
	s := &Server{
		manager: m,
		logger:  logger.With("component", "handle-server"),
		router:  mux.NewRouter(),
	}

	s.router.Use(s.logRequests)
	s.router.HandleFunc("/blobs/{token}", s.serveBlob).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead}),
	)
	s.handler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(cors(s.router))
	return s
}

// Handler is the full middleware chain. Serve uses it, and tests can mount
// it on their own listener.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. Expired handles are swept while serving.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		t := time.NewTicker(sweepInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					s.logger.Warn(ctx, "handle server shutdown", "error", err)
				}
				return
			case <-t.C:
				if n := s.manager.Sweep(); n > 0 {
					s.logger.Debug(ctx, "expired handles released", "count", n)
				}
			}
		}
	}()

	s.logger.Info(ctx, "handle server listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) serveBlob(w http.ResponseWriter, r *http.Request) {
	b, err := s.manager.Resolve(mux.Vars(r)["token"])
	switch {
	case errors.Is(err, common.ErrHandleReleased):
		http.Error(w, "handle released", http.StatusGone)
		return
	case err != nil:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	ct := b.Type
	if ct == "" || ct == models.UnknownType {
		ct = "application/octet-stream"
	}
	disposition := "attachment"
	if b.Purpose == PurposePreview {
		disposition = "inline"
	}

	h := w.Header()
	h.Set("Content-Type", ct)
	h.Set("Cache-Control", "no-store")
	h.Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": b.Name}))
	if b.Checksum != "" {
		h.Set("ETag", `"`+b.Checksum+`"`)
	}

	http.ServeContent(w, r, b.Name, b.CreatedAt, bytes.NewReader(b.Payload))
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"active": s.manager.Active(),
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.logger.Debug(r.Context(), "handle request", "method", r.Method, "route", route, "elapsed", time.Since(start))
	})
}
