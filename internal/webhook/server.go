package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/schaermu/gistsync/internal/activation"
	"github.com/schaermu/gistsync/internal/config"
	gistsync "github.com/schaermu/gistsync/internal/sync"
)

const (
	// DefaultDebounce is how long the server waits for further triggers
	// before it queues a sync
	DefaultDebounce = 2 * time.Second

	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Server triggers syncs on signed HTTP requests and on a fixed interval
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	secret []byte
	sched  *scheduler
}

// NewServer creates a trigger server. The shared secret is read from
// serve.secret_file and must not be empty.
func NewServer(cfg *config.Config, syncer Syncer, opts gistsync.Options, logger *slog.Logger) (*Server, error) {
	raw, err := os.ReadFile(cfg.Serve.SecretFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook secret: %w", err)
	}

	secret := strings.TrimSpace(string(raw))
	if secret == "" {
		return nil, fmt.Errorf("webhook secret file %s is empty", cfg.Serve.SecretFile)
	}

	return &Server{
		cfg:    cfg,
		logger: logger,
		secret: []byte(secret),
		sched:  newScheduler(syncer, opts, DefaultDebounce, logger),
	}, nil
}

// Start syncs once, then serves on the socket-activated listener or
// serve.listen_addr until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("running initial sync")
	s.sched.run(ctx)

	l, activated, err := activation.Listen(s.cfg.Serve.ListenAddr)
	if err != nil {
		return err
	}
	if activated {
		s.logger.Info("using socket-activated listener", "addr", l.Addr().String())
	}

	if interval := s.cfg.Serve.Interval; interval > 0 {
		s.logger.Info("scheduling periodic sync", "interval", interval)
		go s.sched.tick(ctx, interval)
	}

	return s.Serve(ctx, l)
}

// Serve handles requests on l and runs queued syncs until ctx is canceled
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       time.Minute,
	}

	go s.sched.loop(ctx)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(l) }()
	s.logger.Info("listening for sync triggers", "addr", l.Addr().String())

	select {
	case err := <-served:
		return fmt.Errorf("webhook server stopped: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down webhook server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down webhook server: %w", err)
	}
	return nil
}

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /{$}", s.handleTrigger)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Status returns a snapshot of the sync status
func (s *Server) Status() Status {
	return s.sched.snapshot()
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.logger.Warn("failed to read trigger body", "error", err)
		http.Error(w, "request body too large or unreadable", http.StatusBadRequest)
		return
	}

	if !validSignature(s.secret, body, r.Header.Get("X-Hub-Signature-256")) {
		s.logger.Warn("rejecting trigger with invalid signature", "remote", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	event := r.Header.Get("X-GitHub-Event")
	if event == "ping" {
		s.logger.Info("received ping")
		_, _ = io.WriteString(w, "pong\n")
		return
	}

	s.logger.Info("sync trigger accepted", "event", event)
	s.sched.requestAfterQuiet("webhook")

	w.WriteHeader(http.StatusAccepted)
	_, _ = io.WriteString(w, "sync queued\n")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Status())
}
