// Package http exposes the scrape orchestrator over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/pagetext/scrape"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultShutdownTimeout bounds graceful shutdown of open connections.
	DefaultShutdownTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20
)

// ScrapeRequest is the body of POST /scrape. URL is the canonical field;
// JobURL is accepted when URL is absent.
type ScrapeRequest struct {
	URL    string `json:"url"`
	JobURL string `json:"job_url"`
}

// Target returns the URL to scrape.
func (r ScrapeRequest) Target() string {
	if strings.TrimSpace(r.URL) != "" {
		return r.URL
	}
	return r.JobURL
}

// Server serves the scrape API.
type Server struct {
	orchestrator *scrape.Orchestrator
	logger       zerolog.Logger
	server       *http.Server
	ln           net.Listener

	// ShutdownTimeout bounds graceful shutdown when Run's context ends.
	ShutdownTimeout time.Duration
}

// NewServer returns a Server routing requests to o.
func NewServer(o *scrape.Orchestrator, logger zerolog.Logger) *Server {
	s := &Server{
		orchestrator:    o,
		logger:          logger,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /scrape", s.handleScrape)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.withMiddleware(mux)
}

// Open binds the listener. Use addr ":0" to pick a free port.
func (s *Server) Open(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address, or "" before Open.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Run serves until ctx ends, then shuts down gracefully and waits for
// every worker to be released.
func (s *Server) Run(ctx context.Context) error {
	if s.ln == nil {
		return errors.New("server not opened")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("address", s.Addr()).Msg("scraper server listening")
		if err := s.server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
		defer cancel()

		err := s.server.Shutdown(shutdownCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn().
				Dur("timeout", s.ShutdownTimeout).
				Int("in_flight", s.orchestrator.InFlight()).
				Msg("shutdown deadline reached, closing open connections")
			_ = s.server.Close()
			err = nil
		}
		s.orchestrator.Wait()
		s.logger.Info().Msg("scraper server stopped")
		return err
	})
	return g.Wait()
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	resp := s.orchestrator.Scrape(r.Context(), req.Target())
	writeJSON(w, resp.Status, resp.Body)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
