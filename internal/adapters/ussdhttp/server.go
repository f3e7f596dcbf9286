// Package ussdhttp serves the USSD gateway callback over HTTP.
package ussdhttp

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"olink/go-backend/internal/audit"
	"olink/go-backend/internal/identity"
	"olink/go-backend/internal/platform/metrics"
	"olink/go-backend/internal/platform/ratelimiter"
	"olink/go-backend/internal/ussd"
)

const (
	DefaultAddr    = "127.0.0.1:8080"
	maxFormBytes   = 16 << 10
	textFault      = "A system error occurred. Please try again in a moment."
	textRateLimits = "Too many requests. Please try again shortly."
)

// Engine answers one dial event.
type Engine interface {
	Handle(ctx context.Context, ev ussd.DialEvent) (ussd.Response, error)
}

type Options struct {
	Addr string
	// Timeout bounds all collaborator calls of one dial event.
	Timeout    time.Duration
	Limiter    *ratelimiter.MapLimiter
	Metrics    *metrics.Registry
	Audit      *audit.Journal
	AdminToken string
	Logger     *slog.Logger
	Now        func() time.Time
}

type Server struct {
	httpServer *http.Server
	engine     Engine
	timeout    time.Duration
	limiter    *ratelimiter.MapLimiter
	metrics    *metrics.Registry
	audit      *audit.Journal
	adminToken string
	log        *slog.Logger
	now        func() time.Time
	stopping   chan struct{}
	stopOnce   sync.Once
}

func New(engine Engine, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		engine:     engine,
		timeout:    opts.Timeout,
		limiter:    opts.Limiter,
		metrics:    opts.Metrics,
		audit:      opts.Audit,
		adminToken: strings.TrimSpace(opts.AdminToken),
		log:        opts.Logger,
		now:        opts.Now,
		stopping:   make(chan struct{}),
	}
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ussd", s.handleUSSD)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	if s.audit != nil && s.adminToken != "" {
		mux.HandleFunc("/audit", s.handleAudit)
	}
	return s
}

// Handler exposes the routes for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()
	s.log.Info("ussd gateway listening", "addr", s.httpServer.Addr)

	select {
	case <-ctx.Done():
		s.stopOnce.Do(func() { close(s.stopping) })
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout+2*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleUSSD(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	outcome := metrics.OutcomeFailed
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("ussd handler panic", "panic", p)
			writeUSSD(w, http.StatusInternalServerError, ussd.End(textFault))
			outcome = metrics.OutcomeFailed
		}
		if s.metrics != nil {
			s.metrics.ObserveRequest(outcome, s.now().Sub(start))
		}
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ev := ussd.DialEvent{
		SessionID:   strings.TrimSpace(r.PostForm.Get("sessionId")),
		ServiceCode: strings.TrimSpace(r.PostForm.Get("serviceCode")),
		PhoneNumber: strings.TrimSpace(r.PostForm.Get("phoneNumber")),
		Text:        r.PostForm.Get("text"),
	}

	if ev.PhoneNumber != "" && !s.limiter.Allow(identity.NormalizePhone(ev.PhoneNumber), start) {
		outcome = metrics.OutcomeLimited
		writeUSSD(w, http.StatusOK, ussd.End(textRateLimits))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	resp, err := s.engine.Handle(ctx, ev)
	switch {
	case errors.Is(err, ussd.ErrIncompleteEvent):
		outcome = metrics.OutcomeRejected
		s.log.Warn("dial event rejected", "session_id", ev.SessionID, "service_code", ev.ServiceCode)
		writeUSSD(w, http.StatusOK, resp)
	case err != nil:
		s.log.Error("dial event failed", "session_id", ev.SessionID, "phone", ev.PhoneNumber, "err", err)
		writeUSSD(w, http.StatusInternalServerError, ussd.End(textFault))
	default:
		outcome = metrics.OutcomeTerminate
		if resp.Mode == ussd.Continue {
			outcome = metrics.OutcomeContinue
		}
		writeUSSD(w, http.StatusOK, resp)
	}
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorizeAdmin(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	since := int64(0)
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		since = v
	}
	if r.URL.Query().Get("follow") == "1" {
		s.followAudit(w, r, since)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"entries": s.audit.Since(since)})
}

// followAudit streams entries as JSON lines: first the retained entries
// after since, then new ones until the client leaves, the journal closes or
// the server stops.
func (s *Server) followAudit(w http.ResponseWriter, r *http.Request, since int64) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	replay, entries, cancel := s.audit.Subscribe(since)
	defer cancel()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	for _, e := range replay {
		if err := enc.Encode(e); err != nil {
			return
		}
	}
	flusher.Flush()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.stopping:
			return
		case e, ok := <-entries:
			if !ok {
				return
			}
			if err := enc.Encode(e); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) authorizeAdmin(r *http.Request) bool {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return false
	}
	token := strings.TrimSpace(auth[len("bearer "):])
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) == 1
}

func writeUSSD(w http.ResponseWriter, status int, resp ussd.Response) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(resp.String()))
}
