// Package server exposes the game hub over HTTP: a WebSocket gateway
// for playing Cinco and JSON endpoints for accounts.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zqurashi8/couples-game-hub/internal/auth"
	"github.com/zqurashi8/couples-game-hub/internal/config"
	"github.com/zqurashi8/couples-game-hub/internal/session"
	"github.com/zqurashi8/couples-game-hub/internal/store"
)

type Server struct {
	cfg      *config.Config
	store    store.Store
	sessions *session.Manager
	auth     *auth.Service // nil when no database is configured
	log      *logrus.Entry
	httpSrv  *http.Server

	gamesMu sync.Mutex
	games   map[string]*hostedGame // by session id
}

func New(cfg *config.Config, st store.Store, authSvc *auth.Service) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		sessions: session.NewManager(st),
		auth:     authSvc,
		log:      logrus.WithField("component", "server"),
		games:    make(map[string]*hostedGame),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	if authSvc != nil {
		mux.HandleFunc("POST /api/register", s.handleRegister)
		mux.HandleFunc("POST /api/login", s.handleLogin)
		mux.HandleFunc("GET /api/profile", s.withUser(s.handleProfile))
		mux.HandleFunc("PUT /api/profile", s.withUser(s.handleUpdateProfile))
	}

	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.log.WithField("addr", s.cfg.ListenAddr).Info("listening")
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains connections gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
