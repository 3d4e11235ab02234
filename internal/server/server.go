// Package server exposes the race coordinator, the score gate and the
// history over HTTP and websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/typeracer/internal/api"
	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/race"
	"github.com/verte-zerg/typeracer/internal/score"
)

// HistoryLimit is how many recent sessions a user lookup returns.
const HistoryLimit = 10

const maxBodyBytes = 1 << 20

// Records is the read side of the leaderboard and session history.
type Records interface {
	Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error)
	RecentSessions(ctx context.Context, userID string, limit int) ([]model.SessionRecord, error)
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionRecord, error)
}

// Config holds transport settings.
type Config struct {
	AllowedOrigins []string
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns the default transport settings.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1024,
	}
}

// Server routes HTTP requests to the services.
type Server struct {
	races    *race.Service
	scores   *score.Service
	records  Records
	corpus   race.CorpusProvider
	cfg      Config
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// New wires a Server.
func New(races *race.Service, scores *score.Service, records Records, corpus race.CorpusProvider, cfg Config, logger zerolog.Logger) *Server {
	def := DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = def.AllowedOrigins
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	return &Server{
		races:   races,
		scores:  scores,
		records: records,
		corpus:  corpus,
		cfg:     cfg,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the routed handler wrapped in CORS.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/rooms", s.handleCreateRoom).Methods(http.MethodPost)
	a.HandleFunc("/rooms/join", s.handleJoinRoom).Methods(http.MethodPost)
	a.HandleFunc("/rooms/{id}", s.handleSnapshot).Methods(http.MethodGet)
	a.HandleFunc("/rooms/{id}/countdown", s.handleCountdown).Methods(http.MethodPost)
	a.HandleFunc("/rooms/{id}/start", s.handleStart).Methods(http.MethodPost)
	a.HandleFunc("/rooms/{id}/progress", s.handleProgress).Methods(http.MethodPost)
	a.HandleFunc("/rooms/{id}/finish", s.handleFinish).Methods(http.MethodPost)
	a.HandleFunc("/rooms/{id}/leave", s.handleLeave).Methods(http.MethodPost)
	a.HandleFunc("/scores", s.handleSubmitScore).Methods(http.MethodPost)
	a.HandleFunc("/sessions", s.handleRecordSession).Methods(http.MethodPost)
	a.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	a.HandleFunc("/users/{id}/sessions", s.handleUserSessions).Methods(http.MethodGet)
	a.HandleFunc("/users/{id}/stats", s.handleUserStats).Methods(http.MethodGet)
	a.HandleFunc("/corpus", s.handleCorpus).Methods(http.MethodGet)

	r.HandleFunc("/ws/rooms/{id}", s.handleWatch).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	s.log.Info().Msg("HTTP server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		s.log.Debug().Err(err).Msg("failed to write health check response")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := api.Error(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	s.writeJSON(w, status, body)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, api.ErrBadRequest)
	}
	return nil
}

func badRequest(msg string) error {
	return fmt.Errorf("%s: %w", msg, api.ErrBadRequest)
}
