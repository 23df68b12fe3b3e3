package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/autoreply/wa-autoreply-bridge/internal/biz/domain"
	"github.com/autoreply/wa-autoreply-bridge/internal/biz/repo"
)

// HealthText is served on / for uptime probes
const HealthText = "🤖 WhatsApp AI Bot is running."

const defaultJournalLimit = 50

// Coordinator is the part of the reply coordinator exposed to operators
type Coordinator interface {
	Pending() []domain.PendingCandidate
	Mutes() []domain.MuteWindow
	Mute(chatID string, d time.Duration) domain.MuteWindow
	Unmute(chatID string) bool
	StartedAt() time.Time
}

// BridgeStatus reports the WhatsApp bridge connection
type BridgeStatus interface {
	Connected() bool
}

// StatusResponse is returned by GET /api/status
type StatusResponse struct {
	StartedAt       time.Time `json:"started_at"`
	Uptime          string    `json:"uptime"`
	BridgeConnected bool      `json:"bridge_connected"`
	Pending         int       `json:"pending"`
	Muted           int       `json:"muted"`
}

// MuteRequest is the body of POST /api/mutes
type MuteRequest struct {
	ChatID  string `json:"chat_id"`
	Minutes int    `json:"minutes"`
}

// Server provides the health endpoint and the operator HTTP API
type Server struct {
	coord   Coordinator
	journal repo.JournalRepo // optional
	bridge  BridgeStatus     // optional
	token   string           // bearer token for /api, empty disables auth
	log     zerolog.Logger

	router chi.Router
	server *http.Server
	port   int
}

// NewServer creates a new API server
func NewServer(coord Coordinator, journal repo.JournalRepo, bridge BridgeStatus, token string, port int, logger zerolog.Logger) *Server {
	s := &Server{
		coord:   coord,
		journal: journal,
		bridge:  bridge,
		token:   token,
		log:     logger.With().Str("component", "api").Logger(),
		port:    port,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(HealthText))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/status", s.handleStatus)
		r.Get("/pending", s.handlePending)
		r.Get("/mutes", s.handleListMutes)
		r.Post("/mutes", s.handleMute)
		r.Delete("/mutes/{chatID}", s.handleUnmute)
		r.Get("/journal", s.handleJournal)
	})
	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
	}

	s.log.Info().Int("port", s.port).Msg("web server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
				s.writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ============ Handlers ============

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	startedAt := s.coord.StartedAt()
	resp := StatusResponse{
		StartedAt: startedAt,
		Uptime:    time.Since(startedAt).Truncate(time.Second).String(),
		Pending:   len(s.coord.Pending()),
		Muted:     len(s.coord.Mutes()),
	}
	if s.bridge != nil {
		resp.BridgeConnected = s.bridge.Connected()
	}
	s.writeJSON(w, resp)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{"pending": s.coord.Pending()})
}

func (s *Server) handleListMutes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{"mutes": s.coord.Mutes()})
}

func (s *Server) handleMute(w http.ResponseWriter, r *http.Request) {
	var req MuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}
	if req.ChatID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("chat_id is required"))
		return
	}

	window := s.coord.Mute(req.ChatID, time.Duration(req.Minutes)*time.Minute)
	s.writeJSON(w, window)
}

func (s *Server) handleUnmute(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if !s.coord.Unmute(chatID) {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("chat %s is not muted", chatID))
		return
	}
	s.writeJSON(w, map[string]bool{"success": true})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("journal disabled"))
		return
	}

	limit := defaultJournalLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = parsed
	}

	events, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []*domain.ReplyEvent{}
	}
	s.writeJSON(w, map[string]interface{}{"events": events})
}

// ============ Helpers ============

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
