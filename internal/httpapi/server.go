// Package httpapi serves health, metrics and read-only engagement data.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/keshon/accountability-bot/datastore"
	"github.com/keshon/accountability-bot/internal/channels"
	"github.com/keshon/accountability-bot/internal/engagement"
	"github.com/keshon/accountability-bot/internal/version"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Schedule is the read side of the check-in scheduler.
type Schedule interface {
	Schedule() []channels.DueState
}

// StoreStats reports persistence health.
type StoreStats interface {
	Stats() datastore.Stats
}

// Deps are the services the API reads from. Scheduler, Gatherer and Store
// may be nil.
type Deps struct {
	Ledger    *engagement.Ledger
	Weights   engagement.Weights
	Scheduler Schedule
	Gatherer  prometheus.Gatherer
	Store     StoreStats
}

// Server wraps a chi.Router with the bot's routes.
type Server struct {
	Router chi.Router
	deps   Deps
	log    zerolog.Logger
	now    func() time.Time
}

// NewServer builds the router.
func NewServer(deps Deps, logger zerolog.Logger) *Server {
	s := &Server{deps: deps, log: logger.With().Str("component", "http").Logger(), now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/leaderboard", s.leaderboard)
		r.Get("/channels/stats", s.channelStats)
		r.Get("/personas", s.personas)
	})

	s.Router = r
	return s
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

type healthView struct {
	Status  string           `json:"status"`
	App     string           `json:"app"`
	Version string           `json:"version"`
	Store   *datastore.Stats `json:"store,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	h := healthView{Status: "ok", App: version.AppName, Version: version.Version}
	if s.deps.Store != nil {
		st := s.deps.Store.Stats()
		h.Store = &st
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLimit)
	}
	board := s.deps.Ledger.Leaderboard(s.deps.Weights, limit)
	if board == nil {
		board = []engagement.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) channelStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.deps.Ledger.ChannelStats()
	if stats == nil {
		stats = []engagement.ChannelStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

type personaView struct {
	Channel       string    `json:"channel"`
	DisplayName   string    `json:"display_name"`
	Emoji         string    `json:"emoji,omitempty"`
	Topics        []string  `json:"topics"`
	MinHours      float64   `json:"min_hours"`
	MaxHours      float64   `json:"max_hours"`
	NextCheckAt   time.Time `json:"next_check_at"`
	NextCheckIn   string    `json:"next_check_in"`
	IncludesOwner bool      `json:"includes_owner"`
}

func (s *Server) personas(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Scheduler == nil {
		writeJSON(w, http.StatusOK, []personaView{})
		return
	}
	now := s.now()
	states := s.deps.Scheduler.Schedule()
	out := make([]personaView, 0, len(states))
	for _, st := range states {
		p := st.Persona
		in := st.NextCheckAt.Sub(now)
		if in < 0 {
			in = 0
		}
		out = append(out, personaView{
			Channel:       p.ChannelName,
			DisplayName:   p.DisplayName,
			Emoji:         p.Emoji,
			Topics:        p.Topics,
			MinHours:      p.CheckInterval.MinHours,
			MaxHours:      p.CheckInterval.MaxHours,
			NextCheckAt:   st.NextCheckAt,
			NextCheckIn:   in.Round(time.Second).String(),
			IncludesOwner: p.IncludeOwner,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
