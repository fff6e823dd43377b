// Package api provides the HTTP API for observing and steering the yard.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talgya/cellblock/internal/climate"
	"github.com/talgya/cellblock/internal/engine"
	"github.com/talgya/cellblock/internal/gang"
	"github.com/talgya/cellblock/internal/llm"
	"github.com/talgya/cellblock/internal/persistence"
	"github.com/talgya/cellblock/internal/scheduler"
)

// Ticker is the part of the scheduler the API drives.
type Ticker interface {
	Tick() uint64
	Speed() float64
	SetSpeed(float64)
	Step() uint64
}

// Server serves the yard over HTTP.
type Server struct {
	Store    *Store
	Sched    Ticker
	DB       *persistence.DB // optional; events fall back to memory
	LLM      *llm.Client
	Hub      *Hub
	Names    llm.Names
	Port     int
	AdminKey string   // Bearer token for POST endpoints. Empty = POST disabled.
	Origins  []string // extra CORS origins

	bulletinMu   sync.Mutex
	bulletin     *llm.Bulletin
	bulletinTick uint64
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	bulletinLimiter := NewRateLimiter(30, time.Hour)
	actionLimiter := NewRateLimiter(600, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/gangs", s.handleGangs)
	mux.HandleFunc("GET /api/v1/gang/{id}", s.handleGang)
	mux.HandleFunc("GET /api/v1/member/{id}", s.handleMember)
	mux.HandleFunc("GET /api/v1/guards", s.handleGuards)
	mux.HandleFunc("GET /api/v1/bribes", s.handleBribes)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/bulletin", RateLimitMiddleware(bulletinLimiter, s.handleBulletin))
	if s.Hub != nil {
		mux.HandleFunc("GET /api/v1/stream", s.Hub.ServeWS)
	}

	// Admin endpoints.
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/environment", s.adminOnly(s.handleEnvironment))
	mux.HandleFunc("POST /api/v1/tick", s.adminOnly(s.handleTick))
	mux.HandleFunc("POST /api/v1/yard-event", s.adminOnly(s.handleYardEvent))
	mux.HandleFunc("POST /api/v1/snapshot", s.adminOnly(s.handleSnapshot))
	mux.HandleFunc("POST /api/v1/action", s.adminOnly(RateLimitMiddleware(actionLimiter, s.handleAction)))

	return corsMiddleware(s.Origins, mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", srv.Addr, "admin_auth", s.AdminKey != "", "stream", s.Hub != nil)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins. Localhost
// dev servers are always allowed.
func corsMiddleware(extra []string, next http.Handler) http.Handler {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	for _, o := range extra {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no CELLBLOCK_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"name": "Cellblock"}
	s.Store.View(func(st *gang.State) {
		living, locked, dead := 0, 0, 0
		for _, m := range st.Members {
			switch {
			case m.Killed:
				dead++
			case m.Imprisoned:
				locked++
				living++
			default:
				living++
			}
		}
		standing := 0
		for _, g := range st.Gangs {
			if !g.Collapsed {
				standing++
			}
		}
		status["tick"] = st.Tick
		status["yard_time"] = scheduler.YardTime(st.Tick)
		status["intensity"] = st.EnvironmentIntensity
		status["mood"] = climate.Describe(st.EnvironmentIntensity)
		status["gangs"] = standing
		status["living"] = living
		status["in_solitary"] = locked
		status["dead"] = dead
		status["territory_held"] = st.TotalTerritory()
	})
	status["sim_clock"] = s.Store.Now()
	if s.Sched != nil {
		status["speed"] = s.Sched.Speed()
	}
	writeJSON(w, status)
}

func (s *Server) handleGangs(w http.ResponseWriter, r *http.Request) {
	var out []engine.GangStats
	s.Store.View(func(st *gang.State) { out = engine.AllGangStats(st) })
	writeJSON(w, out)
}

func (s *Server) handleGang(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var (
		stats   engine.GangStats
		ok      bool
		members []*gang.Member
	)
	s.Store.View(func(st *gang.State) {
		stats, ok = engine.GetGangStats(st, id)
		members = engine.GetGangMembers(st, id)
	})
	if !ok {
		http.Error(w, "gang not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"gang": stats, "members": members})
}

func (s *Server) handleMember(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var (
		info engine.MemberInfo
		ok   bool
		ctx  string
	)
	s.Store.View(func(st *gang.State) {
		info, ok = engine.GetPersonalityGangInfo(st, id)
		ctx = llm.GangContext(st, id, s.Names)
	})
	if !ok {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"member": info, "context": ctx})
}

func (s *Server) handleGuards(w http.ResponseWriter, r *http.Request) {
	type guardView struct {
		gang.Guard
		Reputation string `json:"reputation"`
	}
	var out []guardView
	s.Store.View(func(st *gang.State) {
		for _, id := range st.GuardIDs() {
			g := *st.Guards[id]
			out = append(out, guardView{Guard: g, Reputation: g.ReputationTier()})
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleBribes(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50)
	var out []gang.BribeAttempt
	s.Store.View(func(st *gang.State) {
		start := max(len(st.BribeLog)-limit, 0)
		out = append(out, st.BribeLog[start:]...)
	})
	writeJSON(w, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50)
	category := engine.Category(r.URL.Query().Get("category"))

	if s.DB != nil {
		events, err := s.DB.RecentEvents(limit, category)
		if err != nil {
			slog.Error("event query failed", "error", err)
			http.Error(w, "event query failed", http.StatusInternalServerError)
			return
		}
		// newest first from the db; the feed reads oldest first
		for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
			events[i], events[j] = events[j], events[i]
		}
		writeJSON(w, events)
		return
	}
	writeJSON(w, s.Store.Recent(limit, category))
}

func (s *Server) handleBulletin(w http.ResponseWriter, r *http.Request) {
	s.bulletinMu.Lock()
	defer s.bulletinMu.Unlock()

	snap := s.Store.Snapshot()
	day := snap.Tick / scheduler.TicksPerDay
	if s.bulletin != nil && s.bulletinTick/scheduler.TicksPerDay == day {
		writeJSON(w, s.bulletin)
		return
	}

	data := llm.BuildBulletinData(snap, s.Store.Recent(200, ""))
	s.bulletin = llm.GenerateBulletin(r.Context(), s.LLM, data)
	s.bulletinTick = snap.Tick
	writeJSON(w, s.bulletin)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Sched == nil {
		http.Error(w, "scheduler not running", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Sched.SetSpeed(req.Speed)
	}
	writeJSON(w, map[string]float64{"speed": s.Sched.Speed()})
}

func (s *Server) handleEnvironment(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var p engine.EnvironmentParams
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		res := Do(s.Store, func(e *engine.Engine, st *gang.State) engine.Result[gang.Config] {
			return e.ApplyEnvironmentParameters(st, p)
		})
		if !res.OK() {
			writeError(w, res.Err)
			return
		}
	}
	var out map[string]any
	s.Store.View(func(st *gang.State) {
		out = map[string]any{"intensity": st.EnvironmentIntensity, "config": st.Config}
	})
	writeJSON(w, out)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if s.Sched != nil {
		tick := s.Sched.Step()
		writeJSON(w, map[string]any{"tick": tick, "message": "tick forced"})
		return
	}
	res := s.Store.Advance(time.Hour, nil)
	if !res.OK() {
		writeError(w, res.Err)
		return
	}
	writeJSON(w, res.Value)
}

func (s *Server) handleYardEvent(w http.ResponseWriter, r *http.Request) {
	res := Do(s.Store, func(e *engine.Engine, st *gang.State) engine.Result[string] {
		return e.TriggerRandomGangEvent(st)
	})
	writeResult(w, res)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	snap := s.Store.Snapshot()
	if err := s.DB.SaveYard(snap); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"tick": snap.Tick, "message": "snapshot saved"})
}

func queryLimit(r *http.Request, def int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return def
}

// statusFor maps engine failures to HTTP status codes.
func statusFor(err error) int {
	var ee *engine.Error
	if !errors.As(err, &ee) {
		return http.StatusInternalServerError
	}
	switch ee.Kind {
	case engine.KindValidation:
		return http.StatusBadRequest
	case engine.KindStateConflict:
		return http.StatusConflict
	case engine.KindResource:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("engine failure", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeResult[T any](w http.ResponseWriter, res engine.Result[T]) {
	if !res.OK() {
		writeError(w, res.Err)
		return
	}
	writeJSON(w, map[string]any{
		"message": res.Message,
		"value":   res.Value,
		"events":  res.Events,
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
