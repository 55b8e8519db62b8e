package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/louispotok/frieden/internal/config"
	"github.com/louispotok/frieden/internal/layout"
	appLog "github.com/louispotok/frieden/internal/log"
	"github.com/louispotok/frieden/internal/model"
	"github.com/louispotok/frieden/internal/timeutil"
	"github.com/louispotok/frieden/internal/viewport"
)

// maxRangeDays bounds a single /data request so one call cannot ask
// for years of expansion.
const maxRangeDays = 62

// dataCacheTTL is how long an aggregated /data response stays fresh.
const dataCacheTTL = 30 * time.Second

// BusySource aggregates busy intervals per calendar id for a half-open
// range. internal/freebusy provides the production implementation.
type BusySource interface {
	Busy(ctx context.Context, timeMin, timeMax model.Instant) map[string][]model.BusyInterval
}

// Server exposes the freebusy data endpoint and the rendered timeline.
type Server struct {
	cfg     *config.Config
	clock   *timeutil.Clock
	builder *layout.Builder
	src     BusySource
	debug   bool
	mux     *http.ServeMux

	// In-memory cache for /data responses keyed by requested range, to
	// avoid redundant fetch/parse/expand work on every request.
	dataMu    sync.RWMutex
	dataCache map[string]*dataCacheEntry
}

type dataCacheEntry struct {
	resp      dataResponse
	updatedAt time.Time
}

// NewServer constructs a Server.
func NewServer(cfg *config.Config, clock *timeutil.Clock, src BusySource, debug bool) *Server {
	s := &Server{
		cfg:     cfg,
		clock:   clock,
		builder: layout.NewBuilder(clock),
		src:     src,
		debug:   debug,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health 는 항상 무인증으로 노출한다.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="frieden", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/data", s.handleData)
	s.mux.HandleFunc("/api/timeline", s.handleAPITimeline)
	s.mux.HandleFunc("/timeline", s.handleTimelinePage)
	s.mux.HandleFunc("/preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// dataRequest / dataResponse are the wire shapes of the aggregation
// endpoint consumed by the timeline engine.
type dataRequest struct {
	TimeMin string `json:"timeMin"`
	TimeMax string `json:"timeMax"`
}

type dataResponse struct {
	Calendars map[string]calendarBusy `json:"calendars"`
}

type calendarBusy struct {
	Busy []wireInterval `json:"busy"`
}

type wireInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// handleData serves POST /data: busy intervals per calendar for the
// requested half-open range.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var req dataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	timeMin, err := model.ParseISO(req.TimeMin)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid timeMin")
		return
	}
	timeMax, err := model.ParseISO(req.TimeMax)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid timeMax")
		return
	}
	if timeMax <= timeMin {
		writeError(w, http.StatusBadRequest, "timeMax must be after timeMin")
		return
	}
	if int64(timeMax-timeMin) > maxRangeDays*timeutil.Day {
		writeError(w, http.StatusBadRequest, "requested range too large")
		return
	}

	cacheKey := req.TimeMin + "|" + req.TimeMax
	now := time.Now()

	s.dataMu.RLock()
	entry := s.dataCache[cacheKey]
	s.dataMu.RUnlock()
	if entry != nil && now.Sub(entry.updatedAt) < dataCacheTTL {
		writeJSON(w, http.StatusOK, entry.resp)
		return
	}

	appLog.Info("data request",
		"time_min", req.TimeMin,
		"time_max", req.TimeMax,
	)

	byCalendar := s.src.Busy(r.Context(), timeMin, timeMax)

	resp := dataResponse{Calendars: make(map[string]calendarBusy, len(byCalendar))}
	for id, intervals := range byCalendar {
		busy := make([]wireInterval, 0, len(intervals))
		for _, iv := range intervals {
			busy = append(busy, wireInterval{Start: iv.Start.ISO(), End: iv.End.ISO()})
		}
		resp.Calendars[id] = calendarBusy{Busy: busy}
	}

	s.dataMu.Lock()
	if s.dataCache == nil {
		s.dataCache = make(map[string]*dataCacheEntry)
	}
	s.dataCache[cacheKey] = &dataCacheEntry{resp: resp, updatedAt: time.Now()}
	s.dataMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// timelineParams reads the shared anchor/days query parameters.
// anchor is epoch milliseconds; it is floored to its local day. days
// is clamped into the viewport's [3,7] band.
func (s *Server) timelineParams(r *http.Request) (model.Instant, int) {
	q := r.URL.Query()

	anchor := s.clock.Dfloor(s.clock.Now())
	if raw := q.Get("anchor"); raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			anchor = s.clock.Dfloor(model.Instant(ms))
		}
	}

	days := parseIntDefault(q.Get("days"), viewport.MinDays)
	if days < viewport.MinDays {
		days = viewport.MinDays
	}
	if days > viewport.MaxDays {
		days = viewport.MaxDays
	}
	return anchor, days
}

// handleAPITimeline serves the display tree as JSON for non-HTML
// clients.
func (s *Server) handleAPITimeline(w http.ResponseWriter, r *http.Request) {
	anchor, days := s.timelineParams(r)
	tl := s.buildTimeline(r.Context(), anchor, days)
	writeJSON(w, http.StatusOK, tl)
}

func (s *Server) buildTimeline(ctx context.Context, anchor model.Instant, days int) layout.Timeline {
	end := anchor + model.Instant(int64(days)*timeutil.Day)
	byCalendar := s.src.Busy(ctx, anchor, end)
	return s.builder.BuildTimeline(anchor, days, flattenCalendars(byCalendar), s.clock.Now())
}

// flattenCalendars merges all calendars into one interval list in
// sorted id order, discarding calendar identity.
func flattenCalendars(byCalendar map[string][]model.BusyInterval) []model.BusyInterval {
	ids := make([]string, 0, len(byCalendar))
	for id := range byCalendar {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.BusyInterval, 0)
	for _, id := range ids {
		out = append(out, byCalendar[id]...)
	}
	return out
}

// handlePreview serves the last captured PNG preview from disk.
// 경로 규칙은 cmd/frieden 의 캡처 파이프라인과 동일하게 맞춘다.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.previewPath())
}

func (s *Server) previewPath() string {
	if s.debug {
		return "./cache/preview.png"
	}
	return filepath.Join(s.cfg.CacheDir, "preview.png")
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
