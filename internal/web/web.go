package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"daybook/internal/config"
	"daybook/internal/ics"
	appLog "daybook/internal/log"
	"daybook/internal/model"
	"daybook/internal/schedule"
	"daybook/internal/seed"
)

// maxBodyBytes bounds request bodies accepted by POST /api/events.
const maxBodyBytes = 1 << 20

// encodeCalendar renders the ICS download. Tests replace it.
var encodeCalendar = ics.Encode

// Server exposes a schedule over a small JSON API.
//
// The schedule is unsynchronized, so every handler holds mu for the whole
// operation. The same mutex must be shared with any other goroutine that
// touches the schedule (e.g. the retention job).
type Server struct {
	cfg   *config.Config
	mu    *sync.Mutex
	sched *schedule.Schedule
	mux   *http.ServeMux
}

// NewServer constructs a new Server over sched guarded by mu.
func NewServer(cfg *config.Config, sched *schedule.Schedule, mu *sync.Mutex) *Server {
	s := &Server{
		cfg:   cfg,
		mu:    mu,
		sched: sched,
		mux:   http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// ctx 가 cancel 되면 진행 중인 요청을 최대 5초까지 기다린 뒤 종료한다.
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

func (s *Server) basicAuthEnabled() bool {
	// 사용자명이나 비밀번호 중 하나라도 비어 있으면 비활성화로 취급한다.
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="daybook", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
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
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleExport)
	s.mux.HandleFunc("POST /api/events", s.handleInsert)
	s.mux.HandleFunc("DELETE /api/events", s.handleRemoveMany)
	s.mux.HandleFunc("GET /api/events/{date}/{title}", s.handleGet)
	s.mux.HandleFunc("DELETE /api/events/{date}/{title}", s.handleRemove)
	s.mux.HandleFunc("GET /api/calendar.ics", s.handleICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventsResponse is the JSON shape of every list result.
type eventsResponse struct {
	Events []model.Event `json:"events"`
	Count  int           `json:"count"`
}

func listResponse(events []model.Event) eventsResponse {
	return eventsResponse{Events: events, Count: len(events)}
}

// handleExport serves the three export operations:
//
//	GET /api/events                     all events
//	GET /api/events?from=D&to=D         inclusive date range
//	GET /api/events?title=T             every event with title T
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	var events []model.Event
	switch f.kind {
	case filterRange:
		events = s.sched.ExportDateRange(f.from, f.to)
	case filterTitle:
		events = s.sched.ExportTitle(f.title)
	default:
		events = s.sched.ExportAll()
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, listResponse(events))
}

// handleRemoveMany mirrors handleExport for DELETE: no filter removes
// everything.
func (s *Server) handleRemoveMany(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// 필터가 없으면 전체 삭제(RemoveAll)다. 빈 from/to 는 parseFilter 에서 이미 400 처리됨.
	s.mu.Lock()
	var removed []model.Event
	switch f.kind {
	case filterRange:
		removed = s.sched.RemoveDateRange(f.from, f.to)
	case filterTitle:
		removed = s.sched.RemoveTitle(f.title)
	default:
		removed = s.sched.RemoveAll()
	}
	s.mu.Unlock()

	appLog.Info("api events removed", "filter", f.String(), "count", len(removed))
	writeJSON(w, http.StatusOK, listResponse(removed))
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var e model.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event JSON: "+err.Error())
		return
	}
	if err := seed.Validate(e); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.sched.Insert(e)
	s.mu.Unlock()

	appLog.Debug("api event inserted", "date", e.Date, "title", e.Title)
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	d, title, ok := eventKey(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	e, found := s.sched.Get(d, title)
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	d, title, ok := eventKey(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	e, found := s.sched.Remove(d, title)
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	appLog.Info("api event removed", "date", d, "title", title)
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	events := s.sched.ExportAll()
	s.mu.Unlock()

	// 헤더를 보내기 전에 버퍼에 먼저 인코딩해서, 실패하면 500 을 돌려준다.
	var buf bytes.Buffer
	if err := encodeCalendar(&buf, events); err != nil {
		appLog.Error("ics export failed", err, "events", len(events))
		writeError(w, http.StatusInternalServerError, "failed to encode calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="daybook.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// eventKey extracts {date}/{title} path values, writing a 400 on failure.
func eventKey(w http.ResponseWriter, r *http.Request) (model.Date, string, bool) {
	d, err := model.ParseDate(r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return model.Date{}, "", false
	}
	return d, r.PathValue("title"), true
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
