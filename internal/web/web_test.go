package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"daybook/internal/config"
	"daybook/internal/model"
	"daybook/internal/schedule"
)

func newTestServer(cfg *config.Config) (*Server, *schedule.Schedule) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	sched := schedule.New().
		Insert(model.Event{Date: model.NewDate(2024, time.January, 1), Title: "A"}).
		Insert(model.Event{Date: model.NewDate(2024, time.January, 1), Title: "B"}).
		Insert(model.Event{Date: model.NewDate(2024, time.January, 3), Title: "A"})
	return NewServer(cfg, sched, &sync.Mutex{}), sched
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	var resp eventsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != len(resp.Events) {
		t.Errorf("count = %d, but %d events", resp.Count, len(resp.Events))
	}
	out := make([]string, 0, len(resp.Events))
	for _, e := range resp.Events {
		out = append(out, e.Date.String()+"/"+e.Title)
	}
	return out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(nil)
	w := do(t, s.Handler(), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("GET /health = %d %q", w.Code, w.Body.String())
	}
}

func TestExportEndpoints(t *testing.T) {
	s, _ := newTestServer(nil)

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"all", "/api/events", "2024-01-01/A,2024-01-01/B,2024-01-03/A"},
		{"range", "/api/events?from=2024-01-01&to=2024-01-02", "2024-01-01/A,2024-01-01/B"},
		{"inverted range", "/api/events?from=2024-01-03&to=2024-01-01", ""},
		{"title", "/api/events?title=A", "2024-01-01/A,2024-01-03/A"},
		{"unknown title", "/api/events?title=Z", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s.Handler(), http.MethodGet, tt.target, "")
			if w.Code != http.StatusOK {
				t.Fatalf("GET %s = %d, want 200: %s", tt.target, w.Code, w.Body.String())
			}
			if got := strings.Join(decodeList(t, w), ","); got != tt.want {
				t.Errorf("GET %s = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

func TestBadFilters(t *testing.T) {
	s, _ := newTestServer(nil)

	for _, target := range []string{
		"/api/events?from=2024-01-01",
		"/api/events?to=2024-01-01",
		"/api/events?from=2024-01-01&to=2024-01-02&title=A",
		"/api/events?from=yesterday&to=2024-01-02",
		"/api/events?from=&to=",
		"/api/events?from=2024-01-01&to=",
		"/api/events?from=",
	} {
		for _, method := range []string{http.MethodGet, http.MethodDelete} {
			w := do(t, s.Handler(), method, target, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("%s %s = %d, want 400", method, target, w.Code)
			}
		}
	}
}

func TestBlankRangeRemovesNothing(t *testing.T) {
	s, sched := newTestServer(nil)

	w := do(t, s.Handler(), http.MethodDelete, "/api/events?from=&to=", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("DELETE blank range = %d, want 400", w.Code)
	}
	if got := sched.Len(); got != 3 {
		t.Errorf("Len() after rejected DELETE = %d, want 3", got)
	}
}

func TestGetAndRemoveSingle(t *testing.T) {
	s, sched := newTestServer(nil)
	h := s.Handler()

	w := do(t, h, http.MethodGet, "/api/events/2024-01-01/A", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET single = %d: %s", w.Code, w.Body.String())
	}
	var e model.Event
	if err := json.NewDecoder(w.Body).Decode(&e); err != nil || e.Title != "A" {
		t.Errorf("GET single = %+v, %v", e, err)
	}

	if w := do(t, h, http.MethodGet, "/api/events/2024-01-02/A", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET absent = %d, want 404", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/events/not-a-date/A", ""); w.Code != http.StatusBadRequest {
		t.Errorf("GET bad date = %d, want 400", w.Code)
	}

	if w := do(t, h, http.MethodDelete, "/api/events/2024-01-01/A", ""); w.Code != http.StatusOK {
		t.Errorf("DELETE single = %d, want 200", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/api/events/2024-01-01/A", ""); w.Code != http.StatusNotFound {
		t.Errorf("second DELETE = %d, want 404", w.Code)
	}
	if _, ok := sched.Get(model.NewDate(2024, 1, 1), "B"); !ok {
		t.Error("B should still be present after removing A")
	}
}

func TestTitleWithSpacesInPath(t *testing.T) {
	s, sched := newTestServer(nil)
	sched.Insert(model.Event{Date: model.NewDate(2024, 2, 2), Title: "Team sync"})

	w := do(t, s.Handler(), http.MethodGet, "/api/events/2024-02-02/Team%20sync", "")
	if w.Code != http.StatusOK {
		t.Errorf("GET escaped title = %d: %s", w.Code, w.Body.String())
	}
}

func TestInsert(t *testing.T) {
	s, sched := newTestServer(nil)
	h := s.Handler()

	w := do(t, h, http.MethodPost, "/api/events", `{"date":"2024-01-02","title":"C","location":"Room 1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST = %d: %s", w.Code, w.Body.String())
	}
	got, ok := sched.Get(model.NewDate(2024, 1, 2), "C")
	if !ok || got.Location != "Room 1" {
		t.Errorf("inserted event = %+v, %v", got, ok)
	}

	bad := []string{
		`{"date":"2024-01-02"}`,
		`{"title":"no date"}`,
		`{"date":"2024-13-40","title":"x"}`,
		`{"date":"2024-01-02","title":"x","colour":"red"}`,
		`not json`,
	}
	for _, body := range bad {
		if w := do(t, h, http.MethodPost, "/api/events", body); w.Code != http.StatusBadRequest {
			t.Errorf("POST %s = %d, want 400", body, w.Code)
		}
	}
	if sched.Len() != 4 {
		t.Errorf("Len() = %d, want 4", sched.Len())
	}
}

func TestRemoveMany(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		wantRemoved string
		wantLeft    int
	}{
		{"range", "/api/events?from=2024-01-01&to=2024-01-01", "2024-01-01/A,2024-01-01/B", 1},
		{"title", "/api/events?title=A", "2024-01-01/A,2024-01-03/A", 1},
		{"all", "/api/events", "2024-01-01/A,2024-01-01/B,2024-01-03/A", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sched := newTestServer(nil)
			w := do(t, s.Handler(), http.MethodDelete, tt.target, "")
			if w.Code != http.StatusOK {
				t.Fatalf("DELETE %s = %d", tt.target, w.Code)
			}
			if got := strings.Join(decodeList(t, w), ","); got != tt.wantRemoved {
				t.Errorf("DELETE %s removed %q, want %q", tt.target, got, tt.wantRemoved)
			}
			if sched.Len() != tt.wantLeft {
				t.Errorf("Len() = %d, want %d", sched.Len(), tt.wantLeft)
			}
		})
	}
}

func TestICSExport(t *testing.T) {
	s, _ := newTestServer(nil)
	w := do(t, s.Handler(), http.MethodGet, "/api/calendar.ics", "")

	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/calendar") {
		t.Errorf("Content-Type = %q, want text/calendar", ct)
	}
	body := w.Body.String()
	if n := strings.Count(body, "BEGIN:VEVENT"); n != 3 {
		t.Errorf("ICS has %d VEVENTs, want 3", n)
	}
	if !strings.Contains(body, "DTSTART;VALUE=DATE:20240103") {
		t.Errorf("ICS missing all-day DTSTART for 2024-01-03")
	}
}

func TestICSExportEncodeFailure(t *testing.T) {
	orig := encodeCalendar
	encodeCalendar = func(w io.Writer, _ []model.Event) error {
		_, _ = w.Write([]byte("BEGIN:VCALENDAR\r\n"))
		return errors.New("boom")
	}
	t.Cleanup(func() { encodeCalendar = orig })

	s, _ := newTestServer(nil)
	w := do(t, s.Handler(), http.MethodGet, "/api/calendar.ics", "")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("GET /api/calendar.ics = %d, want 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if strings.Contains(w.Body.String(), "BEGIN:VCALENDAR") {
		t.Errorf("partial calendar leaked into error body: %q", w.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	s, _ := newTestServer(cfg)
	h := s.Handler()

	if w := do(t, h, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("GET /health without auth = %d, want 200", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/events", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/events without auth = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "secret")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("GET /api/events with auth = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "wrong")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/events with wrong password = %d, want 401", w.Code)
	}
}
