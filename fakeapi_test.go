package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testUser     = "alice_01"
	testPassword = "secret123"
	testToken    = "tok-abcdef"
)

// fakeAPI is an in-memory stand-in for the schedule server.
type fakeAPI struct {
	mu         sync.Mutex
	users      map[string]string
	calendars  []map[string]any
	schedules  map[string][]map[string]any
	hits       map[string]int
	nextID     int
	failLogout bool
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()

	f := &fakeAPI{
		users: map[string]string{testUser: testPassword},
		calendars: []map[string]any{
			{"calendarId": "cal-1", "calendarName": "My Calendar", "description": "default"},
			{"calendar_id": "cal-2", "calendar_name": "Work", "description": "office"},
		},
		schedules: map[string][]map[string]any{
			"cal-1": {
				{"id": "s-3", "title": "Dentist appointment", "startTime": "2025-07-20T11:00:00", "endTime": "2025-07-20T12:00:00", "is_my_schedule": true},
				{"id": "s-1", "title": "Standup", "startTime": "2025-07-15T09:00:00", "endTime": "2025-07-15T09:30:00", "is_my_schedule": true},
			},
			"cal-2": {
				{"id": "s-2", "title": "Planning", "start_time": "2025-07-03T14:00:00", "end_time": "2025-07-03T15:00:00", "is_my_schedule": true},
				{"id": "s-4", "title": "Team lunch", "startTime": "2025-07-15T12:00:00", "endTime": "2025-07-15T13:00:00", "is_my_schedule": false, "owner_name": "Kim"},
			},
		},
		hits:   map[string]int{},
		nextID: 100,
	}

	srv := httptest.NewServer(f.routes())
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) hit(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[name]
}

func (f *fakeAPI) totalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.hits {
		n += v
	}
	return n
}

func writeEnvelope(w http.ResponseWriter, status int, v map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) routes() http.Handler {
	mux := http.NewServeMux()

	count := func(name string, next func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.hits[name]++
			f.mu.Unlock()
			next(w, r)
		}
	}
	authed := func(next func(w http.ResponseWriter, r *http.Request)) func(w http.ResponseWriter, r *http.Request) {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+testToken {
				writeEnvelope(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Token required"})
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("GET /api/db/status", count("status", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "message": "Database connected", "database": "mysql", "status": "connected"})
	}))

	mux.HandleFunc("POST /api/auth/login", count("login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID   string `json:"userId"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		password, ok := f.users[body.UserID]
		f.mu.Unlock()
		if !ok || password != body.Password {
			writeEnvelope(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid user id or password"})
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"token": testToken,
				"user":  map[string]any{"userId": body.UserID, "name": "Alice", "email": "alice@example.com", "userType": "user"},
			},
		})
	}))

	mux.HandleFunc("POST /api/auth/logout", count("logout", authed(func(w http.ResponseWriter, r *http.Request) {
		if f.failLogout {
			writeEnvelope(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "boom"})
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
	})))

	mux.HandleFunc("POST /api/users", count("create_user", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		id, _ := body["user_id"].(string)
		password, _ := body["password"].(string)

		f.mu.Lock()
		_, exists := f.users[id]
		if !exists {
			f.users[id] = password
		}
		f.mu.Unlock()
		if exists {
			writeEnvelope(w, http.StatusConflict, map[string]any{"success": false, "message": "User ID already exists"})
			return
		}
		writeEnvelope(w, http.StatusCreated, map[string]any{
			"success": true,
			"data":    map[string]any{"user_id": id, "name": body["name"], "email": body["email"], "user_type": body["user_type"]},
		})
	}))

	mux.HandleFunc("GET /api/users/{id}", count("get_user", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		_, ok := f.users[r.PathValue("id")]
		f.mu.Unlock()
		if !ok {
			writeEnvelope(w, http.StatusNotFound, map[string]any{"success": false, "message": "User not found"})
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"user_id": r.PathValue("id")}})
	}))

	mux.HandleFunc("GET /api/calendars", count("list_calendars", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"calendars": f.calendars}})
	})))

	mux.HandleFunc("POST /api/calendars", count("create_calendar", authed(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.nextID++
		cal := map[string]any{"calendarId": fmt.Sprintf("cal-%d", f.nextID), "calendarName": body["calendarName"], "description": body["description"]}
		f.calendars = append(f.calendars, cal)
		f.mu.Unlock()
		writeEnvelope(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{"calendar": cal}})
	})))

	mux.HandleFunc("GET /api/schedules/{calendarId}", count("list_schedules", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		schedules := f.schedules[r.PathValue("calendarId")]
		if schedules == nil {
			schedules = []map[string]any{}
		}
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"schedules": schedules}})
	})))

	mux.HandleFunc("POST /api/schedules/{calendarId}", count("create_schedule", authed(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.nextID++
		s := map[string]any{
			"id":             fmt.Sprintf("s-%d", f.nextID),
			"title":          body["title"],
			"description":    body["description"],
			"startTime":      body["startTime"],
			"endTime":        body["endTime"],
			"location":       body["location"],
			"is_my_schedule": true,
		}
		calID := r.PathValue("calendarId")
		f.schedules[calID] = append(f.schedules[calID], s)
		f.mu.Unlock()
		writeEnvelope(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{"schedule": s}})
	})))

	mux.HandleFunc("DELETE /api/schedules/{id}", count("delete_schedule", authed(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		f.mu.Lock()
		defer f.mu.Unlock()
		for calID, list := range f.schedules {
			for i, s := range list {
				if s["id"] == id {
					f.schedules[calID] = append(list[:i:i], list[i+1:]...)
					writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "message": "Schedule deleted"})
					return
				}
			}
		}
		writeEnvelope(w, http.StatusNotFound, map[string]any{"success": false, "message": "Schedule not found"})
	})))

	return mux
}

// fixedNow is mid-July 2025, a Tuesday.
var fixedNow = time.Date(2025, time.July, 15, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(srv *httptest.Server) *Config {
	return &Config{
		APIBase:      srv.URL + "/api",
		Timeout:      5 * time.Second,
		TimeZone:     "UTC",
		Styles:       DefaultStyles(),
		DefaultStyle: DefaultCalendarStyle,
	}
}

func newTestApp(t *testing.T, srv *httptest.Server) (*App, *bytes.Buffer) {
	t.Helper()

	out := &bytes.Buffer{}
	app, err := newApp(testConfig(srv), &MemoryTokenStore{}, nil, out, discardLogger())
	require.NoError(t, err)
	app.now = func() time.Time { return fixedNow }
	app.state.SetMonth(fixedNow)
	return app, out
}

// newLoggedInApp returns an app that has logged in and loaded every calendar.
func newLoggedInApp(t *testing.T, srv *httptest.Server) (*App, *bytes.Buffer) {
	t.Helper()

	app, out := newTestApp(t, srv)
	require.NoError(t, app.Login(t.Context(), testUser, testPassword))
	out.Reset()
	return app, out
}

func scheduleIDs(schedules []Schedule) []string {
	ids := make([]string, 0, len(schedules))
	for _, s := range schedules {
		ids = append(ids, s.ID)
	}
	return ids
}

func scriptedPrompter(lines ...string) *Prompter {
	return NewPrompter(strings.NewReader(strings.Join(lines, "\n")+"\n"), io.Discard)
}
