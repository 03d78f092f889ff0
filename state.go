package main

import (
	"context"
	"sync"
	"time"
)

// ClientState is everything the client caches between renders. Lists are always
// replaced wholesale, never merged.
type ClientState struct {
	mu        sync.Mutex
	month     time.Time
	selection string
	calendars []Calendar
	schedules []Schedule

	// generation of the latest schedule load; older results are discarded
	gen    uint64
	cancel context.CancelFunc
}

func NewClientState(now time.Time) *ClientState {
	return &ClientState{
		month:     StartOfMonth(now),
		selection: AllCalendars,
	}
}

// StateSnapshot is a copy of the state that is safe to render.
type StateSnapshot struct {
	Month     time.Time
	Selection string
	Calendars []Calendar
	Schedules []Schedule
}

func (s *ClientState) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StateSnapshot{
		Month:     s.month,
		Selection: s.selection,
		Calendars: append([]Calendar(nil), s.calendars...),
		Schedules: append([]Schedule(nil), s.schedules...),
	}
}

func (s *ClientState) Month() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.month
}

func (s *ClientState) SetMonth(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.month = StartOfMonth(t)
}

// ShiftMonth moves the displayed month by n months.
func (s *ClientState) ShiftMonth(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.month = s.month.AddDate(0, n, 0)
}

func (s *ClientState) Selection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// FindCalendar looks a calendar up in the cache.
func (s *ClientState) FindCalendar(id string) (Calendar, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calendars {
		if c.ID == id {
			return c, true
		}
	}
	return Calendar{}, false
}

// FindSchedule looks a schedule up in the cache.
func (s *ClientState) FindSchedule(id string) (Schedule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range s.schedules {
		if sc.ID == id {
			return sc, true
		}
	}
	return Schedule{}, false
}

// Reset drops every cached list and cancels any in-flight load.
func (s *ClientState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.selection = AllCalendars
	s.calendars = nil
	s.schedules = nil
}

// replaceCalendars swaps the calendar list and drops cached schedules of calendars
// that are gone. A selection pointing at a removed calendar falls back to all calendars.
func (s *ClientState) replaceCalendars(calendars []Calendar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendars = calendars

	known := make(map[string]bool, len(calendars))
	for _, c := range calendars {
		known[c.ID] = true
	}
	kept := make([]Schedule, 0, len(s.schedules))
	for _, sc := range s.schedules {
		if known[sc.CalendarID] {
			kept = append(kept, sc)
		}
	}
	s.schedules = kept
	if s.selection != AllCalendars && !known[s.selection] {
		s.selection = AllCalendars
	}
}

// begin starts a new load generation, cancelling the previous load's context.
func (s *ClientState) begin(ctx context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return ctx, s.gen
}

// current reports whether gen is still the latest load.
func (s *ClientState) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

// commit applies a load result if gen is still the latest. It reports whether the
// result was applied.
func (s *ClientState) commit(gen uint64, selection string, calendars []Calendar, schedules []Schedule) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	if calendars != nil {
		s.calendars = calendars
	}
	s.selection = selection
	s.schedules = schedules
	return true
}

// finish releases the context of load gen if it is still the latest.
func (s *ClientState) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
