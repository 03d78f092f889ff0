package main

import "time"

// AllCalendars is the selection value that aggregates every loaded calendar.
const AllCalendars = "ALL_CALENDARS"

type User struct {
	ID       string `json:"userId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	UserType string `json:"userType"`
}

type Calendar struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

type Schedule struct {
	ID           string
	Title        string
	Description  string
	Start        time.Time
	End          time.Time
	Location     string
	Participants string
	Notes        string
	Tags         []string
	Importance   int
	IsMine       bool
	OwnerName    string
	OwnerID      string
	CalendarID   string
	CalendarName string
	Style        CalendarStyle
}

// Duration returns zero for schedules whose end precedes their start.
func (s Schedule) Duration() time.Duration {
	if s.End.Before(s.Start) {
		return 0
	}
	return s.End.Sub(s.Start)
}

type CalendarStyle struct {
	Color  string `yaml:"color"`
	Border string `yaml:"border"`
	Icon   string `yaml:"icon"`
}

// ScheduleInput is the editor form for a new schedule.
type ScheduleInput struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Location    string
	Category    string
}

// SignupForm mirrors the signup modal, including the confirmation field.
type SignupForm struct {
	UserID          string
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
	Phone           string
	Profile         string
	UserType        string
}
