package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultAPIBase = "http://localhost:5000/api"

// wire layout for schedule timestamps sent to the API
const wireTimeLayout = "2006-01-02T15:04:05"

var ErrNotLoggedIn = errors.New("not logged in")

type (
	Response struct {
		Success  bool            `json:"success"`
		Message  string          `json:"message,omitempty"`
		Error    string          `json:"error,omitempty"`
		Exists   *bool           `json:"exists,omitempty"`
		Database string          `json:"database,omitempty"`
		Status   string          `json:"status,omitempty"`
		Data     json.RawMessage `json:"data,omitempty"`
	}

	LoginResponse struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}

	APIStatus struct {
		Message  string
		Database string
		Status   string
	}

	apiCalendar struct {
		CalendarID        string `json:"calendarId"`
		CalendarIDSnake   string `json:"calendar_id"`
		CalendarName      string `json:"calendarName"`
		CalendarNameSnake string `json:"calendar_name"`
		Description       string `json:"description"`
		CreatedAt         string `json:"created_at"`
	}

	apiSchedule struct {
		ID             string          `json:"id"`
		Title          string          `json:"title"`
		Description    string          `json:"description"`
		StartTime      string          `json:"startTime"`
		StartTimeSnake string          `json:"start_time"`
		EndTime        string          `json:"endTime"`
		EndTimeSnake   string          `json:"end_time"`
		Location       string          `json:"location"`
		Participants   string          `json:"participants"`
		Notes          string          `json:"notes"`
		Tags           json.RawMessage `json:"tags"`
		Importance     int             `json:"importance"`
		IsMine         *bool           `json:"is_my_schedule"`
		OwnerName      string          `json:"owner_name"`
		OwnerID        string          `json:"owner_id"`
	}

	apiUser struct {
		UserID   string `json:"user_id"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		UserType string `json:"user_type"`
	}
)

// APIError is returned for non-2xx responses and for envelopes with success=false.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: HTTP %d", e.StatusCode)
	}
	return e.Message
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

type APIClient struct {
	baseURL    string
	token      string
	location   *time.Location
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAPIClient creates a client for baseURL. A nil transport uses http.DefaultTransport.
func NewAPIClient(baseURL string, timeout time.Duration, transport http.RoundTripper, loc *time.Location, logger *slog.Logger) *APIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &APIClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		location: loc,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger,
	}
}

func (c *APIClient) SetToken(token string) {
	c.token = token
}

func (c *APIClient) Token() string {
	return c.token
}

// do sends one request and decodes the response envelope. When out is non-nil the
// envelope's data field is decoded into it.
func (c *APIClient) do(ctx context.Context, method, path string, body any, auth bool, out any) (*Response, error) {
	if auth && c.token == "" {
		return nil, ErrNotLoggedIn
	}

	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error encoding request: %w", err)
		}
		reader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer res.Body.Close()

	c.logger.Debug("api request", slog.String("method", method), slog.String("path", path), slog.Int(KeyStatus, res.StatusCode))

	var apiRes Response
	if err := json.NewDecoder(res.Body).Decode(&apiRes); err != nil {
		if res.StatusCode < 200 || res.StatusCode > 299 {
			return nil, &APIError{StatusCode: res.StatusCode, Message: http.StatusText(res.StatusCode)}
		}
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 || !apiRes.Success {
		msg := apiRes.Message
		if msg == "" {
			msg = apiRes.Error
		}
		return &apiRes, &APIError{StatusCode: res.StatusCode, Message: msg}
	}

	if out != nil && len(apiRes.Data) > 0 {
		if err := json.Unmarshal(apiRes.Data, out); err != nil {
			return nil, fmt.Errorf("error decoding response data: %w", err)
		}
	}
	return &apiRes, nil
}

// Status checks API and database connectivity.
func (c *APIClient) Status(ctx context.Context) (APIStatus, error) {
	res, err := c.do(ctx, http.MethodGet, "/db/status", nil, false, nil)
	if err != nil {
		return APIStatus{}, err
	}
	return APIStatus{Message: res.Message, Database: res.Database, Status: res.Status}, nil
}

func (c *APIClient) Login(ctx context.Context, userID, password string) (*LoginResponse, error) {
	reqData := struct {
		UserID   string `json:"userId"`
		Password string `json:"password"`
	}{UserID: userID, Password: password}

	var login LoginResponse
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", reqData, false, &login); err != nil {
		return nil, err
	}
	if login.Token == "" {
		return nil, fmt.Errorf("login response did not contain a token")
	}
	return &login, nil
}

func (c *APIClient) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, true, nil)
	return err
}

// CreateUser registers a new account. The form must already be validated.
func (c *APIClient) CreateUser(ctx context.Context, form SignupForm) (User, error) {
	reqData := struct {
		UserID   string  `json:"user_id"`
		Name     string  `json:"name"`
		Email    string  `json:"email"`
		Password string  `json:"password"`
		Phone    *string `json:"phone"`
		Profile  *string `json:"profile"`
		UserType string  `json:"user_type"`
	}{
		UserID:   form.UserID,
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Phone:    optional(form.Phone),
		Profile:  optional(form.Profile),
		UserType: form.UserType,
	}

	var created apiUser
	if _, err := c.do(ctx, http.MethodPost, "/users", reqData, false, &created); err != nil {
		return User{}, err
	}
	return User{ID: created.UserID, Name: created.Name, Email: created.Email, UserType: created.UserType}, nil
}

// UserExists reports whether userID is taken. A 404 means the id is available.
func (c *APIClient) UserExists(ctx context.Context, userID string) (bool, error) {
	_, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, false, nil)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *APIClient) ListCalendars(ctx context.Context) ([]Calendar, error) {
	var data struct {
		Calendars []apiCalendar `json:"calendars"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/calendars", nil, true, &data); err != nil {
		return nil, err
	}

	calendars := make([]Calendar, 0, len(data.Calendars))
	for _, cal := range data.Calendars {
		calendars = append(calendars, c.toCalendar(cal))
	}
	return calendars, nil
}

func (c *APIClient) CreateCalendar(ctx context.Context, name, description string) (Calendar, error) {
	reqData := struct {
		CalendarName string `json:"calendarName"`
		Description  string `json:"description"`
	}{CalendarName: name, Description: description}

	var data struct {
		Calendar apiCalendar `json:"calendar"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/calendars", reqData, true, &data); err != nil {
		return Calendar{}, err
	}
	return c.toCalendar(data.Calendar), nil
}

// ListSchedules fetches the schedules of one calendar. The returned schedules carry
// calendarID but no calendar name or style; the loader fills those in.
func (c *APIClient) ListSchedules(ctx context.Context, calendarID string) ([]Schedule, error) {
	var data struct {
		Schedules []apiSchedule `json:"schedules"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/schedules/"+url.PathEscape(calendarID), nil, true, &data); err != nil {
		return nil, err
	}

	schedules := make([]Schedule, 0, len(data.Schedules))
	for _, s := range data.Schedules {
		schedule, err := c.toSchedule(s)
		if err != nil {
			c.logger.Warn("skipping schedule with unreadable times", slog.String("schedule_id", s.ID), Err(err))
			continue
		}
		schedule.CalendarID = calendarID
		schedules = append(schedules, schedule)
	}
	return schedules, nil
}

func (c *APIClient) CreateSchedule(ctx context.Context, calendarID string, input ScheduleInput) (Schedule, error) {
	reqData := struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		StartTime   string `json:"startTime"`
		EndTime     string `json:"endTime"`
		Location    string `json:"location"`
		Category    string `json:"category,omitempty"`
	}{
		Title:       input.Title,
		Description: input.Description,
		StartTime:   input.Start.In(c.location).Format(wireTimeLayout),
		EndTime:     input.End.In(c.location).Format(wireTimeLayout),
		Location:    input.Location,
		Category:    input.Category,
	}

	var data struct {
		Schedule apiSchedule `json:"schedule"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/schedules/"+url.PathEscape(calendarID), reqData, true, &data); err != nil {
		return Schedule{}, err
	}

	schedule, err := c.toSchedule(data.Schedule)
	if err != nil {
		return Schedule{}, fmt.Errorf("error decoding created schedule: %w", err)
	}
	schedule.CalendarID = calendarID
	return schedule, nil
}

func (c *APIClient) DeleteSchedule(ctx context.Context, scheduleID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/schedules/"+url.PathEscape(scheduleID), nil, true, nil)
	return err
}

func (c *APIClient) toCalendar(cal apiCalendar) Calendar {
	out := Calendar{
		ID:          firstNonEmpty(cal.CalendarID, cal.CalendarIDSnake),
		Name:        firstNonEmpty(cal.CalendarName, cal.CalendarNameSnake),
		Description: cal.Description,
	}
	if cal.CreatedAt != "" {
		if t, err := ParseWireTime(cal.CreatedAt, c.location); err == nil {
			out.CreatedAt = t
		}
	}
	return out
}

func (c *APIClient) toSchedule(s apiSchedule) (Schedule, error) {
	start, err := ParseWireTime(firstNonEmpty(s.StartTime, s.StartTimeSnake), c.location)
	if err != nil {
		return Schedule{}, fmt.Errorf("start time: %w", err)
	}
	end, err := ParseWireTime(firstNonEmpty(s.EndTime, s.EndTimeSnake), c.location)
	if err != nil {
		return Schedule{}, fmt.Errorf("end time: %w", err)
	}

	schedule := Schedule{
		ID:           s.ID,
		Title:        s.Title,
		Description:  s.Description,
		Start:        start,
		End:          end,
		Location:     s.Location,
		Participants: s.Participants,
		Notes:        s.Notes,
		Importance:   s.Importance,
		IsMine:       true,
		OwnerName:    s.OwnerName,
		OwnerID:      s.OwnerID,
	}
	if s.IsMine != nil {
		schedule.IsMine = *s.IsMine
	}
	// tags is free-form JSON on the server; only a list of strings is kept
	if len(s.Tags) > 0 {
		var tags []string
		if err := json.Unmarshal(s.Tags, &tags); err == nil {
			schedule.Tags = tags
		}
	}
	return schedule, nil
}

var wireLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseWireTime parses API timestamps. Values without a zone are read in loc.
func ParseWireTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range wireLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
