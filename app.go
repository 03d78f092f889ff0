package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type App struct {
	cfg     *Config
	api     *APIClient
	session *Session
	loader  *Loader
	state   *ClientState
	repo    *Repo
	out     io.Writer
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time

	shutdownTracing func(context.Context) error
}

// NewApp wires the client from cfg. The token store is the sqlite repo unless token
// persistence is disabled.
func NewApp(cfg *Config, out, errOut io.Writer, verbose bool) (*App, error) {
	logger := NewLogger(errOut, cfg.LogLevel, verbose)

	shutdown, err := SetupTracing(cfg.Trace, errOut)
	if err != nil {
		return nil, err
	}

	var (
		store TokenStore = &MemoryTokenStore{}
		repo  *Repo
	)
	if cfg.PersistToken == nil || *cfg.PersistToken {
		repo, err = NewRepo(cfg.DBPath)
		if err != nil {
			_ = shutdown(context.Background())
			return nil, err
		}
		store = repo
	}

	app, err := newApp(cfg, store, otelhttp.NewTransport(http.DefaultTransport), out, logger)
	if err != nil {
		if repo != nil {
			repo.Close()
		}
		_ = shutdown(context.Background())
		return nil, err
	}
	app.repo = repo
	app.shutdownTracing = shutdown

	if err := app.session.Restore(); err != nil {
		logger.Warn("could not restore session", Err(err))
	}
	return app, nil
}

func newApp(cfg *Config, store TokenStore, transport http.RoundTripper, out io.Writer, logger *slog.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	api := NewAPIClient(cfg.APIBase, cfg.Timeout, transport, loc, logger)
	styler := NewStyler(cfg.Styles, cfg.DefaultStyle)
	now := func() time.Time { return time.Now().In(loc) }

	return &App{
		cfg:     cfg,
		api:     api,
		session: NewSession(api, store, logger),
		loader:  NewLoader(api, styler, logger),
		state:   NewClientState(now()),
		out:     out,
		logger:  logger,
		loc:     loc,
		now:     now,
	}, nil
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.shutdownTracing != nil {
		errs = append(errs, a.shutdownTracing(ctx))
	}
	if a.repo != nil {
		errs = append(errs, a.repo.Close())
	}
	return errors.Join(errs...)
}

func (a *App) requireSession() error {
	if !a.session.LoggedIn() {
		return fmt.Errorf("%w: run 'calview login' first", ErrNotLoggedIn)
	}
	return nil
}

func (a *App) Status(ctx context.Context) error {
	status, err := a.api.Status(ctx)
	if err != nil {
		return fmt.Errorf("API unreachable at %s: %w", a.cfg.APIBase, err)
	}
	fmt.Fprintf(a.out, "Connected to %s (%s, %s)\n", a.cfg.APIBase, firstNonEmpty(status.Database, "unknown database"), firstNonEmpty(status.Status, "ok"))
	if status.Message != "" {
		fmt.Fprintln(a.out, status.Message)
	}
	return nil
}

// Login authenticates and then loads every calendar's schedules.
func (a *App) Login(ctx context.Context, userID, password string) error {
	user, err := a.session.Login(ctx, userID, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s! (%s)\n", user.Name, firstNonEmpty(user.UserType, "user"))
	return a.Refresh(ctx, AllCalendars)
}

func (a *App) Logout(ctx context.Context) error {
	err := a.session.Logout(ctx)
	a.state.Reset()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) WhoAmI() {
	switch user := a.session.User(); {
	case user != nil:
		fmt.Fprintf(a.out, "%s (%s, %s)\n", user.Name, user.ID, user.UserType)
	case a.session.LoggedIn():
		fmt.Fprintf(a.out, "Logged in %s\n", SanitizeToken(a.session.Token()))
	default:
		fmt.Fprintln(a.out, "Not logged in.")
	}
}

// Signup validates the form locally and only then registers the account.
func (a *App) Signup(ctx context.Context, form SignupForm) error {
	form = form.Normalize()
	if err := ValidateSignup(form); err != nil {
		return err
	}

	user, err := a.api.CreateUser(ctx, form)
	if err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}
	fmt.Fprintf(a.out, "Account created. ID: %s, name: %s\nPlease log in.\n", user.ID, user.Name)
	return nil
}

// CheckUserID reports whether id is free. Ids shorter than the minimum are not checked.
func (a *App) CheckUserID(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if len([]rune(id)) < minUserIDLen {
		fmt.Fprintf(a.out, "User ID must be at least %d characters.\n", minUserIDLen)
		return nil
	}
	exists, err := a.api.UserExists(ctx, id)
	if err != nil {
		return err
	}
	if exists {
		fmt.Fprintf(a.out, "%s is already taken.\n", id)
	} else {
		fmt.Fprintf(a.out, "%s is available.\n", id)
	}
	return nil
}

// Refresh reloads the calendar list and then the schedules of selection.
func (a *App) Refresh(ctx context.Context, selection string) error {
	if err := a.loader.LoadCalendars(ctx, a.state); err != nil {
		return err
	}
	return a.loader.LoadSchedules(ctx, a.state, selection)
}

// Reload refetches the active schedule view.
func (a *App) Reload(ctx context.Context) error {
	return a.loader.LoadSchedules(ctx, a.state, a.state.Selection())
}

func (a *App) ListCalendars() {
	snap := a.state.Snapshot()
	if len(snap.Calendars) == 0 {
		fmt.Fprintln(a.out, "No calendars.")
		return
	}

	rows := make([][]string, 0, len(snap.Calendars))
	for _, cal := range snap.Calendars {
		style := a.loader.styler.Resolve(cal)
		rows = append(rows, []string{style.Icon + " " + cal.Name, cal.ID, cal.Description})
	}
	PrintTable(a.out, []string{"Calendar", "ID", "Description"}, rows, nil)
	fmt.Fprintf(a.out, "%d calendar(s)\n", len(snap.Calendars))
}

func (a *App) CreateCalendar(ctx context.Context, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{"name", "required"}
	}
	if description == "" {
		description = "Created from calview"
	}

	cal, err := a.api.CreateCalendar(ctx, name, description)
	if err != nil {
		return fmt.Errorf("failed to create calendar: %w", err)
	}
	fmt.Fprintf(a.out, "Calendar %q created (%s).\n", cal.Name, cal.ID)
	return a.Refresh(ctx, a.state.Selection())
}

// ShowMonth renders the month grid followed by the today list.
func (a *App) ShowMonth() error {
	snap := a.state.Snapshot()
	now := a.now()
	if err := RenderMonth(a.out, BuildMonthGrid(snap.Month, snap.Schedules, now)); err != nil {
		return err
	}
	fmt.Fprintln(a.out)
	return RenderToday(a.out, snap.Schedules, now)
}

func (a *App) ShowToday() error {
	return RenderToday(a.out, a.state.Snapshot().Schedules, a.now())
}

// ListSchedules prints the displayed month's schedules as a table, grouped by day.
func (a *App) ListSchedules() {
	snap := a.state.Snapshot()
	start := snap.Month
	end := start.AddDate(0, 1, 0)

	headers := []string{"Day", "Start", "End", "Duration", "Title", "Calendar", "ID"}

	var rows [][]string
	totalDuration := time.Duration(0)

	var lastDay string
	for _, s := range snap.Schedules {
		if s.Start.Before(start) || !s.Start.Before(end) {
			continue
		}
		day := s.Start.Format("Jan 02, 2006")
		duration := s.Duration()
		totalDuration += duration

		dayCol := day
		if day == lastDay {
			dayCol = ""
		}
		lastDay = day

		rows = append(rows, []string{
			dayCol,
			s.Start.Format("15:04"),
			s.End.Format("15:04"),
			FormatDuration(duration),
			s.Style.Icon + " " + s.Title,
			calendarLabel(s),
			s.ID,
		})
	}

	fmt.Fprintf(a.out, "%s %d\n", start.Month(), start.Year())
	footers := []string{"", "", "Total:", FormatDuration(totalDuration), "", "", ""}
	PrintTable(a.out, headers, rows, footers)
}

// AddSchedule creates a schedule in the selected calendar and reloads the view.
func (a *App) AddSchedule(ctx context.Context, input ScheduleInput) error {
	selection := a.state.Selection()
	if selection == "" || selection == AllCalendars {
		return ErrNoCalendarSelected
	}
	if err := ValidateScheduleInput(input); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	created, err := a.api.CreateSchedule(ctx, selection, input)
	if err != nil {
		return fmt.Errorf("failed to add schedule: %w", err)
	}
	a.logger.Info("schedule created", CalendarID(selection), slog.String("schedule_id", created.ID))
	fmt.Fprintf(a.out, "Schedule %q added.\n", input.Title)
	return a.Reload(ctx)
}

// QuickAdd creates a one-hour schedule starting at date + clock.
func (a *App) QuickAdd(ctx context.Context, title, date, clock string) error {
	if date == "" {
		date = a.now().Format("2006-01-02")
	}
	start, err := ParseDateTime(date+" "+clock, a.loc)
	if err != nil {
		return &ValidationError{"start", err.Error()}
	}
	return a.AddSchedule(ctx, ScheduleInput{
		Title:       title,
		Description: "Quick add",
		Start:       start,
		End:         start.Add(time.Hour),
		Category:    "general",
	})
}

func (a *App) ShowSchedule(id string) error {
	s, ok := a.state.FindSchedule(id)
	if !ok {
		return fmt.Errorf("schedule %q not found in the loaded calendars", id)
	}
	return RenderScheduleDetail(a.out, s)
}

// DeleteSchedule asks confirm, deletes, and reloads the active view. It reports
// whether the schedule was deleted.
func (a *App) DeleteSchedule(ctx context.Context, id string, confirm func(Schedule) bool) (bool, error) {
	if err := a.requireSession(); err != nil {
		return false, err
	}
	s, ok := a.state.FindSchedule(id)
	if !ok {
		return false, fmt.Errorf("schedule %q not found in the loaded calendars", id)
	}
	if !s.IsMine {
		return false, fmt.Errorf("schedule %q belongs to %s and cannot be deleted", s.Title, firstNonEmpty(s.OwnerName, s.OwnerID, "another user"))
	}
	if confirm != nil && !confirm(s) {
		return false, nil
	}

	if err := a.api.DeleteSchedule(ctx, id); err != nil {
		return false, fmt.Errorf("failed to delete schedule: %w", err)
	}
	a.logger.Info("schedule deleted", slog.String("schedule_id", id))
	fmt.Fprintf(a.out, "Schedule %q deleted.\n", s.Title)
	return true, a.Reload(ctx)
}
