package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "calview"

// CalendarSource is the part of the API the loaders need.
type CalendarSource interface {
	Token() string
	ListCalendars(ctx context.Context) ([]Calendar, error)
	ListSchedules(ctx context.Context, calendarID string) ([]Schedule, error)
}

type Loader struct {
	api    CalendarSource
	styler *Styler
	logger *slog.Logger
	tracer trace.Tracer
}

func NewLoader(api CalendarSource, styler *Styler, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		api:    api,
		styler: styler,
		logger: WithOperation(logger, "load"),
		tracer: otel.Tracer(tracerName),
	}
}

// LoadCalendars replaces the calendar cache. Without a token it does nothing.
func (l *Loader) LoadCalendars(ctx context.Context, st *ClientState) error {
	if l.api.Token() == "" {
		l.logger.Debug("no token, skipping calendar load")
		return nil
	}

	ctx, span := l.tracer.Start(ctx, "LoadCalendars")
	defer span.End()

	calendars, err := l.api.ListCalendars(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to load calendars: %w", err)
	}

	st.replaceCalendars(calendars)
	span.SetAttributes(attribute.Int("calendars", len(calendars)))
	l.logger.Debug("calendars loaded", Count(len(calendars)))
	return nil
}

// LoadSchedules replaces the schedule cache with the schedules of selection, which is
// a calendar id or AllCalendars. Only the latest call's result is ever applied;
// starting a load cancels the previous one.
func (l *Loader) LoadSchedules(ctx context.Context, st *ClientState, selection string) error {
	if l.api.Token() == "" {
		l.logger.Debug("no token, skipping schedule load")
		return nil
	}
	if selection == "" {
		selection = AllCalendars
	}

	ctx, gen := st.begin(ctx)
	defer st.finish(gen)

	ctx, span := l.tracer.Start(ctx, "LoadSchedules", trace.WithAttributes(
		attribute.String("selection", selection),
		attribute.Int64("generation", int64(gen)),
	))
	defer span.End()

	var (
		calendars []Calendar
		schedules []Schedule
		err       error
	)
	if selection == AllCalendars {
		calendars, schedules, err = l.loadAll(ctx, st)
	} else {
		schedules, err = l.loadOne(ctx, st, selection)
	}

	if !st.current(gen) {
		l.logger.Debug("discarding superseded schedule load", CalendarID(selection), slog.Uint64("generation", gen))
		span.SetAttributes(attribute.Bool("stale", true))
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if !st.commit(gen, selection, calendars, schedules) {
		l.logger.Debug("discarding superseded schedule load", CalendarID(selection), slog.Uint64("generation", gen))
		return nil
	}
	span.SetAttributes(attribute.Int("schedules", len(schedules)))
	l.logger.Debug("schedules loaded", CalendarID(selection), Count(len(schedules)))
	return nil
}

func (l *Loader) loadOne(ctx context.Context, st *ClientState, calendarID string) ([]Schedule, error) {
	cal, ok := st.FindCalendar(calendarID)
	if !ok {
		return nil, fmt.Errorf("calendar %q is not loaded", calendarID)
	}

	schedules, err := l.api.ListSchedules(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules for %s: %w", cal.Name, err)
	}
	return l.decorate(schedules, cal), nil
}

// loadAll walks the calendars one by one. A calendar that fails to load is logged
// and skipped. The returned calendars are nil unless the list had to be refetched.
func (l *Loader) loadAll(ctx context.Context, st *ClientState) ([]Calendar, []Schedule, error) {
	var refetched []Calendar
	calendars := st.Snapshot().Calendars
	if len(calendars) == 0 {
		var err error
		refetched, err = l.api.ListCalendars(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load calendars: %w", err)
		}
		if refetched == nil {
			refetched = []Calendar{}
		}
		calendars = refetched
	}

	all := []Schedule{}
	for _, cal := range calendars {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		schedules, err := l.api.ListSchedules(ctx, cal.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			l.logger.Warn("failed to load calendar schedules", CalendarID(cal.ID), Err(err))
			continue
		}
		all = append(all, l.decorate(schedules, cal)...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Start.Before(all[j].Start) })
	return refetched, all, nil
}

func (l *Loader) decorate(schedules []Schedule, cal Calendar) []Schedule {
	style := l.styler.Resolve(cal)
	out := make([]Schedule, 0, len(schedules))
	for _, s := range schedules {
		s.CalendarID = cal.ID
		s.CalendarName = cal.Name
		s.Style = style
		out = append(out, s)
	}
	return out
}
