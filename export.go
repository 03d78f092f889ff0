package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

const icalProductID = "-//calview//EN"

// BuildICS converts schedules into a VCALENDAR with one VEVENT each. Times are
// written in UTC.
func BuildICS(schedules []Schedule, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icalProductID)

	for _, s := range schedules {
		event := ical.NewComponent(ical.CompEvent)
		event.Props.SetText(ical.PropUID, fmt.Sprintf("%s@calview", s.ID))
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		event.Props.SetText(ical.PropSummary, s.Title)
		event.Props.SetDateTime(ical.PropDateTimeStart, s.Start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, s.End.UTC())

		if s.Description != "" {
			event.Props.SetText(ical.PropDescription, s.Description)
		}
		if s.Location != "" {
			event.Props.SetText(ical.PropLocation, s.Location)
		}
		if s.CalendarName != "" {
			event.Props.SetText(ical.PropCategories, s.CalendarName)
		}
		cal.Children = append(cal.Children, event)
	}
	return cal
}

func WriteICS(w io.Writer, schedules []Schedule, stamp time.Time) error {
	if err := ical.NewEncoder(w).Encode(BuildICS(schedules, stamp)); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// Export writes the loaded schedules to path, or to the output when path is "-".
func (a *App) Export(path string) error {
	schedules := a.state.Snapshot().Schedules
	if len(schedules) == 0 {
		return fmt.Errorf("no schedules loaded to export")
	}

	if path == "-" {
		return WriteICS(a.out, schedules, a.now())
	}
	if !strings.HasSuffix(strings.ToLower(path), ".ics") {
		path += ".ics"
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteICS(f, schedules, a.now()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	a.logger.Info("exported schedules", Count(len(schedules)), "path", path)
	fmt.Fprintf(a.out, "Exported %d schedule(s) to %s\n", len(schedules), path)
	return nil
}
