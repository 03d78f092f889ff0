package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// GridCells is six weeks of seven days.
const GridCells = 42

const (
	cellWidth     = 13
	maxCellChips  = 3
	maxTitleRunes = 8
)

type DayCell struct {
	Date      time.Time
	InMonth   bool
	IsToday   bool
	Schedules []Schedule
}

type MonthGrid struct {
	Year  int
	Month time.Month
	Cells [GridCells]DayCell
}

type dayKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time) dayKey {
	y, m, d := t.Date()
	return dayKey{y, m, d}
}

// StartOfMonth returns midnight on the first of t's month in t's location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// BuildMonthGrid lays out the month containing month, starting from the Sunday on or
// before the first. Days are compared in month's location.
func BuildMonthGrid(month time.Time, schedules []Schedule, today time.Time) MonthGrid {
	loc := month.Location()
	first := StartOfMonth(month)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	byDay := make(map[dayKey][]Schedule)
	for _, s := range schedules {
		k := keyOf(s.Start.In(loc))
		byDay[k] = append(byDay[k], s)
	}
	for k := range byDay {
		day := byDay[k]
		sort.SliceStable(day, func(i, j int) bool { return day[i].Start.Before(day[j].Start) })
	}

	todayKey := keyOf(today.In(loc))
	grid := MonthGrid{Year: first.Year(), Month: first.Month()}
	for i := 0; i < GridCells; i++ {
		date := start.AddDate(0, 0, i)
		k := keyOf(date)
		grid.Cells[i] = DayCell{
			Date:      date,
			InMonth:   date.Month() == first.Month(),
			IsToday:   k == todayKey,
			Schedules: byDay[k],
		}
	}
	return grid
}

// TodaySchedules returns the schedules starting on now's calendar day, in start order.
func TodaySchedules(schedules []Schedule, now time.Time) []Schedule {
	today := keyOf(now)
	var out []Schedule
	for _, s := range schedules {
		if keyOf(s.Start.In(now.Location())) == today {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// TruncateTitle shortens long titles for grid cells.
func TruncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleRunes {
		return title
	}
	return string(runes[:maxTitleRunes]) + "..."
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true)
	otherDayStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	dayStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	todayStyle    = lipgloss.NewStyle().Underline(true).Bold(true)
)

// RenderMonth writes the grid as a seven-column table.
func RenderMonth(w io.Writer, grid MonthGrid) error {
	var b strings.Builder

	title := fmt.Sprintf("%s %d", grid.Month, grid.Year)
	width := 7*cellWidth + 6
	b.WriteString(titleStyle.Render(padCenter(title, width)))
	b.WriteString("\n")

	headers := make([]string, 7)
	for i := 0; i < 7; i++ {
		headers[i] = headerStyle.Render(padCell(time.Weekday(i).String()[:3], cellWidth))
	}
	b.WriteString(strings.Join(headers, " "))
	b.WriteString("\n")

	for week := 0; week < GridCells/7; week++ {
		cells := grid.Cells[week*7 : week*7+7]

		lines := 0
		for _, cell := range cells {
			n := len(cell.Schedules)
			if n > maxCellChips {
				n = maxCellChips + 1
			}
			if n > lines {
				lines = n
			}
		}

		row := make([]string, 7)
		for i, cell := range cells {
			style := dayStyle
			if !cell.InMonth {
				style = otherDayStyle
			}
			if cell.IsToday {
				style = style.Inherit(todayStyle)
			}
			row[i] = padCell(style.Render(fmt.Sprintf("%2d", cell.Date.Day())), cellWidth)
		}
		b.WriteString(strings.Join(row, " "))
		b.WriteString("\n")

		for line := 0; line < lines; line++ {
			for i, cell := range cells {
				row[i] = padCell(chipLine(cell, line), cellWidth)
			}
			b.WriteString(strings.Join(row, " "))
			b.WriteString("\n")
		}
		b.WriteString(otherDayStyle.Render(strings.Repeat("─", width)))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func chipLine(cell DayCell, line int) string {
	n := len(cell.Schedules)
	switch {
	case line < n && (line < maxCellChips || n == maxCellChips+1):
		s := cell.Schedules[line]
		return s.Style.Chip(TruncateTitle(s.Title))
	case line == maxCellChips && n > maxCellChips+1:
		return otherDayStyle.Render(fmt.Sprintf("+%d more", n-maxCellChips))
	default:
		return ""
	}
}

// RenderToday writes the today list.
func RenderToday(w io.Writer, schedules []Schedule, now time.Time) error {
	today := TodaySchedules(schedules, now)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Today · " + now.Format("Mon Jan 02, 2006")))
	b.WriteString("\n")
	if len(today) == 0 {
		b.WriteString(otherDayStyle.Render("  No schedules today."))
		b.WriteString("\n")
	}
	for _, s := range today {
		line := fmt.Sprintf("%s %s - %s", s.Style.Icon, s.Start.Format("15:04"), s.Title)
		b.WriteString("  ")
		b.WriteString(s.Style.Chip(" " + line + " "))
		b.WriteString(" ")
		b.WriteString(otherDayStyle.Render(calendarLabel(s)))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderScheduleDetail writes every populated field of a schedule.
func RenderScheduleDetail(w io.Writer, s Schedule) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(s.Style.Icon + " " + s.Title))
	b.WriteString("\n")

	field := func(name, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "  %-13s %s\n", name+":", value)
	}
	field("Calendar", calendarLabel(s))
	field("Start", s.Start.Format("Mon Jan 02, 2006 15:04"))
	field("End", s.End.Format("Mon Jan 02, 2006 15:04"))
	field("Duration", FormatDuration(s.Duration()))
	field("Location", s.Location)
	field("Description", s.Description)
	field("Participants", s.Participants)
	if s.Importance > 0 {
		field("Importance", fmt.Sprintf("%d/10", s.Importance))
	}
	field("Notes", s.Notes)
	field("Tags", strings.Join(s.Tags, ", "))
	if !s.IsMine {
		field("Owner", firstNonEmpty(s.OwnerName, s.OwnerID))
	}
	field("ID", s.ID)

	_, err := io.WriteString(w, b.String())
	return err
}

func calendarLabel(s Schedule) string {
	if s.CalendarName == "" {
		return "Default calendar"
	}
	return s.CalendarName
}

func padCell(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func padCenter(s string, width int) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	return strings.Repeat(" ", gap/2) + s
}
