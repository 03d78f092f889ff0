package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nexidian/gocliselect"
)

type MenuItem struct {
	Label string
	ID    string
}

// Chooser shows items and returns the chosen id, or "" when the menu was dismissed.
type Chooser func(prompt string, items []MenuItem) string

func MenuChooser(prompt string, items []MenuItem) string {
	menu := gocliselect.NewMenu(prompt)
	for _, item := range items {
		menu.AddItem(item.Label, item.ID)
	}
	return chosenID(menu.Display())
}

// chosenID turns a menu result into an item id. Errors and non-string ids read as a
// dismissed menu.
func chosenID(v any, err error) string {
	if err != nil {
		return ""
	}
	id, _ := v.(string)
	return id
}

const (
	actionPrev        = "prev"
	actionNext        = "next"
	actionCalendar    = "calendar"
	actionAdd         = "add"
	actionQuick       = "quick"
	actionView        = "view"
	actionNewCalendar = "new-calendar"
	actionRefresh     = "refresh"
	actionLogout      = "logout"
	actionQuit        = "quit"
)

var browseActions = []MenuItem{
	{"◀ Previous month", actionPrev},
	{"▶ Next month", actionNext},
	{"Choose calendar", actionCalendar},
	{"Add schedule", actionAdd},
	{"Quick add", actionQuick},
	{"View / delete schedule", actionView},
	{"Create calendar", actionNewCalendar},
	{"Refresh", actionRefresh},
	{"Logout", actionLogout},
	{"Quit", actionQuit},
}

// Browse runs the interactive loop until the user quits or logs out. Action errors
// are printed and the loop goes on.
func (a *App) Browse(ctx context.Context, selection string, p *Prompter, choose Chooser) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if selection == "" {
		selection = AllCalendars
	}
	if err := a.Refresh(ctx, selection); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		a.printHeader()
		if err := a.ShowMonth(); err != nil {
			return err
		}

		action := choose("What next?", browseActions)
		if action == "" || action == actionQuit {
			return nil
		}

		done, err := a.runAction(ctx, p, choose, action)
		if err != nil {
			fmt.Fprintf(a.out, "Error: %v\n", err)
		}
		if done {
			return nil
		}
	}
}

func (a *App) printHeader() {
	snap := a.state.Snapshot()
	label := "All calendars"
	if cal, ok := a.state.FindCalendar(snap.Selection); ok {
		label = cal.Name
	}
	fmt.Fprintf(a.out, "\n%s · %d schedule(s)\n", label, len(snap.Schedules))
}

func (a *App) runAction(ctx context.Context, p *Prompter, choose Chooser, action string) (bool, error) {
	switch action {
	case actionPrev:
		a.state.ShiftMonth(-1)
	case actionNext:
		a.state.ShiftMonth(1)
	case actionCalendar:
		return false, a.chooseCalendar(ctx, choose)
	case actionAdd:
		input, err := a.promptSchedule(p)
		if err != nil {
			return false, err
		}
		return false, a.AddSchedule(ctx, input)
	case actionQuick:
		return false, a.promptQuickAdd(ctx, p)
	case actionView:
		return false, a.viewSchedule(ctx, p, choose)
	case actionNewCalendar:
		name, err := p.Ask("Calendar name")
		if err != nil {
			return false, err
		}
		description, err := p.Ask("Description (optional)")
		if err != nil {
			return false, err
		}
		return false, a.CreateCalendar(ctx, name, description)
	case actionRefresh:
		return false, a.Refresh(ctx, a.state.Selection())
	case actionLogout:
		return true, a.Logout(ctx)
	default:
		return false, fmt.Errorf("unknown action %q", action)
	}
	return false, nil
}

func (a *App) chooseCalendar(ctx context.Context, choose Chooser) error {
	items := []MenuItem{{"📅 All calendars", AllCalendars}}
	for _, cal := range a.state.Snapshot().Calendars {
		style := a.loader.styler.Resolve(cal)
		items = append(items, MenuItem{style.Icon + " " + cal.Name, cal.ID})
	}

	selection := choose("Which calendar?", items)
	if selection == "" {
		return nil
	}
	return a.loader.LoadSchedules(ctx, a.state, selection)
}

func (a *App) promptSchedule(p *Prompter) (ScheduleInput, error) {
	if sel := a.state.Selection(); sel == "" || sel == AllCalendars {
		return ScheduleInput{}, ErrNoCalendarSelected
	}

	var in ScheduleInput
	var err error
	if in.Title, err = p.Ask("Title"); err != nil {
		return in, err
	}

	startRaw, err := p.AskDefault("Start (YYYY-MM-DD HH:MM)", a.now().Truncate(time.Hour).Add(time.Hour).Format("2006-01-02 15:04"))
	if err != nil {
		return in, err
	}
	if in.Start, err = ParseDateTime(startRaw, a.loc); err != nil {
		return in, &ValidationError{"start", err.Error()}
	}

	endRaw, err := p.AskDefault("End (YYYY-MM-DD HH:MM)", in.Start.Add(time.Hour).Format("2006-01-02 15:04"))
	if err != nil {
		return in, err
	}
	if in.End, err = ParseDateTime(endRaw, a.loc); err != nil {
		return in, &ValidationError{"end", err.Error()}
	}

	if in.Location, err = p.Ask("Location (optional)"); err != nil {
		return in, err
	}
	if in.Description, err = p.Ask("Description (optional)"); err != nil {
		return in, err
	}
	in.Category = "general"
	return in, nil
}

func (a *App) promptQuickAdd(ctx context.Context, p *Prompter) error {
	title, err := p.Ask("Title")
	if err != nil {
		return err
	}
	date, err := p.AskDefault("Date (YYYY-MM-DD)", a.now().Format("2006-01-02"))
	if err != nil {
		return err
	}
	clock, err := p.AskDefault("Time (HH:MM)", "09:00")
	if err != nil {
		return err
	}
	return a.QuickAdd(ctx, title, date, clock)
}

func (a *App) viewSchedule(ctx context.Context, p *Prompter, choose Chooser) error {
	snap := a.state.Snapshot()
	start := snap.Month
	end := start.AddDate(0, 1, 0)

	var items []MenuItem
	for _, s := range snap.Schedules {
		if s.Start.Before(start) || !s.Start.Before(end) {
			continue
		}
		label := fmt.Sprintf("%s %s %s", s.Start.Format("01/02 15:04"), s.Style.Icon, s.Title)
		items = append(items, MenuItem{label, s.ID})
	}
	if len(items) == 0 {
		return errors.New("no schedules this month")
	}

	id := choose("Which schedule?", items)
	if id == "" {
		return nil
	}
	if err := a.ShowSchedule(id); err != nil {
		return err
	}

	s, _ := a.state.FindSchedule(id)
	if !s.IsMine {
		return nil
	}
	_, err := a.DeleteSchedule(ctx, id, func(s Schedule) bool {
		return p.Confirm(fmt.Sprintf("Delete %q?", s.Title))
	})
	return err
}
