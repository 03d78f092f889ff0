package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Runtime carries what the commands share. The App is built lazily once flags are
// parsed.
type Runtime struct {
	Out    io.Writer
	ErrOut io.Writer
	Prompt *Prompter
	Choose Chooser
	NewApp func(cfg *Config, verbose bool) (*App, error)

	App *App

	configPath string
	apiBase    string
	calendar   string
	verbose    bool
	trace      bool
}

func NewRuntime(in io.Reader, out, errOut io.Writer) *Runtime {
	return &Runtime{
		Out:    out,
		ErrOut: errOut,
		Prompt: NewPrompter(in, out),
		Choose: MenuChooser,
		NewApp: func(cfg *Config, verbose bool) (*App, error) {
			return NewApp(cfg, out, errOut, verbose)
		},
	}
}

func (rt *Runtime) setup(cmd *cobra.Command) (*App, error) {
	if rt.App != nil {
		return rt.App, nil
	}

	explicit := cmd.Flags().Changed("config")
	cfg, err := LoadConfig(rt.configPath, explicit, Overrides{APIBase: rt.apiBase, Trace: rt.trace})
	if err != nil {
		return nil, err
	}

	app, err := rt.NewApp(cfg, rt.verbose)
	if err != nil {
		return nil, err
	}
	rt.App = app
	return app, nil
}

func (rt *Runtime) Close(ctx context.Context) error {
	if rt.App == nil {
		return nil
	}
	return rt.App.Close(ctx)
}

// load fetches calendars and the schedules of --calendar (all calendars by default).
func (rt *Runtime) load(ctx context.Context) error {
	if err := rt.App.requireSession(); err != nil {
		return err
	}
	selection := rt.calendar
	if selection == "" {
		selection = AllCalendars
	}
	return rt.App.Refresh(ctx, selection)
}

func (rt *Runtime) calendarCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	a, err := rt.setup(cmd)
	if err != nil || !a.session.LoggedIn() {
		return nil, cobra.ShellCompDirectiveError
	}
	calendars, err := a.api.ListCalendars(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	ids := []string{AllCalendars}
	for _, cal := range calendars {
		ids = append(ids, cal.ID+"\t"+cal.Name)
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func (rt *Runtime) scheduleCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if _, err := rt.setup(cmd); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	if err := rt.load(cmd.Context()); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var ids []string
	for _, s := range rt.App.state.Snapshot().Schedules {
		ids = append(ids, s.ID+"\t"+s.Title)
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func SetupCommands(rt *Runtime) *cobra.Command {
	// root command
	rootCmd := &cobra.Command{
		Use:           "calview",
		Short:         "A terminal client for the schedule calendar API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := rt.setup(cmd)
			return err
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rt.configPath, "config", DefaultConfigPath(), "config file")
	pf.StringVar(&rt.apiBase, "api", "", "API base URL (default "+DefaultAPIBase+")")
	pf.StringVarP(&rt.calendar, "calendar", "c", "", "calendar id to work with (default: all calendars)")
	pf.BoolVarP(&rt.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&rt.trace, "trace", false, "print OpenTelemetry spans to stderr")
	_ = rootCmd.RegisterFlagCompletionFunc("calendar", rt.calendarCompletion)

	// checks that the API is reachable
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Check the API connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.App.Status(cmd.Context())
		},
	}

	loginCmd := &cobra.Command{
		Use:   "login [user-id]",
		Short: "Log in and remember the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var userID string
			var err error
			if len(args) > 0 {
				userID = args[0]
			} else if userID, err = rt.Prompt.Ask("User ID"); err != nil {
				return err
			}

			password, err := rt.Prompt.Password("Password")
			if err != nil {
				return err
			}
			return rt.App.Login(cmd.Context(), userID, password)
		},
	}

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.App.Logout(cmd.Context())
		},
	}

	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			rt.App.WhoAmI()
		},
	}

	// signup asks for whatever was not given as a flag
	var form SignupForm
	signupCmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			ask := func(dst *string, label string) {
				if err == nil && *dst == "" {
					*dst, err = rt.Prompt.Ask(label)
				}
			}
			ask(&form.UserID, "User ID (4-20 letters, digits or _)")
			ask(&form.Name, "Name")
			ask(&form.Email, "Email")
			if err != nil {
				return err
			}

			if form.Password, err = rt.Prompt.Password("Password"); err != nil {
				return err
			}
			if form.PasswordConfirm, err = rt.Prompt.Password("Confirm password"); err != nil {
				return err
			}
			return rt.App.Signup(cmd.Context(), form)
		},
	}
	signupCmd.Flags().StringVar(&form.UserID, "id", "", "user id")
	signupCmd.Flags().StringVar(&form.Name, "name", "", "display name")
	signupCmd.Flags().StringVar(&form.Email, "email", "", "email address")
	signupCmd.Flags().StringVar(&form.Phone, "phone", "", "phone number (010-1234-5678)")
	signupCmd.Flags().StringVar(&form.Profile, "profile", "", "profile text")
	signupCmd.Flags().StringVar(&form.UserType, "type", "user", "account type")

	checkIDCmd := &cobra.Command{
		Use:   "check-id [id]",
		Short: "Check whether a user id is available",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.App.CheckUserID(cmd.Context(), args[0])
		},
	}

	calendarsCmd := &cobra.Command{
		Use:   "calendars",
		Short: "List your calendars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.load(cmd.Context()); err != nil {
				return err
			}
			rt.App.ListCalendars()
			return nil
		},
	}

	var calendarDescription string
	calendarCmd := &cobra.Command{
		Use:   "calendar",
		Short: "Manage calendars",
	}
	calendarCreateCmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.load(cmd.Context()); err != nil {
				return err
			}
			return rt.App.CreateCalendar(cmd.Context(), args[0], calendarDescription)
		},
	}
	calendarCreateCmd.Flags().StringVarP(&calendarDescription, "description", "d", "", "calendar description")
	calendarCmd.AddCommand(calendarCreateCmd)

	// month grid, or a table with --list
	var listMonth bool
	monthCmd := &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Show a month of schedules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				month, err := ParseMonth(args[0], rt.App.loc)
				if err != nil {
					return err
				}
				rt.App.state.SetMonth(month)
			}
			if err := rt.load(cmd.Context()); err != nil {
				return err
			}

			if listMonth {
				rt.App.ListSchedules()
				return nil
			}
			return rt.App.ShowMonth()
		},
	}
	monthCmd.Flags().BoolVarP(&listMonth, "list", "l", false, "print a table instead of the grid")

	todayCmd := &cobra.Command{
		Use:   "today",
		Short: "Show today's schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.load(cmd.Context()); err != nil {
				return err
			}
			return rt.App.ShowToday()
		},
	}

	var addFlags struct {
		title, start, end, location, description, category string
	}
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a schedule to the --calendar calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.calendar == "" || rt.calendar == AllCalendars {
				return ErrNoCalendarSelected
			}

			input := ScheduleInput{
				Title:       addFlags.title,
				Description: addFlags.description,
				Location:    addFlags.location,
				Category:    addFlags.category,
			}
			var err error
			if addFlags.start != "" {
				if input.Start, err = ParseDateTime(addFlags.start, rt.App.loc); err != nil {
					return &ValidationError{"start", err.Error()}
				}
			}
			if addFlags.end != "" {
				if input.End, err = ParseDateTime(addFlags.end, rt.App.loc); err != nil {
					return &ValidationError{"end", err.Error()}
				}
			}
			if err := ValidateScheduleInput(input); err != nil {
				return err
			}

			if err := rt.load(cmd.Context()); err != nil {
				return err
			}
			return rt.App.AddSchedule(cmd.Context(), input)
		},
	}
	addCmd.Flags().StringVarP(&addFlags.title, "title", "t", "", "schedule title")
	addCmd.Flags().StringVarP(&addFlags.start, "start", "s", "", "start (YYYY-MM-DD HH:MM)")
	addCmd.Flags().StringVarP(&addFlags.end, "end", "e", "", "end (YYYY-MM-DD HH:MM)")
	addCmd.Flags().StringVarP(&addFlags.location, "location", "l", "", "location")
	addCmd.Flags().StringVarP(&addFlags.description, "description", "d", "", "description")
	addCmd.Flags().StringVar(&addFlags.category, "category", "general", "category")

	var quickDate, quickTime string
	quickCmd := &cobra.Command{
		Use:   "quick [title]",
		Short: "Add a one-hour schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.calendar == "" || rt.calendar == AllCalendars {
				return ErrNoCalendarSelected
			}
			if err := rt.load(cmd.Context()); err != nil {
				return err
			}
			return rt.App.QuickAdd(cmd.Context(), args[0], quickDate, quickTime)
		},
	}
	quickCmd.Flags().StringVar(&quickDate, "date", "", "date (YYYY-MM-DD, default today)")
	quickCmd.Flags().StringVar(&quickTime, "time", "09:00", "start time (HH:MM)")

	showCmd := &cobra.Command{
		Use:               "show [schedule-id]",
		Short:             "Show schedule details",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: rt.scheduleCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.load(cmd.Context()); err != nil {
				return err
			}
			return rt.App.ShowSchedule(args[0])
		},
	}

	var assumeYes bool
	deleteCmd := &cobra.Command{
		Use:               "delete [schedule-id]",
		Short:             "Delete one of your schedules",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: rt.scheduleCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.load(cmd.Context()); err != nil {
				return err
			}

			confirm := func(s Schedule) bool {
				if assumeYes {
					return true
				}
				return rt.Prompt.Confirm(fmt.Sprintf("Delete %q (%s)?", s.Title, s.Start.Format("2006-01-02 15:04")))
			}
			deleted, err := rt.App.DeleteSchedule(cmd.Context(), args[0], confirm)
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Fprintln(rt.Out, "Cancelled.")
			}
			return nil
		},
	}
	deleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")

	exportCmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export schedules as iCalendar (use - for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.load(cmd.Context()); err != nil {
				return err
			}
			return rt.App.Export(args[0])
		},
	}

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse calendars interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.App.Browse(cmd.Context(), rt.calendar, rt.Prompt, rt.Choose)
		},
	}

	// add commands
	rootCmd.AddCommand(statusCmd, loginCmd, logoutCmd, whoamiCmd, signupCmd, checkIDCmd)
	rootCmd.AddCommand(calendarsCmd, calendarCmd, monthCmd, todayCmd)
	rootCmd.AddCommand(addCmd, quickCmd, showCmd, deleteCmd, exportCmd, browseCmd)

	return rootCmd
}
