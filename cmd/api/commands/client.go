package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskmaster/todo/internal/client"
	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/domain/filter"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/infrastructure/config"
	"github.com/taskmaster/todo/internal/ports"
)

// clientEnv is what every client command runs with
type clientEnv struct {
	api *client.Client
	cfg *config.ClientConfig
}

func newClientEnv(requireSession bool) (*clientEnv, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}

	env := &clientEnv{api: client.New(*cfg), cfg: cfg}
	if !requireSession {
		return env, nil
	}

	session, err := client.LoadSession(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w (run \"todo login\" first)", err)
	}
	env.api.SetSession(session)
	return env, nil
}

// NewRegisterCommand creates an account on the server
func NewRegisterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newClientEnv(false)
			if err != nil {
				return err
			}
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")

			user, err := env.api.Register(cmd.Context(), username, password)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
	credentialFlags(cmd)
	return cmd
}

// NewLoginCommand logs in and saves the session for later commands
func NewLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newClientEnv(false)
			if err != nil {
				return err
			}
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")

			session, err := env.api.Login(cmd.Context(), username, password)
			if err != nil {
				return describe(err)
			}
			if err := client.SaveSession(env.cfg.TokenFile, session); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s until %s\n", session.Username, session.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
	credentialFlags(cmd)
	return cmd
}

// NewLogoutCommand revokes and forgets the saved session
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newClientEnv(true)
			if err != nil {
				return err
			}

			// the local session goes even if the server already forgot it
			logoutErr := env.api.Logout(cmd.Context())
			if err := client.ClearSession(env.cfg.TokenFile); err != nil {
				return err
			}
			if logoutErr != nil && !apperrors.IsErrorType(logoutErr, apperrors.ErrorTypeUnauthorized) {
				return describe(logoutErr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// NewTasksCommand groups the task list commands
func NewTasksCommand() *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"todo"},
		Short:   "List and change tasks",
	}
	tasksCmd.PersistentFlags().String("team", "", "Team ID; omit for your personal list")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, scope, err := scopedEnv(cmd)
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("filter")
			mode, err := filter.ParseMode(name)
			if err != nil {
				return err
			}

			store := client.NewStore(env.api, scope)
			if err := store.Refresh(cmd.Context()); err != nil {
				return describe(err)
			}
			printTasks(cmd.OutOrStdout(), store.View(mode))
			return nil
		},
	}
	listCmd.Flags().String("filter", string(filter.ModeAll), "all, today, important, completed or incomplete")

	addCmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, scope, err := scopedEnv(cmd)
			if err != nil {
				return err
			}

			req := ports.CreateTaskRequest{Task: strings.Join(args, " ")}
			req.Description, _ = cmd.Flags().GetString("description")
			req.Important, _ = cmd.Flags().GetBool("important")
			req.Date, _ = cmd.Flags().GetString("date")
			req.Time, _ = cmd.Flags().GetString("time")
			req.Routine = routineFlags(cmd)

			task, err := env.api.CreateTask(cmd.Context(), scope, req)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", task.ID)
			return nil
		},
	}
	addCmd.Flags().String("description", "", "Longer description")
	addCmd.Flags().Bool("important", false, "Flag the task as important")
	addCmd.Flags().String("date", "", "Date (YYYY-MM-DD); defaults to today")
	addCmd.Flags().String("time", "", "Time (HH:MM:SS); defaults to now")
	addRoutineFlags(addCmd)

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change some fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, scope, err := scopedEnv(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var req ports.UpdateTaskRequest
			flags := cmd.Flags()
			if flags.Changed("title") {
				v, _ := flags.GetString("title")
				req.Task = &v
			}
			if flags.Changed("description") {
				v, _ := flags.GetString("description")
				req.Description = &v
			}
			if flags.Changed("important") {
				v, _ := flags.GetBool("important")
				req.Important = &v
			}
			if flags.Changed("date") {
				v, _ := flags.GetString("date")
				req.Date = &v
			}
			if flags.Changed("time") {
				v, _ := flags.GetString("time")
				req.Time = &v
			}
			req.Routine = routineFlags(cmd)

			task, err := env.api.UpdateTask(cmd.Context(), scope, id, req)
			if err != nil {
				return describe(err)
			}
			printTasks(cmd.OutOrStdout(), []entities.Task{*task})
			return nil
		},
	}
	updateCmd.Flags().String("title", "", "New title")
	updateCmd.Flags().String("description", "", "New description")
	updateCmd.Flags().Bool("important", false, "Important flag")
	updateCmd.Flags().String("date", "", "New date (YYYY-MM-DD)")
	updateCmd.Flags().String("time", "", "New time (HH:MM:SS)")
	addRoutineFlags(updateCmd)

	tasksCmd.AddCommand(listCmd, addCmd, updateCmd,
		doneCommand("done", "Mark a task as done", true),
		doneCommand("undo", "Mark a task as not done", false),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a task with its routines and shares",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				env, scope, err := scopedEnv(cmd)
				if err != nil {
					return err
				}
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := client.NewStore(env.api, scope).Delete(cmd.Context(), id); err != nil {
					return describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
				return nil
			},
		},
	)
	return tasksCmd
}

func doneCommand(use, short string, done bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, scope, err := scopedEnv(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			task, err := env.api.SetDone(cmd.Context(), scope, id, done)
			if err != nil {
				return describe(err)
			}
			printTasks(cmd.OutOrStdout(), []entities.Task{*task})
			return nil
		},
	}
}

// NewRoutinesCommand groups the routine commands
func NewRoutinesCommand() *cobra.Command {
	routinesCmd := &cobra.Command{
		Use:   "routines",
		Short: "Weekly routines",
	}

	routinesCmd.AddCommand(
		&cobra.Command{
			Use:   "day <day> <slot>",
			Short: "Tasks active on a day in a slot",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				env, err := newClientEnv(true)
				if err != nil {
					return err
				}
				scheduled, err := env.api.RoutinesFor(cmd.Context(), entities.Day(strings.ToLower(args[0])), entities.Slot(strings.ToLower(args[1])))
				if err != nil {
					return describe(err)
				}
				printScheduled(cmd.OutOrStdout(), scheduled)
				return nil
			},
		},
		&cobra.Command{
			Use:   "today [slot]",
			Short: "Tasks active today, in one slot or all of them",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				env, err := newClientEnv(true)
				if err != nil {
					return err
				}
				slots := entities.Slots
				if len(args) == 1 {
					slots = []entities.Slot{entities.Slot(strings.ToLower(args[0]))}
				}
				for _, slot := range slots {
					scheduled, err := env.api.RoutinesToday(cmd.Context(), slot)
					if err != nil {
						return describe(err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", slot)
					printScheduled(cmd.OutOrStdout(), scheduled)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "task <task-id>",
			Short: "Routine rows of a task",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				env, err := newClientEnv(true)
				if err != nil {
					return err
				}
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				routines, err := env.api.TaskRoutines(cmd.Context(), id)
				if err != nil {
					return describe(err)
				}
				printRoutines(cmd.OutOrStdout(), routines)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <task-id> <day> [slot...]",
			Short: "Make the given slots the only active ones on a day",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				env, err := newClientEnv(true)
				if err != nil {
					return err
				}
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				routines, err := env.api.UpsertRoutine(cmd.Context(), ports.UpsertRoutineRequest{
					TaskID:       id,
					RoutineInput: ports.RoutineInput{Day: args[1], Slots: args[2:]},
				})
				if err != nil {
					return describe(err)
				}
				printRoutines(cmd.OutOrStdout(), routines)
				return nil
			},
		},
		&cobra.Command{
			Use:   "move <routine-id> <day>",
			Short: "Move one routine row to another day",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				env, err := newClientEnv(true)
				if err != nil {
					return err
				}
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				routine, err := env.api.MoveRoutine(cmd.Context(), id, entities.Day(strings.ToLower(args[1])))
				if err != nil {
					return describe(err)
				}
				printRoutines(cmd.OutOrStdout(), []entities.Routine{*routine})
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear <task-id>",
			Short: "Remove every routine of a task",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				env, err := newClientEnv(true)
				if err != nil {
					return err
				}
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := env.api.ClearRoutines(cmd.Context(), id); err != nil {
					return describe(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Routines cleared")
				return nil
			},
		},
	)
	return routinesCmd
}

// NewShareCommand shares one of your tasks with another user
func NewShareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "share <task-id> <username>",
		Short: "Share a task with another user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newClientEnv(true)
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			resp, err := env.api.ShareTask(cmd.Context(), id, args[1])
			if err != nil {
				return describe(err)
			}
			if resp.Created {
				fmt.Fprintf(cmd.OutOrStdout(), "Shared with %s\n", args[1])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Already shared with %s\n", args[1])
			}
			return nil
		},
	}
}

// NewSharedCommand lists both directions of sharing
func NewSharedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shared",
		Short: "Tasks you shared and tasks shared with you",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newClientEnv(true)
			if err != nil {
				return err
			}
			lists, err := env.api.ListShared(cmd.Context())
			if err != nil {
				return describe(err)
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DIRECTION\tUSER\tTASK\tDATE")
			for _, s := range lists.Shared {
				fmt.Fprintf(w, "to\t%s\t%s\t%s\n", s.RecipientUsername, s.Task.Task, s.Date)
			}
			for _, s := range lists.Received {
				fmt.Fprintf(w, "from\t%s\t%s\t%s\n", s.SharedByUsername, s.Task.Task, s.Date)
			}
			return w.Flush()
		},
	}
}

// NewTeamsCommand groups the team commands
func NewTeamsCommand() *cobra.Command {
	teamsCmd := &cobra.Command{
		Use:     "teams",
		Aliases: []string{"team"},
		Short:   "Teams and membership",
	}

	withEnv := func(run func(ctx context.Context, out io.Writer, api *client.Client, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			env, err := newClientEnv(true)
			if err != nil {
				return err
			}
			return describe(run(cmd.Context(), cmd.OutOrStdout(), env.api, args))
		}
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a team and become its admin",
		Args:  cobra.ExactArgs(1),
	}
	createCmd.Flags().String("password", "", "Team password (required)")
	createCmd.RunE = withEnv(func(ctx context.Context, out io.Writer, api *client.Client, args []string) error {
		password, _ := createCmd.Flags().GetString("password")
		team, err := api.CreateTeam(ctx, args[0], password)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Created team %s (%s)\n", team.Name, team.ID)
		return nil
	})

	joinCmd := &cobra.Command{
		Use:   "join <name>",
		Short: "Join a team with its password",
		Args:  cobra.ExactArgs(1),
	}
	joinCmd.Flags().String("password", "", "Team password (required)")
	joinCmd.RunE = withEnv(func(ctx context.Context, out io.Writer, api *client.Client, args []string) error {
		password, _ := joinCmd.Flags().GetString("password")
		team, err := api.JoinTeam(ctx, args[0], password)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Joined team %s (%s)\n", team.Name, team.ID)
		return nil
	})

	teamsCmd.AddCommand(createCmd, joinCmd,
		&cobra.Command{
			Use:   "list",
			Short: "Teams you belong to",
			RunE: withEnv(func(ctx context.Context, out io.Writer, api *client.Client, args []string) error {
				teams, err := api.ListTeams(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME")
				for _, t := range teams {
					fmt.Fprintf(w, "%s\t%s\n", t.ID, t.Name)
				}
				return w.Flush()
			}),
		},
		&cobra.Command{
			Use:   "show <team-id>",
			Short: "A team and its tasks",
			Args:  cobra.ExactArgs(1),
			RunE: withEnv(func(ctx context.Context, out io.Writer, api *client.Client, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				detail, err := api.GetTeam(ctx, id)
				if err != nil {
					return err
				}
				role := "member"
				if detail.IsAdmin {
					role = "admin"
				}
				fmt.Fprintf(out, "%s (%s), you are %s\n", detail.Name, detail.ID, role)
				printTasks(out, detail.Tasks)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "members <team-id>",
			Short: "Members of a team",
			Args:  cobra.ExactArgs(1),
			RunE: withEnv(func(ctx context.Context, out io.Writer, api *client.Client, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				members, err := api.ListMembers(ctx, id)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "USER ID\tUSERNAME\tADMIN")
				for _, m := range members {
					fmt.Fprintf(w, "%s\t%s\t%t\n", m.UserID, m.Username, m.IsAdmin)
				}
				return w.Flush()
			}),
		},
		&cobra.Command{
			Use:   "add-member <team-id> <username>",
			Short: "Add a member (admins only)",
			Args:  cobra.ExactArgs(2),
			RunE: withEnv(func(ctx context.Context, out io.Writer, api *client.Client, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if _, err := api.AddMember(ctx, id, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(out, "Added %s\n", args[1])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "remove-member <team-id> <user-id>",
			Short: "Remove a member (admins only)",
			Args:  cobra.ExactArgs(2),
			RunE: withEnv(func(ctx context.Context, out io.Writer, api *client.Client, args []string) error {
				teamID, err := parseID(args[0])
				if err != nil {
					return err
				}
				userID, err := parseID(args[1])
				if err != nil {
					return err
				}
				if err := api.RemoveMember(ctx, teamID, userID); err != nil {
					return err
				}
				fmt.Fprintln(out, "Member removed")
				return nil
			}),
		},
	)
	return teamsCmd
}

func credentialFlags(cmd *cobra.Command) {
	cmd.Flags().String("username", "", "Username (required)")
	cmd.Flags().String("password", "", "Password (required)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
}

func addRoutineFlags(cmd *cobra.Command) {
	cmd.Flags().String("day", "", "Routine day of week (sunday..saturday, default today)")
	cmd.Flags().StringSlice("slots", nil, "Routine slots on --day: morning,noon,evening,night (empty clears the day)")
}

func routineFlags(cmd *cobra.Command) *ports.RoutineInput {
	if !cmd.Flags().Changed("day") && !cmd.Flags().Changed("slots") {
		return nil
	}
	day, _ := cmd.Flags().GetString("day")
	slots, _ := cmd.Flags().GetStringSlice("slots")
	if slots == nil {
		slots = []string{}
	}
	return &ports.RoutineInput{Day: day, Slots: slots}
}

func scopedEnv(cmd *cobra.Command) (*clientEnv, client.Scope, error) {
	env, err := newClientEnv(true)
	if err != nil {
		return nil, client.Scope{}, err
	}
	team, _ := cmd.Flags().GetString("team")
	if team == "" {
		return env, client.Personal(), nil
	}
	id, err := parseID(team)
	if err != nil {
		return nil, client.Scope{}, err
	}
	return env, client.Team(id), nil
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

// describe turns API errors into the message shown to the user
func describe(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return fmt.Errorf("%s", apperrors.GetUserMessage(err))
	}
	return err
}

func printTasks(out io.Writer, tasks []entities.Task) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\t!\tDATE\tTIME\tTASK")
	for _, t := range tasks {
		done, important := " ", " "
		if t.Done {
			done = "x"
		}
		if t.Important {
			important = "!"
		}
		fmt.Fprintf(w, "%s\t[%s]\t%s\t%s\t%s\t%s\n", t.ID, done, important, t.Date, t.Time, t.Task)
	}
	_ = w.Flush()
}

func printScheduled(out io.Writer, scheduled []entities.ScheduledTask) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, s := range scheduled {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", s.ID, s.DateTime, s.Task.Task)
	}
	_ = w.Flush()
}

func printRoutines(out io.Writer, routines []entities.Routine) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDAY\tSLOT\tACTIVE")
	for _, r := range routines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", r.ID, r.Day, r.Slot, r.IsActive)
	}
	_ = w.Flush()
}
