package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"focusflow/internal/domain"
	"focusflow/internal/engine"
	"focusflow/internal/views"
)

func taskCmd() *cobra.Command {
	t := &cobra.Command{Use: "task", Short: "Manage tasks"}
	t.AddCommand(taskCreateCmd())
	t.AddCommand(taskListCmd())
	t.AddCommand(taskShowCmd())
	t.AddCommand(taskUpdateCmd())
	t.AddCommand(taskToggleCmd())
	t.AddCommand(taskStepCmd())
	t.AddCommand(taskRescheduleCmd())
	t.AddCommand(taskDeleteCmd())
	t.AddCommand(taskBreakdownCmd())
	t.AddCommand(taskCategorizeCmd())
	return t
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var category string
	var estimate int
	var steps []string
	var suggest bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts.UserID = userID()
				opts.Category = domain.Category(category)
				if cmd.Flags().Changed("estimate") {
					opts.EstimatedMinutes = &estimate
				}
				for _, s := range steps {
					opts.Steps = append(opts.Steps, domain.Step{Text: s})
				}
				if suggest {
					s, err := e.Categorize(ctx, opts.Title)
					if err != nil {
						fmt.Fprintln(os.Stderr, "warning: suggestion unavailable:", err)
					} else {
						if category == "" {
							opts.Category = s.Category
						}
						if opts.Urgency == 0 {
							opts.Urgency = s.Urgency
						}
						if opts.Importance == 0 {
							opts.Importance = s.Importance
						}
					}
				}
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "task title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&category, "category", "", "work|personal|health|learning|household|other")
	cmd.Flags().IntVar(&estimate, "estimate", 0, "estimated minutes")
	cmd.Flags().IntVar(&opts.Urgency, "urgency", 0, "urgency 1-10 (default 5)")
	cmd.Flags().IntVar(&opts.Importance, "importance", 0, "importance 1-10 (default 5)")
	cmd.Flags().StringVar(&opts.ScheduledDate, "date", "", "scheduled date YYYY-MM-DD")
	cmd.Flags().StringArrayVar(&steps, "step", nil, "step text (repeatable)")
	cmd.Flags().BoolVar(&suggest, "suggest", false, "ask the language model for category and scores")
	return cmd
}

func taskListCmd() *cobra.Command {
	var q views.TaskQuery
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				list, err := e.TaskList(ctx, userID(), q)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(list)
				}
				renderCards(list.Tasks)
				fmt.Printf("%d tasks, %d open, %d completed\n", list.Total, list.Todo, list.Completed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&q.Status, "status", "all", "all|todo|completed")
	cmd.Flags().StringVar(&q.Category, "category", "", "category filter")
	cmd.Flags().StringVarP(&q.Search, "search", "q", "", "search title and description")
	cmd.Flags().BoolVar(&q.Fuzzy, "fuzzy", false, "rank search results by fuzzy match")
	cmd.Flags().StringVar(&q.Sort, "sort", views.SortDate, "date|priority|category")
	return cmd
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.GetTask(ctx, userID(), args[0])
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
}

func taskUpdateCmd() *cobra.Command {
	var title, description, category, date string
	var estimate, urgency, importance int
	var clearEstimate bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.TaskUpdateOptions{UserID: userID(), ID: args[0], ClearEstimate: clearEstimate}
				flags := cmd.Flags()
				if flags.Changed("title") {
					opts.Title = &title
				}
				if flags.Changed("description") {
					opts.Description = &description
				}
				if flags.Changed("category") {
					c := domain.Category(category)
					opts.Category = &c
				}
				if flags.Changed("estimate") {
					opts.EstimatedMinutes = &estimate
				}
				if flags.Changed("urgency") {
					opts.Urgency = &urgency
				}
				if flags.Changed("importance") {
					opts.Importance = &importance
				}
				if flags.Changed("date") {
					opts.ScheduledDate = &date
				}
				t, err := e.UpdateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&category, "category", "", "category")
	cmd.Flags().IntVar(&estimate, "estimate", 0, "estimated minutes")
	cmd.Flags().BoolVar(&clearEstimate, "clear-estimate", false, "remove the estimate")
	cmd.Flags().IntVar(&urgency, "urgency", 0, "urgency 1-10")
	cmd.Flags().IntVar(&importance, "importance", 0, "importance 1-10")
	cmd.Flags().StringVar(&date, "date", "", "scheduled date YYYY-MM-DD, empty to unschedule")
	return cmd
}

func taskToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Complete or reopen a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.ToggleComplete(ctx, userID(), args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				if res.Feedback != "" {
					fmt.Println(res.Feedback)
				}
				fmt.Printf("%s is now %s (level %d, %d xp, streak %d)\n", res.Task.Title, res.Task.Status, res.Stats.Level, res.Stats.XP, res.Stats.CurrentStreak)
				return nil
			})
		},
	}
}

func taskStepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step <id> <step-id>",
		Short: "Toggle one step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.ToggleStep(ctx, userID(), args[0], args[1])
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
}

func taskRescheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reschedule <id> <YYYY-MM-DD>",
		Short: "Move a task to another day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.Reschedule(ctx, userID(), args[0], args[1])
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteTask(ctx, userID(), args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func taskBreakdownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "breakdown <id>",
		Short: "Replace steps with an AI breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.BreakdownTask(ctx, userID(), args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				renderSteps(res.Task)
				return nil
			})
		},
	}
}

func taskCategorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categorize <title>",
		Short: "Suggest category, urgency and importance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.Categorize(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(s)
			})
		},
	}
}

func printTask(t domain.Task) error {
	if viper.GetBool("json") {
		return printJSON(t)
	}
	c := views.Card(t)
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendRow(table.Row{"ID", t.ID})
	tw.AppendRow(table.Row{"Title", t.Title})
	tw.AppendRow(table.Row{"Status", t.Status})
	tw.AppendRow(table.Row{"Category", categoryLabel(t.Category)})
	tw.AppendRow(table.Row{"Priority", fmt.Sprintf("%s (u%d/i%d, Q%d)", c.Priority, t.Urgency, t.Importance, t.Quadrant)})
	if t.EstimatedMinutes != nil {
		tw.AppendRow(table.Row{"Estimate", strconv.Itoa(*t.EstimatedMinutes) + "m"})
	}
	if t.ScheduledDate != "" {
		tw.AppendRow(table.Row{"Scheduled", t.ScheduledDate})
	}
	tw.AppendRow(table.Row{"Progress", fmt.Sprintf("%d%% (%d/%d steps)", c.Progress, c.CompletedSteps, len(t.Steps))})
	tw.Render()
	if len(t.Steps) > 0 {
		renderSteps(t)
	}
	return nil
}

func renderSteps(t domain.Task) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Step", "Done", "Text", "Minutes"})
	for _, s := range t.Steps {
		done := ""
		if s.Completed {
			done = "x"
		}
		tw.AppendRow(table.Row{s.ID, done, s.Text, s.EstimatedMinutes})
	}
	tw.Render()
}

func renderCards(cards []views.TaskCard) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Title", "Status", "Category", "Priority", "Progress", "Date"})
	for _, c := range cards {
		tw.AppendRow(table.Row{c.ID, c.Title, c.Status, categoryLabel(c.Category), c.Priority, fmt.Sprintf("%d%%", c.Progress), c.ScheduledDate})
	}
	tw.Render()
}

func categoryLabel(c domain.Category) string {
	if c == "" {
		return string(domain.CategoryOther)
	}
	return string(c)
}
