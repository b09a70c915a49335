package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"focusflow/internal/config"
	"focusflow/internal/credential"
	"focusflow/internal/domain"
	"focusflow/internal/engine"
	"focusflow/internal/scoring"
	"focusflow/internal/timer"
)

func moodCmd() *cobra.Command {
	m := &cobra.Command{Use: "mood", Short: "Mood check-ins"}

	var note string
	add := &cobra.Command{
		Use:   "add <excited|good|neutral|tired|stressed>",
		Short: "Record how you feel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.AddMood(ctx, userID(), domain.Mood(args[0]), note)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(c)
				}
				fmt.Printf("recorded %s (%d/5)\n", c.Mood, c.Value)
				return nil
			})
		},
	}
	add.Flags().StringVar(&note, "note", "", "optional note")

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Recent check-ins, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.RecentMoods(ctx, userID(), limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Mood", "Value", "Note"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.Timestamp.Local().Format("2006-01-02 15:04"), c.Mood, c.Value, c.Note})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 7, "number of check-ins")

	m.AddCommand(add, list)
	return m
}

func timerCmd() *cobra.Command {
	t := &cobra.Command{Use: "timer", Short: "Focus timer"}

	var taskID, mode string
	var custom int
	run := &cobra.Command{
		Use:   "run",
		Short: "Run a countdown in the terminal; Ctrl-C skips",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				user := userID()
				snap, err := e.StartTimer(ctx, engine.TimerStartOptions{
					UserID:        user,
					TaskID:        taskID,
					Mode:          domain.TimerMode(mode),
					CustomSeconds: custom,
				})
				if err != nil {
					return err
				}
				label := snap.TaskTitle
				if label == "" {
					label = string(snap.Mode)
				}
				fmt.Printf("%s: %s\n", label, snap.Display)
				final, err := timer.Run(ctx, e.Timers.For(user), time.Second, func(s timer.Snapshot) {
					fmt.Printf("\r%s  ", s.Display)
				})
				fmt.Println()
				if errors.Is(err, context.Canceled) {
					if _, err := e.SkipTimer(user); err != nil {
						return err
					}
					fmt.Println("skipped")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Printf("done after %s, %d interruptions\n", scoring.FormatTime(final.Elapsed), final.Interruptions)
				return nil
			})
		},
	}
	run.Flags().StringVar(&taskID, "task", "", "task id to focus on")
	run.Flags().StringVar(&mode, "mode", string(domain.ModeDefault), "pomodoro|short-break|long-break|urgent|custom|default")
	run.Flags().IntVar(&custom, "seconds", 0, "duration for custom mode")

	sessions := &cobra.Command{
		Use:   "sessions",
		Short: "Recorded timer sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.TimerSessions(ctx, userID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Started", "Mode", "Planned", "Actual", "Done", "Interruptions"})
				for _, s := range items {
					actual := "-"
					if s.ActualDuration != nil {
						actual = scoring.FormatTime(*s.ActualDuration)
					}
					tw.AppendRow(table.Row{s.StartedAt.Local().Format("2006-01-02 15:04"), s.Mode, scoring.FormatTime(s.PlannedDuration), actual, s.Completed, s.Interruptions})
				}
				tw.Render()
				return nil
			})
		},
	}

	t.AddCommand(run, sessions)
	return t
}

func todayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Open tasks for today, highest priority first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				v, err := e.Today(ctx, userID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(v)
				}
				fmt.Printf("%s: %d/%d scheduled tasks done (%d%%)\n", v.Date, v.Completed, v.Scheduled, v.Progress)
				renderCards(v.Tasks)
				return nil
			})
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Completion, focus time, streaks and heatmap",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				v, err := e.Stats(ctx, userID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(v)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendRow(table.Row{"Completed", v.Completed})
				tw.AppendRow(table.Row{"Focus", v.FocusDisplay})
				tw.AppendRow(table.Row{"Streak", fmt.Sprintf("%d (best %d)", v.CurrentStreak, v.LongestStreak)})
				tw.AppendRow(table.Row{"Level", v.Level})
				for _, q := range v.Quadrants {
					tw.AppendRow(table.Row{fmt.Sprintf("Q%d open", q.Quadrant), q.Count})
				}
				tw.Render()
				shades := []rune(" ░▒▓██")
				row := make([]rune, 0, len(v.Heatmap))
				for _, d := range v.Heatmap {
					row = append(row, shades[d.Intensity])
				}
				fmt.Printf("last %d days |%s|\n", len(v.Heatmap), string(row))
				return nil
			})
		},
	}
}

func profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "User stats and settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				v, err := e.Profile(ctx, userID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(v)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendRow(table.Row{"User", v.User.ID})
				tw.AppendRow(table.Row{"Level", fmt.Sprintf("%d (%d xp, %d to next)", v.User.Stats.Level, v.User.Stats.XP, v.XPToNextLevel)})
				tw.AppendRow(table.Row{"Tasks", fmt.Sprintf("%d/%d completed", v.CompletedTasks, v.TotalTasks)})
				tw.AppendRow(table.Row{"Sessions", v.TotalSessions})
				tw.AppendRow(table.Row{"Focus hours", v.FocusHours})
				tw.AppendRow(table.Row{"Pomodoro", fmt.Sprintf("%dm / %dm / %dm", v.Settings.TimerPomodoro, v.Settings.TimerShortBreak, v.Settings.TimerLongBreak)})
				tw.Render()
				return nil
			})
		},
	}
}

func exportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all tasks and timer sessions to a JSON backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				doc, err := e.Export(ctx, userID())
				if err != nil {
					return err
				}
				path := filepath.Join(dir, domain.ExportFileName(doc.ExportDate.Local()))
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				enc := jsonEncoder(f)
				if err := enc.Encode(doc); err != nil {
					return err
				}
				fmt.Printf("exported %d tasks and %d sessions to %s\n", len(doc.Tasks), len(doc.TimerSessions), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "out", "o", ".", "output directory")
	return cmd
}

func settingsCmd() *cobra.Command {
	s := &cobra.Command{Use: "settings", Short: "Per-user settings"}
	s.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				cur, err := e.GetSettings(ctx, userID())
				if err != nil {
					return err
				}
				return printJSON(cur)
			})
		},
	})

	var notifications, sound, dark bool
	var pomodoro, short, long int
	set := &cobra.Command{
		Use:   "set",
		Short: "Change settings; unset flags keep their value",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				cur, err := e.GetSettings(ctx, userID())
				if err != nil {
					return err
				}
				flags := cmd.Flags()
				if flags.Changed("notifications") {
					cur.Notifications = notifications
				}
				if flags.Changed("sound") {
					cur.Sound = sound
				}
				if flags.Changed("dark-mode") {
					cur.DarkMode = dark
				}
				if flags.Changed("pomodoro") {
					cur.TimerPomodoro = pomodoro
				}
				if flags.Changed("short-break") {
					cur.TimerShortBreak = short
				}
				if flags.Changed("long-break") {
					cur.TimerLongBreak = long
				}
				saved, err := e.UpdateSettings(ctx, userID(), cur)
				if err != nil {
					return err
				}
				return printJSON(saved)
			})
		},
	}
	set.Flags().BoolVar(&notifications, "notifications", false, "enable notifications")
	set.Flags().BoolVar(&sound, "sound", false, "enable sound")
	set.Flags().BoolVar(&dark, "dark-mode", false, "enable dark mode")
	set.Flags().IntVar(&pomodoro, "pomodoro", 0, "pomodoro minutes")
	set.Flags().IntVar(&short, "short-break", 0, "short break minutes")
	set.Flags().IntVar(&long, "long-break", 0, "long break minutes")
	s.AddCommand(set)
	return s
}

func credentialCmd() *cobra.Command {
	c := &cobra.Command{Use: "credential", Short: "Store the language-model API key in the OS keyring"}
	c.AddCommand(&cobra.Command{
		Use:   "set <api-key>",
		Short: "Save the API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credential.New(credential.Config{}).Set(credential.APIKeyName, args[0]); err != nil {
				return err
			}
			fmt.Println("api key saved")
			return nil
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the saved API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := credential.New(credential.Config{}).Delete(credential.APIKeyName)
			if err != nil && !credential.IsNotFound(err) {
				return err
			}
			fmt.Println("api key removed")
			return nil
		},
	})
	return c
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Workspace configuration"}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default focusflow.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfg.AddCommand(initCmd)
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSON(c)
		},
	})
	return cfg
}
