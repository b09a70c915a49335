package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"focusflow/internal/app"
	"focusflow/internal/config"
	"focusflow/internal/credential"
	"focusflow/internal/db"
	"focusflow/internal/engine"
)

var rootCmd = &cobra.Command{
	Use:   "ff",
	Short: "FocusFlow CLI",
	Long: `FocusFlow is a task manager built around short focus sessions.
- Tasks carry urgency and importance (1-10) and land in one of four quadrants.
- Breakdown asks the language model for 3-7 small steps, styled by your latest mood.
- Timers run pomodoro, break, urgent or custom countdowns and credit focus time.
- Today, stats and profile views summarise progress, streaks and xp.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := db.EnsureWorkspace(viper.GetString("workspace"))
		return err
	},
}

func main() {
	// A missing .env file is fine; anything else is reported.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: .env:", err)
	}
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("FOCUSFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().StringP("user", "u", "local-user", "user id for local commands")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(proxyCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(moodCmd())
	rootCmd.AddCommand(timerCmd())
	rootCmd.AddCommand(todayCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(credentialCmd())
	rootCmd.AddCommand(configCmd())
}

// --- helpers ---

func loadConfig() (*config.Config, error) {
	return config.LoadOptional(viper.GetString("workspace"))
}

func apiKey() string {
	return credential.ResolveAPIKey(credential.New(credential.Config{}))
}

func userID() string {
	if u := strings.TrimSpace(viper.GetString("user")); u != "" {
		return u
	}
	return "local-user"
}

func openEngine(ctx context.Context) (engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return engine.Engine{}, err
	}
	return app.Open(ctx, app.Options{
		Workspace: viper.GetString("workspace"),
		Config:    cfg,
		MongoURI:  viper.GetString("mongo-uri"),
		APIKey:    apiKey(),
	})
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	e, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Store.Close()
	return fn(ctx, e)
}

func jsonEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc
}

func printJSON(v any) error {
	return jsonEncoder(os.Stdout).Encode(v)
}
