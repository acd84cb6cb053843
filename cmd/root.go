package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/alden/internal/api"
	"github.com/joescharf/alden/internal/output"
	"github.com/joescharf/alden/internal/state"
	"github.com/joescharf/alden/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store
	app       *state.Store
	logger    zerolog.Logger

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "alden",
	Short: "Alden - study sessions, mindfulness, and an AI study assistant",
	Long: `alden is a client for the Alden study companion backend.
It runs focused study sessions, guided mindfulness breaks, AI chat about
your material, document uploads, and daily progress tracking.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/alden/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "Backend API base URL")
	_ = viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api-url"))
}

func defaultStateDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "alden")
}

func initConfig() {
	// A .env in the working directory is optional.
	_ = godotenv.Load()

	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if _, err := os.UserHomeDir(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(defaultStateDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ALDEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults(defaultStateDir())

	_ = viper.ReadInConfig()
}

// setDefaults registers every config key with its default value.
func setDefaults(stateDir string) {
	viper.SetDefault("api.base_url", api.DefaultBaseURL)
	viper.SetDefault("api.timeout", api.DefaultTimeout)
	viper.SetDefault("api.max_retries", api.DefaultMaxRetries)
	viper.SetDefault("api.retry_backoff", api.DefaultRetryBackoff)
	viper.SetDefault("api.debug", false)
	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db_path", filepath.Join(stateDir, "alden.db"))
	viper.SetDefault("chat.reload_delay", state.DefaultReloadDelay)
	viper.SetDefault("devserver.port", 8000)
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	level := zerolog.WarnLevel
	if verbose || viper.GetBool("api.debug") {
		level = zerolog.DebugLevel
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).
		With().Timestamp().Logger()

	// Store and app are opened lazily so config/version run without a db.
}

// rootRun handles `alden` with no subcommand: load everything and show status.
func rootRun(cmd *cobra.Command) error {
	a, err := getApp()
	if err != nil {
		return cmd.Help()
	}
	return statusRun(cmd.Context(), a)
}

// getStore returns the shared persistence store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(context.Background()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// apiConfig builds the backend client configuration from viper.
func apiConfig() api.Config {
	return api.Config{
		BaseURL:      viper.GetString("api.base_url"),
		Timeout:      viper.GetDuration("api.timeout"),
		MaxRetries:   viper.GetInt("api.max_retries"),
		RetryBackoff: viper.GetDuration("api.retry_backoff"),
		Debug:        viper.GetBool("api.debug"),
	}
}

// getApp returns the shared app store wired to the backend client and the
// local persistence store. Persisted state is hydrated on first use.
func getApp() (*state.Store, error) {
	if app != nil {
		return app, nil
	}

	s, err := getStore()
	if err != nil {
		return nil, err
	}

	client := api.New(apiConfig(), api.WithLogger(logger))
	app = state.New(client,
		state.WithPersister(s),
		state.WithLogger(logger),
		state.WithReloadDelay(viper.GetDuration("chat.reload_delay")),
		state.WithReconcileTimeout(2*client.Timeout()),
	)
	app.Hydrate(context.Background())
	return app, nil
}

// recordedError turns the error a load action recorded in state into a
// command error.
func recordedError(a *state.Store) error {
	if msg := a.Snapshot().Error; msg != "" {
		return fmt.Errorf("%s", msg)
	}
	return nil
}
