// Package cmd contains the cobra command wiring for livery.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"livery/internal/clock"
	"livery/internal/config"
	"livery/internal/dispatch"
	"livery/internal/geo"
	"livery/internal/log"
	"livery/internal/paths"
	"livery/internal/poll"
	"livery/internal/retry"
	"livery/internal/session"
	"livery/internal/store"
	"livery/internal/tracing"
	"livery/internal/ui"
	"livery/internal/watcher"
)

func init() {
	// Force lipgloss/termenv to query the terminal background color BEFORE
	// the Bubble Tea program starts. Otherwise the OSC 11 response races
	// with the input loop and shows up as garbage in text inputs.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "livery <job-id>",
	Short:   "A terminal client for limousine dispatch jobs",
	Long:    `A terminal client for drivers working limousine dispatch jobs: authenticates against the dispatch backend, tracks the job through its lifecycle screens, and keeps the session alive in the background.`,
	Version: version,
	Args:    cobra.ExactArgs(1),
	RunE:    runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/livery/config.yaml)")
	rootCmd.Flags().String("endpoint", "",
		"dispatch backend URL (overrides config)")
	rootCmd.Flags().String("state-dir", "",
		"directory for the job state database")
	rootCmd.Flags().Bool("no-auto-refresh", false,
		"disable store reload when the state database changes externally")
	rootCmd.Flags().Bool("debug", false,
		"enable the category log file")

	_ = viper.BindPFlag("endpoint", rootCmd.Flags().Lookup("endpoint"))
	_ = viper.BindPFlag("state_dir", rootCmd.Flags().Lookup("state-dir"))
}

func initConfig() {
	defaults := config.Default()
	viper.SetDefault("user_agent", defaults.UserAgent)
	viper.SetDefault("auto_refresh", defaults.AutoRefresh)
	viper.SetDefault("poll.freshness", defaults.Poll.Freshness)
	viper.SetDefault("poll.liveness", defaults.Poll.Liveness)
	viper.SetDefault("retry.max_attempts", defaults.Retry.MaxAttempts)
	viper.SetDefault("retry.delay", defaults.Retry.Delay)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	viper.SetEnvPrefix("livery")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .livery/config.yaml (current directory)
		// 2. ~/.config/livery/config.yaml (user config)
		if _, err := os.Stat(".livery/config.yaml"); err == nil {
			viper.SetConfigFile(".livery/config.yaml")
		} else {
			viper.AddConfigPath(paths.ConfigDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file anywhere - write a starter at .livery/config.yaml.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".livery/config.yaml"
			if writeErr := config.WriteDefault(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If the write fails, continue with defaults.
		}
	}

	_ = viper.Unmarshal(&cfg)
}

func runApp(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	stateDir := paths.ResolveStateDir(cfg.StateDir)
	if err := os.MkdirAll(stateDir, 0750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	dbPath := filepath.Join(stateDir, paths.DBFileName)

	debugFlag, _ := cmd.Flags().GetBool("debug")
	debug := debugRequested(debugFlag)
	if debug || cfg.Log.Enabled {
		logPath := cfg.Log.Path
		if logPath == "" {
			logPath = filepath.Join(stateDir, "livery.log")
		}
		var closeLog func()
		var err error
		if debug {
			// Debug runs route Bubble Tea's stdlib log output into the
			// same file as ours.
			closeLog, err = log.InitWithTeaLog(logPath, "livery")
		} else {
			closeLog, err = log.Init(logPath)
		}
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer closeLog()
		log.SetEnabled(true)
		level := parseLevel(cfg.Log.Level)
		if debug {
			level = log.LevelDebug
		}
		log.SetMinLevel(level)
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Exporter == "file" && cfg.Tracing.FilePath == "" {
		cfg.Tracing.FilePath = paths.TraceFile()
	}
	tracer, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		ctx, cancel := shutdownContext()
		defer cancel()
		_ = tracer.Shutdown(ctx)
	}()

	db, err := store.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening state database: %w", err)
	}

	clk := clock.RealClock{}
	st, err := store.New(db, clk)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("restoring job state: %w", err)
	}

	activity := dispatch.NewActivityMonitor(clk)

	client := dispatch.NewClient(dispatch.ClientOptions{
		Endpoint:  cfg.Endpoint,
		UserAgent: cfg.UserAgent,
		Location: geo.Static{
			Reading: geo.Reading{
				Latitude:  cfg.Location.Latitude,
				Longitude: cfg.Location.Longitude,
				Speed:     cfg.Location.Speed,
				Heading:   cfg.Location.Heading,
			},
		},
		Activity: activity,
		Tracer:   tracer.Tracer(),
	})

	scheduler := poll.NewScheduler(poll.Config{
		Clock:     clk,
		Freshness: cfg.Poll.Freshness,
		Liveness:  cfg.Poll.Liveness,
		Activity:  activity,
		Store:     st,
	})

	sess := session.New(session.Config{
		JobID:     jobID,
		Client:    client,
		Store:     st,
		Scheduler: scheduler,
		Retry:     retry.New(cfg.Retry.MaxAttempts, cfg.Retry.Delay, clk),
	})

	// Handle --no-auto-refresh flag (negated logic)
	if noAutoRefresh, _ := cmd.Flags().GetBool("no-auto-refresh"); noAutoRefresh {
		cfg.AutoRefresh = false
	}

	var stateWatcher *watcher.Watcher
	if cfg.AutoRefresh {
		w, werr := watcher.New(watcher.DefaultConfig(dbPath))
		if werr == nil {
			if onChange, serr := w.Start(); serr == nil {
				stateWatcher = w
				go reloadOnChange(st, onChange)
			} else {
				_ = w.Stop()
			}
		}
		// The app works fine without auto-refresh; watcher errors are not fatal.
	}

	model := ui.New(sess)
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	_, err = p.Run()

	model.Close()
	scheduler.Close()
	activity.Close()
	if stateWatcher != nil {
		_ = stateWatcher.Stop()
	}
	if closeErr := st.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// reloadOnChange reloads the store each time the watcher reports an
// external write. The reload publishes a store event that the UI observes.
func reloadOnChange(st *store.Store, onChange <-chan struct{}) {
	for range onChange {
		if err := st.Reload(); err != nil {
			log.ErrorErr(log.CatWatcher, "reload after external write", err)
		}
	}
}

// shutdownContext bounds cleanup work done after the program exits.
func shutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// debugRequested reports whether debug logging was asked for, via the
// --debug flag or the LIVERY_DEBUG env variable.
func debugRequested(flag bool) bool {
	return flag || os.Getenv("LIVERY_DEBUG") != ""
}

func parseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
