package cmd

import (
	"fmt"
	"log/slog"
	"os"

	cfgpkg "github.com/KaramelBytes/topicloom/internal/config"
	"github.com/KaramelBytes/topicloom/internal/logging"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	logLevel    string
	profileMode string

	// Loaded configuration
	cfg *cfgpkg.Global

	profiler interface{ Stop() }
)

var rootCmd = &cobra.Command{
	Use:   "topicloom",
	Short: "topicloom: topic models and word clouds for sentiment-labeled posts",
	Long: `topicloom loads a sentiment category file (index, text, score, date, link),
cleans the posts down to English lemmas, fits an LDA topic model and renders
the top words of each topic as word clouds on an HTML page.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch profileMode {
		case "":
		case "cpu":
			profiler = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet)
		case "mem":
			profiler = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet)
		default:
			return fmt.Errorf("unsupported --profile: %s (use cpu|mem)", profileMode)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if profiler != nil {
			profiler.Stop()
			profiler = nil
		}
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.topicloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output (same as --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&profileMode, "profile", "", "write a cpu or mem profile to the working directory")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal here; commands that need config call ensureConfig and report it.
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
}

// ensureConfig returns the loaded configuration, loading it on first use.
func ensureConfig() (*cfgpkg.Global, error) {
	if cfg == nil {
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	return cfg, nil
}

// newLogger builds the stderr logger from --debug, --log-level and config.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := "info"
	if cfg != nil && cfg.LogLevel != "" {
		level = cfg.LogLevel
	}
	if logLevel != "" {
		level = logLevel
	}
	if debug {
		level = "debug"
	}
	return logging.New(level, cmd.ErrOrStderr())
}
