// Deckd is a headless control-surface daemon for 15-key Stream Deck panels.
//
// It renders button faces, executes configured actions on key press, and
// reflects live Home Assistant entity state on button color. It is built to
// run unattended on a small embedded host (typically a Raspberry Pi under
// systemd) with no display attached.
//
// Usage:
//
//	deckd run --config /etc/deckd/config.toml
//	deckd check --config /etc/deckd/config.toml
//
// See 'deckd --help' for available options.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/deckd/internal/config"
	"github.com/muurk/deckd/internal/daemon"
	"github.com/muurk/deckd/internal/deck"
	"github.com/muurk/deckd/internal/logging"
	"github.com/muurk/deckd/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "deckd",
	Short: "Headless Stream Deck control-surface daemon",
	Long: `deckd turns a 15-key Stream Deck into a standalone control surface.

It renders button faces on the panel, executes the configured action when a
key is pressed (HTTP request, shell command, or page navigation), and keeps
button colors in sync with Home Assistant entity state.

The config file is watched and hot-reloaded; the panel may be unplugged and
replugged at any time.`,
	Version: version.Version,
	// Running the bare command starts the daemon, matching how systemd
	// units invoke it.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/deckd/config.toml", "path to the config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log verbosity: debug, info, warn, error (default info, or $DECKD_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log output format: console or json")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the daemon",
	Long: `Start the deckd daemon: connect to the panel, render the home page and
process key presses until interrupted.

The daemon keeps running while the panel is unplugged and reconnects
automatically. SIGINT or SIGTERM triggers a graceful shutdown that lets
in-flight actions finish within a bounded grace period.`,
	Example: `  # Run with the default config path
  deckd run

  # Run with JSON logs under journald
  deckd run --config /etc/deckd/config.toml --log-format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config file and exit",
	Long: `Parse and validate the config file without touching the panel.

Exits non-zero when the file is malformed or violates a constraint (key out
of range, unknown action kind, navigation to an undefined page).`,
	Example: `  deckd check --config /etc/deckd/config.toml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		buttons := 0
		for _, page := range cfg.Pages {
			buttons += len(page.Buttons)
		}
		fmt.Printf("config OK: %d pages, %d buttons\n", len(cfg.Pages), buttons)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("deckd %s\n", version.Full())
	},
}

func runDaemon() error {
	if err := logging.Initialize(logLevel, logFormat); err != nil {
		return err
	}
	defer logging.Sync()

	logging.Info("deckd " + version.Full())

	cfg, err := config.Load(configPath)
	if err != nil {
		// No valid initial config is the one fatal startup condition.
		return fmt.Errorf("startup failed: %w", err)
	}

	d, err := daemon.New(cfg, configPath, deck.HIDTransport{})
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}
