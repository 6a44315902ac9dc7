package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kosarica/feed-service/config"
	"github.com/kosarica/feed-service/internal/app"
)

var (
	cfgFile string
	cfg     *config.Config
	cfgErr  error
	logger  *zerolog.Logger
	logOut  io.Writer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "feed-service",
	Short: "Feed Service CLI - supplier spreadsheet to XML feed tool",
	Long: `A CLI tool for refreshing supplier XML product feeds from the supplier
registry spreadsheet, inspecting suppliers and spreadsheet fingerprints,
converting local workbooks and reading run history.`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
}

func initConfig() {
	cfg, cfgErr = config.Load(cfgFile)
}

// persistentPreRun runs before each command and initializes the logger
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	logging := config.LoggingConfig{Level: "info"}
	if cfg != nil {
		logging = cfg.Logging
	} else if cfgErr != nil && needsConfig(cmd) {
		return fmt.Errorf("config required for %s command: %w", cmd.Name(), cfgErr)
	}

	// Logs go to stderr so command output on stdout stays machine readable
	if logging.Format == "json" {
		logOut = os.Stderr
	} else {
		logOut = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: logging.NoColor}
	}
	logger = app.NewLogger(logging, logOut)
	return nil
}

// needsConfig reports whether a command reads spreadsheets or the database
func needsConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "convert", "schema":
		return false
	}
	return true
}

// buildApp wires the full service for commands that talk to spreadsheets
func buildApp(ctx context.Context) (*app.App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded: %w", cfgErr)
	}
	return app.Build(ctx, cfg, logger, logOut)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
