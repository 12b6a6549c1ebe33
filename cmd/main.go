package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/hackjudge/internal/config"
	"github.com/okian/hackjudge/pkg/logger"
)

// ErrOfflineStore is returned by commands that need a persistent store.
var ErrOfflineStore = errors.New("command needs store_driver=sqlite")

// loadConfig reads config from the --config flag, falling back to
// HACKJUDGE_CONFIG, then layers the environment on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = os.Getenv(config.EnvFile)
	}
	return config.LoadFile(cmd.Context(), path)
}

// setupLogging initializes the global logger from cfg.
func setupLogging(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(out)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

func configMain(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	shown := *cfg
	if shown.RedisPassword != "" {
		shown.RedisPassword = "***"
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(shown)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hackjudge",
		Short:         "Hackathon round progression and judging engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "YAML config file (default $"+config.EnvFile+")")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Starts the HTTP API server",
		Args:  cobra.NoArgs,
		RunE:  serverMain,
	})
	root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Prints the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  configMain,
	})
	root.AddCommand(newRebuildCmd(), newEligibilityCmd(), newSimulateCmd())
	return root
}

// main is the entry point. Without a subcommand it serves the API.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if len(os.Args) == 1 {
		root.SetArgs([]string{"serve"})
	}
	if err := root.ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("hackjudge: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
