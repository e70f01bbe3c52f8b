package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hylla/ranka/internal/adapters/server"
	"github.com/hylla/ranka/internal/adapters/storage/postgres"
	"github.com/hylla/ranka/internal/adapters/storage/sqlite"
	"github.com/hylla/ranka/internal/app"
	"github.com/hylla/ranka/internal/config"
	"github.com/hylla/ranka/internal/platform"
	"github.com/hylla/ranka/internal/tui"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// rootFlags holds persistent flag values shared across subcommands.
type rootFlags struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	flags := &rootFlags{}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("RANKA_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultApp := "ranka"
	if envApp := strings.TrimSpace(os.Getenv("RANKA_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	rootCmd := &cobra.Command{
		Use:          "ranka",
		Short:        "Task board with gap-based ordering keys",
		Long:         "Ranka keeps a task board ordered with bounded integer keys: drops land between neighbors and crowded columns rebalance themselves.",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBoard(cmd.Context(), flags)
		},
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config TOML")
	rootCmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "path to sqlite database")
	rootCmd.PersistentFlags().StringVar(&flags.appName, "app", defaultApp, "application name for config/data path resolution")
	rootCmd.PersistentFlags().BoolVar(&flags.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	rootCmd.AddCommand(newBoardCmd(flags))
	rootCmd.AddCommand(newServeCmd(flags))
	rootCmd.AddCommand(newRebalanceCmd(flags))
	rootCmd.AddCommand(newPathsCmd(flags))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fang.Execute(ctx, rootCmd)
}

func newBoardCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the interactive board",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBoard(cmd.Context(), flags)
		},
	}
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST and MCP endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags, bind)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "listen address (overrides config)")
	return cmd
}

func newRebalanceCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rebalance <status>",
		Short: "Redistribute one column's ordering keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebalance(cmd.Context(), flags, args[0])
		},
	}
}

func newPathsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{
				AppName: flags.appName,
				DevMode: flags.devMode,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", flags.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", flags.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", paths.DBPath)
			return nil
		},
	}
}

// runtime bundles the resolved config and a ready service plus its closer.
type runtime struct {
	cfg    config.Config
	svc    *app.Service
	logger *charmLog.Logger
	close  func() error
}

// buildRuntime resolves paths and config, opens the configured repository,
// and wires the board service.
func buildRuntime(ctx context.Context, flags *rootFlags) (*runtime, error) {
	logger := charmLog.NewWithOptions(os.Stderr, charmLog.Options{
		ReportTimestamp: true,
		Prefix:          flags.appName,
	})

	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: flags.appName,
		DevMode: flags.devMode,
	})
	if err != nil {
		return nil, err
	}

	configPath := resolveOverride(flags.configPath, "RANKA_CONFIG", paths.ConfigPath)
	dbPath := resolveOverride(flags.dbPath, "RANKA_DB_PATH", paths.DBPath)
	dbOverridden := dbPath != paths.DBPath

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = dbPath
	}
	logger.Debug("configuration loaded", "config_path", configPath, "driver", cfg.Database.Driver)

	var (
		repo    app.Repository
		closeFn func() error
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pg, err := postgres.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres repository: %w", err)
		}
		repo, closeFn = pg, pg.Close
		logger.Debug("postgres repository ready")
	default:
		sq, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite repository: %w", err)
		}
		repo, closeFn = sq, sq.Close
		logger.Debug("sqlite repository ready", "db_path", cfg.Database.Path)
	}

	svc := app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		Statuses: statusTemplates(cfg.Board.Statuses),
	})
	return &runtime{cfg: cfg, svc: svc, logger: logger, close: closeFn}, nil
}

func runBoard(ctx context.Context, flags *rootFlags) error {
	rt, err := buildRuntime(ctx, flags)
	if err != nil {
		return err
	}
	defer func() { _ = rt.close() }()

	// Keep the alt-screen clean while the board is active.
	rt.logger.SetLevel(charmLog.ErrorLevel)
	p := tea.NewProgram(tui.NewModel(rt.svc))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run board: %w", err)
	}
	return nil
}

func runServe(ctx context.Context, flags *rootFlags, bindOverride string) error {
	rt, err := buildRuntime(ctx, flags)
	if err != nil {
		return err
	}
	defer func() { _ = rt.close() }()

	bind := rt.cfg.Server.Bind
	if strings.TrimSpace(bindOverride) != "" {
		bind = bindOverride
	}
	rt.logger.Info("serving", "bind", bind, "api", rt.cfg.Server.APIEndpoint, "mcp", rt.cfg.Server.MCPEndpoint)
	err = server.Run(ctx, server.Config{
		HTTPBind:      bind,
		APIEndpoint:   rt.cfg.Server.APIEndpoint,
		MCPEndpoint:   rt.cfg.Server.MCPEndpoint,
		ServerName:    flags.appName,
		ServerVersion: version,
	}, server.Dependencies{Board: rt.svc})
	if err != nil {
		rt.logger.Error("server stopped", "err", err)
		return err
	}
	rt.logger.Info("server shut down")
	return nil
}

func runRebalance(ctx context.Context, flags *rootFlags, status string) error {
	rt, err := buildRuntime(ctx, flags)
	if err != nil {
		return err
	}
	defer func() { _ = rt.close() }()

	if err := rt.svc.RebalanceColumn(ctx, status); err != nil {
		return fmt.Errorf("rebalance column %q: %w", status, err)
	}
	rt.logger.Info("column rebalanced", "status", status)
	return nil
}

// statusTemplates converts configured statuses into service templates.
func statusTemplates(statuses []config.StatusConfig) []app.StatusTemplate {
	out := make([]app.StatusTemplate, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, app.StatusTemplate{ID: st.ID, Name: st.Name})
	}
	return out
}

// resolveOverride picks the first non-empty of flag value, env var, fallback.
func resolveOverride(flagValue, envKey, fallback string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	return fallback
}

// parseBoolEnv reads a boolean env var, reporting whether it was set.
func parseBoolEnv(key string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false, false
	}
	switch strings.ToLower(raw) {
	case "1", "t", "true", "yes", "on":
		return true, true
	case "0", "f", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}
