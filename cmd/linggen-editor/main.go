package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linggen/linggen-editor/internal/api"
	"github.com/linggen/linggen-editor/internal/backend"
	"github.com/linggen/linggen-editor/internal/cache"
	"github.com/linggen/linggen-editor/internal/config"
	"github.com/linggen/linggen-editor/internal/host"
	"github.com/linggen/linggen-editor/internal/metrics"
	"github.com/linggen/linggen-editor/internal/state"
)

// initLogger configures the global slog default with JSON output on
// stderr; stdout carries command results.
func initLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}
	h := slog.NewJSONHandler(os.Stderr, opts)
	slog.SetDefault(slog.New(h))
}

// envOrDefault resolves a configuration value with the priority:
//
//	flag (if explicitly set, i.e. differs from defaultVal) > env var > default.
func envOrDefault(envKey, flagVal, defaultVal string) string {
	if flagVal != defaultVal {
		return flagVal
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultVal
}

// ---------------------------------------------------------------------------
// Application wiring
// ---------------------------------------------------------------------------

// app holds what every subcommand shares. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	configFlag    string
	workspaceFlag string

	loader    *config.Loader
	cfg       config.Config
	workspace string

	store    *state.Store
	sse      *api.SSEBroadcaster
	metrics  *metrics.Registry
	client   *backend.Client
	notifier *host.Notifier
	cmds     *host.Commands
}

func (a *app) setup(cmd *cobra.Command) error {
	path := envOrDefault(config.EnvPrefix+"_CONFIG", a.configFlag, "")
	a.loader = config.New(path)
	if err := a.loader.Viper().BindPFlag("backend.httpUrl", cmd.Flags().Lookup("backend-url")); err != nil {
		return err
	}
	if err := a.loader.Viper().BindPFlag("logLevel", cmd.Flags().Lookup("log-level")); err != nil {
		return err
	}

	cfg, err := a.loader.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	initLogger(cfg.LogLevel)

	ws := envOrDefault(config.EnvPrefix+"_WORKSPACE", a.workspaceFlag, "")
	if ws == "" {
		if ws, err = os.Getwd(); err != nil {
			return fmt.Errorf("resolve workspace: %w", err)
		}
	}
	if a.workspace, err = filepath.Abs(ws); err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}

	a.sse = api.NewSSEBroadcaster()
	a.metrics = metrics.NewRegistry()
	a.client = backend.New(cfg.Backend.HTTPURL)

	var notices host.NoticeStore
	if store, err := state.Open(cfg.StatePath); err != nil {
		slog.Warn("host state unavailable; notices and flags are not persisted", "path", cfg.StatePath, "error", err)
	} else {
		a.store = store
		notices = store
	}
	a.notifier = host.NewNotifier(a.sse, notices)
	a.cmds = host.New(cfg, host.Deps{
		Client:   a.client,
		Cache:    cache.New(a.client, a.metrics),
		Notifier: a.notifier,
		Jobs:     api.NewJobBroadcaster(a.sse),
	})

	slog.Debug("linggen-editor configured",
		"config", a.loader.Path(),
		"backend", cfg.Backend.HTTPURL,
		"workspace", a.workspace,
		"state", cfg.StatePath,
	)
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Error("state close error", "error", err)
		}
	}
}

// target resolves an optional path argument against the workspace.
func (a *app) target(args []string) host.Target {
	p := a.workspace
	if len(args) > 0 {
		p = args[0]
		if !filepath.IsAbs(p) {
			p = filepath.Join(a.workspace, p)
		}
	}
	return host.Target{Path: filepath.Clean(p), WorkspaceRoot: a.workspace}
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "linggen-editor",
		Short: "Editor integration for the Linggen code-memory backend",
		Long: `linggen-editor connects an editor workspace to a running Linggen server:
it opens interactive graph views of the indexed project, triggers indexing,
explains code across projects, pins notes to memory and keeps the MCP
server registered while Linggen is up.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFlag, "config", "", "Config file (default "+config.DefaultPath()+")")
	flags.StringVar(&a.workspaceFlag, "workspace", "", "Workspace root (default current directory)")
	flags.String("backend-url", backend.DefaultBaseURL, "Linggen server URL")
	flags.String("log-level", "info", "Log level (debug|info|warn|error)")

	root.AddCommand(
		newGraphCmd(a),
		newIndexCmd(a),
		newHealthCmd(a),
		newMonitorCmd(a),
		newExplainCmd(a),
		newPinCmd(a),
		newMemoryCmd(a),
		newMCPCmd(a),
		newConfigCmd(a),
		newOpenCmd(a),
		newInstallCmd(a),
		newPromptsCmd(a),
		newNoticesCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
