package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flashtoggle/flashtoggle/internal/config"
	"github.com/flashtoggle/flashtoggle/internal/daemon"
	"github.com/flashtoggle/flashtoggle/internal/desktop"
	"github.com/flashtoggle/flashtoggle/internal/hotkeys"
	"github.com/flashtoggle/flashtoggle/internal/ipc"
	"github.com/flashtoggle/flashtoggle/internal/logging"
	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/runtimepath"
	"github.com/flashtoggle/flashtoggle/internal/tagstore"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "daemon",
		Short: "Run the window index, hotkeys and IPC server (foreground)",
		Args:  cobra.NoArgs,
		RunE:  runDaemon,
	})
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := res.Config

	logger, logCloser, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	logger.Info("configuration loaded", "path", path, "scan_interval", cfg.ScanPeriod(), "max_history", cfg.MaxHistory)

	backend, err := platform.NewBackend()
	if err != nil {
		return fmt.Errorf("failed to initialize window backend: %w", err)
	}

	multiDesktop := true
	bridge, err := desktop.NewCOMBridge(backend.ForegroundWindow)
	if err != nil {
		logger.Warn("virtual desktop service unavailable, using single desktop", "error", err)
		bridge = desktop.Null{}
		multiDesktop = false
	}
	defer bridge.Close()

	var hk *hotkeys.Handler
	registrar, err := hotkeys.NewRegistrar(logging.Module(logger, "hotkeys"))
	if err != nil {
		logger.Warn("global hotkeys unavailable", "error", err)
	} else {
		hk = hotkeys.NewHandler(registrar, logging.Module(logger, "hotkeys"))
		defer hk.Close()
	}

	live := config.NewLive(path, cfg, logging.Module(logger, "config"))
	deps := daemon.Deps{
		Backend:  backend,
		Bridge:   bridge,
		Live:     live,
		Hotkeys:  hk,
		Launcher: daemon.NewProcessLauncher(logging.Module(logger, "launcher"), pickerArgs(path)...),
		Logger:   logger,
	}
	if store := openTagStore(cfg, logger); store != nil {
		defer store.Close()
		deps.Tags = store
	}
	svc := daemon.NewService(deps)

	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return err
	}
	server := ipc.NewServer(socketPath, svc, logging.Module(logger, "ipc"))
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	defer server.Stop()

	watcher, err := config.NewWatcher(live, logging.Module(logger, "config"))
	if err != nil {
		logger.Warn("config watcher unavailable", "error", err)
	} else if err := watcher.Start(); err != nil {
		logger.Warn("config watcher unavailable", "error", err)
		watcher.Stop()
	} else {
		defer watcher.Stop()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("flashtoggle daemon started", "socket", socketPath, "desktop_bridge", multiDesktop)
	err = svc.Run(ctx)
	logger.Info("flashtoggle daemon stopped")
	return err
}

// pickerArgs starts the search picker against the daemon's config file.
func pickerArgs(configFile string) []string {
	return []string{"search", "--config", configFile}
}

func openTagStore(cfg *config.Config, logger *slog.Logger) *tagstore.Store {
	dbPath, err := cfg.TagDBPath()
	if err != nil {
		logger.Warn("tag persistence disabled", "error", err)
		return nil
	}
	store, err := tagstore.Open(dbPath)
	if err != nil {
		logger.Warn("tag persistence disabled", "path", dbPath, "error", err)
		return nil
	}
	return store
}
