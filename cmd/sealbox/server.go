package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/ameline/sealbox/internal/api"
	"github.com/ameline/sealbox/internal/command"
	"github.com/ameline/sealbox/internal/config"
	"github.com/ameline/sealbox/internal/delivery"
	"github.com/ameline/sealbox/internal/storage"
	"github.com/ameline/sealbox/internal/vault"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sealbox server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running sealbox server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sealbox system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "sealbox.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "sealbox version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Ensure API token exists in platform secret store.
	apiToken, err := config.GetAPIToken()
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("sealbox is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("sealbox is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Build the vault.
	delay, err := time.ParseDuration(cfg.Vault.DeliveryDelay)
	if err != nil || delay <= 0 {
		slog.Warn("invalid delivery delay, using default 2160h", "value", cfg.Vault.DeliveryDelay, "error", err)
		delay = vault.DefaultDeliveryDelay
	}
	v := vault.New(store, delay)

	// Command dispatcher in the configured locale.
	dispatcher, err := command.NewDispatcher(cfg.Locale.Default)
	if err != nil {
		slog.Warn("invalid default locale, using en-US", "value", cfg.Locale.Default, "error", err)
		dispatcher, _ = command.NewDispatcher("en-US")
	}

	// Delivery checker.
	interval, err := time.ParseDuration(cfg.Vault.CheckInterval)
	if err != nil || interval <= 0 {
		slog.Warn("invalid check interval, using default 1h", "value", cfg.Vault.CheckInterval, "error", err)
		interval = delivery.DefaultInterval
	}
	checker := delivery.NewChecker(v, interval, slog.Default())
	snapshots := checker.Subscribe()

	// Build HTTP handler and server.
	appHandler := api.NewAppHandler(api.AppDeps{
		Vault:      v,
		Checker:    checker,
		Dispatcher: dispatcher,
		Token:      apiToken,
		Version:    version,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: appHandler,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	ln = netutil.LimitListener(ln, cfg.Server.MaxConns)

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Vault:      v,
		Dispatcher: dispatcher,
		Version:    version,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "sealbox listening on %s\n", addr)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := checker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("delivery checker: %w", err)
		}
		return nil
	})

	// Announce newly ready messages as the checker observes them.
	g.Go(func() error {
		var lastReady int
		for {
			select {
			case <-gctx.Done():
				return nil
			case snap := <-snapshots:
				if snap.Counts.Ready > lastReady {
					slog.Info("a message from your past self is ready",
						"ready", snap.Counts.Ready, "pending", snap.Counts.Pending)
				}
				lastReady = snap.Counts.Ready
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("sealbox is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop sealbox (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to sealbox (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Locale", "%s", cfg.Locale.Default)
	printStatus("Delivery delay", "%s", cfg.Vault.DeliveryDelay)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)

	// Show vault counts if the server is up.
	if running {
		apiClient, err := newAPIClient()
		if err != nil {
			return nil
		}
		countsResp, err := apiClient.get("/messages/counts")
		if err != nil {
			return nil
		}
		var counts struct {
			Total   int `json:"total"`
			Pending int `json:"pending"`
			Ready   int `json:"ready"`
		}
		if decodeJSON(countsResp, &counts) == nil {
			printStatus("Messages", "%d total, %d sealed, %d ready", counts.Total, counts.Pending, counts.Ready)
		}
	}
	return nil
}
