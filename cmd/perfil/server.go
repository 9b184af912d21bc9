package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
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

	"github.com/perfil/perfil/internal/api"
	"github.com/perfil/perfil/internal/backend"
	"github.com/perfil/perfil/internal/config"
	"github.com/perfil/perfil/internal/medium"
	"github.com/perfil/perfil/internal/pipeline"
	"github.com/perfil/perfil/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the perfil server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running perfil server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show perfil system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "perfil.pid")
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

// buildPipeline assembles the free and keyed backends from config.
func buildPipeline(cfg config.Config) *pipeline.Pipeline {
	opts := backend.TransportOptions{
		Timeout:            cfg.RequestTimeout(),
		InsecureSkipVerify: cfg.Backends.InsecureSkipVerify,
	}

	free := backend.NewPollinations(cfg.Backends.Pollinations.BaseURL, cfg.Backends.Pollinations.Model, opts)

	keyed := []pipeline.KeyedBackend{
		backend.NewKeyed(backend.KeyedConfig{
			Name:         "openai",
			BaseURL:      cfg.Backends.OpenAI.BaseURL,
			APIKey:       cfg.Backends.OpenAI.APIKey,
			Model:        cfg.Backends.OpenAI.Model,
			Organization: cfg.Backends.OpenAI.Organization,
			Project:      cfg.Backends.OpenAI.Project,
		}, opts),
		backend.NewKeyed(backend.KeyedConfig{
			Name:    "gemini",
			BaseURL: cfg.Backends.Gemini.BaseURL,
			APIKey:  cfg.Backends.Gemini.APIKey,
			Model:   cfg.Backends.Gemini.Model,
		}, opts),
	}

	return pipeline.New(free, keyed, cfg.Render.Prefer)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "perfil version %s\n", version)

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

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("perfil is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("perfil is already running on port %d", cfg.Server.Port)
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

	pl := buildPipeline(cfg)

	var mediumSource api.MediumSource
	if cfg.Medium.RapidAPIKey != "" {
		mediumSource = medium.New(cfg.Medium.RapidAPIKey, cfg.Medium.RapidAPIHost)
		slog.Info("Medium enrichment enabled", "host", cfg.Medium.RapidAPIHost)
	}

	handler := api.NewHandler(api.Deps{
		Store:        store,
		Pipeline:     pl,
		Medium:       mediumSource,
		ServiceToken: cfg.Server.Token,
		BackendToken: cfg.Backends.Pollinations.Token,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:        store,
		Pipeline:     pl,
		BackendToken: cfg.Backends.Pollinations.Token,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "perfil listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
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
		printError("perfil is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop perfil (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to perfil (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Free backend", "%s (%s)", cfg.Backends.Pollinations.BaseURL, cfg.Backends.Pollinations.Model)
	printStatus("OpenAI", "%s", keyedLabel(cfg.Backends.OpenAI.APIKey, cfg.Backends.OpenAI.Model))
	printStatus("Gemini", "%s", keyedLabel(cfg.Backends.Gemini.APIKey, cfg.Backends.Gemini.Model))
	printStatus("Render preference", "%s", cfg.Render.Prefer)
	if cfg.Medium.RapidAPIKey != "" {
		printStatus("Medium", "enabled (%s)", cfg.Medium.RapidAPIHost)
	} else {
		printStatus("Medium", "disabled")
	}
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func keyedLabel(apiKey, model string) string {
	if apiKey == "" {
		return "not configured"
	}
	return fmt.Sprintf("configured (%s)", model)
}
