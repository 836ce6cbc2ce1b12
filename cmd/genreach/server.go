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

	"github.com/kalambet/genreach/internal/api"
	"github.com/kalambet/genreach/internal/config"
	"github.com/kalambet/genreach/internal/dom/browser"
	"github.com/kalambet/genreach/internal/ingest"
	"github.com/kalambet/genreach/internal/runtime"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the genreach server (foreground)",
	Long: `Start the genreach server: the /api/generate backend, the runtime
message endpoints, the batch worker and the MCP server on stdio.

With --browser a Chromium page is attached so generateMessage and
genreach_toggle_panel act on a live LinkedIn tab.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("browser")
		return runServer(url)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running genreach server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show genreach system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().String("browser", "", "open this URL in a controlled Chromium page")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "genreach.pid")
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

func runServer(browseURL string) error {
	fmt.Fprintf(os.Stderr, "genreach version %s\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("genreach is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("genreach is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := openDeps(ctx, cfg, true, os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()
	if d.model == nil {
		printWarning("no model source: /api/generate will answer 502 and messages fall back to the local template")
	}

	var (
		page       runtime.Page
		panelState api.PanelState
	)
	if browseURL != "" {
		sess, err := browser.Launch(browser.Options{Headless: cfg.Browser.Headless, UserDataDir: cfg.Browser.UserDataDir})
		if err != nil {
			return err
		}
		defer sess.Close()

		ctrl := d.newController(sess.Document())
		unwatch := ctrl.Watch(sess.Document())
		defer unwatch()
		if err := sess.Goto(browseURL); err != nil {
			return err
		}
		page, panelState = ctrl, ctrl
		slog.Info("browser page attached", "url", browseURL)
	}

	handler := api.NewAppHandler(api.AppDeps{
		Store:    d.store,
		Settings: d.settings,
		Runtime:  runtime.NewDispatcher(d.chain, page),
		Writer:   d.writer(),
		Models:   d.models,
		Token:    cfg.Server.Token,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	worker := ingest.NewWorker(d.store, d.chain, 500*time.Millisecond)
	worker.SetMaxPosts(cfg.Extract.MaxPosts)
	go worker.Run(ctx)

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:     d.store,
		Generator: d.chain,
		Panel:     panelState,
		MaxPosts:  cfg.Extract.MaxPosts,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "genreach listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := loadConfig()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("genreach is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop genreach (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to genreach (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	running := probeHealth(ctx, client, serverURL+"/health")
	if running {
		printStatus("Server", "running on port %d", cfg.Server.Port)
	} else {
		printStatus("Server", "stopped")
	}

	if probeHealth(ctx, client, strings.TrimRight(cfg.Backend.URL, "/")+"/health") {
		printStatus("Backend", "reachable at %s", cfg.Backend.URL)
	} else {
		printStatus("Backend", "unreachable at %s", cfg.Backend.URL)
	}

	printStatus("Model", "%s", modelLabel(cfg))
	if !cfg.HasModelKey() {
		if probeHealth(ctx, client, strings.TrimRight(cfg.Ollama.BaseURL, "/")+"/api/version") {
			printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
		} else {
			printStatus("Ollama", "not running")
		}
	}

	if running {
		c := &apiClient{baseURL: serverURL, token: cfg.Server.Token, httpClient: client}
		if n, err := countItems(ctx, c, "/generations?limit=100"); err == nil {
			printStatus("Generations", "%s", countLabel(n, 100))
		}
		if n, err := countItems(ctx, c, "/batch?status=pending&limit=100"); err == nil {
			printStatus("Pending jobs", "%s", countLabel(n, 100))
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func modelLabel(cfg config.Config) string {
	if cfg.HasModelKey() {
		return "OpenRouter " + cfg.Model.ID
	}
	return "Ollama " + cfg.Ollama.Model + " (no OpenRouter key)"
}

func probeHealth(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func countItems(ctx context.Context, c *apiClient, path string) (int, error) {
	resp, err := c.get(ctx, path)
	if err != nil {
		return 0, err
	}
	var items []any
	if err := decodeJSON(resp, &items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
