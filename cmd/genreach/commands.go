package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/genreach/internal/api"
	"github.com/kalambet/genreach/internal/config"
	"github.com/kalambet/genreach/internal/dom/browser"
	"github.com/kalambet/genreach/internal/dom/htmldom"
	"github.com/kalambet/genreach/internal/generate"
	"github.com/kalambet/genreach/internal/ingest"
	"github.com/kalambet/genreach/internal/profile"
	"github.com/kalambet/genreach/internal/proxy"
	"github.com/kalambet/genreach/internal/runtime"
	"github.com/kalambet/genreach/internal/storage"
	"github.com/kalambet/genreach/internal/tui"
)

const scrapeConcurrency = 4

// --- scrape ---

var scrapeCmd = &cobra.Command{
	Use:   "scrape <snapshot.html|profile.pdf>...",
	Short: "Extract profile snapshots as JSON",
	Long: `Extract the profile of saved LinkedIn pages or PDF exports.

Examples:
  genreach scrape ada.html
  genreach scrape ada.html grace.pdf > profiles.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		snaps, err := loadSnapshots(cmd.Context(), args, cfg.Extract.MaxPosts)
		if err != nil {
			return err
		}
		if len(snaps) == 1 {
			return printJSON(os.Stdout, snaps[0])
		}
		return printJSON(os.Stdout, snaps)
	},
}

// loadSnapshots reads every path concurrently, keeping argument order.
func loadSnapshots(ctx context.Context, paths []string, maxPosts int) ([]profile.Snapshot, error) {
	snaps := make([]profile.Snapshot, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scrapeConcurrency)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := ingest.LoadSnapshot(p, maxPosts)
			if err != nil {
				return err
			}
			snaps[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snaps, nil
}

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a message for a saved profile",
	Long: `Write an outreach message for a saved profile page or PDF export.

With --inject the message is written into the compose box of the saved
page (which must have the conversation open) and the page is saved to --out.

Examples:
  genreach generate --snapshot ada.html --intent "hiring for a data role"
  genreach generate --snapshot ada.html --inject --out ada-sent.html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("snapshot")
		intent, _ := cmd.Flags().GetString("intent")
		inject, _ := cmd.Flags().GetBool("inject")
		out, _ := cmd.Flags().GetString("out")

		if path == "" {
			return fmt.Errorf("--snapshot is required")
		}
		if inject && out == "" {
			return fmt.Errorf("--inject requires --out")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		d, err := openDeps(cmd.Context(), cfg, false, os.Stderr)
		if err != nil {
			return err
		}
		defer d.Close()

		if inject {
			return injectIntoSnapshot(cmd.Context(), d, path, intent, out, os.Stdout)
		}
		return generateForFile(cmd.Context(), d.chain, path, intent, cfg.Extract.MaxPosts, os.Stdout)
	},
}

func init() {
	generateCmd.Flags().String("snapshot", "", "saved profile page (.html) or PDF export")
	generateCmd.Flags().String("intent", "", "what the message is for")
	generateCmd.Flags().Bool("inject", false, "insert the message into the saved page's compose box")
	generateCmd.Flags().String("out", "", "where to save the page after --inject")
}

type acquirer interface {
	Acquire(ctx context.Context, req generate.Request) generate.Result
}

func generateForFile(ctx context.Context, gen acquirer, path, intent string, maxPosts int, w io.Writer) error {
	snap, err := ingest.LoadSnapshot(path, maxPosts)
	if err != nil {
		return err
	}
	req := generate.Request{
		Intent:          intent,
		ProfileInfo:     snap.Info,
		ExtendedProfile: snap.Extended,
		URL:             snap.URL,
	}
	req.ExtendedProfile.Normalize()

	res := gen.Acquire(ctx, req)
	if res.Fallback() {
		if res.Error != "" {
			printWarning("used the local template: %s", res.Error)
		} else {
			printWarning("used the local template")
		}
	} else {
		printSuccess("Generated via %s", res.Source)
	}
	_, err = fmt.Fprintln(w, res.Content)
	return err
}

func injectIntoSnapshot(ctx context.Context, d *deps, path, intent, out string, w io.Writer) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".html" && ext != ".htm" {
		return fmt.Errorf("--inject needs an HTML snapshot, got %s", path)
	}
	doc, err := htmldom.Open(path)
	if err != nil {
		return err
	}

	ctrl := d.newController(doc)
	outcome, err := ctrl.GenerateWithCooldown(ctx, intent, 0)
	if err != nil {
		return err
	}
	if outcome.Message != "" {
		fmt.Fprintln(w, outcome.Message)
	}

	if !outcome.Inserted() {
		printWarning("%s", outcome.Status.Text)
		return nil
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	defer f.Close()
	if err := doc.Render(f); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	printSuccess("%s, saved to %s", outcome.Status.Text, out)
	return nil
}

// --- browse ---

var browseCmd = &cobra.Command{
	Use:   "browse <url>",
	Short: "Open LinkedIn in Chromium with the message panel in this terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		// The panel owns the terminal, so logs go to a file.
		logPath := filepath.Join(cfg.Storage.DataDir, "browse.log")
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer logFile.Close()
		slog.SetDefault(slog.New(slog.NewTextHandler(logFile, nil)))

		d, err := openDeps(cmd.Context(), cfg, false, io.Discard)
		if err != nil {
			return err
		}
		defer d.Close()

		sess, err := browser.Launch(browser.Options{Headless: cfg.Browser.Headless, UserDataDir: cfg.Browser.UserDataDir})
		if err != nil {
			return err
		}
		defer sess.Close()

		ctrl := d.newController(sess.Document())
		unwatch := ctrl.Watch(sess.Document())
		defer unwatch()
		if err := sess.Goto(args[0]); err != nil {
			return err
		}

		return tui.Run(cmd.Context(), ctrl)
	},
}

// --- send ---

var sendCmd = &cobra.Command{
	Use:   "send <action>",
	Short: "Send a runtime message to the running server",
	Long: `Send one action envelope to the running server and print the reply.

Actions: ping, genreach_toggle_panel, generate_ai_message, generateMessage.

Examples:
  genreach send ping
  genreach send generateMessage --intent networking
  genreach send generate_ai_message --payload request.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		intent, _ := cmd.Flags().GetString("intent")
		payloadPath, _ := cmd.Flags().GetString("payload")

		req := runtime.Request{Action: args[0], Intent: intent}
		if payloadPath != "" {
			data, err := os.ReadFile(payloadPath)
			if err != nil {
				return fmt.Errorf("reading payload: %w", err)
			}
			var payload generate.Request
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("parsing payload: %w", err)
			}
			req.Payload = &payload
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return sendAction(cmd.Context(), client, req, os.Stdout)
	},
}

func init() {
	sendCmd.Flags().String("intent", "", "intent for generateMessage")
	sendCmd.Flags().String("payload", "", "JSON file with the generate_ai_message payload")
}

func sendAction(ctx context.Context, client *apiClient, req runtime.Request, w io.Writer) error {
	resp, err := client.post(ctx, "/runtime/message", req)
	if err != nil {
		return err
	}
	var out runtime.Response
	if err := decodeJSON(resp, &out); err != nil {
		return err
	}
	if out.Error != "" {
		printWarning("%s", out.Error)
	}
	return printJSON(w, out)
}

// --- batch ---

var batchCmd = &cobra.Command{
	Use:   "batch <snapshot.html|profile.pdf>...",
	Short: "Queue message generation for many saved profiles",
	Long: `Queue one message per saved profile on the running server.

Examples:
  genreach batch profiles/*.html --intent "hiring for a data role"
  genreach batch status`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		intent, _ := cmd.Flags().GetString("intent")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ids, err := queueBatch(cmd.Context(), client, args, intent)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		printSuccess("Queued %d job(s)", len(ids))
		return nil
	},
}

var batchStatusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show batch jobs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			return showJob(cmd.Context(), client, args[0], os.Stdout)
		}
		return listJobs(cmd.Context(), client, status, limit, os.Stdout)
	},
}

func init() {
	batchCmd.Flags().String("intent", "", "what the messages are for")
	batchStatusCmd.Flags().String("status", "", "filter by status (pending, running, completed, failed)")
	batchStatusCmd.Flags().Int("limit", 20, "maximum number of jobs to list")
	batchCmd.AddCommand(batchStatusCmd)
}

func queueBatch(ctx context.Context, client *apiClient, paths []string, intent string) ([]string, error) {
	abs := make([]string, len(paths))
	for i, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		abs[i] = a
	}
	resp, err := client.post(ctx, "/batch", api.BatchRequest{Paths: abs, Intent: intent})
	if err != nil {
		return nil, err
	}
	var out struct {
		Jobs []string `json:"jobs"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

func showJob(ctx context.Context, client *apiClient, id string, w io.Writer) error {
	resp, err := client.get(ctx, "/batch/"+id)
	if err != nil {
		return err
	}
	var job storage.Job
	if err := decodeJSON(resp, &job); err != nil {
		return err
	}
	return printJSON(w, job)
}

func listJobs(ctx context.Context, client *apiClient, status string, limit int, w io.Writer) error {
	path := fmt.Sprintf("/batch?limit=%d", limit)
	if status != "" {
		path += "&status=" + status
	}
	resp, err := client.get(ctx, path)
	if err != nil {
		return err
	}
	var jobs []storage.Job
	if err := decodeJSON(resp, &jobs); err != nil {
		return err
	}
	if len(jobs) == 0 {
		printStep("No jobs")
		return nil
	}
	for _, j := range jobs {
		line := fmt.Sprintf("%s  %-9s  attempts %d/%d", j.ID, j.Status, j.Attempts, j.MaxAttempts)
		switch {
		case j.Result != "":
			line += "  " + j.Result
		case j.LastError != "":
			line += "  " + colorize(colorRed, j.LastError)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// --- generations ---

var generationsCmd = &cobra.Command{
	Use:   "generations",
	Short: "Browse the generation log",
}

var generationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent generated messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return listGenerations(cmd.Context(), client, limit, os.Stdout)
	},
}

var generationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one generated message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/generations/"+args[0])
		if err != nil {
			return err
		}
		var g storage.Generation
		if err := decodeJSON(resp, &g); err != nil {
			return err
		}
		return printJSON(os.Stdout, g)
	},
}

func init() {
	generationsListCmd.Flags().Int("limit", 20, "maximum number of generations to list")
	generationsCmd.AddCommand(generationsListCmd)
	generationsCmd.AddCommand(generationsShowCmd)
}

func listGenerations(ctx context.Context, client *apiClient, limit int, w io.Writer) error {
	resp, err := client.get(ctx, fmt.Sprintf("/generations?limit=%d", limit))
	if err != nil {
		return err
	}
	var gens []storage.Generation
	if err := decodeJSON(resp, &gens); err != nil {
		return err
	}
	if len(gens) == 0 {
		printStep("No generations yet")
		return nil
	}
	for _, g := range gens {
		name := g.ProfileName
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(w, "%s  %s  %-12s  %s\n",
			g.ID, g.CreatedAt.Local().Format("2006-01-02 15:04"), g.Source, colorize(colorBold, name))
		fmt.Fprintf(w, "    %s\n", firstLine(g.Content, 100))
	}
	return nil
}

func firstLine(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "…"
	}
	return s
}

// --- settings ---

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or update panel settings (backend_url, last_intent, theme)",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show panel settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/settings")
		if err != nil {
			return err
		}
		var s map[string]string
		if err := decodeJSON(resp, &s); err != nil {
			return err
		}
		return printJSON(os.Stdout, s)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a panel setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := setSetting(cmd.Context(), client, args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func setSetting(ctx context.Context, client *apiClient, key, value string) error {
	resp, err := client.patch(ctx, "/settings", map[string]string{key: value})
	if err != nil {
		return err
	}
	var out map[string]string
	return decodeJSON(resp, &out)
}

// --- models ---

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the OpenRouter models available to the configured key",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.HasModelKey() {
			return errors.New("OpenRouter key not set (GENREACH_OPENROUTER_API_KEY)")
		}
		models, err := proxy.NewClientWithBaseURL(cfg.Model.APIKey, cfg.Model.BaseURL).ListModels(cmd.Context())
		if err != nil {
			return err
		}
		for _, m := range models {
			id := m.ID
			if id == cfg.Model.ID {
				id = colorize(colorGreen, id+" (configured)")
			}
			fmt.Println(id)
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, k := range config.ShowAll(cfg) {
			if k.FromEnv {
				fmt.Printf("  %s = %s (from %s)\n", colorize(colorBold, k.Key), k.Value, k.EnvVar)
				continue
			}
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		printStatus("model.api_key", "%s", apiKeyStatus(cfg))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a stored configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

// apiKeyStatus says whether the OpenRouter tier is usable and, when it is
// not, where the key goes.
func apiKeyStatus(cfg config.Config) string {
	switch {
	case !cfg.HasModelKey():
		return "not set (" + config.APIKeyHint() + ")"
	case cfg.Model.KeySource == config.KeyFromKeychain:
		return "set (keychain)"
	default:
		return "set (environment)"
	}
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
