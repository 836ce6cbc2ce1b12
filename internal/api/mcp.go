package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/genreach/internal/generate"
	"github.com/kalambet/genreach/internal/ingest"
	"github.com/kalambet/genreach/internal/panel"
	"github.com/kalambet/genreach/internal/profile"
	"github.com/kalambet/genreach/internal/settings"
	"github.com/kalambet/genreach/internal/storage"
	"github.com/kalambet/genreach/internal/textnorm"
)

const recentGenerationsLimit = 10

// MCPGenerator produces a message through the fallback chain.
type MCPGenerator interface {
	Acquire(ctx context.Context, req generate.Request) generate.Result
}

// PanelState exposes the current panel state.
type PanelState interface {
	Snapshot() panel.State
}

// MCPDeps holds dependencies for the MCP server. Panel may be nil when no
// browser page is attached.
type MCPDeps struct {
	Store     *storage.Store
	Generator MCPGenerator
	Panel     PanelState
	MaxPosts  int
}

// NewMCPServer creates an MCP server with all genreach tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"genreach",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("genreach writes short personalized LinkedIn outreach messages from a profile snapshot."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("generate_message",
			mcp.WithDescription("Write an outreach message for a profile. Pass either a saved profile file path or a profile snapshot as JSON."),
			mcp.WithString("intent", mcp.Description("What the message is for, e.g. hiring or networking")),
			mcp.WithString("path", mcp.Description("Saved profile page (.html) or profile PDF export")),
			mcp.WithString("profile", mcp.Description("Profile snapshot JSON with profileInfo and extendedProfile")),
		),
		mcpGenerateMessage(deps),
	)

	s.AddTool(
		mcp.NewTool("scrape_snapshot",
			mcp.WithDescription("Extract the profile snapshot from a saved profile page or PDF export."),
			mcp.WithString("path", mcp.Description("Path to the .html or .pdf file"), mcp.Required()),
		),
		mcpScrapeSnapshot(deps),
	)

	s.AddTool(
		mcp.NewTool("sanitize_text",
			mcp.WithDescription("Apply the profile text clean-up: whitespace, duplicated halves and repeated words."),
			mcp.WithString("text", mcp.Description("Text to clean"), mcp.Required()),
		),
		mcpSanitizeText,
	)

	s.AddResource(
		mcp.NewResource(
			"panel://state",
			"Panel state",
			mcp.WithResourceDescription("Visibility, theme, intent and status of the message panel"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourcePanel(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"generations://recent",
			"Recent generations",
			mcp.WithResourceDescription("Last 10 generated messages"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpGenerateMessage(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Generator == nil {
			return mcpError("generation not available"), nil
		}

		var snap profile.Snapshot
		path := req.GetString("path", "")
		raw := req.GetString("profile", "")
		switch {
		case path != "":
			s, err := ingest.LoadSnapshot(path, deps.MaxPosts)
			if err != nil {
				return mcpError(fmt.Sprintf("failed to load profile: %v", err)), nil
			}
			snap = s
		case raw != "":
			if err := json.Unmarshal([]byte(raw), &snap); err != nil {
				return mcpError(fmt.Sprintf("invalid profile JSON: %v", err)), nil
			}
		default:
			return mcpError("path or profile is required"), nil
		}

		gr := generate.Request{
			Intent:          req.GetString("intent", ""),
			ProfileInfo:     snap.Info,
			ExtendedProfile: snap.Extended,
			URL:             snap.URL,
		}
		gr.ExtendedProfile.Normalize()

		res := deps.Generator.Acquire(ctx, gr)
		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpScrapeSnapshot(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return mcpError("path is required"), nil
		}
		snap, err := ingest.LoadSnapshot(path, deps.MaxPosts)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load profile: %v", err)), nil
		}
		b, err := json.Marshal(snap)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal snapshot: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSanitizeText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcpError("text is required"), nil
	}
	return mcpText(textnorm.Sanitize(textnorm.NFC(text))), nil
}

func mcpResourcePanel(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		state := panel.State{Theme: settings.ThemeLight}
		if deps.Panel != nil {
			state = deps.Panel.Snapshot()
		}
		b, err := json.Marshal(state)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal panel state: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		gens, err := deps.Store.RecentGenerations(recentGenerationsLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent generations: %w", err)
		}

		type summary struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			Intent    string `json:"intent"`
			Source    string `json:"source"`
			Content   string `json:"content"`
			CreatedAt string `json:"created_at"`
		}
		out := make([]summary, 0, len(gens))
		for _, g := range gens {
			out = append(out, summary{
				ID:        g.ID,
				Name:      g.ProfileName,
				Intent:    g.Intent,
				Source:    g.Source,
				Content:   g.Content,
				CreatedAt: g.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		}

		b, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal generations: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
