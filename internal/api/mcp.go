package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/perfil/perfil/internal/pipeline"
	"github.com/perfil/perfil/internal/profile"
	"github.com/perfil/perfil/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    *storage.Store
	Pipeline ProfilePipeline
	// BackendToken is forwarded to the free text backend on every call.
	BackendToken string
}

// NewMCPServer creates an MCP server exposing profile tools to local agents.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"perfil",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("perfil — turns an uploaded CV into a structured profile and a rendered web page."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("get_profile",
			mcp.WithDescription("Fetch a stored profile document by its public slug."),
			mcp.WithString("slug", mcp.Description("Public profile slug"), mcp.Required()),
		),
		mcpGetProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("augment_profile",
			mcp.WithDescription("Extend a profile with new information following the given instructions. Existing sections are preserved."),
			mcp.WithString("slug", mcp.Description("Public profile slug"), mcp.Required()),
			mcp.WithString("instructions", mcp.Description("What to add or emphasize"), mcp.Required()),
		),
		mcpAugmentProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("render_profile",
			mcp.WithDescription("Regenerate the HTML page for a profile, optionally with styling instructions."),
			mcp.WithString("slug", mcp.Description("Public profile slug"), mcp.Required()),
			mcp.WithString("instructions", mcp.Description("Optional styling or layout instructions")),
			mcp.WithString("backend", mcp.Description("Preferred paid backend (openai or gemini); empty picks automatically")),
		),
		mcpRenderProfile(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"perfil://profiles",
			"Stored Profiles",
			mcp.WithResourceDescription("Recently updated profiles (slug, display name, timestamps)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfiles(deps),
	)

	return s
}

func mcpGetProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		slug, err := req.RequireString("slug")
		if err != nil {
			return mcpError("slug is required"), nil
		}

		rec, err := deps.Store.GetProfileBySlug(slug)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("no profile with slug %q", slug)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("loading profile: %v", err)), nil
		}

		resp, err := toResponse(rec)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		b, err := json.Marshal(resp)
		if err != nil {
			return mcpError(fmt.Sprintf("encoding profile: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAugmentProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		slug, err := req.RequireString("slug")
		if err != nil {
			return mcpError("slug is required"), nil
		}
		instructions, err := req.RequireString("instructions")
		if err != nil {
			return mcpError("instructions is required"), nil
		}

		rec, data, errMsg := mcpLoadProfileData(deps, slug)
		if errMsg != "" {
			return mcpError(errMsg), nil
		}

		updated, err := deps.Pipeline.Augment(ctx, data, instructions, deps.BackendToken)
		if err != nil {
			return mcpError(fmt.Sprintf("augmentation failed: %v", err)), nil
		}

		updatedJSON, err := json.Marshal(updated)
		if err != nil {
			return mcpError(fmt.Sprintf("encoding profile: %v", err)), nil
		}
		if err := deps.Store.UpdateProfileJSON(rec.AuthUserID, string(updatedJSON)); err != nil {
			return mcpError(fmt.Sprintf("saving profile: %v", err)), nil
		}

		return mcpText(string(updatedJSON)), nil
	}
}

func mcpRenderProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		slug, err := req.RequireString("slug")
		if err != nil {
			return mcpError("slug is required"), nil
		}
		instructions := req.GetString("instructions", "")
		preferred := req.GetString("backend", "")

		rec, data, errMsg := mcpLoadProfileData(deps, slug)
		if errMsg != "" {
			return mcpError(errMsg), nil
		}

		opts := pipeline.RenderOptions{
			Username:         rec.DisplayName,
			Instructions:     instructions,
			PreferredBackend: preferred,
		}
		if instructions != "" && rec.ProfileHTML != "" {
			opts.PreviousMarkup = rec.ProfileHTML
		}

		markup, err := deps.Pipeline.Render(ctx, data, opts, deps.BackendToken)
		if err != nil {
			return mcpError(fmt.Sprintf("render failed: %v", err)), nil
		}

		if err := deps.Store.UpdateProfileHTML(rec.AuthUserID, markup); err != nil {
			return mcpError(fmt.Sprintf("saving markup: %v", err)), nil
		}

		return mcpText(markup), nil
	}
}

func mcpLoadProfileData(deps MCPDeps, slug string) (storage.Profile, profile.Data, string) {
	rec, err := deps.Store.GetProfileBySlug(slug)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Profile{}, profile.Data{}, fmt.Sprintf("no profile with slug %q", slug)
	}
	if err != nil {
		return storage.Profile{}, profile.Data{}, fmt.Sprintf("loading profile: %v", err)
	}
	if rec.ProfileJSON == "" {
		return storage.Profile{}, profile.Data{}, "profile has no content yet"
	}

	var data profile.Data
	if err := json.Unmarshal([]byte(rec.ProfileJSON), &data); err != nil {
		return storage.Profile{}, profile.Data{}, fmt.Sprintf("decoding stored profile: %v", err)
	}
	return rec, data, ""
}

func mcpResourceProfiles(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		profiles, err := deps.Store.ListProfiles(10)
		if err != nil {
			return nil, fmt.Errorf("listing profiles: %w", err)
		}

		type profileSummary struct {
			Slug        string `json:"slug"`
			DisplayName string `json:"display_name"`
			UpdatedAt   string `json:"updated_at"`
			HasMarkup   bool   `json:"has_markup"`
		}

		summaries := make([]profileSummary, len(profiles))
		for i, p := range profiles {
			summaries[i] = profileSummary{
				Slug:        p.Slug,
				DisplayName: p.DisplayName,
				UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
				HasMarkup:   p.ProfileHTML != "",
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("encoding profiles: %w", err)
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
