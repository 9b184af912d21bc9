package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/perfil/perfil/internal/profile"
	"github.com/perfil/perfil/internal/storage"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T, pl ProfilePipeline) (MCPDeps, *storage.Store) {
	t.Helper()
	store := newTestStore(t)
	return MCPDeps{Store: store, Pipeline: pl}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_GetProfile(t *testing.T) {
	deps, store := newTestMCPDeps(t, &fakePipeline{})
	seedProfile(t, store, "<div>page</div>")
	handler := mcpGetProfile(deps)

	result, err := handler(context.Background(), makeCallToolRequest("get_profile", map[string]interface{}{
		"slug": "jdoe-123abc",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var resp profileResponse
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if resp.DisplayName != "Jane Doe" || len(resp.Profile.Sections) != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestMCPTool_GetProfile_Unknown(t *testing.T) {
	deps, _ := newTestMCPDeps(t, &fakePipeline{})
	handler := mcpGetProfile(deps)

	result, err := handler(context.Background(), makeCallToolRequest("get_profile", map[string]interface{}{
		"slug": "nobody",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for unknown slug")
	}
}

func TestMCPTool_AugmentProfile(t *testing.T) {
	augmented := seededProfile()
	augmented.Sections = append(augmented.Sections, profile.Section{Header: "Talks", Text: "GopherCon 2025."})
	pl := &fakePipeline{augmentResult: augmented}
	deps, store := newTestMCPDeps(t, pl)
	seedProfile(t, store, "")
	handler := mcpAugmentProfile(deps)

	result, err := handler(context.Background(), makeCallToolRequest("augment_profile", map[string]interface{}{
		"slug":         "jdoe-123abc",
		"instructions": "add my conference talks",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if pl.gotInstructions != "add my conference talks" {
		t.Errorf("instructions = %q", pl.gotInstructions)
	}

	stored, _ := store.GetProfileByAuthID("user_123abc")
	var data profile.Data
	if err := json.Unmarshal([]byte(stored.ProfileJSON), &data); err != nil {
		t.Fatalf("stored JSON invalid: %v", err)
	}
	if len(data.Sections) != 3 {
		t.Errorf("stored sections = %d, want 3", len(data.Sections))
	}
}

func TestMCPTool_RenderProfile(t *testing.T) {
	pl := &fakePipeline{renderResult: `<div class="bg-white text-slate-900">page</div>`}
	deps, store := newTestMCPDeps(t, pl)
	seedProfile(t, store, "")
	handler := mcpRenderProfile(deps)

	result, err := handler(context.Background(), makeCallToolRequest("render_profile", map[string]interface{}{
		"slug":    "jdoe-123abc",
		"backend": "openai",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if pl.gotOpts.PreferredBackend != "openai" {
		t.Errorf("preferred backend = %q", pl.gotOpts.PreferredBackend)
	}

	stored, _ := store.GetProfileByAuthID("user_123abc")
	if stored.ProfileHTML != pl.renderResult {
		t.Errorf("markup not persisted: %q", stored.ProfileHTML)
	}
}

func TestMCPResource_Profiles(t *testing.T) {
	deps, store := newTestMCPDeps(t, &fakePipeline{})
	seedProfile(t, store, "<div>page</div>")
	handler := mcpResourceProfiles(deps)

	contents, err := handler(context.Background(), makeReadResourceRequest("perfil://profiles"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var summaries []map[string]any
	if err := json.Unmarshal([]byte(tc.Text), &summaries); err != nil {
		t.Fatalf("parsing resource: %v", err)
	}
	if len(summaries) != 1 || summaries[0]["slug"] != "jdoe-123abc" {
		t.Errorf("summaries = %v", summaries)
	}
}
