package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tally/internal/common"
)

func TestNewApp_InitializesAllServices(t *testing.T) {
	a, err := NewApp(writeTestConfig(t, ""))
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Config)
	assert.NotNil(t, a.Logger)
	assert.NotNil(t, a.Storage)
	assert.NotNil(t, a.AnalysisService)
	assert.NotNil(t, a.DatasetService)
	assert.NotNil(t, a.SummaryService)
	assert.NotNil(t, a.ReportService)
	assert.NotNil(t, a.ChartService)
	assert.NotNil(t, a.MCPServer)
	assert.False(t, a.StartupTime.IsZero())
	assert.Nil(t, a.LLMClient, "no provider configured")
	assert.Equal(t, common.ProviderNone, a.SummaryService.Provider())
}

func TestNewApp_ProviderWithoutKeyFallsBack(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("TALLY_GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	a, err := NewApp(writeTestConfig(t, "[llm]\nprovider = \"gemini\"\n"))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.LLMClient)
	assert.Equal(t, common.ProviderNone, a.SummaryService.Provider())
}

func TestNewApp_RegistersAllTools(t *testing.T) {
	a, err := NewApp(writeTestConfig(t, ""))
	require.NoError(t, err)
	defer a.Close()

	c := newInProcessClient(t, a.MCPServer)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	toolsResult, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)

	var names []string
	for _, tool := range toolsResult.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"get_version",
		"analyze_csv",
		"list_datasets",
		"get_report",
		"list_samples",
		"import_sample",
	}, names)
}

func TestNewApp_GetVersionToolWorks(t *testing.T) {
	a, err := NewApp(writeTestConfig(t, ""))
	require.NoError(t, err)
	defer a.Close()

	text, isErr := callTool(t, newInProcessClient(t, a.MCPServer), "get_version", nil)
	assert.False(t, isErr)
	assert.Contains(t, text, "Tally MCP Server")
}

func TestNewApp_AnalyzeCSVTool(t *testing.T) {
	a, err := NewApp(writeTestConfig(t, ""))
	require.NoError(t, err)
	defer a.Close()
	c := newInProcessClient(t, a.MCPServer)

	csv := "Company,Revenue,Expenses,Net_Income\nA,100,50,50\nB,100,95,5\n"
	text, isErr := callTool(t, c, "analyze_csv", map[string]any{"csv": csv})
	require.False(t, isErr, text)
	assert.Contains(t, text, "# Financial Analysis Report")
	assert.Contains(t, text, "Risk Assessment")

	text, isErr = callTool(t, c, "analyze_csv", map[string]any{"csv": "  "})
	assert.True(t, isErr)
	assert.Contains(t, text, "csv parameter is required")
}

func TestNewApp_SampleDatasetFlow(t *testing.T) {
	a, err := NewApp(writeTestConfig(t, ""))
	require.NoError(t, err)
	defer a.Close()
	c := newInProcessClient(t, a.MCPServer)

	text, isErr := callTool(t, c, "list_datasets", nil)
	require.False(t, isErr)
	assert.Contains(t, text, "No datasets imported")

	text, isErr = callTool(t, c, "list_samples", nil)
	require.False(t, isErr)
	assert.Contains(t, text, "**crisis**")

	text, isErr = callTool(t, c, "import_sample", map[string]any{"name": "tech"})
	require.False(t, isErr, text)
	assert.Contains(t, text, `"row_count"`)

	infos, err := a.DatasetService.List(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	id := infos[0].ID

	text, isErr = callTool(t, c, "list_datasets", nil)
	require.False(t, isErr)
	assert.Contains(t, text, id)

	text, isErr = callTool(t, c, "get_report", map[string]any{"dataset_id": id, "format": "json"})
	require.False(t, isErr, text)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(text), "{"))
	assert.Contains(t, text, `"total_companies": 3`)

	text, isErr = callTool(t, c, "get_report", map[string]any{"dataset_id": id, "format": "pdf"})
	assert.True(t, isErr)
	assert.Contains(t, text, "format must be markdown or json")

	text, isErr = callTool(t, c, "get_report", map[string]any{"dataset_id": "missing"})
	assert.True(t, isErr)
	assert.Contains(t, text, "not found")

	_, isErr = callTool(t, c, "import_sample", map[string]any{"name": "nope"})
	assert.True(t, isErr)
}

func TestNewApp_CloseIsIdempotent(t *testing.T) {
	a, err := NewApp(writeTestConfig(t, ""))
	require.NoError(t, err)

	a.Close()
	a.Close()
}

func TestNewApp_InvalidConfigReturnsError(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("{{{{invalid toml"), 0644))

	_, err := NewApp(configPath)
	assert.Error(t, err)
}

func TestResolveConfigPath(t *testing.T) {
	assert.Equal(t, "explicit.toml", ResolveConfigPath("explicit.toml"))

	t.Setenv("TALLY_CONFIG", "/etc/tally/tally.toml")
	assert.Equal(t, "/etc/tally/tally.toml", ResolveConfigPath(""))
}

// --- test helpers ---

// writeTestConfig creates a tally.toml in a temp directory. extra is
// appended verbatim.
func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()

	config := `
[storage]
path = "` + filepath.ToSlash(filepath.Join(dir, "data", "datasets")) + `"
uploads_path = "` + filepath.ToSlash(filepath.Join(dir, "data", "uploads")) + `"

[logging]
level = "error"
outputs = ["console"]
` + extra
	configPath := filepath.Join(dir, "tally.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0644))
	return configPath
}

// newInProcessClient creates an mcp-go in-process client connected to the
// given MCP server and completes the initialize handshake.
func newInProcessClient(t *testing.T, mcpServer *server.MCPServer) *client.Client {
	t.Helper()

	c, err := client.NewInProcessClient(mcpServer)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}
	_, err = c.Initialize(ctx, initReq)
	require.NoError(t, err)
	return c
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := c.CallTool(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	return result.Content[0].(mcp.TextContent).Text, result.IsError
}
