package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tally/internal/app"
	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/server"
)

type rpcResponse struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTallyServer(t *testing.T, secret string) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	cfg := common.NewDefaultConfig()
	cfg.Storage.Path = filepath.Join(dir, "datasets")
	cfg.Storage.UploadsPath = filepath.Join(dir, "uploads")
	cfg.Auth.JWTSecret = secret

	a, err := app.New(cfg, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	ts := httptest.NewServer(server.NewServer(a).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func runProxy(t *testing.T, p *StdioProxy, messages ...string) []rpcResponse {
	t.Helper()

	var out bytes.Buffer
	require.NoError(t, p.RunWithIO(strings.NewReader(strings.Join(messages, "\n")+"\n"), &out))

	var responses []rpcResponse
	scanner := bufio.NewScanner(&out)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		var r rpcResponse
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r), scanner.Text())
		responses = append(responses, r)
	}
	return responses
}

const (
	initializeMsg  = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`
	initializedMsg = `{"jsonrpc":"2.0","method":"notifications/initialized"}`
	listToolsMsg   = `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`
	versionCallMsg = `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_version","arguments":{}}}`
)

func TestProxy_EndToEnd(t *testing.T) {
	ts := newTallyServer(t, "")

	responses := runProxy(t, NewStdioProxy(ts.URL, ""), initializeMsg, initializedMsg, listToolsMsg, versionCallMsg)
	require.Len(t, responses, 3, "notifications produce no output")

	for _, r := range responses {
		assert.Nil(t, r.Error)
	}
	assert.Equal(t, "1", string(responses[0].ID))

	var tools struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(responses[1].Result, &tools))
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, "analyze_csv")

	assert.Contains(t, string(responses[2].Result), "Tally MCP Server")
}

func TestProxy_BearerToken(t *testing.T) {
	ts := newTallyServer(t, "proxy-secret")

	responses := runProxy(t, NewStdioProxy(ts.URL, ""), initializeMsg)
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Contains(t, responses[0].Error.Message, "TALLY_TOKEN")

	token, err := server.SignToken("proxy-secret", "desktop", time.Hour)
	require.NoError(t, err)

	responses = runProxy(t, NewStdioProxy(ts.URL, token), initializeMsg, versionCallMsg)
	require.Len(t, responses, 2)
	assert.Nil(t, responses[0].Error)
	assert.Nil(t, responses[1].Error)
}

func TestProxy_ServerErrorCarriesRequestID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer ts.Close()

	responses := runProxy(t, NewStdioProxy(ts.URL, ""), `{"jsonrpc":"2.0","id":"abc","method":"tools/list"}`)
	require.Len(t, responses, 1)
	assert.Equal(t, `"abc"`, string(responses[0].ID))
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, -32000, responses[0].Error.Code)
	assert.Contains(t, responses[0].Error.Message, "502")
}

func TestProxy_ServerUnavailable(t *testing.T) {
	responses := runProxy(t, NewStdioProxy("http://127.0.0.1:1", ""), `{"jsonrpc":"2.0","id":7,"method":"ping"}`)
	require.Len(t, responses, 1)
	assert.Equal(t, "7", string(responses[0].ID))
	assert.NotNil(t, responses[0].Error)
}

func TestProxy_EventStreamResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept"), "text/event-stream")
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":9,\"result\":{}}\n\n"))
	}))
	defer ts.Close()

	responses := runProxy(t, NewStdioProxy(ts.URL, ""), `{"jsonrpc":"2.0","id":9,"method":"ping"}`)
	require.Len(t, responses, 1)
	assert.Equal(t, "9", string(responses[0].ID))
	assert.Nil(t, responses[0].Error)
}

func TestExtractID(t *testing.T) {
	assert.Equal(t, "5", string(extractID([]byte(`{"id":5}`))))
	assert.Equal(t, "null", string(extractID([]byte(`{"method":"x"}`))))
	assert.Equal(t, "null", string(extractID([]byte(`not json`))))
}

func TestNewStdioProxy_TrimsTrailingSlash(t *testing.T) {
	p := NewStdioProxy("http://localhost:8080/", "")
	assert.Equal(t, "http://localhost:8080/mcp", p.serverURL)
}
