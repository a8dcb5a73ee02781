package service

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/dicenotation"
	"github.com/louisbranch/dicenotation/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func connectClient(t *testing.T, ctx context.Context, transport mcp.Transport) *mcp.ClientSession {
	t.Helper()
	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)

	type connectResult struct {
		session *mcp.ClientSession
		err     error
	}
	connectDone := make(chan connectResult, 1)
	go func() {
		session, err := client.Connect(ctx, transport, nil)
		connectDone <- connectResult{session: session, err: err}
	}()

	select {
	case result := <-connectDone:
		if result.err != nil {
			t.Fatalf("connect client: %v", result.err)
		}
		return result.session
	case <-time.After(2 * time.Second):
		t.Fatal("connect client timed out")
	}
	return nil
}

func decodeStructured[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	var out T
	raw, err := json.Marshal(result.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal structured content: %v", err)
	}
	return out
}

// TestRunWithTransportServesAndStops ensures runWithTransport serves and exits on cancel.
func TestRunWithTransportServesAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- runWithTransport(ctx, dicenotation.NewRoller(), serverTransport)
	}()

	clientCtx, clientCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer clientCancel()
	session := connectClient(t, clientCtx, clientTransport)
	defer session.Close()

	cancel()

	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestServerListsDiceTools(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server, err := New(dicenotation.NewRoller())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	go func() { _ = server.serveWithTransport(ctx, serverTransport) }()

	session := connectClient(t, ctx, clientTransport)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"roll_expression", "explain_expression", "roll_history"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}
}

func TestServerRollsExpression(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server, err := New(dicenotation.NewRoller())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	go func() { _ = server.serveWithTransport(ctx, serverTransport) }()

	session := connectClient(t, ctx, clientTransport)
	defer session.Close()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "roll_expression",
		Arguments: map[string]any{"expression": "2*3+1<10", "locale": "pt-BR"},
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool returned error: %+v", result.Content)
	}
	out := decodeStructured[domain.RollExpressionResult](t, result)
	if out.Value != 7 {
		t.Fatalf("value = %d, want 7", out.Value)
	}
	if out.Detail != "2 * 3 + 1 = 7, alvo é <10, sucesso" {
		t.Fatalf("detail = %q", out.Detail)
	}
}

func TestServerReportsToolErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server, err := New(dicenotation.NewRoller())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	go func() { _ = server.serveWithTransport(ctx, serverTransport) }()

	session := connectClient(t, ctx, clientTransport)
	defer session.Close()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "roll_expression",
		Arguments: map[string]any{"expression": "3d"},
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for invalid expression")
	}
	var text strings.Builder
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			text.WriteString(tc.Text)
		}
	}
	if !strings.Contains(text.String(), "INVALID_SYNTAX") {
		t.Fatalf("error content = %q, want INVALID_SYNTAX", text.String())
	}
}

// TestRunUnsupportedTransport ensures Run rejects unknown transport kinds.
func TestRunUnsupportedTransport(t *testing.T) {
	err := Run(context.Background(), Config{Transport: "websocket"}, dicenotation.NewRoller())
	if err == nil {
		t.Fatal("expected error for unsupported transport")
	}
	if !strings.Contains(err.Error(), "not supported") {
		t.Errorf("expected 'not supported' in error, got: %v", err)
	}
}

func TestNewRequiresRoller(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil roller")
	}
}

func TestServeWithTransportRequiresServer(t *testing.T) {
	var server *Server
	if err := server.serveWithTransport(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil server")
	}
}

func TestHealthHandler(t *testing.T) {
	server, err := New(dicenotation.NewRoller())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	handler := server.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q, want 200 OK", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("health POST = %d, want 405", rec.Code)
	}
}

func TestServeHTTPRollsOverStreamableTransport(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server, err := New(dicenotation.NewRoller())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.serveHTTP(ctx, listener)
	}()

	clientCtx, clientCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer clientCancel()
	transport := &mcp.StreamableClientTransport{Endpoint: "http://" + listener.Addr().String() + "/mcp"}
	session := connectClient(t, clientCtx, transport)

	result, err := session.CallTool(clientCtx, &mcp.CallToolParams{
		Name:      "explain_expression",
		Arguments: map[string]any{"expression": "1d20+5>=15"},
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	out := decodeStructured[domain.ExplainExpressionResult](t, result)
	if !out.Valid || out.Condition != ">=15" {
		t.Fatalf("explain = %+v", out)
	}
	_ = session.Close()

	cancel()
	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serveHTTP returned error: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("serveHTTP did not stop after cancel")
	}
}
