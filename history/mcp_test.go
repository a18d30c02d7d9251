package history

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testImpl = &mcp.Implementation{Name: "history-test", Version: "0.1.0"}

func mcpSession(t *testing.T) (*Store, *mcp.ClientSession) {
	t.Helper()
	s := testStore(t)

	srv := mcp.NewServer(testImpl, nil)
	s.RegisterMCP(srv, nil)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()

	go func() {
		_ = srv.Run(ctx, serverT)
	}()

	client := mcp.NewClient(testImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return s, session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	return tc.Text
}

func TestMCP_ListFindGet(t *testing.T) {
	s, session := mcpSession(t)
	a := mustAdd(t, s, Record{URL: "https://github.com/o/r/issues/1", Name: "Crash on start"})
	mustAdd(t, s, Record{URL: "https://github.com/o/r/issues/2", Name: "Docs typo"})

	var list []Record
	if err := json.Unmarshal([]byte(callTool(t, session, "history_list", map[string]any{})), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "Docs typo" {
		t.Fatalf("list = %+v", list)
	}

	var found []Record
	json.Unmarshal([]byte(callTool(t, session, "history_find", map[string]any{"query": "start crash"})), &found)
	if len(found) != 1 || found[0].ID != a.ID {
		t.Fatalf("find = %+v", found)
	}

	var got *Record
	json.Unmarshal([]byte(callTool(t, session, "history_get", map[string]any{"id": a.ID})), &got)
	if got == nil || got.URL != a.URL {
		t.Fatalf("get = %+v", got)
	}

	if text := callTool(t, session, "history_get", map[string]any{"id": "missing"}); text != "null" {
		t.Fatalf("get missing = %s", text)
	}
}

func TestMCP_GetRequiresID(t *testing.T) {
	_, session := mcpSession(t)
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "history_get",
		Arguments: map[string]any{"id": ""},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Fatal("expected tool error")
	}
}
