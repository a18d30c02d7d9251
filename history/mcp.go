package history

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/ghframe/kit"
)

// RegisterMCP registers the history tools on an MCP server.
func (s *Store) RegisterMCP(srv *mcp.Server, logger *slog.Logger) {
	s.registerListTool(srv, logger)
	s.registerFindTool(srv, logger)
	s.registerGetTool(srv, logger)
}

func toolChain(logger *slog.Logger, name string) kit.Middleware {
	return kit.Chain(kit.Logging(logger, name), kit.Timeout(10*time.Second))
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

type findRequest struct {
	Query string `json:"query"`
}

type getRequest struct {
	ID string `json:"id"`
}

func (s *Store) registerListTool(srv *mcp.Server, logger *slog.Logger) {
	tool := &mcp.Tool{
		Name:        "history_list",
		Description: "List visited pages, most recently added first.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.Get(ctx)
	}
	decode := func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	}
	kit.RegisterMCPTool(srv, tool, toolChain(logger, tool.Name)(endpoint), decode)
}

func (s *Store) registerFindTool(srv *mcp.Server, logger *slog.Logger) {
	tool := &mcp.Tool{
		Name:        "history_find",
		Description: "Find visited pages whose id, number or name contains every word of the query.",
		InputSchema: inputSchema(map[string]any{
			"query": map[string]any{"type": "string", "description": "Whitespace-separated words, any order; empty matches all"},
		}, []string{"query"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return s.Find(ctx, req.(*findRequest).Query)
	}
	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r findRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}
	kit.RegisterMCPTool(srv, tool, toolChain(logger, tool.Name)(endpoint), decode)
}

func (s *Store) registerGetTool(srv *mcp.Server, logger *slog.Logger) {
	tool := &mcp.Tool{
		Name:        "history_get",
		Description: "Get one visited page by id. Returns null when absent.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Record id"},
		}, []string{"id"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return s.GetByID(ctx, req.(*getRequest).ID)
	}
	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r getRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		if r.ID == "" {
			return nil, errors.New("id is required")
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}
	kit.RegisterMCPTool(srv, tool, toolChain(logger, tool.Name)(endpoint), decode)
}
