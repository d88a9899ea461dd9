package probe

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/shadowq/kit"
)

// RegisterMCP registers the shadowq tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerQueryTool(srv)
	s.registerCaptureTool(srv)
	s.registerListTool(srv)
	s.registerDeleteTool(srv)
}

// middleware is shared by every transport.
func (s *Service) middleware(name string) kit.Middleware {
	return kit.Chain(
		kit.Recovery(s.logger),
		kit.Tracing(name),
		kit.Logging(s.logger, name),
		kit.Timeout(s.cfg.RequestTimeout),
	)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- query ---

func (s *Service) queryEndpoint() kit.Endpoint {
	return s.middleware("query")(func(ctx context.Context, req any) (any, error) {
		return s.Resolve(ctx, req.(*Request))
	})
}

func (s *Service) registerQueryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "shadowq_query",
		Description: "Resolve a shadow-piercing CSS selector against a page. " +
			"'$' crosses into the shadow root of the element matched so far ('my-app$ nav a'); " +
			"a trailing '$' selects the shadow root itself (mode=shadow); " +
			"',' separates alternatives tried in order. " +
			"Modes: query (first match), all, shadow, deep (search every shadow tree), deep-all.",
		InputSchema: inputSchema(map[string]any{
			"source":   map[string]any{"type": "string", "description": "http(s) URL, file path, snapshot ID (snap_...) or inline HTML"},
			"selector": map[string]any{"type": "string", "description": "Selector path, e.g. 'x-card$ .title'"},
			"mode":     map[string]any{"type": "string", "enum": []string{ModeQuery, ModeAll, ModeShadow, ModeDeep, ModeDeepAll}},
			"format":   map[string]any{"type": "string", "enum": []string{"html", "text", "markdown", "safe-html"}},
			"live":     map[string]any{"type": "boolean", "description": "Resolve in a browser tab (scripts run, late shadow roots appear)"},
			"retries":  map[string]any{"type": "integer", "description": "Poll attempts per path step"},
			"delay":    map[string]any{"type": "string", "description": "Pause between attempts, e.g. '50ms'"},
		}, []string{"source", "selector"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r Request
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, s.queryEndpoint(), decode)
}

// --- capture ---

func (s *Service) captureEndpoint() kit.Endpoint {
	return s.middleware("capture")(func(ctx context.Context, req any) (any, error) {
		return s.Capture(ctx, req.(*CaptureRequest))
	})
}

func (s *Service) registerCaptureTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "shadowq_capture",
		Description: "Store a page, open shadow roots included, as a snapshot that later queries can target by ID.",
		InputSchema: inputSchema(map[string]any{
			"source": map[string]any{"type": "string", "description": "http(s) URL, file path or inline HTML"},
			"live":   map[string]any{"type": "boolean", "description": "Capture from a browser tab"},
		}, []string{"source"}),
	}
	kit.RegisterMCPTool(srv, tool, s.captureEndpoint(), kit.DecodeJSON[CaptureRequest])
}

// --- list ---

func (s *Service) listEndpoint() kit.Endpoint {
	return s.middleware("list")(func(ctx context.Context, req any) (any, error) {
		items, err := s.List(ctx, req.(*ListRequest))
		if err != nil {
			return nil, err
		}
		return map[string]any{"snapshots": items, "count": len(items)}, nil
	})
}

func (s *Service) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "shadowq_list_snapshots",
		Description: "List stored snapshots, newest first.",
		InputSchema: inputSchema(map[string]any{
			"url":   map[string]any{"type": "string", "description": "Only snapshots of this URL"},
			"limit": map[string]any{"type": "integer", "description": "Max results (default 50)"},
		}, nil),
	}
	kit.RegisterMCPTool(srv, tool, s.listEndpoint(), kit.DecodeJSON[ListRequest])
}

// --- delete ---

type deleteReq struct {
	ID string `json:"id"`
}

func (s *Service) deleteEndpoint() kit.Endpoint {
	return s.middleware("delete")(func(ctx context.Context, req any) (any, error) {
		id := req.(*deleteReq).ID
		if err := s.Delete(ctx, id); err != nil {
			return nil, err
		}
		return map[string]any{"deleted": id}, nil
	})
}

func (s *Service) registerDeleteTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "shadowq_delete_snapshot",
		Description: "Delete a stored snapshot.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Snapshot ID (snap_...)"},
		}, []string{"id"}),
	}
	kit.RegisterMCPTool(srv, tool, s.deleteEndpoint(), kit.DecodeJSON[deleteReq])
}
