// Package mcp exposes the price finder as MCP tools over JSON-RPC.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/raine/product-price-finder/internal/quote"
)

const (
	serverName      = "product-price-finder"
	serverVersion   = "1.0.0"
	protocolVersion = "2024-11-05"

	defaultCallTimeout = 2 * time.Minute
)

// QuoteService resolves price requests.
type QuoteService interface {
	Resolve(ctx context.Context, req quote.Request) (*quote.Result, error)
}

// Options configures a Server.
type Options struct {
	// OwnerNumber is returned by the validate tool.
	OwnerNumber string
	// Debug returns internal error text to the caller instead of a generic
	// message.
	Debug bool
	// CallTimeout bounds one tools/call. Zero uses a two minute default.
	CallTimeout time.Duration
}

// Server handles MCP protocol requests
type Server struct {
	quotes QuoteService
	opts   Options
}

// NewServer creates a new MCP server
func NewServer(quotes QuoteService, opts Options) *Server {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	return &Server{quotes: quotes, opts: opts}
}

// HandleRequest processes an MCP request and returns a response.
// Returns nil for notifications (requests without ID).
func (s *Server) HandleRequest(ctx context.Context, req *Request) *Response {
	id := req.ID

	switch req.Method {
	case "initialize":
		return s.handleInitialize(id)
	case "tools/list":
		return s.resultResponse(id, map[string]any{"tools": getAllTools()})
	case "tools/call":
		return s.handleToolsCall(ctx, req, id)
	case "ping":
		return s.resultResponse(id, map[string]any{})
	}

	if id == nil {
		return nil
	}
	return s.errorResponse(id, MethodNotFound, "Method not found")
}

func (s *Server) handleInitialize(id any) *Response {
	return s.resultResponse(id, map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    serverName,
			"version": serverVersion,
		},
	})
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request, id any) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(id, InvalidParams, "Invalid parameters")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	switch params.Name {
	case toolFindProductPrice:
		return s.handleFindProductPrice(ctx, id, params.Arguments)
	case toolValidate:
		return s.textResponse(id, s.opts.OwnerNumber, false)
	default:
		return s.errorResponse(id, MethodNotFound, fmt.Sprintf("Unknown tool: %s", params.Name))
	}
}

// Helper methods

func (s *Server) resultResponse(id any, result any) *Response {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return s.errorResponse(id, InternalError, fmt.Sprintf("Failed to marshal result: %v", err))
	}
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  json.RawMessage(resultJSON),
	}
}

func (s *Server) textResponse(id any, text string, isError bool) *Response {
	return s.resultResponse(id, ToolResult{
		Content: []TextContent{{Type: "text", Text: text}},
		IsError: isError,
	})
}

func (s *Server) errorResponse(id any, code int, message string) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &ErrorObject{
			Code:    code,
			Message: message,
		},
	}
}
