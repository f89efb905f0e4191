package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/raine/product-price-finder/internal/extract"
	"github.com/raine/product-price-finder/internal/llm"
	"github.com/raine/product-price-finder/internal/quote"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockQuoteService is a QuoteService with a configurable ResolveFunc.
type MockQuoteService struct {
	ResolveFunc func(ctx context.Context, req quote.Request) (*quote.Result, error)

	Calls []quote.Request
}

func (m *MockQuoteService) Resolve(ctx context.Context, req quote.Request) (*quote.Result, error) {
	m.Calls = append(m.Calls, req)
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, req)
	}
	return &quote.Result{Kind: quote.KindNoPrice}, nil
}

func failing(err error) *MockQuoteService {
	return &MockQuoteService{ResolveFunc: func(context.Context, quote.Request) (*quote.Result, error) {
		return nil, err
	}}
}

func toolCall(t *testing.T, name string, args any) *Request {
	t.Helper()
	argsJSON, err := json.Marshal(args)
	require.NoError(t, err)
	params, err := json.Marshal(ToolCallParams{Name: name, Arguments: argsJSON})
	require.NoError(t, err)
	return &Request{JSONRPC: "2.0", ID: "1", Method: "tools/call", Params: params}
}

func decodeToolResult(t *testing.T, resp *Response) ToolResult {
	t.Helper()
	require.NotNil(t, resp)
	require.Nil(t, resp.Error, "unexpected error response: %+v", resp.Error)
	var result ToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	return result
}

func TestHandleRequest_Initialize(t *testing.T) {
	s := NewServer(&MockQuoteService{}, Options{})

	resp := s.HandleRequest(context.Background(), &Request{JSONRPC: "2.0", ID: 1, Method: "initialize"})
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result struct {
		ProtocolVersion string         `json:"protocolVersion"`
		Capabilities    map[string]any `json:"capabilities"`
		ServerInfo      map[string]any `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, protocolVersion, result.ProtocolVersion)
	assert.Contains(t, result.Capabilities, "tools")
	assert.Equal(t, serverName, result.ServerInfo["name"])
}

func TestHandleRequest_ToolsList(t *testing.T) {
	s := NewServer(&MockQuoteService{}, Options{})

	resp := s.HandleRequest(context.Background(), &Request{JSONRPC: "2.0", ID: 1, Method: "tools/list"})
	require.NotNil(t, resp)

	var result struct {
		Tools []Tool `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"find_product_price", "validate"}, names)
}

func TestHandleRequest_UnknownMethod(t *testing.T) {
	s := NewServer(&MockQuoteService{}, Options{})

	resp := s.HandleRequest(context.Background(), &Request{JSONRPC: "2.0", ID: 7, Method: "resources/list"})
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, MethodNotFound, resp.Error.Code)

	// notifications get no response
	assert.Nil(t, s.HandleRequest(context.Background(), &Request{JSONRPC: "2.0", Method: "notifications/initialized"}))
}

func TestToolsCall_UnknownTool(t *testing.T) {
	s := NewServer(&MockQuoteService{}, Options{})

	resp := s.HandleRequest(context.Background(), toolCall(t, "nope", map[string]any{}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, MethodNotFound, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "Unknown tool")
}

func TestToolsCall_Validate(t *testing.T) {
	s := NewServer(&MockQuoteService{}, Options{OwnerNumber: "919876543210"})

	result := decodeToolResult(t, s.HandleRequest(context.Background(), toolCall(t, "validate", map[string]any{})))
	assert.Equal(t, "919876543210", result.Content[0].Text)
	assert.False(t, result.IsError)
}

func TestFindProductPrice_PassesArguments(t *testing.T) {
	amount := decimal.RequireFromString("49.99")
	quotes := &MockQuoteService{ResolveFunc: func(ctx context.Context, req quote.Request) (*quote.Result, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return &quote.Result{
			Kind: quote.KindPriceFound,
			Quote: extract.PriceQuote{
				Price:    &amount,
				Currency: "USD",
				Title:    "Widget",
				Source:   "Amazon",
				URL:      req.ProductURL,
			},
		}, nil
	}}
	s := NewServer(quotes, Options{})

	resp := s.HandleRequest(context.Background(), toolCall(t, "find_product_price", map[string]any{
		"puch_user_id": "u1",
		"product_url":  "https://www.amazon.com/dp/XYZ",
	}))
	result := decodeToolResult(t, resp)

	assert.Contains(t, result.Content[0].Text, "$49.99")
	assert.Contains(t, result.Content[0].Text, "Widget")
	require.Len(t, quotes.Calls, 1)
	assert.Equal(t, quote.Request{ProductURL: "https://www.amazon.com/dp/XYZ"}, quotes.Calls[0])
}

func TestFindProductPrice_ImageArguments(t *testing.T) {
	quotes := &MockQuoteService{ResolveFunc: func(context.Context, quote.Request) (*quote.Result, error) {
		return &quote.Result{
			Kind:       quote.KindEstimate,
			Analysis:   llm.ProductAnalysis{ProductName: "Kindle Paperwhite"}.Normalize(),
			Estimate:   decimal.RequireFromString("104"),
			Demo:       true,
			Disclaimer: "Demo analysis for image ID: abc...",
		}, nil
	}}
	s := NewServer(quotes, Options{})

	result := decodeToolResult(t, s.HandleRequest(context.Background(), toolCall(t, "find_product_price", map[string]any{
		"image_id_for_tool": "abc",
		"puch_image_data":   nil,
	})))

	assert.Contains(t, result.Content[0].Text, "DEMO MODE")
	assert.Equal(t, quote.Request{ImageReference: "abc"}, quotes.Calls[0])
}

func TestFindProductPrice_InvalidInput(t *testing.T) {
	s := NewServer(failing(fmt.Errorf("%w: please provide either a product URL or upload an image", quote.ErrInvalidInput)), Options{})

	resp := s.HandleRequest(context.Background(), toolCall(t, "find_product_price", map[string]any{}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)
	assert.Equal(t, "Please provide either a product URL or upload an image", resp.Error.Message)
}

func TestFindProductPrice_MalformedArguments(t *testing.T) {
	quotes := &MockQuoteService{}
	s := NewServer(quotes, Options{})

	params := json.RawMessage(`{"name":"find_product_price","arguments":{"product_url":42}}`)
	resp := s.HandleRequest(context.Background(), &Request{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)
	assert.Empty(t, quotes.Calls)
}

func TestFindProductPrice_FetchErrorIsToolError(t *testing.T) {
	s := NewServer(failing(&quote.FetchError{URL: "https://x.test", Status: 404}), Options{})

	result := decodeToolResult(t, s.HandleRequest(context.Background(), toolCall(t, "find_product_price", map[string]any{
		"product_url": "https://x.test",
	})))
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "HTTP 404")
}

func TestFindProductPrice_InternalError(t *testing.T) {
	err := fmt.Errorf("failed to analyze image: %w", llm.ErrVisionUnavailable)

	t.Run("generic message", func(t *testing.T) {
		s := NewServer(failing(err), Options{})
		resp := s.HandleRequest(context.Background(), toolCall(t, "find_product_price", map[string]any{"image_id_for_tool": "x"}))
		require.NotNil(t, resp.Error)
		assert.Equal(t, InternalError, resp.Error.Code)
		assert.Equal(t, "Failed to find product price", resp.Error.Message)
	})

	t.Run("debug mode shows error text", func(t *testing.T) {
		s := NewServer(failing(err), Options{Debug: true})
		result := decodeToolResult(t, s.HandleRequest(context.Background(), toolCall(t, "find_product_price", map[string]any{"image_id_for_tool": "x"})))
		assert.True(t, result.IsError)
		assert.Equal(t, "Debug error: failed to analyze image: vision model unavailable", result.Content[0].Text)
	})
}

func TestFindProductPrice_PanicRecovered(t *testing.T) {
	quotes := &MockQuoteService{ResolveFunc: func(context.Context, quote.Request) (*quote.Result, error) {
		panic("nil map")
	}}
	s := NewServer(quotes, Options{})

	resp := s.HandleRequest(context.Background(), toolCall(t, "find_product_price", map[string]any{"product_url": "https://x.test"}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, InternalError, resp.Error.Code)
}

func TestServe(t *testing.T) {
	quotes := &MockQuoteService{ResolveFunc: func(context.Context, quote.Request) (*quote.Result, error) {
		return nil, errors.New("boom")
	}}
	s := NewServer(quotes, Options{OwnerNumber: "42"})

	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"validate","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":"three","method":"ping"}`,
	}, "\n")
	var out bytes.Buffer

	require.NoError(t, s.Serve(context.Background(), strings.NewReader(in), &out))

	dec := json.NewDecoder(&out)
	var responses []Response
	for dec.More() {
		var r Response
		require.NoError(t, dec.Decode(&r))
		responses = append(responses, r)
	}
	require.Len(t, responses, 3)
	assert.EqualValues(t, 1, responses[0].ID)
	assert.EqualValues(t, 2, responses[1].ID)
	assert.Contains(t, string(responses[1].Result), `"text":"42"`)
	assert.Equal(t, "three", responses[2].ID)
}

func TestServe_ParseError(t *testing.T) {
	s := NewServer(&MockQuoteService{}, Options{})
	var out bytes.Buffer

	require.NoError(t, s.Serve(context.Background(), strings.NewReader(`{not json`), &out))

	var r Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &r))
	require.NotNil(t, r.Error)
	assert.Equal(t, ParseError, r.Error.Code)
}

func TestServe_StopsOnCancel(t *testing.T) {
	s := NewServer(&MockQuoteService{}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pr, pw := io.Pipe()
	defer pw.Close()

	err := s.Serve(ctx, pr, io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServe_ParseErrorHasNullID(t *testing.T) {
	s := NewServer(&MockQuoteService{}, Options{})
	var out bytes.Buffer

	require.NoError(t, s.Serve(context.Background(), strings.NewReader(`{"jsonrpc": "2.0", "id": ]}`), &out))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out.Bytes(), &raw))
	id, ok := raw["id"]
	require.True(t, ok, "id must be present")
	assert.Equal(t, "null", string(id))
}
