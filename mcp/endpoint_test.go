package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	"github.com/flarexio/ragblade"
)

type stubService struct {
	answer    *ragblade.Answer
	retrieved ragblade.RetrievalResult
	err       error
	query     string
}

func (s *stubService) Answer(ctx context.Context, query string) (*ragblade.Answer, error) {
	s.query = query
	return s.answer, s.err
}

func (s *stubService) Ingest(ctx context.Context, doc ragblade.Document) error {
	return s.err
}

func (s *stubService) IngestBatch(ctx context.Context, docs []ragblade.Document) (int, error) {
	return len(docs), s.err
}

func (s *stubService) Retrieve(ctx context.Context, query string) (ragblade.RetrievalResult, error) {
	s.query = query
	return s.retrieved, s.err
}

func (s *stubService) Close() error {
	return nil
}

func TestUnmarshalInitializeRequest(t *testing.T) {
	assert := assert.New(t)

	input := []byte(`{
	  "jsonrpc": "2.0",
	  "id": 1,
	  "method": "initialize",
	  "params": {
	    "protocolVersion": "2024-11-05",
	    "capabilities": {},
	    "clientInfo": {
	      "name": "ExampleClient",
	      "version": "1.0.0"
	    }
	  }
	}`)

	var req JSONRPCRequest
	if err := json.Unmarshal(input, &req); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(mcp.JSONRPC_VERSION, req.JSONRPC)
	assert.Equal(mcp.NewRequestId(int64(1)), req.ID)
	assert.Equal(mcp.MethodInitialize, req.Method)

	resp := InitializeEndpoint(&stubService{})(context.Background(), req)

	result, ok := resp.(mcp.JSONRPCResponse)
	if !assert.True(ok) {
		return
	}

	initResult, ok := result.Result.(*mcp.InitializeResult)
	if !assert.True(ok) {
		return
	}

	assert.Equal("2024-11-05", initResult.ProtocolVersion)
	assert.Equal("ragblade", initResult.ServerInfo.Name)
}

func TestListTools(t *testing.T) {
	assert := assert.New(t)

	req := JSONRPCRequest{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(int64(2)),
		Method:  mcp.MethodToolsList,
	}

	resp := ListToolsEndpoint(&stubService{})(context.Background(), req)

	result, ok := resp.(mcp.JSONRPCResponse)
	if !assert.True(ok) {
		return
	}

	tools := result.Result.(*mcp.ListToolsResult).Tools
	assert.Len(tools, 2)
	assert.Equal(ToolAnswerQuestion, tools[0].Name)
	assert.Equal(ToolSearchDocuments, tools[1].Name)
	assert.Contains(tools[0].InputSchema.Required, "query")
}

func callTool(svc ragblade.Service, input string) mcp.JSONRPCMessage {
	var req JSONRPCRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		panic(err)
	}

	return CallToolEndpoint(svc)(context.Background(), req)
}

func TestCallAnswerQuestion(t *testing.T) {
	assert := assert.New(t)

	svc := &stubService{
		answer: &ragblade.Answer{
			RequestID:    "req-1",
			Response:     "The boAt Rockerz 255 is the best budget pick.",
			RetrievedIDs: []string{"doc_1"},
		},
	}

	resp := callTool(svc, `{
	  "jsonrpc": "2.0",
	  "id": 3,
	  "method": "tools/call",
	  "params": {
	    "name": "answer_question",
	    "arguments": { "query": "low budget headphone" }
	  }
	}`)

	result, ok := resp.(mcp.JSONRPCResponse)
	if !assert.True(ok) {
		return
	}

	toolResult := result.Result.(*mcp.CallToolResult)
	assert.False(toolResult.IsError)
	assert.Len(toolResult.Content, 2)

	text := toolResult.Content[0].(mcp.TextContent)
	assert.Equal("The boAt Rockerz 255 is the best budget pick.", text.Text)
	assert.Equal("low budget headphone", svc.query)
}

func TestCallSearchDocuments(t *testing.T) {
	assert := assert.New(t)

	svc := &stubService{
		retrieved: ragblade.RetrievalResult{
			{Document: ragblade.Document{ID: "doc_1", Text: "cheap and loud"}, Score: 0.9},
		},
	}

	resp := callTool(svc, `{
	  "jsonrpc": "2.0",
	  "id": 4,
	  "method": "tools/call",
	  "params": {
	    "name": "search_documents",
	    "arguments": { "query": "cheap" }
	  }
	}`)

	toolResult := resp.(mcp.JSONRPCResponse).Result.(*mcp.CallToolResult)

	var docs ragblade.RetrievalResult
	text := toolResult.Content[0].(mcp.TextContent).Text
	if err := json.Unmarshal([]byte(text), &docs); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal([]string{"doc_1"}, docs.IDs())
}

func TestCallToolErrors(t *testing.T) {
	assert := assert.New(t)

	svc := &stubService{err: errors.New("upstream unavailable")}

	resp := callTool(svc, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"answer_question","arguments":{"query":"x"}}}`)
	toolResult := resp.(mcp.JSONRPCResponse).Result.(*mcp.CallToolResult)
	assert.True(toolResult.IsError)

	resp = callTool(svc, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"answer_question","arguments":{}}}`)
	rpcErr, ok := resp.(mcp.JSONRPCError)
	if assert.True(ok) {
		assert.Equal(mcp.INVALID_PARAMS, rpcErr.Error.Code)
	}

	resp = callTool(svc, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"delete_everything","arguments":{"query":"x"}}}`)
	_, ok = resp.(mcp.JSONRPCError)
	assert.True(ok)
}
