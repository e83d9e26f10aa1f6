package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/ragblade"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func errorResponse(id mcp.RequestId, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

func MethodNotFound(id mcp.RequestId) mcp.JSONRPCError {
	return errorResponse(id, mcp.METHOD_NOT_FOUND, "method not found")
}

func ParseError(id mcp.RequestId, err error) mcp.JSONRPCError {
	return errorResponse(id, mcp.PARSE_ERROR, err.Error())
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const MCPSERVER_INSTRUCTIONS string = `RAGBlade answers questions from a collection of customer product reviews.

Available tools:
- answer_question: retrieve the most relevant reviews and generate a grounded answer
- search_documents: return the most relevant reviews with their similarity scores, without generating

Answers cite only the retrieved reviews; when nothing relevant is stored the answer says so.`

const (
	ToolAnswerQuestion  = "answer_question"
	ToolSearchDocuments = "search_documents"
)

var Tools = []mcp.Tool{
	mcp.NewTool(ToolAnswerQuestion,
		mcp.WithDescription("Answer a question using the reviews stored in the collection."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
	),
	mcp.NewTool(ToolSearchDocuments,
		mcp.WithDescription("Find the reviews most similar to a query."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language search query"),
		),
	),
}

// MakeEndpoints maps every supported MCP method to its endpoint.
func MakeEndpoints(svc ragblade.Service) map[mcp.MCPMethod]MCPEndpoint {
	return map[mcp.MCPMethod]MCPEndpoint{
		mcp.MethodInitialize: InitializeEndpoint(svc),
		mcp.MethodPing:       PingEndpoint(svc),
		mcp.MethodToolsList:  ListToolsEndpoint(svc),
		mcp.MethodToolsCall:  CallToolEndpoint(svc),
	}
}

func InitializeEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "ragblade",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{},
		}
	}
}

func ListToolsEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: Tools,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func CallToolEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		callToolReq := mcp.CallToolRequest{
			Request: mcp.Request{
				Method: string(req.Method),
			},
			Params: params,
		}

		query, err := queryArgument(callToolReq)
		if err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		var result *mcp.CallToolResult

		switch params.Name {
		case ToolAnswerQuestion:
			result = answerQuestion(ctx, svc, query)

		case ToolSearchDocuments:
			result = searchDocuments(ctx, svc, query)

		default:
			msg := fmt.Sprintf("unknown tool: %s", params.Name)
			return errorResponse(req.ID, mcp.INVALID_PARAMS, msg)
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func queryArgument(req mcp.CallToolRequest) (string, error) {
	query, ok := req.GetArguments()["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return "", errors.New("argument \"query\" is required")
	}

	return query, nil
}

// Service failures are reported as tool errors so the calling model can see
// them; only malformed calls become JSON-RPC errors.
func answerQuestion(ctx context.Context, svc ragblade.Service, query string) *mcp.CallToolResult {
	answer, err := svc.Answer(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}

	bs, err := json.Marshal(answer)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}

	result := mcp.NewToolResultText(answer.Response)
	result.Content = append(result.Content, mcp.NewTextContent(string(bs)))
	return result
}

func searchDocuments(ctx context.Context, svc ragblade.Service, query string) *mcp.CallToolResult {
	docs, err := svc.Retrieve(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}

	bs, err := json.Marshal(docs)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}

	return mcp.NewToolResultText(string(bs))
}
