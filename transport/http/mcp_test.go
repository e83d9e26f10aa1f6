package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	mcpE "github.com/flarexio/ragblade/mcp"
)

func TestMCPStreamableHandler(t *testing.T) {
	assert := assert.New(t)

	endpoints := map[mcp.MCPMethod]mcpE.MCPEndpoint{
		mcp.MethodPing: func(ctx context.Context, req mcpE.JSONRPCRequest) mcp.JSONRPCMessage {
			return mcp.JSONRPCResponse{
				JSONRPC: mcp.JSONRPC_VERSION,
				ID:      req.ID,
				Result:  struct{}{},
			}
		},
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	AddStreamableRouters(r, endpoints)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/mcp/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	assert.Equal(http.StatusOK, w.Code)
	assert.JSONEq(`{"jsonrpc":"2.0","id":1,"result":{}}`, w.Body.String())

	w = post(`{"jsonrpc":"2.0","id":2,"method":"prompts/list"}`)
	assert.Equal(http.StatusNotFound, w.Code)
	assert.Contains(w.Body.String(), "method not found")

	w = post(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Equal(http.StatusAccepted, w.Code)
}
