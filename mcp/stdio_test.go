package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
)

func TestStdioServer(t *testing.T) {
	assert := assert.New(t)

	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/list"}`,
	}, "\n"))

	var out strings.Builder

	s := NewStdioServer(in, &out)
	for method, endpoint := range MakeEndpoints(&stubService{}) {
		assert.NoError(s.AddEndpoint(method, endpoint))
	}

	assert.Error(s.AddEndpoint(mcp.MethodPing, PingEndpoint(&stubService{})))

	err := s.Listen(context.Background())
	assert.NoError(err)

	scanner := bufio.NewScanner(strings.NewReader(out.String()))

	var lines []map[string]any
	for scanner.Scan() {
		var line map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			assert.Fail(err.Error())
			return
		}

		lines = append(lines, line)
	}

	if !assert.Len(lines, 3) {
		return
	}

	assert.Equal(float64(1), lines[0]["id"])
	assert.Contains(lines[0], "result")

	assert.Contains(lines[1], "id")
	assert.Nil(lines[1]["id"])
	if rpcErr, ok := lines[1]["error"].(map[string]any); assert.True(ok) {
		assert.Equal(float64(mcp.PARSE_ERROR), rpcErr["code"])
	}

	assert.Equal(float64(2), lines[2]["id"])
	assert.Contains(lines[2], "error")
}
