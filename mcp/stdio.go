package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

// StdioServer serves newline delimited JSON-RPC requests, one response line
// per request. Notifications are read and dropped; unparsable lines get a
// parse error with a null id.
type StdioServer interface {
	AddEndpoint(method mcp.MCPMethod, endpoint MCPEndpoint) error
	Listen(ctx context.Context) error
}

func NewStdioServer(in io.Reader, out io.Writer) StdioServer {
	return &stdioServer{
		in:        in,
		out:       out,
		endpoints: make(map[mcp.MCPMethod]MCPEndpoint),
	}
}

type stdioServer struct {
	in        io.Reader
	out       io.Writer
	endpoints map[mcp.MCPMethod]MCPEndpoint
	sync.RWMutex
}

func (s *stdioServer) AddEndpoint(method mcp.MCPMethod, endpoint MCPEndpoint) error {
	s.Lock()
	defer s.Unlock()

	_, ok := s.endpoints[method]
	if ok {
		return errors.New("endpoint already exists")
	}

	s.endpoints[method] = endpoint
	return nil
}

func (s *stdioServer) Listen(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lines := make(chan string)
	errs := make(chan error, 1)

	go func(ctx context.Context, lines chan<- string, errs chan<- error) {
		defer close(lines)

		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}(ctx, lines, errs)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errs:
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err

		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errs:
					return err
				default:
					return nil
				}
			}

			if line == "" {
				continue
			}

			var resp mcp.JSONRPCMessage

			var req JSONRPCRequest
			if err := json.Unmarshal([]byte(line), &req); err != nil {
				resp = ParseError(mcp.RequestId{}, err)
			} else if req.ID.IsNil() {
				continue
			} else {
				resp = s.handle(ctx, req)
			}

			bs, err := json.Marshal(resp)
			if err != nil {
				continue
			}

			if _, err := fmt.Fprintf(s.out, "%s\n", bs); err != nil {
				return err
			}
		}
	}
}

func (s *stdioServer) handle(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
	s.RLock()
	endpoint, ok := s.endpoints[req.Method]
	s.RUnlock()

	if !ok {
		return MethodNotFound(req.ID)
	}

	return endpoint(ctx, req)
}
