// Package mcpserver serves the droid tool over the Model Context Protocol on
// stdio.
package mcpserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mylxsw/asteria/log"
	"github.com/supremeagent/droidexec/pkg/sdk"
	"golang.org/x/sync/errgroup"
)

var logger = log.Module("mcp")

var nullID = []byte("null")

// Options configures a Server.
type Options struct {
	Name    string
	Version string
	// MaxConcurrentCalls bounds in-flight tool calls; zero means unbounded.
	MaxConcurrentCalls int
}

// Server is a JSON-RPC 2.0 MCP server. Tool calls run concurrently; every
// other request is answered inline in arrival order.
type Server struct {
	client *sdk.Client
	opts   Options

	reader *bufio.Reader

	writeMu  sync.Mutex
	writer   *bufio.Writer
	lineJSON bool

	mu      sync.Mutex
	pending map[string]context.CancelFunc
}

// New creates a server reading requests from in and writing replies to out.
func New(client *sdk.Client, in io.Reader, out io.Writer, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "droidexec"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Server{
		client:   client,
		opts:     opts,
		reader:   bufio.NewReader(in),
		writer:   bufio.NewWriter(out),
		lineJSON: true,
		pending:  make(map[string]context.CancelFunc),
	}
}

// Serve processes requests until the input ends, an exit notification
// arrives, or a reply cannot be written. On end of input it waits for
// in-flight tool calls to reply; on exit it cancels them.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if s.opts.MaxConcurrentCalls > 0 {
		g.SetLimit(s.opts.MaxConcurrentCalls)
	}

	readErr := s.loop(gctx, g, cancel)
	waitErr := g.Wait()

	if readErr != nil {
		return readErr
	}
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return waitErr
	}
	return nil
}

func (s *Server) loop(ctx context.Context, g *errgroup.Group, cancel context.CancelFunc) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		payload, lineJSON, err := readMessage(s.reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("mcp: read request: %w", err)
		}
		s.setFraming(lineJSON)

		var req rpcRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			logger.Warningf("failed to parse request: %v", err)
			if err := s.reply(rpcResponse{Error: &rpcError{Code: codeParseError, Message: "parse error"}}); err != nil {
				return err
			}
			continue
		}

		switch req.Method {
		case "":
			// Replies to server-initiated requests are not expected.
			continue
		case "exit":
			cancel()
			return nil
		case "notifications/initialized":
			logger.Debugf("client initialized")
			continue
		case "notifications/cancelled":
			s.cancelPending(req.Params)
			continue
		case "tools/call":
			if req.isNotification() {
				continue
			}
			callCtx, done := s.track(ctx, req.ID)
			g.Go(func() error {
				defer done()
				return s.reply(s.handleToolCall(callCtx, req))
			})
			continue
		}

		if strings.HasPrefix(req.Method, "notifications/") {
			continue
		}
		resp := s.handle(req)
		if req.isNotification() {
			continue
		}
		if err := s.reply(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handle(req rpcRequest) rpcResponse {
	resp := rpcResponse{ID: req.ID}
	if req.JSONRPC != "" && req.JSONRPC != "2.0" {
		resp.Error = &rpcError{Code: codeInvalidRequest, Message: "unsupported jsonrpc version"}
		return resp
	}

	switch req.Method {
	case "initialize":
		version := DefaultProtocolVersion
		var params initializeParams
		if err := json.Unmarshal(req.Params, &params); err == nil {
			if v := strings.TrimSpace(params.ProtocolVersion); v != "" {
				version = v
			}
		}
		resp.Result = initializeResult{
			ProtocolVersion: version,
			Capabilities: map[string]any{
				"tools": map[string]any{"listChanged": false},
			},
			ServerInfo:   serverInfo{Name: s.opts.Name, Version: s.opts.Version},
			Instructions: s.client.Instructions(),
		}
	case "ping":
		resp.Result = map[string]any{}
	case "tools/list":
		resp.Result = map[string]any{"tools": []tool{droidTool()}}
	default:
		resp.Error = &rpcError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
	}
	return resp
}

func (s *Server) handleToolCall(ctx context.Context, req rpcRequest) rpcResponse {
	resp := rpcResponse{ID: req.ID}

	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		resp.Error = &rpcError{Code: codeInvalidParams, Message: "invalid tool call params"}
		return resp
	}
	if params.Name != ToolName {
		resp.Error = &rpcError{Code: codeInvalidParams, Message: "unknown tool: " + params.Name}
		return resp
	}

	result, rpcErr := s.callDroid(ctx, params.Arguments)
	if rpcErr != nil {
		resp.Error = rpcErr
		return resp
	}
	resp.Result = result
	return resp
}

// track registers a cancellable context for an in-flight request.
func (s *Server) track(ctx context.Context, id []byte) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	key := string(id)

	s.mu.Lock()
	s.pending[key] = cancel
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
		cancel()
	}
}

func (s *Server) cancelPending(raw []byte) {
	var params cancelledParams
	if err := json.Unmarshal(raw, &params); err != nil || len(params.RequestID) == 0 {
		return
	}

	s.mu.Lock()
	cancel, ok := s.pending[string(params.RequestID)]
	s.mu.Unlock()

	if ok {
		logger.Infof("cancelling request %s: %s", params.RequestID, params.Reason)
		cancel()
	}
}

func (s *Server) setFraming(lineJSON bool) {
	s.writeMu.Lock()
	s.lineJSON = lineJSON
	s.writeMu.Unlock()
}

func (s *Server) reply(resp rpcResponse) error {
	resp.JSONRPC = "2.0"
	if len(resp.ID) == 0 {
		resp.ID = nullID
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("mcp: encode response: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := writeMessage(s.writer, payload, s.lineJSON); err != nil {
		return fmt.Errorf("mcp: write response: %w", err)
	}
	return nil
}
