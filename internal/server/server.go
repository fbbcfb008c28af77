package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ironsheep/pixelcodec/internal/constitute"
)

// Version is reported in serverInfo during initialize.
var Version = "0.1.0"

const (
	jsonrpcVersion  = "2.0"
	protocolVersion = "2024-11-05"

	// maxRequestSize bounds one request line; pixels_import payloads are
	// base64 samples carried inline.
	maxRequestSize = 64 << 20
)

// JSON-RPC error codes.
const (
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeToolFailed     = -32000
)

// Server answers MCP requests with the codec tools.
type Server struct {
	dispatcher *constitute.Dispatcher
	cache      *ImageCache
}

// MCPRequest is an incoming JSON-RPC request or notification. Notifications
// carry no ID.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse carries either Result or Error.
type MCPResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *MCPError `json:"error,omitempty"`
}

type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      serverInfo     `json:"serverInfo"`
}

func reply(id, result any) *MCPResponse {
	return &MCPResponse{JSONRPC: jsonrpcVersion, ID: id, Result: result}
}

func fail(id any, code int, message string, data any) *MCPResponse {
	return &MCPResponse{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Error:   &MCPError{Code: code, Message: message, Data: data},
	}
}

// New creates a server that reads and writes images through d. A nil d
// uses the process-wide dispatcher.
func New(d *constitute.Dispatcher) *Server {
	if d == nil {
		d = constitute.Default()
	}
	return &Server{dispatcher: d, cache: NewImageCache(d)}
}

// Run serves stdin and stdout until stdin closes or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve processes newline delimited requests from r until r is exhausted or
// ctx is cancelled. Responses are written to w, one per line. Cached images
// are released when Serve returns.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	defer s.cache.Clear()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxRequestSize)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			slog.Warn("server: dropping malformed request", "error", err, "bytes", len(line))
			continue
		}
		resp := s.handleRequest(ctx, &req)
		if resp == nil {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("writing response to %s: %w", req.Method, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading requests: %w", err)
	}
	return nil
}

// handleRequest returns nil for notifications.
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	slog.Debug("server: request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		return reply(req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    map[string]any{"tools": struct{}{}},
			ServerInfo:      serverInfo{Name: "pixelcodec", Version: Version},
		})
	case "ping":
		return reply(req.ID, struct{}{})
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	}
	if req.ID == nil {
		// notifications/initialized, notifications/cancelled and friends
		return nil
	}
	return fail(req.ID, codeMethodNotFound, "Method not found: "+req.Method, nil)
}
