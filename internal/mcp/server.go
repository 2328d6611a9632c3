// Package mcp implements the MCP stdio server that exposes the
// connection registry as tcp_* tools. Messages are newline-delimited
// JSON-RPC 2.0 on stdin/stdout.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kvasudev/tcpsock/internal/codec"
	"github.com/kvasudev/tcpsock/internal/errors"
	"github.com/kvasudev/tcpsock/internal/logger"
	"github.com/kvasudev/tcpsock/internal/registry"
	"github.com/kvasudev/tcpsock/internal/trigger"
)

const (
	ProtocolVersion = "2024-11-05"
	ServerName      = "tcpsock"
	ServerVersion   = "1.0.0"
)

// Server reads JSON-RPC requests line by line and dispatches tool
// calls to the registry.
type Server struct {
	reader   *bufio.Reader
	writer   io.Writer
	writeMu  sync.Mutex
	registry *registry.Registry
	sendWait time.Duration
	ctx      context.Context
}

// NewServer wires a server to its streams and registry. sendWait is
// the grace period tcp_connect_and_send allows for an immediate
// response before reporting buffer state.
func NewServer(ctx context.Context, r io.Reader, w io.Writer, reg *registry.Registry, sendWait time.Duration) *Server {
	return &Server{
		reader:   bufio.NewReader(r),
		writer:   w,
		registry: reg,
		sendWait: sendWait,
		ctx:      ctx,
	}
}

// Run processes requests until EOF or a read error.
func (s *Server) Run() error {
	logger.Infof("mcp server starting")

	for {
		line, err := s.reader.ReadString('\n')
		if err == io.EOF {
			logger.Infof("EOF received, shutting down")
			return nil
		}
		if err != nil {
			logger.Errorf("read error: %v", err)
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			logger.Errorf("JSON parse error: %v", err)
			s.sendError(nil, -32700, "Parse error", nil)
			continue
		}

		s.handleRequest(&req)
	}
}

func (s *Server) handleRequest(req *JSONRPCRequest) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "initialized", "notifications/initialized":
		logger.Debugf("initialized notification received")
	case "tools/list":
		s.sendResult(req.ID, ToolsListResult{Tools: toolDefinitions()})
	case "tools/call":
		s.handleToolsCall(req)
	default:
		logger.Warnf("unknown method %q", req.Method)
		s.sendError(req.ID, -32601, "Method not found", nil)
	}
}

func (s *Server) handleInitialize(req *JSONRPCRequest) {
	s.sendResult(req.ID, InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: Capability{
			Tools: &ToolCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    ServerName,
			Version: ServerVersion,
		},
		Instructions: "Raw TCP socket access: open connections, send and receive bytes, and set pattern-matched auto-responses.",
	})
}

func (s *Server) handleToolsCall(req *JSONRPCRequest) {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		logger.Errorf("failed to parse tool call params: %v", err)
		s.sendError(req.ID, -32602, "Invalid params", nil)
		return
	}

	payload, err := s.callTool(params.Name, params.Arguments)
	if err != nil {
		logger.Warnf("tool %s failed: %v", params.Name, err)
		s.sendToolResult(req.ID, true, errorBody(err))
		return
	}
	s.sendToolResult(req.ID, false, payload)
}

// callTool runs one tool invocation and returns its success payload.
func (s *Server) callTool(name string, args json.RawMessage) (any, error) {
	switch name {
	case "tcp_connect":
		return s.toolConnect(args)
	case "tcp_disconnect":
		return s.toolDisconnect(args)
	case "tcp_send":
		return s.toolSend(args)
	case "tcp_read_buffer":
		return s.toolReadBuffer(args)
	case "tcp_clear_buffer":
		return s.toolClearBuffer(args)
	case "tcp_buffer_info":
		return s.toolBufferInfo(args)
	case "tcp_set_trigger":
		return s.toolSetTrigger(args)
	case "tcp_remove_trigger":
		return s.toolRemoveTrigger(args)
	case "tcp_connect_and_send":
		return s.toolConnectAndSend(args)
	case "tcp_list_connections":
		return s.toolListConnections()
	case "tcp_connection_info":
		return s.toolConnectionInfo(args)
	default:
		return nil, argError(fmt.Sprintf("unknown tool %q", name))
	}
}

func (s *Server) toolConnect(args json.RawMessage) (any, error) {
	var a connectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	c, applied, err := s.registry.Create(s.ctx, a.Host, a.Port, a.ConnectionID)
	if err != nil {
		return nil, err
	}

	result := map[string]any{
		"success":       true,
		"connection_id": c.ID,
		"host":          c.Host,
		"port":          c.Port,
		"status":        c.Status().String(),
	}
	if len(applied) > 0 {
		result["applied_triggers"] = applied
		result["message"] = fmt.Sprintf("Applied %d pre-registered trigger(s)", len(applied))
	}
	return result, nil
}

func (s *Server) toolDisconnect(args json.RawMessage) (any, error) {
	var a disconnectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	if err := s.registry.Remove(a.ConnectionID); err != nil {
		return nil, err
	}

	return map[string]any{
		"success":       true,
		"connection_id": a.ConnectionID,
		"closed":        true,
	}, nil
}

func (s *Server) toolSend(args json.RawMessage) (any, error) {
	var a sendArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	payload, err := encodePayload(a.Data, a.Encoding, a.Terminator)
	if err != nil {
		return nil, err
	}

	c, err := s.registry.Get(a.ConnectionID)
	if err != nil {
		return nil, err
	}

	n, err := c.Send(payload)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success":       true,
		"connection_id": a.ConnectionID,
		"bytes_sent":    n,
	}, nil
}

func (s *Server) toolReadBuffer(args json.RawMessage) (any, error) {
	var a readBufferArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	c, err := s.registry.Get(a.ConnectionID)
	if err != nil {
		return nil, err
	}

	format, err := codec.ParseEncoding(a.Format)
	if err != nil {
		return nil, err
	}

	data := c.ReadBuffer(a.Index, a.Count, format)
	return map[string]any{
		"connection_id": a.ConnectionID,
		"chunks":        len(data),
		"data":          data,
		"format":        string(format),
	}, nil
}

func (s *Server) toolClearBuffer(args json.RawMessage) (any, error) {
	var a bufferArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	c, err := s.registry.Get(a.ConnectionID)
	if err != nil {
		return nil, err
	}

	c.ClearBuffer()
	return map[string]any{
		"success":       true,
		"connection_id": a.ConnectionID,
		"cleared":       true,
	}, nil
}

func (s *Server) toolBufferInfo(args json.RawMessage) (any, error) {
	var a bufferArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	c, err := s.registry.Get(a.ConnectionID)
	if err != nil {
		return nil, err
	}

	stats := c.BufferStats()
	return map[string]any{
		"connection_id":  a.ConnectionID,
		"chunks":         stats.Chunks,
		"total_size":     stats.TotalSize,
		"bytes_sent":     stats.BytesSent,
		"bytes_received": stats.BytesReceived,
		"last_received":  stats.LastReceivedAt,
		"status":         c.Status().String(),
	}, nil
}

func (s *Server) toolSetTrigger(args json.RawMessage) (any, error) {
	var a setTriggerArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	t, err := trigger.New(a.TriggerID, a.Pattern, a.Response, a.ResponseEncoding, a.ResponseTerminator)
	if err != nil {
		return nil, err
	}

	placement := s.registry.RegisterTrigger(a.ConnectionID, t)
	result := map[string]any{
		"success":       true,
		"connection_id": a.ConnectionID,
		"trigger_id":    a.TriggerID,
		"pattern":       a.Pattern,
		"status":        placement,
	}
	if placement == registry.TriggerPending {
		result["message"] = "Trigger pre-registered and will activate when connection is established"
	}
	return result, nil
}

func (s *Server) toolRemoveTrigger(args json.RawMessage) (any, error) {
	var a removeTriggerArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	placement, err := s.registry.RemoveTrigger(a.ConnectionID, a.TriggerID)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success":       true,
		"connection_id": a.ConnectionID,
		"trigger_id":    a.TriggerID,
		"status":        placement,
	}, nil
}

func (s *Server) toolConnectAndSend(args json.RawMessage) (any, error) {
	var a connectAndSendArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	payload, err := encodePayload(a.Data, a.Encoding, a.Terminator)
	if err != nil {
		return nil, err
	}

	c, applied, n, err := s.registry.CreateAndSend(s.ctx, a.Host, a.Port, a.ConnectionID, payload)
	if err != nil {
		return nil, err
	}

	// Give the peer a moment to answer so callers learn whether an
	// immediate response arrived.
	time.Sleep(s.sendWait)

	stats := c.BufferStats()
	result := map[string]any{
		"success":            true,
		"connection_id":      c.ID,
		"host":               c.Host,
		"port":               c.Port,
		"bytes_sent":         n,
		"status":             c.Status().String(),
		"immediate_response": stats.Chunks > 0,
		"buffer_chunks":      stats.Chunks,
	}
	if len(applied) > 0 {
		result["applied_triggers"] = applied
		result["message"] = fmt.Sprintf("Applied %d pre-registered trigger(s)", len(applied))
	}
	return result, nil
}

func (s *Server) toolListConnections() (any, error) {
	summaries := s.registry.List()
	return map[string]any{
		"total_connections": len(summaries),
		"connections":       summaries,
	}, nil
}

func (s *Server) toolConnectionInfo(args json.RawMessage) (any, error) {
	var a bufferArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	c, err := s.registry.Get(a.ConnectionID)
	if err != nil {
		return nil, err
	}

	return c.Detail(), nil
}

// encodePayload converts textual tool data into wire bytes and
// appends the optional hex terminator.
func encodePayload(data, encoding, terminator string) ([]byte, error) {
	enc, err := codec.ParseEncoding(encoding)
	if err != nil {
		return nil, err
	}

	payload, err := codec.Encode(data, enc)
	if err != nil {
		return nil, err
	}

	return codec.WithTerminator(payload, terminator)
}

// errorBody is the JSON error payload embedded in tool result content.
func errorBody(err error) any {
	return map[string]any{
		"error":   string(errors.CodeOf(err)),
		"message": err.Error(),
	}
}

// sendToolResult wraps a payload in a single JSON text content block.
func (s *Server) sendToolResult(id any, isError bool, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf("failed to marshal tool payload: %v", err)
		s.sendError(id, -32603, "Internal error", nil)
		return
	}

	s.sendResult(id, ToolCallResult{
		Content: []ContentItem{{Type: "text", Text: string(body)}},
		IsError: isError,
	})
}

func (s *Server) sendResult(id any, result any) {
	s.send(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (s *Server) sendError(id any, code int, message string, data any) {
	s.send(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &RPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}

func (s *Server) send(resp JSONRPCResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Errorf("failed to marshal response: %v", err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := fmt.Fprintf(s.writer, "%s\n", data); err != nil {
		logger.Errorf("failed to write response: %v", err)
	}
}
