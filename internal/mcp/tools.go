package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/kvasudev/tcpsock/internal/errors"
)

// Typed argument structs, one per tool. Arguments are validated here,
// at the boundary, before anything reaches the registry.

type connectArgs struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ConnectionID string `json:"connection_id,omitempty"`
}

func (a *connectArgs) validate() error {
	if a.Host == "" {
		return argError("host is required")
	}
	if a.Port < 1 || a.Port > 65535 {
		return argError("port must be in range 1-65535")
	}
	return nil
}

type disconnectArgs struct {
	ConnectionID string `json:"connection_id"`
}

func (a *disconnectArgs) validate() error {
	if a.ConnectionID == "" {
		return argError("connection_id is required")
	}
	return nil
}

type sendArgs struct {
	ConnectionID string `json:"connection_id"`
	Data         string `json:"data"`
	Encoding     string `json:"encoding,omitempty"`
	Terminator   string `json:"terminator,omitempty"`
}

func (a *sendArgs) validate() error {
	if a.ConnectionID == "" {
		return argError("connection_id is required")
	}
	if a.Data == "" {
		return argError("data is required")
	}
	return validEncoding(a.Encoding)
}

type readBufferArgs struct {
	ConnectionID string `json:"connection_id"`
	Index        *int   `json:"index,omitempty"`
	Count        *int   `json:"count,omitempty"`
	Format       string `json:"format,omitempty"`
}

func (a *readBufferArgs) validate() error {
	if a.ConnectionID == "" {
		return argError("connection_id is required")
	}
	if a.Index != nil && *a.Index < 0 {
		return argError("index must be non-negative")
	}
	if a.Count != nil && *a.Count < 0 {
		return argError("count must be non-negative")
	}
	return validEncoding(a.Format)
}

type bufferArgs struct {
	ConnectionID string `json:"connection_id"`
}

func (a *bufferArgs) validate() error {
	if a.ConnectionID == "" {
		return argError("connection_id is required")
	}
	return nil
}

type setTriggerArgs struct {
	ConnectionID       string `json:"connection_id"`
	TriggerID          string `json:"trigger_id"`
	Pattern            string `json:"pattern"`
	Response           string `json:"response"`
	ResponseEncoding   string `json:"response_encoding,omitempty"`
	ResponseTerminator string `json:"response_terminator,omitempty"`
}

func (a *setTriggerArgs) validate() error {
	if a.ConnectionID == "" {
		return argError("connection_id is required")
	}
	if a.TriggerID == "" {
		return argError("trigger_id is required")
	}
	if a.Pattern == "" {
		return argError("pattern is required")
	}
	return validEncoding(a.ResponseEncoding)
}

type removeTriggerArgs struct {
	ConnectionID string `json:"connection_id"`
	TriggerID    string `json:"trigger_id"`
}

func (a *removeTriggerArgs) validate() error {
	if a.ConnectionID == "" {
		return argError("connection_id is required")
	}
	if a.TriggerID == "" {
		return argError("trigger_id is required")
	}
	return nil
}

type connectAndSendArgs struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Data         string `json:"data"`
	ConnectionID string `json:"connection_id,omitempty"`
	Encoding     string `json:"encoding,omitempty"`
	Terminator   string `json:"terminator,omitempty"`
}

func (a *connectAndSendArgs) validate() error {
	if a.Host == "" {
		return argError("host is required")
	}
	if a.Port < 1 || a.Port > 65535 {
		return argError("port must be in range 1-65535")
	}
	if a.Data == "" {
		return argError("data is required")
	}
	return validEncoding(a.Encoding)
}

func argError(msg string) error {
	return &errors.SocketError{
		Err:      errors.New(msg),
		Code:     errors.CodeInvalidArgs,
		Category: errors.CategoryRegistry,
	}
}

func validEncoding(name string) error {
	switch name {
	case "", "utf-8", "hex", "base64":
		return nil
	default:
		return argError(fmt.Sprintf("unknown encoding %q", name))
	}
}

type validator interface {
	validate() error
}

// decodeArgs unmarshals raw tool arguments into the tool's typed
// struct and validates them.
func decodeArgs(raw json.RawMessage, into validator) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, into); err != nil {
			return argError(fmt.Sprintf("malformed arguments: %v", err))
		}
	}
	return into.validate()
}

var encodingEnum = []string{"utf-8", "hex", "base64"}

func toolDefinitions() []ToolDefinition {
	connectionIDProp := Property{Type: "string", Description: "Connection ID from tcp_connect"}

	return []ToolDefinition{
		{
			Name:        "tcp_connect",
			Description: "Open a new TCP connection. Returns a connection_id used by all other tools. The ID is generated unless one is supplied; a duplicate ID is an error.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"host":          {Type: "string", Description: "Target host address"},
					"port":          {Type: "integer", Description: "Target port number (1-65535)"},
					"connection_id": {Type: "string", Description: "Optional custom connection ID"},
				},
				Required: []string{"host", "port"},
			},
		},
		{
			Name:        "tcp_disconnect",
			Description: "Close a TCP connection and free its buffer and triggers.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"connection_id": {Type: "string", Description: "Connection ID to close"},
				},
				Required: []string{"connection_id"},
			},
		},
		{
			Name:        "tcp_send",
			Description: "Send data over an open connection. Encodings: utf-8 (default), hex (plain pairs like 48656C6C6F or \\xNN escapes), base64. The optional terminator is a hex suffix such as 0D0A for CRLF and is appended regardless of encoding.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"connection_id": connectionIDProp,
					"data":          {Type: "string", Description: "Data to send (text, hex pairs, or base64)"},
					"encoding":      {Type: "string", Description: "Data encoding", Enum: encodingEnum},
					"terminator":    {Type: "string", Description: "Optional terminator as hex pairs (e.g. 0D0A)"},
				},
				Required: []string{"connection_id", "data"},
			},
		},
		{
			Name:        "tcp_read_buffer",
			Description: "Read received chunks from a connection's buffer without consuming them. Data arrives asynchronously; use tcp_buffer_info to check arrival first. Formats: utf-8 (invalid bytes replaced), hex, base64.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"connection_id": connectionIDProp,
					"index":         {Type: "integer", Description: "Starting chunk index (0-based)"},
					"count":         {Type: "integer", Description: "Number of chunks to read"},
					"format":        {Type: "string", Description: "Output format", Enum: encodingEnum},
				},
				Required: []string{"connection_id"},
			},
		},
		{
			Name:        "tcp_clear_buffer",
			Description: "Clear all received chunks from a connection's buffer. Byte counters and triggers are unaffected.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"connection_id": connectionIDProp,
				},
				Required: []string{"connection_id"},
			},
		},
		{
			Name:        "tcp_buffer_info",
			Description: "Get buffer statistics (chunk count, total size, bytes sent/received, last receive time) without consuming data.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"connection_id": connectionIDProp,
				},
				Required: []string{"connection_id"},
			},
		},
		{
			Name:        "tcp_set_trigger",
			Description: "Set an automatic response for a regex pattern match on inbound data. Capture groups substitute into the response via $1..$n. May be called before the connection exists; the trigger activates automatically when that connection_id connects (status \"pending\").",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"connection_id":       connectionIDProp,
					"trigger_id":          {Type: "string", Description: "Unique trigger ID"},
					"pattern":             {Type: "string", Description: "Regex pattern to match (\\xNN escapes match raw bytes)"},
					"response":            {Type: "string", Description: "Response data to send"},
					"response_encoding":   {Type: "string", Description: "Response encoding", Enum: encodingEnum},
					"response_terminator": {Type: "string", Description: "Optional terminator as hex pairs"},
				},
				Required: []string{"connection_id", "trigger_id", "pattern", "response"},
			},
		},
		{
			Name:        "tcp_remove_trigger",
			Description: "Remove a trigger from a connection's active set or from the pending store.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"connection_id": connectionIDProp,
					"trigger_id":    {Type: "string", Description: "Trigger ID to remove"},
				},
				Required: []string{"connection_id", "trigger_id"},
			},
		},
		{
			Name:        "tcp_connect_and_send",
			Description: "Connect and immediately send data in one atomic operation. Preferred over separate connect/send for handshakes and banner grabbing. A send failure tears the connection back down.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"host":          {Type: "string", Description: "Target host address"},
					"port":          {Type: "integer", Description: "Target port number (1-65535)"},
					"data":          {Type: "string", Description: "Data to send immediately"},
					"connection_id": {Type: "string", Description: "Optional custom connection ID"},
					"encoding":      {Type: "string", Description: "Data encoding", Enum: encodingEnum},
					"terminator":    {Type: "string", Description: "Optional terminator as hex pairs"},
				},
				Required: []string{"host", "port", "data"},
			},
		},
		{
			Name:        "tcp_list_connections",
			Description: "List all active TCP connections with status and traffic counters, in creation order.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{},
			},
		},
		{
			Name:        "tcp_connection_info",
			Description: "Get detailed information about one connection: status, creation time, buffer statistics, and active triggers.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"connection_id": connectionIDProp,
				},
				Required: []string{"connection_id"},
			},
		},
	}
}
