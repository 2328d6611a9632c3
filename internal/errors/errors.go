package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	Is     = errors.Is
	As     = errors.As
	New    = errors.New
	Unwrap = errors.Unwrap
)

// Code is the stable wire-level error code surfaced to tool callers.
type Code string

const (
	CodeNotFound      Code = "not_found"
	CodeDuplicateID   Code = "duplicate_id"
	CodeConnectFailed Code = "connection_failed"
	CodeSendFailed    Code = "send_failed"
	CodeDecode        Code = "decode_error"
	CodeTrigger       Code = "trigger_error"
	CodeInvalidArgs   Code = "invalid_arguments"
)

type Category string

const (
	CategoryRegistry Category = "REGISTRY" // id lookup and lifecycle
	CategoryNetwork  Category = "NETWORK"  // dial and socket I/O
	CategoryCodec    Category = "CODEC"    // payload encoding/decoding
	CategoryTrigger  Category = "TRIGGER"  // pattern compile or fire failures
)

// Common sentinel errors.
var (
	ErrNotFound      = New("not found")
	ErrDuplicateID   = New("connection id already exists")
	ErrConnectFailed = New("connection failed")
	ErrSendFailed    = New("send failed")
	ErrNotOpen       = New("connection is not open")
	ErrDecode        = New("decode error")
	ErrTrigger       = New("trigger error")
)

// SocketError carries the structured result every failed operation
// returns to its caller. Nothing here is process-fatal.
type SocketError struct {
	Err       error
	Code      Code
	Category  Category
	Resource  string // connection or trigger id, host:port, payload kind
	Timestamp time.Time
}

func (e *SocketError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("[%s] %v", e.Category, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Resource, e.Err)
}

func (e *SocketError) Unwrap() error {
	return e.Err
}

// NewNotFound reports an unknown connection or trigger id.
func NewNotFound(resource string) *SocketError {
	return &SocketError{
		Err:       ErrNotFound,
		Code:      CodeNotFound,
		Category:  CategoryRegistry,
		Resource:  resource,
		Timestamp: time.Now(),
	}
}

// NewDuplicateID reports an id collision on create.
func NewDuplicateID(id string) *SocketError {
	return &SocketError{
		Err:       ErrDuplicateID,
		Code:      CodeDuplicateID,
		Category:  CategoryRegistry,
		Resource:  id,
		Timestamp: time.Now(),
	}
}

// NewConnectFailed reports a socket establishment failure.
func NewConnectFailed(err error, addr string) *SocketError {
	return &SocketError{
		Err:       fmt.Errorf("%w: %w", ErrConnectFailed, err),
		Code:      CodeConnectFailed,
		Category:  CategoryNetwork,
		Resource:  addr,
		Timestamp: time.Now(),
	}
}

// NewSendFailed reports a write on a non-open socket or an I/O failure.
func NewSendFailed(err error, id string) *SocketError {
	return &SocketError{
		Err:       fmt.Errorf("%w: %w", ErrSendFailed, err),
		Code:      CodeSendFailed,
		Category:  CategoryNetwork,
		Resource:  id,
		Timestamp: time.Now(),
	}
}

// NewDecodeError reports a malformed hex or base64 payload.
func NewDecodeError(err error, kind string) *SocketError {
	return &SocketError{
		Err:       fmt.Errorf("%w: %w", ErrDecode, err),
		Code:      CodeDecode,
		Category:  CategoryCodec,
		Resource:  kind,
		Timestamp: time.Now(),
	}
}

// NewTriggerError reports a pattern compile failure or a
// response-formatting failure at fire time.
func NewTriggerError(err error, triggerID string) *SocketError {
	return &SocketError{
		Err:       fmt.Errorf("%w: %w", ErrTrigger, err),
		Code:      CodeTrigger,
		Category:  CategoryTrigger,
		Resource:  triggerID,
		Timestamp: time.Now(),
	}
}

// CodeOf extracts the wire code from an error, defaulting to
// "internal_error" for anything outside the taxonomy.
func CodeOf(err error) Code {
	var se *SocketError
	if As(err, &se) {
		return se.Code
	}
	return Code("internal_error")
}

// IsNotFound reports whether err is a missing connection or trigger id.
func IsNotFound(err error) bool {
	return Is(err, ErrNotFound)
}

// IsDecode reports whether err is a malformed payload error.
func IsDecode(err error) bool {
	return Is(err, ErrDecode)
}
