package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvasudev/tcpsock/internal/errors"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		code     errors.Code
		category errors.Category
	}{
		{"not found", errors.NewNotFound("conn-1"), errors.ErrNotFound, errors.CodeNotFound, errors.CategoryRegistry},
		{"duplicate id", errors.NewDuplicateID("conn-1"), errors.ErrDuplicateID, errors.CodeDuplicateID, errors.CategoryRegistry},
		{"connect failed", errors.NewConnectFailed(errors.New("refused"), "host:1"), errors.ErrConnectFailed, errors.CodeConnectFailed, errors.CategoryNetwork},
		{"send failed", errors.NewSendFailed(errors.New("broken pipe"), "conn-1"), errors.ErrSendFailed, errors.CodeSendFailed, errors.CategoryNetwork},
		{"decode", errors.NewDecodeError(errors.New("odd length"), "hex"), errors.ErrDecode, errors.CodeDecode, errors.CategoryCodec},
		{"trigger", errors.NewTriggerError(errors.New("bad pattern"), "t1"), errors.ErrTrigger, errors.CodeTrigger, errors.CategoryTrigger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.code, errors.CodeOf(tt.err))

			var se *errors.SocketError
			require.True(t, errors.As(tt.err, &se))
			assert.Equal(t, tt.category, se.Category)
			assert.False(t, se.Timestamp.IsZero())
		})
	}
}

func TestErrorString(t *testing.T) {
	err := errors.NewNotFound("conn-1")
	assert.Contains(t, err.Error(), "REGISTRY")
	assert.Contains(t, err.Error(), "conn-1")

	bare := &errors.SocketError{Err: errors.New("boom"), Category: errors.CategoryNetwork}
	assert.Equal(t, "[NETWORK] boom", bare.Error())
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := errors.NewConnectFailed(cause, "10.0.0.1:6667")

	assert.True(t, errors.Is(err, cause))

	// Wrapping again keeps both the sentinel and the cause reachable.
	wrapped := fmt.Errorf("create: %w", err)
	assert.True(t, errors.Is(wrapped, errors.ErrConnectFailed))
	assert.Equal(t, errors.CodeConnectFailed, errors.CodeOf(wrapped))
}

func TestSendFailedOnClosedConnection(t *testing.T) {
	err := errors.NewSendFailed(errors.ErrNotOpen, "conn-1")
	assert.True(t, errors.Is(err, errors.ErrSendFailed))
	assert.True(t, errors.Is(err, errors.ErrNotOpen))
}

func TestCodeOfUnknownError(t *testing.T) {
	assert.Equal(t, errors.Code("internal_error"), errors.CodeOf(errors.New("plain")))
}

func TestHelpers(t *testing.T) {
	assert.True(t, errors.IsNotFound(errors.NewNotFound("x")))
	assert.False(t, errors.IsNotFound(errors.NewDuplicateID("x")))
	assert.True(t, errors.IsDecode(errors.NewDecodeError(errors.New("bad"), "base64")))
	assert.False(t, errors.IsDecode(errors.New("other")))
}
