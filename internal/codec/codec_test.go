package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvasudev/tcpsock/internal/codec"
	"github.com/kvasudev/tcpsock/internal/errors"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{name: "plain pairs", input: "48656c6c6f", want: []byte("Hello")},
		{name: "uppercase pairs", input: "48656C6C6F", want: []byte("Hello")},
		{name: "whitespace separated", input: "48 65 6c 6c 6f", want: []byte("Hello")},
		{name: "0x prefix stripped", input: "0x480x65", want: []byte("He")},
		{name: "newlines stripped", input: "48\n65\r\n6c", want: []byte("Hel")},
		{name: "escape sequences", input: `\x0d\x0a`, want: []byte{0x0d, 0x0a}},
		{name: "escapes with literal text", input: `PING\x0d\x0a`, want: []byte("PING\r\n")},
		{name: "literal between escapes", input: `\x01USER joe\x0d`, want: append(append([]byte{0x01}, []byte("USER joe")...), 0x0d)},
		{name: "empty", input: "", want: []byte{}},
		{name: "odd digit count", input: "48656", wantErr: true},
		{name: "non-hex digits", input: "zz", wantErr: true},
		{name: "malformed escape", input: `\xZZ`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.ParseHex(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsDecode(err), "expected a decode error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode(t *testing.T) {
	t.Run("utf-8 passes bytes through", func(t *testing.T) {
		got, err := codec.Encode("Hello\r\n", codec.Text)
		require.NoError(t, err)
		assert.Equal(t, []byte("Hello\r\n"), got)
	})

	t.Run("hex", func(t *testing.T) {
		got, err := codec.Encode("48656c6c6f", codec.Hex)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x48, 0x65, 0x6c, 0x6c, 0x6f}, got)
	})

	t.Run("base64", func(t *testing.T) {
		got, err := codec.Encode("SGVsbG8=", codec.Base64)
		require.NoError(t, err)
		assert.Equal(t, []byte("Hello"), got)
	})

	t.Run("invalid base64 is a hard decode error", func(t *testing.T) {
		_, err := codec.Encode("not valid base64!!!", codec.Base64)
		require.Error(t, err)
		assert.True(t, errors.IsDecode(err))
	})

	t.Run("invalid hex is a hard decode error", func(t *testing.T) {
		_, err := codec.Encode("GET / HTTP/1.1", codec.Hex)
		require.Error(t, err)
		assert.True(t, errors.IsDecode(err))
	})
}

func TestFormatRoundTrip(t *testing.T) {
	raw := []byte{0x00, 0x01, 0xfe, 0xff, 'a', 'b', 0x7f}

	t.Run("hex", func(t *testing.T) {
		text := codec.Format(raw, codec.Hex)
		back, err := codec.Encode(text, codec.Hex)
		require.NoError(t, err)
		assert.Equal(t, raw, back)
	})

	t.Run("base64", func(t *testing.T) {
		text := codec.Format(raw, codec.Base64)
		back, err := codec.Encode(text, codec.Base64)
		require.NoError(t, err)
		assert.Equal(t, raw, back)
	})

	t.Run("utf-8 round-trips only valid text", func(t *testing.T) {
		text := codec.Format([]byte("Hello"), codec.Text)
		back, err := codec.Encode(text, codec.Text)
		require.NoError(t, err)
		assert.Equal(t, []byte("Hello"), back)

		// Invalid sequences are replaced, not preserved.
		lossy := codec.Format([]byte{0xff, 0xfe}, codec.Text)
		assert.NotEqual(t, []byte{0xff, 0xfe}, []byte(lossy))
		assert.Contains(t, lossy, "�")
	})
}

func TestParseEncoding(t *testing.T) {
	enc, err := codec.ParseEncoding("")
	require.NoError(t, err)
	assert.Equal(t, codec.Text, enc)

	for _, name := range []string{"utf-8", "hex", "base64"} {
		enc, err := codec.ParseEncoding(name)
		require.NoError(t, err)
		assert.Equal(t, codec.Encoding(name), enc)
	}

	_, err = codec.ParseEncoding("ebcdic")
	require.Error(t, err)
}

func TestWithTerminator(t *testing.T) {
	t.Run("appended after payload", func(t *testing.T) {
		got, err := codec.WithTerminator([]byte("NICK joe"), "0D0A")
		require.NoError(t, err)
		assert.Equal(t, []byte("NICK joe\r\n"), got)
	})

	t.Run("escape form", func(t *testing.T) {
		got, err := codec.WithTerminator([]byte("x"), `\x00`)
		require.NoError(t, err)
		assert.Equal(t, []byte{'x', 0x00}, got)
	})

	t.Run("empty terminator is a no-op", func(t *testing.T) {
		got, err := codec.WithTerminator([]byte("x"), "")
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), got)
	})

	t.Run("invalid terminator", func(t *testing.T) {
		_, err := codec.WithTerminator([]byte("x"), "nope")
		require.Error(t, err)
	})
}
