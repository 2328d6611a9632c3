// Package codec converts between the textual payload representations
// accepted at the tool boundary and the raw bytes that go on the wire.
package codec

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/kvasudev/tcpsock/internal/errors"
)

// Encoding names a textual payload representation.
type Encoding string

const (
	Text   Encoding = "utf-8"
	Hex    Encoding = "hex"
	Base64 Encoding = "base64"
)

// ParseEncoding validates a caller-supplied encoding name. An empty
// name selects utf-8, matching the tool schema defaults.
func ParseEncoding(name string) (Encoding, error) {
	switch Encoding(name) {
	case "":
		return Text, nil
	case Text, Hex, Base64:
		return Encoding(name), nil
	default:
		return "", errors.NewDecodeError(fmt.Errorf("unknown encoding %q", name), "encoding")
	}
}

var hexEscape = regexp.MustCompile(`\\x[0-9a-fA-F]{2}`)

// ParseHex parses a hex payload into bytes. Two forms are accepted:
// plain contiguous digit pairs ("48656c6c6f", whitespace and 0x
// prefixes stripped), or \xNN escape sequences with literal text
// segments interleaved ("NICK \x0d\x0a"). Malformed input is a hard
// decode error, never reinterpreted as plain text.
func ParseHex(s string) ([]byte, error) {
	if strings.Contains(s, `\x`) {
		return parseHexEscapes(s)
	}

	clean := strings.NewReplacer("0x", "", "0X", "", " ", "", "\t", "", "\n", "", "\r", "").Replace(s)
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, errors.NewDecodeError(err, "hex")
	}
	return b, nil
}

func parseHexEscapes(s string) ([]byte, error) {
	var out []byte
	last := 0
	for _, loc := range hexEscape.FindAllStringIndex(s, -1) {
		lit := s[last:loc[0]]
		if strings.Contains(lit, `\x`) {
			// \x followed by non-hex digits is a typo in a byte
			// payload, not literal text.
			return nil, errors.NewDecodeError(fmt.Errorf("malformed \\x escape near offset %d", last), "hex")
		}
		out = append(out, lit...)
		out = append(out, mustHexByte(s[loc[0]+2:loc[1]]))
		last = loc[1]
	}
	tail := s[last:]
	if strings.Contains(tail, `\x`) {
		return nil, errors.NewDecodeError(fmt.Errorf("malformed \\x escape near offset %d", last), "hex")
	}
	out = append(out, tail...)
	return out, nil
}

func mustHexByte(pair string) byte {
	b, _ := hex.DecodeString(pair)
	return b[0]
}

// Encode converts a textual payload into wire bytes per encoding.
func Encode(data string, enc Encoding) ([]byte, error) {
	switch enc {
	case Hex:
		return ParseHex(data)
	case Base64:
		b, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, errors.NewDecodeError(err, "base64")
		}
		return b, nil
	case Text, "":
		return []byte(data), nil
	default:
		return nil, errors.NewDecodeError(fmt.Errorf("unknown encoding %q", enc), "encoding")
	}
}

// Format renders wire bytes back into the requested textual form.
// utf-8 output replaces invalid sequences with U+FFFD.
func Format(b []byte, enc Encoding) string {
	switch enc {
	case Hex:
		return hex.EncodeToString(b)
	case Base64:
		return base64.StdEncoding.EncodeToString(b)
	default:
		return strings.ToValidUTF8(string(b), "�")
	}
}

// WithTerminator appends terminator bytes after an already-encoded
// payload. Terminators are always written as hex ("0D0A" or "\x0d\x0a")
// independent of the payload's own encoding.
func WithTerminator(payload []byte, terminator string) ([]byte, error) {
	if terminator == "" {
		return payload, nil
	}
	term, err := ParseHex(terminator)
	if err != nil {
		return nil, err
	}
	return append(payload, term...), nil
}
