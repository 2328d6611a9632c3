// Package trigger implements pattern-matched auto-responses: each rule
// pairs a compiled regular expression with a response template that is
// sent automatically when inbound data matches.
package trigger

import (
	"regexp"
	"strings"

	"github.com/kvasudev/tcpsock/internal/codec"
	"github.com/kvasudev/tcpsock/internal/errors"
)

// Kind distinguishes patterns written over text from patterns that use
// \xNN byte escapes. Both are compiled once and matched against the
// raw buffer bytes, so escapes match non-text-safe bytes consistently.
type Kind string

const (
	KindText Kind = "text"
	KindByte Kind = "byte"
)

// Trigger is one pattern/response rule. The pattern is compiled at
// registration and never recompiled. scanFrom marks how far into the
// reconstructed buffer this trigger has already fired, so a match that
// was responded to does not fire again on later receive events.
type Trigger struct {
	ID                 string
	Pattern            string
	Kind               Kind
	Response           string
	ResponseEncoding   codec.Encoding
	ResponseTerminator string

	re       *regexp.Regexp
	scanFrom int
}

// New compiles a trigger rule. A pattern that fails to compile or an
// unknown response encoding is a TriggerError.
func New(id, pattern, response, responseEncoding, responseTerminator string) (*Trigger, error) {
	enc, err := codec.ParseEncoding(responseEncoding)
	if err != nil {
		return nil, errors.NewTriggerError(err, id)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.NewTriggerError(err, id)
	}

	kind := KindText
	if strings.Contains(pattern, `\x`) {
		kind = KindByte
	}

	return &Trigger{
		ID:                 id,
		Pattern:            pattern,
		Kind:               kind,
		Response:           response,
		ResponseEncoding:   enc,
		ResponseTerminator: responseTerminator,
		re:                 re,
	}, nil
}

// match tests the pattern against the unfired tail of the buffer and,
// on a hit, renders the response: capture groups are substituted into
// the template ($1..$n, non-participating groups expand empty), the
// result is encoded, and the terminator appended. The scan offset
// advances past the match whether or not rendering succeeds, so a
// broken template does not refire on every subsequent read.
func (t *Trigger) match(buf []byte) (payload []byte, matched bool, err error) {
	if t.scanFrom > len(buf) {
		// Buffer shrank since the last fire; treat as a fresh stream.
		t.scanFrom = 0
	}

	window := buf[t.scanFrom:]
	loc := t.re.FindSubmatchIndex(window)
	if loc == nil {
		return nil, false, nil
	}
	t.scanFrom += loc[1]

	expanded := t.re.Expand(nil, []byte(t.Response), window, loc)

	encoded, err := codec.Encode(string(expanded), t.ResponseEncoding)
	if err != nil {
		return nil, true, errors.NewTriggerError(err, t.ID)
	}

	payload, err = codec.WithTerminator(encoded, t.ResponseTerminator)
	if err != nil {
		return nil, true, errors.NewTriggerError(err, t.ID)
	}
	return payload, true, nil
}

// resetScan rewinds the fired-match offset; called when the owning
// buffer is cleared.
func (t *Trigger) resetScan() {
	t.scanFrom = 0
}

// Info is the externally visible description of a trigger.
type Info struct {
	TriggerID        string `json:"trigger_id"`
	Pattern          string `json:"pattern"`
	Kind             string `json:"kind"`
	ResponseSize     int    `json:"response_size"`
	ResponseEncoding string `json:"response_encoding"`
}

func (t *Trigger) info() Info {
	return Info{
		TriggerID:        t.ID,
		Pattern:          t.Pattern,
		Kind:             string(t.Kind),
		ResponseSize:     len(t.Response),
		ResponseEncoding: string(t.ResponseEncoding),
	}
}
