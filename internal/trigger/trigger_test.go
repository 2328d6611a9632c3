package trigger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvasudev/tcpsock/internal/errors"
	"github.com/kvasudev/tcpsock/internal/trigger"
)

func mustTrigger(t *testing.T, id, pattern, response, encoding, terminator string) *trigger.Trigger {
	t.Helper()
	tr, err := trigger.New(id, pattern, response, encoding, terminator)
	require.NoError(t, err)
	return tr
}

func TestNew(t *testing.T) {
	t.Run("compiles once at registration", func(t *testing.T) {
		tr := mustTrigger(t, "t1", `^PING :(.+)$`, "PONG :$1", "", "")
		assert.Equal(t, trigger.KindText, tr.Kind)
	})

	t.Run("byte escapes are flagged as byte patterns", func(t *testing.T) {
		tr := mustTrigger(t, "t1", `\x01VERSION\x01`, "none", "", "")
		assert.Equal(t, trigger.KindByte, tr.Kind)
	})

	t.Run("bad pattern is a trigger error", func(t *testing.T) {
		_, err := trigger.New("t1", `([unclosed`, "x", "", "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrTrigger))
	})

	t.Run("bad response encoding is a trigger error", func(t *testing.T) {
		_, err := trigger.New("t1", "x", "x", "rot13", "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrTrigger))
	})
}

func TestEvaluateSubstitution(t *testing.T) {
	tb := trigger.NewTable()
	tb.Set(mustTrigger(t, "t1", `(?m)^PING :(.+)$`, "PONG :$1", "", "0D0A"))

	res, errs := tb.Evaluate([]byte("PING :abc"))
	assert.Empty(t, errs)
	require.NotNil(t, res)
	assert.Equal(t, "t1", res.TriggerID)
	assert.Equal(t, []byte("PONG :abc\r\n"), res.Payload)
}

func TestEvaluateNonParticipatingGroup(t *testing.T) {
	tb := trigger.NewTable()
	tb.Set(mustTrigger(t, "t1", `A(x)?(B)`, "[$1][$2]", "", ""))

	res, errs := tb.Evaluate([]byte("AB"))
	assert.Empty(t, errs)
	require.NotNil(t, res)
	assert.Equal(t, []byte("[][B]"), res.Payload)
}

func TestEvaluateBytePattern(t *testing.T) {
	tb := trigger.NewTable()
	tb.Set(mustTrigger(t, "ctcp", `\x01VERSION\x01`, "none", "", ""))

	res, errs := tb.Evaluate([]byte{0x01, 'V', 'E', 'R', 'S', 'I', 'O', 'N', 0x01})
	assert.Empty(t, errs)
	require.NotNil(t, res)
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	tb := trigger.NewTable()
	tb.Set(mustTrigger(t, "first", `ECHO:(.*)`, "GOT:$1", "", ""))
	tb.Set(mustTrigger(t, "second", `ECHO:42`, "NEVER", "", ""))

	res, errs := tb.Evaluate([]byte("ECHO:42\n"))
	assert.Empty(t, errs)
	require.NotNil(t, res)
	assert.Equal(t, "first", res.TriggerID, "triggers must evaluate in registration order")
}

func TestEvaluateEncodedResponse(t *testing.T) {
	tb := trigger.NewTable()
	tb.Set(mustTrigger(t, "t1", `GO`, "48656c6c6f", "hex", ""))

	res, errs := tb.Evaluate([]byte("GO"))
	assert.Empty(t, errs)
	require.NotNil(t, res)
	assert.Equal(t, []byte("Hello"), res.Payload)
}

func TestEvaluateBrokenTriggerIsIsolated(t *testing.T) {
	tb := trigger.NewTable()
	// Hex response that is not valid hex fails at fire time.
	tb.Set(mustTrigger(t, "broken", `GO`, "zz", "hex", ""))
	tb.Set(mustTrigger(t, "ok", `GO`, "fine", "", ""))

	res, errs := tb.Evaluate([]byte("GO"))
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], errors.ErrTrigger))
	require.NotNil(t, res, "a broken trigger must not block the rest")
	assert.Equal(t, "ok", res.TriggerID)
}

func TestEvaluateDoesNotRefireOnStaleContent(t *testing.T) {
	tb := trigger.NewTable()
	tb.Set(mustTrigger(t, "t1", `ECHO:(\w+)`, "GOT:$1", "", ""))

	res, _ := tb.Evaluate([]byte("ECHO:42\n"))
	require.NotNil(t, res)
	assert.Equal(t, []byte("GOT:42"), res.Payload)

	// Next receive event: old content still buffered, no new match.
	res, _ = tb.Evaluate([]byte("ECHO:42\nnoise"))
	assert.Nil(t, res)

	// A genuinely new match past the old one fires.
	res, _ = tb.Evaluate([]byte("ECHO:42\nnoise ECHO:43"))
	require.NotNil(t, res)
	assert.Equal(t, []byte("GOT:43"), res.Payload)
}

func TestEvaluateSpansReads(t *testing.T) {
	tb := trigger.NewTable()
	tb.Set(mustTrigger(t, "t1", `HELLO WORLD`, "hi", "", ""))

	res, _ := tb.Evaluate([]byte("HELLO W"))
	assert.Nil(t, res)

	// The message completed across a second read event.
	res, _ = tb.Evaluate([]byte("HELLO WORLD"))
	require.NotNil(t, res)
}

func TestResetScan(t *testing.T) {
	tb := trigger.NewTable()
	tb.Set(mustTrigger(t, "t1", `GO`, "x", "", ""))

	res, _ := tb.Evaluate([]byte("GO"))
	require.NotNil(t, res)

	// Buffer cleared: same bytes arriving again are new content.
	tb.ResetScan()
	res, _ = tb.Evaluate([]byte("GO"))
	require.NotNil(t, res)
}

func TestSetReplacesInPlace(t *testing.T) {
	tb := trigger.NewTable()
	tb.Set(mustTrigger(t, "a", `AAA`, "1", "", ""))
	tb.Set(mustTrigger(t, "b", `BBB`, "2", "", ""))
	tb.Set(mustTrigger(t, "a", `AAA`, "replaced", "", ""))

	require.Equal(t, 2, tb.Len())

	infos := tb.List()
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].TriggerID, "replacement must keep the registration slot")
	assert.Equal(t, "b", infos[1].TriggerID)

	res, _ := tb.Evaluate([]byte("AAA"))
	require.NotNil(t, res)
	assert.Equal(t, []byte("replaced"), res.Payload)
}

func TestRemove(t *testing.T) {
	tb := trigger.NewTable()
	tb.Set(mustTrigger(t, "a", `AAA`, "1", "", ""))

	assert.True(t, tb.Remove("a"))
	assert.False(t, tb.Remove("a"))
	assert.Zero(t, tb.Len())
}

func TestPendingStore(t *testing.T) {
	ps := trigger.NewPendingStore()

	t.Run("set and take preserve order", func(t *testing.T) {
		ps.Set("conn1", mustTrigger(t, "t1", `A`, "1", "", ""))
		ps.Set("conn1", mustTrigger(t, "t2", `B`, "2", "", ""))
		require.True(t, ps.Has("conn1"))

		taken := ps.Take("conn1")
		require.Len(t, taken, 2)
		assert.Equal(t, "t1", taken[0].ID)
		assert.Equal(t, "t2", taken[1].ID)
		assert.False(t, ps.Has("conn1"), "take must empty the pending entry")
	})

	t.Run("same-id replaces", func(t *testing.T) {
		ps.Set("conn2", mustTrigger(t, "t1", `A`, "old", "", ""))
		ps.Set("conn2", mustTrigger(t, "t1", `A`, "new", "", ""))

		taken := ps.Take("conn2")
		require.Len(t, taken, 1)
		assert.Equal(t, "new", taken[0].Response)
	})

	t.Run("remove", func(t *testing.T) {
		ps.Set("conn3", mustTrigger(t, "t1", `A`, "1", "", ""))
		assert.True(t, ps.Remove("conn3", "t1"))
		assert.False(t, ps.Remove("conn3", "t1"))
		assert.False(t, ps.Has("conn3"))
	})
}
