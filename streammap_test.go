package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestStreamMapAdmitEnforcesMax(t *testing.T) {
	m := newStreamMap(1)

	s1 := newStream(1, 1000, 1000, &fasthttp.Response{})
	require.NoError(t, m.admit(s1))

	s2 := newStream(3, 1000, 1000, &fasthttp.Response{})
	err := m.admit(s2)
	assert.ErrorIs(t, err, ErrMaxConcurrentStreams)
	assert.Equal(t, 1, m.len())
}

func TestStreamMapGetDelete(t *testing.T) {
	m := newStreamMap(10)
	s := newStream(1, 1000, 1000, &fasthttp.Response{})
	require.NoError(t, m.admit(s))

	got, ok := m.get(1)
	assert.True(t, ok)
	assert.Same(t, s, got)

	m.delete(1)
	_, ok = m.get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, m.len())
}

func TestStreamMapSetMaxAllowsMoreAdmissions(t *testing.T) {
	m := newStreamMap(0)
	s := newStream(1, 1000, 1000, &fasthttp.Response{})
	assert.ErrorIs(t, m.admit(s), ErrMaxConcurrentStreams)

	m.setMax(1)
	assert.NoError(t, m.admit(s))
}

func TestStreamMapAddSendWindowUpdatesEveryStream(t *testing.T) {
	m := newStreamMap(10)
	s1 := newStream(1, 1000, 1000, &fasthttp.Response{})
	s2 := newStream(3, 1000, 1000, &fasthttp.Response{})
	require.NoError(t, m.admit(s1))
	require.NoError(t, m.admit(s2))

	require.NoError(t, m.addSendWindow(500))

	assert.EqualValues(t, 1500, s1.send.current())
	assert.EqualValues(t, 1500, s2.send.current())
}

func TestStreamMapAddSendWindowRejectsOverflowWithoutMutatingAny(t *testing.T) {
	m := newStreamMap(10)
	s1 := newStream(1, 1000, 1000, &fasthttp.Response{})
	s2 := newStream(3, maxWindowSize-1, 1000, &fasthttp.Response{})
	require.NoError(t, m.admit(s1))
	require.NoError(t, m.admit(s2))

	err := m.addSendWindow(10)
	ce := asConnError(t, err)
	assert.Equal(t, FlowControlError, ce.Code)

	assert.EqualValues(t, 1000, s1.send.current(), "no stream's window changes when the delta would overflow another")
	assert.EqualValues(t, maxWindowSize-1, s2.send.current())
}

func TestStreamMapEachSnapshotsBeforeCalling(t *testing.T) {
	m := newStreamMap(10)
	s1 := newStream(1, 1000, 1000, &fasthttp.Response{})
	require.NoError(t, m.admit(s1))

	var seen int
	m.each(func(s *Stream) {
		seen++
		m.delete(s.id) // must not deadlock or skip entries despite mutating during the walk
	})
	assert.Equal(t, 1, seen)
	assert.Equal(t, 0, m.len())
}
