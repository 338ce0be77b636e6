package h2

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asConnError(t *testing.T, err error) *connError {
	t.Helper()
	var ce *connError
	require.True(t, errors.As(err, &ce), "expected a *connError, got %T: %v", err, err)
	return ce
}

func TestPeerSettingsApplyDefaults(t *testing.T) {
	ps := newPeerSettings()
	assert.Equal(t, DefaultHeaderTableSize, ps.headerTableSize)
	assert.True(t, ps.enablePush)
	assert.Equal(t, DefaultConcurrentStreams, ps.maxConcurrentStreams)
	assert.Equal(t, DefaultInitialWindowSize, ps.initialWindowSize)
	assert.Equal(t, DefaultMaxFrameSize, ps.maxFrameSize)
}

func TestPeerSettingsApplyInitialWindowSizeDelta(t *testing.T) {
	ps := newPeerSettings()
	s := &Settings{}
	s.Add(SettingInitialWindowSize, DefaultInitialWindowSize+1000)

	delta, err := ps.apply(s)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), delta)
	assert.Equal(t, DefaultInitialWindowSize+1000, ps.initialWindowSize)
}

func TestPeerSettingsApplyRejectsInvalidEnablePush(t *testing.T) {
	ps := newPeerSettings()
	s := &Settings{}
	s.Add(SettingEnablePush, 2)

	_, err := ps.apply(s)
	ce := asConnError(t, err)
	assert.Equal(t, ProtocolError, ce.Code)
}

func TestPeerSettingsApplyRejectsOversizedInitialWindow(t *testing.T) {
	ps := newPeerSettings()
	s := &Settings{}
	s.Add(SettingInitialWindowSize, maxWindowSize+1)

	_, err := ps.apply(s)
	ce := asConnError(t, err)
	assert.Equal(t, FlowControlError, ce.Code)
}

func TestPeerSettingsApplyRejectsInvalidMaxFrameSize(t *testing.T) {
	ps := newPeerSettings()
	s := &Settings{}
	s.Add(SettingMaxFrameSize, DefaultMaxFrameSize-1)

	_, err := ps.apply(s)
	ce := asConnError(t, err)
	assert.Equal(t, ProtocolError, ce.Code)

	ps2 := newPeerSettings()
	s2 := &Settings{}
	s2.Add(SettingMaxFrameSize, maxFrameSize+1)

	_, err = ps2.apply(s2)
	ce2 := asConnError(t, err)
	assert.Equal(t, ProtocolError, ce2.Code)
}

func TestPeerSettingsApplyStopsAtFirstError(t *testing.T) {
	ps := newPeerSettings()
	s := &Settings{}
	s.Add(SettingEnablePush, 7)
	s.Add(SettingMaxConcurrentStreams, 42)

	_, err := ps.apply(s)
	require.Error(t, err)
	assert.Equal(t, DefaultConcurrentStreams, ps.maxConcurrentStreams, "fields after the invalid one must not apply")
}
