package h2

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAndRead(t *testing.T, body Frame, streamID uint32) *FrameHeader {
	t.Helper()

	buf := &bytes.Buffer{}
	bw := bufio.NewWriter(buf)

	frh := AcquireFrameHeader()
	frh.SetStream(streamID)
	frh.SetBody(body)
	_, err := frh.WriteTo(bw)
	require.NoError(t, err)
	require.NoError(t, bw.Flush())
	ReleaseFrameHeader(frh)

	br := bufio.NewReader(buf)
	out, err := ReadFrameFrom(br)
	require.NoError(t, err)
	return out
}

func TestDataFrameRoundTrip(t *testing.T) {
	d := acquireData()
	d.SetData([]byte("hello world"))
	d.SetEndStream(true)

	out := writeAndRead(t, d, 3)
	got := out.Body().(*Data)
	assert.Equal(t, []byte("hello world"), got.Data())
	assert.True(t, got.EndStream())
	assert.Equal(t, uint32(3), out.Stream())
}

func TestDataFramePadded(t *testing.T) {
	d := acquireData()
	d.SetData([]byte("padded payload"))
	d.SetPadding(true)

	out := writeAndRead(t, d, 5)
	got := out.Body().(*Data)
	assert.Equal(t, []byte("padded payload"), got.Data())
}

func TestHeadersFrameRoundTrip(t *testing.T) {
	h := acquireHeaders()
	h.SetHeaders([]byte{0x82, 0x86, 0x84}) // arbitrary HPACK bytes
	h.SetEndHeaders(true)
	h.SetEndStream(true)

	out := writeAndRead(t, h, 1)
	got := out.Body().(*Headers)
	assert.Equal(t, []byte{0x82, 0x86, 0x84}, got.Headers())
	assert.True(t, got.EndHeaders())
	assert.True(t, got.EndStream())
}

func TestSettingsFrameRoundTrip(t *testing.T) {
	s := acquireSettingsFrame()
	s.Add(SettingInitialWindowSize, 65535)
	s.Add(SettingMaxConcurrentStreams, 128)

	out := writeAndRead(t, s, 0)
	got := out.Body().(*Settings)

	seen := map[SettingID]uint32{}
	got.Range(func(id SettingID, val uint32) { seen[id] = val })
	assert.Equal(t, uint32(65535), seen[SettingInitialWindowSize])
	assert.Equal(t, uint32(128), seen[SettingMaxConcurrentStreams])
}

func TestGoAwayRoundTrip(t *testing.T) {
	g := acquireGoAway()
	g.SetLastStreamID(41)
	g.SetCode(FlowControlError)
	g.SetData([]byte("bye"))

	out := writeAndRead(t, g, 0)
	got := out.Body().(*GoAway)
	assert.Equal(t, uint32(41), got.LastStreamID())
	assert.Equal(t, FlowControlError, got.Code())
	assert.Equal(t, []byte("bye"), got.Data())
}

func TestWindowUpdateRoundTrip(t *testing.T) {
	w := acquireWindowUpdate()
	w.SetIncrement(1 << 20)

	out := writeAndRead(t, w, 7)
	got := out.Body().(*WindowUpdate)
	assert.Equal(t, uint32(1<<20), got.Increment())
}

func TestDataFrameBadPaddingReturnsError(t *testing.T) {
	_, err := cutPadding([]byte{200, 'a', 'b'}, 3)
	assert.Error(t, err)
}
