package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHPACKRoundTripStaticAndLiteral(t *testing.T) {
	enc := NewHPACKEncoder(4096)
	dec := NewHPACKDecoder(4096, 0)

	var dst []byte
	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)

	hf.Set(":method", "GET") // exact static-table match
	dst = enc.AppendHeader(dst, hf, true)

	hf.Set("x-custom-header", "some-value-not-in-any-table")
	dst = enc.AppendHeader(dst, hf, true)

	hf.Set("x-custom-header", "some-value-not-in-any-table") // now indexed by dynamic table
	dst = enc.AppendHeader(dst, hf, true)

	dec.BeginBlock()
	got := make(map[string]string)
	rest := dst
	for len(rest) > 0 {
		var err error
		rest, err = dec.Next(hf, rest)
		require.NoError(t, err)
		got[hf.Key()] = hf.Value()
	}

	assert.Equal(t, "GET", got[":method"])
	assert.Equal(t, "some-value-not-in-any-table", got["x-custom-header"])
}

func TestHPACKSensitiveNeverIndexed(t *testing.T) {
	enc := NewHPACKEncoder(4096)
	dec := NewHPACKDecoder(4096, 0)

	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)

	hf.Set("authorization", "Bearer secret-token")
	hf.SetSensitive(true)
	dst := enc.AppendHeader(nil, hf, true)

	dec.BeginBlock()
	rest, err := dec.Next(hf, dst)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, "Bearer secret-token", hf.Value())
	assert.True(t, hf.Sensitive())

	assert.Equal(t, 0, enc.dynamic.len(), "never-indexed field must not enter the dynamic table")
}

func TestHPACKDynamicTableSizeUpdate(t *testing.T) {
	enc := NewHPACKEncoder(4096)
	dec := NewHPACKDecoder(4096, 0)

	enc.SetMaxDynamicSize(128)

	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)
	hf.Set("x-a", "b")

	dst := enc.AppendHeader(nil, hf, true)

	dec.BeginBlock()
	rest := dst
	for len(rest) > 0 {
		var err error
		rest, err = dec.Next(hf, rest)
		require.NoError(t, err)
	}
	assert.Equal(t, 128, dec.dynamic.maxSize)
	assert.Equal(t, "b", hf.Value())
}

func TestHPACKDecoderRequiresLeadingSizeUpdateAfterLocalChange(t *testing.T) {
	enc := NewHPACKEncoder(4096)
	dec := NewHPACKDecoder(4096, 0)
	dec.SetMaxDynamicSize(256) // our own SETTINGS_HEADER_TABLE_SIZE just changed

	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)
	hf.Set("x-a", "b")
	dst := enc.AppendHeader(nil, hf, true) // peer doesn't know yet, sends an ordinary literal

	dec.BeginBlock()
	_, err := dec.Next(hf, dst)
	ce := asConnError(t, err)
	assert.Equal(t, CompressionError, ce.Code)
}

func TestHPACKDecoderRejectsSizeUpdatePastLocalCap(t *testing.T) {
	enc := NewHPACKEncoder(4096)
	dec := NewHPACKDecoder(4096, 0)
	dec.SetMaxDynamicSize(128)

	enc.SetMaxDynamicSize(4096) // peer announces a size update larger than our cap
	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)
	hf.Set("x-a", "b")
	dst := enc.AppendHeader(nil, hf, true)

	dec.BeginBlock()
	_, err := dec.Next(hf, dst)
	ce := asConnError(t, err)
	assert.Equal(t, CompressionError, ce.Code)
}

func TestHPACKIntegerCodec(t *testing.T) {
	for _, n := range []uint64{0, 1, 126, 127, 128, 1000, 1 << 20} {
		dst := appendInt(nil, 5, 0x20, n)
		got, rest, err := readInt(dst, 5)
		require.NoError(t, err)
		assert.Empty(t, rest)
		assert.Equal(t, n, got)
	}
}

func TestHuffmanRoundTrip(t *testing.T) {
	cases := []string{"", "www.example.com", "/some/path?with=query&and=more", "A"}
	for _, s := range cases {
		enc := appendHuffmanString(nil, []byte(s))
		dec, err := appendHuffmanDecoded(nil, enc)
		require.NoError(t, err)
		assert.Equal(t, s, string(dec))
	}
}
