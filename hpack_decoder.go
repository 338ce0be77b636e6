package h2

// HPACKDecoder decompresses incoming header blocks using HPACK: the
// static table, a private dynamic table, and a decoded-bytes budget
// that guards against a decompression-bomb attack (a small wire block
// that expands to an enormous header list).
//
// An HPACKDecoder is not safe for concurrent use; each Conn owns
// exactly one, used only from its single read loop.
//
// https://tools.ietf.org/html/rfc7541
type HPACKDecoder struct {
	dynamic *dynamicTable

	maxDecodedBytes int
	decodedBytes    int

	// maxAllowedDynamicSize is the local side's own currently advertised
	// SETTINGS_HEADER_TABLE_SIZE: the ceiling a peer's dynamic table
	// size update may never exceed.
	maxAllowedDynamicSize int

	// expectSizeUpdate is set by SetMaxDynamicSize (our own advertised
	// SETTINGS_HEADER_TABLE_SIZE changed) and cleared once the first
	// representation of the next block is observed. RFC 7541 §4.2
	// requires that representation to be a dynamic table size update.
	expectSizeUpdate bool
	sawFirst         bool
}

// NewHPACKDecoder returns a decoder whose dynamic table starts at
// maxDynamicSize bytes (this side's own advertised
// SETTINGS_HEADER_TABLE_SIZE) and refuses to decode past
// maxDecodedBytes total header-list octets in a single block.
func NewHPACKDecoder(maxDynamicSize, maxDecodedBytes int) *HPACKDecoder {
	return &HPACKDecoder{
		dynamic:               newDynamicTable(maxDynamicSize),
		maxDecodedBytes:       maxDecodedBytes,
		maxAllowedDynamicSize: maxDynamicSize,
	}
}

// BeginBlock resets the per-block decoded-bytes budget; callers invoke
// it once before decoding the (possibly multi-frame) header block of a
// single HEADERS+CONTINUATION sequence.
func (d *HPACKDecoder) BeginBlock() {
	d.decodedBytes = 0
	d.sawFirst = false
}

// SetMaxDynamicSize records that the local side's own advertised
// SETTINGS_HEADER_TABLE_SIZE changed to n, so the peer's next header
// block must begin with a dynamic table size update that does not
// exceed n (RFC 7541 §4.2); either violation fails the block with
// COMPRESSION_ERROR.
func (d *HPACKDecoder) SetMaxDynamicSize(n int) {
	d.maxAllowedDynamicSize = n
	d.expectSizeUpdate = true
}

// Next decodes one field representation from src into hf, returning
// the unconsumed remainder of src. A pure dynamic-table size update
// (no field) leaves hf unchanged and returns no error.
func (d *HPACKDecoder) Next(hf *HeaderField, src []byte) ([]byte, error) {
	if len(src) == 0 {
		return src, ErrMissingBytes
	}

	b := src[0]
	isSizeUpdate := b&0xe0 == 0x20

	if d.expectSizeUpdate && !d.sawFirst && !isSizeUpdate {
		return src, newConnError(CompressionError, "header block must begin with a dynamic table size update")
	}
	d.sawFirst = true

	switch {
	case b&0x80 != 0: // indexed field, RFC 7541 §6.1
		idx, rest, err := readInt(src, 7)
		if err != nil {
			return rest, err
		}
		name, value, err := d.lookup(int(idx))
		if err != nil {
			return rest, err
		}
		hf.SetKey(name)
		hf.SetValue(value)
		return rest, nil

	case b&0xc0 == 0x40: // literal with incremental indexing, §6.2.1
		return d.literal(hf, src, 6, 0x40, true, false)

	case b&0xf0 == 0x00: // literal without indexing, §6.2.2
		return d.literal(hf, src, 4, 0x00, false, false)

	case b&0xf0 == 0x10: // literal never indexed, §6.2.3
		return d.literal(hf, src, 4, 0x10, false, true)

	case isSizeUpdate: // dynamic table size update, §6.3
		n, rest, err := readInt(src, 5)
		if err != nil {
			return rest, err
		}
		if int(n) > d.maxAllowedDynamicSize {
			return rest, newConnError(CompressionError, "dynamic table size update %d exceeds local cap %d", n, d.maxAllowedDynamicSize)
		}
		d.dynamic.setMaxSize(int(n))
		d.expectSizeUpdate = false
		return rest, nil
	}

	return src, newConnError(CompressionError, "invalid HPACK representation byte 0x%x", b)
}

func (d *HPACKDecoder) literal(hf *HeaderField, src []byte, prefixBits uint8, _ byte, store, sensitive bool) ([]byte, error) {
	nameIdx, rest, err := readInt(src, prefixBits)
	if err != nil {
		return rest, err
	}

	var name string
	if nameIdx == 0 {
		var nb []byte
		nb, rest, err = d.readString(rest)
		if err != nil {
			return rest, err
		}
		name = string(nb)
	} else {
		name, _, err = d.lookup(int(nameIdx))
		if err != nil {
			return rest, err
		}
	}

	valueBytes, rest, err := d.readString(rest)
	if err != nil {
		return rest, err
	}
	value := string(valueBytes)

	hf.SetKey(name)
	hf.SetValue(value)
	hf.SetSensitive(sensitive)

	if store {
		d.dynamic.add(name, value)
	}

	return rest, nil
}

// readString decodes an HPACK string literal (7-bit prefix length,
// Huffman flag in the top bit), enforcing the decoded-bytes budget.
func (d *HPACKDecoder) readString(src []byte) ([]byte, []byte, error) {
	if len(src) == 0 {
		return nil, src, ErrMissingBytes
	}

	huff := src[0]&0x80 != 0
	n, rest, err := readInt(src, 7)
	if err != nil {
		return nil, rest, err
	}
	if uint64(len(rest)) < n {
		return nil, rest, ErrMissingBytes
	}

	raw := rest[:n]
	rest = rest[n:]

	var out []byte
	if huff {
		out, err = appendHuffmanDecoded(nil, raw)
		if err != nil {
			return nil, rest, err
		}
	} else {
		out = append([]byte(nil), raw...)
	}

	if err := d.charge(len(out)); err != nil {
		return nil, rest, err
	}

	return out, rest, nil
}

func (d *HPACKDecoder) charge(n int) error {
	d.decodedBytes += n
	if d.maxDecodedBytes > 0 && d.decodedBytes > d.maxDecodedBytes {
		return newConnError(CompressionError, "decoded header list exceeds decompression-bomb budget")
	}
	return nil
}

// lookup resolves a 1-based combined static+dynamic index.
func (d *HPACKDecoder) lookup(idx int) (name, value string, err error) {
	if idx < 1 {
		return "", "", newConnError(CompressionError, "invalid header index 0")
	}
	if idx <= len(staticTable) {
		e := staticTable[idx-1]
		return e.name, e.value, nil
	}
	e, ok := d.dynamic.at(idx - len(staticTable))
	if !ok {
		return "", "", newConnError(CompressionError, "header index %d out of range", idx)
	}
	return e.name, e.value, nil
}
