package h2

// HPACKEncoder compresses outgoing header lists using HPACK: the
// static table, a private dynamic table, and Huffman string encoding.
//
// An HPACKEncoder is not safe for concurrent use; each Conn owns
// exactly one, used only from its single write path.
//
// https://tools.ietf.org/html/rfc7541
type HPACKEncoder struct {
	dynamic        *dynamicTable
	huffman        bool
	pendingMaxSize int
	hasPending     bool
}

// NewHPACKEncoder returns an encoder whose dynamic table starts at
// maxDynamicSize bytes (normally the peer's SETTINGS_HEADER_TABLE_SIZE).
func NewHPACKEncoder(maxDynamicSize int) *HPACKEncoder {
	return &HPACKEncoder{
		dynamic: newDynamicTable(maxDynamicSize),
		huffman: true,
	}
}

// SetMaxDynamicSize queues a dynamic table size update to be written
// as the next header block's size-update instruction, as required
// before encoding any field once the peer lowers
// SETTINGS_HEADER_TABLE_SIZE.
func (e *HPACKEncoder) SetMaxDynamicSize(n int) {
	e.pendingMaxSize = n
	e.hasPending = true
}

// SetHuffman toggles Huffman string encoding (on by default; disabling
// it is useful only for debugging wire captures by eye).
func (e *HPACKEncoder) SetHuffman(v bool) { e.huffman = v }

// AppendHeader HPACK-encodes hf and appends it to dst. When store is
// true (the common case) a non-sensitive field is also inserted into
// the dynamic table so later identical fields can reference it.
func (e *HPACKEncoder) AppendHeader(dst []byte, hf *HeaderField, store bool) []byte {
	if e.hasPending {
		dst = appendInt(dst, 5, 0x20, uint64(e.pendingMaxSize))
		e.dynamic.setMaxSize(e.pendingMaxSize)
		e.hasPending = false
	}

	name, value := hf.Key(), hf.Value()

	if hf.Sensitive() {
		dst = e.appendLiteral(dst, name, value, 0x10, nameIndex(e.dynamic, name))
		return dst
	}

	if idx := e.dynamic.indexOf(name, value); idx > 0 {
		dst = appendInt(dst, 7, 0x80, uint64(idx+len(staticTable)))
		return dst
	}
	if idx, ok := staticTableNameIndex[name]; ok && staticTable[idx-1].value == value {
		dst = appendInt(dst, 7, 0x80, uint64(idx))
		return dst
	}

	if !store {
		dst = e.appendLiteral(dst, name, value, 0x00, nameIndex(e.dynamic, name))
		return dst
	}

	dst = e.appendLiteral(dst, name, value, 0x40, nameIndex(e.dynamic, name))
	e.dynamic.add(name, value)

	return dst
}

// nameIndex returns the combined static+dynamic index of name, or 0.
func nameIndex(dyn *dynamicTable, name string) int {
	if idx, ok := staticTableNameIndex[name]; ok {
		return idx
	}
	if idx := dyn.nameIndexOf(name); idx > 0 {
		return idx + len(staticTable)
	}
	return 0
}

// appendLiteral writes a literal field representation. repr selects
// the instruction (0x40 with incremental indexing, 0x00 without
// indexing, 0x10 never-indexed); nameIdx, if non-zero, references an
// existing indexed name instead of encoding it as a literal string.
func (e *HPACKEncoder) appendLiteral(dst []byte, name, value string, repr byte, nameIdx int) []byte {
	if nameIdx > 0 {
		prefix := uint8(4)
		if repr == 0x40 {
			prefix = 6
		}
		dst = appendInt(dst, prefix, repr, uint64(nameIdx))
	} else {
		dst = append(dst, repr)
		dst = e.appendString(dst, name)
	}
	dst = e.appendString(dst, value)
	return dst
}

func (e *HPACKEncoder) appendString(dst []byte, s string) []byte {
	if !e.huffman {
		dst = appendInt(dst, 7, 0x00, uint64(len(s)))
		return append(dst, s...)
	}

	hlen := huffmanEncodedLen([]byte(s))
	hbytes := (hlen + 7) / 8
	if hbytes >= len(s) {
		// Huffman coding did not help; send the literal raw.
		dst = appendInt(dst, 7, 0x00, uint64(len(s)))
		return append(dst, s...)
	}

	dst = appendInt(dst, 7, 0x80, uint64(hbytes))
	return appendHuffmanString(dst, []byte(s))
}
