package h2

import "sync"

var headerFieldPool = sync.Pool{
	New: func() interface{} { return &HeaderField{} },
}

// AcquireHeaderField returns a pooled, zeroed HeaderField.
func AcquireHeaderField() *HeaderField { return headerFieldPool.Get().(*HeaderField) }

// ReleaseHeaderField resets hf and returns it to the pool.
func ReleaseHeaderField(hf *HeaderField) {
	hf.Reset()
	headerFieldPool.Put(hf)
}

// HeaderField is a single name/value pair exchanged through HPACK.
//
// https://tools.ietf.org/html/rfc7541#section-1.3
type HeaderField struct {
	key, value []byte
	sensitive  bool
}

func (hf *HeaderField) Reset() {
	hf.key = hf.key[:0]
	hf.value = hf.value[:0]
	hf.sensitive = false
}

func (hf *HeaderField) Empty() bool {
	return len(hf.key) == 0 && len(hf.value) == 0
}

// Size is the RFC 7541 §4.1 entry size: name+value octets plus 32
// bytes of bookkeeping overhead. Used for dynamic-table accounting.
func (hf *HeaderField) Size() int {
	return len(hf.key) + len(hf.value) + 32
}

func (hf *HeaderField) String() string {
	return string(hf.key) + ": " + string(hf.value)
}

func (hf *HeaderField) CopyTo(other *HeaderField) {
	other.key = append(other.key[:0], hf.key...)
	other.value = append(other.value[:0], hf.value...)
	other.sensitive = hf.sensitive
}

func (hf *HeaderField) Key() string   { return string(hf.key) }
func (hf *HeaderField) Value() string { return string(hf.value) }

func (hf *HeaderField) KeyBytes() []byte   { return hf.key }
func (hf *HeaderField) ValueBytes() []byte { return hf.value }

func (hf *HeaderField) Set(k, v string) {
	hf.SetKey(k)
	hf.SetValue(v)
}

func (hf *HeaderField) SetBytes(k, v []byte) {
	hf.SetKeyBytes(k)
	hf.SetValueBytes(v)
}

func (hf *HeaderField) SetKey(k string)   { hf.key = append(hf.key[:0], k...) }
func (hf *HeaderField) SetValue(v string) { hf.value = append(hf.value[:0], v...) }

func (hf *HeaderField) SetKeyBytes(k []byte)   { hf.key = append(hf.key[:0], k...) }
func (hf *HeaderField) SetValueBytes(v []byte) { hf.value = append(hf.value[:0], v...) }

// IsPseudo reports whether the field name begins with ':' (a
// pseudo-header like :method or :path).
func (hf *HeaderField) IsPseudo() bool {
	return len(hf.key) > 0 && hf.key[0] == ':'
}

// Sensitive marks hf as "never indexed" (RFC 7541 §7.1.3), e.g. for an
// Authorization or Cookie header that must never be stored in a
// dynamic table shared with an attacker-observable compression oracle.
func (hf *HeaderField) Sensitive() bool     { return hf.sensitive }
func (hf *HeaderField) SetSensitive(v bool) { hf.sensitive = v }
