package h2

// dynamicEntry is one (name, value) pair stored in a dynamicTable.
type dynamicEntry struct {
	name, value string
}

func (e dynamicEntry) size() int { return len(e.name) + len(e.value) + 32 }

// dynamicTable is the HPACK dynamic table: a FIFO of header fields,
// newest first, evicted from the oldest end whenever adding an entry
// would exceed maxSize.
//
// https://tools.ietf.org/html/rfc7541#section-2.3.2
type dynamicTable struct {
	// entries[0] is the most recently inserted entry, matching the
	// RFC's indexing (dynamic table index 1 == most recent insert).
	entries []dynamicEntry
	size    int
	maxSize int
}

func newDynamicTable(maxSize int) *dynamicTable {
	return &dynamicTable{maxSize: maxSize}
}

// add inserts a new entry at the front, evicting from the back until
// the table fits within maxSize. An entry larger than the whole table
// results in an empty table, per RFC 7541 §4.4.
func (t *dynamicTable) add(name, value string) {
	e := dynamicEntry{name: name, value: value}

	t.entries = append([]dynamicEntry{e}, t.entries...)
	t.size += e.size()

	t.evict()
}

func (t *dynamicTable) evict() {
	for t.size > t.maxSize && len(t.entries) > 0 {
		last := len(t.entries) - 1
		t.size -= t.entries[last].size()
		t.entries = t.entries[:last]
	}
}

// setMaxSize applies a new SETTINGS_HEADER_TABLE_SIZE or dynamic
// size-update, evicting as needed.
//
// https://tools.ietf.org/html/rfc7541#section-4.2
func (t *dynamicTable) setMaxSize(n int) {
	t.maxSize = n
	t.evict()
}

// at returns the entry at the given 1-based dynamic-table index
// (i.e. HPACK index - len(staticTable)).
func (t *dynamicTable) at(idx int) (dynamicEntry, bool) {
	if idx < 1 || idx > len(t.entries) {
		return dynamicEntry{}, false
	}
	return t.entries[idx-1], true
}

// indexOf returns the 1-based dynamic-table index of an exact
// (name, value) match, or 0 if none is stored.
func (t *dynamicTable) indexOf(name, value string) int {
	for i, e := range t.entries {
		if e.name == name && e.value == value {
			return i + 1
		}
	}
	return 0
}

// nameIndexOf returns the 1-based dynamic-table index of the first
// entry whose name matches, ignoring value, or 0 if none.
func (t *dynamicTable) nameIndexOf(name string) int {
	for i, e := range t.entries {
		if e.name == name {
			return i + 1
		}
	}
	return 0
}

func (t *dynamicTable) len() int { return len(t.entries) }
