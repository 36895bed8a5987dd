package kvs

import "github.com/dgraph-io/badger/v4"

// Cursor is a positioned, forward-seekable handle into one table or
// index's namespace. It is the adapter's realization of spec §4.1's
// "open cursor (optionally random-seek) / reset / search / search-near
// / next / prev" vocabulary, restricted to the subset the iterator
// protocol (spec §4.5) actually drives: forward iteration with a range
// restriction and a seek-to-key capability. Badger's iterator does not
// support reverse iteration over a forward-ordered namespace without a
// second reversed iterator, and nothing in this engine needs prev, so
// Cursor does not expose it.
//
// Cursors are owned by the Session that opened them and must not cross
// goroutine boundaries (spec §5).
type Cursor struct {
	session *Session
	prefix  []byte
	it      *badger.Iterator
	started bool
	seeked  bool
	closed  bool
}

// OpenCursor opens a forward cursor over one namespace (a Table or
// Index's KeyPrefix), scoped to the session's read snapshot.
func (s *Session) OpenCursor(namespacePrefix []byte) *Cursor {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = namespacePrefix
	s.conn.openCursors.Add(1)
	return &Cursor{
		session: s,
		prefix:  namespacePrefix,
		it:      s.readTxn.NewIterator(opts),
	}
}

// Close releases the cursor's underlying iterator. Always call before
// the owning session is closed or reset.
func (c *Cursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.it.Close()
	c.session.conn.openCursors.Add(-1)
}

// Reset repositions the cursor before its namespace, ready for a fresh
// sweep — the adapter's "reset" primitive from spec §4.1, used by every
// representation's NodeCursor/EdgeCursor/In/OutCursor.Reset.
func (c *Cursor) Reset() {
	c.started = false
	c.seeked = false
}

// Seek positions the cursor at the first key >= namespacePrefix+key
// (the adapter's "search-near": an exact match if present, otherwise
// the next key in order). The position Seek lands on is itself the
// first entry the following Next() call reports, same as a fresh
// cursor's first Next() reports the first entry in the namespace.
func (c *Cursor) Seek(key []byte) {
	full := WithPrefix(c.prefix, key)
	c.it.Seek(full)
	c.started = false
	c.seeked = true
}

// Next advances the cursor and reports whether a valid entry remains
// within this cursor's namespace. The call immediately following Reset
// or Seek does not itself advance — it reports the position already
// established (namespace start, or the seek target) — every
// subsequent call advances first.
func (c *Cursor) Next() bool {
	if !c.started {
		if !c.seeked {
			c.it.Rewind()
		}
		c.started = true
		c.seeked = false
	} else {
		c.it.Next()
	}
	return c.it.ValidForPrefix(c.prefix)
}

// Key returns the current entry's key with the namespace prefix
// stripped off — callers work in terms of the raw id-encoded body.
func (c *Cursor) Key() []byte {
	full := c.it.Item().KeyCopy(nil)
	return full[len(c.prefix):]
}

// Value returns the current entry's value.
func (c *Cursor) Value() ([]byte, error) {
	return c.it.Item().ValueCopy(nil)
}
