package kvs

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// Session is a per-worker unit of work against a Connection. Sessions
// and the cursors they open are never shared across goroutines (spec
// §5's "sessions and cursors are strictly per-worker" rule) — each
// worker calls Connection.NewSession to get its own.
//
// Unlike WiredTiger, badger's transaction is both the session and the
// unit of atomicity; Session keeps one open read transaction for
// cursors/point-reads, while each mutation runs in a fresh write
// transaction opened by Connection.Mutate and closed immediately after
// commit, so that no mutation spans more than the single public API
// call spec §9 requires.
type Session struct {
	conn    *Connection
	readTxn *badger.Txn
}

// NewSession opens a session bound to this connection. The caller must
// call Close when done; closing invalidates any cursors opened from it.
func (c *Connection) NewSession() *Session {
	return &Session{
		conn:    c,
		readTxn: c.db.NewTransaction(false),
	}
}

// Close discards the session's read transaction. Any cursor opened from
// this session becomes invalid after Close.
func (s *Session) Close() {
	if s.readTxn != nil {
		s.readTxn.Discard()
		s.readTxn = nil
	}
}

// Reset discards and reopens the session's read transaction, giving it
// a fresh, consistent snapshot — used between independent sweeps of the
// same cursor-bearing session.
func (s *Session) Reset() {
	s.Close()
	s.readTxn = s.conn.db.NewTransaction(false)
}

// Get performs a point lookup within the session's read snapshot.
func (s *Session) Get(key []byte) ([]byte, error) {
	item, err := s.readTxn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Has reports whether key exists within the session's read snapshot.
func (s *Session) Has(key []byte) (bool, error) {
	_, err := s.Get(key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Mutate runs fn inside a single badger read-write transaction and
// commits it. This is the adapter's insert/update/remove surface: fn
// gets a *WriteTxn whose Set/Delete calls (made through the wrapped
// write transaction) are only visible
// to later Mutate/View calls once this one returns successfully. Every
// public graph mutation (add_edge, delete_node, ...) is exactly one
// Mutate call, so it is atomic with respect to concurrent readers
// without graphkv needing to bracket multiple API calls (the Non-goal
// spec §1 excludes).
func (c *Connection) Mutate(fn func(tx *WriteTxn) error) error {
	txn := c.db.NewTransaction(true)
	defer txn.Discard()

	wtx := &WriteTxn{txn: txn}
	if err := fn(wtx); err != nil {
		return err
	}
	return txn.Commit()
}

// WriteTxn is the mutation-side handle passed into Connection.Mutate.
type WriteTxn struct {
	txn *badger.Txn
}

// Get reads a key within the mutation's own transaction (read-your-writes).
func (w *WriteTxn) Get(key []byte) ([]byte, error) {
	item, err := w.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Has reports whether key exists within the mutation's own transaction.
func (w *WriteTxn) Has(key []byte) (bool, error) {
	_, err := w.Get(key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Set inserts or overwrites a key/value pair.
func (w *WriteTxn) Set(key, value []byte) error {
	return w.txn.Set(key, value)
}

// Delete removes a key. Deleting an absent key is not an error at this
// layer — callers that need "not found" semantics check existence
// first, per the representations' delete_* contracts.
func (w *WriteTxn) Delete(key []byte) error {
	return w.txn.Delete(key)
}

// ScanPrefix walks every key with the given prefix within the mutation's
// own transaction, used by delete_node's cascade (collecting edges to
// remove before removing the node row itself). fn receives each key with
// prefix stripped, matching Cursor.Key()'s convention.
func (w *WriteTxn) ScanPrefix(prefix []byte, fn func(key, value []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := w.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)[len(prefix):]
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(key, val); err != nil {
			return err
		}
	}
	return nil
}
