// Package kvs adapts an ordered, transactional key-value store to the
// narrow surface the graph representations in package graph need:
// sessions, cursors, fixed-width key encoding, and table/index namespaces.
//
// The underlying store is BadgerDB. Badger already orders raw keys
// lexicographically and gives ACID transactions with Update/View, so it
// plays the role WiredTiger plays in the system this package is modeled
// on: an ordered B-tree store with cursor-based access. What WiredTiger
// exposes as separate named tables and indices, badger exposes as one
// flat keyspace; kvs.Table and kvs.Index are lightweight byte-prefixed
// namespaces over that single keyspace.
package kvs

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
)

// Errors surfaced by the adapter. Mutation and lookup failures from
// badger are wrapped so callers can match them with errors.Is against
// these sentinels without depending on badger directly.
var (
	ErrKeyNotFound = errors.New("kvs: key not found")
	ErrBusy        = errors.New("kvs: resource busy")
	ErrClosed      = errors.New("kvs: connection closed")
)

// Connection owns the shared badger.DB and the table/index namespace
// registry. One Connection is opened per graph; every worker session
// shares it read-mostly (spec's concurrency model, §5).
type Connection struct {
	db  *badger.DB
	log *log.Logger

	tables  map[string]byte
	indices map[string]byte
	nextTag byte

	// openCursors counts cursors currently open against any table, used
	// to reject DropIndex/DropTable (and, via CursorCount, std's
	// CreateIndices) while a scan is live; CreateIndex itself does not
	// check it,
	// mirroring the teacher's b.closed-guarded-by-mutex discipline in
	// pkg/storage/badger.go. Incremented/decremented from arbitrary
	// worker goroutines, so it is accessed atomically.
	openCursors atomic.Int32
}

// CursorCount reports how many cursors are currently open against this
// connection, across every session. Exposed so representations can
// surface a precise busy error before attempting CreateIndices/DropIndices.
func (c *Connection) CursorCount() int32 {
	return c.openCursors.Load()
}

// Options configures the underlying badger store. It mirrors the
// subset of storage.BadgerOptions the graph layer needs.
type Options struct {
	Dir        string
	InMemory   bool
	SyncWrites bool
	Logger     *log.Logger
}

// Open creates or opens the badger store backing a Connection.
func Open(opts Options) (*Connection, error) {
	bopts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		bopts = bopts.WithInMemory(true)
	}
	if opts.SyncWrites {
		bopts = bopts.WithSyncWrites(true)
	}
	bopts = bopts.WithLogger(nil) // quiet by default, same default as the teacher

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("kvs: open: %w", err)
	}

	l := opts.Logger
	if l == nil {
		l = log.Default()
	}

	return &Connection{
		db:      db,
		log:     l,
		tables:  make(map[string]byte),
		indices: make(map[string]byte),
		nextTag: 1,
	}, nil
}

// Close closes the underlying store. Closing a Connection invalidates
// every Session and Cursor opened against it, per spec §5.
func (c *Connection) Close() error {
	return c.db.Close()
}

// DB exposes the raw badger handle for callers that need to drive
// transactions directly rather than through Session or Mutate.
func (c *Connection) DB() *badger.DB {
	return c.db
}

func (c *Connection) allocTag() byte {
	t := c.nextTag
	c.nextTag++
	return t
}

// CreateTable registers a new logical table namespace. Calling it again
// with the same name returns the existing tag, so schema setup is
// idempotent across restore.
func (c *Connection) CreateTable(name string) (Table, error) {
	if tag, ok := c.tables[name]; ok {
		return Table{name: name, tag: tag}, nil
	}
	tag := c.allocTag()
	c.tables[name] = tag
	return Table{name: name, tag: tag}, nil
}

// Table looks up a table namespace previously registered with
// CreateTable on this Connection.
func (c *Connection) Table(name string) (Table, bool) {
	tag, ok := c.tables[name]
	return Table{name: name, tag: tag}, ok
}

// DropTable removes every key under a table's namespace. Requires that
// no cursor is currently open (spec §5's index/drop exclusivity rule).
func (c *Connection) DropTable(t Table) error {
	if c.openCursors.Load() > 0 {
		return ErrBusy
	}
	prefix := []byte{t.tag}
	return c.db.DropPrefix(prefix)
}

// CreateIndex registers a secondary-index namespace keyed off a table.
func (c *Connection) CreateIndex(name string) (Index, error) {
	if tag, ok := c.indices[name]; ok {
		return Index{name: name, tag: tag}, nil
	}
	tag := c.allocTag()
	c.indices[name] = tag
	return Index{name: name, tag: tag}, nil
}

// Index looks up a previously created index namespace.
func (c *Connection) Index(name string) (Index, bool) {
	tag, ok := c.indices[name]
	return Index{name: name, tag: tag}, ok
}

// DropIndex removes every key under an index's namespace. Requires
// that no cursor referencing it is open.
func (c *Connection) DropIndex(ix Index) error {
	if c.openCursors.Load() > 0 {
		return ErrBusy
	}
	prefix := []byte{ix.tag}
	return c.db.DropPrefix(prefix)
}

// Table is a byte-prefixed logical namespace within the shared keyspace.
type Table struct {
	name string
	tag  byte
}

// Name returns the table's logical name (as recorded in metadata).
func (t Table) Name() string { return t.name }

// KeyPrefix returns the raw byte prefix every key in this table carries.
func (t Table) KeyPrefix() []byte { return []byte{t.tag} }

// Index is a byte-prefixed logical namespace for a secondary index.
type Index struct {
	name string
	tag  byte
}

// Name returns the index's logical name.
func (ix Index) Name() string { return ix.name }

// KeyPrefix returns the raw byte prefix every key in this index carries.
func (ix Index) KeyPrefix() []byte { return []byte{ix.tag} }
