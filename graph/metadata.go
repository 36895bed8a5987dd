package graph

import (
	"encoding/binary"
	"fmt"

	"github.com/relio-db/graphkv/kvs"
)

// MetadataTableName is the table every representation shares to persist
// and restore its graph-level options (spec §3 "Metadata table").
const MetadataTableName = "metadata"

const metadataRecordKey = "graph"

// Metadata is the persisted record written at graph creation and
// replayed on restore. It mirrors Options minus ConnConfig, CreateNew
// and OptimizeCreate, which are open-time settings rather than durable
// graph properties.
type Metadata struct {
	DBName       string
	DBDir        string
	IsDirected   bool
	IsWeighted   bool
	ReadOptimize bool
	Type         RepresentationType
}

// FromOptions builds the persisted record from the options a graph was
// created with.
func FromOptions(o Options) Metadata {
	return Metadata{
		DBName:       o.DBName,
		DBDir:        o.DBDir,
		IsDirected:   o.IsDirected,
		IsWeighted:   o.IsWeighted,
		ReadOptimize: o.ReadOptimize,
		Type:         o.Type,
	}
}

// Mismatch checks restore-time options against the persisted metadata
// and returns ErrConfig describing the first contradiction found, or
// nil if they agree. Only the options that change the physical layout
// or encoding are compared: DBDir/ConnConfig may legitimately differ
// between a create and a later restore (e.g. the graph moved on disk).
func (m Metadata) Mismatch(o Options) error {
	if m.Type != o.Type {
		return fmt.Errorf("%w: graph %q was created as %v, cannot reopen as %v", ErrConfig, m.DBName, m.Type, o.Type)
	}
	if m.IsDirected != o.IsDirected {
		return fmt.Errorf("%w: graph %q directedness mismatch on restore", ErrConfig, m.DBName)
	}
	if m.IsWeighted != o.IsWeighted {
		return fmt.Errorf("%w: graph %q weightedness mismatch on restore", ErrConfig, m.DBName)
	}
	if m.ReadOptimize != o.ReadOptimize {
		return fmt.Errorf("%w: graph %q read_optimize mismatch on restore", ErrConfig, m.DBName)
	}
	return nil
}

func encodeMetadata(m Metadata) []byte {
	buf := make([]byte, 0, 64)
	buf = appendString(buf, m.DBName)
	buf = appendString(buf, m.DBDir)
	buf = append(buf, boolByte(m.IsDirected), boolByte(m.IsWeighted), boolByte(m.ReadOptimize), byte(m.Type))
	return buf
}

func decodeMetadata(buf []byte) (Metadata, error) {
	var m Metadata
	var ok bool
	m.DBName, buf, ok = takeString(buf)
	if !ok {
		return m, fmt.Errorf("%w: truncated metadata record", ErrInvariantViolation)
	}
	m.DBDir, buf, ok = takeString(buf)
	if !ok {
		return m, fmt.Errorf("%w: truncated metadata record", ErrInvariantViolation)
	}
	if len(buf) < 4 {
		return m, fmt.Errorf("%w: truncated metadata record", ErrInvariantViolation)
	}
	m.IsDirected = buf[0] != 0
	m.IsWeighted = buf[1] != 0
	m.ReadOptimize = buf[2] != 0
	m.Type = RepresentationType(buf[3])
	return m, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func appendString(buf []byte, s string) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

func takeString(buf []byte) (string, []byte, bool) {
	if len(buf) < 4 {
		return "", buf, false
	}
	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return "", buf, false
	}
	return string(buf[:n]), buf[n:], true
}

// WriteMetadata persists m into the metadata table. The metadata
// cursor-equivalent (a single Mutate call here) is opened and closed
// within this one call, per spec §5's "metadata cursor is opened on
// demand and closed after each metadata read/write" rule.
func WriteMetadata(conn *kvs.Connection, table kvs.Table, m Metadata) error {
	key := kvs.WithPrefix(table.KeyPrefix(), []byte(metadataRecordKey))
	return conn.Mutate(func(tx *kvs.WriteTxn) error {
		return tx.Set(key, encodeMetadata(m))
	})
}

// ReadMetadata loads the persisted record, used on restore to check
// for option mismatches before the representation opens its tables.
func ReadMetadata(conn *kvs.Connection, table kvs.Table) (Metadata, error) {
	s := conn.NewSession()
	defer s.Close()

	key := kvs.WithPrefix(table.KeyPrefix(), []byte(metadataRecordKey))
	raw, err := s.Get(key)
	if err != nil {
		if err == kvs.ErrKeyNotFound {
			return Metadata{}, ErrNotFound
		}
		return Metadata{}, WrapKVS("read_metadata", err)
	}
	return decodeMetadata(raw)
}
