// Package ekey implements the Edge-Key graph representation (spec
// §4.4): a single table keyed by (src, dst), where a node's own record
// is stored at (id, SentinelDst) and every real edge at (src, dst).
// Grounded on original_source/src/edgekey.{h,cpp}'s EdgeKey class,
// which keys the same table by (node_id, -1) for node rows. graphkv's
// fixed-width big-endian encoding has no byte-reversal step (see
// DESIGN.md's "EKey ordering without byte-reversal"), so unlike the C++ original SentinelDst
// does not sort before every real dst — see cursor.go's doc comment
// for how the scans compensate.
package ekey

import (
	"math/rand"

	"github.com/relio-db/graphkv/graph"
	"github.com/relio-db/graphkv/kvs"
)

// SentinelDst marks a (src, dst) row as a node's own record rather
// than an edge. Chosen as the maximum uint32 (the Open Question
// resolution spec §9 calls for: "-1, or the max unsigned value under
// byte-reversed encoding") even though, without byte-reversal, this
// sorts the node row after every real edge out of src instead of
// before it.
const SentinelDst uint32 = ^uint32(0)

const (
	tableName    = "ekey"
	dstIndexName = "IX_ekey_dst"
)

// Graph is the Edge-Key representation's Handle implementation.
type Graph struct {
	conn *kvs.Connection
	opts graph.Options

	table    kvs.Table
	dstIndex kvs.Index

	metaTable kvs.Table
}

func Open(conn *kvs.Connection, opts graph.Options) (*Graph, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	metaTable, err := conn.CreateTable(graph.MetadataTableName)
	if err != nil {
		return nil, graph.WrapKVS("create_metadata_table", err)
	}

	g := &Graph{conn: conn, opts: opts, metaTable: metaTable}

	if opts.CreateNew {
		if err := g.createSchema(); err != nil {
			return nil, err
		}
		if err := graph.WriteMetadata(conn, metaTable, graph.FromOptions(opts)); err != nil {
			return nil, err
		}
	} else {
		meta, err := graph.ReadMetadata(conn, metaTable)
		if err != nil {
			return nil, err
		}
		if err := meta.Mismatch(opts); err != nil {
			return nil, err
		}
		if err := g.openSchema(); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func (g *Graph) createSchema() error { return g.openSchema() }

func (g *Graph) openSchema() error {
	var err error
	if g.table, err = g.conn.CreateTable(tableName); err != nil {
		return graph.WrapKVS("create_ekey_table", err)
	}
	if g.dstIndex, err = g.conn.CreateIndex(dstIndexName); err != nil {
		return graph.WrapKVS("create_dst_index", err)
	}
	return nil
}

func (g *Graph) Close() error { return nil }

func nodeRowKey(id uint32) []byte { return kvs.EncodeCompositeKey(id, SentinelDst) }

func edgeRowKey(src, dst uint32) []byte { return kvs.EncodeCompositeKey(src, dst) }

func dstIndexKey(dst, src uint32) []byte { return kvs.EncodeCompositeKey(dst, src) }

// AddNode writes the node's own (id, SentinelDst) row if absent.
func (g *Graph) AddNode(n graph.Node) error {
	key := kvs.WithPrefix(g.table.KeyPrefix(), nodeRowKey(n.ID))
	return g.conn.Mutate(func(tx *kvs.WriteTxn) error {
		exists, err := tx.Has(key)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		return tx.Set(key, graph.PackDegreePair(0, 0))
	})
}

// SetDegree overwrites a node's cached (in_degree, out_degree) pair
// directly. Used by the repair pass (package engine); a no-op when
// ReadOptimize is off.
func (g *Graph) SetDegree(id uint32, in, out uint32) error {
	if !g.opts.ReadOptimize {
		return nil
	}
	key := kvs.WithPrefix(g.table.KeyPrefix(), nodeRowKey(id))
	return g.conn.Mutate(func(tx *kvs.WriteTxn) error {
		exists, err := tx.Has(key)
		if err != nil {
			return err
		}
		if !exists {
			return graph.ErrNotFound
		}
		return tx.Set(key, graph.PackDegreePair(in, out))
	})
}

func (g *Graph) HasNode(id uint32) (bool, error) {
	s := g.conn.NewSession()
	defer s.Close()
	ok, err := s.Has(kvs.WithPrefix(g.table.KeyPrefix(), nodeRowKey(id)))
	if err != nil {
		return false, graph.WrapKVS("has_node", err)
	}
	return ok, nil
}

func (g *Graph) GetNode(id uint32) (graph.Node, error) {
	s := g.conn.NewSession()
	defer s.Close()
	return g.getNode(s, id)
}

func (g *Graph) getNode(s *kvs.Session, id uint32) (graph.Node, error) {
	val, err := s.Get(kvs.WithPrefix(g.table.KeyPrefix(), nodeRowKey(id)))
	if err != nil {
		if err == kvs.ErrKeyNotFound {
			return graph.Node{}, graph.ErrNotFound
		}
		return graph.Node{}, graph.WrapKVS("get_node", err)
	}
	n := graph.Node{ID: id}
	if g.opts.ReadOptimize {
		n.InDegree, n.OutDegree = graph.UnpackDegreePair(val)
	} else {
		in, out, err := g.countDegrees(s, id)
		if err != nil {
			return graph.Node{}, err
		}
		n.InDegree, n.OutDegree = in, out
	}
	return n, nil
}

func (g *Graph) countDegrees(s *kvs.Session, id uint32) (in, out uint32, err error) {
	cur := s.OpenCursor(g.table.KeyPrefix())
	defer cur.Close()
	cur.Seek(kvs.EncodeID(id))
	for cur.Next() {
		k := cur.Key()
		src, dst := kvs.DecodeCompositeKey(k)
		if src != id {
			break
		}
		if dst == SentinelDst {
			continue
		}
		out++
	}

	dcur := s.OpenCursor(g.dstIndex.KeyPrefix())
	defer dcur.Close()
	dcur.Seek(kvs.EncodeID(id))
	for dcur.Next() {
		k := dcur.Key()
		dst, _ := kvs.DecodeCompositeKey(k)
		if dst != id {
			break
		}
		in++
	}
	return in, out, nil
}

// GetRandomNode approximates next_random by seeking a uniformly random
// key in the table and scanning forward (skipping edge rows and
// wrapping) until a node row is found.
func (g *Graph) GetRandomNode() (graph.Node, error) {
	s := g.conn.NewSession()
	defer s.Close()
	cur := s.OpenCursor(g.table.KeyPrefix())
	defer cur.Close()

	cur.Seek(kvs.EncodeID(rand.Uint32()))
	for attempt := 0; attempt < 2; attempt++ {
		for cur.Next() {
			_, dst := kvs.DecodeCompositeKey(cur.Key())
			if dst == SentinelDst {
				src, _ := kvs.DecodeCompositeKey(cur.Key())
				return g.getNode(s, src)
			}
		}
		cur.Reset()
	}
	return graph.Node{}, graph.ErrNotFound
}

// DeleteNode removes the node's own row and cascades to every incident
// edge (spec §4.4, exercised by scenario 3's delete cascade).
func (g *Graph) DeleteNode(id uint32) error {
	nodeKeyBuf := kvs.WithPrefix(g.table.KeyPrefix(), nodeRowKey(id))

	return g.conn.Mutate(func(tx *kvs.WriteTxn) error {
		exists, err := tx.Has(nodeKeyBuf)
		if err != nil {
			return err
		}
		if !exists {
			return graph.ErrNotFound
		}

		if err := g.deleteIncidentEdges(tx, id); err != nil {
			return err
		}
		return tx.Delete(nodeKeyBuf)
	})
}

func (g *Graph) deleteIncidentEdges(tx *kvs.WriteTxn, id uint32) error {
	var pairs [][2]uint32 // (src, dst) of every edge row touching id

	srcPrefix := kvs.WithPrefix(g.table.KeyPrefix(), kvs.EncodeID(id))
	if err := tx.ScanPrefix(srcPrefix, func(key, _ []byte) error {
		dst := kvs.DecodeID(key)
		if dst == SentinelDst {
			return nil
		}
		pairs = append(pairs, [2]uint32{id, dst})
		return nil
	}); err != nil {
		return graph.WrapKVS("delete_node_scan_out", err)
	}

	dstPrefix := kvs.WithPrefix(g.dstIndex.KeyPrefix(), kvs.EncodeID(id))
	if err := tx.ScanPrefix(dstPrefix, func(key, _ []byte) error {
		src := kvs.DecodeID(key)
		pairs = append(pairs, [2]uint32{src, id})
		return nil
	}); err != nil {
		return graph.WrapKVS("delete_node_scan_in", err)
	}

	for _, p := range pairs {
		if err := g.deleteEdgeRow(tx, p[0], p[1]); err != nil && err != graph.ErrNotFound {
			return err
		}
	}
	return nil
}

func (g *Graph) GetNodes() ([]graph.Node, error) {
	s := g.conn.NewSession()
	defer s.Close()
	cur := s.OpenCursor(g.table.KeyPrefix())
	defer cur.Close()

	var out []graph.Node
	for cur.Next() {
		_, dst := kvs.DecodeCompositeKey(cur.Key())
		if dst != SentinelDst {
			continue
		}
		id, _ := kvs.DecodeCompositeKey(cur.Key())
		n, err := g.getNode(s, id)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (g *Graph) GetNumNodes() (int, error) {
	s := g.conn.NewSession()
	defer s.Close()
	cur := s.OpenCursor(g.table.KeyPrefix())
	defer cur.Close()
	n := 0
	for cur.Next() {
		_, dst := kvs.DecodeCompositeKey(cur.Key())
		if dst == SentinelDst {
			n++
		}
	}
	return n, nil
}

func (g *Graph) GetNumEdges() (int, error) {
	s := g.conn.NewSession()
	defer s.Close()
	cur := s.OpenCursor(g.table.KeyPrefix())
	defer cur.Close()
	n := 0
	for cur.Next() {
		_, dst := kvs.DecodeCompositeKey(cur.Key())
		if dst != SentinelDst {
			n++
		}
	}
	return n, nil
}

// CreateIndices and DropIndices complete Handle's bulk-load lifecycle.
// EKey maintains its dst index unconditionally on every AddEdge, so
// unlike Std there is no deferred-build state to complete; both are
// no-ops, matching Adj's rationale.
func (g *Graph) CreateIndices() error { return nil }
func (g *Graph) DropIndices() error   { return nil }
