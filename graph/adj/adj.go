// Package adj implements the Adjacency-List graph representation (spec
// §4.3): a node table, an edge table keyed by (src,dst), and two side
// tables (in_adjlist, out_adjlist) holding each vertex's packed
// neighbor list directly, so a neighborhood query is a single point
// lookup instead of an index range scan. Grounded on
// original_source/src/adj_list.cpp's AdjList class and its
// IN_ADJLIST/OUT_ADJLIST tables, adapted onto the badger-backed kvs
// adapter the same way graph/std is.
package adj

import (
	"math/rand"

	"github.com/relio-db/graphkv/graph"
	"github.com/relio-db/graphkv/kvs"
)

const (
	nodeTableName = "node"
	edgeTableName = "edge"
	outAdjName    = "out_adjlist"
	inAdjName     = "in_adjlist"

	nextEdgeIDKey = "adj_next_edge_id"
)

// Graph is the Adjacency-List representation's Handle implementation.
type Graph struct {
	conn *kvs.Connection
	opts graph.Options

	nodeTable kvs.Table
	edgeTable kvs.Table
	outAdj    kvs.Table
	inAdj     kvs.Table

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
	if g.nodeTable, err = g.conn.CreateTable(nodeTableName); err != nil {
		return graph.WrapKVS("create_node_table", err)
	}
	if g.edgeTable, err = g.conn.CreateTable(edgeTableName); err != nil {
		return graph.WrapKVS("create_edge_table", err)
	}
	if g.outAdj, err = g.conn.CreateTable(outAdjName); err != nil {
		return graph.WrapKVS("create_out_adjlist_table", err)
	}
	if g.inAdj, err = g.conn.CreateTable(inAdjName); err != nil {
		return graph.WrapKVS("create_in_adjlist_table", err)
	}
	return nil
}

// Close releases the graph's resources. Like std, Adj keeps no state
// beyond table handles; the owning engine closes the kvs.Connection.
func (g *Graph) Close() error { return nil }

// CreateIndices and DropIndices complete Handle's bulk-load index
// lifecycle, but Adj has no secondary index to build: adjacency is
// stored directly in out_adjlist/in_adjlist, maintained incrementally
// by AddEdge. Its bulk path is PreloadAdjacency plus
// AddEdge(..., bulk=true), not a deferred-index rebuild, so both are
// no-ops here.
func (g *Graph) CreateIndices() error { return nil }
func (g *Graph) DropIndices() error   { return nil }

func nodeKey(id uint32) []byte { return kvs.EncodeID(id) }

func edgeKey(src, dst uint32) []byte { return kvs.EncodeCompositeKey(src, dst) }

func encodeEdgeValue(weight int32, hasWeight bool) []byte {
	return graph.PackWeight(weight, hasWeight)
}

// AddNode inserts a node with an empty adjacency list and zero degrees
// if absent; idempotent on an existing id, matching Std.
func (g *Graph) AddNode(n graph.Node) error {
	key := kvs.WithPrefix(g.nodeTable.KeyPrefix(), nodeKey(n.ID))
	return g.conn.Mutate(func(tx *kvs.WriteTxn) error {
		exists, err := tx.Has(key)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		if err := tx.Set(key, graph.PackDegreePair(0, 0)); err != nil {
			return err
		}
		outKey := kvs.WithPrefix(g.outAdj.KeyPrefix(), nodeKey(n.ID))
		if err := tx.Set(outKey, graph.PackNeighbors(nil)); err != nil {
			return err
		}
		inKey := kvs.WithPrefix(g.inAdj.KeyPrefix(), nodeKey(n.ID))
		return tx.Set(inKey, graph.PackNeighbors(nil))
	})
}

// SetDegree overwrites a node's cached (in_degree, out_degree) pair
// directly. Used by the repair pass (package engine); for Adj a full
// repair also repacks the adjacency side tables via PreloadAdjacency,
// which this does not touch. A no-op when ReadOptimize is off.
func (g *Graph) SetDegree(id uint32, in, out uint32) error {
	if !g.opts.ReadOptimize {
		return nil
	}
	key := kvs.WithPrefix(g.nodeTable.KeyPrefix(), nodeKey(id))
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
	ok, err := s.Has(kvs.WithPrefix(g.nodeTable.KeyPrefix(), nodeKey(id)))
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
	val, err := s.Get(kvs.WithPrefix(g.nodeTable.KeyPrefix(), nodeKey(id)))
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
		out, err := g.getAdjlist(s, g.outAdj, id)
		if err != nil {
			return graph.Node{}, err
		}
		in, err := g.getAdjlist(s, g.inAdj, id)
		if err != nil {
			return graph.Node{}, err
		}
		n.OutDegree = uint32(len(out))
		n.InDegree = uint32(len(in))
	}
	return n, nil
}

func (g *Graph) getAdjlist(s *kvs.Session, table kvs.Table, id uint32) ([]uint32, error) {
	val, err := s.Get(kvs.WithPrefix(table.KeyPrefix(), nodeKey(id)))
	if err != nil {
		if err == kvs.ErrKeyNotFound {
			return nil, nil
		}
		return nil, graph.WrapKVS("get_adjlist", err)
	}
	return graph.UnpackNeighbors(val), nil
}

// GetRandomNode mirrors Std's approximation of WiredTiger's
// next_random cursor configuration: seek a uniformly random key,
// wrapping to the first node if past the end.
func (g *Graph) GetRandomNode() (graph.Node, error) {
	s := g.conn.NewSession()
	defer s.Close()
	cur := s.OpenCursor(g.nodeTable.KeyPrefix())
	defer cur.Close()

	cur.Seek(kvs.EncodeID(rand.Uint32()))
	if !cur.Next() {
		cur.Reset()
		if !cur.Next() {
			return graph.Node{}, graph.ErrNotFound
		}
	}
	id := kvs.DecodeID(cur.Key())
	return g.getNode(s, id)
}

// DeleteNode removes a node, its adjacency-list rows, and every
// incident edge, scrubbing this node's id out of each neighbor's
// adjacency list in turn — grounded on delete_node_from_adjlists.
func (g *Graph) DeleteNode(id uint32) error {
	nodeKeyBuf := kvs.WithPrefix(g.nodeTable.KeyPrefix(), nodeKey(id))

	return g.conn.Mutate(func(tx *kvs.WriteTxn) error {
		exists, err := tx.Has(nodeKeyBuf)
		if err != nil {
			return err
		}
		if !exists {
			return graph.ErrNotFound
		}

		outNeighbors, err := g.txAdjlist(tx, g.outAdj, id)
		if err != nil {
			return err
		}
		inNeighbors, err := g.txAdjlist(tx, g.inAdj, id)
		if err != nil {
			return err
		}

		for _, nb := range outNeighbors {
			if err := g.removeFromAdjlist(tx, g.inAdj, nb, id); err != nil {
				return err
			}
			if err := tx.Delete(kvs.WithPrefix(g.edgeTable.KeyPrefix(), edgeKey(id, nb))); err != nil {
				return err
			}
			if g.opts.ReadOptimize {
				if err := g.adjustDegree(tx, nb, -1, 0); err != nil {
					return err
				}
			}
		}
		for _, nb := range inNeighbors {
			if err := g.removeFromAdjlist(tx, g.outAdj, nb, id); err != nil {
				return err
			}
			if err := tx.Delete(kvs.WithPrefix(g.edgeTable.KeyPrefix(), edgeKey(nb, id))); err != nil {
				return err
			}
			if g.opts.ReadOptimize {
				if err := g.adjustDegree(tx, nb, 0, -1); err != nil {
					return err
				}
			}
		}

		if err := tx.Delete(kvs.WithPrefix(g.outAdj.KeyPrefix(), nodeKey(id))); err != nil {
			return err
		}
		if err := tx.Delete(kvs.WithPrefix(g.inAdj.KeyPrefix(), nodeKey(id))); err != nil {
			return err
		}
		return tx.Delete(nodeKeyBuf)
	})
}

func (g *Graph) txAdjlist(tx *kvs.WriteTxn, table kvs.Table, id uint32) ([]uint32, error) {
	val, err := tx.Get(kvs.WithPrefix(table.KeyPrefix(), nodeKey(id)))
	if err != nil {
		if err == kvs.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	return graph.UnpackNeighbors(val), nil
}

func (g *Graph) removeFromAdjlist(tx *kvs.WriteTxn, table kvs.Table, id, remove uint32) error {
	list, err := g.txAdjlist(tx, table, id)
	if err != nil {
		return err
	}
	out := list[:0]
	for _, v := range list {
		if v != remove {
			out = append(out, v)
		}
	}
	return tx.Set(kvs.WithPrefix(table.KeyPrefix(), nodeKey(id)), graph.PackNeighbors(out))
}

func (g *Graph) adjustDegree(tx *kvs.WriteTxn, id uint32, deltaIn, deltaOut int32) error {
	if !g.opts.ReadOptimize {
		return nil
	}
	key := kvs.WithPrefix(g.nodeTable.KeyPrefix(), nodeKey(id))
	raw, err := tx.Get(key)
	if err != nil {
		return err
	}
	in, out := graph.UnpackDegreePair(raw)
	in = applyDelta(in, deltaIn)
	out = applyDelta(out, deltaOut)
	return tx.Set(key, graph.PackDegreePair(in, out))
}

func applyDelta(v uint32, delta int32) uint32 {
	if delta < 0 {
		d := uint32(-delta)
		if d > v {
			return 0
		}
		return v - d
	}
	return v + uint32(delta)
}

func (g *Graph) GetNodes() ([]graph.Node, error) {
	s := g.conn.NewSession()
	defer s.Close()
	cur := s.OpenCursor(g.nodeTable.KeyPrefix())
	defer cur.Close()

	var out []graph.Node
	for cur.Next() {
		id := kvs.DecodeID(cur.Key())
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
	cur := s.OpenCursor(g.nodeTable.KeyPrefix())
	defer cur.Close()
	n := 0
	for cur.Next() {
		n++
	}
	return n, nil
}

func (g *Graph) GetNumEdges() (int, error) {
	s := g.conn.NewSession()
	defer s.Close()
	cur := s.OpenCursor(g.edgeTable.KeyPrefix())
	defer cur.Close()
	n := 0
	for cur.Next() {
		n++
	}
	return n, nil
}
