// Package std implements the Standard graph representation (spec §4.2):
// a node table and an edge table, with secondary indices on the edge
// table's src and dst columns plus a composite (src,dst) index for
// existence checks. It mirrors a relational schema; neighborhood
// queries become index range scans, grounded on the teacher's
// label/outgoing/incoming index layout in pkg/storage/badger.go.
package std

import (
	"math/rand"

	"github.com/relio-db/graphkv/graph"
	"github.com/relio-db/graphkv/kvs"
)

const (
	nodeTableName  = "node"
	edgeTableName  = "edge"
	srcIndexName   = "IX_edge_src"
	dstIndexName   = "IX_edge_dst"
	srcDstIndexName = "IX_edge_srcdst"

	nextEdgeIDKey = "std_next_edge_id"
)

// Graph is the Standard representation's Handle implementation.
type Graph struct {
	conn *kvs.Connection
	opts graph.Options

	nodeTable kvs.Table
	edgeTable kvs.Table

	srcIndex    kvs.Index
	dstIndex    kvs.Index
	srcDstIndex kvs.Index

	metaTable kvs.Table

	// indicesBuilt tracks the optimize_create bulk path (spec §4.2): if
	// Options.OptimizeCreate is set, AddEdge skips writing the three
	// index entries until CreateIndices does one pass over the edge
	// table to build them, so bulk loads pay index-maintenance cost
	// once instead of per insert.
	indicesBuilt bool
}

// Open creates or restores a Standard-representation graph against the
// given connection, matching the Options given. The caller (package
// engine) is responsible for opening/closing the underlying
// kvs.Connection; Open here only establishes and validates the table
// schema.
func Open(conn *kvs.Connection, opts graph.Options) (*Graph, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	metaTable, err := conn.CreateTable(graph.MetadataTableName)
	if err != nil {
		return nil, graph.WrapKVS("create_metadata_table", err)
	}

	g := &Graph{
		conn:      conn,
		opts:      opts,
		metaTable: metaTable,
	}

	if opts.CreateNew {
		if err := g.createSchema(); err != nil {
			return nil, err
		}
		if err := graph.WriteMetadata(conn, metaTable, graph.FromOptions(opts)); err != nil {
			return nil, err
		}
		g.indicesBuilt = !opts.OptimizeCreate
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
		g.indicesBuilt = true // a restored graph's indices are always fully built
	}

	return g, nil
}

func (g *Graph) createSchema() error {
	return g.openSchema()
}

func (g *Graph) openSchema() error {
	var err error
	if g.nodeTable, err = g.conn.CreateTable(nodeTableName); err != nil {
		return graph.WrapKVS("create_node_table", err)
	}
	if g.edgeTable, err = g.conn.CreateTable(edgeTableName); err != nil {
		return graph.WrapKVS("create_edge_table", err)
	}
	if g.srcIndex, err = g.conn.CreateIndex(srcIndexName); err != nil {
		return graph.WrapKVS("create_src_index", err)
	}
	if g.dstIndex, err = g.conn.CreateIndex(dstIndexName); err != nil {
		return graph.WrapKVS("create_dst_index", err)
	}
	if g.srcDstIndex, err = g.conn.CreateIndex(srcDstIndexName); err != nil {
		return graph.WrapKVS("create_srcdst_index", err)
	}
	return nil
}

// Close releases the graph's resources. The Standard representation
// keeps no state beyond table/index handles, so Close is a no-op
// beyond satisfying graph.Handle; the owning engine closes the
// underlying kvs.Connection.
func (g *Graph) Close() error { return nil }

func nodeKey(id uint32) []byte {
	return kvs.EncodeID(id)
}

func edgeKey(edgeID uint32) []byte {
	return kvs.EncodeID(edgeID)
}

func encodeEdgeValue(e graph.Edge) []byte {
	buf := make([]byte, 13)
	copy(buf[0:4], kvs.EncodeID(e.SrcID))
	copy(buf[4:8], kvs.EncodeID(e.DstID))
	copy(buf[8:13], graph.PackWeight(e.Weight, e.HasWeight))
	return buf
}

func decodeEdgeValue(buf []byte) graph.Edge {
	src := kvs.DecodeID(buf[0:4])
	dst := kvs.DecodeID(buf[4:8])
	weight, hasWeight := graph.UnpackWeight(buf[8:13])
	return graph.Edge{SrcID: src, DstID: dst, Weight: weight, HasWeight: hasWeight}
}

// srcIndexKey/dstIndexKey/srcDstIndexKey encode the secondary index
// entries. src/dst index entries carry the full encoded edge (src, dst
// and weight) as their value so a
// neighborhood scan never needs a second lookup into the edge table.
func srcIndexKey(src, edgeID uint32) []byte {
	return kvs.EncodeCompositeKey(src, edgeID)
}

func dstIndexKey(dst, edgeID uint32) []byte {
	return kvs.EncodeCompositeKey(dst, edgeID)
}

func srcDstIndexKey(src, dst uint32) []byte {
	return kvs.EncodeCompositeKey(src, dst)
}

// AddNode inserts a node with zero degrees if absent. Nodes are
// idempotent on existence (spec §7): calling AddNode on an id that
// already exists is a no-op, not an error.
func (g *Graph) AddNode(n graph.Node) error {
	key := kvs.WithPrefix(g.nodeTable.KeyPrefix(), nodeKey(n.ID))
	return g.conn.Mutate(func(tx *kvs.WriteTxn) error {
		exists, err := tx.Has(key)
		if err != nil {
			return graph.WrapKVS("add_node", err)
		}
		if exists {
			return nil
		}
		return tx.Set(key, graph.PackDegreePair(0, 0))
	})
}

// SetDegree overwrites a node's cached (in_degree, out_degree) pair
// directly, bypassing the usual increment/decrement path. Used only by
// the repair pass (package engine) to reconcile the cache against a
// from-scratch recount of the edge table; a no-op when ReadOptimize is
// off since there is no cache to reconcile.
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
	key := kvs.WithPrefix(g.nodeTable.KeyPrefix(), nodeKey(id))
	ok, err := s.Has(key)
	if err != nil {
		return false, graph.WrapKVS("has_node", err)
	}
	return ok, nil
}

func (g *Graph) GetNode(id uint32) (graph.Node, error) {
	s := g.conn.NewSession()
	defer s.Close()
	key := kvs.WithPrefix(g.nodeTable.KeyPrefix(), nodeKey(id))
	val, err := s.Get(key)
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
	cur := s.OpenCursor(g.srcIndex.KeyPrefix())
	defer cur.Close()
	cur.Seek(kvs.EncodeID(id))
	for cur.Next() {
		k := cur.Key()
		if kvs.DecodeID(k[:kvs.IDSize]) != id {
			break
		}
		out++
	}

	curIn := s.OpenCursor(g.dstIndex.KeyPrefix())
	defer curIn.Close()
	curIn.Seek(kvs.EncodeID(id))
	for curIn.Next() {
		k := curIn.Key()
		if kvs.DecodeID(k[:kvs.IDSize]) != id {
			break
		}
		in++
	}
	return in, out, nil
}

// GetRandomNode seeks to a uniformly random key in the node table's
// keyspace and returns the first node at or after it, wrapping around
// to the first node if the random key falls past the last one. This
// approximates WiredTiger's next_random cursor configuration without
// badger having a native equivalent.
func (g *Graph) GetRandomNode() (graph.Node, error) {
	s := g.conn.NewSession()
	defer s.Close()

	cur := s.OpenCursor(g.nodeTable.KeyPrefix())
	defer cur.Close()

	randomID := rand.Uint32()
	cur.Seek(kvs.EncodeID(randomID))
	if !cur.Next() {
		cur.Reset()
		if !cur.Next() {
			return graph.Node{}, graph.ErrNotFound
		}
	}
	id := kvs.DecodeID(cur.Key())
	return g.GetNode(id)
}

// DeleteNode removes a node and cascades to every incident edge,
// decrementing the counterpart endpoints' degrees as it goes (spec
// §4.2).
func (g *Graph) DeleteNode(id uint32) error {
	nodeKeyBuf := kvs.WithPrefix(g.nodeTable.KeyPrefix(), nodeKey(id))

	return g.conn.Mutate(func(tx *kvs.WriteTxn) error {
		exists, err := tx.Has(nodeKeyBuf)
		if err != nil {
			return graph.WrapKVS("delete_node", err)
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

// deleteIncidentEdges removes every edge touching id (as src or dst)
// from within an already-open mutation, used by DeleteNode.
func (g *Graph) deleteIncidentEdges(tx *kvs.WriteTxn, id uint32) error {
	var edgeIDs []uint32
	outPrefix := kvs.WithPrefix(g.srcIndex.KeyPrefix(), kvs.EncodeID(id))
	if err := tx.ScanPrefix(outPrefix, func(key, _ []byte) error {
		edgeIDs = append(edgeIDs, kvs.DecodeID(key))
		return nil
	}); err != nil {
		return graph.WrapKVS("delete_node_scan_src", err)
	}

	inPrefix := kvs.WithPrefix(g.dstIndex.KeyPrefix(), kvs.EncodeID(id))
	if err := tx.ScanPrefix(inPrefix, func(key, _ []byte) error {
		edgeIDs = append(edgeIDs, kvs.DecodeID(key))
		return nil
	}); err != nil {
		return graph.WrapKVS("delete_node_scan_dst", err)
	}

	for _, eid := range edgeIDs {
		if err := g.deleteEdgeByID(tx, eid); err != nil && err != graph.ErrNotFound {
			return err
		}
	}
	return nil
}

func (g *Graph) GetNodes() ([]graph.Node, error) {
	s := g.conn.NewSession()
	defer s.Close()
	cur := s.OpenCursor(g.nodeTable.KeyPrefix())
	defer cur.Close()

	var out []graph.Node
	for cur.Next() {
		id := kvs.DecodeID(cur.Key())
		n, err := g.GetNode(id)
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
