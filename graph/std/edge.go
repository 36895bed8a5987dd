package std

import (
	"github.com/relio-db/graphkv/graph"
	"github.com/relio-db/graphkv/kvs"
)

// allocEdgeID returns the next monotonically increasing edge id, storing
// the updated counter in the metadata table within the same mutation
// fn is called from.
func (g *Graph) allocEdgeID(tx *kvs.WriteTxn) (uint32, error) {
	key := kvs.WithPrefix(g.metaTable.KeyPrefix(), []byte(nextEdgeIDKey))
	raw, err := tx.Get(key)
	var next uint32 = 1
	if err == nil {
		next = kvs.DecodeID(raw)
	} else if err != kvs.ErrKeyNotFound {
		return 0, err
	}
	if err := tx.Set(key, kvs.EncodeID(next+1)); err != nil {
		return 0, err
	}
	return next, nil
}

func (g *Graph) ensureNode(tx *kvs.WriteTxn, id uint32) error {
	key := kvs.WithPrefix(g.nodeTable.KeyPrefix(), nodeKey(id))
	exists, err := tx.Has(key)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return tx.Set(key, graph.PackDegreePair(0, 0))
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

// writeEdgeRecord inserts the edge row and, when g.indicesBuilt, its
// three index entries. Used both by the normal insert path and by
// CreateIndices' replay of existing rows.
func (g *Graph) writeEdgeRecord(tx *kvs.WriteTxn, edgeID uint32, e graph.Edge) error {
	ekey := kvs.WithPrefix(g.edgeTable.KeyPrefix(), edgeKey(edgeID))
	if err := tx.Set(ekey, encodeEdgeValue(e)); err != nil {
		return err
	}
	if !g.indicesBuilt {
		return nil
	}
	return g.writeIndexEntries(tx, edgeID, e)
}

func (g *Graph) writeIndexEntries(tx *kvs.WriteTxn, edgeID uint32, e graph.Edge) error {
	srcKey := kvs.WithPrefix(g.srcIndex.KeyPrefix(), srcIndexKey(e.SrcID, edgeID))
	if err := tx.Set(srcKey, encodeEdgeValue(e)); err != nil {
		return err
	}
	dstKey := kvs.WithPrefix(g.dstIndex.KeyPrefix(), dstIndexKey(e.DstID, edgeID))
	if err := tx.Set(dstKey, encodeEdgeValue(e)); err != nil {
		return err
	}
	sdKey := kvs.WithPrefix(g.srcDstIndex.KeyPrefix(), srcDstIndexKey(e.SrcID, e.DstID))
	return tx.Set(sdKey, kvs.EncodeID(edgeID))
}

// AddEdge inserts edge e, allocating a fresh edge id, optionally
// mirroring the reverse direction for undirected graphs and bumping
// cached degrees when ReadOptimize is on (spec §4.2). When bulk is
// true, endpoint existence is trusted rather than checked/created —
// the caller is expected to have added both endpoints already.
func (g *Graph) AddEdge(e graph.Edge, bulk bool) error {
	if g.opts.IsWeighted {
		e.HasWeight = true
	} else {
		e.HasWeight = false
		e.Weight = 0
	}

	return g.conn.Mutate(func(tx *kvs.WriteTxn) error {
		if !bulk {
			if err := g.ensureNode(tx, e.SrcID); err != nil {
				return err
			}
			if err := g.ensureNode(tx, e.DstID); err != nil {
				return err
			}
		}

		edgeID, err := g.allocEdgeID(tx)
		if err != nil {
			return err
		}
		if err := g.writeEdgeRecord(tx, edgeID, e); err != nil {
			return err
		}

		if !g.opts.IsDirected {
			reverse := graph.Edge{SrcID: e.DstID, DstID: e.SrcID, Weight: e.Weight, HasWeight: e.HasWeight}
			revID, err := g.allocEdgeID(tx)
			if err != nil {
				return err
			}
			if err := g.writeEdgeRecord(tx, revID, reverse); err != nil {
				return err
			}
		}

		if g.opts.ReadOptimize {
			if err := g.adjustDegree(tx, e.SrcID, 0, 1); err != nil {
				return err
			}
			if err := g.adjustDegree(tx, e.DstID, 1, 0); err != nil {
				return err
			}
			if !g.opts.IsDirected {
				if err := g.adjustDegree(tx, e.DstID, 0, 1); err != nil {
					return err
				}
				if err := g.adjustDegree(tx, e.SrcID, 1, 0); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (g *Graph) lookupEdgeID(s interface {
	Get([]byte) ([]byte, error)
}, src, dst uint32) (uint32, bool, error) {
	key := kvs.WithPrefix(g.srcDstIndex.KeyPrefix(), srcDstIndexKey(src, dst))
	raw, err := s.Get(key)
	if err != nil {
		if err == kvs.ErrKeyNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	return kvs.DecodeID(raw), true, nil
}

func (g *Graph) HasEdge(src, dst uint32) (bool, error) {
	s := g.conn.NewSession()
	defer s.Close()
	_, ok, err := g.lookupEdgeID(s, src, dst)
	if err != nil {
		return false, graph.WrapKVS("has_edge", err)
	}
	return ok, nil
}

func (g *Graph) GetEdge(src, dst uint32) (graph.Edge, error) {
	s := g.conn.NewSession()
	defer s.Close()
	edgeID, ok, err := g.lookupEdgeID(s, src, dst)
	if err != nil {
		return graph.Edge{}, graph.WrapKVS("get_edge", err)
	}
	if !ok {
		return graph.Edge{}, graph.ErrNotFound
	}
	raw, err := s.Get(kvs.WithPrefix(g.edgeTable.KeyPrefix(), edgeKey(edgeID)))
	if err != nil {
		if err == kvs.ErrKeyNotFound {
			return graph.Edge{}, graph.ErrNotFound
		}
		return graph.Edge{}, graph.WrapKVS("get_edge", err)
	}
	return decodeEdgeValue(raw), nil
}

// deleteEdgeByID removes one edge row plus its index entries, called
// both by DeleteEdge and by DeleteNode's cascade.
func (g *Graph) deleteEdgeByID(tx *kvs.WriteTxn, edgeID uint32) error {
	ekey := kvs.WithPrefix(g.edgeTable.KeyPrefix(), edgeKey(edgeID))
	raw, err := tx.Get(ekey)
	if err != nil {
		if err == kvs.ErrKeyNotFound {
			return graph.ErrNotFound
		}
		return err
	}
	e := decodeEdgeValue(raw)

	if g.indicesBuilt {
		if err := tx.Delete(kvs.WithPrefix(g.srcIndex.KeyPrefix(), srcIndexKey(e.SrcID, edgeID))); err != nil {
			return err
		}
		if err := tx.Delete(kvs.WithPrefix(g.dstIndex.KeyPrefix(), dstIndexKey(e.DstID, edgeID))); err != nil {
			return err
		}
		if err := tx.Delete(kvs.WithPrefix(g.srcDstIndex.KeyPrefix(), srcDstIndexKey(e.SrcID, e.DstID))); err != nil {
			return err
		}
	}
	if err := tx.Delete(ekey); err != nil {
		return err
	}

	if g.opts.ReadOptimize {
		if err := g.adjustDegree(tx, e.SrcID, 0, -1); err != nil {
			return err
		}
		if err := g.adjustDegree(tx, e.DstID, -1, 0); err != nil {
			return err
		}
	}
	return nil
}

// DeleteEdge removes the edge (src,dst) and, for undirected graphs,
// its mirrored (dst,src) counterpart, decrementing cached degrees
// symmetrically in both directions (spec §9's requirement that
// undirected degree accounting be symmetric between add and delete).
func (g *Graph) DeleteEdge(src, dst uint32) error {
	return g.conn.Mutate(func(tx *kvs.WriteTxn) error {
		edgeID, ok, err := g.lookupEdgeID(tx, src, dst)
		if err != nil {
			return err
		}
		if !ok {
			return graph.ErrNotFound
		}
		if err := g.deleteEdgeByID(tx, edgeID); err != nil {
			return err
		}

		if !g.opts.IsDirected {
			revID, ok, err := g.lookupEdgeID(tx, dst, src)
			if err != nil {
				return err
			}
			if ok {
				if err := g.deleteEdgeByID(tx, revID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (g *Graph) UpdateEdgeWeight(src, dst uint32, weight int32) error {
	if !g.opts.IsWeighted {
		return graph.ErrUnsupported
	}
	return g.conn.Mutate(func(tx *kvs.WriteTxn) error {
		edgeID, ok, err := g.lookupEdgeID(tx, src, dst)
		if err != nil {
			return err
		}
		if !ok {
			return graph.ErrNotFound
		}
		ekey := kvs.WithPrefix(g.edgeTable.KeyPrefix(), edgeKey(edgeID))
		raw, err := tx.Get(ekey)
		if err != nil {
			return err
		}
		e := decodeEdgeValue(raw)
		e.Weight = weight
		e.HasWeight = true
		if err := tx.Set(ekey, encodeEdgeValue(e)); err != nil {
			return err
		}
		if g.indicesBuilt {
			if err := tx.Set(kvs.WithPrefix(g.srcIndex.KeyPrefix(), srcIndexKey(e.SrcID, edgeID)), encodeEdgeValue(e)); err != nil {
				return err
			}
			if err := tx.Set(kvs.WithPrefix(g.dstIndex.KeyPrefix(), dstIndexKey(e.DstID, edgeID)), encodeEdgeValue(e)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *Graph) GetInDegree(id uint32) (uint32, error) {
	n, err := g.GetNode(id)
	if err != nil {
		return 0, err
	}
	return n.InDegree, nil
}

func (g *Graph) GetOutDegree(id uint32) (uint32, error) {
	n, err := g.GetNode(id)
	if err != nil {
		return 0, err
	}
	return n.OutDegree, nil
}

func (g *Graph) GetOutEdges(id uint32) ([]graph.Edge, error) {
	s := g.conn.NewSession()
	defer s.Close()
	cur := s.OpenCursor(g.srcIndex.KeyPrefix())
	defer cur.Close()
	cur.Seek(kvs.EncodeID(id))

	var out []graph.Edge
	for cur.Next() {
		k := cur.Key()
		if kvs.DecodeID(k[:kvs.IDSize]) != id {
			break
		}
		val, err := cur.Value()
		if err != nil {
			return nil, graph.WrapKVS("get_out_edges", err)
		}
		out = append(out, decodeEdgeValue(val))
	}
	return out, nil
}

func (g *Graph) GetInEdges(id uint32) ([]graph.Edge, error) {
	s := g.conn.NewSession()
	defer s.Close()
	cur := s.OpenCursor(g.dstIndex.KeyPrefix())
	defer cur.Close()
	cur.Seek(kvs.EncodeID(id))

	var out []graph.Edge
	for cur.Next() {
		k := cur.Key()
		if kvs.DecodeID(k[:kvs.IDSize]) != id {
			break
		}
		val, err := cur.Value()
		if err != nil {
			return nil, graph.WrapKVS("get_in_edges", err)
		}
		out = append(out, decodeEdgeValue(val))
	}
	return out, nil
}

func (g *Graph) GetOutNodes(id uint32) ([]uint32, error) {
	edges, err := g.GetOutEdges(id)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(edges))
	for i, e := range edges {
		out[i] = e.DstID
	}
	return out, nil
}

func (g *Graph) GetInNodes(id uint32) ([]uint32, error) {
	edges, err := g.GetInEdges(id)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(edges))
	for i, e := range edges {
		out[i] = e.SrcID
	}
	return out, nil
}

// CreateIndices builds the src/dst/srcdst index entries from the
// existing edge table in one pass, completing the optimize_create bulk
// path (spec §4.2). Refuses with graph.ErrBusy if any cursor is open
// anywhere on the connection, since index creation requires exclusive
// access.
func (g *Graph) CreateIndices() error {
	if g.indicesBuilt {
		return nil
	}
	if g.conn.CursorCount() > 0 {
		return graph.ErrBusy
	}

	err := g.conn.Mutate(func(tx *kvs.WriteTxn) error {
		return tx.ScanPrefix(g.edgeTable.KeyPrefix(), func(key, val []byte) error {
			edgeID := kvs.DecodeID(key)
			e := decodeEdgeValue(val)
			return g.writeIndexEntries(tx, edgeID, e)
		})
	})
	if err != nil {
		return graph.WrapKVS("create_indices", err)
	}
	g.indicesBuilt = true
	return nil
}

// DropIndices discards the three secondary indices, reverting to the
// optimize_create bulk-load state. Refuses with graph.ErrBusy if any
// cursor is open.
func (g *Graph) DropIndices() error {
	if !g.indicesBuilt {
		return nil
	}
	if g.conn.CursorCount() > 0 {
		return graph.ErrBusy
	}
	if err := g.conn.DropIndex(g.srcIndex); err != nil {
		return graph.WrapKVS("drop_indices", err)
	}
	if err := g.conn.DropIndex(g.dstIndex); err != nil {
		return graph.WrapKVS("drop_indices", err)
	}
	if err := g.conn.DropIndex(g.srcDstIndex); err != nil {
		return graph.WrapKVS("drop_indices", err)
	}
	g.indicesBuilt = false
	return nil
}
