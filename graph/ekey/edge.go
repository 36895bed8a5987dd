package ekey

import (
	"github.com/relio-db/graphkv/graph"
	"github.com/relio-db/graphkv/kvs"
)

func (g *Graph) ensureNode(tx *kvs.WriteTxn, id uint32) error {
	key := kvs.WithPrefix(g.table.KeyPrefix(), nodeRowKey(id))
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
	key := kvs.WithPrefix(g.table.KeyPrefix(), nodeRowKey(id))
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

func (g *Graph) writeEdgeRow(tx *kvs.WriteTxn, src, dst uint32, weight int32, hasWeight bool) error {
	ekey := kvs.WithPrefix(g.table.KeyPrefix(), edgeRowKey(src, dst))
	if err := tx.Set(ekey, graph.PackWeight(weight, hasWeight)); err != nil {
		return err
	}
	dkey := kvs.WithPrefix(g.dstIndex.KeyPrefix(), dstIndexKey(dst, src))
	return tx.Set(dkey, []byte{})
}

// AddEdge writes the (src, dst) row and its dst-index entry,
// overwrite-or-insert (spec §7). When bulk is true, endpoint rows are
// trusted to already exist rather than created.
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

		if err := g.writeEdgeRow(tx, e.SrcID, e.DstID, e.Weight, e.HasWeight); err != nil {
			return err
		}
		if !g.opts.IsDirected {
			if err := g.writeEdgeRow(tx, e.DstID, e.SrcID, e.Weight, e.HasWeight); err != nil {
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

func (g *Graph) HasEdge(src, dst uint32) (bool, error) {
	s := g.conn.NewSession()
	defer s.Close()
	ok, err := s.Has(kvs.WithPrefix(g.table.KeyPrefix(), edgeRowKey(src, dst)))
	if err != nil {
		return false, graph.WrapKVS("has_edge", err)
	}
	return ok, nil
}

func (g *Graph) GetEdge(src, dst uint32) (graph.Edge, error) {
	s := g.conn.NewSession()
	defer s.Close()
	raw, err := s.Get(kvs.WithPrefix(g.table.KeyPrefix(), edgeRowKey(src, dst)))
	if err != nil {
		if err == kvs.ErrKeyNotFound {
			return graph.Edge{}, graph.ErrNotFound
		}
		return graph.Edge{}, graph.WrapKVS("get_edge", err)
	}
	weight, hasWeight := graph.UnpackWeight(raw)
	return graph.Edge{SrcID: src, DstID: dst, Weight: weight, HasWeight: hasWeight}, nil
}

func (g *Graph) deleteEdgeRow(tx *kvs.WriteTxn, src, dst uint32) error {
	ekey := kvs.WithPrefix(g.table.KeyPrefix(), edgeRowKey(src, dst))
	exists, err := tx.Has(ekey)
	if err != nil {
		return err
	}
	if !exists {
		return graph.ErrNotFound
	}
	if err := tx.Delete(ekey); err != nil {
		return err
	}
	dkey := kvs.WithPrefix(g.dstIndex.KeyPrefix(), dstIndexKey(dst, src))
	if err := tx.Delete(dkey); err != nil {
		return err
	}
	if g.opts.ReadOptimize {
		if err := g.adjustDegree(tx, src, 0, -1); err != nil {
			return err
		}
		if err := g.adjustDegree(tx, dst, -1, 0); err != nil {
			return err
		}
	}
	return nil
}

// DeleteEdge removes (src, dst) and, for undirected graphs, its
// mirrored (dst, src) row, symmetric with AddEdge.
func (g *Graph) DeleteEdge(src, dst uint32) error {
	return g.conn.Mutate(func(tx *kvs.WriteTxn) error {
		if err := g.deleteEdgeRow(tx, src, dst); err != nil {
			return err
		}
		if !g.opts.IsDirected {
			if err := g.deleteEdgeRow(tx, dst, src); err != nil && err != graph.ErrNotFound {
				return err
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
		ekey := kvs.WithPrefix(g.table.KeyPrefix(), edgeRowKey(src, dst))
		exists, err := tx.Has(ekey)
		if err != nil {
			return err
		}
		if !exists {
			return graph.ErrNotFound
		}
		return tx.Set(ekey, graph.PackWeight(weight, true))
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

// GetOutEdges scans the primary table's src prefix, explicitly skipping
// the one row whose dst is SentinelDst — that row is this node's own
// record, not an edge (see ekey.go's doc comment on the ordering
// deviation this requires).
func (g *Graph) GetOutEdges(id uint32) ([]graph.Edge, error) {
	s := g.conn.NewSession()
	defer s.Close()
	cur := s.OpenCursor(g.table.KeyPrefix())
	defer cur.Close()
	cur.Seek(kvs.EncodeID(id))

	var out []graph.Edge
	for cur.Next() {
		src, dst := kvs.DecodeCompositeKey(cur.Key())
		if src != id {
			break
		}
		if dst == SentinelDst {
			continue
		}
		val, err := cur.Value()
		if err != nil {
			return nil, graph.WrapKVS("get_out_edges", err)
		}
		weight, hasWeight := graph.UnpackWeight(val)
		out = append(out, graph.Edge{SrcID: src, DstID: dst, Weight: weight, HasWeight: hasWeight})
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
		dst, src := kvs.DecodeCompositeKey(cur.Key())
		if dst != id {
			break
		}
		e, err := g.GetEdge(src, dst)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
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
