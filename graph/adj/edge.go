package adj

import (
	"github.com/relio-db/graphkv/graph"
	"github.com/relio-db/graphkv/kvs"
)

func (g *Graph) ensureNode(tx *kvs.WriteTxn, id uint32) error {
	key := kvs.WithPrefix(g.nodeTable.KeyPrefix(), nodeKey(id))
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
	if err := tx.Set(kvs.WithPrefix(g.outAdj.KeyPrefix(), nodeKey(id)), graph.PackNeighbors(nil)); err != nil {
		return err
	}
	return tx.Set(kvs.WithPrefix(g.inAdj.KeyPrefix(), nodeKey(id)), graph.PackNeighbors(nil))
}

func (g *Graph) appendToAdjlist(tx *kvs.WriteTxn, table kvs.Table, id, neighbor uint32) error {
	list, err := g.txAdjlist(tx, table, id)
	if err != nil {
		return err
	}
	list = append(list, neighbor)
	return tx.Set(kvs.WithPrefix(table.KeyPrefix(), nodeKey(id)), graph.PackNeighbors(list))
}

// AddEdge inserts the (src,dst) edge row and, unless bulk is true,
// appends to both endpoints' adjacency-list side tables and bumps
// cached degrees. When bulk is true, the edge row is written alone:
// the caller is expected to have pre-populated adjacency lists via
// PreloadAdjacency, mirroring add_edge's is_bulk_insert branch in
// src/adj_list.cpp, which returns before touching adjlists or degrees.
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

		ekey := kvs.WithPrefix(g.edgeTable.KeyPrefix(), edgeKey(e.SrcID, e.DstID))
		if err := tx.Set(ekey, encodeEdgeValue(e.Weight, e.HasWeight)); err != nil {
			return err
		}
		if !g.opts.IsDirected {
			rkey := kvs.WithPrefix(g.edgeTable.KeyPrefix(), edgeKey(e.DstID, e.SrcID))
			if err := tx.Set(rkey, encodeEdgeValue(e.Weight, e.HasWeight)); err != nil {
				return err
			}
		}

		if bulk {
			return nil
		}

		if err := g.appendToAdjlist(tx, g.outAdj, e.SrcID, e.DstID); err != nil {
			return err
		}
		if err := g.appendToAdjlist(tx, g.inAdj, e.DstID, e.SrcID); err != nil {
			return err
		}
		if !g.opts.IsDirected {
			if err := g.appendToAdjlist(tx, g.outAdj, e.DstID, e.SrcID); err != nil {
				return err
			}
			if err := g.appendToAdjlist(tx, g.inAdj, e.SrcID, e.DstID); err != nil {
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

// PreloadAdjacency sets the complete, pre-built out/in neighbor lists
// and resulting degrees for one node in a single mutation, the bulk
// counterpart to repeated AddEdge(..., bulk=true) calls. Used by a
// bulk loader that has already computed a vertex's full adjacency
// before any edge rows exist.
func (g *Graph) PreloadAdjacency(nodeID uint32, outNeighbors, inNeighbors []uint32) error {
	return g.conn.Mutate(func(tx *kvs.WriteTxn) error {
		if err := g.ensureNode(tx, nodeID); err != nil {
			return err
		}
		if err := tx.Set(kvs.WithPrefix(g.outAdj.KeyPrefix(), nodeKey(nodeID)), graph.PackNeighbors(outNeighbors)); err != nil {
			return err
		}
		if err := tx.Set(kvs.WithPrefix(g.inAdj.KeyPrefix(), nodeKey(nodeID)), graph.PackNeighbors(inNeighbors)); err != nil {
			return err
		}
		if g.opts.ReadOptimize {
			key := kvs.WithPrefix(g.nodeTable.KeyPrefix(), nodeKey(nodeID))
			return tx.Set(key, graph.PackDegreePair(uint32(len(inNeighbors)), uint32(len(outNeighbors))))
		}
		return nil
	})
}

func (g *Graph) HasEdge(src, dst uint32) (bool, error) {
	s := g.conn.NewSession()
	defer s.Close()
	ok, err := s.Has(kvs.WithPrefix(g.edgeTable.KeyPrefix(), edgeKey(src, dst)))
	if err != nil {
		return false, graph.WrapKVS("has_edge", err)
	}
	return ok, nil
}

func (g *Graph) GetEdge(src, dst uint32) (graph.Edge, error) {
	s := g.conn.NewSession()
	defer s.Close()
	raw, err := s.Get(kvs.WithPrefix(g.edgeTable.KeyPrefix(), edgeKey(src, dst)))
	if err != nil {
		if err == kvs.ErrKeyNotFound {
			return graph.Edge{}, graph.ErrNotFound
		}
		return graph.Edge{}, graph.WrapKVS("get_edge", err)
	}
	weight, hasWeight := graph.UnpackWeight(raw)
	return graph.Edge{SrcID: src, DstID: dst, Weight: weight, HasWeight: hasWeight}, nil
}

// DeleteEdge removes the (src,dst) edge row, scrubs each endpoint's
// adjacency-list entry for the other, and decrements cached degrees —
// mirroring delete_edge's symmetric undirected handling.
func (g *Graph) DeleteEdge(src, dst uint32) error {
	return g.conn.Mutate(func(tx *kvs.WriteTxn) error {
		ekey := kvs.WithPrefix(g.edgeTable.KeyPrefix(), edgeKey(src, dst))
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
		if err := g.removeFromAdjlist(tx, g.outAdj, src, dst); err != nil {
			return err
		}
		if err := g.removeFromAdjlist(tx, g.inAdj, dst, src); err != nil {
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

		if !g.opts.IsDirected {
			rkey := kvs.WithPrefix(g.edgeTable.KeyPrefix(), edgeKey(dst, src))
			if ok, err := tx.Has(rkey); err == nil && ok {
				if err := tx.Delete(rkey); err != nil {
					return err
				}
				if err := g.removeFromAdjlist(tx, g.outAdj, dst, src); err != nil {
					return err
				}
				if err := g.removeFromAdjlist(tx, g.inAdj, src, dst); err != nil {
					return err
				}
				if g.opts.ReadOptimize {
					if err := g.adjustDegree(tx, dst, 0, -1); err != nil {
						return err
					}
					if err := g.adjustDegree(tx, src, -1, 0); err != nil {
						return err
					}
				}
			} else if err != nil {
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
		ekey := kvs.WithPrefix(g.edgeTable.KeyPrefix(), edgeKey(src, dst))
		exists, err := tx.Has(ekey)
		if err != nil {
			return err
		}
		if !exists {
			return graph.ErrNotFound
		}
		return tx.Set(ekey, encodeEdgeValue(weight, true))
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
	neighbors, err := g.getAdjlist(s, g.outAdj, id)
	if err != nil {
		return nil, err
	}
	out := make([]graph.Edge, 0, len(neighbors))
	for _, dst := range neighbors {
		e, err := g.GetEdge(id, dst)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (g *Graph) GetInEdges(id uint32) ([]graph.Edge, error) {
	s := g.conn.NewSession()
	defer s.Close()
	neighbors, err := g.getAdjlist(s, g.inAdj, id)
	if err != nil {
		return nil, err
	}
	out := make([]graph.Edge, 0, len(neighbors))
	for _, src := range neighbors {
		e, err := g.GetEdge(src, id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (g *Graph) GetOutNodes(id uint32) ([]uint32, error) {
	s := g.conn.NewSession()
	defer s.Close()
	return g.getAdjlist(s, g.outAdj, id)
}

func (g *Graph) GetInNodes(id uint32) ([]uint32, error) {
	s := g.conn.NewSession()
	defer s.Close()
	return g.getAdjlist(s, g.inAdj, id)
}
