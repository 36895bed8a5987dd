package ekey

import (
	"github.com/relio-db/graphkv/graph"
	"github.com/relio-db/graphkv/kvs"
)

// nodeCursor walks the primary table in key order, keeping only rows
// whose dst is SentinelDst — every other row is an edge, interleaved
// in the same keyspace.
type nodeCursor struct {
	g       *Graph
	session *kvs.Session
	cur     *kvs.Cursor
	rng     graph.KeyRange
	hasMore bool
	started bool
}

func (g *Graph) NodeIter() graph.NodeCursor {
	s := g.conn.NewSession()
	return &nodeCursor{
		g:       g,
		session: s,
		cur:     s.OpenCursor(g.table.KeyPrefix()),
		hasMore: true,
	}
}

func (nc *nodeCursor) SetKeyRange(r graph.KeyRange) {
	nc.rng = r
	nc.Reset()
}

func (nc *nodeCursor) Reset() {
	nc.cur.Reset()
	nc.started = false
	nc.hasMore = true
}

func (nc *nodeCursor) HasMore() bool { return nc.hasMore }

func (nc *nodeCursor) Close() {
	nc.cur.Close()
	nc.session.Close()
}

func (nc *nodeCursor) Next() (graph.Node, error) {
	if !nc.hasMore {
		return graph.Node{}, nil
	}
	if !nc.started {
		if !nc.rng.Unrestricted() {
			nc.cur.Seek(kvs.EncodeID(nc.rng.Start))
		}
		nc.started = true
	}
	for nc.cur.Next() {
		id, dst := kvs.DecodeCompositeKey(nc.cur.Key())
		if !nc.rng.Unrestricted() && id >= nc.rng.End {
			nc.hasMore = false
			return graph.Node{}, nil
		}
		if dst != SentinelDst {
			continue
		}
		n, err := nc.g.getNode(nc.session, id)
		if err != nil {
			return graph.Node{}, err
		}
		return n, nil
	}
	nc.hasMore = false
	return graph.Node{}, nil
}

// edgeCursor walks the primary table in (src,dst) order, skipping node
// rows the same way nodeCursor skips edge rows.
type edgeCursor struct {
	g             *Graph
	session       *kvs.Session
	cur           *kvs.Cursor
	rng           graph.KeyRange
	hasMore       bool
	started       bool
	includeWeight bool
}

func (g *Graph) EdgeIter() graph.EdgeCursor {
	s := g.conn.NewSession()
	return &edgeCursor{
		g:             g,
		session:       s,
		cur:           s.OpenCursor(g.table.KeyPrefix()),
		hasMore:       true,
		includeWeight: true,
	}
}

func (ec *edgeCursor) SetKeyRange(r graph.KeyRange) {
	ec.rng = r
	ec.Reset()
}

func (ec *edgeCursor) SetIncludeWeight(include bool) { ec.includeWeight = include }

func (ec *edgeCursor) Reset() {
	ec.cur.Reset()
	ec.started = false
	ec.hasMore = true
}

func (ec *edgeCursor) HasMore() bool { return ec.hasMore }

func (ec *edgeCursor) Close() {
	ec.cur.Close()
	ec.session.Close()
}

func (ec *edgeCursor) Next() (graph.Edge, error) {
	if !ec.hasMore {
		return graph.Edge{}, nil
	}
	if !ec.started {
		if !ec.rng.Unrestricted() {
			ec.cur.Seek(kvs.EncodeID(ec.rng.Start))
		}
		ec.started = true
	}
	for ec.cur.Next() {
		src, dst := kvs.DecodeCompositeKey(ec.cur.Key())
		if !ec.rng.Unrestricted() && src >= ec.rng.End {
			ec.hasMore = false
			return graph.Edge{}, nil
		}
		if dst == SentinelDst {
			continue
		}
		e := graph.Edge{SrcID: src, DstID: dst}
		if ec.includeWeight {
			val, err := ec.cur.Value()
			if err != nil {
				return graph.Edge{}, graph.WrapKVS("edge_cursor_next", err)
			}
			e.Weight, e.HasWeight = graph.UnpackWeight(val)
		}
		return e, nil
	}
	ec.hasMore = false
	return graph.Edge{}, nil
}

// outCursor accumulates consecutive same-src edge rows from the
// primary table into one adjacency record per vertex, explicitly
// skipping the row whose dst is SentinelDst — the vertex's own
// record, interleaved in the same run rather than set apart by
// ordering (see ekey.go's doc comment). Grounded on edgekey.h's
// OutCursor, which performs the same skip for the analogous reason in
// the original (there, skipping the numerically-smallest dst==-1 row).
type outCursor struct {
	g       *Graph
	session *kvs.Session
	cur     *kvs.Cursor
	rng     graph.KeyRange
	hasMore bool
	started bool
}

func (g *Graph) OutNbdCursor() graph.OutCursor {
	s := g.conn.NewSession()
	return &outCursor{
		g:       g,
		session: s,
		cur:     s.OpenCursor(g.table.KeyPrefix()),
		hasMore: true,
	}
}

func (oc *outCursor) SetKeyRange(r graph.KeyRange) {
	oc.rng = r
	oc.Reset()
}

func (oc *outCursor) Reset() {
	oc.cur.Reset()
	oc.started = false
	oc.hasMore = true
}

func (oc *outCursor) HasMore() bool { return oc.hasMore }

func (oc *outCursor) Close() {
	oc.cur.Close()
	oc.session.Close()
}

func (oc *outCursor) Next() (graph.AdjacencyList, error) {
	if !oc.hasMore {
		return graph.AdjacencyList{}, nil
	}
	if !oc.started {
		if !oc.rng.Unrestricted() {
			oc.cur.Seek(kvs.EncodeID(oc.rng.Start))
		}
		oc.started = true
		if !oc.cur.Next() {
			oc.hasMore = false
			return graph.AdjacencyList{}, nil
		}
	}

	src, dst := kvs.DecodeCompositeKey(oc.cur.Key())
	curVertex := src
	if !oc.rng.Unrestricted() && curVertex >= oc.rng.End {
		oc.hasMore = false
		return graph.AdjacencyList{}, nil
	}

	al := graph.AdjacencyList{NodeID: curVertex}
	for {
		if dst != SentinelDst {
			al.Neighbors = append(al.Neighbors, dst)
			al.Degree++
		}
		if !oc.cur.Next() {
			oc.hasMore = false
			break
		}
		src, dst = kvs.DecodeCompositeKey(oc.cur.Key())
		if src != curVertex {
			break
		}
	}
	return al, nil
}

func (oc *outCursor) NextAt(nodeID uint32) (graph.AdjacencyList, error) {
	oc.cur.Seek(kvs.EncodeID(nodeID))
	al := graph.AdjacencyList{NodeID: nodeID}
	for oc.cur.Next() {
		src, dst := kvs.DecodeCompositeKey(oc.cur.Key())
		if src != nodeID {
			break
		}
		if dst == SentinelDst {
			continue
		}
		al.Neighbors = append(al.Neighbors, dst)
		al.Degree++
	}
	return al, nil
}

// inCursor walks the dst index, which has no sentinel rows to skip
// (node records only ever live in the primary table).
type inCursor struct {
	g       *Graph
	session *kvs.Session
	cur     *kvs.Cursor
	rng     graph.KeyRange
	hasMore bool
	started bool
}

func (g *Graph) InNbdCursor() graph.InCursor {
	s := g.conn.NewSession()
	return &inCursor{
		g:       g,
		session: s,
		cur:     s.OpenCursor(g.dstIndex.KeyPrefix()),
		hasMore: true,
	}
}

func (ic *inCursor) SetKeyRange(r graph.KeyRange) {
	ic.rng = r
	ic.Reset()
}

func (ic *inCursor) Reset() {
	ic.cur.Reset()
	ic.started = false
	ic.hasMore = true
}

func (ic *inCursor) HasMore() bool { return ic.hasMore }

func (ic *inCursor) Close() {
	ic.cur.Close()
	ic.session.Close()
}

func (ic *inCursor) Next() (graph.AdjacencyList, error) {
	if !ic.hasMore {
		return graph.AdjacencyList{}, nil
	}
	if !ic.started {
		if !ic.rng.Unrestricted() {
			ic.cur.Seek(kvs.EncodeID(ic.rng.Start))
		}
		ic.started = true
		if !ic.cur.Next() {
			ic.hasMore = false
			return graph.AdjacencyList{}, nil
		}
	}

	dst, src := kvs.DecodeCompositeKey(ic.cur.Key())
	curVertex := dst
	if !ic.rng.Unrestricted() && curVertex >= ic.rng.End {
		ic.hasMore = false
		return graph.AdjacencyList{}, nil
	}

	al := graph.AdjacencyList{NodeID: curVertex}
	for {
		al.Neighbors = append(al.Neighbors, src)
		al.Degree++
		if !ic.cur.Next() {
			ic.hasMore = false
			break
		}
		dst, src = kvs.DecodeCompositeKey(ic.cur.Key())
		if dst != curVertex {
			break
		}
	}
	return al, nil
}

func (ic *inCursor) NextAt(nodeID uint32) (graph.AdjacencyList, error) {
	ic.cur.Seek(kvs.EncodeID(nodeID))
	al := graph.AdjacencyList{NodeID: nodeID}
	for ic.cur.Next() {
		dst, src := kvs.DecodeCompositeKey(ic.cur.Key())
		if dst != nodeID {
			break
		}
		al.Neighbors = append(al.Neighbors, src)
		al.Degree++
	}
	return al, nil
}
