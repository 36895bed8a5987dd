package std

import (
	"github.com/relio-db/graphkv/graph"
	"github.com/relio-db/graphkv/kvs"
)

// nodeCursor walks the node table in key order. Its state machine is
// the generic one spec §4.5 describes: a current position, a
// has_more predicate, reset, and an assigned range.
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
		cur:     s.OpenCursor(g.nodeTable.KeyPrefix()),
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
		id := kvs.DecodeID(nc.cur.Key())
		if !nc.rng.Unrestricted() && id >= nc.rng.End {
			nc.hasMore = false
			return graph.Node{}, nil
		}
		val, err := nc.cur.Value()
		if err != nil {
			return graph.Node{}, graph.WrapKVS("node_cursor_next", err)
		}
		n := graph.Node{ID: id}
		if nc.g.opts.ReadOptimize {
			n.InDegree, n.OutDegree = graph.UnpackDegreePair(val)
		} else {
			in, out, err := nc.g.countDegrees(nc.session, id)
			if err != nil {
				return graph.Node{}, err
			}
			n.InDegree, n.OutDegree = in, out
		}
		return n, nil
	}
	nc.hasMore = false
	return graph.Node{}, nil
}

// edgeCursor walks the edge table in edge-id order (spec §4.5 specifies
// (src,dst) order for EdgeCursor in general, but the Standard
// representation's primary key is the opaque edge id; src/dst ordered
// sweeps are served by OutCursor/InCursor instead, which walk the
// src/dst indices).
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
		cur:           s.OpenCursor(g.edgeTable.KeyPrefix()),
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
	if !ec.cur.Next() {
		ec.hasMore = false
		return graph.Edge{}, nil
	}
	edgeID := kvs.DecodeID(ec.cur.Key())
	if !ec.rng.Unrestricted() && edgeID >= ec.rng.End {
		ec.hasMore = false
		return graph.Edge{}, nil
	}
	val, err := ec.cur.Value()
	if err != nil {
		return graph.Edge{}, graph.WrapKVS("edge_cursor_next", err)
	}
	e := decodeEdgeValue(val)
	if !ec.includeWeight {
		e.Weight = 0
		e.HasWeight = false
	}
	return e, nil
}

// outCursor accumulates consecutive same-src entries from the src
// index into one adjacency record per vertex, per spec §4.5's
// description of OutCursor over the Std representation.
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
		cur:     s.OpenCursor(g.srcIndex.KeyPrefix()),
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

	k := oc.cur.Key()
	curVertex := kvs.DecodeID(k[:kvs.IDSize])
	if !oc.rng.Unrestricted() && curVertex >= oc.rng.End {
		oc.hasMore = false
		return graph.AdjacencyList{}, nil
	}

	al := graph.AdjacencyList{NodeID: curVertex}
	for {
		val, err := oc.cur.Value()
		if err != nil {
			return graph.AdjacencyList{}, graph.WrapKVS("out_cursor_next", err)
		}
		e := decodeEdgeValue(val)
		al.Neighbors = append(al.Neighbors, e.DstID)
		al.Degree++

		if !oc.cur.Next() {
			oc.hasMore = false
			break
		}
		k = oc.cur.Key()
		nextVertex := kvs.DecodeID(k[:kvs.IDSize])
		if nextVertex != curVertex {
			break // positioned on the first entry of the next vertex
		}
	}
	return al, nil
}

func (oc *outCursor) NextAt(nodeID uint32) (graph.AdjacencyList, error) {
	oc.cur.Seek(kvs.EncodeID(nodeID))
	al := graph.AdjacencyList{NodeID: nodeID}
	for oc.cur.Next() {
		k := oc.cur.Key()
		if kvs.DecodeID(k[:kvs.IDSize]) != nodeID {
			break
		}
		val, err := oc.cur.Value()
		if err != nil {
			return graph.AdjacencyList{}, graph.WrapKVS("out_cursor_next_at", err)
		}
		e := decodeEdgeValue(val)
		al.Neighbors = append(al.Neighbors, e.DstID)
		al.Degree++
	}
	return al, nil
}

// inCursor is outCursor's dual over the dst index.
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

	k := ic.cur.Key()
	curVertex := kvs.DecodeID(k[:kvs.IDSize])
	if !ic.rng.Unrestricted() && curVertex >= ic.rng.End {
		ic.hasMore = false
		return graph.AdjacencyList{}, nil
	}

	al := graph.AdjacencyList{NodeID: curVertex}
	for {
		val, err := ic.cur.Value()
		if err != nil {
			return graph.AdjacencyList{}, graph.WrapKVS("in_cursor_next", err)
		}
		e := decodeEdgeValue(val)
		al.Neighbors = append(al.Neighbors, e.SrcID)
		al.Degree++

		if !ic.cur.Next() {
			ic.hasMore = false
			break
		}
		k = ic.cur.Key()
		nextVertex := kvs.DecodeID(k[:kvs.IDSize])
		if nextVertex != curVertex {
			break
		}
	}
	return al, nil
}

func (ic *inCursor) NextAt(nodeID uint32) (graph.AdjacencyList, error) {
	ic.cur.Seek(kvs.EncodeID(nodeID))
	al := graph.AdjacencyList{NodeID: nodeID}
	for ic.cur.Next() {
		k := ic.cur.Key()
		if kvs.DecodeID(k[:kvs.IDSize]) != nodeID {
			break
		}
		val, err := ic.cur.Value()
		if err != nil {
			return graph.AdjacencyList{}, graph.WrapKVS("in_cursor_next_at", err)
		}
		e := decodeEdgeValue(val)
		al.Neighbors = append(al.Neighbors, e.SrcID)
		al.Degree++
	}
	return al, nil
}
