package adj

import (
	"github.com/relio-db/graphkv/graph"
	"github.com/relio-db/graphkv/kvs"
)

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
		n, err := nc.g.getNode(nc.session, id)
		if err != nil {
			return graph.Node{}, err
		}
		return n, nil
	}
	nc.hasMore = false
	return graph.Node{}, nil
}

// edgeCursor walks the edge table in (src,dst) key order, which is
// this representation's primary key order.
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
	k := ec.cur.Key()
	src, dst := kvs.DecodeCompositeKey(k)
	if !ec.rng.Unrestricted() && src >= ec.rng.End {
		ec.hasMore = false
		return graph.Edge{}, nil
	}
	val, err := ec.cur.Value()
	if err != nil {
		return graph.Edge{}, graph.WrapKVS("edge_cursor_next", err)
	}
	e := graph.Edge{SrcID: src, DstID: dst}
	if ec.includeWeight {
		e.Weight, e.HasWeight = graph.UnpackWeight(val)
	}
	return e, nil
}

// outCursor reads each vertex's packed out-neighbor list directly from
// out_adjlist — one point read per vertex, no accumulation required,
// since the representation already stores one record per vertex
// (spec §4.3).
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
		cur:     s.OpenCursor(g.outAdj.KeyPrefix()),
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
	}
	if !oc.cur.Next() {
		oc.hasMore = false
		return graph.AdjacencyList{}, nil
	}
	id := kvs.DecodeID(oc.cur.Key())
	if !oc.rng.Unrestricted() && id >= oc.rng.End {
		oc.hasMore = false
		return graph.AdjacencyList{}, nil
	}
	val, err := oc.cur.Value()
	if err != nil {
		return graph.AdjacencyList{}, graph.WrapKVS("out_cursor_next", err)
	}
	neighbors := graph.UnpackNeighbors(val)
	return graph.AdjacencyList{NodeID: id, Degree: uint32(len(neighbors)), Neighbors: neighbors}, nil
}

func (oc *outCursor) NextAt(nodeID uint32) (graph.AdjacencyList, error) {
	neighbors, err := oc.g.getAdjlist(oc.session, oc.g.outAdj, nodeID)
	if err != nil {
		return graph.AdjacencyList{}, err
	}
	return graph.AdjacencyList{NodeID: nodeID, Degree: uint32(len(neighbors)), Neighbors: neighbors}, nil
}

// inCursor is outCursor's dual over in_adjlist.
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
		cur:     s.OpenCursor(g.inAdj.KeyPrefix()),
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
	}
	if !ic.cur.Next() {
		ic.hasMore = false
		return graph.AdjacencyList{}, nil
	}
	id := kvs.DecodeID(ic.cur.Key())
	if !ic.rng.Unrestricted() && id >= ic.rng.End {
		ic.hasMore = false
		return graph.AdjacencyList{}, nil
	}
	val, err := ic.cur.Value()
	if err != nil {
		return graph.AdjacencyList{}, graph.WrapKVS("in_cursor_next", err)
	}
	neighbors := graph.UnpackNeighbors(val)
	return graph.AdjacencyList{NodeID: id, Degree: uint32(len(neighbors)), Neighbors: neighbors}, nil
}

func (ic *inCursor) NextAt(nodeID uint32) (graph.AdjacencyList, error) {
	neighbors, err := ic.g.getAdjlist(ic.session, ic.g.inAdj, nodeID)
	if err != nil {
		return graph.AdjacencyList{}, err
	}
	return graph.AdjacencyList{NodeID: nodeID, Degree: uint32(len(neighbors)), Neighbors: neighbors}, nil
}
