package graph

// Handle is the graph contract every representation (std, adj, ekey)
// implements identically from the caller's perspective (spec §6). Each
// representation package exposes a constructor returning a Handle; the
// factory in package engine dispatches to the right one by
// Options.Type.
//
// A Handle holds no Session of its own: each call and each cursor it
// returns opens a fresh Session (see package kvs). Like sessions and
// cursors generally, a Handle must not be shared across goroutines
// (spec §5). Parallel readers each get their own Handle over a shared
// Connection via engine.Engine.Handle.
type Handle interface {
	// Node operations.
	AddNode(n Node) error
	HasNode(id uint32) (bool, error)
	GetNode(id uint32) (Node, error)
	GetRandomNode() (Node, error)
	DeleteNode(id uint32) error
	GetNodes() ([]Node, error)

	// Edge operations. Add is overwrite-or-insert by default (spec §7);
	// bulk, when true, trusts the caller to have pre-supplied whatever
	// auxiliary state (e.g. adj's side tables) the representation
	// would otherwise maintain incrementally.
	AddEdge(e Edge, bulk bool) error
	HasEdge(src, dst uint32) (bool, error)
	GetEdge(src, dst uint32) (Edge, error)
	DeleteEdge(src, dst uint32) error
	UpdateEdgeWeight(src, dst uint32, weight int32) error

	// Degree queries use the cached node-row degree when ReadOptimize
	// is on, otherwise derive it by counting edges.
	GetInDegree(id uint32) (uint32, error)
	GetOutDegree(id uint32) (uint32, error)

	// Neighborhood queries.
	GetInEdges(id uint32) ([]Edge, error)
	GetOutEdges(id uint32) ([]Edge, error)
	GetInNodes(id uint32) ([]uint32, error)
	GetOutNodes(id uint32) ([]uint32, error)

	GetNumNodes() (int, error)
	GetNumEdges() (int, error)

	// Iterator factories.
	NodeIter() NodeCursor
	EdgeIter() EdgeCursor
	InNbdCursor() InCursor
	OutNbdCursor() OutCursor

	// Bulk-load index lifecycle (spec §4.2/§4.4's optimize_create path).
	CreateIndices() error
	DropIndices() error

	Close() error
}
