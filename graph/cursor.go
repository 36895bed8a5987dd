package graph

// KeyRange restricts an iterator to a half-open [Start, End) span of
// the id keyspace. The zero value (Start: 0, End: 0) is treated by
// every cursor implementation as "unrestricted" — the full range —
// since id 0 is reserved (OutOfBandID) and can never bound a real scan.
type KeyRange struct {
	Start uint32
	End   uint32
}

// Unrestricted reports whether r represents the full keyspace.
func (r KeyRange) Unrestricted() bool { return r.Start == 0 && r.End == 0 }

// Contains reports whether id falls within the range, treating an
// unrestricted range as containing everything.
func (r KeyRange) Contains(id uint32) bool {
	if r.Unrestricted() {
		return true
	}
	return id >= r.Start && id < r.End
}

// NodeCursor walks nodes in key order within an assigned range. Next
// returns a Node whose IsOutOfBand() is true once the range is
// exhausted; subsequent calls keep returning the same sentinel without
// advancing further (spec §4.5's termination rule).
type NodeCursor interface {
	Next() (Node, error)
	HasMore() bool
	Reset()
	SetKeyRange(r KeyRange)
	Close()
}

// EdgeCursor walks edges in (src, dst) order in the Adj and EKey
// representations; the Std representation walks them in edge-id
// (insertion) order. IncludeWeight controls
// whether Next fetches and decodes the weight column or skips it for a
// cheaper scan when the caller only needs topology.
type EdgeCursor interface {
	Next() (Edge, error)
	HasMore() bool
	Reset()
	SetKeyRange(r KeyRange)
	SetIncludeWeight(include bool)
	Close()
}

// OutCursor walks complete per-vertex outgoing adjacency records for
// every vertex with outgoing edges in range. NextAt seeks directly to
// one vertex instead of sweeping, returning an empty (Degree: 0) record
// if that vertex has no outgoing edges (spec §4.5).
type OutCursor interface {
	Next() (AdjacencyList, error)
	NextAt(nodeID uint32) (AdjacencyList, error)
	HasMore() bool
	Reset()
	SetKeyRange(r KeyRange)
	Close()
}

// InCursor is OutCursor's dual over the destination axis.
type InCursor interface {
	Next() (AdjacencyList, error)
	NextAt(nodeID uint32) (AdjacencyList, error)
	HasMore() bool
	Reset()
	SetKeyRange(r KeyRange)
	Close()
}
