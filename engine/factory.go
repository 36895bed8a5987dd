package engine

import (
	"github.com/relio-db/graphkv/graph"
	"github.com/relio-db/graphkv/graph/adj"
	"github.com/relio-db/graphkv/graph/ekey"
	"github.com/relio-db/graphkv/graph/std"
	"github.com/relio-db/graphkv/kvs"
)

// open dispatches on opts.Type to construct the representation-specific
// Handle, per spec §4.6's factory. opts.Validate has already rejected
// unknown tags by the time this runs (see Options.Validate).
func open(conn *kvs.Connection, opts graph.Options) (graph.Handle, error) {
	switch opts.Type {
	case graph.Std:
		return std.Open(conn, opts)
	case graph.Adj:
		return adj.Open(conn, opts)
	case graph.EKey:
		return ekey.Open(conn, opts)
	default:
		return nil, graph.ErrConfig
	}
}
