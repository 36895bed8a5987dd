package graph

import "fmt"

// Options configures a graph at open time (spec §6's "Configuration
// options" list). It is supplied by the embedding program, not read
// from the process environment — the same shape as the teacher's
// storage.BadgerOptions rather than its env-var-driven config.Config,
// because graphkv is an embedded library with no process of its own.
type Options struct {
	// CreateNew, when true, declares the graph's schema at DBDir/DBName
	// and writes fresh metadata; keys already stored there are not
	// deleted. When false, the graph is restored and its persisted
	// metadata is checked against these options.
	CreateNew bool

	// ReadOptimize stores (in_degree, out_degree) in the node record so
	// degree queries are O(1) instead of a full neighborhood count.
	ReadOptimize bool

	// IsDirected, when false, mirrors every edge insert/delete in the
	// reverse direction and counts both sides in degree updates.
	IsDirected bool

	// IsWeighted, when false, stores every edge with an absent weight:
	// GetEdge returns Weight 0 and HasWeight false without an error, and
	// UpdateEdgeWeight fails with ErrUnsupported.
	IsWeighted bool

	// OptimizeCreate defers secondary-index construction until
	// CreateIndices is called explicitly, for fast bulk loads.
	OptimizeCreate bool

	// Type selects the physical representation.
	Type RepresentationType

	// DBDir, DBName locate the graph on the filesystem, passed to the
	// KVS adapter verbatim.
	DBDir  string
	DBName string

	// ConnConfig is an opaque KVS-level tuning string (e.g. cache
	// size), passed through unexamined.
	ConnConfig string
}

// Validate checks Options for the configuration errors spec §7
// enumerates: missing db name and unknown representation tag. Restore
// mismatches are checked separately once persisted metadata is
// available (see Metadata.Mismatch).
func (o Options) Validate() error {
	if o.DBName == "" {
		return fmt.Errorf("%w: db_name is required", ErrConfig)
	}
	switch o.Type {
	case Std, Adj, EKey:
	default:
		return fmt.Errorf("%w: unknown representation type %v", ErrConfig, o.Type)
	}
	return nil
}
