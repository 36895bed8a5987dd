package engine_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relio-db/graphkv/engine"
	"github.com/relio-db/graphkv/graph"
)

func openTestEngine(t *testing.T, opts graph.Options) *engine.Engine {
	t.Helper()
	if opts.DBName == "" {
		opts.DBName = "t"
	}
	opts.CreateNew = true
	e, err := engine.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestEngineHandleDispatchesOnType(t *testing.T) {
	for _, typ := range []graph.RepresentationType{graph.Std, graph.Adj, graph.EKey} {
		e := openTestEngine(t, graph.Options{Type: typ, IsDirected: true})
		h, err := e.Handle(0)
		require.NoError(t, err)
		require.NoError(t, h.AddNode(graph.Node{ID: 1}))
		has, err := h.HasNode(1)
		require.NoError(t, err)
		assert.True(t, has)
	}
}

func TestEngineRejectsUnknownType(t *testing.T) {
	_, err := engine.New(graph.Options{Type: graph.RepresentationType(99), DBName: "t", CreateNew: true})
	assert.ErrorIs(t, err, graph.ErrConfig)
}

// Scenario 5: with two workers partitioning [1, 1000), the union of
// NodeCursor enumerations equals the full node set with no duplicates.
func TestEngineParallelReadPartitioning(t *testing.T) {
	e := openTestEngine(t, graph.Options{Type: graph.Std, IsDirected: true})
	h, err := e.Handle(0)
	require.NoError(t, err)
	for id := uint32(1); id <= 999; id++ {
		require.NoError(t, h.AddNode(graph.Node{ID: id}))
	}
	require.NoError(t, h.Close())

	const numWorkers = 2
	seen := make(map[uint32]int)
	var mu sync.Mutex
	err = e.ParallelScan(context.Background(), numWorkers, 999, func(worker int, cur graph.NodeCursor) error {
		var ids []uint32
		for cur.HasMore() {
			n, err := cur.Next()
			if err != nil {
				return err
			}
			if n.IsOutOfBand() {
				break
			}
			ids = append(ids, n.ID)
		}
		mu.Lock()
		for _, id := range ids {
			seen[id]++
		}
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, seen, 999)
	for id, count := range seen {
		assert.Equalf(t, 1, count, "id %d enumerated %d times", id, count)
	}
}

// Scenario 6: create, close, reopen with create_new=false against the
// same on-disk directory; metadata and all nodes/edges round-trip.
func TestEngineRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	base := graph.Options{
		Type:         graph.Std,
		IsDirected:   true,
		IsWeighted:   true,
		ReadOptimize: true,
		DBDir:        dir,
		DBName:       "t",
	}

	createOpts := base
	createOpts.CreateNew = true
	e1, err := engine.New(createOpts)
	require.NoError(t, err)

	h1, err := e1.Handle(0)
	require.NoError(t, err)
	require.NoError(t, h1.AddNode(graph.Node{ID: 3}))
	require.NoError(t, h1.AddEdge(graph.Edge{SrcID: 1, DstID: 2, Weight: 5}, false))
	require.NoError(t, h1.Close())
	require.NoError(t, e1.Close())

	// Reopen the same on-disk directory with create_new=false: this
	// exercises graph.ReadMetadata + Metadata.Mismatch on the
	// options-agree path, not a second create.
	restoreOpts := base
	restoreOpts.CreateNew = false
	e2, err := engine.New(restoreOpts)
	require.NoError(t, err)
	t.Cleanup(func() { e2.Close() })

	h2, err := e2.Handle(0)
	require.NoError(t, err)
	defer h2.Close()

	e, err := h2.GetEdge(1, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(5), e.Weight)

	numNodes, err := h2.GetNumNodes()
	require.NoError(t, err)
	assert.Equal(t, 3, numNodes)

	numEdges, err := h2.GetNumEdges()
	require.NoError(t, err)
	assert.Equal(t, 1, numEdges)
}

// Restoring with options that contradict the persisted metadata must be
// rejected by Metadata.Mismatch (spec §7's configuration-error
// taxonomy), not silently accepted.
func TestEngineRestoreRejectsOptionMismatch(t *testing.T) {
	dir := t.TempDir()
	base := graph.Options{
		Type:       graph.Std,
		IsDirected: true,
		DBDir:      dir,
		DBName:     "t",
	}

	createOpts := base
	createOpts.CreateNew = true
	e1, err := engine.New(createOpts)
	require.NoError(t, err)
	h1, err := e1.Handle(0)
	require.NoError(t, err)
	require.NoError(t, h1.Close())
	require.NoError(t, e1.Close())

	mismatched := base
	mismatched.CreateNew = false
	mismatched.IsDirected = false
	e2, err := engine.New(mismatched)
	require.NoError(t, err)
	t.Cleanup(func() { e2.Close() })

	_, err = e2.Handle(0)
	assert.ErrorIs(t, err, graph.ErrConfig)
}
