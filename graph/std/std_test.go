package std_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relio-db/graphkv/graph"
	"github.com/relio-db/graphkv/graph/std"
	"github.com/relio-db/graphkv/kvs"
)

func openTestGraph(t *testing.T, opts graph.Options) (*kvs.Connection, *std.Graph) {
	t.Helper()
	conn, err := kvs.Open(kvs.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	opts.Type = graph.Std
	if opts.DBName == "" {
		opts.DBName = "t"
	}
	opts.CreateNew = true
	g, err := std.Open(conn, opts)
	require.NoError(t, err)
	return conn, g
}

// Directed, weighted, read-optimized Std graph: nodes {1,2,3}, edges
// (1,2,10), (2,3,20), (1,3,30).
func TestStdDirectedWeightedReadOptimize(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{
		IsDirected:   true,
		IsWeighted:   true,
		ReadOptimize: true,
	})

	for _, id := range []uint32{1, 2, 3} {
		require.NoError(t, g.AddNode(graph.Node{ID: id}))
	}

	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2, Weight: 10}, false))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 2, DstID: 3, Weight: 20}, false))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 3, Weight: 30}, false))

	n1, err := g.GetNode(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), n1.InDegree)
	assert.Equal(t, uint32(2), n1.OutDegree)

	n2, err := g.GetNode(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n2.InDegree)
	assert.Equal(t, uint32(1), n2.OutDegree)

	n3, err := g.GetNode(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n3.InDegree)
	assert.Equal(t, uint32(0), n3.OutDegree)

	numEdges, err := g.GetNumEdges()
	require.NoError(t, err)
	assert.Equal(t, 3, numEdges)

	numNodes, err := g.GetNumNodes()
	require.NoError(t, err)
	assert.Equal(t, 3, numNodes)

	e, err := g.GetEdge(1, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(10), e.Weight)
	assert.True(t, e.HasWeight)

	_, err = g.GetEdge(2, 1)
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestStdAddNodeIdempotent(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true, ReadOptimize: true})
	require.NoError(t, g.AddNode(graph.Node{ID: 5}))
	require.NoError(t, g.AddNode(graph.Node{ID: 5}))

	n, err := g.GetNode(5)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), n.ID)
	assert.Equal(t, uint32(0), n.InDegree)
}

func TestStdUndirectedSymmetricDegrees(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: false, ReadOptimize: true})
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, false))

	n1, err := g.GetNode(1)
	require.NoError(t, err)
	n2, err := g.GetNode(2)
	require.NoError(t, err)

	assert.Equal(t, n1.OutDegree, n2.InDegree)
	assert.Equal(t, n1.InDegree, n2.OutDegree)
	assert.Equal(t, uint32(1), n1.OutDegree)
	assert.Equal(t, uint32(1), n1.InDegree)

	require.NoError(t, g.DeleteEdge(1, 2))
	n1, err = g.GetNode(1)
	require.NoError(t, err)
	n2, err = g.GetNode(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), n1.OutDegree)
	assert.Equal(t, uint32(0), n1.InDegree)
	assert.Equal(t, uint32(0), n2.OutDegree)
	assert.Equal(t, uint32(0), n2.InDegree)

	ok, err := g.HasEdge(1, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = g.HasEdge(2, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStdDeleteNodeCascades(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true, ReadOptimize: true})
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, false))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 2, DstID: 3}, false))

	require.NoError(t, g.DeleteNode(2))

	has, err := g.HasNode(2)
	require.NoError(t, err)
	assert.False(t, has)

	ok, err := g.HasEdge(1, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = g.HasEdge(2, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	n1, err := g.GetNode(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), n1.OutDegree)

	n3, err := g.GetNode(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), n3.InDegree)
}

func TestStdDegreesWithoutReadOptimize(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true, ReadOptimize: false})
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, false))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 3}, false))

	n1, err := g.GetNode(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n1.OutDegree)
	assert.Equal(t, uint32(0), n1.InDegree)
}

func TestStdUnweightedUpdateEdgeWeightUnsupported(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true, IsWeighted: false})
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, false))

	err := g.UpdateEdgeWeight(1, 2, 99)
	assert.ErrorIs(t, err, graph.ErrUnsupported)
}

func TestStdOptimizeCreateDefersIndices(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true, OptimizeCreate: true})

	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, true))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 2, DstID: 3}, true))

	// Before CreateIndices, lookups that rely on the src/dst indices see
	// nothing: the edge rows exist, but no index entries do yet.
	ok, err := g.HasEdge(1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, g.CreateIndices())

	ok, err = g.HasEdge(1, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	outEdges, err := g.GetOutEdges(1)
	require.NoError(t, err)
	assert.Len(t, outEdges, 1)
	assert.Equal(t, uint32(2), outEdges[0].DstID)
}

func TestStdGetRandomNode(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true})
	for _, id := range []uint32{1, 2, 3} {
		require.NoError(t, g.AddNode(graph.Node{ID: id}))
	}
	n, err := g.GetRandomNode()
	require.NoError(t, err)
	assert.Contains(t, []uint32{1, 2, 3}, n.ID)
}
