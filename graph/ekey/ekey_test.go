package ekey_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relio-db/graphkv/graph"
	"github.com/relio-db/graphkv/graph/ekey"
	"github.com/relio-db/graphkv/kvs"
)

func openTestGraph(t *testing.T, opts graph.Options) (*kvs.Connection, *ekey.Graph) {
	t.Helper()
	conn, err := kvs.Open(kvs.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	opts.Type = graph.EKey
	if opts.DBName == "" {
		opts.DBName = "t"
	}
	opts.CreateNew = true
	g, err := ekey.Open(conn, opts)
	require.NoError(t, err)
	return conn, g
}

// Directed, weighted, read-optimized EKey graph: nodes {1,2,3}, edges
// (1,2,10), (2,3,20), (1,3,30) — same scenario as std and adj.
func TestEKeyDirectedWeightedReadOptimize(t *testing.T) {
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
	assert.Equal(t, uint32(2), n1.OutDegree)
	assert.Equal(t, uint32(0), n1.InDegree)

	n2, err := g.GetNode(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n2.InDegree)
	assert.Equal(t, uint32(1), n2.OutDegree)

	e, err := g.GetEdge(1, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(10), e.Weight)

	numNodes, err := g.GetNumNodes()
	require.NoError(t, err)
	assert.Equal(t, 3, numNodes)

	numEdges, err := g.GetNumEdges()
	require.NoError(t, err)
	assert.Equal(t, 3, numEdges)
}

func TestEKeyAddNodeIdempotent(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true})
	require.NoError(t, g.AddNode(graph.Node{ID: 1}))
	require.NoError(t, g.AddNode(graph.Node{ID: 1}))

	n, err := g.GetNumNodes()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEKeyUndirectedSymmetricDegrees(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: false, ReadOptimize: true})
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, false))

	n1, err := g.GetNode(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n1.OutDegree)
	assert.Equal(t, uint32(1), n1.InDegree)

	n2, err := g.GetNode(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n2.OutDegree)
	assert.Equal(t, uint32(1), n2.InDegree)

	ok, err := g.HasEdge(2, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, g.DeleteEdge(1, 2))

	ok, err = g.HasEdge(2, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	n1, err = g.GetNode(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), n1.OutDegree)
	assert.Equal(t, uint32(0), n1.InDegree)
}

// Scenario 3: deleting a node cascades to every incident edge, in both
// the primary table and the dst index.
func TestEKeyDeleteNodeCascades(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true, ReadOptimize: true})
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, false))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 2, DstID: 3}, false))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 4, DstID: 2}, false))

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

	ok, err = g.HasEdge(4, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	out1, err := g.GetOutEdges(1)
	require.NoError(t, err)
	assert.Empty(t, out1)

	in3, err := g.GetInEdges(3)
	require.NoError(t, err)
	assert.Empty(t, in3)

	numEdges, err := g.GetNumEdges()
	require.NoError(t, err)
	assert.Equal(t, 0, numEdges)
}

func TestEKeyDegreesWithoutReadOptimize(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true, ReadOptimize: false})
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, false))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 3}, false))

	n1, err := g.GetNode(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n1.OutDegree)
	assert.Equal(t, uint32(0), n1.InDegree)
}

func TestEKeyUnweightedUpdateEdgeWeightUnsupported(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true, IsWeighted: false})
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, false))

	err := g.UpdateEdgeWeight(1, 2, 5)
	assert.ErrorIs(t, err, graph.ErrUnsupported)
}

func TestEKeyBulkSkipsEndpointCreation(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true})
	require.NoError(t, g.AddNode(graph.Node{ID: 1}))
	require.NoError(t, g.AddNode(graph.Node{ID: 2}))

	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, true))

	ok, err := g.HasEdge(1, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEKeyGetRandomNode(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true})
	require.NoError(t, g.AddNode(graph.Node{ID: 1}))
	require.NoError(t, g.AddNode(graph.Node{ID: 2}))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, false))

	n, err := g.GetRandomNode()
	require.NoError(t, err)
	assert.Contains(t, []uint32{1, 2}, n.ID)
}

// The node's own (id, SentinelDst) row must never surface as an edge.
func TestEKeySentinelRowNeverSurfacesAsEdge(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true})
	require.NoError(t, g.AddNode(graph.Node{ID: 1}))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, false))

	out, err := g.GetOutEdges(1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, uint32(2), out[0].DstID)

	nodes, err := g.GetNodes()
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}
