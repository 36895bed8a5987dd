package std_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relio-db/graphkv/graph"
)

func TestStdNodeCursorSweepsAllNodes(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true, ReadOptimize: true})
	for _, id := range []uint32{1, 2, 3, 4} {
		require.NoError(t, g.AddNode(graph.Node{ID: id}))
	}

	cur := g.NodeIter()
	defer cur.Close()

	var seen []uint32
	for cur.HasMore() {
		n, err := cur.Next()
		require.NoError(t, err)
		if n.IsOutOfBand() {
			break
		}
		seen = append(seen, n.ID)
	}
	assert.Equal(t, []uint32{1, 2, 3, 4}, seen)
}

func TestStdNodeCursorKeyRange(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true, ReadOptimize: true})
	for _, id := range []uint32{1, 2, 3, 4, 5} {
		require.NoError(t, g.AddNode(graph.Node{ID: id}))
	}

	cur := g.NodeIter()
	defer cur.Close()
	cur.SetKeyRange(graph.KeyRange{Start: 2, End: 4})

	var seen []uint32
	for cur.HasMore() {
		n, err := cur.Next()
		require.NoError(t, err)
		if n.IsOutOfBand() {
			break
		}
		seen = append(seen, n.ID)
	}
	assert.Equal(t, []uint32{2, 3}, seen)
}

func TestStdEdgeCursorSweepsAllEdges(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true, IsWeighted: true})
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2, Weight: 10}, false))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 2, DstID: 3, Weight: 20}, false))

	cur := g.EdgeIter()
	defer cur.Close()

	var count int
	for cur.HasMore() {
		e, err := cur.Next()
		require.NoError(t, err)
		if e.IsOutOfBand() {
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
}

func TestStdOutCursorAccumulatesPerVertex(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true})
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, false))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 3}, false))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 2, DstID: 3}, false))

	cur := g.OutNbdCursor()
	defer cur.Close()

	lists := map[uint32][]uint32{}
	for cur.HasMore() {
		al, err := cur.Next()
		require.NoError(t, err)
		if al.IsOutOfBand() {
			break
		}
		lists[al.NodeID] = al.Neighbors
	}

	assert.ElementsMatch(t, []uint32{2, 3}, lists[1])
	assert.ElementsMatch(t, []uint32{3}, lists[2])
}

func TestStdOutCursorNextAt(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true})
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, false))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 3}, false))

	cur := g.OutNbdCursor()
	defer cur.Close()

	al, err := cur.NextAt(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), al.Degree)
	assert.ElementsMatch(t, []uint32{2, 3}, al.Neighbors)

	empty, err := cur.NextAt(99)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), empty.Degree)
}

func TestStdInCursorAccumulatesPerVertex(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true})
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 3}, false))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 2, DstID: 3}, false))

	cur := g.InNbdCursor()
	defer cur.Close()

	al, err := cur.NextAt(3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint32{1, 2}, al.Neighbors)
}
