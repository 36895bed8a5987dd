package adj_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relio-db/graphkv/graph"
)

func TestAdjOutCursorReadsPackedLists(t *testing.T) {
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

func TestAdjOutCursorNextAt(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true})
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, false))

	cur := g.OutNbdCursor()
	defer cur.Close()

	al, err := cur.NextAt(1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2}, al.Neighbors)

	empty, err := cur.NextAt(99)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), empty.Degree)
}

func TestAdjNodeCursorAndEdgeCursor(t *testing.T) {
	_, g := openTestGraph(t, graph.Options{IsDirected: true})
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 1, DstID: 2}, false))
	require.NoError(t, g.AddEdge(graph.Edge{SrcID: 2, DstID: 3}, false))

	nc := g.NodeIter()
	defer nc.Close()
	var nodeIDs []uint32
	for nc.HasMore() {
		n, err := nc.Next()
		require.NoError(t, err)
		if n.IsOutOfBand() {
			break
		}
		nodeIDs = append(nodeIDs, n.ID)
	}
	assert.Equal(t, []uint32{1, 2, 3}, nodeIDs)

	ec := g.EdgeIter()
	defer ec.Close()
	count := 0
	for ec.HasMore() {
		e, err := ec.Next()
		require.NoError(t, err)
		if e.IsOutOfBand() {
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
}
