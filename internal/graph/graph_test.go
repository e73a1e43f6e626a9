package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codeprop/internal/cpg"
	"github.com/standardbeagle/codeprop/internal/ids"
)

func node(path, qname string, kind ids.Kind) cpg.CodeNode {
	return cpg.CodeNode{
		ID:            ids.NewNodeID(path, qname, kind),
		Kind:          kind,
		Name:          qname,
		QualifiedName: qname,
		FilePath:      path,
		Language:      "go",
	}
}

func TestAddNodeAndRemoveNodeDropsIncidentEdges(t *testing.T) {
	g := New()
	a := node("a.go", "A", ids.KindFunction)
	b := node("a.go", "B", ids.KindFunction)
	g.AddNode(a)
	g.AddNode(b)
	g.AddEdge(a.ID, b.ID, ids.EdgeCalls, 0)

	require.Len(t, g.Neighbors(a.ID, Outgoing, nil), 1)

	g.RemoveNode(b.ID)
	assert.Empty(t, g.Neighbors(a.ID, Outgoing, nil))
	_, ok := g.Node(b.ID)
	assert.False(t, ok)
}

func TestShortestPathFollowsEdgeChain(t *testing.T) {
	g := New()
	a := node("a.go", "A", ids.KindFunction)
	b := node("a.go", "B", ids.KindFunction)
	c := node("a.go", "C", ids.KindFunction)
	g.AddNode(a)
	g.AddNode(b)
	g.AddNode(c)
	g.AddEdge(a.ID, b.ID, ids.EdgeCalls, 0)
	g.AddEdge(b.ID, c.ID, ids.EdgeCalls, 0)

	path := g.ShortestPath(a.ID, c.ID, nil)
	require.Len(t, path, 3)
	assert.Equal(t, a.ID, path[0].NodeID)
	assert.Equal(t, b.ID, path[1].NodeID)
	assert.Equal(t, c.ID, path[2].NodeID)
}

func TestShortestPathNoPathReturnsNil(t *testing.T) {
	g := New()
	a := node("a.go", "A", ids.KindFunction)
	b := node("a.go", "B", ids.KindFunction)
	g.AddNode(a)
	g.AddNode(b)

	assert.Nil(t, g.ShortestPath(a.ID, b.ID, nil))
}

func TestImpactReportsHopDistance(t *testing.T) {
	g := New()
	a := node("a.go", "A", ids.KindFunction)
	b := node("a.go", "B", ids.KindFunction)
	c := node("a.go", "C", ids.KindFunction)
	g.AddNode(a)
	g.AddNode(b)
	g.AddNode(c)
	// A calls B calls C; impact(C) should find B at depth 1, A at depth 2.
	g.AddEdge(a.ID, b.ID, ids.EdgeCalls, 0)
	g.AddEdge(b.ID, c.ID, ids.EdgeCalls, 0)

	results := g.Impact(c.ID, 5)
	byDepth := make(map[ids.NodeID]int)
	for _, r := range results {
		byDepth[r.NodeID] = r.Depth
	}
	assert.Equal(t, 0, byDepth[c.ID])
	assert.Equal(t, 1, byDepth[b.ID])
	assert.Equal(t, 2, byDepth[a.ID])
}

func TestImpactRespectsMaxDepth(t *testing.T) {
	g := New()
	a := node("a.go", "A", ids.KindFunction)
	b := node("a.go", "B", ids.KindFunction)
	c := node("a.go", "C", ids.KindFunction)
	g.AddNode(a)
	g.AddNode(b)
	g.AddNode(c)
	g.AddEdge(a.ID, b.ID, ids.EdgeCalls, 0)
	g.AddEdge(b.ID, c.ID, ids.EdgeCalls, 0)

	results := g.Impact(c.ID, 1)
	assert.Len(t, results, 2) // c itself (depth 0) and b (depth 1); a is out of range
}

func TestComputeCentralityFavorsMostCalled(t *testing.T) {
	g := New()
	a := node("a.go", "A", ids.KindFunction)
	b := node("a.go", "B", ids.KindFunction)
	c := node("a.go", "C", ids.KindFunction)
	g.AddNode(a)
	g.AddNode(b)
	g.AddNode(c)
	g.AddEdge(a.ID, c.ID, ids.EdgeCalls, 0)
	g.AddEdge(b.ID, c.ID, ids.EdgeCalls, 0)

	g.ComputeCentrality()
	cNode, _ := g.Node(c.ID)
	aNode, _ := g.Node(a.ID)
	assert.Greater(t, cNode.Centrality, aNode.Centrality)
}

func TestFindByNameMatchesCaseInsensitiveSubstring(t *testing.T) {
	g := New()
	a := node("a.go", "Widget", ids.KindFunction)
	b := node("a.go", "WidgetFactory", ids.KindFunction)
	g.AddNode(a)
	g.AddNode(b)

	results := g.FindByName("widget", nil)
	assert.Len(t, results, 2)
}
