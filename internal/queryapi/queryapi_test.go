package queryapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codeprop/internal/broadcast"
	"github.com/standardbeagle/codeprop/internal/cpg"
	"github.com/standardbeagle/codeprop/internal/graph"
	"github.com/standardbeagle/codeprop/internal/ids"
)

func node(path, qname string, kind ids.Kind) cpg.CodeNode {
	return cpg.CodeNode{
		ID: ids.NewNodeID(path, qname, kind), Kind: kind, Name: qname,
		QualifiedName: qname, FilePath: path, Language: "go",
	}
}

func fixture(t *testing.T) (*API, *graph.Graph, ids.NodeID, ids.NodeID) {
	t.Helper()
	g := graph.New()
	a := node("a.go", "Helper", ids.KindFunction)
	b := node("b.go", "Caller", ids.KindFunction)
	g.AddNode(a)
	g.AddNode(b)
	g.AddEdge(b.ID, a.ID, ids.EdgeCalls, 0)
	g.ComputeCentrality()

	bus := broadcast.New(8)
	api := New(g, bus, func() []string { return []string{"go"} }, func() int64 { return 1000 })
	return api, g, a.ID, b.ID
}

func TestGraphInfoReportsCounts(t *testing.T) {
	api, _, _, _ := fixture(t)
	resp, err := api.GraphInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.NodeCount)
	assert.Equal(t, 1, resp.EdgeCount)
	assert.Equal(t, []string{"go"}, resp.Languages)
}

func TestDiscoverRanksExactNameHighest(t *testing.T) {
	api, _, _, _ := fixture(t)
	matches, err := api.Discover(context.Background(), "Helper", 10)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "Helper", matches[0].Name)
}

func TestImpactReturnsDependents(t *testing.T) {
	api, _, aID, bID := fixture(t)
	resp, err := api.Impact(context.Background(), aID, 5)
	require.NoError(t, err)
	assert.Equal(t, aID, resp.Target)
	require.Len(t, resp.Dependents, 1)
	assert.Equal(t, bID, resp.Dependents[0].ID)
	assert.Equal(t, 2, resp.TotalAffected)
}

func TestImpactUnknownNodeErrors(t *testing.T) {
	api, _, _, _ := fixture(t)
	_, err := api.Impact(context.Background(), ids.NodeID{}, 1)
	assert.Error(t, err)
}

func TestNodeGetGroupsIncidentEdges(t *testing.T) {
	api, _, aID, bID := fixture(t)
	resp, err := api.NodeGet(context.Background(), aID)
	require.NoError(t, err)
	assert.Equal(t, "Helper", resp.Node.Name)
	require.Len(t, resp.Incoming, 1)
	assert.Equal(t, bID, resp.Incoming[0].Other)
	assert.Empty(t, resp.Outgoing)
}

func TestSearchFiltersByKind(t *testing.T) {
	api, _, _, _ := fixture(t)
	kind := ids.KindFunction
	results, err := api.Search(context.Background(), "Call", &kind, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Caller", results[0].Name)
}

func TestFindPathReturnsSequence(t *testing.T) {
	api, _, aID, bID := fixture(t)
	path, err := api.FindPath(context.Background(), bID, aID)
	require.NoError(t, err)
	require.Len(t, path, 2)
	assert.Equal(t, bID, path[0])
	assert.Equal(t, aID, path[len(path)-1])
}

func TestFindPathNoPathReturnsNil(t *testing.T) {
	api, g, aID, _ := fixture(t)
	orphan := node("c.go", "Orphan", ids.KindFunction)
	g.AddNode(orphan)
	path, err := api.FindPath(context.Background(), aID, orphan.ID)
	require.NoError(t, err)
	assert.Nil(t, path)
}

func TestFocusPublishesEvent(t *testing.T) {
	api, _, aID, _ := fixture(t)
	sub, err := api.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, api.Focus(context.Background(), aID, "a.go", 3))
	ev := <-sub.Events()
	assert.Equal(t, broadcast.FocusNode, ev.Type)
	assert.Equal(t, aID, ev.FocusedNode)
	assert.Equal(t, "a.go", ev.File)
	assert.Equal(t, 3, ev.Line)
}

func TestContextRespectsTokenBudget(t *testing.T) {
	api, _, _, _ := fixture(t)
	resp, err := api.Context(context.Background(), "Helper", 1, false, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, resp.TotalTokens, 1)
}

func TestSubscribeWithoutBroadcasterErrors(t *testing.T) {
	g := graph.New()
	api := New(g, nil, nil, nil)
	_, err := api.Subscribe(context.Background())
	assert.Error(t, err)
}
