package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codeprop/internal/cpg"
	"github.com/standardbeagle/codeprop/internal/ids"
	"github.com/standardbeagle/codeprop/internal/symboltable"
)

func newFixture() (*symboltable.Table, map[ids.NodeID]cpg.CodeNode) {
	table := symboltable.New()
	nodes := make(map[ids.NodeID]cpg.CodeNode)

	add := func(path, qname string, kind ids.Kind) cpg.CodeNode {
		n := cpg.CodeNode{
			ID:            ids.NewNodeID(path, qname, kind),
			Kind:          kind,
			QualifiedName: qname,
			FilePath:      path,
			Language:      "go",
		}
		nodes[n.ID] = n
		table.Insert("go", qname, n.ID)
		return n
	}

	add("greeter.go", "Greeter", ids.KindClass)
	add("greeter.go", "Greeter.Hello", ids.KindMethod)
	add("greeter.go", "inner", ids.KindFunction)
	add("other.go", "pkg.Helper", ids.KindFunction)

	return table, nodes
}

func lookupFrom(nodes map[ids.NodeID]cpg.CodeNode) NodeLookup {
	return func(id ids.NodeID) (cpg.CodeNode, bool) {
		n, ok := nodes[id]
		return n, ok
	}
}

func TestResolveFallsThroughLocalScopeToGlobalExact(t *testing.T) {
	table, nodes := newFixture()
	var method, hello cpg.CodeNode
	for _, n := range nodes {
		if n.QualifiedName == "Greeter.Hello" {
			method = n
		}
	}
	hello = method
	r := New(table, lookupFrom(nodes), true)

	ref := cpg.UnresolvedRef{Origin: hello.ID, TargetText: "inner", Kind: ids.EdgeCalls, FilePath: "greeter.go"}
	// inner is top-level, not nested under Greeter, so local-scope
	// won't match; global exact-FQN stage should still resolve it.
	edges, diag := r.Resolve([]cpg.UnresolvedRef{ref}, nil)
	require.Len(t, edges, 1)
	assert.Equal(t, 1, diag.Resolved)
}

func TestResolveViaImportAlias(t *testing.T) {
	table, nodes := newFixture()
	var origin cpg.CodeNode
	for _, n := range nodes {
		if n.QualifiedName == "Greeter.Hello" {
			origin = n
		}
	}
	r := New(table, lookupFrom(nodes), true)

	fileCtx := map[string]FileContext{
		"greeter.go": {ImportMap: map[string]string{"pkg": "pkg"}},
	}
	ref := cpg.UnresolvedRef{Origin: origin.ID, TargetText: "pkg.Helper", Kind: ids.EdgeCalls, FilePath: "greeter.go"}
	edges, diag := r.Resolve([]cpg.UnresolvedRef{ref}, fileCtx)
	require.Len(t, edges, 1)
	assert.Equal(t, 1, diag.Resolved)
}

func TestResolveDropsAndTracksDangling(t *testing.T) {
	table, nodes := newFixture()
	var origin cpg.CodeNode
	for _, n := range nodes {
		if n.QualifiedName == "inner" {
			origin = n
		}
	}
	r := New(table, lookupFrom(nodes), true)

	ref := cpg.UnresolvedRef{Origin: origin.ID, TargetText: "doesNotExistYet", Kind: ids.EdgeCalls, FilePath: "greeter.go"}
	edges, diag := r.Resolve([]cpg.UnresolvedRef{ref}, nil)
	assert.Empty(t, edges)
	assert.Equal(t, 1, diag.Dropped)

	// Once the symbol is defined, resolving dangling refs against its
	// name should pick it up.
	newID := ids.NewNodeID("new.go", "doesNotExistYet", ids.KindFunction)
	table.Insert("go", "doesNotExistYet", newID)
	edges, diag = r.ResolveDangling([]string{"doesNotExistYet"}, nil)
	require.Len(t, edges, 1)
	assert.Equal(t, newID, edges[0].Dst)
}

func TestResolveLastSegmentFallback(t *testing.T) {
	table, nodes := newFixture()
	var origin cpg.CodeNode
	for _, n := range nodes {
		if n.QualifiedName == "inner" {
			origin = n
		}
	}
	r := New(table, lookupFrom(nodes), true)

	ref := cpg.UnresolvedRef{Origin: origin.ID, TargetText: "Helper", Kind: ids.EdgeCalls, FilePath: "greeter.go"}
	edges, diag := r.Resolve([]cpg.UnresolvedRef{ref}, nil)
	require.Len(t, edges, 1)
	assert.Equal(t, 1, diag.Resolved)
}
