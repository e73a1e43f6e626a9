package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codeprop/internal/cpg"
	"github.com/standardbeagle/codeprop/internal/ids"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCommitAndLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	n := cpg.CodeNode{
		ID:            ids.NewNodeID("a.go", "pkg.Foo", ids.KindFunction),
		Kind:          ids.KindFunction,
		Name:          "Foo",
		QualifiedName: "pkg.Foo",
		FilePath:      "a.go",
		Language:      "go",
	}
	edge := cpg.Edge{Src: n.ID, Dst: n.ID, Kind: ids.EdgeCalls}
	file := cpg.FileRecord{Path: "a.go", Language: "go", NodeIDs: []ids.NodeID{n.ID}}

	err := s.Commit(context.Background(), Batch{
		Nodes:   []cpg.CodeNode{n},
		Edges:   []cpg.Edge{edge},
		Files:   []cpg.FileRecord{file},
		Symbols: map[string]ids.NodeID{"go:pkg.Foo": n.ID},
	})
	require.NoError(t, err)

	nodes, edges, files, symbols, err := s.LoadAll(func(error) {})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, n.QualifiedName, nodes[0].QualifiedName)
	require.Len(t, edges, 1)
	require.Len(t, files, 1)
	assert.Equal(t, n.ID, symbols["go:pkg.Foo"])
}

func TestCommitDeletesRemoveNodes(t *testing.T) {
	s := openTestStore(t)
	n := cpg.CodeNode{ID: ids.NewNodeID("a.go", "pkg.Foo", ids.KindFunction), FilePath: "a.go"}

	require.NoError(t, s.Commit(context.Background(), Batch{Nodes: []cpg.CodeNode{n}}))
	require.NoError(t, s.Commit(context.Background(), Batch{DeletedNodes: []ids.NodeID{n.ID}}))

	nodes, _, _, _, err := s.LoadAll(func(error) {})
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestCheckSchemaVersionFreshDBMatches(t *testing.T) {
	s := openTestStore(t)
	ok, err := s.CheckSchemaVersion()
	require.NoError(t, err)
	assert.True(t, ok)
}
