package symboltable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codeprop/internal/ids"
)

func TestInsertResolveRoundTrip(t *testing.T) {
	tbl := New()
	id := ids.NewNodeID("a.go", "pkg.Foo", ids.KindFunction)
	tbl.Insert("go", "pkg.Foo", id)

	got, ok := tbl.Resolve("go", "pkg.Foo")
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestCrossLanguageNamesCoexist(t *testing.T) {
	tbl := New()
	goID := ids.NewNodeID("a.go", "User.Save", ids.KindMethod)
	pyID := ids.NewNodeID("a.py", "User.Save", ids.KindMethod)
	tbl.Insert("go", "User.Save", goID)
	tbl.Insert("python", "User.Save", pyID)

	gotGo, ok := tbl.Resolve("go", "User.Save")
	require.True(t, ok)
	gotPy, ok := tbl.Resolve("python", "User.Save")
	require.True(t, ok)
	assert.Equal(t, goID, gotGo)
	assert.Equal(t, pyID, gotPy)
	assert.NotEqual(t, gotGo, gotPy)
}

func TestRemoveByNode(t *testing.T) {
	tbl := New()
	id := ids.NewNodeID("a.go", "pkg.Foo", ids.KindFunction)
	tbl.Insert("go", "pkg.Foo", id)
	tbl.RemoveByNode(id)

	_, ok := tbl.Resolve("go", "pkg.Foo")
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.Len())
}

func TestScanPrefix(t *testing.T) {
	tbl := New()
	tbl.Insert("go", "pkg.Foo", ids.NewNodeID("a.go", "pkg.Foo", ids.KindFunction))
	tbl.Insert("go", "pkg.Bar", ids.NewNodeID("a.go", "pkg.Bar", ids.KindFunction))
	tbl.Insert("go", "other.Baz", ids.NewNodeID("b.go", "other.Baz", ids.KindFunction))

	matches := tbl.ScanPrefix("go", "pkg.")
	require.Len(t, matches, 2)
	assert.Equal(t, "pkg.Bar", matches[0].QualifiedName)
	assert.Equal(t, "pkg.Foo", matches[1].QualifiedName)
}

func TestLastSegmentCandidatesDeterministicOrder(t *testing.T) {
	tbl := New()
	tbl.Insert("python", "z.Save", ids.NewNodeID("z.py", "z.Save", ids.KindMethod))
	tbl.Insert("go", "a.Save", ids.NewNodeID("a.go", "a.Save", ids.KindMethod))
	tbl.Insert("go", "b.Save", ids.NewNodeID("b.go", "b.Save", ids.KindMethod))

	matches := tbl.LastSegmentCandidates("Save")
	require.Len(t, matches, 3)
	assert.Equal(t, "go", matches[0].Language)
	assert.Equal(t, "a.Save", matches[0].QualifiedName)
	assert.Equal(t, "go", matches[1].Language)
	assert.Equal(t, "b.Save", matches[1].QualifiedName)
	assert.Equal(t, "python", matches[2].Language)
}

func TestInsertCheckedReportsCollision(t *testing.T) {
	tbl := New()
	winner := ids.NewNodeID("a.go", "pkg.Foo", ids.KindFunction)
	loser := ids.NewNodeID("b.go", "pkg.Foo", ids.KindFunction)

	require.NoError(t, tbl.InsertChecked("go", "pkg.Foo", winner, "a.go", "a.go"))
	err := tbl.InsertChecked("go", "pkg.Foo", loser, "b.go", "a.go")
	assert.Error(t, err)

	got, ok := tbl.Resolve("go", "pkg.Foo")
	require.True(t, ok)
	assert.Equal(t, winner, got, "first writer should still win after a reported collision")
}
