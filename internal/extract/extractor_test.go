package extract

import (
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"github.com/standardbeagle/codeprop/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseGo(t *testing.T, src string) (*sitter.Tree, *sitter.Query) {
	t.Helper()
	language := sitter.NewLanguage(tree_sitter_go.Language())
	parser := sitter.NewParser()
	require.NoError(t, parser.SetLanguage(language))
	tree := parser.Parse([]byte(src), nil)
	require.NotNil(t, tree)

	def, ok := registry.Lookup(".go")
	require.True(t, ok)
	query, err := sitter.NewQuery(language, def.Query)
	require.NoError(t, err)
	return tree, query
}

func TestExtractGoFunctionsAndMethods(t *testing.T) {
	src := `package main

type Greeter struct{}

func (g Greeter) Hello() string {
	return inner()
}

func inner() string {
	return "hi"
}
`
	tree, query := parseGo(t, src)
	result, err := Extract(tree, query, []byte(src), "greeter.go", "go")
	require.NoError(t, err)

	var names []string
	for _, n := range result.Nodes {
		names = append(names, n.QualifiedName)
	}
	assert.Contains(t, names, "Greeter")
	assert.Contains(t, names, "Greeter.Hello")
	assert.Contains(t, names, "inner")
}

func TestExtractGoEmitsCallReference(t *testing.T) {
	src := `package main

func outer() {
	inner()
}

func inner() {}
`
	tree, query := parseGo(t, src)
	result, err := Extract(tree, query, []byte(src), "x.go", "go")
	require.NoError(t, err)

	found := false
	for _, r := range result.Refs {
		if r.TargetText == "inner" {
			found = true
		}
	}
	assert.True(t, found, "expected an unresolved reference to inner()")
}

func TestExtractIsPureAcrossCalls(t *testing.T) {
	src := "package main\n\nfunc A() {}\n"
	tree, query := parseGo(t, src)
	r1, err := Extract(tree, query, []byte(src), "a.go", "go")
	require.NoError(t, err)
	r2, err := Extract(tree, query, []byte(src), "a.go", "go")
	require.NoError(t, err)
	assert.Equal(t, len(r1.Nodes), len(r2.Nodes))
	assert.Equal(t, r1.Nodes[0].ID, r2.Nodes[0].ID)
}
