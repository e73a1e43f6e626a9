package tsparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGoSource(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	src := []byte("package main\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")
	tree, err := p.Parse("hello.go", src)
	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.Equal(t, "go", p.Language("hello.go"))
	assert.False(t, tree.RootNode().HasError())
}

func TestParseUnsupportedExtension(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Parse("notes.txt", []byte("hello"))
	require.Error(t, err)
}

func TestReparseReusesOldTree(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	original := []byte("package main\n\nfunc A() {}\n")
	tree, err := p.Parse("x.go", original)
	require.NoError(t, err)

	updated := []byte("package main\n\nfunc AB() {}\n")
	edit := Edit{StartByte: 20, OldEndByte: 20, NewEndByte: 21}
	newTree, err := p.Reparse("x.go", updated, tree, edit)
	require.NoError(t, err)
	require.NotNil(t, newTree)
	assert.False(t, newTree.RootNode().HasError())
}

func TestParseReportsSyntaxError(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	src := []byte("package main\n\nfunc Hello( string {\n")
	_, err = p.Parse("broken.go", src)
	require.Error(t, err)
}

func TestReparseFallsBackWithNilOldTree(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	src := []byte("package main\n\nfunc A() {}\n")
	tree, err := p.Reparse("x.go", src, nil, Edit{})
	require.NoError(t, err)
	require.NotNil(t, tree)
}
