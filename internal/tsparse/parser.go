// Package tsparse is the Parser of spec.md §4.2: it runs a
// registry.LanguageDef's grammar over source bytes and yields a
// concrete syntax tree, optionally reusing a prior tree to accelerate
// incremental reparse. Grounded on the teacher's internal/parser/
// parser.go (per-extension *tree_sitter.Parser map, `parser.Parse(buf,
// oldTree)` call shape).
package tsparse

import (
	"path/filepath"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/codeprop/internal/cperrors"
	"github.com/standardbeagle/codeprop/internal/registry"
)

// Edit describes a single byte-range edit applied to source that was
// previously parsed, per spec.md §4.2's "(start, old_end, new_end)"
// descriptor.
type Edit struct {
	StartByte  uint32
	OldEndByte uint32
	NewEndByte uint32
}

// Parser runs tree-sitter grammars. One Parser may be shared by
// multiple goroutines; the underlying *sitter.Parser instances are
// guarded by a mutex because tree-sitter parsers are not safe for
// concurrent Parse calls.
type Parser struct {
	mu      sync.Mutex
	parsers map[string]*sitter.Parser // extension -> language-bound parser
	queries map[string]*sitter.Query  // extension -> compiled query
}

// New builds a Parser with every registry language eagerly compiled.
// The teacher lazily initializes parsers per extension on first use;
// this module's registry is small enough (ten languages) that eager
// construction keeps Parser simple and free of init-ordering bugs.
func New() (*Parser, error) {
	p := &Parser{
		parsers: make(map[string]*sitter.Parser),
		queries: make(map[string]*sitter.Query),
	}
	seen := make(map[string]bool)
	for _, ext := range registry.Extensions() {
		def, _ := registry.Lookup(ext)
		if seen[def.Name] {
			// Multiple extensions share one LanguageDef (e.g. .ts/.tsx);
			// compile the grammar and query once per language, not per extension.
			lang := langKeyFor(def.Name)
			p.parsers[ext] = p.parsers[lang]
			p.queries[ext] = p.queries[lang]
			continue
		}
		seen[def.Name] = true

		language := def.Grammar()
		parser := sitter.NewParser()
		if err := parser.SetLanguage(language); err != nil {
			return nil, cperrors.NewIOError(ext, err)
		}
		query, _ := sitter.NewQuery(language, def.Query)
		// The compile error is discarded: a query that fails to compile
		// is stored as nil, and Query reports nil for its extensions.
		lang := langKeyFor(def.Name)
		p.parsers[lang] = parser
		p.queries[lang] = query
		for _, e := range def.Extensions {
			p.parsers[e] = parser
			p.queries[e] = query
		}
	}
	return p, nil
}

func langKeyFor(name string) string { return "@" + name }

// Language returns the LanguageDef.Name registered for path's
// extension, or "" if unsupported.
func (p *Parser) Language(path string) string {
	def, ok := registry.Lookup(filepath.Ext(path))
	if !ok {
		return ""
	}
	return def.Name
}

// Query returns the compiled query for path's extension, or nil if
// unsupported or compilation failed.
func (p *Parser) Query(path string) *sitter.Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries[filepath.Ext(path)]
}

// Parse runs the grammar registered for path's extension over content,
// returning the resulting tree. Returns *cperrors.UnsupportedLanguage if
// the extension has no registry entry.
func (p *Parser) Parse(path string, content []byte) (*sitter.Tree, error) {
	return p.parse(path, content, nil)
}

// Reparse reuses oldTree to accelerate parsing content, which is
// content after applying edit to the bytes oldTree was built from. A
// nil oldTree falls back to a full parse; oldTree is not checked against
// the grammar registered for path, so a tree from another grammar is
// reused as given.
func (p *Parser) Reparse(path string, content []byte, oldTree *sitter.Tree, edit Edit) (*sitter.Tree, error) {
	if oldTree == nil {
		return p.parse(path, content, nil)
	}
	oldTree.Edit(&sitter.InputEdit{
		StartByte:  edit.StartByte,
		OldEndByte: edit.OldEndByte,
		NewEndByte: edit.NewEndByte,
	})
	return p.parse(path, content, oldTree)
}

func (p *Parser) parse(path string, content []byte, oldTree *sitter.Tree) (*sitter.Tree, error) {
	ext := filepath.Ext(path)
	p.mu.Lock()
	parser, ok := p.parsers[ext]
	p.mu.Unlock()
	if !ok {
		return nil, cperrors.NewUnsupportedLanguage(path, ext)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	tree := parser.Parse(content, oldTree)
	if tree == nil {
		return nil, cperrors.NewParseFailure(path, 0, 0, errParseFailed)
	}
	if root := tree.RootNode(); root.HasError() {
		tree.Close()
		line, column := firstErrorPosition(root)
		return nil, cperrors.NewParseFailure(path, line, column, errSyntaxError)
	}
	return tree, nil
}

var errParseFailed = parseFailedError{}

type parseFailedError struct{}

func (parseFailedError) Error() string { return "tree-sitter returned a nil tree" }

var errSyntaxError = syntaxErrorError{}

type syntaxErrorError struct{}

func (syntaxErrorError) Error() string { return "source contains a syntax error" }

// firstErrorPosition walks n's descendants for the first ERROR or
// MISSING node — what tree-sitter's error-recovering grammars produce
// for a genuine syntax error instead of failing the parse outright —
// and reports its 1-based line/column. Falls back to n's own position
// if the error node can't be located more precisely than the subtree
// HasError already flagged.
func firstErrorPosition(n sitter.Node) (line, column int) {
	if n.IsError() || n.IsMissing() {
		p := n.StartPosition()
		return int(p.Row) + 1, int(p.Column) + 1
	}
	for i := uint32(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil || !child.HasError() {
			continue
		}
		return firstErrorPosition(*child)
	}
	p := n.StartPosition()
	return int(p.Row) + 1, int(p.Column) + 1
}

// Close releases every compiled parser's resources.
func (p *Parser) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	seen := make(map[*sitter.Parser]bool)
	for _, parser := range p.parsers {
		if parser == nil || seen[parser] {
			continue
		}
		seen[parser] = true
		parser.Close()
	}
}
