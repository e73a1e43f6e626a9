// Package symboltable is the Symbol Table of spec.md §4.4: a
// process-wide concurrent map from fully qualified name to node id.
// Grounded on the FQN→id map pattern implicit in the teacher's
// internal/symbollinker package (`symbolTables map[FileID]*SymbolTable`,
// `fileRegistry`), flattened here into one global map since the spec
// places per-file scoping in the Extractor/Resolver, not the table
// itself.
package symboltable

import (
	"sort"
	"strings"
	"sync"

	"github.com/standardbeagle/codeprop/internal/cperrors"
	"github.com/standardbeagle/codeprop/internal/cpg"
	"github.com/standardbeagle/codeprop/internal/ids"
)

// key namespaces a qualified name by language, per DESIGN.md's
// resolution of spec.md §9's cross-language FQN question: two
// languages may legitimately share a bare qualified name (e.g. both
// define "User.Save"), so entries coexist keyed by "language:fqn".
func key(language, qualifiedName string) string {
	return language + ":" + qualifiedName
}

// Table is the concurrent FQN→NodeID map. The zero value is not usable;
// construct with New.
type Table struct {
	mu      sync.RWMutex
	entries map[string]ids.NodeID
	// byNode supports remove_by_node without a full scan.
	byNode map[ids.NodeID]string
}

// New returns an empty Table.
func New() *Table {
	return &Table{
		entries: make(map[string]ids.NodeID),
		byNode:  make(map[ids.NodeID]string),
	}
}

// Insert records that qualifiedName (in language) resolves to id.
// Last-writer-within-a-commit wins per spec.md §4.4. First-writer-wins
// with a cperrors.SymbolCollision diagnostic is InsertChecked.
func (t *Table) Insert(language, qualifiedName string, id ids.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key(language, qualifiedName)
	if old, ok := t.entries[k]; ok && old != id {
		delete(t.byNode, old)
	}
	t.entries[k] = id
	t.byNode[id] = k
}

// Resolve returns the node id registered for qualifiedName in
// language, if any.
func (t *Table) Resolve(language, qualifiedName string) (ids.NodeID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.entries[key(language, qualifiedName)]
	return id, ok
}

// RemoveByNode deletes whatever entry currently points at id, if any.
func (t *Table) RemoveByNode(id ids.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k, ok := t.byNode[id]
	if !ok {
		return
	}
	delete(t.byNode, id)
	delete(t.entries, k)
}

// ScanPrefix returns every (qualifiedName, id) pair whose key begins
// with prefix, across all languages unless language is non-empty, in
// which case only that language bucket is searched. Results are sorted
// by qualified name for deterministic output.
func (t *Table) ScanPrefix(language, prefix string) []cpg.SymbolEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]cpg.SymbolEntry, 0)
	for k, id := range t.entries {
		lang, fqn, _ := splitKey(k)
		if language != "" && lang != language {
			continue
		}
		if !strings.HasPrefix(fqn, prefix) {
			continue
		}
		out = append(out, cpg.SymbolEntry{QualifiedName: fqn, NodeID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName < out[j].QualifiedName })
	return out
}

func splitKey(k string) (language, fqn string, ok bool) {
	i := strings.IndexByte(k, ':')
	if i < 0 {
		return "", k, false
	}
	return k[:i], k[i+1:], true
}

// LastSegmentCandidates returns every (language, qualifiedName, id)
// whose final dot-delimited segment equals name, for the resolver's
// §4.6 stage-4 fallback. Results are sorted by language then qualified
// name so ties are broken deterministically by the caller.
func (t *Table) LastSegmentCandidates(name string) []LastSegmentMatch {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []LastSegmentMatch
	for k, id := range t.entries {
		language, fqn, _ := splitKey(k)
		if lastSegment(fqn) != name {
			continue
		}
		out = append(out, LastSegmentMatch{Language: language, QualifiedName: fqn, NodeID: id})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Language != out[j].Language {
			return out[i].Language < out[j].Language
		}
		return out[i].QualifiedName < out[j].QualifiedName
	})
	return out
}

// LastSegmentMatch is one candidate returned by LastSegmentCandidates.
type LastSegmentMatch struct {
	Language      string
	QualifiedName string
	NodeID        ids.NodeID
}

func lastSegment(fqn string) string {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}

// Len reports the number of entries currently held.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// InsertChecked is Insert with first-writer-wins collision reporting,
// returning a *cperrors.SymbolCollision when qualifiedName already maps
// to a different node, per spec.md §3's SymbolEntry invariant
// ("collisions keep the first and record a diagnostic").
func (t *Table) InsertChecked(language, qualifiedName string, id ids.NodeID, filePath, winnerPath string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key(language, qualifiedName)
	if existing, ok := t.entries[k]; ok && existing != id {
		return cperrors.NewSymbolCollision(qualifiedName, winnerPath, filePath)
	}
	t.entries[k] = id
	t.byNode[id] = k
	return nil
}
