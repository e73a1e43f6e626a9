// Package resolver is the second pass of spec.md §4.6: it turns
// UnresolvedRefs into concrete Edges once extraction has populated the
// Symbol Table. Grounded on the teacher's internal/symbollinker
// package (linker_engine.go's per-file symbol tables plus cross-file
// SymbolLink/ImportLink resolution, incremental_engine.go's
// content-hash-gated re-resolve). The teacher's five per-language
// resolvers (GoResolver, JSResolver, PHPResolver, CSharpResolver,
// PythonResolver) are collapsed into one language-agnostic four-stage
// resolver here, since the spec places per-language scoping
// responsibility in the Extractor (which already records import
// aliases and enclosing-scope qualified names), not in the Resolver.
package resolver

import (
	"sort"
	"strings"

	"github.com/standardbeagle/codeprop/internal/cperrors"
	"github.com/standardbeagle/codeprop/internal/cpg"
	"github.com/standardbeagle/codeprop/internal/ids"
	"github.com/standardbeagle/codeprop/internal/symboltable"
)

// NodeLookup resolves a node id to its CodeNode, satisfied by
// *graph.Graph without creating an import cycle between graph and
// resolver.
type NodeLookup func(ids.NodeID) (cpg.CodeNode, bool)

// FileContext is what the Resolver needs about one extracted file:
// its import alias map, for stage 2 resolution.
type FileContext struct {
	ImportMap map[string]string
}

// Resolver turns UnresolvedRefs into Edges using the four-stage order
// of spec.md §4.6, and maintains the dangling-reference index so that
// a newly-defined symbol can resolve references that arrived before it
// existed.
type Resolver struct {
	table           *symboltable.Table
	lookup          NodeLookup
	dangling        map[string][]cpg.UnresolvedRef // fqn-ish target text -> refs waiting on it
	pruneReferences bool
}

// New builds a Resolver bound to table for symbol lookups and lookup
// for reading a ref's origin node. pruneReferences implements
// DESIGN.md's resolution of spec.md §9(b): when true, a References
// edge is dropped in favor of an already-resolved Calls, Implements or
// Extends edge between the same (src, dst) pair, since a call site is itself a reference
// and double-counting inflates both the graph and centrality.
func New(table *symboltable.Table, lookup NodeLookup, pruneReferences bool) *Resolver {
	return &Resolver{
		table:           table,
		lookup:          lookup,
		dangling:        make(map[string][]cpg.UnresolvedRef),
		pruneReferences: pruneReferences,
	}
}

// Diagnostics summarizes one Resolve call's outcome.
type Diagnostics struct {
	Resolved int
	Dropped  int
	Misses   []error
}

// Resolve attempts to resolve every ref in refs (typically the
// batch's own refs plus any dangling refs targeting a name newly
// defined in this commit) against table and fileCtx, given per-file
// import maps keyed by file path. It returns the resulting Edges and a
// Diagnostics summary; unresolved refs are re-added to the dangling
// index rather than lost.
func (r *Resolver) Resolve(refs []cpg.UnresolvedRef, fileCtx map[string]FileContext) ([]cpg.Edge, Diagnostics) {
	var edges []cpg.Edge
	seen := make(map[edgeKey]bool)
	diag := Diagnostics{}

	for _, ref := range refs {
		dst, ok := r.resolveOne(ref, fileCtx)
		if !ok {
			diag.Dropped++
			diag.Misses = append(diag.Misses, cperrors.NewResolveMiss(ref.FilePath, ref.TargetText))
			r.dangling[ref.TargetText] = append(r.dangling[ref.TargetText], ref)
			continue
		}

		if r.pruneReferences && ref.Kind == ids.EdgeReferences && prunedByStrongerEdge(seen, ref.Origin, dst) {
			continue
		}

		k := edgeKey{ref.Origin, dst, ref.Kind}
		if seen[k] {
			continue
		}
		seen[k] = true
		edges = append(edges, cpg.Edge{Src: ref.Origin, Dst: dst, Kind: ref.Kind, Offset: ref.Offset})
		diag.Resolved++
	}

	return edges, diag
}

type edgeKey struct {
	src  ids.NodeID
	dst  ids.NodeID
	kind ids.EdgeKind
}

// strongerThanReference lists the edge kinds that, per DESIGN.md's
// resolution of spec.md §9(b), make a References edge between the same
// pair redundant: a call site, an implements clause, and an extends
// clause are all themselves references, so the weaker edge is dropped
// once one of these already covers the pair.
var strongerThanReference = [...]ids.EdgeKind{ids.EdgeCalls, ids.EdgeImplements, ids.EdgeExtends}

func prunedByStrongerEdge(seen map[edgeKey]bool, src, dst ids.NodeID) bool {
	for _, kind := range strongerThanReference {
		if seen[edgeKey{src, dst, kind}] {
			return true
		}
	}
	return false
}

// ResolveDangling re-attempts every ref waiting on newly-defined
// symbol names, called after a commit introduces new nodes, per
// spec.md §4.6's dangling-reference index.
func (r *Resolver) ResolveDangling(newlyDefined []string, fileCtx map[string]FileContext) ([]cpg.Edge, Diagnostics) {
	var pending []cpg.UnresolvedRef
	for _, name := range newlyDefined {
		if refs, ok := r.dangling[name]; ok {
			pending = append(pending, refs...)
			delete(r.dangling, name)
		}
	}
	if len(pending) == 0 {
		return nil, Diagnostics{}
	}
	return r.Resolve(pending, fileCtx)
}

func (r *Resolver) resolveOne(ref cpg.UnresolvedRef, fileCtx map[string]FileContext) (ids.NodeID, bool) {
	origin, ok := r.lookup(ref.Origin)
	if !ok {
		return ids.NodeID{}, false
	}

	// Stage 1: local scope, same file, same enclosing class/namespace.
	if scope, ok := enclosingScope(origin.QualifiedName); ok {
		if id, ok := r.table.Resolve(origin.Language, scope+"."+ref.TargetText); ok {
			return id, true
		}
	}

	// Stage 2: imported aliases recorded by the extractor for this file.
	if ctx, ok := fileCtx[ref.FilePath]; ok {
		if target, ok := ctx.ImportMap[firstSegment(ref.TargetText)]; ok {
			candidate := target
			if rest := afterFirstSegment(ref.TargetText); rest != "" {
				candidate = target + "." + rest
			}
			if id, ok := r.table.Resolve(origin.Language, candidate); ok {
				return id, true
			}
		}
	}

	// Stage 3: global symbol table, exact FQN.
	if id, ok := r.table.Resolve(origin.Language, ref.TargetText); ok {
		return id, true
	}

	// Stage 4: last-segment fallback, language bucket first, then
	// lexicographically smallest FQN for determinism.
	candidates := r.table.LastSegmentCandidates(lastSegment(ref.TargetText))
	if len(candidates) == 0 {
		return ids.NodeID{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		iOwn := candidates[i].Language == origin.Language
		jOwn := candidates[j].Language == origin.Language
		if iOwn != jOwn {
			return iOwn
		}
		return candidates[i].QualifiedName < candidates[j].QualifiedName
	})
	return candidates[0].NodeID, true
}

func enclosingScope(qualifiedName string) (string, bool) {
	i := strings.LastIndexByte(qualifiedName, '.')
	if i < 0 {
		return "", false
	}
	return qualifiedName[:i], true
}

func lastSegment(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func firstSegment(s string) string {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}

func afterFirstSegment(s string) string {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return ""
}
