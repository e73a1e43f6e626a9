// Package cpg holds the data model shared by every component that
// touches the code property graph: CodeNode, Edge, UnresolvedRef,
// SymbolEntry, and FileRecord, per spec.md §3. Keeping these in one
// leaf package lets tsparse/extract/graph/resolver/store/symboltable
// all depend on the same types without import cycles.
package cpg

import (
	"github.com/standardbeagle/codeprop/internal/ids"
)

// RefQualification describes how an UnresolvedRef's target text was
// written at the call site, per spec.md §4.3's "whether the reference
// is qualified, member-access, or bare".
type RefQualification uint8

const (
	RefBare RefQualification = iota
	RefQualified
	RefMemberAccess
)

// CodeNode is one vertex of the graph: a function, class, import, etc.
type CodeNode struct {
	ID            ids.NodeID
	Kind          ids.Kind
	Name          string
	QualifiedName string
	FilePath      string
	LineStart     int
	LineEnd       int
	Signature     string
	Language      string
	Centrality    float64
	ContentHash   [32]byte
}

// Edge is one directed, typed arc between two CodeNodes. Multiple
// edges of different Kind may exist between the same ordered pair.
type Edge struct {
	Src    ids.NodeID
	Dst    ids.NodeID
	Kind   ids.EdgeKind
	Offset int // byte offset of the reference site in Src's file, for diagnostics
}

// UnresolvedRef is an extractor output naming a symbol used but not
// locally defined. It lives until the Resolver consumes it.
type UnresolvedRef struct {
	Origin      ids.NodeID
	TargetText  string
	Kind        ids.EdgeKind
	Qualifier   RefQualification
	FilePath    string
	Line        int
	Offset      int
}

// SymbolEntry is one row of the Symbol Table: FQN to node id.
type SymbolEntry struct {
	QualifiedName string
	NodeID        ids.NodeID
}

// FileRecord is the authoritative set of nodes one file owns, used for
// surgical removal and re-extraction on change.
type FileRecord struct {
	Path          string
	ContentHash   [32]byte
	Language      string
	NodeIDs       []ids.NodeID
	LastIndexedAt int64 // unix nanos; stamped by the Coordinator when it commits the file
}

// ExtractResult is what the Node Extractor returns for one file: its
// nodes plus any references it could not resolve locally, and the
// import aliases the Resolver's second stage needs.
type ExtractResult struct {
	Nodes     []CodeNode
	Refs      []UnresolvedRef
	ImportMap map[string]string // local alias -> fully qualified import target
}
