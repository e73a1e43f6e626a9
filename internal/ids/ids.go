// Package ids defines the identity types shared across the graph: node
// kinds, edge kinds, and the stable 128-bit node identifier.
package ids

import (
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Kind enumerates the CodeNode kinds the spec's data model recognizes.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindFunction
	KindMethod
	KindClass
	KindInterface
	KindStruct
	KindEnum
	KindTrait
	KindImpl
	KindModule
	KindImport
	KindVariable
	KindConstant
	KindField
	KindConstructor
	KindProperty
	KindMacro
	KindNamespace
	KindMixin
)

var kindNames = [...]string{
	KindUnknown:     "Unknown",
	KindFunction:    "Function",
	KindMethod:      "Method",
	KindClass:       "Class",
	KindInterface:   "Interface",
	KindStruct:      "Struct",
	KindEnum:        "Enum",
	KindTrait:       "Trait",
	KindImpl:        "Impl",
	KindModule:      "Module",
	KindImport:      "Import",
	KindVariable:    "Variable",
	KindConstant:    "Constant",
	KindField:       "Field",
	KindConstructor: "Constructor",
	KindProperty:    "Property",
	KindMacro:       "Macro",
	KindNamespace:   "Namespace",
	KindMixin:       "Mixin",
}

// String implements fmt.Stringer, matching the teacher's SymbolType.String
// idiom of a plain array-indexed lookup with an "Unknown" fallback.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// ParseKind is the inverse of String, used when decoding persisted or
// wire-format node records.
func ParseKind(s string) Kind {
	for i, name := range kindNames {
		if name == s {
			return Kind(i)
		}
	}
	return KindUnknown
}

// EdgeKind enumerates the directed edge kinds of the graph schema.
type EdgeKind uint8

const (
	EdgeUnknown EdgeKind = iota
	EdgeCalls
	EdgeImports
	EdgeImplements
	EdgeExtends
	EdgeDefines
	EdgeReferences
	EdgeFlowsTo
	EdgeDataDependency
)

var edgeKindNames = [...]string{
	EdgeUnknown:        "Unknown",
	EdgeCalls:          "Calls",
	EdgeImports:        "Imports",
	EdgeImplements:     "Implements",
	EdgeExtends:        "Extends",
	EdgeDefines:        "Defines",
	EdgeReferences:     "References",
	EdgeFlowsTo:        "FlowsTo",
	EdgeDataDependency: "DataDependency",
}

func (k EdgeKind) String() string {
	if int(k) < len(edgeKindNames) {
		return edgeKindNames[k]
	}
	return "Unknown"
}

func ParseEdgeKind(s string) EdgeKind {
	for i, name := range edgeKindNames {
		if name == s {
			return EdgeKind(i)
		}
	}
	return EdgeUnknown
}

// NodeID is the stable 128-bit identifier described in spec.md §3:
// derived from (file path, fully qualified name, kind), deterministic
// across reindexes. Two independent 64-bit xxhash passes over distinctly
// salted inputs give the 128 bits; this widens the teacher's single
// string EntityID (internal/types.Symbol.EntityID) into a fixed-size
// binary id suitable for use as a map key and a Store key suffix.
type NodeID [16]byte

// NewNodeID computes the identifier for a node given its owning file,
// fully qualified name, and kind.
func NewNodeID(filePath, qualifiedName string, kind Kind) NodeID {
	var id NodeID

	h1 := xxhash.New()
	h1.Write([]byte("codeprop:node:lo:"))
	h1.Write([]byte(filePath))
	h1.Write([]byte{0})
	h1.Write([]byte(qualifiedName))
	h1.Write([]byte{0, byte(kind)})
	lo := h1.Sum64()

	h2 := xxhash.New()
	h2.Write([]byte("codeprop:node:hi:"))
	h2.Write([]byte(qualifiedName))
	h2.Write([]byte{0})
	h2.Write([]byte(filePath))
	h2.Write([]byte{0, byte(kind)})
	hi := h2.Sum64()

	for i := 0; i < 8; i++ {
		id[i] = byte(lo >> (8 * i))
		id[8+i] = byte(hi >> (8 * i))
	}
	return id
}

// IsZero reports whether the id is the zero value (never a valid node id).
func (id NodeID) IsZero() bool {
	return id == NodeID{}
}

// String renders the id as lowercase hex, the wire/log representation
// used throughout the query API and broadcast events.
func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

// ParseNodeID is the inverse of String.
func ParseNodeID(s string) (NodeID, error) {
	var id NodeID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("ids: invalid node id %q: %w", s, err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("ids: node id %q has %d bytes, want %d", s, len(b), len(id))
	}
	copy(id[:], b)
	return id, nil
}
