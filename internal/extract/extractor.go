// Package extract is the Node Extractor of spec.md §4.3: a pure
// function of (tree, content, path, language) that walks a tree-sitter
// match stream and emits CodeNodes plus UnresolvedRefs. It never
// touches the Graph or Symbol Table, which keeps it parallelizable
// across files. Grounded on the teacher's internal/parser package,
// whose per-language parse functions walk a QueryCursor's Matches and
// dispatch on bare capture names; this module collapses that dispatch
// into one generic loop driven by registry.CaptureKinds /
// registry.ReferenceCaptures instead of a switch per language.
package extract

import (
	"crypto/sha256"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/codeprop/internal/cpg"
	"github.com/standardbeagle/codeprop/internal/ids"
	"github.com/standardbeagle/codeprop/internal/registry"
)

// declSpan is a pre-extraction record for one declaration-shaped match,
// before qualified names are resolved by enclosing-scope containment.
type declSpan struct {
	kind       ids.Kind
	name       string
	startByte  uint32
	endByte    uint32
	startLine  int
	endLine    int
	signature  string
}

// refSpan is a pre-extraction record for one usage-shaped match (a
// call, a superclass/heritage reference).
type refSpan struct {
	edgeKind  ids.EdgeKind
	target    string
	siteByte  uint32
}

// Extract walks every match of query against tree's root node and
// returns the file's CodeNodes and UnresolvedRefs. path and language
// are stamped onto every node; content backs all span slicing.
func Extract(tree *sitter.Tree, query *sitter.Query, content []byte, path, language string) (cpg.ExtractResult, error) {
	qc := sitter.NewQueryCursor()
	defer qc.Close()

	matches := qc.Matches(query, tree.RootNode(), content)
	captureNames := query.CaptureNames()

	var decls []declSpan
	var refs []refSpan
	imports := make(map[string]string)

	for {
		match := matches.Next()
		if match == nil {
			break
		}

		names := make(map[string]string)
		var primaryTag string
		var primaryNode *sitter.Node
		var receiverText string

		for _, c := range match.Captures {
			tag := captureNames[c.Index]
			node := c.Node
			text := string(content[node.StartByte():node.EndByte()])

			if dot := strings.IndexByte(tag, '.'); dot >= 0 {
				base, sub := tag[:dot], tag[dot+1:]
				switch sub {
				case "name":
					names[base] = text
				case "receiver":
					receiverText = text
				case "path", "source":
					names[base+".target"] = trimQuotes(text)
				}
				if primaryTag == "" {
					primaryTag = base
				}
				continue
			}
			primaryTag = tag
			n := node
			primaryNode = &n
		}

		if kind, ok := registry.CaptureKinds[primaryTag]; ok {
			name, hasName := names[primaryTag]
			node := primaryNode
			if node == nil {
				continue
			}
			if !hasName {
				name = anonymousName(kind, node.StartPosition().Row)
			}
			if primaryTag == "method" && receiverText != "" {
				recv := strings.Trim(receiverText, "()")
				if fields := strings.Fields(recv); len(fields) > 0 {
					recv = fields[len(fields)-1]
				}
				recv = strings.TrimLeft(recv, "*")
				if i := strings.IndexByte(recv, '['); i >= 0 {
					recv = recv[:i]
				}
				name = recv + "." + name
			}
			start, end := node.StartPosition(), node.EndPosition()
			decls = append(decls, declSpan{
				kind:      kind,
				name:      name,
				startByte: node.StartByte(),
				endByte:   node.EndByte(),
				startLine: int(start.Row) + 1,
				endLine:   int(end.Row) + 1,
				signature: firstLine(content, node.StartByte(), node.EndByte()),
			})
			if target, ok := names[primaryTag+".target"]; ok {
				imports[name] = target
			}
			continue
		}

		if edgeKind, ok := registry.ReferenceCaptures[primaryTag]; ok {
			target, hasName := names[primaryTag]
			site := uint32(0)
			if primaryNode != nil {
				site = primaryNode.StartByte()
			}
			if !hasName {
				continue
			}
			refs = append(refs, refSpan{edgeKind: edgeKind, target: target, siteByte: site})
			continue
		}

		// A match whose primary tag is in neither table (e.g. @export)
		// is still scanned for name entries keyed by a reference tag.
		for tag, edgeKind := range registry.ReferenceCaptures {
			if target, ok := names[tag]; ok {
				refs = append(refs, refSpan{edgeKind: edgeKind, target: target})
			}
		}
	}

	nodes := make([]cpg.CodeNode, 0, len(decls))
	for _, d := range decls {
		qname := qualifiedName(d, decls)
		nodes = append(nodes, cpg.CodeNode{
			ID:            ids.NewNodeID(path, qname, d.kind),
			Kind:          d.kind,
			Name:          lastSegment(d.name),
			QualifiedName: qname,
			FilePath:      path,
			LineStart:     d.startLine,
			LineEnd:       d.endLine,
			Signature:     d.signature,
			Language:      language,
			ContentHash:   sha256.Sum256(content[d.startByte:d.endByte]),
		})
	}

	unresolved := make([]cpg.UnresolvedRef, 0, len(refs))
	for _, r := range refs {
		origin, ok := enclosingNodeID(r.siteByte, decls, path)
		if !ok {
			continue
		}
		unresolved = append(unresolved, cpg.UnresolvedRef{
			Origin:     origin,
			TargetText: r.target,
			Kind:       r.edgeKind,
			Qualifier:  qualifierOf(r.target),
			FilePath:   path,
		})
	}

	return cpg.ExtractResult{Nodes: nodes, Refs: unresolved, ImportMap: imports}, nil
}

// qualifiedName prefixes d's name with the qualified name of its
// smallest strictly-enclosing scope-bearing declaration (class,
// struct, interface, trait, impl, module, namespace), per spec.md
// §4.3's "class members qualify under the class FQN" scoping rule.
func qualifiedName(d declSpan, all []declSpan) string {
	enclosing, ok := smallestEnclosing(d, all)
	if !ok {
		return d.name
	}
	return qualifiedName(enclosing, all) + "." + d.name
}

func smallestEnclosing(d declSpan, all []declSpan) (declSpan, bool) {
	var best declSpan
	found := false
	bestSpan := uint32(0)
	for _, other := range all {
		if other == d {
			continue
		}
		if !isScopeKind(other.kind) {
			continue
		}
		if other.startByte <= d.startByte && other.endByte >= d.endByte && other.endByte-other.startByte < d.endByte-d.startByte {
			span := other.endByte - other.startByte
			if !found || span < bestSpan {
				best, bestSpan, found = other, span, true
			}
		}
	}
	return best, found
}

func enclosingNodeID(site uint32, all []declSpan, path string) (ids.NodeID, bool) {
	var best declSpan
	found := false
	bestSpan := uint32(0)
	for _, d := range all {
		if d.startByte <= site && d.endByte >= site {
			span := d.endByte - d.startByte
			if !found || span < bestSpan {
				best, bestSpan, found = d, span, true
			}
		}
	}
	if !found {
		return ids.NodeID{}, false
	}
	return ids.NewNodeID(path, qualifiedName(best, all), best.kind), true
}

func isScopeKind(k ids.Kind) bool {
	switch k {
	case ids.KindClass, ids.KindStruct, ids.KindInterface, ids.KindTrait, ids.KindImpl, ids.KindModule, ids.KindNamespace:
		return true
	default:
		return false
	}
}

func qualifierOf(target string) cpg.RefQualification {
	switch {
	case strings.Contains(target, "."):
		return cpg.RefQualified
	default:
		return cpg.RefBare
	}
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func anonymousName(kind ids.Kind, line uint32) string {
	return "<anonymous:" + kind.String() + ":" + itoa(int(line)) + ">"
}

func firstLine(content []byte, start, end uint32) string {
	span := content[start:end]
	if i := strings.IndexByte(string(span), '\n'); i >= 0 {
		span = span[:i]
	}
	const max = 160
	if len(span) > max {
		return string(span[:max])
	}
	return string(span)
}

func trimQuotes(s string) string {
	return strings.Trim(s, "\"'`")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
