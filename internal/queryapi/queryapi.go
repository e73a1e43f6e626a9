// Package queryapi is the Query/Broadcast API of SPEC_FULL.md §4.11: a
// set of plain Go functions matching spec.md §6's query contract
// one-to-one, each taking a context.Context and returning a typed
// response. It performs graph reads and the one broadcast write
// (Focus); the out-of-scope RPC transport and MCP bridge wrap these
// functions with wire framing.
//
// Grounded on the teacher's internal/mcp/server.go tool-handler
// signatures and internal/mcp/response.go's response shaping, reduced
// to the nine functions the contract names with no MCP envelope.
package queryapi

import (
	"context"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/codeprop/internal/broadcast"
	"github.com/standardbeagle/codeprop/internal/cperrors"
	"github.com/standardbeagle/codeprop/internal/graph"
	"github.com/standardbeagle/codeprop/internal/ids"
)

// API wires the query contract to a live Graph and Broadcaster. Each
// Graph call takes the Graph's own lock; a Coordinator commit is several
// such calls, so a read can land between two of them. API holds no lock
// of its own.
type API struct {
	graph *graph.Graph
	bus   *broadcast.Broadcaster

	languages  func() []string
	lastIndexed func() int64
}

// New builds an API over g, publishing Focus events through bus (which
// may be nil for a read-only deployment). languages and lastIndexed
// supply GraphInfo's non-graph fields; both may be nil, in which case
// GraphInfo reports zero values for them.
func New(g *graph.Graph, bus *broadcast.Broadcaster, languages func() []string, lastIndexed func() int64) *API {
	return &API{graph: g, bus: bus, languages: languages, lastIndexed: lastIndexed}
}

// GraphInfoResponse answers graph.info().
type GraphInfoResponse struct {
	NodeCount   int
	EdgeCount   int
	Languages   []string
	LastIndexed int64
}

// GraphInfo reports the graph's current size and freshness.
func (a *API) GraphInfo(ctx context.Context) (GraphInfoResponse, error) {
	if err := ctx.Err(); err != nil {
		return GraphInfoResponse{}, cperrors.NewCancelled("graph.info")
	}
	resp := GraphInfoResponse{NodeCount: a.graph.Len(), EdgeCount: a.graph.EdgeLen()}
	if a.languages != nil {
		resp.Languages = a.languages()
	}
	if a.lastIndexed != nil {
		resp.LastIndexed = a.lastIndexed()
	}
	return resp, nil
}

// DiscoverMatch is one discover() result.
type DiscoverMatch struct {
	ID     ids.NodeID
	Name   string
	Kind   ids.Kind
	File   string
	Line   int
	Score  float64
	Reason string
}

// Discover returns nodes fuzzily matching query, ranked by a blend of
// name similarity (go-edlib Jaro-Winkler, matching the teacher's
// semantic.FuzzyMatcher idiom) and graph centrality, since a discovery
// query favors "important and plausibly named" over "exact text hit"
// (that's Search's job).
func (a *API) Discover(ctx context.Context, query string, limit int) ([]DiscoverMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, cperrors.NewCancelled("discover")
	}
	if limit <= 0 {
		limit = 20
	}

	candidates := a.graph.FindByName(query, nil)
	matches := make([]DiscoverMatch, 0, len(candidates))
	for _, c := range candidates {
		similarity, err := edlib.StringsSimilarity(strings.ToLower(query), strings.ToLower(c.Node.Name), edlib.JaroWinkler)
		nameScore := 0.0
		if err == nil {
			nameScore = float64(similarity)
		}
		score := 0.7*nameScore + 0.3*c.Node.Centrality
		matches = append(matches, DiscoverMatch{
			ID:     c.Node.ID,
			Name:   c.Node.Name,
			Kind:   c.Node.Kind,
			File:   c.Node.FilePath,
			Line:   c.Node.LineStart,
			Score:  score,
			Reason: discoverReason(nameScore, c.Node.Centrality),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID.String() < matches[j].ID.String()
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func discoverReason(nameScore, centrality float64) string {
	switch {
	case nameScore >= 0.9:
		return "name closely matches query"
	case centrality >= 0.5:
		return "highly connected in the graph"
	case nameScore >= 0.6:
		return "name partially matches query"
	default:
		return "weak textual match"
	}
}

// Dependent is one entry of an Impact response's dependent set.
type Dependent struct {
	ID           ids.NodeID
	Name         string
	Kind         ids.Kind
	File         string
	Line         int
	Relationship ids.EdgeKind
	Depth        int
}

// ImpactResponse answers impact(node_id, max_depth).
type ImpactResponse struct {
	Target        ids.NodeID
	Dependents    []Dependent
	TotalAffected int
}

// Impact computes the blast radius of id: every node transitively
// reachable by reverse edges, bounded by maxDepth.
func (a *API) Impact(ctx context.Context, id ids.NodeID, maxDepth int) (ImpactResponse, error) {
	if err := ctx.Err(); err != nil {
		return ImpactResponse{}, cperrors.NewCancelled("impact")
	}
	if _, ok := a.graph.Node(id); !ok {
		return ImpactResponse{}, cperrors.NewQueryError(cperrors.TypeUnknownNode, "no such node: "+id.String())
	}

	results := a.graph.Impact(id, maxDepth)
	dependents := make([]Dependent, 0, len(results))
	for _, r := range results {
		if r.Depth == 0 {
			continue // the target itself, not a dependent
		}
		n, ok := a.graph.Node(r.NodeID)
		if !ok {
			continue
		}
		relationship := ids.EdgeKind(0)
		if neighbors := a.graph.Neighbors(r.NodeID, graph.Outgoing, nil); len(neighbors) > 0 {
			relationship = neighbors[0].Kind
		}
		dependents = append(dependents, Dependent{
			ID: n.ID, Name: n.Name, Kind: n.Kind, File: n.FilePath, Line: n.LineStart,
			Relationship: relationship, Depth: r.Depth,
		})
	}
	sort.Slice(dependents, func(i, j int) bool {
		if dependents[i].Depth != dependents[j].Depth {
			return dependents[i].Depth < dependents[j].Depth
		}
		return dependents[i].ID.String() < dependents[j].ID.String()
	})
	return ImpactResponse{Target: id, Dependents: dependents, TotalAffected: len(results)}, nil
}

// ContextNode is one entry of a Context response.
type ContextNode struct {
	ID         ids.NodeID
	Name       string
	Kind       ids.Kind
	File       string
	Line       int
	Centrality float64
	Signature  string
	Source     string
	TokenCount int
}

// ContextResponse answers context(task, max_tokens, include_source).
type ContextResponse struct {
	Nodes       []ContextNode
	TotalTokens int
}

// SourceReader loads the source text for a node's byte range, used
// only when includeSource is true.
type SourceReader func(filePath string, lineStart, lineEnd int) (string, error)

// Context assembles a token-budgeted working set for task: the nodes
// FindByName returns for task are taken in that order until the next
// one would exceed maxTokens. Neighbors of the matches are not added.
func (a *API) Context(ctx context.Context, task string, maxTokens int, includeSource bool, readSource SourceReader) (ContextResponse, error) {
	if err := ctx.Err(); err != nil {
		return ContextResponse{}, cperrors.NewCancelled("context")
	}
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	seeds := a.graph.FindByName(task, nil)
	var resp ContextResponse
	for _, s := range seeds {
		tokenCount := estimateTokens(s.Node.Signature)
		var source string
		if includeSource && readSource != nil {
			if text, err := readSource(s.Node.FilePath, s.Node.LineStart, s.Node.LineEnd); err == nil {
				source = text
				tokenCount = estimateTokens(text)
			}
		}
		if resp.TotalTokens+tokenCount > maxTokens {
			break
		}
		resp.Nodes = append(resp.Nodes, ContextNode{
			ID: s.Node.ID, Name: s.Node.Name, Kind: s.Node.Kind, File: s.Node.FilePath,
			Line: s.Node.LineStart, Centrality: s.Node.Centrality, Signature: s.Node.Signature,
			Source: source, TokenCount: tokenCount,
		})
		resp.TotalTokens += tokenCount
	}
	return resp, nil
}

// estimateTokens is a cheap 4-bytes-per-token heuristic, the same
// order of magnitude most tokenizers land on for source code, and
// good enough for a soft context budget.
func estimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	n := len(s) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// IncidentEdge is one edge in NodeGetResponse.
type IncidentEdge struct {
	Other ids.NodeID
	Kind  ids.EdgeKind
}

// NodeGetResponse answers node.get(id): the full node record plus its
// incident edges grouped by direction.
type NodeGetResponse struct {
	Node     graphNode
	Outgoing []IncidentEdge
	Incoming []IncidentEdge
}

type graphNode struct {
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
}

// NodeGet retrieves one node's full record with incident edges.
func (a *API) NodeGet(ctx context.Context, id ids.NodeID) (NodeGetResponse, error) {
	if err := ctx.Err(); err != nil {
		return NodeGetResponse{}, cperrors.NewCancelled("node.get")
	}
	n, ok := a.graph.Node(id)
	if !ok {
		return NodeGetResponse{}, cperrors.NewQueryError(cperrors.TypeUnknownNode, "no such node: "+id.String())
	}

	out := a.graph.Neighbors(id, graph.Outgoing, nil)
	in := a.graph.Neighbors(id, graph.Incoming, nil)
	resp := NodeGetResponse{
		Node: graphNode{
			ID: n.ID, Kind: n.Kind, Name: n.Name, QualifiedName: n.QualifiedName,
			FilePath: n.FilePath, LineStart: n.LineStart, LineEnd: n.LineEnd,
			Signature: n.Signature, Language: n.Language, Centrality: n.Centrality,
		},
	}
	for _, nb := range out {
		resp.Outgoing = append(resp.Outgoing, IncidentEdge{Other: nb.NodeID, Kind: nb.Kind})
	}
	for _, nb := range in {
		resp.Incoming = append(resp.Incoming, IncidentEdge{Other: nb.NodeID, Kind: nb.Kind})
	}
	return resp, nil
}

// Search returns nodes whose name contains query (case-insensitive),
// optionally filtered by kind, ranked by centrality.
func (a *API) Search(ctx context.Context, query string, kind *ids.Kind, limit int) ([]graphNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, cperrors.NewCancelled("search")
	}
	if limit <= 0 {
		limit = 50
	}
	ranked := a.graph.FindByName(query, kind)
	out := make([]graphNode, 0, len(ranked))
	for _, r := range ranked {
		if len(out) >= limit {
			break
		}
		out = append(out, graphNode{
			ID: r.Node.ID, Kind: r.Node.Kind, Name: r.Node.Name, QualifiedName: r.Node.QualifiedName,
			FilePath: r.Node.FilePath, LineStart: r.Node.LineStart, LineEnd: r.Node.LineEnd,
			Signature: r.Node.Signature, Language: r.Node.Language, Centrality: r.Node.Centrality,
		})
	}
	return out, nil
}

// FindPath returns an ordered node sequence from start to end, or nil
// if no path exists.
func (a *API) FindPath(ctx context.Context, start, end ids.NodeID) ([]ids.NodeID, error) {
	if err := ctx.Err(); err != nil {
		return nil, cperrors.NewCancelled("find_path")
	}
	steps := a.graph.ShortestPath(start, end, nil)
	if steps == nil {
		return nil, nil
	}
	path := make([]ids.NodeID, len(steps))
	for i, s := range steps {
		path[i] = s.NodeID
	}
	return path, nil
}

// Subscribe registers for broadcast events, returning a live channel
// the caller drains until it unsubscribes. graph.subscribe(event_kinds)
// in spec.md terms; event_kinds filtering is left to the caller since
// Broadcaster fans out every event type on one channel per subscriber.
func (a *API) Subscribe(ctx context.Context) (*broadcast.Subscription, error) {
	if a.bus == nil {
		return nil, cperrors.NewQueryError(cperrors.TypeConfig, "no broadcaster configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, cperrors.NewCancelled("graph.subscribe")
	}
	return a.bus.Subscribe(), nil
}

// Focus is the fire-and-forget event an agent emits to steer a
// downstream editor or visualizer's attention; the core rebroadcasts
// it unchanged to every subscriber, carrying the (node_id, file, line)
// triple spec.md §6 defines for focus.
func (a *API) Focus(ctx context.Context, node ids.NodeID, file string, line int) error {
	if err := ctx.Err(); err != nil {
		return cperrors.NewCancelled("focus")
	}
	if a.bus == nil {
		return cperrors.NewQueryError(cperrors.TypeConfig, "no broadcaster configured")
	}
	a.bus.Publish(broadcast.Event{Type: broadcast.FocusNode, FocusedNode: node, File: file, Line: line})
	return nil
}
