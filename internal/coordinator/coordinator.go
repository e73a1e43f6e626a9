// Package coordinator is the Indexer Coordinator of spec.md §4.9: it
// drives parse → extract → resolve → commit → broadcast, a bounded
// worker pool doing the parallelizable parse/extract stage before a
// single-threaded commit phase. Grounded on the teacher's
// internal/indexing/master_index.go (IndexDirectory's scanner/
// processor/integrator pipeline, UpdateFile/RemoveFile incremental
// path), with the teacher's hand-rolled channel pipeline replaced by
// golang.org/x/sync/errgroup + semaphore for the bounded worker pool —
// the ecosystem's standard shape for the same job.
package coordinator

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/standardbeagle/codeprop/internal/broadcast"
	"github.com/standardbeagle/codeprop/internal/cperrors"
	"github.com/standardbeagle/codeprop/internal/config"
	"github.com/standardbeagle/codeprop/internal/cpg"
	"github.com/standardbeagle/codeprop/internal/extract"
	"github.com/standardbeagle/codeprop/internal/graph"
	"github.com/standardbeagle/codeprop/internal/ids"
	"github.com/standardbeagle/codeprop/internal/logging"
	"github.com/standardbeagle/codeprop/internal/registry"
	"github.com/standardbeagle/codeprop/internal/resolver"
	"github.com/standardbeagle/codeprop/internal/store"
	"github.com/standardbeagle/codeprop/internal/symboltable"
	"github.com/standardbeagle/codeprop/internal/tsparse"
)

// Coordinator drives the Graph and Symbol Table but holds no lock of
// its own. Each of the two structures guards itself with its own
// RWMutex, and a commit is a sequence of separately locked calls on
// them, so a reader can observe the structures between two of those
// calls.
type Coordinator struct {
	cfg      *config.Config
	parser   *tsparse.Parser
	graph    *graph.Graph
	table    *symboltable.Table
	resolver *resolver.Resolver
	store    *store.Store
	bus      *broadcast.Broadcaster
	log      *slog.Logger

	files map[string]cpg.FileRecord
}

// CommitResult is the per-commit output spec.md §4.9 calls for: the
// set of added, modified, and removed node ids, plus any diagnostics
// collected along the way (parse failures, resolve misses — none of
// which abort the commit).
type CommitResult struct {
	Added       []ids.NodeID
	Modified    []ids.NodeID
	Removed     []ids.NodeID
	Diagnostics []error
}

// New builds a Coordinator wired to the given components. bus may be
// nil if the caller does not need broadcast events (e.g. tests).
func New(cfg *config.Config, parser *tsparse.Parser, g *graph.Graph, table *symboltable.Table, s *store.Store, bus *broadcast.Broadcaster) *Coordinator {
	c := &Coordinator{
		cfg:    cfg,
		parser: parser,
		graph:  g,
		table:  table,
		store:  s,
		bus:    bus,
		log:    logging.Default().With("component", "coordinator"),
		files:  make(map[string]cpg.FileRecord),
	}
	c.resolver = resolver.New(table, g.Node, cfg.Resolve.PruneWeakerDuplicates)
	return c
}

// LoadPersisted hydrates the Coordinator's file bookkeeping from a
// Store.LoadAll call the caller already made to populate Graph and
// Symbol Table on startup, so a subsequent UpdateFile/RemoveFile for an
// already-indexed path sees its prior NodeIDs instead of treating it as
// new.
func (c *Coordinator) LoadPersisted(files []cpg.FileRecord) {
	for _, f := range files {
		c.files[f.Path] = f
	}
}

// fileWork is the parallelizable stage's output for one file.
type fileWork struct {
	path     string
	language string
	content  []byte
	hash     [32]byte
	result   cpg.ExtractResult
	err      error
}

// IndexFiles runs a full index over paths: parse and extract run
// concurrently across a bounded worker pool; resolution and the graph/
// symbol-table commit run single-threaded afterward, per spec.md
// §4.9's "bounded worker pool of parallel parse/extract tasks feeding
// a staging buffer, then a single-threaded commit phase".
func (c *Coordinator) IndexFiles(ctx context.Context, paths []string) (CommitResult, error) {
	c.log.Info("scanning", "files", len(paths))
	c.publishPhase(broadcast.PhaseScanning, len(paths))

	workers := c.cfg.Index.ParallelWorkers
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	g, gctx := errgroup.WithContext(ctx)

	c.publishPhase(broadcast.PhaseParsing, len(paths))
	work := make([]fileWork, len(paths))
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			work[i] = c.parseAndExtract(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Error("parse/extract stage failed", "error", err)
		return CommitResult{}, err
	}

	return c.commit(ctx, work)
}

// UpdateFile re-indexes a single file after a watcher-reported change,
// the incremental path referenced by spec.md §4.9.
func (c *Coordinator) UpdateFile(ctx context.Context, path string) (CommitResult, error) {
	return c.commit(ctx, []fileWork{c.parseAndExtract(path)})
}

// RemoveFile evicts path's nodes from the Graph and Symbol Table, the
// surgical-removal path spec.md §3 calls for when a FileRecord is
// removed.
func (c *Coordinator) RemoveFile(ctx context.Context, path string) (CommitResult, error) {
	fr, existed := c.files[path]
	if !existed {
		return CommitResult{}, nil
	}
	for _, id := range fr.NodeIDs {
		c.table.RemoveByNode(id)
		c.graph.RemoveNode(id)
	}
	delete(c.files, path)

	if c.store != nil {
		if err := c.commitStore(ctx, store.Batch{DeletedNodes: fr.NodeIDs, DeletedFiles: []string{path}}); err != nil {
			return CommitResult{}, err
		}
	}
	c.publishGraphUpdate(nil, nil, fr.NodeIDs)
	return CommitResult{Removed: fr.NodeIDs}, nil
}

func (c *Coordinator) parseAndExtract(path string) fileWork {
	content, err := os.ReadFile(path)
	if err != nil {
		return fileWork{path: path, err: cperrors.NewIOError(path, err)}
	}
	if int64(len(content)) > c.cfg.Index.MaxFileSize {
		return fileWork{path: path, err: cperrors.NewIOError(path, errFileTooLarge)}
	}

	language := c.parser.Language(path)
	if language == "" {
		return fileWork{path: path, err: cperrors.NewUnsupportedLanguage(path, filepath.Ext(path))}
	}

	hash := sha256.Sum256(content)
	if existing, ok := c.files[path]; ok && existing.ContentHash == hash {
		// spec.md §3 invariant 4: identical content produces zero node
		// churn; skip re-extraction entirely.
		return fileWork{path: path, language: language, content: content, hash: hash}
	}

	tree, err := c.parser.Parse(path, content)
	if err != nil {
		return fileWork{path: path, err: err}
	}
	query := c.parser.Query(path)
	result, err := extract.Extract(tree, query, content, path, language)
	if err != nil {
		return fileWork{path: path, err: err}
	}
	return fileWork{path: path, language: language, content: content, hash: hash, result: result}
}

var errFileTooLarge = fileTooLargeError{}

type fileTooLargeError struct{}

func (fileTooLargeError) Error() string { return "file exceeds index.max_file_size" }

// commit performs the single-threaded integration phase: diff each
// file's old and new node identities, run the resolver, write to the
// Store, recompute centrality, and broadcast the result.
func (c *Coordinator) commit(ctx context.Context, work []fileWork) (CommitResult, error) {
	var result CommitResult
	var allRefs []cpg.UnresolvedRef
	fileCtx := make(map[string]resolver.FileContext)
	var newFQNs []string
	var touchedSeeds []ids.NodeID

	for _, w := range work {
		if w.err != nil {
			result.Diagnostics = append(result.Diagnostics, w.err)
			continue
		}
		if w.result.Nodes == nil && w.result.Refs == nil {
			continue // unchanged content, nothing to integrate
		}

		old, existed := c.files[w.path]
		oldIDs := make(map[ids.NodeID]bool, len(old.NodeIDs))
		if existed {
			for _, id := range old.NodeIDs {
				oldIDs[id] = true
			}
		}
		newIDs := make(map[ids.NodeID]bool, len(w.result.Nodes))
		for _, n := range w.result.Nodes {
			newIDs[n.ID] = true
		}

		// Identities that vanished from this file entirely: genuinely
		// gone, so RemoveNode's edge cascade is correct here — nothing
		// else in the graph should still point at a node this file no
		// longer defines.
		for id := range oldIDs {
			if newIDs[id] {
				continue
			}
			c.table.RemoveByNode(id)
			c.graph.RemoveNode(id)
			result.Removed = append(result.Removed, id)
		}

		// Identities that survived keep their place in the graph —
		// RemoveNode must never run on these, or edges other files
		// hold into them (a caller elsewhere, an implementor) would be
		// destroyed and never restored. Only this node's own outgoing
		// edges are stale, since every ref the file emits is about to
		// be resolved fresh below.
		for id := range oldIDs {
			if newIDs[id] {
				c.graph.RemoveOutgoingEdges(id)
			}
		}

		nodeIDs := make([]ids.NodeID, 0, len(w.result.Nodes))
		for _, n := range w.result.Nodes {
			if oldIDs[n.ID] {
				if prev, ok := c.graph.Node(n.ID); ok && prev.ContentHash != n.ContentHash {
					result.Modified = append(result.Modified, n.ID)
				}
			} else {
				result.Added = append(result.Added, n.ID)
			}

			winnerPath := n.FilePath
			if existingID, ok := c.table.Resolve(n.Language, n.QualifiedName); ok && existingID != n.ID {
				if existingNode, ok := c.graph.Node(existingID); ok {
					winnerPath = existingNode.FilePath
				}
			}
			if err := c.table.InsertChecked(n.Language, n.QualifiedName, n.ID, n.FilePath, winnerPath); err != nil {
				c.log.Warn("symbol collision", "qualified_name", n.QualifiedName, "loser", n.FilePath, "winner", winnerPath)
				result.Diagnostics = append(result.Diagnostics, err)
			}

			c.graph.AddNode(n)
			nodeIDs = append(nodeIDs, n.ID)
			newFQNs = append(newFQNs, n.QualifiedName)
			touchedSeeds = append(touchedSeeds, n.ID)
		}

		c.files[w.path] = cpg.FileRecord{
			Path:          w.path,
			ContentHash:   w.hash,
			Language:      w.language,
			NodeIDs:       nodeIDs,
			LastIndexedAt: time.Now().UnixNano(),
		}

		allRefs = append(allRefs, w.result.Refs...)
		fileCtx[w.path] = resolver.FileContext{ImportMap: w.result.ImportMap}
	}

	c.publishPhase(broadcast.PhaseResolving, 0)
	edges, diag := c.resolver.Resolve(allRefs, fileCtx)
	for _, e := range edges {
		c.graph.AddEdge(e.Src, e.Dst, e.Kind, e.Offset)
	}
	result.Diagnostics = append(result.Diagnostics, diag.Misses...)

	if danglingEdges, danglingDiag := c.resolver.ResolveDangling(newFQNs, fileCtx); len(danglingEdges) > 0 {
		for _, e := range danglingEdges {
			c.graph.AddEdge(e.Src, e.Dst, e.Kind, e.Offset)
		}
		result.Diagnostics = append(result.Diagnostics, danglingDiag.Misses...)
	}

	c.publishPhase(broadcast.PhaseRanking, 0)
	if len(touchedSeeds) > 0 {
		if len(result.Added)+len(result.Removed) >= c.cfg.Index.RerankThreshold {
			c.graph.ComputeCentrality()
		} else {
			c.graph.ComputeCentralitySubset(touchedSeeds)
		}
	}

	if c.store != nil {
		batch := store.Batch{}
		for _, w := range work {
			if w.err != nil || (w.result.Nodes == nil && w.result.Refs == nil) {
				continue
			}
			batch.Nodes = append(batch.Nodes, w.result.Nodes...)
			batch.Files = append(batch.Files, c.files[w.path])
			for _, n := range w.result.Nodes {
				if batch.Symbols == nil {
					batch.Symbols = make(map[string]ids.NodeID)
				}
				batch.Symbols[n.Language+":"+n.QualifiedName] = n.ID
			}
		}
		batch.Edges = edges
		if err := c.commitStore(ctx, batch); err != nil {
			return result, err
		}
	}

	c.publishGraphUpdate(result.Added, result.Modified, result.Removed)
	return result, nil
}

// commitStore wraps store.Commit with the retry-once-then-fatal policy
// spec.md §4.9 calls for on CommitFailure.
func (c *Coordinator) commitStore(ctx context.Context, batch store.Batch) error {
	err := c.store.Commit(ctx, batch)
	if err == nil {
		return nil
	}
	if err2 := c.store.Commit(ctx, batch); err2 == nil {
		return nil
	}
	return cperrors.NewCommitFailure(2, err)
}

func (c *Coordinator) publishGraphUpdate(added, modified, removed []ids.NodeID) {
	c.log.Info("commit", "added", len(added), "modified", len(modified), "removed", len(removed))
	if c.bus == nil {
		return
	}
	c.bus.Publish(broadcast.Event{
		Type:          broadcast.GraphUpdate,
		AddedNodes:    added,
		ModifiedNodes: modified,
		RemovedNodes:  removed,
	})
	c.publishPhase(broadcast.PhaseReady, 0)
}

// publishPhase emits an IndexerStatus event marking the pipeline's
// current stage, per spec.md §6/§8 scenario 6 ("IndexerStatus
// progresses through Scanning → Parsing → Resolving → Ranking →
// Ready"). A nil bus (tests, one-off CLI invocations) is a no-op.
func (c *Coordinator) publishPhase(phase broadcast.IndexerPhase, filesRemaining int) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(broadcast.Event{Type: broadcast.IndexerStatus, Phase: phase, FilesRemaining: filesRemaining})
}

// Graph exposes the underlying Graph for read-only query use.
func (c *Coordinator) Graph() *graph.Graph { return c.graph }

// SymbolTable exposes the underlying Symbol Table for read-only query use.
func (c *Coordinator) SymbolTable() *symboltable.Table { return c.table }

// SupportedExtensions returns every file extension the registry knows
// how to parse, for the caller's directory walk.
func SupportedExtensions() []string { return registry.Extensions() }
