// Package config holds the layered configuration described in
// SPEC_FULL.md §4.10: compiled-in defaults, an optional .codeprop.kdl
// file, then programmatic overrides. Shape is ported from the teacher's
// internal/config/config.go (struct-of-structs grouped by concern).
package config

import (
	"path/filepath"
	"runtime"

	"github.com/standardbeagle/codeprop/internal/cperrors"
)

// Config is the root configuration object threaded through the
// Coordinator, Watcher, and Store.
type Config struct {
	Project   Project
	Index     Index
	Watch     Watch
	Resolve   Resolve
	Store     Store
	Broadcast Broadcast
}

// Project describes the tree being indexed.
type Project struct {
	Root string
	Name string
}

// Index governs walking and parsing.
type Index struct {
	MaxFileSize      int64    // bytes; files larger than this are skipped
	FollowSymlinks   bool
	Include          []string // glob list, loaded and merged only; walking and watching do not filter on it
	Exclude          []string // doublestar glob ignore list, caller-supplied
	ParallelWorkers  int      // 0 = auto-detect (GOMAXPROCS)
	RerankThreshold  int      // min changed nodes to trigger full centrality recompute
	RerankMaxAgeSecs int      // loaded and merged only; the Coordinator does not read it and reranks on RerankThreshold alone
}

// Watch governs the file-system watcher.
type Watch struct {
	Enabled     bool
	DebounceMs  int // default 50, per spec.md §4.8
	ChannelSize int // bounded watcher channel capacity
}

// Resolve governs the resolver's edge-pruning policy (DESIGN.md, Open
// Question (b)).
type Resolve struct {
	PruneWeakerDuplicates bool // drop a References edge once a stronger Calls/Implements/Extends edge exists for the pair
}

// Store governs the durable persistence backend.
type Store struct {
	Dir      string // directory holding the embedded database file, relative to Project.Root unless absolute
	FileName string // default "graph.db"
}

// Broadcast governs the in-process event fan-out.
type Broadcast struct {
	Headless        bool // bind to all interfaces rather than loopback, per spec.md §6 (handled by the RPC transport; recorded here for it to read)
	SubscriberDepth int  // per-subscriber channel buffer; full subscribers drop events rather than block commits
}

// Default returns the compiled-in defaults, matching the teacher's
// parseKDL default-construction block before any file is applied.
func Default() *Config {
	return &Config{
		Project: Project{Root: "."},
		Index: Index{
			MaxFileSize:      10 * 1024 * 1024,
			FollowSymlinks:   false,
			ParallelWorkers:  runtime.GOMAXPROCS(0),
			RerankThreshold:  50,
			RerankMaxAgeSecs: 300,
		},
		Watch: Watch{
			Enabled:     true,
			DebounceMs:  50,
			ChannelSize: 1024,
		},
		Resolve: Resolve{
			PruneWeakerDuplicates: true,
		},
		Store: Store{
			Dir:      filepath.Join(".codeprop", "store"),
			FileName: "graph.db",
		},
		Broadcast: Broadcast{
			Headless:        false,
			SubscriberDepth: 256,
		},
	}
}

// StorePath returns the absolute path to the embedded database file.
func (c *Config) StorePath() string {
	dir := c.Store.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.Project.Root, dir)
	}
	return filepath.Join(dir, c.Store.FileName)
}

// Validate rejects configuration that would make the rest of the
// pipeline misbehave, surfacing a *cperrors.ConfigError before any
// indexing starts (spec.md §4.10).
func (c *Config) Validate() error {
	if c.Project.Root == "" {
		return cperrors.NewConfigError("project.root", "must not be empty")
	}
	if c.Watch.DebounceMs < 0 {
		return cperrors.NewConfigError("watch.debounce_ms", "must be non-negative")
	}
	if c.Index.RerankThreshold < 0 {
		return cperrors.NewConfigError("index.rerank_threshold", "must be non-negative")
	}
	if c.Index.MaxFileSize <= 0 {
		return cperrors.NewConfigError("index.max_file_size", "must be positive")
	}
	if c.Index.ParallelWorkers < 0 {
		return cperrors.NewConfigError("index.parallel_workers", "must be non-negative")
	}
	if c.Store.FileName == "" {
		return cperrors.NewConfigError("store.file_name", "must not be empty")
	}
	return nil
}

// Merge applies non-zero fields of override on top of c, returning a new
// Config. This is how a KDL file layers over defaults, and how
// programmatic overrides layer over both.
func (c *Config) Merge(override *Config) *Config {
	merged := *c
	if override == nil {
		return &merged
	}
	if override.Project.Root != "" {
		merged.Project.Root = override.Project.Root
	}
	if override.Project.Name != "" {
		merged.Project.Name = override.Project.Name
	}
	if override.Index.MaxFileSize != 0 {
		merged.Index.MaxFileSize = override.Index.MaxFileSize
	}
	if override.Index.FollowSymlinks {
		merged.Index.FollowSymlinks = true
	}
	if len(override.Index.Include) > 0 {
		merged.Index.Include = override.Index.Include
	}
	if len(override.Index.Exclude) > 0 {
		merged.Index.Exclude = override.Index.Exclude
	}
	if override.Index.ParallelWorkers != 0 {
		merged.Index.ParallelWorkers = override.Index.ParallelWorkers
	}
	if override.Index.RerankThreshold != 0 {
		merged.Index.RerankThreshold = override.Index.RerankThreshold
	}
	if override.Index.RerankMaxAgeSecs != 0 {
		merged.Index.RerankMaxAgeSecs = override.Index.RerankMaxAgeSecs
	}
	if override.Watch.DebounceMs != 0 {
		merged.Watch.DebounceMs = override.Watch.DebounceMs
	}
	if override.Watch.ChannelSize != 0 {
		merged.Watch.ChannelSize = override.Watch.ChannelSize
	}
	if override.Store.Dir != "" {
		merged.Store.Dir = override.Store.Dir
	}
	if override.Store.FileName != "" {
		merged.Store.FileName = override.Store.FileName
	}
	if override.Broadcast.Headless {
		merged.Broadcast.Headless = true
	}
	if override.Broadcast.SubscriberDepth != 0 {
		merged.Broadcast.SubscriberDepth = override.Broadcast.SubscriberDepth
	}
	return &merged
}
