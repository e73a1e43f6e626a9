// Command codeprop drives the code property graph indexer from the
// command line: a one-shot full index, a watch loop that keeps the
// graph current as files change, and a status summary. Grounded on the
// teacher's cmd/lci/main.go (urfave/cli/v2 app/command tree, signal-
// driven graceful shutdown for the watch loop); the RPC transport and
// MCP bridge commands are out of scope here and left for the external
// collaborator that wraps internal/queryapi.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/codeprop/internal/broadcast"
	"github.com/standardbeagle/codeprop/internal/config"
	"github.com/standardbeagle/codeprop/internal/coordinator"
	"github.com/standardbeagle/codeprop/internal/graph"
	"github.com/standardbeagle/codeprop/internal/queryapi"
	"github.com/standardbeagle/codeprop/internal/store"
	"github.com/standardbeagle/codeprop/internal/symboltable"
	"github.com/standardbeagle/codeprop/internal/tsparse"
	"github.com/standardbeagle/codeprop/internal/watch"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "codeprop",
		Usage:   "Polyglot code property graph indexer",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory to index",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to project root containing .codeprop.kdl (defaults to --root)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Run a full index of the project root and exit",
				Action: indexCommand,
			},
			{
				Name:   "watch",
				Usage:  "Run a full index, then keep the graph current as files change",
				Action: watchCommand,
			},
			{
				Name:   "status",
				Usage:  "Report the store path and node/edge counts for the last commit in the store",
				Action: statusCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "codeprop: %v\n", err)
		os.Exit(1)
	}
}

type session struct {
	cfg   *config.Config
	coord *coordinator.Coordinator
	store *store.Store
	bus   *broadcast.Broadcaster
}

func openSession(c *cli.Context) (*session, error) {
	root, err := filepath.Abs(c.String("root"))
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	configRoot := c.String("config")
	if configRoot == "" {
		configRoot = root
	}

	cfg, err := config.Load(configRoot, &config.Config{Project: config.Project{Root: root}})
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	parser, err := tsparse.New()
	if err != nil {
		return nil, fmt.Errorf("starting parser: %w", err)
	}

	s, err := store.Open(cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	bus := broadcast.New(cfg.Broadcast.SubscriberDepth)
	g := graph.New()
	table := symboltable.New()
	coord := coordinator.New(cfg, parser, g, table, s, bus)

	nodes, edges, files, syms, err := s.LoadAll(func(err error) {
		fmt.Fprintf(os.Stderr, "store: dropping corrupt record: %v\n", err)
	})
	if err != nil {
		return nil, fmt.Errorf("loading store: %w", err)
	}
	for _, n := range nodes {
		g.AddNode(n)
	}
	for key, id := range syms {
		language, fqn, ok := splitSymbolKey(key)
		if ok {
			table.Insert(language, fqn, id)
		}
	}
	for _, e := range edges {
		g.AddEdge(e.Src, e.Dst, e.Kind, e.Offset)
	}
	coord.LoadPersisted(files)
	if len(nodes) > 0 {
		g.ComputeCentrality()
	}

	return &session{cfg: cfg, coord: coord, store: s, bus: bus}, nil
}

func (s *session) close() {
	s.store.Close()
}

// splitSymbolKey reverses the "language:qualifiedName" key format the
// Coordinator writes into a commit's Batch.Symbols map.
func splitSymbolKey(key string) (language, qualifiedName string, ok bool) {
	i := strings.IndexByte(key, ':')
	if i < 0 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}

// discoverFiles walks root looking for files whose extension the
// Language Registry recognizes, skipping anything the config excludes.
func discoverFiles(cfg *config.Config) ([]string, error) {
	exts := make(map[string]bool)
	for _, e := range coordinator.SupportedExtensions() {
		exts[e] = true
	}

	var files []string
	err := filepath.Walk(cfg.Project.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if isExcluded(cfg, path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !exts[filepath.Ext(path)] {
			return nil
		}
		if isExcluded(cfg, path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func isExcluded(cfg *config.Config, path string) bool {
	rel, err := filepath.Rel(cfg.Project.Root, path)
	if err != nil {
		rel = path
	}
	for _, pattern := range cfg.Index.Exclude {
		if ok, _ := doublestar.Match(pattern, filepath.ToSlash(rel)); ok {
			return true
		}
	}
	return false
}

func indexCommand(c *cli.Context) error {
	sess, err := openSession(c)
	if err != nil {
		return err
	}
	defer sess.close()

	files, err := discoverFiles(sess.cfg)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", sess.cfg.Project.Root, err)
	}

	start := time.Now()
	result, err := sess.coord.IndexFiles(c.Context, files)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Printf("indexed %d files in %s\n", len(files), time.Since(start).Round(time.Millisecond))
	fmt.Printf("  +%d nodes  -%d nodes\n", len(result.Added), len(result.Removed))
	if len(result.Diagnostics) > 0 {
		fmt.Printf("  %d diagnostics:\n", len(result.Diagnostics))
		for _, d := range result.Diagnostics {
			fmt.Printf("    %v\n", d)
		}
	}
	return nil
}

func watchCommand(c *cli.Context) error {
	sess, err := openSession(c)
	if err != nil {
		return err
	}
	defer sess.close()

	files, err := discoverFiles(sess.cfg)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", sess.cfg.Project.Root, err)
	}
	if _, err := sess.coord.IndexFiles(c.Context, files); err != nil {
		return fmt.Errorf("initial index: %w", err)
	}
	fmt.Printf("indexed %d files, watching %s for changes\n", len(files), sess.cfg.Project.Root)

	w, err := watch.New(
		sess.cfg.Project.Root,
		time.Duration(sess.cfg.Watch.DebounceMs)*time.Millisecond,
		sess.cfg.Index.Exclude,
		sess.cfg.Watch.ChannelSize,
	)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	watchErrCh := make(chan error, 1)
	go func() { watchErrCh <- w.Run(ctx) }()

	for {
		select {
		case sig := <-sigCh:
			fmt.Printf("received %v, shutting down\n", sig)
			cancel()
			return nil
		case err := <-watchErrCh:
			return err
		case <-w.RescanRequired():
			fmt.Println("watcher lost sync, falling back to full rescan")
			files, err := discoverFiles(sess.cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "rescan failed: %v\n", err)
				continue
			}
			if _, err := sess.coord.IndexFiles(ctx, files); err != nil {
				fmt.Fprintf(os.Stderr, "rescan index failed: %v\n", err)
			}
		case batch := <-w.Events():
			applyBatch(ctx, sess, batch)
		}
	}
}

func applyBatch(ctx context.Context, sess *session, batch []watch.Change) {
	for _, change := range batch {
		var (
			result coordinator.CommitResult
			err    error
		)
		switch change.Kind {
		case watch.Deleted:
			result, err = sess.coord.RemoveFile(ctx, change.Path)
		default:
			result, err = sess.coord.UpdateFile(ctx, change.Path)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "update %s: %v\n", change.Path, err)
			continue
		}
		if len(result.Added) > 0 || len(result.Removed) > 0 {
			fmt.Printf("%s: +%d -%d nodes\n", change.Path, len(result.Added), len(result.Removed))
		}
	}
}

func statusCommand(c *cli.Context) error {
	sess, err := openSession(c)
	if err != nil {
		return err
	}
	defer sess.close()

	api := queryapi.New(sess.coord.Graph(), sess.bus, nil, nil)
	info, err := api.GraphInfo(c.Context)
	if err != nil {
		return fmt.Errorf("graph.info: %w", err)
	}

	fmt.Printf("store:     %s\n", sess.cfg.StorePath())
	fmt.Printf("nodes:     %d\n", info.NodeCount)
	fmt.Printf("edges:     %d\n", info.EdgeCount)
	return nil
}
