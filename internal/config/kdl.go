package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL reads .codeprop.kdl from projectRoot and returns an override
// Config to be merged over the defaults. Returns (nil, nil) if no file
// is present, matching the teacher's LoadKDL "no KDL config found, use
// defaults" behavior.
func LoadKDL(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, ".codeprop.kdl")
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg := &Config{}
	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "root":
					if s, ok := firstStringArg(cn); ok {
						cfg.Project.Root = s
					}
				case "name":
					if s, ok := firstStringArg(cn); ok {
						cfg.Project.Name = s
					}
				}
			}
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_file_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.MaxFileSize = int64(v)
					}
				case "follow_symlinks":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.FollowSymlinks = b
					}
				case "include":
					cfg.Index.Include = collectStringArgs(cn)
				case "exclude":
					cfg.Index.Exclude = collectStringArgs(cn)
				case "parallel_workers":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.ParallelWorkers = v
					}
				case "rerank_threshold":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.RerankThreshold = v
					}
				case "rerank_max_age_secs":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.RerankMaxAgeSecs = v
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.Enabled = b
					}
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.DebounceMs = v
					}
				case "channel_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.ChannelSize = v
					}
				}
			}
		case "resolve":
			for _, cn := range n.Children {
				if nodeName(cn) == "prune_references" {
					if b, ok := firstBoolArg(cn); ok {
						cfg.Resolve.PruneWeakerDuplicates = b
					}
				}
			}
		case "store":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "dir":
					if s, ok := firstStringArg(cn); ok {
						cfg.Store.Dir = s
					}
				case "file_name":
					if s, ok := firstStringArg(cn); ok {
						cfg.Store.FileName = s
					}
				}
			}
		case "broadcast":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "headless":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Broadcast.Headless = b
					}
				case "subscriber_depth":
					if v, ok := firstIntArg(cn); ok {
						cfg.Broadcast.SubscriberDepth = v
					}
				}
			}
		}
	}
	return cfg, nil
}

// Load assembles the layered config: defaults, then .codeprop.kdl if
// present, then the caller-supplied override (may be nil).
func Load(projectRoot string, override *Config) (*Config, error) {
	cfg := Default()
	cfg.Project.Root = projectRoot

	fileCfg, err := LoadKDL(projectRoot)
	if err != nil {
		return nil, err
	}
	if fileCfg != nil {
		cfg = cfg.Merge(fileCfg)
	}
	if override != nil {
		cfg = cfg.Merge(override)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
