// Package store is the Store of spec.md §4.7: durable, atomic,
// key-value-backed persistence of graph state. The teacher carries no
// durable graph store of its own, so this package is grounded instead
// on termfx-morfx's db/sqlite.go (gorm.Open + AutoMigrate, a debug-mode
// logger toggle), adapted from that repo's conversation-history schema
// to the five logical keyspaces spec.md §4.7 names: node/<id>,
// edge/<src>/<kind>/<dst>, file/<path>, sym/<fqn>, meta/*.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/standardbeagle/codeprop/internal/cperrors"
	"github.com/standardbeagle/codeprop/internal/cpg"
	"github.com/standardbeagle/codeprop/internal/ids"
	"github.com/standardbeagle/codeprop/internal/logging"
)

// SchemaVersion is bumped whenever the on-disk encoding of a keyspace
// changes incompatibly. Open does not compare it against the stored
// version; CheckSchemaVersion makes that comparison, and nothing in this
// module calls it or reindexes on a mismatch.
const SchemaVersion = 1

// kvEntry is the single physical table backing every node/<id>,
// edge/<...>, and sym/<fqn> logical key, per spec.md §4.7.
type kvEntry struct {
	Key   string `gorm:"primaryKey"`
	Value []byte
}

func (kvEntry) TableName() string { return "kv_entries" }

// fileRecordRow is the relational side-table for file/<path>, kept
// separate from kv_entries so FileRecord's node-id list and content
// hash are queryable without deserializing every row, per spec.md
// §4.7's "authoritative set of nodes a file owns".
type fileRecordRow struct {
	Path          string `gorm:"primaryKey"`
	ContentHash   []byte
	Language      string
	NodeIDs       []byte // JSON-encoded []ids.NodeID
	LastIndexedAt int64
}

func (fileRecordRow) TableName() string { return "file_records" }

// schemaMetaRow backs meta/schema_version and meta/last_commit.
type schemaMetaRow struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

func (schemaMetaRow) TableName() string { return "schema_meta" }

// Store wraps a gorm-backed SQLite database implementing the Store
// component's durable keyspaces.
type Store struct {
	db  *gorm.DB
	log *slog.Logger
}

// Open opens (creating if absent) the SQLite database at path and runs
// AutoMigrate for all three physical tables.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, cperrors.NewIOError(path, err)
	}
	if err := db.AutoMigrate(&kvEntry{}, &fileRecordRow{}, &schemaMetaRow{}); err != nil {
		return nil, cperrors.NewIOError(path, err)
	}
	log := logging.Default().With("component", "store", "path", path)
	log.Info("opened")
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CheckSchemaVersion compares the persisted schema version against
// SchemaVersion, returning ok=false when a mismatch requires a full
// reindex (no online migration, per spec.md §4.7). A fresh database
// (no stored version) is treated as matching — Commit will stamp the
// current version on first write.
func (s *Store) CheckSchemaVersion() (ok bool, err error) {
	var row schemaMetaRow
	res := s.db.First(&row, "key = ?", "schema_version")
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return true, nil
		}
		return false, res.Error
	}
	return row.Value == fmt.Sprintf("%d", SchemaVersion), nil
}

// Batch is a set of puts and deletes applied atomically by Commit, the
// coordinator's assembled diff from one reindex pass.
type Batch struct {
	Nodes        []cpg.CodeNode
	DeletedNodes []ids.NodeID
	Edges        []cpg.Edge
	DeletedEdges []cpg.Edge
	Files        []cpg.FileRecord
	DeletedFiles []string
	Symbols      map[string]ids.NodeID // fqn (already language-namespaced) -> id
	DeletedSyms  []string
	LastCommit   int64
}

// Commit applies batch as one gorm transaction: every put/delete in
// the batch either all lands or none does, per spec.md §4.7's
// "atomic... single write batch".
func (s *Store) Commit(ctx context.Context, batch Batch) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, n := range batch.Nodes {
			if err := putJSON(tx, nodeKey(n.ID), n); err != nil {
				return err
			}
		}
		for _, id := range batch.DeletedNodes {
			if err := tx.Delete(&kvEntry{}, "key = ?", nodeKey(id)).Error; err != nil {
				return err
			}
		}
		for _, e := range batch.Edges {
			if err := putJSON(tx, edgeKey(e), e); err != nil {
				return err
			}
		}
		for _, e := range batch.DeletedEdges {
			if err := tx.Delete(&kvEntry{}, "key = ?", edgeKey(e)).Error; err != nil {
				return err
			}
		}
		for fqn, id := range batch.Symbols {
			if err := putJSON(tx, symKey(fqn), id); err != nil {
				return err
			}
		}
		for _, fqn := range batch.DeletedSyms {
			if err := tx.Delete(&kvEntry{}, "key = ?", symKey(fqn)).Error; err != nil {
				return err
			}
		}
		for _, f := range batch.Files {
			row, err := toFileRecordRow(f)
			if err != nil {
				return err
			}
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		for _, path := range batch.DeletedFiles {
			if err := tx.Delete(&fileRecordRow{}, "path = ?", path).Error; err != nil {
				return err
			}
		}

		if err := tx.Save(&schemaMetaRow{Key: "schema_version", Value: fmt.Sprintf("%d", SchemaVersion)}).Error; err != nil {
			return err
		}
		if batch.LastCommit != 0 {
			if err := tx.Save(&schemaMetaRow{Key: "last_commit", Value: fmt.Sprintf("%d", batch.LastCommit)}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("commit failed", "error", err)
		return cperrors.NewCommitFailure(1, err)
	}
	return nil
}

// LoadAll restores the entire graph from the store in a single pass,
// per spec.md §4.7's "Load restores the entire graph at startup from
// these keyspaces in a single pass". Records that fail to deserialize
// are reported via onCorrupt and otherwise skipped, per the Store's
// "corruption... record is dropped; index continues" contract.
func (s *Store) LoadAll(onCorrupt func(error)) ([]cpg.CodeNode, []cpg.Edge, []cpg.FileRecord, map[string]ids.NodeID, error) {
	corrupted := 0
	report := func(err error) {
		corrupted++
		s.log.Warn("dropping corrupt record", "error", err)
		if onCorrupt != nil {
			onCorrupt(err)
		}
	}

	var entries []kvEntry
	if err := s.db.Find(&entries).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	var nodes []cpg.CodeNode
	var edges []cpg.Edge
	symbols := make(map[string]ids.NodeID)

	for _, e := range entries {
		switch {
		case hasPrefix(e.Key, "node/"):
			var n cpg.CodeNode
			if err := json.Unmarshal(e.Value, &n); err != nil {
				report(cperrors.NewStoreCorruption(e.Key, err))
				continue
			}
			nodes = append(nodes, n)
		case hasPrefix(e.Key, "edge/"):
			var edge cpg.Edge
			if err := json.Unmarshal(e.Value, &edge); err != nil {
				report(cperrors.NewStoreCorruption(e.Key, err))
				continue
			}
			edges = append(edges, edge)
		case hasPrefix(e.Key, "sym/"):
			var id ids.NodeID
			if err := json.Unmarshal(e.Value, &id); err != nil {
				report(cperrors.NewStoreCorruption(e.Key, err))
				continue
			}
			symbols[e.Key[len("sym/"):]] = id
		}
	}

	var rows []fileRecordRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, nil, nil, nil, err
	}
	files := make([]cpg.FileRecord, 0, len(rows))
	for _, row := range rows {
		fr, err := fromFileRecordRow(row)
		if err != nil {
			report(cperrors.NewStoreCorruption("file/"+row.Path, err))
			continue
		}
		files = append(files, fr)
	}

	s.log.Info("load complete", "nodes", len(nodes), "edges", len(edges), "files", len(files), "symbols", len(symbols), "corrupted", corrupted)
	return nodes, edges, files, symbols, nil
}

func putJSON(tx *gorm.DB, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Save(&kvEntry{Key: key, Value: b}).Error
}

func nodeKey(id ids.NodeID) string { return "node/" + id.String() }

func edgeKey(e cpg.Edge) string {
	return "edge/" + e.Src.String() + "/" + e.Kind.String() + "/" + e.Dst.String()
}

func symKey(fqn string) string { return "sym/" + fqn }

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func toFileRecordRow(f cpg.FileRecord) (fileRecordRow, error) {
	idsJSON, err := json.Marshal(f.NodeIDs)
	if err != nil {
		return fileRecordRow{}, err
	}
	return fileRecordRow{
		Path:          f.Path,
		ContentHash:   f.ContentHash[:],
		Language:      f.Language,
		NodeIDs:       idsJSON,
		LastIndexedAt: f.LastIndexedAt,
	}, nil
}

func fromFileRecordRow(row fileRecordRow) (cpg.FileRecord, error) {
	var nodeIDs []ids.NodeID
	if err := json.Unmarshal(row.NodeIDs, &nodeIDs); err != nil {
		return cpg.FileRecord{}, err
	}
	var hash [32]byte
	copy(hash[:], row.ContentHash)
	return cpg.FileRecord{
		Path:          row.Path,
		ContentHash:   hash,
		Language:      row.Language,
		NodeIDs:       nodeIDs,
		LastIndexedAt: row.LastIndexedAt,
	}, nil
}
