package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	cfg.Project.Root = "."
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsEmptyRoot(t *testing.T) {
	cfg := Default()
	cfg.Project.Root = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNegativeDebounce(t *testing.T) {
	cfg := Default()
	cfg.Project.Root = "."
	cfg.Watch.DebounceMs = -1
	assert.Error(t, cfg.Validate())
}

func TestMergeOverridesOnlyNonZero(t *testing.T) {
	base := Default()
	base.Index.RerankThreshold = 50
	override := &Config{Index: Index{MaxFileSize: 123}}
	merged := base.Merge(override)
	assert.Equal(t, int64(123), merged.Index.MaxFileSize)
	assert.Equal(t, 50, merged.Index.RerankThreshold)
}

func TestLoadKDLMissingFileReturnsNil(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadKDLParsesProjectAndIndex(t *testing.T) {
	dir := t.TempDir()
	contents := `project {
    name "demo"
}
index {
    max_file_size 2048
    follow_symlinks true
    exclude {
        "node_modules/**"
        "*.min.js"
    }
}
watch {
    debounce_ms 75
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codeprop.kdl"), []byte(contents), 0o644))

	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "demo", cfg.Project.Name)
	assert.Equal(t, int64(2048), cfg.Index.MaxFileSize)
	assert.True(t, cfg.Index.FollowSymlinks)
	assert.Equal(t, 75, cfg.Watch.DebounceMs)
	assert.ElementsMatch(t, []string{"node_modules/**", "*.min.js"}, cfg.Index.Exclude)
}

func TestLoadAppliesLayering(t *testing.T) {
	dir := t.TempDir()
	contents := `index {
    rerank_threshold 10
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codeprop.kdl"), []byte(contents), 0o644))

	cfg, err := Load(dir, &Config{Index: Index{RerankThreshold: 99}})
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.Index.RerankThreshold, "explicit override should win over file config")
	assert.Equal(t, dir, cfg.Project.Root)
}
