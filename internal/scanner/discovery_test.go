package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-sec/warden/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscoverQuickSkipsOversized(t *testing.T) {
	root := t.TempDir()
	plugins := filepath.Join(root, "wp-content", "plugins")

	writeFile(t, filepath.Join(plugins, "a.php"), "<?php ?>")
	writeFile(t, filepath.Join(plugins, "b.php"), "<?php ?>")
	writeFile(t, filepath.Join(plugins, "c.js"), "var x;")
	// One file above the 2 MB ceiling.
	writeFile(t, filepath.Join(plugins, "big.php"), strings.Repeat("x", maxFileSize+1))

	refs, err := NewDiscovery(root).Discover(models.ScanTypeQuick, nil)
	require.NoError(t, err)
	assert.Len(t, refs, 3)
}

func TestDiscoverFiltersExtensions(t *testing.T) {
	root := t.TempDir()
	plugins := filepath.Join(root, "wp-content", "plugins")

	writeFile(t, filepath.Join(plugins, "code.php"), "<?php ?>")
	writeFile(t, filepath.Join(plugins, "readme.txt"), "readme")
	writeFile(t, filepath.Join(plugins, "image.png"), "png")

	refs, err := NewDiscovery(root).Discover(models.ScanTypeQuick, nil)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, filepath.Join("wp-content", "plugins", "code.php"), refs[0].RelativePath)
}

func TestDiscoverRelativePaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.php"), "<?php ?>")

	refs, err := NewDiscovery(root).Discover(models.ScanTypeFull, nil)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "index.php", refs[0].RelativePath)
	assert.Equal(t, filepath.Join(root, "index.php"), refs[0].Path)
	assert.Positive(t, refs[0].Size)
	assert.False(t, refs[0].ModTime.IsZero())
}

func TestDiscoverCustomRequiresPaths(t *testing.T) {
	_, err := NewDiscovery(t.TempDir()).Discover(models.ScanTypeCustom, nil)
	require.Error(t, err)
}

func TestDiscoverCustomPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "uploads", "shell.php"), "<?php ?>")
	writeFile(t, filepath.Join(root, "other", "clean.php"), "<?php ?>")

	refs, err := NewDiscovery(root).Discover(models.ScanTypeCustom, []string{"uploads"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, filepath.Join("uploads", "shell.php"), refs[0].RelativePath)
}

func TestDiscoverUnknownType(t *testing.T) {
	_, err := NewDiscovery(t.TempDir()).Discover(models.ScanType("bogus"), nil)
	require.Error(t, err)
}

func TestDiscoverMissingDirNotFatal(t *testing.T) {
	// Root exists but contains none of the quick-profile directories.
	refs, err := NewDiscovery(t.TempDir()).Discover(models.ScanTypeQuick, nil)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestDiscoverStopsAtFileCap(t *testing.T) {
	root := t.TempDir()
	themes := filepath.Join(root, "wp-content", "themes")
	for i := 0; i < 30; i++ {
		writeFile(t, filepath.Join(themes, string(rune('a'+i%26))+string(rune('a'+i/26))+".php"), "<?php ?>")
	}

	orig := profiles[models.ScanTypeThemes]
	profiles[models.ScanTypeThemes] = profile{dirs: orig.dirs, maxFiles: 10}
	defer func() { profiles[models.ScanTypeThemes] = orig }()

	refs, err := NewDiscovery(root).Discover(models.ScanTypeThemes, nil)
	require.NoError(t, err)
	assert.Len(t, refs, 10)
}
