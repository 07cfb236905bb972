package archive

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/repo-generator/internal/ignore"
)

// writeTree creates files (slash paths) with their names as content.
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()

	for _, name := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	}
}

// readArchive returns member name -> content.
func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()

	r, err := zip.OpenReader(path)
	require.NoError(t, err)

	defer func() {
		_ = r.Close()
	}()

	members := make(map[string]string, len(r.File))

	for _, f := range r.File {
		require.Equal(t, zip.Deflate, f.Method)

		rc, err := f.Open()
		require.NoError(t, err)

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		members[f.Name] = string(data)
	}

	return members
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}

// TestArchive_FiltersAndRootsMembers archives a package and checks member names and filtering.
func TestArchive_FiltersAndRootsMembers(t *testing.T) {
	t.Parallel()

	release := t.TempDir()
	out := t.TempDir()
	pkgDir := filepath.Join(release, "plugin.example")

	writeTree(t, pkgDir,
		"addon.xml",
		"icon.png",
		"resources/lib/main.py",
		"resources/lib/main.pyc",
		".gitignore",
		".git/HEAD",
		"venv/bin/python",
		".DS_Store",
	)

	path, created, err := New(out, ignore.New()).Archive(context.Background(), pkgDir, "plugin.example", "1.0.0")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, filepath.Join(out, "plugin.example", "plugin.example-1.0.0.zip"), path)

	members := readArchive(t, path)
	require.Equal(t, []string{
		"plugin.example/addon.xml",
		"plugin.example/icon.png",
		"plugin.example/resources/lib/main.py",
	}, keys(members))
	require.Equal(t, "resources/lib/main.py", members["plugin.example/resources/lib/main.py"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file left behind")
}

// TestArchive_ExistingIsNotRebuilt verifies idempotence keyed by version.
func TestArchive_ExistingIsNotRebuilt(t *testing.T) {
	t.Parallel()

	release := t.TempDir()
	out := t.TempDir()
	pkgDir := filepath.Join(release, "plugin.example")
	writeTree(t, pkgDir, "addon.xml")

	archiver := New(out, ignore.New())

	path, created, err := archiver.Archive(context.Background(), pkgDir, "plugin.example", "1.0.0")
	require.NoError(t, err)
	require.True(t, created)

	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, past, past))

	writeTree(t, pkgDir, "new.py")

	again, created, err := archiver.Archive(context.Background(), pkgDir, "plugin.example", "1.0.0")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, path, again)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.True(t, info.ModTime().Equal(past))
	require.NotContains(t, readArchive(t, path), "plugin.example/new.py")

	bumped, created, err := archiver.Archive(context.Background(), pkgDir, "plugin.example", "1.0.1")
	require.NoError(t, err)
	require.True(t, created)
	require.Contains(t, readArchive(t, bumped), "plugin.example/new.py")
}

// TestArchive_MissingPackageLeavesNothing ensures failures do not create an archive.
func TestArchive_MissingPackageLeavesNothing(t *testing.T) {
	t.Parallel()

	out := t.TempDir()

	_, created, err := New(out, ignore.New()).
		Archive(context.Background(), filepath.Join(t.TempDir(), "absent"), "plugin.absent", "1")
	require.Error(t, err)
	require.False(t, created)

	_, err = os.Stat(filepath.Join(out, "plugin.absent", "plugin.absent-1.zip"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestArchive_CanceledContext removes the partial archive.
func TestArchive_CanceledContext(t *testing.T) {
	t.Parallel()

	release := t.TempDir()
	out := t.TempDir()
	pkgDir := filepath.Join(release, "plugin.example")
	writeTree(t, pkgDir, "addon.xml", "default.py")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := New(out, ignore.New()).Archive(ctx, pkgDir, "plugin.example", "1")
	require.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(filepath.Join(out, "plugin.example"))
	require.NoError(t, err)
	require.Empty(t, entries)
}

// TestArchive_SymlinkedPackageDir archives the contents of a package reached through a link.
func TestArchive_SymlinkedPackageDir(t *testing.T) {
	t.Parallel()

	release := t.TempDir()
	out := t.TempDir()
	target := filepath.Join(t.TempDir(), "plugin.link")
	writeTree(t, target, "addon.xml", "default.py")

	link := filepath.Join(release, "plugin.link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	path, created, err := New(out, ignore.New()).Archive(context.Background(), link, "plugin.link", "1")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, []string{
		"plugin.link/addon.xml",
		"plugin.link/default.py",
	}, keys(readArchive(t, path)))
}

// TestArchive_SameTreeSameBytes ignores source modification times.
func TestArchive_SameTreeSameBytes(t *testing.T) {
	t.Parallel()

	build := func(stamp time.Time) []byte {
		pkgDir := filepath.Join(t.TempDir(), "plugin.example")
		writeTree(t, pkgDir, "addon.xml", "resources/lib/main.py")

		for _, name := range []string{"addon.xml", "resources/lib/main.py"} {
			require.NoError(t, os.Chtimes(filepath.Join(pkgDir, filepath.FromSlash(name)), stamp, stamp))
		}

		path, _, err := New(t.TempDir(), ignore.New()).Archive(context.Background(), pkgDir, "plugin.example", "1")
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		return data
	}

	first := build(time.Date(2020, time.March, 1, 10, 0, 0, 0, time.UTC))
	second := build(time.Date(2024, time.July, 9, 18, 30, 0, 0, time.UTC))
	require.Equal(t, first, second)
}
