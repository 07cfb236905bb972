package generator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCleanCompiled removes bytecode files and cache directories only.
func TestCleanCompiled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	files := []string{
		"plugin.a/default.py",
		"plugin.a/default.pyc",
		"plugin.a/lib/util.PYO",
		"plugin.a/lib/__pycache__/util.cpython-311.pyc",
		"plugin.a/lib/__pycache__/nested/x.txt",
		"plugin.a/resources/python.txt",
	}

	for _, name := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	removed, err := cleanCompiled(root)
	require.NoError(t, err)
	require.Equal(t, 3, removed)

	for _, kept := range []string{"plugin.a/default.py", "plugin.a/resources/python.txt"} {
		_, err = os.Stat(filepath.Join(root, filepath.FromSlash(kept)))
		require.NoError(t, err, kept)
	}

	for _, gone := range []string{"plugin.a/default.pyc", "plugin.a/lib/util.PYO", "plugin.a/lib/__pycache__"} {
		_, err = os.Stat(filepath.Join(root, filepath.FromSlash(gone)))
		require.ErrorIs(t, err, os.ErrNotExist, gone)
	}
}
