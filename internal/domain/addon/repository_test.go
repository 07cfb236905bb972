package addon

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRepository_UpsertKeepsPosition verifies replacement happens in place and appends go last.
func TestRepository_UpsertKeepsPosition(t *testing.T) {
	t.Parallel()

	r := NewRepository(
		&Package{ID: "plugin.b", Version: "1"},
		&Package{ID: "plugin.a", Version: "1"},
	)

	require.True(t, r.Upsert(&Package{ID: "plugin.b", Version: "2"}))
	require.False(t, r.Upsert(&Package{ID: "plugin.c", Version: "1"}))
	require.Equal(t, []string{"plugin.b", "plugin.a", "plugin.c"}, r.IDs())

	got, ok := r.Get("plugin.b")
	require.True(t, ok)
	require.Equal(t, "2", got.Version)
}

// TestRepository_SortAndRemove checks ordering by ID and removal.
func TestRepository_SortAndRemove(t *testing.T) {
	t.Parallel()

	r := NewRepository(
		&Package{ID: "script.z"},
		&Package{ID: "plugin.a"},
		&Package{ID: "repository.me"},
		&Package{ID: "plugin.a"},
	)
	require.Equal(t, 3, r.Len())

	r.Sort()
	require.Equal(t, []string{"plugin.a", "repository.me", "script.z"}, r.IDs())

	require.True(t, r.Remove("repository.me"))
	require.False(t, r.Remove("repository.me"))
	require.Equal(t, []string{"plugin.a", "script.z"}, r.IDs())

	_, ok := r.Get("repository.me")
	require.False(t, ok)
}

// TestArchivePath checks the archive naming convention.
func TestArchivePath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "plugin.example-1.0.0.zip", ArchiveName("plugin.example", "1.0.0"))
	require.Equal(t,
		filepath.Join("out", "plugin.example", "plugin.example-1.0.0.zip"),
		ArchivePath("out", "plugin.example", "1.0.0"))
}
