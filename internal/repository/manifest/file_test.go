package manifest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/repo-generator/internal/domain/addon"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for a missing catalog.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), CatalogFilename))
	got, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, got)
}

// TestFileRepository_SaveLoad ensures Save followed by Load returns the same catalog.
func TestFileRepository_SaveLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "generated", CatalogFilename)
	store := NewFileRepository(path)
	require.Equal(t, path, store.Path())

	pkg, err := ParsePackage(strings.NewReader(exampleManifest))
	require.NoError(t, err)

	want := addon.NewRepository(pkg)
	require.NoError(t, store.Save(context.Background(), want))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.IDs(), got.IDs())

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, Encode(want), onDisk)
}

// TestReadPackage_Missing reports os.ErrNotExist for an absent manifest.
func TestReadPackage_Missing(t *testing.T) {
	t.Parallel()

	_, err := ReadPackage(filepath.Join(t.TempDir(), "addon.xml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
