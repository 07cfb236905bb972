package addon

import "path/filepath"

const (
	// ArchiveSuffix is the extension of every package archive.
	ArchiveSuffix = ".zip"

	// RepositoryPrefix marks the bootstrap package that installs the repository itself.
	RepositoryPrefix = "repository."
)

// Package is the manifest of one addon at one version.
type Package struct {
	// ID is the stable addon identifier, also its directory name.
	ID string
	// Version is compared by equality only.
	Version string
	// Element is the serialized <addon> element written into the repository catalog.
	Element []byte
	// Assets are the declared asset paths, relative to the package directory.
	Assets []string
}

// ArchiveName returns "<id>-<version>.zip".
func ArchiveName(id, version string) string {
	return id + "-" + version + ArchiveSuffix
}

// ArchivePath returns "<outputDir>/<id>/<id>-<version>.zip".
func ArchivePath(outputDir, id, version string) string {
	return filepath.Join(outputDir, id, ArchiveName(id, version))
}
