// Package archive builds the per-version zip of a package.
//
// Archives are keyed by (id, version): once <output>/<id>/<id>-<version>.zip
// exists it is never rewritten, so publishing changed content needs a version
// bump. Members are rooted at "<id>/" so extracting an archive next to other
// addons recreates the package directory.
package archive
