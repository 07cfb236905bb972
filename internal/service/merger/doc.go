// Package merger discovers package manifests in a release directory, merges
// them into the repository catalog and packages every merged entry.
//
// A package that fails to parse or to archive never reaches the catalog in
// its new form; any entry it had before is left untouched. Entries of packages
// that vanished from disk are only removed in prune mode.
package merger
