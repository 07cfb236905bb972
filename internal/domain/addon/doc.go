// Package addon holds the domain model of an addon repository: the per-package
// manifest, the merged repository catalog and the archive naming rules.
package addon
