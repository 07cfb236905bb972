// Package manifest reads per-package addon.xml files and persists the merged
// addons.xml catalog.
//
// The inner XML of every <addon> element is carried verbatim from the package
// manifest into the catalog, so metadata the generator does not understand is
// published unchanged.
package manifest
