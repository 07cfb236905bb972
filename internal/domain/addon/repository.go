package addon

import (
	"slices"
	"strings"
)

// Repository is the catalog of packages, unique by ID.
// It is not safe for concurrent use.
type Repository struct {
	entries []*Package
}

// NewRepository builds a catalog from pkgs; later duplicates replace earlier ones.
func NewRepository(pkgs ...*Package) *Repository {
	r := &Repository{entries: make([]*Package, 0, len(pkgs))}
	for _, p := range pkgs {
		r.Upsert(p)
	}

	return r
}

// Upsert replaces the entry with the same ID at its position or appends pkg.
// It reports whether an entry was replaced.
func (r *Repository) Upsert(pkg *Package) bool {
	if i := r.indexOf(pkg.ID); i >= 0 {
		r.entries[i] = pkg
		return true
	}

	r.entries = append(r.entries, pkg)

	return false
}

// Get returns the entry with the given ID.
func (r *Repository) Get(id string) (*Package, bool) {
	if i := r.indexOf(id); i >= 0 {
		return r.entries[i], true
	}

	return nil, false
}

// Remove deletes the entry with the given ID and reports whether it existed.
func (r *Repository) Remove(id string) bool {
	i := r.indexOf(id)
	if i < 0 {
		return false
	}

	r.entries = slices.Delete(r.entries, i, i+1)

	return true
}

// Sort orders entries lexicographically by ID.
func (r *Repository) Sort() {
	slices.SortStableFunc(r.entries, func(a, b *Package) int {
		return strings.Compare(a.ID, b.ID)
	})
}

// Len returns the number of entries.
func (r *Repository) Len() int {
	return len(r.entries)
}

// Packages returns the entries in their current order.
func (r *Repository) Packages() []*Package {
	return slices.Clone(r.entries)
}

// IDs returns the entry IDs in their current order.
func (r *Repository) IDs() []string {
	ids := make([]string, len(r.entries))
	for i, p := range r.entries {
		ids[i] = p.ID
	}

	return ids
}

func (r *Repository) indexOf(id string) int {
	return slices.IndexFunc(r.entries, func(p *Package) bool {
		return p.ID == id
	})
}
