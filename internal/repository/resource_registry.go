package repository

import (
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/lee-tech/locations/internal/constants"
)

var (
	// ErrUnknownResource signals a candidate query against a resource the
	// registry does not know.
	ErrUnknownResource = errors.New("unknown resource")
	// ErrInvalidSelector signals that the requested field does not resolve
	// to a location reference. This is a configuration defect, not a
	// runtime condition.
	ErrInvalidSelector = errors.New("selector is not a location reference")
)

// ResourceField describes one reference field of a registered resource.
type ResourceField struct {
	Column     string
	References string
}

type filterEntry struct {
	scope func(tx *gorm.DB) *gorm.DB
}

// Resource is a query-capable table whose rows may reference locations.
// Filters appended for one candidate resolution are scoped: AddFilters
// returns a release that must run on every exit path, so shared query state
// is never left mutated.
type Resource struct {
	Name  string
	Table string

	fields map[string]ResourceField

	mu      sync.Mutex
	filters []*filterEntry
}

// NewResource constructs a resource with its reference fields.
func NewResource(name, table string, fields map[string]ResourceField) *Resource {
	return &Resource{Name: name, Table: table, fields: fields}
}

// Field looks up a reference field by name.
func (r *Resource) Field(name string) (ResourceField, bool) {
	f, ok := r.fields[name]
	return f, ok
}

// AddFilters appends query scopes and returns a release func that removes
// exactly those scopes again, regardless of what else was added meanwhile.
func (r *Resource) AddFilters(scopes ...func(tx *gorm.DB) *gorm.DB) func() {
	entries := make([]*filterEntry, len(scopes))
	r.mu.Lock()
	for i, scope := range scopes {
		entries[i] = &filterEntry{scope: scope}
		r.filters = append(r.filters, entries[i])
	}
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		kept := r.filters[:0]
		for _, existing := range r.filters {
			removed := false
			for _, added := range entries {
				if existing == added {
					removed = true
					break
				}
			}
			if !removed {
				kept = append(kept, existing)
			}
		}
		r.filters = kept
	}
}

// Scopes snapshots the currently acquired filter scopes.
func (r *Resource) Scopes() []func(tx *gorm.DB) *gorm.DB {
	r.mu.Lock()
	defer r.mu.Unlock()
	scopes := make([]func(tx *gorm.DB) *gorm.DB, len(r.filters))
	for i, entry := range r.filters {
		scopes[i] = entry.scope
	}
	return scopes
}

// FilterCount returns the number of currently acquired filters.
func (r *Resource) FilterCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.filters)
}

// ResourceRegistry maps resource names to their registered table metadata.
type ResourceRegistry struct {
	mu        sync.RWMutex
	resources map[string]*Resource
}

// NewResourceRegistry returns an empty registry.
func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{resources: make(map[string]*Resource)}
}

// Register adds or replaces a resource.
func (reg *ResourceRegistry) Register(res *Resource) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.resources[res.Name] = res
}

// Resolve returns the resource and reference field for a selector, failing
// fast when the resource is unknown or the field is not a location
// reference.
func (reg *ResourceRegistry) Resolve(resource, field string) (*Resource, ResourceField, error) {
	reg.mu.RLock()
	res, ok := reg.resources[resource]
	reg.mu.RUnlock()
	if !ok {
		return nil, ResourceField{}, fmt.Errorf("%w: %q", ErrUnknownResource, resource)
	}
	rf, ok := res.Field(field)
	if !ok || rf.References != constants.LocationsTable {
		return nil, ResourceField{}, fmt.Errorf("%w: %s.%s", ErrInvalidSelector, resource, field)
	}
	return res, rf, nil
}

// DefaultResourceRegistry registers the resources the portal exposes to
// location filtering.
func DefaultResourceRegistry() *ResourceRegistry {
	reg := NewResourceRegistry()
	reg.Register(NewResource("asset", "assets", map[string]ResourceField{
		"location_id": {Column: "location_id", References: constants.LocationsTable},
	}))
	return reg
}
