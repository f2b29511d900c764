package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/lee-tech/locations/internal/models"
)

// LocationRepository handles all reads against the location store on behalf
// of the filter resolver.
type LocationRepository struct {
	db       *gorm.DB
	registry *ResourceRegistry
}

// NewLocationRepository constructs a new repository instance.
func NewLocationRepository(db *gorm.DB, registry *ResourceRegistry) *LocationRepository {
	if registry == nil {
		registry = DefaultResourceRegistry()
	}
	return &LocationRepository{db: db, registry: registry}
}

// Registry exposes the resource registry backing candidate queries.
func (r *LocationRepository) Registry() *ResourceRegistry {
	return r.registry
}

// ResolveNames fetches the name rows for one walk round: locations whose ID
// is in the frontier and whose level is within the requested levels (when
// restrict is set) or any non-null level otherwise.
func (r *LocationRepository) ResolveNames(ids []uint64, levels []string, restrict bool) ([]*models.LocationRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := r.db.Model(&models.Location{}).Where("id IN ?", ids)
	if restrict && len(levels) > 0 {
		query = query.Where("level IN ?", levels)
	} else {
		query = query.Where("level IS NOT NULL")
	}

	var locations []*models.Location
	if err := query.Order("id ASC").Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("resolve location names: %w", err)
	}

	rows := make([]*models.LocationRow, 0, len(locations))
	for _, loc := range locations {
		rows = append(rows, locationRow(loc, levels))
	}
	return rows, nil
}

// DistinctParents collects the distinct non-null parent identifiers of the
// given locations; this is the next walk frontier.
func (r *LocationRepository) DistinctParents(ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var parents []uint64
	err := r.db.Model(&models.Location{}).
		Where("id IN ?", ids).
		Where("parent_id IS NOT NULL").
		Distinct("parent_id").
		Order("parent_id ASC").
		Pluck("parent_id", &parents).Error
	if err != nil {
		return nil, fmt.Errorf("resolve location parents: %w", err)
	}
	return parents, nil
}

// CandidateIDs resolves the distinct leaf location identifiers referenced by
// a resource field. The two candidate constraints (reference non-null,
// referenced location not retired) are acquired as scoped filters and
// released on every exit path.
func (r *LocationRepository) CandidateIDs(resource, field string) ([]uint64, error) {
	res, rf, err := r.registry.Resolve(resource, field)
	if err != nil {
		return nil, err
	}

	refColumn := fmt.Sprintf("%s.%s", res.Table, rf.Column)
	release := res.AddFilters(
		func(tx *gorm.DB) *gorm.DB {
			return tx.Where(fmt.Sprintf("%s IS NOT NULL", refColumn))
		},
		func(tx *gorm.DB) *gorm.DB {
			return tx.Where("locations.end_date IS NULL")
		},
	)
	defer release()

	query := r.db.Table(res.Table).
		Joins(fmt.Sprintf("JOIN locations ON locations.id = %s", refColumn)).
		Where(fmt.Sprintf("%s.deleted_at IS NULL", res.Table)).
		Where("locations.deleted_at IS NULL").
		Scopes(res.Scopes()...)

	var ids []uint64
	if err := query.Distinct(refColumn).Order(refColumn + " ASC").Pluck(refColumn, &ids).Error; err != nil {
		return nil, fmt.Errorf("resolve candidates for %s.%s: %w", resource, field, err)
	}
	return ids, nil
}

// SelectedRows looks up live, non-retired locations by name at one level.
// Used when selected-value validation is enabled.
func (r *LocationRepository) SelectedRows(level string, names []string, levels []string) ([]*models.LocationRow, error) {
	if level == "" || len(names) == 0 {
		return nil, nil
	}

	var locations []*models.Location
	err := r.db.Model(&models.Location{}).
		Where("level = ?", level).
		Where("name IN ?", names).
		Where("end_date IS NULL").
		Order("id ASC").
		Find(&locations).Error
	if err != nil {
		return nil, fmt.Errorf("resolve selected values at %s: %w", level, err)
	}

	rows := make([]*models.LocationRow, 0, len(locations))
	for _, loc := range locations {
		rows = append(rows, locationRow(loc, levels))
	}
	return rows, nil
}

// LocalNames performs the batched localized-name lookup: canonical name to
// localization for the given language. Names without a localization are
// simply absent from the result.
func (r *LocationRepository) LocalNames(names []string, language string) (map[string]string, error) {
	if len(names) == 0 || language == "" {
		return map[string]string{}, nil
	}

	type pair struct {
		Name     string
		NameL10n string
	}
	var pairs []pair
	err := r.db.Model(&models.LocationName{}).
		Joins("JOIN locations ON locations.id = location_names.location_id").
		Where("locations.deleted_at IS NULL").
		Where("location_names.language = ?", language).
		Where("locations.name IN ?", names).
		Select("locations.name AS name, location_names.name_l10n AS name_l10n").
		Scan(&pairs).Error
	if err != nil {
		return nil, fmt.Errorf("resolve localized names: %w", err)
	}

	local := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.NameL10n != "" {
			local[p.Name] = p.NameL10n
		}
	}
	return local, nil
}

// locationRow projects a stored location onto a walk accumulator row,
// keeping only the requested level names.
func locationRow(loc *models.Location, levels []string) *models.LocationRow {
	row := &models.LocationRow{
		ID:       loc.ID,
		ParentID: loc.ParentID,
		Names:    make(map[string]string, len(levels)),
	}
	if loc.Level != nil {
		row.Level = *loc.Level
	}
	for _, tag := range levels {
		if name := loc.LevelName(tag); name != "" {
			row.Names[tag] = name
		}
	}
	return row
}
