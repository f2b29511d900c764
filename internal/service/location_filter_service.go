package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lee-tech/locations/internal/constants"
	"github.com/lee-tech/locations/internal/models"
)

var (
	// ErrIncompleteSelector signals a candidate query with only one half of
	// the resource/field pair.
	ErrIncompleteSelector = errors.New("candidate query requires both resource and field")
	// ErrHierarchyCycle signals that the ancestor walk exceeded the
	// configured hierarchy depth, which indicates a malformed parent graph.
	ErrHierarchyCycle = errors.New("ancestor walk exceeded configured hierarchy depth")
)

// LocationStore is the read-only view of the location store the resolver
// needs: one round of name resolution, one round of parent discovery,
// candidate and selected-value queries, and the batched localization lookup.
type LocationStore interface {
	ResolveNames(ids []uint64, levels []string, restrict bool) ([]*models.LocationRow, error)
	DistinctParents(ids []uint64) ([]uint64, error)
	CandidateIDs(resource, field string) ([]uint64, error)
	SelectedRows(level string, names []string, levels []string) ([]*models.LocationRow, error)
	LocalNames(names []string, language string) (map[string]string, error)
}

// Settings carries the deployment configuration the resolver depends on.
type Settings struct {
	// HierarchyLabels maps level tags to display labels.
	HierarchyLabels map[string]string
	// RelevantLevels is the root-to-leaf level order used when a request
	// does not name explicit levels. Nil means the built-in tags; an empty
	// non-nil slice means no levels are configured and resolution yields
	// the no-options sentinel.
	RelevantLevels []string
	// BaseLanguage disables translation when it matches the request
	// language; canonical names are already in this language.
	BaseLanguage string
	// MaxDepth bounds the ancestor walk; it is the number of hierarchy
	// levels the deployment configures.
	MaxDepth int
	// ValidateSelected checks reconciled values against the store before
	// surfacing them as options.
	ValidateSelected bool
}

// LocationFilterService resolves the per-level option sets and hierarchy
// tree for the location filter. Each call operates on fresh state; callers
// may invoke it concurrently.
type LocationFilterService struct {
	store            LocationStore
	walker           *ancestorWalker
	labels           map[string]string
	relevant         []string
	baseLanguage     string
	maxRounds        int
	validateSelected bool
	logger           *zap.Logger
}

// NewLocationFilterService constructs the service.
func NewLocationFilterService(store LocationStore, settings Settings, logger *zap.Logger) *LocationFilterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	labels := settings.HierarchyLabels
	if len(labels) == 0 {
		labels = constants.DefaultHierarchyLabels
	}
	relevant := settings.RelevantLevels
	if relevant == nil {
		relevant = constants.LevelTags
	}
	baseLanguage := settings.BaseLanguage
	if baseLanguage == "" {
		baseLanguage = "en"
	}
	maxDepth := settings.MaxDepth
	if maxDepth <= 0 {
		maxDepth = len(constants.LevelTags)
	}
	return &LocationFilterService{
		store:            store,
		walker:           newAncestorWalker(store, logger),
		labels:           labels,
		relevant:         relevant,
		baseLanguage:     baseLanguage,
		maxRounds:        maxDepth + 1,
		validateSelected: settings.ValidateSelected,
		logger:           logger,
	}
}

// ResolveOptions runs one full resolution: level schema, candidate set,
// ancestor walk, selected-value reconciliation, aggregation, and sorting.
func (s *LocationFilterService) ResolveOptions(req *models.FilterRequest) (*models.FilterResult, error) {
	if req == nil {
		req = &models.FilterRequest{}
	}

	translate := s.translationActive(req)
	schema := s.levelSchema(req.Levels, translate)
	if schema.Empty() {
		return noOptionsResult(schema), nil
	}

	ids, err := s.candidateIDs(req)
	if err != nil {
		return nil, err
	}

	rows, err := s.walker.walk(ids, schema.Tags(), translate, s.maxRounds)
	if err != nil {
		return nil, err
	}

	rows, err = s.addSelected(rows, req.Selected, schema)
	if err != nil {
		return nil, err
	}

	return s.aggregate(rows, schema, translate, req.Language, req.InjectHierarchy)
}

// translationActive decides whether localized display names apply: the
// request must ask for them and name a language other than the base one.
func (s *LocationFilterService) translationActive(req *models.FilterRequest) bool {
	if !req.Translate || req.Language == "" {
		return false
	}
	return !strings.EqualFold(req.Language, s.baseLanguage)
}

// levelSchema builds the ordered level schema for this resolution. Explicit
// tags keep their given order; otherwise the deployment's relevant levels
// apply. Labels fall back to the tag itself.
func (s *LocationFilterService) levelSchema(tags []string, translate bool) *models.LevelSchema {
	if len(tags) == 0 {
		tags = s.relevant
	}
	schema := models.NewLevelSchema()
	for _, tag := range tags {
		label := s.labels[tag]
		if label == "" {
			label = tag
		}
		schema.Append(tag, label, translate)
	}
	return schema
}

// candidateIDs produces the initial leaf identifier set: either the fixed
// list or the resource/field query with its scoped constraints.
func (s *LocationFilterService) candidateIDs(req *models.FilterRequest) ([]uint64, error) {
	switch {
	case len(req.FixedIDs) > 0:
		return dedupIDs(req.FixedIDs), nil
	case req.Resource != "" || req.Field != "":
		if req.Resource == "" || req.Field == "" {
			return nil, fmt.Errorf("%w: resource=%q field=%q", ErrIncompleteSelector, req.Resource, req.Field)
		}
		return s.store.CandidateIDs(req.Resource, req.Field)
	default:
		return nil, nil
	}
}

// addSelected guarantees round-trip correctness for previously selected
// values: any value at a level that no accumulated row already names gets a
// minimal synthesized row, so a saved filter chip is never silently dropped.
// With validation enabled, values are first checked against live rows at the
// claimed level; real matches merge as full rows, unknown names are still
// synthesized but logged.
func (s *LocationFilterService) addSelected(rows []*models.LocationRow, selected map[string][]string, schema *models.LevelSchema) ([]*models.LocationRow, error) {
	if len(selected) == 0 {
		return rows, nil
	}

	keys := make([]string, 0, len(selected))
	for key := range selected {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		level := selectedLevel(key)
		if level == "" {
			continue
		}
		if _, ok := schema.Level(level); !ok {
			continue
		}

		present := make(map[string]struct{})
		for _, row := range rows {
			if name := row.Name(level); name != "" {
				present[name] = struct{}{}
			}
		}

		var missing []string
		for _, value := range selected[key] {
			if value == "" {
				continue
			}
			if _, ok := present[value]; ok {
				continue
			}
			present[value] = struct{}{}
			missing = append(missing, value)
		}
		if len(missing) == 0 {
			continue
		}

		if s.validateSelected {
			validated, err := s.store.SelectedRows(level, missing, schema.Tags())
			if err != nil {
				return nil, err
			}
			found := make(map[string]struct{}, len(validated))
			for _, row := range validated {
				rows = append(rows, row)
				if name := row.Name(level); name != "" {
					found[name] = struct{}{}
				}
			}
			for _, value := range missing {
				if _, ok := found[value]; ok {
					continue
				}
				s.logger.Warn("selected value not present in location store",
					zap.String("level", level),
					zap.String("value", value))
				rows = append(rows, synthesizedRow(level, value))
			}
			continue
		}

		for _, value := range missing {
			rows = append(rows, synthesizedRow(level, value))
		}
	}

	return rows, nil
}

// aggregate merges the row set into per-level option sets and the nested
// hierarchy tree, applies localization, and sorts. An empty row set yields
// the no-options sentinel with the original schema.
func (s *LocationFilterService) aggregate(rows []*models.LocationRow, schema *models.LevelSchema, translate bool, language string, inject bool) (*models.FilterResult, error) {
	if len(rows) == 0 {
		return noOptionsResult(schema), nil
	}

	var local map[string]string
	if translate {
		names := collectNames(rows, schema.Tags())
		var err error
		local, err = s.store.LocalNames(names, language)
		if err != nil {
			return nil, err
		}
	}

	var tree *models.HierarchyTree
	if inject {
		tree = models.NewHierarchyTree()
	}

	path := make([]string, 0, schema.Depth())
	for _, row := range rows {
		path = path[:0]
		for _, level := range schema.Levels() {
			name := row.Name(level.Tag)
			if name == "" {
				continue
			}
			if !level.Options.Contains(name) {
				level.Options.Add(name)
				if translate {
					if localized, ok := local[name]; ok {
						level.Options.SetDisplay(name, localized)
					}
				}
			}
			if inject {
				path = append(path, name)
			}
		}
		if inject {
			tree.InsertPath(path)
		}
	}

	schema.SortOptions()

	result := &models.FilterResult{
		FieldType: constants.FieldTypeLocationReference,
		Schema:    schema,
		Tree:      tree,
	}
	if translate && len(local) > 0 {
		result.LocalNames = local
	}
	return result, nil
}

// selectedLevel extracts the level tag from a selected-value key. Accepted
// forms: "L1", "L1__belongs", and prefixed selector keys such as
// "~.location_id$L1__belongs".
func selectedLevel(key string) string {
	if i := strings.Index(key, "__"); i >= 0 {
		key = key[:i]
	}
	if i := strings.LastIndex(key, "$"); i >= 0 {
		key = key[i+1:]
	}
	for _, tag := range constants.LevelTags {
		if key == tag {
			return tag
		}
	}
	return ""
}

func synthesizedRow(level, value string) *models.LocationRow {
	return &models.LocationRow{Names: map[string]string{level: value}}
}

func noOptionsResult(schema *models.LevelSchema) *models.FilterResult {
	return &models.FilterResult{
		FieldType: constants.FieldTypeLocationReference,
		Schema:    schema,
		NoOptions: constants.NoOptionsMessage,
	}
}

// collectNames gathers every canonical name appearing at any level of any
// row, sorted for a deterministic lookup batch.
func collectNames(rows []*models.LocationRow, levels []string) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for _, tag := range levels {
			if name := row.Name(tag); name != "" {
				seen[name] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func dedupIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
