package models

import (
	"encoding/json"
	"sort"
)

// Option is one entry of a translated OptionSet: the canonical stored name
// plus the localized display value.
type Option struct {
	Name    string `json:"name"`
	Display string `json:"display"`
}

// OptionSet collects the distinct option values of one hierarchy level.
// It is a tagged variant: untranslated sets are plain ordered name lists,
// translated sets additionally carry a display value per name. Both variants
// share the same Add/Contains operations and both sort by canonical name,
// so ordering is stable across languages.
type OptionSet struct {
	translated bool
	names      []string
	display    map[string]string
	seen       map[string]struct{}
}

// NewOptionSet returns an empty OptionSet of the requested variant.
func NewOptionSet(translated bool) *OptionSet {
	set := &OptionSet{
		translated: translated,
		seen:       make(map[string]struct{}),
	}
	if translated {
		set.display = make(map[string]string)
	}
	return set
}

// Translated reports whether the set carries display values.
func (s *OptionSet) Translated() bool { return s.translated }

// Len returns the number of distinct options.
func (s *OptionSet) Len() int { return len(s.names) }

// Contains reports whether the canonical name is already present.
func (s *OptionSet) Contains(name string) bool {
	_, ok := s.seen[name]
	return ok
}

// Add inserts a canonical name if absent. Translated sets seed the display
// value with the canonical name until a localization is applied.
func (s *OptionSet) Add(name string) {
	if name == "" || s.Contains(name) {
		return
	}
	s.names = append(s.names, name)
	s.seen[name] = struct{}{}
	if s.translated {
		s.display[name] = name
	}
}

// SetDisplay overrides the display value of an existing entry. No-op for
// untranslated sets or unknown names.
func (s *OptionSet) SetDisplay(name, display string) {
	if !s.translated || display == "" {
		return
	}
	if _, ok := s.seen[name]; ok {
		s.display[name] = display
	}
}

// Display returns the display value for a canonical name. Untranslated sets
// and missing localizations fall back to the canonical name itself.
func (s *OptionSet) Display(name string) string {
	if s.translated {
		if d, ok := s.display[name]; ok && d != "" {
			return d
		}
	}
	return name
}

// Sort orders the set by canonical name.
func (s *OptionSet) Sort() {
	sort.Strings(s.names)
}

// Names returns the option names in current set order.
func (s *OptionSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// MarshalJSON renders untranslated sets as a plain name array and translated
// sets as an array of name/display pairs, preserving set order.
func (s *OptionSet) MarshalJSON() ([]byte, error) {
	if !s.translated {
		if s.names == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(s.names)
	}
	entries := make([]Option, 0, len(s.names))
	for _, name := range s.names {
		entries = append(entries, Option{Name: name, Display: s.Display(name)})
	}
	return json.Marshal(entries)
}

// SchemaLevel is one entry of a LevelSchema: a level tag, its display label,
// and the options collected at that level.
type SchemaLevel struct {
	Tag     string     `json:"tag"`
	Label   string     `json:"label"`
	Options *OptionSet `json:"options"`
}

// LevelSchema is the ordered sequence of hierarchy levels for one resolution
// session. Order is fixed at construction; options are populated during
// aggregation.
type LevelSchema struct {
	levels []*SchemaLevel
	byTag  map[string]*SchemaLevel
}

// NewLevelSchema returns an empty schema.
func NewLevelSchema() *LevelSchema {
	return &LevelSchema{byTag: make(map[string]*SchemaLevel)}
}

// Append adds a level to the end of the schema with an empty options
// container of the requested variant. Duplicate tags are ignored.
func (s *LevelSchema) Append(tag, label string, translated bool) {
	if _, ok := s.byTag[tag]; ok {
		return
	}
	level := &SchemaLevel{Tag: tag, Label: label, Options: NewOptionSet(translated)}
	s.levels = append(s.levels, level)
	s.byTag[tag] = level
}

// Levels returns the schema entries in order.
func (s *LevelSchema) Levels() []*SchemaLevel { return s.levels }

// Level returns the entry for a tag.
func (s *LevelSchema) Level(tag string) (*SchemaLevel, bool) {
	level, ok := s.byTag[tag]
	return level, ok
}

// Tags returns the level tags in schema order.
func (s *LevelSchema) Tags() []string {
	tags := make([]string, len(s.levels))
	for i, level := range s.levels {
		tags[i] = level.Tag
	}
	return tags
}

// Depth returns the number of levels.
func (s *LevelSchema) Depth() int { return len(s.levels) }

// Empty reports whether the schema has no levels.
func (s *LevelSchema) Empty() bool { return len(s.levels) == 0 }

// SortOptions orders every level's options by canonical name.
func (s *LevelSchema) SortOptions() {
	for _, level := range s.levels {
		level.Options.Sort()
	}
}

// MarshalJSON renders the schema as an ordered array of levels.
func (s *LevelSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.levels)
}

// HierarchyTree is the nested parent→child name tree that drives cascading
// selection controls. A leaf is a node with no children.
type HierarchyTree struct {
	children map[string]*HierarchyTree
}

// NewHierarchyTree returns an empty tree.
func NewHierarchyTree() *HierarchyTree {
	return &HierarchyTree{children: make(map[string]*HierarchyTree)}
}

// InsertPath descends the tree along the ordered name sequence, creating
// intermediate nodes on demand. Rows sharing a prefix merge into the same
// subtree.
func (t *HierarchyTree) InsertPath(names []string) {
	node := t
	for _, name := range names {
		if name == "" {
			continue
		}
		child, ok := node.children[name]
		if !ok {
			child = NewHierarchyTree()
			node.children[name] = child
		}
		node = child
	}
}

// Child returns the subtree for a name.
func (t *HierarchyTree) Child(name string) (*HierarchyTree, bool) {
	child, ok := t.children[name]
	return child, ok
}

// Len returns the number of direct children.
func (t *HierarchyTree) Len() int { return len(t.children) }

// ChildNames returns the direct child names sorted lexically.
func (t *HierarchyTree) ChildNames() []string {
	names := make([]string, 0, len(t.children))
	for name := range t.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON renders the tree as nested objects; a leaf marshals as {}.
func (t *HierarchyTree) MarshalJSON() ([]byte, error) {
	if t.children == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t.children)
}
