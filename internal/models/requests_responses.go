package models

// FilterRequest carries one resolution request. Candidates come from either
// FixedIDs (a predetermined option set) or Resource+Field (a filtered query
// against a location-referencing resource); when neither is given only
// reconciled selected values can produce options.
type FilterRequest struct {
	// Levels is the explicit ordered level-tag list; empty means "derive
	// the relevant levels from deployment configuration".
	Levels []string `json:"levels,omitempty" validate:"omitempty,dive,oneof=L0 L1 L2 L3 L4 L5"`

	Resource string   `json:"resource,omitempty" validate:"omitempty,max=64"`
	Field    string   `json:"field,omitempty" validate:"omitempty,max=64,required_with=Resource"`
	FixedIDs []uint64 `json:"ids,omitempty"`

	// Selected maps "<level>__<operator>" keys (bare level tags are also
	// accepted) to previously chosen values, e.g. restored from a bookmark.
	Selected map[string][]string `json:"selected,omitempty"`

	Translate bool   `json:"translate,omitempty"`
	Language  string `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`

	// InjectHierarchy requests the nested parent→child tree in the result.
	InjectHierarchy bool `json:"hierarchy,omitempty"`
}

// FilterResult is the resolver output consumed by the presentation layer.
// NoOptions carries the sentinel message when resolution produced nothing;
// in that case Schema holds the original (empty-options) schema and Tree is
// nil.
type FilterResult struct {
	FieldType  string            `json:"field_type"`
	Schema     *LevelSchema      `json:"levels"`
	Tree       *HierarchyTree    `json:"hierarchy,omitempty"`
	LocalNames map[string]string `json:"name_l10n,omitempty"`
	NoOptions  string            `json:"no_options,omitempty"`
}

// BookmarkRequest asks for a signed token capturing a selected-value set.
type BookmarkRequest struct {
	Selected map[string][]string `json:"selected" validate:"required,min=1"`
}

// BookmarkResponse returns the signed saved-filter token.
type BookmarkResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
