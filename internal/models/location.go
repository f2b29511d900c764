package models

import (
	"time"

	"gorm.io/gorm"
)

// Location represents one node in the administrative hierarchy. Every node
// belongs to at most one parent; root nodes have a nil ParentID. The L0..L5
// columns denormalize the ancestor name at each hierarchy level (including
// the node's own name at its own level) and are maintained by the importer's
// tree rebuild. The resolver never trusts them alone: the ancestor walk
// climbs ParentID links so that stale or missing columns cannot drop options.
type Location struct {
	ID       uint64    `json:"id" gorm:"primaryKey;autoIncrement;type:bigint"`
	Name     string    `gorm:"size:255;not null;index" json:"name"`
	Level    *string   `gorm:"size:8;index" json:"level,omitempty"`
	ParentID *uint64   `gorm:"type:bigint;index" json:"parent_id,omitempty"`
	Parent   *Location `gorm:"constraint:OnDelete:SET NULL" json:"parent,omitempty"`

	L0 string `gorm:"size:255" json:"l0,omitempty"`
	L1 string `gorm:"size:255" json:"l1,omitempty"`
	L2 string `gorm:"size:255" json:"l2,omitempty"`
	L3 string `gorm:"size:255" json:"l3,omitempty"`
	L4 string `gorm:"size:255" json:"l4,omitempty"`
	L5 string `gorm:"size:255" json:"l5,omitempty"`

	// Path is the slash-joined chain of ancestor IDs ending in this node's
	// own ID. Informational only; it may be stale for freshly moved rows.
	Path string `gorm:"size:1024" json:"path,omitempty"`

	// EndDate marks a retired (historical) record when non-nil. Retired
	// locations are excluded from candidate resolution.
	EndDate *time.Time `gorm:"index" json:"end_date,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// LevelName returns the denormalized ancestor name for the given level tag,
// or "" when the column is empty or the tag is unknown.
func (l *Location) LevelName(tag string) string {
	switch tag {
	case "L0":
		return l.L0
	case "L1":
		return l.L1
	case "L2":
		return l.L2
	case "L3":
		return l.L3
	case "L4":
		return l.L4
	case "L5":
		return l.L5
	}
	return ""
}

// SetLevelName writes the denormalized ancestor name for the given level tag.
// Unknown tags are ignored.
func (l *Location) SetLevelName(tag, name string) {
	switch tag {
	case "L0":
		l.L0 = name
	case "L1":
		l.L1 = name
	case "L2":
		l.L2 = name
	case "L3":
		l.L3 = name
	case "L4":
		l.L4 = name
	case "L5":
		l.L5 = name
	}
}

// LocationName holds a localized display name for a location, keyed by
// language code. Missing rows are not an error: display falls back to the
// canonical Location.Name.
type LocationName struct {
	ID         uint64    `json:"id" gorm:"primaryKey;autoIncrement;type:bigint"`
	LocationID uint64    `gorm:"type:bigint;index:idx_location_language,unique;not null" json:"location_id"`
	Location   *Location `gorm:"constraint:OnDelete:CASCADE" json:"location,omitempty"`
	Language   string    `gorm:"size:16;index:idx_location_language,unique;not null" json:"language"`
	NameL10n   string    `gorm:"size:255;not null" json:"name_l10n"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// LocationRow is one accumulator entry produced by the ancestor walk: the
// node's identity plus its name at every requested hierarchy level. Rows
// synthesized by selection reconciliation carry a zero ID and a single
// level name.
type LocationRow struct {
	ID       uint64
	ParentID *uint64
	Level    string
	Names    map[string]string
}

// Name returns the row's name at the given level tag, or "".
func (r *LocationRow) Name(tag string) string {
	return r.Names[tag]
}
