package models

import (
	"time"

	"gorm.io/gorm"
)

// Asset is the canonical query-capable resource carrying a location
// reference. The resolver only needs it as a source of candidate leaf
// location identifiers; asset management itself lives elsewhere.
type Asset struct {
	ID     uint64 `json:"id" gorm:"primaryKey;autoIncrement;type:bigint"`
	Number string `gorm:"size:64;uniqueIndex" json:"number"`
	Name   string `gorm:"size:255;not null" json:"name"`

	LocationID *uint64   `gorm:"type:bigint;index" json:"location_id,omitempty"`
	Location   *Location `gorm:"constraint:OnDelete:SET NULL" json:"location,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
