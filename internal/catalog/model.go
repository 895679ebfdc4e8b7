// File: internal/catalog/model.go
package catalog

import (
	"time"

	"arc_community_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Entry kinds. Each has its own public route, see KindRoutes.
const (
	KindWeapon = "weapon"
	KindArmor  = "armor"
	KindItem   = "item"
	KindEnemy  = "enemy"
	KindMap    = "map"
)

// KindRoutes maps the public path segment to the entry kind.
var KindRoutes = map[string]string{
	"weapons": KindWeapon,
	"armor":   KindArmor,
	"items":   KindItem,
	"enemies": KindEnemy,
	"maps":    KindMap,
}

// ValidKind reports whether k is a known entry kind.
func ValidKind(k string) bool {
	for _, kind := range KindRoutes {
		if kind == k {
			return true
		}
	}
	return false
}

// Rarities in ascending order.
var Rarities = []string{"common", "uncommon", "rare", "epic", "legendary"}

// RarityRank returns the position of r in Rarities, or len(Rarities) if unknown.
func RarityRank(r string) int {
	for i, v := range Rarities {
		if v == r {
			return i
		}
	}
	return len(Rarities)
}

// Sort keys accepted by the list endpoints. A leading '-' means descending.
const (
	SortName      = "name"
	SortNameDesc  = "-name"
	SortRarity    = "rarity"
	SortRarityDsc = "-rarity"
	SortValue     = "value"
	SortValueDesc = "-value"
)

// ValidSort reports whether s is an accepted sort key. Empty means name.
func ValidSort(s string) bool {
	switch s {
	case "", SortName, SortNameDesc, SortRarity, SortRarityDsc, SortValue, SortValueDesc:
		return true
	}
	return false
}

// Entry is one row of the game catalog.
type Entry struct {
	common.BaseModel
	Kind        string         `gorm:"type:varchar(20);not null;uniqueIndex:idx_catalog_kind_slug"`
	Name        string         `gorm:"type:varchar(120);not null"`
	Slug        string         `gorm:"type:varchar(140);not null;uniqueIndex:idx_catalog_kind_slug"`
	Rarity      string         `gorm:"type:varchar(20);index"`
	Category    string         `gorm:"type:varchar(60);index"`
	Description string         `gorm:"type:text"`
	ImageURL    *string        `gorm:"type:text"`
	Stats       datatypes.JSON
	Value       int            `gorm:"not null;default:0"`
}

// TableName specifies the table name for the Entry model.
func (Entry) TableName() string {
	return "catalog_entries"
}

// --- DTOs ---

// EntryResponse is the API shape of an entry.
type EntryResponse struct {
	ID          uuid.UUID      `json:"id"`
	Kind        string         `json:"kind"`
	Name        string         `json:"name"`
	Slug        string         `json:"slug"`
	Rarity      string         `json:"rarity,omitempty"`
	Category    string         `json:"category,omitempty"`
	Description string         `json:"description,omitempty"`
	ImageURL    *string        `json:"image_url,omitempty"`
	Stats       datatypes.JSON `json:"stats,omitempty"`
	Value       int            `json:"value"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ToEntryResponse converts an Entry model to an EntryResponse DTO.
func ToEntryResponse(e *Entry) EntryResponse {
	return EntryResponse{
		ID:          e.ID,
		Kind:        e.Kind,
		Name:        e.Name,
		Slug:        e.Slug,
		Rarity:      e.Rarity,
		Category:    e.Category,
		Description: e.Description,
		ImageURL:    e.ImageURL,
		Stats:       e.Stats,
		Value:       e.Value,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// AdminCreateEntryRequest is the body of POST /catalog.
type AdminCreateEntryRequest struct {
	Kind        string         `json:"kind" binding:"required,oneof=weapon armor item enemy map"`
	Name        string         `json:"name" binding:"required,max=120"`
	Slug        string         `json:"slug,omitempty" binding:"omitempty,max=140"`
	Rarity      string         `json:"rarity,omitempty" binding:"omitempty,oneof=common uncommon rare epic legendary"`
	Category    string         `json:"category,omitempty" binding:"omitempty,max=60"`
	Description string         `json:"description,omitempty"`
	ImageURL    *string        `json:"image_url,omitempty" binding:"omitempty,url"`
	Stats       datatypes.JSON `json:"stats,omitempty"`
	Value       int            `json:"value" binding:"gte=0"`
}

// ListQuery holds the list filters.
type ListQuery struct {
	Search   string
	Category string
	Rarity   string
	Sort     string
}
