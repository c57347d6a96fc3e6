package services

import (
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/evemgr/pricing-core/internal/models"
)

// ResolvedItem is a parsed item successfully mapped to a catalog type.
type ResolvedItem struct {
	ParsedItem
	TypeID   int32
	TypeName string
}

// ResolveResult splits a parse result into resolvable and unresolvable items.
// Individual misses are never fatal; the caller decides what an entirely
// empty resolved set means.
type ResolveResult struct {
	Resolved   []ResolvedItem
	Unresolved []models.UnresolvedRef
}

// Resolver maps parsed item names to catalog ids. Lookup order: exact name,
// case-insensitive name, then name + " Blueprint" for items flagged as
// blueprint copies (scans show the product name, the catalog the blueprint).
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve maps each parsed item to a catalog entry, collecting the misses as
// diagnostic data.
func (r *Resolver) Resolve(items []ParsedItem) ResolveResult {
	var result ResolveResult

	for _, item := range items {
		name := strings.TrimSpace(item.Name)

		itemType, ok := r.lookup(name, item.IsBPC)
		if !ok {
			log.Printf("Resolver: could not resolve item name: %s", name)
			result.Unresolved = append(result.Unresolved, models.UnresolvedRef{
				Name:     name,
				Line:     item.Line,
				Quantity: item.Quantity,
			})
			continue
		}

		result.Resolved = append(result.Resolved, ResolvedItem{
			ParsedItem: item,
			TypeID:     itemType.TypeID,
			TypeName:   itemType.TypeName,
		})
	}

	return result
}

func (r *Resolver) lookup(name string, isBPC bool) (*models.ItemType, bool) {
	var itemType models.ItemType

	err := r.db.Where("type_name = ?", name).First(&itemType).Error
	if err == nil {
		return &itemType, true
	}

	err = r.db.Where("LOWER(type_name) = ?", strings.ToLower(name)).First(&itemType).Error
	if err == nil {
		return &itemType, true
	}

	if isBPC {
		err = r.db.Where("type_name = ?", name+" Blueprint").First(&itemType).Error
		if err == nil {
			return &itemType, true
		}
	}

	return nil, false
}

// LookupType fetches a catalog entry by id, for post-resolution metadata reads.
func (r *Resolver) LookupType(typeID int32) (*models.ItemType, error) {
	var itemType models.ItemType
	if err := r.db.First(&itemType, "type_id = ?", typeID).Error; err != nil {
		return nil, err
	}
	return &itemType, nil
}
