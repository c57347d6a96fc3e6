package services

import (
	"testing"

	"github.com/evemgr/pricing-core/internal/models"
)

func TestResolveExactMatch(t *testing.T) {
	db := newTestDB(t)
	seedItemTypes(t, db,
		models.ItemType{TypeID: 34, TypeName: "Tritanium", Volume: 0.01},
		models.ItemType{TypeID: 35, TypeName: "Pyerite", Volume: 0.01},
	)
	r := NewResolver(db)

	result := r.Resolve([]ParsedItem{
		{Name: "Tritanium", Quantity: 100, Line: 1},
		{Name: "Pyerite", Quantity: 50, Line: 2},
	})

	if len(result.Resolved) != 2 {
		t.Fatalf("Expected 2 resolved items, got %d", len(result.Resolved))
	}
	if result.Resolved[0].TypeID != 34 {
		t.Errorf("TypeID = %d, want 34", result.Resolved[0].TypeID)
	}
	if len(result.Unresolved) != 0 {
		t.Errorf("Unexpected unresolved items: %v", result.Unresolved)
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	seedItemTypes(t, db, models.ItemType{TypeID: 34, TypeName: "Tritanium"})
	r := NewResolver(db)

	result := r.Resolve([]ParsedItem{{Name: "tritanium", Quantity: 1, Line: 1}})

	if len(result.Resolved) != 1 {
		t.Fatalf("Expected case-insensitive match, got %d resolved", len(result.Resolved))
	}
	if result.Resolved[0].TypeName != "Tritanium" {
		t.Errorf("TypeName = %q, want canonical casing", result.Resolved[0].TypeName)
	}
}

func TestResolveBlueprintFallback(t *testing.T) {
	db := newTestDB(t)
	seedItemTypes(t, db, models.ItemType{TypeID: 691, TypeName: "Rifter Blueprint"})
	r := NewResolver(db)

	// A scan shows "Rifter" with the BPC flag; the catalog has the blueprint
	result := r.Resolve([]ParsedItem{{Name: "Rifter", Quantity: 1, IsBPC: true, Line: 1}})

	if len(result.Resolved) != 1 {
		t.Fatalf("Expected blueprint fallback to resolve, got %d", len(result.Resolved))
	}
	if result.Resolved[0].TypeID != 691 {
		t.Errorf("TypeID = %d, want 691", result.Resolved[0].TypeID)
	}

	// Without the BPC flag the fallback must not fire
	result = r.Resolve([]ParsedItem{{Name: "Rifter", Quantity: 1, Line: 1}})
	if len(result.Resolved) != 0 {
		t.Error("Non-BPC item should not resolve via the Blueprint suffix")
	}
}

func TestResolveRecordsMisses(t *testing.T) {
	db := newTestDB(t)
	seedItemTypes(t, db, models.ItemType{TypeID: 34, TypeName: "Tritanium"})
	r := NewResolver(db)

	result := r.Resolve([]ParsedItem{
		{Name: "Tritanium", Quantity: 10, Line: 1},
		{Name: "Not An Item", Quantity: 3, Line: 2},
	})

	if len(result.Resolved) != 1 {
		t.Fatalf("Expected 1 resolved, got %d", len(result.Resolved))
	}
	if len(result.Unresolved) != 1 {
		t.Fatalf("Expected 1 unresolved, got %d", len(result.Unresolved))
	}

	miss := result.Unresolved[0]
	if miss.Name != "Not An Item" || miss.Line != 2 || miss.Quantity != 3 {
		t.Errorf("Unresolved ref = %+v, want name/line/quantity preserved", miss)
	}
}

func TestLookupType(t *testing.T) {
	db := newTestDB(t)
	seedItemTypes(t, db, models.ItemType{TypeID: 34, TypeName: "Tritanium", Volume: 0.01})
	r := NewResolver(db)

	itemType, err := r.LookupType(34)
	if err != nil {
		t.Fatalf("LookupType failed: %v", err)
	}
	if itemType.TypeName != "Tritanium" {
		t.Errorf("TypeName = %q, want Tritanium", itemType.TypeName)
	}

	if _, err := r.LookupType(99999); err == nil {
		t.Error("LookupType for missing id should return an error")
	}
}
