package services

import (
	"context"
	"errors"
	"testing"

	"github.com/evemgr/pricing-core/internal/esi"
	"github.com/evemgr/pricing-core/internal/models"
)

// scriptedFetcher serves canned order books per type id and can fail
// selected types.
type scriptedFetcher struct {
	orders map[int32][]esi.MarketOrder
	fail   map[int32]bool
}

func (f *scriptedFetcher) FetchTypeOrders(ctx context.Context, regionID, typeID int32, maxPages int) ([]esi.MarketOrder, error) {
	if f.fail[typeID] {
		return nil, errors.New("simulated fetch failure")
	}
	return f.orders[typeID], nil
}

func jitaOrders(typeID int32) []esi.MarketOrder {
	return []esi.MarketOrder{
		{OrderID: 1, TypeID: typeID, SystemID: 30000142, Price: 4, VolumeRemain: 100, IsBuyOrder: true},
		{OrderID: 2, TypeID: typeID, SystemID: 30000142, Price: 5, VolumeRemain: 50, IsBuyOrder: true},
		{OrderID: 3, TypeID: typeID, SystemID: 30000142, Price: 6, VolumeRemain: 200},
		{OrderID: 4, TypeID: typeID, SystemID: 30000142, Price: 8, VolumeRemain: 100},
	}
}

func TestUpdateMarketPricesWritesSnapshotsAndHistory(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	fetcher := &scriptedFetcher{orders: map[int32][]esi.MarketOrder{34: jitaOrders(34)}}
	s := NewMarketDataService(fetcher, db, cfg)

	if err := s.UpdateMarketPrices(context.Background(), []int32{34}, "jita"); err != nil {
		t.Fatalf("UpdateMarketPrices failed: %v", err)
	}

	var snapshots []models.MarketPriceSnapshot
	if err := db.Where("type_id = ?", 34).Order("side").Find(&snapshots).Error; err != nil {
		t.Fatal(err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("Expected buy and sell snapshots, got %d", len(snapshots))
	}

	buy := snapshots[0]
	if buy.Side != models.SideBuy {
		t.Fatalf("First snapshot side = %q, want buy", buy.Side)
	}
	if buy.PriceMax != 5 || buy.PriceMin != 4 {
		t.Errorf("Buy min/max = %v/%v, want 4/5", buy.PriceMin, buy.PriceMax)
	}
	if buy.Volume != 150 || buy.OrderCount != 2 {
		t.Errorf("Buy volume/count = %d/%d, want 150/2", buy.Volume, buy.OrderCount)
	}
	if buy.Strategy != "orders" {
		t.Errorf("Strategy = %q, want orders", buy.Strategy)
	}

	sell := snapshots[1]
	if sell.PriceMin != 6 || sell.PriceMax != 8 {
		t.Errorf("Sell min/max = %v/%v, want 6/8", sell.PriceMin, sell.PriceMax)
	}

	var days []models.PriceHistoryDay
	if err := db.Where("type_id = ?", 34).Find(&days).Error; err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 {
		t.Fatalf("Expected 1 history day, got %d", len(days))
	}
	if days[0].MaxBuy != 5 || days[0].MinSell != 6 {
		t.Errorf("History MaxBuy/MinSell = %v/%v, want 5/6", days[0].MaxBuy, days[0].MinSell)
	}
	if days[0].TotalVolume != 450 {
		t.Errorf("History TotalVolume = %d, want 450", days[0].TotalVolume)
	}
}

func TestUpdateMarketPricesUpsertsInPlace(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	fetcher := &scriptedFetcher{orders: map[int32][]esi.MarketOrder{34: jitaOrders(34)}}
	s := NewMarketDataService(fetcher, db, cfg)

	for i := 0; i < 3; i++ {
		if err := s.UpdateMarketPrices(context.Background(), []int32{34}, "jita"); err != nil {
			t.Fatalf("Refresh %d failed: %v", i, err)
		}
	}

	var snapCount, dayCount int64
	db.Model(&models.MarketPriceSnapshot{}).Count(&snapCount)
	db.Model(&models.PriceHistoryDay{}).Count(&dayCount)
	if snapCount != 2 {
		t.Errorf("Snapshot rows = %d, want 2 after repeated refreshes", snapCount)
	}
	if dayCount != 1 {
		t.Errorf("History rows = %d, want 1 after repeated refreshes", dayCount)
	}
}

func TestUpdateMarketPricesFiltersBySystem(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	fetcher := &scriptedFetcher{orders: map[int32][]esi.MarketOrder{34: {
		{OrderID: 1, TypeID: 34, SystemID: 30000142, Price: 6, VolumeRemain: 10},
		{OrderID: 2, TypeID: 34, SystemID: 30000144, Price: 1, VolumeRemain: 10}, // outside Jita
	}}}
	s := NewMarketDataService(fetcher, db, cfg)

	if err := s.UpdateMarketPrices(context.Background(), []int32{34}, "jita"); err != nil {
		t.Fatal(err)
	}

	var snap models.MarketPriceSnapshot
	if err := db.Where("type_id = ? AND side = ?", 34, models.SideSell).First(&snap).Error; err != nil {
		t.Fatal(err)
	}
	if snap.PriceMin != 6 || snap.OrderCount != 1 {
		t.Errorf("Off-system order leaked into stats: min=%v count=%d", snap.PriceMin, snap.OrderCount)
	}
}

func TestUpdateMarketPricesSkipsFailedTypes(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	fetcher := &scriptedFetcher{
		orders: map[int32][]esi.MarketOrder{34: jitaOrders(34), 35: jitaOrders(35)},
		fail:   map[int32]bool{35: true},
	}
	s := NewMarketDataService(fetcher, db, cfg)

	if err := s.UpdateMarketPrices(context.Background(), []int32{34, 35}, "jita"); err != nil {
		t.Fatalf("A failed type must not abort the cycle: %v", err)
	}

	var count34, count35 int64
	db.Model(&models.MarketPriceSnapshot{}).Where("type_id = ?", 34).Count(&count34)
	db.Model(&models.MarketPriceSnapshot{}).Where("type_id = ?", 35).Count(&count35)
	if count34 != 2 {
		t.Errorf("Type 34 snapshots = %d, want 2", count34)
	}
	if count35 != 0 {
		t.Errorf("Type 35 snapshots = %d, want 0 after fetch failure", count35)
	}
}

func TestUpdateMarketPricesUnknownMarket(t *testing.T) {
	db := newTestDB(t)
	s := NewMarketDataService(&scriptedFetcher{}, db, newTestConfig())

	err := s.UpdateMarketPrices(context.Background(), []int32{34}, "nowhere")
	if !errors.Is(err, ErrUnknownMarket) {
		t.Errorf("err = %v, want ErrUnknownMarket", err)
	}
}

func TestGetStatusAfterRefresh(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	fetcher := &scriptedFetcher{orders: map[int32][]esi.MarketOrder{34: jitaOrders(34)}}
	s := NewMarketDataService(fetcher, db, cfg)

	if len(s.GetStatus()) != 0 {
		t.Error("Status should be empty before any refresh")
	}

	if err := s.UpdateMarketPrices(context.Background(), []int32{34, 99}, "jita"); err != nil {
		t.Fatal(err)
	}

	statuses := s.GetStatus()
	if len(statuses) != 1 {
		t.Fatalf("Expected 1 status entry, got %d", len(statuses))
	}
	status := statuses[0]
	if status.Market != "jita" || status.TypesRequested != 2 || status.TypesUpdated != 1 {
		t.Errorf("Status = %+v, want jita 2 requested 1 updated", status)
	}
	if status.LastRun.IsZero() {
		t.Error("LastRun should be set")
	}
}

func TestFilterBySystems(t *testing.T) {
	orders := []esi.MarketOrder{
		{OrderID: 1, SystemID: 30000142},
		{OrderID: 2, SystemID: 30000144},
		{OrderID: 3, SystemID: 30000142},
	}

	filtered := filterBySystems(orders, []int32{30000142})
	if len(filtered) != 2 {
		t.Errorf("Filtered = %d orders, want 2", len(filtered))
	}

	// Empty system set means whole region
	if got := filterBySystems(orders, nil); len(got) != 3 {
		t.Errorf("Empty filter kept %d orders, want all 3", len(got))
	}
}
