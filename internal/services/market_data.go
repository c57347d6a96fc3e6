package services

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evemgr/pricing-core/internal/config"
	"github.com/evemgr/pricing-core/internal/esi"
	"github.com/evemgr/pricing-core/internal/metrics"
	"github.com/evemgr/pricing-core/internal/models"
)

// orderFetcher is the slice of the ESI client the fetcher needs.
type orderFetcher interface {
	FetchTypeOrders(ctx context.Context, regionID, typeID int32, maxPages int) ([]esi.MarketOrder, error)
}

// MarketDataService drives the refresh cycle: it pulls order books from ESI
// in rate-limited batches, computes per-side statistics, and persists current
// snapshots plus the daily history rollup. It returns no order data; the
// side effects are the contract.
type MarketDataService struct {
	client orderFetcher
	db     *gorm.DB
	cfg    *config.Config

	mu         sync.RWMutex
	lastStatus map[string]RefreshStatus
}

// RefreshStatus records the outcome of the most recent refresh cycle per
// market, for the status endpoint.
type RefreshStatus struct {
	Market          string    `json:"market"`
	LastRun         time.Time `json:"last_run"`
	TypesRequested  int       `json:"types_requested"`
	TypesUpdated    int       `json:"types_updated"`
	DurationSeconds float64   `json:"duration_seconds"`
}

func NewMarketDataService(client orderFetcher, db *gorm.DB, cfg *config.Config) *MarketDataService {
	return &MarketDataService{
		client:     client,
		db:         db,
		cfg:        cfg,
		lastStatus: make(map[string]RefreshStatus),
	}
}

// GetStatus returns the last refresh outcome for every market that has run.
func (s *MarketDataService) GetStatus() []RefreshStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]RefreshStatus, 0, len(s.lastStatus))
	for _, status := range s.lastStatus {
		statuses = append(statuses, status)
	}
	return statuses
}

// UpdateMarketPrices refreshes snapshots and history for the given types in
// one market. Types are processed in fixed-size batches: each batch fans out
// one concurrent fetch per type (multi-page follow-up is sequential inside
// each fetch), drains fully, then pauses before the next batch so a large
// refresh cannot exceed the ESI request budget. A single type's failure is
// logged and skipped; it never aborts the cycle.
func (s *MarketDataService) UpdateMarketPrices(ctx context.Context, typeIDs []int32, market string) error {
	marketCfg, ok := s.cfg.Pricing.Markets[market]
	if !ok {
		log.Printf("Market data: unknown market: %s", market)
		return ErrUnknownMarket
	}

	start := time.Now()
	log.Printf("Market data: fetching orders for region %d (%s) - %d types",
		marketCfg.RegionID, market, len(typeIDs))

	updated := 0
	batchSize := s.cfg.Pricing.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	for batchStart := 0; batchStart < len(typeIDs); batchStart += batchSize {
		end := batchStart + batchSize
		if end > len(typeIDs) {
			end = len(typeIDs)
		}
		batch := typeIDs[batchStart:end]

		results := make([][]esi.MarketOrder, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, typeID := range batch {
			i, typeID := i, typeID
			g.Go(func() error {
				orders, err := s.client.FetchTypeOrders(gctx, marketCfg.RegionID, typeID, s.cfg.ESI.MaxPages)
				if err != nil {
					// Skip this type; siblings keep going.
					log.Printf("Market data: fetch failed for type %d: %v", typeID, err)
					metrics.TypeFetchFailuresTotal.WithLabelValues(market).Inc()
					return nil
				}
				results[i] = filterBySystems(orders, marketCfg.SystemIDs)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, typeID := range batch {
			if len(results[i]) == 0 {
				continue
			}
			if err := s.savePricesForType(typeID, results[i], market); err != nil {
				log.Printf("Market data: save failed for type %d: %v", typeID, err)
				continue
			}
			updated++
		}

		log.Printf("Market data: processed %d/%d types, updated %d with prices",
			end, len(typeIDs), updated)

		if end < len(typeIDs) && s.cfg.Pricing.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.Pricing.BatchDelay):
			}
		}
	}

	elapsed := time.Since(start)
	metrics.TypesRefreshedTotal.WithLabelValues(market).Add(float64(updated))
	metrics.RefreshCycleDuration.WithLabelValues(market).Observe(elapsed.Seconds())

	s.mu.Lock()
	s.lastStatus[market] = RefreshStatus{
		Market:          market,
		LastRun:         time.Now(),
		TypesRequested:  len(typeIDs),
		TypesUpdated:    updated,
		DurationSeconds: elapsed.Seconds(),
	}
	s.mu.Unlock()

	log.Printf("Market data: completed: updated prices for %d/%d types in %s",
		updated, len(typeIDs), market)
	return nil
}

// filterBySystems keeps only orders from the market's system set. An empty
// set means the whole region counts.
func filterBySystems(orders []esi.MarketOrder, systemIDs []int32) []esi.MarketOrder {
	if len(systemIDs) == 0 {
		return orders
	}

	filtered := orders[:0:0]
	for _, order := range orders {
		for _, id := range systemIDs {
			if order.SystemID == id {
				filtered = append(filtered, order)
				break
			}
		}
	}
	return filtered
}

// savePricesForType splits one type's orders into buy/sell sides, computes
// statistics for each nonempty side, and upserts the snapshot rows and the
// daily history row.
func (s *MarketDataService) savePricesForType(typeID int32, orders []esi.MarketOrder, market string) error {
	var buyOrders, sellOrders []esi.MarketOrder
	for _, order := range orders {
		if order.IsBuyOrder {
			buyOrders = append(buyOrders, order)
		} else {
			sellOrders = append(sellOrders, order)
		}
	}

	if len(buyOrders) > 0 {
		if err := s.upsertSnapshot(typeID, market, models.SideBuy, ComputeOrderStats(buyOrders)); err != nil {
			return err
		}
	}
	if len(sellOrders) > 0 {
		if err := s.upsertSnapshot(typeID, market, models.SideSell, ComputeOrderStats(sellOrders)); err != nil {
			return err
		}
	}

	return s.upsertHistoryDay(typeID, market, HistoryRollup(buyOrders, sellOrders))
}

func (s *MarketDataService) upsertSnapshot(typeID int32, market string, side models.OrderSide, stats OrderStats) error {
	snapshot := models.MarketPriceSnapshot{
		TypeID:          typeID,
		Market:          market,
		Side:            side,
		PriceMin:        stats.Min,
		PriceMax:        stats.Max,
		PriceAvg:        stats.Avg,
		PriceMedian:     stats.Median,
		PricePercentile: stats.Percentile,
		PriceStdDev:     stats.StdDev,
		Volume:          stats.Volume,
		OrderCount:      stats.OrderCount,
		Strategy:        "orders",
		UpdatedAt:       time.Now(),
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "type_id"}, {Name: "market"}, {Name: "side"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price_min", "price_max", "price_avg", "price_median",
			"price_percentile", "price_stddev", "volume", "order_count",
			"strategy", "updated_at",
		}),
	}).Create(&snapshot).Error
	if err != nil {
		return err
	}

	metrics.SnapshotUpsertsTotal.Inc()
	return nil
}

func (s *MarketDataService) upsertHistoryDay(typeID int32, market string, rollup HistoryStats) error {
	day := models.PriceHistoryDay{
		TypeID:      typeID,
		Market:      market,
		Date:        time.Now().Format("2006-01-02"),
		AvgBuy:      rollup.AvgBuy,
		AvgSell:     rollup.AvgSell,
		MaxBuy:      rollup.MaxBuy,
		MinSell:     rollup.MinSell,
		TotalVolume: rollup.TotalVolume,
	}

	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "type_id"}, {Name: "market"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"avg_buy", "avg_sell", "max_buy", "min_sell", "total_volume", "updated_at",
		}),
	}).Create(&day).Error
}
