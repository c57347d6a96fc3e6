package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evemgr/pricing-core/internal/config"
	"github.com/evemgr/pricing-core/internal/metrics"
	"github.com/evemgr/pricing-core/internal/models"
)

const priceCacheSize = 1024

// PriceStats is the read-side view of one snapshot.
type PriceStats struct {
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
	Avg        float64   `json:"avg"`
	Median     float64   `json:"median"`
	Percentile float64   `json:"percentile"`
	StdDev     float64   `json:"stddev"`
	Volume     int64     `json:"volume"`
	OrderCount int       `json:"order_count"`
	Strategy   string    `json:"strategy"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TypePrice holds both sides of a type's current pricing. A side without a
// snapshot is nil, not an error: prices are advisory.
type TypePrice struct {
	Buy  *PriceStats `json:"buy,omitempty"`
	Sell *PriceStats `json:"sell,omitempty"`
}

// TrendPoint is one day of the history series returned by GetTrend.
type TrendPoint struct {
	Date    string  `json:"date"`
	AvgBuy  float64 `json:"avg_buy"`
	AvgSell float64 `json:"avg_sell"`
	Volume  int64   `json:"volume"`
}

// TrendResult classifies the mean-sell movement over a history window.
type TrendResult struct {
	Trend         string       `json:"trend"` // rising | falling | stable | unknown
	ChangePercent float64      `json:"change_percent"`
	Data          []TrendPoint `json:"data"`
}

// PricingService is the read/registry layer over snapshots and history. It
// owns the type subscription registry and delegates the actual fetching to
// the market data service. Snapshot reads go through a TTL'd LRU so bursty
// read traffic (appraisal pages, plugin dashboards) doesn't hammer the DB.
type PricingService struct {
	db      *gorm.DB
	fetcher *MarketDataService
	cfg     *config.Config
	cache   *expirable.LRU[string, map[int32]*TypePrice]
}

func NewPricingService(db *gorm.DB, fetcher *MarketDataService, cfg *config.Config) *PricingService {
	return &PricingService{
		db:      db,
		fetcher: fetcher,
		cfg:     cfg,
		cache:   expirable.NewLRU[string, map[int32]*TypePrice](priceCacheSize, nil, cfg.Cache.PriceTTL),
	}
}

// RegisterTypes upserts one subscription per (plugin, type, market). Priority
// is clamped to the valid range; re-registering an existing subscription only
// updates its priority. Returns the number of types registered.
func (s *PricingService) RegisterTypes(pluginName string, typeIDs []int32, market string, priority int) (int, error) {
	if len(typeIDs) == 0 {
		return 0, nil
	}
	priority = models.ClampPriority(priority)

	subs := make([]models.TypeSubscription, 0, len(typeIDs))
	for _, typeID := range typeIDs {
		subs = append(subs, models.TypeSubscription{
			PluginName: pluginName,
			TypeID:     typeID,
			Market:     market,
			Priority:   priority,
		})
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plugin_name"}, {Name: "type_id"}, {Name: "market"}},
		DoUpdates: clause.AssignmentColumns([]string{"priority", "updated_at"}),
	}).Create(&subs).Error
	if err != nil {
		return 0, err
	}

	log.Printf("Pricing: plugin %q registered %d type ids for market %q", pluginName, len(typeIDs), market)
	s.updateSubscriptionGauge(market)
	return len(typeIDs), nil
}

// UnregisterTypes removes a plugin's subscriptions for the given types.
func (s *PricingService) UnregisterTypes(pluginName string, typeIDs []int32, market string) (int, error) {
	result := s.db.Where("plugin_name = ? AND market = ? AND type_id IN ?", pluginName, market, typeIDs).
		Delete(&models.TypeSubscription{})
	if result.Error != nil {
		return 0, result.Error
	}

	s.updateSubscriptionGauge(market)
	return int(result.RowsAffected), nil
}

// SubscribedTypeIDs returns the distinct type ids subscribed for a market,
// ordered by highest priority first.
func (s *PricingService) SubscribedTypeIDs(market string) ([]int32, error) {
	var typeIDs []int32
	err := s.db.Model(&models.TypeSubscription{}).
		Where("market = ?", market).
		Group("type_id").
		Order("MAX(priority) DESC").
		Pluck("type_id", &typeIDs).Error
	return typeIDs, err
}

// UpdatePrices refreshes all subscribed types for one market. A market with
// no subscriptions is a no-op, not an error.
func (s *PricingService) UpdatePrices(ctx context.Context, market string) error {
	if _, ok := s.cfg.Pricing.Markets[market]; !ok {
		log.Printf("Pricing: unknown market: %s", market)
		return ErrUnknownMarket
	}

	typeIDs, err := s.SubscribedTypeIDs(market)
	if err != nil {
		return err
	}
	if len(typeIDs) == 0 {
		log.Printf("Pricing: no subscribed types for market: %s", market)
		return nil
	}

	log.Printf("Pricing: updating prices for %d types in market: %s", len(typeIDs), market)
	return s.fetcher.UpdateMarketPrices(ctx, typeIDs, market)
}

// RefreshTypes refreshes exactly the given types, bypassing the subscription
// registry. Used by appraisal submissions, which must not refresh the world.
func (s *PricingService) RefreshTypes(ctx context.Context, typeIDs []int32, market string) error {
	return s.fetcher.UpdateMarketPrices(ctx, typeIDs, market)
}

// GetPrice returns current pricing for a single type, or nil when no snapshot
// exists yet.
func (s *PricingService) GetPrice(typeID int32, market, side string) (*TypePrice, error) {
	prices, err := s.GetPrices([]int32{typeID}, market, side)
	if err != nil {
		return nil, err
	}
	return prices[typeID], nil
}

// GetPrices returns current pricing for a set of types. Results are cached
// for a bounded TTL keyed by (market, sorted id set, side); types without a
// snapshot map to nil entries.
func (s *PricingService) GetPrices(typeIDs []int32, market, side string) (map[int32]*TypePrice, error) {
	key := priceCacheKey(typeIDs, market, side)
	if cached, ok := s.cache.Get(key); ok {
		metrics.PriceCacheHits.Inc()
		return cached, nil
	}
	metrics.PriceCacheMisses.Inc()

	var snapshots []models.MarketPriceSnapshot
	query := s.db.Where("market = ? AND type_id IN ?", market, typeIDs)
	if side == string(models.SideBuy) || side == string(models.SideSell) {
		query = query.Where("side = ?", side)
	}
	if err := query.Find(&snapshots).Error; err != nil {
		return nil, err
	}

	prices := make(map[int32]*TypePrice, len(typeIDs))
	for _, typeID := range typeIDs {
		prices[typeID] = nil
	}
	for _, snap := range snapshots {
		price := prices[snap.TypeID]
		if price == nil {
			price = &TypePrice{}
			prices[snap.TypeID] = price
		}
		stats := &PriceStats{
			Min:        snap.PriceMin,
			Max:        snap.PriceMax,
			Avg:        snap.PriceAvg,
			Median:     snap.PriceMedian,
			Percentile: snap.PricePercentile,
			StdDev:     snap.PriceStdDev,
			Volume:     snap.Volume,
			OrderCount: snap.OrderCount,
			Strategy:   snap.Strategy,
			UpdatedAt:  snap.UpdatedAt,
		}
		if snap.Side == models.SideBuy {
			price.Buy = stats
		} else {
			price.Sell = stats
		}
	}

	s.cache.Add(key, prices)
	return prices, nil
}

// InvalidateCache drops all cached price reads. Called after a scoped refresh
// so an appraisal prices against the snapshots it just wrote.
func (s *PricingService) InvalidateCache() {
	s.cache.Purge()
}

// GetTrend reads the history window for one type and classifies the movement
// of the mean sell price between the first and last day present.
func (s *PricingService) GetTrend(typeID int32, market string, days int) (*TrendResult, error) {
	since := time.Now().AddDate(0, 0, -days).Format("2006-01-02")

	var history []models.PriceHistoryDay
	err := s.db.Where("type_id = ? AND market = ? AND date >= ?", typeID, market, since).
		Order("date ASC").
		Find(&history).Error
	if err != nil {
		return nil, err
	}

	if len(history) == 0 {
		return &TrendResult{Trend: "unknown", Data: []TrendPoint{}}, nil
	}

	first := history[0]
	last := history[len(history)-1]

	changePercent := 0.0
	if first.AvgSell > 0 {
		changePercent = (last.AvgSell - first.AvgSell) / first.AvgSell * 100
	}

	trend := "stable"
	switch {
	case changePercent > 5:
		trend = "rising"
	case changePercent < -5:
		trend = "falling"
	}

	points := make([]TrendPoint, len(history))
	for i, day := range history {
		points[i] = TrendPoint{
			Date:    day.Date,
			AvgBuy:  day.AvgBuy,
			AvgSell: day.AvgSell,
			Volume:  day.TotalVolume,
		}
	}

	return &TrendResult{
		Trend:         trend,
		ChangePercent: changePercent,
		Data:          points,
	}, nil
}

// CleanupHistory deletes history rows older than the retention window.
func (s *PricingService) CleanupHistory(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).Format("2006-01-02")

	result := s.db.Where("date < ?", cutoff).Delete(&models.PriceHistoryDay{})
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("Pricing: deleted %d old price history records", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

func (s *PricingService) updateSubscriptionGauge(market string) {
	var count int64
	if err := s.db.Model(&models.TypeSubscription{}).Where("market = ?", market).Count(&count).Error; err == nil {
		metrics.SubscriptionsActive.WithLabelValues(market).Set(float64(count))
	}
}

func priceCacheKey(typeIDs []int32, market, side string) string {
	sorted := make([]int32, len(typeIDs))
	copy(sorted, typeIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var b strings.Builder
	b.WriteString(market)
	b.WriteByte('|')
	b.WriteString(side)
	for _, id := range sorted {
		fmt.Fprintf(&b, "|%d", id)
	}
	return b.String()
}
