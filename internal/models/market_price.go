package models

import "time"

// OrderSide distinguishes buy and sell order books
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// AllOrderSides returns both order sides
func AllOrderSides() []OrderSide {
	return []OrderSide{SideBuy, SideSell}
}

// MarketPriceSnapshot stores the current computed price statistics for one
// (type, market, side) combination. Each refresh overwrites the row in place;
// history lives in PriceHistoryDay, never here.
type MarketPriceSnapshot struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	TypeID          int32     `json:"type_id" gorm:"not null;uniqueIndex:idx_type_market_side"`
	Market          string    `json:"market" gorm:"not null;uniqueIndex:idx_type_market_side"`
	Side            OrderSide `json:"side" gorm:"not null;uniqueIndex:idx_type_market_side"`
	PriceMin        float64   `json:"price_min"`
	PriceMax        float64   `json:"price_max"`
	PriceAvg        float64   `json:"price_avg"`
	PriceMedian     float64   `json:"price_median"`
	PricePercentile float64   `json:"price_percentile"`
	PriceStdDev     float64   `json:"price_stddev" gorm:"column:price_stddev"`
	Volume          int64     `json:"volume"`
	OrderCount      int       `json:"order_count"`
	Strategy        string    `json:"strategy"` // computation strategy tag, currently always "orders"
	UpdatedAt       time.Time `json:"updated_at"`
}

func (MarketPriceSnapshot) TableName() string {
	return "market_price_snapshots"
}

// PriceHistoryDay is the daily rollup for one (type, market, date). Rows are
// upserted, so recomputing the same day multiple times is safe.
type PriceHistoryDay struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	TypeID      int32     `json:"type_id" gorm:"not null;uniqueIndex:idx_type_market_date"`
	Market      string    `json:"market" gorm:"not null;uniqueIndex:idx_type_market_date"`
	Date        string    `json:"date" gorm:"not null;uniqueIndex:idx_type_market_date"` // YYYY-MM-DD
	AvgBuy      float64   `json:"avg_buy"`
	AvgSell     float64   `json:"avg_sell"`
	MaxBuy      float64   `json:"max_buy"`
	MinSell     float64   `json:"min_sell"`
	TotalVolume int64     `json:"total_volume"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (PriceHistoryDay) TableName() string {
	return "price_history_days"
}
