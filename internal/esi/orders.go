package esi

// MarketOrder mirrors the ESI market order response.
type MarketOrder struct {
	OrderID      int64   `json:"order_id"`
	TypeID       int32   `json:"type_id"`
	LocationID   int64   `json:"location_id"`
	SystemID     int32   `json:"system_id"`
	Price        float64 `json:"price"`
	VolumeRemain int64   `json:"volume_remain"`
	IsBuyOrder   bool    `json:"is_buy_order"`
}

// TypeInfo mirrors the ESI universe type response.
type TypeInfo struct {
	TypeID    int32   `json:"type_id"`
	Name      string  `json:"name"`
	Volume    float64 `json:"volume"`
	GroupID   int32   `json:"group_id"`
	Published bool    `json:"published"`
}
