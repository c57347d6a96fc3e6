package models

import "time"

// Appraisal is a valued, itemized quote produced from pasted inventory text.
// PrivateToken is set if and only if IsPrivate is true; it is never serialized
// to JSON so a fetched appraisal cannot leak its own access token.
type Appraisal struct {
	ID              uint            `json:"-" gorm:"primaryKey"`
	AppraisalID     string          `json:"appraisal_id" gorm:"uniqueIndex;not null;size:16"`
	UserID          *int64          `json:"user_id,omitempty"`
	Market          string          `json:"market" gorm:"not null"`
	Kind            string          `json:"kind"` // parser strategy that produced the items
	RawInput        string          `json:"raw_input"`
	PricePercentage float64         `json:"price_percentage" gorm:"default:100"`
	TotalBuy        float64         `json:"total_buy"`
	TotalSell       float64         `json:"total_sell"`
	TotalVolume     float64         `json:"total_volume"`
	IsPrivate       bool            `json:"is_private"`
	PrivateToken    string          `json:"-"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	UnparsedLines   map[int]string  `json:"unparsed_lines,omitempty" gorm:"serializer:json"`
	UnresolvedItems []UnresolvedRef `json:"unresolved_items,omitempty" gorm:"serializer:json"`
	Items           []AppraisalItem `json:"items" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Appraisal) TableName() string {
	return "appraisals"
}

// IsExpired reports whether the appraisal's retention window has passed.
// Appraisals without an expiry are retained indefinitely.
func (a *Appraisal) IsExpired() bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(time.Now())
}

// UnresolvedRef records an item name the resolver could not map to a type id,
// kept as diagnostic data on the appraisal.
type UnresolvedRef struct {
	Name     string `json:"name"`
	Line     int    `json:"line"`
	Quantity int64  `json:"quantity"`
}

// AppraisalItem is one priced line of an appraisal. Rows are owned by their
// appraisal and removed with it.
type AppraisalItem struct {
	ID          uint           `json:"-" gorm:"primaryKey"`
	AppraisalID uint           `json:"-" gorm:"not null;index"`
	TypeID      int32          `json:"type_id" gorm:"not null"`
	TypeName    string         `json:"type_name"`
	Quantity    int64          `json:"quantity" gorm:"not null"`
	TypeVolume  float64        `json:"type_volume"`
	TotalVolume float64        `json:"total_volume"`
	BuyPrice    float64        `json:"buy_price"`
	SellPrice   float64        `json:"sell_price"`
	BuyTotal    float64        `json:"buy_total"`
	SellTotal   float64        `json:"sell_total"`
	IsBPC       bool           `json:"is_bpc"`
	BPCRuns     int            `json:"bpc_runs,omitempty"`
	IsFitted    bool           `json:"is_fitted"`
	ExtraData   map[string]any `json:"extra_data,omitempty" gorm:"serializer:json"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (AppraisalItem) TableName() string {
	return "appraisal_items"
}
