package models

import "time"

// Subscription priority bounds. Values outside the range are clamped on write.
const (
	MinPriority = 1
	MaxPriority = 10
)

// TypeSubscription records that a plugin wants pricing kept fresh for one
// (type, market) pair. The unique index makes concurrent registration from
// multiple writers safe; re-registering only moves the priority.
type TypeSubscription struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	PluginName string    `json:"plugin_name" gorm:"not null;uniqueIndex:idx_plugin_type_market"`
	TypeID     int32     `json:"type_id" gorm:"not null;uniqueIndex:idx_plugin_type_market"`
	Market     string    `json:"market" gorm:"not null;uniqueIndex:idx_plugin_type_market"`
	Priority   int       `json:"priority" gorm:"not null;default:1"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (TypeSubscription) TableName() string {
	return "type_subscriptions"
}

// ClampPriority forces a priority into the [MinPriority, MaxPriority] range.
func ClampPriority(priority int) int {
	if priority < MinPriority {
		return MinPriority
	}
	if priority > MaxPriority {
		return MaxPriority
	}
	return priority
}
