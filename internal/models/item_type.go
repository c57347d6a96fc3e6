package models

// ItemType is a catalog entry from the static data export. The table is
// seeded externally and treated as read-only by this service; we only look
// types up by id or name.
type ItemType struct {
	TypeID     int32   `json:"type_id" gorm:"primaryKey"`
	TypeName   string  `json:"type_name" gorm:"uniqueIndex;not null"`
	Volume     float64 `json:"volume"`
	GroupID    int32   `json:"group_id"`
	CategoryID int32   `json:"category_id"`
	Published  bool    `json:"published"`
}

func (ItemType) TableName() string {
	return "item_types"
}
