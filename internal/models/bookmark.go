package models

import (
	"time"
)

// Bookmark 收藏模型 - 用户关注物品（比如在等失主出现的招领信息）
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_user_item" json:"user_id"`
	ItemID    uint      `gorm:"not null;index;uniqueIndex:idx_user_item" json:"item_id"`
	Item      Item      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"item"`
	CreatedAt time.Time `json:"created_at"`
}
